package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	apperrors "hiring-entitlements/internal/common/errors"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// AuditIndexer writes every event to an Elasticsearch index, keyed by event id
// so redelivery overwrites instead of duplicating.
type AuditIndexer struct {
	es    *elasticsearch.Client
	index string
}

func NewAuditIndexer(es *elasticsearch.Client, index string) *AuditIndexer {
	if index == "" {
		index = "hiring-audit"
	}
	return &AuditIndexer{es: es, index: index}
}

func (a *AuditIndexer) Name() string { return "audit-indexer" }

type auditDocument struct {
	Event
	AccountID string `json:"account_id"`
}

func (a *AuditIndexer) Handle(ctx context.Context, e Event) error {
	body, err := json.Marshal(auditDocument{Event: e, AccountID: e.AccountID()})
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	req := esapi.IndexRequest{
		Index:      a.index,
		DocumentID: e.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, a.es)
	if err != nil {
		return apperrors.NewExternalServiceError("elasticsearch", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return apperrors.NewExternalServiceError("elasticsearch", fmt.Errorf("index %s: %s", a.index, res.Status()))
	}
	return nil
}
