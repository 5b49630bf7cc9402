// Package validation checks request bodies against JSON Schemas.
package validation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	apperrors "hiring-entitlements/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// StatusUpdateSchema is the body of POST /employer/applications/{id}/status.
// Interview fields are optional here; their presence for interview_scheduled
// is a lifecycle rule, not a schema rule.
const StatusUpdateSchema = `{
	"type": "object",
	"properties": {
		"status": {
			"type": "string",
			"enum": ["applied", "shortlisted", "interview_scheduled", "selected", "rejected"]
		},
		"interview_date": {"type": "string", "maxLength": 32},
		"interview_time": {"type": "string", "maxLength": 32},
		"interview_location": {"type": "string", "maxLength": 512}
	},
	"required": ["status"],
	"additionalProperties": false
}`

// ApplySchema is the body of POST /employee/jobs/{id}/apply. The job comes
// from the path and the employee from the token, so only an empty object (or
// no body) is accepted.
const ApplySchema = `{
	"type": "object",
	"additionalProperties": false
}`

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Schema is a compiled JSON Schema.
type Schema struct {
	schema *gojsonschema.Schema
}

func NewSchema(schemaJSON string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

// MustSchema is NewSchema for package-level schemas.
func MustSchema(schemaJSON string) *Schema {
	s, err := NewSchema(schemaJSON)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks a raw JSON document. Malformed JSON is reported as a
// single error on the root field.
func (s *Schema) Validate(doc []byte) *ValidationResult {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return &ValidationResult{Errors: []ValidationError{{
			Field:   "(root)",
			Message: "body is not valid JSON",
			Code:    "MALFORMED_JSON",
		}}}
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldOf(e),
			Message: e.Description(),
			Code:    errorCode(e.Type()),
		})
	}
	sort.SliceStable(out.Errors, func(i, j int) bool { return out.Errors[i].Field < out.Errors[j].Field })
	return out
}

// Decode validates doc and unmarshals it into v. Any failure is a
// VALIDATION_FAILED error listing every violation.
func (s *Schema) Decode(doc []byte, v interface{}) error {
	if len(strings.TrimSpace(string(doc))) == 0 {
		doc = []byte("{}")
	}
	res := s.Validate(doc)
	if !res.Valid {
		return apperrors.NewValidationFailedError(strings.Join(res.GetErrorMessages(), "; "))
	}
	if err := json.Unmarshal(doc, v); err != nil {
		return apperrors.NewValidationFailedError(err.Error())
	}
	return nil
}

// required errors report the parent context; point at the missing property instead.
func fieldOf(e gojsonschema.ResultError) string {
	if e.Type() == "required" {
		if p, ok := e.Details()["property"].(string); ok {
			return p
		}
	}
	if e.Type() == "additional_property_not_allowed" {
		if p, ok := e.Details()["property"].(string); ok {
			return p
		}
	}
	return e.Field()
}

func errorCode(t string) string {
	switch t {
	case "required":
		return "REQUIRED_FIELD_MISSING"
	case "additional_property_not_allowed":
		return "EXTRA_FIELD"
	case "invalid_type":
		return "INVALID_TYPE"
	case "enum":
		return "INVALID_ENUM_VALUE"
	case "string_gte":
		return "MIN_LENGTH_VIOLATION"
	case "string_lte":
		return "MAX_LENGTH_VIOLATION"
	default:
		return strings.ToUpper(t)
	}
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}
