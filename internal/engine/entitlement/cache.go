package entitlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hiring-entitlements/internal/common/logger"
	"hiring-entitlements/internal/common/metrics"
	"hiring-entitlements/internal/models"

	"github.com/redis/go-redis/v9"
)

// SubscriptionCache keeps subscription records in Redis. It never holds
// consumption counts; those are always counted from contact_views.
type SubscriptionCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewSubscriptionCache(client *redis.Client, ttl time.Duration, log logger.Logger) *SubscriptionCache {
	return &SubscriptionCache{
		redis:  client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "subscription-cache"}),
	}
}

func cacheKey(kind models.AccountKind, accountID string) string {
	return fmt.Sprintf("sub:%s:%s", kind, accountID)
}

// Get returns the cached subscription. Misses and Redis faults both report false.
func (c *SubscriptionCache) Get(ctx context.Context, kind models.AccountKind, accountID string) (*models.Subscription, bool) {
	val, err := c.redis.Get(ctx, cacheKey(kind, accountID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("subscription cache read failed", map[string]interface{}{
				"accountId": accountID,
				"error":     err.Error(),
			})
			metrics.SubscriptionCacheLookups.WithLabelValues("error").Inc()
			return nil, false
		}
		metrics.SubscriptionCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	var sub models.Subscription
	if err := json.Unmarshal([]byte(val), &sub); err != nil {
		c.logger.Debug("discarding undecodable cache entry", map[string]interface{}{
			"accountId": accountID,
			"error":     err.Error(),
		})
		metrics.SubscriptionCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	metrics.SubscriptionCacheLookups.WithLabelValues("hit").Inc()
	return &sub, true
}

// Set stores sub until the earlier of the cache TTL and the subscription's expiry.
func (c *SubscriptionCache) Set(ctx context.Context, sub *models.Subscription, now time.Time) {
	ttl := c.ttl
	if left := sub.ExpiresAt().Sub(now); left < ttl {
		ttl = left
	}
	if ttl < time.Second {
		return
	}

	data, err := json.Marshal(sub)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, cacheKey(sub.Kind, sub.AccountID), data, ttl).Err(); err != nil {
		c.logger.Warn("subscription cache write failed", map[string]interface{}{
			"accountId": sub.AccountID,
			"error":     err.Error(),
		})
	}
}

// Invalidate drops the cached record, e.g. after a plan purchase.
func (c *SubscriptionCache) Invalidate(ctx context.Context, kind models.AccountKind, accountID string) error {
	return c.redis.Del(ctx, cacheKey(kind, accountID)).Err()
}
