// Package auth holds request identity extraction and per-user rate limiting.
package auth

import (
	"context"
	"time"

	"famhub-backend/application/ports"
	"famhub-backend/domain/keys"
	"famhub-backend/domain/model"
	apperrors "famhub-backend/pkg/errors"
	"famhub-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"go.uber.org/zap"
)

// counterTTLSlack keeps expired counters readable for a while past their
// window so diagnosis is possible before the store reaps them.
const counterTTLSlack = time.Hour

// Limit is a fixed-window rule: at most MaxRequests per Window.
type Limit struct {
	MaxRequests int
	Window      time.Duration
}

// RateLimiter enforces fixed-window limits per (user, action) on top of the
// item store. Every store failure fails open: the guarded action is always
// more important than its rate limit.
type RateLimiter struct {
	store   ports.ItemStore
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewRateLimiter creates a store-backed limiter. metrics may be nil.
func NewRateLimiter(store ports.ItemStore, metrics *observability.Metrics, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		store:   store,
		metrics: metrics,
		logger:  logger.Named("ratelimit"),
		now:     time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (r *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	r.now = now
	return r
}

// Check counts one attempt of action by userID against limit. It returns a
// rate-limit error with a positive retry-after when the window is exhausted
// and nil in every other case, including store failures.
func (r *RateLimiter) Check(ctx context.Context, userID, action string, limit Limit) error {
	if limit.MaxRequests <= 0 || limit.Window <= 0 {
		return nil
	}

	now := r.now()
	key := keys.RateLimitKey(userID, action)

	item, err := r.store.Get(ctx, key)
	if err != nil {
		r.failOpen(ctx, "read", action, err)
		return nil
	}

	var counter model.RateLimitCounter
	if item != nil {
		if err := attributevalue.UnmarshalMap(item, &counter); err != nil {
			r.failOpen(ctx, "decode", action, err)
			return nil
		}
	}

	windowEnd := counter.WindowStart.Add(limit.Window)
	if item == nil || !now.Before(windowEnd) {
		return r.startWindow(ctx, key, userID, action, now, limit)
	}

	if counter.Count >= limit.MaxRequests {
		retryAfter := windowEnd.Sub(now)
		if retryAfter <= 0 {
			retryAfter = time.Second
		}
		r.metrics.Count(ctx, "RateLimitExceeded", 1, map[string]string{"Action": action})
		r.logger.Info("rate limit exceeded",
			zap.String("user_id", userID),
			zap.String("action", action),
			zap.Int("count", counter.Count),
			zap.Duration("retry_after", retryAfter))
		return apperrors.NewRateLimitError(retryAfter)
	}

	_, err = r.store.Update(ctx, ports.UpdateInput{
		Key:       key,
		Add:       map[string]int{"Count": 1},
		Condition: ports.ItemExists(),
	})
	if err != nil {
		r.failOpen(ctx, "increment", action, err)
	}
	return nil
}

func (r *RateLimiter) startWindow(ctx context.Context, key keys.Key, userID, action string, now time.Time, limit Limit) error {
	counter := model.RateLimitCounter{
		PK:          key.PK,
		SK:          key.SK,
		EntityType:  model.EntityTypeRateLimit,
		UserID:      userID,
		Action:      action,
		Count:       1,
		WindowStart: now,
		TTL:         now.Add(limit.Window + counterTTLSlack).Unix(),
	}

	item, err := attributevalue.MarshalMap(counter)
	if err != nil {
		r.failOpen(ctx, "encode", action, err)
		return nil
	}
	if err := r.store.Put(ctx, item, nil); err != nil {
		r.failOpen(ctx, "write", action, err)
	}
	return nil
}

func (r *RateLimiter) failOpen(ctx context.Context, stage, action string, err error) {
	r.metrics.Count(ctx, "RateLimitFailOpen", 1, map[string]string{"Action": action})
	r.logger.Warn("rate limiter failing open",
		zap.String("stage", stage),
		zap.String("action", action),
		zap.Error(err))
}
