package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"famhub-backend/infrastructure/persistence/memory"
	"famhub-backend/pkg/auth"
	apperrors "famhub-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLimiter(store *memory.Store, now *time.Time) *auth.RateLimiter {
	return auth.NewRateLimiter(store, nil, zap.NewNop()).
		WithClock(func() time.Time { return *now })
}

func TestRateLimiterFixedWindow(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter := newLimiter(store, &now)
	ctx := context.Background()
	limit := auth.Limit{MaxRequests: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Check(ctx, "alice", "comment_create", limit))
		now = now.Add(time.Second)
	}

	err := limiter.Check(ctx, "alice", "comment_create", limit)
	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrorTypeRateLimit, appErr.Type)
	assert.Greater(t, appErr.RetryAfter, time.Duration(0))

	// A different action has its own window.
	require.NoError(t, limiter.Check(ctx, "alice", "message_send", limit))

	// So does a different user.
	require.NoError(t, limiter.Check(ctx, "bob", "comment_create", limit))

	// After the window elapses a fresh window starts.
	now = now.Add(2 * time.Minute)
	require.NoError(t, limiter.Check(ctx, "alice", "comment_create", limit))
	require.NoError(t, limiter.Check(ctx, "alice", "comment_create", limit))
	require.NoError(t, limiter.Check(ctx, "alice", "comment_create", limit))
	err = limiter.Check(ctx, "alice", "comment_create", limit)
	assert.True(t, apperrors.IsRateLimit(err))
}

func TestRateLimiterFailsOpen(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter := newLimiter(store, &now)
	ctx := context.Background()
	limit := auth.Limit{MaxRequests: 1, Window: time.Minute}

	store.FailNext("Get", errors.New("store down"))
	assert.NoError(t, limiter.Check(ctx, "alice", "comment_create", limit))

	store.FailNext("Put", errors.New("store down"))
	assert.NoError(t, limiter.Check(ctx, "alice", "comment_create", limit))

	// Counter write above failed, so this starts the real window.
	require.NoError(t, limiter.Check(ctx, "alice", "comment_create", limit))

	// An increment failure also allows the request through.
	store.FailNext("Update", errors.New("store down"))
	bigger := auth.Limit{MaxRequests: 5, Window: time.Minute}
	assert.NoError(t, limiter.Check(ctx, "alice", "comment_create", bigger))
}

func TestRateLimiterZeroLimitIsDisabled(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter := newLimiter(store, &now)

	for i := 0; i < 10; i++ {
		assert.NoError(t, limiter.Check(context.Background(), "alice", "anything", auth.Limit{}))
	}
	assert.Equal(t, 0, store.Len())
}

func TestRateLimiterRetryAfterMatchesWindowEnd(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter := newLimiter(store, &now)
	ctx := context.Background()
	limit := auth.Limit{MaxRequests: 1, Window: time.Minute}

	require.NoError(t, limiter.Check(ctx, "alice", "comment_create", limit))

	now = now.Add(40 * time.Second)
	err := limiter.Check(ctx, "alice", "comment_create", limit)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, 20*time.Second, appErr.RetryAfter)
}
