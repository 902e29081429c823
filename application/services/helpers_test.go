package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"famhub-backend/domain/keys"
	"famhub-backend/domain/model"
	"famhub-backend/infrastructure/persistence/memory"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/stretchr/testify/require"
)

// testClock returns a deterministic time source that advances one second per
// call, so timestamp-embedding sort keys never collide within a test.
func testClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

// testIDs returns a deterministic id source.
func testIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("00000000-0000-0000-0000-%012d", n)
	}
}

var testStart = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeObjectStore struct {
	mu      sync.Mutex
	deleted []string
	err     error
}

func (f *fakeObjectStore) DeleteObject(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeObjectStore) deletedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func getMembership(t *testing.T, store *memory.Store, userID, conversationID string) *model.ConversationMembership {
	t.Helper()
	item, err := store.Get(context.Background(), keys.MembershipKey(userID, conversationID))
	require.NoError(t, err)
	require.NotNil(t, item, "membership for %s in %s", userID, conversationID)

	var membership model.ConversationMembership
	require.NoError(t, attributevalue.UnmarshalMap(item, &membership))
	return &membership
}

func putProfile(t *testing.T, store *memory.Store, userID, displayName string) {
	t.Helper()
	key := keys.UserProfileKey(userID)
	item, err := attributevalue.MarshalMap(model.UserProfile{
		PK:          key.PK,
		SK:          key.SK,
		EntityType:  model.EntityTypeUserProfile,
		UserID:      userID,
		DisplayName: displayName,
		Status:      model.ProfileStatusActive,
		CreatedAt:   testStart,
		UpdatedAt:   testStart,
	})
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), item, nil))
}
