package services_test

import (
	"context"
	"testing"

	"famhub-backend/application/ports"
	"famhub-backend/application/services"
	"famhub-backend/infrastructure/persistence/memory"
	apperrors "famhub-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLetterService(store *memory.Store) *services.LetterService {
	return services.NewLetterService(store, zap.NewNop()).WithClock(testClock(testStart))
}

func TestUpdateLetterSnapshotsPriorState(t *testing.T) {
	store := memory.NewStore()
	svc := newLetterService(store)
	ctx := context.Background()

	letter, err := svc.UpdateLetter(ctx, "alice", "2024-05-01", "May letter", "first draft", "")
	require.NoError(t, err)
	assert.Equal(t, 0, letter.VersionCount)

	versions, err := svc.ListVersions(ctx, "2024-05-01", ports.PageOptions{})
	require.NoError(t, err)
	assert.Empty(t, versions.Versions, "the first write has nothing to snapshot")

	letter, err = svc.UpdateLetter(ctx, "bob", "2024-05-01", "May letter", "second draft", "")
	require.NoError(t, err)
	assert.Equal(t, 1, letter.VersionCount)
	assert.Equal(t, "bob", letter.LastEditedBy)

	versions, err = svc.ListVersions(ctx, "2024-05-01", ports.PageOptions{})
	require.NoError(t, err)
	require.Len(t, versions.Versions, 1)
	assert.Equal(t, "first draft", versions.Versions[0].Content)
	assert.Equal(t, "alice", versions.Versions[0].EditedBy)
	assert.Equal(t, 0, versions.Versions[0].Version)
}

func TestRevertSnapshotsAndRestores(t *testing.T) {
	store := memory.NewStore()
	svc := newLetterService(store)
	ctx := context.Background()

	_, err := svc.UpdateLetter(ctx, "alice", "2024-05-01", "May letter", "original", "")
	require.NoError(t, err)
	_, err = svc.UpdateLetter(ctx, "bob", "2024-05-01", "May letter", "rewritten", "")
	require.NoError(t, err)

	versions, err := svc.ListVersions(ctx, "2024-05-01", ports.PageOptions{})
	require.NoError(t, err)
	require.Len(t, versions.Versions, 1)
	originalSnapshot := versions.Versions[0]

	letter, err := svc.RevertToVersion(ctx, "carol", "2024-05-01", originalSnapshot.SK)
	require.NoError(t, err)
	assert.Equal(t, "original", letter.Content)
	assert.Equal(t, 2, letter.VersionCount)
	assert.Equal(t, "carol", letter.LastEditedBy)

	// The revert recorded the pre-revert state as one more version, so the
	// revert itself can be undone.
	versions, err = svc.ListVersions(ctx, "2024-05-01", ports.PageOptions{})
	require.NoError(t, err)
	require.Len(t, versions.Versions, 2)
	assert.Equal(t, "rewritten", versions.Versions[0].Content)
	assert.Equal(t, 1, versions.Versions[0].Version)
	assert.Equal(t, "original", versions.Versions[1].Content)
}

func TestListVersionsNewestFirstWithPagination(t *testing.T) {
	store := memory.NewStore()
	svc := newLetterService(store)
	ctx := context.Background()

	contents := []string{"v0", "v1", "v2", "v3", "v4"}
	for _, content := range contents {
		_, err := svc.UpdateLetter(ctx, "alice", "2024-05-01", "t", content, "")
		require.NoError(t, err)
	}

	var walked []string
	cursor := ""
	for {
		page, err := svc.ListVersions(ctx, "2024-05-01", ports.PageOptions{Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		for _, v := range page.Versions {
			walked = append(walked, v.Content)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	assert.Equal(t, []string{"v3", "v2", "v1", "v0"}, walked)
}

func TestVersionCountIsMonotonic(t *testing.T) {
	store := memory.NewStore()
	svc := newLetterService(store)
	ctx := context.Background()

	last := -1
	for _, content := range []string{"a", "b", "c"} {
		letter, err := svc.UpdateLetter(ctx, "alice", "2024-05-01", "t", content, "")
		require.NoError(t, err)
		assert.Greater(t, letter.VersionCount, last)
		last = letter.VersionCount
	}

	versions, err := svc.ListVersions(ctx, "2024-05-01", ports.PageOptions{})
	require.NoError(t, err)
	letter, err := svc.RevertToVersion(ctx, "alice", "2024-05-01", versions.Versions[0].SK)
	require.NoError(t, err)
	assert.Greater(t, letter.VersionCount, last)
}

func TestRevertValidation(t *testing.T) {
	store := memory.NewStore()
	svc := newLetterService(store)
	ctx := context.Background()

	_, err := svc.RevertToVersion(ctx, "alice", "2024-05-01", "not-a-version-key")
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.RevertToVersion(ctx, "alice", "2024-05-01", "VERSION#2024-05-01T00:00:00.000Z")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGetLetterMissing(t *testing.T) {
	svc := newLetterService(memory.NewStore())

	_, err := svc.GetLetter(context.Background(), "2030-01-01")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestLetterWorksWithoutTransactions(t *testing.T) {
	store := memory.NewStore()
	store.SetTransactWrite(false)
	svc := newLetterService(store)
	ctx := context.Background()

	_, err := svc.UpdateLetter(ctx, "alice", "2024-05-01", "t", "one", "")
	require.NoError(t, err)
	letter, err := svc.UpdateLetter(ctx, "alice", "2024-05-01", "t", "two", "")
	require.NoError(t, err)
	assert.Equal(t, 1, letter.VersionCount)

	versions, err := svc.ListVersions(ctx, "2024-05-01", ports.PageOptions{})
	require.NoError(t, err)
	require.Len(t, versions.Versions, 1)
	assert.Equal(t, "one", versions.Versions[0].Content)
}
