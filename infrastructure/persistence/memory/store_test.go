package memory_test

import (
	"context"
	"fmt"
	"testing"

	"famhub-backend/application/ports"
	"famhub-backend/domain/keys"
	"famhub-backend/infrastructure/persistence/memory"
	apperrors "famhub-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(pk, sk string, extra map[string]types.AttributeValue) map[string]types.AttributeValue {
	m := map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

func TestConditionalPut(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, item("A", "1", nil), ports.ItemNotExists()))

	err := store.Put(ctx, item("A", "1", nil), ports.ItemNotExists())
	assert.True(t, apperrors.IsConflict(err))

	require.NoError(t, store.Put(ctx, item("A", "1", nil), ports.ItemExists()))

	err = store.Put(ctx, item("A", "2", nil), ports.ItemExists())
	assert.True(t, apperrors.IsConflict(err))
}

func TestUpdateAddAndRemove(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	key := keys.Key{PK: "A", SK: "1"}

	require.NoError(t, store.Put(ctx, item("A", "1", map[string]types.AttributeValue{
		"Count": &types.AttributeValueMemberN{Value: "2"},
		"Note":  &types.AttributeValueMemberS{Value: "keep"},
		"Junk":  &types.AttributeValueMemberS{Value: "drop"},
	}), nil))

	updated, err := store.Update(ctx, ports.UpdateInput{
		Key:    key,
		Set:    map[string]types.AttributeValue{"Note": &types.AttributeValueMemberS{Value: "kept"}},
		Add:    map[string]int{"Count": 3},
		Remove: []string{"Junk"},
	})
	require.NoError(t, err)

	count := updated["Count"].(*types.AttributeValueMemberN)
	assert.Equal(t, "5", count.Value)
	note := updated["Note"].(*types.AttributeValueMemberS)
	assert.Equal(t, "kept", note.Value)
	_, hasJunk := updated["Junk"]
	assert.False(t, hasJunk)

	_, err = store.Update(ctx, ports.UpdateInput{
		Key:       keys.Key{PK: "A", SK: "missing"},
		Add:       map[string]int{"Count": 1},
		Condition: ports.ItemExists(),
	})
	assert.True(t, apperrors.IsConflict(err))
}

func TestTransactWriteIsAllOrNothing(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	// The second item's condition fails, so the first put must not land.
	err := store.TransactWrite(ctx, []ports.TransactItem{
		{Put: &ports.TransactPut{Item: item("A", "1", nil)}},
		{Update: &ports.UpdateInput{
			Key:       keys.Key{PK: "A", SK: "missing"},
			Add:       map[string]int{"Count": 1},
			Condition: ports.ItemExists(),
		}},
	})
	assert.True(t, apperrors.IsConflict(err))
	assert.Equal(t, 0, store.Len())

	require.NoError(t, store.TransactWrite(ctx, []ports.TransactItem{
		{Put: &ports.TransactPut{Item: item("A", "1", nil)}},
		{Put: &ports.TransactPut{Item: item("A", "2", nil)}},
	}))
	assert.Equal(t, 2, store.Len())
}

func TestQueryPrefixBoundsAndLimits(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Put(ctx, item("A", fmt.Sprintf("M#%d", i), nil), nil))
	}
	require.NoError(t, store.Put(ctx, item("A", "Z#0", nil), nil))
	require.NoError(t, store.Put(ctx, item("B", "M#0", nil), nil))

	result, err := store.Query(ctx, ports.QueryInput{Partition: "A", SortPrefix: "M#"})
	require.NoError(t, err)
	assert.Len(t, result.Items, 5, "prefix excludes other rows, partition excludes other partitions")

	result, err = store.Query(ctx, ports.QueryInput{Partition: "A", SortBelow: "Z#"})
	require.NoError(t, err)
	assert.Len(t, result.Items, 5, "upper bound is exclusive")

	result, err = store.Query(ctx, ports.QueryInput{Partition: "A", SortPrefix: "M#", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
	assert.NotEmpty(t, result.NextCursor)

	result, err = store.Query(ctx, ports.QueryInput{
		Partition:  "A",
		SortPrefix: "M#",
		Limit:      2,
		Cursor:     result.NextCursor,
		Descending: false,
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	sk := result.Items[0]["SK"].(*types.AttributeValueMemberS)
	assert.Equal(t, "M#2", sk.Value)
}

func TestQueryOnSecondaryIndex(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, item("A", "1", map[string]types.AttributeValue{
		"GSI1PK": &types.AttributeValueMemberS{Value: "USER#alice"},
		"GSI1SK": &types.AttributeValueMemberS{Value: "CONVTS#2024-05-01"},
	}), nil))
	require.NoError(t, store.Put(ctx, item("B", "1", map[string]types.AttributeValue{
		"GSI1PK": &types.AttributeValueMemberS{Value: "USER#alice"},
		"GSI1SK": &types.AttributeValueMemberS{Value: "CONVTS#2024-05-03"},
	}), nil))
	require.NoError(t, store.Put(ctx, item("C", "1", nil), nil))

	result, err := store.Query(ctx, ports.QueryInput{
		Partition:  "USER#alice",
		SortPrefix: "CONVTS#",
		IndexName:  "GSI1",
		Descending: true,
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	pk := result.Items[0]["PK"].(*types.AttributeValueMemberS)
	assert.Equal(t, "B", pk.Value, "descending by index sort key")
}

func TestFailureInjectionIsOneShot(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	key := keys.Key{PK: "A", SK: "1"}

	store.FailNext("Get", assert.AnError)
	_, err := store.Get(ctx, key)
	assert.ErrorIs(t, err, assert.AnError)

	_, err = store.Get(ctx, key)
	assert.NoError(t, err)
}
