// Package ports declares the interfaces the application core is written
// against: the generic item store over the single table, the external
// object-store collaborator, and the repositories the routing layer calls.
package ports

import (
	"context"

	"famhub-backend/domain/keys"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Query limits. Callers may ask for up to MaxQueryLimit items per page;
// anything else is clamped.
const (
	DefaultQueryLimit = 50
	MaxQueryLimit     = 100
)

// GSI1IndexName is the one secondary index on the table, keyed by
// GSI1PK/GSI1SK.
const GSI1IndexName = "GSI1"

// ConditionKind enumerates the conditional-write checks the store supports.
type ConditionKind int

const (
	// ConditionAttributeExists requires the named attribute to be present.
	ConditionAttributeExists ConditionKind = iota + 1
	// ConditionAttributeNotExists requires the named attribute to be absent,
	// which on a key attribute means "item does not exist".
	ConditionAttributeNotExists
)

// Condition is a conditional-write check. A failed condition surfaces as a
// Conflict error so callers can distinguish it from real failures.
type Condition struct {
	Kind      ConditionKind
	Attribute string
}

// ItemExists is the common "item must exist" condition.
func ItemExists() *Condition {
	return &Condition{Kind: ConditionAttributeExists, Attribute: "PK"}
}

// ItemNotExists is the common "item must not exist" condition used for
// idempotent creation.
func ItemNotExists() *Condition {
	return &Condition{Kind: ConditionAttributeNotExists, Attribute: "PK"}
}

// UpdateInput describes a structured update: SET assignments, ADD counter
// deltas and REMOVE attribute names, plus an optional condition.
type UpdateInput struct {
	Key       keys.Key
	Set       map[string]types.AttributeValue
	Add       map[string]int
	Remove    []string
	Condition *Condition
}

// QueryInput describes a range query within one partition. SortPrefix and
// SortBelow are mutually exclusive; SortBelow is an exclusive upper bound on
// the sort key.
type QueryInput struct {
	Partition  string
	SortPrefix string
	SortBelow  string
	IndexName  string
	Limit      int32
	Cursor     string
	Descending bool
}

// QueryResult is one page of items plus the opaque cursor for the next page.
// An empty NextCursor means the range is exhausted.
type QueryResult struct {
	Items      []map[string]types.AttributeValue
	NextCursor string
}

// TransactPut is a conditional put inside a transaction.
type TransactPut struct {
	Item      map[string]types.AttributeValue
	Condition *Condition
}

// TransactDelete is a conditional delete inside a transaction.
type TransactDelete struct {
	Key       keys.Key
	Condition *Condition
}

// TransactItem is one member of a multi-item conditional transaction.
// Exactly one of the fields is set.
type TransactItem struct {
	Put    *TransactPut
	Update *UpdateInput
	Delete *TransactDelete
}

// ItemStore is the generic get/put/update/delete/query/batch wrapper over
// the backing key-value store. Implementations chunk batch calls to the
// store's per-call limits and encode pagination cursors as opaque tokens.
//
// Get returns (nil, nil) when the item is absent. Conditional failures on
// Put, Update and TransactWrite return Conflict errors.
type ItemStore interface {
	Get(ctx context.Context, key keys.Key) (map[string]types.AttributeValue, error)
	Put(ctx context.Context, item map[string]types.AttributeValue, condition *Condition) error
	Update(ctx context.Context, in UpdateInput) (map[string]types.AttributeValue, error)
	Delete(ctx context.Context, key keys.Key) error
	Query(ctx context.Context, in QueryInput) (*QueryResult, error)
	BatchGet(ctx context.Context, ks []keys.Key) ([]map[string]types.AttributeValue, error)
	BatchWrite(ctx context.Context, puts []map[string]types.AttributeValue, deletes []keys.Key) error
	TransactWrite(ctx context.Context, items []TransactItem) error

	// SupportsTransactWrite reports whether TransactWrite is backed by a
	// native multi-item transaction. When false, callers needing atomicity
	// must fall back to ordered compensating writes.
	SupportsTransactWrite() bool
}

// ObjectStore is the external blob-store collaborator. The core only ever
// deletes by key; uploads and presigning happen elsewhere.
type ObjectStore interface {
	DeleteObject(ctx context.Context, key string) error
}
