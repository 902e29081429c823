// Package memory implements ports.ItemStore on in-process maps. It mirrors
// the single-table semantics the DynamoDB store provides, including
// conditional writes, index queries and cursor pagination, so services can be
// tested without a live table. It also supports failure injection and
// toggling native transaction support.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"famhub-backend/application/ports"
	"famhub-backend/domain/keys"
	apperrors "famhub-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Store is the in-memory implementation of ports.ItemStore.
type Store struct {
	mu           sync.Mutex
	partitions   map[string]map[string]map[string]types.AttributeValue
	transactable bool
	failures     map[string]error
}

// NewStore creates an empty store with native transaction support enabled.
func NewStore() *Store {
	return &Store{
		partitions:   make(map[string]map[string]map[string]types.AttributeValue),
		transactable: true,
		failures:     make(map[string]error),
	}
}

// SetTransactWrite toggles whether TransactWrite is reported as natively
// supported, forcing callers onto their compensating-write fallbacks.
func (s *Store) SetTransactWrite(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactable = enabled
}

// FailNext arranges for the next call of the named operation (Get, Put,
// Update, Delete, Query, BatchGet, BatchWrite, TransactWrite) to fail with
// err.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// Len reports the number of stored items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.partitions {
		n += len(p)
	}
	return n
}

func (s *Store) takeFailure(op string) error {
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return err
	}
	return nil
}

// SupportsTransactWrite reports the configured transaction capability.
func (s *Store) SupportsTransactWrite() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transactable
}

// Get returns a copy of the stored item, or (nil, nil) when absent.
func (s *Store) Get(ctx context.Context, key keys.Key) (map[string]types.AttributeValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("Get"); err != nil {
		return nil, err
	}

	item, ok := s.partitions[key.PK][key.SK]
	if !ok {
		return nil, nil
	}
	return copyItem(item), nil
}

// Put stores a copy of the item after checking the condition.
func (s *Store) Put(ctx context.Context, item map[string]types.AttributeValue, condition *ports.Condition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("Put"); err != nil {
		return err
	}

	pk, sk, err := itemKey(item)
	if err != nil {
		return err
	}
	if err := s.checkCondition(pk, sk, condition); err != nil {
		return err
	}
	s.putLocked(pk, sk, item)
	return nil
}

// Update applies SET/ADD/REMOVE mutations, creating the item when absent and
// unconditioned, and returns the new image.
func (s *Store) Update(ctx context.Context, in ports.UpdateInput) (map[string]types.AttributeValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("Update"); err != nil {
		return nil, err
	}

	if err := s.checkCondition(in.Key.PK, in.Key.SK, in.Condition); err != nil {
		return nil, err
	}
	updated, err := s.applyUpdateLocked(in)
	if err != nil {
		return nil, err
	}
	return copyItem(updated), nil
}

// Delete removes the item. Deleting an absent item is not an error.
func (s *Store) Delete(ctx context.Context, key keys.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("Delete"); err != nil {
		return err
	}

	if p, ok := s.partitions[key.PK]; ok {
		delete(p, key.SK)
		if len(p) == 0 {
			delete(s.partitions, key.PK)
		}
	}
	return nil
}

// Query runs a single-partition range query with the same limit clamping and
// cursor format as the table-backed store.
func (s *Store) Query(ctx context.Context, in ports.QueryInput) (*ports.QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("Query"); err != nil {
		return nil, err
	}

	pkAttr, skAttr := indexKeyAttributes(in.IndexName)
	lastKeys, err := ports.DecodeCursor(in.Cursor)
	if err != nil {
		return nil, err
	}

	type row struct {
		sortValue string
		item      map[string]types.AttributeValue
	}
	var rows []row
	for _, p := range s.partitions {
		for _, item := range p {
			pv, ok := stringAttr(item, pkAttr)
			if !ok || pv != in.Partition {
				continue
			}
			sv, ok := stringAttr(item, skAttr)
			if !ok {
				continue
			}
			if in.SortPrefix != "" && !hasPrefix(sv, in.SortPrefix) {
				continue
			}
			if in.SortBelow != "" && sv >= in.SortBelow {
				continue
			}
			rows = append(rows, row{sortValue: sv, item: item})
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if in.Descending {
			return rows[i].sortValue > rows[j].sortValue
		}
		return rows[i].sortValue < rows[j].sortValue
	})

	if cursorSort, ok := lastKeys[skAttr]; ok {
		skip := 0
		for skip < len(rows) {
			sv := rows[skip].sortValue
			if (in.Descending && sv < cursorSort) || (!in.Descending && sv > cursorSort) {
				break
			}
			skip++
		}
		rows = rows[skip:]
	}

	limit := int(clampLimit(in.Limit))
	result := &ports.QueryResult{}
	for i, r := range rows {
		if i == limit {
			break
		}
		result.Items = append(result.Items, copyItem(r.item))
	}

	if len(rows) > limit {
		last := rows[limit-1].item
		cursorKeys := map[string]string{}
		for _, attr := range []string{"PK", "SK", pkAttr, skAttr} {
			if v, ok := stringAttr(last, attr); ok {
				cursorKeys[attr] = v
			}
		}
		result.NextCursor = ports.EncodeCursor(cursorKeys)
	}
	return result, nil
}

// BatchGet returns the items that exist among the requested keys.
func (s *Store) BatchGet(ctx context.Context, ks []keys.Key) ([]map[string]types.AttributeValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("BatchGet"); err != nil {
		return nil, err
	}

	var items []map[string]types.AttributeValue
	for _, k := range ks {
		if item, ok := s.partitions[k.PK][k.SK]; ok {
			items = append(items, copyItem(item))
		}
	}
	return items, nil
}

// BatchWrite applies all puts then all deletes, unconditionally.
func (s *Store) BatchWrite(ctx context.Context, puts []map[string]types.AttributeValue, deletes []keys.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("BatchWrite"); err != nil {
		return err
	}

	for _, item := range puts {
		pk, sk, err := itemKey(item)
		if err != nil {
			return err
		}
		s.putLocked(pk, sk, item)
	}
	for _, k := range deletes {
		if p, ok := s.partitions[k.PK]; ok {
			delete(p, k.SK)
		}
	}
	return nil
}

// TransactWrite checks every condition first, then applies every write, so
// the whole batch either lands or fails like the real transaction would.
func (s *Store) TransactWrite(ctx context.Context, items []ports.TransactItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("TransactWrite"); err != nil {
		return err
	}
	if !s.transactable {
		return apperrors.NewInternalError("transactions not supported")
	}

	for _, it := range items {
		switch {
		case it.Put != nil:
			pk, sk, err := itemKey(it.Put.Item)
			if err != nil {
				return err
			}
			if err := s.checkCondition(pk, sk, it.Put.Condition); err != nil {
				return err
			}
		case it.Update != nil:
			if err := s.checkCondition(it.Update.Key.PK, it.Update.Key.SK, it.Update.Condition); err != nil {
				return err
			}
		case it.Delete != nil:
			if err := s.checkCondition(it.Delete.Key.PK, it.Delete.Key.SK, it.Delete.Condition); err != nil {
				return err
			}
		default:
			return apperrors.NewInternalError("empty transact item")
		}
	}

	for _, it := range items {
		switch {
		case it.Put != nil:
			pk, sk, _ := itemKey(it.Put.Item)
			s.putLocked(pk, sk, it.Put.Item)
		case it.Update != nil:
			if _, err := s.applyUpdateLocked(*it.Update); err != nil {
				return err
			}
		case it.Delete != nil:
			if p, ok := s.partitions[it.Delete.Key.PK]; ok {
				delete(p, it.Delete.Key.SK)
			}
		}
	}
	return nil
}

func (s *Store) putLocked(pk, sk string, item map[string]types.AttributeValue) {
	p, ok := s.partitions[pk]
	if !ok {
		p = make(map[string]map[string]types.AttributeValue)
		s.partitions[pk] = p
	}
	p[sk] = copyItem(item)
}

func (s *Store) checkCondition(pk, sk string, c *ports.Condition) error {
	if c == nil {
		return nil
	}

	item := s.partitions[pk][sk]
	_, present := item[c.Attribute]
	switch c.Kind {
	case ports.ConditionAttributeExists:
		if !present {
			return apperrors.NewConflictError("item state changed concurrently")
		}
	case ports.ConditionAttributeNotExists:
		if present {
			return apperrors.NewConflictError("item state changed concurrently")
		}
	}
	return nil
}

func (s *Store) applyUpdateLocked(in ports.UpdateInput) (map[string]types.AttributeValue, error) {
	item, ok := s.partitions[in.Key.PK][in.Key.SK]
	if !ok {
		item = map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: in.Key.PK},
			"SK": &types.AttributeValueMemberS{Value: in.Key.SK},
		}
	} else {
		item = copyItem(item)
	}

	for attr, av := range in.Set {
		item[attr] = av
	}
	for attr, delta := range in.Add {
		current := 0
		if n, ok := item[attr].(*types.AttributeValueMemberN); ok {
			parsed, err := strconv.Atoi(n.Value)
			if err != nil {
				return nil, apperrors.NewInternalError("non-numeric attribute in ADD").WithCause(err)
			}
			current = parsed
		}
		item[attr] = &types.AttributeValueMemberN{Value: strconv.Itoa(current + delta)}
	}
	for _, attr := range in.Remove {
		delete(item, attr)
	}

	s.putLocked(in.Key.PK, in.Key.SK, item)
	return item, nil
}

func indexKeyAttributes(indexName string) (pkAttr, skAttr string) {
	if indexName == ports.GSI1IndexName {
		return "GSI1PK", "GSI1SK"
	}
	return "PK", "SK"
}

func clampLimit(limit int32) int32 {
	if limit <= 0 {
		return ports.DefaultQueryLimit
	}
	if limit > ports.MaxQueryLimit {
		return ports.MaxQueryLimit
	}
	return limit
}

func itemKey(item map[string]types.AttributeValue) (pk, sk string, err error) {
	pk, okPK := stringAttr(item, "PK")
	sk, okSK := stringAttr(item, "SK")
	if !okPK || !okSK {
		return "", "", apperrors.NewInternalError("item missing key attributes")
	}
	return pk, sk, nil
}

func stringAttr(item map[string]types.AttributeValue, name string) (string, bool) {
	v, ok := item[name].(*types.AttributeValueMemberS)
	if !ok {
		return "", false
	}
	return v.Value, true
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
