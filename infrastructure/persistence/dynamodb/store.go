// Package dynamodb implements the generic item store over a single DynamoDB
// table. All key formats come from domain/keys; this package only translates
// structured store operations into DynamoDB calls, chunks batch requests to
// the service limits and maps conditional failures to conflict errors.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"famhub-backend/application/ports"
	"famhub-backend/domain/keys"
	apperrors "famhub-backend/pkg/errors"
	"famhub-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// DynamoDB per-call batch limits.
const (
	batchGetLimit   = 100
	batchWriteLimit = 25
	batchAttempts   = 5
)

// Store is the DynamoDB implementation of ports.ItemStore.
type Store struct {
	client    *awsdynamodb.Client
	tableName string
	tracer    *observability.Tracer
	logger    *zap.Logger
}

// NewStore creates a Store bound to one table.
func NewStore(client *awsdynamodb.Client, tableName string, tracer *observability.Tracer, logger *zap.Logger) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		tracer:    tracer,
		logger:    logger.Named("dynamodb"),
	}
}

// SupportsTransactWrite reports that TransactWriteItems is available.
func (s *Store) SupportsTransactWrite() bool {
	return true
}

// Get fetches one item by primary key, returning (nil, nil) when absent.
func (s *Store) Get(ctx context.Context, key keys.Key) (map[string]types.AttributeValue, error) {
	var item map[string]types.AttributeValue
	err := s.tracer.Capture(ctx, "dynamodb.Get", func(ctx context.Context) error {
		out, err := s.client.GetItem(ctx, &awsdynamodb.GetItemInput{
			TableName: aws.String(s.tableName),
			Key:       keyAttributes(key),
		})
		if err != nil {
			return apperrors.Wrapf(err, "failed to get item %s", key)
		}
		if len(out.Item) > 0 {
			item = out.Item
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Put writes one item, optionally guarded by a condition.
func (s *Store) Put(ctx context.Context, item map[string]types.AttributeValue, condition *ports.Condition) error {
	return s.tracer.Capture(ctx, "dynamodb.Put", func(ctx context.Context) error {
		input := &awsdynamodb.PutItemInput{
			TableName: aws.String(s.tableName),
			Item:      item,
		}
		if condition != nil {
			names := map[string]string{}
			input.ConditionExpression = conditionClause(condition, names)
			input.ExpressionAttributeNames = names
		}

		if _, err := s.client.PutItem(ctx, input); err != nil {
			if isConditionalCheckFailed(err) {
				return apperrors.NewConflictError("item state changed concurrently").WithCause(err)
			}
			return apperrors.Wrap(err, "failed to put item")
		}
		return nil
	})
}

// Update applies a structured SET/ADD/REMOVE mutation and returns the new
// item image.
func (s *Store) Update(ctx context.Context, in ports.UpdateInput) (map[string]types.AttributeValue, error) {
	exprStr, names, values, err := buildUpdateExpression(in)
	if err != nil {
		return nil, err
	}

	var updated map[string]types.AttributeValue
	err = s.tracer.Capture(ctx, "dynamodb.Update", func(ctx context.Context) error {
		input := &awsdynamodb.UpdateItemInput{
			TableName:                aws.String(s.tableName),
			Key:                      keyAttributes(in.Key),
			UpdateExpression:         aws.String(exprStr),
			ExpressionAttributeNames: names,
			ReturnValues:             types.ReturnValueAllNew,
		}
		if len(values) > 0 {
			input.ExpressionAttributeValues = values
		}
		if cond := conditionClause(in.Condition, names); cond != nil {
			input.ConditionExpression = cond
		}

		out, err := s.client.UpdateItem(ctx, input)
		if err != nil {
			if isConditionalCheckFailed(err) {
				return apperrors.NewConflictError("item state changed concurrently").WithCause(err)
			}
			return apperrors.Wrapf(err, "failed to update item %s", in.Key)
		}
		updated = out.Attributes
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes one item by primary key. Deleting an absent item is not an
// error.
func (s *Store) Delete(ctx context.Context, key keys.Key) error {
	return s.tracer.Capture(ctx, "dynamodb.Delete", func(ctx context.Context) error {
		_, err := s.client.DeleteItem(ctx, &awsdynamodb.DeleteItemInput{
			TableName: aws.String(s.tableName),
			Key:       keyAttributes(key),
		})
		if err != nil {
			return apperrors.Wrapf(err, "failed to delete item %s", key)
		}
		return nil
	})
}

// Query runs a single-partition range query with cursor pagination.
func (s *Store) Query(ctx context.Context, in ports.QueryInput) (*ports.QueryResult, error) {
	pkAttr, skAttr := indexKeyAttributes(in.IndexName)

	keyCond := expression.Key(pkAttr).Equal(expression.Value(in.Partition))
	switch {
	case in.SortPrefix != "":
		keyCond = keyCond.And(expression.Key(skAttr).BeginsWith(in.SortPrefix))
	case in.SortBelow != "":
		keyCond = keyCond.And(expression.Key(skAttr).LessThan(expression.Value(in.SortBelow)))
	}

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build query expression")
	}

	startKey, err := decodeStartKey(in.Cursor)
	if err != nil {
		return nil, err
	}

	input := &awsdynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(clampLimit(in.Limit)),
		ScanIndexForward:          aws.Bool(!in.Descending),
		ExclusiveStartKey:         startKey,
	}
	if in.IndexName != "" {
		input.IndexName = aws.String(in.IndexName)
	}

	var result *ports.QueryResult
	err = s.tracer.Capture(ctx, "dynamodb.Query", func(ctx context.Context) error {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return apperrors.Wrapf(err, "failed to query partition %s", in.Partition)
		}
		result = &ports.QueryResult{
			Items:      out.Items,
			NextCursor: s.encodeLastKey(out.LastEvaluatedKey),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// BatchGet fetches up to batchGetLimit keys per call, retrying unprocessed
// keys. Absent keys simply produce no item.
func (s *Store) BatchGet(ctx context.Context, ks []keys.Key) ([]map[string]types.AttributeValue, error) {
	if len(ks) == 0 {
		return nil, nil
	}

	var items []map[string]types.AttributeValue
	err := s.tracer.Capture(ctx, "dynamodb.BatchGet", func(ctx context.Context) error {
		for start := 0; start < len(ks); start += batchGetLimit {
			end := start + batchGetLimit
			if end > len(ks) {
				end = len(ks)
			}

			pending := make([]map[string]types.AttributeValue, 0, end-start)
			for _, k := range ks[start:end] {
				pending = append(pending, keyAttributes(k))
			}

			for attempt := 0; len(pending) > 0; attempt++ {
				if attempt >= batchAttempts {
					return apperrors.NewInternalError("batch get left unprocessed keys after retries")
				}

				out, err := s.client.BatchGetItem(ctx, &awsdynamodb.BatchGetItemInput{
					RequestItems: map[string]types.KeysAndAttributes{
						s.tableName: {Keys: pending},
					},
				})
				if err != nil {
					return apperrors.Wrap(err, "failed to batch get items")
				}

				items = append(items, out.Responses[s.tableName]...)
				pending = out.UnprocessedKeys[s.tableName].Keys
				if len(pending) > 0 {
					s.logger.Warn("retrying unprocessed batch get keys",
						zap.Int("remaining", len(pending)))
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// BatchWrite applies puts and deletes in batchWriteLimit-sized chunks,
// retrying unprocessed requests. Batch writes are unconditional.
func (s *Store) BatchWrite(ctx context.Context, puts []map[string]types.AttributeValue, deletes []keys.Key) error {
	requests := make([]types.WriteRequest, 0, len(puts)+len(deletes))
	for _, item := range puts {
		requests = append(requests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}
	for _, k := range deletes {
		requests = append(requests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: keyAttributes(k)},
		})
	}
	if len(requests) == 0 {
		return nil
	}

	return s.tracer.Capture(ctx, "dynamodb.BatchWrite", func(ctx context.Context) error {
		for start := 0; start < len(requests); start += batchWriteLimit {
			end := start + batchWriteLimit
			if end > len(requests) {
				end = len(requests)
			}

			pending := requests[start:end]
			for attempt := 0; len(pending) > 0; attempt++ {
				if attempt >= batchAttempts {
					return apperrors.NewInternalError("batch write left unprocessed requests after retries")
				}

				out, err := s.client.BatchWriteItem(ctx, &awsdynamodb.BatchWriteItemInput{
					RequestItems: map[string][]types.WriteRequest{
						s.tableName: pending,
					},
				})
				if err != nil {
					return apperrors.Wrap(err, "failed to batch write items")
				}

				pending = out.UnprocessedItems[s.tableName]
				if len(pending) > 0 {
					s.logger.Warn("retrying unprocessed batch write requests",
						zap.Int("remaining", len(pending)))
				}
			}
		}
		return nil
	})
}

// TransactWrite applies up to 100 conditional puts, updates and deletes
// atomically. Any failed condition cancels the whole transaction and
// surfaces as a conflict.
func (s *Store) TransactWrite(ctx context.Context, items []ports.TransactItem) error {
	if len(items) == 0 {
		return nil
	}

	writes := make([]types.TransactWriteItem, 0, len(items))
	for _, it := range items {
		switch {
		case it.Put != nil:
			put := &types.Put{
				TableName: aws.String(s.tableName),
				Item:      it.Put.Item,
			}
			if it.Put.Condition != nil {
				names := map[string]string{}
				put.ConditionExpression = conditionClause(it.Put.Condition, names)
				put.ExpressionAttributeNames = names
			}
			writes = append(writes, types.TransactWriteItem{Put: put})

		case it.Update != nil:
			exprStr, names, values, err := buildUpdateExpression(*it.Update)
			if err != nil {
				return err
			}
			upd := &types.Update{
				TableName:                aws.String(s.tableName),
				Key:                      keyAttributes(it.Update.Key),
				UpdateExpression:         aws.String(exprStr),
				ExpressionAttributeNames: names,
			}
			if len(values) > 0 {
				upd.ExpressionAttributeValues = values
			}
			if cond := conditionClause(it.Update.Condition, names); cond != nil {
				upd.ConditionExpression = cond
			}
			writes = append(writes, types.TransactWriteItem{Update: upd})

		case it.Delete != nil:
			del := &types.Delete{
				TableName: aws.String(s.tableName),
				Key:       keyAttributes(it.Delete.Key),
			}
			if it.Delete.Condition != nil {
				names := map[string]string{}
				del.ConditionExpression = conditionClause(it.Delete.Condition, names)
				del.ExpressionAttributeNames = names
			}
			writes = append(writes, types.TransactWriteItem{Delete: del})

		default:
			return apperrors.NewInternalError("empty transact item")
		}
	}

	return s.tracer.Capture(ctx, "dynamodb.TransactWrite", func(ctx context.Context) error {
		_, err := s.client.TransactWriteItems(ctx, &awsdynamodb.TransactWriteItemsInput{
			TransactItems: writes,
		})
		if err != nil {
			if isTransactionConditionFailure(err) {
				return apperrors.NewConflictError("transaction condition failed").WithCause(err)
			}
			return apperrors.Wrap(err, "failed to write transaction")
		}
		return nil
	})
}

func keyAttributes(k keys.Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: k.PK},
		"SK": &types.AttributeValueMemberS{Value: k.SK},
	}
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

// conditionClause renders a conditional-write check, registering its
// attribute name alias into names.
func conditionClause(c *ports.Condition, names map[string]string) *string {
	if c == nil {
		return nil
	}
	names["#cond"] = c.Attribute
	switch c.Kind {
	case ports.ConditionAttributeExists:
		return aws.String("attribute_exists(#cond)")
	case ports.ConditionAttributeNotExists:
		return aws.String("attribute_not_exists(#cond)")
	}
	return nil
}

// buildUpdateExpression renders the SET/ADD/REMOVE clauses of a structured
// update with aliased names and values.
func buildUpdateExpression(in ports.UpdateInput) (string, map[string]string, map[string]types.AttributeValue, error) {
	if len(in.Set) == 0 && len(in.Add) == 0 && len(in.Remove) == 0 {
		return "", nil, nil, apperrors.NewInternalError("update without mutations")
	}

	names := map[string]string{}
	values := map[string]types.AttributeValue{}
	var clauses []string

	if len(in.Set) > 0 {
		parts := make([]string, 0, len(in.Set))
		i := 0
		for attr, av := range in.Set {
			name := fmt.Sprintf("#s%d", i)
			value := fmt.Sprintf(":s%d", i)
			names[name] = attr
			values[value] = av
			parts = append(parts, name+" = "+value)
			i++
		}
		clauses = append(clauses, "SET "+strings.Join(parts, ", "))
	}

	if len(in.Add) > 0 {
		parts := make([]string, 0, len(in.Add))
		i := 0
		for attr, delta := range in.Add {
			name := fmt.Sprintf("#a%d", i)
			value := fmt.Sprintf(":a%d", i)
			names[name] = attr
			values[value] = &types.AttributeValueMemberN{Value: strconv.Itoa(delta)}
			parts = append(parts, name+" "+value)
			i++
		}
		clauses = append(clauses, "ADD "+strings.Join(parts, ", "))
	}

	if len(in.Remove) > 0 {
		parts := make([]string, 0, len(in.Remove))
		for i, attr := range in.Remove {
			name := fmt.Sprintf("#r%d", i)
			names[name] = attr
			parts = append(parts, name)
		}
		clauses = append(clauses, "REMOVE "+strings.Join(parts, ", "))
	}

	return strings.Join(clauses, " "), names, values, nil
}

// decodeStartKey turns an opaque cursor into an exclusive start key. All key
// attributes on this table are strings.
func decodeStartKey(cursor string) (map[string]types.AttributeValue, error) {
	lastKeys, err := ports.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	if len(lastKeys) == 0 {
		return nil, nil
	}

	start := make(map[string]types.AttributeValue, len(lastKeys))
	for attr, value := range lastKeys {
		start[attr] = &types.AttributeValueMemberS{Value: value}
	}
	return start, nil
}

func (s *Store) encodeLastKey(lastKey map[string]types.AttributeValue) string {
	if len(lastKey) == 0 {
		return ""
	}

	m := make(map[string]string, len(lastKey))
	for attr, av := range lastKey {
		sv, ok := av.(*types.AttributeValueMemberS)
		if !ok {
			s.logger.Warn("non-string attribute in last evaluated key", zap.String("attribute", attr))
			return ""
		}
		m[attr] = sv.Value
	}
	return ports.EncodeCursor(m)
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func isTransactionConditionFailure(err error) bool {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return false
	}
	for _, reason := range tce.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}
