package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"mystira-backend/internal/repository"
)

// DocumentRepository is the document-store implementation of the generic
// repository contract for one entity type.
type DocumentRepository[T repository.Entity] struct {
	store  *Store
	codec  *Codec[T]
	hook   *PartitionKeyHook
	logger *zap.Logger
}

// NewDocumentRepository creates a repository over the shared store.
func NewDocumentRepository[T repository.Entity](store *Store, codec *Codec[T], hook *PartitionKeyHook) *DocumentRepository[T] {
	return &DocumentRepository[T]{
		store:  store,
		codec:  codec,
		hook:   hook,
		logger: store.logger.Named(codec.EntityType()),
	}
}

// Add persists a new entity. An existing item under the same key is a
// conflict, not an overwrite.
func (r *DocumentRepository[T]) Add(ctx context.Context, entity T) (T, error) {
	var zero T
	item, err := r.codec.ToItem(entity)
	if err != nil {
		return zero, err
	}
	r.hook.Apply(item, r.codec.EntityType())

	cond := expression.Name(attrPK).AttributeNotExists()
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return zero, fmt.Errorf("build condition: %w", err)
	}

	_, err = r.store.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName:                 aws.String(r.store.table),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return zero, repository.NewConflict(r.codec.EntityType(), entity.GetID(), "already exists")
		}
		return zero, fmt.Errorf("put %s: %w", r.codec.EntityType(), err)
	}

	r.logger.Debug("entity added",
		zap.String("entityID", entity.GetID()),
		zap.String("userID", entity.GetUserID()),
	)
	return entity, nil
}

// Update replaces an existing entity. A missing item yields an affected
// count of zero rather than an error, matching the relational side.
func (r *DocumentRepository[T]) Update(ctx context.Context, entity T) (int, error) {
	item, err := r.codec.ToItem(entity)
	if err != nil {
		return 0, err
	}
	r.hook.Apply(item, r.codec.EntityType())

	cond := expression.Name(attrPK).AttributeExists()
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return 0, fmt.Errorf("build condition: %w", err)
	}

	_, err = r.store.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName:                 aws.String(r.store.table),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return 0, nil
		}
		return 0, fmt.Errorf("update %s: %w", r.codec.EntityType(), err)
	}
	return 1, nil
}

// Delete removes an entity, returning how many items were actually removed.
func (r *DocumentRepository[T]) Delete(ctx context.Context, entity T) (int, error) {
	out, err := r.store.client.DeleteItem(ctx, &awsdynamodb.DeleteItemInput{
		TableName:    aws.String(r.store.table),
		Key:          r.codec.Key(entity.GetUserID(), entity.GetID()),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", r.codec.EntityType(), err)
	}
	if len(out.Attributes) == 0 {
		return 0, nil
	}
	return 1, nil
}

// GetByID fetches one entity, returning ErrNotFound when absent.
func (r *DocumentRepository[T]) GetByID(ctx context.Context, userID, id string) (T, error) {
	var zero T
	out, err := r.store.client.GetItem(ctx, &awsdynamodb.GetItemInput{
		TableName: aws.String(r.store.table),
		Key:       r.codec.Key(userID, id),
	})
	if err != nil {
		return zero, fmt.Errorf("get %s: %w", r.codec.EntityType(), err)
	}
	if out.Item == nil {
		return zero, repository.NewNotFound(r.codec.EntityType(), id, userID)
	}
	return r.codec.FromItem(out.Item)
}

// List compiles the specification into a filtered partition query. Sorting
// and pagination happen client-side: the single-table layout only orders by
// sort key, which is not generally the requested sort field.
func (r *DocumentRepository[T]) List(ctx context.Context, userID string, spec repository.Specification) ([]T, error) {
	items, err := r.queryItems(ctx, userID, spec)
	if err != nil {
		return nil, err
	}

	if spec.SortBy != "" {
		sortItems(items, spec.SortBy, spec.SortDescending)
	}
	items = paginate(items, spec.Limit, spec.Offset)

	entities := make([]T, 0, len(items))
	for _, item := range items {
		entity, err := r.codec.FromItem(item)
		if err != nil {
			r.logger.Warn("skipping unparsable item", zap.Error(err))
			continue
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// Count returns the number of entities matching the specification.
func (r *DocumentRepository[T]) Count(ctx context.Context, userID string, spec repository.Specification) (int, error) {
	items, err := r.queryItems(ctx, userID, spec)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (r *DocumentRepository[T]) queryItems(ctx context.Context, userID string, spec repository.Specification) ([]map[string]types.AttributeValue, error) {
	keyCond := expression.Key(attrPK).
		Equal(expression.Value(fmt.Sprintf("USER#%s", userID))).
		And(expression.Key(attrSK).BeginsWith(r.codec.EntityType() + "#"))

	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if cond, ok := compileFilters(spec.Filters); ok {
		builder = builder.WithFilter(cond)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build query expression: %w", err)
	}

	var items []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.store.client.Query(ctx, &awsdynamodb.QueryInput{
			TableName:                 aws.String(r.store.table),
			KeyConditionExpression:    expr.KeyCondition(),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", r.codec.EntityType(), err)
		}
		items = append(items, out.Items...)
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return items, nil
}

// compileFilters turns field filters into a DynamoDB condition. The second
// return value is false when there is nothing to filter on.
func compileFilters(filters []repository.FieldFilter) (expression.ConditionBuilder, bool) {
	var cond expression.ConditionBuilder
	have := false
	for _, f := range filters {
		c := compileFilter(f)
		if !have {
			cond = c
			have = true
			continue
		}
		cond = cond.And(c)
	}
	return cond, have
}

func compileFilter(f repository.FieldFilter) expression.ConditionBuilder {
	name := expression.Name(f.Field)
	switch f.Operator {
	case repository.OperatorNotEquals:
		return name.NotEqual(expression.Value(f.Value))
	case repository.OperatorGreaterThan:
		return name.GreaterThan(expression.Value(f.Value))
	case repository.OperatorGreaterOrEqual:
		return name.GreaterThanEqual(expression.Value(f.Value))
	case repository.OperatorLessThan:
		return name.LessThan(expression.Value(f.Value))
	case repository.OperatorLessOrEqual:
		return name.LessThanEqual(expression.Value(f.Value))
	case repository.OperatorContains:
		return name.Contains(fmt.Sprint(f.Value))
	case repository.OperatorBeginsWith:
		return name.BeginsWith(fmt.Sprint(f.Value))
	default:
		return name.Equal(expression.Value(f.Value))
	}
}

func sortItems(items []map[string]types.AttributeValue, field string, descending bool) {
	sort.SliceStable(items, func(i, j int) bool {
		less := attrLess(items[i][field], items[j][field])
		if descending {
			return attrLess(items[j][field], items[i][field])
		}
		return less
	})
}

func attrLess(a, b types.AttributeValue) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}
	an, aIsNum := a.(*types.AttributeValueMemberN)
	bn, bIsNum := b.(*types.AttributeValueMemberN)
	if aIsNum && bIsNum {
		af, errA := strconv.ParseFloat(an.Value, 64)
		bf, errB := strconv.ParseFloat(bn.Value, 64)
		if errA == nil && errB == nil {
			return af < bf
		}
	}
	as, aIsStr := a.(*types.AttributeValueMemberS)
	bs, bIsStr := b.(*types.AttributeValueMemberS)
	if aIsStr && bIsStr {
		return as.Value < bs.Value
	}
	return false
}

func paginate[E any](items []E, limit, offset int) []E {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
