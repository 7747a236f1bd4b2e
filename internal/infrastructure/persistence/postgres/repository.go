package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"mystira-backend/internal/repository"
)

// uniqueViolation is the SQLSTATE for duplicate-key inserts.
const uniqueViolation = "23505"

// fieldPattern restricts filter and sort fields to plain JSON keys so
// specification compilation can never inject SQL.
var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// RelationalRepository is the Postgres implementation of the generic
// repository contract for one entity type, over the shadow-table layout.
type RelationalRepository[T repository.Entity] struct {
	store      *Store
	entityType string
	logger     *zap.Logger
}

// NewRelationalRepository creates a repository over the shared store.
func NewRelationalRepository[T repository.Entity](store *Store, entityType string) *RelationalRepository[T] {
	return &RelationalRepository[T]{
		store:      store,
		entityType: entityType,
		logger:     store.logger.Named(entityType),
	}
}

// Add inserts a new row; a duplicate key is reported as a conflict.
func (r *RelationalRepository[T]) Add(ctx context.Context, entity T) (T, error) {
	var zero T
	doc, err := json.Marshal(entity)
	if err != nil {
		return zero, fmt.Errorf("marshal %s: %w", r.entityType, err)
	}

	const q = `
		INSERT INTO entities (id, user_id, entity_type, doc, version)
		VALUES ($1, $2, $3, $4, 1)
	`
	_, err = r.store.db.ExecContext(ctx, q, entity.GetID(), entity.GetUserID(), r.entityType, doc)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return zero, repository.NewConflict(r.entityType, entity.GetID(), "already exists")
		}
		return zero, fmt.Errorf("insert %s: %w", r.entityType, err)
	}

	r.logger.Debug("entity added",
		zap.String("entityID", entity.GetID()),
		zap.String("userID", entity.GetUserID()),
	)
	return entity, nil
}

// Update replaces the stored document, returning the affected row count.
func (r *RelationalRepository[T]) Update(ctx context.Context, entity T) (int, error) {
	doc, err := json.Marshal(entity)
	if err != nil {
		return 0, fmt.Errorf("marshal %s: %w", r.entityType, err)
	}

	const q = `
		UPDATE entities
		SET doc = $4, version = version + 1, updated_at = now()
		WHERE entity_type = $1 AND user_id = $2 AND id = $3
	`
	res, err := r.store.db.ExecContext(ctx, q, r.entityType, entity.GetUserID(), entity.GetID(), doc)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", r.entityType, err)
	}
	return affected(res)
}

// Delete removes the row, returning the affected row count.
func (r *RelationalRepository[T]) Delete(ctx context.Context, entity T) (int, error) {
	const q = `
		DELETE FROM entities
		WHERE entity_type = $1 AND user_id = $2 AND id = $3
	`
	res, err := r.store.db.ExecContext(ctx, q, r.entityType, entity.GetUserID(), entity.GetID())
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", r.entityType, err)
	}
	return affected(res)
}

// GetByID fetches one entity, returning ErrNotFound when absent.
func (r *RelationalRepository[T]) GetByID(ctx context.Context, userID, id string) (T, error) {
	var zero T
	const q = `
		SELECT doc FROM entities
		WHERE entity_type = $1 AND user_id = $2 AND id = $3
	`
	var doc []byte
	err := r.store.db.QueryRowContext(ctx, q, r.entityType, userID, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, repository.NewNotFound(r.entityType, id, userID)
	}
	if err != nil {
		return zero, fmt.Errorf("select %s: %w", r.entityType, err)
	}

	var entity T
	if err := json.Unmarshal(doc, &entity); err != nil {
		return zero, fmt.Errorf("unmarshal %s: %w", r.entityType, err)
	}
	return entity, nil
}

// List compiles the specification into a WHERE clause over the JSON document.
func (r *RelationalRepository[T]) List(ctx context.Context, userID string, spec repository.Specification) ([]T, error) {
	query, args, err := r.buildSelect("doc", userID, spec, true)
	if err != nil {
		return nil, err
	}

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.entityType, err)
	}
	defer rows.Close()

	var entities []T
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.entityType, err)
		}
		var entity T
		if err := json.Unmarshal(doc, &entity); err != nil {
			r.logger.Warn("skipping unparsable row", zap.Error(err))
			continue
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

// Count returns the number of entities matching the specification.
func (r *RelationalRepository[T]) Count(ctx context.Context, userID string, spec repository.Specification) (int, error) {
	query, args, err := r.buildSelect("COUNT(*)", userID, spec, false)
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.store.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", r.entityType, err)
	}
	return count, nil
}

func (r *RelationalRepository[T]) buildSelect(projection, userID string, spec repository.Specification, paged bool) (string, []interface{}, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM entities WHERE entity_type = $1 AND user_id = $2", projection)
	args := []interface{}{r.entityType, userID}

	for _, f := range spec.Filters {
		if !fieldPattern.MatchString(f.Field) {
			return "", nil, fmt.Errorf("invalid filter field: %q", f.Field)
		}
		frag, arg, err := renderFilter(f, len(args)+1)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" AND ")
		sb.WriteString(frag)
		args = append(args, arg)
	}

	if paged {
		if spec.SortBy != "" {
			if !fieldPattern.MatchString(spec.SortBy) {
				return "", nil, fmt.Errorf("invalid sort field: %q", spec.SortBy)
			}
			fmt.Fprintf(&sb, " ORDER BY doc->>'%s'", spec.SortBy)
			if spec.SortDescending {
				sb.WriteString(" DESC")
			}
		}
		if spec.Limit > 0 {
			fmt.Fprintf(&sb, " LIMIT %d", spec.Limit)
		}
		if spec.Offset > 0 {
			fmt.Fprintf(&sb, " OFFSET %d", spec.Offset)
		}
	}

	return sb.String(), args, nil
}

func renderFilter(f repository.FieldFilter, placeholder int) (string, interface{}, error) {
	accessor := fmt.Sprintf("doc->>'%s'", f.Field)
	if isNumeric(f.Value) {
		accessor = fmt.Sprintf("(doc->>'%s')::numeric", f.Field)
	}

	switch f.Operator {
	case repository.OperatorEquals:
		return fmt.Sprintf("%s = $%d", accessor, placeholder), f.Value, nil
	case repository.OperatorNotEquals:
		return fmt.Sprintf("%s <> $%d", accessor, placeholder), f.Value, nil
	case repository.OperatorGreaterThan:
		return fmt.Sprintf("%s > $%d", accessor, placeholder), f.Value, nil
	case repository.OperatorGreaterOrEqual:
		return fmt.Sprintf("%s >= $%d", accessor, placeholder), f.Value, nil
	case repository.OperatorLessThan:
		return fmt.Sprintf("%s < $%d", accessor, placeholder), f.Value, nil
	case repository.OperatorLessOrEqual:
		return fmt.Sprintf("%s <= $%d", accessor, placeholder), f.Value, nil
	case repository.OperatorContains:
		return fmt.Sprintf("doc->>'%s' LIKE $%d", f.Field, placeholder), "%" + fmt.Sprint(f.Value) + "%", nil
	case repository.OperatorBeginsWith:
		return fmt.Sprintf("doc->>'%s' LIKE $%d", f.Field, placeholder), fmt.Sprint(f.Value) + "%", nil
	default:
		return "", nil, fmt.Errorf("unsupported filter operator: %q", f.Operator)
	}
}

func isNumeric(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	default:
		return false
	}
}

func affected(res sql.Result) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}
