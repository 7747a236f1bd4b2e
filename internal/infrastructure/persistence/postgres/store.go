// Package postgres implements the relational side of the data layer. During
// the migration entities land in a shadow-table layout that stores the
// canonical JSON document per row, so one schema serves every entity type.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Registers the pgx driver under database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// Schema is the shadow-table layout the migration writes into.
const Schema = `
CREATE TABLE IF NOT EXISTS entities (
    id          TEXT        NOT NULL,
    user_id     TEXT        NOT NULL,
    entity_type TEXT        NOT NULL,
    doc         JSONB       NOT NULL,
    version     INTEGER     NOT NULL DEFAULT 1,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (entity_type, user_id, id)
);
CREATE INDEX IF NOT EXISTS entities_user_idx ON entities (user_id, entity_type);
`

// Store wraps the relational database handle shared by all repositories.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open connects to Postgres through the pgx stdlib driver.
func Open(dsn string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewStore(db, logger), nil
}

// NewStore wraps an existing handle. Tests inject a mocked handle here.
func NewStore(db *sql.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger.Named("postgres")}
}

// ConfigurePool applies connection pool limits.
func (s *Store) ConfigurePool(maxOpen, maxIdle int, maxLifetime time.Duration) {
	s.db.SetMaxOpenConns(maxOpen)
	s.db.SetMaxIdleConns(maxIdle)
	s.db.SetConnMaxLifetime(maxLifetime)
}

// EnsureSchema creates the shadow table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Ping verifies connectivity for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}
