package polyglot

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	// Registers the cgo-free sqlite driver under database/sql.
	_ "modernc.org/sqlite"

	"mystira-backend/internal/migration"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS dual_write_failures (
    id          TEXT PRIMARY KEY,
    entity_type TEXT NOT NULL,
    entity_id   TEXT NOT NULL,
    user_id     TEXT NOT NULL,
    operation   TEXT NOT NULL,
    phase       TEXT NOT NULL,
    payload     BLOB NOT NULL,
    reason      TEXT NOT NULL,
    occurred_at TEXT NOT NULL,
    resolved_at TEXT
);
CREATE INDEX IF NOT EXISTS dual_write_failures_pending
    ON dual_write_failures (occurred_at) WHERE resolved_at IS NULL;
`

// Journal is the durable compensation strategy: every abandoned secondary
// write is recorded in a local SQLite file so operators can replay the
// misses once the secondary backend recovers. It doubles as a Compensator.
type Journal struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewJournal opens (and if needed initializes) the journal file.
func NewJournal(path string, logger *zap.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if _, err := db.Exec(journalSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	return &Journal{db: db, logger: logger.Named("journal")}, nil
}

// Compensate records the failed write as pending.
func (j *Journal) Compensate(ctx context.Context, fw migration.FailedWrite) error {
	const q = `
		INSERT INTO dual_write_failures
		    (id, entity_type, entity_id, user_id, operation, phase, payload, reason, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := j.db.ExecContext(ctx, q,
		fw.ID, fw.EntityType, fw.EntityID, fw.UserID,
		string(fw.Operation), fw.Phase.String(), fw.Payload, fw.Reason,
		fw.OccurredAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("journal failed write: %w", err)
	}
	j.logger.Info("journaled failed secondary write",
		zap.String("entityType", fw.EntityType),
		zap.String("entityID", fw.EntityID),
		zap.String("reason", fw.Reason),
	)
	return nil
}

// Pending lists unresolved failures oldest-first.
func (j *Journal) Pending(ctx context.Context) ([]migration.FailedWrite, error) {
	const q = `
		SELECT id, entity_type, entity_id, user_id, operation, phase, payload, reason, occurred_at
		FROM dual_write_failures
		WHERE resolved_at IS NULL
		ORDER BY occurred_at
	`
	rows, err := j.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list pending failures: %w", err)
	}
	defer rows.Close()

	var pending []migration.FailedWrite
	for rows.Next() {
		var fw migration.FailedWrite
		var operation, phase, occurredAt string
		if err := rows.Scan(&fw.ID, &fw.EntityType, &fw.EntityID, &fw.UserID,
			&operation, &phase, &fw.Payload, &fw.Reason, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan pending failure: %w", err)
		}
		fw.Operation = migration.Operation(operation)
		if p, err := migration.ParsePhase(phase); err == nil {
			fw.Phase = p
		}
		if ts, err := time.Parse(time.RFC3339Nano, occurredAt); err == nil {
			fw.OccurredAt = ts
		}
		pending = append(pending, fw)
	}
	return pending, rows.Err()
}

// Resolve marks a journaled failure as reconciled.
func (j *Journal) Resolve(ctx context.Context, id string) error {
	const q = `
		UPDATE dual_write_failures
		SET resolved_at = ?
		WHERE id = ? AND resolved_at IS NULL
	`
	res, err := j.db.ExecContext(ctx, q, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("resolve journal entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("journal entry %s not found or already resolved", id)
	}
	return nil
}

// Close releases the journal file.
func (j *Journal) Close() error {
	return j.db.Close()
}
