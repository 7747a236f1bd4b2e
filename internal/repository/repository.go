// Package repository defines the storage-agnostic contracts shared by the
// document and relational backends and by the polyglot repository that
// coordinates them during the migration.
package repository

import (
	"context"
)

// Entity is the minimal surface the data layer needs from a domain type.
// Entities are owned by the application layer; repositories only stage them
// for persistence and keep no references past a single operation.
type Entity interface {
	// GetID returns the identifier used for lookups. For naturally keyed
	// aggregates this may be a non-ID field (see story.CompassAxis).
	GetID() string
	// GetUserID returns the owning user, which doubles as the partition
	// boundary in both stores.
	GetUserID() string
	// EntityType returns the stable type name used for routing, telemetry
	// and cross-backend comparison.
	EntityType() string
}

// Repository is the generic CRUD and query surface implemented by every
// backend. Update and Delete return the affected-entity count of the backend
// that executed them.
type Repository[T Entity] interface {
	Add(ctx context.Context, entity T) (T, error)
	Update(ctx context.Context, entity T) (int, error)
	Delete(ctx context.Context, entity T) (int, error)
	GetByID(ctx context.Context, userID, id string) (T, error)
	List(ctx context.Context, userID string, spec Specification) ([]T, error)
	Count(ctx context.Context, userID string, spec Specification) (int, error)
}

// Pinger is the lightweight connectivity probe each store exposes for health
// checks. Implementations should be cheap enough to poll.
type Pinger interface {
	Ping(ctx context.Context) error
}
