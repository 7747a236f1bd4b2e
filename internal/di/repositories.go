package di

import (
	"go.uber.org/zap"

	"mystira-backend/internal/config"
	"mystira-backend/internal/domain/story"
	"mystira-backend/internal/handlers"
	"mystira-backend/internal/infrastructure/observability"
	"mystira-backend/internal/infrastructure/persistence/dynamodb"
	"mystira-backend/internal/infrastructure/persistence/polyglot"
	"mystira-backend/internal/infrastructure/persistence/postgres"
	"mystira-backend/internal/migration"
	"mystira-backend/internal/repository"
)

// Repositories holds the polyglot repositories for every entity type.
type Repositories struct {
	Scenarios *polyglot.Repository[story.Scenario]
	Sessions  *polyglot.Repository[story.GameSession]
	Axes      *polyglot.Repository[story.CompassAxis]
}

func provideRepositories(
	document *dynamodb.Store,
	relational *postgres.Store,
	cfg *config.Config,
	pipeline *polyglot.ResiliencePipeline,
	comp polyglot.Compensator,
	metrics *observability.Collector,
	logger *zap.Logger,
) *Repositories {
	hook := dynamodb.NewPartitionKeyHook()
	opts := cfg.MigrationOptions()

	scenarios := newPolyglot(
		dynamodb.NewDocumentRepository(document, dynamodb.NewCodec[story.Scenario]("Scenario"), hook),
		document, relational, opts, pipeline, comp, metrics, logger,
	)
	sessions := newPolyglot(
		dynamodb.NewDocumentRepository(document, dynamodb.NewCodec[story.GameSession]("GameSession"), hook),
		document, relational, opts, pipeline, comp, metrics, logger,
	)
	axes := newPolyglot(
		dynamodb.NewDocumentRepository(document, dynamodb.NewNaturalKeyCodec[story.CompassAxis]("CompassAxis", "Axis"), hook),
		document, relational, opts, pipeline, comp, metrics, logger,
	)

	return &Repositories{Scenarios: scenarios, Sessions: sessions, Axes: axes}
}

// newPolyglot assembles one entity's dual-backend repository. The relational
// side may be absent; the polyglot repository only reaches for it in phases
// where it is required, and config validation guarantees it exists then.
func newPolyglot[T repository.Entity](
	docRepo repository.Repository[T],
	document *dynamodb.Store,
	relational *postgres.Store,
	opts migration.Options,
	pipeline *polyglot.ResiliencePipeline,
	comp polyglot.Compensator,
	metrics *observability.Collector,
	logger *zap.Logger,
) *polyglot.Repository[T] {
	var relRepo repository.Repository[T]
	var relPinger repository.Pinger
	if relational != nil {
		var zero T
		relRepo = postgres.NewRelationalRepository[T](relational, zero.EntityType())
		relPinger = relational
	}
	return polyglot.New[T](docRepo, document, relRepo, relPinger, opts, pipeline, comp, metrics, logger)
}

// Inspectors exposes the repositories to the admin API keyed by entity type.
func (r *Repositories) Inspectors() map[string]handlers.Inspector {
	return map[string]handlers.Inspector{
		"Scenario":    r.Scenarios,
		"GameSession": r.Sessions,
		"CompassAxis": r.Axes,
	}
}

// Wait blocks until every repository's in-flight secondary writes finish.
func (r *Repositories) Wait() {
	r.Scenarios.Wait()
	r.Sessions.Wait()
	r.Axes.Wait()
}
