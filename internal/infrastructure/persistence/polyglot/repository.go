// Package polyglot implements the dual-write repository that carries the
// live migration from the document store to the relational store. One side is
// authoritative per phase and its outcome is always the caller's outcome; the
// other side is written best-effort through a resilience pipeline, so the
// migration can only ever add observability, never new failure modes.
package polyglot

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"mystira-backend/internal/infrastructure/observability"
	"mystira-backend/internal/migration"
	"mystira-backend/internal/repository"
)

// backendHandle pairs one backend's repository with its health probe.
type backendHandle[T repository.Entity] struct {
	repo   repository.Repository[T]
	pinger repository.Pinger
}

// Repository fans writes out to up to two backends according to the
// migration phase while presenting the ordinary single-backend contract.
// It is safe for concurrent use; the resilience pipeline is the one piece of
// shared mutable state and is designed for exactly that.
type Repository[T repository.Entity] struct {
	document   backendHandle[T]
	relational backendHandle[T]

	opts     migration.Options
	pipeline *ResiliencePipeline
	comp     Compensator
	metrics  *observability.Collector
	logger   *zap.Logger
	tracer   trace.Tracer

	entityType string
	inflight   sync.WaitGroup
}

// New builds a polyglot repository over the two backends. comp may be nil,
// in which case compensation falls back to log-only.
func New[T repository.Entity](
	document repository.Repository[T], documentPinger repository.Pinger,
	relational repository.Repository[T], relationalPinger repository.Pinger,
	opts migration.Options,
	pipeline *ResiliencePipeline,
	comp Compensator,
	metrics *observability.Collector,
	logger *zap.Logger,
) *Repository[T] {
	var zero T
	entityType := zero.EntityType()
	log := logger.Named("polyglot").With(
		zap.String("entityType", entityType),
		zap.String("phase", opts.Phase.String()),
	)
	if comp == nil {
		comp = NewLogCompensator(log)
	}
	return &Repository[T]{
		document:   backendHandle[T]{repo: document, pinger: documentPinger},
		relational: backendHandle[T]{repo: relational, pinger: relationalPinger},
		opts:       opts,
		pipeline:   pipeline,
		comp:       comp,
		metrics:    metrics,
		logger:     log,
		tracer:     otel.Tracer("polyglot"),
		entityType: entityType,
	}
}

// CurrentPhase returns the migration phase this repository was built with.
func (r *Repository[T]) CurrentPhase() migration.Phase {
	return r.opts.Phase
}

// BreakerState reports the shared circuit breaker state for status views.
func (r *Repository[T]) BreakerState() string {
	return r.pipeline.State().String()
}

func (r *Repository[T]) handleFor(kind migration.StoreKind) backendHandle[T] {
	if kind == migration.KindRelational {
		return r.relational
	}
	return r.document
}

func (r *Repository[T]) primary() backendHandle[T] {
	return r.handleFor(r.opts.Phase.Authoritative())
}

func (r *Repository[T]) secondary() (backendHandle[T], bool) {
	kind, ok := r.opts.Phase.Shadow()
	if !ok {
		return backendHandle[T]{}, false
	}
	return r.handleFor(kind), true
}

// Add writes the entity to the authoritative backend synchronously and, in
// dual-write phases, mirrors it to the secondary in the background. The
// returned entity and error reflect the authoritative write alone.
func (r *Repository[T]) Add(ctx context.Context, entity T) (T, error) {
	ctx, span := r.startSpan(ctx, "polyglot.add")
	defer span.End()

	persisted, err := r.primary().repo.Add(ctx, entity)
	if err != nil {
		span.RecordError(err)
		return persisted, err
	}
	r.mirror(ctx, migration.OperationAdd, persisted)
	return persisted, nil
}

// Update writes to the authoritative backend and mirrors on success. The
// affected count is the authoritative backend's count.
func (r *Repository[T]) Update(ctx context.Context, entity T) (int, error) {
	ctx, span := r.startSpan(ctx, "polyglot.update")
	defer span.End()

	affected, err := r.primary().repo.Update(ctx, entity)
	if err != nil {
		span.RecordError(err)
		return affected, err
	}
	r.mirror(ctx, migration.OperationUpdate, entity)
	return affected, nil
}

// Delete removes from the authoritative backend and mirrors on success. The
// affected count is the authoritative backend's count.
func (r *Repository[T]) Delete(ctx context.Context, entity T) (int, error) {
	ctx, span := r.startSpan(ctx, "polyglot.delete")
	defer span.End()

	affected, err := r.primary().repo.Delete(ctx, entity)
	if err != nil {
		span.RecordError(err)
		return affected, err
	}
	r.mirror(ctx, migration.OperationDelete, entity)
	return affected, nil
}

// GetByID reads from the authoritative backend.
func (r *Repository[T]) GetByID(ctx context.Context, userID, id string) (T, error) {
	return r.primary().repo.GetByID(ctx, userID, id)
}

// List queries the authoritative backend.
func (r *Repository[T]) List(ctx context.Context, userID string, spec repository.Specification) ([]T, error) {
	return r.primary().repo.List(ctx, userID, spec)
}

// Count queries the authoritative backend.
func (r *Repository[T]) Count(ctx context.Context, userID string, spec repository.Specification) (int, error) {
	return r.primary().repo.Count(ctx, userID, spec)
}

// Wait blocks until all in-flight secondary writes have finished. Called on
// shutdown so background mirrors are not cut off mid-flight.
func (r *Repository[T]) Wait() {
	r.inflight.Wait()
}

// mirror schedules the best-effort secondary write. It never blocks the
// caller and never surfaces an error; failures end up in telemetry and, when
// enabled, in the compensator.
func (r *Repository[T]) mirror(ctx context.Context, op migration.Operation, entity T) {
	shadow, ok := r.secondary()
	if !ok {
		return
	}

	// The mirror outlives the caller's request. Keep its values (trace
	// linkage) but detach cancelation so the pipeline timeout is the only
	// bound on the background write.
	base := context.WithoutCancel(ctx)

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()

		mctx, span := r.startSpan(base, "polyglot.mirror."+string(op))
		defer span.End()

		start := time.Now()
		err := r.pipeline.Execute(mctx, r.opts.DualWriteTimeout, func(ctx context.Context) error {
			return r.applySecondary(ctx, shadow.repo, op, entity)
		})
		r.metrics.ObserveSecondaryWrite(r.entityType, string(op), time.Since(start))

		if err == nil {
			r.metrics.RecordSecondarySuccess(r.entityType, r.opts.Phase.String())
			r.logger.Debug("secondary write completed",
				zap.String("entityID", entity.GetID()),
				zap.String("operation", string(op)),
			)
			return
		}

		span.RecordError(err)
		reason := failureReason(err)
		r.metrics.RecordSecondaryFailure(r.entityType, r.opts.Phase.String(), reason)
		r.logger.Warn("secondary write failed",
			zap.String("entityID", entity.GetID()),
			zap.String("userID", entity.GetUserID()),
			zap.String("operation", string(op)),
			zap.String("reason", reason),
			zap.Error(err),
		)
		r.compensate(op, entity, reason)
	}()
}

func (r *Repository[T]) applySecondary(ctx context.Context, repo repository.Repository[T], op migration.Operation, entity T) error {
	switch op {
	case migration.OperationUpdate:
		_, err := repo.Update(ctx, entity)
		return err
	case migration.OperationDelete:
		_, err := repo.Delete(ctx, entity)
		return err
	default:
		_, err := repo.Add(ctx, entity)
		return err
	}
}

// compensate hands the suppressed failure to the configured strategy. It
// runs on a fresh context: the caller may be long gone by the time the
// pipeline gives up.
func (r *Repository[T]) compensate(op migration.Operation, entity T, reason string) {
	if !r.opts.EnableCompensation {
		return
	}

	payload, err := json.Marshal(entity)
	if err != nil {
		r.logger.Error("cannot serialize entity for compensation", zap.Error(err))
		return
	}
	fw := migration.FailedWrite{
		ID:         uuid.NewString(),
		EntityType: r.entityType,
		EntityID:   entity.GetID(),
		UserID:     entity.GetUserID(),
		Operation:  op,
		Phase:      r.opts.Phase,
		Payload:    payload,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.comp.Compensate(ctx, fw); err != nil {
		r.logger.Error("compensation failed",
			zap.String("entityID", fw.EntityID),
			zap.Error(err),
		)
	}
}

// IsPrimaryHealthy probes the authoritative backend. Probe errors are
// converted to false, never propagated, so health endpoints can poll safely.
func (r *Repository[T]) IsPrimaryHealthy(ctx context.Context) bool {
	return r.probe(ctx, r.primary().pinger, "primary")
}

// IsSecondaryHealthy probes the shadow backend. It reports false whenever no
// secondary is configured for the current phase.
func (r *Repository[T]) IsSecondaryHealthy(ctx context.Context) bool {
	shadow, ok := r.secondary()
	if !ok {
		return false
	}
	return r.probe(ctx, shadow.pinger, "secondary")
}

func (r *Repository[T]) probe(ctx context.Context, pinger repository.Pinger, role string) bool {
	if pinger == nil {
		return false
	}
	if err := pinger.Ping(ctx); err != nil {
		r.logger.Warn("backend health probe failed",
			zap.String("role", role),
			zap.Error(err),
		)
		return false
	}
	return true
}

// GetFromBackend reads from an explicitly named backend, for migration
// tooling and manual verification rather than application traffic. It
// returns nil without error when the backend is not configured in the
// current phase or the entity is absent.
func (r *Repository[T]) GetFromBackend(ctx context.Context, userID, id string, backend migration.BackendType) (*T, error) {
	kind, ok := r.opts.Phase.Resolve(backend)
	if !ok {
		r.logger.Warn("requested backend not configured in current phase",
			zap.String("backend", backend.String()),
		)
		return nil, nil
	}

	entity, err := r.handleFor(kind).repo.GetByID(ctx, userID, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

// ReadFromBackend is the type-erased form of GetFromBackend used by the
// admin handlers, which hold repositories of mixed entity types.
func (r *Repository[T]) ReadFromBackend(ctx context.Context, userID, id string, backend migration.BackendType) (interface{}, error) {
	entity, err := r.GetFromBackend(ctx, userID, id, backend)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, nil
	}
	return *entity, nil
}

type fetchResult[T any] struct {
	entity T
	found  bool
	err    error
}

// ValidateConsistency compares one logical record across both backends. Both
// reads run concurrently; read failures are folded into the result rather
// than propagated, so a dead backend cannot break monitoring sweeps. Outside
// the dual-write phases there is nothing to compare and the record is
// trivially consistent.
func (r *Repository[T]) ValidateConsistency(ctx context.Context, userID, id string) (repository.ConsistencyResult, error) {
	shadow, ok := r.secondary()
	if !ok {
		return repository.Consistent(), nil
	}
	primary := r.primary()

	var primaryRes, secondaryRes fetchResult[T]
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		primaryRes = r.fetch(ctx, primary.repo, userID, id)
	}()
	go func() {
		defer wg.Done()
		secondaryRes = r.fetch(ctx, shadow.repo, userID, id)
	}()
	wg.Wait()

	result := r.compare(primaryRes, secondaryRes)
	r.metrics.RecordConsistencyCheck(r.entityType, result.IsConsistent)
	if !result.IsConsistent {
		r.logger.Warn("consistency check found drift",
			zap.String("entityID", id),
			zap.String("userID", userID),
			zap.Strings("differences", result.Differences),
		)
	}
	return result, nil
}

func (r *Repository[T]) fetch(ctx context.Context, repo repository.Repository[T], userID, id string) fetchResult[T] {
	entity, err := repo.GetByID(ctx, userID, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return fetchResult[T]{found: false}
		}
		return fetchResult[T]{err: err}
	}
	return fetchResult[T]{entity: entity, found: true}
}

func (r *Repository[T]) compare(primary, secondary fetchResult[T]) repository.ConsistencyResult {
	if primary.err != nil {
		return repository.Inconsistent("failed to read from primary backend: " + primary.err.Error())
	}
	if secondary.err != nil {
		return repository.Inconsistent("failed to read from secondary backend: " + secondary.err.Error())
	}

	switch {
	case !primary.found && !secondary.found:
		return repository.Consistent()
	case primary.found && !secondary.found:
		result := repository.Inconsistent("entity missing in secondary backend")
		result.PrimaryValue = canonical(primary.entity)
		return result
	case !primary.found && secondary.found:
		result := repository.Inconsistent("entity missing in primary backend")
		result.SecondaryValue = canonical(secondary.entity)
		return result
	}

	primaryJSON := canonical(primary.entity)
	secondaryJSON := canonical(secondary.entity)
	if primaryJSON != secondaryJSON {
		result := repository.Inconsistent("entity data differs between backends")
		result.PrimaryValue = primaryJSON
		result.SecondaryValue = secondaryJSON
		return result
	}

	result := repository.Consistent()
	result.PrimaryValue = primaryJSON
	result.SecondaryValue = secondaryJSON
	return result
}

// canonical serializes an entity for comparison. Both sides are the same Go
// type, so field order is stable and byte equality means structural equality.
func canonical[T any](entity T) string {
	data, err := json.Marshal(entity)
	if err != nil {
		return ""
	}
	return string(data)
}

func (r *Repository[T]) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("entity.type", r.entityType),
		attribute.String("migration.phase", r.opts.Phase.String()),
	))
}
