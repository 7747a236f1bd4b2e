// Package handlers exposes the migration admin API: health, phase status,
// per-backend reads, and cross-backend consistency checks.
package handlers

import (
	"context"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mystira-backend/internal/migration"
	"mystira-backend/internal/repository"
	"mystira-backend/pkg/api"
)

// Inspector is the type-erased view of a polyglot repository that the admin
// API needs. Every entity type's repository satisfies it regardless of its
// generic parameter.
type Inspector interface {
	CurrentPhase() migration.Phase
	BreakerState() string
	IsPrimaryHealthy(ctx context.Context) bool
	IsSecondaryHealthy(ctx context.Context) bool
	ValidateConsistency(ctx context.Context, userID, id string) (repository.ConsistencyResult, error)
	ReadFromBackend(ctx context.Context, userID, id string, backend migration.BackendType) (interface{}, error)
}

// AdminHandler serves the migration operations endpoints.
type AdminHandler struct {
	inspectors map[string]Inspector
	opts       migration.Options
	logger     *zap.Logger
}

// NewAdminHandler builds the handler over one inspector per entity type.
func NewAdminHandler(inspectors map[string]Inspector, opts migration.Options, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		inspectors: inspectors,
		opts:       opts,
		logger:     logger.Named("admin"),
	}
}

// RegisterRoutes mounts the admin endpoints on the router.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Get("/health/backends", h.BackendHealth)
	r.Get("/migration/status", h.MigrationStatus)
	r.Get("/migration/consistency/{entityType}/{userID}/{id}", h.CheckConsistency)
	r.Get("/migration/read/{backend}/{entityType}/{userID}/{id}", h.ReadFromBackend)
}

// Health is the liveness probe.
func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
}

// BackendHealth probes both backends. It reports 200 as long as the
// authoritative backend answers; a sick shadow never fails the check.
func (h *AdminHandler) BackendHealth(w http.ResponseWriter, r *http.Request) {
	inspector, ok := h.anyInspector()
	if !ok {
		api.Error(w, http.StatusServiceUnavailable, "no repositories registered")
		return
	}

	resp := api.BackendHealthResponse{
		Phase:     h.opts.Phase.String(),
		Primary:   inspector.IsPrimaryHealthy(r.Context()),
		Secondary: inspector.IsSecondaryHealthy(r.Context()),
	}
	status := http.StatusOK
	if !resp.Primary {
		status = http.StatusServiceUnavailable
	}
	api.Success(w, status, resp)
}

// MigrationStatus reports the phase, store roles, and breaker state.
func (h *AdminHandler) MigrationStatus(w http.ResponseWriter, r *http.Request) {
	resp := api.MigrationStatusResponse{
		Phase:              h.opts.Phase.String(),
		DualWrite:          h.opts.Phase.DualWrite(),
		AuthoritativeStore: h.opts.Phase.Authoritative().String(),
		EntityTypes:        h.entityTypes(),
	}
	if shadow, ok := h.opts.Phase.Shadow(); ok {
		resp.ShadowStore = shadow.String()
	}
	if inspector, ok := h.anyInspector(); ok {
		resp.CircuitBreaker = inspector.BreakerState()
	}
	api.Success(w, http.StatusOK, resp)
}

// CheckConsistency compares one record across both backends.
func (h *AdminHandler) CheckConsistency(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	userID := chi.URLParam(r, "userID")
	id := chi.URLParam(r, "id")

	inspector, ok := h.inspectors[entityType]
	if !ok {
		api.Error(w, http.StatusNotFound, "unknown entity type: "+entityType)
		return
	}

	result, err := inspector.ValidateConsistency(r.Context(), userID, id)
	if err != nil {
		h.logger.Error("consistency check failed",
			zap.String("entityType", entityType),
			zap.String("entityID", id),
			zap.Error(err),
		)
		api.Error(w, http.StatusInternalServerError, "consistency check failed")
		return
	}

	api.Success(w, http.StatusOK, api.ConsistencyResponse{
		EntityType:     entityType,
		EntityID:       id,
		UserID:         userID,
		IsConsistent:   result.IsConsistent,
		Differences:    result.Differences,
		PrimaryValue:   result.PrimaryValue,
		SecondaryValue: result.SecondaryValue,
	})
}

// ReadFromBackend reads a record from an explicitly named backend, bypassing
// the phase's normal read routing. Used to verify either side by hand.
func (h *AdminHandler) ReadFromBackend(w http.ResponseWriter, r *http.Request) {
	backendName := chi.URLParam(r, "backend")
	entityType := chi.URLParam(r, "entityType")
	userID := chi.URLParam(r, "userID")
	id := chi.URLParam(r, "id")

	backend, err := migration.ParseBackendType(backendName)
	if err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	inspector, ok := h.inspectors[entityType]
	if !ok {
		api.Error(w, http.StatusNotFound, "unknown entity type: "+entityType)
		return
	}

	entity, err := inspector.ReadFromBackend(r.Context(), userID, id, backend)
	if err != nil {
		h.logger.Error("backend read failed",
			zap.String("backend", backendName),
			zap.String("entityType", entityType),
			zap.String("entityID", id),
			zap.Error(err),
		)
		api.Error(w, http.StatusInternalServerError, "backend read failed")
		return
	}

	api.Success(w, http.StatusOK, api.BackendReadResponse{
		Backend: backend.String(),
		Found:   entity != nil,
		Entity:  entity,
	})
}

// entityTypes returns the registered types sorted for stable output.
func (h *AdminHandler) entityTypes() []string {
	types := make([]string, 0, len(h.inspectors))
	for t := range h.inspectors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func (h *AdminHandler) anyInspector() (Inspector, bool) {
	for _, t := range h.entityTypes() {
		return h.inspectors[t], true
	}
	return nil, false
}
