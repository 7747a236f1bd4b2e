package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mystira-backend/internal/handlers"
	"mystira-backend/internal/infrastructure/observability"
	"mystira-backend/internal/migration"
	"mystira-backend/internal/repository"
	"mystira-backend/pkg/api"
)

// stubInspector fakes one entity type's polyglot repository.
type stubInspector struct {
	phase            migration.Phase
	breaker          string
	primaryHealthy   bool
	secondaryHealthy bool
	consistency      repository.ConsistencyResult
	consistencyErr   error
	entity           interface{}
	readErr          error
}

func (s *stubInspector) CurrentPhase() migration.Phase { return s.phase }
func (s *stubInspector) BreakerState() string          { return s.breaker }
func (s *stubInspector) IsPrimaryHealthy(ctx context.Context) bool {
	return s.primaryHealthy
}
func (s *stubInspector) IsSecondaryHealthy(ctx context.Context) bool {
	return s.secondaryHealthy
}
func (s *stubInspector) ValidateConsistency(ctx context.Context, userID, id string) (repository.ConsistencyResult, error) {
	return s.consistency, s.consistencyErr
}
func (s *stubInspector) ReadFromBackend(ctx context.Context, userID, id string, backend migration.BackendType) (interface{}, error) {
	return s.entity, s.readErr
}

func newTestServer(t *testing.T, inspector *stubInspector, phase migration.Phase) *httptest.Server {
	t.Helper()
	admin := handlers.NewAdminHandler(
		map[string]handlers.Inspector{"Scenario": inspector},
		migration.Options{Phase: phase, DualWriteTimeout: time.Second},
		zap.NewNop(),
	)
	router := handlers.NewRouter(admin, observability.NewCollector("test"))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &stubInspector{}, migration.PhasePrimaryOnly)

	var body map[string]string
	status := getJSON(t, srv.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestBackendHealth(t *testing.T) {
	t.Run("both healthy", func(t *testing.T) {
		srv := newTestServer(t,
			&stubInspector{primaryHealthy: true, secondaryHealthy: true},
			migration.PhaseDualWritePrimaryRead)

		var body api.BackendHealthResponse
		status := getJSON(t, srv.URL+"/health/backends", &body)
		assert.Equal(t, http.StatusOK, status)
		assert.True(t, body.Primary)
		assert.True(t, body.Secondary)
		assert.Equal(t, "dual_write_primary_read", body.Phase)
	})

	t.Run("sick secondary does not fail the check", func(t *testing.T) {
		srv := newTestServer(t,
			&stubInspector{primaryHealthy: true, secondaryHealthy: false},
			migration.PhaseDualWritePrimaryRead)

		var body api.BackendHealthResponse
		status := getJSON(t, srv.URL+"/health/backends", &body)
		assert.Equal(t, http.StatusOK, status)
		assert.False(t, body.Secondary)
	})

	t.Run("sick primary fails the check", func(t *testing.T) {
		srv := newTestServer(t,
			&stubInspector{primaryHealthy: false},
			migration.PhaseDualWritePrimaryRead)

		status := getJSON(t, srv.URL+"/health/backends", nil)
		assert.Equal(t, http.StatusServiceUnavailable, status)
	})
}

func TestMigrationStatus(t *testing.T) {
	srv := newTestServer(t,
		&stubInspector{breaker: "closed"},
		migration.PhaseDualWriteSecondaryRead)

	var body api.MigrationStatusResponse
	status := getJSON(t, srv.URL+"/migration/status", &body)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, "dual_write_secondary_read", body.Phase)
	assert.True(t, body.DualWrite)
	assert.Equal(t, "relational", body.AuthoritativeStore)
	assert.Equal(t, "document", body.ShadowStore)
	assert.Equal(t, "closed", body.CircuitBreaker)
	assert.Equal(t, []string{"Scenario"}, body.EntityTypes)
}

func TestCheckConsistency(t *testing.T) {
	t.Run("reports drift", func(t *testing.T) {
		srv := newTestServer(t, &stubInspector{
			consistency: repository.Inconsistent("entity missing in secondary backend"),
		}, migration.PhaseDualWritePrimaryRead)

		var body api.ConsistencyResponse
		status := getJSON(t, srv.URL+"/migration/consistency/Scenario/user-1/s-1", &body)
		require.Equal(t, http.StatusOK, status)

		assert.False(t, body.IsConsistent)
		assert.Equal(t, "Scenario", body.EntityType)
		assert.Equal(t, "s-1", body.EntityID)
		assert.Equal(t, "user-1", body.UserID)
		assert.Contains(t, body.Differences, "entity missing in secondary backend")
	})

	t.Run("unknown entity type", func(t *testing.T) {
		srv := newTestServer(t, &stubInspector{}, migration.PhaseDualWritePrimaryRead)
		status := getJSON(t, srv.URL+"/migration/consistency/Widget/user-1/s-1", nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("check failure", func(t *testing.T) {
		srv := newTestServer(t, &stubInspector{
			consistencyErr: errors.New("boom"),
		}, migration.PhaseDualWritePrimaryRead)
		status := getJSON(t, srv.URL+"/migration/consistency/Scenario/user-1/s-1", nil)
		assert.Equal(t, http.StatusInternalServerError, status)
	})
}

func TestReadFromBackend(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		srv := newTestServer(t, &stubInspector{
			entity: map[string]interface{}{"id": "s-1"},
		}, migration.PhaseDualWritePrimaryRead)

		var body api.BackendReadResponse
		status := getJSON(t, srv.URL+"/migration/read/secondary/Scenario/user-1/s-1", &body)
		require.Equal(t, http.StatusOK, status)
		assert.True(t, body.Found)
		assert.Equal(t, "secondary", body.Backend)
	})

	t.Run("absent", func(t *testing.T) {
		srv := newTestServer(t, &stubInspector{}, migration.PhaseDualWritePrimaryRead)

		var body api.BackendReadResponse
		status := getJSON(t, srv.URL+"/migration/read/document/Scenario/user-1/ghost", &body)
		require.Equal(t, http.StatusOK, status)
		assert.False(t, body.Found)
		assert.Nil(t, body.Entity)
	})

	t.Run("bad backend name", func(t *testing.T) {
		srv := newTestServer(t, &stubInspector{}, migration.PhaseDualWritePrimaryRead)
		status := getJSON(t, srv.URL+"/migration/read/mysql/Scenario/user-1/s-1", nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubInspector{}, migration.PhasePrimaryOnly)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
