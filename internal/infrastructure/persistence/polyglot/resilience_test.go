package polyglot_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mystira-backend/internal/infrastructure/persistence/polyglot"
	"mystira-backend/internal/repository"
)

func testPipelineConfig() polyglot.ResilienceConfig {
	cfg := polyglot.DefaultResilienceConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MinRequests = 1000
	return cfg
}

func TestExecuteRetriesTransientErrors(t *testing.T) {
	p := polyglot.NewResiliencePipeline(t.Name(), testPipelineConfig(), zap.NewNop())

	attempts := 0
	err := p.Execute(context.Background(), time.Second, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return repository.Transient(errors.New("blip"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestExecuteStopsOnPermanentError(t *testing.T) {
	p := polyglot.NewResiliencePipeline(t.Name(), testPipelineConfig(), zap.NewNop())

	attempts := 0
	permanent := repository.NewConflict("Scenario", "s-1", "duplicate")
	err := p.Execute(context.Background(), time.Second, func(ctx context.Context) error {
		attempts++
		return permanent
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts, "non-transient errors get exactly one attempt")
}

func TestExecuteExhaustsRetryBudget(t *testing.T) {
	cfg := testPipelineConfig()
	cfg.MaxRetries = 2
	p := polyglot.NewResiliencePipeline(t.Name(), cfg, zap.NewNop())

	attempts := 0
	err := p.Execute(context.Background(), time.Second, func(ctx context.Context) error {
		attempts++
		return repository.Transient(errors.New("still down"))
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts, "initial attempt plus two retries")
}

func TestExecuteHonorsTimeout(t *testing.T) {
	p := polyglot.NewResiliencePipeline(t.Name(), testPipelineConfig(), zap.NewNop())

	start := time.Now()
	err := p.Execute(context.Background(), 50*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second, "timeout must bound the whole sequence")
}

func TestExecuteHonorsCallerCancellation(t *testing.T) {
	p := polyglot.NewResiliencePipeline(t.Name(), testPipelineConfig(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := p.Execute(ctx, time.Second, func(ctx context.Context) error {
		attempts++
		return repository.Transient(errors.New("blip"))
	})

	require.Error(t, err)
	assert.LessOrEqual(t, attempts, 1, "a canceled context stops the sequence")
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	cfg := testPipelineConfig()
	cfg.MinRequests = 3
	cfg.FailureThreshold = 0.5
	cfg.MaxRetries = 0
	p := polyglot.NewResiliencePipeline(t.Name(), cfg, zap.NewNop())

	boom := repository.NewConflict("Scenario", "s-1", "permanent")
	for i := 0; i < 4; i++ {
		_ = p.Execute(context.Background(), time.Second, func(ctx context.Context) error {
			return boom
		})
	}

	err := p.Execute(context.Background(), time.Second, func(ctx context.Context) error {
		t.Fatal("operation must not run while the breaker is open")
		return nil
	})
	require.Error(t, err)
	assert.True(t, polyglot.IsCircuitOpen(err))
}

func TestIsCircuitOpen(t *testing.T) {
	assert.False(t, polyglot.IsCircuitOpen(nil))
	assert.False(t, polyglot.IsCircuitOpen(errors.New("other")))
}
