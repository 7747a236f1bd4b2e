package polyglot

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"mystira-backend/internal/repository"
)

// ResilienceConfig tunes the policy wrapped around every secondary write.
// The pipeline exists to keep a sick secondary backend from ever slowing the
// primary-authoritative path.
type ResilienceConfig struct {
	// FailureThreshold is the failure ratio that trips the breaker.
	FailureThreshold float64
	// MinRequests is the throughput floor before the ratio is evaluated.
	MinRequests uint32
	// Interval is the rolling window over which counts are accumulated.
	Interval time.Duration
	// OpenTimeout is how long the breaker stays open before a half-open probe.
	OpenTimeout time.Duration
	// HalfOpenMaxRequests caps trial requests while half-open.
	HalfOpenMaxRequests uint32
	// MaxRetries is the retry budget per write, transient failures only.
	MaxRetries uint64
	// InitialBackoff seeds the exponential backoff between retries.
	InitialBackoff time.Duration
}

// DefaultResilienceConfig returns the production tuning.
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		FailureThreshold:    0.5,
		MinRequests:         5,
		Interval:            30 * time.Second,
		OpenTimeout:         15 * time.Second,
		HalfOpenMaxRequests: 3,
		MaxRetries:          3,
		InitialBackoff:      100 * time.Millisecond,
	}
}

// ResiliencePipeline combines circuit breaking, retry with jittered backoff,
// and an overall timeout. One pipeline instance is shared across all calls on
// a repository: the breaker state is deliberately process-wide, so "the
// secondary is down" is learned once, not per request.
type ResiliencePipeline struct {
	breaker *gobreaker.CircuitBreaker
	cfg     ResilienceConfig
	logger  *zap.Logger
}

// NewResiliencePipeline builds a pipeline with a named breaker. State
// transitions are logged for operational visibility.
func NewResiliencePipeline(name string, cfg ResilienceConfig, logger *zap.Logger) *ResiliencePipeline {
	log := logger.Named("resilience")
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenMaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &ResiliencePipeline{breaker: breaker, cfg: cfg, logger: log}
}

// Execute runs op under the full policy: the timeout bounds the whole
// attempt sequence, each attempt passes through the breaker, and only
// transient persistence errors are retried.
func (p *ResiliencePipeline) Execute(ctx context.Context, timeout time.Duration, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	attempt := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		_, err := p.breaker.Execute(func() (interface{}, error) {
			return nil, op(ctx)
		})
		if err == nil {
			return nil
		}
		if IsCircuitOpen(err) {
			// Fail fast; retrying against an open breaker is pointless.
			return backoff.Permanent(err)
		}
		if !repository.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.InitialBackoff
	b.RandomizationFactor = 0.3
	b.MaxElapsedTime = 0 // the context deadline is the budget

	return backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(b, p.cfg.MaxRetries), ctx))
}

// State exposes the breaker state for status endpoints.
func (p *ResiliencePipeline) State() gobreaker.State {
	return p.breaker.State()
}

// IsCircuitOpen reports whether err is a breaker rejection rather than a
// backend failure.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// failureReason buckets a suppressed secondary-write error for telemetry.
func failureReason(err error) string {
	switch {
	case IsCircuitOpen(err):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
