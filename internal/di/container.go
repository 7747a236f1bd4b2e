package di

import (
	"context"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mystira-backend/internal/config"
	"mystira-backend/internal/infrastructure/observability"
)

// Container holds the fully wired service. Built by the wire injector in
// wire_gen.go.
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	Metrics      *observability.Collector
	Tracing      *observability.TracerProvider
	Repositories *Repositories
	Router       *chi.Mux
}

// Shutdown drains in-flight secondary writes before the injector's cleanup
// tears down connections. Call it ahead of the cleanup function.
func (c *Container) Shutdown(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		c.Repositories.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		c.Logger.Warn("shutdown deadline reached with secondary writes still in flight")
	}
}
