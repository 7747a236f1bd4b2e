//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"mystira-backend/internal/config"
)

// InitializeContainer wires the full service graph from a loaded config.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
