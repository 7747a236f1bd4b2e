// Package di wires the data layer together with google/wire. The generated
// injector lives in wire_gen.go; this file holds the providers.
package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/go-chi/chi/v5"
	"github.com/google/wire"
	"go.uber.org/zap"

	"mystira-backend/internal/config"
	"mystira-backend/internal/handlers"
	"mystira-backend/internal/infrastructure/messaging/eventbridge"
	"mystira-backend/internal/infrastructure/observability"
	"mystira-backend/internal/infrastructure/persistence/dynamodb"
	"mystira-backend/internal/infrastructure/persistence/polyglot"
	"mystira-backend/internal/infrastructure/persistence/postgres"
)

// SuperSet is the full provider graph for the admin service.
var SuperSet = wire.NewSet(
	provideLogger,
	provideCollector,
	provideTracing,
	provideAWSConfig,
	provideDynamoClient,
	provideDocumentStore,
	provideRelationalStore,
	providePipeline,
	provideCompensator,
	provideRepositories,
	provideAdminHandler,
	provideRouter,
	wire.Struct(new(Container), "*"),
)

func provideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	logger, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = logger.Sync() }
	return logger, cleanup, nil
}

func provideCollector() *observability.Collector {
	return observability.NewCollector("mystira")
}

// provideTracing initializes OTLP tracing when enabled; a nil provider means
// spans fall through to the no-op global tracer.
func provideTracing(cfg *config.Config) (*observability.TracerProvider, func(), error) {
	if !cfg.Observability.TracingEnabled {
		return nil, func() {}, nil
	}
	tp, err := observability.InitTracing(
		cfg.Observability.ServiceName,
		cfg.Environment,
		cfg.Observability.OTLPEndpoint,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("init tracing: %w", err)
	}
	cleanup := func() {
		_ = tp.Shutdown(context.Background())
	}
	return tp, cleanup, nil
}

func provideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.DynamoDB.Region),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

func provideDynamoClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDB.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDB.Endpoint)
		}
	})
}

func provideDocumentStore(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) *dynamodb.Store {
	return dynamodb.NewStore(client, cfg.DynamoDB.TableName, logger)
}

// provideRelationalStore opens Postgres when a DSN is configured. A nil
// store is valid in the primary-only phase, where the relational side is
// never touched.
func provideRelationalStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*postgres.Store, func(), error) {
	if cfg.Postgres.DSN == "" {
		return nil, func() {}, nil
	}
	store, err := postgres.Open(cfg.Postgres.DSN, logger)
	if err != nil {
		return nil, nil, err
	}
	store.ConfigurePool(cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns, cfg.Postgres.ConnMaxLifetime)
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	cleanup := func() { _ = store.Close() }
	return store, cleanup, nil
}

func providePipeline(cfg *config.Config, logger *zap.Logger) *polyglot.ResiliencePipeline {
	return polyglot.NewResiliencePipeline("secondary-writes", polyglot.ResilienceConfig{
		FailureThreshold:    cfg.Resilience.FailureThreshold,
		MinRequests:         cfg.Resilience.MinRequests,
		Interval:            cfg.Resilience.Interval,
		OpenTimeout:         cfg.Resilience.OpenTimeout,
		HalfOpenMaxRequests: cfg.Resilience.HalfOpenMaxRequests,
		MaxRetries:          cfg.Resilience.MaxRetries,
		InitialBackoff:      cfg.Resilience.InitialBackoff,
	}, logger)
}

func provideCompensator(cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) (polyglot.Compensator, func(), error) {
	switch cfg.Compensation.Strategy {
	case "journal":
		journal, err := polyglot.NewJournal(cfg.Compensation.JournalPath, logger)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() { _ = journal.Close() }
		return journal, cleanup, nil
	case "event":
		client := awseventbridge.NewFromConfig(awsCfg)
		publisher := eventbridge.NewPublisher(client, cfg.Compensation.EventBusName, logger)
		return polyglot.NewEventCompensator(publisher, logger), func() {}, nil
	default:
		return polyglot.NewLogCompensator(logger), func() {}, nil
	}
}

func provideAdminHandler(repos *Repositories, cfg *config.Config, logger *zap.Logger) *handlers.AdminHandler {
	return handlers.NewAdminHandler(repos.Inspectors(), cfg.MigrationOptions(), logger)
}

func provideRouter(admin *handlers.AdminHandler, metrics *observability.Collector) *chi.Mux {
	return handlers.NewRouter(admin, metrics)
}
