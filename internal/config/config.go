// Package config loads and validates the service configuration from
// defaults, an optional YAML file, and environment variables, in that order
// of increasing priority.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"mystira-backend/internal/migration"
)

// Config is the full service configuration.
type Config struct {
	Environment string `yaml:"environment" validate:"required,oneof=development staging production"`

	Server        ServerConfig        `yaml:"server"`
	Migration     MigrationConfig     `yaml:"migration"`
	DynamoDB      DynamoDBConfig      `yaml:"dynamodb"`
	Postgres      PostgresConfig      `yaml:"postgres"`
	Resilience    ResilienceConfig    `yaml:"resilience"`
	Compensation  CompensationConfig  `yaml:"compensation"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig tunes the admin HTTP server.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// MigrationConfig selects the phase and dual-write behavior. The phase is
// read once at startup; changing it requires a restart so both backends see
// a single consistent authority for the life of the process.
type MigrationConfig struct {
	Phase              string        `yaml:"phase" validate:"required"`
	DualWriteTimeout   time.Duration `yaml:"dualWriteTimeout" validate:"min=0"`
	EnableCompensation bool          `yaml:"enableCompensation"`
}

// DynamoDBConfig configures the document backend.
type DynamoDBConfig struct {
	TableName string `yaml:"tableName" validate:"required"`
	Region    string `yaml:"region" validate:"required"`
	Endpoint  string `yaml:"endpoint"` // local development override
}

// PostgresConfig configures the relational backend.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"maxOpenConns" validate:"min=1"`
	MaxIdleConns    int           `yaml:"maxIdleConns" validate:"min=0"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// ResilienceConfig tunes the secondary-write pipeline.
type ResilienceConfig struct {
	FailureThreshold    float64       `yaml:"failureThreshold" validate:"gt=0,lte=1"`
	MinRequests         uint32        `yaml:"minRequests" validate:"min=1"`
	Interval            time.Duration `yaml:"interval"`
	OpenTimeout         time.Duration `yaml:"openTimeout"`
	HalfOpenMaxRequests uint32        `yaml:"halfOpenMaxRequests" validate:"min=1"`
	MaxRetries          uint64        `yaml:"maxRetries"`
	InitialBackoff      time.Duration `yaml:"initialBackoff"`
}

// CompensationConfig selects the failed-write strategy.
type CompensationConfig struct {
	// Strategy is one of "log", "journal", or "event".
	Strategy string `yaml:"strategy" validate:"oneof=log journal event"`
	// JournalPath is the SQLite file used by the journal strategy.
	JournalPath string `yaml:"journalPath"`
	// EventBusName is the EventBridge bus used by the event strategy.
	EventBusName string `yaml:"eventBusName"`
}

// ObservabilityConfig configures tracing.
type ObservabilityConfig struct {
	TracingEnabled bool   `yaml:"tracingEnabled"`
	OTLPEndpoint   string `yaml:"otlpEndpoint"`
	ServiceName    string `yaml:"serviceName"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// Validate checks structural constraints plus the cross-field rules the
// validator tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	phase, err := migration.ParsePhase(c.Migration.Phase)
	if err != nil {
		return fmt.Errorf("invalid migration phase %q: %w", c.Migration.Phase, err)
	}
	if phase.DualWrite() && c.Migration.DualWriteTimeout <= 0 {
		return fmt.Errorf("dualWriteTimeout must be positive in phase %s", phase)
	}
	if c.Compensation.Strategy == "journal" && c.Compensation.JournalPath == "" {
		return fmt.Errorf("journalPath is required for the journal compensation strategy")
	}
	if c.Compensation.Strategy == "event" && c.Compensation.EventBusName == "" {
		return fmt.Errorf("eventBusName is required for the event compensation strategy")
	}
	if c.Postgres.DSN == "" && phase != migration.PhasePrimaryOnly {
		return fmt.Errorf("postgres.dsn is required in phase %s", phase)
	}
	return nil
}

// Phase returns the parsed migration phase. Validate must have succeeded.
func (c *Config) Phase() migration.Phase {
	phase, _ := migration.ParsePhase(c.Migration.Phase)
	return phase
}

// MigrationOptions converts the raw configuration into the options consumed
// by the polyglot repositories.
func (c *Config) MigrationOptions() migration.Options {
	return migration.Options{
		Phase:              c.Phase(),
		DualWriteTimeout:   c.Migration.DualWriteTimeout,
		EnableCompensation: c.Migration.EnableCompensation,
	}
}

// Address returns the host:port the admin server listens on.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
