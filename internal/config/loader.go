package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load builds the configuration from three layers, lowest priority first:
// built-in defaults, the YAML file at path (skipped when path is empty or
// the file does not exist), and environment variables. The result is
// validated before being returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Fall through to env-only configuration.
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration. It runs primary-only against
// local endpoints, so a fresh checkout works without any setup.
func Default() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Migration: MigrationConfig{
			Phase:              "primary_only",
			DualWriteTimeout:   2 * time.Second,
			EnableCompensation: false,
		},
		DynamoDB: DynamoDBConfig{
			TableName: "mystira-entities",
			Region:    "us-east-1",
		},
		Postgres: PostgresConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Resilience: ResilienceConfig{
			FailureThreshold:    0.5,
			MinRequests:         5,
			Interval:            30 * time.Second,
			OpenTimeout:         15 * time.Second,
			HalfOpenMaxRequests: 3,
			MaxRetries:          3,
			InitialBackoff:      100 * time.Millisecond,
		},
		Compensation: CompensationConfig{
			Strategy:    "log",
			JournalPath: "dual-write-journal.db",
		},
		Observability: ObservabilityConfig{
			TracingEnabled: false,
			OTLPEndpoint:   "localhost:4317",
			ServiceName:    "mystira-backend",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// applyEnv overlays environment variables, the highest-priority source.
func applyEnv(cfg *Config) {
	setString(&cfg.Environment, "ENVIRONMENT")

	setString(&cfg.Server.Host, "SERVER_HOST")
	setInt(&cfg.Server.Port, "SERVER_PORT")

	setString(&cfg.Migration.Phase, "MIGRATION_PHASE")
	setDuration(&cfg.Migration.DualWriteTimeout, "MIGRATION_DUAL_WRITE_TIMEOUT")
	setBool(&cfg.Migration.EnableCompensation, "MIGRATION_ENABLE_COMPENSATION")

	setString(&cfg.DynamoDB.TableName, "DYNAMODB_TABLE_NAME")
	setString(&cfg.DynamoDB.Region, "AWS_REGION")
	setString(&cfg.DynamoDB.Endpoint, "DYNAMODB_ENDPOINT")

	setString(&cfg.Postgres.DSN, "POSTGRES_DSN")
	setInt(&cfg.Postgres.MaxOpenConns, "POSTGRES_MAX_OPEN_CONNS")

	setString(&cfg.Compensation.Strategy, "COMPENSATION_STRATEGY")
	setString(&cfg.Compensation.JournalPath, "COMPENSATION_JOURNAL_PATH")
	setString(&cfg.Compensation.EventBusName, "COMPENSATION_EVENT_BUS")

	setBool(&cfg.Observability.TracingEnabled, "TRACING_ENABLED")
	setString(&cfg.Observability.OTLPEndpoint, "OTLP_ENDPOINT")

	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setInt(dst *int, key string) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
