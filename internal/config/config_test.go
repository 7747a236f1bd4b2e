package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mystira-backend/internal/config"
	"mystira-backend/internal/migration"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, migration.PhasePrimaryOnly, cfg.Phase())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "log", cfg.Compensation.Strategy)
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
environment: production
migration:
  phase: dual_write_primary_read
  dualWriteTimeout: 3s
  enableCompensation: true
postgres:
  dsn: postgres://app@localhost/mystira
server:
  port: 9000
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, migration.PhaseDualWritePrimaryRead, cfg.Phase())
	assert.Equal(t, 3*time.Second, cfg.Migration.DualWriteTimeout)
	assert.True(t, cfg.Migration.EnableCompensation)
	assert.Equal(t, 9000, cfg.Server.Port)
	// Unspecified sections keep their defaults.
	assert.Equal(t, "us-east-1", cfg.DynamoDB.Region)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644))

	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("MIGRATION_PHASE", "dual_write_secondary_read")
	t.Setenv("MIGRATION_DUAL_WRITE_TIMEOUT", "5s")
	t.Setenv("POSTGRES_DSN", "postgres://app@localhost/mystira")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, migration.PhaseDualWriteSecondaryRead, cfg.Phase())
	assert.Equal(t, 5*time.Second, cfg.Migration.DualWriteTimeout)
}

func TestMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
}

func TestValidationRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown phase", func(c *config.Config) {
			c.Migration.Phase = "sideways"
		}},
		{"dual write without timeout", func(c *config.Config) {
			c.Migration.Phase = "dual_write_primary_read"
			c.Migration.DualWriteTimeout = 0
			c.Postgres.DSN = "postgres://app@localhost/mystira"
		}},
		{"dual write without postgres dsn", func(c *config.Config) {
			c.Migration.Phase = "dual_write_primary_read"
		}},
		{"journal strategy without path", func(c *config.Config) {
			c.Compensation.Strategy = "journal"
			c.Compensation.JournalPath = ""
		}},
		{"event strategy without bus", func(c *config.Config) {
			c.Compensation.Strategy = "event"
		}},
		{"bad environment", func(c *config.Config) {
			c.Environment = "qa"
		}},
		{"bad log level", func(c *config.Config) {
			c.Logging.Level = "verbose"
		}},
		{"port out of range", func(c *config.Config) {
			c.Server.Port = 70000
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestMigrationOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Migration.Phase = "dual_write_primary_read"
	cfg.Migration.DualWriteTimeout = 2 * time.Second
	cfg.Migration.EnableCompensation = true

	opts := cfg.MigrationOptions()
	assert.Equal(t, migration.PhaseDualWritePrimaryRead, opts.Phase)
	assert.Equal(t, 2*time.Second, opts.DualWriteTimeout)
	assert.True(t, opts.EnableCompensation)
}
