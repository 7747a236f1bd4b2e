package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mystira-backend/internal/config"
)

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestWatcherReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "environment: development\nserver:\n  port: 9000\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	w, err := config.NewWatcher(path, cfg, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	reloaded := make(chan *config.Config, 1)
	w.OnChange(func(c *config.Config) { reloaded <- c })

	writeConfig(t, path, "environment: development\nserver:\n  port: 9001\n")

	select {
	case next := <-reloaded:
		assert.Equal(t, 9001, next.Server.Port)
		assert.Equal(t, 9001, w.Current().Server.Port)
	case <-time.After(5 * time.Second):
		t.Fatal("reload did not fire")
	}
}

func TestWatcherRefusesPhaseChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "environment: development\nmigration:\n  phase: primary_only\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	w, err := config.NewWatcher(path, cfg, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	reloaded := make(chan *config.Config, 1)
	w.OnChange(func(c *config.Config) { reloaded <- c })

	writeConfig(t, path,
		"environment: development\nmigration:\n  phase: dual_write_primary_read\n  dualWriteTimeout: 2s\npostgres:\n  dsn: postgres://app@localhost/mystira\n")

	select {
	case <-reloaded:
		t.Fatal("a phase change must not be applied at runtime")
	case <-time.After(2 * time.Second):
	}
	assert.Equal(t, "primary_only", w.Current().Migration.Phase)
}

func TestWatcherInactiveOutsideDevelopment(t *testing.T) {
	cfg := config.Default()
	cfg.Environment = "production"

	w, err := config.NewWatcher("config.yaml", cfg, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	assert.Equal(t, cfg, w.Current())
}
