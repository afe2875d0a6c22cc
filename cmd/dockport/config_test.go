package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpetrov/dockport/internal/core/domain"
)

// =============================================================================
// Config Loading Tests
// =============================================================================

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "./workspace", cfg.Deploy.WorkDir)
	assert.Equal(t, 0, cfg.Deploy.AppPort)
	assert.Equal(t, 10*time.Second, cfg.SSH.ConnectTimeout)
	assert.Equal(t, 10*time.Minute, cfg.SSH.CommandTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "./logs", cfg.Log.Dir)
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
deploy:
  repo_url: https://github.com/acme/myapp.git
  branch: develop
  remote_user: deploy
  remote_host: 203.0.113.10
  app_port: 3000
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://github.com/acme/myapp.git", cfg.Deploy.RepoURL)
	assert.Equal(t, "develop", cfg.Deploy.Branch)
	assert.Equal(t, 3000, cfg.Deploy.AppPort)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	// Untouched sections keep their defaults.
	assert.Equal(t, "./workspace", cfg.Deploy.WorkDir)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("deploy: [not: a map"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("DOCKPORT_DEPLOY_TOKEN", "tok-from-env")
	t.Setenv("DOCKPORT_LOG_LEVEL", "warn")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "tok-from-env", cfg.Deploy.Token)
	assert.Equal(t, "warn", cfg.Log.Level)
}

// =============================================================================
// Logger Setup Tests
// =============================================================================

func TestSetupLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&Config{Log: LogConfig{Level: "info", Format: "json"}}, &buf)
	logger.Info("hello")

	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestSetupLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&Config{Log: LogConfig{Level: "warn", Format: "text"}}, &buf)

	logger.Info("quiet")
	logger.Warn("loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}

// =============================================================================
// Exit Code Tests
// =============================================================================

func TestExitCodeFor(t *testing.T) {
	wrap := func(sentinel error) error {
		return fmt.Errorf("%w: detail", sentinel)
	}

	assert.Equal(t, ExitInputError, exitCodeFor(wrap(domain.ErrInvalidInput)))
	assert.Equal(t, ExitStagingError, exitCodeFor(wrap(domain.ErrStaging)))
	assert.Equal(t, ExitConnectivityError, exitCodeFor(wrap(domain.ErrConnectivity)))
	assert.Equal(t, ExitProvisionError, exitCodeFor(wrap(domain.ErrProvisioning)))
	assert.Equal(t, ExitDeployError, exitCodeFor(wrap(domain.ErrDeploy)))
	assert.Equal(t, ExitDeployError, exitCodeFor(errors.New("uncategorized")))
}
