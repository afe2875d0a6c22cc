package stager

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpetrov/dockport/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func writeCompose(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docker-compose.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateComposeFile_Valid(t *testing.T) {
	path := writeCompose(t, `
services:
  web:
    image: nginx:alpine
    ports:
      - "8080:80"
  worker:
    image: busybox
`)
	assert.NoError(t, ValidateComposeFile(path, "myapp", testLogger()))
}

func TestValidateComposeFile_BuildOnlyService(t *testing.T) {
	path := writeCompose(t, `
services:
  app:
    build: .
`)
	assert.NoError(t, ValidateComposeFile(path, "myapp", testLogger()))
}

func TestValidateComposeFile_InvalidYAML(t *testing.T) {
	path := writeCompose(t, "services:\n  web:\n   image: [unclosed")
	err := ValidateComposeFile(path, "myapp", testLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStaging)
}

func TestValidateComposeFile_NoServices(t *testing.T) {
	path := writeCompose(t, "services: {}\n")
	err := ValidateComposeFile(path, "myapp", testLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStaging)
}

func TestValidateComposeFile_Missing(t *testing.T) {
	err := ValidateComposeFile(filepath.Join(t.TempDir(), "nope.yml"), "myapp", testLogger())
	assert.ErrorIs(t, err, domain.ErrStaging)
}

// =============================================================================
// Auth URL Tests
// =============================================================================

func TestAuthURL(t *testing.T) {
	u, err := authURL("https://github.com/acme/myapp.git", "tok123")
	require.NoError(t, err)
	assert.Equal(t, "https://tok123@github.com/acme/myapp.git", u)

	u, err = authURL("https://github.com/acme/myapp.git", "")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/myapp.git", u)

	u, err = authURL("git@github.com:acme/myapp.git", "tok123")
	require.NoError(t, err)
	assert.Equal(t, "git@github.com:acme/myapp.git", u)
}
