package stager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpetrov/dockport/internal/core/domain"
)

// =============================================================================
// Descriptor Detection Tests
// =============================================================================

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
}

func TestDetectMode_Compose(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "docker-compose.yml")

	mode, file, err := DetectMode(dir)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeCompose, mode)
	assert.Equal(t, "docker-compose.yml", file)
}

func TestDetectMode_ComposeBeatsDockerfile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Dockerfile")
	writeFile(t, dir, "compose.yaml")

	mode, file, err := DetectMode(dir)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeCompose, mode)
	assert.Equal(t, "compose.yaml", file)
}

func TestDetectMode_CandidateOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "docker-compose.yaml")
	writeFile(t, dir, "compose.yml")

	_, file, err := DetectMode(dir)
	require.NoError(t, err)
	assert.Equal(t, "docker-compose.yaml", file)
}

func TestDetectMode_Dockerfile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Dockerfile")

	mode, file, err := DetectMode(dir)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeSingleContainer, mode)
	assert.Equal(t, "Dockerfile", file)
}

func TestDetectMode_NeitherIsFatal(t *testing.T) {
	_, _, err := DetectMode(t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStaging)
}

func TestDetectMode_DirectoryDoesNotCount(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Dockerfile"), 0o755))

	_, _, err := DetectMode(dir)
	assert.ErrorIs(t, err, domain.ErrStaging)
}
