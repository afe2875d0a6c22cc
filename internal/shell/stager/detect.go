package stager

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mpetrov/dockport/internal/core/domain"
)

// ComposeCandidates are checked in order; the first present file selects
// Compose mode regardless of whether a Dockerfile also exists.
var ComposeCandidates = []string{
	"docker-compose.yml",
	"docker-compose.yaml",
	"compose.yml",
	"compose.yaml",
}

// DockerfileName is the single-container build file.
const DockerfileName = "Dockerfile"

// DetectMode inspects the repository root and selects the deployment mode.
// Compose descriptors take priority over a Dockerfile; absence of both is a
// fatal precondition failure.
func DetectMode(dir string) (domain.DeploymentMode, string, error) {
	for _, name := range ComposeCandidates {
		if fileExists(filepath.Join(dir, name)) {
			return domain.ModeCompose, name, nil
		}
	}
	if fileExists(filepath.Join(dir, DockerfileName)) {
		return domain.ModeSingleContainer, DockerfileName, nil
	}
	return "", "", fmt.Errorf("%w: no compose file or Dockerfile in %s", domain.ErrStaging, dir)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
