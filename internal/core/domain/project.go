package domain

import (
	"fmt"
	"path"
	"strings"
)

// =============================================================================
// Deployment Mode
// =============================================================================

// DeploymentMode selects how the application's containers are driven.
type DeploymentMode string

const (
	// ModeCompose deploys via a multi-service compose descriptor.
	ModeCompose DeploymentMode = "compose"
	// ModeSingleContainer deploys exactly one container built from a Dockerfile.
	ModeSingleContainer DeploymentMode = "single-container"
)

// =============================================================================
// Project Descriptor
// =============================================================================

// RemoteBaseDir is the fixed base directory on the remote host holding one
// subdirectory per deployed project.
const RemoteBaseDir = "/opt/dockport/apps"

// ProjectDescriptor describes the application being deployed. It is derived
// once from the repository contents and not mutated afterwards.
type ProjectDescriptor struct {
	RepoName       string
	LocalPath      string
	RemotePath     string
	Mode           DeploymentMode
	Branch         string
	DescriptorFile string // compose file or Dockerfile that selected the mode
}

// Validate checks the invariant that exactly one deployment mode was selected.
func (p ProjectDescriptor) Validate() error {
	if p.RepoName == "" {
		return fmt.Errorf("%w: repository name is empty", ErrStaging)
	}
	switch p.Mode {
	case ModeCompose, ModeSingleContainer:
	default:
		return fmt.Errorf("%w: no deployment descriptor found (compose file or Dockerfile)", ErrStaging)
	}
	return nil
}

// RepoNameFromURL derives the project name from a repository URL.
//
// Example:
//
//	RepoNameFromURL("https://github.com/acme/myapp.git") // returns "myapp"
func RepoNameFromURL(repoURL string) string {
	name := path.Base(strings.TrimSuffix(strings.TrimSuffix(repoURL, "/"), ".git"))
	name = strings.TrimSuffix(name, ".git")
	if name == "." || name == "/" {
		return ""
	}
	return Slugify(name)
}

// RemoteProjectPath returns the project directory under the fixed remote base.
func RemoteProjectPath(repoName string) string {
	return path.Join(RemoteBaseDir, repoName)
}

// =============================================================================
// Resource Naming
// =============================================================================

// ContainerName generates the deterministic container name for a
// single-container deployment.
// Pattern: dockport_{repoName}
func ContainerName(repoName string) string {
	return fmt.Sprintf("dockport_%s", repoName)
}

// ImageTag generates the deterministic image tag for a single-container build.
// Pattern: dockport/{repoName}:latest
func ImageTag(repoName string) string {
	return fmt.Sprintf("dockport/%s:latest", repoName)
}

// =============================================================================
// Slug Generation
// =============================================================================

// Slugify converts a name to a DNS- and filesystem-safe slug.
//
// Lowercase letters, digits and hyphens are kept, uppercase is lowered,
// spaces, underscores and dots become hyphens, everything else is dropped.
func Slugify(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + 32)
		case r == ' ' || r == '_' || r == '.':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
