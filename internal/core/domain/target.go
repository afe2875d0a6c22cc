package domain

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// =============================================================================
// Deployment Target
// =============================================================================

// DeploymentTarget identifies the single remote host a run operates on.
// It is immutable once collected.
type DeploymentTarget struct {
	RemoteUser string
	RemoteHost string
	SSHKeyPath string
	AppPort    int
}

// Address returns the SSH address in host:port format.
func (t DeploymentTarget) Address() string {
	return net.JoinHostPort(t.RemoteHost, "22")
}

// Validate checks that every field required to open a remote session is
// present and well-formed.
func (t DeploymentTarget) Validate() error {
	if strings.TrimSpace(t.RemoteUser) == "" {
		return fmt.Errorf("%w: remote user is required", ErrInvalidInput)
	}
	if strings.TrimSpace(t.RemoteHost) == "" {
		return fmt.Errorf("%w: remote host is required", ErrInvalidInput)
	}
	if strings.TrimSpace(t.SSHKeyPath) == "" {
		return fmt.Errorf("%w: SSH key path is required", ErrInvalidInput)
	}
	if t.AppPort <= 0 || t.AppPort > 65535 {
		return fmt.Errorf("%w: app port must be in 1-65535, got %d", ErrInvalidInput, t.AppPort)
	}
	return nil
}

// ParseAppPort validates a user-supplied port string.
func ParseAppPort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: app port %q is not a number", ErrInvalidInput, s)
	}
	if port <= 0 || port > 65535 {
		return 0, fmt.Errorf("%w: app port must be in 1-65535, got %d", ErrInvalidInput, port)
	}
	return port, nil
}
