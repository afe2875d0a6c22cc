// Package provision idempotently ensures the remote host carries the tools
// a deployment needs: container engine, compose plugin and reverse proxy.
package provision

import (
	"context"
	"fmt"

	"github.com/mpetrov/dockport/internal/core/domain"
	"github.com/mpetrov/dockport/internal/core/plan"
)

// PackageManager is the remote host's package-manager executable.
type PackageManager string

const (
	AptGet PackageManager = "apt-get"
	Dnf    PackageManager = "dnf"
	Yum    PackageManager = "yum"
)

// detectionOrder is the fixed probe priority.
var detectionOrder = []PackageManager{AptGet, Dnf, Yum}

// DetectPackageManager probes for known package-manager executables in
// priority order. No match is an unsupported-platform error.
func DetectPackageManager(ctx context.Context, r plan.Runner) (PackageManager, error) {
	for _, pm := range detectionOrder {
		res, err := r.Run(ctx, plan.Cmd("command", "-v", string(pm)))
		if err != nil {
			return "", fmt.Errorf("%w: probe %s: %v", domain.ErrProvisioning, pm, err)
		}
		if res.OK() {
			return pm, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported platform: no known package manager found", domain.ErrProvisioning)
}

// InstallCommand builds the non-interactive install command for a package.
func (pm PackageManager) InstallCommand(pkg string) plan.Command {
	return plan.Cmd(string(pm), "install", "-y", pkg).AsRoot()
}

// UpdateCommand refreshes the package index where the manager needs it.
// dnf and yum resolve metadata on install, so only apt-get gets one.
func (pm PackageManager) UpdateCommand() (plan.Command, bool) {
	if pm == AptGet {
		return plan.Cmd("apt-get", "update", "-y").AsRoot(), true
	}
	return plan.Command{}, false
}
