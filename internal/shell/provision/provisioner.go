package provision

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mpetrov/dockport/internal/core/domain"
	"github.com/mpetrov/dockport/internal/core/plan"
)

// =============================================================================
// Provisioner
// =============================================================================

// Provisioner ensures the container engine, compose plugin and reverse
// proxy are installed and running on the remote host without disrupting
// state that is already correct.
type Provisioner struct {
	runner plan.Runner
	target domain.DeploymentTarget
	logger *slog.Logger
}

// New creates a provisioner.
func New(runner plan.Runner, target domain.DeploymentTarget, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{runner: runner, target: target, logger: logger}
}

// Ensure runs the full provisioning sequence. Every step is skip-if-present;
// re-running against any prior state converges. Any install failure aborts
// with a provisioning error and leaves partial installs in place, since the
// sequence is safe to re-run.
func (p *Provisioner) Ensure(ctx context.Context, rc *domain.RunContext) error {
	pm, err := DetectPackageManager(ctx, p.runner)
	if err != nil {
		return err
	}
	rc.PackageManager = string(pm)
	p.logger.Info("detected package manager", "manager", string(pm))

	steps := []plan.Step{
		curlStep{pm: pm},
		dockerStep{},
		composeStep{},
		nginxStep{pm: pm},
	}
	for _, s := range steps {
		status, err := plan.RunStep(ctx, p.runner, s, p.logger)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrProvisioning, err)
		}
		p.logger.Info("provisioning step done", "step", s.Name(), "status", status.String())
	}

	// Group membership is best-effort: later steps may still succeed via
	// elevated privileges even when the grant fails.
	grant := groupStep{user: p.target.RemoteUser}
	if status, err := plan.RunStep(ctx, p.runner, grant, p.logger); err != nil {
		p.logger.Warn("docker group grant failed", "user", p.target.RemoteUser, "error", err)
		rc.Warn(fmt.Sprintf("could not add %s to docker group: %v", p.target.RemoteUser, err))
	} else {
		p.logger.Info("provisioning step done", "step", grant.Name(), "status", status.String())
	}

	p.ensureNginxRunning(ctx)
	return nil
}

// ensureNginxRunning enables and starts the proxy service when a service
// manager exists. Hosts without one are skipped silently; the proxy package
// falls back to an in-process reload signal later.
func (p *Provisioner) ensureNginxRunning(ctx context.Context) {
	res, err := p.runner.Run(ctx, plan.Cmd("command", "-v", "systemctl"))
	if err != nil || !res.OK() {
		p.logger.Debug("no service manager, skipping nginx service setup")
		return
	}

	res, err = p.runner.Run(ctx, plan.Cmd("systemctl", "enable", "--now", "nginx").AsRoot())
	if err != nil {
		p.logger.Warn("nginx service setup failed", "error", err)
		return
	}
	if !res.OK() {
		p.logger.Warn("nginx service setup failed", "exit", res.ExitCode)
		return
	}
	p.logger.Info("nginx service enabled and started")
}
