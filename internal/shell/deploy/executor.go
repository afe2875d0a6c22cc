// Package deploy brings the application's containers from whatever state
// the remote host holds to "newest synced version, running", and reverses
// a deployment on cleanup.
package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mpetrov/dockport/internal/core/domain"
	"github.com/mpetrov/dockport/internal/core/plan"
)

// =============================================================================
// Executor
// =============================================================================

// Executor drives the per-mode container state machine over the transport.
type Executor struct {
	runner plan.Runner
	logger *slog.Logger
}

// NewExecutor creates a deployment executor.
func NewExecutor(runner plan.Runner, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{runner: runner, logger: logger}
}

// Deploy tears down any prior deployment of the project, builds the new
// version from the synced tree and starts it. Teardown failures are
// tolerated ("already clean"); build and run failures are fatal.
func (e *Executor) Deploy(ctx context.Context, desc domain.ProjectDescriptor, target domain.DeploymentTarget) error {
	switch desc.Mode {
	case domain.ModeCompose:
		return e.deployCompose(ctx, desc)
	case domain.ModeSingleContainer:
		return e.deploySingle(ctx, desc, target)
	default:
		return fmt.Errorf("%w: unknown deployment mode %q", domain.ErrDeploy, desc.Mode)
	}
}

// =============================================================================
// Compose Mode
// =============================================================================

func (e *Executor) deployCompose(ctx context.Context, desc domain.ProjectDescriptor) error {
	dir := desc.RemotePath

	// Teardown-prior: nothing to stop is fine.
	e.tolerate(ctx, plan.Cmd("docker", "compose", "down", "--remove-orphans").InDir(dir), "compose down")

	// Pull may fail for images that only exist from a prior local build.
	e.tolerate(ctx, plan.Cmd("docker", "compose", "pull").InDir(dir), "compose pull")

	if err := e.require(ctx, plan.Cmd("docker", "compose", "build").InDir(dir)); err != nil {
		return err
	}
	if err := e.require(ctx, plan.Cmd("docker", "compose", "up", "-d").InDir(dir)); err != nil {
		return err
	}

	e.logger.Info("compose deployment running", "project", desc.RepoName)
	return nil
}

// =============================================================================
// Single-Container Mode
// =============================================================================

func (e *Executor) deploySingle(ctx context.Context, desc domain.ProjectDescriptor, target domain.DeploymentTarget) error {
	name := domain.ContainerName(desc.RepoName)
	tag := domain.ImageTag(desc.RepoName)

	// Teardown-prior: force-remove the named container if present.
	if e.containerExists(ctx, name) {
		e.tolerate(ctx, plan.Cmd("docker", "rm", "-f", name), "remove prior container")
	}

	// Always build from the current context; the engine's own layer cache
	// is the only cache assumption.
	if err := e.require(ctx, plan.Cmd("docker", "build", "-t", tag, ".").InDir(desc.RemotePath)); err != nil {
		return err
	}

	// Loopback-only binding: the reverse proxy is the sole public entry.
	binding := fmt.Sprintf("127.0.0.1:%d:%d", target.AppPort, target.AppPort)
	run := plan.Cmd("docker", "run", "-d",
		"--name", name,
		"--restart", "unless-stopped",
		"-p", binding,
		tag,
	)
	if err := e.require(ctx, run); err != nil {
		return err
	}

	e.logger.Info("container running", "name", name, "binding", binding)
	return nil
}

// containerExists looks up a container by its deterministic name.
func (e *Executor) containerExists(ctx context.Context, name string) bool {
	res, err := e.run(ctx, plan.Cmd("docker", "ps", "-aq", "--filter", "name=^"+name+"$"))
	if err != nil || !res.OK() {
		return false
	}
	return strings.TrimSpace(res.Stdout) != ""
}

// =============================================================================
// Command Helpers
// =============================================================================

// run executes a command, retrying once with sudo when the engine socket
// rejects the unprivileged user (the group grant is allowed to fail).
func (e *Executor) run(ctx context.Context, cmd plan.Command) (plan.Result, error) {
	res, err := e.runner.Run(ctx, cmd)
	if err != nil {
		return res, err
	}
	if !res.OK() && !cmd.Sudo && strings.Contains(res.Stdout, "permission denied") {
		e.logger.Debug("retrying with sudo", "cmd", cmd.String())
		return e.runner.Run(ctx, cmd.AsRoot())
	}
	return res, nil
}

// require runs a command whose failure aborts the deployment attempt.
func (e *Executor) require(ctx context.Context, cmd plan.Command) error {
	e.logger.Info("deploy step", "cmd", cmd.String())
	res, err := e.run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDeploy, err)
	}
	if !res.OK() {
		return fmt.Errorf("%w: %s: exit %d: %s", domain.ErrDeploy, cmd, res.ExitCode, lastLines(res.Stdout))
	}
	return nil
}

// tolerate runs a command whose failure merely means "already clean".
func (e *Executor) tolerate(ctx context.Context, cmd plan.Command, what string) {
	res, err := e.run(ctx, cmd)
	if err != nil {
		e.logger.Warn(what+" failed", "error", err)
		return
	}
	if !res.OK() {
		e.logger.Warn(what+" skipped", "exit", res.ExitCode, "output", lastLines(res.Stdout))
	}
}

func lastLines(out string) string {
	out = strings.TrimSpace(out)
	lines := strings.Split(out, "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, "\n")
}
