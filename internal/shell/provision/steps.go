package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/mpetrov/dockport/internal/core/plan"
)

// probe runs a presence check and reports whether it exited zero.
func probe(ctx context.Context, r plan.Runner, cmd plan.Command) (bool, error) {
	res, err := r.Run(ctx, cmd)
	if err != nil {
		return false, err
	}
	return res.OK(), nil
}

// apply runs an install action and turns a non-zero exit into an error.
func apply(ctx context.Context, r plan.Runner, cmd plan.Command) error {
	res, err := r.Run(ctx, cmd)
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("%s: exit %d: %s", cmd, res.ExitCode, tail(res.Stdout))
	}
	return nil
}

// tail keeps error messages short when a package manager dumps pages.
func tail(out string) string {
	out = strings.TrimSpace(out)
	lines := strings.Split(out, "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// curl
// =============================================================================

// curlStep ensures curl is present; both the engine bootstrap and the
// compose fallback download depend on it.
type curlStep struct {
	pm PackageManager
}

func (s curlStep) Name() string { return "ensure-curl" }

func (s curlStep) Check(ctx context.Context, r plan.Runner) (bool, error) {
	return probe(ctx, r, plan.Cmd("command", "-v", "curl"))
}

func (s curlStep) Apply(ctx context.Context, r plan.Runner) error {
	if update, ok := s.pm.UpdateCommand(); ok {
		if err := apply(ctx, r, update); err != nil {
			return err
		}
	}
	return apply(ctx, r, s.pm.InstallCommand("curl"))
}

// =============================================================================
// Container Engine
// =============================================================================

// dockerStep installs the container engine via the vendor bootstrap script.
type dockerStep struct{}

func (s dockerStep) Name() string { return "ensure-docker" }

func (s dockerStep) Check(ctx context.Context, r plan.Runner) (bool, error) {
	return probe(ctx, r, plan.Cmd("docker", "--version"))
}

func (s dockerStep) Apply(ctx context.Context, r plan.Runner) error {
	if err := apply(ctx, r, plan.Cmd("curl", "-fsSL", "https://get.docker.com", "-o", "/tmp/get-docker.sh")); err != nil {
		return err
	}
	return apply(ctx, r, plan.Cmd("sh", "/tmp/get-docker.sh").AsRoot())
}

// =============================================================================
// Compose Plugin
// =============================================================================

const composePluginDir = "/usr/local/lib/docker/cli-plugins"

// composeStep ensures `docker compose` works. When the engine install did
// not bring the plugin, a platform-matched static binary is fetched into
// the CLI plugin directory.
type composeStep struct{}

func (s composeStep) Name() string { return "ensure-compose" }

func (s composeStep) Check(ctx context.Context, r plan.Runner) (bool, error) {
	return probe(ctx, r, plan.Cmd("docker", "compose", "version"))
}

func (s composeStep) Apply(ctx context.Context, r plan.Runner) error {
	kernel, err := unameValue(ctx, r, "-s")
	if err != nil {
		return err
	}
	arch, err := unameValue(ctx, r, "-m")
	if err != nil {
		return err
	}
	url := fmt.Sprintf("https://github.com/docker/compose/releases/latest/download/docker-compose-%s-%s",
		strings.ToLower(kernel), arch)

	pluginPath := composePluginDir + "/docker-compose"
	if err := apply(ctx, r, plan.Cmd("mkdir", "-p", composePluginDir).AsRoot()); err != nil {
		return err
	}
	if err := apply(ctx, r, plan.Cmd("curl", "-fsSL", url, "-o", pluginPath).AsRoot()); err != nil {
		return err
	}
	return apply(ctx, r, plan.Cmd("chmod", "+x", pluginPath).AsRoot())
}

func unameValue(ctx context.Context, r plan.Runner, flag string) (string, error) {
	res, err := r.Run(ctx, plan.Cmd("uname", flag))
	if err != nil {
		return "", err
	}
	if !res.OK() {
		return "", fmt.Errorf("uname %s: exit %d", flag, res.ExitCode)
	}
	return strings.TrimSpace(res.Stdout), nil
}

// =============================================================================
// Docker Group Membership
// =============================================================================

// groupStep grants the remote user container-management rights. The
// provisioner treats a failure here as a warning only.
type groupStep struct {
	user string
}

func (s groupStep) Name() string { return "ensure-docker-group" }

func (s groupStep) Check(ctx context.Context, r plan.Runner) (bool, error) {
	res, err := r.Run(ctx, plan.Cmd("id", "-nG", s.user))
	if err != nil {
		return false, err
	}
	if !res.OK() {
		return false, nil
	}
	for _, g := range strings.Fields(res.Stdout) {
		if g == "docker" {
			return true, nil
		}
	}
	return false, nil
}

func (s groupStep) Apply(ctx context.Context, r plan.Runner) error {
	return apply(ctx, r, plan.Cmd("usermod", "-aG", "docker", s.user).AsRoot())
}

// =============================================================================
// Reverse Proxy
// =============================================================================

// nginxStep installs the reverse proxy if its executable is missing.
type nginxStep struct {
	pm PackageManager
}

func (s nginxStep) Name() string { return "ensure-nginx" }

func (s nginxStep) Check(ctx context.Context, r plan.Runner) (bool, error) {
	return probe(ctx, r, plan.Cmd("command", "-v", "nginx"))
}

func (s nginxStep) Apply(ctx context.Context, r plan.Runner) error {
	if update, ok := s.pm.UpdateCommand(); ok {
		if err := apply(ctx, r, update); err != nil {
			return err
		}
	}
	return apply(ctx, r, s.pm.InstallCommand("nginx"))
}
