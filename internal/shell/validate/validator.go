// Package validate produces the best-effort post-deploy health report. It
// never gates overall success; results are logged and returned for the
// final summary.
package validate

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mpetrov/dockport/internal/core/domain"
	"github.com/mpetrov/dockport/internal/core/plan"
)

// ProbeTimeout bounds each HTTP probe.
const ProbeTimeout = 10 * time.Second

// Report is the post-deploy health summary.
type Report struct {
	EngineActive  bool
	Containers    []string
	ProxyConfigOK bool
	RemoteProbeOK bool
	PublicProbeOK bool
}

// Validator runs the health checks.
type Validator struct {
	runner plan.Runner
	logger *slog.Logger

	// httpClient is swappable in tests.
	httpClient *http.Client
}

// New creates a validator.
func New(runner plan.Runner, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		runner:     runner,
		logger:     logger,
		httpClient: &http.Client{Timeout: ProbeTimeout},
	}
}

// Validate runs every check, logging each result. Probe failures are
// warnings: the public probe in particular can fail for reasons outside
// this system's control (firewall, security group, DNS).
func (v *Validator) Validate(ctx context.Context, desc domain.ProjectDescriptor, target domain.DeploymentTarget) Report {
	var rep Report

	rep.EngineActive = v.engineActive(ctx)
	rep.Containers = v.listContainers(ctx, desc.RepoName)
	rep.ProxyConfigOK = v.proxyConfigOK(ctx)
	rep.RemoteProbeOK = v.remoteProbe(ctx, target.AppPort)
	rep.PublicProbeOK = v.publicProbe(target.RemoteHost)

	v.logger.Info("health report",
		"engine_active", rep.EngineActive,
		"containers", len(rep.Containers),
		"proxy_config_ok", rep.ProxyConfigOK,
		"remote_probe_ok", rep.RemoteProbeOK,
		"public_probe_ok", rep.PublicProbeOK,
	)
	return rep
}

// engineActive checks the engine's service state where a service manager
// exists, falling back to an engine ping.
func (v *Validator) engineActive(ctx context.Context) bool {
	res, err := v.runner.Run(ctx, plan.Cmd("systemctl", "is-active", "docker"))
	if err == nil && res.OK() {
		return true
	}
	res, err = v.runner.Run(ctx, plan.Cmd("docker", "info"))
	return err == nil && res.OK()
}

// listContainers logs the containers the engine reports for this project.
func (v *Validator) listContainers(ctx context.Context, repoName string) []string {
	res, err := v.runner.Run(ctx, plan.Cmd("docker", "ps", "--format", "{{.Names}}\t{{.Status}}"))
	if err != nil || !res.OK() {
		v.logger.Warn("container listing failed")
		return nil
	}

	var ours []string
	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		if line == "" {
			continue
		}
		if strings.Contains(line, repoName) {
			ours = append(ours, line)
			v.logger.Info("container", "entry", line)
		}
	}
	if len(ours) == 0 {
		v.logger.Warn("no running containers match project", "project", repoName)
	}
	return ours
}

func (v *Validator) proxyConfigOK(ctx context.Context) bool {
	res, err := v.runner.Run(ctx, plan.Cmd("nginx", "-t").AsRoot())
	return err == nil && res.OK()
}

// remoteProbe curls the app port from the remote host itself: validates the
// container serves something, independent of the reverse proxy.
func (v *Validator) remoteProbe(ctx context.Context, appPort int) bool {
	url := fmt.Sprintf("http://127.0.0.1:%d/", appPort)
	res, err := v.runner.Run(ctx, plan.Cmd("curl", "-sf", "-o", "/dev/null", "-m", "10", url))
	if err != nil || !res.OK() {
		v.logger.Warn("remote HTTP probe failed", "url", url)
		return false
	}
	return true
}

// publicProbe hits port 80 from the invoking machine: validates the full
// public path through the proxy. Timeout counts as probe failure, never
// fatal.
func (v *Validator) publicProbe(host string) bool {
	url := fmt.Sprintf("http://%s/", host)
	resp, err := v.httpClient.Get(url)
	if err != nil {
		v.logger.Warn("public HTTP probe failed", "url", url, "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return true
	}
	v.logger.Warn("public HTTP probe returned error status", "url", url, "status", resp.StatusCode)
	return false
}
