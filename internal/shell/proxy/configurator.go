// Package proxy writes and activates the reverse-proxy site configuration
// on the remote host and manages proxy reloads.
package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mpetrov/dockport/internal/core/domain"
	"github.com/mpetrov/dockport/internal/core/nginx"
	"github.com/mpetrov/dockport/internal/core/plan"
)

// RemoteHost is the transport capability the configurator needs.
type RemoteHost interface {
	plan.Runner
	WriteFile(ctx context.Context, remotePath, content string, sudo bool) error
}

// Configurator manages one project's site config on the remote host.
type Configurator struct {
	host   RemoteHost
	logger *slog.Logger
}

// NewConfigurator creates a proxy configurator.
func NewConfigurator(host RemoteHost, logger *slog.Logger) *Configurator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Configurator{host: host, logger: logger}
}

// =============================================================================
// Apply
// =============================================================================

// Apply replaces the site configuration for the project: write the body to
// sites-available, refresh the activation symlink (link overwrite = atomic
// replace), validate the whole proxy config, then reload.
//
// An invalid config is a remote-setup error and the proxy is NOT reloaded;
// the previous service instance keeps serving its last-loaded config and
// the new file is left in place for the operator to inspect.
//
// A reload failure on a site that was newly activated this run is also
// fatal: the deployment would otherwise be "complete" but unreachable. On a
// refresh of an existing site it is downgraded to a warning.
func (c *Configurator) Apply(ctx context.Context, site nginx.Site, rc *domain.RunContext) error {
	newSite := !c.enabled(ctx, site)

	if err := c.host.WriteFile(ctx, site.AvailablePath(), site.Render(), true); err != nil {
		return fmt.Errorf("%w: write site config: %v", domain.ErrProvisioning, err)
	}

	res, err := c.host.Run(ctx, plan.Cmd("ln", "-sfn", site.AvailablePath(), site.EnabledPath()).AsRoot())
	if err != nil {
		return fmt.Errorf("%w: activate site: %v", domain.ErrProvisioning, err)
	}
	if !res.OK() {
		return fmt.Errorf("%w: activate site: exit %d: %s", domain.ErrProvisioning, res.ExitCode, strings.TrimSpace(res.Stdout))
	}

	if ok, detail := c.configValid(ctx); !ok {
		return fmt.Errorf("%w: proxy config validation failed, not reloading: %s", domain.ErrProvisioning, detail)
	}

	if err := c.reload(ctx); err != nil {
		if newSite {
			return fmt.Errorf("%w: reload failed for newly activated site %s: %v", domain.ErrProvisioning, site.RepoName, err)
		}
		c.logger.Warn("proxy reload failed, stale config still serving", "site", site.RepoName, "error", err)
		rc.Warn(fmt.Sprintf("proxy reload failed: %v", err))
		return nil
	}

	c.logger.Info("proxy site active",
		"site", site.RepoName,
		"config", site.AvailablePath(),
		"upstream", fmt.Sprintf("127.0.0.1:%d", site.AppPort),
	)
	return nil
}

// =============================================================================
// Remove
// =============================================================================

// Remove deletes both site-config paths unconditionally, then reloads only
// if the remaining proxy config still validates. A failing validation after
// removal is non-fatal: other sites on the host are not ours to fix.
func (c *Configurator) Remove(ctx context.Context, site nginx.Site) error {
	for _, path := range []string{site.EnabledPath(), site.AvailablePath()} {
		res, err := c.host.Run(ctx, plan.Cmd("rm", "-f", path).AsRoot())
		if err != nil {
			return fmt.Errorf("remove %s: %w", path, err)
		}
		if !res.OK() {
			c.logger.Warn("could not remove site config", "path", path, "exit", res.ExitCode)
		}
	}

	if ok, detail := c.configValid(ctx); !ok {
		c.logger.Warn("proxy config invalid after removal, skipping reload", "detail", detail)
		return nil
	}
	if err := c.reload(ctx); err != nil {
		c.logger.Warn("proxy reload failed after removal", "error", err)
	}
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// enabled reports whether the site's activation link already exists.
func (c *Configurator) enabled(ctx context.Context, site nginx.Site) bool {
	res, err := c.host.Run(ctx, plan.Cmd("test", "-e", site.EnabledPath()))
	return err == nil && res.OK()
}

// configValid runs the proxy's own syntax check.
func (c *Configurator) configValid(ctx context.Context) (bool, string) {
	res, err := c.host.Run(ctx, plan.Cmd("nginx", "-t").AsRoot())
	if err != nil {
		return false, err.Error()
	}
	if !res.OK() {
		return false, strings.TrimSpace(res.Stdout)
	}
	return true, ""
}

// reload reloads via the service manager when present, else signals the
// master process directly.
func (c *Configurator) reload(ctx context.Context) error {
	res, err := c.host.Run(ctx, plan.Cmd("command", "-v", "systemctl"))
	if err == nil && res.OK() {
		res, err = c.host.Run(ctx, plan.Cmd("systemctl", "reload", "nginx").AsRoot())
		if err == nil && res.OK() {
			return nil
		}
	}

	res, err = c.host.Run(ctx, plan.Cmd("nginx", "-s", "reload").AsRoot())
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("nginx -s reload: exit %d: %s", res.ExitCode, strings.TrimSpace(res.Stdout))
	}
	return nil
}
