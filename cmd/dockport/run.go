package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mpetrov/dockport/internal/core/domain"
	"github.com/mpetrov/dockport/internal/core/nginx"
	"github.com/mpetrov/dockport/internal/shell/deploy"
	"github.com/mpetrov/dockport/internal/shell/input"
	"github.com/mpetrov/dockport/internal/shell/provision"
	"github.com/mpetrov/dockport/internal/shell/proxy"
	"github.com/mpetrov/dockport/internal/shell/stager"
	"github.com/mpetrov/dockport/internal/shell/transport"
	"github.com/mpetrov/dockport/internal/shell/validate"
)

// =============================================================================
// Deploy Sequence
// =============================================================================

// runDeploy executes the full linear sequence: stage source, connect,
// provision, sync, deploy containers, configure proxy, validate. Each phase
// failure carries its taxonomy error for the exit code; validation never
// fails the run.
func runDeploy(ctx context.Context, cfg *Config, params input.Params, rc *domain.RunContext, logger *slog.Logger) error {
	target := params.Target()

	// Stage before opening any remote session; a project with no
	// deployment descriptor fails here.
	desc, err := stager.Stage(ctx, stager.Options{
		RepoURL: params.RepoURL,
		Token:   params.Token,
		Branch:  params.Branch,
		WorkDir: cfg.Deploy.WorkDir,
	}, logger)
	if err != nil {
		return err
	}

	client, err := transport.Dial(ctx, target, transport.Config{
		ConnectTimeout: cfg.SSH.ConnectTimeout,
		CommandTimeout: cfg.SSH.CommandTimeout,
	}, logger)
	if err != nil {
		return err
	}
	defer client.Close()
	logger.Info("connected to remote host", "host", target.RemoteHost, "user", target.RemoteUser)

	if err := provision.New(client, target, logger).Ensure(ctx, rc); err != nil {
		return err
	}

	logger.Info("syncing project", "from", desc.LocalPath, "to", desc.RemotePath)
	if err := client.Sync(ctx, desc.LocalPath, desc.RemotePath); err != nil {
		return fmt.Errorf("%w: sync project: %v", domain.ErrDeploy, err)
	}

	if err := deploy.NewExecutor(client, logger).Deploy(ctx, desc, target); err != nil {
		return err
	}

	site := nginx.Site{RepoName: desc.RepoName, AppPort: target.AppPort}
	if err := proxy.NewConfigurator(client, logger).Apply(ctx, site, rc); err != nil {
		return err
	}

	rep := validate.New(client, logger).Validate(ctx, desc, target)
	if !rep.PublicProbeOK {
		rc.Warn("public HTTP probe failed; check firewall and DNS")
	}

	logger.Info("deployment complete",
		"project", desc.RepoName,
		"mode", string(desc.Mode),
		"url", fmt.Sprintf("http://%s/", target.RemoteHost),
	)
	return nil
}

// =============================================================================
// Cleanup Sequence
// =============================================================================

// runCleanup reverses a prior deployment: containers, project directory and
// proxy site config. It bypasses staging and provisioning entirely and is a
// no-op against a host that never saw this project.
func runCleanup(ctx context.Context, cfg *Config, params input.Params, rc *domain.RunContext, logger *slog.Logger) error {
	target := params.Target()
	repoName := domain.RepoNameFromURL(params.RepoURL)

	client, err := transport.Dial(ctx, target, transport.Config{
		ConnectTimeout: cfg.SSH.ConnectTimeout,
		CommandTimeout: cfg.SSH.CommandTimeout,
	}, logger)
	if err != nil {
		return err
	}
	defer client.Close()
	logger.Info("connected to remote host", "host", target.RemoteHost, "user", target.RemoteUser)

	if err := deploy.NewExecutor(client, logger).Cleanup(ctx, repoName); err != nil {
		return fmt.Errorf("%w: cleanup: %v", domain.ErrDeploy, err)
	}

	site := nginx.Site{RepoName: repoName, AppPort: target.AppPort}
	if err := proxy.NewConfigurator(client, logger).Remove(ctx, site); err != nil {
		return fmt.Errorf("%w: remove proxy config: %v", domain.ErrDeploy, err)
	}

	logger.Info("cleanup complete", "project", repoName)
	return nil
}
