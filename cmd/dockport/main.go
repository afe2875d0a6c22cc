package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/mpetrov/dockport/internal/core/domain"
	"github.com/mpetrov/dockport/internal/shell/input"
	"github.com/mpetrov/dockport/internal/shell/runlog"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess           = 0
	ExitInputError        = 1
	ExitStagingError      = 2
	ExitConnectivityError = 3
	ExitProvisionError    = 4
	ExitDeployError       = 5
	// ExitValidationError is reserved for health-check failures; the main
	// path reports those as warnings and never returns it.
	ExitValidationError = 6
)

// exitCodeFor maps the fatal error taxonomy to exit codes.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return ExitInputError
	case errors.Is(err, domain.ErrStaging):
		return ExitStagingError
	case errors.Is(err, domain.ErrConnectivity):
		return ExitConnectivityError
	case errors.Is(err, domain.ErrProvisioning):
		return ExitProvisionError
	case errors.Is(err, domain.ErrDeploy):
		return ExitDeployError
	default:
		return ExitDeployError
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Path to config file")
	cleanup := flag.Bool("cleanup", false, "Tear down a prior deployment instead of deploying")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dockport %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitInputError
	}

	rc := domain.NewRunContext()
	rl, err := runlog.Open(cfg.Log.Dir, rc.StartedAt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run log error: %v\n", err)
		return ExitInputError
	}
	defer rl.Close()
	rc.LogPath = rl.Path

	logger := SetupLogger(cfg, rl.Writer())
	logger.Info("starting dockport",
		"version", Version,
		"run_id", rc.ID,
		"log", rl.Path,
		"cleanup", *cleanup,
	)

	// Collect whatever the config and environment did not provide.
	collector := input.NewCollector(os.Stdin, os.Stdout)
	params, err := collector.Collect(input.Params{
		RepoURL:    cfg.Deploy.RepoURL,
		Token:      cfg.Deploy.Token,
		Branch:     cfg.Deploy.Branch,
		RemoteUser: cfg.Deploy.RemoteUser,
		RemoteHost: cfg.Deploy.RemoteHost,
		SSHKeyPath: cfg.Deploy.KeyPath,
		AppPort:    cfg.Deploy.AppPort,
	})
	if err != nil {
		logger.Error("input validation failed", "error", err)
		return exitCodeFor(err)
	}

	ctx := context.Background()
	if *cleanup {
		err = runCleanup(ctx, cfg, params, rc, logger)
	} else {
		err = runDeploy(ctx, cfg, params, rc, logger)
	}
	if err != nil {
		logger.Error("run failed", "error", err, "run_id", rc.ID)
		return exitCodeFor(err)
	}

	for _, w := range rc.Warnings {
		logger.Warn("run completed with warning", "warning", w)
	}
	logger.Info("run completed", "run_id", rc.ID, "log", rl.Path)
	return ExitSuccess
}
