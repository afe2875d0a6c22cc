package deploy

import (
	"context"
	"strings"

	"github.com/mpetrov/dockport/internal/core/domain"
	"github.com/mpetrov/dockport/internal/core/plan"
)

// composeCandidates mirrors the stager's descriptor priority for detecting
// the deployment mode of an already-synced remote tree.
var composeCandidates = []string{
	"docker-compose.yml",
	"docker-compose.yaml",
	"compose.yml",
	"compose.yaml",
}

// Cleanup tears down the project's containers and removes its remote
// directory. Every step treats an absent target as a no-op, so invoking it
// twice in a row (or against a host that never saw this project) succeeds.
func (e *Executor) Cleanup(ctx context.Context, repoName string) error {
	remotePath := domain.RemoteProjectPath(repoName)

	if e.remoteDirExists(ctx, remotePath) {
		if e.remoteComposeFile(ctx, remotePath) != "" {
			e.tolerate(ctx, plan.Cmd("docker", "compose", "down", "--remove-orphans").InDir(remotePath), "compose down")
		}
		// The single-container name is covered regardless of detected
		// mode; removing a container that never existed is tolerated.
		name := domain.ContainerName(repoName)
		if e.containerExists(ctx, name) {
			e.tolerate(ctx, plan.Cmd("docker", "rm", "-f", name), "remove container")
		}

		e.tolerate(ctx, plan.Cmd("rm", "-rf", remotePath).AsRoot(), "remove project dir")
		e.logger.Info("project directory removed", "path", remotePath)
	} else {
		e.logger.Info("no project directory on remote host", "path", remotePath)
	}

	return nil
}

// remoteDirExists checks for the project directory.
func (e *Executor) remoteDirExists(ctx context.Context, dir string) bool {
	res, err := e.runner.Run(ctx, plan.Cmd("test", "-d", dir))
	return err == nil && res.OK()
}

// remoteComposeFile returns the first compose descriptor present in the
// remote project directory, or "".
func (e *Executor) remoteComposeFile(ctx context.Context, dir string) string {
	for _, name := range composeCandidates {
		res, err := e.runner.Run(ctx, plan.Cmd("test", "-f", strings.TrimSuffix(dir, "/")+"/"+name))
		if err == nil && res.OK() {
			return name
		}
	}
	return ""
}
