package transport

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mpetrov/dockport/internal/core/domain"
	"github.com/mpetrov/dockport/internal/core/plan"
)

// SyncExcludes are never transferred to the remote host: version-control
// metadata, dependency caches and log files.
var SyncExcludes = []string{".git", "node_modules", "vendor", "__pycache__", "*.log"}

// RsyncArgs builds the rsync argument list for syncing localDir into the
// remote project directory. Exposed for tests.
func RsyncArgs(target domain.DeploymentTarget, localDir, remoteDir string) []string {
	args := []string{"-az", "--delete"}
	for _, e := range SyncExcludes {
		args = append(args, "--exclude", e)
	}
	args = append(args,
		"-e", fmt.Sprintf("ssh -i %s -o StrictHostKeyChecking=no", target.SSHKeyPath),
		strings.TrimSuffix(localDir, "/")+"/",
		fmt.Sprintf("%s@%s:%s/", target.RemoteUser, target.RemoteHost, remoteDir),
	)
	return args
}

// Sync transfers the staged source tree into the remote project directory,
// creating it first. rsync is invoked as an external tool; its own ssh
// child carries the transfer.
func (c *Client) Sync(ctx context.Context, localDir, remoteDir string) error {
	res, err := c.Run(ctx, plan.Cmd("mkdir", "-p", remoteDir))
	if err != nil {
		return fmt.Errorf("create remote dir: %w", err)
	}
	if !res.OK() {
		// Base dir may be root-owned on a fresh host.
		res, err = c.Run(ctx, plan.Cmd("mkdir", "-p", remoteDir).AsRoot())
		if err != nil {
			return fmt.Errorf("create remote dir: %w", err)
		}
		if !res.OK() {
			return fmt.Errorf("create remote dir %s: exit %d: %s", remoteDir, res.ExitCode, strings.TrimSpace(res.Stdout))
		}
		if chown, err := c.Run(ctx, plan.Cmd("chown", "-R", c.target.RemoteUser, remoteDir).AsRoot()); err == nil && !chown.OK() {
			c.logger.Warn("chown remote dir failed", "dir", remoteDir, "output", strings.TrimSpace(chown.Stdout))
		}
	}

	args := RsyncArgs(c.target, localDir, remoteDir)
	c.logger.Debug("rsync", "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, "rsync", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("rsync: %w\n%s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
