// Package transport executes commands and transfers files on the remote
// host. It is the only package that touches the network.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/mpetrov/dockport/internal/core/domain"
	"github.com/mpetrov/dockport/internal/core/plan"
)

// =============================================================================
// Client
// =============================================================================

// Client runs commands on the remote host over SSH, one session per command.
type Client struct {
	target    domain.DeploymentTarget
	signer    ssh.Signer
	sshClient *ssh.Client
	timeout   time.Duration // per-command timeout
	logger    *slog.Logger
	mu        sync.Mutex // protects sshClient
}

// Config configures the SSH client.
type Config struct {
	ConnectTimeout time.Duration // Default: 10 seconds
	CommandTimeout time.Duration // Default: 10 minutes (builds are slow)
}

// DefaultConfig returns the default transport configuration.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 10 * time.Second,
		CommandTimeout: 10 * time.Minute,
	}
}

// Dial reads the private key, connects to the target and verifies the
// session works. A failure here is the run's connectivity error.
func Dial(ctx context.Context, target domain.DeploymentTarget, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	keyData, err := os.ReadFile(target.SSHKeyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read key %s: %v", domain.ErrConnectivity, target.SSHKeyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("%w: parse private key: %v", domain.ErrConnectivity, err)
	}

	c := &Client{
		target:  target,
		signer:  signer,
		timeout: cfg.CommandTimeout,
		logger:  logger,
	}
	if err := c.connect(ctx, cfg.ConnectTimeout); err != nil {
		return nil, err
	}
	return c, nil
}

// connect establishes the SSH connection if not already connected.
func (c *Client) connect(_ context.Context, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sshClient != nil {
		// Check if the connection is still alive.
		_, _, err := c.sshClient.SendRequest("keepalive@dockport", true, nil)
		if err == nil {
			return nil
		}
		c.sshClient.Close()
		c.sshClient = nil
	}

	config := &ssh.ClientConfig{
		User:            c.target.RemoteUser,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(c.signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // TODO: known_hosts verification
		Timeout:         timeout,
	}

	addr := c.target.Address()
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", domain.ErrConnectivity, addr, err)
	}

	c.sshClient = client
	return nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sshClient != nil {
		err := c.sshClient.Close()
		c.sshClient = nil
		return err
	}
	return nil
}

// =============================================================================
// Command Execution
// =============================================================================

// Run executes one command on the remote host and returns its combined
// output and exit status. A non-zero exit is not an error at this layer;
// callers decide which failures are fatal.
func (c *Client) Run(ctx context.Context, cmd plan.Command) (plan.Result, error) {
	if err := c.connect(ctx, 10*time.Second); err != nil {
		return plan.Result{}, err
	}

	c.mu.Lock()
	session, err := c.sshClient.NewSession()
	c.mu.Unlock()
	if err != nil {
		return plan.Result{}, fmt.Errorf("create SSH session: %w", err)
	}
	defer session.Close()

	var out bytes.Buffer
	session.Stdout = &out
	session.Stderr = &out
	if cmd.Stdin != "" {
		session.Stdin = strings.NewReader(cmd.Stdin)
	}

	line := cmd.Render()
	c.logger.Debug("remote command", "cmd", line)

	done := make(chan error, 1)
	go func() {
		done <- session.Run(line)
	}()

	select {
	case <-ctx.Done():
		return plan.Result{}, ctx.Err()
	case <-time.After(c.timeout):
		return plan.Result{}, fmt.Errorf("command timeout after %v: %s", c.timeout, line)
	case err := <-done:
		res := plan.Result{Stdout: out.String()}
		if err != nil {
			var exitErr *ssh.ExitError
			if errors.As(err, &exitErr) {
				res.ExitCode = exitErr.ExitStatus()
				return res, nil
			}
			return res, fmt.Errorf("run %q: %w", line, err)
		}
		return res, nil
	}
}

// =============================================================================
// File Upload
// =============================================================================

// WriteFile streams content to a remote path via stdin. sudo tee is used so
// root-owned locations like /etc/nginx are writable for a non-root user.
func (c *Client) WriteFile(ctx context.Context, remotePath, content string, sudo bool) error {
	tee := plan.Cmd("tee", remotePath)
	if sudo {
		tee = tee.AsRoot()
	}
	tee.Stdin = content

	res, err := c.Run(ctx, tee)
	if err != nil {
		return fmt.Errorf("write %s: %w", remotePath, err)
	}
	if !res.OK() {
		return fmt.Errorf("write %s: exit %d: %s", remotePath, res.ExitCode, strings.TrimSpace(res.Stdout))
	}
	return nil
}
