// Package input gathers and validates deployment parameters. Values already
// supplied via config or environment are kept; only missing ones prompt.
package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/mpetrov/dockport/internal/core/domain"
)

// Params are the collected deployment parameters.
type Params struct {
	RepoURL    string
	Token      string
	Branch     string
	RemoteUser string
	RemoteHost string
	SSHKeyPath string
	AppPort    int
}

// DefaultBranch is offered when the user leaves the branch prompt empty.
const DefaultBranch = "main"

// Collector prompts on out and reads answers from in.
type Collector struct {
	in  *bufio.Reader
	out io.Writer

	// readSecret reads without echo; swapped in tests.
	readSecret func() (string, error)
}

// NewCollector creates a collector over the given streams. When in is the
// process stdin and it is a terminal, token input is not echoed.
func NewCollector(in io.Reader, out io.Writer) *Collector {
	c := &Collector{in: bufio.NewReader(in), out: out}
	c.readSecret = func() (string, error) {
		if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			b, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(out)
			return string(b), err
		}
		return c.readLine()
	}
	return c
}

// Collect fills any missing parameter by prompting, then validates the
// whole set. All failures here are input-validation errors.
func (c *Collector) Collect(p Params) (Params, error) {
	var err error

	if p.RepoURL == "" {
		if p.RepoURL, err = c.prompt("Repository URL"); err != nil {
			return p, err
		}
	}
	if p.RepoURL == "" {
		return p, fmt.Errorf("%w: repository URL is required", domain.ErrInvalidInput)
	}
	if domain.RepoNameFromURL(p.RepoURL) == "" {
		return p, fmt.Errorf("%w: cannot derive project name from %q", domain.ErrInvalidInput, p.RepoURL)
	}

	if p.Token == "" && strings.HasPrefix(p.RepoURL, "https://") {
		fmt.Fprint(c.out, "Access token (empty for public repo): ")
		if p.Token, err = c.readSecret(); err != nil {
			return p, fmt.Errorf("%w: read token: %v", domain.ErrInvalidInput, err)
		}
	}

	if p.Branch == "" {
		if p.Branch, err = c.promptDefault("Branch", DefaultBranch); err != nil {
			return p, err
		}
	}

	if p.RemoteUser == "" {
		if p.RemoteUser, err = c.prompt("Remote username"); err != nil {
			return p, err
		}
	}
	if p.RemoteHost == "" {
		if p.RemoteHost, err = c.prompt("Remote host"); err != nil {
			return p, err
		}
	}
	if p.SSHKeyPath == "" {
		def := defaultKeyPath()
		if p.SSHKeyPath, err = c.promptDefault("Private key path", def); err != nil {
			return p, err
		}
	}

	if p.AppPort == 0 {
		raw, err := c.prompt("Application port")
		if err != nil {
			return p, err
		}
		if p.AppPort, err = domain.ParseAppPort(raw); err != nil {
			return p, err
		}
	}

	target := domain.DeploymentTarget{
		RemoteUser: p.RemoteUser,
		RemoteHost: p.RemoteHost,
		SSHKeyPath: p.SSHKeyPath,
		AppPort:    p.AppPort,
	}
	if err := target.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// Target builds the immutable deployment target from collected params.
func (p Params) Target() domain.DeploymentTarget {
	return domain.DeploymentTarget{
		RemoteUser: p.RemoteUser,
		RemoteHost: p.RemoteHost,
		SSHKeyPath: p.SSHKeyPath,
		AppPort:    p.AppPort,
	}
}

// =============================================================================
// Prompt Helpers
// =============================================================================

func (c *Collector) prompt(label string) (string, error) {
	fmt.Fprintf(c.out, "%s: ", label)
	return c.readLine()
}

func (c *Collector) promptDefault(label, def string) (string, error) {
	fmt.Fprintf(c.out, "%s [%s]: ", label, def)
	v, err := c.readLine()
	if err != nil {
		return "", err
	}
	if v == "" {
		return def, nil
	}
	return v, nil
}

func (c *Collector) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("%w: read input: %v", domain.ErrInvalidInput, err)
	}
	return strings.TrimSpace(line), nil
}

func defaultKeyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ssh", "id_rsa")
}
