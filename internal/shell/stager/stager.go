// Package stager ensures an up-to-date local copy of the target repository
// exists and derives the project descriptor from its contents.
package stager

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mpetrov/dockport/internal/core/domain"
)

// Options configures a staging run.
type Options struct {
	RepoURL string
	Token   string // access token for https clones, empty for public repos
	Branch  string
	WorkDir string // parent directory for local clones
}

// Stage clones the repository if absent, otherwise fetches and resets the
// requested branch, then detects the deployment descriptor. It never opens
// a remote session; all failures here are source-staging errors.
func Stage(ctx context.Context, opts Options, logger *slog.Logger) (domain.ProjectDescriptor, error) {
	repoName := domain.RepoNameFromURL(opts.RepoURL)
	if repoName == "" {
		return domain.ProjectDescriptor{}, fmt.Errorf("%w: cannot derive project name from %q", domain.ErrStaging, opts.RepoURL)
	}

	localPath := filepath.Join(opts.WorkDir, repoName)
	cloneURL, err := authURL(opts.RepoURL, opts.Token)
	if err != nil {
		return domain.ProjectDescriptor{}, fmt.Errorf("%w: %v", domain.ErrStaging, err)
	}

	if _, err := os.Stat(filepath.Join(localPath, ".git")); err == nil {
		logger.Info("updating existing clone", "path", localPath, "branch", opts.Branch)
		if err := fetchAndReset(ctx, localPath, opts.Branch); err != nil {
			return domain.ProjectDescriptor{}, fmt.Errorf("%w: %v", domain.ErrStaging, err)
		}
	} else {
		logger.Info("cloning repository", "repo", repoName, "branch", opts.Branch)
		if err := clone(ctx, cloneURL, opts.Branch, localPath); err != nil {
			return domain.ProjectDescriptor{}, fmt.Errorf("%w: %v", domain.ErrStaging, err)
		}
	}

	mode, descriptor, err := DetectMode(localPath)
	if err != nil {
		return domain.ProjectDescriptor{}, err
	}

	if mode == domain.ModeCompose {
		// A descriptor that does not parse fails before any remote work.
		if err := ValidateComposeFile(filepath.Join(localPath, descriptor), repoName, logger); err != nil {
			return domain.ProjectDescriptor{}, err
		}
	}

	desc := domain.ProjectDescriptor{
		RepoName:       repoName,
		LocalPath:      localPath,
		RemotePath:     domain.RemoteProjectPath(repoName),
		Mode:           mode,
		Branch:         opts.Branch,
		DescriptorFile: descriptor,
	}
	if err := desc.Validate(); err != nil {
		return domain.ProjectDescriptor{}, err
	}

	logger.Info("source staged",
		"project", repoName,
		"mode", string(mode),
		"descriptor", descriptor,
	)
	return desc, nil
}

// authURL embeds the access token into an https repository URL. Non-https
// URLs (ssh remotes) pass through untouched.
func authURL(repoURL, token string) (string, error) {
	if token == "" || !strings.HasPrefix(repoURL, "https://") {
		return repoURL, nil
	}
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", fmt.Errorf("parse repo URL: %w", err)
	}
	u.User = url.User(token)
	return u.String(), nil
}

// =============================================================================
// Git Operations
// =============================================================================

func clone(ctx context.Context, repoURL, branch, dest string) error {
	args := []string{"clone", "--branch", branch, repoURL, dest}
	cmd := exec.CommandContext(ctx, "git", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git clone: %w\n%s", err, scrub(string(out), repoURL))
	}
	return nil
}

func fetchAndReset(ctx context.Context, repoDir, branch string) error {
	fetch := exec.CommandContext(ctx, "git", "fetch", "origin", branch)
	fetch.Dir = repoDir
	if out, err := fetch.CombinedOutput(); err != nil {
		return fmt.Errorf("git fetch: %w\n%s", err, string(out))
	}

	reset := exec.CommandContext(ctx, "git", "reset", "--hard", "origin/"+branch)
	reset.Dir = repoDir
	if out, err := reset.CombinedOutput(); err != nil {
		return fmt.Errorf("git reset: %w\n%s", err, string(out))
	}
	return nil
}

// scrub keeps credentials embedded in the clone URL out of error output.
func scrub(out, secretURL string) string {
	return strings.ReplaceAll(out, secretURL, "<repo-url>")
}
