// Package source materializes the application source locally.
package source

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ThomasCrouzet/dockship/internal/config"
)

// WorkingCopy is the resolved local checkout.
type WorkingCopy struct {
	Dir      string
	Project  string
	Cloned   bool // fresh clone rather than update
	Fallback bool // updated through the default remote
}

// ResolveError wraps a failed clone or pull.
type ResolveError struct {
	Op  string
	Err error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// Resolver clones or updates the repository of a deployment.
type Resolver struct {
	Git GitRunner
}

// NewResolver returns a Resolver that shells out to git.
func NewResolver() *Resolver {
	return &Resolver{Git: runGit}
}

// AuthenticatedURL embeds token into repoURL as userinfo, for https URLs
// only. Other schemes carry their own authentication and are returned
// unchanged.
func AuthenticatedURL(repoURL, token string) string {
	if token == "" {
		return repoURL
	}
	u, err := url.Parse(repoURL)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return repoURL
	}
	u.User = url.User(token)
	return u.String()
}

// Resolve updates the working copy when it exists, trying the
// authenticated URL first and the configured default remote second, and
// clones the branch otherwise.
func (r *Resolver) Resolve(ctx context.Context, dep config.Deployment) (WorkingCopy, error) {
	// git runs inside the work dir, so every path handed to it is absolute.
	workDir, err := filepath.Abs(dep.WorkDir)
	if err != nil {
		return WorkingCopy{Project: dep.Project}, &ResolveError{Op: "prepare work dir", Err: err}
	}
	wc := WorkingCopy{
		Dir:     filepath.Join(workDir, dep.Project),
		Project: dep.Project,
	}
	authURL := AuthenticatedURL(dep.GitURL, dep.GitToken)

	if isDir(filepath.Join(wc.Dir, ".git")) {
		out, err := r.Git(ctx, wc.Dir, "pull", authURL, dep.Branch)
		if err == nil {
			return wc, nil
		}
		first := redact(string(out), dep.GitToken)

		out, err = r.Git(ctx, wc.Dir, "pull")
		if err != nil {
			return wc, &ResolveError{
				Op: "git pull",
				Err: fmt.Errorf("authenticated pull failed (%s) and default remote pull failed: %w: %s",
					strings.TrimSpace(first), err, strings.TrimSpace(redact(string(out), dep.GitToken))),
			}
		}
		wc.Fallback = true
		return wc, nil
	}

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return wc, &ResolveError{Op: "prepare work dir", Err: err}
	}

	out, err := r.Git(ctx, workDir, "clone", "--branch", dep.Branch, authURL, wc.Dir)
	if err != nil {
		return wc, &ResolveError{
			Op:  "git clone",
			Err: fmt.Errorf("%w: %s", err, strings.TrimSpace(redact(string(out), dep.GitToken))),
		}
	}
	wc.Cloned = true
	return wc, nil
}

// redact hides the token from git output.
func redact(s, token string) string {
	if token == "" {
		return s
	}
	return strings.ReplaceAll(s, token, "****")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
