package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ThomasCrouzet/dockship/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gitCall struct {
	dir  string
	args []string
}

// fakeGit records calls and fails the ones whose joined args appear in fail.
type fakeGit struct {
	calls []gitCall
	fail  map[string]bool
}

func (f *fakeGit) run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, gitCall{dir: dir, args: args})
	if f.fail[strings.Join(args, " ")] {
		return []byte("fatal: could not read from https://T@example.com"), errors.New("exit status 1")
	}
	return nil, nil
}

func deployment(workDir string) config.Deployment {
	return config.Deployment{
		GitURL:   "https://example.com/org/app.git",
		GitToken: "T",
		Branch:   "main",
		WorkDir:  workDir,
		Project:  "app",
	}
}

func TestAuthenticatedURL(t *testing.T) {
	tests := []struct {
		url      string
		token    string
		expected string
	}{
		{"https://example.com/org/app.git", "T", "https://T@example.com/org/app.git"},
		{"https://example.com/org/app.git", "", "https://example.com/org/app.git"},
		{"http://example.com/org/app.git", "T", "http://example.com/org/app.git"},
		{"git@github.com:org/app.git", "T", "git@github.com:org/app.git"},
		{"ssh://git@example.com/org/app.git", "T", "ssh://git@example.com/org/app.git"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, AuthenticatedURL(tt.url, tt.token))
		})
	}
}

func TestResolveClones(t *testing.T) {
	work := t.TempDir()
	git := &fakeGit{}
	r := &Resolver{Git: git.run}

	wc, err := r.Resolve(context.Background(), deployment(work))
	require.NoError(t, err)

	assert.True(t, wc.Cloned)
	assert.Equal(t, filepath.Join(work, "app"), wc.Dir)
	require.Len(t, git.calls, 1)
	assert.Equal(t, []string{"clone", "--branch", "main", "https://T@example.com/org/app.git", filepath.Join(work, "app")}, git.calls[0].args)
}

func TestResolveClonesIntoRelativeWorkDir(t *testing.T) {
	cwd := t.TempDir()
	t.Chdir(cwd)
	git := &fakeGit{}
	r := &Resolver{Git: git.run}

	wc, err := r.Resolve(context.Background(), deployment("build"))
	require.NoError(t, err)

	work := filepath.Join(cwd, "build")
	assert.Equal(t, filepath.Join(work, "app"), wc.Dir)
	require.Len(t, git.calls, 1)
	assert.Equal(t, work, git.calls[0].dir)
	target := git.calls[0].args[len(git.calls[0].args)-1]
	assert.True(t, filepath.IsAbs(target))
	assert.Equal(t, wc.Dir, target)
	assert.DirExists(t, work)
}

func TestResolveCloneFailureRedactsToken(t *testing.T) {
	work := t.TempDir()
	git := &fakeGit{fail: map[string]bool{
		"clone --branch main https://T@example.com/org/app.git " + filepath.Join(work, "app"): true,
	}}
	r := &Resolver{Git: git.run}

	_, err := r.Resolve(context.Background(), deployment(work))
	require.Error(t, err)

	var rerr *ResolveError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "git clone", rerr.Op)
	assert.NotContains(t, err.Error(), "T@example.com")
}

func existingCopy(t *testing.T) string {
	work := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(work, "app", ".git"), 0o755))
	return work
}

func TestResolveUpdatesWithAuthenticatedURL(t *testing.T) {
	git := &fakeGit{}
	r := &Resolver{Git: git.run}

	wc, err := r.Resolve(context.Background(), deployment(existingCopy(t)))
	require.NoError(t, err)

	assert.False(t, wc.Cloned)
	assert.False(t, wc.Fallback)
	require.Len(t, git.calls, 1)
	assert.Equal(t, []string{"pull", "https://T@example.com/org/app.git", "main"}, git.calls[0].args)
}

func TestResolveFallsBackToDefaultRemote(t *testing.T) {
	git := &fakeGit{fail: map[string]bool{
		"pull https://T@example.com/org/app.git main": true,
	}}
	r := &Resolver{Git: git.run}

	wc, err := r.Resolve(context.Background(), deployment(existingCopy(t)))
	require.NoError(t, err)

	assert.True(t, wc.Fallback)
	require.Len(t, git.calls, 2)
	assert.Equal(t, []string{"pull"}, git.calls[1].args)
}

func TestResolveBothPullsFail(t *testing.T) {
	git := &fakeGit{fail: map[string]bool{
		"pull https://T@example.com/org/app.git main": true,
		"pull": true,
	}}
	r := &Resolver{Git: git.run}

	_, err := r.Resolve(context.Background(), deployment(existingCopy(t)))
	require.Error(t, err)

	var rerr *ResolveError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "git pull", rerr.Op)
	assert.NotContains(t, err.Error(), "T@example.com")
}
