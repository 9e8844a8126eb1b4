package source

import (
	"context"
	"os"
	"os/exec"
)

// GitRunner runs git with args in dir and returns its combined output.
type GitRunner func(ctx context.Context, dir string, args ...string) ([]byte, error)

// execCommand wraps exec.CommandContext for testability.
var execCommand = exec.CommandContext

// runGit is the default GitRunner.
func runGit(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := execCommand(ctx, "git", args...)
	cmd.Dir = dir
	// Prevent git from prompting for credentials interactively.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	return cmd.CombinedOutput()
}
