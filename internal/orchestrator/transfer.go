package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/ThomasCrouzet/dockship/internal/remote"
	"github.com/docker/docker/pkg/archive"
)

type transferStep struct{}

func (transferStep) Metadata() StepMetadata {
	return StepMetadata{Name: "transfer", DisplayName: "Transfer source", Category: CategoryDeploy}
}

// Run replaces the remote directory with the working copy, streamed as
// an uncompressed tar archive over the session.
func (transferStep) Run(ctx context.Context, st *State) (string, error) {
	dir := RemoteDir(st.Target)

	if _, err := st.Runner.Run(ctx, remote.Request{
		Name:    "reset remote directory",
		Command: fmt.Sprintf("%s && mkdir -p %s", st.sudo("rm -rf "+dir), dir),
		Policy:  remote.Fatal,
	}); err != nil {
		return "", err
	}

	tarball, err := archive.TarWithOptions(st.WorkingCopy.Dir, &archive.TarOptions{
		Compression: archive.Uncompressed,
	})
	if err != nil {
		return "", fmt.Errorf("archive %s: %w", st.WorkingCopy.Dir, err)
	}
	defer tarball.Close()

	res, err := st.Runner.Run(ctx, remote.Request{
		Name:    "upload source",
		Command: "tar -xf - -C " + dir,
		Policy:  remote.Fatal,
		Stdin:   tarball,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s -> %s (%s)", st.WorkingCopy.Dir, dir, res.Duration.Round(time.Millisecond)), nil
}
