package orchestrator

import (
	"context"
	"fmt"

	"github.com/ThomasCrouzet/dockship/internal/remote"
)

type connectivityStep struct{}

func (connectivityStep) Metadata() StepMetadata {
	return StepMetadata{Name: "connectivity", DisplayName: "Check remote connectivity", Category: CategoryConnectivity}
}

func (connectivityStep) Run(ctx context.Context, st *State) (string, error) {
	_, err := st.Runner.Run(ctx, remote.Request{
		Name:    "connectivity check",
		Command: "true",
		Policy:  remote.Fatal,
		Quiet:   true,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s@%s", st.Target.SSHUser, st.Target.Address()), nil
}
