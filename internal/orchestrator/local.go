package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ThomasCrouzet/dockship/internal/config"
	"github.com/ThomasCrouzet/dockship/internal/descriptor"
	"github.com/ThomasCrouzet/dockship/internal/source"
	"github.com/ThomasCrouzet/dockship/internal/ui"
)

// SourceResolver materializes the working copy of a deployment.
type SourceResolver interface {
	Resolve(ctx context.Context, dep config.Deployment) (source.WorkingCopy, error)
}

type sourceStep struct {
	resolver SourceResolver
}

func (sourceStep) Metadata() StepMetadata {
	return StepMetadata{Name: "source", DisplayName: "Resolve source", Category: CategorySource}
}

func (s sourceStep) Run(ctx context.Context, st *State) (string, error) {
	wc, err := s.resolver.Resolve(ctx, st.Deployment)
	if err != nil {
		return "", err
	}
	st.WorkingCopy = wc

	switch {
	case wc.Cloned:
		return "cloned " + st.Deployment.Branch + " into " + wc.Dir, nil
	case wc.Fallback:
		return "updated " + wc.Dir + " from the default remote", nil
	}
	return "updated " + wc.Dir, nil
}

type descriptorStep struct{}

func (descriptorStep) Metadata() StepMetadata {
	return StepMetadata{Name: "descriptor", DisplayName: "Check build descriptor", Category: CategoryPrecondition}
}

func (descriptorStep) Run(ctx context.Context, st *State) (string, error) {
	d, err := descriptor.Detect(ctx, st.WorkingCopy.Dir, st.Deployment.Project)
	if errors.Is(err, descriptor.ErrNoDescriptor) {
		ui.Println("Contents of " + st.WorkingCopy.Dir + ":")
		ui.Println(descriptor.Listing(st.WorkingCopy.Dir))
		return "", err
	}
	if err != nil {
		return "", err
	}
	st.Descriptor = d

	if d.IsCompose() {
		var names []string
		for _, svc := range d.Services {
			name := svc.Name
			if len(svc.Ports) > 0 {
				ports := make([]string, len(svc.Ports))
				for i, p := range svc.Ports {
					ports[i] = p.String()
				}
				name += " (" + strings.Join(ports, ", ") + ")"
			}
			names = append(names, name)
		}
		return fmt.Sprintf("%s: %s", d.Path, strings.Join(names, ", ")), nil
	}
	return d.Path + ", single container", nil
}
