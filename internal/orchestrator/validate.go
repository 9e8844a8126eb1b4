package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/ThomasCrouzet/dockship/internal/engine"
	"github.com/ThomasCrouzet/dockship/internal/model"
	"github.com/ThomasCrouzet/dockship/internal/remote"
	"github.com/ThomasCrouzet/dockship/internal/ui"
)

// validateStep reports on the end state. It never fails the run.
type validateStep struct{}

func (validateStep) Metadata() StepMetadata {
	return StepMetadata{Name: "validate", DisplayName: "Validate deployment", Category: CategoryValidation}
}

func (validateStep) Run(ctx context.Context, st *State) (string, error) {
	r := st.Runner

	for _, svc := range []string{"docker", "nginx"} {
		if _, err := r.Run(ctx, remote.Request{
			Name:    svc + " service",
			Command: "systemctl is-active " + svc,
			Policy:  remote.Diagnostic,
		}); err != nil {
			return "", err
		}
	}

	listContainers(ctx, st)

	if _, err := r.Run(ctx, remote.Request{
		Name:    "nginx config",
		Command: st.sudo("nginx -t"),
		Policy:  remote.Diagnostic,
	}); err != nil {
		return "", err
	}

	probeLocal(ctx, st, st.Deployment.AppPort)

	report := st.Probe(ctx, fmt.Sprintf("http://%s:80", st.Deployment.ServerIP))
	ui.Info(report.Message())
	return "public probe " + string(report.Outcome), nil
}

// listContainers asks the daemon through the tunnelled socket and falls
// back to the CLI when the socket is not reachable.
func listContainers(ctx context.Context, st *State) {
	project := model.ComposeProject(st.Deployment.Project)

	if st.Dialer != nil {
		containers, err := sdkContainers(ctx, st.Dialer, model.ContainerSelectors(st.Deployment.Project))
		if err == nil {
			if len(containers) == 0 {
				ui.Info("no running containers match " + project)
			}
			for _, c := range containers {
				ui.Info(fmt.Sprintf("%s %s %s %s", c.ID, c.Name, c.Status, strings.Join(c.Ports, ",")))
			}
			return
		}
		st.Logger.Debug("docker socket unavailable", "error", err.Error())
	}

	_ = runningContainers(ctx, st)
}

func sdkContainers(ctx context.Context, d engine.Dialer, selectors []string) ([]engine.Container, error) {
	cli, err := engine.New(d)
	if err != nil {
		return nil, err
	}
	defer cli.Close()

	if err := cli.Ping(ctx); err != nil {
		return nil, err
	}
	return cli.Running(ctx, selectors...)
}
