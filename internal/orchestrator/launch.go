package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ThomasCrouzet/dockship/internal/model"
	"github.com/ThomasCrouzet/dockship/internal/remote"
	"github.com/ThomasCrouzet/dockship/internal/ui"
	"github.com/ThomasCrouzet/dockship/internal/util"
)

type launchStep struct{}

func (launchStep) Metadata() StepMetadata {
	return StepMetadata{Name: "launch", DisplayName: "Build and start application", Category: CategoryDeploy}
}

func (launchStep) Run(ctx context.Context, st *State) (string, error) {
	var (
		id  model.Identity
		err error
	)
	if st.Descriptor.IsCompose() {
		id, err = launchCompose(ctx, st)
	} else {
		id, err = launchSingle(ctx, st)
	}
	if err != nil {
		return "", err
	}
	st.Identity = id

	if err := st.Sleep(ctx, st.Deployment.GracePeriod); err != nil {
		return "", err
	}
	if err := runningContainers(ctx, st); err != nil {
		return "", err
	}
	probeLocal(ctx, st, st.Deployment.AppPort)

	if _, err := st.Runner.Run(ctx, remote.Request{
		Name:    "record deployment",
		Command: fmt.Sprintf("printf '%%s\\n' %s > %s", util.ShellQuote(id.String()), IdentityFile),
		Policy:  remote.Fatal,
	}); err != nil {
		return "", err
	}
	return id.String(), nil
}

func composeBase(st *State) string {
	return fmt.Sprintf("cd %s && %s -p %s -f %s",
		RemoteDir(st.Target),
		st.sudo(st.Compose),
		util.ShellQuote(model.ComposeProject(st.Deployment.Project)),
		util.ShellQuote(st.Descriptor.Path),
	)
}

func launchCompose(ctx context.Context, st *State) (model.Identity, error) {
	if st.Compose == "" {
		return model.Identity{}, errors.New("no compose tool detected on the remote host")
	}
	port := st.Deployment.AppPort
	if len(st.Descriptor.Services) > 0 && !st.Descriptor.PublishesPort(port) {
		ui.Warn(fmt.Sprintf("%s does not publish port %d; the proxy may not reach the application", st.Descriptor.Path, port))
	}

	base := composeBase(st)
	if _, err := st.Runner.Sequence(ctx,
		remote.Request{Name: "stop previous stack", Command: base + " down", Policy: remote.Tolerated},
		remote.Request{Name: "build and start stack", Command: base + " up -d --build", Policy: remote.Fatal},
	); err != nil {
		return model.Identity{}, err
	}
	return model.Identity{Kind: model.DescriptorCompose, Value: model.ComposeProject(st.Deployment.Project)}, nil
}

func launchSingle(ctx context.Context, st *State) (model.Identity, error) {
	name := util.ShellQuote(model.ContainerName(st.Deployment.Project))
	label := util.ShellQuote(model.ProjectLabel + "=" + model.ComposeProject(st.Deployment.Project))
	publish := model.SamePort(st.Deployment.AppPort).Publish()

	results, err := st.Runner.Sequence(ctx,
		remote.Request{Name: "stop previous container", Command: st.sudo("docker stop " + name), Policy: remote.Tolerated},
		remote.Request{Name: "remove previous container", Command: st.sudo("docker rm " + name), Policy: remote.Tolerated},
		remote.Request{Name: "build image", Command: st.sudo("docker build -t " + name + " " + RemoteDir(st.Target)), Policy: remote.Fatal},
		remote.Request{
			Name: "start container",
			Command: st.sudo(fmt.Sprintf("docker run -d --name %s --restart unless-stopped --label %s -p %s %s",
				name, label, publish, name)),
			Policy: remote.Fatal,
			// docker run -d prints the ID of the started container.
			Success: func(res remote.Result) bool { return res.OK() && lastLine(res.Stdout) != "" },
		},
	)
	if err != nil {
		return model.Identity{}, err
	}

	id := lastLine(results[len(results)-1].Stdout)
	return model.Identity{Kind: model.DescriptorDockerfile, Value: id}, nil
}

// runningContainers lists the project's containers for the operator.
func runningContainers(ctx context.Context, st *State) error {
	for _, sel := range model.ContainerSelectors(st.Deployment.Project) {
		if _, err := st.Runner.Run(ctx, remote.Request{
			Name:    "running containers",
			Command: st.sudo("docker ps --filter " + util.ShellQuote(sel)),
			Policy:  remote.Diagnostic,
		}); err != nil {
			return err
		}
	}
	return nil
}

// probeLocal asks the host itself whether the application answers.
func probeLocal(ctx context.Context, st *State, port int) {
	url := fmt.Sprintf("http://localhost:%d", port)
	checks := []struct{ name, command string }{
		{"GET " + url, "curl -fsS -o /dev/null --max-time 10 " + url},
		{"HEAD " + url, "curl -fsSI -o /dev/null --max-time 10 " + url},
	}
	for _, c := range checks {
		if ok, err := st.Runner.Check(ctx, c.name, c.command); err == nil && ok {
			ui.Info(c.name + " answered")
			return
		}
	}
	ui.Info(fmt.Sprintf("%s did not answer; the application may still be starting", url))
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
