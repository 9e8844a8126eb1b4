package orchestrator

import (
	"context"
	"errors"
	"strings"

	"github.com/ThomasCrouzet/dockship/internal/remote"
	"github.com/ThomasCrouzet/dockship/internal/util"
)

// Compose invocations, in detection order.
var composeCommands = []string{"docker compose", "docker-compose"}

type provisionStep struct{}

func (provisionStep) Metadata() StepMetadata {
	return StepMetadata{Name: "provision", DisplayName: "Provision remote host", Category: CategoryProvisioning}
}

// provisioner installs missing packages, refreshing the package list once
// before the first install.
type provisioner struct {
	st        *State
	refreshed bool
	installed []string
}

func (p *provisioner) install(ctx context.Context, pkg string, policy remote.Policy) (bool, error) {
	r := p.st.Runner
	if !p.refreshed {
		if _, err := r.Run(ctx, remote.Request{
			Name:    "refresh package list",
			Command: p.st.sudo("apt-get update"),
			Policy:  remote.Fatal,
		}); err != nil {
			return false, err
		}
		p.refreshed = true
	}

	res, err := r.Run(ctx, remote.Request{
		Name:    "install " + pkg,
		Command: p.st.sudo("DEBIAN_FRONTEND=noninteractive apt-get install -y " + pkg),
		Policy:  policy,
	})
	if err != nil {
		return false, err
	}
	return res.OK(), nil
}

func (p *provisioner) enable(ctx context.Context, service string) error {
	_, err := p.st.Runner.Run(ctx, remote.Request{
		Name:    "enable " + service,
		Command: p.st.sudo("systemctl enable --now " + service),
		Policy:  remote.Fatal,
	})
	return err
}

func (provisionStep) Run(ctx context.Context, st *State) (string, error) {
	r := st.Runner
	p := &provisioner{st: st}

	hasDocker, err := r.Check(ctx, "docker present", "command -v docker")
	if err != nil {
		return "", err
	}
	if !hasDocker {
		if _, err := p.install(ctx, "docker.io", remote.Fatal); err != nil {
			return "", err
		}
		if err := p.enable(ctx, "docker"); err != nil {
			return "", err
		}
		if _, err := r.Run(ctx, remote.Request{
			Name:    "add user to docker group",
			Command: p.st.sudo("usermod -aG docker " + util.ShellQuote(st.Target.SSHUser)),
			Policy:  remote.Tolerated,
		}); err != nil {
			return "", err
		}
		p.installed = append(p.installed, "docker")
	}

	compose, err := detectCompose(ctx, st)
	if err != nil {
		return "", err
	}
	if compose == "" {
		ok, err := p.install(ctx, "docker-compose-plugin", remote.Tolerated)
		if err != nil {
			return "", err
		}
		if !ok {
			if _, err := p.install(ctx, "docker-compose", remote.Fatal); err != nil {
				return "", err
			}
		}
		if compose, err = detectCompose(ctx, st); err != nil {
			return "", err
		}
		if compose == "" {
			return "", errors.New("compose tool still unavailable after install")
		}
		p.installed = append(p.installed, "compose")
	}
	st.Compose = compose

	hasNginx, err := r.Check(ctx, "nginx present", "command -v nginx")
	if err != nil {
		return "", err
	}
	if !hasNginx {
		if _, err := p.install(ctx, "nginx", remote.Fatal); err != nil {
			return "", err
		}
		if err := p.enable(ctx, "nginx"); err != nil {
			return "", err
		}
		p.installed = append(p.installed, "nginx")
	}

	if len(p.installed) == 0 {
		return "already provisioned, using " + compose, nil
	}
	return "installed " + strings.Join(p.installed, ", ") + ", using " + compose, nil
}

// detectCompose returns the first working compose invocation, or "".
func detectCompose(ctx context.Context, st *State) (string, error) {
	for _, c := range composeCommands {
		ok, err := st.Runner.Check(ctx, c+" present", st.sudo(c+" version"))
		if err != nil {
			return "", err
		}
		if ok {
			return c, nil
		}
	}
	return "", nil
}
