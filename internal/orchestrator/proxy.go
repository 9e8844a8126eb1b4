package orchestrator

import (
	"context"
	"strings"

	"github.com/ThomasCrouzet/dockship/internal/model"
	"github.com/ThomasCrouzet/dockship/internal/nginx"
	"github.com/ThomasCrouzet/dockship/internal/remote"
	"github.com/ThomasCrouzet/dockship/internal/util"
)

type proxyStep struct{}

func (proxyStep) Metadata() StepMetadata {
	return StepMetadata{Name: "proxy", DisplayName: "Configure reverse proxy", Category: CategoryProxy}
}

// SiteFor returns the nginx site of a deployment.
func SiteFor(project, serverIP string, appPort int) nginx.Site {
	return nginx.NewAppSite(model.ComposeProject(project), serverIP, appPort)
}

func (proxyStep) Run(ctx context.Context, st *State) (string, error) {
	site := SiteFor(st.Deployment.Project, st.Deployment.ServerIP, st.Deployment.AppPort)
	content, err := site.Render()
	if err != nil {
		return "", err
	}

	available := util.ShellQuote(site.AvailablePath())
	enabled := util.ShellQuote(site.EnabledPath())

	_, err = st.Runner.Sequence(ctx,
		remote.Request{
			Name:    "write site",
			Command: st.sudo("tee "+available) + " > /dev/null",
			Policy:  remote.Fatal,
			Stdin:   strings.NewReader(content),
		},
		remote.Request{Name: "enable site", Command: st.sudo("ln -sf " + available + " " + enabled), Policy: remote.Fatal},
		remote.Request{Name: "disable default site", Command: st.sudo("rm -f " + nginx.SitesEnabled + "/default"), Policy: remote.Tolerated},
		remote.Request{Name: "test nginx config", Command: st.sudo("nginx -t"), Policy: remote.Fatal},
		remote.Request{Name: "reload nginx", Command: st.sudo("systemctl reload nginx"), Policy: remote.Fatal},
	)
	if err != nil {
		return "", err
	}
	return site.AvailablePath(), nil
}
