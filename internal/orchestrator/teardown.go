package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ThomasCrouzet/dockship/internal/config"
	"github.com/ThomasCrouzet/dockship/internal/descriptor"
	"github.com/ThomasCrouzet/dockship/internal/model"
	"github.com/ThomasCrouzet/dockship/internal/remote"
	"github.com/ThomasCrouzet/dockship/internal/util"
)

// TeardownReport summarizes a teardown.
type TeardownReport struct {
	Containers []string
	Images     []string
	// Tolerated aggregates every failure that was ignored.
	Tolerated error
	Failures  int
}

// Teardown removes everything a deploy created on the host. Every command
// is tolerated, so running it against a clean host succeeds. The returned
// error is set only when ctx is cancelled.
func Teardown(ctx context.Context, exec remote.Executor, target config.Target, logger *slog.Logger) (TeardownReport, error) {
	r := remote.NewRunner(exec, logger)
	st := &State{Target: target, Runner: r, Logger: r.Logger()}
	project := model.ComposeProject(target.Project)
	dir := RemoteDir(target)

	var report TeardownReport

	ids := map[string]bool{}
	for _, id := range discover(ctx, st, "find containers", "docker ps -aq", model.ContainerSelectors(target.Project)) {
		ids[id] = true
	}

	res, _ := r.Run(ctx, remote.Request{
		Name:    "read deployment record",
		Command: "cat " + IdentityFile + " 2>/dev/null || true",
		Policy:  remote.Tolerated,
		Quiet:   true,
	})
	if id, err := model.ParseIdentity(res.Stdout); err == nil && id.Kind != model.DescriptorCompose {
		ids[id.Value] = true
	}

	if len(ids) > 0 {
		report.Containers = sortedKeys(ids)
		_, _ = r.Run(ctx, remote.Request{
			Name:    "remove containers",
			Command: st.sudo("docker rm -f " + util.ShellJoin(report.Containers...)),
			Policy:  remote.Tolerated,
		})
	}

	if err := composeDown(ctx, st, dir, project); err != nil {
		return report, err
	}

	if images := discover(ctx, st, "find images", "docker images -q", model.ImageSelectors(target.Project)); len(images) > 0 {
		report.Images = images
		_, _ = r.Run(ctx, remote.Request{
			Name:    "remove images",
			Command: st.sudo("docker rmi -f " + util.ShellJoin(images...)),
			Policy:  remote.Tolerated,
		})
	}

	site := SiteFor(target.Project, target.ServerIP, 0)
	_, _ = r.Sequence(ctx,
		remote.Request{Name: "prune docker", Command: st.sudo("docker system prune -f"), Policy: remote.Tolerated},
		remote.Request{
			Name:    "remove site",
			Command: st.sudo("rm -f " + util.ShellQuote(site.AvailablePath()) + " " + util.ShellQuote(site.EnabledPath())),
			Policy:  remote.Tolerated,
		},
		remote.Request{Name: "reload nginx", Command: st.sudo("systemctl reload nginx"), Policy: remote.Tolerated},
		remote.Request{Name: "remove remote directory", Command: st.sudo("rm -rf " + dir), Policy: remote.Tolerated},
		remote.Request{Name: "remove deployment record", Command: "rm -f " + IdentityFile, Policy: remote.Tolerated},
	)

	report.Tolerated = r.Tolerated()
	report.Failures = r.ToleratedCount()
	return report, ctx.Err()
}

// discover runs list once per selector and returns the union of the
// printed IDs.
func discover(ctx context.Context, st *State, name, list string, selectors []string) []string {
	found := map[string]bool{}
	for _, sel := range selectors {
		res, _ := st.Runner.Run(ctx, remote.Request{
			Name:    name,
			Command: st.sudo(list + " --filter " + util.ShellQuote(sel)),
			Policy:  remote.Tolerated,
			Quiet:   true,
		})
		for _, id := range fields(res.Stdout) {
			found[id] = true
		}
	}
	return sortedKeys(found)
}

// composeDown stops the stack when a compose file is still on the host.
func composeDown(ctx context.Context, st *State, dir, project string) error {
	for _, name := range descriptor.ComposeFiles {
		ok, err := st.Runner.Check(ctx, "find "+name, "test -f "+dir+"/"+util.ShellQuote(name))
		if err != nil {
			st.Logger.Debug("compose file check failed", "error", err.Error())
			return ctx.Err()
		}
		if !ok {
			continue
		}

		compose, err := detectCompose(ctx, st)
		if err != nil || compose == "" {
			return ctx.Err()
		}
		_, _ = st.Runner.Run(ctx, remote.Request{
			Name: "stop stack",
			Command: fmt.Sprintf("cd %s && %s -p %s -f %s down",
				dir, st.sudo(compose), util.ShellQuote(project), util.ShellQuote(name)),
			Policy: remote.Tolerated,
		})
		return nil
	}
	return nil
}

// Summary is a one-line description of the report.
func (r TeardownReport) Summary() string {
	msg := fmt.Sprintf("removed %d container(s) and %d image(s)", len(r.Containers), len(r.Images))
	if r.Failures > 0 {
		msg += fmt.Sprintf(", %d step(s) failed and were ignored", r.Failures)
	}
	return msg
}

func fields(s string) []string {
	return strings.Fields(s)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
