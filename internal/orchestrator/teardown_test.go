package orchestrator

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/ThomasCrouzet/dockship/internal/config"
	"github.com/ThomasCrouzet/dockship/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hostContainer struct {
	id     string
	name   string
	labels map[string]string
}

// matches applies a docker ps filter the way the daemon does: labels match
// exactly and names match as a regular expression.
func (c hostContainer) matches(filter string) bool {
	key, value, _ := strings.Cut(filter, "=")
	switch key {
	case "label":
		k, v, _ := strings.Cut(value, "=")
		got, ok := c.labels[k]
		return ok && got == v
	case "name":
		return regexp.MustCompile(value).MatchString("/" + c.name)
	}
	return false
}

// deployedHost simulates a host with a deployment on it. Teardown requests
// remove the matching state, so a second pass finds nothing.
type deployedHost struct {
	containers []hostContainer
	record     string
	compose    bool
	images     string
}

func (d *deployedHost) respond(req remote.Request) remote.Result {
	switch req.Name {
	case "find containers":
		filter := strings.Trim(req.Command[strings.LastIndex(req.Command, " ")+1:], "'")
		var ids []string
		for _, c := range d.containers {
			if c.matches(filter) {
				ids = append(ids, c.id)
			}
		}
		return remote.Result{Stdout: strings.Join(ids, "\n")}
	case "read deployment record":
		return remote.Result{Stdout: d.record}
	case "find docker-compose.yml":
		if !d.compose {
			return remote.Result{ExitStatus: 1}
		}
	case "find docker-compose.yaml", "find compose.yml", "find compose.yaml":
		return remote.Result{ExitStatus: 1}
	case "find images":
		return remote.Result{Stdout: d.images}
	case "remove containers":
		var kept []hostContainer
		for _, c := range d.containers {
			if !strings.Contains(req.Command, c.id) {
				kept = append(kept, c)
			}
		}
		d.containers = kept
	case "remove images":
		d.images = ""
	case "remove remote directory":
		d.compose = false
	case "remove deployment record":
		d.record = ""
	}
	return remote.Result{}
}

func appContainer() hostContainer {
	return hostContainer{id: "9b1c2d3e4f5a", name: "app-app", labels: map[string]string{"dockship.project": "app"}}
}

func testTarget() config.Target {
	return testDeployment().Target()
}

func TestTeardownRemovesEverything(t *testing.T) {
	state := &deployedHost{
		containers: []hostContainer{appContainer()},
		record:     "3f2a9c0b1d2e\n",
		compose:    true,
		images:     "sha256:aaa\nsha256:bbb\nsha256:aaa\n",
	}
	host := newFakeHost(state.respond)

	report, err := Teardown(context.Background(), host, testTarget(), nil)
	require.NoError(t, err)
	assert.NoError(t, report.Tolerated)

	assert.Equal(t, []string{"3f2a9c0b1d2e", "9b1c2d3e4f5a"}, report.Containers)
	assert.Equal(t, []string{"sha256:aaa", "sha256:bbb"}, report.Images)

	assert.True(t, host.ran("sudo docker ps -aq --filter label=dockship.project=app"))
	assert.True(t, host.ran("sudo docker ps -aq --filter label=com.docker.compose.project=app"))
	assert.True(t, host.ran("sudo docker ps -aq --filter 'name=^/?app-app$'"))
	assert.True(t, host.ran("sudo docker rm -f 3f2a9c0b1d2e 9b1c2d3e4f5a"))
	assert.True(t, host.ran("cd ~/app && sudo docker compose -p app -f docker-compose.yml down"))
	assert.True(t, host.ran("sudo docker images -q --filter reference=app-app"))
	assert.True(t, host.ran("sudo docker images -q --filter label=com.docker.compose.project=app"))
	assert.True(t, host.ran("sudo docker rmi -f sha256:aaa sha256:bbb"))
	assert.True(t, host.ran("sudo docker system prune -f"))
	assert.True(t, host.ran("sudo rm -f /etc/nginx/sites-available/app /etc/nginx/sites-enabled/app"))
	assert.True(t, host.ran("sudo systemctl reload nginx"))
	assert.True(t, host.ran("sudo rm -rf ~/app"))
	assert.True(t, host.ran("rm -f ~/.dockship_deployment"))
}

func TestTeardownSparesOtherProjects(t *testing.T) {
	state := &deployedHost{containers: []hostContainer{
		appContainer(),
		{id: "c0ffee000001", name: "app-web-1", labels: map[string]string{"com.docker.compose.project": "app"}},
		{id: "5ca1ab1e0001", name: "webapp-app", labels: map[string]string{"dockship.project": "webapp"}},
		{id: "5ca1ab1e0002", name: "myapp-db-1", labels: map[string]string{"com.docker.compose.project": "myapp"}},
		{id: "5ca1ab1e0003", name: "app-app-old"},
	}}
	host := newFakeHost(state.respond)

	report, err := Teardown(context.Background(), host, testTarget(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"9b1c2d3e4f5a", "c0ffee000001"}, report.Containers)
	require.Len(t, state.containers, 3)
	for _, c := range state.containers {
		assert.NotEqual(t, "app", c.labels["dockship.project"], c.name)
	}
}

func TestTeardownComposeRecordIsNotAContainer(t *testing.T) {
	state := &deployedHost{record: "compose:app\n"}
	host := newFakeHost(state.respond)

	report, err := Teardown(context.Background(), host, testTarget(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Containers)
	assert.False(t, host.ran("docker rm -f"))
}

func TestTeardownTwice(t *testing.T) {
	state := &deployedHost{
		containers: []hostContainer{appContainer()},
		record:     "3f2a9c0b1d2e\n",
		compose:    true,
		images:     "sha256:aaa\n",
	}
	host := newFakeHost(state.respond)
	ctx := context.Background()

	_, err := Teardown(ctx, host, testTarget(), nil)
	require.NoError(t, err)

	host.requests = nil
	report, err := Teardown(ctx, host, testTarget(), nil)
	require.NoError(t, err)
	assert.NoError(t, report.Tolerated)
	assert.Empty(t, report.Containers)
	assert.Empty(t, report.Images)
	assert.False(t, host.ran("compose -p app"))
	assert.True(t, host.ran("rm -f ~/.dockship_deployment"))
}

func TestTeardownToleratesFailures(t *testing.T) {
	host := newFakeHost(func(req remote.Request) remote.Result {
		return remote.Result{ExitStatus: 1, Stderr: "permission denied\n"}
	})

	report, err := Teardown(context.Background(), host, testTarget(), nil)
	require.NoError(t, err)
	require.Error(t, report.Tolerated)
	assert.Greater(t, report.Failures, 0)
	assert.Contains(t, report.Summary(), "failed and were ignored")
	// Every step is still attempted.
	assert.True(t, host.ran("rm -f ~/.dockship_deployment"))
}

func TestCleanup(t *testing.T) {
	state := &deployedHost{containers: []hostContainer{appContainer()}}
	host := newFakeHost(state.respond)
	opts, _ := testOptions(host, "")

	report, err := Cleanup(context.Background(), testTarget(), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"9b1c2d3e4f5a"}, report.Containers)
	assert.Equal(t, "true", host.requests[0].Command)
	assert.True(t, host.closed)
}

func TestCleanupUnreachable(t *testing.T) {
	opts, _ := testOptions(nil, "")
	opts.Dial = func(ctx context.Context, t config.Target) (Session, error) {
		return nil, errors.New("connection refused")
	}

	_, err := Cleanup(context.Background(), testTarget(), opts)
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
}
