package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThomasCrouzet/dockship/internal/config"
	"github.com/ThomasCrouzet/dockship/internal/metrics"
	"github.com/ThomasCrouzet/dockship/internal/model"
	"github.com/ThomasCrouzet/dockship/internal/remote"
	"github.com/ThomasCrouzet/dockship/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeploySingleContainer(t *testing.T) {
	dir := workingCopy(t, map[string]string{
		"Dockerfile": "FROM python:3.12-slim\nCOPY . /app\nCMD [\"python\", \"/app/app.py\"]\n",
		"app.py":     "print('hello')\n",
	})
	host := newFakeHost(provisionedHost)
	opts, slept := testOptions(host, dir)
	opts.Metrics = metrics.NewRecorder("app")

	results, err := Deploy(context.Background(), testDeployment(), opts)
	require.NoError(t, err)
	require.Len(t, results, 8)
	for _, r := range results {
		assert.NoError(t, r.Err, r.Name)
	}

	assert.True(t, host.ran("sudo docker build -t app-app ~/app"))
	assert.True(t, host.ran("sudo docker run -d --name app-app --restart unless-stopped --label dockship.project=app -p 8080:8080 app-app"))
	assert.True(t, host.ran("printf '%s\\n' 3f2a9c0b1d2e4f5a > ~/.dockship_deployment"))
	assert.False(t, host.ran("compose -p app"))
	assert.Equal(t, []time.Duration{10 * time.Second}, *slept)

	assert.Contains(t, tarNames(t, host.stdin["upload source"]), "Dockerfile")
	assert.True(t, host.ran("tar -xf - -C ~/app"))

	site := string(host.stdin["write site"])
	assert.Contains(t, site, "proxy_pass http://127.0.0.1:8080;")
	assert.Contains(t, site, "server_name 203.0.113.5 _;")
	assert.True(t, host.ran("sudo ln -sf /etc/nginx/sites-available/app /etc/nginx/sites-enabled/app"))
	assert.True(t, host.ran("sudo systemctl reload nginx"))

	// The SDK path fails against the fake host and the CLI listing is used.
	assert.Equal(t, 2, host.count("sudo docker ps --filter label=dockship.project=app"))
	assert.Equal(t, 2, host.count("sudo docker ps --filter 'name=^/?app-app$'"))
	assert.False(t, host.ran("--filter name=app"))
	assert.True(t, host.closed)
}

func TestDeployCompose(t *testing.T) {
	dir := workingCopy(t, map[string]string{
		"Dockerfile": "FROM nginx:alpine\n",
		"docker-compose.yml": `services:
  web:
    build: .
    ports:
      - "8080:8080"
  cache:
    image: redis:7
`,
	})
	host := newFakeHost(provisionedHost)
	opts, _ := testOptions(host, dir)

	_, err := Deploy(context.Background(), testDeployment(), opts)
	require.NoError(t, err)

	assert.True(t, host.ran("cd ~/app && sudo docker compose -p app -f docker-compose.yml down"))
	assert.True(t, host.ran("cd ~/app && sudo docker compose -p app -f docker-compose.yml up -d --build"))
	assert.True(t, host.ran("printf '%s\\n' compose:app > ~/.dockship_deployment"))
	assert.False(t, host.ran("docker build"))
}

func TestDeployMissingDescriptor(t *testing.T) {
	dir := workingCopy(t, map[string]string{"README.md": "# app\n"})
	dialed := false
	opts, _ := testOptions(nil, dir)
	opts.Dial = func(ctx context.Context, t config.Target) (Session, error) {
		dialed = true
		return nil, errors.New("unexpected dial")
	}

	_, err := Deploy(context.Background(), testDeployment(), opts)
	require.Error(t, err)
	assert.Equal(t, 1, ExitCode(err))
	assert.Equal(t, CategoryPrecondition, CategoryOf(err))
	assert.False(t, dialed)
}

func TestDeploySourceFailure(t *testing.T) {
	opts, _ := testOptions(nil, "")
	opts.Resolver = fakeResolver{err: &source.ResolveError{Op: "git pull", Err: errors.New("exit status 1")}}

	_, err := Deploy(context.Background(), testDeployment(), opts)
	require.Error(t, err)
	assert.Equal(t, 1, ExitCode(err))
	assert.Equal(t, CategorySource, CategoryOf(err))
}

func TestDeployUnreachableHost(t *testing.T) {
	dir := workingCopy(t, map[string]string{"Dockerfile": "FROM scratch\n"})
	opts, _ := testOptions(nil, dir)
	opts.Dial = func(ctx context.Context, t config.Target) (Session, error) {
		return nil, errors.New("dial tcp 203.0.113.5:22: i/o timeout")
	}

	_, err := Deploy(context.Background(), testDeployment(), opts)
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
}

func TestDeployNginxTestFails(t *testing.T) {
	dir := workingCopy(t, map[string]string{"Dockerfile": "FROM scratch\n"})
	host := newFakeHost(failing(provisionedHost, "test nginx config"))
	opts, _ := testOptions(host, dir)

	results, err := Deploy(context.Background(), testDeployment(), opts)
	require.Error(t, err)
	assert.Equal(t, 5, ExitCode(err))
	assert.False(t, host.ran("systemctl reload nginx"))

	require.Len(t, results, 8)
	assert.Error(t, results[6].Err)
	assert.True(t, results[7].Skipped)
	assert.Equal(t, "Validate deployment", results[7].Name)
}

func TestDeployBuildFailure(t *testing.T) {
	dir := workingCopy(t, map[string]string{"Dockerfile": "FROM scratch\n"})

	t.Run("stops", func(t *testing.T) {
		host := newFakeHost(failing(provisionedHost, "build image"))
		opts, _ := testOptions(host, dir)

		_, err := Deploy(context.Background(), testDeployment(), opts)
		require.Error(t, err)
		assert.Equal(t, 4, ExitCode(err))
		assert.False(t, host.ran("docker run"))
		assert.False(t, host.ran("docker system prune"))
		assert.False(t, host.ran("tee /etc/nginx"))
	})

	t.Run("cleans up on request", func(t *testing.T) {
		host := newFakeHost(failing(provisionedHost, "build image"))
		opts, _ := testOptions(host, dir)
		opts.CleanupOnFailure = true

		_, err := Deploy(context.Background(), testDeployment(), opts)
		require.Error(t, err)
		assert.Equal(t, 4, ExitCode(err))
		assert.True(t, host.ran("sudo docker system prune -f"))
		assert.True(t, host.ran("rm -f ~/.dockship_deployment"))
	})
}

func TestDeployProvisioningFailureSkipsCleanup(t *testing.T) {
	dir := workingCopy(t, map[string]string{"Dockerfile": "FROM scratch\n"})
	host := newFakeHost(failing(provisionedHost, "docker present", "refresh package list"))
	opts, _ := testOptions(host, dir)
	opts.CleanupOnFailure = true

	_, err := Deploy(context.Background(), testDeployment(), opts)
	require.Error(t, err)
	assert.Equal(t, 3, ExitCode(err))
	assert.False(t, host.ran("docker system prune"))
}

func TestTransferStreamsWorkingCopy(t *testing.T) {
	dir := workingCopy(t, map[string]string{
		"Dockerfile":     "FROM scratch\n",
		"src/handler.go": "package src\n",
	})
	host := newFakeHost(provisionedHost)
	st := remoteState(host)
	st.WorkingCopy = source.WorkingCopy{Dir: dir, Project: "app"}

	_, err := transferStep{}.Run(context.Background(), st)
	require.NoError(t, err)

	assert.Equal(t, "sudo rm -rf ~/app && mkdir -p ~/app", host.requests[0].Command)
	assert.Equal(t, remote.Fatal, host.requests[1].Policy)
	names := tarNames(t, host.stdin["upload source"])
	assert.Contains(t, names, "Dockerfile")
	assert.Contains(t, names, "src/handler.go")
}

func TestLaunchWarnsWhenComposeDoesNotPublishPort(t *testing.T) {
	host := newFakeHost(provisionedHost)
	st := remoteState(host)
	st.Compose = "docker-compose"
	st.Descriptor = model.Descriptor{
		Kind:     model.DescriptorCompose,
		Path:     "compose.yaml",
		Services: []*model.Service{{Name: "web", Ports: []model.PortMapping{model.SamePort(3000)}}},
	}

	id, err := launchStep{}.Run(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, "compose:app", id)
	assert.True(t, host.ran("cd ~/app && sudo docker-compose -p app -f compose.yaml up -d --build"))
}

func TestLaunchRequiresContainerID(t *testing.T) {
	host := newFakeHost(func(req remote.Request) remote.Result { return remote.Result{} })
	st := remoteState(host)
	st.Descriptor = model.Descriptor{Kind: model.DescriptorDockerfile, Path: "Dockerfile"}

	_, err := launchStep{}.Run(context.Background(), st)
	require.Error(t, err)

	var cerr *remote.CommandError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "start container", cerr.Name)
	assert.False(t, host.ran(".dockship_deployment"))
}

func TestLaunchLabelsWithProjectName(t *testing.T) {
	host := newFakeHost(provisionedHost)
	st := remoteState(host)
	st.Deployment.Project = "abdul123abc.github.io"
	st.Descriptor = model.Descriptor{Kind: model.DescriptorDockerfile, Path: "Dockerfile"}

	_, err := launchStep{}.Run(context.Background(), st)
	require.NoError(t, err)
	assert.True(t, host.ran("--name abdul123abc-github-io-app --restart unless-stopped --label dockship.project=abdul123abc-github-io "))
}
