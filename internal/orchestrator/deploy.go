package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/ThomasCrouzet/dockship/internal/config"
	"github.com/ThomasCrouzet/dockship/internal/engine"
	"github.com/ThomasCrouzet/dockship/internal/metrics"
	"github.com/ThomasCrouzet/dockship/internal/probe"
	"github.com/ThomasCrouzet/dockship/internal/remote"
	"github.com/ThomasCrouzet/dockship/internal/source"
	"github.com/ThomasCrouzet/dockship/internal/ui"
)

// Session is an open connection to the remote host.
type Session interface {
	remote.Executor
	engine.Dialer
	io.Closer
}

// DialFunc opens a Session.
type DialFunc func(ctx context.Context, t config.Target) (Session, error)

// DialSSH opens an SSH session that streams remote output through ui.
func DialSSH(ctx context.Context, t config.Target) (Session, error) {
	c, err := remote.Dial(ctx, t)
	if err != nil {
		return nil, err
	}
	c.Stdout = ui.Out
	c.Stderr = ui.Err
	return c, nil
}

// Options wires the collaborators of a run. Zero values select the
// production implementations.
type Options struct {
	Resolver SourceResolver
	Dial     DialFunc
	Logger   *slog.Logger
	Metrics  *metrics.Recorder
	// CleanupOnFailure tears the host down when launch or proxy fails.
	CleanupOnFailure bool

	Sleep func(ctx context.Context, d time.Duration) error
	Probe func(ctx context.Context, url string) probe.Report
}

func (o *Options) defaults() {
	if o.Dial == nil {
		o.Dial = DialSSH
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.Sleep == nil {
		o.Sleep = sleepContext
	}
	if o.Probe == nil {
		o.Probe = defaultProbe
	}
}

// connectStep opens the session and proves a command can run over it.
type connectStep struct {
	dial    DialFunc
	session *Session
}

func (connectStep) Metadata() StepMetadata {
	return connectivityStep{}.Metadata()
}

func (c connectStep) Run(ctx context.Context, st *State) (string, error) {
	sess, err := c.dial(ctx, st.Target)
	if err != nil {
		return "", err
	}
	*c.session = sess
	st.Runner = remote.NewRunner(sess, st.Logger)
	st.Dialer = sess
	return connectivityStep{}.Run(ctx, st)
}

// Deploy runs the full pipeline for dep.
func Deploy(ctx context.Context, dep config.Deployment, opts Options) ([]StepResult, error) {
	opts.defaults()
	if opts.Resolver == nil {
		opts.Resolver = source.NewResolver()
	}

	st := &State{
		Deployment: dep,
		Target:     dep.Target(),
		Logger:     opts.Logger,
		Sleep:      opts.Sleep,
		Probe:      opts.Probe,
	}
	opts.Logger.Info("deploy started", "project", dep.Project, "host", st.Target.Address(), "branch", dep.Branch)

	var sess Session
	defer func() {
		if sess != nil {
			_ = sess.Close()
		}
	}()

	steps := []Step{
		sourceStep{resolver: opts.Resolver},
		descriptorStep{},
		connectStep{dial: opts.Dial, session: &sess},
	}
	steps = append(steps, RemoteSteps()...)

	results, err := RunSteps(ctx, st, steps, opts.Metrics)
	if err == nil {
		return results, nil
	}

	if opts.CleanupOnFailure && sess != nil && cleanupApplies(err) {
		ui.Warn("cleaning up after failed " + CategoryOf(err).String() + " step")
		report, terr := Teardown(ctx, sess, st.Target, opts.Logger)
		if terr == nil {
			ui.Info(report.Summary())
		}
	}
	return results, err
}

func cleanupApplies(err error) bool {
	switch CategoryOf(err) {
	case CategoryDeploy, CategoryProxy:
		return true
	}
	return false
}

// Cleanup connects to target and tears the deployment down.
func Cleanup(ctx context.Context, target config.Target, opts Options) (TeardownReport, error) {
	opts.defaults()

	st := &State{Target: target, Logger: opts.Logger}
	var sess Session
	defer func() {
		if sess != nil {
			_ = sess.Close()
		}
	}()

	if _, err := RunSteps(ctx, st, []Step{connectStep{dial: opts.Dial, session: &sess}}, opts.Metrics); err != nil {
		return TeardownReport{}, err
	}

	ui.StepStarted("Tear down " + target.Project)
	start := time.Now()
	report, err := Teardown(ctx, sess, target, opts.Logger)
	if opts.Metrics != nil {
		outcome := "ok"
		if report.Failures > 0 {
			outcome = "tolerated"
		}
		opts.Metrics.ObserveStep("teardown", outcome, time.Since(start))
	}
	if err != nil {
		return report, &StepError{Step: "teardown", Category: CategoryDeploy, Err: err}
	}
	ui.StepDone("Tear down "+target.Project, report.Summary())
	return report, nil
}
