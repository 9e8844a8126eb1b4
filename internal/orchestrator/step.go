// Package orchestrator sequences a deployment against the remote host.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/ThomasCrouzet/dockship/internal/config"
	"github.com/ThomasCrouzet/dockship/internal/engine"
	"github.com/ThomasCrouzet/dockship/internal/metrics"
	"github.com/ThomasCrouzet/dockship/internal/model"
	"github.com/ThomasCrouzet/dockship/internal/probe"
	"github.com/ThomasCrouzet/dockship/internal/remote"
	"github.com/ThomasCrouzet/dockship/internal/source"
	"github.com/ThomasCrouzet/dockship/internal/ui"
	"github.com/ThomasCrouzet/dockship/internal/util"
)

// Step is one stage of the deploy pipeline.
type Step interface {
	Metadata() StepMetadata
	// Run performs the step and returns a short detail for the summary.
	Run(ctx context.Context, st *State) (string, error)
}

// StepMetadata describes a step.
type StepMetadata struct {
	Name        string   // internal key, e.g. "provision"
	DisplayName string   // e.g. "Provision remote host"
	Category    Category // category of its failures
}

// StepResult holds the result of a single step.
type StepResult struct {
	Name     string
	Skipped  bool
	Detail   string
	Err      error
	Duration time.Duration
}

// State is shared by the steps of one run.
type State struct {
	Deployment  config.Deployment
	Target      config.Target
	WorkingCopy source.WorkingCopy
	Descriptor  model.Descriptor
	Runner      *remote.Runner
	// Dialer reaches the remote Docker socket. Nil disables the SDK path.
	Dialer engine.Dialer
	Logger *slog.Logger

	// Compose is the detected compose invocation, e.g. "docker compose".
	Compose string
	// Identity is what launch started.
	Identity model.Identity

	Sleep func(ctx context.Context, d time.Duration) error
	Probe func(ctx context.Context, url string) probe.Report
}

func (st *State) sudo(command string) string {
	if st.Target.Sudo {
		return "sudo " + command
	}
	return command
}

// RemoteDir is the shell form of the remote application directory.
func RemoteDir(t config.Target) string {
	dir := t.RemoteDir
	if dir == "" {
		dir = "app"
	}
	if dir[0] == '/' {
		return util.ShellQuote(dir)
	}
	return "~/" + util.ShellQuote(dir)
}

// IdentityFile holds the identity of the last launch.
const IdentityFile = "~/.dockship_deployment"

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func defaultProbe(ctx context.Context, url string) probe.Report {
	return probe.HTTP(ctx, probe.NewClient(), url)
}

// RemoteSteps is the part of the deploy pipeline that runs once the
// session is open, in order.
func RemoteSteps() []Step {
	return []Step{
		provisionStep{},
		transferStep{},
		launchStep{},
		proxyStep{},
		validateStep{},
	}
}

// RunSteps runs steps in order and stops at the first failure; the steps
// after it are reported as skipped. Each step failure is returned as a
// *StepError.
func RunSteps(ctx context.Context, st *State, steps []Step, rec *metrics.Recorder) ([]StepResult, error) {
	var results []StepResult

	for i, s := range steps {
		meta := s.Metadata()
		ui.StepStarted(meta.DisplayName)

		start := time.Now()
		detail, err := s.Run(ctx, st)
		res := StepResult{Name: meta.DisplayName, Detail: detail, Duration: time.Since(start)}

		outcome := "ok"
		if err != nil {
			outcome = "failed"
			err = &StepError{Step: meta.Name, Category: meta.Category, Err: err}
			res.Err = err
			ui.StepFailed(meta.DisplayName, err)
		} else {
			ui.StepDone(meta.DisplayName, detail)
		}
		if rec != nil {
			rec.ObserveStep(meta.Name, outcome, res.Duration)
		}
		st.Logger.Info("step finished", "step", meta.Name, "outcome", outcome, "duration", res.Duration.String())

		results = append(results, res)
		if err != nil {
			for _, rest := range steps[i+1:] {
				name := rest.Metadata().DisplayName
				ui.StepSkipped(name, meta.Name+" failed")
				results = append(results, StepResult{Name: name, Skipped: true})
			}
			return results, err
		}
	}
	return results, nil
}
