// Package remote runs typed commands on the deployment host.
package remote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ThomasCrouzet/dockship/internal/ui"
	"github.com/hashicorp/go-multierror"
)

// Policy declares how a failed request affects the run.
type Policy int

const (
	// Fatal failures stop the run.
	Fatal Policy = iota
	// Tolerated failures are reported as warnings.
	Tolerated
	// Diagnostic failures are informational only.
	Diagnostic
)

func (p Policy) String() string {
	switch p {
	case Fatal:
		return "fatal"
	case Tolerated:
		return "tolerated"
	case Diagnostic:
		return "diagnostic"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// Request is one command sent to the remote host.
type Request struct {
	Name    string
	Command string
	Policy  Policy
	Stdin   io.Reader
	// Quiet captures output without streaming it to the terminal.
	Quiet bool
	// Success overrides the default exit-status-zero predicate.
	Success func(Result) bool
}

// Result is the outcome of a Request.
type Result struct {
	Name       string
	Command    string
	ExitStatus int
	Stdout     string
	Stderr     string
	Err        error // transport failure, not a non-zero exit
	Duration   time.Duration
}

// OK reports a clean exit.
func (r Result) OK() bool {
	return r.Err == nil && r.ExitStatus == 0
}

// Output returns trimmed stdout.
func (r Result) Output() string {
	return strings.TrimSpace(r.Stdout)
}

// Succeeded applies the request's success predicate to res.
func (req Request) Succeeded(res Result) bool {
	if req.Success != nil {
		return req.Success(res)
	}
	return res.OK()
}

// Executor sends a request over some transport.
type Executor interface {
	Exec(ctx context.Context, req Request) Result
}

// CommandError reports a request that failed under the Fatal policy.
type CommandError struct {
	Name       string
	Command    string
	ExitStatus int
	Stderr     string
	Err        error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Name, e.Err)
	}
	msg := fmt.Sprintf("%s: exit status %d", e.Name, e.ExitStatus)
	if last := lastLine(e.Stderr); last != "" {
		msg += ": " + last
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func newCommandError(res Result) *CommandError {
	return &CommandError{
		Name:       res.Name,
		Command:    res.Command,
		ExitStatus: res.ExitStatus,
		Stderr:     res.Stderr,
		Err:        res.Err,
	}
}

// Runner executes requests and applies their policies.
type Runner struct {
	exec      Executor
	logger    *slog.Logger
	tolerated *multierror.Error
	// Echo prints each command before it runs.
	Echo bool
}

// NewRunner wraps exec. A nil logger discards records.
func NewRunner(exec Executor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{exec: exec, logger: logger, Echo: true}
}

// Logger returns the structured logger requests are recorded to.
func (r *Runner) Logger() *slog.Logger {
	return r.logger
}

// Run executes req. The error is non-nil only for a failed Fatal request.
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	if r.Echo {
		ui.Command(req.Name, req.Command)
	}

	res := r.exec.Exec(ctx, req)
	ok := req.Succeeded(res)

	r.logger.Info("remote command",
		"name", req.Name,
		"policy", req.Policy.String(),
		"exit", res.ExitStatus,
		"ok", ok,
		"duration", res.Duration.String(),
		"transport_error", errString(res.Err),
	)

	if ok {
		return res, nil
	}

	switch req.Policy {
	case Tolerated:
		err := newCommandError(res)
		r.tolerated = multierror.Append(r.tolerated, err)
		ui.Warn(err.Error() + " (ignored)")
		return res, nil
	case Diagnostic:
		ui.Info(req.Name + ": " + describe(res))
		return res, nil
	default:
		return res, newCommandError(res)
	}
}

// Sequence runs reqs in order and stops at the first Fatal failure.
func (r *Runner) Sequence(ctx context.Context, reqs ...Request) ([]Result, error) {
	results := make([]Result, 0, len(reqs))
	for _, req := range reqs {
		res, err := r.Run(ctx, req)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// Check runs a quiet presence test. It reports whether the command exited
// zero; the error is set only when the transport failed.
func (r *Runner) Check(ctx context.Context, name, command string) (bool, error) {
	res := r.exec.Exec(ctx, Request{Name: name, Command: command, Quiet: true})
	r.logger.Debug("remote check", "name", name, "exit", res.ExitStatus, "transport_error", errString(res.Err))
	if res.Err != nil {
		return false, newCommandError(res)
	}
	return res.ExitStatus == 0, nil
}

// Tolerated returns the tolerated failures seen so far, or nil.
func (r *Runner) Tolerated() error {
	return r.tolerated.ErrorOrNil()
}

// ToleratedCount returns how many tolerated failures were seen.
func (r *Runner) ToleratedCount() int {
	if r.tolerated == nil {
		return 0
	}
	return len(r.tolerated.Errors)
}

func describe(res Result) string {
	if res.Err != nil {
		return res.Err.Error()
	}
	if last := lastLine(res.Stderr); last != "" {
		return fmt.Sprintf("exit status %d: %s", res.ExitStatus, last)
	}
	return fmt.Sprintf("exit status %d", res.ExitStatus)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
