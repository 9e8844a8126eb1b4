package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThomasCrouzet/dockship/internal/config"
)

// Category classifies a failure and decides the process exit status.
type Category int

const (
	CategoryConfig Category = iota + 1
	CategorySource
	CategoryPrecondition
	CategoryConnectivity
	CategoryProvisioning
	CategoryDeploy
	CategoryProxy
	CategoryValidation
)

func (c Category) String() string {
	switch c {
	case CategoryConfig:
		return "config"
	case CategorySource:
		return "source"
	case CategoryPrecondition:
		return "precondition"
	case CategoryConnectivity:
		return "connectivity"
	case CategoryProvisioning:
		return "provisioning"
	case CategoryDeploy:
		return "deploy"
	case CategoryProxy:
		return "proxy"
	case CategoryValidation:
		return "validation"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// ExitCode is the process exit status for failures of this category.
// Local validation failures all exit 1.
func (c Category) ExitCode() int {
	switch c {
	case CategoryConfig, CategorySource, CategoryPrecondition:
		return 1
	case CategoryConnectivity:
		return 2
	case CategoryProvisioning:
		return 3
	case CategoryDeploy:
		return 4
	case CategoryProxy:
		return 5
	case CategoryValidation:
		return 6
	}
	return 1
}

// StepError wraps an error with the step that produced it.
type StepError struct {
	Step     string
	Category Category
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ExitInterrupted is returned when the run was cancelled by a signal.
const ExitInterrupted = 130

// ExitCode maps an error returned by a command to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}
	var serr *StepError
	if errors.As(err, &serr) {
		return serr.Category.ExitCode()
	}
	var ferr *config.FieldError
	if errors.As(err, &ferr) {
		return CategoryConfig.ExitCode()
	}
	return 1
}

// CategoryOf returns the category of err, or zero when it has none.
func CategoryOf(err error) Category {
	var serr *StepError
	if errors.As(err, &serr) {
		return serr.Category
	}
	return 0
}
