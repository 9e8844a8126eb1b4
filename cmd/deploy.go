package cmd

import (
	"errors"
	"fmt"

	"github.com/ThomasCrouzet/dockship/internal/config"
	"github.com/ThomasCrouzet/dockship/internal/orchestrator"
	"github.com/ThomasCrouzet/dockship/internal/ui"
	"github.com/ThomasCrouzet/dockship/internal/wizard"
	"github.com/spf13/cobra"
)

func runDeploy(cmd *cobra.Command, args []string) error {
	if cleanupMode {
		return runCleanup(cmd, args)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return configError(err)
	}

	missing := cfg.MissingFields()
	if cfg.Branch == "" {
		missing = append(missing, "branch")
	}
	if len(missing) > 0 && interactive() {
		if err := wizard.Prompt(cfg, missing, wizard.Detect(nil)); err != nil {
			return configError(fmt.Errorf("prompt: %w", err))
		}
	}

	dep, err := cfg.Deployment()
	if err != nil {
		return configError(err)
	}

	if _, err := findExecutable("git"); err != nil {
		ui.PrintError("git not found", err.Error(), "install git on this machine")
		return &orchestrator.StepError{Step: "source", Category: orchestrator.CategoryPrecondition, Err: err}
	}

	s, err := startSession(cfg, "deploy", dep.Project)
	if err != nil {
		return configError(err)
	}

	ui.Println(ui.Bold(fmt.Sprintf("Deploying %s (%s) to %s@%s", dep.Project, dep.Branch, dep.SSHUser, dep.ServerIP)))

	_, err = orchestrator.Deploy(cmd.Context(), dep, orchestrator.Options{
		Logger:           s.logger,
		Metrics:          s.recorder,
		CleanupOnFailure: cleanupOnFailure,
	})

	ui.Println()
	if err != nil {
		ui.PrintError("Deployment failed", err.Error(), hintFor(err))
	} else {
		ui.Success(fmt.Sprintf("Deployed %s: http://%s/", dep.Project, dep.ServerIP))
		ui.Info(fmt.Sprintf("Tear down with: dockship cleanup --server-ip %s --project %s", dep.ServerIP, dep.Project))
	}
	s.finish(err)
	return err
}

// configError reports a configuration problem and classifies it.
func configError(err error) error {
	suggestion := "check dockship.yml and the environment"
	var fe *config.FieldError
	if errors.As(err, &fe) {
		suggestion = config.Suggestion(fe.Field)
	}
	ui.PrintError("Invalid configuration", err.Error(), suggestion)
	return &orchestrator.StepError{Step: "config", Category: orchestrator.CategoryConfig, Err: err}
}

func hintFor(err error) string {
	switch orchestrator.CategoryOf(err) {
	case orchestrator.CategorySource:
		return "check the repository URL, branch and token"
	case orchestrator.CategoryPrecondition:
		return "add a Dockerfile or docker-compose.yml to the repository"
	case orchestrator.CategoryConnectivity:
		return "check server_ip, ssh_user and ssh_key, and that port 22 is open"
	case orchestrator.CategoryProvisioning:
		return "the remote user needs passwordless sudo and apt"
	case orchestrator.CategoryDeploy:
		return "see the build output above; re-run with --cleanup-on-failure to tear down"
	case orchestrator.CategoryProxy:
		return "run 'sudo nginx -t' on the host for details"
	}
	return ""
}
