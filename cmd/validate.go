package cmd

import (
	"fmt"

	"github.com/ThomasCrouzet/dockship/internal/config"
	"github.com/ThomasCrouzet/dockship/internal/orchestrator"
	"github.com/ThomasCrouzet/dockship/internal/ui"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the deployment settings without touching the server",
	Long: `Check that every required setting is present, the application port is
valid, and the SSH key is readable. Nothing is sent to the remote host.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return configError(err)
	}

	ui.Println(ui.Bold("Validating settings..."))

	errs := cfg.Validate()
	failed := map[string]bool{}
	for _, ve := range errs {
		ui.ValidationErr(ve.Field, ve.Message, ve.Suggestion)
		failed[ve.Field] = true
	}

	passed := 0
	for _, field := range []string{"git_url", "git_token", "ssh_user", "server_ip", "ssh_key", "app_port"} {
		if failed[field] {
			continue
		}
		detail := "set"
		switch field {
		case "git_url":
			detail = cfg.GitURL + " (project " + projectOf(cfg) + ")"
		case "git_token":
			detail = "set (hidden)"
		case "server_ip":
			detail = fmt.Sprintf("%s:%d", cfg.ServerIP, cfg.SSHPort)
		case "ssh_key":
			detail = config.ExpandPath(cfg.SSHKey)
		case "app_port":
			detail = cfg.AppPort
		case "ssh_user":
			detail = cfg.SSHUser
		}
		ui.ValidationOK(field, detail)
		passed++
	}

	ui.Println()
	if len(errs) == 0 {
		ui.Success(fmt.Sprintf("%d checks passed, 0 errors", passed))
		return nil
	}

	ui.Println(fmt.Sprintf("%d checks passed, %d errors", passed, len(errs)))
	return &orchestrator.StepError{
		Step:     "config",
		Category: orchestrator.CategoryConfig,
		Err:      fmt.Errorf("%d validation errors", len(errs)),
	}
}

func projectOf(cfg *config.Config) string {
	if cfg.Project != "" {
		return cfg.Project
	}
	return config.ProjectName(cfg.GitURL)
}
