package cmd

import (
	"fmt"

	"github.com/ThomasCrouzet/dockship/internal/orchestrator"
	"github.com/ThomasCrouzet/dockship/internal/ui"
	"github.com/ThomasCrouzet/dockship/internal/wizard"
	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove a deployment from the remote host",
	Long: `Stop and remove the project's containers, images and compose stack,
remove its nginx site, and delete the remote directory and deployment
record. Every step tolerates failure, so cleanup can be run repeatedly.`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return configError(err)
	}

	var missing []string
	for _, key := range cfg.MissingFields() {
		switch key {
		case "ssh_user", "server_ip", "ssh_key":
			missing = append(missing, key)
		}
	}
	if cfg.Project == "" && cfg.GitURL == "" {
		missing = append(missing, "project")
	}
	if len(missing) > 0 && interactive() {
		if err := wizard.Prompt(cfg, missing, wizard.Detect(nil)); err != nil {
			return configError(fmt.Errorf("prompt: %w", err))
		}
	}

	target, err := cfg.TeardownTarget()
	if err != nil {
		return configError(err)
	}

	s, err := startSession(cfg, "cleanup", target.Project)
	if err != nil {
		return configError(err)
	}

	ui.Println(ui.Bold(fmt.Sprintf("Removing %s from %s@%s", target.Project, target.SSHUser, target.ServerIP)))

	report, err := orchestrator.Cleanup(cmd.Context(), target, orchestrator.Options{
		Logger:  s.logger,
		Metrics: s.recorder,
	})

	ui.Println()
	switch {
	case err != nil:
		ui.PrintError("Cleanup failed", err.Error(), hintFor(err))
	case report.Tolerated != nil:
		ui.Warn(report.Tolerated.Error())
		ui.Success("Cleanup finished with ignored errors")
	default:
		ui.Success("Cleanup complete")
	}
	s.finish(err)
	return err
}
