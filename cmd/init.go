package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ThomasCrouzet/dockship/internal/ui"
	"github.com/ThomasCrouzet/dockship/internal/wizard"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var initForce bool

// Replaced in tests.
var (
	canPrompt        = interactive
	confirmOverwrite = askOverwrite
	runWizard        = func() (*wizard.WizardAnswers, error) { return wizard.Run(wizard.Detect(nil)) }
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a dockship.yml for this repository",
	Long: `Look up the Git origin and the SSH keys on this machine, ask for the
remaining connection settings and write them to dockship.yml. The access
token is never stored in the file.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "replace an existing config file without asking")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := "dockship.yml"
	if cfgFile != "" {
		path = cfgFile
	}

	ok, err := mayWrite(path)
	if err != nil {
		return err
	}
	if !ok {
		ui.Info("kept " + path)
		return nil
	}

	ui.Println(ui.Bold("Looking for a Git origin and SSH keys"))
	answers, err := runWizard()
	if err != nil {
		return fmt.Errorf("init form: %w", err)
	}
	return saveConfig(path, *answers)
}

// mayWrite reports whether the config file at path may be written.
func mayWrite(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return true, nil
	case err != nil:
		return false, err
	case initForce:
		return true, nil
	case !canPrompt():
		return false, fmt.Errorf("%s already exists; pass --force to replace it", path)
	}
	return confirmOverwrite(path)
}

func askOverwrite(path string) (bool, error) {
	var replace bool
	err := huh.NewConfirm().
		Title(path + " already exists").
		Description("Replace it with a new configuration?").
		Affirmative("Replace").
		Negative("Keep").
		Value(&replace).
		Run()
	return replace, err
}

func saveConfig(path string, answers wizard.WizardAnswers) error {
	content, err := wizard.GenerateConfig(answers)
	if err != nil {
		return fmt.Errorf("render config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	// The file names the key and host, so keep it private.
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	ui.Success("Wrote " + path)
	ui.Println()
	ui.Println("Deploy with " + ui.Bold("dockship --git-token <token>"))
	ui.Println(ui.Hint("DOCKSHIP_GIT_TOKEN works too; the token is read at deploy time only."))
	return nil
}
