package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/ThomasCrouzet/dockship/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	cfgFile        string
	nonInteractive bool
	logDir         string
	metricsFile    string

	cleanupMode      bool
	cleanupOnFailure bool
)

var rootCmd = &cobra.Command{
	Use:   "dockship",
	Short: "Deploy a Dockerized Git repository to a remote Linux host",
	Long: `dockship clones or updates a Git repository, provisions Docker, the
compose tool and nginx on a remote host over SSH, ships the source, builds
and starts the containers, and routes port 80 to the application.

Run without a subcommand to deploy. Missing settings are prompted for when
the terminal is interactive.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDeploy,
}

// Execute runs the root command with ctx, which is cancelled on interrupt.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (default: dockship.yml)")
	pf.BoolVar(&nonInteractive, "non-interactive", false, "never prompt; fail on missing settings")
	pf.StringVar(&logDir, "log-dir", "", "directory for the run log file (default: .)")
	pf.StringVar(&metricsFile, "metrics-file", "", "write step metrics in Prometheus text format to this file")
	addConnectionFlags(rootCmd)

	f := rootCmd.Flags()
	f.BoolVar(&cleanupMode, "cleanup", false, "tear the deployment down instead of deploying")
	f.BoolVar(&cleanupOnFailure, "cleanup-on-failure", false, "tear down when the launch or proxy step fails")
	f.String("git-url", "", "repository URL")
	f.String("git-token", "", "access token for https repositories")
	f.String("branch", "", "branch to deploy (default: main)")
	f.String("app-port", "", "port the application listens on")
	f.String("work-dir", "", "local directory the repository is cloned into (default: .)")
	f.Duration("grace-period", 0, "wait after start before probing (default: 10s)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("dockship")
		viper.SetConfigType("yml")
		viper.AddConfigPath(".")
	}

	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		}
	}
}

// interactive reports whether missing settings may be prompted for.
func interactive() bool {
	return !nonInteractive && term.IsTerminal(int(os.Stdin.Fd()))
}
