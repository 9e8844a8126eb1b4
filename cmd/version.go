package cmd

import (
	"fmt"

	"github.com/ThomasCrouzet/dockship/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
