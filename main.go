package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThomasCrouzet/dockship/cmd"
	"github.com/ThomasCrouzet/dockship/internal/orchestrator"
	"github.com/ThomasCrouzet/dockship/internal/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx)
	stop()

	if err != nil {
		// Step and config failures were already reported.
		if orchestrator.CategoryOf(err) == 0 {
			ui.PrintError(err.Error(), "", "")
		}
		os.Exit(orchestrator.ExitCode(err))
	}
}
