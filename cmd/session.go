package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ThomasCrouzet/dockship/internal/config"
	"github.com/ThomasCrouzet/dockship/internal/logging"
	"github.com/ThomasCrouzet/dockship/internal/metrics"
	"github.com/ThomasCrouzet/dockship/internal/orchestrator"
	"github.com/ThomasCrouzet/dockship/internal/ui"
	"github.com/ThomasCrouzet/dockship/internal/version"
)

// session holds the log file and metrics of one run.
type session struct {
	mode        string
	log         *logging.File
	logger      *slog.Logger
	recorder    *metrics.Recorder
	metricsFile string
}

// startSession opens the log file and tees the terminal output into it.
func startSession(cfg *config.Config, mode, project string) (*session, error) {
	lf, err := logging.Open(config.ExpandPath(cfg.LogDir), time.Now())
	if err != nil {
		return nil, err
	}

	ui.Out = lf.Tee(os.Stdout)
	ui.Err = lf.Tee(os.Stderr)

	s := &session{
		mode:        mode,
		log:         lf,
		logger:      lf.Logger(),
		metricsFile: cfg.MetricsFile,
	}
	if s.metricsFile != "" {
		s.recorder = metrics.NewRecorder(project)
	}

	s.logger.Info("run started", "mode", mode, "project", project, "version", version.Version)
	ui.Info(fmt.Sprintf("Logging to %s", lf.Path))
	return s, nil
}

// finish records the outcome, writes metrics and closes the log file.
func (s *session) finish(err error) {
	outcome := "success"
	if err != nil {
		outcome = "failed"
		s.logger.Error("run failed", "error", err.Error(), "exit", orchestrator.ExitCode(err))
	} else {
		s.logger.Info("run finished")
	}

	if s.recorder != nil {
		s.recorder.Finish(s.mode, outcome, time.Now())
		if werr := s.recorder.WriteFile(config.ExpandPath(s.metricsFile)); werr != nil {
			ui.Warn(fmt.Sprintf("could not write metrics: %v", werr))
		}
	}

	ui.Out = os.Stdout
	ui.Err = os.Stderr
	_ = s.log.Close()
}
