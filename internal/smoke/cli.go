package smoke

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/ace/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures JSON logging to both stdout and a file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	if logFile == "" {
		logFile = "smoke_log_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.Init(logger.WithFormat("json"), logger.WithOutput(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return file, nil
}

// ShowHelp prints usage information for the smoke tool.
func ShowHelp() {
	os.Stdout.WriteString(`ACE Smoke Tool
==============

Recalculates a season on a running ACE service and verifies what it serves:
leaderboard ordering and ranks, actual EPA = EPA x confidence, season
consistency with the leaderboard, and an even self matchup prediction.

Usage:
  go run ./cmd/ace-smoke [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8080")
  -year int
        Season to verify (default: current year)
  -top int
        Number of leaderboard entries to verify (default 50)
  -workers int
        Concurrent season fetches (default 8)
  -timeout duration
        HTTP request timeout (default 30s)
  -poll duration
        Delay between /stats polls while a run is active (default 2s)
  -no-trigger
        Verify existing ratings without starting a run
  -log string
        Log file (default: smoke_log_TIMESTAMP.log)
  -verbose
        Enable debug logging and print the top teams
  -help
        Show this help message
`)
}
