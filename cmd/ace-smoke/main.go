package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/ace/internal/smoke"
)

const defaultRunTimeout = 30 * time.Minute

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:8080", "Base URL of the service")
		year      = flag.Int("year", time.Now().Year(), "Season to verify")
		topN      = flag.Int("top", smoke.DefaultTopN, "Number of leaderboard entries to verify")
		workers   = flag.Int("workers", smoke.DefaultWorkers, "Concurrent season fetches")
		timeout   = flag.Duration("timeout", smoke.DefaultTimeout, "HTTP request timeout")
		poll      = flag.Duration("poll", smoke.DefaultPollInterval, "Delay between /stats polls")
		noTrigger = flag.Bool("no-trigger", false, "Verify existing ratings without starting a run")
		logFile   = flag.String("log", "", "Log file (default: smoke_log_TIMESTAMP.log)")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		smoke.ShowHelp()
		return
	}

	closer, err := smoke.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &smoke.Config{
		BaseURL:      *baseURL,
		Year:         *year,
		TopN:         *topN,
		Workers:      *workers,
		Timeout:      *timeout,
		PollInterval: *poll,
		Trigger:      !*noTrigger,
		Verbose:      *verbose,
	}

	if _, err := smoke.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Smoke run failed: " + err.Error() + "\n")
		cancel()
		_ = closer.Close()
		os.Exit(1)
	}
}
