package smoke

import "time"

// Config holds configuration for a smoke run against a live service.
type Config struct {
	BaseURL      string        // Base URL of the service
	Year         int           // Season to recalculate and verify
	TopN         int           // Number of leaderboard entries to verify
	Workers      int           // Concurrent season fetches
	Timeout      time.Duration // HTTP request timeout
	PollInterval time.Duration // Delay between /stats polls while a run is active
	Trigger      bool          // Start a season run before verifying
	Verbose      bool
}

// Stats holds smoke run statistics.
type Stats struct {
	RunTriggered       bool
	Polls              int
	LeaderboardEntries int
	SeasonsRetrieved   int
	SeasonsFailed      int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}

// Normalize fills zero fields with defaults.
func (c *Config) Normalize() {
	if c.TopN <= 0 {
		c.TopN = DefaultTopN
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
}
