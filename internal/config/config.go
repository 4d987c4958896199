// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New builds a Config with defaults; Load layers a file and env on top.
// - Validate is the single place that rejects a config.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DateLayout is the calendar date format.
const DateLayout = "2006-01-02"

const weightSumTolerance = 1e-9

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// WorkerCount sets the number of concurrent team workers.
	WorkerCount int `koanf:"worker_count"`
	// QueueSize bounds the team job queue of a batch run.
	QueueSize int `koanf:"queue_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// CurrentYear is the season recalculated by the scheduler.
	CurrentYear int `koanf:"current_year"`
	// RecalcInterval is the period of scheduled recalculation; 0 disables it.
	RecalcInterval time.Duration `koanf:"recalc_interval"`

	Store     StoreConfig       `koanf:"store"`
	Source    SourceConfig      `koanf:"source"`
	Rating    RatingConfig      `koanf:"rating"`
	Predictor PredictorConfig   `koanf:"predictor"`
	Calendar  map[string][]Week `koanf:"calendar"`
}

// StoreConfig selects the rating store.
type StoreConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
	// MaxAttempts bounds retries of store reads.
	MaxAttempts int `koanf:"max_attempts"`
}

// SourceConfig configures the match data source.
type SourceConfig struct {
	BaseURL string        `koanf:"base_url"`
	AuthKey string        `koanf:"auth_key"`
	Timeout time.Duration `koanf:"timeout"`
	// MaxAttempts bounds retries of source fetches; 0 retries until the context ends.
	MaxAttempts int           `koanf:"max_attempts"`
	BaseDelay   time.Duration `koanf:"base_delay"`
	MaxDelay    time.Duration `koanf:"max_delay"`
}

// RatingConfig tunes the event rating update and the confidence model.
type RatingConfig struct {
	K                 float64 `koanf:"k"`
	QualImportance    float64 `koanf:"qual_importance"`
	PlayoffImportance float64 `koanf:"playoff_importance"`
	Decay             float64 `koanf:"decay"`

	Weights WeightsConfig `koanf:"weights"`
}

// WeightsConfig are the confidence weights; they must sum to 1.
type WeightsConfig struct {
	Consistency     float64 `koanf:"consistency"`
	Dominance       float64 `koanf:"dominance"`
	RecordAlignment float64 `koanf:"record_alignment"`
	Veteran         float64 `koanf:"veteran"`
	Event           float64 `koanf:"event"`
}

// Sum adds every weight.
func (w WeightsConfig) Sum() float64 {
	return w.Consistency + w.Dominance + w.RecordAlignment + w.Veteran + w.Event
}

// PredictorConfig selects the win probability formula.
type PredictorConfig struct {
	// Mode is "reliability" or "simple".
	Mode string `koanf:"mode"`
	// AllianceMean is "confidence_weighted" or "plain".
	AllianceMean       string  `koanf:"alliance_mean"`
	UncertaintyDamping bool    `koanf:"uncertainty_damping"`
	SimpleSteepness    float64 `koanf:"simple_steepness"`
}

// Week is one regular-season competition week, dates as YYYY-MM-DD.
type Week struct {
	Start string `koanf:"start"`
	End   string `koanf:"end"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		WorkerCount:         10,
		QueueSize:           10_000,
		MaxLeaderboardLimit: 100,
		CurrentYear:         2025,
		RecalcInterval:      30 * time.Minute,
		Store: StoreConfig{
			Driver:      DriverSQLite,
			DSN:         "file:ace.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)",
			MaxAttempts: 3,
		},
		Source: SourceConfig{
			BaseURL:     "https://www.thebluealliance.com/api/v3",
			Timeout:     30 * time.Second,
			MaxAttempts: 0,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    30 * time.Second,
		},
		Rating: RatingConfig{
			K:                 0.4,
			QualImportance:    1.1,
			PlayoffImportance: 1.0,
			Decay:             1.0,
			Weights: WeightsConfig{
				Consistency:     0.35,
				Dominance:       0.35,
				RecordAlignment: 0.10,
				Veteran:         0.10,
				Event:           0.10,
			},
		},
		Predictor: PredictorConfig{
			Mode:            "reliability",
			AllianceMean:    "confidence_weighted",
			SimpleSteepness: 0.1,
		},
		Calendar: map[string][]Week{
			"2024": weekly("2024-02-28", 6),
			"2025": weekly("2025-02-26", 6),
		},
	}
}

// weekly builds n Wednesday-to-Sunday weeks starting at first.
func weekly(first string, n int) []Week {
	start, err := time.Parse(DateLayout, first)
	if err != nil {
		return nil
	}
	weeks := make([]Week, n)
	for i := range weeks {
		s := start.AddDate(0, 0, 7*i)
		weeks[i] = Week{Start: s.Format(DateLayout), End: s.AddDate(0, 0, 4).Format(DateLayout)}
	}
	return weeks
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be at least 1", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be at least 1", ErrInvalidConfig)
	case c.MaxLeaderboardLimit < 1:
		return fmt.Errorf("%w: max_leaderboard_limit must be at least 1", ErrInvalidConfig)
	case c.RecalcInterval < 0:
		return fmt.Errorf("%w: recalc_interval must not be negative", ErrInvalidConfig)
	}

	switch c.Store.Driver {
	case DriverSQLite, DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalidConfig, c.Store.Driver)
	}

	if c.Rating.K <= 0 || c.Rating.K > 1 {
		return fmt.Errorf("%w: rating.k must be in (0, 1]", ErrInvalidConfig)
	}
	w := c.Rating.Weights
	for _, v := range []float64{w.Consistency, w.Dominance, w.RecordAlignment, w.Veteran, w.Event} {
		if v < 0 {
			return fmt.Errorf("%w: confidence weights must not be negative", ErrInvalidConfig)
		}
	}
	if math.Abs(w.Sum()-1) > weightSumTolerance {
		return fmt.Errorf("%w: confidence weights sum to %v, want 1", ErrInvalidConfig, w.Sum())
	}

	switch c.Predictor.Mode {
	case "reliability", "simple":
	default:
		return fmt.Errorf("%w: unknown predictor mode %q", ErrInvalidConfig, c.Predictor.Mode)
	}
	switch c.Predictor.AllianceMean {
	case "confidence_weighted", "plain":
	default:
		return fmt.Errorf("%w: unknown alliance mean %q", ErrInvalidConfig, c.Predictor.AllianceMean)
	}

	for year, weeks := range c.Calendar {
		if _, err := strconv.Atoi(year); err != nil {
			return fmt.Errorf("%w: calendar year %q", ErrInvalidConfig, year)
		}
		for i, wk := range weeks {
			s, err := time.Parse(DateLayout, wk.Start)
			if err != nil {
				return fmt.Errorf("%w: calendar %s week %d start: %v", ErrInvalidConfig, year, i+1, err)
			}
			e, err := time.Parse(DateLayout, wk.End)
			if err != nil {
				return fmt.Errorf("%w: calendar %s week %d end: %v", ErrInvalidConfig, year, i+1, err)
			}
			if e.Before(s) {
				return fmt.Errorf("%w: calendar %s week %d ends before it starts", ErrInvalidConfig, year, i+1)
			}
		}
	}
	return nil
}
