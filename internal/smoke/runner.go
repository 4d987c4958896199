package smoke

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/ace/internal/domain/model"
	"github.com/okian/ace/internal/domain/rating"
	"github.com/okian/ace/pkg/logger"
)

// entry is one leaderboard row as served by GET /leaderboard.
type entry struct {
	Rank int `json:"rank"`
	model.TeamSeasonRating
}

type runSummary struct {
	RunID     string `json:"run_id"`
	Teams     int    `json:"teams"`
	Processed int    `json:"processed"`
	Updated   int    `json:"updated"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

type serviceStats struct {
	RunningYears []int       `json:"runningYears"`
	RatedTeams   int         `json:"ratedTeams"`
	LastRun      *runSummary `json:"lastRun"`
}

// Run recalculates a season on a live service and verifies what it serves.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	config.Normalize()
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("smoke")
	client := newHTTPClient(config.BaseURL, config.Timeout)

	log.Info(ctx, "starting ace smoke run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("year", config.Year),
		logger.Int("topN", config.TopN),
		logger.Int("workers", config.Workers),
		logger.Bool("trigger", config.Trigger))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Start the season run
	if config.Trigger {
		if err := triggerSeason(ctx, client, config.Year, stats, log); err != nil {
			return stats, fmt.Errorf("season trigger failed: %w", err)
		}
	}

	// Step 3: Wait for the run to finish
	last, err := waitForRun(ctx, client, config, stats)
	if err != nil {
		return stats, fmt.Errorf("waiting for run failed: %w", err)
	}
	if last.LastRun != nil {
		log.Info(ctx, "season run finished",
			logger.String("runID", last.LastRun.RunID),
			logger.Int("teams", last.LastRun.Teams),
			logger.Int("updated", last.LastRun.Updated),
			logger.Int("skipped", last.LastRun.Skipped),
			logger.Int("failed", last.LastRun.Failed))
	}

	// Step 4: Get leaderboard
	var board struct {
		Entries []entry `json:"entries"`
	}
	path := "/leaderboard?year=" + strconv.Itoa(config.Year) + "&limit=" + strconv.Itoa(config.TopN)
	if err := client.getJSON(ctx, path, &board); err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	stats.LeaderboardEntries = len(board.Entries)

	// Step 5: Retrieve seasons concurrently
	seasons, err := retrieveSeasons(ctx, client, config, board.Entries, stats, log)
	if err != nil {
		return stats, fmt.Errorf("season retrieval failed: %w", err)
	}

	// Step 6: Verify results
	if err := verifyLeaderboard(board.Entries); err != nil {
		return stats, fmt.Errorf("leaderboard verification failed: %w", err)
	}
	if err := verifySeasons(board.Entries, seasons); err != nil {
		return stats, fmt.Errorf("season verification failed: %w", err)
	}
	if len(board.Entries) > 0 {
		if err := checkSelfPrediction(ctx, client, config.Year, board.Entries[0].TeamNumber); err != nil {
			return stats, fmt.Errorf("prediction verification failed: %w", err)
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	if config.Verbose {
		displayTopTeams(ctx, log, board.Entries)
	}

	log.Info(ctx, "smoke run completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *httpClient) error {
	code, _, err := client.do(ctx, http.MethodGet, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if code != http.StatusOK {
		return fmt.Errorf("%w: /healthz returned %d", ErrStatus, code)
	}
	return nil
}

// triggerSeason starts a run. A run already in progress is waited on instead.
func triggerSeason(ctx context.Context, client *httpClient, year int, stats *Stats, log logger.Logger) error {
	code, body, err := client.do(ctx, http.MethodPost, "/seasons/"+strconv.Itoa(year)+"/recalculate")
	if err != nil {
		return err
	}
	switch code {
	case http.StatusAccepted:
		stats.RunTriggered = true
		log.Info(ctx, "season run started", logger.Int("year", year))
		return nil
	case http.StatusConflict:
		log.Info(ctx, "season run already in progress", logger.Int("year", year))
		return nil
	default:
		return fmt.Errorf("%w: recalculate returned %d: %s", ErrStatus, code, body)
	}
}

// waitForRun polls /stats until no run for the year is active.
func waitForRun(ctx context.Context, client *httpClient, config *Config, stats *Stats) (serviceStats, error) {
	path := "/stats?year=" + strconv.Itoa(config.Year)
	for {
		var s serviceStats
		if err := client.getJSON(ctx, path, &s); err != nil {
			return s, err
		}
		stats.Polls++
		if !slices.Contains(s.RunningYears, config.Year) {
			return s, nil
		}

		select {
		case <-ctx.Done():
			return s, ctx.Err()
		case <-time.After(config.PollInterval):
		}
	}
}

// retrieveSeasons fetches the season of every leaderboard team concurrently.
func retrieveSeasons(ctx context.Context, client *httpClient, config *Config, entries []entry, stats *Stats, log logger.Logger) ([]model.TeamSeasonRating, error) {
	seasons := make([]model.TeamSeasonRating, len(entries))
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.Workers)
	for i, e := range entries {
		g.Go(func() error {
			path := "/teams/" + strconv.Itoa(e.TeamNumber) + "/seasons/" + strconv.Itoa(config.Year)
			if err := client.getJSON(gctx, path, &seasons[i]); err != nil {
				failed.Add(1)
				log.Warn(gctx, "failed to get season", logger.Int("team", e.TeamNumber), logger.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	stats.SeasonsFailed = int(failed.Load())
	stats.SeasonsRetrieved = len(entries) - stats.SeasonsFailed
	if stats.SeasonsFailed > 0 {
		return nil, fmt.Errorf("%d of %d seasons could not be fetched", stats.SeasonsFailed, len(entries))
	}
	return seasons, nil
}

// checkSelfPrediction predicts a team against itself, which must be even.
func checkSelfPrediction(ctx context.Context, client *httpClient, year, team int) error {
	t := strconv.Itoa(team)
	var p rating.Prediction
	if err := client.getJSON(ctx, "/predict?year="+strconv.Itoa(year)+"&red="+t+"&blue="+t, &p); err != nil {
		return err
	}
	return verifyPrediction(p)
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	log.Info(ctx, "final statistics",
		logger.Bool("runTriggered", stats.RunTriggered),
		logger.Int("polls", stats.Polls),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.Int("seasonsRetrieved", stats.SeasonsRetrieved),
		logger.Int("seasonsFailed", stats.SeasonsFailed),
		logger.Duration("duration", stats.Duration))
}

func displayTopTeams(ctx context.Context, log logger.Logger, entries []entry) {
	for _, e := range entries[:min(10, len(entries))] {
		log.Info(ctx, "leaderboard",
			logger.Int("rank", e.Rank),
			logger.Int("team", e.TeamNumber),
			logger.Float64("actualEPA", e.ActualEPA),
			logger.Float64("epa", e.Overall),
			logger.Float64("confidence", e.Confidence))
	}
}
