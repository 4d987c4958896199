// Package repository persists event and season ratings.
package repository

import (
	"context"
	"sort"

	"github.com/okian/ace/internal/domain/model"
)

// Entry is a leaderboard row.
type Entry struct {
	Rank int `json:"rank"`
	model.TeamSeasonRating
}

// Writer holds the writes that may run inside a transaction.
type Writer interface {
	// DeleteTeamSeason removes the team's season row and every event row of
	// year, so a recalculation can replace the whole set.
	DeleteTeamSeason(ctx context.Context, team, year int) error
	// UpsertTeamEventRating inserts or replaces the row keyed by (event key, team).
	UpsertTeamEventRating(ctx context.Context, r model.TeamEventRating) error
	// UpsertTeamSeasonRating inserts or replaces the row keyed by (team, year).
	UpsertTeamSeasonRating(ctx context.Context, r model.TeamSeasonRating) error
}

// Store provides read/write access to persisted ratings.
type Store interface {
	Writer

	// TeamEventRatings returns the team's event ratings in year ordered by
	// event start, then event key.
	TeamEventRatings(ctx context.Context, team, year int) ([]model.TeamEventRating, error)
	// TeamExperience counts the distinct years, up to and including upToYear,
	// in which the team has a rated event.
	TeamExperience(ctx context.Context, team, upToYear int) (int, error)
	// TeamSeasonRating returns the season row with its events.
	// Returns ErrNotFound if the season was never persisted.
	TeamSeasonRating(ctx context.Context, team, year int) (model.TeamSeasonRating, error)
	// TopSeason returns the top-n season ratings of year by actual EPA.
	TopSeason(ctx context.Context, year, n int) ([]Entry, error)
	// Count returns the number of season ratings persisted for year.
	Count(ctx context.Context, year int) (int, error)

	// WithTx runs fn in a transaction. Nothing fn wrote is visible unless it
	// returns nil.
	WithTx(ctx context.Context, fn func(w Writer) error) error

	Close() error
}

// sortEntries orders by actual EPA descending, then team number ascending.
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ActualEPA != entries[j].ActualEPA {
			return entries[i].ActualEPA > entries[j].ActualEPA
		}
		return entries[i].TeamNumber < entries[j].TeamNumber
	})
}

// assignRanksWithTies gives equal actual EPA the same rank; ranks stay
// consecutive.
func assignRanksWithTies(entries []Entry) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].ActualEPA != entries[i-1].ActualEPA {
			rank++
		}
		entries[i].Rank = rank
	}
}
