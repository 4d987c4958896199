package smoke

import (
	"errors"
	"fmt"
	"math"

	"github.com/okian/ace/internal/domain/model"
	"github.com/okian/ace/internal/domain/rating"
)

// ErrMismatch is returned when served data violates a rating invariant.
var ErrMismatch = errors.New("verification mismatch")

func near(a, b float64) bool {
	return math.Abs(a-b) <= epsilon*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

// verifyLeaderboard checks ordering, dense ranks and rating identities.
func verifyLeaderboard(entries []entry) error {
	for i, e := range entries {
		if err := verifyRatings(e.TeamSeasonRating); err != nil {
			return err
		}
		if i == 0 {
			if e.Rank != 1 {
				return fmt.Errorf("%w: first entry has rank %d", ErrMismatch, e.Rank)
			}
			continue
		}
		prev := entries[i-1]
		switch {
		case e.ActualEPA > prev.ActualEPA:
			return fmt.Errorf("%w: entry %d (team %d) outranks entry %d", ErrMismatch, i, e.TeamNumber, i-1)
		case e.ActualEPA == prev.ActualEPA && e.Rank != prev.Rank:
			return fmt.Errorf("%w: tied teams %d and %d have ranks %d and %d",
				ErrMismatch, prev.TeamNumber, e.TeamNumber, prev.Rank, e.Rank)
		case e.ActualEPA < prev.ActualEPA && e.Rank != prev.Rank+1:
			return fmt.Errorf("%w: team %d has rank %d after rank %d", ErrMismatch, e.TeamNumber, e.Rank, prev.Rank)
		}
	}
	return nil
}

// verifyRatings checks that overall sums the phases and actual EPA is overall
// scaled by confidence.
func verifyRatings(s model.TeamSeasonRating) error {
	if !near(s.Overall, s.Auto+s.Teleop+s.Endgame) {
		return fmt.Errorf("%w: team %d overall %.6f is not the sum of its phases", ErrMismatch, s.TeamNumber, s.Overall)
	}
	if !near(s.ActualEPA, s.Overall*s.Confidence) {
		return fmt.Errorf("%w: team %d actual EPA %.6f != %.6f x %.6f",
			ErrMismatch, s.TeamNumber, s.ActualEPA, s.Overall, s.Confidence)
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("%w: team %d confidence %.6f out of [0, 1]", ErrMismatch, s.TeamNumber, s.Confidence)
	}
	return nil
}

// verifySeasons checks each fetched season against its leaderboard row.
func verifySeasons(entries []entry, seasons []model.TeamSeasonRating) error {
	if len(entries) != len(seasons) {
		return fmt.Errorf("%w: %d entries but %d seasons", ErrMismatch, len(entries), len(seasons))
	}
	for i, e := range entries {
		s := seasons[i]
		if s.TeamNumber != e.TeamNumber || !near(s.ActualEPA, e.ActualEPA) {
			return fmt.Errorf("%w: season of team %d does not match its leaderboard entry", ErrMismatch, e.TeamNumber)
		}
		counted := 0
		for _, ev := range s.Events {
			if ev.Counted() && !model.IsPlaceholderTeam(s.TeamNumber) {
				counted++
			}
		}
		if s.TotalEvents != counted {
			return fmt.Errorf("%w: team %d reports %d events but %d were counted",
				ErrMismatch, s.TeamNumber, s.TotalEvents, counted)
		}
	}
	return nil
}

// verifyPrediction checks that an even matchup is predicted as a coin flip.
func verifyPrediction(p rating.Prediction) error {
	if !near(p.RedWin+p.BlueWin, 1) {
		return fmt.Errorf("%w: probabilities sum to %.6f", ErrMismatch, p.RedWin+p.BlueWin)
	}
	if !near(p.RedWin, 0.5) {
		return fmt.Errorf("%w: self matchup predicted at %.6f", ErrMismatch, p.RedWin)
	}
	return nil
}
