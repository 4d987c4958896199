package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/ace/internal/adapters/repository"
	"github.com/okian/ace/internal/domain/model"
	"github.com/okian/ace/internal/domain/rating"
)

// SeasonRating returns the persisted season rating with its events.
// Returns repository.ErrNotFound when the season was never computed.
func (s *Service) SeasonRating(ctx context.Context, team, year int) (out model.TeamSeasonRating, err error) {
	err = s.reads.Do(ctx, func(ctx context.Context) error {
		out, err = s.store.TeamSeasonRating(ctx, team, year)
		return err
	})
	return out, err
}

// EventRatings returns the team's persisted event ratings of year.
func (s *Service) EventRatings(ctx context.Context, team, year int) (out []model.TeamEventRating, err error) {
	err = s.reads.Do(ctx, func(ctx context.Context) error {
		out, err = s.store.TeamEventRatings(ctx, team, year)
		return err
	})
	return out, err
}

// Leaderboard returns the top n season ratings of year by actual EPA.
func (s *Service) Leaderboard(ctx context.Context, year, n int) (out []repository.Entry, err error) {
	err = s.reads.Do(ctx, func(ctx context.Context) error {
		out, err = s.store.TopSeason(ctx, year, n)
		return err
	})
	return out, err
}

// PredictRequest names two alliances by team number.
type PredictRequest struct {
	Year int
	Red  []int
	Blue []int
	// Mode overrides the predictor's default when not empty.
	Mode string
}

// Predict computes win probabilities from persisted season ratings. Teams
// without a season rating count with zero EPA and zero confidence.
func (s *Service) Predict(ctx context.Context, req PredictRequest) (rating.Prediction, error) {
	if len(req.Red) == 0 || len(req.Blue) == 0 {
		return rating.Prediction{}, fmt.Errorf("%w: both alliances need at least one team", ErrInvalidRequest)
	}
	red, err := s.strengths(ctx, req.Year, req.Red)
	if err != nil {
		return rating.Prediction{}, err
	}
	blue, err := s.strengths(ctx, req.Year, req.Blue)
	if err != nil {
		return rating.Prediction{}, err
	}
	if req.Mode == "" {
		return s.predictor.Predict(red, blue), nil
	}
	mode, err := rating.ParseMode(req.Mode)
	if err != nil {
		return rating.Prediction{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return s.predictor.PredictMode(mode, red, blue), nil
}

func (s *Service) strengths(ctx context.Context, year int, teams []int) ([]rating.TeamStrength, error) {
	out := make([]rating.TeamStrength, 0, len(teams))
	for _, team := range teams {
		season, err := s.SeasonRating(ctx, team, year)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			out = append(out, rating.TeamStrength{TeamNumber: team})
		case err != nil:
			return nil, fmt.Errorf("team %d season %d: %w", team, year, err)
		default:
			out = append(out, rating.TeamStrength{TeamNumber: team, EPA: season.Overall, Confidence: season.Confidence})
		}
	}
	return out, nil
}
