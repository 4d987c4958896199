package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/okian/ace/internal/adapters/matchcache"
	"github.com/okian/ace/internal/adapters/repository"
	"github.com/okian/ace/internal/adapters/source"
	"github.com/okian/ace/internal/domain/experience"
	"github.com/okian/ace/internal/domain/model"
	"github.com/okian/ace/internal/domain/rating"
	"github.com/okian/ace/pkg/logger"
)

// run is the state shared by the teams of one recalculation.
type run struct {
	id         string
	year       int
	matches    *matchcache.Cache
	experience *experience.Tracker
}

func (s *Service) newRun(year int) *run {
	return &run{
		id:         uuid.NewString(),
		year:       year,
		matches:    matchcache.New(s.src),
		experience: experience.NewTracker(retryingExperience{s}),
	}
}

// retryingExperience reads experience through the store read policy.
type retryingExperience struct{ s *Service }

func (r retryingExperience) TeamExperience(ctx context.Context, team, upToYear int) (n int, err error) {
	err = r.s.reads.Do(ctx, func(ctx context.Context) error {
		n, err = r.s.store.TeamExperience(ctx, team, upToYear)
		return err
	})
	return n, err
}

// RecalculateTeam recomputes and persists one team's season. It returns
// ErrNoData when the team played no match in year.
func (s *Service) RecalculateTeam(ctx context.Context, team, year int) (model.TeamSeasonRating, error) {
	r := s.newRun(year)
	season, err := s.computeTeam(ctx, r, team, year)
	if err != nil {
		return model.TeamSeasonRating{}, err
	}
	if !played(season.Events) {
		if err := s.clear(ctx, team, year); err != nil {
			return model.TeamSeasonRating{}, err
		}
		return model.TeamSeasonRating{}, fmt.Errorf("team %d in %d: %w", team, year, ErrNoData)
	}
	if err := s.persist(ctx, season); err != nil {
		return model.TeamSeasonRating{}, err
	}
	return season, nil
}

// computeTeam rates every event of the team in year and aggregates the
// season. Nothing is written.
func (s *Service) computeTeam(ctx context.Context, r *run, team, year int) (model.TeamSeasonRating, error) {
	events, err := s.src.TeamEvents(ctx, team, year)
	if errors.Is(err, source.ErrNotFound) {
		return model.ZeroSeason(team, year), nil
	}
	if err != nil {
		return model.TeamSeasonRating{}, fmt.Errorf("team %d events: %w", team, err)
	}
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].StartDate.Equal(events[j].StartDate) {
			return events[i].StartDate.Before(events[j].StartDate)
		}
		return events[i].Key < events[j].Key
	})

	years, err := r.experience.Years(ctx, team, year)
	if err != nil {
		return model.TeamSeasonRating{}, err
	}

	ratings := make([]model.TeamEventRating, 0, len(events))
	attended := 0 // earlier events where the team played
	for _, ev := range events {
		matches, err := r.matches.EventMatches(ctx, ev.Key)
		if err != nil && !errors.Is(err, source.ErrNotFound) {
			return model.TeamSeasonRating{}, fmt.Errorf("event %s matches: %w", ev.Key, err)
		}
		er := s.calculator.Event(ctx, rating.EventInput{
			Team:            team,
			EventKey:        ev.Key,
			Year:            year,
			Matches:         matches,
			EventsAttended:  attended + 1,
			YearsExperience: years,
		})
		er.EventStart = ev.StartDate
		if er.MatchCount > 0 {
			attended++
		}
		ratings = append(ratings, er)
	}

	season := s.aggregator.Season(ctx, team, year, ratings, s.chronoWeight(year))
	s.logger.Debug(ctx, "team rated",
		logger.String("run_id", r.id),
		logger.Int("team", team),
		logger.Int("year", year),
		logger.Int("events", len(ratings)),
		logger.Float64("actual_epa", season.ActualEPA),
	)
	return season, nil
}

func (s *Service) chronoWeight(year int) rating.WeightFunc {
	return func(r model.TeamEventRating) float64 {
		w, _ := s.calendar.Weight(year, r.EventStart)
		return w
	}
}

// persist replaces the team's event rows and season row of the year in one
// transaction. A canceled context never opens the transaction.
func (s *Service) persist(ctx context.Context, season model.TeamSeasonRating) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.store.WithTx(ctx, func(w repository.Writer) error {
		if err := w.DeleteTeamSeason(ctx, season.TeamNumber, season.Year); err != nil {
			return err
		}
		for _, er := range season.Events {
			if err := w.UpsertTeamEventRating(ctx, er); err != nil {
				return err
			}
		}
		return w.UpsertTeamSeasonRating(ctx, season)
	})
	if err != nil {
		return fmt.Errorf("persist team %d season %d: %w", season.TeamNumber, season.Year, err)
	}
	return nil
}

// clear removes whatever an earlier run persisted for a team that no longer
// has a played match in year.
func (s *Service) clear(ctx context.Context, team, year int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.store.WithTx(ctx, func(w repository.Writer) error {
		return w.DeleteTeamSeason(ctx, team, year)
	})
	if err != nil {
		return fmt.Errorf("clear team %d season %d: %w", team, year, err)
	}
	return nil
}

func played(events []model.TeamEventRating) bool {
	for _, er := range events {
		if er.MatchCount > 0 {
			return true
		}
	}
	return false
}
