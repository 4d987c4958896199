package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/ace/internal/domain/model"
)

type eventKey struct {
	event string
	team  int
}

type seasonKey struct {
	team, year int
}

// MemoryStore is an in-process Store. It is safe for concurrent use and
// keeps nothing across restarts.
type MemoryStore struct {
	mu      sync.RWMutex
	events  map[eventKey]model.TeamEventRating
	seasons map[seasonKey]model.TeamSeasonRating
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:  make(map[eventKey]model.TeamEventRating),
		seasons: make(map[seasonKey]model.TeamSeasonRating),
	}
}

// DeleteTeamSeason implements Writer.
func (s *MemoryStore) DeleteTeamSeason(_ context.Context, team, year int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteSeason(team, year)
	return nil
}

func (s *MemoryStore) deleteSeason(team, year int) {
	for k, r := range s.events {
		if k.team == team && r.Year == year {
			delete(s.events, k)
		}
	}
	delete(s.seasons, seasonKey{team, year})
}

// UpsertTeamEventRating implements Writer.
func (s *MemoryStore) UpsertTeamEventRating(_ context.Context, r model.TeamEventRating) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[eventKey{r.EventKey, r.TeamNumber}] = r
	return nil
}

// UpsertTeamSeasonRating implements Writer. Events are stored separately.
func (s *MemoryStore) UpsertTeamSeasonRating(_ context.Context, r model.TeamSeasonRating) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.Events = nil
	s.seasons[seasonKey{r.TeamNumber, r.Year}] = r
	return nil
}

// TeamEventRatings implements Store.
func (s *MemoryStore) TeamEventRatings(_ context.Context, team, year int) ([]model.TeamEventRating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventsOf(team, year), nil
}

func (s *MemoryStore) eventsOf(team, year int) []model.TeamEventRating {
	out := []model.TeamEventRating{}
	for k, r := range s.events {
		if k.team == team && r.Year == year {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EventStart.Equal(out[j].EventStart) {
			return out[i].EventStart.Before(out[j].EventStart)
		}
		return out[i].EventKey < out[j].EventKey
	})
	return out
}

// TeamExperience implements Store.
func (s *MemoryStore) TeamExperience(_ context.Context, team, upToYear int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	years := make(map[int]struct{})
	for k, r := range s.events {
		if k.team == team && r.Year <= upToYear && r.MatchCount > 0 {
			years[r.Year] = struct{}{}
		}
	}
	return len(years), nil
}

// TeamSeasonRating implements Store.
func (s *MemoryStore) TeamSeasonRating(_ context.Context, team, year int) (model.TeamSeasonRating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.seasons[seasonKey{team, year}]
	if !ok {
		return model.TeamSeasonRating{}, fmt.Errorf("%w: team %d season %d", ErrNotFound, team, year)
	}
	r.Events = s.eventsOf(team, year)
	return r, nil
}

// TopSeason implements Store. Ties share a rank.
func (s *MemoryStore) TopSeason(_ context.Context, year, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	out := make([]Entry, 0, len(s.seasons))
	for k, r := range s.seasons {
		if k.year == year {
			out = append(out, Entry{TeamSeasonRating: r})
		}
	}
	s.mu.RUnlock()

	sortEntries(out)
	if len(out) > n {
		out = out[:n]
	}
	assignRanksWithTies(out)
	return out, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context, year int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for k := range s.seasons {
		if k.year == year {
			n++
		}
	}
	return n, nil
}

// WithTx stages writes and applies them only when fn succeeds.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(w Writer) error) error {
	tx := &memTx{staged: NewMemoryStore()}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range tx.deletes {
		s.deleteSeason(k.team, k.year)
	}
	for k, r := range tx.staged.events {
		s.events[k] = r
	}
	for k, r := range tx.staged.seasons {
		s.seasons[k] = r
	}
	return nil
}

// memTx records deletes ahead of the staged upserts. Writes staged before a
// delete of the same season are dropped with it.
type memTx struct {
	staged  *MemoryStore
	deletes []seasonKey
}

func (t *memTx) DeleteTeamSeason(ctx context.Context, team, year int) error {
	t.deletes = append(t.deletes, seasonKey{team, year})
	return t.staged.DeleteTeamSeason(ctx, team, year)
}

func (t *memTx) UpsertTeamEventRating(ctx context.Context, r model.TeamEventRating) error {
	return t.staged.UpsertTeamEventRating(ctx, r)
}

func (t *memTx) UpsertTeamSeasonRating(ctx context.Context, r model.TeamSeasonRating) error {
	return t.staged.UpsertTeamSeasonRating(ctx, r)
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
