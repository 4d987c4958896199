// Package experience counts a team's competition years.
package experience

import (
	"context"
	"fmt"
	"sync"
)

// Source reports how many distinct years a team has persisted ratings for,
// up to and including upToYear.
type Source interface {
	TeamExperience(ctx context.Context, team, upToYear int) (int, error)
}

// Tracker memoises experience lookups for the lifetime of one run.
// It is safe for concurrent use.
type Tracker struct {
	src  Source
	mu   sync.Mutex
	memo map[key]int
}

type key struct{ team, year int }

// NewTracker creates a tracker over src.
func NewTracker(src Source) *Tracker {
	return &Tracker{src: src, memo: make(map[key]int)}
}

// Years returns the team's competition years through year. The current
// season counts even before it is persisted, so the result is at least 1.
func (t *Tracker) Years(ctx context.Context, team, year int) (int, error) {
	k := key{team, year}
	t.mu.Lock()
	if n, ok := t.memo[k]; ok {
		t.mu.Unlock()
		return n, nil
	}
	t.mu.Unlock()

	prior, err := t.src.TeamExperience(ctx, team, year-1)
	if err != nil {
		return 0, fmt.Errorf("team %d experience: %w", team, err)
	}
	n := prior + 1

	t.mu.Lock()
	t.memo[k] = n
	t.mu.Unlock()
	return n, nil
}
