// Package matchcache shares event match lists between the teams of one run.
package matchcache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/okian/ace/internal/domain/model"
	"github.com/okian/ace/pkg/metrics"
)

// Fetcher loads an event's matches.
type Fetcher interface {
	EventMatches(ctx context.Context, eventKey string) ([]model.Match, error)
}

// Cache memoises EventMatches for the lifetime of one run. Concurrent
// lookups of the same event share a single fetch. Errors are not cached.
// A Cache is created per run and passed explicitly; nothing is global.
type Cache struct {
	src   Fetcher
	group singleflight.Group
	mu    sync.RWMutex
	byKey map[string][]model.Match
}

// New creates an empty cache over src.
func New(src Fetcher) *Cache {
	return &Cache{src: src, byKey: make(map[string][]model.Match)}
}

// EventMatches returns the event's matches. Callers must not modify the
// returned slice.
func (c *Cache) EventMatches(ctx context.Context, eventKey string) ([]model.Match, error) {
	c.mu.RLock()
	ms, ok := c.byKey[eventKey]
	c.mu.RUnlock()
	if ok {
		metrics.RecordMatchCache(true)
		return ms, nil
	}

	v, err, shared := c.group.Do(eventKey, func() (any, error) {
		c.mu.RLock()
		ms, ok := c.byKey[eventKey]
		c.mu.RUnlock()
		if ok {
			return ms, nil
		}
		ms, err := c.src.EventMatches(ctx, eventKey)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.byKey[eventKey] = ms
		c.mu.Unlock()
		return ms, nil
	})
	metrics.RecordMatchCache(shared)
	if err != nil {
		return nil, err
	}
	return v.([]model.Match), nil
}

// Len returns the number of cached events.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byKey)
}
