// Package dedupe keeps a team from being queued twice in one recalculation run.
package dedupe

import (
	"context"
	"strconv"
	"sync"

	"github.com/okian/ace/pkg/metrics"
)

// Deduper records team jobs already accepted by a run.
type Deduper interface {
	// SeenAndRecord atomically checks whether the job was seen and records it if not.
	// It returns true when the job was already recorded.
	SeenAndRecord(ctx context.Context, team, year int) bool

	// Unrecord forgets a job so it can be submitted again, e.g. after the
	// queue rejected it.
	Unrecord(ctx context.Context, team, year int)

	Size() int
}

// JobKey identifies a team-season job.
func JobKey(team, year int) string {
	return strconv.Itoa(year) + "/" + strconv.Itoa(team)
}

// inMemoryDeduper is a set of job keys. In bounded mode the oldest key is
// evicted once maxSize keys are held.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string // insertion order, bounded mode only
	maxSize int      // <= 0 means unbounded
}

// NewInMemoryDeduper creates a deduper. It is unbounded unless WithMaxSize
// is given; a run's team list is already finite.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{})
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, team, year int) bool {
	id := JobKey(team, year)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		metrics.RecordDuplicateJob()
		return true
	}
	if d.maxSize > 0 {
		for len(d.seen) >= d.maxSize && len(d.order) > 0 {
			delete(d.seen, d.order[0])
			d.order = d.order[1:]
		}
		d.order = append(d.order, id)
	}
	d.seen[id] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, team, year int) {
	id := JobKey(team, year)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; !ok {
		return
	}
	delete(d.seen, id)
	if d.maxSize > 0 {
		for i, k := range d.order {
			if k == id {
				d.order = append(d.order[:i], d.order[i+1:]...)
				break
			}
		}
	}
}

func (d *inMemoryDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
