package ruleset

import (
	"context"
	"sort"

	"github.com/okian/ace/pkg/logger"
	"github.com/okian/ace/pkg/metrics"
)

// Registry resolves a season year to its Ruleset. It is built once at startup
// and read-only afterwards, so it is safe for concurrent use.
type Registry struct {
	byYear map[int]Ruleset
	newest Ruleset
	legacy Ruleset
	logger logger.Logger
}

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithLogger sets the logger used to report fallbacks.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRuleset registers or replaces the ruleset for its year.
func WithRuleset(rs Ruleset) Option {
	return func(r *Registry) {
		if rs != nil {
			r.byYear[rs.Year()] = rs
		}
	}
}

// NewRegistry builds the registry of every known season.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		byYear: make(map[int]Ruleset),
		legacy: legacy(0),
	}
	for y := LegacyFirstYear; y <= LegacyLastYear; y++ {
		r.byYear[y] = legacy(y)
	}
	for _, rs := range []Ruleset{rapidReact(), chargedUp(), crescendo(), reefscape()} {
		r.byYear[rs.Year()] = rs
	}

	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("ruleset")
	}

	for y, rs := range r.byYear {
		if r.newest == nil || y > r.newest.Year() {
			r.newest = rs
		}
	}
	return r
}

// Lookup returns the ruleset registered for year.
func (r *Registry) Lookup(year int) (Ruleset, bool) {
	rs, ok := r.byYear[year]
	return rs, ok
}

// Resolve returns the ruleset for year, falling back to the newest known
// season when the year is not registered. The fallback is logged.
func (r *Registry) Resolve(ctx context.Context, year int) Ruleset {
	if rs, ok := r.Lookup(year); ok {
		return rs
	}
	r.logger.Warn(ctx, "unknown ruleset year; using newest season",
		logger.Int("year", year),
		logger.Int("fallback_year", r.newest.Year()),
	)
	metrics.RecordRulesetFallback()
	return r.newest
}

// Legacy returns the alliance-score proxy ruleset used for matches that have
// no score breakdown.
func (r *Registry) Legacy() Ruleset {
	return r.legacy
}

// Years lists registered seasons in ascending order.
func (r *Registry) Years() []int {
	years := make([]int, 0, len(r.byYear))
	for y := range r.byYear {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}
