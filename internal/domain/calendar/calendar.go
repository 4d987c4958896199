// Package calendar weights events by how late in the season they start.
package calendar

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/okian/ace/internal/config"
)

// ErrInvalidCalendar reports unparseable or unordered week data.
var ErrInvalidCalendar = errors.New("invalid calendar")

// Kind describes where a date falls in its season.
type Kind string

const (
	KindPreseason Kind = "preseason"
	KindSeason    Kind = "season"
	KindOffseason Kind = "offseason"
	KindUnknown   Kind = "unknown"
)

// Fixed weights outside the regular season.
const (
	preseasonWeight = 0.05
	offseasonWeight = 0.1
	unknownWeight   = 1.0
)

// Week is one regular-season week, both ends inclusive.
type Week struct {
	Start time.Time
	End   time.Time
}

// Calendar holds ordered regular-season weeks per year. It is read-only
// after construction.
type Calendar struct {
	years map[int][]Week
}

// New builds a calendar from already parsed weeks. Weeks are sorted by start.
func New(years map[int][]Week) *Calendar {
	c := &Calendar{years: make(map[int][]Week, len(years))}
	for y, weeks := range years {
		if len(weeks) == 0 {
			continue
		}
		ws := make([]Week, len(weeks))
		copy(ws, weeks)
		sort.Slice(ws, func(i, j int) bool { return ws[i].Start.Before(ws[j].Start) })
		c.years[y] = ws
	}
	return c
}

// FromConfig parses YYYY-MM-DD week ranges keyed by year.
func FromConfig(cfg map[string][]config.Week) (*Calendar, error) {
	years := make(map[int][]Week, len(cfg))
	for key, weeks := range cfg {
		year, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("%w: year %q", ErrInvalidCalendar, key)
		}
		parsed := make([]Week, 0, len(weeks))
		for i, w := range weeks {
			s, err := time.Parse(config.DateLayout, w.Start)
			if err != nil {
				return nil, fmt.Errorf("%w: %d week %d start: %w", ErrInvalidCalendar, year, i+1, err)
			}
			e, err := time.Parse(config.DateLayout, w.End)
			if err != nil {
				return nil, fmt.Errorf("%w: %d week %d end: %w", ErrInvalidCalendar, year, i+1, err)
			}
			if e.Before(s) {
				return nil, fmt.Errorf("%w: %d week %d ends before it starts", ErrInvalidCalendar, year, i+1)
			}
			parsed = append(parsed, Week{Start: s, End: e})
		}
		years[year] = parsed
	}
	return New(years), nil
}

// Weight returns the chronological weight of an event starting at date.
// Years without calendar data weigh 1.0.
func (c *Calendar) Weight(year int, date time.Time) (float64, Kind) {
	weeks, ok := c.years[year]
	if !ok || date.IsZero() {
		return unknownWeight, KindUnknown
	}
	d := day(date)
	first := weeks[0].Start
	last := weeks[len(weeks)-1].End

	switch {
	case d.Before(first):
		return preseasonWeight, KindPreseason
	case d.After(last):
		return offseasonWeight, KindOffseason
	}

	span := last.Sub(first)
	progress := 1.0
	if span > 0 {
		progress = float64(d.Sub(first)) / float64(span)
	}
	return progressWeight(progress), KindSeason
}

// progressWeight maps season progress in [0,1] piecewise-linearly to [0.2,1].
func progressWeight(p float64) float64 {
	switch {
	case p <= 0.2:
		return 0.2 + p/0.2*0.2
	case p <= 0.8:
		return 0.4 + (p-0.2)/0.6*0.4
	default:
		return 0.8 + (p-0.8)/0.2*0.2
	}
}

// Years lists years with calendar data in ascending order.
func (c *Calendar) Years() []int {
	ys := make([]int, 0, len(c.years))
	for y := range c.years {
		ys = append(ys, y)
	}
	sort.Ints(ys)
	return ys
}

// day keeps the calendar date as seen in the value's location.
func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
