// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	Stats(ctx context.Context, year int) map[string]any
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	statsProvider StatsProvider
	defaultYear   int
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider, defaultYear int) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider, defaultYear: defaultYear}
}

// HandleStats handles GET /stats?year=Y requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	year, err := queryYear(r, h.defaultYear)
	if err != nil {
		writeFailure(w, Wrap("api.stats", err))
		return
	}
	writeJSON(w, http.StatusOK, h.statsProvider.Stats(r.Context(), year))
}
