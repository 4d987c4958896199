package api

import (
	"context"
	"net/http"
)

// SeasonsDependencies starts batch runs.
type SeasonsDependencies interface {
	StartSeason(ctx context.Context, year int) error
}

// SeasonsHandler triggers season recalculation.
type SeasonsHandler struct {
	deps SeasonsDependencies
	base context.Context
}

// NewSeasonsHandler creates a new seasons handler.
func NewSeasonsHandler(deps SeasonsDependencies) *SeasonsHandler {
	return &SeasonsHandler{deps: deps, base: context.Background()}
}

type acceptedResponse struct {
	Status string `json:"status"`
	Year   int    `json:"year"`
}

// HandleRecalculate handles POST /seasons/{year}/recalculate. The run
// continues after the response; progress is visible in /stats.
func (h *SeasonsHandler) HandleRecalculate(w http.ResponseWriter, r *http.Request) {
	const op = "api.recalculate_season"
	year, err := parseYear(r.PathValue("year"))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if err := h.deps.StartSeason(h.base, year); err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusAccepted, acceptedResponse{Status: "accepted", Year: year})
}
