// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/ace/internal/adapters/repository"
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, year, n int) ([]repository.Entry, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps        LeaderboardDependencies
	maxLimit    int
	defaultYear int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit, defaultYear int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:        deps,
		maxLimit:    maxLimit,
		defaultYear: defaultYear,
	}
}

type leaderboardResponse struct {
	Year    int                `json:"year"`
	Entries []repository.Entry `json:"entries"`
}

// HandleGetLeaderboard handles GET /leaderboard?year=Y&limit=N requests.
// limit defaults to the maximum.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	year, err := queryYear(r, h.defaultYear)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	n := h.maxLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err = strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	entries, err := h.deps.Leaderboard(r.Context(), year, n)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if entries == nil {
		entries = []repository.Entry{}
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{Year: year, Entries: entries})
}
