package api

import (
	"context"
	"net/http"

	"github.com/okian/ace/internal/domain/model"
	"github.com/okian/ace/pkg/logger"
)

// TeamsDependencies defines the per-team operations.
type TeamsDependencies interface {
	SeasonRating(ctx context.Context, team, year int) (model.TeamSeasonRating, error)
	RecalculateTeam(ctx context.Context, team, year int) (model.TeamSeasonRating, error)
}

// TeamsHandler serves a team's season rating and recomputes it on demand.
type TeamsHandler struct {
	deps   TeamsDependencies
	logger logger.Logger
}

// NewTeamsHandler creates a new teams handler.
func NewTeamsHandler(deps TeamsDependencies, l logger.Logger) *TeamsHandler {
	return &TeamsHandler{deps: deps, logger: l}
}

// HandleGetSeason handles GET /teams/{team}/seasons/{year}.
func (h *TeamsHandler) HandleGetSeason(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_team_season"
	team, year, err := pathTeamYear(r)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	season, err := h.deps.SeasonRating(r.Context(), team, year)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, season)
}

// HandleRecalculate handles POST /teams/{team}/seasons/{year}/recalculate.
func (h *TeamsHandler) HandleRecalculate(w http.ResponseWriter, r *http.Request) {
	const op = "api.recalculate_team"
	team, year, err := pathTeamYear(r)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	season, err := h.deps.RecalculateTeam(r.Context(), team, year)
	if err != nil {
		h.logger.Warn(r.Context(), "team recalculation failed",
			logger.Int("team", team),
			logger.Int("year", year),
			logger.Error(err),
		)
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, season)
}
