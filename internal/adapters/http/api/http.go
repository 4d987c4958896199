// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/ace/internal/adapters/repository"
	service "github.com/okian/ace/internal/app"
	"github.com/okian/ace/internal/domain/model"
	"github.com/okian/ace/internal/domain/rating"
	"github.com/okian/ace/pkg/logger"
)

// Default server settings.
const (
	defaultMaxLimit = 100
	defaultYear     = 2025
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Leaderboard(ctx context.Context, year, n int) ([]repository.Entry, error)
	SeasonRating(ctx context.Context, team, year int) (model.TeamSeasonRating, error)
	RecalculateTeam(ctx context.Context, team, year int) (model.TeamSeasonRating, error)
	// StartSeason launches a batch run and returns without waiting for it.
	StartSeason(ctx context.Context, year int) error
	Predict(ctx context.Context, req service.PredictRequest) (rating.Prediction, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	teamsHandler       *TeamsHandler
	seasonsHandler     *SeasonsHandler
	predictHandler     *PredictHandler
}

// Option applies a configuration option to the Server.
type Option func(*settings)

type settings struct {
	maxLimit    int
	defaultYear int
	logger      logger.Logger
}

// WithMaxLimit caps GET /leaderboard?limit.
func WithMaxLimit(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithDefaultYear sets the year used when a request names none.
func WithDefaultYear(year int) Option {
	return func(s *settings) {
		if year > 0 {
			s.defaultYear = year
		}
	}
}

// WithLogger sets a custom logger for handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := settings{maxLimit: defaultMaxLimit, defaultYear: defaultYear}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("api")
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider, cfg.defaultYear),
		leaderboardHandler: NewLeaderboardHandler(deps, cfg.maxLimit, cfg.defaultYear),
		teamsHandler:       NewTeamsHandler(deps, cfg.logger),
		seasonsHandler:     NewSeasonsHandler(deps),
		predictHandler:     NewPredictHandler(deps, cfg.defaultYear),
	}
}

// Register attaches all HTTP routes to mux. Background season runs live
// under ctx, not under the request that started them.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	s.seasonsHandler.base = ctx

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /teams/{team}/seasons/{year}", MetricsMiddleware(s.teamsHandler.HandleGetSeason, "team_season"))
	mux.HandleFunc("POST /teams/{team}/seasons/{year}/recalculate", MetricsMiddleware(s.teamsHandler.HandleRecalculate, "team_recalculate"))
	mux.HandleFunc("POST /seasons/{year}/recalculate", MetricsMiddleware(s.seasonsHandler.HandleRecalculate, "season_recalculate"))
	mux.HandleFunc("GET /predict", MetricsMiddleware(s.predictHandler.HandlePredict, "predict"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure classifies err and writes the matching error response.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}
