package api

import (
	"context"
	"net/http"

	service "github.com/okian/ace/internal/app"
	"github.com/okian/ace/internal/domain/rating"
)

// PredictDependencies computes win probabilities.
type PredictDependencies interface {
	Predict(ctx context.Context, req service.PredictRequest) (rating.Prediction, error)
}

// PredictHandler handles win probability requests.
type PredictHandler struct {
	deps        PredictDependencies
	defaultYear int
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps PredictDependencies, defaultYear int) *PredictHandler {
	return &PredictHandler{deps: deps, defaultYear: defaultYear}
}

// HandlePredict handles GET /predict?year=Y&red=1,2,3&blue=4,5,6&mode=M.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	q := r.URL.Query()
	year, err := queryYear(r, h.defaultYear)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	red, err := parseTeams(q.Get("red"))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	blue, err := parseTeams(q.Get("blue"))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	p, err := h.deps.Predict(r.Context(), service.PredictRequest{
		Year: year,
		Red:  red,
		Blue: blue,
		Mode: q.Get("mode"),
	})
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}
