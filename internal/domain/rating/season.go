package rating

import (
	"context"

	"github.com/okian/ace/internal/domain/model"
)

// WeightFunc returns the chronological weight of an event rating.
type WeightFunc func(model.TeamEventRating) float64

// Aggregator combines event ratings into a season rating.
type Aggregator struct {
	weights Weights
}

// NewAggregator creates an aggregator. Invalid weights fall back to the defaults.
func NewAggregator(w Weights) *Aggregator {
	if w.Validate() != nil {
		w = DefaultWeights()
	}
	return &Aggregator{weights: w}
}

// Season averages the counted events, weighting each by its chronological
// weight times its match count. Wins, losses and ties are summed. Confidence
// is recomputed from the averaged sub-components, so the rescale is applied
// once. A nil weight func weights every event by match count alone.
func (a *Aggregator) Season(_ context.Context, team, year int, events []model.TeamEventRating, weight WeightFunc) model.TeamSeasonRating {
	out := model.ZeroSeason(team, year)
	out.Events = append(out.Events, events...)

	if model.IsPlaceholderTeam(team) {
		return out
	}

	counted := make([]model.TeamEventRating, 0, len(events))
	for _, e := range events {
		if e.Counted() {
			counted = append(counted, e)
		}
	}
	if len(counted) == 0 {
		return out
	}
	out.TotalEvents = len(counted)

	weights := make([]float64, len(counted))
	var total float64
	for i, e := range counted {
		w := 1.0
		if weight != nil {
			w = weight(e)
		}
		if w < 0 {
			w = 0
		}
		weights[i] = w * float64(e.MatchCount)
		total += weights[i]
	}
	if total == 0 {
		for i, e := range counted {
			weights[i] = float64(e.MatchCount)
			total += weights[i]
		}
	}

	var br model.ConfidenceBreakdown
	for i, e := range counted {
		share := weights[i] / total
		out.Auto += share * e.Auto
		out.Teleop += share * e.Teleop
		out.Endgame += share * e.Endgame
		out.Overall += share * e.Overall

		br.Consistency += share * e.Breakdown.Consistency
		br.Dominance += share * e.Breakdown.Dominance
		br.RecordAlignment += share * e.Breakdown.RecordAlignment
		br.VeteranBoost += share * e.Breakdown.VeteranBoost
		br.EventBoost += share * e.Breakdown.EventBoost

		out.Record = out.Record.Add(e.Record)
	}

	out.Breakdown = br
	out.Confidence = a.weights.Confidence(&out.Breakdown)
	out.ActualEPA = out.Overall * out.Confidence
	return out
}
