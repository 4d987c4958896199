package rating

import (
	"fmt"
	"math"

	"github.com/okian/ace/internal/domain/model"
)

// epsilon keeps ratios finite when a denominator is zero.
const epsilon = 1e-6

const weightSumTolerance = 1e-9

// Rescale thresholds.
const (
	highConfidence = 0.85
	highStretch    = 1.1
	lowConfidence  = 0.65
	lowShrink      = 0.9
)

// Weights blend the confidence sub-components. They must sum to 1.
type Weights struct {
	Consistency     float64
	Dominance       float64
	RecordAlignment float64
	Veteran         float64
	Event           float64
}

// DefaultWeights returns the production weights.
func DefaultWeights() Weights {
	return Weights{
		Consistency:     0.35,
		Dominance:       0.35,
		RecordAlignment: 0.10,
		Veteran:         0.10,
		Event:           0.10,
	}
}

// Sum adds every weight.
func (w Weights) Sum() float64 {
	return w.Consistency + w.Dominance + w.RecordAlignment + w.Veteran + w.Event
}

// Validate rejects negative weights and weights that do not sum to 1.
func (w Weights) Validate() error {
	for _, v := range []float64{w.Consistency, w.Dominance, w.RecordAlignment, w.Veteran, w.Event} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: negative weight %v", ErrInvalidWeights, v)
		}
	}
	if math.Abs(w.Sum()-1) > weightSumTolerance {
		return fmt.Errorf("%w: sum %v", ErrInvalidWeights, w.Sum())
	}
	return nil
}

// Raw blends the sub-components into the raw confidence.
func (w Weights) Raw(b model.ConfidenceBreakdown) float64 {
	return w.Consistency*b.Consistency +
		w.Dominance*b.Dominance +
		w.RecordAlignment*b.RecordAlignment +
		w.Veteran*b.VeteranBoost +
		w.Event*b.EventBoost
}

// EventBoost rewards teams that have played several events this season.
func EventBoost(events int) float64 {
	switch {
	case events <= 0:
		return 0
	case events == 1:
		return 0.5
	case events == 2:
		return 0.9
	default:
		return 1.0
	}
}

// VeteranBoost rewards years of competition experience.
func VeteranBoost(years int) float64 {
	switch {
	case years <= 0:
		return 0
	case years == 1:
		return 0.2
	case years == 2:
		return 0.4
	case years == 3:
		return 0.6
	default:
		return 1.0
	}
}

// RecordAlignment maps the win rate of decided matches into [0.7, 1].
func RecordAlignment(r model.Record) float64 {
	return 0.7 + 0.3*r.WinRate()
}

// Consistency is 1 minus the population stdev relative to the best
// contribution, floored at 0. Fewer than two contributions give 1.
func Consistency(contribs []float64) float64 {
	if len(contribs) < 2 {
		return 1.0
	}
	var sum float64
	maxV := contribs[0]
	for _, c := range contribs {
		sum += c
		maxV = math.Max(maxV, c)
	}
	mean := sum / float64(len(contribs))
	var ss float64
	for _, c := range contribs {
		d := c - mean
		ss += d * d
	}
	stdev := math.Sqrt(ss / float64(len(contribs)))
	return math.Max(0, 1-stdev/(maxV+epsilon))
}

// Dominance is the mean of the per-match samples, capped at 1.
func Dominance(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	return math.Min(1, sum/float64(len(samples)))
}

// DominanceSample scores one match margin against the opponents' per-robot score.
func DominanceSample(actualOverall, oppPerRobot float64) float64 {
	scaled := (actualOverall - oppPerRobot) / (oppPerRobot + epsilon)
	return clamp((scaled+1)/1.3, 0, 1)
}

// Rescale stretches high raw confidence and shrinks low raw confidence,
// then clamps to [0, 1].
func Rescale(raw float64) float64 {
	switch {
	case raw > highConfidence:
		raw = highConfidence + (raw-highConfidence)*highStretch
	case raw < lowConfidence:
		raw *= lowShrink
	}
	return clamp(raw, 0, 1)
}

// Confidence fills Raw and returns the final confidence for b.
func (w Weights) Confidence(b *model.ConfidenceBreakdown) float64 {
	b.Raw = w.Raw(*b)
	return Rescale(b.Raw)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
