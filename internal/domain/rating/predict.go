package rating

import (
	"fmt"
	"math"
)

// Mode selects the win probability formula.
type Mode string

const (
	// ModeReliability scales steepness by the teams' mean confidence and
	// clamps the result.
	ModeReliability Mode = "reliability"
	// ModeSimple uses a fixed steepness with no clamp. It suits intra-event tables.
	ModeSimple Mode = "simple"
)

// ParseMode parses a mode name; "" selects ModeReliability.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeReliability:
		return ModeReliability, nil
	case ModeSimple:
		return ModeSimple, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// AllianceMean selects how team ratings combine into an alliance rating.
type AllianceMean string

const (
	// MeanConfidenceWeighted averages epa x confidence.
	MeanConfidenceWeighted AllianceMean = "confidence_weighted"
	// MeanPlain averages epa.
	MeanPlain AllianceMean = "plain"
)

// Probability bounds of ModeReliability.
const (
	minRedProbability = 0.15
	maxRedProbability = 0.90
)

// Steepness of ModeReliability: base + span x (1 - reliability), or
// base + span x reliability with uncertainty damping.
const (
	baseSteepness  = 0.06
	spanSteepness  = 0.3
	defaultSimpleK = 0.1
)

// TeamStrength is one team's input to a prediction.
type TeamStrength struct {
	TeamNumber int     `json:"team_number"`
	EPA        float64 `json:"epa"`
	Confidence float64 `json:"confidence"`
}

// Prediction is the outcome of Predictor.Predict.
type Prediction struct {
	Mode        Mode    `json:"mode"`
	RedRating   float64 `json:"red_rating"`
	BlueRating  float64 `json:"blue_rating"`
	Reliability float64 `json:"reliability"`
	RedWin      float64 `json:"red_win_probability"`
	BlueWin     float64 `json:"blue_win_probability"`
}

// Predictor turns alliance strengths into win probabilities.
type Predictor struct {
	mode            Mode
	mean            AllianceMean
	damping         bool
	simpleSteepness float64
}

// NewPredictor creates a predictor in ModeReliability with confidence
// weighted alliance means.
func NewPredictor(opts ...PredictorOption) *Predictor {
	p := &Predictor{
		mode:            ModeReliability,
		mean:            MeanConfidenceWeighted,
		simpleSteepness: defaultSimpleK,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Mode returns the default mode of the predictor.
func (p *Predictor) Mode() Mode {
	return p.mode
}

// Predict uses the predictor's configured mode.
func (p *Predictor) Predict(red, blue []TeamStrength) Prediction {
	return p.PredictMode(p.mode, red, blue)
}

// PredictMode predicts with an explicit mode. Unknown modes use ModeReliability.
func (p *Predictor) PredictMode(mode Mode, red, blue []TeamStrength) Prediction {
	out := Prediction{
		Mode:        mode,
		RedRating:   p.allianceRating(red),
		BlueRating:  p.allianceRating(blue),
		Reliability: reliability(red, blue),
	}
	diff := out.RedRating - out.BlueRating

	if mode == ModeSimple {
		out.RedWin = logistic(p.simpleSteepness * diff)
		out.BlueWin = 1 - out.RedWin
		return out
	}
	out.Mode = ModeReliability

	var scale float64
	if p.damping {
		scale = baseSteepness + spanSteepness*out.Reliability
	} else {
		scale = baseSteepness + spanSteepness*(1-out.Reliability)
	}
	out.RedWin = clamp(logistic(scale*diff), minRedProbability, maxRedProbability)
	out.BlueWin = 1 - out.RedWin
	return out
}

func (p *Predictor) allianceRating(teams []TeamStrength) float64 {
	if len(teams) == 0 {
		return 0
	}
	var sum float64
	for _, t := range teams {
		if p.mean == MeanPlain {
			sum += t.EPA
		} else {
			sum += t.EPA * t.Confidence
		}
	}
	return sum / float64(len(teams))
}

// reliability is the mean confidence over both alliances.
func reliability(red, blue []TeamStrength) float64 {
	n := len(red) + len(blue)
	if n == 0 {
		return 0
	}
	var sum float64
	for _, t := range red {
		sum += t.Confidence
	}
	for _, t := range blue {
		sum += t.Confidence
	}
	return sum / float64(n)
}

func logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
