package rating

import (
	"github.com/okian/ace/internal/domain/ruleset"
	"github.com/okian/ace/pkg/logger"
)

// CalculatorOption configures a Calculator.
type CalculatorOption func(*Calculator)

// WithK sets the update step size. Non-positive values are ignored.
func WithK(k float64) CalculatorOption {
	return func(c *Calculator) {
		if k > 0 {
			c.k = k
		}
	}
}

// WithQualImportance sets the importance of qualification matches.
func WithQualImportance(v float64) CalculatorOption {
	return func(c *Calculator) {
		if v > 0 {
			c.qualImportance = v
		}
	}
}

// WithPlayoffImportance sets the importance of playoff matches.
func WithPlayoffImportance(v float64) CalculatorOption {
	return func(c *Calculator) {
		if v > 0 {
			c.playoffImportance = v
		}
	}
}

// WithDecay sets the event-scope decay factor.
func WithDecay(v float64) CalculatorOption {
	return func(c *Calculator) {
		if v > 0 {
			c.decay = v
		}
	}
}

// WithWeights sets the confidence weights. Invalid weights are ignored;
// validate them first with Weights.Validate.
func WithWeights(w Weights) CalculatorOption {
	return func(c *Calculator) {
		if w.Validate() == nil {
			c.weights = w
		}
	}
}

// WithRegistry sets the ruleset registry.
func WithRegistry(r *ruleset.Registry) CalculatorOption {
	return func(c *Calculator) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithLogger sets the calculator logger.
func WithLogger(l logger.Logger) CalculatorOption {
	return func(c *Calculator) {
		if l != nil {
			c.logger = l
		}
	}
}

// PredictorOption configures a Predictor.
type PredictorOption func(*Predictor)

// WithMode selects the probability formula.
func WithMode(m Mode) PredictorOption {
	return func(p *Predictor) {
		p.mode = m
	}
}

// WithAllianceMean selects how team ratings combine into an alliance rating.
func WithAllianceMean(m AllianceMean) PredictorOption {
	return func(p *Predictor) {
		p.mean = m
	}
}

// WithUncertaintyDamping makes low reliability flatten the curve instead of
// steepening it.
func WithUncertaintyDamping(on bool) PredictorOption {
	return func(p *Predictor) {
		p.damping = on
	}
}

// WithSimpleSteepness sets the fixed steepness of ModeSimple.
func WithSimpleSteepness(s float64) PredictorOption {
	return func(p *Predictor) {
		if s > 0 {
			p.simpleSteepness = s
		}
	}
}
