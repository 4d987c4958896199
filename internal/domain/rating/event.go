// Package rating computes event ratings, season aggregates and win
// probabilities from played matches.
package rating

import (
	"context"

	"github.com/okian/ace/internal/domain/model"
	"github.com/okian/ace/internal/domain/ruleset"
	"github.com/okian/ace/pkg/logger"
)

// Update defaults.
const (
	DefaultK                 = 0.4
	DefaultQualImportance    = 1.1
	DefaultPlayoffImportance = 1.0
	DefaultDecay             = 1.0
)

// EventInput is one team's matches at one event.
type EventInput struct {
	Team     int
	EventKey string
	Year     int
	// Matches may be in any order; they are sorted before replay.
	Matches []model.Match
	// EventsAttended counts this event and the team's earlier events this season.
	EventsAttended int
	// YearsExperience is the team's competition years including this one.
	YearsExperience int
}

// Calculator replays a team's event matches into a TeamEventRating.
// It holds no per-run state and is safe for concurrent use.
type Calculator struct {
	k                 float64
	qualImportance    float64
	playoffImportance float64
	decay             float64
	weights           Weights
	registry          *ruleset.Registry
	logger            logger.Logger
}

// NewCalculator creates a calculator with production defaults.
func NewCalculator(opts ...CalculatorOption) *Calculator {
	c := &Calculator{
		k:                 DefaultK,
		qualImportance:    DefaultQualImportance,
		playoffImportance: DefaultPlayoffImportance,
		decay:             DefaultDecay,
		weights:           DefaultWeights(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("rating")
	}
	if c.registry == nil {
		c.registry = ruleset.NewRegistry(ruleset.WithLogger(c.logger))
	}
	return c
}

// Weights returns the confidence weights in use.
func (c *Calculator) Weights() Weights {
	return c.weights
}

// replay is the running state of one event.
type replay struct {
	ratings   model.Ratings
	started   bool
	record    model.Record
	contribs  []float64
	dominance []float64
	// Breakdown matches and proxy matches keep separate series so a missing
	// breakdown never mixes alliance totals into phase estimates.
	series       []model.Breakdown
	legacySeries []model.Breakdown
}

// Event rates one team at one event. Zero played matches give the all-zero
// rating with MatchCount 0.
func (c *Calculator) Event(ctx context.Context, in EventInput) model.TeamEventRating {
	out := model.ZeroEvent(in.Team, in.EventKey, in.Year)

	matches := make([]model.Match, len(in.Matches))
	copy(matches, in.Matches)
	model.SortMatches(matches)

	rs := c.registry.Resolve(ctx, in.Year)
	legacy := c.registry.Legacy()
	teamKey := model.TeamKey(in.Team)

	var st replay
	for _, m := range matches {
		if !m.Played() {
			continue
		}
		own, opp, _, ok := m.Sides(teamKey)
		if !ok {
			continue
		}
		out.MatchCount++
		st.record = st.record.Add(outcome(own.Score, opp.Score))

		actual := c.actual(&st, rs, legacy, own, teamKey)

		oppPerRobot := 0.0
		if opp.Size() > 0 {
			oppPerRobot = opp.Score / float64(opp.Size())
		}
		st.dominance = append(st.dominance, DominanceSample(actual.Overall, oppPerRobot))

		if !st.started {
			st.ratings = actual
			st.started = true
		} else {
			step := c.k * c.importance(m) * c.decay
			st.ratings.Auto += step * (actual.Auto - st.ratings.Auto)
			st.ratings.Teleop += step * (actual.Teleop - st.ratings.Teleop)
			st.ratings.Endgame += step * (actual.Endgame - st.ratings.Endgame)
			st.ratings.Overall = st.ratings.Auto + st.ratings.Teleop + st.ratings.Endgame
		}
		st.contribs = append(st.contribs, actual.Overall)
	}

	if out.MatchCount == 0 {
		return out
	}

	out.Ratings = st.ratings
	out.Record = st.record
	out.Breakdown = model.ConfidenceBreakdown{
		Consistency:     Consistency(st.contribs),
		Dominance:       Dominance(st.dominance),
		RecordAlignment: RecordAlignment(st.record),
		VeteranBoost:    VeteranBoost(in.YearsExperience),
		EventBoost:      EventBoost(in.EventsAttended),
	}
	out.Confidence = c.weights.Confidence(&out.Breakdown)
	out.ActualEPA = out.Overall * out.Confidence

	c.logger.Debug(ctx, "event rated",
		logger.Int("team", in.Team),
		logger.String("event", in.EventKey),
		logger.Int("matches", out.MatchCount),
		logger.Float64("overall", out.Overall),
		logger.Float64("confidence", out.Confidence),
	)
	return out
}

// actual returns the robot's phase points for the match just appended.
func (c *Calculator) actual(st *replay, rs, legacy ruleset.Ruleset, own model.Alliance, teamKey string) model.Ratings {
	var a model.Ratings
	n := own.Size()
	if own.Breakdown != nil {
		b := *own.Breakdown
		b.Score = own.Score
		st.series = append(st.series, b)
		a.Auto = rs.Auto(st.series, n)
		a.Teleop = rs.Teleop(st.series, n)
		a.Endgame = rs.Endgame(b, own.RobotIndex(teamKey))
	} else {
		b := model.Breakdown{Score: own.Score}
		st.legacySeries = append(st.legacySeries, b)
		a.Auto = legacy.Auto(st.legacySeries, n)
		a.Teleop = legacy.Teleop(st.legacySeries, n)
		a.Endgame = legacy.Endgame(b, own.RobotIndex(teamKey))
	}
	a.Overall = a.Auto + a.Teleop + a.Endgame
	return a
}

func (c *Calculator) importance(m model.Match) float64 {
	if m.IsQual() {
		return c.qualImportance
	}
	return c.playoffImportance
}

// outcome compares scores. A zero score on either side is a tie: the source
// reports disqualified or unscored alliances as 0.
func outcome(own, opp float64) model.Record {
	switch {
	case own == 0 || opp == 0 || own == opp:
		return model.Record{Ties: 1}
	case own > opp:
		return model.Record{Wins: 1}
	default:
		return model.Record{Losses: 1}
	}
}
