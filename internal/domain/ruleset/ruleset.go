// Package ruleset maps season-specific score breakdowns to per-robot
// auto, teleop and endgame points.
package ruleset

import (
	"math"
	"sort"
	"strconv"

	"github.com/okian/ace/internal/domain/model"
)

// Ruleset attributes one season's alliance scoring to a single robot.
// Implementations are pure: the same inputs always give the same points and
// missing breakdown fields count as zero.
type Ruleset interface {
	// Year is the season the ruleset scores.
	Year() int
	// Auto returns the robot's auto estimate over the alliance breakdowns seen so far.
	Auto(series []model.Breakdown, teamCount int) float64
	// Teleop returns the robot's teleop estimate over the alliance breakdowns seen so far.
	Teleop(series []model.Breakdown, teamCount int) float64
	// Endgame returns the robot's endgame points for a single match.
	Endgame(b model.Breakdown, robotIndex int) float64
}

// AttributionScale discounts alliance points to one robot logarithmically in
// the alliance size.
func AttributionScale(teamCount int) float64 {
	if teamCount < 1 {
		teamCount = 1
	}
	return 1 / (1 + math.Log(float64(teamCount)))
}

const minTrimSamples = 6

// trimSteps is the fraction of the lowest samples dropped, by sample count.
var trimSteps = []struct {
	below int
	pct   float64
}{
	{12, 0},
	{25, 0.03},
	{50, 0.05},
	{100, 0.08},
}

const maxTrimPct = 0.12

// TrimPercent returns the share of low samples dropped for n samples.
func TrimPercent(n int) float64 {
	for _, s := range trimSteps {
		if n < s.below {
			return s.pct
		}
	}
	return maxTrimPct
}

// TrimmedMean is the plain mean below six samples; otherwise the mean after
// dropping the lowest TrimPercent(n) share of values. The input is not modified.
func TrimmedMean(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	if n < minTrimSamples {
		return mean(values)
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	drop := int(TrimPercent(n) * float64(n))
	return mean(sorted[drop:])
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// phaseRuleset is the shared implementation behind every season. A season only
// declares how to read its breakdown.
type phaseRuleset struct {
	year         int
	autoPoints   func(model.Breakdown) float64
	teleopPoints func(model.Breakdown) float64
	// endgameField returns the breakdown path holding robot i's end state.
	endgameField func(robotIndex int) string
	endgame      map[string]float64
	// endgameBonus adds season specific points on top of the state table.
	endgameBonus func(b model.Breakdown, state string) float64
}

func (r *phaseRuleset) Year() int { return r.year }

func (r *phaseRuleset) Auto(series []model.Breakdown, teamCount int) float64 {
	return r.phase(series, teamCount, r.autoPoints)
}

func (r *phaseRuleset) Teleop(series []model.Breakdown, teamCount int) float64 {
	return r.phase(series, teamCount, r.teleopPoints)
}

func (r *phaseRuleset) Endgame(b model.Breakdown, robotIndex int) float64 {
	if r.endgameField == nil || robotIndex < 1 {
		return 0
	}
	state := b.String(r.endgameField(robotIndex))
	pts := r.endgame[state]
	if r.endgameBonus != nil {
		pts += r.endgameBonus(b, state)
	}
	return pts
}

func (r *phaseRuleset) phase(series []model.Breakdown, teamCount int, points func(model.Breakdown) float64) float64 {
	if points == nil || len(series) == 0 {
		return 0
	}
	scale := AttributionScale(teamCount)
	values := make([]float64, len(series))
	for i, b := range series {
		values[i] = points(b) * scale
	}
	return TrimmedMean(values)
}

// robotField builds "<prefix><i>" endgame paths such as endGameRobot2.
func robotField(prefix string) func(int) string {
	return func(i int) string {
		return prefix + strconv.Itoa(i)
	}
}
