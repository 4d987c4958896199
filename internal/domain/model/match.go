// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Comp levels as reported by the match source.
const (
	CompLevelQual         = "qm"
	CompLevelEighth       = "ef"
	CompLevelQuarterfinal = "qf"
	CompLevelSemifinal    = "sf"
	CompLevelFinal        = "f"
)

// Alliance colors.
const (
	Red  = "red"
	Blue = "blue"
)

const teamKeyPrefix = "frc"

// Alliance is one side of a match.
type Alliance struct {
	TeamKeys  []string
	Score     float64
	Breakdown *Breakdown // nil when the source has no breakdown for this match
}

// Has reports whether the team key plays on this alliance.
func (a Alliance) Has(teamKey string) bool {
	return a.RobotIndex(teamKey) > 0
}

// RobotIndex returns the 1-based station of teamKey, or 0 when absent.
func (a Alliance) RobotIndex(teamKey string) int {
	for i, k := range a.TeamKeys {
		if k == teamKey {
			return i + 1
		}
	}
	return 0
}

// Size returns the number of teams on the alliance.
func (a Alliance) Size() int {
	return len(a.TeamKeys)
}

// Match is a single played (or scheduled) match.
type Match struct {
	Key             string
	EventKey        string
	CompLevel       string
	MatchNumber     int
	SetNumber       int
	Red             Alliance
	Blue            Alliance
	WinningAlliance string    // advisory only; outcomes come from scores
	Time            time.Time // actual, predicted or scheduled time, in that order
}

// Played is false for matches the source still reports with the -1 score sentinel.
func (m Match) Played() bool {
	return m.Red.Score >= 0 && m.Blue.Score >= 0
}

// IsQual reports whether the match is a qualification match.
func (m Match) IsQual() bool {
	return m.CompLevel == CompLevelQual
}

// Sides returns the team's alliance and the opposing alliance.
// ok is false when the team did not play in the match.
func (m Match) Sides(teamKey string) (own, opp Alliance, color string, ok bool) {
	switch {
	case m.Red.Has(teamKey):
		return m.Red, m.Blue, Red, true
	case m.Blue.Has(teamKey):
		return m.Blue, m.Red, Blue, true
	default:
		return Alliance{}, Alliance{}, "", false
	}
}

var compLevelOrder = map[string]int{
	CompLevelQual:         0,
	CompLevelEighth:       1,
	CompLevelQuarterfinal: 2,
	CompLevelSemifinal:    3,
	CompLevelFinal:        4,
}

// SortMatches orders matches by time when every match has one, otherwise
// by bracket position: comp level, set and match number. The match key
// breaks remaining ties so the order never depends on the input order.
func SortMatches(ms []Match) {
	timed := true
	for _, m := range ms {
		if m.Time.IsZero() {
			timed = false
			break
		}
	}
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if timed && !a.Time.Equal(b.Time) {
			return a.Time.Before(b.Time)
		}
		if la, lb := compLevelOrder[a.CompLevel], compLevelOrder[b.CompLevel]; la != lb {
			return la < lb
		}
		if a.SetNumber != b.SetNumber {
			return a.SetNumber < b.SetNumber
		}
		if a.MatchNumber != b.MatchNumber {
			return a.MatchNumber < b.MatchNumber
		}
		return a.Key < b.Key
	})
}

// Event is a competition a team attended.
type Event struct {
	Key       string
	Name      string
	Year      int
	StartDate time.Time
	EndDate   time.Time
}

// TeamKey formats a team number as the source key, e.g. 254 -> "frc254".
func TeamKey(team int) string {
	return teamKeyPrefix + strconv.Itoa(team)
}

// ParseTeamKey parses "frc254" (or "254") into 254.
func ParseTeamKey(key string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(key)), teamKeyPrefix))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid team key %q", key)
	}
	return n, nil
}

// Placeholder robots used for demos and offseason fill-ins.
const (
	placeholderTeamMin = 9970
	placeholderTeamMax = 9999
)

// IsPlaceholderTeam reports whether the team number is a placeholder robot.
func IsPlaceholderTeam(team int) bool {
	return team >= placeholderTeamMin && team <= placeholderTeamMax
}
