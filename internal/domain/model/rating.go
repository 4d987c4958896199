package model

import "time"

// ConfidenceBreakdown holds the inputs of the confidence model.
type ConfidenceBreakdown struct {
	Consistency     float64 `json:"consistency"`
	Dominance       float64 `json:"dominance"`
	RecordAlignment float64 `json:"record_alignment"`
	VeteranBoost    float64 `json:"veteran_boost"`
	EventBoost      float64 `json:"event_boost"`
	Raw             float64 `json:"raw_confidence"`
}

// Record is a win/loss/tie tally.
type Record struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Ties   int `json:"ties"`
}

// Add returns the element-wise sum.
func (r Record) Add(o Record) Record {
	return Record{Wins: r.Wins + o.Wins, Losses: r.Losses + o.Losses, Ties: r.Ties + o.Ties}
}

// WinRate is wins over decided matches, 0 when none were decided.
func (r Record) WinRate() float64 {
	decided := r.Wins + r.Losses
	if decided == 0 {
		return 0
	}
	return float64(r.Wins) / float64(decided)
}

// Ratings are the phase ratings; Overall is always the sum of the phases.
type Ratings struct {
	Auto    float64 `json:"auto"`
	Teleop  float64 `json:"teleop"`
	Endgame float64 `json:"endgame"`
	Overall float64 `json:"overall"`
}

// TeamEventRating is a team's rating at one event. It is recomputed from the
// full ordered match list on every run.
type TeamEventRating struct {
	TeamNumber int       `json:"team_number"`
	EventKey   string    `json:"event_key"`
	Year       int       `json:"year"`
	EventStart time.Time `json:"event_start,omitempty"`
	Ratings
	Confidence float64             `json:"confidence"`
	ActualEPA  float64             `json:"actual_epa"`
	MatchCount int                 `json:"match_count"`
	Record     Record              `json:"record"`
	Breakdown  ConfidenceBreakdown `json:"confidence_breakdown"`
}

// Counted reports whether the event contributes to a season rating.
func (r TeamEventRating) Counted() bool {
	return r.MatchCount > 0 && r.Overall > 0
}

// TeamSeasonRating is the aggregate over a team's counted events in a year.
type TeamSeasonRating struct {
	TeamNumber int `json:"team_number"`
	Year       int `json:"year"`
	Ratings
	Confidence  float64             `json:"confidence"`
	ActualEPA   float64             `json:"actual_epa"`
	Record      Record              `json:"record"`
	Breakdown   ConfidenceBreakdown `json:"confidence_breakdown"`
	Events      []TeamEventRating   `json:"events"`
	TotalEvents int                 `json:"total_events"`
}

// ZeroSeason is the all-zero season rating.
func ZeroSeason(team, year int) TeamSeasonRating {
	return TeamSeasonRating{TeamNumber: team, Year: year, Events: []TeamEventRating{}}
}

// ZeroEvent is the all-zero event rating.
func ZeroEvent(team int, eventKey string, year int) TeamEventRating {
	return TeamEventRating{TeamNumber: team, EventKey: eventKey, Year: year}
}
