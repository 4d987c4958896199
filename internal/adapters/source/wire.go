package source

import (
	"time"

	"github.com/okian/ace/internal/config"
	"github.com/okian/ace/internal/domain/model"
)

// Response shapes of API v3. Only the fields the rating engine reads.

type tbaEvent struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	Year      int    `json:"year"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type tbaAlliance struct {
	Score    float64  `json:"score"`
	TeamKeys []string `json:"team_keys"`
}

type tbaMatch struct {
	Key             string `json:"key"`
	EventKey        string `json:"event_key"`
	CompLevel       string `json:"comp_level"`
	SetNumber       int    `json:"set_number"`
	MatchNumber     int    `json:"match_number"`
	WinningAlliance string `json:"winning_alliance"`
	Time            *int64 `json:"time"`
	ActualTime      *int64 `json:"actual_time"`
	PredictedTime   *int64 `json:"predicted_time"`
	Alliances       struct {
		Red  tbaAlliance `json:"red"`
		Blue tbaAlliance `json:"blue"`
	} `json:"alliances"`
	ScoreBreakdown map[string]map[string]any `json:"score_breakdown"`
}

func (e tbaEvent) toModel() model.Event {
	out := model.Event{Key: e.Key, Name: e.Name, Year: e.Year}
	// Unparseable dates stay zero; the calendar weighs them as unknown.
	if t, err := time.Parse(config.DateLayout, e.StartDate); err == nil {
		out.StartDate = t
	}
	if t, err := time.Parse(config.DateLayout, e.EndDate); err == nil {
		out.EndDate = t
	}
	return out
}

func (m tbaMatch) toModel() model.Match {
	out := model.Match{
		Key:             m.Key,
		EventKey:        m.EventKey,
		CompLevel:       m.CompLevel,
		SetNumber:       m.SetNumber,
		MatchNumber:     m.MatchNumber,
		WinningAlliance: m.WinningAlliance,
		Red:             alliance(m.Alliances.Red, m.ScoreBreakdown[model.Red]),
		Blue:            alliance(m.Alliances.Blue, m.ScoreBreakdown[model.Blue]),
	}
	for _, ts := range []*int64{m.ActualTime, m.PredictedTime, m.Time} {
		if ts != nil && *ts > 0 {
			out.Time = time.Unix(*ts, 0).UTC()
			break
		}
	}
	return out
}

func alliance(a tbaAlliance, fields map[string]any) model.Alliance {
	out := model.Alliance{TeamKeys: a.TeamKeys, Score: a.Score}
	if fields != nil {
		b := model.NewBreakdown(fields, a.Score)
		out.Breakdown = &b
	}
	return out
}
