package rating_test

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/okian/ace/internal/domain/model"
	"github.com/okian/ace/internal/domain/rating"
	"github.com/okian/ace/internal/domain/ruleset"
	"github.com/okian/ace/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const testYear = 2099

// lastScore rates teleop as the latest alliance score, so tests control the
// actual value of every match exactly.
type lastScore struct{}

func (lastScore) Year() int { return testYear }

func (lastScore) Auto([]model.Breakdown, int) float64 { return 0 }

func (lastScore) Teleop(series []model.Breakdown, _ int) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1].Score
}

func (lastScore) Endgame(model.Breakdown, int) float64 { return 0 }

func newCalculator() *rating.Calculator {
	l := logger.Get()
	reg := ruleset.NewRegistry(ruleset.WithLogger(l), ruleset.WithRuleset(lastScore{}))
	return rating.NewCalculator(rating.WithRegistry(reg), rating.WithLogger(l))
}

var base = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func qual(n int, own, opp float64) model.Match {
	return model.Match{
		Key:         "2099test_qm" + string(rune('0'+n)),
		EventKey:    "2099test",
		CompLevel:   model.CompLevelQual,
		MatchNumber: n,
		Red:         model.Alliance{TeamKeys: []string{"frc1", "frc2", "frc3"}, Score: own, Breakdown: &model.Breakdown{}},
		Blue:        model.Alliance{TeamKeys: []string{"frc4", "frc5", "frc6"}, Score: opp, Breakdown: &model.Breakdown{}},
		Time:        base.Add(time.Duration(n) * 10 * time.Minute),
	}
}

func TestCalculator_Event(t *testing.T) {
	Convey("Given an event calculator", t, func() {
		So(logger.Init(), ShouldBeNil)
		ctx := context.Background()
		calc := newCalculator()
		in := rating.EventInput{Team: 1, EventKey: "2099test", Year: testYear, EventsAttended: 1, YearsExperience: 1}

		Convey("When the team played no matches", func() {
			in.Matches = []model.Match{qual(1, -1, -1)}
			out := calc.Event(ctx, in)

			Convey("Then the rating is all zero", func() {
				So(out, ShouldResemble, model.ZeroEvent(1, "2099test", testYear))
				So(out.MatchCount, ShouldEqual, 0)
			})
		})

		Convey("When actuals are 10 then 20 in qualification", func() {
			in.Matches = []model.Match{qual(2, 20, 5), qual(1, 10, 5)}
			out := calc.Event(ctx, in)

			Convey("Then the second match moves the rating by K times importance", func() {
				So(out.MatchCount, ShouldEqual, 2)
				So(out.Teleop, ShouldAlmostEqual, 14.4, 1e-9)
				So(out.Overall, ShouldAlmostEqual, out.Auto+out.Teleop+out.Endgame, 1e-12)
				So(out.Record, ShouldResemble, model.Record{Wins: 2})
			})
		})

		Convey("When a playoff match follows", func() {
			po := qual(2, 20, 5)
			po.CompLevel = model.CompLevelFinal
			in.Matches = []model.Match{qual(1, 10, 5), po}
			out := calc.Event(ctx, in)

			Convey("Then playoff importance applies", func() {
				So(out.Teleop, ShouldAlmostEqual, 14.0, 1e-9)
			})
		})

		Convey("When one alliance scored zero", func() {
			in.Matches = []model.Match{qual(1, 30, 0)}
			out := calc.Event(ctx, in)

			Convey("Then the match is a tie", func() {
				So(out.Record, ShouldResemble, model.Record{Ties: 1})
				So(out.Breakdown.RecordAlignment, ShouldEqual, 0.7)
			})
		})

		Convey("When the advisory winner disagrees with the scores", func() {
			m := qual(1, 40, 20)
			m.WinningAlliance = model.Blue
			in.Matches = []model.Match{m}
			out := calc.Event(ctx, in)

			Convey("Then scores decide", func() {
				So(out.Record, ShouldResemble, model.Record{Wins: 1})
			})
		})

		Convey("When the team is on neither alliance", func() {
			in.Team = 42
			in.Matches = []model.Match{qual(1, 10, 5)}
			So(calc.Event(ctx, in).MatchCount, ShouldEqual, 0)
		})

		Convey("When a match has no breakdown", func() {
			m := qual(1, 30, 5)
			m.Red.Breakdown = nil
			in.Year = 2025
			in.Matches = []model.Match{m}
			out := calc.Event(ctx, in)

			Convey("Then the alliance score proxy is used", func() {
				So(out.Auto, ShouldEqual, 0)
				So(out.Endgame, ShouldEqual, 0)
				So(out.Teleop, ShouldAlmostEqual, 30/(1+math.Log(3)), 1e-9)
			})
		})

		Convey("When the same matches are rated twice", func() {
			r := rand.New(rand.NewSource(7))
			for i := 1; i <= 9; i++ {
				in.Matches = append(in.Matches, qual(i, float64(r.Intn(120)), float64(r.Intn(120))))
			}
			first := calc.Event(ctx, in)
			second := calc.Event(ctx, in)

			Convey("Then both results are identical", func() {
				So(second, ShouldResemble, first)
			})

			Convey("Then confidence stays within bounds", func() {
				So(first.Confidence, ShouldBeBetweenOrEqual, 0, 1)
				So(first.ActualEPA, ShouldAlmostEqual, first.Overall*first.Confidence, 1e-12)
			})
		})

		Convey("When a single match is played", func() {
			in.Matches = []model.Match{qual(1, 12, 12)}
			out := calc.Event(ctx, in)

			Convey("Then consistency is exactly 1", func() {
				So(out.Breakdown.Consistency, ShouldEqual, 1.0)
			})
		})
	})
}

func TestConfidenceModel(t *testing.T) {
	Convey("Given the confidence helpers", t, func() {
		Convey("Consistency", func() {
			So(rating.Consistency(nil), ShouldEqual, 1.0)
			So(rating.Consistency([]float64{5}), ShouldEqual, 1.0)
			So(rating.Consistency([]float64{7, 7}), ShouldEqual, 1.0)
			So(rating.Consistency([]float64{0, 10}), ShouldAlmostEqual, 0.5, 1e-6)
			So(rating.Consistency([]float64{0, 0, 0, -5}), ShouldEqual, 0)
		})

		Convey("Boost tables", func() {
			So(rating.EventBoost(0), ShouldEqual, 0)
			So(rating.EventBoost(1), ShouldEqual, 0.5)
			So(rating.EventBoost(2), ShouldEqual, 0.9)
			So(rating.EventBoost(5), ShouldEqual, 1.0)
			So(rating.VeteranBoost(1), ShouldEqual, 0.2)
			So(rating.VeteranBoost(3), ShouldEqual, 0.6)
			So(rating.VeteranBoost(12), ShouldEqual, 1.0)
		})

		Convey("Record alignment", func() {
			So(rating.RecordAlignment(model.Record{}), ShouldEqual, 0.7)
			So(rating.RecordAlignment(model.Record{Wins: 3, Losses: 1, Ties: 4}), ShouldAlmostEqual, 0.925, 1e-12)
		})

		Convey("Dominance", func() {
			So(rating.Dominance(nil), ShouldEqual, 0)
			So(rating.DominanceSample(10, 10), ShouldAlmostEqual, 1/1.3, 1e-6)
			So(rating.DominanceSample(100, 1), ShouldEqual, 1)
			So(rating.DominanceSample(0, 50), ShouldEqual, 0)
		})

		Convey("Rescale", func() {
			So(rating.Rescale(0.9), ShouldAlmostEqual, 0.905, 1e-12)
			So(rating.Rescale(0.7), ShouldEqual, 0.7)
			So(rating.Rescale(0.5), ShouldAlmostEqual, 0.45, 1e-12)
			So(rating.Rescale(1.0), ShouldEqual, 1.0)
			So(rating.Rescale(-1), ShouldEqual, 0)
		})

		Convey("Weights", func() {
			So(rating.DefaultWeights().Validate(), ShouldBeNil)
			w := rating.DefaultWeights()
			w.Event = 0.2
			So(w.Validate(), ShouldWrap, rating.ErrInvalidWeights)
			w = rating.DefaultWeights()
			w.Event, w.Veteran = -0.1, 0.3
			So(w.Validate(), ShouldWrap, rating.ErrInvalidWeights)
		})
	})
}

func eventRating(team int, key string, matches int, overall float64, br model.ConfidenceBreakdown) model.TeamEventRating {
	return model.TeamEventRating{
		TeamNumber: team,
		EventKey:   key,
		Year:       2025,
		Ratings:    model.Ratings{Auto: overall / 4, Teleop: overall / 2, Endgame: overall / 4, Overall: overall},
		MatchCount: matches,
		Record:     model.Record{Wins: matches / 2, Losses: matches - matches/2},
		Breakdown:  br,
	}
}

func TestAggregator_Season(t *testing.T) {
	Convey("Given a season aggregator", t, func() {
		ctx := context.Background()
		agg := rating.NewAggregator(rating.DefaultWeights())
		br := model.ConfidenceBreakdown{Consistency: 0.8, Dominance: 0.6, RecordAlignment: 0.85, VeteranBoost: 1, EventBoost: 0.5}

		Convey("When no event counts", func() {
			events := []model.TeamEventRating{
				eventRating(254, "a", 0, 0, br),
				eventRating(254, "b", 8, 0, br),
			}
			out := agg.Season(ctx, 254, 2025, events, nil)

			Convey("Then the season is all zero but keeps its events", func() {
				So(out.Overall, ShouldEqual, 0)
				So(out.Confidence, ShouldEqual, 0)
				So(out.TotalEvents, ShouldEqual, 0)
				So(out.Events, ShouldHaveLength, 2)
			})
		})

		Convey("When exactly one event counts", func() {
			e := eventRating(254, "a", 10, 40, br)
			out := agg.Season(ctx, 254, 2025, []model.TeamEventRating{e, eventRating(254, "b", 0, 0, br)}, func(model.TeamEventRating) float64 { return 0.3 })

			Convey("Then its ratings carry over and confidence is recomputed", func() {
				So(out.Ratings, ShouldResemble, e.Ratings)
				So(out.Record, ShouldResemble, e.Record)
				So(out.TotalEvents, ShouldEqual, 1)
				raw := 0.35*0.8 + 0.35*0.6 + 0.1*0.85 + 0.1*1 + 0.1*0.5
				So(out.Breakdown.Raw, ShouldAlmostEqual, raw, 1e-12)
				So(out.Confidence, ShouldAlmostEqual, rating.Rescale(raw), 1e-12)
				So(out.ActualEPA, ShouldAlmostEqual, 40*out.Confidence, 1e-9)
			})
		})

		Convey("When events carry different weights", func() {
			early := eventRating(254, "early", 10, 20, br)
			late := eventRating(254, "late", 10, 40, br)
			w := map[string]float64{"early": 0.25, "late": 0.75}
			out := agg.Season(ctx, 254, 2025, []model.TeamEventRating{early, late}, func(e model.TeamEventRating) float64 { return w[e.EventKey] })

			Convey("Then the later event dominates and records are summed", func() {
				So(out.Overall, ShouldAlmostEqual, 35, 1e-9)
				So(out.Record.Wins, ShouldEqual, 10)
				So(out.Record.Losses, ShouldEqual, 10)
			})
		})

		Convey("When every chronological weight is zero", func() {
			a := eventRating(254, "a", 5, 10, br)
			b := eventRating(254, "b", 15, 30, br)
			out := agg.Season(ctx, 254, 2025, []model.TeamEventRating{a, b}, func(model.TeamEventRating) float64 { return 0 })

			Convey("Then match counts weight the average", func() {
				So(out.Overall, ShouldAlmostEqual, 25, 1e-9)
			})
		})

		Convey("When the team is a placeholder", func() {
			out := agg.Season(ctx, 9985, 2025, []model.TeamEventRating{eventRating(9985, "a", 10, 40, br)}, nil)

			Convey("Then the season is forced to zero", func() {
				So(out.Overall, ShouldEqual, 0)
				So(out.Confidence, ShouldEqual, 0)
				So(out.ActualEPA, ShouldEqual, 0)
				So(out.Events[0].Overall, ShouldEqual, 40)
			})
		})
	})
}

func TestPredictor(t *testing.T) {
	Convey("Given a predictor", t, func() {
		p := rating.NewPredictor()
		even := []rating.TeamStrength{{TeamNumber: 1, EPA: 30, Confidence: 0.8}, {TeamNumber: 2, EPA: 20, Confidence: 0.6}}

		Convey("When both alliances are equal", func() {
			out := p.Predict(even, even)
			So(out.RedWin, ShouldEqual, 0.5)
			So(out.BlueWin, ShouldEqual, 0.5)

			simple := p.PredictMode(rating.ModeSimple, even, even)
			So(simple.RedWin, ShouldEqual, 0.5)
		})

		Convey("When red is far stronger", func() {
			strong := []rating.TeamStrength{{EPA: 200, Confidence: 1}}
			weak := []rating.TeamStrength{{EPA: 1, Confidence: 1}}

			Convey("Then reliability mode clamps", func() {
				So(p.Predict(strong, weak).RedWin, ShouldEqual, 0.90)
				So(p.Predict(weak, strong).RedWin, ShouldEqual, 0.15)
				out := p.Predict(weak, strong)
				So(out.RedWin+out.BlueWin, ShouldAlmostEqual, 1, 1e-12)
			})

			Convey("Then simple mode does not clamp", func() {
				So(p.PredictMode(rating.ModeSimple, strong, weak).RedWin, ShouldBeGreaterThan, 0.99)
			})
		})

		Convey("When computing the reference formula", func() {
			red := []rating.TeamStrength{{EPA: 40, Confidence: 0.5}}
			blue := []rating.TeamStrength{{EPA: 30, Confidence: 0.5}}
			out := p.Predict(red, blue)

			scale := 0.06 + 0.3*(1-0.5)
			So(out.RedRating, ShouldEqual, 20)
			So(out.BlueRating, ShouldEqual, 15)
			So(out.RedWin, ShouldAlmostEqual, 1/(1+math.Exp(-scale*5)), 1e-12)
		})

		Convey("When alliance means are plain and damping is on", func() {
			q := rating.NewPredictor(rating.WithAllianceMean(rating.MeanPlain), rating.WithUncertaintyDamping(true))
			red := []rating.TeamStrength{{EPA: 12, Confidence: 0.2}}
			blue := []rating.TeamStrength{{EPA: 10, Confidence: 0.2}}
			out := q.Predict(red, blue)

			So(out.RedRating, ShouldEqual, 12)
			So(out.RedWin, ShouldAlmostEqual, 1/(1+math.Exp(-(0.06+0.3*0.2)*2)), 1e-12)
		})

		Convey("When an alliance is empty", func() {
			out := p.Predict(nil, even)
			So(out.RedRating, ShouldEqual, 0)
			So(out.RedWin, ShouldBeLessThan, 0.5)
		})

		Convey("When parsing modes", func() {
			m, err := rating.ParseMode("")
			So(err, ShouldBeNil)
			So(m, ShouldEqual, rating.ModeReliability)
			_, err = rating.ParseMode("magic")
			So(err, ShouldWrap, rating.ErrUnknownMode)
		})
	})
}
