package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/ace/internal/adapters/http/api"
	"github.com/okian/ace/internal/adapters/repository"
	service "github.com/okian/ace/internal/app"
	"github.com/okian/ace/internal/domain/model"
	"github.com/okian/ace/internal/domain/rating"
	"github.com/okian/ace/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDeps records calls and returns canned results.
type mockDeps struct {
	entries   []repository.Entry
	seasons   map[int]model.TeamSeasonRating
	recalcErr error
	startErr  error
	started   []int
	predicted service.PredictRequest
	lastN     int
	lastYear  int
}

func (m *mockDeps) Leaderboard(_ context.Context, year, n int) ([]repository.Entry, error) {
	m.lastYear, m.lastN = year, n
	if n > len(m.entries) {
		return m.entries, nil
	}
	return m.entries[:n], nil
}

func (m *mockDeps) SeasonRating(_ context.Context, team, year int) (model.TeamSeasonRating, error) {
	s, ok := m.seasons[team]
	if !ok || s.Year != year {
		return model.TeamSeasonRating{}, fmt.Errorf("team %d: %w", team, repository.ErrNotFound)
	}
	return s, nil
}

func (m *mockDeps) RecalculateTeam(_ context.Context, team, year int) (model.TeamSeasonRating, error) {
	if m.recalcErr != nil {
		return model.TeamSeasonRating{}, m.recalcErr
	}
	return model.TeamSeasonRating{TeamNumber: team, Year: year, ActualEPA: 12}, nil
}

func (m *mockDeps) StartSeason(_ context.Context, year int) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.started = append(m.started, year)
	return nil
}

func (m *mockDeps) Predict(_ context.Context, req service.PredictRequest) (rating.Prediction, error) {
	m.predicted = req
	if req.Mode == "coin" {
		return rating.Prediction{}, fmt.Errorf("%w: unknown mode", service.ErrInvalidRequest)
	}
	return rating.Prediction{Mode: rating.ModeReliability, RedWin: 0.6, BlueWin: 0.4}, nil
}

type mockStats struct{ year int }

func (m *mockStats) Stats(_ context.Context, year int) map[string]any {
	m.year = year
	return map[string]any{"year": year, "workerCount": 10}
}

func newMux(deps *mockDeps, stats *mockStats) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, stats, api.WithMaxLimit(50), api.WithDefaultYear(2025)).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Code
}

func TestServer(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		So(logger.Init(), ShouldBeNil)
		deps := &mockDeps{
			entries: []repository.Entry{
				{Rank: 1, TeamSeasonRating: model.TeamSeasonRating{TeamNumber: 254, Year: 2025, ActualEPA: 40}},
				{Rank: 2, TeamSeasonRating: model.TeamSeasonRating{TeamNumber: 1678, Year: 2025, ActualEPA: 35}},
			},
			seasons: map[int]model.TeamSeasonRating{
				254: {TeamNumber: 254, Year: 2025, ActualEPA: 40, Events: []model.TeamEventRating{{EventKey: "2025casj"}}},
			},
		}
		stats := &mockStats{}
		mux := newMux(deps, stats)

		Convey("When scraping /healthz", func() {
			w := do(mux, http.MethodGet, "/healthz")

			Convey("Then metrics are served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "ace_")
			})
		})

		Convey("When reading /stats", func() {
			w := do(mux, http.MethodGet, "/stats?year=2024")

			Convey("Then the requested year is passed through", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(stats.year, ShouldEqual, 2024)
			})
		})

		Convey("When reading the leaderboard", func() {
			Convey("Then the default year and limit apply", func() {
				w := do(mux, http.MethodGet, "/leaderboard")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastYear, ShouldEqual, 2025)
				So(deps.lastN, ShouldEqual, 50)

				var body struct {
					Year    int                `json:"year"`
					Entries []repository.Entry `json:"entries"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Entries, ShouldHaveLength, 2)
				So(body.Entries[0].TeamNumber, ShouldEqual, 254)
			})

			Convey("Then a limit above the cap is rejected", func() {
				w := do(mux, http.MethodGet, "/leaderboard?limit=51")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(w), ShouldEqual, "limit_exceeded")
			})

			Convey("Then a bad limit or year is rejected", func() {
				So(do(mux, http.MethodGet, "/leaderboard?limit=0").Code, ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodGet, "/leaderboard?limit=x").Code, ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodGet, "/leaderboard?year=abc").Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then other methods are not routed", func() {
				So(do(mux, http.MethodPost, "/leaderboard").Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})

		Convey("When reading a team season", func() {
			Convey("Then a persisted season is returned", func() {
				w := do(mux, http.MethodGet, "/teams/frc254/seasons/2025")
				So(w.Code, ShouldEqual, http.StatusOK)
				var got model.TeamSeasonRating
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got.TeamNumber, ShouldEqual, 254)
				So(got.Events, ShouldHaveLength, 1)
			})

			Convey("Then a missing season is 404", func() {
				w := do(mux, http.MethodGet, "/teams/254/seasons/2019")
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(errorCode(w), ShouldEqual, "not_found")
			})

			Convey("Then a bad team is 400", func() {
				So(do(mux, http.MethodGet, "/teams/abc/seasons/2025").Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When recalculating a team", func() {
			Convey("Then the new season is returned", func() {
				w := do(mux, http.MethodPost, "/teams/971/seasons/2025/recalculate")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"team_number":971`)
			})

			Convey("Then a team without matches is 404 no_data", func() {
				deps.recalcErr = fmt.Errorf("team 1 in 2025: %w", service.ErrNoData)
				w := do(mux, http.MethodPost, "/teams/1/seasons/2025/recalculate")
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(errorCode(w), ShouldEqual, "no_data")
			})

			Convey("Then an upstream failure is 500", func() {
				deps.recalcErr = errors.New("source down")
				w := do(mux, http.MethodPost, "/teams/1/seasons/2025/recalculate")
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})

		Convey("When recalculating a season", func() {
			Convey("Then the run is accepted", func() {
				w := do(mux, http.MethodPost, "/seasons/2024/recalculate")
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(deps.started, ShouldResemble, []int{2024})
			})

			Convey("Then a running season is a conflict", func() {
				deps.startErr = fmt.Errorf("season 2024: %w", service.ErrRunInProgress)
				w := do(mux, http.MethodPost, "/seasons/2024/recalculate")
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(errorCode(w), ShouldEqual, "run_in_progress")
			})

			Convey("Then a stopping service is unavailable", func() {
				deps.startErr = service.ErrShuttingDown
				w := do(mux, http.MethodPost, "/seasons/2024/recalculate")
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(errorCode(w), ShouldEqual, "shutting_down")
			})
		})

		Convey("When predicting a match", func() {
			Convey("Then alliances are parsed from the query", func() {
				w := do(mux, http.MethodGet, "/predict?red=254,frc1678,971&blue=1,2,3&mode=simple")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.predicted.Year, ShouldEqual, 2025)
				So(deps.predicted.Red, ShouldResemble, []int{254, 1678, 971})
				So(deps.predicted.Blue, ShouldResemble, []int{1, 2, 3})
				So(deps.predicted.Mode, ShouldEqual, "simple")
				So(strings.Contains(w.Body.String(), "red_win_probability"), ShouldBeTrue)
			})

			Convey("Then a missing alliance is 400", func() {
				So(do(mux, http.MethodGet, "/predict?red=254").Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then an unknown mode is 400", func() {
				So(do(mux, http.MethodGet, "/predict?red=254&blue=1&mode=coin").Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}
