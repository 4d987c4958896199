package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/ace/internal/adapters/repository"
	"github.com/okian/ace/internal/config"
	"github.com/okian/ace/internal/domain/model"
	"github.com/okian/ace/pkg/logger"
)

const (
	fakeEvents = `[{"key":"2019x","name":"Test Regional","year":2019,"start_date":"2019-03-01","end_date":"2019-03-03"}]`
	fakeMatch  = `[{"key":"2019x_qm1","event_key":"2019x","comp_level":"qm","set_number":1,"match_number":1,` +
		`"alliances":{"red":{"score":60,"team_keys":["frc254","frc1","frc2"]},"blue":{"score":30,"team_keys":["frc3","frc4","frc5"]}},` +
		`"score_breakdown":null}]`
)

func fakeTBA() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/team/frc254/events/2019/simple", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(fakeEvents))
	})
	mux.HandleFunc("/event/2019x/matches", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(fakeMatch))
	})
	return httptest.NewServer(mux)
}

func testConfig(baseURL string) *config.Config {
	cfg := config.New()
	cfg.Store.Driver = config.DriverMemory
	cfg.Source.BaseURL = baseURL
	cfg.Source.MaxAttempts = 1
	cfg.RecalcInterval = 0
	cfg.CurrentYear = 2019
	return cfg
}

func TestApplication(t *testing.T) {
	convey.Convey("Given an application wired to a fake match source", t, func() {
		convey.So(logger.Init(), convey.ShouldBeNil)
		ctx := context.Background()
		ts := fakeTBA()
		defer ts.Close()

		a, err := newApplication(ctx, testConfig(ts.URL), logger.Get())
		convey.So(err, convey.ShouldBeNil)
		defer a.close(ctx)

		serve := func(method, target string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			a.handler.ServeHTTP(w, httptest.NewRequest(method, target, http.NoBody))
			return w
		}

		convey.Convey("When a team is recalculated over HTTP", func() {
			w := serve(http.MethodPost, "/teams/254/seasons/2019/recalculate")

			convey.Convey("Then the season is computed and persisted", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

				w = serve(http.MethodGet, "/teams/frc254/seasons/2019")
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				var season model.TeamSeasonRating
				convey.So(json.Unmarshal(w.Body.Bytes(), &season), convey.ShouldBeNil)
				convey.So(season.Events, convey.ShouldHaveLength, 1)
				convey.So(season.Record, convey.ShouldResemble, model.Record{Wins: 1})
				convey.So(season.ActualEPA, convey.ShouldBeGreaterThan, 0)
			})

			convey.Convey("Then it shows up on the leaderboard of the current year", func() {
				w = serve(http.MethodGet, "/leaderboard")
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `"team_number":254`)
			})
		})

		convey.Convey("When a team has no events upstream", func() {
			w := serve(http.MethodPost, "/teams/9/seasons/2019/recalculate")

			convey.Convey("Then no data is reported", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusNotFound)
			})
		})

		convey.Convey("When the docs are requested", func() {
			convey.So(serve(http.MethodGet, "/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("When the scheduler is disabled", func() {
			convey.So(a.scheduler.Enabled(), convey.ShouldBeFalse)
		})
	})
}

func TestApplicationConfigErrors(t *testing.T) {
	convey.Convey("Given invalid settings", t, func() {
		convey.So(logger.Init(), convey.ShouldBeNil)
		ctx := context.Background()

		convey.Convey("When the calendar does not parse", func() {
			cfg := testConfig("http://127.0.0.1:0")
			cfg.Calendar = map[string][]config.Week{"2019": {{Start: "March", End: "2019-03-05"}}}
			_, err := newApplication(ctx, cfg, logger.Get())
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the store driver is unknown", func() {
			_, err := openStore(ctx, config.StoreConfig{Driver: "mongo"}, logger.Get())
			convey.So(errors.Is(err, repository.ErrUnsupportedDriver), convey.ShouldBeTrue)
		})

		convey.Convey("When sqlite is selected", func() {
			s, err := openStore(ctx, config.StoreConfig{
				Driver: config.DriverSQLite,
				DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
			}, logger.Get())
			convey.So(err, convey.ShouldBeNil)
			convey.So(s.Close(), convey.ShouldBeNil)
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.So(updateSystemMetrics, convey.ShouldNotPanic)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
	})
}
