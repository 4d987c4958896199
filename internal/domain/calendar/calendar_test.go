package calendar_test

import (
	"testing"
	"time"

	"github.com/okian/ace/internal/config"
	"github.com/okian/ace/internal/domain/calendar"
	. "github.com/smartystreets/goconvey/convey"
)

func date(s string) time.Time {
	t, err := time.Parse(config.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCalendar_Weight(t *testing.T) {
	Convey("Given a season spanning 2025-03-01 to 2025-03-11", t, func() {
		cal, err := calendar.FromConfig(map[string][]config.Week{
			"2025": {
				{Start: "2025-03-07", End: "2025-03-11"},
				{Start: "2025-03-01", End: "2025-03-05"},
			},
		})
		So(err, ShouldBeNil)

		Convey("When the event is before week 1", func() {
			w, kind := cal.Weight(2025, date("2025-02-20"))
			So(w, ShouldEqual, 0.05)
			So(kind, ShouldEqual, calendar.KindPreseason)
		})

		Convey("When the event is after the last week", func() {
			w, kind := cal.Weight(2025, date("2025-04-20"))
			So(w, ShouldEqual, 0.1)
			So(kind, ShouldEqual, calendar.KindOffseason)
		})

		Convey("When the event is mid-season", func() {
			w, kind := cal.Weight(2025, date("2025-03-06"))
			So(w, ShouldAlmostEqual, 0.6, 1e-12)
			So(kind, ShouldEqual, calendar.KindSeason)
		})

		Convey("When the event starts on the first and last days", func() {
			first, _ := cal.Weight(2025, date("2025-03-01"))
			last, _ := cal.Weight(2025, date("2025-03-11"))
			So(first, ShouldAlmostEqual, 0.2, 1e-12)
			So(last, ShouldAlmostEqual, 1.0, 1e-12)
		})

		Convey("When progress is 0.9", func() {
			w, _ := cal.Weight(2025, date("2025-03-10"))
			So(w, ShouldAlmostEqual, 0.9, 1e-12)
		})

		Convey("When the time of day differs", func() {
			w, _ := cal.Weight(2025, date("2025-03-06").Add(15*time.Hour))
			So(w, ShouldAlmostEqual, 0.6, 1e-12)
		})

		Convey("When the year has no calendar data", func() {
			w, kind := cal.Weight(2019, date("2019-03-06"))
			So(w, ShouldEqual, 1.0)
			So(kind, ShouldEqual, calendar.KindUnknown)
		})
	})
}

func TestFromConfig(t *testing.T) {
	Convey("Given calendar config", t, func() {
		Convey("When the defaults are parsed", func() {
			cal, err := calendar.FromConfig(config.New().Calendar)
			So(err, ShouldBeNil)
			So(cal.Years(), ShouldResemble, []int{2024, 2025})
		})

		Convey("When a date is malformed", func() {
			_, err := calendar.FromConfig(map[string][]config.Week{"2025": {{Start: "03/01/2025", End: "2025-03-05"}}})
			So(err, ShouldWrap, calendar.ErrInvalidCalendar)
		})

		Convey("When a week ends before it starts", func() {
			_, err := calendar.FromConfig(map[string][]config.Week{"2025": {{Start: "2025-03-05", End: "2025-03-01"}}})
			So(err, ShouldWrap, calendar.ErrInvalidCalendar)
		})

		Convey("When the year is not a number", func() {
			_, err := calendar.FromConfig(map[string][]config.Week{"next": nil})
			So(err, ShouldWrap, calendar.ErrInvalidCalendar)
		})
	})
}
