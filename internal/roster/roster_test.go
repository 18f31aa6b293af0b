package roster_test

import (
	"strings"
	"testing"
	"time"

	"github.com/okian/cohort/internal/domain/model"
	"github.com/okian/cohort/internal/roster"
	. "github.com/smartystreets/goconvey/convey"
)

const rosterCSV = `id,gender,job_function,years_experience,working_time_list
8,Male,Manager,10,00-05;20-24
9,Male,Executive,10,10-15;15-20
31,Female,Contributor,1,05-10
`

func TestParseParticipantsCSV(t *testing.T) {
	Convey("Given a roster CSV with a list column", t, func() {
		people, err := roster.ParseParticipantsCSV(strings.NewReader(rosterCSV))
		So(err, ShouldBeNil)
		So(len(people), ShouldEqual, 3)

		Convey("Identifiers come from the id column", func() {
			So(people[0].ID, ShouldEqual, "8")
			So(people[2].ID, ShouldEqual, "31")
		})

		Convey("Numeric cells become numbers", func() {
			v := people[0].Attrs["years_experience"]
			n, ok := v.Number()
			So(ok, ShouldBeTrue)
			So(n, ShouldAlmostEqual, 10)
		})

		Convey("List columns split on semicolons", func() {
			v := people[0].Attrs["working_time_list"]
			So(v.Kind(), ShouldEqual, model.KindMulti)
			So(v.Set(), ShouldResemble, []string{"00-05", "20-24"})
		})

		Convey("Plain cells stay categorical", func() {
			So(people[1].Attrs["job_function"].Set(), ShouldResemble, []string{"Executive"})
		})
	})

	Convey("Empty cells are recorded as absent", t, func() {
		csv := "id,gender\n1,Male\n2,\n"
		people, err := roster.ParseParticipantsCSV(strings.NewReader(csv))
		So(err, ShouldBeNil)
		So(people[0].Has("gender"), ShouldBeTrue)
		So(people[1].Has("gender"), ShouldBeFalse)
	})

	Convey("A missing header is rejected", t, func() {
		_, err := roster.ParseParticipantsCSV(strings.NewReader(""))
		So(err, ShouldWrap, roster.ErrBadRoster)
	})
}

func TestParseParticipantsJSON(t *testing.T) {
	Convey("Given a JSON roster", t, func() {
		body := `[
			{"id": 8, "gender": "Male", "years_experience": 10},
			{"gender": "Female", "skills": ["go", "sql"]}
		]`
		people, err := roster.ParseParticipantsJSON(strings.NewReader(body))
		So(err, ShouldBeNil)
		So(len(people), ShouldEqual, 2)
		So(people[0].ID, ShouldEqual, "8")

		Convey("Entries without an id fall back to their position", func() {
			So(people[1].ID, ShouldEqual, "1")
		})

		Convey("JSON arrays become multi values directly", func() {
			So(people[1].Attrs["skills"].Kind(), ShouldEqual, model.KindMulti)
		})
	})

	Convey("Malformed JSON is rejected", t, func() {
		_, err := roster.ParseParticipantsJSON(strings.NewReader("{"))
		So(err, ShouldWrap, roster.ErrBadRoster)
	})
}

func TestParseConstraints(t *testing.T) {
	Convey("Given a constraints CSV", t, func() {
		csv := "attribute,type,weight\ngender,diversify,1\njob_function,cluster,2.5\n"
		cs, err := roster.ParseConstraintsCSV(strings.NewReader(csv))
		So(err, ShouldBeNil)
		So(len(cs), ShouldEqual, 2)
		So(cs[0].Type, ShouldEqual, model.Diversify)
		So(cs[1].Weight, ShouldAlmostEqual, 2.5)

		Convey("Unknown types are rejected", func() {
			bad := "attribute,type,weight\ngender,sortof,1\n"
			_, err := roster.ParseConstraintsCSV(strings.NewReader(bad))
			So(err, ShouldNotBeNil)
		})

		Convey("Missing columns are rejected", func() {
			bad := "attribute,weight\ngender,1\n"
			_, err := roster.ParseConstraintsCSV(strings.NewReader(bad))
			So(err, ShouldWrap, roster.ErrBadConstraints)
		})
	})

	Convey("Given JSON constraints", t, func() {
		body := `[{"attribute": "years_experience", "type": "cluster_numeric", "weight": 1}]`
		cs, err := roster.ParseConstraintsJSON(strings.NewReader(body))
		So(err, ShouldBeNil)
		So(cs[0].Type, ShouldEqual, model.ClusterNumeric)
	})
}

func TestAddWorkingHours(t *testing.T) {
	Convey("Given participants with time zones and working periods", t, func() {
		body := `[
			{"id": 1, "time_zone": "UTC", "working_time": "Morning"},
			{"id": 2, "gender": "Female"}
		]`
		people, err := roster.ParseParticipantsJSON(strings.NewReader(body))
		So(err, ShouldBeNil)

		winter := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
		So(roster.AddWorkingHours(people, winter), ShouldBeNil)

		Convey("Hour lists are derived in UTC", func() {
			v, ok := people[0].Attrs["working_hour_list"]
			So(ok, ShouldBeTrue)
			So(v.Set(), ShouldResemble, []string{"7", "8", "9", "10", "11"})
		})

		Convey("Participants without the columns are untouched", func() {
			So(people[1].Has("working_hour_list"), ShouldBeFalse)
		})

		Convey("Bad zones surface as errors", func() {
			bad := `[{"id": 3, "time_zone": "Nowhere/Here", "working_time": "Morning"}]`
			broken, err := roster.ParseParticipantsJSON(strings.NewReader(bad))
			So(err, ShouldBeNil)
			So(roster.AddWorkingHours(broken, winter), ShouldNotBeNil)
		})
	})
}
