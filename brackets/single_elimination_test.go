package brackets_test

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/courtsync/courtsync/brackets"
	"github.com/courtsync/courtsync/models"
)

func TestSingleElimination(t *testing.T) {
	convey.Convey("Given a single elimination generator", t, func() {
		convey.Convey("When generating for 8 teams", func() {
			bs, err := brackets.Generate(tournament(8, models.TypeSingleElimination))

			convey.Convey("Then the bracket has 3 rounds and 7 matches", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(bs.TotalRounds, convey.ShouldEqual, 3)
				convey.So(bs.TotalMatches, convey.ShouldEqual, 7)
				convey.So(countByStatus(bs, models.MatchStatusBye), convey.ShouldEqual, 0)
			})

			convey.Convey("Then rounds are named by distance to the final", func() {
				convey.So(bs.Rounds[0].Name, convey.ShouldEqual, "Quarterfinals")
				convey.So(bs.Rounds[1].Name, convey.ShouldEqual, "Semifinals")
				convey.So(bs.Rounds[2].Name, convey.ShouldEqual, "Finals")
			})

			convey.Convey("Then every non-final match feeds exactly one child", func() {
				for _, r := range bs.Rounds[:2] {
					for _, m := range r.Matches {
						convey.So(m.ChildMatchIDs, convey.ShouldHaveLength, 1)
					}
				}
				final := bs.Rounds[2].Matches[0]
				convey.So(final.ChildMatchIDs, convey.ShouldBeEmpty)
				convey.So(final.ParentMatchIDs, convey.ShouldHaveLength, 2)
			})
		})

		convey.Convey("When generating for 5 teams", func() {
			bs, err := brackets.Generate(tournament(5, models.TypeSingleElimination))

			convey.Convey("Then the field pads to 8 with 3 byes", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(bs.TotalRounds, convey.ShouldEqual, 3)
				convey.So(bs.TotalMatches, convey.ShouldEqual, 7)
				convey.So(countByStatus(bs, models.MatchStatusBye), convey.ShouldEqual, 3)
			})

			convey.Convey("Then byes go to the top seeds", func() {
				for _, m := range bs.Rounds[0].Matches[:3] {
					convey.So(m.Status, convey.ShouldEqual, models.MatchStatusBye)
					convey.So(*m.WinnerID, convey.ShouldEqual, *m.Team1ID)
					convey.So(m.Team2ID, convey.ShouldBeNil)
				}
				convey.So(*bs.Rounds[0].Matches[0].Team1ID, convey.ShouldEqual, "team1")
			})

			convey.Convey("Then bye winners are pre-placed into round 2", func() {
				placed := 0
				for _, m := range bs.Rounds[1].Matches {
					placed += m.TeamCount()
				}
				convey.So(placed, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When generating for exactly 2 teams", func() {
			bs, err := brackets.Generate(tournament(2, models.TypeSingleElimination))

			convey.Convey("Then a single final is produced", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(bs.TotalRounds, convey.ShouldEqual, 1)
				convey.So(bs.TotalMatches, convey.ShouldEqual, 1)
				convey.So(bs.Rounds[0].Name, convey.ShouldEqual, "Finals")
			})
		})
	})
}
