package brackets_test

import (
	"fmt"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/courtsync/courtsync/brackets"
	"github.com/courtsync/courtsync/models"
)

func pairKey(m *models.Match) string {
	a, b := *m.Team1ID, *m.Team2ID
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func TestRoundRobin(t *testing.T) {
	convey.Convey("Given a round robin generator", t, func() {
		convey.Convey("When generating for 4 teams", func() {
			bs, err := brackets.Generate(tournament(4, models.TypeRoundRobin))

			convey.Convey("Then there are 3 rounds of 2 matches each", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(bs.TotalRounds, convey.ShouldEqual, 3)
				convey.So(bs.TotalMatches, convey.ShouldEqual, 6)
				for _, r := range bs.Rounds {
					convey.So(r.Matches, convey.ShouldHaveLength, 2)
				}
			})

			convey.Convey("Then every pair of teams meets exactly once", func() {
				seen := make(map[string]int)
				for _, m := range bs.AllMatches() {
					seen[pairKey(m)]++
				}
				convey.So(seen, convey.ShouldHaveLength, 6)
				for pair, count := range seen {
					convey.So(count, convey.ShouldEqual, 1)
					convey.So(pair, convey.ShouldNotBeEmpty)
				}
			})

			convey.Convey("Then no team plays twice in one round", func() {
				for _, r := range bs.Rounds {
					inRound := make(map[string]bool)
					for _, m := range r.Matches {
						convey.So(inRound[*m.Team1ID], convey.ShouldBeFalse)
						convey.So(inRound[*m.Team2ID], convey.ShouldBeFalse)
						inRound[*m.Team1ID] = true
						inRound[*m.Team2ID] = true
					}
				}
			})
		})

		convey.Convey("When generating for an odd field of 5", func() {
			bs, err := brackets.Generate(tournament(5, models.TypeRoundRobin))

			convey.Convey("Then there are 5 rounds and 10 matches, one team idle per round", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(bs.TotalRounds, convey.ShouldEqual, 5)
				convey.So(bs.TotalMatches, convey.ShouldEqual, 10)
				for _, r := range bs.Rounds {
					convey.So(r.Matches, convey.ShouldHaveLength, 2)
				}
			})

			convey.Convey("Then each team plays 4 games", func() {
				games := make(map[string]int)
				for _, m := range bs.AllMatches() {
					games[*m.Team1ID]++
					games[*m.Team2ID]++
				}
				for i := 1; i <= 5; i++ {
					convey.So(games[fmt.Sprintf("team%d", i)], convey.ShouldEqual, 4)
				}
			})
		})
	})
}
