package brackets_test

import (
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/courtsync/courtsync/brackets"
	"github.com/courtsync/courtsync/models"
)

func TestDoubleElimination(t *testing.T) {
	convey.Convey("Given a double elimination generator", t, func() {
		convey.Convey("When generating for 8 teams", func() {
			bs, err := brackets.Generate(tournament(8, models.TypeDoubleElimination))

			convey.Convey("Then winners, losers and grand finals total 14 matches", func() {
				convey.So(err, convey.ShouldBeNil)
				// 7 winners + 2+2+1+1 losers + 1 grand finals
				convey.So(bs.TotalMatches, convey.ShouldEqual, 14)
				convey.So(bs.Validate(), convey.ShouldBeNil)
			})

			convey.Convey("Then every winners match except the final drops its loser somewhere", func() {
				for _, r := range bs.Rounds {
					for _, m := range r.Matches {
						if strings.HasPrefix(m.ID, "W") {
							convey.So(m.LoserChildID, convey.ShouldNotBeNil)
						}
					}
				}
			})

			convey.Convey("Then the grand finals is fed by both bracket finals", func() {
				gf := bs.FindMatch("GFM1")
				convey.So(gf, convey.ShouldNotBeNil)
				convey.So(gf.ParentMatchIDs, convey.ShouldHaveLength, 2)
				convey.So(gf.ChildMatchIDs, convey.ShouldBeEmpty)
				convey.So(bs.Rounds[len(bs.Rounds)-1].Name, convey.ShouldEqual, "Grand Finals")
			})

			convey.Convey("Then the last losers round is named Losers Finals", func() {
				names := make([]string, 0, len(bs.Rounds))
				for _, r := range bs.Rounds {
					names = append(names, r.Name)
				}
				convey.So(names, convey.ShouldContain, "Losers Finals")
			})
		})

		convey.Convey("When generating for 6 teams with byes", func() {
			bs, err := brackets.Generate(tournament(6, models.TypeDoubleElimination))

			convey.Convey("Then the bracket stays self-consistent", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(bs.Validate(), convey.ShouldBeNil)
			})

			convey.Convey("Then starved losers round 1 pairings are pruned", func() {
				// 2 byes in winners round 1 leave only 2 real matches, so at
				// most one losers round 1 pairing can exist.
				lr1 := 0
				for _, m := range bs.AllMatches() {
					if strings.HasPrefix(m.ID, "LR1") {
						lr1++
					}
				}
				convey.So(lr1, convey.ShouldBeLessThanOrEqualTo, 1)
			})

			convey.Convey("Then no match references a pruned parent", func() {
				index := make(map[string]bool)
				for _, m := range bs.AllMatches() {
					index[m.ID] = true
				}
				for _, m := range bs.AllMatches() {
					for _, pid := range m.ParentMatchIDs {
						convey.So(index[pid], convey.ShouldBeTrue)
					}
				}
			})
		})

		convey.Convey("When the field has fewer than 3 teams", func() {
			_, err := brackets.Generate(tournament(2, models.TypeDoubleElimination))

			convey.Convey("Then generation is rejected", func() {
				convey.So(err, convey.ShouldWrap, brackets.ErrNotEnoughTeams)
			})
		})
	})
}
