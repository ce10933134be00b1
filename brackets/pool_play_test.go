package brackets_test

import (
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/courtsync/courtsync/brackets"
	"github.com/courtsync/courtsync/models"
)

func TestPoolPlay(t *testing.T) {
	convey.Convey("Given a pool play generator", t, func() {
		convey.Convey("When generating for 8 teams with pools of 4", func() {
			trn := tournament(8, models.TypePoolPlay)
			trn.Settings.PoolSize = 4
			bs, err := brackets.Generate(trn)

			convey.Convey("Then two pools of round robin feed a 2-team playoff", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(bs.Validate(), convey.ShouldBeNil)
				// 2 pools * 6 round robin matches + 1 playoff final
				convey.So(bs.TotalMatches, convey.ShouldEqual, 13)
			})

			convey.Convey("Then snake draft balances the pools", func() {
				poolOf := make(map[string]int)
				for _, m := range bs.AllMatches() {
					if strings.HasPrefix(m.ID, "P1") {
						poolOf[*m.Team1ID], poolOf[*m.Team2ID] = 1, 1
					} else if strings.HasPrefix(m.ID, "P2") {
						poolOf[*m.Team1ID], poolOf[*m.Team2ID] = 2, 2
					}
				}
				// passes: 1,2 then 2,1 then 1,2 then 2,1
				convey.So(poolOf["team1"], convey.ShouldEqual, 1)
				convey.So(poolOf["team2"], convey.ShouldEqual, 2)
				convey.So(poolOf["team3"], convey.ShouldEqual, 2)
				convey.So(poolOf["team4"], convey.ShouldEqual, 1)
				convey.So(poolOf["team5"], convey.ShouldEqual, 1)
				convey.So(poolOf["team6"], convey.ShouldEqual, 2)
				convey.So(poolOf["team7"], convey.ShouldEqual, 2)
				convey.So(poolOf["team8"], convey.ShouldEqual, 1)
			})

			convey.Convey("Then pool matches never cross pools", func() {
				for _, m := range bs.AllMatches() {
					if strings.HasPrefix(m.ID, "PO") || m.Team1ID == nil {
						continue
					}
					p1, p2 := poolOfTeam(bs, *m.Team1ID), poolOfTeam(bs, *m.Team2ID)
					convey.So(p1, convey.ShouldEqual, p2)
				}
			})

			convey.Convey("Then playoff entrant slots are empty until seeded", func() {
				slots := brackets.PoolWinnerSlots(bs)
				convey.So(slots, convey.ShouldHaveLength, 1)
				convey.So(slots[0].TeamCount(), convey.ShouldEqual, 0)
				convey.So(slots[0].Status, convey.ShouldEqual, models.MatchStatusPending)
			})
		})

		convey.Convey("When 12 teams form 3 pools", func() {
			trn := tournament(12, models.TypePoolPlay)
			trn.Settings.PoolSize = 4
			bs, err := brackets.Generate(trn)

			convey.Convey("Then the playoff pads to 4 slots for 3 winners", func() {
				convey.So(err, convey.ShouldBeNil)
				slots := brackets.PoolWinnerSlots(bs)
				convey.So(slots, convey.ShouldHaveLength, 2)
				// 3 pools * 6 + (4-slot playoff = 3 matches)
				convey.So(bs.TotalMatches, convey.ShouldEqual, 21)
			})
		})

		convey.Convey("When the field is below the minimum", func() {
			_, err := brackets.Generate(tournament(3, models.TypePoolPlay))

			convey.Convey("Then generation is rejected", func() {
				convey.So(err, convey.ShouldWrap, brackets.ErrNotEnoughTeams)
			})
		})
	})
}

func poolOfTeam(bs *models.BracketStructure, teamID string) string {
	for _, m := range bs.AllMatches() {
		if strings.HasPrefix(m.ID, "PO") || m.Team1ID == nil || m.Team2ID == nil {
			continue
		}
		if *m.Team1ID == teamID || *m.Team2ID == teamID {
			return m.ID[:2]
		}
	}
	return ""
}
