package brackets_test

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/courtsync/courtsync/brackets"
	"github.com/courtsync/courtsync/models"
)

func TestResolver(t *testing.T) {
	convey.Convey("Given a resolver over a 4-team single elimination bracket", t, func() {
		bs, err := brackets.Generate(tournament(4, models.TypeSingleElimination))
		convey.So(err, convey.ShouldBeNil)
		resolver := brackets.NewResolver(bs.AllMatches())

		semi1 := bs.Rounds[0].Matches[0]
		semi2 := bs.Rounds[0].Matches[1]
		final := bs.Rounds[1].Matches[0]

		convey.Convey("When advancing an unknown match", func() {
			_, err := resolver.Advance("R9M9", "team1", "team2")

			convey.Convey("Then it should fail", func() {
				convey.So(err, convey.ShouldWrap, brackets.ErrMatchNotFound)
			})
		})

		convey.Convey("When the winner is not in the match", func() {
			_, err := resolver.Advance(semi1.ID, "team3", "")

			convey.Convey("Then it should fail", func() {
				convey.So(err, convey.ShouldWrap, brackets.ErrTeamNotInMatch)
			})
		})

		convey.Convey("When advancing a semifinal", func() {
			touched, err := resolver.Advance(semi1.ID, *semi1.Team1ID, *semi1.Team2ID)

			convey.Convey("Then the match completes and the winner fills the final", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(touched[0].ID, convey.ShouldEqual, semi1.ID)
				convey.So(semi1.Status, convey.ShouldEqual, models.MatchStatusCompleted)
				convey.So(final.TeamCount(), convey.ShouldEqual, 1)
				convey.So(*final.Team1ID, convey.ShouldEqual, *semi1.WinnerID)
			})

			convey.Convey("And advancing it again is rejected", func() {
				_, err := resolver.Advance(semi1.ID, *semi1.Team2ID, *semi1.Team1ID)
				convey.So(err, convey.ShouldWrap, brackets.ErrMatchAlreadyCompleted)
			})

			convey.Convey("And completing the other semifinal fills the final's second slot", func() {
				_, err := resolver.Advance(semi2.ID, *semi2.Team1ID, *semi2.Team2ID)
				convey.So(err, convey.ShouldBeNil)
				convey.So(final.TeamCount(), convey.ShouldEqual, 2)
			})
		})
	})

	convey.Convey("Given a resolver over a double elimination bracket", t, func() {
		bs, err := brackets.Generate(tournament(4, models.TypeDoubleElimination))
		convey.So(err, convey.ShouldBeNil)
		resolver := brackets.NewResolver(bs.AllMatches())

		semi1 := bs.Rounds[0].Matches[0]

		convey.Convey("When a winners bracket match completes", func() {
			touched, err := resolver.Advance(semi1.ID, *semi1.Team1ID, *semi1.Team2ID)

			convey.Convey("Then the loser drops into the losers bracket", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(semi1.LoserChildID, convey.ShouldNotBeNil)
				drop, lookupErr := resolver.Match(*semi1.LoserChildID)
				convey.So(lookupErr, convey.ShouldBeNil)
				convey.So(drop.HasTeam(*semi1.LoserID), convey.ShouldBeTrue)
				convey.So(touched, convey.ShouldContain, drop)
			})
		})
	})

	convey.Convey("Given a half-filled match whose parents are all settled", t, func() {
		bs, err := brackets.Generate(tournament(12, models.TypePoolPlay))
		convey.So(err, convey.ShouldBeNil)
		resolver := brackets.NewResolver(bs.AllMatches())

		convey.Convey("When pool winners are seeded into a padded playoff and swept", func() {
			slots := brackets.PoolWinnerSlots(bs)
			convey.So(slots, convey.ShouldHaveLength, 2)
			slots[0].FillSlot("team1")
			slots[0].FillSlot("team2")
			slots[1].FillSlot("team3")
			touched := resolver.ResolvePending()

			convey.Convey("Then the lone entrant advances on a walkover", func() {
				convey.So(slots[1].Status, convey.ShouldEqual, models.MatchStatusBye)
				convey.So(*slots[1].WinnerID, convey.ShouldEqual, "team3")
				convey.So(touched, convey.ShouldNotBeEmpty)

				final := playoffFinal(bs)
				convey.So(final.HasTeam("team3"), convey.ShouldBeTrue)
			})
		})
	})
}

func playoffFinal(bs *models.BracketStructure) *models.Match {
	last := bs.Rounds[len(bs.Rounds)-1]
	return last.Matches[0]
}
