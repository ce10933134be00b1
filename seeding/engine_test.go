package seeding_test

import (
	"math/rand"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/courtsync/courtsync/models"
	"github.com/courtsync/courtsync/seeding"
)

func team(id string, rating float64) *models.Team {
	return &models.Team{ID: id, Name: id, PowerRating: rating}
}

func seedOf(n int) *int { return &n }

func TestEngine_Seed(t *testing.T) {
	convey.Convey("Given a seeding engine", t, func() {
		engine := seeding.NewEngineWithRand(rand.New(rand.NewSource(1)))

		convey.Convey("When seeding an empty team list", func() {
			_, err := engine.Seed(nil, models.SeedPowerRating)

			convey.Convey("Then it should fail", func() {
				convey.So(err, convey.ShouldWrap, seeding.ErrNoTeams)
			})
		})

		convey.Convey("When the method is unknown", func() {
			_, err := engine.Seed([]*models.Team{team("a", 1)}, models.SeedingMethod("elo"))

			convey.Convey("Then it should fail", func() {
				convey.So(err, convey.ShouldWrap, seeding.ErrUnknownMethod)
			})
		})

		convey.Convey("When seeding by power rating", func() {
			teams := []*models.Team{team("low", 10), team("high", 90), team("mid", 50)}
			out, err := engine.Seed(teams, models.SeedPowerRating)

			convey.Convey("Then teams are ordered by rating descending", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out[0].ID, convey.ShouldEqual, "high")
				convey.So(out[1].ID, convey.ShouldEqual, "mid")
				convey.So(out[2].ID, convey.ShouldEqual, "low")
			})

			convey.Convey("Then the input slice is not mutated", func() {
				convey.So(teams[0].ID, convey.ShouldEqual, "low")
			})
		})

		convey.Convey("When seeding by win percentage", func() {
			winner := &models.Team{ID: "winner", Wins: 9, Losses: 1}
			tied := &models.Team{ID: "tied", Wins: 4, Losses: 4, Ties: 2}
			fresh := &models.Team{ID: "fresh"}
			out, err := engine.Seed([]*models.Team{fresh, tied, winner}, models.SeedWinPercentage)

			convey.Convey("Then teams with no games sort last with zero percentage", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out[0].ID, convey.ShouldEqual, "winner")
				convey.So(out[1].ID, convey.ShouldEqual, "tied")
				convey.So(out[2].ID, convey.ShouldEqual, "fresh")
			})
		})

		convey.Convey("When seeding manually", func() {
			a := &models.Team{ID: "a", Seed: seedOf(2)}
			b := &models.Team{ID: "b"}
			c := &models.Team{ID: "c", Seed: seedOf(1)}
			d := &models.Team{ID: "d"}
			out, err := engine.Seed([]*models.Team{a, b, c, d}, models.SeedManual)

			convey.Convey("Then seeded teams come first and unseeded keep input order", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out[0].ID, convey.ShouldEqual, "c")
				convey.So(out[1].ID, convey.ShouldEqual, "a")
				convey.So(out[2].ID, convey.ShouldEqual, "b")
				convey.So(out[3].ID, convey.ShouldEqual, "d")
			})
		})

		convey.Convey("When seeding by region", func() {
			east1 := &models.Team{ID: "e1", Region: "east", PowerRating: 80}
			east2 := &models.Team{ID: "e2", Region: "east", PowerRating: 60}
			west1 := &models.Team{ID: "w1", Region: "west", PowerRating: 90}
			west2 := &models.Team{ID: "w2", Region: "west", PowerRating: 40}
			out, err := engine.Seed([]*models.Team{east1, east2, west1, west2}, models.SeedRegion)

			convey.Convey("Then adjacent teams alternate regions", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldHaveLength, 4)
				convey.So(out[0].Region, convey.ShouldNotEqual, out[1].Region)
				convey.So(out[2].Region, convey.ShouldNotEqual, out[3].Region)
			})

			convey.Convey("Then each region's strongest team leads its group", func() {
				convey.So(out[0].ID, convey.ShouldEqual, "e1")
				convey.So(out[1].ID, convey.ShouldEqual, "w1")
			})
		})

		convey.Convey("When seeding randomly", func() {
			teams := []*models.Team{team("a", 1), team("b", 2), team("c", 3), team("d", 4)}
			out, err := engine.Seed(teams, models.SeedRandom)

			convey.Convey("Then the result is a permutation of the input", func() {
				convey.So(err, convey.ShouldBeNil)
				ids := make(map[string]bool)
				for _, tm := range out {
					ids[tm.ID] = true
				}
				convey.So(ids, convey.ShouldHaveLength, 4)
			})
		})

		convey.Convey("When seeding deterministically twice", func() {
			teams := []*models.Team{team("a", 3), team("b", 1), team("c", 2)}
			first, err1 := engine.Seed(teams, models.SeedPowerRating)
			second, err2 := engine.Seed(teams, models.SeedPowerRating)

			convey.Convey("Then both runs produce the same order", func() {
				convey.So(err1, convey.ShouldBeNil)
				convey.So(err2, convey.ShouldBeNil)
				for i := range first {
					convey.So(first[i].ID, convey.ShouldEqual, second[i].ID)
				}
			})
		})
	})
}
