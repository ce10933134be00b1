package state_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/courtsync/courtsync/brackets"
	"github.com/courtsync/courtsync/models"
	"github.com/courtsync/courtsync/realtime"
	"github.com/courtsync/courtsync/state"
)

type fakeTransport struct {
	published  []models.TournamentEvent
	handler    realtime.Handler
	publishErr error
}

func (f *fakeTransport) Connect(ctx context.Context) error    { return nil }
func (f *fakeTransport) Disconnect(ctx context.Context) error { return nil }

func (f *fakeTransport) Subscribe(tournamentID string, h realtime.Handler, types ...models.EventType) (string, error) {
	f.handler = h
	return "sub-1", nil
}

func (f *fakeTransport) Unsubscribe(subscriptionID string) {}

func (f *fakeTransport) Publish(ctx context.Context, ev models.TournamentEvent) error {
	f.published = append(f.published, ev)
	return f.publishErr
}

func liveTournament(n int) *models.Tournament {
	t := &models.Tournament{
		ID:     "t1",
		Name:   "City Finals",
		Type:   models.TypeSingleElimination,
		Status: models.TournamentStatusSetup,
	}
	for i := 0; i < n; i++ {
		t.Teams = append(t.Teams, &models.Team{
			ID:          fmt.Sprintf("team%d", i+1),
			Name:        fmt.Sprintf("Team %d", i+1),
			PowerRating: float64(100 - i),
		})
	}
	bs, err := brackets.Generate(t)
	if err != nil {
		panic(err)
	}
	t.Bracket = bs
	t.Status = models.TournamentStatusInProgress
	return t
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManager(t *testing.T) {
	convey.Convey("Given a state manager over a running 4-team tournament", t, func() {
		transport := &fakeTransport{}
		trn := liveTournament(4)
		mgr, err := state.NewManager(trn, transport, quietLogger())
		convey.So(err, convey.ShouldBeNil)

		semi1 := trn.Bracket.Rounds[0].Matches[0]
		ctx := context.Background()

		convey.Convey("When a match is started locally", func() {
			err := mgr.StartMatch(ctx, semi1.ID)

			convey.Convey("Then the state mutates immediately and one event is published", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(semi1.Status, convey.ShouldEqual, models.MatchStatusInProgress)
				convey.So(transport.published, convey.ShouldHaveLength, 1)
				convey.So(transport.published[0].Type, convey.ShouldEqual, models.EventMatchStart)
				convey.So(transport.published[0].Source, convey.ShouldEqual, models.SourceScorekeeper)
			})

			convey.Convey("And starting it again is an invalid transition", func() {
				convey.So(mgr.StartMatch(ctx, semi1.ID), convey.ShouldWrap, state.ErrInvalidTransition)
			})
		})

		convey.Convey("When scoring a match that was never started", func() {
			err := mgr.UpdateScore(ctx, semi1.ID, 1, 0)

			convey.Convey("Then the transition is rejected", func() {
				convey.So(err, convey.ShouldWrap, state.ErrInvalidTransition)
			})
		})

		convey.Convey("When a started match ends", func() {
			convey.So(mgr.StartMatch(ctx, semi1.ID), convey.ShouldBeNil)
			transport.published = nil

			winner, loser := *semi1.Team1ID, *semi1.Team2ID
			err := mgr.EndMatch(ctx, semi1.ID, winner, loser)

			convey.Convey("Then completion and advancement events are published", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(semi1.Status, convey.ShouldEqual, models.MatchStatusCompleted)
				convey.So(transport.published[0].Type, convey.ShouldEqual, models.EventMatchEnd)
				convey.So(transport.published[1].Type, convey.ShouldEqual, models.EventTeamAdvance)

				final, lookupErr := mgr.Match(semi1.ChildMatchIDs[0])
				convey.So(lookupErr, convey.ShouldBeNil)
				convey.So(final.HasTeam(winner), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the transport reports the event was queued offline", func() {
			transport.publishErr = realtime.ErrOfflineQueued
			err := mgr.StartMatch(ctx, semi1.ID)

			convey.Convey("Then the local mutation still succeeds", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(semi1.Status, convey.ShouldEqual, models.MatchStatusInProgress)
			})
		})

		convey.Convey("When a non-system event echoes back from the transport", func() {
			ev := models.NewTournamentEvent(models.EventMatchStart, trn.ID, models.SourceScorekeeper)
			ev.MatchID = &semi1.ID
			transport.handler(ev)

			convey.Convey("Then it is ignored to break the echo loop", func() {
				convey.So(semi1.Status, convey.ShouldEqual, models.MatchStatusPending)
			})
		})

		convey.Convey("When a system-sourced remote event arrives", func() {
			ev := models.NewTournamentEvent(models.EventMatchStart, trn.ID, models.SourceSystem)
			ev.MatchID = &semi1.ID
			transport.handler(ev)

			convey.Convey("Then it is applied to local state", func() {
				convey.So(semi1.Status, convey.ShouldEqual, models.MatchStatusInProgress)
			})

			convey.Convey("And an older conflicting remote event is dropped by last-writer-wins", func() {
				stale := models.NewTournamentEvent(models.EventMatchEnd, trn.ID, models.SourceSystem)
				stale.MatchID = &semi1.ID
				stale.Timestamp = time.Now().Add(-time.Hour)
				stale.Payload = map[string]any{"winner_id": *semi1.Team1ID, "loser_id": *semi1.Team2ID}
				transport.handler(stale)

				convey.So(semi1.Status, convey.ShouldEqual, models.MatchStatusInProgress)
			})
		})

		convey.Convey("When the tournament's last match completes", func() {
			var completed bool
			mgr.Subscribe(func(ev models.TournamentEvent) {
				if ev.Type == models.EventTournamentComplete {
					completed = true
				}
			}, models.EventTournamentComplete)

			for _, m := range trn.Bracket.Rounds[0].Matches {
				convey.So(mgr.EndMatch(ctx, m.ID, *m.Team1ID, *m.Team2ID), convey.ShouldBeNil)
			}
			final := trn.Bracket.Rounds[1].Matches[0]
			convey.So(mgr.EndMatch(ctx, final.ID, *final.Team1ID, *final.Team2ID), convey.ShouldBeNil)

			convey.Convey("Then the tournament completes and subscribers hear about it", func() {
				convey.So(mgr.Tournament().Status, convey.ShouldEqual, models.TournamentStatusCompleted)
				convey.So(completed, convey.ShouldBeTrue)
			})

			convey.Convey("And further mutations are rejected", func() {
				convey.So(mgr.StartMatch(ctx, final.ID), convey.ShouldWrap, state.ErrTournamentDone)
			})
		})

		convey.Convey("When the transport gives up reconnecting", func() {
			var failures int
			mgr.Subscribe(func(ev models.TournamentEvent) {
				if ev.Type == models.EventConnectionFailed {
					failures++
				}
			}, models.EventScoreUpdate) // filter does not include the failure event

			ev := models.NewTournamentEvent(models.EventConnectionFailed, "", models.SourceSystem)
			transport.handler(ev)

			convey.Convey("Then the terminal event bypasses subscriber filters", func() {
				convey.So(failures, convey.ShouldEqual, 1)
			})
		})
	})
}
