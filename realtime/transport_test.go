package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/smartystreets/goconvey/convey"

	"github.com/courtsync/courtsync/models"
)

func TestBackoffDelay(t *testing.T) {
	convey.Convey("Given a 500ms base and 30s cap", t, func() {
		base := 500 * time.Millisecond
		max := 30 * time.Second

		convey.Convey("Then the delay doubles per attempt until the cap", func() {
			convey.So(backoffDelay(0, base, max), convey.ShouldEqual, 500*time.Millisecond)
			convey.So(backoffDelay(1, base, max), convey.ShouldEqual, time.Second)
			convey.So(backoffDelay(2, base, max), convey.ShouldEqual, 2*time.Second)
			convey.So(backoffDelay(5, base, max), convey.ShouldEqual, 16*time.Second)
		})

		convey.Convey("Then the delay never exceeds the cap", func() {
			convey.So(backoffDelay(6, base, max), convey.ShouldEqual, max)
			convey.So(backoffDelay(20, base, max), convey.ShouldEqual, max)
		})

		convey.Convey("Then the sequence is monotonically non-decreasing", func() {
			prev := time.Duration(0)
			for attempt := 0; attempt < 12; attempt++ {
				d := backoffDelay(attempt, base, max)
				convey.So(d, convey.ShouldBeGreaterThanOrEqualTo, prev)
				prev = d
			}
		})
	})
}

func TestRegistry(t *testing.T) {
	convey.Convey("Given a subscription registry", t, func() {
		reg := newRegistry()

		received := make([]models.TournamentEvent, 0)
		all := reg.add("t1", func(ev models.TournamentEvent) {
			received = append(received, ev)
		}, nil)

		scored := make([]models.TournamentEvent, 0)
		reg.add("t1", func(ev models.TournamentEvent) {
			scored = append(scored, ev)
		}, []models.EventType{models.EventScoreUpdate})

		other := make([]models.TournamentEvent, 0)
		reg.add("t2", func(ev models.TournamentEvent) {
			other = append(other, ev)
		}, nil)

		convey.Convey("When dispatching a score update for t1", func() {
			ev := models.NewTournamentEvent(models.EventScoreUpdate, "t1", models.SourceSystem)
			reg.dispatch(ev)

			convey.Convey("Then both t1 subscribers receive it and t2 does not", func() {
				convey.So(received, convey.ShouldHaveLength, 1)
				convey.So(scored, convey.ShouldHaveLength, 1)
				convey.So(other, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When dispatching an event type outside a subscriber's filter", func() {
			ev := models.NewTournamentEvent(models.EventMatchStart, "t1", models.SourceSystem)
			reg.dispatch(ev)

			convey.Convey("Then only the unfiltered subscriber receives it", func() {
				convey.So(received, convey.ShouldHaveLength, 1)
				convey.So(scored, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When dispatching a terminal transport event to everyone", func() {
			ev := models.NewTournamentEvent(models.EventConnectionFailed, "", models.SourceSystem)
			reg.dispatchAll(ev)

			convey.Convey("Then every subscriber receives it regardless of filters", func() {
				convey.So(received, convey.ShouldHaveLength, 1)
				convey.So(scored, convey.ShouldHaveLength, 1)
				convey.So(other, convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When removing subscriptions", func() {
			tid, last := reg.remove(all)

			convey.Convey("Then it is not the last one for the tournament", func() {
				convey.So(tid, convey.ShouldEqual, "t1")
				convey.So(last, convey.ShouldBeFalse)
				convey.So(reg.len(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When listing subscribed tournaments", func() {
			ts := reg.tournaments()

			convey.Convey("Then each tournament appears once", func() {
				convey.So(ts, convey.ShouldHaveLength, 2)
				convey.So(ts, convey.ShouldContain, "t1")
				convey.So(ts, convey.ShouldContain, "t2")
			})
		})
	})
}

type memoryOutbox struct {
	mu      sync.Mutex
	pending []models.TournamentEvent
	deleted []string
}

func (o *memoryOutbox) Persist(ctx context.Context, events []models.TournamentEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, events...)
	return nil
}

func (o *memoryOutbox) ListPending(ctx context.Context, tournamentID string) ([]models.TournamentEvent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.TournamentEvent, 0)
	for _, ev := range o.pending {
		if ev.TournamentID == tournamentID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (o *memoryOutbox) Delete(ctx context.Context, eventIDs []string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	drop := make(map[string]bool, len(eventIDs))
	for _, id := range eventIDs {
		drop[id] = true
	}
	kept := o.pending[:0]
	for _, ev := range o.pending {
		if drop[ev.ID] {
			o.deleted = append(o.deleted, ev.ID)
			continue
		}
		kept = append(kept, ev)
	}
	o.pending = kept
	return nil
}

func TestSocketOutboxRedelivery(t *testing.T) {
	convey.Convey("Given a server and an outbox holding events from an earlier run", t, func() {
		received := make(chan Envelope, 8)
		upgrader := websocket.Upgrader{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			defer conn.Close()
			for {
				_, raw, readErr := conn.ReadMessage()
				if readErr != nil {
					return
				}
				var env Envelope
				if json.Unmarshal(raw, &env) == nil {
					received <- env
				}
			}
		}))
		defer srv.Close()

		ev1 := models.NewTournamentEvent(models.EventScoreUpdate, "t1", models.SourceScorekeeper)
		ev2 := models.NewTournamentEvent(models.EventMatchEnd, "t1", models.SourceScorekeeper)
		outbox := &memoryOutbox{pending: []models.TournamentEvent{ev1, ev2}}

		transport := NewSocketTransport(SocketConfig{
			URL:    "ws" + strings.TrimPrefix(srv.URL, "http"),
			Outbox: outbox,
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		})

		convey.Convey("When connecting and subscribing to the tournament", func() {
			ctx := context.Background()
			convey.So(transport.Connect(ctx), convey.ShouldBeNil)
			_, err := transport.Subscribe("t1", func(models.TournamentEvent) {})
			convey.So(err, convey.ShouldBeNil)
			defer transport.Disconnect(ctx)

			convey.Convey("Then the pending events reach the server and their rows are cleared", func() {
				redelivered := make([]string, 0, 2)
				deadline := time.After(2 * time.Second)
				for len(redelivered) < 2 {
					select {
					case env := <-received:
						if env.Event != EnvelopeEvent {
							continue
						}
						var ev models.TournamentEvent
						convey.So(json.Unmarshal(env.Payload, &ev), convey.ShouldBeNil)
						redelivered = append(redelivered, ev.ID)
					case <-deadline:
						t.Fatal("timed out waiting for redelivered events")
					}
				}
				convey.So(redelivered, convey.ShouldResemble, []string{ev1.ID, ev2.ID})

				outbox.mu.Lock()
				defer outbox.mu.Unlock()
				convey.So(outbox.pending, convey.ShouldBeEmpty)
				convey.So(outbox.deleted, convey.ShouldResemble, []string{ev1.ID, ev2.ID})
			})
		})
	})
}

func TestSocketOfflineQueue(t *testing.T) {
	convey.Convey("Given a disconnected socket transport with a tiny queue", t, func() {
		transport := NewSocketTransport(SocketConfig{
			URL:       "ws://localhost:0/ws",
			QueueSize: 2,
		})

		convey.Convey("When publishing while offline", func() {
			ev1 := models.NewTournamentEvent(models.EventScoreUpdate, "t1", models.SourceScorekeeper)
			ev2 := models.NewTournamentEvent(models.EventScoreUpdate, "t1", models.SourceScorekeeper)
			ev3 := models.NewTournamentEvent(models.EventScoreUpdate, "t1", models.SourceScorekeeper)

			ctx := context.Background()
			err1 := transport.Publish(ctx, ev1)
			err2 := transport.Publish(ctx, ev2)
			err3 := transport.Publish(ctx, ev3)

			convey.Convey("Then events queue until the bound and overflow is rejected", func() {
				convey.So(err1, convey.ShouldWrap, ErrOfflineQueued)
				convey.So(err2, convey.ShouldWrap, ErrOfflineQueued)
				convey.So(err3, convey.ShouldWrap, ErrQueueFull)
			})
		})
	})
}
