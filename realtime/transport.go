// Package realtime distributes TournamentEvents between the engine and
// live-scoring clients. Events are delivered to subscribers of a given
// tournament in the order the transport received them; there is no
// cross-tournament ordering guarantee.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/courtsync/courtsync/models"
)

var (
	// ErrOfflineQueued signals the event was accepted into the offline
	// queue rather than sent; it will be retried after reconnection.
	ErrOfflineQueued = errors.New("transport offline, event queued")

	// ErrQueueFull means the offline queue rejected the event.
	ErrQueueFull = errors.New("offline queue full, event dropped")

	// ErrAckTimeout means the server did not acknowledge the publish in
	// time. Optimistic local state is not rolled back by callers; the
	// event may still arrive out of band.
	ErrAckTimeout = errors.New("timed out waiting for publish acknowledgment")
)

// Handler consumes events for one subscription.
type Handler func(ev models.TournamentEvent)

// Transport is a connection-oriented pub/sub channel scoped per tournament.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	// Subscribe registers a handler for one tournament. An empty types
	// list delivers every event type.
	Subscribe(tournamentID string, h Handler, types ...models.EventType) (string, error)
	Unsubscribe(subscriptionID string)

	Publish(ctx context.Context, ev models.TournamentEvent) error
}

// Wire envelope. Room scopes per-tournament traffic; the system room
// carries transport control messages (heartbeat pings, acks).
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Room    string          `json:"room"`
}

const (
	EnvelopeEvent = "tournament_event"
	EnvelopeAck   = "ack"
	EnvelopePing  = "ping"
	EnvelopeJoin  = "join_tournament"
	EnvelopeLeave = "leave_tournament"

	SystemRoom = "system"
)

type ackPayload struct {
	ID string `json:"id"`
}

// RoomFor names the per-tournament room.
func RoomFor(tournamentID string) string {
	return "tournament_" + tournamentID
}

// eventEnvelope wraps an event for the wire.
func eventEnvelope(ev models.TournamentEvent) (Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: EnvelopeEvent, Payload: payload, Room: RoomFor(ev.TournamentID)}, nil
}

// backoffDelay computes base * 2^attempt capped at max. The sequence is
// strictly increasing until the cap and constant afterwards.
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

type subscription struct {
	id           string
	tournamentID string
	handler      Handler
	allow        map[models.EventType]bool // nil means all types
}

func (s *subscription) wants(t models.EventType) bool {
	return s.allow == nil || s.allow[t]
}

// registry tracks subscriptions and fans events out through their filters.
type registry struct {
	mu   sync.RWMutex
	subs map[string]*subscription
}

func newRegistry() *registry {
	return &registry{subs: make(map[string]*subscription)}
}

func (r *registry) add(tournamentID string, h Handler, types []models.EventType) string {
	sub := &subscription{
		id:           uuid.NewString(),
		tournamentID: tournamentID,
		handler:      h,
	}
	if len(types) > 0 {
		sub.allow = make(map[models.EventType]bool, len(types))
		for _, t := range types {
			sub.allow[t] = true
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[sub.id] = sub
	return sub.id
}

// remove drops the subscription and reports its tournament and whether it
// was the last subscription for that tournament (so callers can leave the
// room).
func (r *registry) remove(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[id]
	if !ok {
		return "", false
	}
	delete(r.subs, id)
	for _, s := range r.subs {
		if s.tournamentID == sub.tournamentID {
			return sub.tournamentID, false
		}
	}
	return sub.tournamentID, true
}

func (r *registry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = make(map[string]*subscription)
}

// tournaments lists every tournament with at least one subscription,
// used to rejoin rooms after a reconnect.
func (r *registry) tournaments() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, s := range r.subs {
		if !seen[s.tournamentID] {
			seen[s.tournamentID] = true
			out = append(out, s.tournamentID)
		}
	}
	return out
}

// dispatch delivers the event to matching subscribers of its tournament.
func (r *registry) dispatch(ev models.TournamentEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.subs {
		if s.tournamentID == ev.TournamentID && s.wants(ev.Type) {
			s.handler(ev)
		}
	}
}

// dispatchAll delivers to every subscriber regardless of tournament or
// filter; used for terminal transport events.
func (r *registry) dispatchAll(ev models.TournamentEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.subs {
		s.handler(ev)
	}
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
