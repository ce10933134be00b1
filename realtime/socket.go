package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/courtsync/courtsync/metrics"
	"github.com/courtsync/courtsync/models"
)

// OutboxStore persists queued-but-unsent events on disconnect so a later
// re-initialization can attempt redelivery. Rows are deleted once they are
// back on the wire.
type OutboxStore interface {
	Persist(ctx context.Context, events []models.TournamentEvent) error
	ListPending(ctx context.Context, tournamentID string) ([]models.TournamentEvent, error)
	Delete(ctx context.Context, eventIDs []string) error
}

// SocketConfig tunes the reconnecting client transport. Zero values fall
// back to the defaults below.
type SocketConfig struct {
	URL string

	BaseDelay         time.Duration // first reconnect delay (default 500ms)
	MaxDelay          time.Duration // backoff cap (default 30s)
	MaxRetries        int           // reconnect budget (default 10)
	QueueSize         int           // offline queue bound (default 256)
	MessageRetries    int           // per-message send attempts (default 3)
	AckTimeout        time.Duration // publish ack deadline (default 5s)
	HeartbeatInterval time.Duration // keep-alive ping period (default 30s)

	Outbox OutboxStore // optional
	Logger *slog.Logger
}

func (c *SocketConfig) withDefaults() {
	if c.BaseDelay <= 0 {
		c.BaseDelay = 500 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 10
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.MessageRetries <= 0 {
		c.MessageRetries = 3
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = 5 * time.Second
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

type queuedEvent struct {
	ev       models.TournamentEvent
	attempts int
}

// SocketTransport is the remote-client Transport: a websocket connection to
// the engine's hub with heartbeat keep-alive, exponential-backoff
// reconnection (rejoining all subscribed rooms transparently) and a bounded
// offline queue. Exhausting the reconnect budget emits a terminal
// connection:failed event to every local listener; publish and subscribe
// keep queueing afterwards until the caller calls Connect again.
type SocketTransport struct {
	cfg  SocketConfig
	subs *registry

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	closing   bool
	gen       int // connection generation, guards stale loops
	queue     []queuedEvent
	pending   map[string]chan struct{} // event ID -> ack signal

	writeMu sync.Mutex
}

func NewSocketTransport(cfg SocketConfig) *SocketTransport {
	cfg.withDefaults()
	return &SocketTransport{
		cfg:     cfg,
		subs:    newRegistry(),
		pending: make(map[string]chan struct{}),
	}
}

func (t *SocketTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.connected {
		t.mu.Unlock()
		return nil
	}
	t.closing = false
	t.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, t.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", t.cfg.URL, err)
	}
	t.adopt(conn)
	return nil
}

// adopt installs a live connection, rejoins rooms for all existing
// subscriptions and flushes the offline queue.
func (t *SocketTransport) adopt(conn *websocket.Conn) {
	t.mu.Lock()
	t.conn = conn
	t.connected = true
	t.gen++
	gen := t.gen
	t.mu.Unlock()

	for _, id := range t.subs.tournaments() {
		t.writeEnvelope(Envelope{Event: EnvelopeJoin, Room: RoomFor(id)})
		t.redeliver(id)
	}

	go t.readLoop(conn, gen)
	go t.heartbeat(conn, gen)
	t.flushQueue()
}

// redeliver replays outbox rows a previous shutdown left behind for one
// tournament and deletes whatever made it back onto the wire.
func (t *SocketTransport) redeliver(tournamentID string) {
	if t.cfg.Outbox == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pending, err := t.cfg.Outbox.ListPending(ctx, tournamentID)
	if err != nil {
		t.cfg.Logger.Error("failed to load outbox", slog.Any("error", err))
		return
	}

	delivered := make([]string, 0, len(pending))
	for _, ev := range pending {
		env, err := eventEnvelope(ev)
		if err != nil {
			continue
		}
		if err := t.writeEnvelope(env); err != nil {
			break
		}
		metrics.RecordEventPublished(string(ev.Type))
		delivered = append(delivered, ev.ID)
	}
	if len(delivered) == 0 {
		return
	}

	if err := t.cfg.Outbox.Delete(ctx, delivered); err != nil {
		t.cfg.Logger.Error("failed to clear redelivered outbox rows", slog.Any("error", err))
		return
	}
	t.cfg.Logger.Info("redelivered outbox events",
		slog.Int("count", len(delivered)), slog.String("tournament_id", tournamentID))
}

func (t *SocketTransport) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	t.closing = true
	t.connected = false
	conn := t.conn
	t.conn = nil
	queued := make([]models.TournamentEvent, 0, len(t.queue))
	for _, q := range t.queue {
		queued = append(queued, q.ev)
	}
	t.queue = nil
	t.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	if t.cfg.Outbox != nil && len(queued) > 0 {
		if err := t.cfg.Outbox.Persist(ctx, queued); err != nil {
			t.cfg.Logger.Error("failed to persist offline queue", slog.Any("error", err))
		}
	}
	metrics.UpdateOfflineQueueDepth(0)

	t.subs.clear()
	metrics.UpdateActiveSubscriptions(0)
	return nil
}

func (t *SocketTransport) Subscribe(tournamentID string, h Handler, types ...models.EventType) (string, error) {
	id := t.subs.add(tournamentID, h, types)
	metrics.UpdateActiveSubscriptions(t.subs.len())

	t.mu.Lock()
	connected := t.connected
	t.mu.Unlock()
	if connected {
		t.writeEnvelope(Envelope{Event: EnvelopeJoin, Room: RoomFor(tournamentID)})
		t.redeliver(tournamentID)
	}
	return id, nil
}

func (t *SocketTransport) Unsubscribe(subscriptionID string) {
	tournamentID, last := t.subs.remove(subscriptionID)
	metrics.UpdateActiveSubscriptions(t.subs.len())

	t.mu.Lock()
	connected := t.connected
	t.mu.Unlock()
	if last && connected {
		t.writeEnvelope(Envelope{Event: EnvelopeLeave, Room: RoomFor(tournamentID)})
	}
}

// Publish sends the event and waits for the server ack. While disconnected
// the event is queued with a bounded retry budget and ErrOfflineQueued is
// returned instead of a hard failure.
func (t *SocketTransport) Publish(ctx context.Context, ev models.TournamentEvent) error {
	t.mu.Lock()
	if !t.connected {
		defer t.mu.Unlock()
		return t.enqueueLocked(ev)
	}
	ack := make(chan struct{})
	t.pending[ev.ID] = ack
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.pending, ev.ID)
		t.mu.Unlock()
	}()

	env, err := eventEnvelope(ev)
	if err != nil {
		return err
	}
	if err := t.writeEnvelope(env); err != nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.enqueueLocked(ev)
	}
	metrics.RecordEventPublished(string(ev.Type))

	timer := time.NewTimer(t.cfg.AckTimeout)
	defer timer.Stop()
	select {
	case <-ack:
		return nil
	case <-timer.C:
		metrics.RecordAckTimeout()
		return fmt.Errorf("%w: event %s", ErrAckTimeout, ev.ID)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *SocketTransport) enqueueLocked(ev models.TournamentEvent) error {
	if len(t.queue) >= t.cfg.QueueSize {
		metrics.RecordDroppedEvent()
		return fmt.Errorf("%w: event %s", ErrQueueFull, ev.ID)
	}
	t.queue = append(t.queue, queuedEvent{ev: ev})
	metrics.UpdateOfflineQueueDepth(len(t.queue))
	return fmt.Errorf("%w: event %s", ErrOfflineQueued, ev.ID)
}

// flushQueue retries queued events in order, dropping any that exhaust
// their per-message budget.
func (t *SocketTransport) flushQueue() {
	t.mu.Lock()
	queue := t.queue
	t.queue = nil
	t.mu.Unlock()

	var requeue []queuedEvent
	for _, q := range queue {
		env, err := eventEnvelope(q.ev)
		if err != nil {
			metrics.RecordDroppedEvent()
			continue
		}
		if err := t.writeEnvelope(env); err != nil {
			q.attempts++
			if q.attempts >= t.cfg.MessageRetries {
				metrics.RecordDroppedEvent()
				t.cfg.Logger.Warn("dropping event after retry budget",
					slog.String("event_id", q.ev.ID), slog.Int("attempts", q.attempts))
				continue
			}
			requeue = append(requeue, q)
			continue
		}
		metrics.RecordEventPublished(string(q.ev.Type))
	}

	t.mu.Lock()
	t.queue = append(requeue, t.queue...)
	metrics.UpdateOfflineQueueDepth(len(t.queue))
	t.mu.Unlock()
}

func (t *SocketTransport) writeEnvelope(env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}

	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return errors.New("not connected")
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, raw)
}

func (t *SocketTransport) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.onReadError(gen)
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.cfg.Logger.Warn("dropping malformed envelope", slog.Any("error", err))
			continue
		}

		switch env.Event {
		case EnvelopeAck:
			var ack ackPayload
			if err := json.Unmarshal(env.Payload, &ack); err != nil {
				continue
			}
			t.mu.Lock()
			if ch, ok := t.pending[ack.ID]; ok {
				close(ch)
				delete(t.pending, ack.ID)
			}
			t.mu.Unlock()
		case EnvelopeEvent:
			var ev models.TournamentEvent
			if err := json.Unmarshal(env.Payload, &ev); err != nil {
				t.cfg.Logger.Warn("dropping malformed event", slog.Any("error", err))
				continue
			}
			metrics.RecordEventDelivered()
			t.subs.dispatch(ev)
		}
	}
}

func (t *SocketTransport) heartbeat(conn *websocket.Conn, gen int) {
	ticker := time.NewTicker(t.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for range ticker.C {
		t.mu.Lock()
		stale := t.gen != gen || !t.connected
		t.mu.Unlock()
		if stale {
			return
		}
		if err := t.writeEnvelope(Envelope{Event: EnvelopePing, Room: SystemRoom}); err != nil {
			return
		}
	}
}

func (t *SocketTransport) onReadError(gen int) {
	t.mu.Lock()
	if t.gen != gen || t.closing {
		t.mu.Unlock()
		return
	}
	t.connected = false
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.mu.Unlock()

	go t.reconnect()
}

// reconnect retries with exponential backoff until the budget runs out,
// then reports connection:failed to every local listener and stops. A
// manual Connect is required afterwards.
func (t *SocketTransport) reconnect() {
	for attempt := 0; attempt < t.cfg.MaxRetries; attempt++ {
		time.Sleep(backoffDelay(attempt, t.cfg.BaseDelay, t.cfg.MaxDelay))

		t.mu.Lock()
		if t.closing {
			t.mu.Unlock()
			return
		}
		t.mu.Unlock()

		metrics.RecordReconnectAttempt()
		conn, _, err := websocket.DefaultDialer.Dial(t.cfg.URL, nil)
		if err == nil {
			t.cfg.Logger.Info("reconnected", slog.Int("attempt", attempt+1))
			t.adopt(conn)
			return
		}
		t.cfg.Logger.Warn("reconnect attempt failed",
			slog.Int("attempt", attempt+1), slog.Any("error", err))
	}

	metrics.RecordConnectionFailure()
	t.cfg.Logger.Error("reconnect budget exhausted, manual reconnect required")
	ev := models.NewTournamentEvent(models.EventConnectionFailed, "", models.SourceSystem)
	t.subs.dispatchAll(ev)
}
