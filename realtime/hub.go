package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/courtsync/courtsync/metrics"
	"github.com/courtsync/courtsync/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
)

// Client is one websocket connection managed by the Hub. A client may join
// several tournament rooms over its lifetime.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	rooms  map[string]bool
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, 256),
		rooms: make(map[string]bool),
	}
}

type inbound struct {
	client *Client
	env    Envelope
}

// Hub owns the room membership maps and serializes all fan-out through a
// single loop, which is what preserves per-tournament event ordering.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	inbound chan inbound
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool
	mu      sync.RWMutex

	// relay hands client-published events to the in-process transport
	// after re-tagging them as system-sourced.
	relay  func(ev models.TournamentEvent)
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		inbound:    make(chan inbound, 256),
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		logger:     logger,
	}
}

// SetRelay installs the local delivery hook for remote-originated events.
func (h *Hub) SetRelay(fn func(ev models.TournamentEvent)) {
	h.relay = fn
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.Register:
			// room membership happens via join_tournament envelopes
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.dropClient(client)

		case msg := <-h.inbound:
			h.handleInbound(msg)
		}
	}
}

// Join attaches a client to a room outside the envelope flow; the HTTP
// handler uses it to pre-join the room named in the upgrade URL.
func (h *Hub) Join(c *Client, room string) {
	h.join(c, room)
}

func (h *Hub) join(c *Client, room string) {
	h.mu.Lock()
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][c] = true
	n := len(h.rooms[room])
	h.mu.Unlock()

	c.mu.Lock()
	c.rooms[room] = true
	c.mu.Unlock()

	h.logger.Info("client joined room", slog.String("room", room), slog.Int("clients", n))
}

func (h *Hub) leave(c *Client, room string) {
	h.mu.Lock()
	if clients, ok := h.rooms[room]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()

	c.mu.Lock()
	delete(c.rooms, room)
	c.mu.Unlock()
}

func (h *Hub) dropClient(c *Client) {
	c.mu.Lock()
	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	if !c.closed {
		close(c.send)
		c.closed = true
	}
	c.mu.Unlock()

	h.mu.Lock()
	delete(h.clients, c)
	for _, room := range rooms {
		if clients, ok := h.rooms[room]; ok {
			delete(clients, c)
			if len(clients) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	h.mu.Unlock()
}

// handleInbound processes one envelope from a client: room commands, or a
// published event that gets acked, re-tagged as system and fanned back out.
func (h *Hub) handleInbound(msg inbound) {
	switch msg.env.Event {
	case EnvelopeJoin:
		h.join(msg.client, msg.env.Room)
	case EnvelopeLeave:
		h.leave(msg.client, msg.env.Room)
	case EnvelopePing:
		// keep-alive only; latency sampling is the metrics observer's job
	case EnvelopeEvent:
		var ev models.TournamentEvent
		if err := json.Unmarshal(msg.env.Payload, &ev); err != nil {
			h.logger.Warn("dropping malformed event envelope", slog.Any("error", err))
			return
		}
		msg.client.sendAck(ev.ID)

		ev.Source = models.SourceSystem
		if h.relay != nil {
			h.relay(ev)
		}
		h.broadcastEvent(ev)
	default:
		h.logger.Warn("unknown envelope type", slog.String("event", msg.env.Event))
	}
}

// BroadcastEvent publishes an event to every client in its tournament room.
func (h *Hub) BroadcastEvent(ev models.TournamentEvent) {
	h.broadcastEvent(ev)
}

func (h *Hub) broadcastEvent(ev models.TournamentEvent) {
	start := time.Now()
	env, err := eventEnvelope(ev)
	if err != nil {
		h.logger.Error("failed to marshal event", slog.Any("error", err))
		return
	}
	raw, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("failed to marshal envelope", slog.Any("error", err))
		return
	}

	h.mu.RLock()
	clients := h.rooms[env.Room]
	for client := range clients {
		client.mu.Lock()
		if !client.closed {
			select {
			case client.send <- raw:
			default:
				// slow client; skip rather than stall the room
			}
		}
		client.mu.Unlock()
	}
	h.mu.RUnlock()

	metrics.ObserveBroadcastLatency(time.Since(start))
}

func (c *Client) sendAck(eventID string) {
	payload, _ := json.Marshal(ackPayload{ID: eventID})
	raw, err := json.Marshal(Envelope{Event: EnvelopeAck, Payload: payload, Room: SystemRoom})
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- raw:
	default:
	}
}

// ReadPump relays client envelopes into the hub until the connection dies.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("client read error", slog.Any("error", err))
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.hub.logger.Warn("dropping malformed envelope", slog.Any("error", err))
			continue
		}
		c.hub.inbound <- inbound{client: c, env: env}
	}
}

// WritePump drains the send channel to the socket and pings on an interval.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case raw, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
