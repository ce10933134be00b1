package realtime

import (
	"context"
	"log/slog"

	"github.com/courtsync/courtsync/metrics"
	"github.com/courtsync/courtsync/models"
)

// HubTransport is the server-process Transport: publishes go straight to
// the hub's tournament rooms, and events published by remote clients come
// back through the hub relay tagged source=system.
type HubTransport struct {
	hub    *Hub
	subs   *registry
	logger *slog.Logger
}

func NewHubTransport(hub *Hub, logger *slog.Logger) *HubTransport {
	t := &HubTransport{
		hub:    hub,
		subs:   newRegistry(),
		logger: logger,
	}
	hub.SetRelay(t.handleRemote)
	return t
}

// Connect is a no-op: the hub lives in this process.
func (t *HubTransport) Connect(ctx context.Context) error { return nil }

// Disconnect tears down all local subscriptions.
func (t *HubTransport) Disconnect(ctx context.Context) error {
	t.subs.clear()
	metrics.UpdateActiveSubscriptions(0)
	t.logger.Info("hub transport disconnected, local subscriptions cleared")
	return nil
}

func (t *HubTransport) Subscribe(tournamentID string, h Handler, types ...models.EventType) (string, error) {
	id := t.subs.add(tournamentID, h, types)
	metrics.UpdateActiveSubscriptions(t.subs.len())
	return id, nil
}

func (t *HubTransport) Unsubscribe(subscriptionID string) {
	t.subs.remove(subscriptionID)
	metrics.UpdateActiveSubscriptions(t.subs.len())
}

func (t *HubTransport) Publish(ctx context.Context, ev models.TournamentEvent) error {
	t.hub.BroadcastEvent(ev)
	metrics.RecordEventPublished(string(ev.Type))
	return nil
}

// handleRemote delivers a client-originated event to local subscribers.
func (t *HubTransport) handleRemote(ev models.TournamentEvent) {
	metrics.RecordEventDelivered()
	t.subs.dispatch(ev)
}
