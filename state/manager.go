// Package state holds the authoritative in-memory view of one tournament
// and keeps it consistent across disconnected clients. Local mutations are
// applied optimistically and published; remote events are reconciled with a
// last-writer-wins rule keyed on event timestamp.
package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/courtsync/courtsync/brackets"
	"github.com/courtsync/courtsync/models"
	"github.com/courtsync/courtsync/realtime"
)

var (
	ErrInvalidTransition = errors.New("invalid match state transition")
	ErrTournamentDone    = errors.New("tournament is completed; no further mutation allowed")
)

// Manager owns one tournament's live state. All mutating calls apply the
// change locally first, then publish a scorekeeper-tagged event and notify
// local subscribers, so consumers never wait on a network round trip.
type Manager struct {
	mu         sync.RWMutex
	tournament *models.Tournament
	resolver   *brackets.Resolver

	// lastApplied implements last-writer-wins per match: remote events
	// older than the latest applied mutation for that match are dropped.
	lastApplied map[string]time.Time

	transport realtime.Transport
	logger    *slog.Logger

	subMu       sync.RWMutex
	subscribers map[string]localSubscriber
	remoteSubID string
}

type localSubscriber struct {
	handler realtime.Handler
	allow   map[models.EventType]bool
}

func NewManager(t *models.Tournament, transport realtime.Transport, logger *slog.Logger) (*Manager, error) {
	if t.Bracket == nil {
		return nil, errors.New("tournament has no generated bracket")
	}
	m := &Manager{
		tournament:  t,
		resolver:    brackets.NewResolver(t.Bracket.AllMatches()),
		lastApplied: make(map[string]time.Time),
		transport:   transport,
		logger:      logger,
		subscribers: make(map[string]localSubscriber),
	}

	subID, err := transport.Subscribe(t.ID, m.HandleRemote)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to tournament %s: %w", t.ID, err)
	}
	m.remoteSubID = subID
	return m, nil
}

// Close detaches the manager from the transport and drops local subscribers.
func (m *Manager) Close() {
	m.transport.Unsubscribe(m.remoteSubID)
	m.subMu.Lock()
	m.subscribers = make(map[string]localSubscriber)
	m.subMu.Unlock()
}

// Tournament returns the managed tournament.
func (m *Manager) Tournament() *models.Tournament {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tournament
}

// Match looks up a match by ID.
func (m *Manager) Match(id string) (*models.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resolver.Match(id)
}

// Subscribe registers a local observer; UI consumers update from these
// notifications without waiting for the transport round trip.
func (m *Manager) Subscribe(h realtime.Handler, types ...models.EventType) string {
	sub := localSubscriber{handler: h}
	if len(types) > 0 {
		sub.allow = make(map[models.EventType]bool, len(types))
		for _, t := range types {
			sub.allow[t] = true
		}
	}
	id := uuid.NewString()
	m.subMu.Lock()
	m.subscribers[id] = sub
	m.subMu.Unlock()
	return id
}

func (m *Manager) Unsubscribe(id string) {
	m.subMu.Lock()
	delete(m.subscribers, id)
	m.subMu.Unlock()
}

// StartMatch transitions pending -> in_progress.
func (m *Manager) StartMatch(ctx context.Context, matchID string) error {
	ev, err := m.applyStart(matchID, time.Now().UTC())
	if err != nil {
		return err
	}
	return m.emit(ctx, ev)
}

// UpdateScore records a live score on an in-progress match.
func (m *Manager) UpdateScore(ctx context.Context, matchID string, team1, team2 int) error {
	ev, err := m.applyScore(matchID, team1, team2, time.Now().UTC())
	if err != nil {
		return err
	}
	return m.emit(ctx, ev)
}

// EndMatch completes a match and advances winner and loser through the
// bracket. One event is emitted for the completion and one team_advance
// per downstream slot that got filled; a tournament_complete event follows
// when no playable match remains.
func (m *Manager) EndMatch(ctx context.Context, matchID, winnerID, loserID string) error {
	events, err := m.applyEnd(matchID, winnerID, loserID, time.Now().UTC())
	if err != nil {
		return err
	}
	var firstErr error
	for _, ev := range events {
		if err := m.emit(ctx, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RescheduleMatch updates scheduled time and court.
func (m *Manager) RescheduleMatch(ctx context.Context, matchID string, at time.Time, court string) error {
	ev, err := m.applySchedule(matchID, at, court, time.Now().UTC())
	if err != nil {
		return err
	}
	return m.emit(ctx, ev)
}

// HandleRemote reconciles an event relayed back from the transport.
// Only system-sourced events are applied; anything else is an echo of a
// local mutation and re-applying it would loop.
func (m *Manager) HandleRemote(ev models.TournamentEvent) {
	if ev.Source != models.SourceSystem {
		return
	}
	if ev.Type == models.EventConnectionFailed {
		m.notifyLocal(ev)
		return
	}
	if ev.MatchID != nil && m.stale(*ev.MatchID, ev.Timestamp) {
		m.logger.Debug("dropping stale remote event",
			slog.String("event_id", ev.ID), slog.String("match_id", *ev.MatchID))
		return
	}

	if err := m.applyRemote(ev); err != nil {
		// re-applications of facts we already hold land here; that is the
		// expected idempotent case for echoes of our own mutations
		m.logger.Debug("remote event not applied", slog.String("event_id", ev.ID), slog.Any("error", err))
	}
	m.notifyLocal(ev)
}

func (m *Manager) stale(matchID string, ts time.Time) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	last, ok := m.lastApplied[matchID]
	return ok && ts.Before(last)
}

func (m *Manager) applyRemote(ev models.TournamentEvent) error {
	switch ev.Type {
	case models.EventMatchStart:
		_, err := m.applyStart(deref(ev.MatchID), ev.Timestamp)
		return err
	case models.EventScoreUpdate:
		t1, t2 := intFromPayload(ev.Payload, "team1"), intFromPayload(ev.Payload, "team2")
		_, err := m.applyScore(deref(ev.MatchID), t1, t2, ev.Timestamp)
		return err
	case models.EventMatchEnd:
		winner, loser := stringFromPayload(ev.Payload, "winner_id"), stringFromPayload(ev.Payload, "loser_id")
		_, err := m.applyEnd(deref(ev.MatchID), winner, loser, ev.Timestamp)
		return err
	case models.EventMatchScheduleChange:
		at, _ := time.Parse(time.RFC3339, stringFromPayload(ev.Payload, "scheduled_at"))
		_, err := m.applySchedule(deref(ev.MatchID), at, stringFromPayload(ev.Payload, "court"), ev.Timestamp)
		return err
	default:
		// team_advance / bracket_update / tournament_complete are derived
		// facts; the mutations that caused them were applied above
		return nil
	}
}

func (m *Manager) applyStart(matchID string, ts time.Time) (models.TournamentEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tournament.Status == models.TournamentStatusCompleted {
		return models.TournamentEvent{}, ErrTournamentDone
	}
	match, err := m.resolver.Match(matchID)
	if err != nil {
		return models.TournamentEvent{}, err
	}
	if match.Status != models.MatchStatusPending {
		return models.TournamentEvent{}, fmt.Errorf("%w: cannot start a %s match", ErrInvalidTransition, match.Status)
	}
	match.Status = models.MatchStatusInProgress
	m.lastApplied[matchID] = ts

	ev := models.NewTournamentEvent(models.EventMatchStart, m.tournament.ID, models.SourceScorekeeper)
	ev.MatchID = &match.ID
	return ev, nil
}

func (m *Manager) applyScore(matchID string, team1, team2 int, ts time.Time) (models.TournamentEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tournament.Status == models.TournamentStatusCompleted {
		return models.TournamentEvent{}, ErrTournamentDone
	}
	match, err := m.resolver.Match(matchID)
	if err != nil {
		return models.TournamentEvent{}, err
	}
	if match.Status != models.MatchStatusInProgress {
		return models.TournamentEvent{}, fmt.Errorf("%w: cannot score a %s match", ErrInvalidTransition, match.Status)
	}
	match.Score = &models.Score{Team1: team1, Team2: team2}
	m.lastApplied[matchID] = ts

	ev := models.NewTournamentEvent(models.EventScoreUpdate, m.tournament.ID, models.SourceScorekeeper)
	ev.MatchID = &match.ID
	ev.Payload = map[string]any{"team1": team1, "team2": team2}
	return ev, nil
}

func (m *Manager) applyEnd(matchID, winnerID, loserID string, ts time.Time) ([]models.TournamentEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tournament.Status == models.TournamentStatusCompleted {
		return nil, ErrTournamentDone
	}
	touched, err := m.resolver.Advance(matchID, winnerID, loserID)
	if err != nil {
		return nil, err
	}
	m.lastApplied[matchID] = ts

	events := make([]models.TournamentEvent, 0, len(touched)+1)
	ev := models.NewTournamentEvent(models.EventMatchEnd, m.tournament.ID, models.SourceScorekeeper)
	ev.MatchID = &touched[0].ID
	ev.TeamID = &winnerID
	ev.Payload = map[string]any{"winner_id": winnerID, "loser_id": loserID}
	events = append(events, ev)

	for _, fed := range touched[1:] {
		adv := models.NewTournamentEvent(models.EventTeamAdvance, m.tournament.ID, models.SourceScorekeeper)
		adv.MatchID = &fed.ID
		adv.TeamID = &winnerID
		events = append(events, adv)
	}

	if m.allSettledLocked() {
		m.tournament.Status = models.TournamentStatusCompleted
		done := models.NewTournamentEvent(models.EventTournamentComplete, m.tournament.ID, models.SourceScorekeeper)
		done.TeamID = &winnerID
		events = append(events, done)
	}
	return events, nil
}

func (m *Manager) applySchedule(matchID string, at time.Time, court string, ts time.Time) (models.TournamentEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tournament.Status == models.TournamentStatusCompleted {
		return models.TournamentEvent{}, ErrTournamentDone
	}
	match, err := m.resolver.Match(matchID)
	if err != nil {
		return models.TournamentEvent{}, err
	}
	if match.Status == models.MatchStatusCompleted || match.Status == models.MatchStatusBye {
		return models.TournamentEvent{}, fmt.Errorf("%w: cannot reschedule a %s match", ErrInvalidTransition, match.Status)
	}
	match.ScheduledAt = &at
	if court != "" {
		match.Court = &court
	}
	m.lastApplied[matchID] = ts

	ev := models.NewTournamentEvent(models.EventMatchScheduleChange, m.tournament.ID, models.SourceScorekeeper)
	ev.MatchID = &match.ID
	ev.Payload = map[string]any{"scheduled_at": at.Format(time.RFC3339), "court": court}
	return ev, nil
}

func (m *Manager) allSettledLocked() bool {
	for _, match := range m.tournament.Bracket.AllMatches() {
		if match.Status == models.MatchStatusPending || match.Status == models.MatchStatusInProgress {
			return false
		}
	}
	return true
}

// emit publishes to remote subscribers and notifies local ones. A queued
// publish is not an error from the caller's perspective.
func (m *Manager) emit(ctx context.Context, ev models.TournamentEvent) error {
	err := m.transport.Publish(ctx, ev)
	if errors.Is(err, realtime.ErrOfflineQueued) {
		m.logger.Info("event queued for redelivery", slog.String("event_id", ev.ID))
		err = nil
	}
	m.notifyLocal(ev)
	return err
}

func (m *Manager) notifyLocal(ev models.TournamentEvent) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()
	for _, sub := range m.subscribers {
		if ev.Type == models.EventConnectionFailed || sub.allow == nil || sub.allow[ev.Type] {
			sub.handler(ev)
		}
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intFromPayload(p map[string]any, key string) int {
	switch v := p[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func stringFromPayload(p map[string]any, key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}
