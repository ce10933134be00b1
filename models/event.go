package models

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventMatchStart          EventType = "match_start"
	EventMatchEnd            EventType = "match_end"
	EventScoreUpdate         EventType = "score_update"
	EventTeamAdvance         EventType = "team_advance"
	EventBracketUpdate       EventType = "bracket_update"
	EventTournamentComplete  EventType = "tournament_complete"
	EventMatchScheduleChange EventType = "match_schedule_change"

	// EventConnectionFailed is a transport-level terminal event delivered to
	// every local listener, bypassing event-type filters, after the
	// reconnection budget is exhausted.
	EventConnectionFailed EventType = "connection:failed"
)

// EventSource tags where a mutation originated. The state manager uses it to
// break event-echo loops: only non-system events are re-published.
type EventSource string

const (
	SourceScorekeeper EventSource = "scorekeeper"
	SourceAdmin       EventSource = "admin"
	SourceSystem      EventSource = "system"
)

// TournamentEvent is the unit of real-time propagation. Ordering is
// guaranteed per tournament only.
type TournamentEvent struct {
	ID           string         `json:"id"`
	Type         EventType      `json:"type"`
	TournamentID string         `json:"tournament_id"`
	MatchID      *string        `json:"match_id,omitempty"`
	TeamID       *string        `json:"team_id,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
	Source       EventSource    `json:"source"`
	Timestamp    time.Time      `json:"timestamp"`
}

// NewTournamentEvent stamps a fresh event with a uuid and the current time.
func NewTournamentEvent(t EventType, tournamentID string, source EventSource) TournamentEvent {
	return TournamentEvent{
		ID:           uuid.NewString(),
		Type:         t,
		TournamentID: tournamentID,
		Source:       source,
		Timestamp:    time.Now().UTC(),
	}
}
