package models

import "time"

type MatchStatus string

const (
	MatchStatusPending    MatchStatus = "pending"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
	MatchStatusBye        MatchStatus = "bye"
)

type Score struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

// Match is one node of a bracket. Team slots may be empty until either
// initial seeding placement or advancement from a parent match fills them;
// a slot is never filled by both. A completed match is immutable.
type Match struct {
	ID           string      `json:"id" db:"id"`
	TournamentID string      `json:"tournament_id" db:"tournament_id"`
	Round        int         `json:"round" db:"round"`
	Position     int         `json:"position" db:"position"`
	Team1ID      *string     `json:"team1_id,omitempty" db:"team1_id"`
	Team2ID      *string     `json:"team2_id,omitempty" db:"team2_id"`
	WinnerID     *string     `json:"winner_id,omitempty" db:"winner_id"`
	LoserID      *string     `json:"loser_id,omitempty" db:"loser_id"`
	Score        *Score      `json:"score,omitempty" db:"-"`
	Status       MatchStatus `json:"status" db:"status"`
	ScheduledAt  *time.Time  `json:"scheduled_at,omitempty" db:"scheduled_at"`
	Court        *string     `json:"court,omitempty" db:"court"`

	// ParentMatchIDs lists every match whose winner or loser feeds into this
	// one. ChildMatchIDs lists the matches this match's winner feeds into.
	// LoserChildID, when set, is where this match's loser drops to
	// (losers brackets and consolation rounds).
	ParentMatchIDs []string `json:"parent_match_ids,omitempty" db:"-"`
	ChildMatchIDs  []string `json:"child_match_ids,omitempty" db:"-"`
	LoserChildID   *string  `json:"loser_child_id,omitempty" db:"loser_child_id"`
}

// IsBye reports whether the match is an auto-resolved bye.
func (m *Match) IsBye() bool {
	return m.Status == MatchStatusBye
}

// TeamCount returns how many team slots are currently filled.
func (m *Match) TeamCount() int {
	n := 0
	if m.Team1ID != nil {
		n++
	}
	if m.Team2ID != nil {
		n++
	}
	return n
}

// FillSlot places teamID into the first empty slot. It reports false when
// both slots are already taken.
func (m *Match) FillSlot(teamID string) bool {
	if m.Team1ID == nil {
		m.Team1ID = &teamID
		return true
	}
	if m.Team2ID == nil {
		m.Team2ID = &teamID
		return true
	}
	return false
}

// HasTeam reports whether teamID occupies one of the slots.
func (m *Match) HasTeam(teamID string) bool {
	return (m.Team1ID != nil && *m.Team1ID == teamID) ||
		(m.Team2ID != nil && *m.Team2ID == teamID)
}
