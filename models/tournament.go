package models

import "time"

// TournamentStatus mirrors the ENUM in the database.
type TournamentStatus string

const (
	TournamentStatusSetup      TournamentStatus = "setup"
	TournamentStatusInProgress TournamentStatus = "in_progress"
	TournamentStatusCompleted  TournamentStatus = "completed"
)

type TournamentType string

const (
	TypeSingleElimination  TournamentType = "single_elimination"
	TypeDoubleElimination  TournamentType = "double_elimination"
	TypeRoundRobin         TournamentType = "round_robin"
	TypePoolPlay           TournamentType = "pool_play"
	TypeThreeGameGuarantee TournamentType = "three_game_guarantee"
)

type SeedingMethod string

const (
	SeedManual        SeedingMethod = "manual"
	SeedPowerRating   SeedingMethod = "power_rating"
	SeedWinPercentage SeedingMethod = "win_percentage"
	SeedRegion        SeedingMethod = "region"
	SeedDivision      SeedingMethod = "division"
	SeedRandom        SeedingMethod = "random"
)

// TournamentSettings controls seeding and bracket generation.
type TournamentSettings struct {
	SeedingMethod      SeedingMethod `json:"seeding_method"`
	RandomizeByes      bool          `json:"randomize_byes"`
	RegionProtection   bool          `json:"region_protection"`
	DivisionProtection bool          `json:"division_protection"`
	PoolSize           int           `json:"pool_size,omitempty"`
	ConsolationDepth   int           `json:"consolation_depth,omitempty"`
}

// Tournament is created once from a finalized team list. Its bracket may be
// (re)generated only while status is setup; completed is terminal.
type Tournament struct {
	ID         string             `json:"id" db:"id"`
	Name       string             `json:"name" db:"name"`
	Type       TournamentType     `json:"type" db:"type"`
	Status     TournamentStatus   `json:"status" db:"status"`
	Settings   TournamentSettings `json:"settings" db:"-"`
	Teams      []*Team            `json:"teams,omitempty" db:"-"`
	Matches    []*Match           `json:"matches,omitempty" db:"-"`
	RoundCount int                `json:"round_count" db:"round_count"`
	Bracket    *BracketStructure  `json:"bracket,omitempty" db:"-"`
	CreatedAt  time.Time          `json:"created_at" db:"created_at"`
}

// CanTransitionTo enforces setup -> in_progress -> completed.
func (t *Tournament) CanTransitionTo(next TournamentStatus) bool {
	switch t.Status {
	case TournamentStatusSetup:
		return next == TournamentStatusInProgress
	case TournamentStatusInProgress:
		return next == TournamentStatusCompleted
	default:
		return false
	}
}
