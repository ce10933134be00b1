package brackets

import (
	"errors"
	"fmt"

	"github.com/courtsync/courtsync/models"
)

var (
	ErrMatchNotFound         = errors.New("match not found")
	ErrMatchAlreadyCompleted = errors.New("match already completed; conflicting re-advancement rejected")
	ErrTeamNotInMatch        = errors.New("team does not occupy a slot of this match")
)

// Resolver writes match results into the bracket graph: the winner fills
// the first empty slot of each child match, the loser drops to the losers
// or consolation destination when one exists. Completed matches are
// immutable; advancing one again is a checked error.
type Resolver struct {
	index map[string]*models.Match
}

func NewResolver(matches []*models.Match) *Resolver {
	idx := make(map[string]*models.Match, len(matches))
	for _, m := range matches {
		idx[m.ID] = m
	}
	return &Resolver{index: idx}
}

// Match looks up a match by ID.
func (r *Resolver) Match(id string) (*models.Match, error) {
	m, ok := r.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	return m, nil
}

// Advance records winner and loser on the match and propagates both through
// the bracket. loserID may be empty (walkovers). It returns every match it
// touched, the completed match first.
func (r *Resolver) Advance(matchID, winnerID, loserID string) ([]*models.Match, error) {
	m, err := r.Match(matchID)
	if err != nil {
		return nil, err
	}
	if m.Status == models.MatchStatusCompleted || m.Status == models.MatchStatusBye {
		return nil, fmt.Errorf("%w: %s", ErrMatchAlreadyCompleted, matchID)
	}
	if m.TeamCount() == 2 && !m.HasTeam(winnerID) {
		return nil, fmt.Errorf("%w: %s in %s", ErrTeamNotInMatch, winnerID, matchID)
	}

	m.WinnerID = &winnerID
	if loserID != "" {
		m.LoserID = &loserID
	}
	m.Status = models.MatchStatusCompleted

	touched := []*models.Match{m}
	for _, childID := range m.ChildMatchIDs {
		touched = r.feed(childID, winnerID, touched)
	}
	if m.LoserChildID != nil && loserID != "" {
		touched = r.feed(*m.LoserChildID, loserID, touched)
	}
	return touched, nil
}

// ResolvePending sweeps the whole bracket for walkovers; callers use it
// after seeding late-bound slots (e.g. pool winners into a playoff).
func (r *Resolver) ResolvePending() []*models.Match {
	var touched []*models.Match
	for _, m := range r.index {
		touched = r.walkover(m, touched)
	}
	return touched
}

// feed places teamID into the target match and resolves a walkover if the
// match can no longer receive a second team.
func (r *Resolver) feed(matchID, teamID string, touched []*models.Match) []*models.Match {
	m, ok := r.index[matchID]
	if !ok {
		return touched
	}
	m.FillSlot(teamID)
	touched = append(touched, m)
	return r.walkover(m, touched)
}

// walkover auto-completes a pending half-filled match whose every parent
// has finished: no second team can ever arrive, so the present team passes
// through as a bye.
func (r *Resolver) walkover(m *models.Match, touched []*models.Match) []*models.Match {
	if m.Status != models.MatchStatusPending || m.TeamCount() != 1 {
		return touched
	}
	for _, pid := range m.ParentMatchIDs {
		p, ok := r.index[pid]
		if !ok {
			continue
		}
		if p.Status != models.MatchStatusCompleted && p.Status != models.MatchStatusBye {
			return touched
		}
	}

	var winner string
	if m.Team1ID != nil {
		winner = *m.Team1ID
	} else {
		winner = *m.Team2ID
	}
	m.Team1ID = &winner
	m.Team2ID = nil
	m.WinnerID = &winner
	m.Status = models.MatchStatusBye
	touched = append(touched, m)

	for _, childID := range m.ChildMatchIDs {
		touched = r.feed(childID, winner, touched)
	}
	return touched
}
