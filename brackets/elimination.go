package brackets

import (
	"fmt"
	"math/rand"

	"github.com/courtsync/courtsync/models"
)

// slot is one leaf position of an elimination bracket. team may be nil for a
// to-be-determined entrant (pool-play winners are seeded after generation);
// bye marks an empty filler position created by padding the field.
type slot struct {
	team *models.Team
	bye  bool
}

type elimOptions struct {
	// prefix distinguishes match IDs of co-existing brackets within one
	// tournament, e.g. "W" for a winners bracket ("WR1M1").
	prefix string
	// startRound offsets round numbering inside the overall structure.
	startRound int
	// nameFunc maps (round within this bracket, total rounds) to a display name.
	nameFunc func(round, totalRounds int) string
}

// buildElimination pairs the given slots round by round until a single
// winner position remains. Slot count must be a power of two. Byes are
// auto-resolved: a bye match carries exactly one team, status bye, and its
// team is pre-placed into the child match (that placement counts as seeding,
// not advancement).
func buildElimination(tournamentID string, slots []slot, opt elimOptions) ([]*models.BracketRound, error) {
	n := len(slots)
	if n < 2 || n&(n-1) != 0 {
		return nil, fmt.Errorf("elimination bracket needs a power-of-two slot count, got %d", n)
	}
	totalRounds := log2(n)

	rounds := make([]*models.BracketRound, 0, totalRounds)
	var prev []*models.Match

	for r := 1; r <= totalRounds; r++ {
		roundNum := opt.startRound + r - 1
		round := &models.BracketRound{
			Number: roundNum,
			Name:   opt.nameFunc(r, totalRounds),
		}

		if r == 1 {
			for i := 0; i < n; i += 2 {
				pos := i/2 + 1
				m := &models.Match{
					ID:           fmt.Sprintf("%sR%dM%d", opt.prefix, r, pos),
					TournamentID: tournamentID,
					Round:        roundNum,
					Position:     pos,
					Status:       models.MatchStatusPending,
				}
				fillLeaf(m, slots[i], slots[i+1])
				round.Matches = append(round.Matches, m)
			}
		} else {
			for i := 0; i < len(prev); i += 2 {
				pos := i/2 + 1
				m := &models.Match{
					ID:           fmt.Sprintf("%sR%dM%d", opt.prefix, r, pos),
					TournamentID: tournamentID,
					Round:        roundNum,
					Position:     pos,
					Status:       models.MatchStatusPending,
				}
				linkParent(prev[i], m)
				linkParent(prev[i+1], m)
				round.Matches = append(round.Matches, m)
			}
		}

		rounds = append(rounds, round)
		prev = round.Matches
	}

	return rounds, nil
}

// fillLeaf seats a first-round pairing. A team paired against a bye filler
// yields an auto-resolved bye match.
func fillLeaf(m *models.Match, a, b slot) {
	switch {
	case a.team != nil && b.bye:
		makeBye(m, a.team.ID)
	case b.team != nil && a.bye:
		makeBye(m, b.team.ID)
	default:
		if a.team != nil {
			id := a.team.ID
			m.Team1ID = &id
		}
		if b.team != nil {
			id := b.team.ID
			m.Team2ID = &id
		}
	}
}

func makeBye(m *models.Match, teamID string) {
	m.Team1ID = &teamID
	m.WinnerID = &teamID
	m.Status = models.MatchStatusBye
}

// linkParent wires parent/child references and pre-places the winner of an
// already-resolved bye parent into the child's slot.
func linkParent(parent, child *models.Match) {
	parent.ChildMatchIDs = append(parent.ChildMatchIDs, child.ID)
	child.ParentMatchIDs = append(child.ParentMatchIDs, parent.ID)
	if parent.IsBye() && parent.WinnerID != nil {
		child.FillSlot(*parent.WinnerID)
	}
}

// seedSlots lays seeded teams into a padded slot list. By default byes
// attach to the top seeds; with randomize set, the bye pairings are chosen
// uniformly among the first-round matches (never two byes in one pairing).
func seedSlots(teams []*models.Team, padded int, randomize bool, rnd *rand.Rand) []slot {
	byes := padded - len(teams)
	slots := make([]slot, 0, padded)

	byeMatch := make(map[int]bool, byes)
	if randomize && byes > 0 {
		for _, idx := range rnd.Perm(padded / 2)[:byes] {
			byeMatch[idx] = true
		}
	} else {
		for i := 0; i < byes; i++ {
			byeMatch[i] = true
		}
	}

	next := 0
	for i := 0; i < padded/2; i++ {
		if byeMatch[i] {
			slots = append(slots, slot{team: teams[next]}, slot{bye: true})
			next++
		} else {
			slots = append(slots, slot{team: teams[next]}, slot{team: teams[next+1]})
			next += 2
		}
	}
	return slots
}

// placeholderSlots returns n empty (to-be-determined) slots, used for
// brackets whose entrants are only known after earlier play completes.
func placeholderSlots(n int) []slot {
	return make([]slot, n)
}
