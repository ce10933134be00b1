package brackets

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/courtsync/courtsync/models"
)

// DoubleElimination builds a winners bracket via the single-elimination
// algorithm plus a losers bracket of 2*(winnersRounds-1) rounds, converging
// on one grand-finals match between the two bracket champions.
//
// Drop rule: winners round 1 losers enter losers round 1; winners round r
// (r >= 2) losers enter losers round 2(r-1), facing the survivors of the
// previous losers round. Odd losers rounds pair losers-bracket survivors,
// even rounds inject the next wave of winners-bracket losers. A bye in the
// winners first round produces no loser, so its losers-round-1 pairing is
// pruned and the surviving feeder is redirected one round ahead.
type DoubleElimination struct {
	rnd *rand.Rand
}

func NewDoubleElimination() *DoubleElimination {
	return &DoubleElimination{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func NewDoubleEliminationWithRand(rnd *rand.Rand) *DoubleElimination {
	return &DoubleElimination{rnd: rnd}
}

func (g *DoubleElimination) Name() string { return "DoubleElimination" }

func (g *DoubleElimination) Generate(t *models.Tournament) (*models.BracketStructure, error) {
	teams, err := seededTeams(t, 3)
	if err != nil {
		return nil, err
	}

	padded := nextPowerOfTwo(len(teams))
	slots := seedSlots(teams, padded, t.Settings.RandomizeByes, g.rnd)

	wbRounds, err := buildElimination(t.ID, slots, elimOptions{
		prefix:     "W",
		startRound: 1,
		nameFunc: func(r, total int) string {
			if r == total {
				return "Winners Finals"
			}
			return fmt.Sprintf("Winners Round %d", r)
		},
	})
	if err != nil {
		return nil, err
	}
	winnersRounds := len(wbRounds)

	// Losers bracket skeleton: rounds 2j-1 and 2j both have padded/2^(j+1)
	// matches, j = 1..winnersRounds-1.
	aMatches := make([][]*models.Match, winnersRounds)
	bMatches := make([][]*models.Match, winnersRounds)
	for j := 1; j < winnersRounds; j++ {
		size := padded >> uint(j+1)
		aMatches[j] = newLoserMatches(t.ID, 2*j-1, size)
		bMatches[j] = newLoserMatches(t.ID, 2*j, size)
	}

	// Winner-side survival links within the losers bracket.
	for j := 1; j < winnersRounds; j++ {
		for i, a := range aMatches[j] {
			linkWinnerFeed(a, bMatches[j][i])
		}
		if j+1 < winnersRounds {
			for i, b := range bMatches[j] {
				linkWinnerFeed(b, aMatches[j+1][i/2])
			}
		}
	}

	// Winners-bracket losers drop in.
	for i, m := range wbRounds[0].Matches {
		if m.IsBye() {
			continue
		}
		linkLoserFeed(m, aMatches[1][i/2])
	}
	for r := 2; r <= winnersRounds; r++ {
		j := r - 1
		for i, m := range wbRounds[r-1].Matches {
			linkLoserFeed(m, bMatches[j][i])
		}
	}

	// Prune losers round 1 pairings starved by winners-round-1 byes.
	kept := aMatches[1][:0]
	for i, a := range aMatches[1] {
		b := bMatches[1][i]
		switch len(a.ParentMatchIDs) {
		case 2:
			kept = append(kept, a)
		case 1:
			// lone feeder skips straight to the injection round
			feeder := findByLoserChild(wbRounds[0].Matches, a.ID)
			unlinkParent(b, a.ID)
			linkLoserFeed(feeder, b)
		default:
			// both would-be feeders were byes; the injection match resolves
			// as a walkover at advancement time
			unlinkParent(b, a.ID)
		}
	}
	aMatches[1] = kept

	rounds := wbRounds
	seq := 0
	lbCount := 0
	for j := 1; j < winnersRounds; j++ {
		for _, ms := range [][]*models.Match{aMatches[j], bMatches[j]} {
			if len(ms) == 0 {
				continue
			}
			seq++
			name := fmt.Sprintf("Losers Round %d", seq)
			if j == winnersRounds-1 && ms[0] == bMatches[j][0] {
				name = "Losers Finals"
			}
			round := &models.BracketRound{
				Number: winnersRounds + seq,
				Name:   name,
			}
			for pos, m := range ms {
				m.Round = winnersRounds + seq
				m.Position = pos + 1
				round.Matches = append(round.Matches, m)
			}
			rounds = append(rounds, round)
			lbCount += len(ms)
		}
	}

	// Grand finals: winners champion vs losers champion.
	gfRound := winnersRounds + seq + 1
	gf := &models.Match{
		ID:           "GFM1",
		TournamentID: t.ID,
		Round:        gfRound,
		Position:     1,
		Status:       models.MatchStatusPending,
	}
	linkWinnerFeed(wbRounds[winnersRounds-1].Matches[0], gf)
	linkWinnerFeed(bMatches[winnersRounds-1][0], gf)
	rounds = append(rounds, &models.BracketRound{
		Number:  gfRound,
		Name:    "Grand Finals",
		Matches: []*models.Match{gf},
	})

	return &models.BracketStructure{
		Rounds:       rounds,
		TotalRounds:  len(rounds),
		TotalMatches: (padded - 1) + lbCount + 1,
	}, nil
}

func newLoserMatches(tournamentID string, lbRound, size int) []*models.Match {
	ms := make([]*models.Match, size)
	for i := range ms {
		ms[i] = &models.Match{
			ID:           fmt.Sprintf("LR%dM%d", lbRound, i+1),
			TournamentID: tournamentID,
			Position:     i + 1,
			Status:       models.MatchStatusPending,
		}
	}
	return ms
}

func linkWinnerFeed(parent, child *models.Match) {
	parent.ChildMatchIDs = append(parent.ChildMatchIDs, child.ID)
	child.ParentMatchIDs = append(child.ParentMatchIDs, parent.ID)
}

func linkLoserFeed(parent, child *models.Match) {
	parent.LoserChildID = &child.ID
	child.ParentMatchIDs = append(child.ParentMatchIDs, parent.ID)
}

func unlinkParent(m *models.Match, parentID string) {
	out := m.ParentMatchIDs[:0]
	for _, id := range m.ParentMatchIDs {
		if id != parentID {
			out = append(out, id)
		}
	}
	m.ParentMatchIDs = out
}

func findByLoserChild(matches []*models.Match, childID string) *models.Match {
	for _, m := range matches {
		if m.LoserChildID != nil && *m.LoserChildID == childID {
			return m
		}
	}
	return nil
}
