package brackets

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/courtsync/courtsync/models"
)

// ThreeGameGuarantee splits the seeded field by seed parity into an upper
// and a lower single-elimination bracket, then attaches enough consolation
// play that every non-bye entrant is scheduled for at least three games:
//
//   - first-round losers of both brackets feed a consolation bracket; when
//     there are two or fewer of them the second-round losers feed it too,
//     deepening it instead of a crossover round,
//   - first-round losers of the consolation bracket meet once more in a
//     placement round,
//   - second-round losers of the upper and lower brackets meet in a
//     crossover round (unless consumed by the consolation feed above),
//   - the two bracket champions meet in a championship match,
//   - when a half is a single round, the championship and consolation
//     finals are only a second game for some entrants, so their winners
//     and losers pair off in a closing classification round.
type ThreeGameGuarantee struct {
	rnd *rand.Rand
}

func NewThreeGameGuarantee() *ThreeGameGuarantee {
	return &ThreeGameGuarantee{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func NewThreeGameGuaranteeWithRand(rnd *rand.Rand) *ThreeGameGuarantee {
	return &ThreeGameGuarantee{rnd: rnd}
}

func (g *ThreeGameGuarantee) Name() string { return "ThreeGameGuarantee" }

func (g *ThreeGameGuarantee) Generate(t *models.Tournament) (*models.BracketStructure, error) {
	teams, err := seededTeams(t, 4)
	if err != nil {
		return nil, err
	}

	var upper, lower []*models.Team
	for i, team := range teams {
		if i%2 == 0 {
			upper = append(upper, team)
		} else {
			lower = append(lower, team)
		}
	}

	upperRounds, err := g.half(t.ID, upper, "U", "Upper")
	if err != nil {
		return nil, err
	}
	lowerRounds, err := g.half(t.ID, lower, "D", "Lower")
	if err != nil {
		return nil, err
	}

	// Main rounds run in parallel: round r holds both halves' round r.
	mainRounds := len(upperRounds)
	if len(lowerRounds) > mainRounds {
		mainRounds = len(lowerRounds)
	}
	rounds := make([]*models.BracketRound, 0, mainRounds+4)
	total := 0
	for r := 0; r < mainRounds; r++ {
		round := &models.BracketRound{Number: r + 1, Name: fmt.Sprintf("Round %d", r+1)}
		for _, half := range [][]*models.BracketRound{upperRounds, lowerRounds} {
			if r < len(half) {
				round.Matches = append(round.Matches, half[r].Matches...)
			}
		}
		renumberRound(round, r+1)
		rounds = append(rounds, round)
		total += len(round.Matches)
	}
	next := mainRounds + 1

	// Championship between the two bracket champions.
	champ := &models.Match{
		ID:           "CHM1",
		TournamentID: t.ID,
		Round:        next,
		Position:     1,
		Status:       models.MatchStatusPending,
	}
	linkWinnerFeed(finalMatch(upperRounds), champ)
	linkWinnerFeed(finalMatch(lowerRounds), champ)
	rounds = append(rounds, &models.BracketRound{
		Number: next, Name: "Championship", Matches: []*models.Match{champ},
	})
	total++
	next++

	// Consolation bracket for first-round losers. Two first-round losers
	// alone cannot fill a bracket deep enough for a third game, so small
	// fields route the second-round losers here instead of a crossover.
	feeders := realMatches(upperRounds[0].Matches)
	feeders = append(feeders, realMatches(lowerRounds[0].Matches)...)
	var secondLosers []*models.Match
	if len(upperRounds) > 1 {
		secondLosers = append(secondLosers, realMatches(upperRounds[1].Matches)...)
	}
	if len(lowerRounds) > 1 {
		secondLosers = append(secondLosers, realMatches(lowerRounds[1].Matches)...)
	}
	crossover := len(feeders) > 2
	if !crossover {
		feeders = append(feeders, secondLosers...)
	}
	consRounds, err := loserFedElimination(t.ID, feeders, "C", next)
	if err != nil {
		return nil, err
	}
	consRounds = truncateConsolation(consRounds, t.Settings.ConsolationDepth)
	for _, r := range consRounds {
		r.Name = fmt.Sprintf("Consolation Round %d", r.Number-next+1)
		rounds = append(rounds, r)
		total += len(r.Matches)
	}
	next += len(consRounds)

	// Placement round for consolation first-round losers.
	if len(consRounds) > 0 {
		placement := pairLosers(t.ID, consRounds[0].Matches, "PL", next, "Placement")
		if placement != nil {
			rounds = append(rounds, placement)
			total += len(placement.Matches)
			next++
		}
	}

	// Crossover for second-round losers of both halves.
	if crossover && len(secondLosers) >= 2 {
		round := pairLosers(t.ID, secondLosers, "X", next, "Crossover")
		if round != nil {
			rounds = append(rounds, round)
			total += len(round.Matches)
			next++
		}
	}

	// With a single-round half the championship and the consolation final
	// are only a second game for some of their entrants; pairing their
	// winners and losers closes the guarantee on fields of four and five.
	if len(upperRounds) == 1 || len(lowerRounds) == 1 {
		consFinal := finalMatch(consRounds)
		class := &models.BracketRound{Number: next, Name: "Classification"}
		upperGame := &models.Match{
			ID:           "CLM1",
			TournamentID: t.ID,
			Round:        next,
			Position:     1,
			Status:       models.MatchStatusPending,
		}
		linkWinnerFeed(champ, upperGame)
		linkWinnerFeed(consFinal, upperGame)
		lowerGame := &models.Match{
			ID:           "CLM2",
			TournamentID: t.ID,
			Round:        next,
			Position:     2,
			Status:       models.MatchStatusPending,
		}
		linkLoserFeed(champ, lowerGame)
		linkLoserFeed(consFinal, lowerGame)
		class.Matches = []*models.Match{upperGame, lowerGame}
		rounds = append(rounds, class)
		total += 2
	}

	return &models.BracketStructure{
		Rounds:       rounds,
		TotalRounds:  len(rounds),
		TotalMatches: total,
	}, nil
}

func (g *ThreeGameGuarantee) half(tournamentID string, teams []*models.Team, prefix, label string) ([]*models.BracketRound, error) {
	padded := nextPowerOfTwo(len(teams))
	slots := seedSlots(teams, padded, false, g.rnd)
	return buildEliminationFor(tournamentID, slots, prefix, label)
}

func buildEliminationFor(tournamentID string, slots []slot, prefix, label string) ([]*models.BracketRound, error) {
	return buildElimination(tournamentID, slots, elimOptions{
		prefix:     prefix,
		startRound: 1,
		nameFunc: func(r, total int) string {
			if r == total {
				return label + " Finals"
			}
			return fmt.Sprintf("%s Round %d", label, r)
		},
	})
}

// loserFedElimination builds a placeholder elimination bracket whose
// first-round slots are fed by the losers of the given matches. A feeder
// without a partner produces a walkover once it completes.
func loserFedElimination(tournamentID string, feeders []*models.Match, prefix string, startRound int) ([]*models.BracketRound, error) {
	if len(feeders) < 2 {
		return nil, nil
	}
	padded := nextPowerOfTwo(len(feeders))
	rounds, err := buildElimination(tournamentID, placeholderSlots(padded), elimOptions{
		prefix:     prefix,
		startRound: startRound,
		nameFunc:   func(r, total int) string { return fmt.Sprintf("Round %d", r) },
	})
	if err != nil {
		return nil, err
	}
	first := rounds[0].Matches
	for i, f := range feeders {
		linkLoserFeed(f, first[i/2])
	}
	// drop pairings that no feeder reaches
	kept := first[:0]
	for _, m := range first {
		if len(m.ParentMatchIDs) > 0 {
			kept = append(kept, m)
		} else {
			for _, r := range rounds[1:] {
				for _, child := range r.Matches {
					unlinkParent(child, m.ID)
				}
			}
		}
	}
	rounds[0].Matches = kept
	return rounds, nil
}

// pairLosers creates one round pairing the losers of the given matches.
func pairLosers(tournamentID string, feeders []*models.Match, prefix string, roundNum int, name string) *models.BracketRound {
	if len(feeders) < 2 {
		return nil
	}
	round := &models.BracketRound{Number: roundNum, Name: name}
	for i := 0; i+1 < len(feeders); i += 2 {
		m := &models.Match{
			ID:           fmt.Sprintf("%sM%d", prefix, i/2+1),
			TournamentID: tournamentID,
			Round:        roundNum,
			Position:     i/2 + 1,
			Status:       models.MatchStatusPending,
		}
		linkLoserFeed(feeders[i], m)
		linkLoserFeed(feeders[i+1], m)
		round.Matches = append(round.Matches, m)
	}
	return round
}

// truncateConsolation caps the consolation bracket at depth rounds. Depths
// below two are ignored: the first two rounds are what hand a first-round
// loser its second and third game.
func truncateConsolation(consRounds []*models.BracketRound, depth int) []*models.BracketRound {
	if depth < 2 || depth >= len(consRounds) {
		return consRounds
	}
	dropped := make(map[string]bool)
	for _, r := range consRounds[depth:] {
		for _, m := range r.Matches {
			dropped[m.ID] = true
		}
	}
	for _, r := range consRounds[:depth] {
		for _, m := range r.Matches {
			kept := m.ChildMatchIDs[:0]
			for _, id := range m.ChildMatchIDs {
				if !dropped[id] {
					kept = append(kept, id)
				}
			}
			m.ChildMatchIDs = kept
		}
	}
	return consRounds[:depth]
}

func realMatches(ms []*models.Match) []*models.Match {
	out := make([]*models.Match, 0, len(ms))
	for _, m := range ms {
		if !m.IsBye() {
			out = append(out, m)
		}
	}
	return out
}

func finalMatch(rounds []*models.BracketRound) *models.Match {
	last := rounds[len(rounds)-1]
	return last.Matches[len(last.Matches)-1]
}

func renumberRound(r *models.BracketRound, num int) {
	for pos, m := range r.Matches {
		m.Round = num
		m.Position = pos + 1
	}
}
