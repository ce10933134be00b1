package brackets

import (
	"fmt"

	"github.com/courtsync/courtsync/models"
)

// RoundRobin schedules every unordered pair of teams exactly once using the
// circle method: one position stays fixed while the rest rotate. An odd
// field is padded with a dummy entrant whose pairings are dropped, which is
// why odd fields have one fewer match in some rounds.
type RoundRobin struct{}

func NewRoundRobin() *RoundRobin { return &RoundRobin{} }

func (g *RoundRobin) Name() string { return "RoundRobin" }

func (g *RoundRobin) Generate(t *models.Tournament) (*models.BracketStructure, error) {
	teams, err := seededTeams(t, 2)
	if err != nil {
		return nil, err
	}
	n := len(teams)

	pairings := circlePairings(n)
	rounds := make([]*models.BracketRound, 0, len(pairings))
	for r, pairs := range pairings {
		round := &models.BracketRound{
			Number: r + 1,
			Name:   fmt.Sprintf("Round %d", r+1),
		}
		for pos, p := range pairs {
			t1, t2 := teams[p[0]].ID, teams[p[1]].ID
			round.Matches = append(round.Matches, &models.Match{
				ID:           fmt.Sprintf("R%dM%d", r+1, pos+1),
				TournamentID: t.ID,
				Round:        r + 1,
				Position:     pos + 1,
				Team1ID:      &t1,
				Team2ID:      &t2,
				Status:       models.MatchStatusPending,
			})
		}
		rounds = append(rounds, round)
	}

	return &models.BracketStructure{
		Rounds:       rounds,
		TotalRounds:  len(pairings),
		TotalMatches: n * (n - 1) / 2,
	}, nil
}

// circlePairings returns, per round, the index pairs for an n-entrant round
// robin. Indices >= n belong to the padding dummy and are dropped.
func circlePairings(n int) [][][2]int {
	m := n
	if m%2 != 0 {
		m++
	}

	ring := make([]int, m)
	for i := range ring {
		ring[i] = i
	}

	rounds := make([][][2]int, 0, m-1)
	for r := 0; r < m-1; r++ {
		var pairs [][2]int
		for i := 0; i < m/2; i++ {
			a, b := ring[i], ring[m-1-i]
			if a >= n || b >= n {
				continue
			}
			pairs = append(pairs, [2]int{a, b})
		}
		rounds = append(rounds, pairs)

		// rotate everything but the first position one step clockwise
		last := ring[m-1]
		copy(ring[2:], ring[1:m-1])
		ring[1] = last
	}
	return rounds
}
