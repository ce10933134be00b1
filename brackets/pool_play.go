package brackets

import (
	"fmt"

	"github.com/courtsync/courtsync/models"
)

const defaultPoolSize = 4

// PoolPlay splits the seeded field into pools via snake-draft distribution
// (1st pass left to right, 2nd pass right to left, and so on) so pool
// strength stays balanced, schedules an independent round robin inside each
// pool, then appends a single-elimination playoff sized for one winner per
// pool. Playoff slots stay empty until pool play completes and the winners
// are seeded in.
type PoolPlay struct{}

func NewPoolPlay() *PoolPlay { return &PoolPlay{} }

func (g *PoolPlay) Name() string { return "PoolPlay" }

func (g *PoolPlay) Generate(t *models.Tournament) (*models.BracketStructure, error) {
	teams, err := seededTeams(t, 4)
	if err != nil {
		return nil, err
	}

	poolSize := t.Settings.PoolSize
	if poolSize < 2 {
		poolSize = defaultPoolSize
	}
	numPools := (len(teams) + poolSize - 1) / poolSize
	if numPools < 2 {
		numPools = 2
	}
	pools := snakeDraft(teams, numPools)

	// Pool round-robin schedules, merged round-by-round across pools.
	type poolSchedule struct {
		pool  int
		pairs [][][2]int
	}
	schedules := make([]poolSchedule, len(pools))
	maxRounds := 0
	totalPoolMatches := 0
	for p, pool := range pools {
		schedules[p] = poolSchedule{pool: p, pairs: circlePairings(len(pool))}
		if len(schedules[p].pairs) > maxRounds {
			maxRounds = len(schedules[p].pairs)
		}
		totalPoolMatches += len(pool) * (len(pool) - 1) / 2
	}

	rounds := make([]*models.BracketRound, 0, maxRounds)
	for r := 0; r < maxRounds; r++ {
		round := &models.BracketRound{
			Number: r + 1,
			Name:   fmt.Sprintf("Pool Round %d", r+1),
		}
		pos := 0
		for _, s := range schedules {
			if r >= len(s.pairs) {
				continue
			}
			for pi, pair := range s.pairs[r] {
				pos++
				t1, t2 := pools[s.pool][pair[0]].ID, pools[s.pool][pair[1]].ID
				round.Matches = append(round.Matches, &models.Match{
					ID:           fmt.Sprintf("P%dR%dM%d", s.pool+1, r+1, pi+1),
					TournamentID: t.ID,
					Round:        r + 1,
					Position:     pos,
					Team1ID:      &t1,
					Team2ID:      &t2,
					Status:       models.MatchStatusPending,
				})
			}
		}
		rounds = append(rounds, round)
	}

	// Playoff bracket over the pool winners, entrants TBD.
	paddedPools := nextPowerOfTwo(numPools)
	playoff, err := buildElimination(t.ID, placeholderSlots(paddedPools), elimOptions{
		prefix:     "PO",
		startRound: maxRounds + 1,
		nameFunc:   elimRoundName,
	})
	if err != nil {
		return nil, err
	}
	rounds = append(rounds, playoff...)

	return &models.BracketStructure{
		Rounds:       rounds,
		TotalRounds:  maxRounds + len(playoff),
		TotalMatches: totalPoolMatches + paddedPools - 1,
	}, nil
}

// snakeDraft deals seeded teams into numPools pools, reversing direction
// each pass.
func snakeDraft(teams []*models.Team, numPools int) [][]*models.Team {
	pools := make([][]*models.Team, numPools)
	idx, step := 0, 1
	for _, t := range teams {
		pools[idx] = append(pools[idx], t)
		next := idx + step
		if next == numPools || next < 0 {
			step = -step
		} else {
			idx = next
		}
	}
	return pools
}

// PoolWinnerSlots returns the first playoff round of a pool-play bracket so
// callers can seed pool winners once standings are final.
func PoolWinnerSlots(bs *models.BracketStructure) []*models.Match {
	for _, r := range bs.Rounds {
		if len(r.Matches) > 0 && len(r.Matches[0].ID) > 2 && r.Matches[0].ID[:2] == "PO" && len(r.Matches[0].ParentMatchIDs) == 0 {
			return r.Matches
		}
	}
	return nil
}
