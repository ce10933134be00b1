package brackets

import (
	"math/rand"
	"time"

	"github.com/courtsync/courtsync/models"
)

// SingleElimination pads the field to the next power of two, resolves byes
// in the first round and pairs winners until the final. For n teams the
// structure always has 2^ceil(log2(n)) - 1 matches across log2(padded)
// rounds, byes included.
type SingleElimination struct {
	rnd *rand.Rand
}

func NewSingleElimination() *SingleElimination {
	return &SingleElimination{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSingleEliminationWithRand injects the randomness used for bye
// placement when randomize_byes is set.
func NewSingleEliminationWithRand(rnd *rand.Rand) *SingleElimination {
	return &SingleElimination{rnd: rnd}
}

func (g *SingleElimination) Name() string { return "SingleElimination" }

func (g *SingleElimination) Generate(t *models.Tournament) (*models.BracketStructure, error) {
	teams, err := seededTeams(t, 2)
	if err != nil {
		return nil, err
	}

	padded := nextPowerOfTwo(len(teams))
	slots := seedSlots(teams, padded, t.Settings.RandomizeByes, g.rnd)

	rounds, err := buildElimination(t.ID, slots, elimOptions{
		startRound: 1,
		nameFunc:   elimRoundName,
	})
	if err != nil {
		return nil, err
	}

	return &models.BracketStructure{
		Rounds:       rounds,
		TotalRounds:  log2(padded),
		TotalMatches: padded - 1,
	}, nil
}
