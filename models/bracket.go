package models

import "fmt"

// BracketRound is the ordered set of matches for one round. Name is derived
// from the round's distance to the final ("Finals", "Semifinals", ...).
type BracketRound struct {
	Number    int      `json:"number"`
	Name      string   `json:"name"`
	Matches   []*Match `json:"matches"`
	Completed bool     `json:"completed"`
}

// BracketStructure is the full generated bracket. TotalRounds and
// TotalMatches are computed up front by the generator and checked against
// the produced rounds after generation.
type BracketStructure struct {
	Rounds       []*BracketRound `json:"rounds"`
	TotalRounds  int             `json:"total_rounds"`
	TotalMatches int             `json:"total_matches"`
}

// AllMatches flattens the rounds in order.
func (b *BracketStructure) AllMatches() []*Match {
	out := make([]*Match, 0, b.TotalMatches)
	for _, r := range b.Rounds {
		out = append(out, r.Matches...)
	}
	return out
}

// FindMatch returns the match with the given ID, or nil.
func (b *BracketStructure) FindMatch(id string) *Match {
	for _, r := range b.Rounds {
		for _, m := range r.Matches {
			if m.ID == id {
				return m
			}
		}
	}
	return nil
}

// Validate checks the declared counts against what generation produced.
func (b *BracketStructure) Validate() error {
	if len(b.Rounds) != b.TotalRounds {
		return fmt.Errorf("bracket declares %d rounds but contains %d", b.TotalRounds, len(b.Rounds))
	}
	matches := 0
	for _, r := range b.Rounds {
		matches += len(r.Matches)
	}
	if matches != b.TotalMatches {
		return fmt.Errorf("bracket declares %d matches but contains %d", b.TotalMatches, matches)
	}
	return nil
}
