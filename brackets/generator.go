package brackets

import (
	"errors"
	"fmt"

	"github.com/courtsync/courtsync/models"
	"github.com/courtsync/courtsync/seeding"
)

var (
	ErrUnsupportedType      = errors.New("unsupported tournament type")
	ErrNotEnoughTeams       = errors.New("not enough teams to generate a bracket")
	ErrTournamentNotInSetup = errors.New("bracket can only be generated while the tournament is in setup")
)

// Generator produces a BracketStructure for one tournament format.
type Generator interface {
	Generate(t *models.Tournament) (*models.BracketStructure, error)

	Name() string
}

// ForType returns the generator for the tournament format.
func ForType(tt models.TournamentType) (Generator, error) {
	switch tt {
	case models.TypeSingleElimination:
		return NewSingleElimination(), nil
	case models.TypeDoubleElimination:
		return NewDoubleElimination(), nil
	case models.TypeRoundRobin:
		return NewRoundRobin(), nil
	case models.TypePoolPlay:
		return NewPoolPlay(), nil
	case models.TypeThreeGameGuarantee:
		return NewThreeGameGuarantee(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, tt)
	}
}

// Generate seeds the tournament's teams, dispatches to the format generator
// and validates the produced structure against its declared counts.
// Generation is only legal while the tournament is in setup.
func Generate(t *models.Tournament) (*models.BracketStructure, error) {
	if t.Status != models.TournamentStatusSetup {
		return nil, ErrTournamentNotInSetup
	}

	g, err := ForType(t.Type)
	if err != nil {
		return nil, err
	}

	bs, err := g.Generate(t)
	if err != nil {
		return nil, fmt.Errorf("%s generation failed: %w", g.Name(), err)
	}
	if err := bs.Validate(); err != nil {
		return nil, fmt.Errorf("%s produced an inconsistent bracket: %w", g.Name(), err)
	}
	return bs, nil
}

// seededTeams runs the seeding engine over the tournament's team list using
// the configured method, defaulting to power rating.
func seededTeams(t *models.Tournament, minTeams int) ([]*models.Team, error) {
	if len(t.Teams) < minTeams {
		return nil, fmt.Errorf("%w: have %d, need at least %d", ErrNotEnoughTeams, len(t.Teams), minTeams)
	}
	method := t.Settings.SeedingMethod
	if method == "" {
		method = models.SeedPowerRating
	}
	// Protection overrides the configured method: interleaving by region or
	// division keeps same-group teams out of each other's early rounds.
	switch {
	case t.Settings.RegionProtection:
		method = models.SeedRegion
	case t.Settings.DivisionProtection:
		method = models.SeedDivision
	}
	return seeding.NewEngine().Seed(t.Teams, method)
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func log2(p int) int {
	r := 0
	for p > 1 {
		p >>= 1
		r++
	}
	return r
}

// elimRoundName names a round by its distance to the final.
func elimRoundName(round, totalRounds int) string {
	switch totalRounds - round {
	case 0:
		return "Finals"
	case 1:
		return "Semifinals"
	case 2:
		return "Quarterfinals"
	default:
		return fmt.Sprintf("Round %d", round)
	}
}
