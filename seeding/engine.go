package seeding

import (
	"errors"
	"math/rand"
	"sort"
	"time"

	"github.com/courtsync/courtsync/models"
)

var ErrNoTeams = errors.New("cannot seed an empty team list")
var ErrUnknownMethod = errors.New("unknown seeding method")

// Engine orders teams for bracket placement. Every method except random is
// deterministic and stable under re-invocation. Missing ranking metadata is
// treated as the metric's zero value, so seeding always succeeds for a
// non-empty team list.
type Engine struct {
	rnd *rand.Rand
}

func NewEngine() *Engine {
	return &Engine{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewEngineWithRand injects the randomness source; used by tests and by
// callers that persist a shuffle for repeatability.
func NewEngineWithRand(rnd *rand.Rand) *Engine {
	return &Engine{rnd: rnd}
}

// Seed returns a new ordered slice; the input is never mutated.
func (e *Engine) Seed(teams []*models.Team, method models.SeedingMethod) ([]*models.Team, error) {
	if len(teams) == 0 {
		return nil, ErrNoTeams
	}

	out := make([]*models.Team, len(teams))
	copy(out, teams)

	switch method {
	case models.SeedManual:
		sortManual(out)
	case models.SeedPowerRating:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].PowerRating > out[j].PowerRating
		})
	case models.SeedWinPercentage:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].WinPercentage() > out[j].WinPercentage()
		})
	case models.SeedRegion:
		out = interleaveBy(out, func(t *models.Team) string { return t.Region })
	case models.SeedDivision:
		out = interleaveBy(out, func(t *models.Team) string { return t.Division })
	case models.SeedRandom:
		e.rnd.Shuffle(len(out), func(i, j int) {
			out[i], out[j] = out[j], out[i]
		})
	default:
		return nil, ErrUnknownMethod
	}

	return out, nil
}

// sortManual puts declared seeds first in ascending order; unseeded teams
// sort last and keep their relative input order.
func sortManual(teams []*models.Team) {
	sort.SliceStable(teams, func(i, j int) bool {
		si, sj := teams[i].Seed, teams[j].Seed
		switch {
		case si != nil && sj != nil:
			return *si < *sj
		case si != nil:
			return true
		default:
			return false
		}
	})
}

// interleaveBy groups teams by key, sorts each group by power rating
// descending, then takes one team per group per pass so that early-round
// opponents are unlikely to share a region or division. Group order follows
// first appearance in the input, which keeps the result deterministic.
func interleaveBy(teams []*models.Team, key func(*models.Team) string) []*models.Team {
	groups := make(map[string][]*models.Team)
	order := make([]string, 0)
	for _, t := range teams {
		k := key(t)
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], t)
	}

	for _, k := range order {
		g := groups[k]
		sort.SliceStable(g, func(i, j int) bool {
			return g[i].PowerRating > g[j].PowerRating
		})
	}

	out := make([]*models.Team, 0, len(teams))
	for pass := 0; len(out) < len(teams); pass++ {
		for _, k := range order {
			if g := groups[k]; pass < len(g) {
				out = append(out, g[pass])
			}
		}
	}
	return out
}
