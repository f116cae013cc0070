// Package pairing selects which two candidate profiles to show next.
//
// The algorithm composes two strategies behind one entry point: randomized
// sampling with a bounded attempt budget for the common case, and a
// fixed-order exhaustive scan near saturation so exhaustion is never
// reported while an unseen pair still exists.
package pairing

import (
	"math/rand"

	"github.com/campusvote/server/internal/db"
	"github.com/campusvote/server/internal/metrics"
)

// Key returns the canonical key for an unordered pair of profile ids:
// the two ids sorted and joined with "_", so (A,B) and (B,A) collapse to
// one entry.
func Key(idA, idB string) string {
	if idB < idA {
		idA, idB = idB, idA
	}
	return idA + "_" + idB
}

// Generator produces unseen pairs from a candidate pool.
type Generator struct {
	attempts int
}

// NewGenerator creates a Generator with the given sampling attempt budget.
// Budgets below 1 fall back to a sane default.
func NewGenerator(attempts int) *Generator {
	if attempts < 1 {
		attempts = 100
	}
	return &Generator{attempts: attempts}
}

// Next returns an unseen pair from pool, or ok=false for definitive
// exhaustion (or a pool too small to pair).
//
// Behavior:
//  1. Pools of fewer than 2 profiles cannot form a pair.
//  2. If seenPairs already covers n·(n-1)/2 combinations there is nothing
//     left; the bound is recomputed from the live pool on every call, so a
//     pool that grew since the last call re-opens generation.
//  3. Randomized sampling: two distinct random indices per attempt, up to
//     the attempt budget. When fewer than two pool members are unseen as
//     individual profiles, sampling is skipped: at that coverage it mostly
//     collides, and the scan below is cheap.
//  4. Exhaustive scan over all i<j combinations in fixed order. Only an
//     empty scan means exhaustion.
//
// Selection among unseen pairs is uniform-random subject to the search
// strategy; re-running with the same seen set may yield a different pair.
func (g *Generator) Next(pool []db.Profile, seenPairs map[string]struct{}, seenProfiles map[string]struct{}) (pair [2]db.Profile, ok bool) {
	n := len(pool)
	if n < 2 {
		return pair, false
	}

	totalPossible := n * (n - 1) / 2
	if len(seenPairs) >= totalPossible {
		return pair, false
	}

	unseenMembers := 0
	for _, p := range pool {
		if _, seen := seenProfiles[p.ID]; !seen {
			unseenMembers++
		}
	}

	if unseenMembers >= 2 {
		for attempt := 0; attempt < g.attempts; attempt++ {
			i := rand.Intn(n)
			j := rand.Intn(n)
			for i == j {
				j = rand.Intn(n)
			}
			if _, seen := seenPairs[Key(pool[i].ID, pool[j].ID)]; !seen {
				return [2]db.Profile{pool[i], pool[j]}, true
			}
		}
	}

	metrics.IncPairScanFallback()
	return g.scan(pool, seenPairs)
}

// scan iterates all i<j combinations in fixed order and returns the first
// unseen pair. O(n²) worst case, which only triggers near full coverage.
func (g *Generator) scan(pool []db.Profile, seenPairs map[string]struct{}) (pair [2]db.Profile, ok bool) {
	for i := 0; i < len(pool); i++ {
		for j := i + 1; j < len(pool); j++ {
			if _, seen := seenPairs[Key(pool[i].ID, pool[j].ID)]; !seen {
				return [2]db.Profile{pool[i], pool[j]}, true
			}
		}
	}
	return pair, false
}
