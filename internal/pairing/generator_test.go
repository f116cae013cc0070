package pairing_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusvote/server/internal/db"
	"github.com/campusvote/server/internal/pairing"
)

func makePool(n int) []db.Profile {
	pool := make([]db.Profile, 0, n)
	for i := 0; i < n; i++ {
		pool = append(pool, db.Profile{ID: fmt.Sprintf("p%02d", i), Gender: db.GenderFemale})
	}
	return pool
}

func TestKey_Canonical(t *testing.T) {
	assert.Equal(t, pairing.Key("a", "b"), pairing.Key("b", "a"))
	assert.Equal(t, "a_b", pairing.Key("b", "a"))
}

func TestNext_PoolTooSmall(t *testing.T) {
	gen := pairing.NewGenerator(100)

	_, ok := gen.Next(nil, map[string]struct{}{}, map[string]struct{}{})
	assert.False(t, ok)

	_, ok = gen.Next(makePool(1), map[string]struct{}{}, map[string]struct{}{})
	assert.False(t, ok)
}

// Drains a pool to exhaustion and checks that every combination appears
// exactly once before ok=false.
func TestNext_CoversAllPairsWithoutRepeats(t *testing.T) {
	const n = 6
	gen := pairing.NewGenerator(100)
	pool := makePool(n)

	seenPairs := map[string]struct{}{}
	seenProfiles := map[string]struct{}{}
	served := map[string]int{}

	for {
		pair, ok := gen.Next(pool, seenPairs, seenProfiles)
		if !ok {
			break
		}
		key := pairing.Key(pair[0].ID, pair[1].ID)
		served[key]++
		require.NotEqual(t, pair[0].ID, pair[1].ID)

		seenPairs[key] = struct{}{}
		seenProfiles[pair[0].ID] = struct{}{}
		seenProfiles[pair[1].ID] = struct{}{}
	}

	assert.Len(t, served, n*(n-1)/2)
	for key, count := range served {
		assert.Equal(t, 1, count, "pair %s served more than once", key)
	}
}

// Every member individually seen but one combination left: the exhaustive
// scan must still find it rather than reporting exhaustion.
func TestNext_FindsLastPairNearSaturation(t *testing.T) {
	gen := pairing.NewGenerator(5)
	pool := makePool(4)

	seenPairs := map[string]struct{}{}
	seenProfiles := map[string]struct{}{}
	for i := 0; i < len(pool); i++ {
		seenProfiles[pool[i].ID] = struct{}{}
		for j := i + 1; j < len(pool); j++ {
			seenPairs[pairing.Key(pool[i].ID, pool[j].ID)] = struct{}{}
		}
	}
	lastKey := pairing.Key(pool[1].ID, pool[3].ID)
	delete(seenPairs, lastKey)

	pair, ok := gen.Next(pool, seenPairs, seenProfiles)
	require.True(t, ok)
	assert.Equal(t, lastKey, pairing.Key(pair[0].ID, pair[1].ID))
}

// A pool that grew since exhaustion re-opens generation because the
// combination bound is recomputed from the live pool on every call.
func TestNext_PoolGrowthReopensGeneration(t *testing.T) {
	gen := pairing.NewGenerator(100)
	pool := makePool(2)

	seenPairs := map[string]struct{}{
		pairing.Key(pool[0].ID, pool[1].ID): {},
	}
	seenProfiles := map[string]struct{}{
		pool[0].ID: {},
		pool[1].ID: {},
	}

	_, ok := gen.Next(pool, seenPairs, seenProfiles)
	require.False(t, ok)

	grown := append(pool, db.Profile{ID: "p99", Gender: db.GenderFemale})
	pair, ok := gen.Next(grown, seenPairs, seenProfiles)
	require.True(t, ok)
	assert.NotEqual(t, pairing.Key(pool[0].ID, pool[1].ID), pairing.Key(pair[0].ID, pair[1].ID))
}

// A pool that shrank below the seen-pair count reports exhaustion from
// the live bound instead of over-serving stale combinations.
func TestNext_PoolShrinkExhausts(t *testing.T) {
	gen := pairing.NewGenerator(100)
	pool := makePool(3)

	seenPairs := map[string]struct{}{}
	seenProfiles := map[string]struct{}{}
	for i := 0; i < len(pool); i++ {
		seenProfiles[pool[i].ID] = struct{}{}
		for j := i + 1; j < len(pool); j++ {
			seenPairs[pairing.Key(pool[i].ID, pool[j].ID)] = struct{}{}
		}
	}

	_, ok := gen.Next(pool[:2], seenPairs, seenProfiles)
	assert.False(t, ok)
}

func TestNext_NeverReturnsSeenPair(t *testing.T) {
	gen := pairing.NewGenerator(50)
	pool := makePool(5)

	seenPairs := map[string]struct{}{}
	seenProfiles := map[string]struct{}{}

	// repeated draws with a fixed seen set never violate the filter
	seenPairs[pairing.Key("p00", "p01")] = struct{}{}
	for i := 0; i < 200; i++ {
		pair, ok := gen.Next(pool, seenPairs, seenProfiles)
		require.True(t, ok)
		assert.NotEqual(t, "p00_p01", pairing.Key(pair[0].ID, pair[1].ID))
	}
}
