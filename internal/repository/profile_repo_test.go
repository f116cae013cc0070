package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/campusvote/server/internal/cache"
	"github.com/campusvote/server/internal/config"
	"github.com/campusvote/server/internal/db"
	"github.com/campusvote/server/internal/repository"
)

func setupTestCache(t *testing.T) *cache.RedisCache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	return cache.NewRedisCache(cfg)
}

func seedVotingPool(t *testing.T, gdb *gorm.DB) {
	t.Helper()
	seedProfiles(t, gdb,
		db.Profile{ID: "m1", Name: "M1", Email: "pm1@test.com", PasswordHash: "x", Gender: db.GenderMale, Age: 21},
		db.Profile{ID: "f1", Name: "F1", Email: "pf1@test.com", PasswordHash: "x", Gender: db.GenderFemale, Age: 20},
		db.Profile{ID: "f2", Name: "F2", Email: "pf2@test.com", PasswordHash: "x", Gender: db.GenderFemale, Age: 22},
		db.Profile{ID: "f3", Name: "F3", Email: "pf3@test.com", PasswordHash: "x", Gender: db.GenderFemale, Age: 23},
	)

	votes := []db.Vote{
		{VoterID: "m1", VotedForID: "f1"},
		{VoterID: "m2", VotedForID: "f1"},
		{VoterID: "m1", VotedForID: "f2"},
	}
	for i := range votes {
		require.NoError(t, gdb.Create(&votes[i]).Error)
	}
}

func TestListByGender_RecountsVotes(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	seedVotingPool(t, dbase)

	repo := repository.NewProfileRepository(dbase, nil, time.Minute)

	pool, err := repo.ListByGender(ctx, db.GenderFemale)
	require.NoError(t, err)
	require.Len(t, pool, 3)

	counts := map[string]int64{}
	for _, p := range pool {
		assert.Equal(t, db.GenderFemale, p.Gender)
		counts[p.ID] = p.VoteCount
	}
	assert.Equal(t, int64(2), counts["f1"])
	assert.Equal(t, int64(1), counts["f2"])
	assert.Equal(t, int64(0), counts["f3"])
}

// Within the dedup window a second load serves the cached pool; Refresh
// bypasses the window and picks up new votes.
func TestListByGender_DedupWindow(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	seedVotingPool(t, dbase)

	repo := repository.NewProfileRepository(dbase, nil, time.Minute)

	first, err := repo.ListByGender(ctx, db.GenderFemale)
	require.NoError(t, err)

	// new vote lands after the cached load
	require.NoError(t, dbase.Create(&db.Vote{VoterID: "m3", VotedForID: "f3"}).Error)

	cached, err := repo.ListByGender(ctx, db.GenderFemale)
	require.NoError(t, err)
	assert.Equal(t, poolCounts(first), poolCounts(cached))

	fresh, err := repo.Refresh(ctx, db.GenderFemale)
	require.NoError(t, err)
	assert.Equal(t, int64(1), poolCounts(fresh)["f3"])
}

// Between recounts, a cached pool serve picks up counter bumps from
// votes that landed after the load; a full refresh restores the
// authoritative recount.
func TestListByGender_CachedCountsRunAhead(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	seedVotingPool(t, dbase)

	rc := setupTestCache(t)
	repo := repository.NewProfileRepository(dbase, rc, time.Minute)

	pool, err := repo.ListByGender(ctx, db.GenderFemale)
	require.NoError(t, err)
	require.Equal(t, int64(2), poolCounts(pool)["f1"])

	// another vote for f1 bumps the counter without a recount
	_, err = rc.IncrVoteCount(ctx, "f1")
	require.NoError(t, err)

	cached, err := repo.ListByGender(ctx, db.GenderFemale)
	require.NoError(t, err)
	assert.Equal(t, int64(3), poolCounts(cached)["f1"])
	assert.Equal(t, int64(1), poolCounts(cached)["f2"])

	// the recount wins again on refresh; the counter is reconciled down
	fresh, err := repo.Refresh(ctx, db.GenderFemale)
	require.NoError(t, err)
	assert.Equal(t, int64(2), poolCounts(fresh)["f1"])

	n, err := rc.GetVoteCount(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func poolCounts(pool []db.Profile) map[string]int64 {
	m := make(map[string]int64, len(pool))
	for _, p := range pool {
		m[p.ID] = p.VoteCount
	}
	return m
}

func TestUpdate_GenderImmutable(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	seedVotingPool(t, dbase)

	repo := repository.NewProfileRepository(dbase, nil, time.Minute)

	err := repo.Update(ctx, &db.Profile{
		ID:     "f1",
		Name:   "Renamed",
		Age:    24,
		City:   "Pune",
		Gender: db.GenderMale, // must be ignored
	})
	require.NoError(t, err)

	updated, err := repo.GetByID(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, 24, updated.Age)
	assert.Equal(t, "Pune", updated.City)
	assert.Equal(t, db.GenderFemale, updated.Gender)
	assert.Equal(t, "pf1@test.com", updated.Email)
}

func TestLeaderboard_OrderAndPagination(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	seedVotingPool(t, dbase)

	repo := repository.NewProfileRepository(dbase, nil, time.Minute)

	// first page of 2: f1 (2 votes), f2 (1 vote)
	page, next, err := repo.Leaderboard(ctx, db.GenderFemale, nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "f1", page[0].ID)
	assert.Equal(t, int64(2), page[0].VoteCount)
	assert.Equal(t, "f2", page[1].ID)
	require.NotNil(t, next)

	// second page: f3 (0 votes), no further pages
	page, next, err = repo.Leaderboard(ctx, db.GenderFemale, next, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "f3", page[0].ID)
	assert.Nil(t, next)
}

func TestLeaderboard_InvalidToken(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewProfileRepository(dbase, nil, time.Minute)

	bad := "not-a-cursor"
	_, _, err := repo.Leaderboard(ctx, db.GenderFemale, &bad, 10)
	assert.Error(t, err)
}
