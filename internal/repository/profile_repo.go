package repository

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/campusvote/server/internal/cache"
	"github.com/campusvote/server/internal/db"
	svcErr "github.com/campusvote/server/internal/errors"
	"github.com/campusvote/server/internal/utils/pagination"
)

// ProfileRepository provides data access for the Profile model and the
// derived vote counts.
//
// Vote counts are always a full aggregate recount over the votes table,
// never an incremental counter, so concurrent voters cannot drift the
// value. Pool loads are cached per gender for a short dedup window and
// concurrent loads are collapsed through singleflight; Refresh bypasses
// and replaces the cache.
type ProfileRepository struct {
	db    *gorm.DB
	cache *cache.RedisCache
	ttl   time.Duration

	group singleflight.Group

	mu    sync.Mutex
	pools map[string]poolEntry
}

type poolEntry struct {
	profiles  []db.Profile
	fetchedAt time.Time
}

// NewProfileRepository creates a repository bound to the given DB. The
// Redis cache is optional; when present, recounts also reconcile the
// cached display counters.
func NewProfileRepository(database *gorm.DB, rc *cache.RedisCache, ttl time.Duration) *ProfileRepository {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &ProfileRepository{
		db:    database,
		cache: rc,
		ttl:   ttl,
		pools: make(map[string]poolEntry),
	}
}

// ListByGender returns the candidate pool for the given gender with vote
// counts attached.
//
// Behavior:
//   - Served from the per-gender cache within the dedup window, with the
//     Redis counters overlaid so votes that landed since the last recount
//     are already visible.
//   - Concurrent cache misses for the same gender share one DB load.
//   - DB failures map to ErrFetchFailed so callers can distinguish a retry
//     UI from an auth redirect.
//
// Example:
//
//	repo.ListByGender(ctx, db.GenderFemale) // pool a male voter sees
func (r *ProfileRepository) ListByGender(ctx context.Context, gender string) ([]db.Profile, error) {
	r.mu.Lock()
	entry, ok := r.pools[gender]
	r.mu.Unlock()
	if ok && time.Since(entry.fetchedAt) < r.ttl {
		return r.overlayCachedCounts(ctx, entry.profiles), nil
	}

	v, err, _ := r.group.Do(gender, func() (interface{}, error) {
		return r.loadPool(ctx, gender)
	})
	if err != nil {
		return nil, err
	}
	return v.([]db.Profile), nil
}

// Refresh forces a re-fetch and recount for the gender, bypassing the
// dedup window. Used after votes and on realtime change notifications.
func (r *ProfileRepository) Refresh(ctx context.Context, gender string) ([]db.Profile, error) {
	return r.loadPool(ctx, gender)
}

// loadPool fetches profiles and recomputes vote counts in one aggregate
// query, then replaces the cache entry for this gender.
func (r *ProfileRepository) loadPool(ctx context.Context, gender string) ([]db.Profile, error) {
	var profiles []db.Profile
	err := r.db.WithContext(ctx).
		Table("profiles").
		Select("profiles.*, COUNT(votes.id) AS vote_count").
		Joins("LEFT JOIN votes ON votes.voted_for_id = profiles.id").
		Where("profiles.gender = ?", gender).
		Group("profiles.id").
		Find(&profiles).Error
	if err != nil {
		return nil, svcErr.Wrap(svcErr.ErrFetchFailed, err)
	}

	// Reconcile display counters with the authoritative recount.
	if r.cache != nil {
		for _, p := range profiles {
			_ = r.cache.UpdateVoteCount(ctx, p.ID, p.VoteCount)
		}
	}

	r.mu.Lock()
	r.pools[gender] = poolEntry{profiles: profiles, fetchedAt: time.Now()}
	r.mu.Unlock()

	return profiles, nil
}

// overlayCachedCounts serves a cached pool with the Redis counters
// applied on top of the last recount. Votes are never deleted, so between
// recounts the counter can only run ahead of the stored value: higher
// wins, and a cache miss keeps the recount value.
func (r *ProfileRepository) overlayCachedCounts(ctx context.Context, profiles []db.Profile) []db.Profile {
	out := append([]db.Profile(nil), profiles...)
	if r.cache == nil {
		return out
	}
	for i := range out {
		n, err := r.cache.GetVoteCount(ctx, out[i].ID)
		if err == nil && n > out[i].VoteCount {
			out[i].VoteCount = n
		}
	}
	return out
}

// GetByID fetches a single profile.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*db.Profile, error) {
	var p db.Profile
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByEmail fetches a single profile by login email.
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*db.Profile, error) {
	var p db.Profile
	if err := r.db.WithContext(ctx).First(&p, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new profile (registration).
func (r *ProfileRepository) Create(ctx context.Context, p *db.Profile) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// Update persists display-field edits. Gender is immutable after creation
// and is deliberately excluded from the update set.
func (r *ProfileRepository) Update(ctx context.Context, p *db.Profile) error {
	return r.db.WithContext(ctx).Model(&db.Profile{ID: p.ID}).
		Select("name", "age", "college_name", "education", "year", "city", "state", "profile_image", "hobbies").
		Updates(p).Error
}

// Leaderboard returns profiles of one gender ordered by vote count
// descending (ties broken by id), with cursor-based pagination.
//
// Behavior:
//   - Counts come from the same aggregate recount as pool loads.
//   - The opaque token encodes (vote_count, profile_id) of the last row.
//
// Example:
//
//	repo.Leaderboard(ctx, db.GenderFemale, nil, 20) // first page
func (r *ProfileRepository) Leaderboard(
	ctx context.Context,
	gender string,
	paginationToken *string,
	limit int,
) ([]db.Profile, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, svcErr.InvalidArgument("invalid pagination token")
	}

	query := r.db.WithContext(ctx).
		Table("profiles").
		Select("profiles.*, COUNT(votes.id) AS vote_count").
		Joins("LEFT JOIN votes ON votes.voted_for_id = profiles.id").
		Where("profiles.gender = ?", gender).
		Group("profiles.id").
		Order("vote_count DESC, profiles.id ASC").
		Limit(limit + 1)

	// apply cursor
	if cursor.ProfileID != "" {
		query = query.Having(
			"COUNT(votes.id) < ? OR (COUNT(votes.id) = ? AND profiles.id > ?)",
			cursor.VoteCount, cursor.VoteCount, cursor.ProfileID,
		)
	}

	var profiles []db.Profile
	if err := query.Find(&profiles).Error; err != nil {
		return nil, nil, svcErr.Wrap(svcErr.ErrFetchFailed, err)
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(profiles) > limit {
		last := profiles[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			ProfileID: last.ID,
			VoteCount: last.VoteCount,
		})
		nextToken = &token
		profiles = profiles[:limit]
	}

	return profiles, nextToken, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
