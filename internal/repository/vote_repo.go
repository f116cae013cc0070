package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campusvote/server/internal/db"
	svcErr "github.com/campusvote/server/internal/errors"
)

// VoteRepository provides data access for the Vote model.
type VoteRepository struct {
	db *gorm.DB
}

// NewVoteRepository creates a new repository bound to the given DB connection.
func NewVoteRepository(database *gorm.DB) *VoteRepository {
	return &VoteRepository{db: database}
}

// Insert records a vote by voter -> candidate exactly once.
//
// Behavior:
//   - The (voter_id, voted_for_id) unique index plus ON CONFLICT DO NOTHING
//     make the insert idempotent: a duplicate submission touches zero rows.
//   - Zero affected rows are reported as ErrDuplicateVote so callers can
//     treat it as a soft success, never a generic failure.
//
// Example:
//
//	repo.Insert(ctx, "voter-uuid", "candidate-uuid")
func (r *VoteRepository) Insert(ctx context.Context, voterID, votedForID string) error {
	vote := db.Vote{
		VoterID:    voterID,
		VotedForID: votedForID,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "voter_id"}, {Name: "voted_for_id"}},
			DoNothing: true,
		}).
		Create(&vote)
	if res.Error != nil {
		return svcErr.Wrap(svcErr.ErrBackendError, res.Error)
	}
	if res.RowsAffected == 0 {
		return svcErr.ErrDuplicateVote
	}
	return nil
}

// CountByCandidate recounts all votes grouped by candidate. This is the
// authoritative aggregate; cached counters are reconciled against it.
func (r *VoteRepository) CountByCandidate(ctx context.Context) (map[string]int64, error) {
	type row struct {
		VotedForID string
		Total      int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Table("votes").
		Select("voted_for_id, COUNT(*) AS total").
		Group("voted_for_id").
		Find(&rows).Error
	if err != nil {
		return nil, svcErr.Wrap(svcErr.ErrFetchFailed, err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.VotedForID] = r.Total
	}
	return counts, nil
}

// CountByVoter returns how many votes a voter has cast in total. Used to
// restore VoteState when no saved history exists.
func (r *VoteRepository) CountByVoter(ctx context.Context, voterID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Vote{}).
		Where("voter_id = ?", voterID).
		Count(&count).Error
	return count, err
}

// LastVoteTime returns the timestamp of the voter's most recent vote, or
// the zero time if they have never voted.
func (r *VoteRepository) LastVoteTime(ctx context.Context, voterID string) (time.Time, error) {
	var vote db.Vote
	err := r.db.WithContext(ctx).
		Where("voter_id = ?", voterID).
		Order("created_at DESC").
		First(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return vote.CreatedAt, nil
}
