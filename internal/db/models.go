package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Gender values. Immutable after registration; they determine which
// matchup pool a profile belongs to.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// OppositeGender returns the complement pool for a voter's gender.
// Unknown input returns empty.
func OppositeGender(g string) string {
	switch g {
	case GenderMale:
		return GenderFemale
	case GenderFemale:
		return GenderMale
	}
	return ""
}

// Profile table. One row per registered voter/candidate.
//
// Vote counts are intentionally NOT a column here: they are derived by
// recounting the votes table (repository.ProfileRepository) and cached in
// Redis. Keeping a counter column updated from clients is racy under
// concurrent voters.
type Profile struct {
	ID           string    `gorm:"type:char(36);primaryKey" json:"id"`
	Name         string    `gorm:"size:128;not null" json:"name"`
	Email        string    `gorm:"uniqueIndex;size:128;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Gender       string    `gorm:"size:16;not null;index" json:"gender"`
	Age          int       `gorm:"not null" json:"age"`
	CollegeName  string    `gorm:"size:128" json:"college_name"`
	Education    string    `gorm:"size:128" json:"education"`
	Year         string    `gorm:"size:32" json:"year"`
	City         string    `gorm:"size:64" json:"city"`
	State        string    `gorm:"size:64" json:"state"`
	ProfileImage string    `gorm:"size:512" json:"profile_image"`
	Hobbies      string    `gorm:"size:512" json:"hobbies"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// VoteCount is populated by aggregate queries (recounts), never stored.
	// It is read-only and excluded from migration.
	VoteCount int64 `gorm:"->;-:migration" json:"vote_count"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Vote represents one voter's choice of one candidate.
//
// Unique composite index (voter_id, voted_for_id):
//   - At most one vote per (voter, candidate) combination.
//   - Insert uses ON CONFLICT DO NOTHING, so a duplicate submission is a
//     no-op detected via RowsAffected, never a generic failure.
//
// Rows are immutable once created; this subsystem never edits or deletes
// votes.
type Vote struct {
	ID         string    `gorm:"type:char(36);primaryKey" json:"id"`
	VoterID    string    `gorm:"type:char(36);not null;uniqueIndex:idx_voter_candidate,priority:1" json:"voter_id"`
	VotedForID string    `gorm:"type:char(36);not null;uniqueIndex:idx_voter_candidate,priority:2;index" json:"voted_for_id"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (v *Vote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
