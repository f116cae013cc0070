package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var seedColleges = []string{
	"IIT Delhi", "NIT Trichy", "BITS Pilani", "VIT Vellore", "SRM Chennai",
}

var seedCities = []string{"Delhi", "Mumbai", "Chennai", "Pune", "Bangalore"}

// SeedTestData resets the database and populates it with demo profiles and votes.
//
// Behavior:
//  1. Clears existing data in `votes` and `profiles` tables.
//  2. Creates 20 profiles (10 male, 10 female) with hashed passwords.
//  3. Generates cross-gender votes; duplicates are absorbed by the
//     (voter_id, voted_for_id) unique index, mirroring production inserts.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	if err := db.Exec("DELETE FROM votes").Error; err != nil {
		return fmt.Errorf("failed to clear votes: %w", err)
	}
	if err := db.Exec("DELETE FROM profiles").Error; err != nil {
		return fmt.Errorf("failed to clear profiles: %w", err)
	}

	log.Println("Cleared existing data")

	// --- Seed Profiles (10 male, 10 female) ---
	var profiles []Profile
	for i := 1; i <= 20; i++ {
		hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		gender := GenderMale
		if i > 10 {
			gender = GenderFemale
		}

		p := Profile{
			Name:         fmt.Sprintf("user%d", i),
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			Gender:       gender,
			Age:          18 + r.Intn(7),
			CollegeName:  seedColleges[r.Intn(len(seedColleges))],
			Education:    "B.Tech",
			Year:         fmt.Sprintf("%d", 1+r.Intn(4)),
			City:         seedCities[r.Intn(len(seedCities))],
			State:        "NA",
			Hobbies:      "music, football",
		}
		if err := db.Create(&p).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	log.Println("Seeded 20 profiles.")

	// --- Seed Votes ---
	for _, voter := range profiles {
		for j := 0; j < 6; j++ {
			candidate := profiles[r.Intn(len(profiles))]
			if candidate.Gender == voter.Gender {
				continue
			}
			vote := Vote{
				VoterID:    voter.ID,
				VotedForID: candidate.ID,
			}
			if err := db.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "voter_id"}, {Name: "voted_for_id"}},
				DoNothing: true,
			}).Create(&vote).Error; err != nil {
				return fmt.Errorf("failed to seed vote: %w", err)
			}
		}
	}

	return nil
}

// SeedMinimalTestData inserts a small deterministic dataset used by tests:
// one male voter and three female candidates, with a single existing vote.
func SeedMinimalTestData(db *gorm.DB) error {
	// Clear
	if err := db.Exec("DELETE FROM votes").Error; err != nil {
		return err
	}
	if err := db.Exec("DELETE FROM profiles").Error; err != nil {
		return err
	}

	profiles := []Profile{
		{ID: "m1", Name: "user1", Email: "u1@test.com", PasswordHash: "x", Gender: GenderMale, Age: 20},
		{ID: "f1", Name: "user2", Email: "u2@test.com", PasswordHash: "x", Gender: GenderFemale, Age: 20},
		{ID: "f2", Name: "user3", Email: "u3@test.com", PasswordHash: "x", Gender: GenderFemale, Age: 21},
		{ID: "f3", Name: "user4", Email: "u4@test.com", PasswordHash: "x", Gender: GenderFemale, Age: 22},
	}
	if err := db.Create(&profiles).Error; err != nil {
		return err
	}

	votes := []Vote{
		{ID: "v1", VoterID: "m1", VotedForID: "f1"},
	}
	return db.Create(&votes).Error
}
