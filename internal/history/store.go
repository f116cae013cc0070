// Package history owns the per-user pair history: which unordered pairs a
// voter has already been shown, whether the pool is exhausted for them,
// and the vote-state record backing the cooldown. One record per
// (queue, user), durable across reloads; last save wins.
package history

import (
	"context"
	"time"

	"github.com/campusvote/server/internal/pairing"
)

// VoteState tracks lifetime vote count and the last submission time used
// for rate limiting. It is never reset implicitly.
type VoteState struct {
	VoteCount    int   `json:"vote_count"`
	LastVoteTime int64 `json:"last_vote_time,omitempty"` // unix millis
}

// State is the restored in-memory form of a voter's history.
type State struct {
	SeenPairs    map[string]struct{}
	SeenProfiles map[string]struct{}
	Exhausted    bool
	VoteState    VoteState
}

// NewState returns the empty first-time-voter state.
func NewState() *State {
	return &State{
		SeenPairs:    make(map[string]struct{}),
		SeenProfiles: make(map[string]struct{}),
	}
}

// MarkSeen records the canonical pair key and both member ids. Both members
// of a displayed pair are marked together, at display time, not vote time.
func (s *State) MarkSeen(idA, idB string) {
	s.SeenPairs[pairing.Key(idA, idB)] = struct{}{}
	s.SeenProfiles[idA] = struct{}{}
	s.SeenProfiles[idB] = struct{}{}
}

// MarkExhausted flags that no unseen pair can be generated from the
// current pool.
func (s *State) MarkExhausted() { s.Exhausted = true }

// Seen reports whether the canonical key for (idA, idB) was already shown.
func (s *State) Seen(idA, idB string) bool {
	_, ok := s.SeenPairs[pairing.Key(idA, idB)]
	return ok
}

// record is the persisted JSON shape: set types flattened to arrays.
type record struct {
	SeenPairs    []string  `json:"seen_pairs"`
	SeenProfiles []string  `json:"seen_profiles"`
	Exhausted    bool      `json:"exhausted"`
	VoteState    VoteState `json:"vote_state"`
	SavedAt      time.Time `json:"saved_at"`
}

func toRecord(s *State) record {
	r := record{
		SeenPairs:    make([]string, 0, len(s.SeenPairs)),
		SeenProfiles: make([]string, 0, len(s.SeenProfiles)),
		Exhausted:    s.Exhausted,
		VoteState:    s.VoteState,
		SavedAt:      time.Now().UTC(),
	}
	for k := range s.SeenPairs {
		r.SeenPairs = append(r.SeenPairs, k)
	}
	for id := range s.SeenProfiles {
		r.SeenProfiles = append(r.SeenProfiles, id)
	}
	return r
}

func fromRecord(r record) *State {
	s := NewState()
	for _, k := range r.SeenPairs {
		s.SeenPairs[k] = struct{}{}
	}
	for _, id := range r.SeenProfiles {
		s.SeenProfiles[id] = struct{}{}
	}
	s.Exhausted = r.Exhausted
	s.VoteState = r.VoteState
	return s
}

// Store persists pair history per (queue, user).
//
// Load returns the empty state when nothing was saved yet; a first-time
// voter is not an error. Save must be called after every state-changing
// operation so a reload resumes exactly where the user left off. Reset
// clears everything including the exhaustion flag; it only happens on an
// explicit user action, never automatically.
type Store interface {
	Load(ctx context.Context, queue, userID string) (*State, error)
	Save(ctx context.Context, queue, userID string, s *State) error
	Reset(ctx context.Context, queue, userID string) error
}
