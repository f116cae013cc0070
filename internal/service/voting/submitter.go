package voting

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/campusvote/server/internal/db"
	svcErr "github.com/campusvote/server/internal/errors"
	"github.com/campusvote/server/internal/history"
	"github.com/campusvote/server/internal/metrics"
	"github.com/campusvote/server/internal/realtime"
)

// VoteStore is the persistence surface the submitter needs. Implemented by
// repository.VoteRepository; tests inject counting fakes.
type VoteStore interface {
	Insert(ctx context.Context, voterID, votedForID string) error
}

// CounterCache bumps the cached display counter for a candidate.
// Implemented by cache.RedisCache.
type CounterCache interface {
	IncrVoteCount(ctx context.Context, profileID string) (int64, error)
}

// Submitter records a single vote attempt.
//
// Order of operations:
//  1. Cooldown check against the caller's VoteState. A violation is
//     rejected before any store call.
//  2. Idempotent insert; a duplicate surfaces as ErrDuplicateVote, which
//     callers treat as a soft success.
//  3. Best-effort side effects: atomic counter bump and realtime publish.
//     The authoritative count still comes from the next recount.
//  4. VoteState update (count +1, last vote time = now).
//
// The submitter never advances pairing state; that is the session's job.
// VoteState passes by value both ways so the submitter never touches
// state owned by the session's lock.
type Submitter struct {
	votes    VoteStore
	cache    CounterCache
	bus      realtime.Bus
	cooldown time.Duration
	log      *slog.Logger

	now func() time.Time
}

func NewSubmitter(votes VoteStore, cc CounterCache, bus realtime.Bus, cooldown time.Duration, log *slog.Logger) *Submitter {
	if cooldown <= 0 {
		cooldown = time.Second
	}
	return &Submitter{
		votes:    votes,
		cache:    cc,
		bus:      bus,
		cooldown: cooldown,
		log:      log,
		now:      time.Now,
	}
}

// Submit records one vote by voterID for candidate. On success the
// returned VoteState carries the bumped count and vote time; on any error
// the input state comes back unchanged.
func (s *Submitter) Submit(ctx context.Context, voterID string, candidate db.Profile, vs history.VoteState) (history.VoteState, error) {
	now := s.now()

	if vs.LastVoteTime > 0 && now.UnixMilli()-vs.LastVoteTime < s.cooldown.Milliseconds() {
		metrics.IncRateLimited()
		return vs, svcErr.ErrRateLimited
	}

	if err := s.votes.Insert(ctx, voterID, candidate.ID); err != nil {
		if errors.Is(err, svcErr.ErrDuplicateVote) {
			metrics.IncDuplicateVote()
			return vs, err
		}
		if errors.Is(err, svcErr.ErrBackendError) {
			return vs, err
		}
		return vs, svcErr.Wrap(svcErr.ErrBackendError, err)
	}

	if s.cache != nil {
		if _, err := s.cache.IncrVoteCount(ctx, candidate.ID); err != nil {
			s.log.Warn("failed to bump vote counter", "candidate", candidate.ID, "err", err)
		}
	}
	if s.bus != nil {
		ev := realtime.VoteEvent{
			VoterID:    voterID,
			VotedForID: candidate.ID,
			Gender:     candidate.Gender,
			CastAt:     now.UTC(),
		}
		if err := s.bus.Publish(ctx, ev); err != nil {
			s.log.Warn("failed to publish vote event", "err", err)
		}
	}

	vs.VoteCount++
	vs.LastVoteTime = now.UnixMilli()
	metrics.IncVote()

	return vs, nil
}
