package voting

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/campusvote/server/internal/db"
	svcErr "github.com/campusvote/server/internal/errors"
	"github.com/campusvote/server/internal/history"
	"github.com/campusvote/server/internal/metrics"
	"github.com/campusvote/server/internal/pairing"
)

// Status of a session's state machine.
type Status string

const (
	StatusLoading   Status = "loading"
	StatusReady     Status = "ready"
	StatusVoting    Status = "voting"
	StatusExhausted Status = "exhausted"
)

// ProfilePool is the candidate-pool surface the session needs.
// Implemented by repository.ProfileRepository.
type ProfilePool interface {
	ListByGender(ctx context.Context, gender string) ([]db.Profile, error)
	Refresh(ctx context.Context, gender string) ([]db.Profile, error)
}

// Session drives voting for one (user, queue): it holds the current and
// pre-computed next pair, the restored pair history, and the single
// in-flight-vote exclusion.
//
// Exactly one lock guards one critical section: "a vote is in flight for
// the current pair". Realtime notifications only refresh displayed vote
// counts underneath the active pair; they never change pair identity.
type Session struct {
	userID          string
	queue           string
	candidateGender string

	pool      ProfilePool
	store     history.Store
	submitter *Submitter
	gen       *pairing.Generator
	log       *slog.Logger

	voting atomic.Bool // single in-flight vote
	closed atomic.Bool // liveness: late results are dropped after Close

	mu      sync.Mutex
	status  Status
	state   *history.State
	members []db.Profile // candidate pool snapshot
	current []db.Profile // len 0 or 2
	next    []db.Profile
}

// Snapshot is the complete surface the presentation layer needs. The UI
// never touches the history store, repositories or backend clients.
type Snapshot struct {
	Queue       string       `json:"queue"`
	Status      Status       `json:"status"`
	CurrentPair []db.Profile `json:"current_pair"`
	IsVoting    bool         `json:"is_voting"`
	Exhausted   bool         `json:"exhausted"`
	VoteCount   int          `json:"vote_count"`
	SeenPairs   int          `json:"seen_pairs"`
}

func newSession(userID, queue, candidateGender string, pool ProfilePool, store history.Store, submitter *Submitter, gen *pairing.Generator, log *slog.Logger) *Session {
	return &Session{
		userID:          userID,
		queue:           queue,
		candidateGender: candidateGender,
		pool:            pool,
		store:           store,
		submitter:       submitter,
		gen:             gen,
		log:             log.With("user", userID, "queue", queue),
		status:          StatusLoading,
	}
}

// mount loads the candidate pool and the saved history concurrently, then
// computes the current pair and pre-computes the next one so a vote can
// advance with zero generation latency.
func (s *Session) mount(ctx context.Context) error {
	var (
		members []db.Profile
		st      *history.State
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.pool.ListByGender(gctx, s.candidateGender)
		if err != nil {
			return err
		}
		members = p
		return nil
	})
	g.Go(func() error {
		h, err := s.store.Load(gctx, s.queue, s.userID)
		if err != nil {
			return svcErr.Wrap(svcErr.ErrFetchFailed, err)
		}
		st = h
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.members = members
	s.state = st

	if st.Exhausted {
		// A pool that has grown since exhaustion stays exhausted until the
		// user explicitly resets; no automatic recovery.
		s.status = StatusExhausted
		return nil
	}

	pair, ok := s.gen.Next(s.members, st.SeenPairs, st.SeenProfiles)
	if !ok {
		st.MarkExhausted()
		s.status = StatusExhausted
		metrics.IncExhaustedSessions()
		return s.save(ctx)
	}

	s.current = pair[:]
	st.MarkSeen(pair[0].ID, pair[1].ID)
	s.precomputeNext()
	s.status = StatusReady

	return s.save(ctx)
}

// precomputeNext fills s.next from the post-MarkSeen state. The next pair
// is not marked seen until it is promoted to current (display time).
// Callers hold s.mu.
func (s *Session) precomputeNext() {
	pair, ok := s.gen.Next(s.members, s.state.SeenPairs, s.state.SeenProfiles)
	if ok {
		s.next = pair[:]
	} else {
		s.next = nil
	}
}

// Vote submits a vote for one member of the current pair and advances to
// the pre-computed next pair.
//
// Re-entrant calls while a vote is in flight are rejected without side
// effects; this is a hard mutual-exclusion invariant, not a UX nicety.
// On RateLimited/DuplicateVote/BackendError the current pair is NOT
// advanced, so the user can retry the same decision.
func (s *Session) Vote(ctx context.Context, candidateID string) error {
	if s.closed.Load() {
		return svcErr.Wrap(svcErr.ErrBackendError, context.Canceled)
	}

	if !s.voting.CompareAndSwap(false, true) {
		return svcErr.ErrRateLimited
	}
	defer s.voting.Store(false)

	s.mu.Lock()
	if s.status == StatusExhausted || len(s.current) != 2 {
		s.mu.Unlock()
		return svcErr.InvalidArgument("no active pair to vote on")
	}

	var candidate *db.Profile
	for i := range s.current {
		if s.current[i].ID == candidateID {
			candidate = &s.current[i]
		}
	}
	if candidate == nil {
		s.mu.Unlock()
		return svcErr.InvalidArgument("candidate is not part of the current pair")
	}
	chosen := *candidate
	vs := s.state.VoteState
	s.status = StatusVoting
	s.mu.Unlock()

	// Submit works on a copy of VoteState; the result is applied below,
	// back under the lock, so Snapshot and save never see a mid-write.
	updated, err := s.submitter.Submit(ctx, s.userID, chosen, vs)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		// Failure paths keep the current pair and all history intact.
		s.status = StatusReady
		return err
	}
	s.state.VoteState = updated

	// Seen at display time already; repeating is idempotent.
	s.state.MarkSeen(s.current[0].ID, s.current[1].ID)

	if len(s.next) == 2 {
		s.current = s.next
		s.state.MarkSeen(s.current[0].ID, s.current[1].ID)
		s.precomputeNext()
		s.status = StatusReady
	} else {
		s.current = nil
		s.next = nil
		s.state.MarkExhausted()
		s.status = StatusExhausted
		metrics.IncExhaustedSessions()
	}

	if err := s.save(ctx); err != nil {
		s.log.Warn("failed to persist pair history", "err", err)
	}

	// Non-blocking refresh so the next display shows fresh counts.
	go s.refreshPool()

	return nil
}

// RefreshFromEvent applies a realtime vote notification: refresh the pool
// in the background without touching current/next pair selection. Events
// from this session's own user are ignored (their vote already refreshed).
func (s *Session) RefreshFromEvent(voterID string) {
	if s.closed.Load() || voterID == s.userID {
		return
	}
	go s.refreshPool()
}

// refreshPool re-fetches the candidate pool and updates displayed vote
// counts. Pair identity is never altered here. A session closed while the
// refresh was in flight drops the result.
func (s *Session) refreshPool() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	members, err := s.pool.Refresh(ctx, s.candidateGender)
	if err != nil {
		s.log.Warn("pool refresh failed", "err", err)
		return
	}
	if s.closed.Load() {
		return
	}

	counts := make(map[string]int64, len(members))
	for _, p := range members {
		counts[p.ID] = p.VoteCount
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = members
	for i := range s.current {
		if n, ok := counts[s.current[i].ID]; ok {
			s.current[i].VoteCount = n
		}
	}
	for i := range s.next {
		if n, ok := counts[s.next[i].ID]; ok {
			s.next[i].VoteCount = n
		}
	}
}

// Reset clears seen-pair state and the exhaustion flag, preserving the
// accumulated VoteState, then recomputes pairs from the live pool. Only
// ever triggered by an explicit user action.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Reset(ctx, s.queue, s.userID); err != nil {
		return svcErr.Wrap(svcErr.ErrBackendError, err)
	}

	vs := s.state.VoteState
	s.state = history.NewState()
	s.state.VoteState = vs
	s.current = nil
	s.next = nil

	pair, ok := s.gen.Next(s.members, s.state.SeenPairs, s.state.SeenProfiles)
	if !ok {
		s.state.MarkExhausted()
		s.status = StatusExhausted
		return s.save(ctx)
	}

	s.current = pair[:]
	s.state.MarkSeen(pair[0].ID, pair[1].ID)
	s.precomputeNext()
	s.status = StatusReady

	return s.save(ctx)
}

// Snapshot returns the UI-facing view of this session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Queue:     s.queue,
		Status:    s.status,
		IsVoting:  s.voting.Load(),
		Exhausted: s.status == StatusExhausted,
		SeenPairs: len(s.state.SeenPairs),
		VoteCount: s.state.VoteState.VoteCount,
	}
	if len(s.current) == 2 {
		snap.CurrentPair = append([]db.Profile(nil), s.current...)
	} else {
		snap.CurrentPair = []db.Profile{}
	}
	return snap
}

// Close marks the session dead so in-flight refreshes and events are
// safely ignorable.
func (s *Session) Close() {
	if s.closed.CompareAndSwap(false, true) {
		metrics.DecActiveSessions()
	}
}

// save persists the history record. Callers hold s.mu.
func (s *Session) save(ctx context.Context) error {
	return s.store.Save(ctx, s.queue, s.userID, s.state)
}
