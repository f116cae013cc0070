package voting

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/campusvote/server/internal/app"
	"github.com/campusvote/server/internal/auth"
	"github.com/campusvote/server/internal/db"
	svcErr "github.com/campusvote/server/internal/errors"
	"github.com/campusvote/server/internal/history"
	"github.com/campusvote/server/internal/metrics"
	"github.com/campusvote/server/internal/pairing"
	"github.com/campusvote/server/internal/realtime"
	"github.com/campusvote/server/internal/repository"
)

// Manager owns the live voting sessions, one per (user, queue), and fans
// realtime vote events out to them as refresh-only signals.
type Manager struct {
	appCtx      *app.AppContext
	profileRepo *repository.ProfileRepository
	voteRepo    *repository.VoteRepository
	store       history.Store
	submitter   *Submitter
	gen         *pairing.Generator

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager wires the voting service from AppContext-level dependencies.
func NewManager(appCtx *app.AppContext, profileRepo *repository.ProfileRepository, voteRepo *repository.VoteRepository, store history.Store) *Manager {
	return &Manager{
		appCtx:      appCtx,
		profileRepo: profileRepo,
		voteRepo:    voteRepo,
		store:       store,
		submitter:   NewSubmitter(voteRepo, appCtx.RedisCache, appCtx.Bus, appCtx.Config.Vote.Cooldown, appCtx.Logger),
		gen:         pairing.NewGenerator(appCtx.Config.Vote.PairAttempts),
		sessions:    make(map[string]*Session),
	}
}

// Start subscribes the manager to the realtime bus. Safe to skip when no
// bus is configured; sessions then refresh only after their own votes.
func (m *Manager) Start(ctx context.Context) error {
	if m.appCtx.Bus == nil {
		return nil
	}
	return m.appCtx.Bus.Subscribe(ctx, m.handleEvent)
}

// Session returns the mounted session for this caller and queue, creating
// it on first use.
//
// Behavior:
//   - The caller must have a registered profile; a valid token without a
//     profile row redirects to registration (AuthRequired).
//   - Gender gating: a voter may only enter the queue of the opposite
//     gender; mismatches redirect rather than erroring.
//   - First-time voters get their VoteState restored from the votes table
//     so the cooldown survives even without saved history.
func (m *Manager) Session(ctx context.Context, caller *auth.Session, queue string) (*Session, error) {
	if caller == nil || caller.UserID == "" {
		return nil, svcErr.ErrAuthRequired
	}

	candidateGender, err := CandidateGender(queue)
	if err != nil {
		return nil, err
	}

	profile, err := m.profileRepo.GetByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.Wrap(svcErr.ErrAuthRequired, errors.New("no profile for this account"))
		}
		return nil, svcErr.Wrap(svcErr.ErrFetchFailed, err)
	}
	if db.OppositeGender(profile.Gender) != candidateGender {
		return nil, svcErr.ErrGenderMismatch
	}

	key := sessionKey(queue, caller.UserID)

	m.mu.Lock()
	if sess, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		return sess, nil
	}
	m.mu.Unlock()

	sess := newSession(caller.UserID, queue, candidateGender, m.profileRepo, m.store, m.submitter, m.gen, m.appCtx.Logger)
	if err := sess.mount(ctx); err != nil {
		return nil, err
	}
	if err := m.restoreVoteState(ctx, sess); err != nil {
		m.appCtx.Logger.Warn("failed to restore vote state", "user", caller.UserID, "err", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[key]; ok {
		// Lost a mount race; keep the first session.
		sess.Close()
		return existing, nil
	}
	m.sessions[key] = sess
	metrics.IncActiveSessions()
	return sess, nil
}

// Drop closes and forgets a session, e.g. on logout.
func (m *Manager) Drop(queue, userID string) {
	key := sessionKey(queue, userID)
	m.mu.Lock()
	sess, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()
	if ok {
		sess.Close()
	}
}

// handleEvent fans a vote notification out to sessions whose displayed
// pool contains the voted-for candidate. Refresh-only: pair selection is
// never altered by an external event.
func (m *Manager) handleEvent(ev realtime.VoteEvent) {
	m.mu.Lock()
	targets := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		if sess.candidateGender == ev.Gender {
			targets = append(targets, sess)
		}
	}
	m.mu.Unlock()

	for _, sess := range targets {
		sess.RefreshFromEvent(ev.VoterID)
	}
}

// restoreVoteState backfills VoteState from the votes table when the
// saved history had none, so cooldown and counts survive a cleared store.
func (m *Manager) restoreVoteState(ctx context.Context, sess *Session) error {
	sess.mu.Lock()
	fresh := sess.state.VoteState.VoteCount == 0 && sess.state.VoteState.LastVoteTime == 0
	sess.mu.Unlock()
	if !fresh {
		return nil
	}

	count, err := m.voteRepo.CountByVoter(ctx, sess.userID)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	last, err := m.voteRepo.LastVoteTime(ctx, sess.userID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.state.VoteState.VoteCount = int(count)
	if !last.IsZero() {
		sess.state.VoteState.LastVoteTime = last.UnixMilli()
	}
	return sess.save(ctx)
}

func sessionKey(queue, userID string) string {
	return fmt.Sprintf("%s:%s", queue, userID)
}
