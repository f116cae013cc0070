// Package realtime carries vote change notifications between the vote
// submitter and everything that only needs to refresh displayed counts:
// other users' live sessions and the browser-facing SSE stream.
//
// Events are fire-and-forget with no backpressure; a burst of
// notifications just triggers redundant refreshes, which the profile
// repository's dedup window absorbs.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// VoteEvent is published after every successfully recorded vote.
type VoteEvent struct {
	VoterID    string    `json:"voter_id"`
	VotedForID string    `json:"voted_for_id"`
	Gender     string    `json:"gender"` // gender of the voted-for candidate
	CastAt     time.Time `json:"cast_at"`
}

// Bus is a message-passing subscription over vote events. Subscribe
// callbacks must treat events as refresh-only signals: they never carry
// pair-advancement semantics.
type Bus interface {
	Publish(ctx context.Context, ev VoteEvent) error
	Subscribe(ctx context.Context, onEvent func(VoteEvent)) error
	Close() error
}

type redisBus struct {
	log     *slog.Logger
	rdb     *redis.Client
	channel string
}

// NewRedisBus builds a Bus on top of Redis pub/sub. The client is shared
// with the cache layer; Close does not close it.
func NewRedisBus(log *slog.Logger, rdb *redis.Client, channel string) Bus {
	if channel == "" {
		channel = "votes"
	}
	return &redisBus{
		log:     log.With("component", "vote_bus"),
		rdb:     rdb,
		channel: channel,
	}
}

func (b *redisBus) Publish(ctx context.Context, ev VoteEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// Subscribe starts a background forwarder that invokes onEvent for every
// published vote until ctx is canceled. It returns once the subscription
// is confirmed, so callers know events will not be silently dropped.
func (b *redisBus) Subscribe(ctx context.Context, onEvent func(VoteEvent)) error {
	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var ev VoteEvent
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					b.log.Warn("bad vote event payload", "err", err)
					continue
				}
				onEvent(ev)
			}
		}
	}()

	return nil
}

func (b *redisBus) Close() error { return nil }
