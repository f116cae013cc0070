package realtime_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusvote/server/internal/db"
	"github.com/campusvote/server/internal/realtime"
)

func setupBus(t *testing.T) realtime.Bus {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return realtime.NewRedisBus(logger, rdb, "votes")
}

func TestBus_PublishSubscribe(t *testing.T) {
	bus := setupBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan realtime.VoteEvent, 1)
	require.NoError(t, bus.Subscribe(ctx, func(ev realtime.VoteEvent) {
		received <- ev
	}))

	sent := realtime.VoteEvent{
		VoterID:    "m1",
		VotedForID: "f1",
		Gender:     db.GenderFemale,
		CastAt:     time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, bus.Publish(ctx, sent))

	select {
	case got := <-received:
		assert.Equal(t, sent.VoterID, got.VoterID)
		assert.Equal(t, sent.VotedForID, got.VotedForID)
		assert.Equal(t, sent.Gender, got.Gender)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for vote event")
	}
}

func TestBus_SubscribeStopsOnCancel(t *testing.T) {
	bus := setupBus(t)
	ctx, cancel := context.WithCancel(context.Background())

	var count int
	done := make(chan struct{}, 8)
	require.NoError(t, bus.Subscribe(ctx, func(ev realtime.VoteEvent) {
		count++
		done <- struct{}{}
	}))

	require.NoError(t, bus.Publish(context.Background(), realtime.VoteEvent{VoterID: "m1"}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("first event never arrived")
	}

	cancel()
	time.Sleep(50 * time.Millisecond)

	// events after cancel are not delivered
	_ = bus.Publish(context.Background(), realtime.VoteEvent{VoterID: "m2"})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, count)
}
