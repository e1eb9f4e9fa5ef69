package notify

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	ev := NewEvent(7)

	assert.Equal(t, int64(7), ev.Count)
	_, err := uuid.Parse(ev.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ev.At, time.Minute)
	assert.NotEqual(t, ev.ID, NewEvent(7).ID)
}

func TestDecode(t *testing.T) {
	got, err := Decode(&pubsub.Message{Data: []byte(`{"id":"a","count":3,"at":"2026-10-19T00:00:00Z"}`)})
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)
	assert.Equal(t, int64(3), got.Count)

	_, err = Decode(&pubsub.Message{Data: []byte(`nope`)})
	require.Error(t, err)
}

func TestFunc(t *testing.T) {
	var got []int64
	var n Notifier = Func(func(ctx context.Context, ev Event) {
		got = append(got, ev.Count)
	})
	n.Notify(context.Background(), NewEvent(1))
	n.Notify(context.Background(), NewEvent(2))

	assert.Equal(t, []int64{1, 2}, got)
}

func TestLocalMarker(t *testing.T) {
	ctx := context.Background()
	m := NewLocalMarker(time.Minute)

	got, err := m.Acquire(ctx, "msg-1")
	require.NoError(t, err)
	assert.True(t, got)

	got, err = m.Acquire(ctx, "msg-1")
	require.NoError(t, err)
	assert.False(t, got)

	got, err = m.Acquire(ctx, "msg-2")
	require.NoError(t, err)
	assert.True(t, got)
}

func TestRedisMarker(t *testing.T) {
	s := miniredis.RunT(t)
	cl := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{s.Addr()}})
	defer cl.Close()

	ctx := context.Background()
	m := NewRedisMarker(cl, "visit-event:", time.Minute)

	got, err := m.Acquire(ctx, "msg-1")
	require.NoError(t, err)
	assert.True(t, got)

	got, err = m.Acquire(ctx, "msg-1")
	require.NoError(t, err)
	assert.False(t, got)

	assert.True(t, s.Exists("visit-event:msg-1"))

	s.FastForward(2 * time.Minute)
	got, err = m.Acquire(ctx, "msg-1")
	require.NoError(t, err)
	assert.True(t, got)
}
