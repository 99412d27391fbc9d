package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisNotifierPushesToOutbox(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	n := NewRedisNotifier(client, "")

	ev := Event{
		Type:       EventReleased,
		DocumentID: "doc_1",
		Number:     "WI-00001",
		Version:    "vA",
		Recipients: []string{"creator@example.com"},
	}
	require.NoError(t, n.Notify(context.Background(), ev))

	raw, err := mr.Lpop(DefaultOutboxKey)
	require.NoError(t, err)

	var got Event
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	require.Equal(t, EventReleased, got.Type)
	require.Equal(t, "WI-00001", got.Number)
	require.Equal(t, []string{"creator@example.com"}, got.Recipients)
	require.False(t, got.At.IsZero())
}

func TestRedisNotifierCustomKey(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	n := NewRedisNotifier(client, "custom:outbox")

	require.NoError(t, n.Notify(context.Background(), Event{Type: EventSubmitted}))
	items, err := mr.List("custom:outbox")
	require.NoError(t, err)
	require.Len(t, items, 1)
}
