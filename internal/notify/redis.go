package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultOutboxKey is the list the mailer worker consumes.
const DefaultOutboxKey = "veridoc:notify:outbox"

// RedisNotifier pushes events onto a Redis list consumed by the external
// mailer. LPUSH is fire-and-forget from the engine's point of view.
type RedisNotifier struct {
	client *redis.Client
	key    string
}

func NewRedisNotifier(client *redis.Client, key string) *RedisNotifier {
	if key == "" {
		key = DefaultOutboxKey
	}
	return &RedisNotifier{client: client, key: key}
}

func (n *RedisNotifier) Notify(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal notify event: %w", err)
	}
	if err := n.client.LPush(ctx, n.key, b).Err(); err != nil {
		return fmt.Errorf("push notify event: %w", err)
	}
	return nil
}
