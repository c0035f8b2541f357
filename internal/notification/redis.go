package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultQueue is the Redis list notifications are pushed onto.
const DefaultQueue = "cms:notifications"

// Envelope is the JSON document enqueued for the mail consumer.
type Envelope struct {
	ID        string            `json:"id"`
	Template  string            `json:"template"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// RedisDispatcher enqueues envelopes with RPUSH so consumers can BLPOP them in order.
type RedisDispatcher struct {
	rdb   *redis.Client
	queue string
	now   func() time.Time
}

// NewRedisDispatcher returns a dispatcher pushing onto queue (DefaultQueue when empty).
func NewRedisDispatcher(rdb *redis.Client, queue string) *RedisDispatcher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &RedisDispatcher{rdb: rdb, queue: queue, now: time.Now}
}

func (d *RedisDispatcher) Send(ctx context.Context, templateKey string, data map[string]string) error {
	if d.rdb == nil {
		return errors.New("notification: redis client not configured")
	}
	if templateKey == "" {
		return errors.New("notification: template key required")
	}
	payload, err := json.Marshal(Envelope{
		ID:        uuid.New().String(),
		Template:  templateKey,
		Data:      data,
		CreatedAt: d.now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := d.rdb.RPush(ctx, d.queue, payload).Err(); err != nil {
		return fmt.Errorf("notification: enqueue %s: %w", templateKey, err)
	}
	return nil
}

// NewRedisClient builds a client from a redis:// URL or a bare host:port.
func NewRedisClient(addr string) (*redis.Client, error) {
	if strings.Contains(addr, "://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL %q: %w", addr, err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: addr}), nil
}
