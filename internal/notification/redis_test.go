package notification

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisDispatcher_EnqueuesEnvelope(t *testing.T) {
	mr, rdb := newTestRedis(t)
	d := NewRedisDispatcher(rdb, "")
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return fixed }

	require.NoError(t, d.Send(context.Background(), TemplateApproved, map[string]string{"email": "ada@example.com"}))
	require.NoError(t, d.Send(context.Background(), TemplateRejected, nil))

	items, err := mr.List(DefaultQueue)
	require.NoError(t, err)
	require.Len(t, items, 2)

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(items[0]), &env))
	assert.Equal(t, TemplateApproved, env.Template)
	assert.Equal(t, "ada@example.com", env.Data["email"])
	assert.Equal(t, fixed, env.CreatedAt)
	assert.NotEmpty(t, env.ID)

	require.NoError(t, json.Unmarshal([]byte(items[1]), &env))
	assert.Equal(t, TemplateRejected, env.Template)
}

func TestRedisDispatcher_Errors(t *testing.T) {
	assert.Error(t, NewRedisDispatcher(nil, "q").Send(context.Background(), TemplateApproved, nil))

	mr, rdb := newTestRedis(t)
	d := NewRedisDispatcher(rdb, "q")
	assert.Error(t, d.Send(context.Background(), "", nil))

	mr.Close()
	assert.Error(t, d.Send(context.Background(), TemplateApproved, nil))
}

func TestNewRedisClient(t *testing.T) {
	c, err := NewRedisClient("redis://localhost:6379/2")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Options().DB)
	_ = c.Close()

	c, err = NewRedisClient("localhost:6379")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", c.Options().Addr)
	_ = c.Close()

	_, err = NewRedisClient("redis://[bad")
	assert.Error(t, err)
}
