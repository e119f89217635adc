package lock

import (
	"context"
	"testing"
	"time"

	"mixer-report/core/errors"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("NoAddress", func(t *testing.T) {
		l := New(Config{})
		assert.IsType(t, Noop{}, l)

		ok, err := l.Acquire(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = l.Extend(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, l.Release(context.Background()))
	})

	t.Run("WithAddress", func(t *testing.T) {
		l := New(Config{RedisAddr: "127.0.0.1:6379", Key: "k", TTLSeconds: 10})
		r, ok := l.(*Redis)
		require.True(t, ok)
		assert.Equal(t, 10*time.Second, r.ttl)
		assert.NotEmpty(t, r.Token())
	})
}

func TestRedis_TokensDiffer(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	a := NewRedis(client, "k", 0)
	b := NewRedis(client, "k", 0)

	assert.NotEqual(t, a.Token(), b.Token())
	assert.Equal(t, 5*time.Minute, a.ttl)
}

func TestRedis_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	l := NewRedis(client, "mixer-report:lease", time.Minute)

	ok, err := l.Acquire(context.Background())
	assert.False(t, ok)
	assert.True(t, errors.Is(err, errors.ErrSourceUnavailable))

	ok, err = l.Extend(context.Background())
	assert.False(t, ok)
	assert.True(t, errors.Is(err, errors.ErrSourceUnavailable))
}
