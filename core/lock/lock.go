// Package lock provides the single-active-instance lease for the pipeline.
//
// Two pipelines sharing a checkpoint log can read the same checkpoint and
// deliver overlapping rows. A Locker lets a cycle run only while it holds a
// short lease; a cycle that cannot take the lease is skipped.
package lock

import (
	"context"
	"time"

	"mixer-report/core/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker grants an exclusive lease to one holder at a time.
type Locker interface {
	// Acquire tries to take the lease. It returns false when another holder has it.
	Acquire(ctx context.Context) (bool, error)
	// Extend renews the lease for another TTL. It returns false when this
	// holder no longer owns it.
	Extend(ctx context.Context) (bool, error)
	// Release gives the lease up if this holder still owns it.
	Release(ctx context.Context) error
}

// Noop always grants the lease. It is used when no lock backend is configured.
type Noop struct{}

func (Noop) Acquire(context.Context) (bool, error) { return true, nil }
func (Noop) Extend(context.Context) (bool, error)  { return true, nil }
func (Noop) Release(context.Context) error         { return nil }

// Config holds configuration for the Redis lease.
type Config struct {
	// RedisAddr enables the lease when set (host:port).
	RedisAddr string `mapstructure:"redis_addr" default:""`
	// Key is the Redis key shared by all instances of one site.
	Key string `mapstructure:"key" default:"mixer-report:lease"`
	// TTLSeconds bounds how long a crashed holder blocks others. The lease is
	// renewed once before writing, so it must cover loading and matching.
	TTLSeconds int `mapstructure:"ttl_seconds" default:"300"`
}

// releaseScript deletes the key only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript renews the expiry only when the key still holds our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Redis is a lease stored as a Redis key with an expiry.
type Redis struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

// NewRedis creates a lease on key. Each instance uses its own random token.
func NewRedis(client *redis.Client, key string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Redis{client: client, key: key, token: uuid.NewString(), ttl: ttl}
}

// New returns a Redis lease when cfg.RedisAddr is set and Noop otherwise.
func New(cfg Config) Locker {
	if cfg.RedisAddr == "" {
		return Noop{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisAddr,
		DialTimeout: 5 * time.Second,
	})
	return NewRedis(client, cfg.Key, time.Duration(cfg.TTLSeconds)*time.Second)
}

func (r *Redis) Acquire(ctx context.Context) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.key, r.token, r.ttl).Result()
	if err != nil {
		return false, errors.Mark(errors.Wrapf(err, "acquire lease %s", r.key), errors.ErrSourceUnavailable)
	}
	return ok, nil
}

func (r *Redis) Extend(ctx context.Context) (bool, error) {
	n, err := extendScript.Run(ctx, r.client, []string{r.key}, r.token, r.ttl.Milliseconds()).Int()
	if err != nil {
		return false, errors.Mark(errors.Wrapf(err, "extend lease %s", r.key), errors.ErrSourceUnavailable)
	}
	return n == 1, nil
}

func (r *Redis) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, r.client, []string{r.key}, r.token).Err(); err != nil {
		return errors.Wrapf(err, "release lease %s", r.key)
	}
	return nil
}

// Token identifies this holder.
func (r *Redis) Token() string {
	return r.token
}
