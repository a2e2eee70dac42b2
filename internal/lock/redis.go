package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still carries our token, so an
// instance whose lock already expired cannot release somebody else's.
var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

// RedisOptions configures a Redis lock. Zero values fall back to defaults.
type RedisOptions struct {
	Prefix     string        // key namespace, default "lock"
	TTL        time.Duration // lock expiry if the holder dies, default 10s
	MinBackoff time.Duration // first retry delay, default 5ms
	MaxBackoff time.Duration // retry delay cap, default 200ms
}

// Redis is a Locker shared by every server instance pointed at the same
// Redis. The TTL only guards against crashed holders; the SQL store still
// re-checks overlaps inside its own transaction.
type Redis struct {
	client *redis.Client
	opts   RedisOptions
}

func NewRedis(client *redis.Client, opts RedisOptions) *Redis {
	if opts.Prefix == "" {
		opts.Prefix = "lock"
	}
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Second
	}
	if opts.MinBackoff <= 0 {
		opts.MinBackoff = 5 * time.Millisecond
	}
	if opts.MaxBackoff < opts.MinBackoff {
		opts.MaxBackoff = 200 * time.Millisecond
	}
	return &Redis{client: client, opts: opts}
}

func (l *Redis) Lock(ctx context.Context, key string) (func(), error) {
	full := l.opts.Prefix + ":" + key
	token := uuid.NewString()
	wait := l.opts.MinBackoff
	for {
		ok, err := l.client.SetNX(ctx, full, token, l.opts.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		if wait *= 2; wait > l.opts.MaxBackoff {
			wait = l.opts.MaxBackoff
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's ctx may already be done; release on a fresh one.
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(rctx, l.client, []string{full}, token).Err()
		})
	}, nil
}
