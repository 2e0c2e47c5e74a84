package cache

import (
	"context"
	"errors"
	"time"

	"collateral-loan-engine/pkg/id"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var ErrLockTimeout = errors.New("redis lock: not acquired before deadline")

// release deletes the key only if it still holds our token.
var release = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extend pushes the expiry out only while the key still holds our token.
var extend = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker serializes engine operations across processes.
type RedisLocker struct {
	rdb   *redis.Client
	key   string
	ttl   time.Duration
	retry time.Duration
	wait  time.Duration
}

// NewRedisLocker leases key for ttl and renews the lease every ttl/3 until unlock,
// so a slow transaction keeps the key. Lock gives up after wait.
func NewRedisLocker(rdb *redis.Client, key string, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{rdb: rdb, key: key, ttl: ttl, retry: 10 * time.Millisecond, wait: wait}
}

func (l *RedisLocker) Lock(ctx context.Context) (func(), error) {
	token := id.NewID32()
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			stop, done := make(chan struct{}), make(chan struct{})
			go l.keepAlive(token, stop, done)
			return func() {
				close(stop)
				<-done
				// detached from ctx so a cancelled request still releases
				if err := release.Run(context.Background(), l.rdb, []string{l.key}, token).Err(); err != nil {
					log.Warn().Err(err).Str("key", l.key).Msg("redis lock release failed")
				}
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

func (l *RedisLocker) keepAlive(token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	every := l.ttl / 3
	if every < time.Millisecond {
		every = time.Millisecond
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
		}
		n, err := extend.Run(context.Background(), l.rdb, []string{l.key}, token, l.ttl.Milliseconds()).Int()
		if err != nil {
			log.Warn().Err(err).Str("key", l.key).Msg("redis lock renewal failed")
			continue
		}
		if n == 0 {
			log.Error().Str("key", l.key).Msg("redis lock lease lost")
			return
		}
	}
}
