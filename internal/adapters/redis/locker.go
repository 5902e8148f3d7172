package redisad

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/domain"
)

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lease only if this holder still owns it.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Locker is a SET NX PX lock shared by every API instance. The TTL bounds
// how long a crashed holder can block a room type; a live holder renews
// its lease every ttl/3 until unlock.
type Locker struct {
	c     *redis.Client
	ttl   time.Duration
	wait  time.Duration
	poll  time.Duration
	renew time.Duration
}

// NewLocker returns a Locker that gives up after wait (0: wait for ctx only).
func NewLocker(c *redis.Client, ttl, wait time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Locker{c: c, ttl: ttl, wait: wait, poll: 5 * time.Millisecond, renew: ttl / 3}
}

func (l *Locker) Lock(ctx context.Context, key string) (context.Context, func(), error) {
	k := "lock:" + key
	token := uuid.NewString()
	start := time.Now()
	var deadline time.Time
	if l.wait > 0 {
		deadline = start.Add(l.wait)
	}

	for {
		ok, err := l.c.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			return nil, nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			observability.ObserveLockWait("redis", true, time.Since(start))
			held, unlock := l.hold(ctx, k, token)
			return held, unlock, nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			observability.ObserveLockWait("redis", false, time.Since(start))
			return nil, nil, fmt.Errorf("%w: %s", domain.ErrConflict, key)
		}
		select {
		case <-ctx.Done():
			observability.ObserveLockWait("redis", false, time.Since(start))
			return nil, nil, ctx.Err()
		case <-time.After(l.poll):
		}
	}
}

// hold starts the lease watchdog. The held context is cancelled with
// ErrLockLost when the key no longer carries our token or when no renewal
// has succeeded for a full TTL.
func (l *Locker) hold(ctx context.Context, k, token string) (context.Context, func()) {
	held, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		t := time.NewTicker(l.renew)
		defer t.Stop()
		renewed := time.Now()
		for {
			select {
			case <-held.Done():
				return
			case <-t.C:
			}
			rctx, rcancel := context.WithTimeout(context.Background(), l.renew)
			n, err := renewScript.Run(rctx, l.c, []string{k}, token, l.ttl.Milliseconds()).Int()
			rcancel()
			switch {
			case err == nil && n == 1:
				renewed = time.Now()
				continue
			case err == nil:
				log.Error().Str("key", k).Msg("redis lock taken over by another holder")
				cancel(domain.ErrLockLost)
				return
			}
			log.Warn().Err(err).Str("key", k).Msg("redis lock renewal failed")
			if time.Since(renewed) >= l.ttl {
				cancel(domain.ErrLockLost)
				return
			}
		}
	}()

	var once sync.Once
	return held, func() {
		once.Do(func() {
			cancel(nil)
			<-done
			// release on a fresh context so a cancelled request still frees the key
			rctx, rcancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer rcancel()
			if err := releaseScript.Run(rctx, l.c, []string{k}, token).Err(); err != nil {
				log.Warn().Err(err).Str("key", k).Msg("redis lock release failed")
			}
		})
	}
}

var _ domain.Locker = (*Locker)(nil)
