// Package memlock serializes availability checks inside one process.
package memlock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/domain"
)

type slot struct {
	sem  *semaphore.Weighted
	refs int
}

// Locker hands out one weighted semaphore per key. Slots are dropped once
// nobody holds or waits on them.
type Locker struct {
	mu    sync.Mutex
	slots map[string]*slot
	wait  time.Duration
}

// New returns a Locker that gives up after wait (0: wait for ctx only).
func New(wait time.Duration) *Locker {
	return &Locker{slots: map[string]*slot{}, wait: wait}
}

func (l *Locker) Lock(ctx context.Context, key string) (context.Context, func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{sem: semaphore.NewWeighted(1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	actx := ctx
	if l.wait > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	start := time.Now()
	if err := s.sem.Acquire(actx, 1); err != nil {
		l.drop(key, s)
		observability.ObserveLockWait("local", false, time.Since(start))
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrConflict, key)
	}
	observability.ObserveLockWait("local", true, time.Since(start))

	// an in-process hold cannot expire, so held only ends with unlock or ctx
	held, cancel := context.WithCancel(ctx)
	var once sync.Once
	return held, func() {
		once.Do(func() {
			cancel()
			s.sem.Release(1)
			l.drop(key, s)
		})
	}, nil
}

func (l *Locker) drop(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// Len reports how many keys are held or awaited.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

var _ domain.Locker = (*Locker)(nil)
