package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tendawaks/dialogate/internal/auth"
)

// record is never mutated after it is stored; Save replaces it.
type record struct {
	identity   auth.Identity
	lastAccess time.Time
}

// MemoryStore keeps bindings in process memory and expires them with a
// periodic reaper goroutine.
type MemoryStore struct {
	records sync.Map // string -> *record

	ttl      time.Duration
	interval time.Duration
	delay    time.Duration
	now      func() time.Time
	logger   *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	wg        sync.WaitGroup
}

const (
	DefaultTTL          = 60 * time.Minute
	DefaultReapInterval = 30 * time.Minute
)

// NewMemoryStore creates a store whose reaper first runs after delay, then
// every interval, removing bindings not saved within ttl. A non-positive ttl
// or interval falls back to the default; a negative delay means no delay.
func NewMemoryStore(ttl, interval, delay time.Duration, logger *slog.Logger) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	if delay < 0 {
		delay = 0
	}
	return &MemoryStore{
		ttl:      ttl,
		interval: interval,
		delay:    delay,
		now:      time.Now,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Save binds key to id, replacing any earlier binding. It never fails.
func (s *MemoryStore) Save(_ context.Context, key string, id auth.Identity) error {
	s.records.Store(key, &record{identity: id, lastAccess: s.now()})
	return nil
}

// Get returns the identity bound to key. Reading does not extend the binding.
func (s *MemoryStore) Get(_ context.Context, key string) (auth.Identity, error) {
	v, ok := s.records.Load(key)
	if !ok {
		return auth.Identity{}, ErrNotFound
	}
	return v.(*record).identity, nil
}

// Len returns the number of stored bindings, expired or not.
func (s *MemoryStore) Len() int {
	n := 0
	s.records.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Reap removes every binding older than the TTL and returns how many were
// removed. A binding re-saved while the pass runs is left in place.
func (s *MemoryStore) Reap() int {
	now := s.now()
	removed := 0
	s.records.Range(func(k, v any) bool {
		rec := v.(*record)
		if now.Sub(rec.lastAccess) > s.ttl {
			if s.records.CompareAndDelete(k, rec) {
				removed++
			}
		}
		return true
	})
	return removed
}

// Start launches the reaper goroutine. Calling it more than once has no effect.
func (s *MemoryStore) Start() {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.reapLoop()
	})
}

// Shutdown stops the reaper and waits for it to exit.
func (s *MemoryStore) Shutdown() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}

func (s *MemoryStore) reapLoop() {
	defer s.wg.Done()

	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-s.stop:
		return
	case <-timer.C:
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.runReap()
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}
	}
}

func (s *MemoryStore) runReap() {
	if n := s.Reap(); n > 0 {
		s.logger.Info("expired sessions removed", "count", n)
	}
}
