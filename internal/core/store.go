package core

// store.go keeps live sessions in memory, keyed by a random ID. Nothing is
// persisted: a session disappears when it is removed or sits idle past the
// configured limit.

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds the live sessions.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	factory  func(id string) *Session
}

func newStore(factory func(id string) *Session) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		factory:  factory,
	}
}

// Create registers a new session under a fresh ID. It ignores the session
// limit; request paths create through Service.GetOrCreate.
func (st *Store) Create() *Session {
	s := st.factory(uuid.New().String())

	st.mu.Lock()
	st.sessions[s.id] = s
	st.mu.Unlock()

	return s
}

// Get returns the session with the given ID.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// createBounded is Create with a cap on live sessions. A limit of zero or
// less means no cap.
func (st *Store) createBounded(limit int) (*Session, error) {
	s := st.factory(uuid.New().String())

	st.mu.Lock()
	defer st.mu.Unlock()

	if limit > 0 && len(st.sessions) >= limit {
		return nil, fmt.Errorf("%w: limit %d", ErrTooManySessions, limit)
	}
	st.sessions[s.id] = s
	return s, nil
}

// Remove deletes a session and closes its subscriptions.
func (st *Store) Remove(id string) bool {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if ok {
		s.closeListeners()
	}
	return ok
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// each calls fn for a snapshot of the live sessions, outside the store lock.
func (st *Store) each(fn func(*Session)) {
	st.mu.RLock()
	list := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		list = append(list, s)
	}
	st.mu.RUnlock()

	for _, s := range list {
		fn(s)
	}
}

// Cleanup removes sessions idle for longer than maxIdle. Sessions with a
// run in flight are kept until it finishes.
func (st *Store) Cleanup(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	var expired []string
	st.each(func(s *Session) {
		if s.LastActive().Before(cutoff) && !s.Snapshot().InFlight() {
			expired = append(expired, s.id)
		}
	})

	removed := 0
	for _, id := range expired {
		if st.Remove(id) {
			removed++
		}
	}
	return removed
}

// StartCleanupScheduler removes idle sessions every interval until ctx ends.
// It blocks; run it in its own goroutine.
func (st *Store) StartCleanupScheduler(ctx context.Context, interval, maxIdle time.Duration) {
	slog.Info("session cleanup scheduler started",
		"interval", interval.String(),
		"max_idle", maxIdle.String(),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session cleanup scheduler stopped")
			return
		case <-ticker.C:
			start := time.Now()
			if n := st.Cleanup(maxIdle); n > 0 {
				slog.Info("expired sessions removed",
					"removed", n,
					"remaining", st.Len(),
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}
		}
	}
}
