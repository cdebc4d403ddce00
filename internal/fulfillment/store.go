package fulfillment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/shipment-console/pkg/errors"
)

// Store keeps the live console sessions keyed by id.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewStore builds a store whose sessions expire after ttl of inactivity. ttl <= 0
// disables expiry.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: map[string]*Session{},
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create registers a new empty session owned by owner.
func (st *Store) Create(owner string) *Session {
	s := NewSession(uuid.NewString())
	s.Owner = owner
	s.touch(st.now())
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get returns the session and marks it used.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	st.mu.Unlock()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "console session not found")
	}
	s.touch(st.now())
	return s, nil
}

// GetOwned is Get restricted to sessions created by owner. A foreign session
// reads as not found.
func (st *Store) GetOwned(id, owner string) (*Session, error) {
	s, err := st.Get(id)
	if err != nil {
		return nil, err
	}
	if s.Owner != owner {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "console session not found")
	}
	return s, nil
}

func (st *Store) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep drops idle sessions that have nothing in flight and returns how many went.
func (st *Store) Sweep() int {
	if st.ttl <= 0 {
		return 0
	}
	cutoff := st.now().Add(-st.ttl)
	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, s := range st.sessions {
		if s.Busy() || s.IdleSince().After(cutoff) {
			continue
		}
		delete(st.sessions, id)
		removed++
	}
	return removed
}

// Run sweeps on every tick until ctx is done.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || st.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}
