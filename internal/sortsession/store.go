package sortsession

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/minhngo-dev/thiepcuoi-backend/internal/ordering"
	pkgerrors "github.com/minhngo-dev/thiepcuoi-backend/pkg/errors"
)

// Store keeps active sort sessions in memory. Sessions are short-lived
// working state; losing them on restart only loses unsaved ordering.
type Store struct {
	mu         sync.RWMutex
	sessions   map[uuid.UUID]*Session
	ttl        time.Duration
	maxHistory int
}

// NewStore builds a session store with the configured TTL and history bound.
func NewStore(ttl time.Duration, maxHistory int) *Store {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Store{
		sessions:   make(map[uuid.UUID]*Session),
		ttl:        ttl,
		maxHistory: maxHistory,
	}
}

// Create opens a new session seeded with the given order.
func (st *Store) Create(items []ordering.Item) *Session {
	session := NewSession(uuid.New(), items, st.ttl, st.maxHistory)
	st.mu.Lock()
	st.sessions[session.ID] = session
	st.mu.Unlock()
	return session
}

// Get returns the live session or a NOT_FOUND error. Expired sessions are
// treated as gone even before the reaper runs.
func (st *Store) Get(id uuid.UUID) (*Session, error) {
	st.mu.RLock()
	session, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sort session not found")
	}
	if session.Expired(time.Now()) {
		st.Delete(id)
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sort session expired")
	}
	session.Touch(st.ttl)
	return session, nil
}

// Delete removes the session, ending sort mode.
func (st *Store) Delete(id uuid.UUID) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// ReapExpired drops every session past its TTL and returns how many went.
func (st *Store) ReapExpired(now time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	reaped := 0
	for id, session := range st.sessions {
		if session.Expired(now) {
			delete(st.sessions, id)
			reaped++
		}
	}
	return reaped
}
