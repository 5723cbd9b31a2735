package server

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"mcp-nutrition-tracker/internal/nutrition"
)

var ErrUnknownSession = errors.New("unknown meal session")

// captureSession is one in-progress meal. Its mutex serializes tool calls on
// the same session; nutrition.Session itself is not safe for concurrent use.
// closed and lastUsed are guarded by mu.
type captureSession struct {
	mu         sync.Mutex
	id         string
	meal       *nutrition.Session
	confidence float64
	createdAt  time.Time
	lastUsed   time.Time
	closed     bool
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*captureSession
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*captureSession)}
}

func (st *sessionStore) add(meal *nutrition.Session, confidence float64) *captureSession {
	now := time.Now()
	cs := &captureSession{
		id:         ulid.Make().String(),
		meal:       meal,
		confidence: confidence,
		createdAt:  now,
		lastUsed:   now,
	}
	st.mu.Lock()
	st.sessions[cs.id] = cs
	st.mu.Unlock()
	return cs
}

// with runs fn while holding the session's lock. A session closed while the
// caller was waiting for the lock is reported as unknown.
func (st *sessionStore) with(id string, fn func(cs *captureSession) error) error {
	st.mu.Lock()
	cs, ok := st.sessions[id]
	st.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.closed {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	cs.lastUsed = time.Now()
	return fn(cs)
}

// close ends a session. The caller must hold cs.mu.
func (st *sessionStore) close(cs *captureSession) {
	cs.closed = true
	st.mu.Lock()
	delete(st.sessions, cs.id)
	st.mu.Unlock()
}

// sweep discards sessions idle for longer than maxIdle and returns how many
// were discarded. Sessions busy with a tool call are left alone.
func (st *sessionStore) sweep(now time.Time, maxIdle time.Duration) int {
	st.mu.Lock()
	all := make([]*captureSession, 0, len(st.sessions))
	for _, cs := range st.sessions {
		all = append(all, cs)
	}
	st.mu.Unlock()

	n := 0
	for _, cs := range all {
		if !cs.mu.TryLock() {
			continue
		}
		if !cs.closed && now.Sub(cs.lastUsed) > maxIdle {
			st.close(cs)
			n++
		}
		cs.mu.Unlock()
	}
	return n
}

func (st *sessionStore) len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
