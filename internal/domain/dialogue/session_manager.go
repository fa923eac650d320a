package dialogue

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/simplelru"

	"jan-server/services/plm-chat-api/internal/infrastructure/metrics"
)

const (
	evictCapacity = "capacity"
	evictIdle     = "idle"
)

type session struct {
	orchestrator *Orchestrator
	holds        int
}

// evictable is false while a caller holds the session or a Handle is running.
func (s *session) evictable() bool {
	return s.holds == 0 && !s.orchestrator.Busy()
}

// SessionManager maps session ids to their Orchestrator. It keeps at most
// maxSessions sessions, dropping the least recently used idle one beyond
// that. Sessions in use are never dropped, so the registry can run over
// capacity until they are released.
type SessionManager struct {
	mu          sync.Mutex
	sessions    *simplelru.LRU
	maxSessions int
	newSession  func() *Orchestrator
	idleTTL     time.Duration
}

func NewSessionManager(maxSessions int, idleTTL time.Duration, newSession func() *Orchestrator) (*SessionManager, error) {
	if maxSessions <= 0 {
		return nil, fmt.Errorf("create session cache: size must be positive, got %d", maxSessions)
	}
	// capacity is enforced by evictOverflow, never by the LRU itself
	cache, err := simplelru.NewLRU(math.MaxInt32, nil)
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	return &SessionManager{
		sessions:    cache,
		maxSessions: maxSessions,
		newSession:  newSession,
		idleTTL:     idleTTL,
	}, nil
}

// Session returns the orchestrator for id, creating it on first use.
// The session is not held; use Acquire or Handle to keep it registered
// while working with it.
func (m *SessionManager) Session(id string) *Orchestrator {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreate(id).orchestrator
}

// Acquire returns the orchestrator for id and holds it until release is
// called. A held session survives capacity eviction and idle sweeps.
func (m *SessionManager) Acquire(id string) (*Orchestrator, func()) {
	m.mu.Lock()
	s := m.getOrCreate(id)
	s.holds++
	m.mu.Unlock()

	var once sync.Once
	return s.orchestrator, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			s.holds--
			m.evictOverflow("")
		})
	}
}

// Handle answers utterance in the session id, holding the session for the
// duration of the call.
func (m *SessionManager) Handle(ctx context.Context, id, utterance string) (*Reply, error) {
	o, release := m.Acquire(id)
	defer release()
	return o.Handle(ctx, utterance)
}

// Clear empties the conversation of id. Unknown ids are ignored.
func (m *SessionManager) Clear(id string) {
	m.mu.Lock()
	v, ok := m.sessions.Peek(id)
	m.mu.Unlock()
	if ok {
		v.(*session).orchestrator.Clear()
	}
}

// SweepIdle drops sessions that have been idle longer than the TTL and are
// not in use. It returns how many were dropped.
func (m *SessionManager) SweepIdle(now time.Time) int {
	if m.idleTTL <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for _, key := range m.sessions.Keys() {
		v, ok := m.sessions.Peek(key)
		if !ok {
			continue
		}
		s := v.(*session)
		if !s.evictable() || now.Sub(s.orchestrator.LastActive()) < m.idleTTL {
			continue
		}
		if m.sessions.Remove(key) {
			metrics.RecordSessionEviction(evictIdle)
			removed++
		}
	}
	metrics.ActiveSessions.Set(float64(m.sessions.Len()))
	return removed
}

func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions.Len()
}

// getOrCreate runs with m.mu held.
func (m *SessionManager) getOrCreate(id string) *session {
	if v, ok := m.sessions.Get(id); ok {
		return v.(*session)
	}
	s := &session{orchestrator: m.newSession()}
	m.sessions.Add(id, s)
	m.evictOverflow(id)
	return s
}

// evictOverflow drops the least recently used evictable sessions until the
// registry fits, never touching keep. It runs with m.mu held.
func (m *SessionManager) evictOverflow(keep string) {
	if m.sessions.Len() > m.maxSessions {
		// Keys is ordered oldest first
		for _, key := range m.sessions.Keys() {
			if m.sessions.Len() <= m.maxSessions {
				break
			}
			if key == keep {
				continue
			}
			v, ok := m.sessions.Peek(key)
			if !ok || !v.(*session).evictable() {
				continue
			}
			if m.sessions.Remove(key) {
				metrics.RecordSessionEviction(evictCapacity)
			}
		}
	}
	metrics.ActiveSessions.Set(float64(m.sessions.Len()))
}
