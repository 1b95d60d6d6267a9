package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xiaot623/gogo/imagechat/internal/adapter/llm"
	"github.com/xiaot623/gogo/imagechat/internal/domain"
	"github.com/xiaot623/gogo/imagechat/internal/repository"
)

// Manager owns the live sessions of the process.
type Manager struct {
	store     store.Store
	newClient llm.ClientFactory

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager.
func NewManager(s store.Store, factory llm.ClientFactory) *Manager {
	return &Manager{
		store:     s,
		newClient: factory,
		sessions:  make(map[string]*Session),
	}
}

// Create starts a new session.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	now := time.Now()
	rec := &domain.Session{
		SessionID: "sess_" + uuid.New().String(),
		CreatedAt: now,
	}
	if err := m.store.CreateSession(ctx, rec); err != nil {
		return nil, err
	}

	sess := &Session{
		id:         rec.SessionID,
		createdAt:  now,
		store:      m.store,
		newClient:  m.newClient,
		lastActive: now,
	}

	m.mu.Lock()
	m.sessions[sess.id] = sess
	m.mu.Unlock()

	log.Printf("Session created: %s", sess.id)
	return sess, nil
}

// Get returns a live session or ErrSessionNotFound.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

// GetOrCreate returns the session with the given ID, or a new one when the ID
// is empty or unknown.
func (m *Manager) GetOrCreate(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID != "" {
		if sess, err := m.Get(sessionID); err == nil {
			return sess, nil
		}
	}
	return m.Create(ctx)
}

// End destroys a session and its transcript.
func (m *Manager) End(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	_, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}
	if err := m.store.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	log.Printf("Session ended: %s", sessionID)
	return nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// InUseFunc reports whether a session still has a client attached.
type InUseFunc func(sessionID string) bool

// Sweep ends sessions idle for longer than maxIdle and returns how many were
// removed. Sessions for which inUse reports true are kept however long they
// have been idle. A nil inUse treats every session as detached.
func (m *Manager) Sweep(ctx context.Context, maxIdle time.Duration, inUse InUseFunc) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.RLock()
	var expired []string
	for id, sess := range m.sessions {
		if !sess.idleSince().Before(cutoff) {
			continue
		}
		if inUse == nil || !inUse(id) {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	removed := 0
	for _, id := range expired {
		if err := m.End(ctx, id); err != nil {
			log.Printf("WARN: failed to expire session %s: %v", id, err)
			continue
		}
		removed++
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval, maxIdle time.Duration, inUse InUseFunc) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(ctx, maxIdle, inUse); n > 0 {
				log.Printf("Expired %d idle sessions", n)
			}
		}
	}
}
