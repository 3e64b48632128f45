package assistant

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mnoushir/site-assistant/internal/config"
	"github.com/mnoushir/site-assistant/internal/profile"
	"github.com/mnoushir/site-assistant/pkg/logger"
)

var (
	// ErrNotFound is returned for operations on an unknown session ID
	ErrNotFound = errors.New("session not found")

	// ErrTooManySessions is returned when the open-session cap is reached
	ErrTooManySessions = errors.New("too many open sessions")
)

// Manager owns the open assistant sessions: creation, lookup, idle
// reaping and shutdown.
type Manager struct {
	cfg        config.AssistantConfig
	bookingCfg config.BookingConfig
	profile    *profile.Profile
	client     BackendAPI
	publisher  Publisher
	router     *Router
	logger     *logger.Logger

	sessions   map[string]*Session
	sessionsMu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a session manager and starts its cleanup task
func NewManager(cfg config.AssistantConfig, bookingCfg config.BookingConfig, prof *profile.Profile, client BackendAPI, publisher Publisher, log *logger.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		cfg:        cfg,
		bookingCfg: bookingCfg,
		profile:    prof,
		client:     client,
		publisher:  publisher,
		router:     NewRouter(cfg.BookingPhrases),
		logger:     log.Named("session-manager"),
		sessions:   make(map[string]*Session),
		ctx:        ctx,
		cancel:     cancel,
	}

	m.wg.Add(1)
	go m.cleanupTask()

	return m
}

// CreateSession opens a new session and runs its initial health check
func (m *Manager) CreateSession(ctx context.Context) (*Session, error) {
	m.sessionsMu.Lock()
	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		m.sessionsMu.Unlock()
		m.logger.Warn("Session cap reached", logger.Int("max_sessions", m.cfg.MaxSessions))
		return nil, ErrTooManySessions
	}

	id := uuid.NewString()
	session := NewSession(id, m.profile, m.client, m.router, m.bookingCfg, m.publisher, m.logger)
	m.sessions[id] = session
	count := len(m.sessions)
	m.sessionsMu.Unlock()

	session.Activate(ctx)

	m.logger.Info("Session created",
		logger.String("session_id", id),
		logger.Int("open_sessions", count))
	return session, nil
}

// GetSession retrieves an open session by ID
func (m *Manager) GetSession(id string) (*Session, error) {
	m.sessionsMu.RLock()
	session, ok := m.sessions[id]
	m.sessionsMu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return session, nil
}

// CloseSession closes and removes a session
func (m *Manager) CloseSession(id string) error {
	m.sessionsMu.Lock()
	session, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.sessionsMu.Unlock()

	if !ok {
		return ErrNotFound
	}
	session.Close()
	return nil
}

// Count returns the number of open sessions
func (m *Manager) Count() int {
	m.sessionsMu.RLock()
	defer m.sessionsMu.RUnlock()
	return len(m.sessions)
}

// cleanupTask periodically reaps idle sessions
func (m *Manager) cleanupTask() {
	defer m.wg.Done()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.reapIdleSessions()
		}
	}
}

// reapIdleSessions closes sessions idle for longer than the configured TTL
func (m *Manager) reapIdleSessions() {
	if m.cfg.SessionTTLMinutes <= 0 {
		return
	}
	cutoff := time.Now().UTC().Add(-time.Duration(m.cfg.SessionTTLMinutes) * time.Minute)

	m.sessionsMu.Lock()
	var expired []*Session
	for id, session := range m.sessions {
		if session.LastActivity().Before(cutoff) {
			expired = append(expired, session)
			delete(m.sessions, id)
		}
	}
	m.sessionsMu.Unlock()

	for _, session := range expired {
		session.Close()
		m.logger.Info("Reaped idle session", logger.String("session_id", session.ID()))
	}
}

// Shutdown closes every open session and stops background tasks
func (m *Manager) Shutdown(ctx context.Context) error {
	m.cancel()

	m.sessionsMu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, session := range m.sessions {
		sessions = append(sessions, session)
		delete(m.sessions, id)
	}
	m.sessionsMu.Unlock()

	for _, session := range sessions {
		session.Close()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
