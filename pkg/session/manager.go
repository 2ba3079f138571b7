// Package session owns the session store and the background expiry loop
// that reaps inactive sessions.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/northfold/agentrelay/pkg/store"
)

// DefaultTimeout is how long a session may sit idle before it is eligible
// for cleanup.
const DefaultTimeout = time.Hour

// DefaultCleanupInterval is how often the background loop sweeps for
// expired sessions when AutoCleanup is enabled.
const DefaultCleanupInterval = 5 * time.Minute

// Config controls a Manager's timeout and cleanup behavior.
type Config struct {
	Timeout         time.Duration
	CleanupInterval time.Duration
	AutoCleanup     bool
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = DefaultCleanupInterval
	}
	return c
}

// Manager manages session lifecycle: lookup/creation and automatic
// background expiry.
type Manager struct {
	store  store.SessionStore
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewManager builds a Manager over store. cfg's zero values resolve to
// DefaultTimeout/DefaultCleanupInterval.
func NewManager(sessionStore store.SessionStore, cfg Config) *Manager {
	return &Manager{
		store:  sessionStore,
		cfg:    cfg.withDefaults(),
		logger: slog.Default(),
	}
}

// Timeout returns the configured session inactivity timeout.
func (m *Manager) Timeout() time.Duration { return m.cfg.Timeout }

// Start launches the background expiry loop if AutoCleanup is set. Start is
// idempotent: calling it while already running is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	if !m.cfg.AutoCleanup {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.cleanupLoop(ctx)
}

// Stop cancels the expiry loop and waits for it to exit. Stop is idempotent.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (m *Manager) cleanupLoop(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := m.store.CleanupExpired(ctx, m.cfg.Timeout)
			if err != nil {
				m.logger.Error("session cleanup failed", "error", err)
				continue
			}
			if count > 0 {
				m.logger.Info("cleaned up expired sessions", "count", count)
			}
		}
	}
}

// GetOrCreateSession returns the session identified by sessionID if present,
// touching LastActive; otherwise it creates a new session for
// (userID, assistantID). Touching LastActive happens explicitly here — the
// underlying store's Update never does it implicitly.
func (m *Manager) GetOrCreateSession(ctx context.Context, userID, assistantID, sessionID string) (store.Session, error) {
	if sessionID != "" {
		sess, err := m.store.Get(ctx, sessionID)
		if err == nil {
			sess.LastActive = time.Now().UTC()
			if updateErr := m.store.Update(ctx, sess); updateErr != nil {
				return store.Session{}, updateErr
			}
			return sess, nil
		}
	}

	sess, err := m.store.Create(ctx, userID, assistantID)
	if err != nil {
		return store.Session{}, err
	}
	m.logger.Info("created new session", "session_id", sess.SessionID, "user_id", userID)
	return sess, nil
}

// GetSession returns the session by id. A found-but-expired session is
// deleted and reported as not-found.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (store.Session, error) {
	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return store.Session{}, err
	}
	if time.Since(sess.LastActive) > m.cfg.Timeout {
		_ = m.store.Delete(ctx, sessionID)
		m.logger.Info("session expired and deleted", "session_id", sessionID)
		return store.Session{}, store.ErrNotFound
	}
	return sess, nil
}

// DeleteSession removes a session unconditionally.
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, sessionID)
}

// ListUserSessions returns a user's non-expired sessions, deleting any
// expired rows it encounters along the way.
func (m *Manager) ListUserSessions(ctx context.Context, userID string) ([]store.Session, error) {
	sessions, err := m.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	active := make([]store.Session, 0, len(sessions))
	for _, sess := range sessions {
		if time.Since(sess.LastActive) > m.cfg.Timeout {
			_ = m.store.Delete(ctx, sess.SessionID)
			continue
		}
		active = append(active, sess)
	}
	return active, nil
}
