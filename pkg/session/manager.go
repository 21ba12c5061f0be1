package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/sakura"
	"github.com/aretw0/sakura/internal/logging"
	"github.com/aretw0/sakura/pkg/domain"
	"github.com/aretw0/sakura/pkg/ports"
)

const (
	defaultLockTTL        = 30 * time.Second
	defaultPublishTimeout = 5 * time.Second
)

// Factory builds the workspace of a new session.
type Factory func() (*sakura.Workspace, error)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// entry is one live session.
type entry struct {
	ws          *sakura.Workspace
	createdAt   time.Time
	unsubscribe func()

	mu   sync.Mutex
	seq  uint64
	last *domain.Artifact
}

// Info describes a live session.
type Info struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Sequence  uint64    `json:"sequence"`
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	factory Factory

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	sessMu   sync.RWMutex
	sessions map[string]*entry

	publishers []ports.SnapshotPublisher
	locker     ports.DistributedLocker // Optional distributed locker
	lockTTL    time.Duration
	logger     *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks (default 30s).
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithPublisher adds a publisher receiving every snapshot event.
func WithPublisher(p ports.SnapshotPublisher) Option {
	return func(m *Manager) {
		m.publishers = append(m.publishers, p)
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new session manager. factory builds each session's workspace;
// when nil, sakura.New with default options is used.
func NewManager(factory Factory, opts ...Option) *Manager {
	if factory == nil {
		factory = func() (*sakura.Workspace, error) { return sakura.New() }
	}
	m := &Manager{
		factory:  factory,
		locks:    make(map[string]*lockEntry),
		sessions: make(map[string]*entry),
		lockTTL:  defaultLockTTL,
		logger:   logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, exists := m.locks[sessionID]
	if !exists {
		e = &lockEntry{}
		m.locks[sessionID] = e
	}
	e.refs++
	return e
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, exists := m.locks[sessionID]
	if !exists {
		return
	}

	e.refs--
	if e.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Create starts a session. An empty id gets a random UUID.
func (m *Manager) Create(ctx context.Context, id string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}

	err := m.withLock(ctx, id, func(ctx context.Context) error {
		if m.Exists(id) {
			return fmt.Errorf("%w: %s", domain.ErrSessionExists, id)
		}

		ws, err := m.factory()
		if err != nil {
			return fmt.Errorf("failed to create workspace: %w", err)
		}

		e := &entry{ws: ws, createdAt: time.Now()}
		e.unsubscribe = ws.Subscribe(func(art *domain.Artifact) {
			m.publish(id, e, art)
		})

		m.sessMu.Lock()
		m.sessions[id] = e
		m.sessMu.Unlock()
		return nil
	})
	if err != nil {
		return "", err
	}

	m.logger.Info("session created", "session_id", id)
	return id, nil
}

// WithWorkspace runs fn with exclusive access to the session's workspace.
func (m *Manager) WithWorkspace(ctx context.Context, id string, fn func(ctx context.Context, ws *sakura.Workspace) error) error {
	return m.withLock(ctx, id, func(ctx context.Context) error {
		e, err := m.get(id)
		if err != nil {
			return err
		}
		return fn(ctx, e.ws)
	})
}

// Workspace returns the session's workspace for reading. Mutations must go through
// WithWorkspace.
func (m *Manager) Workspace(id string) (*sakura.Workspace, error) {
	e, err := m.get(id)
	if err != nil {
		return nil, err
	}
	return e.ws, nil
}

// Delete ends a session.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.withLock(ctx, id, func(ctx context.Context) error {
		m.sessMu.Lock()
		e, ok := m.sessions[id]
		delete(m.sessions, id)
		m.sessMu.Unlock()

		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
		}
		e.unsubscribe()
		m.logger.Info("session deleted", "session_id", id)
		return nil
	})
}

// Exists reports whether a session is live.
func (m *Manager) Exists(id string) bool {
	m.sessMu.RLock()
	defer m.sessMu.RUnlock()
	_, ok := m.sessions[id]
	return ok
}

// List returns the live session IDs, sorted.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	m.sessMu.RLock()
	defer m.sessMu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Info returns the metadata of a session.
func (m *Manager) Info(id string) (Info, error) {
	e, err := m.get(id)
	if err != nil {
		return Info{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return Info{ID: id, CreatedAt: e.createdAt, Sequence: e.seq}, nil
}

func (m *Manager) get(id string) (*entry, error) {
	m.sessMu.RLock()
	defer m.sessMu.RUnlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return e, nil
}

// withLock executes a function while holding the lock for the session.
func (m *Manager) withLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	e := m.acquire(sessionID)
	e.mu.Lock()
	defer func() {
		e.mu.Unlock()
		m.release(sessionID)
	}()

	// Distributed Locking
	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// publish turns a workspace notification into a snapshot event.
// Notifications that change nothing are dropped.
func (m *Manager) publish(id string, e *entry, art *domain.Artifact) {
	e.mu.Lock()
	var ev domain.SnapshotEvent
	if art == nil {
		if e.last == nil {
			e.mu.Unlock()
			return
		}
		e.last = nil
		ev = domain.SnapshotEvent{Reset: true}
	} else {
		diff := domain.Diff(e.last, art)
		if diff == nil {
			e.mu.Unlock()
			return
		}
		e.last = art
		ev = domain.SnapshotEvent{Artifact: art, Diff: diff}
	}
	e.seq++
	ev.SessionID = id
	ev.Sequence = e.seq
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultPublishTimeout)
	defer cancel()
	for _, p := range m.publishers {
		if err := p.Publish(ctx, ev); err != nil {
			m.logger.Error("failed to publish snapshot", "session_id", id, "sequence", ev.Sequence, "err", err)
		}
	}
}
