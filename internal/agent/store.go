package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("session not found")

const maxIDAttempts = 3

// SessionStore holds sessions keyed by id.
type SessionStore interface {
	// Create stores a new session under a fresh id and returns it.
	Create(s Session) (Session, error)
	// Get returns a copy of the session.
	Get(id string) (Session, error)
	// Update runs fn on a private copy of the session and commits the copy
	// only when fn returns nil. Updates to one session run one at a time.
	Update(ctx context.Context, id string, fn func(*Session) error) (Session, error)
	// Len returns the number of live sessions.
	Len() int
}

// entry guards one session. lock serialises Update calls, which may block on
// remote calls; mu only guards reads and the final commit, so readers never
// wait on an in-flight update.
type entry struct {
	lock    chan struct{}
	mu      sync.RWMutex
	session Session
}

// MemoryStore is an in-memory implementation of SessionStore backed by
// go-cache. With a zero TTL sessions live as long as the process.
type MemoryStore struct {
	items *cache.Cache
	ttl   time.Duration
}

// NewMemoryStore creates a session store. ttl is a sliding expiry refreshed
// on every update; 0 disables eviction.
func NewMemoryStore(ttl, cleanupInterval time.Duration) *MemoryStore {
	expiry := cache.NoExpiration
	if ttl > 0 {
		expiry = ttl
	} else {
		cleanupInterval = 0
	}

	items := cache.New(expiry, cleanupInterval)
	items.OnEvicted(func(id string, _ any) {
		slog.Debug("session evicted", "session_id", id)
	})
	return &MemoryStore{items: items, ttl: ttl}
}

func (s *MemoryStore) Create(sess Session) (Session, error) {
	now := time.Now()
	sess = sess.clone()
	sess.CreatedAt = now
	sess.UpdatedAt = now

	for range maxIDAttempts {
		sess.ID = uuid.NewString()
		e := &entry{lock: make(chan struct{}, 1), session: sess}
		if err := s.items.Add(sess.ID, e, cache.DefaultExpiration); err == nil {
			return sess.clone(), nil
		}
	}
	return Session{}, fmt.Errorf("could not allocate a unique session id after %d attempts", maxIDAttempts)
}

func (s *MemoryStore) Get(id string) (Session, error) {
	e, ok := s.lookup(id)
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session.clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, fn func(*Session) error) (Session, error) {
	e, ok := s.lookup(id)
	if !ok {
		return Session{}, ErrSessionNotFound
	}

	select {
	case e.lock <- struct{}{}:
	case <-ctx.Done():
		return Session{}, ctx.Err()
	}
	defer func() { <-e.lock }()

	e.mu.RLock()
	work := e.session.clone()
	e.mu.RUnlock()

	if err := fn(&work); err != nil {
		return Session{}, err
	}
	work.ID = id
	work.UpdatedAt = time.Now()

	// Replace fails once the entry has expired, so a session that timed
	// out while fn ran stays gone.
	if s.ttl > 0 {
		if err := s.items.Replace(id, e, cache.DefaultExpiration); err != nil {
			return Session{}, ErrSessionNotFound
		}
	}

	e.mu.Lock()
	e.session = work
	e.mu.Unlock()
	return work.clone(), nil
}

func (s *MemoryStore) Len() int {
	return s.items.ItemCount()
}

func (s *MemoryStore) lookup(id string) (*entry, bool) {
	if id == "" {
		return nil, false
	}
	v, ok := s.items.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*entry), true
}
