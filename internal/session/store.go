package session

import (
	"context"
	"sync"
	"time"

	"github.com/actuallystonmai/song-recommendation-service/internal/domain"
)

// Store keeps sessions by token. Update must run fn with exclusive access
// to that one session, so concurrent ratings on a token are never lost,
// while different tokens proceed independently. Get and Update return
// domain.ErrUnknownSession for tokens that are absent or expired.
type Store interface {
	Put(ctx context.Context, s *Session) error
	Get(ctx context.Context, token string) (*Session, error)
	Update(ctx context.Context, token string, fn func(*Session) error) error
	Delete(ctx context.Context, token string) error
}

type entry struct {
	mu      sync.Mutex
	sess    *Session
	expires time.Time
	deleted bool
}

// MemoryStore is an in-process Store. The map lock only guards membership;
// each session has its own lock.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore returns a store whose sessions expire ttl after their last
// write. A zero ttl keeps sessions until deleted.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStore) expiry() time.Time {
	if m.ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(m.ttl)
}

func (m *MemoryStore) expired(e *entry) bool {
	return !e.expires.IsZero() && !m.now().Before(e.expires)
}

func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.entries[s.Token]; ok {
		old.mu.Lock()
		old.deleted = true
		old.mu.Unlock()
	}
	m.entries[s.Token] = &entry{sess: s.Clone(), expires: m.expiry()}
	return nil
}

func (m *MemoryStore) lookup(token string) (*entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[token]
	return e, ok
}

func (m *MemoryStore) Get(_ context.Context, token string) (*Session, error) {
	e, ok := m.lookup(token)
	if !ok {
		return nil, domain.ErrUnknownSession
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted || m.expired(e) {
		return nil, domain.ErrUnknownSession
	}
	return e.sess.Clone(), nil
}

// Update applies fn to a copy of the session and stores the copy only when
// fn succeeds.
func (m *MemoryStore) Update(_ context.Context, token string, fn func(*Session) error) error {
	e, ok := m.lookup(token)
	if !ok {
		return domain.ErrUnknownSession
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted || m.expired(e) {
		return domain.ErrUnknownSession
	}

	next := e.sess.Clone()
	if err := fn(next); err != nil {
		return err
	}
	e.sess = next
	e.expires = m.expiry()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	e, ok := m.entries[token]
	delete(m.entries, token)
	m.mu.Unlock()
	if ok {
		e.mu.Lock()
		e.deleted = true
		e.mu.Unlock()
	}
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for token, e := range m.entries {
		e.mu.Lock()
		if m.expired(e) {
			e.deleted = true
			delete(m.entries, token)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 && onSweep != nil {
				onSweep(n)
			}
		}
	}
}

var _ Store = (*MemoryStore)(nil)
