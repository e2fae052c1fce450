package analysis

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fixmystore/audit-engine/internal/application"
	"github.com/fixmystore/audit-engine/internal/domain/audit"
)

// Registry keeps live sessions in memory so HTTP readers can find them.
// Sessions are per-interaction garbage: finished ones age out after the TTL.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	clock    application.Clock
}

func NewRegistry(ttl time.Duration, clock application.Clock) *Registry {
	if ttl <= 0 {
		ttl = time.Hour
	}
	r := &Registry{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		clock:    clock,
	}
	go r.cleanup()
	return r
}

// Create makes a fresh session for a new audit request.
func (r *Registry) Create(url string) *Session {
	sess := NewSession(uuid.New().String(), url, r.clock.Now())
	r.mu.Lock()
	r.sessions[sess.ID] = sess
	r.mu.Unlock()
	return sess
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	if !ok {
		return nil, audit.ErrSessionNotFound
	}
	return sess, nil
}

// Delete drops a session immediately (the explicit reset operation).
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if ok {
		sess.Events().Close()
	}
}

func (r *Registry) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := r.clock.Now()
		r.mu.Lock()
		var evicted []*Session
		for id, sess := range r.sessions {
			if now.Sub(sess.CreatedAt) > r.ttl {
				delete(r.sessions, id)
				evicted = append(evicted, sess)
			}
		}
		r.mu.Unlock()
		for _, sess := range evicted {
			sess.Events().Close()
		}
	}
}
