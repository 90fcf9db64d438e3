package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"gtd-backend/genai"
)

// ErrSessionNotFound covers both never-existed and already-evicted ids;
// clients cannot tell the difference and should start a new game.
var ErrSessionNotFound = errors.New("session not found or expired")

// Session is the full server-side state of one running game. It is a plain
// JSON-serializable value so every store implementation shares it.
type Session struct {
	ID        string          `json:"id"`
	GameData  *GameData       `json:"gameData"`
	History   []genai.Message `json:"history"`
	StartedAt time.Time       `json:"startedAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// SessionStore keeps running sessions between turns.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	Len(ctx context.Context) (int, error)
}

// MemoryStore holds sessions in-process with idle-TTL eviction, so
// abandoned games do not accumulate for the lifetime of the server.
type MemoryStore struct {
	mu   sync.RWMutex
	ttl  time.Duration
	data map[string]*Session
	stop chan struct{}
	once sync.Once
}

// NewMemoryStore starts a store whose janitor evicts sessions idle longer
// than ttl. A non-positive ttl defaults to 2 hours.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	s := &MemoryStore{
		ttl:  ttl,
		data: make(map[string]*Session),
		stop: make(chan struct{}),
	}
	go s.janitor()
	return s
}

func (s *MemoryStore) janitor() {
	interval := s.ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.sweep(time.Now())
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.data {
		if now.Sub(sess.UpdatedAt) > s.ttl {
			delete(s.data, id)
		}
	}
}

// Close stops the janitor goroutine.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.data[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *MemoryStore) Put(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sess.ID] = sess
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}
