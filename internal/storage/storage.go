package storage

import (
	"errors"
	"image"
	"sync"
	"time"

	"github.com/menta2k/image-eraser/pkg/selector"
	"github.com/menta2k/image-eraser/pkg/types"
)

// ErrStoreFull is returned by Set when the store is at capacity.
var ErrStoreFull = errors.New("session limit reached")

// Entry is one uploaded image with its authoring session. A selector.Session
// is single-threaded, so every access goes through Do.
type Entry struct {
	ID        string
	Filename  string
	CreatedAt time.Time

	mu         sync.Mutex
	image      image.Image
	session    *selector.Session
	selections []types.Selection
}

// NewEntry wraps img in a fresh session whose emitted selections are
// collected on the entry.
func NewEntry(id, filename string, img image.Image, opts selector.Options) *Entry {
	e := &Entry{
		ID:        id,
		Filename:  filename,
		CreatedAt: time.Now(),
		image:     img,
	}
	e.session = selector.New(func(sel types.Selection) {
		e.selections = append(e.selections, sel)
	}, opts)
	return e
}

// Do runs fn with exclusive access to the session.
func (e *Entry) Do(fn func(s *selector.Session) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.session)
}

// Image returns the decoded source image.
func (e *Entry) Image() image.Image { return e.image }

// TakeSelections returns the selections emitted since the last call.
func (e *Entry) TakeSelections() []types.Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.selections
	e.selections = nil
	return out
}

type SessionStore struct {
	sessions map[string]*Entry
	max      int
	mu       sync.RWMutex
}

// New creates a store holding at most max entries. max <= 0 means no limit.
func New(max int) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Entry),
		max:      max,
	}
}

func (s *SessionStore) Get(sessionID string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, exists := s.sessions[sessionID]
	return entry, exists
}

func (s *SessionStore) Set(sessionID string, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sessionID]; !exists && s.max > 0 && len(s.sessions) >= s.max {
		return ErrStoreFull
	}
	s.sessions[sessionID] = entry
	return nil
}

func (s *SessionStore) GetAll() map[string]*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]*Entry, len(s.sessions))
	for k, v := range s.sessions {
		result[k] = v
	}
	return result
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
