// File path: internal/conversation/store.go
package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nicodishanthj/Katral_insight/internal/kb/model"
)

// ErrNotFound is returned for conversation ids the store does not hold.
var ErrNotFound = errors.New("conversation: not found")

// Conversation is a snapshot of one conversation's messages.
type Conversation struct {
	ID        string          `json:"conversation_id"`
	Messages  []model.Message `json:"messages"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store owns conversations. Implementations must be safe for concurrent
// use; requests for different ids never block each other on appends.
type Store interface {
	// GetOrCreate returns the id to use and whether the conversation was
	// created by this call. An empty id generates a new one.
	GetOrCreate(ctx context.Context, id string) (string, bool, error)
	Append(ctx context.Context, id string, msg model.Message) error
	Get(ctx context.Context, id string) (Conversation, error)
	Delete(ctx context.Context, id string) error
}

type entry struct {
	mu        sync.Mutex
	messages  []model.Message
	createdAt time.Time
}

// MemoryStore keeps conversations in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
	newID   func() string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
		newID:   uuid.NewString,
	}
}

func (s *MemoryStore) GetOrCreate(_ context.Context, id string) (string, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = s.newID()
	}
	s.mu.RLock()
	_, ok := s.entries[id]
	s.mu.RUnlock()
	if ok {
		return id, false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; ok {
		return id, false, nil
	}
	s.entries[id] = &entry{createdAt: time.Now().UTC()}
	return id, true, nil
}

func (s *MemoryStore) Append(_ context.Context, id string, msg model.Message) error {
	e := s.lookup(id)
	if e == nil {
		return ErrNotFound
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	msg.Rows = model.CloneRows(msg.Rows)
	e.mu.Lock()
	e.messages = append(e.messages, msg)
	e.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Conversation, error) {
	e := s.lookup(id)
	if e == nil {
		return Conversation{}, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	messages := make([]model.Message, len(e.messages))
	for i, msg := range e.messages {
		msg.Rows = model.CloneRows(msg.Rows)
		messages[i] = msg
	}
	return Conversation{ID: id, Messages: messages, CreatedAt: e.createdAt}, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

// Len reports how many conversations are held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) lookup(id string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[id]
}
