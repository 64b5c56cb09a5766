package conversation

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"codemate/internal/logging"
)

// Persister writes conversations through to durable storage.
type Persister interface {
	Save(c *Conversation) error
	Delete(id uuid.UUID) error
	LoadAll() ([]*Conversation, error)
}

// NopPersister keeps everything in memory only.
type NopPersister struct{}

func (NopPersister) Save(*Conversation) error        { return nil }
func (NopPersister) Delete(uuid.UUID) error          { return nil }
func (NopPersister) LoadAll() ([]*Conversation, error) { return nil, nil }

// Store manages the conversation set and the single active conversation.
// At least one conversation always exists; it is created lazily.
type Store struct {
	mu      sync.Mutex
	convs   map[uuid.UUID]*Conversation
	order   []uuid.UUID // most recently used first
	active  uuid.UUID
	persist Persister
	system  string // optional system prompt seeded into new conversations
	logger  *zap.Logger
	now     func() time.Time
}

// NewStore loads all persisted conversations and activates the most
// recently used one, creating a fresh conversation if none exist.
func NewStore(persist Persister, systemPrompt string) (*Store, error) {
	if persist == nil {
		persist = NopPersister{}
	}
	s := &Store{
		convs:   make(map[uuid.UUID]*Conversation),
		persist: persist,
		system:  systemPrompt,
		logger:  logging.Named("conversation"),
		now:     time.Now,
	}

	loaded, err := persist.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}
	sort.Slice(loaded, func(i, j int) bool {
		return loaded[i].UpdatedAt.After(loaded[j].UpdatedAt)
	})
	for _, c := range loaded {
		s.convs[c.ID] = c
		s.order = append(s.order, c.ID)
	}
	if len(s.order) > 0 {
		s.active = s.order[0]
	}
	s.logger.Info("conversation store loaded", zap.Int("conversations", len(loaded)))
	return s, nil
}

// New creates an empty conversation and makes it active.
func (s *Store) New() (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.createLocked()
	if err := s.persist.Save(c); err != nil {
		return Summary{}, fmt.Errorf("failed to persist new conversation: %w", err)
	}
	return Summary{ID: c.ID, Title: c.Title, CreatedAt: c.CreatedAt}, nil
}

// createLocked builds a new conversation and activates it. Caller holds mu.
func (s *Store) createLocked() *Conversation {
	c := &Conversation{
		ID:        uuid.New(),
		Title:     defaultTitle,
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	}
	if s.system != "" {
		c.Messages = append(c.Messages, Message{Role: RoleSystem, Content: s.system})
	}
	s.convs[c.ID] = c
	s.order = append([]uuid.UUID{c.ID}, s.order...)
	s.active = c.ID
	s.logger.Debug("conversation created", zap.String("id", c.ID.String()))
	return c
}

// activeLocked returns the active conversation, creating one lazily.
// Caller holds mu.
func (s *Store) activeLocked() *Conversation {
	if c, ok := s.convs[s.active]; ok {
		return c
	}
	return s.createLocked()
}

// Active returns a snapshot of the active conversation.
func (s *Store) Active() Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.activeLocked())
}

// AddMessage appends a message to the active conversation and persists.
// The first user message sets the conversation title.
func (s *Store) AddMessage(role Role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.activeLocked()
	c.Messages = append(c.Messages, Message{Role: role, Content: content})
	c.UpdatedAt = s.now()
	if role == RoleUser && c.Title == defaultTitle {
		c.Title = titleFrom(content)
	}
	s.touchLocked(c.ID)

	if err := s.persist.Save(c); err != nil {
		return fmt.Errorf("failed to persist message: %w", err)
	}
	return nil
}

// RemoveLastMessage rolls back the most recent message of the active
// conversation. Used to undo the user turn of a failed model call so no
// partially-added exchange survives.
func (s *Store) RemoveLastMessage() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.activeLocked()
	if len(c.Messages) == 0 {
		return nil
	}
	c.Messages = c.Messages[:len(c.Messages)-1]
	c.UpdatedAt = s.now()

	if err := s.persist.Save(c); err != nil {
		return fmt.Errorf("failed to persist rollback: %w", err)
	}
	return nil
}

// Switch activates the conversation with the given id.
func (s *Store) Switch(id uuid.UUID) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[id]
	if !ok {
		return Conversation{}, fmt.Errorf("unknown conversation %s", id)
	}
	s.active = id
	s.touchLocked(id)
	return snapshot(c), nil
}

// Delete removes a conversation. Deleting the active one promotes the most
// recently used remaining conversation; if none remain, a fresh one is
// created lazily on next access.
func (s *Store) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.convs[id]; !ok {
		return fmt.Errorf("unknown conversation %s", id)
	}
	delete(s.convs, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.active == id {
		if len(s.order) > 0 {
			s.active = s.order[0]
		} else {
			s.active = uuid.Nil
		}
	}
	if err := s.persist.Delete(id); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	s.logger.Debug("conversation deleted", zap.String("id", id.String()))
	return nil
}

// Summaries lists every conversation, most recently used first.
func (s *Store) Summaries() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Summary, 0, len(s.order))
	for _, id := range s.order {
		c := s.convs[id]
		out = append(out, Summary{ID: c.ID, Title: c.Title, CreatedAt: c.CreatedAt})
	}
	return out
}

// Window returns the trimmed rolling window sent to the chat endpoint:
// the system message, if any, followed by the last pairLimit exchange
// pairs plus the newest user message.
func (s *Store) Window(pairLimit int) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.activeLocked()
	var system *Message
	rest := make([]Message, 0, len(c.Messages))
	for i := range c.Messages {
		if c.Messages[i].Role == RoleSystem && system == nil {
			m := c.Messages[i]
			system = &m
			continue
		}
		rest = append(rest, c.Messages[i])
	}

	keep := pairLimit*2 + 1
	if keep < len(rest) {
		rest = rest[len(rest)-keep:]
	}

	if system != nil {
		return append([]Message{*system}, rest...)
	}
	return rest
}

// touchLocked moves id to the front of the recency order. Caller holds mu.
func (s *Store) touchLocked(id uuid.UUID) {
	for i, oid := range s.order {
		if oid == id {
			if i > 0 {
				s.order = append(s.order[:i], s.order[i+1:]...)
				s.order = append([]uuid.UUID{id}, s.order...)
			}
			return
		}
	}
	s.order = append([]uuid.UUID{id}, s.order...)
}

func snapshot(c *Conversation) Conversation {
	out := *c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return out
}
