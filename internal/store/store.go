package store

import (
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNotFound        = errors.New("conversation not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrNoUserMessage   = errors.New("conversation has no user message")
)

// Titles are truncated to this many runes, plus an ellipsis.
const titleRuneLimit = 35

// ConversationStore is the single source of truth for the conversation list.
// Every mutation rewrites the persisted mirror in full; the mirror is read
// once at construction and malformed data degrades to an empty history.
type ConversationStore struct {
	mu     sync.Mutex
	kv     *SQLiteKV
	logger *zap.Logger
	now    func() time.Time

	conversations []Conversation
}

func NewConversationStore(kv *SQLiteKV, logger *zap.Logger) *ConversationStore {
	s := &ConversationStore{
		kv:     kv,
		logger: logger,
		now:    time.Now,
	}
	s.load()
	return s
}

func (s *ConversationStore) load() {
	raw, ok, err := s.kv.get(slotConversations)
	if err != nil {
		s.logger.Warn("could not read conversation history, starting empty", zap.Error(err))
		return
	}
	if !ok {
		return
	}

	var convs []Conversation
	if err := json.Unmarshal([]byte(raw), &convs); err != nil {
		s.logger.Warn("discarding malformed conversation history", zap.Error(err))
		return
	}
	s.conversations = convs
	s.sortLocked()
}

// DeriveTitle produces a conversation title from its first user message.
func DeriveTitle(firstUserText string) string {
	runes := []rune(firstUserText)
	if len(runes) > titleRuneLimit {
		return string(runes[:titleRuneLimit]) + "..."
	}
	return firstUserText
}

// Save upserts a conversation. An empty ID means "create": the conversation
// gets a fresh ID and a title derived from its first user message, and is
// prepended to the list. A known ID means "update": the message sequence is
// replaced wholesale and the date bumped; the title never changes. The list
// is re-sorted descending by date and the mirror rewritten either way.
func (s *ConversationStore) Save(conv Conversation) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if conv.ID == "" {
		first := firstUserMessage(conv.Messages)
		if first == nil {
			// A session with zero user messages is never persisted.
			return Conversation{}, ErrNoUserMessage
		}
		conv.ID = uuid.NewString()
		conv.Title = DeriveTitle(first.Text)
		conv.Date = now
		s.conversations = append([]Conversation{conv}, s.conversations...)
	} else {
		idx := s.indexLocked(conv.ID)
		if idx < 0 {
			return Conversation{}, ErrNotFound
		}
		s.conversations[idx].Messages = conv.Messages
		s.conversations[idx].Date = now
		conv = s.conversations[idx]
	}

	s.sortLocked()
	if err := s.persistLocked(); err != nil {
		return Conversation{}, err
	}
	return cloneConversation(conv), nil
}

// AmendMessage read-modify-writes one message of the latest snapshot,
// located by identity rather than position, then persists. Used by the
// image-completion path, which may run long after the conversation list or
// the active conversation has changed.
func (s *ConversationStore) AmendMessage(convID, msgID string, amend func(*Message)) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(convID)
	if idx < 0 {
		return Conversation{}, ErrNotFound
	}

	msgs := s.conversations[idx].Messages
	for i := range msgs {
		if msgs[i].ID != msgID {
			continue
		}
		amend(&msgs[i])
		s.conversations[idx].Date = s.now()
		s.sortLocked()
		if err := s.persistLocked(); err != nil {
			return Conversation{}, err
		}
		// The slice header may have moved during the sort.
		if j := s.indexLocked(convID); j >= 0 {
			return cloneConversation(s.conversations[j]), nil
		}
		return Conversation{}, ErrNotFound
	}
	return Conversation{}, ErrMessageNotFound
}

// Get returns a copy of the conversation with the given id.
func (s *ConversationStore) Get(id string) (Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return Conversation{}, false
	}
	return cloneConversation(s.conversations[idx]), true
}

// List returns a copy of the full conversation list, descending by date.
func (s *ConversationStore) List() []Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, cloneConversation(c))
	}
	return out
}

func (s *ConversationStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return ErrNotFound
	}
	s.conversations = append(s.conversations[:idx], s.conversations[idx+1:]...)
	return s.persistLocked()
}

func (s *ConversationStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = nil
	return s.kv.delete(slotConversations)
}

// Flush rewrites the mirror from the current in-memory list without mutating
// anything. Persisting an unchanged list is a no-op for dates and order.
func (s *ConversationStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

// BestScore returns the persisted quiz best score, zero when unset or
// unreadable.
func (s *ConversationStore) BestScore() int {
	raw, ok, err := s.kv.get(slotBestScore)
	if err != nil || !ok {
		if err != nil {
			s.logger.Warn("could not read best score", zap.Error(err))
		}
		return 0
	}
	score, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return score
}

// SetBestScore persists the score only when it beats the stored one. It
// reports whether a new high score was recorded.
func (s *ConversationStore) SetBestScore(score int) (bool, error) {
	if score <= s.BestScore() {
		return false, nil
	}
	if err := s.kv.put(slotBestScore, strconv.Itoa(score)); err != nil {
		return false, err
	}
	return true, nil
}

func (s *ConversationStore) indexLocked(id string) int {
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *ConversationStore) sortLocked() {
	sort.SliceStable(s.conversations, func(i, j int) bool {
		return s.conversations[i].Date.After(s.conversations[j].Date)
	})
}

func (s *ConversationStore) persistLocked() error {
	blob, err := json.Marshal(s.conversations)
	if err != nil {
		return err
	}
	return s.kv.put(slotConversations, string(blob))
}

func firstUserMessage(msgs []Message) *Message {
	for i := range msgs {
		if msgs[i].Role == RoleUser {
			return &msgs[i]
		}
	}
	return nil
}

func cloneConversation(c Conversation) Conversation {
	out := c
	out.Messages = append([]Message(nil), c.Messages...)
	return out
}
