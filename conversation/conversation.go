package conversation

import (
	"sync"

	models "github.com/novachat/nova/models"
)

// Store holds the ordered message list for one active session. It is the
// single mutation entry point for the transcript: the streaming transport
// never touches the slice directly, which keeps the in-order append invariant
// enforceable away from network code.
//
// One Store belongs to one conversation. Concurrent streams across different
// conversations use separate Stores and share nothing.
type Store struct {
	mu        sync.Mutex
	messages  []models.Message
	streaming bool // true while the last assistant message is still receiving deltas
}

// New creates an empty conversation store.
func New() *Store {
	return &Store{}
}

// Append adds a message to the end and returns the new snapshot.
func (s *Store) Append(msg models.Message) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, msg)
	s.streaming = false
	return s.snapshotLocked()
}

// AppendOrExtendAssistant concatenates delta onto the in-progress assistant
// message, creating one seeded with delta if none is streaming. Incremental
// network chunks become a single growing message rather than many bubbles.
// Deltas must arrive in order; the transport guarantees that.
func (s *Store) AppendOrExtendAssistant(delta string) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.streaming && len(s.messages) > 0 {
		last := &s.messages[len(s.messages)-1]
		if last.Role == models.RoleAssistant {
			last.Content += delta
			return s.snapshotLocked()
		}
	}

	s.messages = append(s.messages, models.NewMessage(models.RoleAssistant, delta))
	s.streaming = true
	return s.snapshotLocked()
}

// FinishAssistant freezes the in-progress assistant message. Safe to call
// when nothing is streaming. Already-rendered content is kept either way, so
// a failed stream leaves prior messages intact.
func (s *Store) FinishAssistant() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaming = false
}

// Streaming reports whether an assistant message is still being extended.
func (s *Store) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// ReplaceAll swaps in a saved session's message list.
func (s *Store) ReplaceAll(messages []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = make([]models.Message, len(messages))
	copy(s.messages, messages)
	s.streaming = false
}

// Snapshot returns a copy of the current message list.
func (s *Store) Snapshot() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *Store) snapshotLocked() []models.Message {
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}
