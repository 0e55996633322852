package conversation

import "sync"

// Store is the append-only message log plus the display language selector.
type Store struct {
	mu       sync.RWMutex
	messages []Message
	index    map[string]int
	display  Language
	primary  Language
}

// NewStore seeds a session with one greeting message.
func NewStore(greeting string, primary Language) *Store {
	s := &Store{display: primary, primary: primary}
	s.Reset(greeting)
	return s
}

// Append adds a message to the end of the log.
func (s *Store) Append(m Message) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index[m.ID] = len(s.messages)
	s.messages = append(s.messages, m)
	return m
}

// Reset clears the log and reseeds it with a single assistant greeting.
func (s *Store) Reset(greeting string) {
	if greeting == "" {
		greeting = DefaultGreeting
	}
	first := NewMessage(RoleAssistant, greeting)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = []Message{first}
	s.index = map[string]int{first.ID: 0}
}

// Snapshot returns a copy of the current ordered log.
func (s *Store) Snapshot() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len reports the number of messages in the log.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Get returns the message with the given identity.
func (s *Store) Get(id string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return Message{}, false
	}
	return s.messages[i], true
}

// SetSecondary records a secondary rendering for a message. The first value
// wins; later calls and unknown identities are ignored.
func (s *Store) SetSecondary(id, text string) bool {
	if text == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok || s.messages[i].Secondary != "" {
		return false
	}
	s.messages[i].Secondary = text
	return true
}

// DisplayLanguage returns the active display selector.
func (s *Store) DisplayLanguage() Language {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.display
}

// SetDisplayLanguage changes rendering only; stored text is untouched.
func (s *Store) SetDisplayLanguage(lang Language) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.display = lang
}

// ShowingSecondary reports whether the display selector is off the primary language.
func (s *Store) ShowingSecondary() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.display != s.primary
}
