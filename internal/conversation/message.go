// Package conversation owns the ordered message log of one chat session.
package conversation

import (
	"fmt"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Language is an ISO-639-1 code for a display or translation language.
type Language string

const (
	LanguageEnglish  Language = "en"
	LanguageJapanese Language = "ja"
)

// DefaultGreeting seeds a fresh session.
const DefaultGreeting = "Hello! I'm your AI assistant. How can I help you today?"

// ParseLanguage validates a language code against the supported set.
func ParseLanguage(raw string) (Language, error) {
	switch Language(raw) {
	case LanguageEnglish, LanguageJapanese:
		return Language(raw), nil
	default:
		return "", fmt.Errorf("unsupported language %q (want en or ja)", raw)
	}
}

// Message is one immutable conversation entry.
//
// Secondary holds the cached secondary-language rendering. It is empty until a
// translation fill succeeds and never changes afterwards.
type Message struct {
	ID        string
	Role      Role
	Text      string
	Secondary string
}

// NewMessage creates a message with a fresh identity.
func NewMessage(role Role, text string) Message {
	return Message{ID: uuid.NewString(), Role: role, Text: text}
}

// DisplayText returns the text to render under the given display mode.
func (m Message) DisplayText(secondary bool) string {
	if secondary && m.Secondary != "" {
		return m.Secondary
	}
	return m.Text
}

// Entry is the wire form of a message: role plus canonical text.
type Entry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Entries projects messages to their canonical {role, content} pairs.
func Entries(messages []Message) []Entry {
	out := make([]Entry, 0, len(messages))
	for _, m := range messages {
		out = append(out, Entry{Role: m.Role, Content: m.Text})
	}
	return out
}
