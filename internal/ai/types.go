// Package ai implements the AI session manager of spec.md §4.2: it owns
// every live conversation's history and in-flight streaming request, and
// is the only producer of parsed command suggestions. Grounded on the
// teacher's internal/nuggets package (SummarizerConfig/Summarizer shape,
// ErrAPIError), extended from the teacher's one-shot Extract call into a
// streaming, multi-session manager.
package ai

import (
	"strings"
	"sync"
	"time"

	"github.com/rustyterm/rustyterm/internal/appevent"
)

// SessionID identifies one conversation thread. Monotonically assigned by
// the Manager, never reused (spec.md §3 "AI session").
type SessionID int64

// Role identifies the speaker of a Turn.
type Role int

const (
	RoleSystem Role = iota
	RoleUser
	RoleAssistant
	RoleTool
)

func (r Role) String() string {
	switch r {
	case RoleSystem:
		return "system"
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	case RoleTool:
		return "tool"
	default:
		return "unknown"
	}
}

// Turn is one entry in a session's conversation history.
type Turn struct {
	Role    Role
	Content string
	At      time.Time
}

// ContextSnapshot is the immutable record captured per message
// (spec.md §3, §4.5): never mutated after construction. ID correlates a
// snapshot with the prompt it was assembled into; SendMessage assigns a
// fresh uuid when it is empty.
type ContextSnapshot struct {
	ID            string
	Cwd           string
	EnvVars       []EnvVar
	RecentHistory []string
}

// EnvVar is one filtered environment entry included in a context
// snapshot (spec.md §4.2: "HOME, SHELL, USER, PATH, PWD by default").
type EnvVar struct {
	Key, Value string
}

// Session holds one conversation's live state. Mutated only by the
// Manager that owns it (spec.md §3 invariant: "mutated only by the
// session manager").
type Session struct {
	ID SessionID

	mu            sync.Mutex
	history       []Turn
	streamingBuf  strings.Builder
	streaming     bool
	cancel        func()
	lastSuggestion *appevent.Suggestion
}

func newSession(id SessionID) *Session {
	return &Session{ID: id}
}

// IsStreaming reports whether a request is currently in flight.
func (s *Session) IsStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// History returns a copy of the session's turn history.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// CurrentResponse returns the partially-accumulated assistant text for an
// in-flight stream (empty when idle, per spec.md §3).
func (s *Session) CurrentResponse() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamingBuf.String()
}

// LastSuggestion returns the most recently recorded command suggestion,
// if any (spec.md §4.2 get_last_suggestion).
func (s *Session) LastSuggestion() (appevent.Suggestion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSuggestion == nil {
		return appevent.Suggestion{}, false
	}
	return *s.lastSuggestion, true
}
