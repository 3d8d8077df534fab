package service

import (
	"strings"
	"unicode"

	"github.com/Rrens/neuralizard/internal/domain"
)

// DefaultContextWindow is the number of turns a session keeps in memory.
const DefaultContextWindow = 50

// Turn is one entry of the in-memory context.
type Turn struct {
	Role    domain.MessageRole `json:"role"`
	Content string             `json:"content"`
}

// Window is a bounded, ordered list of recent turns. The oldest turn is
// evicted first.
type Window struct {
	capacity int
	turns    []Turn
}

// NewWindow creates a window holding at most capacity turns.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultContextWindow
	}
	return &Window{capacity: capacity}
}

// Append adds a turn, evicting from the front beyond capacity.
func (w *Window) Append(role domain.MessageRole, content string) {
	w.turns = append(w.turns, Turn{Role: role, Content: content})
	w.trim()
}

// Reset empties the window.
func (w *Window) Reset() {
	w.turns = nil
}

// Replace rebuilds the window from stored messages, keeping user and
// assistant messages with content.
func (w *Window) Replace(msgs []domain.Message) {
	w.turns = w.turns[:0]
	for _, m := range msgs {
		if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant {
			continue
		}
		if m.Content == "" {
			continue
		}
		w.turns = append(w.turns, Turn{Role: m.Role, Content: m.Content})
	}
	w.trim()
}

func (w *Window) trim() {
	if over := len(w.turns) - w.capacity; over > 0 {
		w.turns = append(w.turns[:0], w.turns[over:]...)
	}
}

// Len returns the number of turns held.
func (w *Window) Len() int {
	return len(w.turns)
}

// Turns returns a copy of the held turns, oldest first.
func (w *Window) Turns() []Turn {
	return append([]Turn(nil), w.turns...)
}

// Transcript renders the window as "User:"/"Assistant:" lines followed by
// the pending prompt and an "Assistant:" cue. The prompt is rendered even
// when it has already been appended to the window.
func (w *Window) Transcript(prompt string) string {
	var b strings.Builder
	for _, t := range w.turns {
		if t.Role == domain.RoleUser {
			b.WriteString("User: ")
		} else {
			b.WriteString("Assistant: ")
		}
		b.WriteString(t.Content)
		b.WriteByte('\n')
	}
	b.WriteString("User: ")
	b.WriteString(prompt)
	b.WriteString("\nAssistant:")
	return b.String()
}

// splitKeepSpace splits s into alternating runs of non-space and space,
// keeping every separator so the pieces concatenate back to s.
func splitKeepSpace(s string) []string {
	var (
		pieces []string
		start  int
		inRun  bool
	)
	for i, r := range s {
		space := unicode.IsSpace(r)
		if i == 0 {
			inRun = space
			continue
		}
		if space != inRun {
			pieces = append(pieces, s[start:i])
			start = i
			inRun = space
		}
	}
	if start < len(s) {
		pieces = append(pieces, s[start:])
	}
	return pieces
}
