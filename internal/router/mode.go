// Package router implements the Event Router & Mode Machine of spec.md
// §4.4: it owns focus, mode, and dispatches every keyboard/mouse event
// exactly once across the terminal host, AI manager, and security gate.
// Grounded on the teacher's internal/layout/manager.go LayoutManager
// (single ActivePanel-style state value, HandleEvent dispatch, tcell
// event types) but trimmed from thicc's many panels down to RustyTerm's
// two panes.
package router

import (
	"github.com/rustyterm/rustyterm/internal/host"
)

// Focus identifies which pane currently has keyboard focus.
type Focus int

const (
	FocusTerminal Focus = iota
	FocusAssistant
)

// ModeKind is the router's coarse mode, per spec.md §3 "UI modes".
type ModeKind int

const (
	ModeNormal ModeKind = iota
	ModeCommandPrefix
	ModeVisual
	ModeScroll
)

// State is the single tagged value spec.md §9 requires ("Mode machine in
// one place... no mode flag is duplicated into sub-components").
type State struct {
	Mode  ModeKind
	Focus Focus

	// Visual mode state: a vim-style cursor + selection anchor over the
	// frozen terminal grid (spec.md §4.4). Visual mode in this
	// implementation only operates on the terminal pane; the assistant
	// pane has no visual selection.
	VisualCursor  host.Loc
	VisualMode    host.Mode
	RepeatDigits  string

	// ScrollPane records which pane scroll mode applies to, since the
	// terminal and assistant message area scroll independently.
	ScrollPane Focus
}

// RepeatCount parses the accumulated repeat-count digits (spec.md §4.4:
// "digits 1-9 accumulate a repeat count"), defaulting to 1.
func (s *State) RepeatCount() int {
	if s.RepeatDigits == "" {
		return 1
	}
	n := 0
	for _, r := range s.RepeatDigits {
		n = n*10 + int(r-'0')
	}
	if n <= 0 {
		return 1
	}
	return n
}

// ResetRepeat clears any accumulated repeat-count digits.
func (s *State) ResetRepeat() {
	s.RepeatDigits = ""
}
