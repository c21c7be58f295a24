package assistantui

import (
	"github.com/sahilm/fuzzy"

	"github.com/rustyterm/rustyterm/internal/ai"
)

// pickerThreshold is the number of open sessions at or above which Tab-cycling
// stops being the primary navigation and the fuzzy picker becomes worth
// opening; below it, CycleSession alone is faster than typing a query.
const pickerThreshold = 5

// sessionPicker is CommandPrefix mode's session-switcher overlay, opened
// with the 'f' leader key once enough sessions are open to make linear
// Tab-cycling tedious. Grounded on the teacher's fuzzy-find file picker
// (internal/dashboard/file_picker.go uses the same sahilm/fuzzy matcher
// over a candidate list) but matching against session labels instead of
// file paths.
type sessionPicker struct {
	query      string
	candidates []pickerCandidate
	matches    []fuzzy.Match
	selected   int
}

type pickerCandidate struct {
	id    ai.SessionID
	label string
}

func newSessionPicker(candidates []pickerCandidate) *sessionPicker {
	p := &sessionPicker{candidates: candidates}
	p.refilter()
	return p
}

// source adapts candidates to fuzzy.Source.
type pickerSource []pickerCandidate

func (s pickerSource) String(i int) string { return s[i].label }
func (s pickerSource) Len() int            { return len(s) }

func (p *sessionPicker) refilter() {
	if p.query == "" {
		p.matches = nil
		for i := range p.candidates {
			p.matches = append(p.matches, fuzzy.Match{Index: i})
		}
	} else {
		p.matches = fuzzy.FindFrom(p.query, pickerSource(p.candidates))
	}
	if p.selected >= len(p.matches) {
		p.selected = 0
	}
}

// Type appends r to the query and re-filters.
func (p *sessionPicker) Type(r rune) {
	p.query += string(r)
	p.refilter()
}

// Backspace removes the last query rune and re-filters.
func (p *sessionPicker) Backspace() {
	if p.query == "" {
		return
	}
	runes := []rune(p.query)
	p.query = string(runes[:len(runes)-1])
	p.refilter()
}

// Move shifts the highlighted candidate by delta, clamped to the match
// list.
func (p *sessionPicker) Move(delta int) {
	if len(p.matches) == 0 {
		return
	}
	p.selected += delta
	if p.selected < 0 {
		p.selected = 0
	}
	if p.selected >= len(p.matches) {
		p.selected = len(p.matches) - 1
	}
}

// Selected returns the currently-highlighted session, if any.
func (p *sessionPicker) Selected() (ai.SessionID, bool) {
	if p.selected < 0 || p.selected >= len(p.matches) {
		return 0, false
	}
	return p.candidates[p.matches[p.selected].Index].id, true
}
