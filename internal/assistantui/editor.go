package assistantui

import (
	"github.com/rivo/uniseg"
)

// Editor is the assistant pane's input field: a single mutable rune
// buffer with a grapheme-aware cursor. Grounded on the teacher's
// terminal/input.go line-editing convention (InsertRune/Backspace acting
// on a buffer-plus-cursor pair) but generalized from byte-oriented
// terminal input to text editing, with cursor motion delegated to
// rivo/uniseg so multi-rune grapheme clusters (combining marks, flag and
// ZWJ emoji sequences) move and delete as a single unit instead of
// leaving orphaned combining runes behind.
type Editor struct {
	buf    []rune
	cursor int // rune index into buf, not a grapheme index
}

// NewEditor builds an empty Editor.
func NewEditor() *Editor {
	return &Editor{}
}

// Text returns the buffer's current contents.
func (e *Editor) Text() string {
	return string(e.buf)
}

// Cursor returns the rune-index cursor position, for rendering.
func (e *Editor) Cursor() int {
	return e.cursor
}

// Clear empties the buffer and resets the cursor, called after Send.
func (e *Editor) Clear() {
	e.buf = e.buf[:0]
	e.cursor = 0
}

// InsertRune inserts r at the cursor and advances past it.
func (e *Editor) InsertRune(r rune) {
	e.buf = append(e.buf[:e.cursor], append([]rune{r}, e.buf[e.cursor:]...)...)
	e.cursor++
}

// InsertNewline inserts a literal line break (spec.md §4.4 Ctrl+O).
func (e *Editor) InsertNewline() {
	e.InsertRune('\n')
}

// Backspace deletes the whole grapheme cluster immediately before the
// cursor, not merely the preceding rune.
func (e *Editor) Backspace() {
	if e.cursor == 0 {
		return
	}
	start := e.clusterStart(e.cursor)
	e.buf = append(e.buf[:start], e.buf[e.cursor:]...)
	e.cursor = start
}

// MoveLeft moves the cursor back by one grapheme cluster.
func (e *Editor) MoveLeft() {
	if e.cursor == 0 {
		return
	}
	e.cursor = e.clusterStart(e.cursor)
}

// MoveRight moves the cursor forward by one grapheme cluster.
func (e *Editor) MoveRight() {
	if e.cursor >= len(e.buf) {
		return
	}
	bounds := e.clusterBounds()
	for _, b := range bounds {
		if b > e.cursor {
			e.cursor = b
			return
		}
	}
	e.cursor = len(e.buf)
}

// clusterBounds returns every grapheme-cluster boundary in buf, including
// 0 and len(buf).
func (e *Editor) clusterBounds() []int {
	bounds := []int{0}
	g := uniseg.NewGraphemes(string(e.buf))
	pos := 0
	for g.Next() {
		pos += len(g.Runes())
		bounds = append(bounds, pos)
	}
	return bounds
}

// clusterStart returns the boundary immediately before rune index at,
// i.e. the start of the grapheme cluster that ends at at.
func (e *Editor) clusterStart(at int) int {
	bounds := e.clusterBounds()
	start := 0
	for _, b := range bounds {
		if b < at {
			start = b
			continue
		}
		break
	}
	return start
}
