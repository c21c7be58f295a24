package assistantui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// combiningAcute is U+0301 COMBINING ACUTE ACCENT: paired with a base
// letter it forms a single two-rune grapheme cluster.
const combiningAcute = '́'

func TestEditorInsertAndBackspace(t *testing.T) {
	e := NewEditor()
	for _, r := range "hello" {
		e.InsertRune(r)
	}
	assert.Equal(t, "hello", e.Text())

	e.Backspace()
	assert.Equal(t, "hell", e.Text())
	assert.Equal(t, 4, e.Cursor())
}

func TestEditorBackspaceRemovesWholeGraphemeCluster(t *testing.T) {
	e := NewEditor()
	for _, r := range []rune{'c', 'a', 'f', 'e', combiningAcute} {
		e.InsertRune(r)
	}
	assert.Equal(t, 5, len([]rune(e.Text())))

	e.Backspace()
	assert.Equal(t, "caf", e.Text())
}

func TestEditorMoveLeftRightSkipsWholeCluster(t *testing.T) {
	e := NewEditor()
	// a, b, combining acute accent, c: the accent combines with b into a
	// single two-rune grapheme cluster.
	for _, r := range []rune{'a', 'b', combiningAcute, 'c'} {
		e.InsertRune(r)
	}
	assert.Equal(t, 4, e.Cursor())

	e.MoveLeft()
	assert.Equal(t, 3, e.Cursor(), "should land right before 'c', after the combined b+accent cluster")

	e.MoveLeft()
	assert.Equal(t, 1, e.Cursor(), "should jump over the whole b+accent cluster in one step")

	e.MoveRight()
	assert.Equal(t, 3, e.Cursor())
}

func TestEditorClear(t *testing.T) {
	e := NewEditor()
	e.InsertRune('x')
	e.Clear()
	assert.Equal(t, "", e.Text())
	assert.Equal(t, 0, e.Cursor())
}
