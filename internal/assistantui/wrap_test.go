package assistantui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapTextPacksWordsWithinWidth(t *testing.T) {
	lines := wrapText("the quick brown fox jumps", 10)
	for _, l := range lines {
		assert.LessOrEqual(t, len([]rune(l)), 10)
	}
	assert.Equal(t, "the quick", lines[0])
}

func TestWrapTextPreservesExplicitNewlines(t *testing.T) {
	lines := wrapText("first\nsecond", 20)
	assert.Equal(t, []string{"first", "second"}, lines)
}

func TestWrapCacheReturnsSameSliceForRepeatedCall(t *testing.T) {
	c := newWrapCache(8)
	a := c.wrap("hello world", 5)
	b := c.wrap("hello world", 5)
	assert.Equal(t, a, b)
	assert.Same(t, &a[0], &b[0])
}
