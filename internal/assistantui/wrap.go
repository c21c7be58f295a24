package assistantui

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mattn/go-runewidth"
)

// wrapKey identifies one word-wrap result: the exact text and the column
// width it was wrapped to. Re-wrapping on every render would re-walk the
// same chat history each frame as the user idles in the input box; most
// turns are immutable once appended, so a small LRU is enough to make
// repeated renders of a long scrollback cheap.
type wrapKey struct {
	text  string
	width int
}

// wrapCache bounds the memory a long chat session's rendered word-wrap
// can consume, mirroring the teacher's bounded-cache convention for
// expensive per-frame recomputation (internal/nuggets' summarizer result
// cache) but backed by hashicorp/golang-lru instead of a hand-rolled map
// with manual eviction.
type wrapCache struct {
	cache *lru.Cache[wrapKey, []string]
}

// newWrapCache builds a wrapCache holding up to size entries.
func newWrapCache(size int) *wrapCache {
	c, _ := lru.New[wrapKey, []string](size)
	return &wrapCache{cache: c}
}

// wrap returns text word-wrapped to width display columns, using
// go-runewidth so wide CJK characters and combining marks count cells
// correctly rather than one column per rune.
func (w *wrapCache) wrap(text string, width int) []string {
	if width < 1 {
		width = 1
	}
	key := wrapKey{text: text, width: width}
	if lines, ok := w.cache.Get(key); ok {
		return lines
	}
	lines := wrapText(text, width)
	w.cache.Add(key, lines)
	return lines
}

// wrapText greedily packs words into lines no wider than width display
// cells, splitting a single word longer than width at the cell boundary.
func wrapText(text string, width int) []string {
	var out []string
	for _, paragraph := range strings.Split(text, "\n") {
		if paragraph == "" {
			out = append(out, "")
			continue
		}
		out = append(out, wrapParagraph(paragraph, width)...)
	}
	return out
}

func wrapParagraph(paragraph string, width int) []string {
	var lines []string
	var cur strings.Builder
	curWidth := 0

	flush := func() {
		lines = append(lines, cur.String())
		cur.Reset()
		curWidth = 0
	}

	for _, word := range strings.Fields(paragraph) {
		wWidth := runewidth.StringWidth(word)
		for wWidth > width {
			// A single word wider than the pane: hard-split at the
			// column boundary rather than overflowing the line.
			head, rest := runewidth.Truncate(word, width, ""), ""
			if len(head) < len(word) {
				rest = word[len(head):]
			}
			if curWidth > 0 {
				flush()
			}
			lines = append(lines, head)
			word = rest
			wWidth = runewidth.StringWidth(word)
			if word == "" {
				break
			}
		}
		if word == "" {
			continue
		}
		sep := 0
		if curWidth > 0 {
			sep = 1
		}
		if curWidth+sep+wWidth > width {
			flush()
			sep = 0
		}
		if sep == 1 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
		curWidth += sep + wWidth
	}
	lines = append(lines, cur.String())
	return lines
}
