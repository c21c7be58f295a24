package host

import (
	"github.com/hinshun/vt10x"
	"github.com/mattn/go-runewidth"
)

// Cell is one position in the terminal grid (spec.md §3): a unicode
// scalar or wide-character continuation, foreground/background color, and
// style flags.
type Cell struct {
	Ch         rune
	Continuation bool // true if this cell is the trailing half of a wide rune
	FG, BG     vt10x.Color
	Mode       int16
}

// Width reports the terminal column width of Ch (1 or 2, or 0 for the
// continuation half of a wide rune), following the
// teacher's wide-character handling contract via go-runewidth — the
// dependency spec.md §8 requires ("unicode wide characters render as two
// cells").
func (c Cell) Width() int {
	if c.Continuation {
		return 0
	}
	w := runewidth.RuneWidth(c.Ch)
	if w <= 0 {
		return 1
	}
	return w
}

// Grid is the rectangular cell buffer produced by render_frame: rows ×
// cols, with the live region always exactly Rows rows (spec.md §3).
type Grid struct {
	Cols, Rows int
	Cells      [][]Cell // Cells[row][col]
	CursorX    int
	CursorY    int
	CursorVisible bool
}

// NewGrid allocates a blank grid of the given size.
func NewGrid(cols, rows int) Grid {
	cells := make([][]Cell, rows)
	for y := range cells {
		cells[y] = make([]Cell, cols)
		for x := range cells[y] {
			cells[y][x] = Cell{Ch: ' '}
		}
	}
	return Grid{Cols: cols, Rows: rows, Cells: cells}
}

// markWideContinuations walks a freshly populated row and marks the cell
// following every double-width glyph as a continuation cell, so selection
// and copy logic can treat the pair as one glyph (spec.md §8: "selection
// over a wide character includes the whole glyph").
func markWideContinuations(row []Cell) {
	for x := 0; x < len(row); x++ {
		if row[x].Continuation {
			continue
		}
		if row[x].Width() == 2 && x+1 < len(row) {
			row[x+1] = Cell{Continuation: true}
			x++
		}
	}
}
