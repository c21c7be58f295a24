// Package termui is the Terminal UI of spec.md §2: the grid painter,
// scrollback indicator, and selection overlay that render an
// internal/host.Grid to the shared tcell screen. Grounded on the
// teacher's internal/terminal/vt_render.go Panel.Render (border/content
// split, glyphToTcellStyle, drawScrollIndicator), generalized from a
// single bordered panel to the left pane of RustyTerm's terminal/
// assistant split and from vt10x.Glyph directly to host.Cell/host.Grid so
// this package never touches the PTY or VT emulator itself.
package termui

import (
	"fmt"

	"github.com/micro-editor/tcell/v2"

	"github.com/rustyterm/rustyterm/internal/config"
	"github.com/rustyterm/rustyterm/internal/host"
	"github.com/rustyterm/rustyterm/internal/router"
)

// Painter draws the terminal pane's cell grid, border, and scroll
// indicator into a tcell.Screen region.
type Painter struct {
	Truecolor bool // false forces 256-palette downsampling (spec.md DOMAIN STACK, go-colorful)
}

// NewPainter builds a Painter. truecolor should reflect $COLORTERM /
// terminal capability detection, left to the caller (an external
// collaborator per spec.md §1).
func NewPainter(truecolor bool) *Painter {
	return &Painter{Truecolor: truecolor}
}

// Paint renders grid into screen at the rectangle [x,y, x+w, y+h),
// drawing a one-cell border styled by focus/passthrough state, and a
// "[+N]" scroll indicator when viewOffset > 0, per the teacher's
// drawScrollIndicator convention.
func (p *Painter) Paint(screen tcell.Screen, x, y, w, h int, grid host.Grid, focused bool, mouseMode bool, viewOffset int) {
	if w < 2 || h < 2 {
		return
	}
	p.drawBorder(screen, x, y, w, h, focused, mouseMode)

	contentX, contentY := x+1, y+1
	contentW, contentH := w-2, h-2

	for row := 0; row < contentH; row++ {
		for col := 0; col < contentW; col++ {
			r := rune(' ')
			style := config.DefStyle
			if row < grid.Rows && col < grid.Cols {
				cell := grid.Cells[row][col]
				if cell.Continuation {
					continue
				}
				if cell.Ch != 0 {
					r = cell.Ch
				}
				style = p.cellStyle(cell)
			}
			screen.SetContent(contentX+col, contentY+row, r, nil, style)
		}
	}

	if viewOffset > 0 {
		p.drawScrollIndicator(screen, x, y, w, viewOffset)
	}

	if focused && grid.CursorVisible && viewOffset == 0 {
		cx, cy := grid.CursorX, grid.CursorY
		if cx >= 0 && cx < contentW && cy >= 0 && cy < contentH {
			screen.ShowCursor(contentX+cx, contentY+cy)
		}
	}
}

// selectedBit mirrors host.selectedModeBit (unexported on purpose: the
// painter reads it through Cell.Mode, not as a host package constant).
const selectedBit = 1 << 14

// cellStyle converts a host.Cell into a tcell.Style, replacing the
// teacher's glyphToTcellStyle + hand-rolled rgbTo256Color with
// host.ResolveColor's go-colorful-backed downsampling (spec.md DOMAIN
// STACK).
func (p *Painter) cellStyle(cell host.Cell) tcell.Style {
	style := config.DefStyle

	fg := host.ResolveColor(cell.FG, host.IsDefaultFG(cell.FG), p.Truecolor)
	if !fg.Default {
		style = style.Foreground(resolveTcellColor(fg))
	}
	bg := host.ResolveColor(cell.BG, host.IsDefaultBG(cell.BG), p.Truecolor)
	if !bg.Default {
		style = style.Background(resolveTcellColor(bg))
	}

	if cell.Mode&selectedBit != 0 {
		style = style.Reverse(true)
	}
	return style
}

func resolveTcellColor(c host.TermColor) tcell.Color {
	if c.Palette {
		return tcell.PaletteColor(int(c.Index))
	}
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

func (p *Painter) drawBorder(screen tcell.Screen, x, y, w, h int, focused, mouseMode bool) {
	style := config.GetColor(config.RoleBorderUnfocused)
	switch {
	case mouseMode:
		style = config.DefStyle.Foreground(tcell.ColorOrange)
	case focused:
		style = config.GetColor(config.RoleBorderFocused)
	}

	for col := 0; col < w; col++ {
		screen.SetContent(x+col, y, ' ', nil, style)
		screen.SetContent(x+col, y+h-1, ' ', nil, style)
	}
	for row := 1; row < h-1; row++ {
		screen.SetContent(x, y+row, ' ', nil, style)
		screen.SetContent(x+w-1, y+row, ' ', nil, style)
	}
}

func (p *Painter) drawScrollIndicator(screen tcell.Screen, x, y, w, offset int) {
	indicator := fmt.Sprintf("[+%d]", offset)
	style := config.GetColor(config.RoleScrollIndicator)
	col := x + w - len(indicator) - 2
	if col < x+2 {
		col = x + 2
	}
	for i, r := range indicator {
		screen.SetContent(col+i, y, r, nil, style)
	}
}

// PaneRegion returns the terminal pane's on-screen rectangle for the
// current layout, shared by the painter and the router's hit-testing so
// the two never disagree about where the pane sits.
func PaneRegion(l router.Layout) (x, y, w, h int) {
	return 0, 0, l.TerminalWidth(), l.Rows
}
