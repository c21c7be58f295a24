package host

import "fmt"

// MouseButton identifies the physical button/action of a MouseEvent,
// using the SGR extended mouse protocol's own numbering (spec.md §4.1).
type MouseButton int

const (
	MouseLeft   MouseButton = 0
	MouseMiddle MouseButton = 1
	MouseRight  MouseButton = 2
	MouseMotion MouseButton = 32
	MouseWheelUp MouseButton = 64
	MouseWheelDown MouseButton = 65
)

// MouseModifier bits add to the button code per the SGR protocol.
type MouseModifier int

const (
	ModShift MouseModifier = 4
	ModAlt   MouseModifier = 8
	ModCtrl  MouseModifier = 16
)

// MouseEvent is a single mouse action to forward to the foreground
// program, in cells relative to the terminal's inner content area.
type MouseEvent struct {
	Button    MouseButton
	Modifiers MouseModifier
	Col, Row  int // 0-based, relative to inner content area
	Release   bool
}

// EncodeSGR renders ev as an SGR extended mouse escape sequence
// (ESC[<Cb;Cx;Cy{M|m}) with 1-based coordinates, per spec.md §4.1. Cols
// and rows are clamped so out-of-range positions never escape the inner
// area (spec.md §8: "never produce out-of-range SGR codes").
func EncodeSGR(ev MouseEvent, innerCols, innerRows int) string {
	col := ev.Col + 1
	row := ev.Row + 1
	if innerCols > 0 && col > innerCols {
		col = innerCols
	}
	if col < 1 {
		col = 1
	}
	if innerRows > 0 && row > innerRows {
		row = innerRows
	}
	if row < 1 {
		row = 1
	}

	cb := int(ev.Button) + int(ev.Modifiers)
	suffix := "M"
	if ev.Release {
		suffix = "m"
	}
	return fmt.Sprintf("\x1b[<%d;%d;%d%s", cb, col, row, suffix)
}

// IsMouseModeEnabled reports whether any of the click/motion/drag report
// bits are set, per spec.md §4.1: "true iff any of MOUSE_REPORT_CLICK,
// MOUSE_MOTION, MOUSE_DRAG bits are set." This intentionally uses
// Intersects rather than equality so a program enabling only click
// reporting (e.g. a pager) still routes through here.
func (h *Host) IsMouseModeEnabled() bool {
	return h.modeTracker.Flags().Intersects(mouseReportMask)
}

// SendMouse encodes ev as an SGR sequence and writes it to the PTY. The
// caller (the router) must only invoke this when IsMouseModeEnabled is
// true; Host does not re-check, since the router already branched on mode
// to decide between passthrough and local selection (spec.md §4.4).
func (h *Host) SendMouse(ev MouseEvent) error {
	cols, rows := h.innerSize()
	seq := EncodeSGR(ev, cols, rows)
	return h.writeRaw([]byte(seq))
}
