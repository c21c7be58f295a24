package router

import (
	"context"
	"log"
	"time"

	"github.com/micro-editor/tcell/v2"

	"github.com/rustyterm/rustyterm/internal/ai"
	"github.com/rustyterm/rustyterm/internal/appevent"
	"github.com/rustyterm/rustyterm/internal/host"
	"github.com/rustyterm/rustyterm/internal/security"
	"github.com/rustyterm/rustyterm/internal/snapshot"
)

// Clipboard is the system clipboard dependency Router needs for yank and
// middle-click paste. internal/clipboard implements it; tests use an
// in-memory fake.
type Clipboard interface {
	ReadText() (string, error)
	WriteText(text string) error
}

// AssistantController is the subset of the assistant pane's input editor
// that the router drives. It is an interface (rather than a concrete
// *assistantui.Controller) because assistantui needs router's Region and
// ClickKind types to render focus state, and a concrete dependency here
// would create an import cycle.
type AssistantController interface {
	InsertRune(r rune)
	InsertNewline()
	Backspace()
	Send(ctx context.Context) error
	CycleSession(direction int)
	ConfirmSuggestion() error
	RejectSuggestion()
	CycleAlternative()
	HandleClick(region Region, col, row int, kind ClickKind)
	ScrollMessages(delta int)
}

// Router is the Event Router & Mode Machine (spec.md §4.4): the single
// place keyboard and mouse events are classified and dispatched, so no
// mode flag is ever duplicated into host, ai, or the UIs.
type Router struct {
	State  State
	Layout Layout

	host       *host.Host
	ai         *ai.Manager
	gate       *security.Gate
	collector  *snapshot.Collector
	clipboard  Clipboard
	assistant  AssistantController

	chords        ChordTracker
	separatorDrag bool
}

// New builds a Router wiring the host, AI manager, security gate, and
// context-snapshot collector together. assistant may be nil until the
// assistant UI is constructed; HandleKey/HandleMouse no-op on
// FocusAssistant dispatch until it is set via SetAssistant.
func New(h *host.Host, m *ai.Manager, gate *security.Gate, collector *snapshot.Collector, clipboard Clipboard, cols, rows int) *Router {
	return &Router{
		State:     State{Mode: ModeNormal, Focus: FocusTerminal},
		Layout:    NewLayout(cols, rows),
		host:      h,
		ai:        m,
		gate:      gate,
		collector: collector,
		clipboard: clipboard,
	}
}

// SetAssistant wires the assistant pane controller once it has been built.
func (r *Router) SetAssistant(a AssistantController) {
	r.assistant = a
}

// Resize updates the layout geometry after a terminal window resize.
func (r *Router) Resize(cols, rows int) {
	r.Layout.Cols = cols
	r.Layout.Rows = rows
}

// ObservePTYOutput feeds a raw PTY output chunk to the context-snapshot
// collector, tracking OSC 7 cwd updates (spec.md §4.2 "context snapshot").
func (r *Router) ObservePTYOutput(chunk []byte) {
	if r.collector != nil {
		r.collector.ObserveOutput(chunk)
	}
}

// Snapshot returns the current context snapshot for the AI manager to
// attach to an outgoing user message.
func (r *Router) Snapshot() ai.ContextSnapshot {
	if r.collector == nil {
		return ai.ContextSnapshot{}
	}
	return r.collector.Snapshot()
}

// HandleAppEvent reacts to AppEvents that require router-level action: the
// gate only ever executes an AI suggestion when asked to via
// KindExecuteAiCommand, and that event is only ever emitted by
// ai.Manager.ExecuteSuggestion in response to the user's confirm keypress
// (internal/assistantui), so it takes the gate's confirmed re-entry path
// rather than the first-pass one (spec.md §4.2/§4.3).
func (r *Router) HandleAppEvent(ev appevent.Event) {
	if ev.Kind != appevent.KindExecuteAiCommand {
		return
	}
	if _, err := r.gate.ConfirmSuggested(ev.Suggestion.Command); err != nil {
		r.emitGateError(ev, err)
	}
}

func (r *Router) emitGateError(ev appevent.Event, err error) {
	// ConfirmSuggested logs denials itself and returns an error only when
	// the PTY write fails; that failure is logged here. Nothing further is
	// user-visible since gate denials never propagate as Go errors
	// (spec.md §7).
	log.Printf("RUSTYTERM: router: execute confirmed command %q: %v", ev.Suggestion.Command, err)
}

// HandleKey dispatches a single key event according to the current mode
// and focus.
func (r *Router) HandleKey(ev *tcell.EventKey) {
	switch r.State.Mode {
	case ModeCommandPrefix:
		r.handleCommandPrefixKey(ev)
	case ModeVisual:
		r.handleVisualKey(ev)
	case ModeScroll:
		r.handleScrollKey(ev)
	default:
		r.handleNormalKey(ev)
	}
}

func (r *Router) handleNormalKey(ev *tcell.EventKey) {
	if r.State.Focus == FocusAssistant {
		r.handleAssistantNormalKey(ev)
		return
	}

	// The leader key. Ctrl+B never reaches the shell directly in Normal
	// mode; a second Ctrl+B in CommandPrefix mode re-sends it literally.
	if ev.Key() == tcell.KeyCtrlB {
		r.State.Mode = ModeCommandPrefix
		return
	}
	if isScrollEngageKey(ev) {
		r.State.Mode = ModeScroll
		r.State.ScrollPane = FocusTerminal
		r.handleScrollKey(ev)
		return
	}

	if b := KeyToBytes(ev); b != nil {
		_ = r.host.WriteInput(b)
	}
}

// pickerNavigator is the optional fuzzy-session-picker capability of
// AssistantController, checked the same way as sessionPickerOpener.
type pickerNavigator interface {
	PickerActive() bool
	PickerMove(delta int)
	PickerConfirm()
	PickerCancel()
}

func (r *Router) handleAssistantNormalKey(ev *tcell.EventKey) {
	if r.assistant == nil {
		return
	}
	if nav, ok := r.assistant.(pickerNavigator); ok && nav.PickerActive() {
		switch ev.Key() {
		case tcell.KeyUp:
			nav.PickerMove(-1)
		case tcell.KeyDown:
			nav.PickerMove(1)
		case tcell.KeyEnter:
			nav.PickerConfirm()
		case tcell.KeyEscape:
			nav.PickerCancel()
		case tcell.KeyBackspace, tcell.KeyBackspace2:
			r.assistant.Backspace()
		case tcell.KeyRune:
			r.assistant.InsertRune(ev.Rune())
		}
		return
	}
	switch ev.Key() {
	case tcell.KeyEnter:
		_ = r.assistant.Send(context.Background())
	case tcell.KeyCtrlO:
		r.assistant.InsertNewline()
	case tcell.KeyTab:
		r.assistant.CycleSession(1)
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		r.assistant.Backspace()
	case tcell.KeyCtrlY:
		_ = r.assistant.ConfirmSuggestion()
	case tcell.KeyCtrlN:
		r.assistant.RejectSuggestion()
	case tcell.KeyCtrlA:
		r.assistant.CycleAlternative()
	case tcell.KeyCtrlB:
		r.State.Mode = ModeCommandPrefix
	case tcell.KeyRune:
		r.assistant.InsertRune(ev.Rune())
	}
}

// handleCommandPrefixKey dispatches the key immediately following the
// leader (spec.md §4.4 "leader actions").
func (r *Router) handleCommandPrefixKey(ev *tcell.EventKey) {
	r.State.Mode = ModeNormal

	switch ev.Key() {
	case tcell.KeyCtrlB:
		// Re-send the leader itself as a literal byte to the shell.
		if r.State.Focus == FocusTerminal {
			_ = r.host.WriteInput([]byte{0x02})
		}
	case tcell.KeyTab:
		if r.State.Focus == FocusTerminal {
			r.State.Focus = FocusAssistant
		} else {
			r.State.Focus = FocusTerminal
		}
	case tcell.KeyEscape:
		// Mode already reset above; nothing else to do.
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'c':
			if r.ai != nil {
				r.ai.NewSession()
			}
		case 'x':
			if r.ai != nil {
				_ = r.ai.CloseSession(r.ai.CurrentSessionID())
			}
		case 'v':
			if r.State.Focus == FocusTerminal {
				r.enterVisualMode()
				r.State.Mode = ModeVisual
			}
		case 'f':
			if picker, ok := r.assistant.(sessionPickerOpener); ok {
				picker.OpenSessionPicker()
			}
		}
	}
}

// sessionPickerOpener is an optional capability of AssistantController,
// checked with a type assertion rather than folded into the interface
// itself (mirroring the standard library's http.Flusher pattern) since
// only assistantui implements it and no router logic besides this one
// leader key needs to know it exists.
type sessionPickerOpener interface {
	OpenSessionPicker()
}

func (r *Router) enterVisualMode() {
	grid := r.host.RenderFrame(r.host.ViewOffset())
	r.State.VisualCursor = host.Loc{Col: grid.CursorX, Row: grid.CursorY + r.host.ScrollbackLen()}
	r.State.VisualMode = host.SelectionChar
	r.State.ResetRepeat()
	r.host.StartSelection(r.State.VisualCursor)
}

func (r *Router) handleVisualKey(ev *tcell.EventKey) {
	if ev.Key() == tcell.KeyRune {
		if d := ev.Rune(); d >= '1' && d <= '9' || (d == '0' && r.State.RepeatDigits != "") {
			r.State.RepeatDigits += string(d)
			return
		}
	}
	n := r.State.RepeatCount()
	r.State.ResetRepeat()

	move := func(dCol, dRow int) {
		r.State.VisualCursor.Col += dCol * n
		r.State.VisualCursor.Row += dRow * n
		if r.State.VisualCursor.Col < 0 {
			r.State.VisualCursor.Col = 0
		}
		if r.State.VisualCursor.Row < 0 {
			r.State.VisualCursor.Row = 0
		}
		r.host.ExtendSelection(r.State.VisualCursor)
	}

	switch ev.Key() {
	case tcell.KeyLeft:
		move(-1, 0)
		return
	case tcell.KeyRight:
		move(1, 0)
		return
	case tcell.KeyUp:
		move(0, -1)
		return
	case tcell.KeyDown:
		move(0, 1)
		return
	case tcell.KeyEscape:
		r.host.ClearSelection()
		r.State.Mode = ModeNormal
		return
	}

	if ev.Key() == tcell.KeyRune {
		switch ev.Rune() {
		case 'h':
			move(-1, 0)
		case 'l':
			move(1, 0)
		case 'k':
			move(0, -1)
		case 'j':
			move(0, 1)
		case ' ':
			r.cycleVisualSelectionMode()
		case 'y':
			text := r.host.CopySelection()
			if r.clipboard != nil && text != "" {
				_ = r.clipboard.WriteText(text)
			}
			r.State.Mode = ModeNormal
		}
	}
}

// cycleVisualSelectionMode advances None -> Line -> Block -> None (the
// character selection visual mode starts with counts as None here),
// applying the new shape to the already-positioned selection.
func (r *Router) cycleVisualSelectionMode() {
	switch r.State.VisualMode {
	case host.SelectionNone, host.SelectionChar:
		r.State.VisualMode = host.SelectionLine
	case host.SelectionLine:
		r.State.VisualMode = host.SelectionBlock
	default:
		r.State.VisualMode = host.SelectionNone
	}
	r.host.SetSelectionMode(r.State.VisualMode)
}

func isScrollEngageKey(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyPgUp || ev.Key() == tcell.KeyPgDn {
		return true
	}
	if ev.Modifiers()&tcell.ModShift == 0 {
		return false
	}
	return ev.Key() == tcell.KeyUp || ev.Key() == tcell.KeyDown || ev.Key() == tcell.KeyEnd
}

func (r *Router) handleScrollKey(ev *tcell.EventKey) {
	const page = 10
	switch ev.Key() {
	case tcell.KeyUp:
		r.host.ScrollUp(1)
		return
	case tcell.KeyDown:
		r.host.ScrollDown(1)
		if !r.host.IsScrolledUp() {
			r.State.Mode = ModeNormal
		}
		return
	case tcell.KeyPgUp:
		r.host.ScrollUp(page)
		return
	case tcell.KeyPgDn:
		r.host.ScrollDown(page)
		if !r.host.IsScrolledUp() {
			r.State.Mode = ModeNormal
		}
		return
	case tcell.KeyEnd:
		r.host.ScrollToBottom()
		r.State.Mode = ModeNormal
		return
	case tcell.KeyEscape:
		r.host.ScrollToBottom()
		r.State.Mode = ModeNormal
		return
	}

	// Any other keystroke exits scroll mode and is replayed as Normal.
	r.host.ScrollToBottom()
	r.State.Mode = ModeNormal
	r.handleNormalKey(ev)
}

// HandleMouse dispatches a mouse event by region, honoring the
// focus-switch-only-on-click-transition rule: a click that lands in a
// pane other than the currently focused one only switches focus, it does
// not also act within the newly-focused pane (spec.md §4.4).
func (r *Router) HandleMouse(ev *tcell.EventMouse, now time.Time) {
	col, row := ev.Position()
	region := r.Layout.HitTest(col, row)
	buttons := ev.Buttons()

	if buttons == tcell.ButtonNone {
		if r.separatorDrag {
			return
		}
		if r.State.Focus == FocusTerminal && r.host.IsMouseModeEnabled() {
			cCol, cRow := r.terminalContentCoord(col, row)
			r.forwardMouseMotion(ev, cCol, cRow)
		}
		return
	}

	if r.separatorDrag {
		r.Layout.SplitRatio = ClampSplitRatio(float64(col) / float64(max1(r.Layout.Cols)))
		return
	}

	switch region {
	case RegionSeparator:
		if buttons&tcell.Button1 != 0 {
			r.separatorDrag = true
		}
		return
	case RegionTerminal:
		if r.switchFocus(FocusTerminal) {
			return
		}
		r.handleTerminalMouse(ev, col, row, now)
	case RegionAssistantTabBar, RegionAssistantMessageArea, RegionAssistantInputBox:
		if r.switchFocus(FocusAssistant) {
			return
		}
		if r.assistant != nil {
			if buttons&tcell.WheelUp != 0 {
				r.assistant.ScrollMessages(-1)
				return
			}
			if buttons&tcell.WheelDown != 0 {
				r.assistant.ScrollMessages(1)
				return
			}
			kind := r.chords.Register(col, row, now)
			r.assistant.HandleClick(region, col, row, kind)
		}
	}
}

// switchFocus moves focus to want if it differs from the current focus,
// reporting whether a switch happened (and therefore the triggering click
// must be swallowed).
func (r *Router) switchFocus(want Focus) bool {
	if r.State.Focus == want {
		return false
	}
	r.State.Focus = want
	return true
}

func (r *Router) handleTerminalMouse(ev *tcell.EventMouse, col, row int, now time.Time) {
	buttons := ev.Buttons()

	cCol, cRow := r.terminalContentCoord(col, row)

	if r.host.IsMouseModeEnabled() {
		r.forwardMouseClick(ev, cCol, cRow)
		return
	}

	loc := host.Loc{Col: cCol, Row: cRow + r.host.ScrollbackLen() - r.host.ViewOffset()}

	switch {
	case buttons&tcell.WheelUp != 0:
		r.host.ScrollUp(3)
	case buttons&tcell.WheelDown != 0:
		r.host.ScrollDown(3)
	case buttons&tcell.Button1 != 0:
		kind := r.chords.Register(col, row, now)
		switch kind {
		case ClickDouble:
			r.host.SelectWordAt(loc.Col, loc.Row)
		case ClickTriple:
			r.host.SelectLineAt(loc.Row)
		default:
			r.host.StartSelection(loc)
		}
	case buttons&tcell.Button2 != 0:
		if r.clipboard != nil {
			if text, err := r.clipboard.ReadText(); err == nil && text != "" {
				_ = r.host.WriteInput([]byte(text))
			}
		}
	}
}

// terminalContentCoord translates a screen-absolute (col,row) — as
// reported by tcell's EventMouse.Position() — into the terminal pane's
// inner-content-relative coordinate that internal/host's Loc and
// MouseEvent expect, by subtracting the pane's 1-cell border origin
// (spec.md §4.1's SGR passthrough and §4.1's selection both index the
// grid from its own (0,0), not the screen's).
func (r *Router) terminalContentCoord(col, row int) (int, int) {
	ox, oy := r.Layout.TerminalContentOrigin()
	return col - ox, row - oy
}

func (r *Router) forwardMouseClick(ev *tcell.EventMouse, col, row int) {
	btn, mods := sgrButtonFor(ev)
	_ = r.host.SendMouse(host.MouseEvent{Button: btn, Modifiers: mods, Col: col, Row: row})
}

func (r *Router) forwardMouseMotion(ev *tcell.EventMouse, col, row int) {
	_, mods := sgrButtonFor(ev)
	_ = r.host.SendMouse(host.MouseEvent{Button: host.MouseMotion, Modifiers: mods, Col: col, Row: row})
}

func sgrButtonFor(ev *tcell.EventMouse) (host.MouseButton, host.MouseModifier) {
	var mods host.MouseModifier
	if ev.Modifiers()&tcell.ModShift != 0 {
		mods |= host.ModShift
	}
	if ev.Modifiers()&tcell.ModCtrl != 0 {
		mods |= host.ModCtrl
	}

	switch {
	case ev.Buttons()&tcell.WheelUp != 0:
		return host.MouseWheelUp, mods
	case ev.Buttons()&tcell.WheelDown != 0:
		return host.MouseWheelDown, mods
	case ev.Buttons()&tcell.Button2 != 0:
		return host.MouseMiddle, mods
	case ev.Buttons()&tcell.Button3 != 0:
		return host.MouseRight, mods
	default:
		return host.MouseLeft, mods
	}
}

// DragRelease ends an in-progress separator drag; the router's owner
// calls this once tcell reports the button release.
func (r *Router) DragRelease() {
	r.separatorDrag = false
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
