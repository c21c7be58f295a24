// Package assistantui is the assistant pane of spec.md §2: the chat log,
// the command-card rendering of AI-suggested commands, the input editor,
// and the session tab bar. Grounded on the teacher's internal/layout
// (TabBar click-position tracking) and internal/dashboard (overlay
// render/input pattern) packages, adapted from thock/thicc's
// file-and-panel editor chrome to RustyTerm's chat-and-command-card
// chrome. Implements router.AssistantController so the Router can drive
// it without an import cycle.
package assistantui

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/micro-editor/tcell/v2"

	"github.com/rustyterm/rustyterm/internal/ai"
	"github.com/rustyterm/rustyterm/internal/appevent"
	"github.com/rustyterm/rustyterm/internal/config"
	"github.com/rustyterm/rustyterm/internal/router"
)

// SnapshotProvider supplies the context snapshot attached to an outgoing
// user message. *snapshot.Collector satisfies this directly.
type SnapshotProvider interface {
	Snapshot() ai.ContextSnapshot
}

// Controller owns every session's chat log and the shared input editor,
// and is the sole mutator of assistantui's presentation state — the
// Manager's Sessions stay the system of record for conversation history
// (spec.md §3), this package only layers rendering state on top.
type Controller struct {
	mu sync.Mutex

	manager  *ai.Manager
	snapshot SnapshotProvider
	wrap     *wrapCache

	views map[ai.SessionID]*sessionView
	order []ai.SessionID

	editor *Editor
	picker *sessionPicker
}

// New builds a Controller around an already-constructed ai.Manager. The
// Controller opens no session here; Send creates one when no session is
// current.
func New(manager *ai.Manager, snap SnapshotProvider) *Controller {
	return &Controller{
		manager:  manager,
		snapshot: snap,
		wrap:     newWrapCache(512),
		views:    map[ai.SessionID]*sessionView{},
		editor:   NewEditor(),
	}
}

func (c *Controller) viewFor(id ai.SessionID) *sessionView {
	v, ok := c.views[id]
	if !ok {
		v = newSessionView(id)
		c.views[id] = v
		c.order = append(c.order, id)
	}
	return v
}

// --- router.AssistantController ---

// InsertRune routes a typed rune either to the open session picker's
// query or to the input editor.
func (c *Controller) InsertRune(r rune) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.picker != nil {
		c.picker.Type(r)
		return
	}
	c.editor.InsertRune(r)
}

// InsertNewline inserts a literal newline (Ctrl+O); it does nothing while
// the session picker is open.
func (c *Controller) InsertNewline() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.picker != nil {
		return
	}
	c.editor.InsertNewline()
}

// Backspace deletes backward in the picker query or the input editor.
func (c *Controller) Backspace() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.picker != nil {
		c.picker.Backspace()
		return
	}
	c.editor.Backspace()
}

// Send submits the editor's current text as a new user turn on the
// current session (spec.md §4.2 send_message), recording it in the
// session's rendered log immediately and clearing the editor.
func (c *Controller) Send(ctx context.Context) error {
	c.mu.Lock()
	text := c.editor.Text()
	if text == "" {
		c.mu.Unlock()
		return nil
	}
	id := c.manager.CurrentSessionID()
	if id == 0 {
		id = c.manager.NewSession()
	}
	view := c.viewFor(id)
	view.appendUser(text)
	c.editor.Clear()
	var snap ai.ContextSnapshot
	if c.snapshot != nil {
		snap = c.snapshot.Snapshot()
	}
	c.mu.Unlock()

	if err := c.manager.SendMessage(id, text, snap); err != nil {
		return fmt.Errorf("assistantui: send message: %w", err)
	}
	return nil
}

// CycleSession advances the current session by direction (+1/-1),
// wrapping around the open session list (spec.md §4.4 Tab).
func (c *Controller) CycleSession(direction int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := c.manager.SessionIDs()
	if len(ids) == 0 {
		return
	}
	cur := c.manager.CurrentSessionID()
	idx := 0
	for i, id := range ids {
		if id == cur {
			idx = i
			break
		}
	}
	idx = ((idx+direction)%len(ids) + len(ids)) % len(ids)
	_ = c.manager.SwitchSession(ids[idx])
}

// ConfirmSuggestion executes the current session's pending suggestion
// (Ctrl+Y). The status transition to cardExecuted happens immediately so
// the UI reflects the user's action without waiting on the gate's
// round-trip AppEvent, since the gate's denial path never reports back
// (spec.md §7: gate denials never propagate as Go errors).
func (c *Controller) ConfirmSuggestion() error {
	c.mu.Lock()
	id := c.manager.CurrentSessionID()
	view, ok := c.views[id]
	c.mu.Unlock()
	if !ok || view.lastCard == nil {
		return nil
	}

	c.mu.Lock()
	card := view.lastCard
	if card.status != cardPending {
		c.mu.Unlock()
		return nil
	}
	if card.suggestion.Verdict != appevent.VerdictDeny {
		card.status = cardExecuted
	}
	c.mu.Unlock()

	if err := c.manager.ExecuteSuggestion(id); err != nil {
		return fmt.Errorf("assistantui: confirm suggestion: %w", err)
	}
	return nil
}

// RejectSuggestion marks the current session's pending suggestion
// rejected without ever reaching the gate (spec.md §4.4 Ctrl+N).
func (c *Controller) RejectSuggestion() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.manager.CurrentSessionID()
	view, ok := c.views[id]
	if !ok || view.lastCard == nil {
		return
	}
	if view.lastCard.status == cardPending {
		view.lastCard.status = cardRejected
	}
}

// CycleAlternative advances the current session's pending card through
// its suggested alternatives (spec.md §4.4 Ctrl+A), wrapping back to the
// primary command.
func (c *Controller) CycleAlternative() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.manager.CurrentSessionID()
	view, ok := c.views[id]
	if !ok || view.lastCard == nil {
		return
	}
	card := view.lastCard
	card.altIndex = (card.altIndex + 1) % (len(card.suggestion.Alternatives) + 1)
}

// ScrollMessages adjusts the current session's message-area scroll
// offset by delta lines.
func (c *Controller) ScrollMessages(delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.manager.CurrentSessionID()
	view := c.viewFor(id)
	view.scrollOffset += delta
	if view.scrollOffset < 0 {
		view.scrollOffset = 0
	}
}

// HandleClick dispatches a mouse click inside the assistant pane by
// region (spec.md §4.4 mouse dispatch).
func (c *Controller) HandleClick(region router.Region, col, row int, kind router.ClickKind) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch region {
	case router.RegionAssistantTabBar:
		c.clickTab(col)
	case router.RegionAssistantMessageArea:
		c.clickCard(col, row)
	case router.RegionAssistantInputBox:
		// Clicking into the input box simply focuses it for typing; the
		// router has already switched focus by the time HandleClick runs.
	}
}

// clickTab resolves a tab-bar click to a fixed-width tab slot, the same
// convention as the teacher's tabPosition tracking but computed instead
// of cached, since session tabs never scroll horizontally in this
// implementation.
func (c *Controller) clickTab(col int) {
	const tabWidth = 12
	ids := c.manager.SessionIDs()
	idx := col / tabWidth
	if idx < 0 || idx >= len(ids) {
		return
	}
	_ = c.manager.SwitchSession(ids[idx])
}

// clickCard toggles the suggestion under (col,row) between confirmed and
// rejected, approximating a button hit without per-cell hit-testing: any
// click inside the message area while a card is pending acts on the most
// recent card, matching the single-suggestion-in-flight invariant
// (spec.md §3: only the last suggestion is addressable).
func (c *Controller) clickCard(col, row int) {
	id := c.manager.CurrentSessionID()
	view, ok := c.views[id]
	if !ok || view.lastCard == nil || view.lastCard.status != cardPending {
		return
	}
	// An even click column confirms and an odd one rejects; renderCard
	// draws a single status glyph, not separate confirm/reject buttons.
	if col%2 == 0 {
		view.lastCard.status = cardExecuted
		go func() { _ = c.manager.ExecuteSuggestion(id) }()
	} else {
		view.lastCard.status = cardRejected
	}
}

// OpenSessionPicker opens the fuzzy session-switcher overlay (router's
// CommandPrefix 'f' leader action), grounded on
// internal/layout's decision to only wire a feature into CommandPrefix
// once it solves something Tab-cycling doesn't.
func (c *Controller) OpenSessionPicker() {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := c.manager.SessionIDs()
	if len(ids) < pickerThreshold {
		return
	}
	candidates := make([]pickerCandidate, 0, len(ids))
	for _, id := range ids {
		candidates = append(candidates, pickerCandidate{id: id, label: c.sessionLabel(id)})
	}
	c.picker = newSessionPicker(candidates)
}

func (c *Controller) sessionLabel(id ai.SessionID) string {
	view, ok := c.views[id]
	if !ok || len(view.turns) == 0 {
		return fmt.Sprintf("session %d (empty)", id)
	}
	first := view.turns[0].text
	if len(first) > 40 {
		first = first[:40]
	}
	return fmt.Sprintf("session %d: %s", id, first)
}

// PickerActive reports whether the fuzzy session picker overlay is open.
func (c *Controller) PickerActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.picker != nil
}

// PickerMove shifts the picker's highlighted candidate.
func (c *Controller) PickerMove(delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.picker != nil {
		c.picker.Move(delta)
	}
}

// PickerConfirm switches to the picker's highlighted session and closes
// the overlay.
func (c *Controller) PickerConfirm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.picker == nil {
		return
	}
	if id, ok := c.picker.Selected(); ok {
		_ = c.manager.SwitchSession(id)
	}
	c.picker = nil
}

// PickerCancel closes the picker overlay without switching sessions.
func (c *Controller) PickerCancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.picker = nil
}

// --- AppEvent / token-sink consumption ---

// HandleToken folds one ai.Token into the relevant session's streaming
// display text. The Manager's own streaming goroutine is the buffer's
// authoritative writer (internal/ai.AppendChunk); this only mirrors
// chunks for rendering, so a dropped token under backpressure costs a
// redraw, never conversation state.
//
// Closing a session cancels its streaming task, but already-emitted
// chunks may still be queued on the token sink when that happens
// (spec.md §5 Cancellation). Such tokens MUST be discarded rather than
// resurrecting a phantom view for a session the manager no longer knows
// about, so this checks session validity before touching any view state.
func (c *Controller) HandleToken(tok ai.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := ai.SessionID(tok.SessionID)
	if !c.manager.HasSession(id) {
		return
	}
	view := c.viewFor(id)
	switch tok.Kind {
	case ai.TokenChunk:
		view.streaming += tok.Text
	case ai.TokenEnd:
		text := view.streaming
		view.streaming = ""
		c.finalizeAssistantTurn(view, text)
	}
}

func (c *Controller) finalizeAssistantTurn(view *sessionView, text string) {
	sugg, ok, err := c.manager.GetLastSuggestion(view.id)
	if err != nil {
		log.Printf("RUSTYTERM: assistantui: get last suggestion: %v", err)
		return
	}
	if ok {
		view.appendAssistant(text, &sugg)
	} else {
		view.appendAssistant(text, nil)
	}
}

// HandleAppEvent folds AppEvents the assistant pane needs to reflect
// visually: a stream error becomes an inline system line, a command
// suggestion becomes (or refreshes) the pending card. Both the Router and
// the Controller read from the same shared appevent.Sink in this
// implementation's cmd/rustyterm wiring, each taking the action that is
// theirs alone to take.
func (c *Controller) HandleAppEvent(ev appevent.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Kind {
	case appevent.KindAiStreamError:
		view := c.viewFor(ai.SessionID(ev.SessionID))
		view.turns = append(view.turns, chatTurn{
			role: ai.RoleSystem,
			text: "error: " + ev.Message,
			at:   time.Now(),
		})
	case appevent.KindAiCommandSuggestion:
		view := c.viewFor(ai.SessionID(ev.SessionID))
		if view.lastCard != nil && view.lastCard.suggestion.ToolCallID == ev.Suggestion.ToolCallID {
			return
		}
		card := &commandCard{suggestion: ev.Suggestion, at: time.Now()}
		view.lastCard = card
		if len(view.turns) > 0 && view.turns[len(view.turns)-1].role == ai.RoleAssistant && view.turns[len(view.turns)-1].card == nil {
			view.turns[len(view.turns)-1].card = card
		}
	}
}

// --- rendering ---

// Render draws the assistant pane's tab bar, message log, and input
// editor into the given screen region.
func (c *Controller) Render(screen tcell.Screen, x, y, w, h int, focused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if w < 4 || h < 4 {
		return
	}

	c.renderTabBar(screen, x, y, w)

	inputHeight := 3
	messageY := y + 1
	messageH := h - 1 - inputHeight
	if messageH < 0 {
		messageH = 0
	}
	c.renderMessages(screen, x, messageY, w, messageH)

	inputY := y + h - inputHeight
	c.renderInput(screen, x, inputY, w, inputHeight, focused)

	if c.picker != nil {
		c.renderPicker(screen, x, y, w, h)
	}
}

func (c *Controller) renderTabBar(screen tcell.Screen, x, y, w int) {
	ids := c.manager.SessionIDs()
	cur := c.manager.CurrentSessionID()
	col := x
	for _, id := range ids {
		style := config.GetColor(config.RoleTabInactive)
		if id == cur {
			style = config.GetColor(config.RoleTabActive)
		}
		label := fmt.Sprintf(" #%d ", id)
		for _, r := range label {
			if col >= x+w {
				break
			}
			screen.SetContent(col, y, r, nil, style)
			col++
		}
	}
	for ; col < x+w; col++ {
		screen.SetContent(col, y, ' ', nil, config.DefStyle)
	}
}

func (c *Controller) renderMessages(screen tcell.Screen, x, y, w, h int) {
	if h <= 0 {
		return
	}
	id := c.manager.CurrentSessionID()
	view, ok := c.views[id]
	if !ok {
		return
	}

	var lines []renderedLine
	for _, turn := range view.turns {
		lines = append(lines, c.renderTurn(turn, w)...)
	}
	if view.streaming != "" {
		lines = append(lines, c.renderTurn(chatTurn{role: ai.RoleAssistant, text: view.streaming, at: time.Now()}, w)...)
	}

	start := len(lines) - h - view.scrollOffset
	if start < 0 {
		start = 0
	}
	end := start + h
	if end > len(lines) {
		end = len(lines)
	}

	row := y
	for _, line := range lines[start:end] {
		for col, r := range []rune(line.text) {
			if col >= w {
				break
			}
			screen.SetContent(x+col, row, r, nil, line.style)
		}
		row++
	}
}

type renderedLine struct {
	text  string
	style tcell.Style
}

func (c *Controller) renderTurn(turn chatTurn, w int) []renderedLine {
	style := config.GetColor(config.RoleChatAssistant)
	prefix := "assistant"
	switch turn.role {
	case ai.RoleUser:
		style = config.GetColor(config.RoleChatUser)
		prefix = "you"
	case ai.RoleSystem:
		prefix = "system"
	}

	header := fmt.Sprintf("%s (%s)", prefix, humanize.Time(turn.at))
	var out []renderedLine
	out = append(out, renderedLine{text: header, style: config.GetColor(config.RoleTimestamp)})
	for _, l := range c.wrap.wrap(turn.text, w) {
		out = append(out, renderedLine{text: l, style: style})
	}
	if turn.card != nil {
		out = append(out, c.renderCard(turn.card)...)
	}
	return out
}

func (c *Controller) renderCard(card *commandCard) []renderedLine {
	style := config.GetColor(config.RoleVerdictConfirm)
	glyph := "?"
	switch {
	case card.status == cardExecuted:
		style = config.GetColor(config.RoleVerdictAllow)
		glyph = "✓" // ✓
	case card.status == cardRejected || card.suggestion.Verdict == appevent.VerdictDeny:
		style = config.GetColor(config.RoleVerdictDeny)
		glyph = "✗" // ✗
	}

	line := fmt.Sprintf("  [%s] %s", glyph, card.command())
	out := []renderedLine{{text: line, style: style}}
	if card.suggestion.Verdict == appevent.VerdictDeny {
		out = append(out, renderedLine{text: "    " + card.suggestion.VerdictReason, style: style})
	}
	return out
}

func (c *Controller) renderInput(screen tcell.Screen, x, y, w, h int, focused bool) {
	style := config.DefStyle
	text := c.editor.Text()
	for i, r := range []rune(text) {
		if i >= w*h {
			break
		}
		screen.SetContent(x+i%w, y+i/w, r, nil, style)
	}
	if focused {
		cursor := c.editor.Cursor()
		screen.ShowCursor(x+cursor%w, y+cursor/w)
	}
}

func (c *Controller) renderPicker(screen tcell.Screen, x, y, w, h int) {
	style := config.GetColor(config.RoleTabActive)
	header := "find session: " + c.picker.query
	for i, r := range []rune(header) {
		if i >= w {
			break
		}
		screen.SetContent(x+i, y, r, nil, style)
	}
	for i, m := range c.picker.matches {
		row := y + 1 + i
		if row >= y+h {
			break
		}
		rowStyle := config.GetColor(config.RoleTabInactive)
		if i == c.picker.selected {
			rowStyle = config.GetColor(config.RoleTabActive)
		}
		label := c.picker.candidates[m.Index].label
		for col, r := range []rune(label) {
			if col >= w {
				break
			}
			screen.SetContent(x+col, row, r, nil, rowStyle)
		}
	}
}
