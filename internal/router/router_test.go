package router

import (
	"context"
	"testing"
	"time"

	"github.com/micro-editor/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyterm/rustyterm/internal/ai"
	"github.com/rustyterm/rustyterm/internal/appevent"
	"github.com/rustyterm/rustyterm/internal/host"
	"github.com/rustyterm/rustyterm/internal/security"
	"github.com/rustyterm/rustyterm/internal/snapshot"
)

type noopClient struct{}

func (noopClient) Stream(ctx context.Context, model, system string, turns []ai.Turn) (<-chan ai.StreamEvent, error) {
	ch := make(chan ai.StreamEvent)
	close(ch)
	return ch, nil
}

type noopVerdicter struct{}

func (noopVerdicter) Evaluate(command string) (appevent.Verdict, string) {
	return appevent.VerdictAllow, ""
}

type fakeClipboard struct{ text string }

func (f *fakeClipboard) ReadText() (string, error) { return f.text, nil }
func (f *fakeClipboard) WriteText(text string) error {
	f.text = text
	return nil
}

type fakeAssistant struct {
	sent          int
	inserted      []rune
	confirmed     bool
	rejected      bool
	cycled        int
	clicks        []Region
}

func (f *fakeAssistant) InsertRune(r rune)   { f.inserted = append(f.inserted, r) }
func (f *fakeAssistant) InsertNewline()      {}
func (f *fakeAssistant) Backspace()          {}
func (f *fakeAssistant) Send(ctx context.Context) error {
	f.sent++
	return nil
}
func (f *fakeAssistant) CycleSession(direction int) { f.cycled += direction }
func (f *fakeAssistant) ConfirmSuggestion() error    { f.confirmed = true; return nil }
func (f *fakeAssistant) RejectSuggestion()           { f.rejected = true }
func (f *fakeAssistant) CycleAlternative()           {}
func (f *fakeAssistant) HandleClick(region Region, col, row int, kind ClickKind) {
	f.clicks = append(f.clicks, region)
}
func (f *fakeAssistant) ScrollMessages(delta int) {}

func newTestRouter(t *testing.T) (*Router, *host.Host) {
	t.Helper()
	events := appevent.NewSink()
	h, _, err := host.New(events, 80, 24, []string{"/bin/sh"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	m := ai.NewManager(ai.NewTokenSink(), events, "test-model", noopClient{}, noopVerdicter{})
	gate := security.NewGate(security.DefaultPolicy(), h)
	collector := snapshot.NewCollector(10)

	r := New(h, m, gate, collector, &fakeClipboard{}, 80, 24)
	return r, h
}

func keyRune(r rune, mod tcell.ModMask) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, mod, "")
}

func keyNamed(k tcell.Key) *tcell.EventKey {
	return tcell.NewEventKey(k, 0, tcell.ModNone, "")
}

func TestLeaderKeyEntersCommandPrefixMode(t *testing.T) {
	r, _ := newTestRouter(t)
	r.HandleKey(keyNamed(tcell.KeyCtrlB))
	assert.Equal(t, ModeCommandPrefix, r.State.Mode)
}

func TestCommandPrefixVEntersVisualMode(t *testing.T) {
	r, _ := newTestRouter(t)
	r.HandleKey(keyNamed(tcell.KeyCtrlB))
	r.HandleKey(keyRune('v', tcell.ModNone))
	assert.Equal(t, ModeVisual, r.State.Mode)
	assert.Equal(t, FocusTerminal, r.State.Focus)
}

func TestCommandPrefixTabTogglesFocusAndResetsToNormal(t *testing.T) {
	r, _ := newTestRouter(t)
	r.HandleKey(keyNamed(tcell.KeyCtrlB))
	r.HandleKey(keyNamed(tcell.KeyTab))
	assert.Equal(t, ModeNormal, r.State.Mode)
	assert.Equal(t, FocusAssistant, r.State.Focus)
}

func TestCommandPrefixUnknownKeyReturnsToNormal(t *testing.T) {
	r, _ := newTestRouter(t)
	r.HandleKey(keyNamed(tcell.KeyCtrlB))
	r.HandleKey(keyRune('q', tcell.ModNone))
	assert.Equal(t, ModeNormal, r.State.Mode)
}

func TestVisualModeRepeatCountAccumulatesDigits(t *testing.T) {
	r, _ := newTestRouter(t)
	r.HandleKey(keyNamed(tcell.KeyCtrlB))
	r.HandleKey(keyRune('v', tcell.ModNone))
	start := r.State.VisualCursor

	r.HandleKey(keyRune('3', tcell.ModNone))
	r.HandleKey(keyRune('l', tcell.ModNone))

	assert.Equal(t, start.Col+3, r.State.VisualCursor.Col)
	assert.Equal(t, "", r.State.RepeatDigits)
}

func TestVisualModeEscapeClearsSelectionAndReturnsToNormal(t *testing.T) {
	r, h := newTestRouter(t)
	r.HandleKey(keyNamed(tcell.KeyCtrlB))
	r.HandleKey(keyRune('v', tcell.ModNone))
	require.True(t, h.HasSelection())

	r.HandleKey(keyNamed(tcell.KeyEscape))
	assert.Equal(t, ModeNormal, r.State.Mode)
	assert.False(t, h.HasSelection())
}

func TestVisualModeSpaceCyclesSelectionShape(t *testing.T) {
	r, h := newTestRouter(t)
	r.HandleKey(keyNamed(tcell.KeyCtrlB))
	r.HandleKey(keyRune('v', tcell.ModNone))

	r.HandleKey(keyRune(' ', tcell.ModNone))
	assert.Equal(t, host.SelectionLine, h.CurrentSelection().Mode)

	r.HandleKey(keyRune(' ', tcell.ModNone))
	assert.Equal(t, host.SelectionBlock, h.CurrentSelection().Mode)

	r.HandleKey(keyRune(' ', tcell.ModNone))
	assert.Equal(t, host.SelectionNone, h.CurrentSelection().Mode)
}

func TestVisualModeYankReturnsToNormal(t *testing.T) {
	r, _ := newTestRouter(t)
	clip := &fakeClipboard{}
	r.clipboard = clip

	r.HandleKey(keyNamed(tcell.KeyCtrlB))
	r.HandleKey(keyRune('v', tcell.ModNone))
	r.HandleKey(keyRune('y', tcell.ModNone))

	assert.Equal(t, ModeNormal, r.State.Mode)
}

func TestScrollModeEngagesOnShiftUpAndExitsOnEnd(t *testing.T) {
	r, _ := newTestRouter(t)
	shiftUp := tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModShift, "")

	r.HandleKey(shiftUp)
	assert.Equal(t, ModeScroll, r.State.Mode)

	r.HandleKey(keyNamed(tcell.KeyEnd))
	assert.Equal(t, ModeNormal, r.State.Mode)
}

func TestAssistantNormalKeysDelegateToController(t *testing.T) {
	r, _ := newTestRouter(t)
	fa := &fakeAssistant{}
	r.SetAssistant(fa)
	r.State.Focus = FocusAssistant

	r.HandleKey(keyRune('h', tcell.ModNone))
	r.HandleKey(keyRune('i', tcell.ModNone))
	r.HandleKey(keyNamed(tcell.KeyEnter))
	r.HandleKey(keyNamed(tcell.KeyCtrlY))
	r.HandleKey(keyNamed(tcell.KeyCtrlN))

	assert.Equal(t, []rune{'h', 'i'}, fa.inserted)
	assert.Equal(t, 1, fa.sent)
	assert.True(t, fa.confirmed)
	assert.True(t, fa.rejected)
}

func TestRegionHitTestDispatchesClickToAssistant(t *testing.T) {
	r, _ := newTestRouter(t)
	fa := &fakeAssistant{}
	r.SetAssistant(fa)
	r.State.Focus = FocusAssistant

	sep := r.Layout.SeparatorCol()
	ev := tcell.NewEventMouse(sep+3, 10, tcell.Button1, tcell.ModNone, "")
	r.HandleMouse(ev, time.Now())

	require.Len(t, fa.clicks, 1)
	assert.Equal(t, RegionAssistantMessageArea, fa.clicks[0])
}

func TestMouseClickSwitchingFocusDoesNotAlsoAct(t *testing.T) {
	r, _ := newTestRouter(t)
	fa := &fakeAssistant{}
	r.SetAssistant(fa)
	require.Equal(t, FocusTerminal, r.State.Focus)

	sep := r.Layout.SeparatorCol()
	ev := tcell.NewEventMouse(sep+3, 10, tcell.Button1, tcell.ModNone, "")
	r.HandleMouse(ev, time.Now())

	assert.Equal(t, FocusAssistant, r.State.Focus)
	assert.Empty(t, fa.clicks, "the focus-switching click must not also register as a click on the new pane")
}

func TestSeparatorDragClampsSplitRatio(t *testing.T) {
	r, _ := newTestRouter(t)
	sep := r.Layout.SeparatorCol()

	press := tcell.NewEventMouse(sep, 5, tcell.Button1, tcell.ModNone, "")
	r.HandleMouse(press, time.Now())

	drag := tcell.NewEventMouse(1, 5, tcell.Button1, tcell.ModNone, "")
	r.HandleMouse(drag, time.Now())

	assert.GreaterOrEqual(t, r.Layout.SplitRatio, 0.10)

	release := tcell.NewEventMouse(1, 5, tcell.ButtonNone, tcell.ModNone, "")
	r.HandleMouse(release, time.Now())
	r.DragRelease()
	assert.False(t, r.separatorDrag)
}

func TestTerminalClickChordSelectsWordOnDoubleClick(t *testing.T) {
	r, h := newTestRouter(t)
	now := time.Now()
	ev := tcell.NewEventMouse(2, 2, tcell.Button1, tcell.ModNone, "")

	r.HandleMouse(ev, now)
	r.HandleMouse(ev, now.Add(50*time.Millisecond))

	assert.True(t, h.HasSelection())
}

// TestTerminalContentCoordTranslatesBorderOffset pins the translation
// termui.Painter's 1-cell border requires: the pane starts at screen
// (0,0) per termui.PaneRegion, so its inner content area starts at
// screen (1,1), and every coordinate handed to internal/host must be
// relative to that, not to the screen.
func TestTerminalContentCoordTranslatesBorderOffset(t *testing.T) {
	r, _ := newTestRouter(t)
	col, row := r.terminalContentCoord(5, 3)
	assert.Equal(t, 4, col)
	assert.Equal(t, 2, row)
}

// TestTerminalClickUsesContentRelativeCoordsForLocalSelection guards
// against the screen/content coordinate mismatch directly: a click on
// screen cell (5,3) sits inside the border at content cell (4,2), and the
// local selection the router starts (mouse-reporting off) must be
// anchored there, not at the raw screen position.
func TestTerminalClickUsesContentRelativeCoordsForLocalSelection(t *testing.T) {
	r, h := newTestRouter(t)
	ev := tcell.NewEventMouse(5, 3, tcell.Button1, tcell.ModNone, "")
	r.HandleMouse(ev, time.Now())

	sel := h.CurrentSelection()
	assert.Equal(t, host.Loc{Col: 4, Row: 2}, sel.Start, "screen (5,3) must translate to content-relative (4,2) inside the 1-cell border")
}
