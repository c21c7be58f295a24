package host

import (
	"testing"
	"time"

	"github.com/rustyterm/rustyterm/internal/appevent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHost(t *testing.T) (*Host, <-chan []byte) {
	t.Helper()
	events := appevent.NewSink()
	h, out, err := New(events, 80, 24, []string{"/bin/sh"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h, out
}

func TestResizeIdempotent(t *testing.T) {
	h, _ := newTestHost(t)

	require.NoError(t, h.Resize(100, 30))
	cols, rows := h.innerSize()
	assert.Equal(t, 100, cols)
	assert.Equal(t, 30, rows)

	// Repeating the same size must be a no-op (spec.md §8 round-trip
	// property): it succeeds and leaves the dimensions unchanged.
	require.NoError(t, h.Resize(100, 30))
	cols, rows = h.innerSize()
	assert.Equal(t, 100, cols)
	assert.Equal(t, 30, rows)
}

func TestScrollViewOffsetClamped(t *testing.T) {
	h, _ := newTestHost(t)

	h.ScrollUp(50)
	assert.Equal(t, 0, h.ViewOffset(), "scrolling up with empty scrollback stays at 0")

	for i := 0; i < 20; i++ {
		h.scrollback.Push(make([]Cell, 80))
	}
	h.ScrollUp(1000)
	assert.Equal(t, 20, h.ViewOffset(), "offset clamps to scrollback length")

	h.ScrollDown(1000)
	assert.Equal(t, 0, h.ViewOffset())
	assert.False(t, h.IsScrolledUp())
}

func TestScrollToBottomSnapsView(t *testing.T) {
	h, _ := newTestHost(t)
	for i := 0; i < 5; i++ {
		h.scrollback.Push(make([]Cell, 80))
	}
	h.ScrollUp(3)
	require.True(t, h.IsScrolledUp())

	h.ScrollToBottom()
	assert.Equal(t, 0, h.ViewOffset())
}

func TestModeFlagsIntersectsNotEquality(t *testing.T) {
	var f ModeFlags = ModeMouseReportClick | ModeSGRMouse
	assert.True(t, f.Intersects(mouseReportMask), "click bit alone must satisfy the mouse-report predicate")
	assert.False(t, (ModeFlags(0)).Intersects(mouseReportMask))
}

func TestModeTrackerTracksMouseAndAltScreen(t *testing.T) {
	m := newModeTracker()
	m.Feed([]byte("\x1b[?1000;1006h"))
	assert.True(t, m.Flags().Intersects(mouseReportMask))
	assert.True(t, m.Flags().Intersects(ModeSGRMouse))

	m.Feed([]byte("\x1b[?1000l"))
	assert.False(t, m.Flags().Intersects(ModeMouseReportClick))
	assert.True(t, m.Flags().Intersects(ModeSGRMouse), "clearing one mode must not clear unrelated bits")

	m.Feed([]byte("\x1b[?1049h"))
	assert.True(t, m.Flags().Intersects(ModeAltScreen))
}

func TestModeTrackerHandlesSplitSequence(t *testing.T) {
	m := newModeTracker()
	m.Feed([]byte("\x1b[?100"))
	m.Feed([]byte("0h"))
	assert.True(t, m.Flags().Intersects(ModeMouseReportClick))
}

func TestEncodeSGRClampsToInnerArea(t *testing.T) {
	ev := MouseEvent{Button: MouseLeft, Col: 500, Row: -5}
	seq := EncodeSGR(ev, 80, 24)
	assert.Equal(t, "\x1b[<0;80;1M", seq)
}

func TestEncodeSGRReleaseUsesLowercaseSuffix(t *testing.T) {
	ev := MouseEvent{Button: MouseLeft, Col: 1, Row: 1, Release: true}
	seq := EncodeSGR(ev, 80, 24)
	assert.Equal(t, "\x1b[<0;2;2m", seq)
}

func TestWriteInputFailsAfterClose(t *testing.T) {
	h, _ := newTestHost(t)
	require.NoError(t, h.Close())
	err := h.WriteInput([]byte("echo hi\n"))
	assert.Error(t, err)
}

func TestShellExitEmitsCompletedEvent(t *testing.T) {
	events := appevent.NewSink()
	h, _, err := New(events, 80, 24, []string{"/bin/sh", "-c", "exit 0"})
	require.NoError(t, err)
	defer h.Close()

	select {
	case ev := <-events:
		assert.Equal(t, appevent.KindShellCommandCompleted, ev.Kind)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for ShellCommandCompleted event")
	}
}
