// Package host implements the PTY host of spec.md §4.1: it spawns a real
// shell behind a pseudo-terminal, pipes its raw bytes through a
// VT-compatible emulator (hinshun/vt10x, the teacher's own dependency),
// maintains a scrollback grid, and exposes the keyboard/mouse/selection
// surface the event router drives.
package host

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/go-errors/errors"
	"github.com/hinshun/vt10x"
	"github.com/rustyterm/rustyterm/internal/appevent"
)

// byteStreamCapacity is the bounded channel size spec.md §5 recommends for
// the PTY output stream ("recommended 1024 chunks").
const byteStreamCapacity = 1024

// Host owns one PTY master/slave pair and the VT emulator consuming its
// output. Adapted from the teacher's internal/terminal/panel.go Panel,
// split from its tcell-coupled rendering so it can be driven headlessly by
// the router/tests.
type Host struct {
	mu sync.RWMutex

	pty *os.File
	cmd *exec.Cmd
	vt  vt10x.Terminal

	cols, rows int

	scrollback   *ScrollbackBuffer
	viewOffset   int
	selection    Selection
	modeTracker  *modeTracker

	events appevent.Sink
	out    chan []byte

	writeMu sync.Mutex // guards pty writes; poisoned on close (spec.md §4.1)
	closed  bool

	lastLiveRows [][]Cell // previous live grid, used to detect rows scrolled into history
}

// New spawns cmdArgs[0] (falling back to $SHELL, then /bin/sh, when
// cmdArgs is empty) with a controlling TTY sized cols×rows, and returns
// the Host plus its bounded raw-byte stream. Matches spec.md §4.1's
// `new(out_event_sink, cols, rows) → (Host, byte_stream)`.
func New(events appevent.Sink, cols, rows int, cmdArgs []string) (*Host, <-chan []byte, error) {
	if cols <= 0 {
		cols = 80
	}
	if rows <= 0 {
		rows = 24
	}
	if len(cmdArgs) == 0 {
		cmdArgs = []string{defaultShell()}
	}

	cmd := exec.Command(cmdArgs[0], cmdArgs[1:]...)
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, nil, errors.Errorf("host: spawn shell %q: %w", cmdArgs[0], err)
	}

	vt := vt10x.New(vt10x.WithSize(cols, rows), vt10x.WithWriter(ptmx))
	_ = pty.Setsize(ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})

	h := &Host{
		pty:         ptmx,
		cmd:         cmd,
		vt:          vt,
		cols:        cols,
		rows:        rows,
		scrollback:  NewScrollbackBuffer(DefaultScrollbackCapacity),
		modeTracker: newModeTracker(),
		events:      events,
		out:         make(chan []byte, byteStreamCapacity),
	}

	go h.readLoop()
	go h.waitExit()

	return h, h.out, nil
}

// defaultShell resolves $SHELL, falling back to /bin/sh, per spec.md §6.
func defaultShell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

// readLoop drains the PTY master into the bounded byte channel and feeds
// the VT emulator + mode tracker. It must never block on the consumer
// (spec.md §4.1): the channel send is non-blocking and drops the oldest
// pending chunk when the channel is full.
func (h *Host) readLoop() {
	buf := make([]byte, 8192)
	for {
		n, err := h.pty.Read(buf)
		if err != nil {
			h.mu.Lock()
			closed := h.closed
			h.mu.Unlock()
			if !closed {
				h.emit(appevent.Event{Kind: appevent.KindShellError, At: time.Now(), Err: err})
			}
			close(h.out)
			return
		}
		if n == 0 {
			continue
		}
		chunk := make([]byte, n)
		copy(chunk, buf[:n])

		h.mu.Lock()
		h.modeTracker.Feed(chunk)
		h.vt.Write(chunk)
		h.captureScrolledRows()
		h.mu.Unlock()

		select {
		case h.out <- chunk:
		default:
			// Bounded channel full: drop the oldest pending chunk rather
			// than block the reader, per spec.md §4.1 ("reader MUST NOT
			// block on the grid"). The emulator already has the bytes;
			// only the UI-facing raw copy is lossy here.
			select {
			case <-h.out:
			default:
			}
			select {
			case h.out <- chunk:
			default:
			}
		}
	}
}

// captureScrolledRows detects rows that scrolled out of the live region
// since the previous frame and appends them to scrollback, following the
// teacher's "when the shell writes past the last row, the topmost row is
// appended to scrollback" rule (spec.md §4.1). Must be called with mu
// held.
func (h *Host) captureScrolledRows() {
	cols, rows := h.vt.Size()
	live := h.snapshotLiveLocked(cols, rows)

	if h.lastLiveRows == nil {
		h.lastLiveRows = live
		return
	}

	// Heuristic: if the previous top row is no longer present anywhere in
	// the new live view, it scrolled into history.
	if len(h.lastLiveRows) > 0 && len(live) > 0 {
		prevTop := h.lastLiveRows[0]
		stillVisible := false
		for _, row := range live {
			if rowsEqual(row, prevTop) {
				stillVisible = true
				break
			}
		}
		if !stillVisible && !rowsEmpty(prevTop) {
			h.scrollback.Push(prevTop)
		}
	}
	h.lastLiveRows = live
}

func rowsEqual(a, b []Cell) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Ch != b[i].Ch {
			return false
		}
	}
	return true
}

func rowsEmpty(row []Cell) bool {
	for _, c := range row {
		if c.Ch != 0 && c.Ch != ' ' {
			return false
		}
	}
	return true
}

func (h *Host) snapshotLiveLocked(cols, rows int) [][]Cell {
	out := make([][]Cell, rows)
	for y := 0; y < rows; y++ {
		row := make([]Cell, cols)
		for x := 0; x < cols; x++ {
			g := h.vt.Cell(x, y)
			row[x] = Cell{Ch: g.Char, FG: g.FG, BG: g.BG, Mode: g.Mode}
		}
		markWideContinuations(row)
		out[y] = row
	}
	return out
}

// waitExit blocks for the child process to exit and emits
// ShellCommandCompleted, per spec.md §4.1/§7. RustyTerm does not
// auto-respawn the shell (an explicit decision recorded in DESIGN.md
// resolving spec.md §9's open question).
func (h *Host) waitExit() {
	err := h.cmd.Wait()
	exitCode := 0
	hasExit := false
	if h.cmd.ProcessState != nil {
		exitCode = h.cmd.ProcessState.ExitCode()
		hasExit = true
	}
	h.emit(appevent.Event{
		Kind:     appevent.KindShellCommandCompleted,
		At:       time.Now(),
		Err:      err,
		ExitCode: exitCode,
		HasExit:  hasExit,
	})
}

func (h *Host) emit(ev appevent.Event) {
	select {
	case h.events <- ev:
	default:
		log.Printf("RUSTYTERM: host: AppEvent channel full, dropping %v", ev.Kind)
	}
}

// WriteInput enqueues user keystrokes to the PTY. Fails if the shell has
// exited.
func (h *Host) WriteInput(data []byte) error {
	return h.writeRaw(data)
}

func (h *Host) writeRaw(data []byte) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return errors.New("host: write to closed PTY")
	}

	_, err := h.pty.Write(data)
	if err != nil {
		return fmt.Errorf("host: write input: %w", err)
	}
	return nil
}

// Resize propagates new dimensions to the PTY slave (via ioctl) and the
// emulator grid. Idempotent when dimensions are unchanged, per spec.md
// §8's round-trip property.
func (h *Host) Resize(cols, rows int) error {
	h.mu.Lock()
	if h.cols == cols && h.rows == rows {
		h.mu.Unlock()
		return nil
	}
	h.cols, h.rows = cols, rows
	h.mu.Unlock()

	h.vt.Resize(cols, rows)
	if err := pty.Setsize(h.pty, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}); err != nil {
		return fmt.Errorf("host: resize pty: %w", err)
	}
	h.emit(appevent.Event{Kind: appevent.KindResize, At: time.Now(), Cols: cols, Rows: rows})
	return nil
}

// ExecuteVisible writes command followed by a single newline,
// non-blocking; output returns asynchronously through the normal byte
// stream. This is the only method the security gate's
// TryExecuteSuggested and ConfirmSuggested may call (spec.md §4.1, §4.3).
func (h *Host) ExecuteVisible(command string) error {
	return h.writeRaw([]byte(command + "\n"))
}

func (h *Host) innerSize() (cols, rows int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cols, h.rows
}

// lineAt returns the Cell row at the given combined scrollback+live row
// index (0 = oldest scrollback row). Must be called with mu held (or
// RLock'd) by callers in this package.
func (h *Host) lineAt(row int) []Cell {
	sbCount := h.scrollback.Count()
	if row < sbCount {
		return h.scrollback.Get(row)
	}
	liveY := row - sbCount
	cols, rows := h.vt.Size()
	if liveY < 0 || liveY >= rows {
		return nil
	}
	line := make([]Cell, cols)
	for x := 0; x < cols; x++ {
		g := h.vt.Cell(x, liveY)
		line[x] = Cell{Ch: g.Char, FG: g.FG, BG: g.BG, Mode: g.Mode}
	}
	markWideContinuations(line)
	return line
}

// ScrollUp moves the view n rows further into scrollback, clamped to
// [0, scrollback_len] (spec.md §3 invariant).
func (h *Host) ScrollUp(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.viewOffset = h.scrollback.ClampViewOffset(h.viewOffset + n)
}

// ScrollDown moves the view n rows toward live, clamped at 0.
func (h *Host) ScrollDown(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.viewOffset = h.scrollback.ClampViewOffset(h.viewOffset - n)
}

// ScrollToBottom snaps the view back to live, matching spec.md §4.1's
// "user typing into the shell snaps view back to live (offset 0)".
func (h *Host) ScrollToBottom() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.viewOffset = 0
}

// ViewOffset returns the current scroll offset.
func (h *Host) ViewOffset() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.viewOffset
}

// IsScrolledUp reports whether the view is anywhere above live.
func (h *Host) IsScrolledUp() bool {
	return h.ViewOffset() > 0
}

// RenderFrame produces the cell grid to paint, honoring viewOffset: the
// live region always has exactly Rows rows (spec.md §3 invariant), with
// scrollback rows substituted in from the top when offset > 0.
func (h *Host) RenderFrame(viewOffset int) Grid {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cols, rows := h.vt.Size()
	grid := NewGrid(cols, rows)

	sbCount := h.scrollback.Count()
	offset := h.scrollback.ClampViewOffset(viewOffset)

	for y := 0; y < rows; y++ {
		combinedRow := sbCount - offset + y
		var src []Cell
		if combinedRow < 0 {
			src = nil
		} else if combinedRow < sbCount {
			src = h.scrollback.Get(combinedRow)
		} else {
			liveY := combinedRow - sbCount
			if liveY < rows {
				src = make([]Cell, cols)
				for x := 0; x < cols; x++ {
					g := h.vt.Cell(x, liveY)
					src[x] = Cell{Ch: g.Char, FG: g.FG, BG: g.BG, Mode: g.Mode}
				}
				markWideContinuations(src)
			}
		}
		for x := 0; x < cols; x++ {
			if src != nil && x < len(src) {
				grid.Cells[y][x] = src[x]
			}
			if h.isSelected(x, combinedRow) {
				grid.Cells[y][x].Mode |= selectedModeBit
			}
		}
	}

	if offset == 0 {
		cursor := h.vt.Cursor()
		grid.CursorX, grid.CursorY = cursor.X, cursor.Y
		grid.CursorVisible = h.vt.CursorVisible()
	}

	return grid
}

// selectedModeBit is an out-of-band bit (above vt10x's real attribute
// bits) that RenderFrame sets so the termui painter can reverse-video a
// selection without a second pass over the grid.
const selectedModeBit = 1 << 14

// ScrollbackLen reports the number of rows currently held in scrollback.
func (h *Host) ScrollbackLen() int {
	return h.scrollback.Count()
}

// ModeFlags returns the current emulator mode bitset.
func (h *Host) ModeFlags() ModeFlags {
	h.mu.RLock()
	defer h.mu.RUnlock()
	flags := h.modeTracker.Flags()
	if h.vt.Mode()&vt10x.ModeAltScreen != 0 {
		flags |= ModeAltScreen
	}
	return flags
}

// Close terminates the shell and releases the PTY. Safe to call more than
// once.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	if h.cmd.Process != nil {
		_ = h.cmd.Process.Kill()
	}
	return h.pty.Close()
}
