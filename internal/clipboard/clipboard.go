// Package clipboard wraps the system clipboard for the router's yank and
// middle-click paste operations (spec.md §4.4, §6). The teacher's own
// internal/clipboard package (called as clipboard.Write(text,
// clipboard.ClipboardReg) from internal/terminal/input.go) was not part
// of the retrieved source, so this is authored fresh around the same
// third-party dependency the teacher's go.mod already carries,
// zyedidia/clipper, with the degrade-to-in-process-buffer behavior
// spec.md §6 requires when no system clipboard is reachable (e.g. no X11/
// Wayland session, SSH without forwarding).
package clipboard

import (
	"log"
	"sync"

	"github.com/zyedidia/clipper"
)

// Board satisfies internal/router.Clipboard. It prefers a real OS
// clipboard method (clipper probes xclip/xsel/wl-clipboard/pbcopy/
// win32 depending on platform) and falls back to an in-process buffer
// that still lets copy/paste work within a single RustyTerm session.
type Board struct {
	mu  sync.Mutex
	cb  clipper.Clipboard
	buf string
}

// New probes for a usable system clipboard method and returns a Board
// wrapping it, degrading silently to the in-process buffer if none of the
// platform's clipboard backends are available.
func New() *Board {
	b := &Board{}
	boards, err := clipper.GetClipboards(clipper.Clipboards...)
	if err != nil || len(boards) == 0 {
		log.Printf("RUSTYTERM: clipboard: no system clipboard backend found, using in-process buffer: %v", err)
		return b
	}
	b.cb = boards[0]
	return b
}

// ReadText returns the current clipboard contents.
func (b *Board) ReadText() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cb == nil {
		return b.buf, nil
	}
	data, err := b.cb.ReadAll(clipper.RegClipboard)
	if err != nil {
		log.Printf("RUSTYTERM: clipboard: read failed, falling back to in-process buffer: %v", err)
		return b.buf, nil
	}
	return string(data), nil
}

// WriteText sets the clipboard contents, mirroring the teacher's
// clipboard.Write(text, clipboard.ClipboardReg) call shape.
func (b *Board) WriteText(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = text
	if b.cb == nil {
		return nil
	}
	if err := b.cb.WriteAll(clipper.RegClipboard, []byte(text)); err != nil {
		log.Printf("RUSTYTERM: clipboard: write failed, kept in-process copy: %v", err)
	}
	return nil
}
