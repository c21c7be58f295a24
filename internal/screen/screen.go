// Package screen owns the single tcell.Screen singleton RustyTerm draws
// to. The teacher's own internal/screen package (driving this exact
// pattern — a package-level Screen, a redraw-request channel pumped
// through PollEvent on its own goroutine, TermMessage/TermPrompt helpers
// for fatal/interactive prompts before the screen or in place of it) was
// not part of the retrieved source, only its call sites (cmd/thicc/
// micro.go, internal/layout/manager.go, internal/terminal/panel.go). This
// is authored fresh against that observed surface.
package screen

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/micro-editor/tcell/v2"
)

// Screen is the process-wide terminal screen. Init must be called before
// any other package function touches it.
var Screen tcell.Screen

// Events carries raw tcell events from the dedicated PollEvent goroutine
// Init starts, so callers can select across it and DrawChan without
// blocking one on the other.
var Events chan tcell.Event

var (
	mu       sync.Mutex
	drawChan chan bool
)

// Init constructs and activates the tcell screen, enables mouse
// reporting and paste, and starts the background PollEvent pump.
func Init() error {
	s, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("screen: new screen: %w", err)
	}
	if err := s.Init(); err != nil {
		return fmt.Errorf("screen: init: %w", err)
	}
	s.EnableMouse()
	s.EnablePaste()

	Screen = s
	Events = make(chan tcell.Event)
	drawChan = make(chan bool, 1)

	go func() {
		for {
			Lock()
			sc := Screen
			Unlock()
			if sc == nil {
				return
			}
			ev := sc.PollEvent()
			if ev == nil {
				return
			}
			Events <- ev
		}
	}()

	return nil
}

// Lock/Unlock guard concurrent access to Screen between the PollEvent
// goroutine and the main render loop, matching the teacher's own
// screen.Lock()/screen.Unlock() call sites around PollEvent.
func Lock()   { mu.Lock() }
func Unlock() { mu.Unlock() }

// DrawChan is a buffered redraw-request signal: any goroutine that
// mutates state the screen depends on pushes to it instead of calling
// Screen.Show directly, so the render loop can coalesce bursts of
// changes into one frame.
func DrawChan() chan bool {
	return drawChan
}

// RequestRedraw enqueues a redraw without blocking if one is already
// pending.
func RequestRedraw() {
	select {
	case drawChan <- true:
	default:
	}
}

// SetContent forwards to Screen.SetContent, nil-safe for use before Init
// in tests.
func SetContent(x, y int, primary rune, combining []rune, style tcell.Style) {
	if Screen == nil {
		return
	}
	Screen.SetContent(x, y, primary, combining, style)
}

// ShowCursor forwards to Screen.ShowCursor.
func ShowCursor(x, y int) {
	if Screen == nil {
		return
	}
	Screen.ShowCursor(x, y)
}

// Size forwards to Screen.Size.
func Size() (int, int) {
	if Screen == nil {
		return 0, 0
	}
	return Screen.Size()
}

// TermMessage prints a message to stderr, suspending the tcell screen
// first if it is active so the message is actually visible — used for
// startup/fatal errors the same way the teacher's screen.TermMessage is.
func TermMessage(args ...interface{}) {
	if Screen != nil {
		Screen.Fini()
	}
	fmt.Fprintln(os.Stderr, args...)
}

// TermPrompt suspends the screen and asks a y/n-style question on stderr/
// stdin, returning the option the user picked. allowAbort appends an
// "abort" style exit path the caller can special-case.
func TermPrompt(msg string, options []string, allowAbort bool) string {
	if Screen != nil {
		Screen.Fini()
	}
	fmt.Fprintf(os.Stderr, "%s [%s]: ", msg, strings.Join(options, "/"))

	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)

	for _, opt := range options {
		if strings.EqualFold(line, opt) {
			return opt
		}
	}
	if allowAbort {
		return "abort"
	}
	if len(options) > 0 {
		return options[0]
	}
	return ""
}
