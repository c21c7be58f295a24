// Package main is the RustyTerm entrypoint: it wires the PTY host, the AI
// session manager, the security gate, the event router, and the two
// terminal-UI panes together and runs the select-loop that drives them.
// Grounded on the teacher's cmd/thicc/micro.go (flag parsing via the
// stdlib flag package, an InitFlags/DoEvent split, a deferred crash
// handler that restores the screen before printing) but trimmed from
// thicc's editor/dashboard/plugin machinery down to RustyTerm's two-pane
// shape.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"strings"
	"time"

	isatty "github.com/mattn/go-isatty"
	"github.com/micro-editor/tcell/v2"

	"github.com/go-errors/errors"

	"github.com/rustyterm/rustyterm/internal/ai"
	"github.com/rustyterm/rustyterm/internal/appevent"
	"github.com/rustyterm/rustyterm/internal/assistantui"
	"github.com/rustyterm/rustyterm/internal/clipboard"
	"github.com/rustyterm/rustyterm/internal/config"
	"github.com/rustyterm/rustyterm/internal/host"
	"github.com/rustyterm/rustyterm/internal/router"
	"github.com/rustyterm/rustyterm/internal/screen"
	"github.com/rustyterm/rustyterm/internal/security"
	"github.com/rustyterm/rustyterm/internal/snapshot"
	"github.com/rustyterm/rustyterm/internal/termui"
)

// Version, CommitHash and CompileDate are overridden at build time via
// -ldflags, matching the teacher's internal/util version plumbing.
var (
	Version     = "dev"
	CommitHash  = "unknown"
	CompileDate = "unknown"
)

var (
	flagVersion   = flag.Bool("version", false, "Show the version number and information")
	flagConfigDir = flag.String("config-dir", "", "Specify a custom location for the configuration directory")
	flagDebug     = flag.Bool("debug", false, "Enable debug mode (prints debug info to ./log.txt)")
	flagModel     = flag.String("model", "claude-sonnet-4-5-20250929", "Anthropic model id to use for the AI copilot")
)

func initFlags() {
	flag.Usage = func() {
		fmt.Println("Usage: rustyterm [OPTIONS] [-- SHELL-COMMAND...]")
		fmt.Println("")
		fmt.Println("RustyTerm hosts a live shell side by side with a streaming AI command")
		fmt.Println("copilot. Command suggestions are gated by a security policy before they")
		fmt.Println("ever reach the shell.")
		fmt.Println("")
		fmt.Println("Options:")
		fmt.Println("  -version           Show version and exit")
		fmt.Println("  -config-dir <dir>  Use a custom configuration directory")
		fmt.Println("  -debug             Enable debug logging to ./log.txt")
		fmt.Println("  -model <id>        Anthropic model id for the AI copilot")
		fmt.Println("")
		fmt.Println("Keys:")
		fmt.Println("  Ctrl+B Tab         Switch focus between terminal and assistant")
		fmt.Println("  Ctrl+Y             Confirm the current command suggestion")
		fmt.Println("  Ctrl+Q             Quit")
	}

	flag.Parse()

	if *flagVersion {
		fmt.Println("Version:", Version)
		fmt.Println("Commit hash:", CommitHash)
		fmt.Println("Compiled on", CompileDate)
		os.Exit(0)
	}
}

func initLog(debugMode bool) func() {
	if !debugMode {
		log.SetOutput(os.Stderr)
		return func() {}
	}
	f, err := os.OpenFile("log.txt", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("RUSTYTERM: could not open log.txt, logging to stderr: %v", err)
		return func() {}
	}
	log.SetOutput(f)
	return func() { f.Close() }
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "rustyterm: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	initFlags()
	closeLog := initLog(*flagDebug)
	defer closeLog()

	if !isatty.IsTerminal(os.Stdin.Fd()) || !isatty.IsTerminal(os.Stdout.Fd()) {
		fatal("stdin and stdout must be a terminal")
	}

	if err := config.InitConfigDir(*flagConfigDir); err != nil {
		fatal("%v", err)
	}

	apiKey := firstNonEmptyEnv("ANTHROPIC_API_KEY", "RUSTYTERM_API_KEY")
	if apiKey == "" {
		fatal("ANTHROPIC_API_KEY (or RUSTYTERM_API_KEY) must be set to use the AI copilot")
	}

	policy, err := security.LoadPolicyFile(config.PolicyFilePath())
	if err != nil {
		log.Printf("RUSTYTERM: policy load warning: %v", err)
	}

	if err := screen.Init(); err != nil {
		fatal("could not initialize terminal screen: %v", err)
	}
	if err := config.InitColorscheme(config.ColorschemeFilePath()); err != nil {
		log.Printf("RUSTYTERM: colorscheme load warning: %v", err)
	}

	cols, rows := screen.Size()

	shellArgs := flag.Args()
	events := appevent.NewSink()

	h, ptyOut, err := host.New(events, cols, rows, shellArgs)
	if err != nil {
		screen.Screen.Fini()
		fatal("could not start shell: %v", err)
	}
	defer h.Close()

	gate := security.NewGate(policy, h)
	if w, err := security.WatchPolicyFile(config.PolicyFilePath(), gate); err != nil {
		log.Printf("RUSTYTERM: policy hot-reload disabled: %v", err)
	} else {
		defer w.Close()
	}

	tokens := ai.NewTokenSink()
	client := ai.NewAnthropicStreamClient(apiKey)
	manager := ai.NewManager(tokens, events, *flagModel, client, gate)

	collector := snapshot.NewCollector(snapshot.DefaultRecentHistorySize)

	board := clipboard.New()

	r := router.New(h, manager, gate, collector, board, cols, rows)

	assistant := assistantui.New(manager, collector)
	r.SetAssistant(assistant)

	firstSession := manager.NewSession()
	if err := manager.SwitchSession(firstSession); err != nil {
		log.Printf("RUSTYTERM: switch to initial session failed: %v", err)
	}

	painter := termui.NewPainter(isTruecolor())

	defer func() {
		if rec := recover(); rec != nil {
			screen.Screen.Fini()
			fmt.Fprintln(os.Stderr, "rustyterm encountered an unexpected error!")
			fmt.Fprintf(os.Stderr, "Error: %v\n", rec)
			fmt.Fprintln(os.Stderr, errors.Wrap(rec, 2).ErrorStack())
			fmt.Fprintln(os.Stderr, string(debug.Stack()))
			os.Exit(1)
		}
	}()

	runLoop(r, h, manager, assistant, painter, ptyOut, tokens, events)

	screen.Screen.Fini()
}

// runLoop is the select-driven heart of RustyTerm: PTY bytes, AI tokens,
// structured app events, and tcell input all arrive on separate channels
// and are dispatched to the router and the two panes, which is then
// repainted once per iteration. Grounded on the teacher's cmd/thicc/
// micro.go DoEvent select statement (screen.Events / screen.DrawChan /
// shell.Jobs all read in one select), generalized to RustyTerm's extra
// producers (PTY bytes, AI tokens, app events).
func runLoop(r *router.Router, h *host.Host, manager *ai.Manager, assistant *assistantui.Controller, painter *termui.Painter, ptyOut <-chan []byte, tokens ai.TokenSink, events appevent.Sink) {
	quit := false

	redraw := func() {
		cols, rows := screen.Size()
		screen.Screen.Fill(' ', tcell.StyleDefault)

		x, y, w, h2 := termui.PaneRegion(r.Layout)
		grid := h.RenderFrame(h.ViewOffset())
		painter.Paint(screen.Screen, x, y, w, h2, grid, r.State.Focus == router.FocusTerminal, false, h.ViewOffset())

		ax := x + w
		assistant.Render(screen.Screen, ax, y, cols-ax, rows, r.State.Focus == router.FocusAssistant)

		screen.Screen.Show()
	}

	redraw()

	for !quit {
		select {
		case chunk, ok := <-ptyOut:
			if !ok {
				quit = true
				break
			}
			r.ObservePTYOutput(chunk)
			redraw()

		case tok := <-tokens:
			assistant.HandleToken(tok)
			redraw()

		case ev := <-events:
			assistant.HandleAppEvent(ev)
			r.HandleAppEvent(ev)
			if ev.Kind == appevent.KindShellCommandCompleted {
				quit = true
			}
			redraw()

		case tev := <-screen.Events:
			switch e := tev.(type) {
			case *tcell.EventResize:
				cols, rows := e.Size()
				r.Resize(cols, rows)
				if err := h.Resize(router.NewLayout(cols, rows).TerminalWidth(), rows); err != nil {
					log.Printf("RUSTYTERM: resize: %v", err)
				}
			case *tcell.EventKey:
				if isQuitKey(e) {
					quit = true
					break
				}
				r.HandleKey(e)
			case *tcell.EventMouse:
				r.HandleMouse(e, time.Now())
				if e.Buttons() == tcell.ButtonNone {
					r.DragRelease()
				}
			}
			redraw()

		case <-screen.DrawChan():
			for len(screen.DrawChan()) > 0 {
				<-screen.DrawChan()
			}
			redraw()
		}
	}
}

// isQuitKey reports whether ev is the global Ctrl+Q quit chord, which the
// router deliberately never intercepts so the user always has an escape
// hatch regardless of mode.
func isQuitKey(ev *tcell.EventKey) bool {
	return ev.Key() == tcell.KeyCtrlQ
}

func firstNonEmptyEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

func isTruecolor() bool {
	ct := strings.ToLower(os.Getenv("COLORTERM"))
	return ct == "truecolor" || ct == "24bit"
}
