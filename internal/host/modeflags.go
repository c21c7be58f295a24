package host

import "bytes"

// ModeFlags is the bitset of emulator mode flags spec.md §3 describes:
// state reported by the child program that the router/host must inspect
// with an "any bit set" predicate, never strict equality, since real
// programs (pagers, editors) enable only a subset.
type ModeFlags uint32

const (
	ModeMouseReportClick ModeFlags = 1 << iota
	ModeMouseMotion
	ModeMouseDrag
	ModeSGRMouse
	ModeAltScreen
	ModeBracketedPaste
)

// Intersects reports whether any bit in mask is set in f. This is the
// predicate spec.md §3/§4.1 requires for mouse routing decisions.
func (f ModeFlags) Intersects(mask ModeFlags) bool {
	return f&mask != 0
}

// mouseReportMask is the set of bits that, if any is set, mean the
// foreground program wants mouse events instead of local selection
// (spec.md §4.1).
const mouseReportMask = ModeMouseReportClick | ModeMouseMotion | ModeMouseDrag

// modeTracker watches raw PTY output for the DEC private mode sequences
// that toggle mouse reporting, bracketed paste and the alternate screen.
// vt10x also tracks alternate-screen state itself (exposed via
// vt10x.Mode()); the mouse and paste bits have no public accessor in the
// emulator, so the host taps the byte stream the same way it feeds the
// emulator, matching the host's existing "drain PTY master into a
// consumer" responsibility (spec.md §4.1) without duplicating the
// emulator's own parser — we recognize only the handful of CSI ? ... h/l
// sequences relevant to mouse, paste and alternate-screen mode.
type modeTracker struct {
	flags ModeFlags
	carry []byte // holds a possibly-incomplete trailing escape sequence
}

func newModeTracker() *modeTracker {
	return &modeTracker{}
}

// Feed scans chunk for DECSET/DECRST sequences and updates flags.
// Incomplete sequences that straddle chunk boundaries are carried over.
func (m *modeTracker) Feed(chunk []byte) {
	data := chunk
	if len(m.carry) > 0 {
		data = append(append([]byte{}, m.carry...), chunk...)
		m.carry = nil
	}

	for {
		start := bytes.Index(data, []byte("\x1b[?"))
		if start == -1 {
			return
		}
		rest := data[start+3:]
		end := bytes.IndexAny(rest, "hl")
		if end == -1 {
			// Incomplete; keep from the escape start for the next Feed.
			m.carry = append([]byte{}, data[start:]...)
			return
		}
		params := string(rest[:end])
		set := rest[end] == 'h'
		m.applyParams(params, set)
		data = rest[end+1:]
	}
}

func (m *modeTracker) applyParams(params string, set bool) {
	for _, code := range splitParams(params) {
		var bit ModeFlags
		switch code {
		case "1000":
			bit = ModeMouseReportClick
		case "1002":
			bit = ModeMouseDrag
		case "1003":
			bit = ModeMouseMotion
		case "1006":
			bit = ModeSGRMouse
		case "2004":
			bit = ModeBracketedPaste
		case "47", "1047", "1049":
			bit = ModeAltScreen
		default:
			continue
		}
		if set {
			m.flags |= bit
		} else {
			m.flags &^= bit
		}
	}
}

func splitParams(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ';' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

// Flags returns the current tracked mode bitset.
func (m *modeTracker) Flags() ModeFlags {
	return m.flags
}
