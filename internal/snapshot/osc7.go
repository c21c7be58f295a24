package snapshot

import (
	"bytes"
	"net/url"
	"strings"
)

// oscStart is the OSC 7 "report current directory" prefix a
// well-behaved shell emits as `ESC]7;file://host/path` terminated by BEL
// or ST (spec.md §4.5: "observing OSC 7 sequences emitted by the
// shell").
var oscStart = []byte("\x1b]7;")

// osc7Scanner recognizes OSC 7 sequences across chunk boundaries, mirroring
// the host package's modeTracker carry-over approach to split escape
// sequences (internal/host/modeflags.go).
type osc7Scanner struct {
	carry []byte
}

// feed scans chunk for a complete OSC 7 sequence and returns the decoded
// path from the last one found, if any.
func (s *osc7Scanner) feed(chunk []byte) (string, bool) {
	data := chunk
	if len(s.carry) > 0 {
		data = append(append([]byte{}, s.carry...), chunk...)
		s.carry = nil
	}

	found := ""
	ok := false

	for {
		start := bytes.Index(data, oscStart)
		if start == -1 {
			return found, ok
		}
		rest := data[start+len(oscStart):]

		end, terminatorLen := findOSCTerminator(rest)
		if end == -1 {
			s.carry = append([]byte{}, data[start:]...)
			return found, ok
		}

		if path, decodeOK := decodeOSC7Payload(string(rest[:end])); decodeOK {
			found = path
			ok = true
		}
		data = rest[end+terminatorLen:]
	}
}

// findOSCTerminator locates BEL (\a) or ST (\x1b\\), returning the index
// and the terminator's byte length.
func findOSCTerminator(data []byte) (int, int) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\a' {
			return i, 1
		}
		if data[i] == '\x1b' && i+1 < len(data) && data[i+1] == '\\' {
			return i, 2
		}
	}
	return -1, 0
}

// decodeOSC7Payload extracts and percent-decodes the path component of a
// file://host/path payload.
func decodeOSC7Payload(payload string) (string, bool) {
	u, err := url.Parse(payload)
	if err != nil || u.Scheme != "file" {
		return "", false
	}
	path := u.Path
	if path == "" {
		return "", false
	}
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	return path, true
}
