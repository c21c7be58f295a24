package ai

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// toolCallAccumulator collects argument JSON fragments per content-block
// index until the stream finishes, per spec.md §4.2: "accumulate
// tool-call argument fragments keyed by tool-call index until the stream
// signals finish."
type toolCallAccumulator struct {
	ids   map[int]string
	names map[int]string
	args  map[int]*strings.Builder
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{
		ids:   map[int]string{},
		names: map[int]string{},
		args:  map[int]*strings.Builder{},
	}
}

func (t *toolCallAccumulator) feed(ev StreamEvent) {
	if ev.ToolCallID != "" {
		t.ids[ev.ToolCallIndex] = ev.ToolCallID
	}
	if ev.ToolCallName != "" {
		t.names[ev.ToolCallIndex] = ev.ToolCallName
	}
	if ev.ArgsFragment != "" {
		b, ok := t.args[ev.ToolCallIndex]
		if !ok {
			b = &strings.Builder{}
			t.args[ev.ToolCallIndex] = b
		}
		b.WriteString(ev.ArgsFragment)
	}
}

// suggestCommandArgs is the JSON payload shape spec.md §6 defines for the
// suggest_command tool.
type suggestCommandArgs struct {
	Command      string   `json:"command"`
	Explanation  string   `json:"explanation"`
	Alternatives []string `json:"alternatives,omitempty"`
}

// parsedToolCall pairs a tool call's identity with its fully accumulated,
// parsed arguments.
type parsedToolCall struct {
	id   string
	name string
	args suggestCommandArgs
}

// finish parses every accumulated suggest_command call, in index order,
// and reports which indices failed to parse (spec.md §7 "Parse failures
// (malformed tool-call JSON): log, discard the malformed suggestion").
func (t *toolCallAccumulator) finish() ([]parsedToolCall, []error) {
	indices := make([]int, 0, len(t.names))
	for idx := range t.names {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var calls []parsedToolCall
	var errs []error
	for _, idx := range indices {
		name := t.names[idx]
		if name != "suggest_command" {
			continue
		}
		raw := ""
		if b, ok := t.args[idx]; ok {
			raw = b.String()
		}
		var args suggestCommandArgs
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			errs = append(errs, fmt.Errorf("ai: malformed suggest_command args at index %d: %w", idx, err))
			continue
		}
		if args.Command == "" {
			errs = append(errs, fmt.Errorf("ai: suggest_command at index %d missing command", idx))
			continue
		}
		calls = append(calls, parsedToolCall{id: t.ids[idx], name: name, args: args})
	}
	return calls, errs
}
