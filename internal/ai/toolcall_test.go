package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolCallAccumulatorAssemblesFragments(t *testing.T) {
	acc := newToolCallAccumulator()
	acc.feed(StreamEvent{ToolCallIndex: 0, ToolCallID: "tc_1", ToolCallName: "suggest_command"})
	acc.feed(StreamEvent{ToolCallIndex: 0, ArgsFragment: `{"command":"ls `})
	acc.feed(StreamEvent{ToolCallIndex: 0, ArgsFragment: `-la","explanation":"list files"}`})

	calls, errs := acc.finish()
	require.Empty(t, errs)
	require.Len(t, calls, 1)
	assert.Equal(t, "tc_1", calls[0].id)
	assert.Equal(t, "ls -la", calls[0].args.Command)
	assert.Equal(t, "list files", calls[0].args.Explanation)
}

func TestToolCallAccumulatorReportsMalformedJSON(t *testing.T) {
	acc := newToolCallAccumulator()
	acc.feed(StreamEvent{ToolCallIndex: 0, ToolCallID: "tc_1", ToolCallName: "suggest_command"})
	acc.feed(StreamEvent{ToolCallIndex: 0, ArgsFragment: `{"command": not-json}`})

	calls, errs := acc.finish()
	assert.Empty(t, calls)
	require.Len(t, errs, 1)
}

func TestToolCallAccumulatorIgnoresUnrelatedTools(t *testing.T) {
	acc := newToolCallAccumulator()
	acc.feed(StreamEvent{ToolCallIndex: 0, ToolCallID: "tc_1", ToolCallName: "some_other_tool"})
	acc.feed(StreamEvent{ToolCallIndex: 0, ArgsFragment: `{"foo":"bar"}`})

	calls, errs := acc.finish()
	assert.Empty(t, calls)
	assert.Empty(t, errs)
}

func TestToolCallAccumulatorOrdersByIndex(t *testing.T) {
	acc := newToolCallAccumulator()
	acc.feed(StreamEvent{ToolCallIndex: 1, ToolCallID: "tc_2", ToolCallName: "suggest_command"})
	acc.feed(StreamEvent{ToolCallIndex: 1, ArgsFragment: `{"command":"b","explanation":"second"}`})
	acc.feed(StreamEvent{ToolCallIndex: 0, ToolCallID: "tc_1", ToolCallName: "suggest_command"})
	acc.feed(StreamEvent{ToolCallIndex: 0, ArgsFragment: `{"command":"a","explanation":"first"}`})

	calls, errs := acc.finish()
	require.Empty(t, errs)
	require.Len(t, calls, 2)
	assert.Equal(t, "a", calls[0].args.Command)
	assert.Equal(t, "b", calls[1].args.Command)
}
