package assistantui

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyterm/rustyterm/internal/ai"
	"github.com/rustyterm/rustyterm/internal/appevent"
)

type scriptedClient struct {
	events []ai.StreamEvent
}

func (c *scriptedClient) Stream(ctx context.Context, model, system string, turns []ai.Turn) (<-chan ai.StreamEvent, error) {
	out := make(chan ai.StreamEvent, len(c.events)+1)
	for _, ev := range c.events {
		out <- ev
	}
	close(out)
	return out, nil
}

type fakeVerdicter struct {
	verdict appevent.Verdict
	reason  string
}

func (f *fakeVerdicter) Evaluate(command string) (appevent.Verdict, string) {
	return f.verdict, f.reason
}

type fakeSnapshot struct{}

func (fakeSnapshot) Snapshot() ai.ContextSnapshot { return ai.ContextSnapshot{Cwd: "/tmp"} }

func toolCallArgsJSON(t *testing.T, command, explanation string) string {
	t.Helper()
	b, err := json.Marshal(struct {
		Command     string `json:"command"`
		Explanation string `json:"explanation"`
	}{command, explanation})
	require.NoError(t, err)
	return string(b)
}

// driveToSuggestion sends text on session id and forwards every
// token/event the manager produces into the controller until the stream
// ends, then forwards any events still queued at that point.
func driveToSuggestion(t *testing.T, c *Controller, mgr *ai.Manager, tokens ai.TokenSink, events appevent.Sink, id ai.SessionID, text string) {
	t.Helper()
	require.NoError(t, mgr.SendMessage(id, text, ai.ContextSnapshot{}))

	deadline := time.After(2 * time.Second)
	done := false
	for !done {
		select {
		case tok := <-tokens:
			c.HandleToken(tok)
			if tok.Kind == ai.TokenEnd {
				done = true
			}
		case ev := <-events:
			c.HandleAppEvent(ev)
		case <-deadline:
			t.Fatal("timed out waiting for stream to finish")
		}
	}
	for {
		select {
		case ev := <-events:
			c.HandleAppEvent(ev)
		default:
			return
		}
	}
}

func newTestController(t *testing.T, verdict appevent.Verdict, streamEvents []ai.StreamEvent) (*Controller, *ai.Manager, ai.TokenSink, appevent.Sink) {
	t.Helper()
	tokens := ai.NewTokenSink()
	events := appevent.NewSink()
	mgr := ai.NewManager(tokens, events, "m", &scriptedClient{events: streamEvents}, &fakeVerdicter{verdict: verdict, reason: "test reason"})
	c := New(mgr, fakeSnapshot{})
	return c, mgr, tokens, events
}

func suggestionStream(t *testing.T, command string) []ai.StreamEvent {
	return []ai.StreamEvent{
		{Kind: ai.StreamEventTextDelta, TextDelta: "here you go"},
		{Kind: ai.StreamEventToolCallDelta, ToolCallIndex: 0, ToolCallID: "tc_1", ToolCallName: "suggest_command"},
		{Kind: ai.StreamEventToolCallDelta, ToolCallIndex: 0, ArgsFragment: toolCallArgsJSON(t, command, "explanation")},
		{Kind: ai.StreamEventFinish, FinishReason: "tool_use"},
	}
}

func TestSendAppendsUserTurnAndClearsEditor(t *testing.T) {
	c, mgr, _, _ := newTestController(t, appevent.VerdictAllow, nil)
	id := mgr.NewSession()
	require.NoError(t, mgr.SwitchSession(id))

	for _, r := range "list files" {
		c.InsertRune(r)
	}
	require.NoError(t, c.Send(context.Background()))

	assert.Equal(t, "", c.editor.Text())
	view := c.views[id]
	require.NotNil(t, view)
	require.Len(t, view.turns, 1)
	assert.Equal(t, "list files", view.turns[0].text)
}

func TestConfirmSuggestion_AllowPathMarksExecuted(t *testing.T) {
	c, mgr, tokens, events := newTestController(t, appevent.VerdictAllow, suggestionStream(t, "ls -la"))
	id := mgr.NewSession()
	require.NoError(t, mgr.SwitchSession(id))
	driveToSuggestion(t, c, mgr, tokens, events, id, "list files")

	view := c.views[id]
	require.NotNil(t, view.lastCard)
	assert.Equal(t, cardPending, view.lastCard.status)

	require.NoError(t, c.ConfirmSuggestion())
	assert.Equal(t, cardExecuted, view.lastCard.status)

	select {
	case ev := <-events:
		assert.Equal(t, appevent.KindExecuteAiCommand, ev.Kind)
		assert.Equal(t, "ls -la", ev.Suggestion.Command)
	case <-time.After(time.Second):
		t.Fatal("expected an ExecuteAiCommand event")
	}
}

func TestConfirmSuggestion_RequireConfirmationPathMarksExecuted(t *testing.T) {
	c, mgr, tokens, events := newTestController(t, appevent.VerdictRequireConfirmation, suggestionStream(t, "rm file.txt"))
	id := mgr.NewSession()
	require.NoError(t, mgr.SwitchSession(id))
	driveToSuggestion(t, c, mgr, tokens, events, id, "delete the file")

	view := c.views[id]
	require.NoError(t, c.ConfirmSuggestion())
	assert.Equal(t, cardExecuted, view.lastCard.status, "the first confirm on a RequireConfirmation card must execute, not hold")
}

func TestConfirmSuggestion_DenyPathNeverMarksExecuted(t *testing.T) {
	c, mgr, tokens, events := newTestController(t, appevent.VerdictDeny, suggestionStream(t, "ls | grep foo"))
	id := mgr.NewSession()
	require.NoError(t, mgr.SwitchSession(id))
	driveToSuggestion(t, c, mgr, tokens, events, id, "list and filter")

	view := c.views[id]
	require.NoError(t, c.ConfirmSuggestion())
	assert.NotEqual(t, cardExecuted, view.lastCard.status)
}

func TestRejectSuggestionBeforeConfirmLeavesCardRejected(t *testing.T) {
	c, mgr, tokens, events := newTestController(t, appevent.VerdictRequireConfirmation, suggestionStream(t, "rm file.txt"))
	id := mgr.NewSession()
	require.NoError(t, mgr.SwitchSession(id))
	driveToSuggestion(t, c, mgr, tokens, events, id, "delete the file")

	c.RejectSuggestion()
	view := c.views[id]
	assert.Equal(t, cardRejected, view.lastCard.status)

	require.NoError(t, c.ConfirmSuggestion())
	assert.Equal(t, cardRejected, view.lastCard.status, "a rejected card must not become executed by a later confirm")
}

func TestCycleAlternativeWrapsThroughAlternatives(t *testing.T) {
	c, mgr, _, _ := newTestController(t, appevent.VerdictAllow, nil)
	id := mgr.NewSession()
	view := newSessionView(id)
	card := &commandCard{suggestion: appevent.Suggestion{
		Command:      "ls",
		Alternatives: []string{"ls -la", "ls -a"},
	}}
	view.lastCard = card
	c.views[id] = view

	assert.Equal(t, "ls", card.command())
	c.CycleAlternative()
	assert.Equal(t, "ls -la", card.command())
	c.CycleAlternative()
	assert.Equal(t, "ls -a", card.command())
	c.CycleAlternative()
	assert.Equal(t, "ls", card.command(), "must wrap back to the primary command")
}

func TestSessionPickerOpensOnlyAtOrAboveThreshold(t *testing.T) {
	c, mgr, _, _ := newTestController(t, appevent.VerdictAllow, nil)
	for i := 0; i < pickerThreshold-1; i++ {
		mgr.NewSession()
	}
	c.OpenSessionPicker()
	assert.False(t, c.PickerActive(), "picker should not open below threshold")

	mgr.NewSession()
	c.OpenSessionPicker()
	assert.True(t, c.PickerActive())
}

func TestHandleTokenDiscardsTokensForClosedSession(t *testing.T) {
	c, mgr, _, _ := newTestController(t, appevent.VerdictAllow, nil)
	id := mgr.NewSession()
	require.NoError(t, mgr.CloseSession(id))

	c.HandleToken(ai.Token{SessionID: id, Kind: ai.TokenChunk, Text: "phantom"})
	c.HandleToken(ai.Token{SessionID: id, Kind: ai.TokenEnd})

	_, ok := c.views[id]
	assert.False(t, ok, "a closed session must never get a resurrected view from a late token")
}
