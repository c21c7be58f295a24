package security

import (
	"testing"

	"github.com/rustyterm/rustyterm/internal/appevent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_AllowDenyConfirm(t *testing.T) {
	policy := DefaultPolicy()

	cases := []struct {
		name    string
		command string
		verdict appevent.Verdict
	}{
		{"allow ls -la", "ls -la", appevent.VerdictAllow},
		{"allow git status", "git status", appevent.VerdictAllow},
		{"confirm rm", "rm file.txt", appevent.VerdictRequireConfirmation},
		{"confirm sudo anything", "sudo apt update", appevent.VerdictRequireConfirmation},
		{"deny pipe", "ls | grep foo", appevent.VerdictDeny},
		{"deny redirect", "echo hi > /etc/passwd", appevent.VerdictDeny},
		{"deny rm -rf root", "rm -rf /", appevent.VerdictDeny},
		{"deny fork bomb", ":(){ :|:& };:", appevent.VerdictDeny},
		{"unknown verb defaults to confirm", "frobnicate --now", appevent.VerdictRequireConfirmation},
		{"allow find without delete", "find . -name *.go", appevent.VerdictAllow},
		{"confirm find -delete", "find . -name *.tmp -delete", appevent.VerdictRequireConfirmation},
		{"confirm find -exec", "find . -exec rm {} +", appevent.VerdictRequireConfirmation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verdict, _ := policy.Evaluate(tc.command)
			assert.Equal(t, tc.verdict, verdict)
		})
	}
}

func TestEvaluate_EmptyCommandNeverAllows(t *testing.T) {
	policy := DefaultPolicy()
	verdict, _ := policy.Evaluate("")
	assert.NotEqual(t, appevent.VerdictAllow, verdict)
}

func TestEvaluate_Deterministic(t *testing.T) {
	policy := DefaultPolicy()
	v1, r1 := policy.Evaluate("rm -rf /tmp/x")
	v2, r2 := policy.Evaluate("rm -rf /tmp/x")
	assert.Equal(t, v1, v2)
	assert.Equal(t, r1, r2)
}

type fakeExecutor struct {
	written []string
	err     error
}

func (f *fakeExecutor) ExecuteVisible(command string) error {
	if f.err != nil {
		return f.err
	}
	f.written = append(f.written, command)
	return nil
}

func TestTryExecuteSuggested_AllowPath(t *testing.T) {
	exec := &fakeExecutor{}
	gate := NewGate(DefaultPolicy(), exec)

	decision, err := gate.TryExecuteSuggested("ls -la")
	require.NoError(t, err)
	assert.Equal(t, DecisionExecute, decision.Kind)
	require.Len(t, exec.written, 1)
	assert.Equal(t, "ls -la", exec.written[0])
}

func TestTryExecuteSuggested_ConfirmPathWritesNothing(t *testing.T) {
	exec := &fakeExecutor{}
	gate := NewGate(DefaultPolicy(), exec)

	decision, err := gate.TryExecuteSuggested("rm file.txt")
	require.NoError(t, err)
	assert.Equal(t, DecisionRequireConfirmation, decision.Kind)
	assert.Empty(t, exec.written)
}

func TestTryExecuteSuggested_DenyPathWritesNothing(t *testing.T) {
	exec := &fakeExecutor{}
	gate := NewGate(DefaultPolicy(), exec)

	decision, err := gate.TryExecuteSuggested("ls | grep foo")
	require.NoError(t, err)
	assert.Equal(t, DecisionDeny, decision.Kind)
	assert.Equal(t, "Contains dangerous shell operators", decision.Reason)
	assert.Empty(t, exec.written)
}

func TestTryExecuteSuggested_EmptyCommandNeverWrites(t *testing.T) {
	exec := &fakeExecutor{}
	gate := NewGate(DefaultPolicy(), exec)

	_, err := gate.TryExecuteSuggested("")
	require.NoError(t, err)
	assert.Empty(t, exec.written)
}

func TestConfirmSuggested_AllowPathWrites(t *testing.T) {
	exec := &fakeExecutor{}
	gate := NewGate(DefaultPolicy(), exec)

	decision, err := gate.ConfirmSuggested("ls -la")
	require.NoError(t, err)
	assert.Equal(t, DecisionExecute, decision.Kind)
	require.Len(t, exec.written, 1)
	assert.Equal(t, "ls -la", exec.written[0])
}

func TestConfirmSuggested_RequireConfirmationPathWrites(t *testing.T) {
	exec := &fakeExecutor{}
	gate := NewGate(DefaultPolicy(), exec)

	decision, err := gate.ConfirmSuggested("rm file.txt")
	require.NoError(t, err)
	assert.Equal(t, DecisionExecute, decision.Kind)
	require.Len(t, exec.written, 1)
	assert.Equal(t, "rm file.txt", exec.written[0])
}

func TestConfirmSuggested_DenyPathNeverWrites(t *testing.T) {
	exec := &fakeExecutor{}
	gate := NewGate(DefaultPolicy(), exec)

	decision, err := gate.ConfirmSuggested("ls | grep foo")
	require.NoError(t, err)
	assert.Equal(t, DecisionDeny, decision.Kind)
	assert.Equal(t, "Contains dangerous shell operators", decision.Reason)
	assert.Empty(t, exec.written)
}
