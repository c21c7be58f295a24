package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLegacyFallbackLabeledLines(t *testing.T) {
	text := "COMMAND: git status\nEXPLANATION: shows working tree state\nALTERNATIVES: git status -s, git diff\n"
	args, ok := legacyFallback(text)
	assert.True(t, ok)
	assert.Equal(t, "git status", args.Command)
	assert.Equal(t, "shows working tree state", args.Explanation)
	assert.Equal(t, []string{"git status -s", "git diff"}, args.Alternatives)
}

func TestLegacyFallbackFencedBashBlock(t *testing.T) {
	text := "Sure, try this:\n```bash\nls -la\n```\n"
	args, ok := legacyFallback(text)
	assert.True(t, ok)
	assert.Equal(t, "ls -la", args.Command)
}

func TestLegacyFallbackSingleBacktick(t *testing.T) {
	text := "Run `cargo test` to check."
	args, ok := legacyFallback(text)
	assert.True(t, ok)
	assert.Equal(t, "cargo test", args.Command)
}

func TestLegacyFallbackIgnoresMultipleBackticks(t *testing.T) {
	text := "Either `ls` or `ls -la` works."
	_, ok := legacyFallback(text)
	assert.False(t, ok, "ambiguous prose with two commands should not synthesize a suggestion")
}

func TestLegacyFallbackNoMatch(t *testing.T) {
	_, ok := legacyFallback("I can help with that, what directory are you in?")
	assert.False(t, ok)
}
