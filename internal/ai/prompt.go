package ai

import (
	"fmt"
	"strings"
)

// DefaultRecentHistoryCount is spec.md §4.2's recommended N for the
// recent-shell-commands section of the assembled prompt.
const DefaultRecentHistoryCount = 10

// systemPrompt is recorded once per session as the leading system turn
// and sent as the request's system field on every request, instructing the model per spec.md §4.2: answer conversationally, or
// emit a suggest_command tool call, and be cautious about destructive
// operations.
const systemPrompt = `You are RustyTerm's command copilot, embedded alongside a live shell session.

Answer the user conversationally when they ask a question. When a shell command would satisfy their request, call the suggest_command tool instead of describing the command in prose. Be cautious recommending destructive operations (anything that deletes, overwrites, or force-pushes) — prefer the safer form and explain the risk in one sentence.`

// SystemPrompt returns the fixed system message for every session.
func SystemPrompt() string {
	return systemPrompt
}

// BuildUserTurn assembles the text block spec.md §4.2 describes: the
// user's original text, followed by a context section listing cwd, a
// filtered environment, and the most recent shell commands.
func BuildUserTurn(userText string, snap ContextSnapshot) string {
	var b strings.Builder
	b.WriteString(userText)
	b.WriteString("\n\n---\n")
	b.WriteString("Context:\n")
	fmt.Fprintf(&b, "cwd: %s\n", snap.Cwd)

	if len(snap.EnvVars) > 0 {
		b.WriteString("env:\n")
		for _, kv := range snap.EnvVars {
			fmt.Fprintf(&b, "  %s=%s\n", kv.Key, kv.Value)
		}
	}

	if len(snap.RecentHistory) > 0 {
		b.WriteString("recent commands:\n")
		for _, cmd := range snap.RecentHistory {
			fmt.Fprintf(&b, "  %s\n", cmd)
		}
	}

	return b.String()
}

// suggestCommandToolDefinition is the tool schema spec.md §6 specifies,
// sent with every request.
var suggestCommandToolDefinition = map[string]any{
	"name":        "suggest_command",
	"description": "Propose a shell command that satisfies the user's request.",
	"input_schema": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "the shell command",
			},
			"explanation": map[string]any{
				"type":        "string",
				"description": "one sentence explaining what it does",
			},
			"alternatives": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "optional alternative commands",
			},
		},
		"required": []string{"command", "explanation"},
	},
}
