// Package security is the sole checkpoint through which an AI-suggested
// command may reach the shell (spec.md §4.3). evaluate and gate are pure
// functions so the whole policy can be table-tested without a PTY.
package security

import (
	"strings"

	"github.com/rustyterm/rustyterm/internal/appevent"
	"github.com/zyedidia/glob"
)

// dangerous shell operators make a command unreviewable by simple argv
// lexing: redirection, piping, backgrounding, command substitution.
var dangerousOperators = []string{"|", ">", ">>", "<", "&", ";", "$(", "`"}

// Policy holds the three data-driven lists spec.md §4.3 requires: a
// block-list of fixed destructive forms (checked against the raw command
// text with glob patterns), an allow-list of read-only verbs, and a
// require-confirmation list of mutating verbs. Implementers supply the
// lists; DefaultPolicy below is RustyTerm's shipped default.
type Policy struct {
	BlockedForms       []string // glob patterns matched against the full command string
	AllowVerbs         []string // first-verb (+ optional second word) allow-list
	ConfirmVerbs       []string // first-verb (+ optional second word) confirm-list

	blocked []glob.Glob
}

// Compile precompiles the glob patterns in BlockedForms. Must be called
// before Evaluate; DefaultPolicy() returns an already-compiled policy.
func (p *Policy) Compile() error {
	p.blocked = p.blocked[:0]
	for _, pattern := range p.BlockedForms {
		g, err := glob.Compile(pattern)
		if err != nil {
			return err
		}
		p.blocked = append(p.blocked, g)
	}
	return nil
}

// DefaultPolicy returns the curated lists described in spec.md §4.3.
func DefaultPolicy() *Policy {
	p := &Policy{
		BlockedForms: []string{
			"rm -rf /",
			"rm -rf /*",
			"rm -rf ~",
			"rm -rf ~/*",
			"rm -fr /",
			"rm -fr ~",
			"mkfs*",
			"dd if=*of=/dev/*",
			":(){ :|:& };:",
		},
		AllowVerbs: []string{
			"ls", "pwd", "cd", "echo", "cat", "head", "tail", "find",
			"grep", "which", "env", "date", "uname",
			"git status", "git log", "git diff",
			"cargo build", "cargo check", "cargo test",
		},
		ConfirmVerbs: []string{
			"rm", "cp", "mv", "chmod", "chown", "kill", "pkill",
			"git commit", "git push", "git reset --hard", "sudo",
		},
	}
	// Compile never fails for the fixed patterns above.
	_ = p.Compile()
	return p
}

// Evaluate classifies a candidate command without executing any shell
// expansion. It is pure and depends only on command and the policy's lists
// (spec.md §8 "gate(c, evaluate(c)) is deterministic and depends only on
// c").
func (p *Policy) Evaluate(command string) (verdict appevent.Verdict, reason string) {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return appevent.VerdictRequireConfirmation, "empty command"
	}

	for _, op := range dangerousOperators {
		if strings.Contains(trimmed, op) {
			return appevent.VerdictDeny, "Contains dangerous shell operators"
		}
	}

	for _, g := range p.blocked {
		if g.Match(trimmed) {
			return appevent.VerdictDeny, "Matches a blocked destructive command form"
		}
	}

	tokens, err := Tokenize(trimmed)
	if err != nil || len(tokens) == 0 {
		return appevent.VerdictRequireConfirmation, "could not tokenize command"
	}

	if verb, ok := matchVerbList(tokens, p.AllowVerbs); ok {
		if verb == "find" && findHasDestructiveFlag(tokens) {
			return appevent.VerdictRequireConfirmation, "find with -delete/-exec requires confirmation"
		}
		return appevent.VerdictAllow, "matches allow-list verb " + verb
	}
	if verb, ok := matchVerbList(tokens, p.ConfirmVerbs); ok {
		return appevent.VerdictRequireConfirmation, "mutating command " + verb + " requires confirmation"
	}

	return appevent.VerdictRequireConfirmation, "verb not recognized, defaulting to confirmation"
}

// findHasDestructiveFlag reports whether a "find" invocation carries
// -delete or -exec/-execdir, the forms spec.md §4.3 explicitly carves out
// of the "find (without -delete)" allow-list entry: either can mutate or
// run arbitrary programs on matched files.
func findHasDestructiveFlag(tokens []string) bool {
	for _, t := range tokens[1:] {
		switch t {
		case "-delete", "-exec", "-execdir", "-okdir", "-ok":
			return true
		}
	}
	return false
}

// matchVerbList checks whether tokens start with one of list's entries.
// Entries may be one word ("ls") or two ("git status"); the longer match
// wins so "git commit" beats a hypothetical bare "git" entry.
func matchVerbList(tokens []string, list []string) (string, bool) {
	best := ""
	bestLen := 0
	for _, entry := range list {
		parts := strings.Fields(entry)
		if len(parts) == 0 || len(parts) > len(tokens) {
			continue
		}
		matched := true
		for i, part := range parts {
			if tokens[i] != part {
				matched = false
				break
			}
		}
		if matched && len(parts) > bestLen {
			best = entry
			bestLen = len(parts)
		}
	}
	return best, bestLen > 0
}
