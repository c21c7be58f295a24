package ai

import (
	"regexp"
	"strings"
)

// legacyFallback attempts to synthesize a command suggestion from plain
// assistant text when no tool call was produced, per spec.md §4.2's
// optional "Legacy text fallback": COMMAND:/EXPLANATION:/ALTERNATIVES:
// lines, a fenced bash block, or a single backticked command in a short
// reply.
func legacyFallback(text string) (suggestCommandArgs, bool) {
	if args, ok := parseLabeledFallback(text); ok {
		return args, true
	}
	if cmd, ok := parseFencedBashBlock(text); ok {
		return suggestCommandArgs{Command: cmd, Explanation: "extracted from a fenced bash block"}, true
	}
	if cmd, ok := parseSingleBacktickedCommand(text); ok {
		return suggestCommandArgs{Command: cmd, Explanation: "extracted from a backticked command"}, true
	}
	return suggestCommandArgs{}, false
}

var (
	commandLineRe     = regexp.MustCompile(`(?m)^COMMAND:\s*(.+)$`)
	explanationLineRe = regexp.MustCompile(`(?m)^EXPLANATION:\s*(.+)$`)
	alternativesLineRe = regexp.MustCompile(`(?m)^ALTERNATIVES:\s*(.+)$`)
	fencedBashRe      = regexp.MustCompile("(?s)```(?:bash|sh)\\s*\\n(.*?)```")
	singleBacktickRe  = regexp.MustCompile("`([^`\\n]+)`")
)

func parseLabeledFallback(text string) (suggestCommandArgs, bool) {
	m := commandLineRe.FindStringSubmatch(text)
	if m == nil {
		return suggestCommandArgs{}, false
	}
	args := suggestCommandArgs{Command: strings.TrimSpace(m[1])}
	if em := explanationLineRe.FindStringSubmatch(text); em != nil {
		args.Explanation = strings.TrimSpace(em[1])
	}
	if am := alternativesLineRe.FindStringSubmatch(text); am != nil {
		for _, alt := range strings.Split(am[1], ",") {
			if alt = strings.TrimSpace(alt); alt != "" {
				args.Alternatives = append(args.Alternatives, alt)
			}
		}
	}
	return args, true
}

func parseFencedBashBlock(text string) (string, bool) {
	m := fencedBashRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	cmd := strings.TrimSpace(m[1])
	if cmd == "" || strings.Contains(cmd, "\n") {
		return "", false
	}
	return cmd, true
}

// parseSingleBacktickedCommand only fires for short replies containing
// exactly one backticked span, avoiding false positives on prose that
// merely mentions a flag like `--force`.
func parseSingleBacktickedCommand(text string) (string, bool) {
	if len(text) > 200 {
		return "", false
	}
	matches := singleBacktickRe.FindAllStringSubmatch(text, -1)
	if len(matches) != 1 {
		return "", false
	}
	cmd := strings.TrimSpace(matches[0][1])
	if cmd == "" || strings.ContainsAny(cmd, "\n") {
		return "", false
	}
	return cmd, true
}
