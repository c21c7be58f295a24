// Package snapshot implements the Context Collector of spec.md §4.5: an
// immutable point-in-time record of cwd, filtered environment, and recent
// shell commands, handed to the AI session manager on every send_message
// call. Grounded on the teacher's internal/llmhistory/recorder.go (the
// Write/onLine feed-raw-bytes-through-a-processor shape) and the ring
// buffer pattern from the kir-gadjello/llm session recorder in the
// retrieval pack, adapted here to commands instead of raw output lines.
package snapshot

import (
	"os"
	"strings"
	"sync"

	"github.com/rustyterm/rustyterm/internal/ai"
)

// DefaultRecentHistorySize matches spec.md §4.2's recommended N=10.
const DefaultRecentHistorySize = 10

// filteredEnvKeys is spec.md §4.2's default environment allow-list.
var filteredEnvKeys = []string{"HOME", "SHELL", "USER", "PATH", "PWD"}

// Collector tracks the live cwd and recent-command ring for one terminal
// session and produces immutable snapshots on demand.
type Collector struct {
	mu      sync.Mutex
	cwd     string
	recent  []string
	maxSize int
	osc7    osc7Scanner
}

// NewCollector creates a collector seeded with the process's own working
// directory, the fallback spec.md §4.5 names when no OSC 7 sequence has
// been observed yet.
func NewCollector(maxRecent int) *Collector {
	if maxRecent <= 0 {
		maxRecent = DefaultRecentHistorySize
	}
	cwd, _ := os.Getwd()
	return &Collector{cwd: cwd, maxSize: maxRecent}
}

// ObserveOutput feeds raw PTY output through the OSC 7 scanner, updating
// cwd whenever the shell reports a new one (spec.md §4.5).
func (c *Collector) ObserveOutput(chunk []byte) {
	newCwd, ok := c.osc7.feed(chunk)
	if !ok {
		return
	}
	c.mu.Lock()
	c.cwd = newCwd
	c.mu.Unlock()
}

// RecordCommand appends a completed command line to the recent-history
// ring, evicting the oldest entry once maxSize is reached. Spec.md §4.5:
// "heuristically: lines the user typed that terminated with Enter."
func (c *Collector) RecordCommand(line string) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recent = append(c.recent, line)
	if len(c.recent) > c.maxSize {
		c.recent = c.recent[len(c.recent)-c.maxSize:]
	}
}

// Cwd returns the collector's current best-known working directory.
func (c *Collector) Cwd() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cwd
}

// Snapshot produces an immutable ai.ContextSnapshot, never mutated after
// construction (spec.md §3).
func (c *Collector) Snapshot() ai.ContextSnapshot {
	c.mu.Lock()
	cwd := c.cwd
	recent := make([]string, len(c.recent))
	copy(recent, c.recent)
	c.mu.Unlock()

	var env []ai.EnvVar
	for _, key := range filteredEnvKeys {
		if v, ok := os.LookupEnv(key); ok {
			env = append(env, ai.EnvVar{Key: key, Value: v})
		}
	}

	return ai.ContextSnapshot{
		Cwd:           cwd,
		EnvVars:       env,
		RecentHistory: recent,
	}
}
