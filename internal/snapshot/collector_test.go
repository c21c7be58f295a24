package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveOutputUpdatesCwdFromOSC7(t *testing.T) {
	c := NewCollector(5)
	c.ObserveOutput([]byte("\x1b]7;file://laptop/home/ally/project\x07"))
	assert.Equal(t, "/home/ally/project", c.Cwd())
}

func TestObserveOutputHandlesSplitSequence(t *testing.T) {
	c := NewCollector(5)
	c.ObserveOutput([]byte("\x1b]7;file://host/home/a"))
	c.ObserveOutput([]byte("lly\x07"))
	assert.Equal(t, "/home/ally", c.Cwd())
}

func TestObserveOutputIgnoresUnrelatedEscapes(t *testing.T) {
	c := NewCollector(5)
	before := c.Cwd()
	c.ObserveOutput([]byte("\x1b[2J\x1b[H"))
	assert.Equal(t, before, c.Cwd())
}

func TestRecordCommandRingEvictsOldest(t *testing.T) {
	c := NewCollector(3)
	c.RecordCommand("ls")
	c.RecordCommand("cd /tmp")
	c.RecordCommand("pwd")
	c.RecordCommand("echo hi")

	snap := c.Snapshot()
	require.Len(t, snap.RecentHistory, 3)
	assert.Equal(t, []string{"cd /tmp", "pwd", "echo hi"}, snap.RecentHistory)
}

func TestRecordCommandSkipsBlankLines(t *testing.T) {
	c := NewCollector(5)
	c.RecordCommand("   \r\n")
	c.RecordCommand("ls\r\n")

	snap := c.Snapshot()
	require.Len(t, snap.RecentHistory, 1)
	assert.Equal(t, "ls", snap.RecentHistory[0])
}

func TestSnapshotFiltersEnvAllowlist(t *testing.T) {
	t.Setenv("HOME", "/home/ally")
	t.Setenv("SOME_SECRET", "do-not-leak")

	c := NewCollector(5)
	snap := c.Snapshot()

	var sawHome, sawSecret bool
	for _, kv := range snap.EnvVars {
		if kv.Key == "HOME" {
			sawHome = true
			assert.Equal(t, "/home/ally", kv.Value)
		}
		if kv.Key == "SOME_SECRET" {
			sawSecret = true
		}
	}
	assert.True(t, sawHome)
	assert.False(t, sawSecret, "only the spec's allow-listed keys may appear in a context snapshot")
}
