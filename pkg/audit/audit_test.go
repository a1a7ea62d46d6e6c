package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/bffhd/pkg/value"
)

func sampleState(status string) value.State {
	b := value.NewBuilder()
	b.Add(value.OIDString, value.String(status))
	b.Add(value.OIDUserID, value.UserID("alice"))
	return b.Finish()
}

func readLines(t *testing.T, path string) []line {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []line
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var l line
		require.NoError(t, json.Unmarshal(sc.Bytes(), &l))
		out = append(out, l)
	}
	require.NoError(t, sc.Err())
	return out
}

// TestAppendWritesWellFormedLine is invariant 9 from spec.md §8: every
// successful transition appends exactly one well-formed JSON line.
func TestAppendWritesWellFormedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	require.NoError(t, log.Append("laser", sampleState("in_use")))

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Equal(t, "laser", lines[0].Machine)
	require.Len(t, lines[0].State, 2)
}

// TestAppendTimestampMonotonic is invariant 9's monotonicity half: lines
// never regress in timestamp even when forced backwards.
func TestAppendTimestampMonotonic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	log.last = 1 << 40 // force a timestamp far in the future
	require.NoError(t, log.Append("laser", sampleState("free")))

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(1<<40), lines[0].Timestamp)

	require.NoError(t, log.Append("laser", sampleState("in_use")))
	lines = readLines(t, path)
	require.Len(t, lines, 2)
	assert.GreaterOrEqual(t, lines[1].Timestamp, lines[0].Timestamp)
}

func TestAppendMultipleMachinesInterleave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	require.NoError(t, log.Append("laser", sampleState("in_use")))
	require.NoError(t, log.Append("printer", sampleState("free")))

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, "laser", lines[0].Machine)
	assert.Equal(t, "printer", lines[1].Machine)
}

func TestRotateStartsFreshFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	require.NoError(t, log.Append("laser", sampleState("in_use")))

	rotated := path + ".1"
	require.NoError(t, os.Rename(path, rotated))
	require.NoError(t, log.Rotate())

	require.NoError(t, log.Append("laser", sampleState("free")))

	oldLines := readLines(t, rotated)
	require.Len(t, oldLines, 1)

	newLines := readLines(t, path)
	require.Len(t, newLines, 1)
	assert.Equal(t, "free", newLines[0].State[0].Value)
}

func TestOpenAppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, log.Append("laser", sampleState("in_use")))
	require.NoError(t, log.Close())

	log2, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { log2.Close() })
	require.NoError(t, log2.Append("laser", sampleState("free")))

	lines := readLines(t, path)
	require.Len(t, lines, 2)
}
