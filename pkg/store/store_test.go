package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/bffhd/pkg/value"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleState(status string) value.State {
	b := value.NewBuilder()
	b.Add(value.OIDString, value.String(status))
	return b.Finish()
}

// TestStoreRoundTrip is scenario-3 from spec.md §8: put(id, s1, s2);
// commit; get_input(id) == s1; get_output(id) == s2.
func TestStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)

	in := sampleState("free")
	out := sampleState("in-use")

	require.NoError(t, s.Put(42, in, out))

	gotIn, ok, err := s.GetInput(42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, gotIn.Equal(in))

	gotOut, ok, err := s.GetOutput(42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, gotOut.Equal(out))
}

func TestStoreGetMissing(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.GetInput(7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreOverwriteIsAtomic(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put(1, sampleState("a"), sampleState("b")))
	require.NoError(t, s.Put(1, sampleState("c"), sampleState("d")))

	in, _, err := s.GetInput(1)
	require.NoError(t, err)
	assert.True(t, in.Equal(sampleState("c")))
}

func TestStoreIterateAll(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put(1, sampleState("a"), sampleState("a-out")))
	require.NoError(t, s.Put(2, sampleState("b"), sampleState("b-out")))

	seen := map[uint64]bool{}
	require.NoError(t, s.IterateAll(func(e Entry) error {
		seen[e.ID] = true
		return nil
	}))

	assert.Len(t, seen, 2)
	assert.True(t, seen[1])
	assert.True(t, seen[2])
}
