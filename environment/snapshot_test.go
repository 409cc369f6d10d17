package environment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshot(t *testing.T) {
	snap := NewSnapshot([]string{
		"PATH=/usr/bin",
		"EMPTY=",
		"WITH_EQUALS=a=b",
		"DUP=first",
		"DUP=second",
		"garbage",
		"=nokey",
	})

	require.Equal(t, 4, snap.Len())

	value, ok := snap.Lookup("EMPTY")
	assert.True(t, ok)
	assert.Equal(t, "", value)

	assert.Equal(t, "a=b", snap.Get("WITH_EQUALS"))
	assert.Equal(t, "second", snap.Get("DUP"))

	_, ok = snap.Lookup("garbage")
	assert.False(t, ok)
}

func TestSnapshotWith(t *testing.T) {
	snap := NewSnapshot([]string{"PATH=/usr/bin", "HOME=/home/alice", "SWIFT_IMPORT_SEARCH_PATH=/old"})

	derived := snap.With(map[string]string{SearchPathEnv: "/opt/swift-env/modules"})
	require.Equal(t, []string{
		"HOME=/home/alice",
		"PATH=/usr/bin",
		"SWIFT_IMPORT_SEARCH_PATH=/opt/swift-env/modules",
	}, derived)

	// The base snapshot keeps its original value.
	require.Equal(t, "/old", snap.Get(SearchPathEnv))
	require.Equal(t, []string{
		"HOME=/home/alice",
		"PATH=/usr/bin",
		"SWIFT_IMPORT_SEARCH_PATH=/old",
	}, snap.Environ())
}

func TestSnapshotWithAddsKey(t *testing.T) {
	snap := NewSnapshot([]string{"A=1", "B=2"})

	derived := NewSnapshot(snap.With(map[string]string{"C": "3"}))
	require.Equal(t, snap.Len()+1, derived.Len())
	for _, kv := range snap.Environ() {
		require.Contains(t, derived.Environ(), kv)
	}
	require.Equal(t, "3", derived.Get("C"))
}
