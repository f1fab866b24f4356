package ip4

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEvictionBoundsTotalBufferedFragmentsNotDistinctIDs is spec.md §4.3:
// max_frag_list_len bounds the total number of buffered fragment pieces
// across every concurrent reassembly a context holds, not the number of
// distinct fragment IDs. A single fragment ID fed many small pieces must
// trigger eviction just as readily as many distinct IDs would.
func TestEvictionBoundsTotalBufferedFragmentsNotDistinctIDs(t *testing.T) {
	cfg := Config{MaxFragListLen: 4}
	s := newState(cfg)

	base := time.Now()

	// One fragment ID, five non-final one-byte pieces: five buffered
	// fragments from a single reassembly must still trip the bound.
	for i := 0; i < 5; i++ {
		out := s.insert(17, 1, i, []byte{byte(i)}, true, base.Add(time.Duration(i)*time.Second))
		assert.Nil(t, out)
	}

	assert.LessOrEqual(t, s.totalPieces, cfg.MaxFragListLen)
}

// TestEvictionDropsOldestReassemblyAcrossDistinctIDs confirms the
// oldest-touched reassembly is the one evicted when the bound is
// exceeded by spreading fragments across several fragment IDs.
func TestEvictionDropsOldestReassemblyAcrossDistinctIDs(t *testing.T) {
	cfg := Config{MaxFragListLen: 2}
	s := newState(cfg)

	base := time.Now()

	// Fragment ID 1 is touched first (oldest), then 2, then 3: each
	// insert is a non-final fragment so nothing completes and nothing is
	// removed except by eviction.
	s.insert(17, 1, 0, []byte{0}, true, base)
	s.insert(17, 2, 0, []byte{0}, true, base.Add(time.Second))
	s.insert(17, 3, 0, []byte{0}, true, base.Add(2*time.Second))

	require.LessOrEqual(t, s.totalPieces, cfg.MaxFragListLen)
	_, stillHasOldest := s.reassembling[fragKey{protocol: 17, id: 1}]
	assert.False(t, stillHasOldest, "oldest-touched reassembly should have been evicted")
	_, stillHasNewest := s.reassembling[fragKey{protocol: 17, id: 3}]
	assert.True(t, stillHasNewest, "most recently touched reassembly should survive")
}

// TestCompletedReassemblyReleasesItsPieceBudget confirms a completed
// reassembly's pieces no longer count against the bound once it has been
// built and removed.
func TestCompletedReassemblyReleasesItsPieceBudget(t *testing.T) {
	cfg := Config{MaxFragListLen: 4}
	s := newState(cfg)

	now := time.Now()
	out := s.insert(17, 9, 0, []byte("hello"), true, now)
	assert.Nil(t, out)
	out = s.insert(17, 9, 5, []byte("world"), false, now)
	require.Equal(t, "helloworld", string(out))

	assert.Equal(t, 0, s.totalPieces)
	assert.Empty(t, s.reassembling)
}
