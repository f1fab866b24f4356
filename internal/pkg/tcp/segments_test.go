package tcp

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSegmentReassemblyAnyPermutation is spec.md §8 property 3: for any
// segment stream permuted within max_segments, delivered bytes equal the
// original stream.
func TestSegmentReassemblyAnyPermutation(t *testing.T) {
	original := []byte("the quick brown fox jumps over the lazy dog")
	chunkSize := 4

	type chunk struct {
		first Seq
		data  []byte
	}
	var chunks []chunk
	for i := 0; i < len(original); i += chunkSize {
		end := i + chunkSize
		if end > len(original) {
			end = len(original)
		}
		chunks = append(chunks, chunk{first: Seq(i), data: original[i:end]})
	}

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		perm := rng.Perm(len(chunks))

		set := newSegmentSet(len(chunks) + 1)
		expected := Seq(0)
		var delivered []byte

		for _, idx := range perm {
			c := chunks[idx]
			if c.first.Equal(expected) {
				delivered = append(delivered, c.data...)
				expected = expected.Add(uint32(len(c.data)))
			} else {
				set.Insert(c.first, c.data)
			}
			var more []byte
			expected, more = set.DeliverReady(expected)
			delivered = append(delivered, more...)
		}

		require.Equal(t, string(original), string(delivered), "permutation %v", perm)
	}
}

func TestSegmentSetDuplicateDiscarded(t *testing.T) {
	set := newSegmentSet(8)
	set.Insert(Seq(10), []byte("hello"))
	set.Insert(Seq(10), []byte("hello")) // exact duplicate

	expected, data := set.DeliverReady(Seq(10))
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, Seq(15), expected)
}

func TestSegmentSetKeepFirstOnOverlap(t *testing.T) {
	set := newSegmentSet(8)
	set.Insert(Seq(10), []byte("AAAAA")) // [10,15)
	set.Insert(Seq(12), []byte("XXXXX")) // overlaps [12,17): keep-first trims to [15,17)

	expected, data := set.DeliverReady(Seq(10))
	assert.Equal(t, "AAAAAXX", string(data))
	assert.Equal(t, Seq(17), expected)
}

func TestSegmentSetBoundedByMax(t *testing.T) {
	set := newSegmentSet(2)
	set.Insert(Seq(100), []byte("a"))
	set.Insert(Seq(200), []byte("b"))
	overflowed := set.Insert(Seq(300), []byte("c"))

	assert.True(t, overflowed)
	assert.LessOrEqual(t, set.Len(), 2)
}
