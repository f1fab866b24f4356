// Package reassembly implements the RFC 815 hole-list algorithm shared
// by the IPv4 and IPv6 fragment reassemblers (spec.md §4.3, §4.4: "same
// hole-list discipline"), grounded on original_source's ip4_context hole
// list (include/cyberprobe/protocol/ip.h) and adapted from the teacher's
// fragmentList concatenation loop (internal/pkg/capture/defrag.go).
package reassembly

import (
	"errors"
	"sort"
	"time"
)

// Infinity stands in for "end of datagram not yet known", narrowed to a
// concrete byte offset once the final fragment arrives.
const Infinity = int64(1) << 40

type hole struct {
	first, last int64
}

type piece struct {
	first int64
	data  []byte
}

// List is one in-progress reassembly: an explicit hole list plus the
// fragments received so far.
type List struct {
	holes       []hole
	pieces      []piece
	LastTouched time.Time
}

// New starts a reassembly with a single unbounded hole [0, Infinity).
func New(t time.Time) *List {
	return &List{holes: []hole{{first: 0, last: Infinity}}, LastTouched: t}
}

// Insert narrows the hole list by the arriving fragment's byte range and
// records its data. Returns true once no hole remains.
func (l *List) Insert(offset int, data []byte, final bool, t time.Time) bool {
	l.LastTouched = t
	l.pieces = append(l.pieces, piece{first: int64(offset), data: data})

	first := int64(offset)
	last := first + int64(len(data)) - 1

	var kept []hole
	for _, h := range l.holes {
		if first > h.last || last < h.first {
			kept = append(kept, h)
			continue
		}
		if first > h.first {
			kept = append(kept, hole{first: h.first, last: first - 1})
		}
		if last < h.last && !final {
			kept = append(kept, hole{first: last + 1, last: h.last})
		}
		// final narrows an unbounded hole to end exactly at last: nothing
		// remains past the end of the datagram.
	}
	l.holes = kept
	return len(l.holes) == 0
}

// PieceCount returns the number of fragments buffered so far, used by
// callers that bound total buffered fragments across many concurrent
// reassemblies rather than just the number of reassemblies.
func (l *List) PieceCount() int {
	return len(l.pieces)
}

// Build concatenates received pieces by offset, trimming overlap against
// bytes already placed (keep-first). Call only once Insert has reported
// completion.
func (l *List) Build() ([]byte, error) {
	sorted := make([]piece, len(l.pieces))
	copy(sorted, l.pieces)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].first < sorted[j].first })

	var out []byte
	var at int64
	for _, p := range sorted {
		switch {
		case p.first == at:
			out = append(out, p.data...)
			at += int64(len(p.data))
		case p.first < at:
			skip := at - p.first
			if skip >= int64(len(p.data)) {
				continue // fully covered by earlier, longer fragments
			}
			out = append(out, p.data[skip:]...)
			at += int64(len(p.data)) - skip
		default:
			return nil, errors.New("reassembly: hole in fragment sequence at build time")
		}
	}
	return out, nil
}
