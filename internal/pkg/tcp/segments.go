package tcp

import "sort"

// segment is one buffered out-of-order TCP payload range.
type segment struct {
	first Seq
	data  []byte
}

func (s segment) end() Seq { return s.first.Add(uint32(len(s.data))) }

// segmentSet is the bounded ordered set of out-of-order segments a TCP
// direction buffers while waiting for a gap to fill (spec.md §4.5,
// §3 "ordered set of out-of-order segments bounded by max_segments").
// Overlap policy is keep-first: a newly arriving range is trimmed against
// whatever is already buffered, never the other way around (spec.md §9
// open question, resolved "keep-first").
type segmentSet struct {
	segs []segment
	max  int
}

func newSegmentSet(max int) *segmentSet {
	return &segmentSet{max: max}
}

// Insert buffers [first, first+len(data)) after clipping away any range
// already covered by a buffered segment. Returns true if the set had to
// drop its highest-offset segment(s) to stay within max.
func (s *segmentSet) Insert(first Seq, data []byte) (overflowed bool) {
	if len(data) == 0 {
		return false
	}

	for _, frag := range s.subtractCovered(first, data) {
		s.insertOne(frag.first, frag.data)
	}

	if len(s.segs) > s.max {
		// Drop the segment furthest from being deliverable.
		sort.Slice(s.segs, func(i, j int) bool { return s.segs[i].first.Before(s.segs[j].first) })
		s.segs = s.segs[:s.max]
		return true
	}
	return false
}

// subtractCovered returns the sub-ranges of [first, first+len(data)) that
// do not overlap any already-buffered segment.
func (s *segmentSet) subtractCovered(first Seq, data []byte) []segment {
	ranges := []segment{{first: first, data: data}}

	for _, existing := range s.segs {
		var next []segment
		for _, r := range ranges {
			next = append(next, clipAgainst(r, existing)...)
		}
		ranges = next
	}
	return ranges
}

// clipAgainst removes the portion of r that overlaps existing, returning
// zero, one, or two resulting fragments.
func clipAgainst(r, existing segment) []segment {
	rEnd := r.end()
	eEnd := existing.end()

	if !r.first.Before(eEnd) || !existing.first.Before(rEnd) {
		// No overlap.
		return []segment{r}
	}

	var out []segment
	if r.first.Before(existing.first) {
		out = append(out, segment{first: r.first, data: r.data[:r.first.Distance(existing.first)]})
	}
	if eEnd.Before(rEnd) {
		off := eEnd.Distance(rEnd)
		out = append(out, segment{first: eEnd, data: r.data[uint32(len(r.data))-off:]})
	}
	return out
}

func (s *segmentSet) insertOne(first Seq, data []byte) {
	idx := sort.Search(len(s.segs), func(i int) bool { return !s.segs[i].first.Before(first) })
	s.segs = append(s.segs, segment{})
	copy(s.segs[idx+1:], s.segs[idx:])
	s.segs[idx] = segment{first: first, data: data}
}

// DeliverReady pops the contiguous run of buffered segments starting at
// exactly expected, returning the concatenated bytes and the new expected
// sequence number.
func (s *segmentSet) DeliverReady(expected Seq) (Seq, []byte) {
	var out []byte

	for len(s.segs) > 0 {
		next := s.segs[0]
		if next.first.Before(expected) {
			// Stale leftover below the window; drop it.
			s.segs = s.segs[1:]
			continue
		}
		if !next.first.Equal(expected) {
			break
		}
		out = append(out, next.data...)
		expected = next.end()
		s.segs = s.segs[1:]
	}

	return expected, out
}

// Equal reports sequence equality.
func (a Seq) Equal(b Seq) bool { return a == b }

// Len reports the number of buffered out-of-order segments.
func (s *segmentSet) Len() int { return len(s.segs) }
