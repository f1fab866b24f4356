package tcp

// Seq wraps a TCP sequence number and compares using modular-32-bit
// arithmetic (spec.md §4.5 "Sequence handling", §8 property 4): the half
// of the space nearer to the reference value is "future", matching
// original_source's cyberprobe::util::serial<uint32_t,uint32_t>.
type Seq uint32

// Before reports whether a comes strictly before b in sequence order,
// treating the 2^32 space as circular. At a gap of exactly 2^31 the
// order is ambiguous and Before reports true in both directions (the
// same result as BSD's SEQ_LT).
func (a Seq) Before(b Seq) bool {
	return int32(a-b) < 0
}

// After is the inverse of Before.
func (a Seq) After(b Seq) bool {
	return b.Before(a)
}

// Add advances a sequence number by n bytes, wrapping at 2^32.
func (a Seq) Add(n uint32) Seq {
	return a + Seq(n)
}

// Distance returns b-a as an unsigned byte count, assuming b is not
// "before" a (mod 2^32). Used to size contiguous runs and gaps.
func (a Seq) Distance(b Seq) uint32 {
	return uint32(b - a)
}
