// Package pdu defines the immutable byte-range value flowing through the
// decoding pipeline (spec.md §3 "PDU slice").
package pdu

import "time"

// Direction describes which side of an observed flow a slice travelled.
type Direction int

const (
	DirectionUnknown Direction = iota
	DirectionFromTarget
	DirectionToTarget
)

func (d Direction) String() string {
	switch d {
	case DirectionFromTarget:
		return "FROM_TARGET"
	case DirectionToTarget:
		return "TO_TARGET"
	default:
		return "NOT_KNOWN"
	}
}

// Slice is a reference to a contiguous byte range plus the metadata
// decoders need to route and timestamp it. Slices never own the
// underlying buffer; callers guarantee the backing array outlives the
// decode call chain operating on it (spec.md §3).
type Slice struct {
	Bytes     []byte
	Time      time.Time
	Direction Direction
	Device    string
	Network   string
}

// New builds a Slice with the given provenance.
func New(device, network string, dir Direction, t time.Time, b []byte) Slice {
	return Slice{Bytes: b, Time: t, Direction: dir, Device: device, Network: network}
}

// Sub returns a narrower slice over bytes[off:], preserving provenance.
// Used when a decoder hands a smaller window to the next layer.
func (s Slice) Sub(off int) Slice {
	if off >= len(s.Bytes) {
		s.Bytes = nil
		return s
	}
	s.Bytes = s.Bytes[off:]
	return s
}

// Reverse flips FROM_TARGET/TO_TARGET, used when a context resolves the
// opposite-direction twin of a flow.
func (d Direction) Reverse() Direction {
	switch d {
	case DirectionFromTarget:
		return DirectionToTarget
	case DirectionToTarget:
		return DirectionFromTarget
	default:
		return DirectionUnknown
	}
}
