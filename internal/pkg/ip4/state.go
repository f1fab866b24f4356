package ip4

import (
	"time"

	"github.com/corvid-labs/wiresense/internal/pkg/logger"
	"github.com/corvid-labs/wiresense/internal/pkg/reassembly"
)

// fragKey identifies one datagram's reassembly within a (src, dst) ip4
// context.
type fragKey struct {
	protocol uint8
	id       uint16
}

// State is the ip4 context's Subtype: a bounded table of concurrent
// fragment reassemblies for the (src, dst) flow this context represents
// (spec.md §3 "IP-fragment state").
type State struct {
	reassembling map[fragKey]*reassembly.List
	totalPieces  int
	cfg          Config
}

func newState(cfg Config) *State {
	return &State{reassembling: make(map[fragKey]*reassembly.List), cfg: cfg}
}

// insert feeds one fragment into the reassembly for (protocol, id),
// creating it if new. Returns the reassembled payload once complete, or
// nil while still incomplete. max_frag_list_len bounds the total number
// of buffered fragments across every concurrent reassembly this context
// holds (spec.md §4.3), not the number of distinct fragment IDs; on
// overflow the least recently touched reassembly is dropped, as many
// times as needed to bring the total back under the bound.
func (s *State) insert(protocol uint8, id uint16, offset int, data []byte, moreFragments bool, t time.Time) []byte {
	key := fragKey{protocol: protocol, id: id}

	l, ok := s.reassembling[key]
	if !ok {
		l = reassembly.New(t)
		s.reassembling[key] = l
	}

	complete := l.Insert(offset, data, !moreFragments, t)
	s.totalPieces++
	s.evictIfNeeded()

	// The reassembly just fed above may itself have been the one evicted,
	// e.g. a single pathological fragment ID alone holding more pieces
	// than the bound allows.
	if _, stillPresent := s.reassembling[key]; !stillPresent {
		return nil
	}
	if !complete {
		return nil
	}

	out, err := l.Build()
	s.totalPieces -= l.PieceCount()
	delete(s.reassembling, key)
	if err != nil {
		return nil
	}
	return out
}

// evictIfNeeded drops the least recently touched reassembly, repeatedly,
// until the total buffered fragment count is back at or under
// max_frag_list_len.
func (s *State) evictIfNeeded() {
	for s.totalPieces > s.cfg.MaxFragListLen && len(s.reassembling) > 0 {
		var oldestKey fragKey
		var oldest time.Time
		first := true
		for k, l := range s.reassembling {
			if first || l.LastTouched.Before(oldest) {
				oldestKey = k
				oldest = l.LastTouched
				first = false
			}
		}
		s.totalPieces -= s.reassembling[oldestKey].PieceCount()
		delete(s.reassembling, oldestKey)
		logger.Warn("evicting oldest ipv4 fragment reassembly, buffered fragments exceeded bound",
			"protocol", oldestKey.protocol, "id", oldestKey.id, "max_frag_list_len", s.cfg.MaxFragListLen)
	}
}
