package ip6

import (
	"time"

	"github.com/corvid-labs/wiresense/internal/pkg/logger"
	"github.com/corvid-labs/wiresense/internal/pkg/reassembly"
)

// State is the ip6 context's Subtype: a bounded table of concurrent
// fragment reassemblies for the (src, dst) flow this context represents,
// keyed by the Fragment extension header's 32-bit Identification field
// (spec.md §4.4: "same hole-list discipline" as ip4).
type State struct {
	reassembling map[uint32]*reassembly.List
	totalPieces  int
	cfg          Config
}

func newState(cfg Config) *State {
	return &State{reassembling: make(map[uint32]*reassembly.List), cfg: cfg}
}

// insert feeds one fragment into the reassembly for id, creating it if
// new. max_frag_list_len bounds the total number of buffered fragments
// across every concurrent reassembly this context holds (spec.md §4.3),
// not the number of distinct fragment IDs; on overflow the least
// recently touched reassembly is dropped, as many times as needed to
// bring the total back under the bound.
func (s *State) insert(id uint32, offset int, data []byte, moreFragments bool, t time.Time) []byte {
	l, ok := s.reassembling[id]
	if !ok {
		l = reassembly.New(t)
		s.reassembling[id] = l
	}

	complete := l.Insert(offset, data, !moreFragments, t)
	s.totalPieces++
	s.evictIfNeeded()

	if _, stillPresent := s.reassembling[id]; !stillPresent {
		return nil
	}
	if !complete {
		return nil
	}

	out, err := l.Build()
	s.totalPieces -= l.PieceCount()
	delete(s.reassembling, id)
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
		var oldestKey uint32
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
		logger.Warn("evicting oldest ipv6 fragment reassembly, buffered fragments exceeded bound",
			"id", oldestKey, "max_frag_list_len", s.cfg.MaxFragListLen)
	}
}
