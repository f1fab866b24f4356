package dns

import (
	"encoding/binary"
	"time"

	"github.com/corvid-labs/wiresense/internal/pkg/event"
)

// streamState is the resumable parser for DNS-over-TCP, where each
// message is prefixed by a 2-byte big-endian length (RFC 1035 §4.2.2).
type streamState struct {
	buf []byte
	cfg Config
}

func newStreamState(cfg Config) *streamState {
	return &streamState{cfg: cfg}
}

func (s *streamState) feed(data []byte, t time.Time) []event.Event {
	s.buf = append(s.buf, data...)

	var events []event.Event
	for {
		if len(s.buf) < 2 {
			return events
		}
		msgLen := int(binary.BigEndian.Uint16(s.buf[:2]))
		if s.cfg.MaxMessageBytes > 0 && msgLen > s.cfg.MaxMessageBytes {
			s.buf = nil
			return events
		}
		if len(s.buf) < 2+msgLen {
			return events
		}
		msg := s.buf[2 : 2+msgLen]
		s.buf = s.buf[2+msgLen:]

		q, r, ok := decode(msg)
		if !ok {
			continue
		}
		if q != nil {
			events = append(events, event.Event{Action: event.ActionDNSQuery, Time: t, Payload: *q})
		} else {
			events = append(events, event.Event{Action: event.ActionDNSResponse, Time: t, Payload: *r})
		}
	}
}
