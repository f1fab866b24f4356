package dns

import (
	"encoding/binary"

	"github.com/corvid-labs/wiresense/internal/pkg/event"
	"github.com/corvid-labs/wiresense/internal/pkg/tcp"
)

// Match recognizes a DNS-over-TCP message: the first 2-byte length
// prefix must be consistent with a plausible DNS header.
func Match(buf []byte) bool {
	return len(buf) >= 2+12 && binary.BigEndian.Uint16(buf[:2]) >= 12
}

// Processor parses the DNS-over-TCP direction.
func Processor(cfg Config) tcp.Processor {
	return func(h tcp.ProcessorHandle) {
		ctx, _ := h.Ctx.GetOrCreateChild("dns_tcp", h.Flow, func() any { return newStreamState(cfg) })
		ctx.Touch()

		var events []event.Event
		ctx.WithSubtype(func(subtype any) {
			st := subtype.(*streamState)
			events = st.feed(h.Data, h.Slice.Time)
		})

		for _, e := range events {
			e.ID = h.IDGen.NewID()
			e.Device = h.Slice.Device
			e.Network = h.Slice.Network
			e.Direction = h.Slice.Direction
			h.Manager.Handle(e)
		}
	}
}

// RegisterSignature registers the DNS-over-TCP signature on port 53.
func RegisterSignature(r *tcp.Resolver, cfg Config) {
	r.Register(tcp.Signature{Name: "DNS_TCP", Ports: []uint16{53}, Match: Match, Processor: Processor(cfg)})
}
