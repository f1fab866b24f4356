package tls

import (
	"github.com/corvid-labs/wiresense/internal/pkg/event"
	"github.com/corvid-labs/wiresense/internal/pkg/tcp"
)

// Match recognizes the start of a TLS record stream: a handshake record
// (ContentType 22) on SSLv3-or-later.
func Match(buf []byte) bool {
	return len(buf) >= 3 && buf[0] == RecordTypeHandshake && buf[1] == 0x03
}

// Processor returns a tcp.Processor that frames and decodes a TLS record
// stream, used both for direct TLS connections (e.g. port 443) and for
// STARTTLS escalation from a line-oriented protocol (spec.md §4.7
// "escalates to a subordinate decoder").
func Processor(cfg Config) tcp.Processor {
	return func(h tcp.ProcessorHandle) {
		ctx, _ := h.Ctx.GetOrCreateChild("tls", h.Flow, func() any { return newState(cfg) })
		ctx.Touch()

		var events []event.Event
		ctx.WithSubtype(func(subtype any) {
			st := subtype.(*State)
			events = st.Feed(h.Data, h.Slice.Time)
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

// RegisterSignature adds direct (non-STARTTLS) TLS detection to a
// tcp.Resolver, ported to the conventional 443.
func RegisterSignature(r *tcp.Resolver, cfg Config) {
	r.Register(tcp.Signature{
		Name:      "TLS",
		Ports:     []uint16{443},
		Match:     Match,
		Processor: Processor(cfg),
	})
}
