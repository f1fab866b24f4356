package rtp

import (
	"github.com/corvid-labs/wiresense/internal/pkg/address"
	"github.com/corvid-labs/wiresense/internal/pkg/event"
	"github.com/corvid-labs/wiresense/internal/pkg/flowctx"
	"github.com/corvid-labs/wiresense/internal/pkg/pdu"
	"github.com/corvid-labs/wiresense/internal/pkg/udp"
)

// Handle decodes one RTP datagram and emits the resulting event.
func Handle(cfg Config) udp.Handler {
	return func(ctx *flowctx.Context, f address.FlowAddress, slice pdu.Slice, mgr event.Manager, gen event.IDGenerator, payload []byte) {
		ctx.Touch()

		data := payload
		if cfg.MaxPayloadBytes > 0 && len(data) > cfg.MaxPayloadBytes {
			data = data[:cfg.MaxPayloadBytes]
		}

		p, ok := decode(data)
		if !ok {
			return
		}

		e := event.Event{Action: event.ActionRTPData, Time: slice.Time, Payload: p}
		e.ID = gen.NewID()
		e.Device = slice.Device
		e.Network = slice.Network
		e.Direction = slice.Direction
		mgr.Handle(e)
	}
}

// RegisterRoute registers the RTP route as a content-sniffing fallback,
// since RTP has no well-known port (spec.md §4.6: "RTP via SDP hints").
func RegisterRoute(d *udp.Dispatcher, cfg Config) {
	d.Register(udp.Route{Name: "RTP", Sniff: Sniff, Handle: Handle(cfg)})
}
