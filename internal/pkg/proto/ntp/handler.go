package ntp

import (
	"github.com/corvid-labs/wiresense/internal/pkg/address"
	"github.com/corvid-labs/wiresense/internal/pkg/event"
	"github.com/corvid-labs/wiresense/internal/pkg/flowctx"
	"github.com/corvid-labs/wiresense/internal/pkg/pdu"
	"github.com/corvid-labs/wiresense/internal/pkg/udp"
)

// Handle decodes one NTP datagram and emits the resulting event.
func Handle(cfg Config) udp.Handler {
	return func(ctx *flowctx.Context, f address.FlowAddress, slice pdu.Slice, mgr event.Manager, gen event.IDGenerator, payload []byte) {
		ctx.Touch()

		data := payload
		if cfg.MaxMessageBytes > 0 && len(data) > cfg.MaxMessageBytes {
			data = data[:cfg.MaxMessageBytes]
		}

		p, ok := decode(data)
		if !ok {
			return
		}

		e := event.Event{Action: event.ActionNTPMessage, Time: slice.Time, Payload: p}
		e.ID = gen.NewID()
		e.Device = slice.Device
		e.Network = slice.Network
		e.Direction = slice.Direction
		mgr.Handle(e)
	}
}

// RegisterRoute registers the NTP route on port 123.
func RegisterRoute(d *udp.Dispatcher, cfg Config) {
	d.Register(udp.Route{Name: "NTP", Ports: []uint16{123}, Handle: Handle(cfg)})
}
