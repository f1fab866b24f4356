package sip

import (
	"github.com/corvid-labs/wiresense/internal/pkg/address"
	"github.com/corvid-labs/wiresense/internal/pkg/event"
	"github.com/corvid-labs/wiresense/internal/pkg/flowctx"
	"github.com/corvid-labs/wiresense/internal/pkg/pdu"
	"github.com/corvid-labs/wiresense/internal/pkg/udp"
)

// Handle parses one SIP datagram and emits the resulting event, if any.
func Handle(cfg Config) udp.Handler {
	return func(ctx *flowctx.Context, f address.FlowAddress, slice pdu.Slice, mgr event.Manager, gen event.IDGenerator, payload []byte) {
		ctx.Touch()

		data := payload
		if cfg.MaxMessageBytes > 0 && len(data) > cfg.MaxMessageBytes {
			data = data[:cfg.MaxMessageBytes]
		}

		req, resp, ok := parse(data)
		if !ok {
			return
		}

		var e event.Event
		if req != nil {
			e = event.Event{Action: event.ActionSIPRequest, Time: slice.Time, Payload: *req}
		} else {
			e = event.Event{Action: event.ActionSIPResponse, Time: slice.Time, Payload: *resp}
		}
		e.ID = gen.NewID()
		e.Device = slice.Device
		e.Network = slice.Network
		e.Direction = slice.Direction
		mgr.Handle(e)
	}
}

// RegisterRoute registers the SIP route on its well-known port.
func RegisterRoute(d *udp.Dispatcher, cfg Config) {
	d.Register(udp.Route{Name: "SIP", Ports: []uint16{5060}, Handle: Handle(cfg)})
}
