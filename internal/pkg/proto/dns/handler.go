package dns

import (
	"github.com/corvid-labs/wiresense/internal/pkg/address"
	"github.com/corvid-labs/wiresense/internal/pkg/event"
	"github.com/corvid-labs/wiresense/internal/pkg/flowctx"
	"github.com/corvid-labs/wiresense/internal/pkg/pdu"
	"github.com/corvid-labs/wiresense/internal/pkg/udp"
)

func emit(p *QueryPayload, r *ResponsePayload, slice pdu.Slice, mgr event.Manager, gen event.IDGenerator) {
	var e event.Event
	if p != nil {
		e = event.Event{Action: event.ActionDNSQuery, Time: slice.Time, Payload: *p}
	} else {
		e = event.Event{Action: event.ActionDNSResponse, Time: slice.Time, Payload: *r}
	}
	e.ID = gen.NewID()
	e.Device = slice.Device
	e.Network = slice.Network
	e.Direction = slice.Direction
	mgr.Handle(e)
}

// Handle decodes one DNS datagram and emits the resulting event.
func Handle(cfg Config) udp.Handler {
	return func(ctx *flowctx.Context, f address.FlowAddress, slice pdu.Slice, mgr event.Manager, gen event.IDGenerator, payload []byte) {
		ctx.Touch()

		data := payload
		if cfg.MaxMessageBytes > 0 && len(data) > cfg.MaxMessageBytes {
			data = data[:cfg.MaxMessageBytes]
		}

		q, r, ok := decode(data)
		if !ok {
			return
		}
		emit(q, r, slice, mgr, gen)
	}
}

// RegisterRoute registers the UDP DNS route on port 53.
func RegisterRoute(d *udp.Dispatcher, cfg Config) {
	d.Register(udp.Route{Name: "DNS", Ports: []uint16{53}, Handle: Handle(cfg)})
}
