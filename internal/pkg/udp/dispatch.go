// Package udp implements stateless per-datagram dispatch by port, the
// udp decoder of spec.md §4.6.
package udp

import (
	"sync"

	"github.com/corvid-labs/wiresense/internal/pkg/address"
	"github.com/corvid-labs/wiresense/internal/pkg/event"
	"github.com/corvid-labs/wiresense/internal/pkg/flowctx"
	"github.com/corvid-labs/wiresense/internal/pkg/pdu"
)

// Handler processes one datagram's payload once its service has been
// identified. It receives the owning udp context so it can materialize
// an application-layer child (e.g. a DNS or SIP context).
type Handler func(ctx *flowctx.Context, f address.FlowAddress, slice pdu.Slice, mgr event.Manager, gen event.IDGenerator, payload []byte)

// Route binds a Handler to one or more well-known ports, with an
// optional content sniff used when no port matches (e.g. RTP identified
// by SDP-advertised media ports rather than a fixed port number).
type Route struct {
	Name  string
	Ports []uint16
	Sniff func(buf []byte) bool
	Handle Handler
}

// Dispatcher maps datagrams to a Route by destination/source port, with
// a content-sniffing fallback, mirroring the teacher's
// detector.Detector portMap-then-scan shape (internal/pkg/detector).
type Dispatcher struct {
	mu      sync.RWMutex
	routes  []Route
	portMap map[uint16]Route
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{portMap: make(map[uint16]Route)}
}

// Register adds a route. First registration wins a port collision.
func (d *Dispatcher) Register(r Route) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.routes = append(d.routes, r)
	for _, p := range r.Ports {
		if _, exists := d.portMap[p]; !exists {
			d.portMap[p] = r
		}
	}
}

func (d *Dispatcher) resolve(dstPort, srcPort uint16, payload []byte) (Route, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if r, ok := d.portMap[dstPort]; ok {
		return r, true
	}
	if r, ok := d.portMap[srcPort]; ok {
		return r, true
	}
	for _, r := range d.routes {
		if r.Sniff != nil && r.Sniff(payload) {
			return r, true
		}
	}
	return Route{}, false
}

// Process dispatches one UDP datagram's payload to the matching Route's
// Handler, or emits UNRECOGNISED_DATAGRAM if nothing matches.
func Process(parent *flowctx.Context, f address.FlowAddress, payload []byte, slice pdu.Slice, mgr event.Manager, gen event.IDGenerator, d *Dispatcher) {
	dstPort := portOf(f.Dst)
	srcPort := portOf(f.Src)

	route, ok := d.resolve(dstPort, srcPort, payload)
	if !ok {
		mgr.Handle(event.New(gen, event.ActionUnrecognisedDatagram, slice.Time, slice.Device, slice.Network, slice.Direction, f))
		return
	}

	ctx, _ := parent.GetOrCreateChild("udp", f, func() any { return nil })
	ctx.Touch()
	route.Handle(ctx, f, slice, mgr, gen, payload)
}

func portOf(a address.Address) uint16 {
	if len(a.Bytes) != 2 {
		return 0
	}
	return uint16(a.Bytes[0])<<8 | uint16(a.Bytes[1])
}
