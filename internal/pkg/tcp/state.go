package tcp

import (
	"time"

	"github.com/corvid-labs/wiresense/internal/pkg/address"
	"github.com/corvid-labs/wiresense/internal/pkg/event"
	"github.com/corvid-labs/wiresense/internal/pkg/flowctx"
	"github.com/corvid-labs/wiresense/internal/pkg/logger"
	"github.com/corvid-labs/wiresense/internal/pkg/pdu"
)

// ConnState is the per-direction handshake/teardown state machine
// (spec.md §4.5 table).
type ConnState int

const (
	StateNew ConnState = iota
	StateSynSeen
	StateConnected
	StateClosing
	StateClosed
)

// Flags mirrors the subset of TCP control bits the decoder inspects.
type Flags struct {
	SYN, ACK, FIN, RST bool
}

// State is the TCP-specific context subtype (spec.md §3 "TCP-specific
// state"), grounded on original_source's tcp_context fields.
type State struct {
	Conn ConnState

	SynObserved   bool
	FinObserved   bool
	Connected     bool
	ConnUpEmitted bool

	SeqValid    bool
	SeqExpected Seq
	AckReceived Seq

	OutOfOrder *segmentSet

	SvcIdented     bool
	IdentOverflown bool
	IdentBuffer    []byte
	Processor      Processor
	SigName        string

	cfg Config
}

func newState(cfg Config) *State {
	return &State{
		OutOfOrder: newSegmentSet(cfg.MaxSegments),
		cfg:        cfg,
	}
}

// ProcessorHandle is passed to a resolved upper-layer Processor: it
// bundles the owning TCP context, the event sink, the flow address (for
// building child contexts) and the delivered bytes for this call.
type ProcessorHandle struct {
	Ctx     *flowctx.Context
	Manager event.Manager
	IDGen   event.IDGenerator
	Flow    address.FlowAddress
	Slice   pdu.Slice
	Data    []byte
}

// result accumulates what happened while processing one segment under the
// context's subtype lock, so events can be emitted after the lock is
// released (spec.md §9 "Scoped-resource acquisition").
type result struct {
	events    []event.Event
	delivered []byte
	processor Processor
}

// HandleSegment processes one TCP segment arriving on flow f under
// parent (typically an IP context). It resolves/creates the per-direction
// context, advances sequence state, reassembles out-of-order data, runs
// service identification, and finally invokes the resolved Processor and
// emits any pending events -- all outside the per-context lock.
func HandleSegment(parent *flowctx.Context, f address.FlowAddress, flags Flags, seq, ack uint32, payload []byte, slice pdu.Slice, mgr event.Manager, gen event.IDGenerator, resolver *Resolver, cfg Config) {
	ctx, _ := parent.GetOrCreateChild("tcp", f, func() any { return newState(cfg) })
	ctx.Touch()

	var res result
	ctx.WithSubtype(func(subtype any) {
		st := subtype.(*State)
		res = st.process(ctx, f, flags, Seq(seq), Seq(ack), payload, slice.Time, resolver)
	})

	for _, e := range res.events {
		e.ID = gen.NewID()
		e.Device = slice.Device
		e.Network = slice.Network
		e.Direction = slice.Direction
		mgr.Handle(e)
	}

	if res.processor != nil && len(res.delivered) > 0 {
		res.processor(ProcessorHandle{
			Ctx:     ctx,
			Manager: mgr,
			IDGen:   gen,
			Flow:    f,
			Slice:   slice,
			Data:    res.delivered,
		})
	}
}

// process runs under the context's subtype lock.
func (s *State) process(ctx *flowctx.Context, f address.FlowAddress, flags Flags, seq, ack Seq, payload []byte, t time.Time, resolver *Resolver) result {
	var res result

	if flags.RST {
		s.Conn = StateClosed
		return res
	}

	switch s.Conn {
	case StateNew:
		if flags.SYN {
			s.SynObserved = true
			s.Conn = StateSynSeen
			s.SeqExpected = seq.Add(1)
			s.SeqValid = true
		} else if !s.SeqValid {
			s.SeqExpected = seq
			s.SeqValid = true
		}
	case StateSynSeen:
		if flags.ACK {
			s.Connected = true
			s.Conn = StateConnected
			// A combined SYN+ACK leaves the replying direction's own FSM in
			// StateSynSeen until it next sees an ACK-bearing segment (every
			// later packet, virtually guaranteed); by then the other
			// direction has usually already completed its own transition
			// and fired CONNECTION_UP. Check the twin before firing so the
			// connection reports up exactly once, not once per direction.
			if !twinConnUpEmitted(ctx) {
				s.ConnUpEmitted = true
				res.events = append(res.events, connectionUpEvent(f, t))
			}
		}
	case StateConnected:
		if flags.FIN {
			s.FinObserved = true
			s.Conn = StateClosing
			if twinClosed(ctx) {
				s.Conn = StateClosed
				res.events = append(res.events, connectionDownEvent(f, t))
			}
		}
	case StateClosing:
		if flags.FIN || flags.ACK {
			if twinClosed(ctx) {
				s.Conn = StateClosed
				res.events = append(res.events, connectionDownEvent(f, t))
			}
		}
	}

	if len(payload) == 0 {
		return res
	}
	if !s.SeqValid {
		s.SeqExpected = seq
		s.SeqValid = true
	}

	// Bytes that arrive exactly in order are delivered directly;
	// anything else is buffered (keep-first trimmed) for later resync.
	s.ingest(f, seq, payload)

	var delivered []byte
	if seq.Equal(s.SeqExpected) {
		delivered = append(delivered, payload...)
		s.SeqExpected = s.SeqExpected.Add(uint32(len(payload)))
	}

	expected, more := s.OutOfOrder.DeliverReady(s.SeqExpected)
	delivered = append(delivered, more...)
	s.SeqExpected = expected

	if len(delivered) == 0 {
		return res
	}

	if !s.SvcIdented {
		room := s.cfg.IdentBufferMax - len(s.IdentBuffer)
		if room > 0 {
			take := delivered
			if len(take) > room {
				take = take[:room]
			}
			s.IdentBuffer = append(s.IdentBuffer, take...)
		}

		if sig, ok := resolver.Resolve(portOf(f.Dst), portOf(f.Src), s.IdentBuffer); ok {
			s.SvcIdented = true
			s.Processor = sig.Processor
			s.SigName = sig.Name
			res.processor = sig.Processor
			res.delivered = append([]byte{}, s.IdentBuffer...)
			return res
		}

		if len(s.IdentBuffer) >= s.cfg.IdentBufferMax && !s.IdentOverflown {
			s.IdentOverflown = true
			logger.Debug("no signature matched before ident buffer filled", "flow", f.String())
			res.events = append(res.events, unrecognisedStreamEvent(f, t))
		}
		return res
	}

	res.processor = s.Processor
	res.delivered = delivered
	return res
}

// ingest buffers payload arriving at seq that is not the next expected
// byte, applying keep-first overlap trimming; in-order data is handled by
// the direct-delivery path in process and never reaches here. Overflow
// (the out-of-order set dropping its highest-offset segment to stay within
// max_segments) is logged once per occurrence, the same treatment
// ip4/ip6 give fragment-list eviction (spec.md §7).
func (s *State) ingest(f address.FlowAddress, seq Seq, payload []byte) {
	if seq.Equal(s.SeqExpected) {
		return
	}
	if seq.Before(s.SeqExpected) {
		end := seq.Add(uint32(len(payload)))
		if !s.SeqExpected.Before(end) {
			return // fully-delivered duplicate
		}
		off := seq.Distance(s.SeqExpected)
		if s.OutOfOrder.Insert(s.SeqExpected, payload[off:]) {
			logger.Warn("dropping highest-offset out-of-order TCP segment, buffer exceeded bound", "flow", f.String())
		}
		return
	}
	if s.OutOfOrder.Insert(seq, payload) {
		logger.Warn("dropping highest-offset out-of-order TCP segment, buffer exceeded bound", "flow", f.String())
	}
}

func portOf(a address.Address) uint16 {
	if len(a.Bytes) != 2 {
		return 0
	}
	return uint16(a.Bytes[0])<<8 | uint16(a.Bytes[1])
}

// twinClosed reports whether the reverse-direction context has also
// observed FIN, completing a bidirectional close.
func twinClosed(ctx *flowctx.Context) bool {
	twin := ctx.Twin()
	if twin == nil {
		return false
	}
	closed := false
	twin.WithSubtype(func(subtype any) {
		if st, ok := subtype.(*State); ok {
			closed = st.FinObserved || st.Conn == StateClosed
		}
	})
	return closed
}

// twinConnUpEmitted reports whether the reverse-direction context has
// already emitted CONNECTION_UP for this connection.
func twinConnUpEmitted(ctx *flowctx.Context) bool {
	twin := ctx.Twin()
	if twin == nil {
		return false
	}
	emitted := false
	twin.WithSubtype(func(subtype any) {
		if st, ok := subtype.(*State); ok {
			emitted = st.ConnUpEmitted
		}
	})
	return emitted
}

func connectionUpEvent(f address.FlowAddress, t time.Time) event.Event {
	return event.Event{Action: event.ActionConnectionUp, Time: t, Payload: f}
}

func connectionDownEvent(f address.FlowAddress, t time.Time) event.Event {
	return event.Event{Action: event.ActionConnectionDown, Time: t, Payload: f}
}

func unrecognisedStreamEvent(f address.FlowAddress, t time.Time) event.Event {
	return event.Event{Action: event.ActionUnrecognisedStream, Time: t, Payload: f}
}
