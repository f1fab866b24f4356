// Package ip6 implements the IPv6 decoder: extension-header chain walk,
// fragment extension-header reassembly, and next-header dispatch
// (spec.md §4.4), sharing the ip4 decoder's hole-list discipline and
// next-protocol dispatch shape.
package ip6

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/corvid-labs/wiresense/internal/pkg/address"
	"github.com/corvid-labs/wiresense/internal/pkg/event"
	"github.com/corvid-labs/wiresense/internal/pkg/flowctx"
	"github.com/corvid-labs/wiresense/internal/pkg/logger"
	"github.com/corvid-labs/wiresense/internal/pkg/pdu"
	"github.com/corvid-labs/wiresense/internal/pkg/tcp"
	"github.com/corvid-labs/wiresense/internal/pkg/udp"
)

// Dependencies mirrors ip4.Dependencies: the next-layer collaborators a
// fully resolved datagram is dispatched to.
type Dependencies struct {
	TCPResolver *tcp.Resolver
	TCPConfig   tcp.Config
	UDPRoutes   *udp.Dispatcher
}

// maxExtensionHeaders bounds the extension-header walk so a crafted
// chain of headers pointing at each other cannot spin forever.
const maxExtensionHeaders = 16

// Process decodes one IPv6 datagram: walks its extension-header chain,
// reassembling at the Fragment header if present, then dispatches the
// final payload to TCP, UDP, ICMPv6, or UNRECOGNISED_IP_PROTOCOL.
func Process(parent *flowctx.Context, raw []byte, slice pdu.Slice, mgr event.Manager, gen event.IDGenerator, cfg Config, deps Dependencies) {
	var hdr layers.IPv6
	if err := hdr.DecodeFromBytes(raw, gopacket.NilDecodeFeedback); err != nil {
		return
	}

	src := address.FromIP(hdr.SrcIP)
	dst := address.FromIP(hdr.DstIP)
	flow := address.NewFlow(address.LayerIP6, src, dst)

	ctx, _ := parent.GetOrCreateChild("ip6", flow, func() any { return newState(cfg) })
	ctx.Touch()

	next := hdr.NextHeader
	payload := hdr.Payload

	for i := 0; i < maxExtensionHeaders; i++ {
		switch next {
		case layers.IPProtocolIPv6HopByHop:
			var eh layers.IPv6HopByHop
			if err := eh.DecodeFromBytes(payload, gopacket.NilDecodeFeedback); err != nil {
				return
			}
			next = eh.NextHeader
			payload = eh.Payload

		case layers.IPProtocolIPv6Routing:
			var eh layers.IPv6Routing
			if err := eh.DecodeFromBytes(payload, gopacket.NilDecodeFeedback); err != nil {
				return
			}
			next = eh.NextHeader
			payload = eh.Payload

		case layers.IPProtocolIPv6Destination:
			var eh layers.IPv6Destination
			if err := eh.DecodeFromBytes(payload, gopacket.NilDecodeFeedback); err != nil {
				return
			}
			next = eh.NextHeader
			payload = eh.Payload

		case layers.IPProtocolIPv6Fragment:
			var eh layers.IPv6Fragment
			if err := eh.DecodeFromBytes(payload, gopacket.NilDecodeFeedback); err != nil {
				return
			}

			var reassembled []byte
			ctx.WithSubtype(func(subtype any) {
				st := subtype.(*State)
				reassembled = st.insert(eh.Identification, int(eh.FragmentOffset)*8, eh.Payload, eh.MoreFragments, slice.Time)
			})
			if reassembled == nil {
				return // still waiting on more fragments
			}
			dispatch(ctx, flow, eh.NextHeader, reassembled, slice, mgr, gen, deps)
			return

		default:
			dispatch(ctx, flow, next, payload, slice, mgr, gen, deps)
			return
		}
	}
}

func dispatch(ctx *flowctx.Context, flow address.FlowAddress, proto layers.IPProtocol, payload []byte, slice pdu.Slice, mgr event.Manager, gen event.IDGenerator, deps Dependencies) {
	switch proto {
	case layers.IPProtocolTCP:
		var seg layers.TCP
		if err := seg.DecodeFromBytes(payload, gopacket.NilDecodeFeedback); err != nil {
			return
		}
		src := address.FromPort(address.LayerTCP, uint16(seg.SrcPort))
		dst := address.FromPort(address.LayerTCP, uint16(seg.DstPort))
		f := address.NewFlow(address.LayerTCP, src, dst)
		flags := tcp.Flags{SYN: seg.SYN, ACK: seg.ACK, FIN: seg.FIN, RST: seg.RST}
		tcp.HandleSegment(ctx, f, flags, seg.Seq, seg.Ack, seg.Payload, slice, mgr, gen, deps.TCPResolver, deps.TCPConfig)

	case layers.IPProtocolUDP:
		var dgram layers.UDP
		if err := dgram.DecodeFromBytes(payload, gopacket.NilDecodeFeedback); err != nil {
			return
		}
		src := address.FromPort(address.LayerUDP, uint16(dgram.SrcPort))
		dst := address.FromPort(address.LayerUDP, uint16(dgram.DstPort))
		f := address.NewFlow(address.LayerUDP, src, dst)
		udp.Process(ctx, f, dgram.Payload, slice, mgr, gen, deps.UDPRoutes)

	case layers.IPProtocolICMPv6:
		var icmp layers.ICMPv6
		if err := icmp.DecodeFromBytes(payload, gopacket.NilDecodeFeedback); err != nil {
			return
		}
		mgr.Handle(event.New(gen, event.ActionICMP, slice.Time, slice.Device, slice.Network, slice.Direction, icmp))

	case layers.IPProtocolESP, layers.IPProtocolGRE:
		// Recognized but not decoded further; see ip4's identical choice.

	default:
		logger.Debug("unrecognised IP protocol", "flow", flow.String(), "protocol", uint8(proto))
		mgr.Handle(event.New(gen, event.ActionUnrecognisedIPProtocol, slice.Time, slice.Device, slice.Network, slice.Direction, flow))
	}
}
