// Package ip4 implements the IPv4 decoder: header parsing, RFC
// 815-style fragment reassembly, and next-protocol handoff (spec.md
// §4.3), grounded on the teacher's capture.IPv4Defragmenter
// (internal/pkg/capture/defrag.go) and original_source's ip4_context
// (include/cyberprobe/protocol/ip.h).
package ip4

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

// Dependencies bundles the next-layer collaborators ip4 dispatches a
// fully reassembled datagram to.
type Dependencies struct {
	TCPResolver *tcp.Resolver
	TCPConfig   tcp.Config
	UDPRoutes   *udp.Dispatcher
}

// Process decodes one IPv4 datagram, reassembling it first if it is a
// fragment, then dispatches the complete payload to TCP, UDP, ICMP, or
// emits UNRECOGNISED_IP_PROTOCOL.
func Process(parent *flowctx.Context, raw []byte, slice pdu.Slice, mgr event.Manager, gen event.IDGenerator, cfg Config, deps Dependencies) {
	var hdr layers.IPv4
	if err := hdr.DecodeFromBytes(raw, gopacket.NilDecodeFeedback); err != nil {
		return
	}
	if !checksumValid(raw, hdr.IHL) {
		logger.Debug("dropping ipv4 datagram with bad header checksum",
			"src", hdr.SrcIP.String(), "dst", hdr.DstIP.String())
		return
	}

	src := address.FromIP(hdr.SrcIP)
	dst := address.FromIP(hdr.DstIP)
	flow := address.NewFlow(address.LayerIP4, src, dst)

	ctx, _ := parent.GetOrCreateChild("ip4", flow, func() any { return newState(cfg) })
	ctx.Touch()

	payload := hdr.Payload
	moreFragments := hdr.Flags&layers.IPv4MoreFragments != 0
	fragOffset := int(hdr.FragOffset) * 8

	if moreFragments || fragOffset != 0 {
		var reassembled []byte
		ctx.WithSubtype(func(subtype any) {
			st := subtype.(*State)
			reassembled = st.insert(uint8(hdr.Protocol), hdr.Id, fragOffset, hdr.Payload, moreFragments, slice.Time)
		})
		if reassembled == nil {
			return // still waiting on more fragments
		}
		payload = reassembled
	}

	dispatch(ctx, flow, hdr.Protocol, payload, slice, mgr, gen, deps)
}

// checksumValid verifies the IPv4 header checksum over the header bytes
// as captured (before gopacket zeroes anything), per spec.md §4.3.
func checksumValid(raw []byte, ihl uint8) bool {
	headerLen := int(ihl) * 4
	if headerLen < 20 || len(raw) < headerLen {
		return false
	}
	var sum uint32
	for i := 0; i+1 < headerLen; i += 2 {
		sum += uint32(raw[i])<<8 | uint32(raw[i+1])
	}
	if headerLen%2 == 1 {
		sum += uint32(raw[headerLen-1]) << 8
	}
	for sum>>16 != 0 {
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	return sum == 0xFFFF
}

func dispatch(ctx *flowctx.Context, flow address.FlowAddress, proto layers.IPProtocol, payload []byte, slice pdu.Slice, mgr event.Manager, gen event.IDGenerator, deps Dependencies) {
	switch proto {
	case layers.IPProtocolTCP:
		dispatchTCP(ctx, flow, payload, slice, mgr, gen, deps)
	case layers.IPProtocolUDP:
		dispatchUDP(ctx, flow, payload, slice, mgr, gen, deps)
	case layers.IPProtocolICMPv4:
		dispatchICMP(flow, payload, slice, mgr, gen)
	case layers.IPProtocolESP, layers.IPProtocolGRE:
		// Encrypted (ESP) or potentially-tunneled (GRE) payloads are
		// recognized but not decoded further: no application semantics
		// are defined for them beyond header identification.
	default:
		logger.Debug("unrecognised IP protocol", "flow", flow.String(), "protocol", uint8(proto))
		mgr.Handle(event.New(gen, event.ActionUnrecognisedIPProtocol, slice.Time, slice.Device, slice.Network, slice.Direction, flow))
	}
}

func dispatchTCP(ctx *flowctx.Context, flow address.FlowAddress, payload []byte, slice pdu.Slice, mgr event.Manager, gen event.IDGenerator, deps Dependencies) {
	var seg layers.TCP
	if err := seg.DecodeFromBytes(payload, gopacket.NilDecodeFeedback); err != nil {
		return
	}

	src := address.FromPort(address.LayerTCP, uint16(seg.SrcPort))
	dst := address.FromPort(address.LayerTCP, uint16(seg.DstPort))
	f := address.NewFlow(address.LayerTCP, src, dst)

	flags := tcp.Flags{SYN: seg.SYN, ACK: seg.ACK, FIN: seg.FIN, RST: seg.RST}
	tcp.HandleSegment(ctx, f, flags, seg.Seq, seg.Ack, seg.Payload, slice, mgr, gen, deps.TCPResolver, deps.TCPConfig)
}

func dispatchUDP(ctx *flowctx.Context, flow address.FlowAddress, payload []byte, slice pdu.Slice, mgr event.Manager, gen event.IDGenerator, deps Dependencies) {
	var dgram layers.UDP
	if err := dgram.DecodeFromBytes(payload, gopacket.NilDecodeFeedback); err != nil {
		return
	}

	src := address.FromPort(address.LayerUDP, uint16(dgram.SrcPort))
	dst := address.FromPort(address.LayerUDP, uint16(dgram.DstPort))
	f := address.NewFlow(address.LayerUDP, src, dst)

	udp.Process(ctx, f, dgram.Payload, slice, mgr, gen, deps.UDPRoutes)
}

func dispatchICMP(flow address.FlowAddress, payload []byte, slice pdu.Slice, mgr event.Manager, gen event.IDGenerator) {
	var icmp layers.ICMPv4
	if err := icmp.DecodeFromBytes(payload, gopacket.NilDecodeFeedback); err != nil {
		return
	}
	mgr.Handle(event.New(gen, event.ActionICMP, slice.Time, slice.Device, slice.Network, slice.Direction, icmp))
}
