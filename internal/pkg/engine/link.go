package engine

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/corvid-labs/wiresense/internal/pkg/event"
	"github.com/corvid-labs/wiresense/internal/pkg/flowctx"
	"github.com/corvid-labs/wiresense/internal/pkg/ip4"
	"github.com/corvid-labs/wiresense/internal/pkg/ip6"
	"github.com/corvid-labs/wiresense/internal/pkg/pdu"
)

// dispatchLink decodes one Ethernet frame and routes its payload to the
// IPv4 or IPv6 decoder by EtherType (teacher idiom:
// gopacket.NewPacketSource(handle, handle.LinkType()) in capture.go, one
// layer down since here the whole frame arrives as a byte slice rather
// than being read off a pcap handle). ARP and any other EtherType
// is recognized but silently dropped -- no event is defined for them, the
// same treatment ip4/ip6 give ESP/GRE.
func (e *Engine) dispatchLink(parent *flowctx.Context, raw []byte, slice pdu.Slice, mgr event.Manager, gen event.IDGenerator) {
	var eth layers.Ethernet
	if err := eth.DecodeFromBytes(raw, gopacket.NilDecodeFeedback); err != nil {
		return
	}

	payload := eth.LayerPayload()

	switch eth.EthernetType {
	case layers.EthernetTypeIPv4:
		ip4.Process(parent, payload, slice, mgr, gen, e.cfg.IP4, e.ip4Deps)
	case layers.EthernetTypeIPv6:
		ip6.Process(parent, payload, slice, mgr, gen, e.cfg.IP6, e.ip6Deps)
	default:
		// ARP, LLC, VLAN tags, etc.: no event defined, nothing to decode.
	}
}
