package ip6

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid-labs/wiresense/internal/pkg/event"
	"github.com/corvid-labs/wiresense/internal/pkg/flowctx"
	"github.com/corvid-labs/wiresense/internal/pkg/pdu"
	"github.com/corvid-labs/wiresense/internal/pkg/tcp"
	"github.com/corvid-labs/wiresense/internal/pkg/udp"
)

type collector struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *collector) Handle(e event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) byAction(a event.ActionType) []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []event.Event
	for _, e := range c.events {
		if e.Action == a {
			out = append(out, e)
		}
	}
	return out
}

func deps() Dependencies {
	return Dependencies{TCPResolver: tcp.NewResolver(), TCPConfig: tcp.DefaultConfig(), UDPRoutes: udp.NewDispatcher()}
}

func TestICMPv6NoExtensionHeaders(t *testing.T) {
	ipHdr := &layers.IPv6{
		Version:    6,
		NextHeader: layers.IPProtocolICMPv6,
		HopLimit:   64,
		SrcIP:      net.ParseIP("fe80::1"),
		DstIP:      net.ParseIP("fe80::2"),
	}
	icmp := &layers.ICMPv6{TypeCode: layers.CreateICMPv6TypeCode(layers.ICMPv6TypeEchoRequest, 0)}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ipHdr, icmp))

	root := flowctx.NewRoot("eth0", "lan")
	col := &collector{}
	gen := event.UUIDGenerator{}

	Process(root, buf.Bytes(), pdu.Slice{Time: time.Now(), Device: "eth0", Network: "lan"}, col, gen, DefaultConfig(), deps())

	assert.Len(t, col.byAction(event.ActionICMP), 1)
}

func TestFragmentExtensionHeaderReassembles(t *testing.T) {
	srcIP := net.ParseIP("fe80::1")
	dstIP := net.ParseIP("fe80::2")
	payload := []byte("0123456789abcdef")

	makeFrag := func(offset int, data []byte, more bool) []byte {
		ipHdr := &layers.IPv6{
			Version:    6,
			NextHeader: layers.IPProtocolIPv6Fragment,
			HopLimit:   64,
			SrcIP:      srcIP,
			DstIP:      dstIP,
		}
		frag := &layers.IPv6Fragment{
			NextHeader:     layers.IPProtocolICMPv6,
			FragmentOffset: uint16(offset / 8),
			MoreFragments:  more,
			Identification: 99,
		}
		buf := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: false}
		require.NoError(t, gopacket.SerializeLayers(buf, opts, ipHdr, frag, gopacket.Payload(data)))
		return buf.Bytes()
	}

	root := flowctx.NewRoot("eth0", "lan")
	col := &collector{}
	gen := event.UUIDGenerator{}
	slice := pdu.Slice{Time: time.Now(), Device: "eth0", Network: "lan"}

	// Deliver out of order: second half first, first half second.
	Process(root, makeFrag(8, payload[8:], false), slice, col, gen, DefaultConfig(), deps())
	assert.Empty(t, col.byAction(event.ActionICMP), "reassembly should still be incomplete")

	Process(root, makeFrag(0, payload[:8], true), slice, col, gen, DefaultConfig(), deps())

	icmps := col.byAction(event.ActionICMP)
	require.Len(t, icmps, 1)
}
