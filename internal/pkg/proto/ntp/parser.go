// Package ntp implements stateless per-datagram NTP message decoding
// (spec.md §4.6), built on gopacket/layers.NTP rather than a hand-rolled
// wire parser, consistent with the domain stack's reuse of gopacket for
// every other wire format.
package ntp

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

var modeNames = map[uint8]string{
	1: "symmetric-active",
	2: "symmetric-passive",
	3: "client",
	4: "server",
	5: "broadcast",
}

func decode(buf []byte) (MessagePayload, bool) {
	var msg layers.NTP
	if err := msg.DecodeFromBytes(buf, gopacket.NilDecodeFeedback); err != nil {
		return MessagePayload{}, false
	}

	mode, ok := modeNames[uint8(msg.Mode)]
	if !ok {
		mode = "reserved"
	}

	return MessagePayload{
		Version:           uint8(msg.Version),
		Mode:              mode,
		Stratum:           uint8(msg.Stratum),
		ReferenceID:       uint32(msg.ReferenceID),
		OriginTimestamp:   uint64(msg.OriginTimestamp),
		ReceiveTimestamp:  uint64(msg.ReceiveTimestamp),
		TransmitTimestamp: uint64(msg.TransmitTimestamp),
	}, true
}
