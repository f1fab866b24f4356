// Package rtp implements stateless per-datagram RTP header decoding
// (spec.md §4.6). The teacher's internal/pkg/voip/rtp.go only tracks
// SDP-advertised ports for call correlation and never decodes the RTP
// header itself, so the header decode is grounded directly on
// gopacket/layers.RTP, which the domain stack already carries for
// DNS/NTP decoding.
package rtp

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Sniff reports whether buf looks like an RTP packet: version 2 in the
// top two bits of the first byte, the shape the teacher's port-based
// tracker assumes but never itself validates.
func Sniff(buf []byte) bool {
	return len(buf) >= 12 && buf[0]&0xC0 == 0x80
}

func decode(buf []byte) (DataPayload, bool) {
	var pkt layers.RTP
	if err := pkt.DecodeFromBytes(buf, gopacket.NilDecodeFeedback); err != nil {
		return DataPayload{}, false
	}
	return DataPayload{
		Version:        pkt.Version,
		PayloadType:    pkt.PayloadType,
		Marker:         pkt.Marker,
		SequenceNumber: pkt.SequenceNumber,
		Timestamp:      pkt.Timestamp,
		SSRC:           pkt.SSRC,
		PayloadLength:  len(pkt.Payload),
	}, true
}
