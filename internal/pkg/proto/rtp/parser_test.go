package rtp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

func buildRTPPacket(t *testing.T, seq uint16, ssrc uint32, payload []byte) []byte {
	t.Helper()
	rtp := &layers.RTP{
		Version:        2,
		PayloadType:    0,
		SequenceNumber: seq,
		Timestamp:      12345,
		SSRC:           ssrc,
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, rtp, gopacket.Payload(payload)))
	return buf.Bytes()
}

func TestDecodeRTPHeader(t *testing.T) {
	pkt := buildRTPPacket(t, 42, 0xdeadbeef, []byte("audio-bytes"))

	p, ok := decode(pkt)
	require.True(t, ok)
	assert.Equal(t, uint8(2), p.Version)
	assert.Equal(t, uint16(42), p.SequenceNumber)
	assert.Equal(t, uint32(0xdeadbeef), p.SSRC)
	assert.Equal(t, len("audio-bytes"), p.PayloadLength)
}

func TestSniffRecognizesVersion2(t *testing.T) {
	pkt := buildRTPPacket(t, 1, 1, []byte("x"))
	assert.True(t, Sniff(pkt))
	assert.False(t, Sniff([]byte{0x00, 0x01}))
}
