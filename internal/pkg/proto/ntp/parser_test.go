package ntp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

func buildNTPPacket(t *testing.T, stratum uint8) []byte {
	t.Helper()
	msg := &layers.NTP{
		LeapIndicator: layers.NTPLeapIndicator(0),
		Version:       4,
		Mode:          layers.NTPMode(4), // server
		Stratum:       layers.NTPStratum(stratum),
	}
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, msg))
	return buf.Bytes()
}

func TestDecodeNTPMessage(t *testing.T) {
	p, ok := decode(buildNTPPacket(t, 2))
	require.True(t, ok)
	assert.Equal(t, uint8(4), p.Version)
	assert.Equal(t, "server", p.Mode)
	assert.Equal(t, uint8(2), p.Stratum)
}

func TestDecodeRejectsShortBuffer(t *testing.T) {
	_, ok := decode([]byte{0x01, 0x02})
	assert.False(t, ok)
}
