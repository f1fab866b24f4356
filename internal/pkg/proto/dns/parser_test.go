package dns

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

func buildQuery(t *testing.T, name string) []byte {
	t.Helper()
	msg := layers.DNS{
		ID: 0x1234,
		QR: false,
		Questions: []layers.DNSQuestion{
			{Name: []byte(name), Type: layers.DNSTypeA, Class: layers.DNSClassIN},
		},
	}
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, &msg))
	return buf.Bytes()
}

func buildResponse(t *testing.T, name string, ip net.IP) []byte {
	t.Helper()
	msg := layers.DNS{
		ID: 0x1234,
		QR: true,
		Questions: []layers.DNSQuestion{
			{Name: []byte(name), Type: layers.DNSTypeA, Class: layers.DNSClassIN},
		},
		Answers: []layers.DNSResourceRecord{
			{Name: []byte(name), Type: layers.DNSTypeA, Class: layers.DNSClassIN, TTL: 300, IP: ip},
		},
	}
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, &msg))
	return buf.Bytes()
}

func TestDecodeQuery(t *testing.T) {
	q, r, ok := decode(buildQuery(t, "example.com"))
	require.True(t, ok)
	assert.Nil(t, r)
	require.NotNil(t, q)
	assert.Equal(t, uint16(0x1234), q.ID)
	require.Len(t, q.Questions, 1)
	assert.Equal(t, "example.com", q.Questions[0].Name)
}

func TestDecodeResponse(t *testing.T) {
	q, r, ok := decode(buildResponse(t, "example.com", net.IPv4(93, 184, 216, 34)))
	require.True(t, ok)
	assert.Nil(t, q)
	require.NotNil(t, r)
	require.Len(t, r.Answers, 1)
	assert.Equal(t, "93.184.216.34", r.Answers[0].Data)
	assert.Equal(t, uint32(300), r.Answers[0].TTL)
}
