package tcp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolverPortHintFastPath(t *testing.T) {
	r := NewResolver()
	called := false
	r.Register(Signature{
		Name:  "HTTP",
		Ports: []uint16{80},
		Match: func(buf []byte) bool { called = true; return bytes.HasPrefix(buf, []byte("GET ")) },
	})

	sig, ok := r.Resolve(80, 54321, []byte("GET / HTTP/1.1\r\n"))
	assert.True(t, ok)
	assert.True(t, called)
	assert.Equal(t, "HTTP", sig.Name)
}

func TestResolverFallsBackToPrefixScan(t *testing.T) {
	r := NewResolver()
	r.Register(Signature{
		Name:  "SMTP",
		Ports: []uint16{25},
		Match: func(buf []byte) bool { return bytes.HasPrefix(buf, []byte("220 ")) },
	})

	// Non-standard port, banner still recognized.
	sig, ok := r.Resolve(2525, 40000, []byte("220 mail.example.com ESMTP\r\n"))
	assert.True(t, ok)
	assert.Equal(t, "SMTP", sig.Name)
}

func TestResolverNoMatch(t *testing.T) {
	r := NewResolver()
	r.Register(Signature{Name: "HTTP", Ports: []uint16{80}, Match: func([]byte) bool { return false }})

	_, ok := r.Resolve(80, 1, []byte("garbage"))
	assert.False(t, ok)
}
