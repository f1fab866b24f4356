package address

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddressEqual(t *testing.T) {
	a := FromIP(net.ParseIP("10.0.0.1"))
	b := FromIP(net.ParseIP("10.0.0.1"))
	c := FromIP(net.ParseIP("10.0.0.2"))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestAddressFromPort(t *testing.T) {
	p := FromPort(LayerTCP, 8080)
	assert.Equal(t, "8080", p.String())
}

func TestFlowAddressReverse(t *testing.T) {
	src := FromIP(net.ParseIP("10.0.0.1"))
	dst := FromIP(net.ParseIP("10.0.0.2"))

	f := NewFlow(LayerIP4, src, dst)
	r := f.Reverse()

	assert.True(t, f.Src.Equal(r.Dst))
	assert.True(t, f.Dst.Equal(r.Src))
	assert.NotEqual(t, f.Key(), r.Key())
}

func TestAddressCompareOrdering(t *testing.T) {
	a := FromIP(net.ParseIP("10.0.0.1"))
	b := FromIP(net.ParseIP("10.0.0.2"))

	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
}
