package dns

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(msg []byte) []byte {
	var prefix [2]byte
	binary.BigEndian.PutUint16(prefix[:], uint16(len(msg)))
	return append(prefix[:], msg...)
}

func TestStreamStateParsesOneMessage(t *testing.T) {
	msg := buildQuery(t, "example.com")
	s := newStreamState(DefaultConfig())

	events := s.feed(frame(msg), time.Now())
	require.Len(t, events, 1)
	assert.Equal(t, "DNS_QUERY", string(events[0].Action))
}

func TestStreamStateHandlesSplitLengthPrefix(t *testing.T) {
	msg := buildQuery(t, "example.com")
	framed := frame(msg)
	s := newStreamState(DefaultConfig())

	events := s.feed(framed[:1], time.Now())
	assert.Empty(t, events)

	events = s.feed(framed[1:], time.Now())
	require.Len(t, events, 1)
}

func TestStreamStateParsesTwoMessagesBackToBack(t *testing.T) {
	q1 := frame(buildQuery(t, "a.example.com"))
	q2 := frame(buildQuery(t, "b.example.com"))
	s := newStreamState(DefaultConfig())

	events := s.feed(append(q1, q2...), time.Now())
	require.Len(t, events, 2)
}
