package ftp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientCommandsParsedAndPasswordRedacted(t *testing.T) {
	s := newState(RoleClient, DefaultConfig())
	events := s.Feed([]byte("USER alice\r\nPASS hunter2\r\nPWD\r\n"), time.Now())

	require.Len(t, events, 3)
	first := events[0].Payload.(CommandPayload)
	assert.Equal(t, "USER", first.Command)
	assert.Equal(t, "alice", first.Args)
	second := events[1].Payload.(CommandPayload)
	assert.Equal(t, "PASS", second.Command)
	assert.Equal(t, "***", second.Args)
}

func TestServerResponseParsed(t *testing.T) {
	s := newState(RoleServer, DefaultConfig())
	events := s.Feed([]byte("220 ftp.example ready\r\n230 Login successful\r\n"), time.Now())

	require.Len(t, events, 2)
	first := events[0].Payload.(ResponsePayload)
	assert.Equal(t, 220, first.Code)
	assert.Equal(t, "ftp.example ready", first.Text)
	assert.False(t, first.Multiline)
}

func TestMultilineResponseMarked(t *testing.T) {
	s := newState(RoleServer, DefaultConfig())
	events := s.Feed([]byte("211-Extensions supported\r\n"), time.Now())

	require.Len(t, events, 1)
	assert.True(t, events[0].Payload.(ResponsePayload).Multiline)
}

func TestServerAuthTLSReplyEscalates(t *testing.T) {
	server := newState(RoleServer, DefaultConfig())
	events := server.Feed([]byte("234 AUTH TLS OK\r\n"), time.Now())

	require.Len(t, events, 1)
	assert.True(t, server.EscalatedToTLS)
}

func TestClientEscalatesWhenTLSRecordFollowsAuthTLS(t *testing.T) {
	client := newState(RoleClient, DefaultConfig())
	events := client.Feed([]byte("AUTH TLS\r\n"), time.Now())
	require.Len(t, events, 1)
	assert.False(t, client.EscalatedToTLS)

	tlsRecord := []byte{0x16, 0x03, 0x01, 0x00, 0x05, 1, 2, 3, 4, 5}
	events = client.Feed(tlsRecord, time.Now())
	assert.Empty(t, events)
	assert.True(t, client.EscalatedToTLS)
}

func TestMatchBannerAndCommandPredicates(t *testing.T) {
	assert.True(t, MatchBanner([]byte("220 ready\r\n")))
	assert.True(t, MatchCommand([]byte("RETR file.txt\r\n")))
	assert.False(t, MatchCommand([]byte("banana\r\n")))
}
