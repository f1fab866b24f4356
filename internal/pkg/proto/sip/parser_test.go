package sip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInviteRequest(t *testing.T) {
	msg := "INVITE sip:bob@example.com SIP/2.0\r\n" +
		"Via: SIP/2.0/UDP pc.example.com\r\n" +
		"Call-ID: abc123@pc.example.com\r\n" +
		"Content-Length: 0\r\n\r\n"

	req, resp, ok := parse([]byte(msg))
	require.True(t, ok)
	require.NotNil(t, req)
	assert.Nil(t, resp)
	assert.Equal(t, "INVITE", req.Method)
	assert.Equal(t, "sip:bob@example.com", req.URI)
	assert.Equal(t, "abc123@pc.example.com", req.CallID)
}

func TestParseResponseWithReason(t *testing.T) {
	msg := "SIP/2.0 200 OK\r\nCall-ID: abc123@pc.example.com\r\n\r\n"

	req, resp, ok := parse([]byte(msg))
	require.True(t, ok)
	assert.Nil(t, req)
	require.NotNil(t, resp)
	assert.Equal(t, 200, resp.Code)
	assert.Equal(t, "OK", resp.Reason)
	assert.Equal(t, "abc123@pc.example.com", resp.CallID)
}

func TestCompactHeaderNormalization(t *testing.T) {
	msg := "BYE sip:bob@example.com SIP/2.0\r\ni: xyz789\r\n\r\n"

	req, _, ok := parse([]byte(msg))
	require.True(t, ok)
	assert.Equal(t, "xyz789", req.CallID)
}

func TestNonSIPPayloadIsRejected(t *testing.T) {
	_, _, ok := parse([]byte("not a sip message\r\n\r\n"))
	assert.False(t, ok)
}
