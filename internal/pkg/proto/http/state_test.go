package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid-labs/wiresense/internal/pkg/event"
)

func byAction(events []event.Event, a event.ActionType) []event.Event {
	var out []event.Event
	for _, e := range events {
		if e.Action == a {
			out = append(out, e)
		}
	}
	return out
}

// spec.md §8 property 7: URL normalization.
func TestURLNormalizationRelativePath(t *testing.T) {
	s := newState(RoleRequest, DefaultConfig())
	events := s.feed([]byte("GET /path HTTP/1.1\r\nHost: example.com\r\n\r\n"), time.Now())

	require.Len(t, events, 1)
	req := events[0].Payload.(RequestPayload)
	assert.Equal(t, "http://example.com/path", req.URL)
}

func TestURLNormalizationAlreadyAbsolute(t *testing.T) {
	s := newState(RoleRequest, DefaultConfig())
	events := s.feed([]byte("GET http://x/y HTTP/1.1\r\nHost: x\r\n\r\n"), time.Now())

	require.Len(t, events, 1)
	req := events[0].Payload.(RequestPayload)
	assert.Equal(t, "http://x/y", req.URL)
}

// spec.md §8 E4 and property 5: chunked body decoding.
func TestChunkedResponseBody(t *testing.T) {
	s := newState(RoleResponse, DefaultConfig())
	raw := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n"

	events := s.feed([]byte(raw), time.Now())

	require.Len(t, events, 1)
	resp := events[0].Payload.(ResponsePayload)
	assert.Equal(t, "hello world", string(resp.Body))
	assert.Equal(t, "200", resp.Code)
}

// Same chunked body delivered one byte at a time, to prove resumability
// across arbitrary boundaries (spec.md §4.8's incremental contract).
func TestChunkedResponseBodyByteAtATime(t *testing.T) {
	s := newState(RoleResponse, DefaultConfig())
	raw := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n"

	var all []event.Event
	for i := 0; i < len(raw); i++ {
		all = append(all, s.feed([]byte{raw[i]}, time.Now())...)
	}

	require.Len(t, all, 1)
	resp := all[0].Payload.(ResponsePayload)
	assert.Equal(t, "hello world", string(resp.Body))
}

// spec.md §8 property 6: HTTP keep-alive.
func TestKeepAliveTwoTransactions(t *testing.T) {
	reqState := newState(RoleRequest, DefaultConfig())
	reqRaw := "GET /a HTTP/1.1\r\nHost: h\r\n\r\n" + "GET /b HTTP/1.1\r\nHost: h2\r\n\r\n"
	reqEvents := reqState.feed([]byte(reqRaw), time.Now())

	require.Len(t, reqEvents, 2)
	first := reqEvents[0].Payload.(RequestPayload)
	second := reqEvents[1].Payload.(RequestPayload)
	assert.Equal(t, "http://h/a", first.URL)
	assert.Equal(t, "http://h2/b", second.URL)

	respState := newState(RoleResponse, DefaultConfig())
	respRaw := "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nhi" +
		"HTTP/1.1 404 Not Found\r\nContent-Length: 0\r\n\r\n"
	respEvents := respState.feed([]byte(respRaw), time.Now())

	require.Len(t, respEvents, 2)
	firstResp := respEvents[0].Payload.(ResponsePayload)
	secondResp := respEvents[1].Payload.(ResponsePayload)
	assert.Equal(t, "hi", string(firstResp.Body))
	assert.Equal(t, "404", secondResp.Code)
}

// spec.md §8 E1: full request/response transaction.
func TestRequestResponseTransaction(t *testing.T) {
	reqState := newState(RoleRequest, DefaultConfig())
	reqEvents := reqState.feed([]byte("GET /a HTTP/1.1\r\nHost: h\r\n\r\n"), time.Now())
	require.Len(t, reqEvents, 1)
	req := reqEvents[0].Payload.(RequestPayload)
	assert.Equal(t, "http://h/a", req.URL)

	respState := newState(RoleResponse, DefaultConfig())
	respEvents := respState.feed([]byte("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nhi"), time.Now())
	require.Len(t, respEvents, 1)
	resp := respEvents[0].Payload.(ResponsePayload)
	assert.Equal(t, "200", resp.Code)
	assert.Equal(t, "hi", string(resp.Body))
}

// Header continuation-line folding (spec.md §4.8).
func TestHeaderContinuationFolding(t *testing.T) {
	s := newState(RoleResponse, DefaultConfig())
	raw := "HTTP/1.1 200 OK\r\nX-Long: first\r\n second\r\nContent-Length: 0\r\n\r\n"
	events := s.feed([]byte(raw), time.Now())

	require.Len(t, events, 1)
	resp := events[0].Payload.(ResponsePayload)
	v, ok := resp.Headers.Get("X-Long")
	require.True(t, ok)
	assert.Equal(t, "first second", v)
}

// Streaming detection: no Content-Length, no chunked encoding.
func TestStreamingResponseEmitsImmediately(t *testing.T) {
	s := newState(RoleResponse, DefaultConfig())
	events := s.feed([]byte("HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n\r\n"), time.Now())

	require.Len(t, events, 1)
	resp := events[0].Payload.(ResponsePayload)
	assert.True(t, resp.Streaming)
}

// Once a streaming response's header has been announced, further bytes
// arrive as HTTP_RESPONSE_CHUNK events rather than being dropped
// (spec.md §4.8 "stream body bytes as they arrive").
func TestStreamingResponseForwardsBodyChunks(t *testing.T) {
	s := newState(RoleResponse, DefaultConfig())

	events := s.feed([]byte("HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n\r\n"), time.Now())
	require.Len(t, events, 1)
	resp := events[0].Payload.(ResponsePayload)
	assert.True(t, resp.Streaming)
	assert.Empty(t, resp.Body)

	events = s.feed([]byte("first chunk"), time.Now())
	require.Len(t, events, 1)
	chunk := events[0].Payload.(ChunkPayload)
	assert.Equal(t, event.ActionHTTPResponseChunk, events[0].Action)
	assert.Equal(t, "first chunk", string(chunk.Data))

	events = s.feed([]byte("second chunk"), time.Now())
	require.Len(t, events, 1)
	chunk = events[0].Payload.(ChunkPayload)
	assert.Equal(t, "second chunk", string(chunk.Data))
}

// A POST with no Content-Length and no chunked encoding falls back to
// scanning for the terminating double CRLF (spec.md §4.8's "terminal
// CRLF-seeking" mode).
func TestPostWithoutLengthScansForTerminalCRLF(t *testing.T) {
	s := newState(RoleRequest, DefaultConfig())
	raw := "POST /submit HTTP/1.1\r\nHost: h\r\n\r\nname=bob\r\n\r\nGET /next HTTP/1.1\r\nHost: h\r\n\r\n"

	events := s.feed([]byte(raw), time.Now())

	require.Len(t, events, 2)
	first := events[0].Payload.(RequestPayload)
	assert.Equal(t, "POST", first.Method)
	assert.Equal(t, "name=bob", string(first.Body))

	second := events[1].Payload.(RequestPayload)
	assert.Equal(t, "GET", second.Method)
}

func TestMatchRequestAndResponsePredicates(t *testing.T) {
	assert.True(t, MatchRequest([]byte("GET / HTTP/1.1\r\n")))
	assert.True(t, MatchResponse([]byte("HTTP/1.1 200 OK\r\n")))
	assert.False(t, MatchRequest([]byte("HTTP/1.1 200 OK\r\n")))
	assert.False(t, MatchResponse([]byte("GET / HTTP/1.1\r\n")))
}
