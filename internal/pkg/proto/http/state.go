// Package http implements the resumable HTTP request/response parser,
// spec.md §4.8's "detailed exemplar": an incremental state machine that
// consumes arbitrary byte chunks (never a whole message at once) and
// emits HTTP_REQUEST/HTTP_RESPONSE events on transaction completion.
//
// Grounded on original_source's http_parser (include/cyberprobe/protocol/http.h):
// the same start-line/header/body sub-state shape, reset_transaction for
// keep-alive, and normalise_url. The char-at-a-time C++ state machine is
// expressed here as a line/length-oriented buffer scan, which is the
// idiomatic Go equivalent of the same incremental contract.
package http

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/corvid-labs/wiresense/internal/pkg/event"
)

type subState int

const (
	subStartLine subState = iota
	subHeaders
	subBody
)

type bodyMode int

const (
	bodyNone bodyMode = iota
	bodyCounting
	bodyChunked
	bodyStreaming
	bodyTerminalCRLF
)

type chunkPhase int

const (
	chunkPhaseSize chunkPhase = iota
	chunkPhaseData
	chunkPhaseDataCRLF
	chunkPhaseFinalCRLF
)

// State is the http context's Subtype: one independent parser per TCP
// direction.
type State struct {
	role Role
	cfg  Config

	sub subState
	buf []byte

	method, url, protocol string
	code, status          string
	headers               Headers
	lastHeaderKey         string

	mode             bodyMode
	contentRemaining int64
	body             []byte

	chunkPhase chunkPhase
	chunkLeft  int64

	streaming     bool
	streamStarted bool
}

func newState(role Role, cfg Config) *State {
	s := &State{role: role, cfg: cfg}
	s.resetTransaction()
	return s
}

func (s *State) resetTransaction() {
	s.sub = subStartLine
	s.method, s.url, s.protocol = "", "", ""
	s.code, s.status = "", ""
	s.headers = make(Headers)
	s.lastHeaderKey = ""
	s.mode = bodyNone
	s.contentRemaining = 0
	s.body = nil
	s.chunkPhase = chunkPhaseSize
	s.chunkLeft = 0
	s.streaming = false
	s.streamStarted = false
}

var alreadyNormalised = regexp.MustCompile(`^[A-Za-z]+:`)

// normaliseURL implements spec.md §4.8's URL normalization rule.
func normaliseURL(host, url string) string {
	if alreadyNormalised.MatchString(url) {
		return url
	}
	return "http://" + host + url
}

// feed appends data to the internal buffer and drives the state machine
// as far as it will go, returning any events produced. Called with the
// owning context's subtype lock held; callers must emit the returned
// events only after releasing it (spec.md §9 "Scoped-resource
// acquisition").
func (s *State) feed(data []byte, t time.Time) []event.Event {
	s.buf = append(s.buf, data...)

	var events []event.Event
	for {
		ev, progressed := s.step(t)
		if ev != nil {
			events = append(events, *ev)
		}
		if !progressed {
			break
		}
	}
	return events
}

func (s *State) step(t time.Time) (*event.Event, bool) {
	switch s.sub {
	case subStartLine:
		return s.stepStartLine()
	case subHeaders:
		return s.stepHeaders()
	case subBody:
		return s.stepBody(t)
	}
	return nil, false
}

func (s *State) stepStartLine() (*event.Event, bool) {
	idx := bytes.Index(s.buf, []byte("\r\n"))
	if idx < 0 {
		return nil, false
	}
	line := string(s.buf[:idx])
	s.buf = s.buf[idx+2:]

	parts := strings.SplitN(line, " ", 3)
	if s.role == RoleRequest {
		if len(parts) > 0 {
			s.method = parts[0]
		}
		if len(parts) > 1 {
			s.url = parts[1]
		}
		if len(parts) > 2 {
			s.protocol = parts[2]
		}
	} else {
		if len(parts) > 0 {
			s.protocol = parts[0]
		}
		if len(parts) > 1 {
			s.code = parts[1]
		}
		if len(parts) > 2 {
			s.status = parts[2]
		}
	}

	s.sub = subHeaders
	return nil, true
}

func (s *State) stepHeaders() (*event.Event, bool) {
	idx := bytes.Index(s.buf, []byte("\r\n"))
	if idx < 0 {
		return nil, false
	}

	if idx == 0 {
		s.buf = s.buf[2:]
		s.beginBody()
		return nil, true
	}

	line := s.buf[:idx]
	s.buf = s.buf[idx+2:]

	if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
		s.headers.appendContinuation(s.lastHeaderKey, strings.TrimSpace(string(line)))
		return nil, true
	}

	colon := bytes.IndexByte(line, ':')
	if colon < 0 {
		return nil, true // malformed header line, skip
	}
	key := strings.TrimSpace(string(line[:colon]))
	value := strings.TrimSpace(string(line[colon+1:]))
	s.headers.set(key, value)
	s.lastHeaderKey = key

	return nil, true
}

// bodyBearingMethods are the request methods that may carry an entity
// body with no declared length (original_source's IN_BODY/IN_BODY_AFTER_CR
// "scanning for CRLF end" state, used when neither Content-Length nor
// chunked framing is present).
var bodyBearingMethods = map[string]bool{"POST": true, "PUT": true, "PATCH": true}

func (s *State) beginBody() {
	if s.role == RoleRequest {
		if cl, ok := s.contentLength(); ok && cl > 0 {
			s.mode = bodyCounting
			s.contentRemaining = cl
		} else if s.isChunked() {
			s.mode = bodyChunked
		} else if bodyBearingMethods[strings.ToUpper(s.method)] {
			s.mode = bodyTerminalCRLF
		} else {
			// No declared body: GET/HEAD/DELETE and friends carry none.
			s.mode = bodyCounting
			s.contentRemaining = 0
		}
		return
	}

	if cl, ok := s.contentLength(); ok {
		s.mode = bodyCounting
		s.contentRemaining = cl
		return
	}
	if s.isChunked() {
		s.mode = bodyChunked
		return
	}
	s.mode = bodyStreaming
	s.streaming = true
}

func (s *State) contentLength() (int64, bool) {
	v, ok := s.headers.Get("Content-Length")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (s *State) isChunked() bool {
	v, ok := s.headers.Get("Transfer-Encoding")
	return ok && strings.Contains(strings.ToLower(v), "chunked")
}

func (s *State) stepBody(t time.Time) (*event.Event, bool) {
	switch s.mode {
	case bodyCounting:
		return s.stepCounting(t)
	case bodyChunked:
		return s.stepChunked(t)
	case bodyStreaming:
		return s.stepStreaming(t)
	case bodyTerminalCRLF:
		return s.stepTerminalCRLF(t)
	}
	return nil, false
}

func (s *State) stepCounting(t time.Time) (*event.Event, bool) {
	if s.contentRemaining == 0 {
		return s.complete(t), true
	}
	if len(s.buf) == 0 {
		return nil, false
	}
	take := int64(len(s.buf))
	if take > s.contentRemaining {
		take = s.contentRemaining
	}
	s.appendBody(s.buf[:take])
	s.buf = s.buf[take:]
	s.contentRemaining -= take
	if s.contentRemaining == 0 {
		return s.complete(t), true
	}
	return nil, true
}

func (s *State) stepChunked(t time.Time) (*event.Event, bool) {
	switch s.chunkPhase {
	case chunkPhaseSize:
		idx := bytes.Index(s.buf, []byte("\r\n"))
		if idx < 0 {
			return nil, false
		}
		line := strings.TrimSpace(string(s.buf[:idx]))
		s.buf = s.buf[idx+2:]
		if semi := strings.IndexByte(line, ';'); semi >= 0 {
			line = line[:semi]
		}
		n, err := strconv.ParseInt(line, 16, 64)
		if err != nil {
			n = 0
		}
		if n == 0 {
			s.chunkPhase = chunkPhaseFinalCRLF
			return nil, true
		}
		s.chunkLeft = n
		s.chunkPhase = chunkPhaseData
		return nil, true

	case chunkPhaseData:
		if len(s.buf) == 0 {
			return nil, false
		}
		take := int64(len(s.buf))
		if take > s.chunkLeft {
			take = s.chunkLeft
		}
		s.appendBody(s.buf[:take])
		s.buf = s.buf[take:]
		s.chunkLeft -= take
		if s.chunkLeft == 0 {
			s.chunkPhase = chunkPhaseDataCRLF
		}
		return nil, true

	case chunkPhaseDataCRLF:
		if len(s.buf) < 2 {
			return nil, false
		}
		s.buf = s.buf[2:] // discard trailing CRLF after chunk data
		s.chunkPhase = chunkPhaseSize
		return nil, true

	case chunkPhaseFinalCRLF:
		idx := bytes.Index(s.buf, []byte("\r\n"))
		if idx < 0 {
			return nil, false
		}
		s.buf = s.buf[idx+2:] // discard trailer/blank line
		return s.complete(t), true
	}
	return nil, false
}

func (s *State) stepStreaming(t time.Time) (*event.Event, bool) {
	// Streaming responses are announced once, immediately; every byte
	// that arrives afterward is forwarded as its own HTTP_RESPONSE_CHUNK
	// rather than buffered into a single body (spec.md §4.8 "stream body
	// bytes as they arrive without buffering the whole body"). There is
	// no declared end, so this context never resets.
	if !s.streamStarted {
		s.streamStarted = true
		return s.complete(t), true
	}
	if len(s.buf) == 0 {
		return nil, false
	}
	chunk := s.buf
	s.buf = nil
	return &event.Event{
		Action:  event.ActionHTTPResponseChunk,
		Time:    t,
		Payload: ChunkPayload{Data: chunk},
	}, false
}

func (s *State) stepTerminalCRLF(t time.Time) (*event.Event, bool) {
	idx := bytes.Index(s.buf, []byte("\r\n\r\n"))
	if idx < 0 {
		return nil, false
	}
	s.appendBody(s.buf[:idx])
	s.buf = s.buf[idx+4:]
	return s.complete(t), true
}

func (s *State) appendBody(b []byte) {
	if s.cfg.MaxBodyBytes > 0 && len(s.body) >= s.cfg.MaxBodyBytes {
		return
	}
	s.body = append(s.body, b...)
}

// complete emits the transaction event and resets for the next one
// (keep-alive), except for a streaming response which has no further
// transaction boundary on this connection.
func (s *State) complete(t time.Time) *event.Event {
	var ev event.Event
	if s.role == RoleRequest {
		host, _ := s.headers.Get("Host")
		ev = event.Event{
			Action: event.ActionHTTPRequest,
			Time:   t,
			Payload: RequestPayload{
				Method:   s.method,
				URL:      normaliseURL(host, s.url),
				Protocol: s.protocol,
				Headers:  s.headers,
				Body:     s.body,
			},
		}
	} else {
		ev = event.Event{
			Action: event.ActionHTTPResponse,
			Time:   t,
			Payload: ResponsePayload{
				Protocol:  s.protocol,
				Code:      s.code,
				Status:    s.status,
				Headers:   s.headers,
				Body:      s.body,
				Streaming: s.streaming,
			},
		}
	}

	if s.streaming {
		return &ev
	}
	s.resetTransaction()
	return &ev
}
