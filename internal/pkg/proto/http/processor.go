package http

import (
	"bytes"

	"github.com/corvid-labs/wiresense/internal/pkg/event"
	"github.com/corvid-labs/wiresense/internal/pkg/tcp"
)

var requestMethods = []string{
	"GET ", "POST ", "PUT ", "DELETE ", "HEAD ", "OPTIONS ", "PATCH ", "TRACE ", "CONNECT ",
}

var statusPrefixes = []string{
	"HTTP/1.0 ", "HTTP/1.1 ", "HTTP/2.0 ", "HTTP/2 ",
}

// MatchRequest is the tcp.Signature predicate for an HTTP request
// direction, grounded on the teacher's HTTPSignature.Detect method-prefix
// check (detector/signatures/application/http.go).
func MatchRequest(buf []byte) bool {
	for _, m := range requestMethods {
		if bytes.HasPrefix(buf, []byte(m)) {
			return true
		}
	}
	return false
}

// MatchResponse is the tcp.Signature predicate for an HTTP response
// direction, mirroring the teacher's status-line prefix check.
func MatchResponse(buf []byte) bool {
	for _, p := range statusPrefixes {
		if bytes.HasPrefix(buf, []byte(p)) {
			return true
		}
	}
	return false
}

// RequestProcessor returns a tcp.Processor that parses the client->server
// half of an HTTP connection.
func RequestProcessor(cfg Config) tcp.Processor {
	return processorFor(RoleRequest, cfg)
}

// ResponseProcessor returns a tcp.Processor that parses the
// server->client half of an HTTP connection.
func ResponseProcessor(cfg Config) tcp.Processor {
	return processorFor(RoleResponse, cfg)
}

func processorFor(role Role, cfg Config) tcp.Processor {
	typeName := "http_request"
	if role == RoleResponse {
		typeName = "http_response"
	}

	return func(h tcp.ProcessorHandle) {
		ctx, _ := h.Ctx.GetOrCreateChild(typeName, h.Flow, func() any { return newState(role, cfg) })
		ctx.Touch()

		var events []event.Event
		ctx.WithSubtype(func(subtype any) {
			st := subtype.(*State)
			events = st.feed(h.Data, h.Slice.Time)
		})

		for _, e := range events {
			e.ID = h.IDGen.NewID()
			e.Device = h.Slice.Device
			e.Network = h.Slice.Network
			e.Direction = h.Slice.Direction
			h.Manager.Handle(e)
		}
	}
}

// RegisterSignatures adds the HTTP request and response signatures to a
// tcp.Resolver, each ported 80/8080/8000/3000 for the fast-path lookup
// the teacher's port-based confidence adjustment favors, falling back to
// content matching for any other port.
func RegisterSignatures(r *tcp.Resolver, cfg Config) {
	ports := []uint16{80, 8080, 8000, 3000}

	r.Register(tcp.Signature{
		Name:      "HTTP_REQUEST",
		Ports:     ports,
		Match:     MatchRequest,
		Processor: RequestProcessor(cfg),
	})
	r.Register(tcp.Signature{
		Name:      "HTTP_RESPONSE",
		Ports:     ports,
		Match:     MatchResponse,
		Processor: ResponseProcessor(cfg),
	})
}
