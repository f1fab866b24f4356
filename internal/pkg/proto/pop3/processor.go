package pop3

import (
	"bytes"

	"github.com/corvid-labs/wiresense/internal/pkg/event"
	"github.com/corvid-labs/wiresense/internal/pkg/proto/tls"
	"github.com/corvid-labs/wiresense/internal/pkg/tcp"
)

// MatchBanner recognizes a POP3 server greeting.
func MatchBanner(buf []byte) bool {
	return bytes.HasPrefix(buf, []byte("+OK"))
}

// MatchCommand recognizes a POP3 client command line.
func MatchCommand(buf []byte) bool {
	upper := bytes.ToUpper(buf)
	for _, verb := range []string{"USER ", "PASS ", "APOP ", "STAT", "LIST", "UIDL", "RETR ", "DELE ", "TOP ", "RSET", "NOOP", "QUIT", "CAPA", "STLS", "AUTH"} {
		if bytes.HasPrefix(upper, []byte(verb)) {
			return true
		}
	}
	return false
}

// ClientProcessor parses the client->server direction.
func ClientProcessor(cfg Config, tlsCfg tls.Config) tcp.Processor {
	return processorFor(RoleClient, cfg, tlsCfg)
}

// ServerProcessor parses the server->client direction.
func ServerProcessor(cfg Config, tlsCfg tls.Config) tcp.Processor {
	return processorFor(RoleServer, cfg, tlsCfg)
}

func processorFor(role Role, cfg Config, tlsCfg tls.Config) tcp.Processor {
	typeName := "pop3_client"
	if role == RoleServer {
		typeName = "pop3_server"
	}
	tlsProcessor := tls.Processor(tlsCfg)

	return func(h tcp.ProcessorHandle) {
		ctx, _ := h.Ctx.GetOrCreateChild(typeName, h.Flow, func() any { return newState(role, cfg) })
		ctx.Touch()

		var events []event.Event
		forwardToTLS := false
		ctx.WithSubtype(func(subtype any) {
			st := subtype.(*State)
			if st.EscalatedToTLS {
				forwardToTLS = true
				return
			}
			events = st.Feed(h.Data, h.Slice.Time)
		})

		for _, e := range events {
			e.ID = h.IDGen.NewID()
			e.Device = h.Slice.Device
			e.Network = h.Slice.Network
			e.Direction = h.Slice.Direction
			h.Manager.Handle(e)
		}

		if forwardToTLS {
			tlsProcessor(h)
		}
	}
}

// RegisterSignatures registers POP3 client and server signatures on the
// standard (110) and implicit-TLS (995) ports.
func RegisterSignatures(r *tcp.Resolver, cfg Config, tlsCfg tls.Config) {
	ports := []uint16{110, 995}
	r.Register(tcp.Signature{Name: "POP3_SERVER", Ports: ports, Match: MatchBanner, Processor: ServerProcessor(cfg, tlsCfg)})
	r.Register(tcp.Signature{Name: "POP3_CLIENT", Ports: ports, Match: MatchCommand, Processor: ClientProcessor(cfg, tlsCfg)})
}
