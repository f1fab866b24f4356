package smtp

import (
	"bytes"

	"github.com/corvid-labs/wiresense/internal/pkg/event"
	"github.com/corvid-labs/wiresense/internal/pkg/proto/tls"
	"github.com/corvid-labs/wiresense/internal/pkg/tcp"
)

// MatchBanner recognizes an SMTP server greeting ("220 ...").
func MatchBanner(buf []byte) bool {
	return bytes.HasPrefix(buf, []byte("220 ")) || bytes.HasPrefix(buf, []byte("220-"))
}

// MatchCommand recognizes a client EHLO/HELO opener, used to identify
// the client->server direction without waiting for the server banner.
func MatchCommand(buf []byte) bool {
	return bytes.HasPrefix(bytes.ToUpper(buf), []byte("EHLO ")) ||
		bytes.HasPrefix(bytes.ToUpper(buf), []byte("HELO "))
}

// ClientProcessor parses the client->server half of an SMTP connection.
func ClientProcessor(cfg Config, tlsCfg tls.Config) tcp.Processor {
	return processorFor(RoleClient, cfg, tlsCfg)
}

// ServerProcessor parses the server->client half of an SMTP connection.
func ServerProcessor(cfg Config, tlsCfg tls.Config) tcp.Processor {
	return processorFor(RoleServer, cfg, tlsCfg)
}

func processorFor(role Role, cfg Config, tlsCfg tls.Config) tcp.Processor {
	typeName := "smtp_client"
	if role == RoleServer {
		typeName = "smtp_server"
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
				// Already escalated on a prior call: these bytes are TLS
				// record data, not SMTP text.
				forwardToTLS = true
				return
			}
			events = st.Feed(h.Data, h.Slice.Time)
			// If this call's bytes just completed the STARTTLS exchange,
			// the TLS handshake itself starts with the *next* call's
			// bytes, not these.
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

// RegisterSignatures adds SMTP client and server signatures to a
// tcp.Resolver, ported to 25/587 for the fast-path lookup.
func RegisterSignatures(r *tcp.Resolver, cfg Config, tlsCfg tls.Config) {
	ports := []uint16{25, 587}

	r.Register(tcp.Signature{
		Name:      "SMTP_SERVER",
		Ports:     ports,
		Match:     MatchBanner,
		Processor: ServerProcessor(cfg, tlsCfg),
	})
	r.Register(tcp.Signature{
		Name:      "SMTP_CLIENT",
		Ports:     ports,
		Match:     MatchCommand,
		Processor: ClientProcessor(cfg, tlsCfg),
	})
}
