package imap

import (
	"bytes"

	"github.com/corvid-labs/wiresense/internal/pkg/event"
	"github.com/corvid-labs/wiresense/internal/pkg/proto/tls"
	"github.com/corvid-labs/wiresense/internal/pkg/tcp"
)

// MatchBanner recognizes an IMAP server greeting ("* OK ...").
func MatchBanner(buf []byte) bool {
	return bytes.HasPrefix(buf, []byte("* OK")) || bytes.HasPrefix(buf, []byte("* PREAUTH"))
}

// MatchCommand recognizes an IMAP client command line ("TAG COMMAND ...").
func MatchCommand(buf []byte) bool {
	idx := bytes.IndexByte(buf, ' ')
	if idx <= 0 {
		return false
	}
	rest := bytes.ToUpper(bytes.TrimLeft(buf[idx:], " "))
	for _, cmd := range [][]byte{
		[]byte("LOGIN"), []byte("AUTHENTICATE"), []byte("SELECT"), []byte("EXAMINE"),
		[]byte("LIST"), []byte("LSUB"), []byte("STATUS"), []byte("FETCH"), []byte("UID"),
		[]byte("STORE"), []byte("SEARCH"), []byte("NOOP"), []byte("LOGOUT"),
		[]byte("CAPABILITY"), []byte("STARTTLS"), []byte("IDLE"), []byte("CREATE"),
		[]byte("DELETE"), []byte("RENAME"), []byte("APPEND"), []byte("CLOSE"), []byte("EXPUNGE"),
	} {
		if bytes.HasPrefix(rest, cmd) {
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
	typeName := "imap_client"
	if role == RoleServer {
		typeName = "imap_server"
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

// RegisterSignatures registers IMAP client and server signatures on the
// standard (143) and implicit-TLS (993) ports.
func RegisterSignatures(r *tcp.Resolver, cfg Config, tlsCfg tls.Config) {
	ports := []uint16{143, 993}
	r.Register(tcp.Signature{Name: "IMAP_SERVER", Ports: ports, Match: MatchBanner, Processor: ServerProcessor(cfg, tlsCfg)})
	r.Register(tcp.Signature{Name: "IMAP_CLIENT", Ports: ports, Match: MatchCommand, Processor: ClientProcessor(cfg, tlsCfg)})
}
