package ftp

import (
	"bytes"

	"github.com/corvid-labs/wiresense/internal/pkg/event"
	"github.com/corvid-labs/wiresense/internal/pkg/proto/tls"
	"github.com/corvid-labs/wiresense/internal/pkg/tcp"
)

// MatchBanner recognizes an FTP server greeting ("220 ..." / "220-...").
func MatchBanner(buf []byte) bool {
	return bytes.HasPrefix(buf, []byte("220 ")) || bytes.HasPrefix(buf, []byte("220-"))
}

var ftpCommands = []string{
	"USER ", "PASS ", "ACCT ", "CWD ", "CDUP", "SMNT ",
	"QUIT", "REIN", "PORT ", "PASV", "TYPE ", "STRU ",
	"MODE ", "RETR ", "STOR ", "STOU ", "APPE ", "ALLO ",
	"REST ", "RNFR ", "RNTO ", "ABOR", "DELE ", "RMD ",
	"MKD ", "PWD", "LIST", "NLST ", "SITE ", "SYST",
	"STAT ", "HELP", "NOOP", "FEAT", "OPTS ", "AUTH ",
	"PBSZ ", "PROT ", "EPSV", "EPRT ",
}

// MatchCommand recognizes an FTP client control command.
func MatchCommand(buf []byte) bool {
	upper := bytes.ToUpper(buf)
	for _, cmd := range ftpCommands {
		if bytes.HasPrefix(upper, []byte(cmd)) {
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
	typeName := "ftp_client"
	if role == RoleServer {
		typeName = "ftp_server"
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

// RegisterSignatures registers FTP client and server signatures on the
// control port.
func RegisterSignatures(r *tcp.Resolver, cfg Config, tlsCfg tls.Config) {
	ports := []uint16{21}
	r.Register(tcp.Signature{Name: "FTP_SERVER", Ports: ports, Match: MatchBanner, Processor: ServerProcessor(cfg, tlsCfg)})
	r.Register(tcp.Signature{Name: "FTP_CLIENT", Ports: ports, Match: MatchCommand, Processor: ClientProcessor(cfg, tlsCfg)})
}
