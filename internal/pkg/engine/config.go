// Package engine is the top-of-pipeline entry point: link-layer ingestion,
// the (device, network) root-context registry, the idle-context reaper,
// and the fully wired tree of decoders from ip4/ip6 down to every
// application-layer parser (spec.md §2-§4).
package engine

import (
	"github.com/corvid-labs/wiresense/internal/pkg/flowctx"
	"github.com/corvid-labs/wiresense/internal/pkg/ip4"
	"github.com/corvid-labs/wiresense/internal/pkg/ip6"
	"github.com/corvid-labs/wiresense/internal/pkg/proto/dns"
	"github.com/corvid-labs/wiresense/internal/pkg/proto/ftp"
	"github.com/corvid-labs/wiresense/internal/pkg/proto/http"
	"github.com/corvid-labs/wiresense/internal/pkg/proto/imap"
	"github.com/corvid-labs/wiresense/internal/pkg/proto/ntp"
	"github.com/corvid-labs/wiresense/internal/pkg/proto/pop3"
	"github.com/corvid-labs/wiresense/internal/pkg/proto/rtp"
	"github.com/corvid-labs/wiresense/internal/pkg/proto/sip"
	"github.com/corvid-labs/wiresense/internal/pkg/proto/smtp"
	"github.com/corvid-labs/wiresense/internal/pkg/proto/tls"
	"github.com/corvid-labs/wiresense/internal/pkg/tcp"
	"github.com/corvid-labs/wiresense/internal/pkg/udp"
)

// Config bundles every decoder layer's tunables, mirroring the teacher's
// per-package viper.SetDefault idiom repeated at the top level.
type Config struct {
	Reaper flowctx.Config
	TCP    tcp.Config
	IP4    ip4.Config
	IP6    ip6.Config

	HTTP http.Config
	TLS  tls.Config
	SMTP smtp.Config
	POP3 pop3.Config
	IMAP imap.Config
	FTP  ftp.Config
	SIP  sip.Config
	DNS  dns.Config
	NTP  ntp.Config
	RTP  rtp.Config
}

// DefaultConfig collects every decoder's own viper-backed defaults.
func DefaultConfig() Config {
	return Config{
		Reaper: flowctx.DefaultConfig(),
		TCP:    tcp.DefaultConfig(),
		IP4:    ip4.DefaultConfig(),
		IP6:    ip6.DefaultConfig(),

		HTTP: http.DefaultConfig(),
		TLS:  tls.DefaultConfig(),
		SMTP: smtp.DefaultConfig(),
		POP3: pop3.DefaultConfig(),
		IMAP: imap.DefaultConfig(),
		FTP:  ftp.DefaultConfig(),
		SIP:  sip.DefaultConfig(),
		DNS:  dns.DefaultConfig(),
		NTP:  ntp.DefaultConfig(),
		RTP:  rtp.DefaultConfig(),
	}
}

// buildTCPResolver registers every stream-oriented application signature.
func buildTCPResolver(cfg Config) *tcp.Resolver {
	r := tcp.NewResolver()
	http.RegisterSignatures(r, cfg.HTTP)
	tls.RegisterSignature(r, cfg.TLS)
	smtp.RegisterSignatures(r, cfg.SMTP, cfg.TLS)
	pop3.RegisterSignatures(r, cfg.POP3, cfg.TLS)
	imap.RegisterSignatures(r, cfg.IMAP, cfg.TLS)
	ftp.RegisterSignatures(r, cfg.FTP, cfg.TLS)
	dns.RegisterSignature(r, cfg.DNS)
	return r
}

// buildUDPDispatcher registers every datagram-oriented application route.
// RTP is registered last: it has no well-known port and only matches via
// content sniffing, the fallback the Dispatcher tries after every
// port-mapped route has missed.
func buildUDPDispatcher(cfg Config) *udp.Dispatcher {
	d := udp.NewDispatcher()
	dns.RegisterRoute(d, cfg.DNS)
	ntp.RegisterRoute(d, cfg.NTP)
	sip.RegisterRoute(d, cfg.SIP)
	rtp.RegisterRoute(d, cfg.RTP)
	return d
}
