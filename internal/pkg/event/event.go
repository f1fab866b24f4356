// Package event defines the closed set of semantic observations the
// decoding pipeline emits, and the Manager interface that consumes them
// (spec.md §6 "Event sink").
package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/corvid-labs/wiresense/internal/pkg/pdu"
)

// ActionType tags the kind of observation an Event carries.
type ActionType string

const (
	ActionConnectionUp   ActionType = "CONNECTION_UP"
	ActionConnectionDown ActionType = "CONNECTION_DOWN"
	ActionTriggerUp      ActionType = "TRIGGER_UP"
	ActionTriggerDown    ActionType = "TRIGGER_DOWN"

	ActionUnrecognisedIPProtocol ActionType = "UNRECOGNISED_IP_PROTOCOL"
	ActionUnrecognisedDatagram   ActionType = "UNRECOGNISED_DATAGRAM"
	ActionUnrecognisedStream     ActionType = "UNRECOGNISED_STREAM"

	ActionICMP ActionType = "ICMP"

	ActionHTTPRequest       ActionType = "HTTP_REQUEST"
	ActionHTTPResponse      ActionType = "HTTP_RESPONSE"
	ActionHTTPResponseChunk ActionType = "HTTP_RESPONSE_CHUNK"

	ActionSMTPCommand  ActionType = "SMTP_COMMAND"
	ActionSMTPResponse ActionType = "SMTP_RESPONSE"

	ActionPOP3Command  ActionType = "POP3_COMMAND"
	ActionPOP3Response ActionType = "POP3_RESPONSE"

	ActionIMAPCommand  ActionType = "IMAP_COMMAND"
	ActionIMAPResponse ActionType = "IMAP_RESPONSE"

	ActionFTPCommand  ActionType = "FTP_COMMAND"
	ActionFTPResponse ActionType = "FTP_RESPONSE"

	ActionSIPRequest  ActionType = "SIP_REQUEST"
	ActionSIPResponse ActionType = "SIP_RESPONSE"

	ActionDNSQuery    ActionType = "DNS_QUERY"
	ActionDNSResponse ActionType = "DNS_RESPONSE"

	ActionNTPMessage ActionType = "NTP_MESSAGE"

	ActionRTPData ActionType = "RTP_DATA"

	// TLS handshake stages (spec.md §6).
	ActionTLSClientHello    ActionType = "CLIENT_HELLO"
	ActionTLSServerHello    ActionType = "SERVER_HELLO"
	ActionTLSCertificates   ActionType = "CERTIFICATES"
	ActionTLSServerKeyEx    ActionType = "SERVER_KEY_EXCHANGE"
	ActionTLSCertRequest    ActionType = "CERTIFICATE_REQUEST"
	ActionTLSServerHelloEnd ActionType = "SERVER_HELLO_DONE"
	ActionTLSCertVerify     ActionType = "CERTIFICATE_VERIFY"
	ActionTLSClientKeyEx    ActionType = "CLIENT_KEY_EXCHANGE"
	ActionTLSFinished       ActionType = "FINISHED"
	ActionTLSApplicationData ActionType = "APPLICATION_DATA"
)

// Event is a single semantic observation emitted to a Manager.
type Event struct {
	ID        string
	Action    ActionType
	Time      time.Time
	Device    string
	Network   string
	Direction pdu.Direction
	Payload   any
}

// Manager is the event sink collaborator (spec.md §2 "manager interface").
// Implementations must be safe for concurrent use: decoders may call
// Handle from multiple flows' goroutines at once, and must never hold a
// per-context lock while calling it (spec.md §9 "Scoped-resource
// acquisition").
type Manager interface {
	Handle(e Event)
}

// IDGenerator produces unique event identifiers. Injectable so tests can
// supply a deterministic generator (spec.md §9 "Global mutable state").
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator is the default IDGenerator, backed by google/uuid.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.New().String() }

// New builds an Event, stamping it with an ID from gen.
func New(gen IDGenerator, action ActionType, t time.Time, device, network string, dir pdu.Direction, payload any) Event {
	return Event{
		ID:        gen.NewID(),
		Action:    action,
		Time:      t,
		Device:    device,
		Network:   network,
		Direction: dir,
		Payload:   payload,
	}
}
