// Package tls emits one event per TLS handshake stage (spec.md §6's TLS
// handshake-stage set) by framing the record layer incrementally and
// walking the handshake messages each record carries.
//
// Grounded on the teacher's internal/pkg/tls/parser.go, whose
// ParsePayload decodes a single already-complete record; here the same
// field layout and constants are reused but framed record-by-record
// across arbitrary TCP segment boundaries, and a handshake record's
// messages are walked in a loop instead of inspecting only the first one
// (ServerHello/Certificate/ServerKeyExchange/ServerHelloDone commonly
// arrive coalesced in one record).
package tls

import (
	"encoding/binary"
	"time"

	"github.com/corvid-labs/wiresense/internal/pkg/event"
)

// State is the per-direction TLS record framer.
type State struct {
	buf []byte
	cfg Config
}

func newState(cfg Config) *State {
	return &State{cfg: cfg}
}

// Feed appends data and returns the events produced by any complete
// records now available; partial records remain buffered.
func (s *State) Feed(data []byte, t time.Time) []event.Event {
	s.buf = append(s.buf, data...)

	var events []event.Event
	for {
		if len(s.buf) < 5 {
			break
		}
		recordType := s.buf[0]
		major, minor := s.buf[1], s.buf[2]
		if major != 0x03 {
			// Not a TLS record at all; stop trying to frame this stream.
			s.buf = nil
			break
		}
		_ = minor
		length := int(binary.BigEndian.Uint16(s.buf[3:5]))
		if s.cfg.MaxRecordLength > 0 && length > s.cfg.MaxRecordLength {
			s.buf = nil
			break
		}
		if len(s.buf) < 5+length {
			break // wait for the rest of the record
		}

		body := s.buf[5 : 5+length]
		s.buf = s.buf[5+length:]

		events = append(events, s.decodeRecord(recordType, body, t)...)
	}
	return events
}

func (s *State) decodeRecord(recordType byte, body []byte, t time.Time) []event.Event {
	switch recordType {
	case RecordTypeHandshake:
		return s.decodeHandshakeMessages(body, t)
	case RecordTypeApplicationData:
		return []event.Event{{
			Action:  event.ActionTLSApplicationData,
			Time:    t,
			Payload: ApplicationDataPayload{Length: len(body)},
		}}
	default:
		// ChangeCipherSpec, Alert, Heartbeat carry no stage event in the
		// closed action set.
		return nil
	}
}

// decodeHandshakeMessages walks zero or more handshake messages packed
// into a single record body.
func (s *State) decodeHandshakeMessages(body []byte, t time.Time) []event.Event {
	var events []event.Event
	pos := 0
	for pos+4 <= len(body) {
		msgType := body[pos]
		msgLen := int(body[pos+1])<<16 | int(body[pos+2])<<8 | int(body[pos+3])
		end := pos + 4 + msgLen
		if end > len(body) {
			break
		}
		msg := body[pos:end]
		if ev, ok := s.decodeHandshakeMessage(msgType, msg, t); ok {
			events = append(events, ev)
		}
		pos = end
	}
	return events
}

func (s *State) decodeHandshakeMessage(msgType byte, msg []byte, t time.Time) (event.Event, bool) {
	switch msgType {
	case HandshakeTypeClientHello:
		return event.Event{Action: event.ActionTLSClientHello, Time: t, Payload: parseClientHello(msg)}, true
	case HandshakeTypeServerHello:
		return event.Event{Action: event.ActionTLSServerHello, Time: t, Payload: parseServerHello(msg)}, true
	case HandshakeTypeCertificate:
		return event.Event{Action: event.ActionTLSCertificates, Time: t, Payload: HandshakePayload{Stage: "Certificate"}}, true
	case HandshakeTypeServerKeyExchange:
		return event.Event{Action: event.ActionTLSServerKeyEx, Time: t, Payload: HandshakePayload{Stage: "ServerKeyExchange"}}, true
	case HandshakeTypeCertificateRequest:
		return event.Event{Action: event.ActionTLSCertRequest, Time: t, Payload: HandshakePayload{Stage: "CertificateRequest"}}, true
	case HandshakeTypeServerHelloDone:
		return event.Event{Action: event.ActionTLSServerHelloEnd, Time: t, Payload: HandshakePayload{Stage: "ServerHelloDone"}}, true
	case HandshakeTypeCertificateVerify:
		return event.Event{Action: event.ActionTLSCertVerify, Time: t, Payload: HandshakePayload{Stage: "CertificateVerify"}}, true
	case HandshakeTypeClientKeyExchange:
		return event.Event{Action: event.ActionTLSClientKeyEx, Time: t, Payload: HandshakePayload{Stage: "ClientKeyExchange"}}, true
	case HandshakeTypeFinished:
		return event.Event{Action: event.ActionTLSFinished, Time: t, Payload: HandshakePayload{Stage: "Finished"}}, true
	default:
		return event.Event{}, false
	}
}

func parseClientHello(data []byte) HandshakePayload {
	p := HandshakePayload{Stage: "ClientHello"}
	pos := 4 // handshake header
	if pos+2 > len(data) {
		return p
	}
	p.Version = binary.BigEndian.Uint16(data[pos : pos+2])
	pos += 2
	pos += 32 // random

	if pos+1 > len(data) {
		return p
	}
	sidLen := int(data[pos])
	pos++
	if pos+sidLen > len(data) {
		return p
	}
	p.SessionID = append([]byte{}, data[pos:pos+sidLen]...)
	pos += sidLen

	if pos+2 > len(data) {
		return p
	}
	csLen := int(binary.BigEndian.Uint16(data[pos : pos+2]))
	pos += 2
	if pos+csLen > len(data) {
		return p
	}
	p.CipherSuites = make([]uint16, csLen/2)
	for i := range p.CipherSuites {
		p.CipherSuites[i] = binary.BigEndian.Uint16(data[pos+i*2 : pos+i*2+2])
	}
	pos += csLen

	if pos+1 > len(data) {
		return p
	}
	compLen := int(data[pos])
	pos++
	pos += compLen

	if pos+2 > len(data) {
		return p
	}
	extLen := int(binary.BigEndian.Uint16(data[pos : pos+2]))
	pos += 2
	if pos+extLen > len(data) {
		return p
	}
	parseExtensions(data[pos:pos+extLen], &p, true)
	return p
}

func parseServerHello(data []byte) HandshakePayload {
	p := HandshakePayload{Stage: "ServerHello"}
	pos := 4
	if pos+2 > len(data) {
		return p
	}
	p.Version = binary.BigEndian.Uint16(data[pos : pos+2])
	pos += 2
	pos += 32

	if pos+1 > len(data) {
		return p
	}
	sidLen := int(data[pos])
	pos++
	if pos+sidLen > len(data) {
		return p
	}
	p.SessionID = append([]byte{}, data[pos:pos+sidLen]...)
	pos += sidLen

	if pos+2 > len(data) {
		return p
	}
	p.SelectedCipher = binary.BigEndian.Uint16(data[pos : pos+2])
	pos += 2

	if pos+2 <= len(data) {
		extLen := int(binary.BigEndian.Uint16(data[pos : pos+2]))
		pos += 2
		if pos+extLen <= len(data) {
			parseExtensions(data[pos:pos+extLen], &p, false)
		}
	}
	return p
}

// parseExtensions walks a TLS extension list. The supported_versions
// extension is shaped differently in a ClientHello (a length-prefixed
// list; take the first/highest) than in a ServerHello (a single value),
// mirroring the teacher's separate client/server extension walkers.
func parseExtensions(data []byte, p *HandshakePayload, isClientHello bool) {
	pos := 0
	for pos+4 <= len(data) {
		extType := binary.BigEndian.Uint16(data[pos : pos+2])
		extLen := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		pos += 4
		if pos+extLen > len(data) {
			break
		}
		extData := data[pos : pos+extLen]
		p.Extensions = append(p.Extensions, extType)

		switch extType {
		case extensionSNI:
			if isClientHello {
				p.SNI = parseSNI(extData)
			}
		case extensionSupportedVer:
			if isClientHello {
				if len(extData) >= 3 && int(extData[0]) >= 2 {
					p.Version = binary.BigEndian.Uint16(extData[1:3])
				}
			} else if len(extData) >= 2 {
				p.Version = binary.BigEndian.Uint16(extData[:2])
			}
		}
		pos += extLen
	}
}

func parseSNI(data []byte) string {
	if len(data) < 5 {
		return ""
	}
	pos := 2
	nameType := data[pos]
	if nameType != 0 {
		return ""
	}
	pos++
	nameLen := int(binary.BigEndian.Uint16(data[pos : pos+2]))
	pos += 2
	if pos+nameLen > len(data) {
		return ""
	}
	return string(data[pos : pos+nameLen])
}
