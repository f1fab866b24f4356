// Package ftp implements a line-oriented FTP control-channel parser
// (spec.md §4.7), grounded on the teacher's
// internal/pkg/detector/signatures/application/ftp.go response/command
// detection rules. AUTH TLS (RFC 4217) escalation follows the same
// per-direction-independent design as smtp's STARTTLS.
package ftp

import (
	"strconv"
	"strings"
	"time"

	"github.com/corvid-labs/wiresense/internal/pkg/event"
	"github.com/corvid-labs/wiresense/internal/pkg/lineproto"
	"github.com/corvid-labs/wiresense/internal/pkg/proto/tls"
)

// Role distinguishes which direction of the connection a State parses.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// State is the per-direction FTP control-channel parser.
type State struct {
	role  Role
	split *lineproto.Splitter

	awaitingTLSStart bool
	EscalatedToTLS   bool
}

func newState(role Role, cfg Config) *State {
	return &State{role: role, split: lineproto.NewSplitter(cfg.MaxLineBytes)}
}

// Feed parses as many complete lines as are available and returns the
// events they produce.
func (s *State) Feed(data []byte, t time.Time) []event.Event {
	if s.role == RoleClient && s.awaitingTLSStart {
		if tls.Match(data) {
			s.EscalatedToTLS = true
			return nil
		}
		s.awaitingTLSStart = false
	}

	lines := s.split.Feed(data)

	var events []event.Event
	for _, line := range lines {
		if s.role == RoleClient {
			events = append(events, s.feedClientLine(line, t)...)
		} else {
			events = append(events, s.feedServerLine(line, t)...)
		}
		if s.EscalatedToTLS {
			break
		}
	}
	return events
}

func (s *State) feedClientLine(line string, t time.Time) []event.Event {
	parts := strings.SplitN(strings.TrimSpace(line), " ", 2)
	cmd := strings.ToUpper(parts[0])
	var args string
	if len(parts) == 2 {
		args = parts[1]
	}

	if cmd == "AUTH" && strings.EqualFold(strings.TrimSpace(args), "TLS") {
		s.awaitingTLSStart = true
	}

	redacted := args
	if cmd == "PASS" && args != "" {
		redacted = "***"
	}

	return []event.Event{{
		Action:  event.ActionFTPCommand,
		Time:    t,
		Payload: CommandPayload{Command: cmd, Args: redacted, Raw: line},
	}}
}

func (s *State) feedServerLine(line string, t time.Time) []event.Event {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < 4 || !isDigit(trimmed[0]) || !isDigit(trimmed[1]) || !isDigit(trimmed[2]) {
		return nil
	}
	sep := trimmed[3]
	if sep != ' ' && sep != '-' {
		return nil
	}

	code, err := strconv.Atoi(trimmed[:3])
	if err != nil {
		return nil
	}

	text := strings.TrimSpace(trimmed[4:])

	// RFC 4217: "234 AUTH command OK" confirms the TLS handshake is
	// about to begin on this same control channel.
	if code == 234 && strings.Contains(strings.ToUpper(text), "TLS") {
		s.EscalatedToTLS = true
	}

	return []event.Event{{
		Action:  event.ActionFTPResponse,
		Time:    t,
		Payload: ResponsePayload{Code: code, Text: text, Multiline: sep == '-', Raw: line},
	}}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
