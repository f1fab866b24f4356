// Package pop3 implements a line-oriented POP3 command/response parser
// (spec.md §4.7), with STLS escalation to the tls package grounded on
// original_source/include/cybermon/pop3_ssl.h (a dedicated post-STLS
// processing entry point in the original implementation).
package pop3

import (
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

// State is the per-direction POP3 parser.
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
	cmd, args := splitVerb(line)
	upper := strings.ToUpper(cmd)
	if upper == "STLS" {
		s.awaitingTLSStart = true
	}

	return []event.Event{{
		Action:  event.ActionPOP3Command,
		Time:    t,
		Payload: CommandPayload{Command: upper, Args: args, Raw: line},
	}}
}

func (s *State) feedServerLine(line string, t time.Time) []event.Event {
	status, text, ok := splitStatus(line)
	if !ok {
		return nil
	}

	if status == "+OK" && strings.Contains(strings.ToUpper(text), "TLS") {
		// A positive response to STLS (e.g. "+OK Begin TLS negotiation")
		// matches the teacher's same capability-text sniffing rule
		// (internal/pkg/email/pop3_parser.go's STLS/STARTTLS check).
		s.EscalatedToTLS = true
	}

	return []event.Event{{
		Action:  event.ActionPOP3Response,
		Time:    t,
		Payload: ResponsePayload{Status: status, Text: text, Raw: line},
	}}
}

func splitVerb(line string) (cmd, args string) {
	parts := strings.SplitN(strings.TrimSpace(line), " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.TrimSpace(parts[1])
}

func splitStatus(line string) (status, text string, ok bool) {
	line = strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, "+OK"):
		return "+OK", strings.TrimSpace(strings.TrimPrefix(line, "+OK")), true
	case strings.HasPrefix(line, "-ERR"):
		return "-ERR", strings.TrimSpace(strings.TrimPrefix(line, "-ERR")), true
	default:
		return "", "", false
	}
}
