// Package smtp implements a line-oriented SMTP command/response parser
// (spec.md §4.7's "application parsers — common pattern"), with an AUTH
// sub-state that treats base64 credential continuation lines as part of
// the AUTH exchange instead of re-parsing them as commands, and a
// STARTTLS escalation that hands the rest of the connection to the tls
// package.
//
// Each direction of a connection is parsed independently (it never sees
// the other direction's bytes), so escalation is detected per direction:
// the client side content-sniffs the bytes following its own STARTTLS
// command for a TLS record header, and the server side uses the
// teacher's same "response text mentions TLS" heuristic
// (internal/pkg/email/parser.go's parseServerResponse) on its 220 reply.
//
// Grounded on the teacher's internal/pkg/email/parser.go (verb/response
// recognition, MAIL FROM/RCPT TO/AUTH handling) and
// original_source/include/cyberprobe/protocol/smtp_auth_context.h (a
// dedicated sub-context type for the AUTH exchange).
package smtp

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

// State is the per-direction SMTP parser.
type State struct {
	role  Role
	split *lineproto.Splitter

	inAuth             bool
	authLinesRemaining int

	awaitingTLSStart bool
	EscalatedToTLS   bool
}

func newState(role Role, cfg Config) *State {
	return &State{role: role, split: lineproto.NewSplitter(cfg.MaxLineBytes)}
}

// Feed parses as many complete lines as are now available and returns
// the events they produce. Once EscalatedToTLS is set the caller must
// stop calling Feed and hand subsequent bytes to the tls package
// instead (spec.md §4.7 "escalates to a subordinate decoder").
func (s *State) Feed(data []byte, t time.Time) []event.Event {
	if s.role == RoleClient && s.awaitingTLSStart {
		if tls.Match(data) {
			s.EscalatedToTLS = true
			return nil
		}
		s.awaitingTLSStart = false // server didn't honor STARTTLS
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
	if s.inAuth {
		s.authLinesRemaining--
		if s.authLinesRemaining <= 0 {
			s.inAuth = false
		}
		return []event.Event{{
			Action:  event.ActionSMTPCommand,
			Time:    t,
			Payload: CommandPayload{Verb: "AUTH_DATA", Raw: line},
		}}
	}

	verb, args := splitVerb(line)
	upper := strings.ToUpper(verb)

	switch upper {
	case "AUTH":
		s.beginAuth(args)
	case "STARTTLS":
		s.awaitingTLSStart = true
	}

	return []event.Event{{
		Action:  event.ActionSMTPCommand,
		Time:    t,
		Payload: CommandPayload{Verb: upper, Args: args, Raw: line},
	}}
}

// beginAuth works out how many base64 continuation lines to expect
// before the exchange completes: AUTH PLAIN may carry its initial
// response inline on the command line itself, AUTH LOGIN always
// prompts for two (username, then password), anything else gets one.
func (s *State) beginAuth(args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return
	}
	if len(fields) > 1 {
		return // initial response included inline; nothing more to wait for
	}
	switch strings.ToUpper(fields[0]) {
	case "LOGIN":
		s.inAuth = true
		s.authLinesRemaining = 2
	default:
		s.inAuth = true
		s.authLinesRemaining = 1
	}
}

func (s *State) feedServerLine(line string, t time.Time) []event.Event {
	code, text, ok := splitResponse(line)
	if !ok {
		return nil
	}

	if code == 220 && strings.Contains(strings.ToUpper(text), "TLS") {
		s.EscalatedToTLS = true
	}

	return []event.Event{{
		Action:  event.ActionSMTPResponse,
		Time:    t,
		Payload: ResponsePayload{Code: code, Text: text, Raw: line},
	}}
}

func splitVerb(line string) (verb, args string) {
	line = strings.TrimSpace(line)
	idx := strings.IndexByte(line, ' ')
	if idx < 0 {
		return line, ""
	}
	return line[:idx], strings.TrimSpace(line[idx+1:])
}

func splitResponse(line string) (code int, text string, ok bool) {
	line = strings.TrimSpace(line)
	if len(line) < 3 {
		return 0, "", false
	}
	n, err := strconv.Atoi(line[:3])
	if err != nil {
		return 0, "", false
	}
	if len(line) > 4 {
		text = strings.TrimSpace(line[4:])
	}
	return n, text, true
}
