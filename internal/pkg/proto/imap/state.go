// Package imap implements a line-oriented IMAP4 command/response parser
// (spec.md §4.7), grounded on the teacher's regex-driven
// internal/pkg/email/imap_parser.go.
package imap

import (
	"regexp"
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

var (
	taggedRespRe = regexp.MustCompile(`^([A-Za-z0-9]+)\s+(OK|NO|BAD)\s*(.*)$`)
	existsRe     = regexp.MustCompile(`(?i)^(\d+)\s+EXISTS$`)
	recentRe     = regexp.MustCompile(`(?i)^(\d+)\s+RECENT$`)
	fetchRe      = regexp.MustCompile(`(?i)^(\d+)\s+FETCH\s+\((.+)\)$`)
)

// State is the per-direction IMAP parser.
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
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return nil
	}
	tag := parts[0]
	cmd := strings.ToUpper(parts[1])
	var args string
	if len(parts) == 3 {
		args = parts[2]
	}

	if cmd == "STARTTLS" {
		s.awaitingTLSStart = true
	}

	return []event.Event{{
		Action:  event.ActionIMAPCommand,
		Time:    t,
		Payload: CommandPayload{Tag: tag, Command: cmd, Args: args, Raw: line},
	}}
}

func (s *State) feedServerLine(line string, t time.Time) []event.Event {
	if strings.HasPrefix(line, "+ ") {
		return []event.Event{{
			Action:  event.ActionIMAPResponse,
			Time:    t,
			Payload: ResponsePayload{Status: "CONTINUE", Text: strings.TrimPrefix(line, "+ "), Untagged: true, Raw: line},
		}}
	}

	if strings.HasPrefix(line, "* ") {
		return []event.Event{s.parseUntagged(line[2:], line, t)}
	}

	if match := taggedRespRe.FindStringSubmatch(line); match != nil {
		tag, status, text := match[1], match[2], match[3]
		if status == "OK" && strings.Contains(strings.ToUpper(text), "TLS") {
			// STARTTLS completion, e.g. "a2 OK Begin TLS negotiation now".
			s.EscalatedToTLS = true
		}
		return []event.Event{{
			Action:  event.ActionIMAPResponse,
			Time:    t,
			Payload: ResponsePayload{Tag: tag, Status: status, Text: text, Raw: line},
		}}
	}

	return nil
}

func (s *State) parseUntagged(body, raw string, t time.Time) event.Event {
	payload := ResponsePayload{Untagged: true, Raw: raw}

	switch {
	case existsRe.MatchString(body):
		match := existsRe.FindStringSubmatch(body)
		n, _ := strconv.ParseUint(match[1], 10, 32)
		payload.Status = "EXISTS"
		payload.SeqNum = uint32(n)
	case recentRe.MatchString(body):
		match := recentRe.FindStringSubmatch(body)
		n, _ := strconv.ParseUint(match[1], 10, 32)
		payload.Status = "RECENT"
		payload.SeqNum = uint32(n)
	case fetchRe.MatchString(body):
		match := fetchRe.FindStringSubmatch(body)
		n, _ := strconv.ParseUint(match[1], 10, 32)
		payload.Status = "FETCH"
		payload.SeqNum = uint32(n)
		payload.Text = match[2]
	default:
		upper := strings.ToUpper(body)
		switch {
		case strings.HasPrefix(upper, "OK "):
			payload.Status, payload.Text = "OK", body[3:]
		case strings.HasPrefix(upper, "NO "):
			payload.Status, payload.Text = "NO", body[3:]
		case strings.HasPrefix(upper, "BAD "):
			payload.Status, payload.Text = "BAD", body[4:]
		case strings.HasPrefix(upper, "BYE "):
			payload.Status, payload.Text = "BYE", body[4:]
		case strings.HasPrefix(upper, "PREAUTH "):
			payload.Status, payload.Text = "PREAUTH", body[8:]
		default:
			payload.Status, payload.Text = "DATA", body
		}
	}

	return event.Event{Action: event.ActionIMAPResponse, Time: t, Payload: payload}
}
