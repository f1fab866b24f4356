// Package sip implements stateless per-datagram SIP request/response
// parsing (spec.md §4.6), grounded on the teacher's
// internal/pkg/voip/sip.go line/header scanning and compact-header
// normalization table. Unlike the stream protocols, one UDP datagram
// carries one complete SIP message, so there is no resumable state.
package sip

import (
	"strconv"
	"strings"
)

var requestMethods = []string{"INVITE", "BYE", "ACK", "OPTIONS", "REGISTER", "CANCEL", "PRACK", "SUBSCRIBE", "NOTIFY", "REFER", "MESSAGE", "UPDATE", "INFO"}

// parse reports whether data is a SIP request or response and returns
// the corresponding payload.
func parse(data []byte) (req *RequestPayload, resp *ResponsePayload, ok bool) {
	text := string(data)
	lines := strings.Split(text, "\n")
	if len(lines) == 0 {
		return nil, nil, false
	}
	startLine := strings.TrimSpace(lines[0])

	headers, body := parseHeaders(lines)

	if strings.HasPrefix(startLine, "SIP/2.0") {
		parts := strings.SplitN(startLine, " ", 3)
		if len(parts) < 2 {
			return nil, nil, false
		}
		code, _ := strconv.Atoi(parts[1])
		reason := ""
		if len(parts) == 3 {
			reason = parts[2]
		}
		return nil, &ResponsePayload{
			Version: parts[0],
			Code:    code,
			Reason:  reason,
			CallID:  headers["call-id"],
			Headers: headers,
			Body:    body,
		}, true
	}

	for _, m := range requestMethods {
		if strings.HasPrefix(startLine, m+" ") && strings.Contains(startLine, "SIP/2.0") {
			parts := strings.SplitN(startLine, " ", 3)
			if len(parts) != 3 {
				return nil, nil, false
			}
			return &RequestPayload{
				Method:  parts[0],
				URI:     parts[1],
				Version: parts[2],
				CallID:  headers["call-id"],
				Headers: headers,
				Body:    body,
			}, nil, true
		}
	}

	return nil, nil, false
}

func parseHeaders(lines []string) (map[string]string, string) {
	headers := make(map[string]string)
	var body strings.Builder
	inBody := false

	for i, raw := range lines {
		if i == 0 {
			continue
		}
		line := strings.TrimRight(raw, "\r")
		if !inBody {
			if strings.TrimSpace(line) == "" {
				inBody = true
				continue
			}
			key, val := parseHeaderLine(line)
			if key != "" {
				headers[key] = val
			}
		} else {
			body.WriteString(line)
			body.WriteByte('\n')
		}
	}
	return headers, body.String()
}

func parseHeaderLine(line string) (string, string) {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return "", ""
	}
	key := normalizeHeaderName(strings.ToLower(strings.TrimSpace(parts[0])))
	if key == "" {
		return "", ""
	}
	return key, strings.TrimSpace(parts[1])
}

var compactToFull = map[string]string{
	"i": "call-id", "f": "from", "t": "to", "v": "via",
	"c": "contact", "m": "contact", "l": "content-length", "x": "expires",
	"s": "subject", "k": "supported", "r": "refer-to", "b": "referred-by",
}

func normalizeHeaderName(compact string) string {
	if full, ok := compactToFull[compact]; ok {
		return full
	}
	return compact
}
