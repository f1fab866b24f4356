// Package dns implements DNS message decoding for both UDP datagrams
// and length-prefixed TCP streams (spec.md §4.6: "DNS by TCP over port
// 53"), built on gopacket/layers.DNS rather than a hand-rolled wire
// parser, consistent with the domain stack's reuse of gopacket for
// every other wire format.
package dns

import (
	"fmt"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

func decode(buf []byte) (*QueryPayload, *ResponsePayload, bool) {
	var msg layers.DNS
	if err := msg.DecodeFromBytes(buf, gopacket.NilDecodeFeedback); err != nil {
		return nil, nil, false
	}

	questions := make([]Question, 0, len(msg.Questions))
	for _, q := range msg.Questions {
		questions = append(questions, Question{
			Name:  string(q.Name),
			Type:  q.Type.String(),
			Class: q.Class.String(),
		})
	}

	if !msg.QR {
		return &QueryPayload{ID: msg.ID, Questions: questions}, nil, true
	}

	answers := make([]Answer, 0, len(msg.Answers))
	for _, rr := range msg.Answers {
		answers = append(answers, Answer{
			Name: string(rr.Name),
			Type: rr.Type.String(),
			TTL:  rr.TTL,
			Data: formatRecordData(rr),
		})
	}

	return nil, &ResponsePayload{
		ID:           msg.ID,
		ResponseCode: msg.ResponseCode.String(),
		Questions:    questions,
		Answers:      answers,
	}, true
}

func formatRecordData(rr layers.DNSResourceRecord) string {
	switch rr.Type {
	case layers.DNSTypeA, layers.DNSTypeAAAA:
		return rr.IP.String()
	case layers.DNSTypeCNAME:
		return string(rr.CNAME)
	case layers.DNSTypeNS:
		return string(rr.NS)
	case layers.DNSTypePTR:
		return string(rr.PTR)
	case layers.DNSTypeTXT:
		strs := make([]string, 0, len(rr.TXTs))
		for _, t := range rr.TXTs {
			strs = append(strs, string(t))
		}
		return strings.Join(strs, ",")
	case layers.DNSTypeMX:
		return fmt.Sprintf("%d %s", rr.MX.Preference, rr.MX.Name)
	default:
		return ""
	}
}
