package sensor

import (
	"strings"

	"github.com/miekg/dns"

	"github.com/hostguard/hostguard/internal/types"
)

/*
 * Opportunistic DNS reconstruction.
 *
 * Every Send/Receive observation with a non-empty capture is offered to the
 * DNS parser. A failed parse simply means the bytes were not DNS; no error
 * surfaces and no event is emitted. Classification of successful parses:
 *
 *   questions and no answers -> DnsQuery
 *   any answers              -> DnsResponse (question list may be empty)
 *   neither                  -> nothing
 */

// reconstructDNS extracts the captured buffer from a Send/Receive payload and
// attempts to parse it as a DNS message. The second return value reports
// whether a protocol event was produced.
func reconstructDNS(payload types.Payload) (types.Payload, bool) {
	var data []byte
	switch p := payload.(type) {
	case types.SendPayload:
		data = p.Data
	case types.ReceivePayload:
		data = p.Data
	default:
		return nil, false
	}
	return dnsPayloadOf(data)
}

// dnsPayloadOf is the pure classification function over captured bytes.
func dnsPayloadOf(data []byte) (types.Payload, bool) {
	if len(data) == 0 {
		return nil, false
	}

	var msg dns.Msg
	if err := msg.Unpack(data); err != nil {
		// Not DNS. Expected for almost all traffic.
		return nil, false
	}

	questions := make([]types.DNSQuestion, 0, len(msg.Question))
	for _, q := range msg.Question {
		questions = append(questions, types.DNSQuestion{
			Name:   q.Name,
			Qtype:  dns.Type(q.Qtype).String(),
			Qclass: dns.Class(q.Qclass).String(),
		})
	}

	answers := make([]types.DNSAnswer, 0, len(msg.Answer))
	for _, rr := range msg.Answer {
		hdr := rr.Header()
		answers = append(answers, types.DNSAnswer{
			Name:  hdr.Name,
			Class: dns.Class(hdr.Class).String(),
			TTL:   hdr.Ttl,
			Data:  rdataString(rr),
		})
	}

	switch {
	case len(questions) > 0 && len(answers) == 0:
		return types.DNSQueryPayload{Questions: questions}, true
	case len(answers) > 0:
		return types.DNSResponsePayload{Questions: questions, Answers: answers}, true
	default:
		return nil, false
	}
}

// rdataString renders the record data without the shared header columns.
func rdataString(rr dns.RR) string {
	return strings.TrimPrefix(rr.String(), rr.Header().String())
}
