package sensor

import (
	"net"
	"testing"

	"github.com/miekg/dns"

	"github.com/hostguard/hostguard/internal/types"
)

func packMsg(t *testing.T, msg *dns.Msg) []byte {
	t.Helper()
	body, err := msg.Pack()
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	return body
}

func TestDNSPayloadOf_Query(t *testing.T) {
	msg := new(dns.Msg)
	msg.SetQuestion("example.com.", dns.TypeA)

	payload, ok := dnsPayloadOf(packMsg(t, msg))
	if !ok {
		t.Fatalf("dnsPayloadOf() ok = false, want true")
	}
	query, ok := payload.(types.DNSQueryPayload)
	if !ok {
		t.Fatalf("payload = %T, want DNSQueryPayload", payload)
	}
	if len(query.Questions) != 1 {
		t.Fatalf("len(Questions) = %d, want 1", len(query.Questions))
	}
	q := query.Questions[0]
	if q.Name != "example.com." {
		t.Errorf("Name = %q, want example.com.", q.Name)
	}
	if q.Qtype != "A" {
		t.Errorf("Qtype = %q, want A", q.Qtype)
	}
	if q.Qclass != "IN" {
		t.Errorf("Qclass = %q, want IN", q.Qclass)
	}
}

func TestDNSPayloadOf_Response(t *testing.T) {
	req := new(dns.Msg)
	req.SetQuestion("example.com.", dns.TypeA)

	resp := new(dns.Msg)
	resp.SetReply(req)
	resp.Answer = append(resp.Answer, &dns.A{
		Hdr: dns.RR_Header{
			Name:   "example.com.",
			Rrtype: dns.TypeA,
			Class:  dns.ClassINET,
			Ttl:    300,
		},
		A: net.IPv4(93, 184, 216, 34),
	})

	payload, ok := dnsPayloadOf(packMsg(t, resp))
	if !ok {
		t.Fatalf("dnsPayloadOf() ok = false, want true")
	}
	response, ok := payload.(types.DNSResponsePayload)
	if !ok {
		t.Fatalf("payload = %T, want DNSResponsePayload", payload)
	}
	if len(response.Questions) != 1 {
		t.Errorf("len(Questions) = %d, want 1", len(response.Questions))
	}
	if len(response.Answers) != 1 {
		t.Fatalf("len(Answers) = %d, want 1", len(response.Answers))
	}
	a := response.Answers[0]
	if a.Name != "example.com." {
		t.Errorf("Name = %q, want example.com.", a.Name)
	}
	if a.Class != "IN" {
		t.Errorf("Class = %q, want IN", a.Class)
	}
	if a.TTL != 300 {
		t.Errorf("TTL = %d, want 300", a.TTL)
	}
	if a.Data != "93.184.216.34" {
		t.Errorf("Data = %q, want 93.184.216.34", a.Data)
	}
}

func TestDNSPayloadOf_NotDNS(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"http request", []byte("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n")},
		{"random bytes", []byte{0xde, 0xad, 0xbe}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if payload, ok := dnsPayloadOf(tt.data); ok {
				t.Errorf("dnsPayloadOf() = %T, want no payload", payload)
			}
		})
	}
}

func TestDNSPayloadOf_EmptyMessage(t *testing.T) {
	// A message that parses but carries neither questions nor answers
	// produces no protocol event.
	msg := new(dns.Msg)
	if payload, ok := dnsPayloadOf(packMsg(t, msg)); ok {
		t.Errorf("dnsPayloadOf() = %T, want no payload for empty message", payload)
	}
}

func TestReconstructDNS_SourcePayloads(t *testing.T) {
	msg := new(dns.Msg)
	msg.SetQuestion("example.com.", dns.TypeAAAA)
	data := packMsg(t, msg)

	t.Run("send", func(t *testing.T) {
		if _, ok := reconstructDNS(types.SendPayload{Data: data}); !ok {
			t.Errorf("reconstructDNS(SendPayload) ok = false, want true")
		}
	})

	t.Run("receive", func(t *testing.T) {
		if _, ok := reconstructDNS(types.ReceivePayload{Data: data}); !ok {
			t.Errorf("reconstructDNS(ReceivePayload) ok = false, want true")
		}
	})

	t.Run("other kinds skipped", func(t *testing.T) {
		if _, ok := reconstructDNS(types.ExecPayload{Filename: "/bin/sh"}); ok {
			t.Errorf("reconstructDNS(ExecPayload) ok = true, want false")
		}
	})
}
