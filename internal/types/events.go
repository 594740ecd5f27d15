// Package types provides the domain model shared across hostguard components.
//
// Events are constructed once per kernel observation and treated as immutable
// afterwards; the only mutation point is the construction of a derived threat
// event, which copies the trigger and stamps the threat marker. The payload is
// a closed tagged union: every shape the sensors can produce has exactly one
// variant here and exactly one EventKind.
package types

import (
	"encoding/json"
	"time"
)

// MaxCaptureLen is the fixed capacity of the raw payload capture carried by
// Send and Receive events. The kernel probe copies at most this many bytes;
// the logical length of the message is reported separately in DataLen and may
// exceed it.
const MaxCaptureLen = 4096

// Event is a single observation flowing through the pipeline.
type Event struct {
	Header  Header
	Payload Payload
}

// Header carries event identity and provenance.
type Header struct {
	EventID   EventID   `json:"event_id"`
	Pid       uint32    `json:"pid"`
	Timestamp time.Time `json:"timestamp"`

	// Threat is set exactly once, on derived threat events. An event whose
	// header already carries a threat marker is never re-evaluated by the
	// detection engine.
	Threat *ThreatInfo `json:"threat,omitempty"`
}

// ThreatInfo marks an event as the derived output of a rule match.
type ThreatInfo struct {
	Source   string            `json:"source"`           // emitting module, e.g. "rules-engine"
	RuleName string            `json:"rule_name"`        // name of the matched rule
	Detail   map[string]string `json:"detail,omitempty"` // reserved for future structured detail
}

// Proto identifies the transport protocol of a Send/Receive observation.
type Proto uint8

const (
	ProtoTCP Proto = iota
	ProtoUDP
)

// String returns the protocol name as exposed to the condition language.
func (p Proto) String() string {
	if p == ProtoUDP {
		return "UDP"
	}
	return "TCP"
}

// MarshalJSON emits the protocol name rather than the enum value.
func (p Proto) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// Payload is the closed tagged union of event shapes. Implementations live in
// this package only; Kind is total over all variants.
type Payload interface {
	Kind() EventKind
}

// ExecPayload describes a program execution observed by the exec sensor.
type ExecPayload struct {
	Filename string   `json:"filename"`
	Argc     int      `json:"argc"`
	Argv     []string `json:"argv,omitempty"`
}

// BindPayload describes a socket bound to a local address.
type BindPayload struct {
	Addr Addr `json:"addr"`
}

// ConnectPayload describes an outbound connection attempt.
type ConnectPayload struct {
	Dst Addr `json:"dst"`
}

// AcceptPayload describes an accepted inbound connection.
type AcceptPayload struct {
	Src Addr `json:"src"`
	Dst Addr `json:"dst"`
}

// SendPayload describes outgoing socket data. Src and Dst indicate the
// communication sides rather than the origin of the message. Data holds the
// captured prefix of the message (at most MaxCaptureLen bytes); DataLen is the
// logical message length and may exceed len(Data) when the capture was
// truncated.
type SendPayload struct {
	Src     Addr   `json:"src"`
	Dst     Addr   `json:"dst"`
	Data    []byte `json:"data,omitempty"`
	DataLen uint32 `json:"data_len"`
	Proto   Proto  `json:"proto"`
}

// ReceivePayload describes incoming socket data, with the same capture
// semantics as SendPayload.
type ReceivePayload struct {
	Src     Addr   `json:"src"`
	Dst     Addr   `json:"dst"`
	Data    []byte `json:"data,omitempty"`
	DataLen uint32 `json:"data_len"`
	Proto   Proto  `json:"proto"`
}

// ClosePayload describes a TCP connection teardown. OriginalPid is the process
// that owned the connection at creation, not the process in whose context the
// teardown probe fired; the two differ when the owner was killed before the
// state transition was observed.
type ClosePayload struct {
	OriginalPid uint32 `json:"original_pid"`
	Src         Addr   `json:"src"`
	Dst         Addr   `json:"dst"`
}

// DNSQuestion is one question section entry of a reconstructed DNS message.
type DNSQuestion struct {
	Name   string `json:"name"`
	Qtype  string `json:"qtype"`
	Qclass string `json:"qclass"`
}

// DNSAnswer is one answer section entry of a reconstructed DNS message.
type DNSAnswer struct {
	Name  string `json:"name"`
	Class string `json:"class"`
	TTL   uint32 `json:"ttl"`
	Data  string `json:"data"`
}

// DNSQueryPayload is a reconstructed DNS message carrying questions and no
// answers.
type DNSQueryPayload struct {
	Questions []DNSQuestion `json:"questions"`
}

// DNSResponsePayload is a reconstructed DNS message carrying answers; the
// question list may be empty.
type DNSResponsePayload struct {
	Questions []DNSQuestion `json:"questions"`
	Answers   []DNSAnswer   `json:"answers"`
}

func (ExecPayload) Kind() EventKind        { return KindExec }
func (BindPayload) Kind() EventKind        { return KindBind }
func (ConnectPayload) Kind() EventKind     { return KindConnect }
func (AcceptPayload) Kind() EventKind      { return KindAccept }
func (SendPayload) Kind() EventKind        { return KindSend }
func (ReceivePayload) Kind() EventKind     { return KindReceive }
func (ClosePayload) Kind() EventKind       { return KindClose }
func (DNSQueryPayload) Kind() EventKind    { return KindDNSQuery }
func (DNSResponsePayload) Kind() EventKind { return KindDNSResponse }

// DerivedThreat builds the derived threat event for a rule match: a copy of
// the triggering event with a fresh identity and the threat marker set. The
// trigger itself is never mutated.
func DerivedThreat(src *Event, source, ruleName string, detail map[string]string) *Event {
	derived := *src
	derived.Header.EventID = NewEventID()
	derived.Header.Threat = &ThreatInfo{
		Source:   source,
		RuleName: ruleName,
		Detail:   detail,
	}
	return &derived
}
