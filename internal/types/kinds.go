package types

/*
 * Event kind enumeration.
 *
 * EventKind is the closed discriminant over payload shapes used for ruleset
 * dispatch. Payload.Kind() is total: every variant maps to exactly one kind.
 * ParseEventKind is the explicit string-to-kind mapping used when resolving
 * the `type` field of user rules; unrecognized names return
 * ErrUnknownEventKind rather than a zero value.
 */

// EventKind identifies a payload shape.
type EventKind int

const (
	KindExec EventKind = iota
	KindBind
	KindConnect
	KindAccept
	KindSend
	KindReceive
	KindClose
	KindDNSQuery
	KindDNSResponse
)

// kindNames is the fixed vocabulary accepted in rule files. The names double
// as the variant qualifiers of the condition language.
var kindNames = map[EventKind]string{
	KindExec:        "Exec",
	KindBind:        "Bind",
	KindConnect:     "Connect",
	KindAccept:      "Accept",
	KindSend:        "Send",
	KindReceive:     "Receive",
	KindClose:       "Close",
	KindDNSQuery:    "DnsQuery",
	KindDNSResponse: "DnsResponse",
}

var kindsByName = func() map[string]EventKind {
	m := make(map[string]EventKind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// String returns the rule-file name of the kind.
func (k EventKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// ParseEventKind maps a rule `type` string to its EventKind.
// Returns ErrUnknownEventKind for names outside the fixed vocabulary.
func ParseEventKind(name string) (EventKind, error) {
	k, ok := kindsByName[name]
	if !ok {
		return 0, ErrUnknownEventKind
	}
	return k, nil
}

// Kinds returns all supported kinds in declaration order.
func Kinds() []EventKind {
	return []EventKind{
		KindExec, KindBind, KindConnect, KindAccept, KindSend,
		KindReceive, KindClose, KindDNSQuery, KindDNSResponse,
	}
}
