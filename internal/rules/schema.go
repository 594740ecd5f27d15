package rules

import (
	"github.com/hostguard/hostguard/internal/types"
)

/*
 * Declared payload shapes for field-path resolution.
 *
 * The condition language resolves dotted field paths against these tables at
 * compile time, so an unknown field or a type mismatch is rejected when the
 * rule is compiled rather than surfacing (or silently failing) per event.
 *
 * Each event kind maps its addressable fields to a static type and an
 * accessor closure over the concrete payload variant. An accessor is only
 * ever invoked on events of its own kind; the engine dispatches by kind
 * before evaluation, so the type assertions cannot fail.
 */

// FieldType is the static type of an addressable payload field.
type FieldType int

const (
	FieldTypeString FieldType = iota
	FieldTypeInt
	FieldTypeBool
)

// String names the field type for error messages.
func (t FieldType) String() string {
	switch t {
	case FieldTypeString:
		return "string"
	case FieldTypeInt:
		return "int"
	default:
		return "bool"
	}
}

// fieldSpec declares one addressable field of a payload variant.
type fieldSpec struct {
	typ FieldType
	get func(ev *types.Event) any
}

func addrFields(prefix string, get func(ev *types.Event) types.Addr) map[string]fieldSpec {
	return map[string]fieldSpec{
		prefix + ".ip": {
			typ: FieldTypeString,
			get: func(ev *types.Event) any { return get(ev).IP() },
		},
		prefix + ".port": {
			typ: FieldTypeInt,
			get: func(ev *types.Event) any { return int64(get(ev).Port()) },
		},
	}
}

func merge(tables ...map[string]fieldSpec) map[string]fieldSpec {
	out := make(map[string]fieldSpec)
	for _, t := range tables {
		for name, spec := range t {
			out[name] = spec
		}
	}
	return out
}

// payloadFields declares, per event kind, every field a condition may address
// below the `payload.` root.
var payloadFields = map[types.EventKind]map[string]fieldSpec{
	types.KindExec: {
		"filename": {FieldTypeString, func(ev *types.Event) any {
			return ev.Payload.(types.ExecPayload).Filename
		}},
		"argc": {FieldTypeInt, func(ev *types.Event) any {
			return int64(ev.Payload.(types.ExecPayload).Argc)
		}},
	},
	types.KindBind: addrFields("addr", func(ev *types.Event) types.Addr {
		return ev.Payload.(types.BindPayload).Addr
	}),
	types.KindConnect: addrFields("dst", func(ev *types.Event) types.Addr {
		return ev.Payload.(types.ConnectPayload).Dst
	}),
	types.KindAccept: merge(
		addrFields("src", func(ev *types.Event) types.Addr {
			return ev.Payload.(types.AcceptPayload).Src
		}),
		addrFields("dst", func(ev *types.Event) types.Addr {
			return ev.Payload.(types.AcceptPayload).Dst
		}),
	),
	types.KindSend: merge(
		addrFields("src", func(ev *types.Event) types.Addr {
			return ev.Payload.(types.SendPayload).Src
		}),
		addrFields("dst", func(ev *types.Event) types.Addr {
			return ev.Payload.(types.SendPayload).Dst
		}),
		map[string]fieldSpec{
			"data_len": {FieldTypeInt, func(ev *types.Event) any {
				return int64(ev.Payload.(types.SendPayload).DataLen)
			}},
			"proto": {FieldTypeString, func(ev *types.Event) any {
				return ev.Payload.(types.SendPayload).Proto.String()
			}},
		},
	),
	types.KindReceive: merge(
		addrFields("src", func(ev *types.Event) types.Addr {
			return ev.Payload.(types.ReceivePayload).Src
		}),
		addrFields("dst", func(ev *types.Event) types.Addr {
			return ev.Payload.(types.ReceivePayload).Dst
		}),
		map[string]fieldSpec{
			"data_len": {FieldTypeInt, func(ev *types.Event) any {
				return int64(ev.Payload.(types.ReceivePayload).DataLen)
			}},
			"proto": {FieldTypeString, func(ev *types.Event) any {
				return ev.Payload.(types.ReceivePayload).Proto.String()
			}},
		},
	),
	types.KindClose: merge(
		addrFields("src", func(ev *types.Event) types.Addr {
			return ev.Payload.(types.ClosePayload).Src
		}),
		addrFields("dst", func(ev *types.Event) types.Addr {
			return ev.Payload.(types.ClosePayload).Dst
		}),
		map[string]fieldSpec{
			"original_pid": {FieldTypeInt, func(ev *types.Event) any {
				return int64(ev.Payload.(types.ClosePayload).OriginalPid)
			}},
		},
	),
	types.KindDNSQuery: {
		// Question lists are not addressable by the scalar condition
		// language; rules gate on the counts instead.
		"question_count": {FieldTypeInt, func(ev *types.Event) any {
			return int64(len(ev.Payload.(types.DNSQueryPayload).Questions))
		}},
	},
	types.KindDNSResponse: {
		"question_count": {FieldTypeInt, func(ev *types.Event) any {
			return int64(len(ev.Payload.(types.DNSResponsePayload).Questions))
		}},
		"answer_count": {FieldTypeInt, func(ev *types.Event) any {
			return int64(len(ev.Payload.(types.DNSResponsePayload).Answers))
		}},
	},
}

// lookupField resolves a dotted field name against the declared shape of an
// event kind. Returns types.ErrUnknownField when the kind does not declare it.
func lookupField(kind types.EventKind, name string) (fieldSpec, error) {
	fields, ok := payloadFields[kind]
	if !ok {
		return fieldSpec{}, types.ErrUnknownField
	}
	spec, ok := fields[name]
	if !ok {
		return fieldSpec{}, types.ErrUnknownField
	}
	return spec, nil
}
