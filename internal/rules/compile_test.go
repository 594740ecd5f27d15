package rules

import (
	"errors"
	"testing"
	"time"

	"github.com/hostguard/hostguard/internal/types"
)

func execEvent(filename string, argc int) *types.Event {
	return &types.Event{
		Header: types.Header{
			EventID:   types.NewEventID(),
			Pid:       4242,
			Timestamp: time.Now(),
		},
		Payload: types.ExecPayload{Filename: filename, Argc: argc},
	}
}

func connectEvent(ip uint32, port uint16) *types.Event {
	return &types.Event{
		Header: types.Header{
			EventID:   types.NewEventID(),
			Pid:       4242,
			Timestamp: time.Now(),
		},
		Payload: types.ConnectPayload{Dst: types.AddrFromHostV4(ip, port)},
	}
}

func TestCompile_ExecFilename(t *testing.T) {
	compiled, err := NewCompiler().Compile("Exec", `payload.filename == "/usr/bin/nc"`)
	if err != nil {
		t.Fatalf("Compile() error = %v, want nil", err)
	}

	if !compiled.Match(execEvent("/usr/bin/nc", 3)) {
		t.Errorf("Match(/usr/bin/nc) = false, want true")
	}
	if compiled.Match(execEvent("/usr/bin/ncdu", 1)) {
		t.Errorf("Match(/usr/bin/ncdu) = true, want false")
	}
}

func TestCompile_ConnectDst(t *testing.T) {
	compiled, err := NewCompiler().Compile("Connect", `payload.dst.ip == "10.0.0.5" && payload.dst.port >= 4000`)
	if err != nil {
		t.Fatalf("Compile() error = %v, want nil", err)
	}

	tests := []struct {
		name string
		ip   uint32
		port uint16
		want bool
	}{
		{"match", 0x0a000005, 4444, true},
		{"port below threshold", 0x0a000005, 80, false},
		{"different host", 0x0a000006, 4444, false},
		{"port at threshold", 0x0a000005, 4000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := compiled.Match(connectEvent(tt.ip, tt.port)); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompile_NumericOperators(t *testing.T) {
	tests := []struct {
		condition string
		argc      int
		want      bool
	}{
		{"payload.argc == 2", 2, true},
		{"payload.argc != 2", 2, false},
		{"payload.argc < 2", 1, true},
		{"payload.argc <= 2", 2, true},
		{"payload.argc > 2", 3, true},
		{"payload.argc >= 2", 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.condition, func(t *testing.T) {
			compiled, err := NewCompiler().Compile("Exec", tt.condition)
			if err != nil {
				t.Fatalf("Compile(%q) error = %v, want nil", tt.condition, err)
			}
			if got := compiled.Match(execEvent("/bin/sh", tt.argc)); got != tt.want {
				t.Errorf("Match(argc=%d) = %v, want %v", tt.argc, got, tt.want)
			}
		})
	}
}

func TestCompile_NotAndOr(t *testing.T) {
	compiled, err := NewCompiler().Compile("Exec",
		`!(payload.filename == "/bin/sh") || payload.argc > 10`)
	if err != nil {
		t.Fatalf("Compile() error = %v, want nil", err)
	}

	if !compiled.Match(execEvent("/bin/bash", 1)) {
		t.Errorf("Match(other filename) = false, want true")
	}
	if compiled.Match(execEvent("/bin/sh", 1)) {
		t.Errorf("Match(/bin/sh, argc=1) = true, want false")
	}
	if !compiled.Match(execEvent("/bin/sh", 11)) {
		t.Errorf("Match(/bin/sh, argc=11) = false, want true")
	}
}

func TestCompile_UnknownPayloadType(t *testing.T) {
	_, err := NewCompiler().Compile("FileCreated", `payload.filename == "x"`)

	var typeErr *PayloadTypeError
	if !errors.As(err, &typeErr) {
		t.Fatalf("Compile() error = %v, want *PayloadTypeError", err)
	}
	if typeErr.Name != "FileCreated" {
		t.Errorf("Name = %q, want FileCreated", typeErr.Name)
	}
}

func TestCompile_ResolutionErrors(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		condition string
		wantErr   error
	}{
		{
			name:      "unknown field",
			eventType: "Exec",
			condition: `payload.checksum == "abc"`,
			wantErr:   types.ErrUnknownField,
		},
		{
			name:      "field from another variant",
			eventType: "Exec",
			condition: `payload.dst.port == 80`,
			wantErr:   types.ErrUnknownField,
		},
		{
			name:      "number literal on string field",
			eventType: "Exec",
			condition: `payload.filename == 3`,
			wantErr:   types.ErrLiteralMismatch,
		},
		{
			name:      "string literal on int field",
			eventType: "Exec",
			condition: `payload.argc == "2"`,
			wantErr:   types.ErrLiteralMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCompiler().Compile(tt.eventType, tt.condition)
			if err == nil {
				t.Fatalf("Compile() error = nil, want %v", tt.wantErr)
			}

			var condErr *ConditionError
			if !errors.As(err, &condErr) {
				t.Fatalf("Compile() error = %v, want *ConditionError", err)
			}
			if condErr.Condition != tt.condition {
				t.Errorf("Condition = %q, want %q", condErr.Condition, tt.condition)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("errors.Is(%v, %v) = false, want true", err, tt.wantErr)
			}
		})
	}
}

func TestCompile_SyntaxErrorWrapped(t *testing.T) {
	_, err := NewCompiler().Compile("Exec", `payload.filename ==`)

	var condErr *ConditionError
	if !errors.As(err, &condErr) {
		t.Fatalf("Compile() error = %v, want *ConditionError", err)
	}
}
