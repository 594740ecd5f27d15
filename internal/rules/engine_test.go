package rules

import (
	"testing"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/hostguard/hostguard/internal/types"
)

// captureSender records every derived threat emission in order.
type captureSender struct {
	emitted []capturedThreat
}

type capturedThreat struct {
	src      *types.Event
	ruleName string
}

func (s *captureSender) SendThreatDerived(src *types.Event, ruleName string, detail map[string]string) {
	s.emitted = append(s.emitted, capturedThreat{src: src, ruleName: ruleName})
}

func TestEngine_EmitsOnMatch(t *testing.T) {
	sender := &captureSender{}
	engine, err := NewEngineFromRules([]RawRule{
		{Name: "Open netcat", Type: "Exec", Condition: `payload.filename == "/usr/bin/nc"`},
	}, sender, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngineFromRules() error = %v, want nil", err)
	}

	ev := execEvent("/usr/bin/nc", 2)
	engine.Process(ev)

	if len(sender.emitted) != 1 {
		t.Fatalf("emitted %d threats, want 1", len(sender.emitted))
	}
	if sender.emitted[0].ruleName != "Open netcat" {
		t.Errorf("ruleName = %q, want Open netcat", sender.emitted[0].ruleName)
	}
	if sender.emitted[0].src != ev {
		t.Errorf("src = %p, want the trigger event %p", sender.emitted[0].src, ev)
	}
}

func TestEngine_OneThreatPerMatchedRule(t *testing.T) {
	sender := &captureSender{}
	engine, err := NewEngineFromRules([]RawRule{
		{Name: "any exec", Type: "Exec", Condition: "payload.argc >= 0"},
		{Name: "netcat", Type: "Exec", Condition: `payload.filename == "/usr/bin/nc"`},
		{Name: "huge argv", Type: "Exec", Condition: "payload.argc > 100"},
	}, sender, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngineFromRules() error = %v, want nil", err)
	}

	engine.Process(execEvent("/usr/bin/nc", 2))

	if len(sender.emitted) != 2 {
		t.Fatalf("emitted %d threats, want 2", len(sender.emitted))
	}
	if sender.emitted[0].ruleName != "any exec" || sender.emitted[1].ruleName != "netcat" {
		t.Errorf("emission order = [%s, %s], want [any exec, netcat]",
			sender.emitted[0].ruleName, sender.emitted[1].ruleName)
	}
}

func TestEngine_SkipsMarkedEvents(t *testing.T) {
	// A derived threat event coming back around must never retrigger the rule
	// that produced it.
	sender := &captureSender{}
	engine, err := NewEngineFromRules([]RawRule{
		{Name: "any exec", Type: "Exec", Condition: "payload.argc >= 0"},
	}, sender, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngineFromRules() error = %v, want nil", err)
	}

	trigger := execEvent("/usr/bin/nc", 2)
	engine.Process(trigger)
	if len(sender.emitted) != 1 {
		t.Fatalf("emitted %d threats on trigger, want 1", len(sender.emitted))
	}

	derived := types.DerivedThreat(trigger, "rules-engine", "any exec", nil)
	engine.Process(derived)
	if len(sender.emitted) != 1 {
		t.Errorf("emitted %d threats after re-entry, want still 1", len(sender.emitted))
	}
}

func TestEngine_PassThroughWithoutRuleset(t *testing.T) {
	sender := &captureSender{}
	engine, err := NewEngineFromRules([]RawRule{
		{Name: "netcat", Type: "Exec", Condition: `payload.filename == "/usr/bin/nc"`},
	}, sender, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngineFromRules() error = %v, want nil", err)
	}

	engine.Process(connectEvent(0x0a000005, 4444))

	if len(sender.emitted) != 0 {
		t.Errorf("emitted %d threats for unruled kind, want 0", len(sender.emitted))
	}
}

func TestNewEngine_LoadsFromFilesystem(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeRuleFile(t, fsys, "/etc/rules/netcat.yaml", `
- name: Open netcat
  type: Exec
  condition: payload.filename == "/usr/bin/nc"
`)

	sender := &captureSender{}
	engine, err := NewEngine(fsys, "/etc/rules", sender, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v, want nil", err)
	}

	engine.Process(execEvent("/usr/bin/nc", 2))
	if len(sender.emitted) != 1 {
		t.Errorf("emitted %d threats, want 1", len(sender.emitted))
	}
}

func TestNewEngine_BadRuleAbortsConstruction(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeRuleFile(t, fsys, "/etc/rules/bad.yaml", `
- name: broken
  type: Exec
  condition: payload.nonexistent == 1
`)

	_, err := NewEngine(fsys, "/etc/rules", &captureSender{}, zap.NewNop())
	if err == nil {
		t.Fatalf("NewEngine() error = nil, want compile failure")
	}
}
