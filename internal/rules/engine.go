package rules

import (
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/hostguard/hostguard/internal/core/metrics"
	"github.com/hostguard/hostguard/internal/types"
)

/*
 * Detection engine.
 *
 * One transition per observed event: classify by payload kind, look up the
 * kind's matcher, evaluate every rule in order, emit one derived threat event
 * per match. No persistent per-event state; the compiled rulesets are built
 * once at construction and never mutated, so Process is safe from any number
 * of concurrent producers without locks.
 *
 * Loop prevention: an event whose header already carries a threat marker is
 * discarded before evaluation. Derived output re-entering the engine through
 * the bus would otherwise retrigger the rule that produced it, indefinitely.
 */

// ThreatSender dispatches derived threat events downstream. Emission is
// fire-and-forget; a failing downstream send is the collaborator's concern.
type ThreatSender interface {
	SendThreatDerived(src *types.Event, ruleName string, detail map[string]string)
}

// Engine evaluates observed events against the compiled rulesets.
type Engine struct {
	rulesets map[types.EventKind]*Ruleset
	sender   ThreatSender
	log      *zap.Logger
}

// NewEngine loads every rule file under rulesDir, compiles the full ruleset
// and returns an immutable engine. Any load or compile failure aborts
// construction; no partial rule set is ever activated.
func NewEngine(fsys afero.Fs, rulesDir string, sender ThreatSender, log *zap.Logger) (*Engine, error) {
	raw, err := LoadDir(fsys, rulesDir)
	if err != nil {
		return nil, err
	}

	rulesets, err := BuildRulesets(raw)
	if err != nil {
		return nil, err
	}

	log.Info("rules compiled",
		zap.Int("rules", len(raw)),
		zap.Int("rulesets", len(rulesets)))

	return &Engine{rulesets: rulesets, sender: sender, log: log}, nil
}

// NewEngineFromRules builds an engine from already-loaded raw rules.
func NewEngineFromRules(raw []RawRule, sender ThreatSender, log *zap.Logger) (*Engine, error) {
	rulesets, err := BuildRulesets(raw)
	if err != nil {
		return nil, err
	}
	return &Engine{rulesets: rulesets, sender: sender, log: log}, nil
}

// Process evaluates one event. For every rule whose predicate holds, exactly
// one derived threat event is emitted naming the matched rule. Events with no
// registered ruleset pass through with no side effect.
func (e *Engine) Process(ev *types.Event) {
	if ev.Header.Threat != nil {
		return
	}

	metrics.EventsEvaluated.Inc()

	ruleset, ok := e.rulesets[ev.Payload.Kind()]
	if !ok {
		return
	}

	for _, rule := range ruleset.Matches(ev) {
		metrics.ThreatsEmitted.Inc()
		e.log.Debug("rule matched",
			zap.String("rule", rule.Name),
			zap.String("kind", ev.Payload.Kind().String()))
		e.sender.SendThreatDerived(ev, rule.Name, nil)
	}
}
