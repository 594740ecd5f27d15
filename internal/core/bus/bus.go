// Package bus connects sensors, the detection engine and external transports.
//
// The Bus is an unbounded FIFO queue fanned out to subscribers in
// subscription order. Within one producer's stream, delivery order is
// preserved end to end; no ordering is guaranteed across producers. Derived
// threat events travel the same queue as primary events, which is why the
// detection engine's loop-prevention check matters: its own output comes
// back around. The queue is unbounded so a handler may safely emit while a
// dispatch is in progress.
package bus

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hostguard/hostguard/internal/types"
)

// threatSource identifies the rule engine as the origin of derived events.
const threatSource = "rules-engine"

// Bus is the in-process event bus. Subscribe before calling Run; the
// subscriber list is fixed once the dispatch loop starts.
type Bus struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []*types.Event
	closed bool

	subs []func(*types.Event)
	log  *zap.Logger
}

// New creates an event bus.
func New(log *zap.Logger) *Bus {
	b := &Bus{log: log}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Subscribe registers a handler invoked for every event, in subscription
// order. Not safe to call after Run has started.
func (b *Bus) Subscribe(fn func(*types.Event)) {
	b.subs = append(b.subs, fn)
}

// Run dispatches queued events to subscribers until Close is called and the
// queue drains. Handlers run on the dispatch goroutine.
func (b *Bus) Run() {
	for {
		b.mu.Lock()
		for len(b.queue) == 0 && !b.closed {
			b.cond.Wait()
		}
		if len(b.queue) == 0 {
			b.mu.Unlock()
			return
		}
		ev := b.queue[0]
		b.queue = b.queue[1:]
		b.mu.Unlock()

		for _, fn := range b.subs {
			fn(ev)
		}
	}
}

// Close stops dispatch once in-flight events drain. Events sent after Close
// are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.cond.Broadcast()
}

// Emit constructs and dispatches an event for a sensor observation.
func (b *Bus) Emit(pid uint32, ts time.Time, payload types.Payload) {
	b.SendEvent(&types.Event{
		Header: types.Header{
			EventID:   types.NewEventID(),
			Pid:       pid,
			Timestamp: ts,
		},
		Payload: payload,
	})
}

// SendEvent enqueues a fully built event. Never blocks; handlers may call
// it mid-dispatch.
func (b *Bus) SendEvent(ev *types.Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.log.Debug("dropping event sent after bus close",
			zap.String("kind", ev.Payload.Kind().String()))
		return
	}
	b.queue = append(b.queue, ev)
	b.mu.Unlock()
	b.cond.Signal()
}

// SendThreatDerived builds the derived threat event for a rule match and
// dispatches it. Implements rules.ThreatSender.
func (b *Bus) SendThreatDerived(src *types.Event, ruleName string, detail map[string]string) {
	b.SendEvent(types.DerivedThreat(src, threatSource, ruleName, detail))
}
