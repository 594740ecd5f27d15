package bus

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/hostguard/hostguard/internal/core/metrics"
	"github.com/hostguard/hostguard/internal/types"
)

/*
 * NATS adapter for the external event bus.
 *
 * Mirrors every dispatched event as JSON onto a subject hierarchy:
 * primary events on <prefix>.events.<kind>, derived threats on
 * <prefix>.threats. Publishing is fire-and-forget per the engine's
 * side-effect policy: a failed publish is counted and logged, never
 * retried here.
 */

// NATSPublisher publishes bus events to a NATS server.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	log    *zap.Logger
}

// NewNATSPublisher connects to the NATS server at url. Subjects are rooted
// at prefix (e.g. "hostguard").
func NewNATSPublisher(url, prefix string, log *zap.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("hostguard"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: conn, prefix: prefix, log: log}, nil
}

// envelope is the wire form of an event.
type envelope struct {
	Header  types.Header  `json:"header"`
	Kind    string        `json:"kind"`
	Payload types.Payload `json:"payload"`
}

// Publish mirrors one event to NATS. Safe to register as a bus subscriber.
func (p *NATSPublisher) Publish(ev *types.Event) {
	body, err := json.Marshal(envelope{
		Header:  ev.Header,
		Kind:    ev.Payload.Kind().String(),
		Payload: ev.Payload,
	})
	if err != nil {
		metrics.PublishFailures.Inc()
		p.log.Warn("failed to encode event", zap.Error(err))
		return
	}

	if err := p.conn.Publish(p.subject(ev), body); err != nil {
		metrics.PublishFailures.Inc()
		p.log.Warn("failed to publish event", zap.Error(err))
	}
}

func (p *NATSPublisher) subject(ev *types.Event) string {
	if ev.Header.Threat != nil {
		return p.prefix + ".threats"
	}
	return p.prefix + ".events." + strings.ToLower(ev.Payload.Kind().String())
}

// Close flushes pending publishes and drops the connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.log.Warn("failed to drain NATS connection", zap.Error(err))
	}
}
