// Package metrics exposes hostguard's Prometheus instrumentation.
//
// Counters register on the default registry at package load; the run command
// serves them via promhttp. Collectors are package-level so instrumented code
// increments without plumbing a registry handle through constructors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsEvaluated counts events offered to the detection engine,
	// excluding derived threat events discarded by loop prevention.
	EventsEvaluated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hostguard_events_evaluated_total",
		Help: "Events evaluated by the detection engine.",
	})

	// ThreatsEmitted counts derived threat events, one per matched rule.
	ThreatsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hostguard_threats_emitted_total",
		Help: "Derived threat events emitted by the detection engine.",
	})

	// RecordsSynthesized counts kernel records turned into typed events.
	RecordsSynthesized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hostguard_sensor_records_total",
		Help: "Kernel probe records synthesized into events, by kind.",
	}, []string{"kind"})

	// DecodeFailures counts kernel records that failed to decode.
	DecodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hostguard_sensor_decode_failures_total",
		Help: "Kernel probe records dropped due to decode failure.",
	})

	// DNSReconstructed counts Send/Receive captures recognized as DNS.
	DNSReconstructed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hostguard_sensor_dns_reconstructed_total",
		Help: "DNS messages reconstructed from socket captures, by kind.",
	}, []string{"kind"})

	// PublishFailures counts events the external bus failed to accept.
	PublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hostguard_bus_publish_failures_total",
		Help: "Events the external bus adapter failed to publish.",
	})
)
