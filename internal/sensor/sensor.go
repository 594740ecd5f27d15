// Package sensor reconstructs structured security events from raw
// kernel-observed socket activity.
//
// A single reception loop per sensor pulls records from the attached probe
// set, decodes them into typed payloads, opportunistically reconstructs DNS
// messages from captured bytes and emits everything through the event bus.
// Probe attachment and the kernel-side bytecode are external collaborators;
// this package drives them through the RecordSource interface.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/hostguard/hostguard/internal/core/metrics"
	"github.com/hostguard/hostguard/internal/types"
)

// Module identity exposed through the registration contract.
const (
	ModuleName    = "network-monitor"
	ModuleVersion = "0.1.0"
)

// Config selects the probe bytecode and capture behavior.
type Config struct {
	// ObjectPath locates the compiled BPF object attached at startup.
	ObjectPath string
}

// Emitter is the send primitive the sensor uses to hand typed events to the
// core, tagged with the originating timestamp and process id.
type Emitter interface {
	Emit(pid uint32, ts time.Time, payload types.Payload)
}

// RecordSource is the narrow interface over the attached probe set. Read
// blocks until the next kernel record; Close unblocks it with os.ErrClosed.
type RecordSource interface {
	Read() ([]byte, error)
	Close() error
}

// Run attaches the socket probe set and pumps records until ctx is
// cancelled. Attachment failure is fatal: the sensor never runs degraded.
// Returns nil on clean shutdown.
func Run(ctx context.Context, cfg Config, emit Emitter, log *zap.Logger) error {
	src, bootTime, err := openProbes(cfg, log)
	if err != nil {
		return fmt.Errorf("module %s: %w", ModuleName, err)
	}

	s := &Sensor{src: src, emit: emit, bootTime: bootTime, log: log}

	// Cooperative shutdown: closing the source unblocks the read loop.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			src.Close()
		case <-done:
		}
	}()
	defer close(done)
	defer src.Close()

	log.Info("sensor started", zap.String("module", ModuleName), zap.String("version", ModuleVersion))
	return s.loop()
}

// Sensor owns one probe reception loop.
type Sensor struct {
	src      RecordSource
	emit     Emitter
	bootTime time.Time
	log      *zap.Logger
}

// loop reads records until the source is closed. Delivery order from the
// kernel is preserved through synthesis: each record's derived DNS event (if
// any) and primary event are emitted back to back before the next read.
func (s *Sensor) loop() error {
	for {
		sample, err := s.src.Read()
		if err != nil {
			if errors.Is(err, os.ErrClosed) {
				return nil
			}
			return fmt.Errorf("reading probe records: %w", err)
		}

		rec, err := decodeRecord(sample)
		if err != nil {
			metrics.DecodeFailures.Inc()
			s.log.Warn("dropping undecodable record", zap.Error(err))
			continue
		}

		ts := s.bootTime.Add(time.Duration(rec.Ktime))
		metrics.RecordsSynthesized.WithLabelValues(rec.Payload.Kind().String()).Inc()

		// Protocol reconstruction runs prior to rule matching: the DNS
		// event reaches the engine before the Send/Receive that carried it.
		if dnsPayload, ok := reconstructDNS(rec.Payload); ok {
			metrics.DNSReconstructed.WithLabelValues(dnsPayload.Kind().String()).Inc()
			s.emit.Emit(rec.Pid, ts, dnsPayload)
		}

		s.emit.Emit(rec.Pid, ts, rec.Payload)
	}
}
