//go:build linux

package sensor

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/features"
	"github.com/cilium/ebpf/link"
	"github.com/cilium/ebpf/ringbuf"
	"github.com/cilium/ebpf/rlimit"
	"go.uber.org/zap"
)

/*
 * Probe attachment for Linux.
 *
 * Loads the compiled BPF object and attaches the socket probe set:
 * tracepoints for the accept/receive syscall exits, a kprobe on
 * tcp_set_state for teardown, and the security hooks for bind, connect,
 * accept, sendmsg and recvmsg. When BPF LSM is available the security hooks
 * attach as LSM programs; otherwise the matching security_* kprobes
 * substitute one-for-one. Both groups fill the identical record layout, so
 * downstream consumers never learn which group fired.
 *
 * Any attachment failure is fatal; the sensor does not run with a partial
 * probe set.
 */

// tracepointHook names one syscall tracepoint and its program in the object.
type tracepointHook struct {
	group   string
	name    string
	program string
}

var tracepointHooks = []tracepointHook{
	{"syscalls", "sys_exit_accept4", "tp_exit_accept4"},
	{"syscalls", "sys_exit_accept", "tp_exit_accept"},
	{"syscalls", "sys_exit_recvmsg", "tp_exit_recvmsg"},
	{"syscalls", "sys_exit_recvmmsg", "tp_exit_recvmmsg"},
	{"syscalls", "sys_enter_recvfrom", "tp_enter_recvfrom"},
	{"syscalls", "sys_exit_recvfrom", "tp_exit_recvfrom"},
	{"syscalls", "sys_exit_read", "tp_exit_read"},
	{"syscalls", "sys_exit_readv", "tp_exit_readv"},
}

// securityHook names one security hook in both its LSM and kprobe forms.
type securityHook struct {
	lsmProgram    string
	kprobeSymbol  string
	kprobeProgram string
}

var securityHooks = []securityHook{
	{"lsm_socket_bind", "security_socket_bind", "kprobe_socket_bind"},
	{"lsm_socket_connect", "security_socket_connect", "kprobe_socket_connect"},
	{"lsm_socket_accept", "security_socket_accept", "kprobe_socket_accept"},
	{"lsm_socket_sendmsg", "security_socket_sendmsg", "kprobe_socket_sendmsg"},
	{"lsm_socket_recvmsg", "security_socket_recvmsg", "kprobe_socket_recvmsg"},
}

const teardownProgram = "kprobe_tcp_set_state"

// eventsMap is the ring buffer the probes write records into.
const eventsMap = "events"

// openProbes loads the BPF object, attaches every hook and returns the
// record source plus the wall-clock instant of boot (probe timestamps are
// CLOCK_BOOTTIME nanoseconds).
func openProbes(cfg Config, log *zap.Logger) (RecordSource, time.Time, error) {
	if err := rlimit.RemoveMemlock(); err != nil {
		return nil, time.Time{}, fmt.Errorf("removing memlock limit: %w", err)
	}

	spec, err := ebpf.LoadCollectionSpec(cfg.ObjectPath)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("loading BPF object %s: %w", cfg.ObjectPath, err)
	}

	coll, err := ebpf.NewCollection(spec)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("loading BPF collection: %w", err)
	}

	src := &ebpfSource{coll: coll}

	if err := src.attach(log); err != nil {
		src.Close()
		return nil, time.Time{}, err
	}

	reader, err := ringbuf.NewReader(coll.Maps[eventsMap])
	if err != nil {
		src.Close()
		return nil, time.Time{}, fmt.Errorf("opening ring buffer: %w", err)
	}
	src.reader = reader

	bootTime, err := bootEpoch()
	if err != nil {
		src.Close()
		return nil, time.Time{}, err
	}

	return src, bootTime, nil
}

// ebpfSource owns the loaded collection, its attachments and the ring
// buffer reader.
type ebpfSource struct {
	coll    *ebpf.Collection
	links   []link.Link
	reader  *ringbuf.Reader
	closeMu sync.Once
}

// attach wires every hook, choosing the LSM group when the kernel supports
// BPF LSM and the kprobe substitution otherwise.
func (s *ebpfSource) attach(log *zap.Logger) error {
	for _, h := range tracepointHooks {
		prog, err := s.program(h.program)
		if err != nil {
			return err
		}
		l, err := link.Tracepoint(h.group, h.name, prog, nil)
		if err != nil {
			return fmt.Errorf("attaching tracepoint %s/%s: %w", h.group, h.name, err)
		}
		s.links = append(s.links, l)
	}

	teardown, err := s.program(teardownProgram)
	if err != nil {
		return err
	}
	l, err := link.Kprobe("tcp_set_state", teardown, nil)
	if err != nil {
		return fmt.Errorf("attaching kprobe tcp_set_state: %w", err)
	}
	s.links = append(s.links, l)

	useLSM := lsmSupported()
	log.Info("selected security hook group", zap.Bool("lsm", useLSM))

	for _, h := range securityHooks {
		if useLSM {
			prog, err := s.program(h.lsmProgram)
			if err != nil {
				return err
			}
			l, err := link.AttachLSM(link.LSMOptions{Program: prog})
			if err != nil {
				return fmt.Errorf("attaching LSM program %s: %w", h.lsmProgram, err)
			}
			s.links = append(s.links, l)
			continue
		}
		prog, err := s.program(h.kprobeProgram)
		if err != nil {
			return err
		}
		l, err := link.Kprobe(h.kprobeSymbol, prog, nil)
		if err != nil {
			return fmt.Errorf("attaching kprobe %s: %w", h.kprobeSymbol, err)
		}
		s.links = append(s.links, l)
	}

	return nil
}

func (s *ebpfSource) program(name string) (*ebpf.Program, error) {
	prog, ok := s.coll.Programs[name]
	if !ok {
		return nil, fmt.Errorf("BPF object missing program %s", name)
	}
	return prog, nil
}

// Read blocks for the next kernel record. Returns os.ErrClosed after Close.
func (s *ebpfSource) Read() ([]byte, error) {
	rec, err := s.reader.Read()
	if err != nil {
		return nil, err
	}
	return rec.RawSample, nil
}

// Close detaches everything. Safe to call more than once.
func (s *ebpfSource) Close() error {
	s.closeMu.Do(func() {
		if s.reader != nil {
			s.reader.Close()
		}
		for _, l := range s.links {
			l.Close()
		}
		s.coll.Close()
	})
	return nil
}

// lsmSupported reports whether the kernel accepts BPF LSM programs.
func lsmSupported() bool {
	return features.HaveProgramType(ebpf.LSM) == nil
}

// bootEpoch derives the wall-clock instant of boot from /proc/uptime so
// CLOCK_BOOTTIME record timestamps convert to absolute time.
func bootEpoch() (time.Time, error) {
	body, err := os.ReadFile("/proc/uptime")
	if err != nil {
		return time.Time{}, fmt.Errorf("reading /proc/uptime: %w", err)
	}
	fields := strings.Fields(string(body))
	if len(fields) == 0 {
		return time.Time{}, fmt.Errorf("unexpected /proc/uptime contents %q", body)
	}
	uptime, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing /proc/uptime: %w", err)
	}
	return time.Now().Add(-time.Duration(uptime * float64(time.Second))), nil
}
