package sensor

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/hostguard/hostguard/internal/types"
)

/*
 * Raw kernel record decoding.
 *
 * The probe emits one fixed-layout record per socket operation. The layout
 * mirrors the C struct in the probe source; both hook groups (LSM and the
 * security_* kprobe fallback) fill the identical struct, so the decoder is
 * agnostic to which probe fired.
 *
 * Address handling: the probe reports IPv4 addresses as a 32-bit host-order
 * integer and IPv6 addresses as the native 16 bytes. Conversion to the
 * octet form happens here, once, before anything downstream sees the value.
 *
 * Capture handling: CapLen is how many payload bytes the probe actually
 * copied (bounded by the 4096-byte buffer); DataLen is the logical message
 * length and may exceed CapLen. Both are preserved as distinct fields.
 */

// Raw operation codes emitted by the probe.
const (
	rawOpBind uint32 = iota
	rawOpConnect
	rawOpAccept
	rawOpSend
	rawOpReceive
	rawOpClose
)

// Address families as reported by the kernel.
const (
	afInet  uint16 = 2
	afInet6 uint16 = 10
)

// rawAddr mirrors the probe's address struct.
type rawAddr struct {
	Family uint16
	Port   uint16
	V4     uint32 // host-order IPv4, valid when Family == afInet
	V6     [16]byte
}

// rawRecord mirrors struct net_event in the probe source. Field order and
// padding must match the C layout exactly.
type rawRecord struct {
	Ktime       uint64 // CLOCK_BOOTTIME ns at observation
	Pid         uint32
	Op          uint32
	OriginalPid uint32 // connection owner at creation, Close only
	Proto       uint8
	_           [3]byte
	Src         rawAddr
	Dst         rawAddr
	DataLen     uint32 // logical message length
	CapLen      uint32 // bytes actually captured, <= MaxCaptureLen
	Data        [types.MaxCaptureLen]byte
}

// record is one decoded observation ready for emission.
type record struct {
	Pid     uint32
	Ktime   uint64
	Payload types.Payload
}

// decodeRecord parses one ring-buffer sample into a typed payload.
func decodeRecord(sample []byte) (record, error) {
	var raw rawRecord
	if err := binary.Read(bytes.NewReader(sample), binary.LittleEndian, &raw); err != nil {
		return record{}, fmt.Errorf("short record (%d bytes): %w", len(sample), err)
	}

	payload, err := payloadOf(&raw)
	if err != nil {
		return record{}, err
	}
	return record{Pid: raw.Pid, Ktime: raw.Ktime, Payload: payload}, nil
}

// payloadOf maps the raw operation code to its payload variant.
func payloadOf(raw *rawRecord) (types.Payload, error) {
	switch raw.Op {
	case rawOpBind:
		addr, err := decodeAddr(raw.Src)
		if err != nil {
			return nil, err
		}
		return types.BindPayload{Addr: addr}, nil
	case rawOpConnect:
		dst, err := decodeAddr(raw.Dst)
		if err != nil {
			return nil, err
		}
		return types.ConnectPayload{Dst: dst}, nil
	case rawOpAccept:
		src, dst, err := decodeAddrPair(raw)
		if err != nil {
			return nil, err
		}
		return types.AcceptPayload{Src: src, Dst: dst}, nil
	case rawOpSend:
		src, dst, err := decodeAddrPair(raw)
		if err != nil {
			return nil, err
		}
		return types.SendPayload{
			Src:     src,
			Dst:     dst,
			Data:    capturedData(raw),
			DataLen: raw.DataLen,
			Proto:   decodeProto(raw.Proto),
		}, nil
	case rawOpReceive:
		src, dst, err := decodeAddrPair(raw)
		if err != nil {
			return nil, err
		}
		return types.ReceivePayload{
			Src:     src,
			Dst:     dst,
			Data:    capturedData(raw),
			DataLen: raw.DataLen,
			Proto:   decodeProto(raw.Proto),
		}, nil
	case rawOpClose:
		src, dst, err := decodeAddrPair(raw)
		if err != nil {
			return nil, err
		}
		// OriginalPid passes through unmodified: the teardown probe may
		// fire under a different or defunct process context.
		return types.ClosePayload{OriginalPid: raw.OriginalPid, Src: src, Dst: dst}, nil
	default:
		return nil, fmt.Errorf("unknown operation code %d", raw.Op)
	}
}

func decodeAddrPair(raw *rawRecord) (types.Addr, types.Addr, error) {
	src, err := decodeAddr(raw.Src)
	if err != nil {
		return types.Addr{}, types.Addr{}, err
	}
	dst, err := decodeAddr(raw.Dst)
	if err != nil {
		return types.Addr{}, types.Addr{}, err
	}
	return src, dst, nil
}

func decodeAddr(a rawAddr) (types.Addr, error) {
	switch a.Family {
	case afInet:
		return types.AddrFromHostV4(a.V4, a.Port), nil
	case afInet6:
		return types.AddrFromV6(a.V6, a.Port), nil
	default:
		return types.Addr{}, fmt.Errorf("unknown address family %d", a.Family)
	}
}

// capturedData copies the captured prefix out of the fixed buffer. CapLen is
// clamped to the buffer capacity; DataLen exceeding it is expected truncation,
// not an error.
func capturedData(raw *rawRecord) []byte {
	n := raw.CapLen
	if n > types.MaxCaptureLen {
		n = types.MaxCaptureLen
	}
	if n == 0 {
		return nil
	}
	data := make([]byte, n)
	copy(data, raw.Data[:n])
	return data
}

func decodeProto(p uint8) types.Proto {
	if p == 1 {
		return types.ProtoUDP
	}
	return types.ProtoTCP
}
