package shm

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// ModuleID identifies one of the five cooperating processes.
type ModuleID uint8

const (
	ModuleNone ModuleID = iota
	ModuleHAL
	ModuleCU
	ModuleRE
	ModuleRPC
	ModuleMQT
)

func (m ModuleID) String() string {
	switch m {
	case ModuleHAL:
		return "hal"
	case ModuleCU:
		return "cu"
	case ModuleRE:
		return "re"
	case ModuleRPC:
		return "rpc"
	case ModuleMQT:
		return "mqt"
	default:
		return "none"
	}
}

// ParseModuleID maps a segment-name abbreviation to its ModuleID.
func ParseModuleID(s string) (ModuleID, bool) {
	switch s {
	case "hal":
		return ModuleHAL, true
	case "cu":
		return ModuleCU, true
	case "re":
		return ModuleRE, true
	case "rpc":
		return ModuleRPC, true
	case "mqt":
		return ModuleMQT, true
	default:
		return ModuleNone, false
	}
}

// SegmentName builds the deterministic evo_<source>_<dest> segment name.
func SegmentName(source, dest ModuleID) string {
	return fmt.Sprintf("evo_%s_%s", source, dest)
}

// Header byte offsets, per spec.md 3.1's wire table. The header is never
// represented as a plain Go struct overlaying the mapped memory: write_seq
// and heartbeat must be read and written with explicit atomics directly
// against the mapped bytes, because the kernel-visible memory is shared
// with another OS process that is mutating it concurrently and outside the
// Go memory model's guarantees. Fixed fields (magic, version, modules,
// payload size) are plain byte reads/writes at fixed offsets instead, in
// the same spirit as the teacher's internal/uapi/marshal.go explicit
// little-endian (de)serialization of kernel wire structs.
const (
	offMagic        = 0
	offVersionHash  = 8
	offHeartbeat    = 12
	offSourceModule = 20
	offDestModule   = 21
	offPayloadSize  = 22
	offWriteSeq     = 26
	offPadding      = 30
)

// headerView is a thin accessor over the first HeaderSize bytes of a mapped
// segment. It never copies the header; every method reads or writes
// directly through the backing slice so atomics observe the live mapping.
type headerView struct {
	b []byte // len(b) >= HeaderSize, backed by the mmap'd region
}

func newHeaderView(mapped []byte) headerView {
	return headerView{b: mapped[:HeaderSize:HeaderSize]}
}

func (h headerView) u32ptr(off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&h.b[off]))
}

func (h headerView) u64ptr(off int) *uint64 {
	return (*uint64)(unsafe.Pointer(&h.b[off]))
}

func (h headerView) magic() [8]byte {
	var m [8]byte
	copy(m[:], h.b[offMagic:offMagic+8])
	return m
}

func (h headerView) setMagic() {
	copy(h.b[offMagic:offMagic+8], segmentMagic[:])
}

func (h headerView) versionHash() uint32 { return atomic.LoadUint32(h.u32ptr(offVersionHash)) }
func (h headerView) setVersionHash(v uint32) {
	atomic.StoreUint32(h.u32ptr(offVersionHash), v)
}

func (h headerView) sourceModule() ModuleID { return ModuleID(h.b[offSourceModule]) }
func (h headerView) setSourceModule(m ModuleID) { h.b[offSourceModule] = byte(m) }

func (h headerView) destModule() ModuleID     { return ModuleID(h.b[offDestModule]) }
func (h headerView) setDestModule(m ModuleID) { h.b[offDestModule] = byte(m) }

func (h headerView) payloadSize() uint32 { return atomic.LoadUint32(h.u32ptr(offPayloadSize)) }
func (h headerView) setPayloadSize(v uint32) {
	atomic.StoreUint32(h.u32ptr(offPayloadSize), v)
}

// heartbeat/writeSeq are hot-path fields accessed with explicit
// acquire/release semantics (spec.md 4.1, 5).
func (h headerView) heartbeatLoad() uint64       { return atomic.LoadUint64(h.u64ptr(offHeartbeat)) }
func (h headerView) heartbeatStoreRelease(v uint64) { atomic.StoreUint64(h.u64ptr(offHeartbeat), v) }

func (h headerView) writeSeqLoadAcquire() uint32    { return atomic.LoadUint32(h.u32ptr(offWriteSeq)) }
func (h headerView) writeSeqStoreRelease(v uint32)  { atomic.StoreUint32(h.u32ptr(offWriteSeq), v) }

func (h headerView) zeroPadding() {
	for i := offPadding; i < HeaderSize; i++ {
		h.b[i] = 0
	}
}

// versionHashOf computes the compile-time-style version hash of T: a mix
// of its size and alignment with two odd multipliers (spec.md 4.1). It does not
// detect field reorders that preserve size and alignment; every payload
// type in internal/wire therefore carries explicit padding so a reorder
// necessarily changes size (see spec.md 9, "Open question").
func versionHashOf[T any]() uint32 {
	var zero T
	size := uint32(unsafe.Sizeof(zero))
	align := uint32(unsafe.Alignof(zero))
	return size*0x9E3779B9 ^ align*0x517CC1B7
}
