package shm

import (
	"os"
	"path/filepath"
	"unsafe"
)

// TypedReader is the read side of a named segment carrying payloads of
// type T. Exactly one reader may be connected at a time (spec.md 3.1);
// a second Attach call fails with CodeReaderAlreadyConnected.
type TypedReader[T any] struct {
	name    string
	file    *os.File
	rlock   *os.File // companion lock file enforcing single-reader (see AttachReader)
	mapped  []byte
	header  headerView
	payload []byte
	dest    ModuleID

	lastHeartbeat uint64
	staleCount    int
	staleN        int
}

// AttachReader opens the named segment for reading, validates its header
// against T and expectDest, and takes the exclusive lock on the segment's
// companion .rlock file that marks this process as its reader. staleN is the number of consecutive
// unchanged heartbeats (as observed by Read) before the segment is
// reported stale; pass DefaultStaleN for RT segments, DefaultNonRTStaleN
// otherwise.
func AttachReader[T any](name string, expectDest ModuleID, staleN int) (*TypedReader[T], error) {
	var zero T
	payloadSize := int(unsafe.Sizeof(zero))
	total := HeaderSize + payloadSize

	path := filepath.Join(shmDir, name)
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, wrapErrno("attach", name, err)
	}

	// A flock(LOCK_SH) against the segment file cannot serve here: it would
	// not reject a second reader (shared locks do not conflict with each
	// other), and it is refused while the writer holds its LOCK_EX on the
	// same file. Single-reader enforcement therefore lives in a companion
	// lock file taken exclusively; the segment file itself is not locked
	// by the reader.
	rlock, err := os.OpenFile(path+".rlock", os.O_CREATE|os.O_RDWR, segmentFileMode)
	if err != nil {
		f.Close()
		return nil, wrapErrno("attach", name, err)
	}
	if err := flockExclusive(rlock); err != nil {
		rlock.Close()
		f.Close()
		return nil, &Error{Op: "attach", Segment: name, Code: CodeReaderAlreadyConnected,
			Msg: "another process already owns this segment's read side"}
	}

	mapped, err := mmapFileReadOnly(f, total)
	if err != nil {
		flockUnlock(f)
		flockUnlock(rlock)
		rlock.Close()
		f.Close()
		return nil, wrapErrno("attach", name, err)
	}

	hv := newHeaderView(mapped)
	if hv.magic() != segmentMagic {
		munmap(mapped)
		flockUnlock(f)
		flockUnlock(rlock)
		rlock.Close()
		f.Close()
		return nil, newError("attach", name, CodeInvalidMagic, "segment header magic mismatch")
	}
	if want, got := versionHashOf[T](), hv.versionHash(); want != got {
		munmap(mapped)
		flockUnlock(f)
		flockUnlock(rlock)
		rlock.Close()
		f.Close()
		return nil, newVersionMismatch("attach", name, want, got)
	}
	if hv.destModule() != expectDest {
		munmap(mapped)
		flockUnlock(f)
		flockUnlock(rlock)
		rlock.Close()
		f.Close()
		return nil, newDestinationMismatch("attach", name, expectDest, hv.destModule())
	}

	if staleN <= 0 {
		staleN = DefaultStaleN
	}
	r := &TypedReader[T]{
		name:          name,
		file:          f,
		rlock:         rlock,
		mapped:        mapped,
		header:        hv,
		payload:       mapped[HeaderSize:total],
		dest:          expectDest,
		lastHeartbeat: hv.heartbeatLoad(),
		staleN:        staleN,
	}
	return r, nil
}

// Read copies out the most recent committed payload. stale reports
// whether the writer's heartbeat has not advanced for staleN consecutive
// calls, i.e. the writer is presumed dead or hung (spec.md 4.1, 5).
func (r *TypedReader[T]) Read() (value T, stale bool, err error) {
	var out T
	dst := unsafe.Slice((*byte)(unsafe.Pointer(&out)), unsafe.Sizeof(out))

	consistent := false
	for i := 0; i < readRetries; i++ {
		seq1 := r.header.writeSeqLoadAcquire()
		if seq1%2 != 0 {
			continue // writer mid-commit, retry
		}
		copy(dst, r.payload)
		seq2 := r.header.writeSeqLoadAcquire()
		if seq1 == seq2 {
			consistent = true
			break
		}
	}
	if !consistent {
		return out, false, newError("read", r.name, CodeReadContention,
			"writer busy across all retries")
	}

	hb := r.header.heartbeatLoad()
	if hb == r.lastHeartbeat {
		r.staleCount++
	} else {
		r.staleCount = 0
		r.lastHeartbeat = hb
	}
	return out, r.staleCount >= r.staleN, nil
}

// Name returns the segment name this reader is attached to.
func (r *TypedReader[T]) Name() string { return r.name }

// Close unmaps the segment and releases the reader's .rlock lock.
func (r *TypedReader[T]) Close() error {
	if r.mapped != nil {
		munmap(r.mapped)
		r.mapped = nil
	}
	if r.file != nil {
		flockUnlock(r.file)
		r.file.Close()
		r.file = nil
	}
	if r.rlock != nil {
		flockUnlock(r.rlock)
		r.rlock.Close()
		os.Remove(r.rlock.Name())
		r.rlock = nil
	}
	return nil
}
