package shm

import (
	"os"
	"path/filepath"
	"unsafe"
)

// TypedWriter exclusively owns the write side of a named segment carrying
// payloads of type T (spec.md 3.1, 4.1). At most one writer may exist for
// a given name at a time; this is enforced by an OS-level exclusive
// advisory lock on the backing file, not by any in-process bookkeeping.
type TypedWriter[T any] struct {
	name    string
	path    string
	file    *os.File
	mapped  []byte
	header  headerView
	payload []byte // mapped[HeaderSize:HeaderSize+payloadSize]
	source  ModuleID
	dest    ModuleID
}

// CreateWriter opens (or re-creates, if the previous owner is dead) the
// named segment and binds this process as its exclusive writer.
func CreateWriter[T any](name string, source, dest ModuleID) (*TypedWriter[T], error) {
	var zero T
	payloadSize := int(unsafe.Sizeof(zero))
	total := HeaderSize + payloadSize
	if total < MinSegmentSize || total > MaxSegmentSize {
		return nil, newError("create", name, CodeSegmentNotFound,
			"segment size out of bounds")
	}

	path := filepath.Join(shmDir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, segmentFileMode)
	if err != nil {
		return nil, wrapErrno("create", name, err)
	}

	// A live writer holds this lock for the lifetime of the segment; flock
	// is released by the OS on process death, so acquiring it here is
	// simultaneously the single-writer check and the dead-owner-overwrite
	// path described in spec.md 4.1.
	if err := flockExclusive(f); err != nil {
		f.Close()
		return nil, &Error{Op: "create", Segment: name, Code: CodeWriterAlreadyExists,
			Msg: "another process already owns this segment's write side"}
	}

	if err := f.Truncate(int64(total)); err != nil {
		flockUnlock(f)
		f.Close()
		return nil, wrapErrno("create", name, err)
	}

	mapped, err := mmapFile(f, total)
	if err != nil {
		flockUnlock(f)
		f.Close()
		return nil, wrapErrno("create", name, err)
	}

	hv := newHeaderView(mapped)
	hv.setMagic()
	hv.setVersionHash(versionHashOf[T]())
	hv.setSourceModule(source)
	hv.setDestModule(dest)
	hv.setPayloadSize(uint32(payloadSize))
	hv.writeSeqStoreRelease(0)
	hv.heartbeatStoreRelease(0)
	hv.zeroPadding()

	w := &TypedWriter[T]{
		name:    name,
		path:    path,
		file:    f,
		mapped:  mapped,
		header:  hv,
		payload: mapped[HeaderSize:total],
		source:  source,
		dest:    dest,
	}
	return w, nil
}

// Write publishes v: the payload is visible to a reader either in full or
// not at all (spec.md 4.1's write-atomicity invariant). Zero heap
// allocation, no syscalls, no mutex — safe to call from the RT cycle.
func (w *TypedWriter[T]) Write(v *T) {
	seq := w.header.writeSeqLoadAcquire()
	w.header.writeSeqStoreRelease(seq + 1) // now odd: write in progress

	src := unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
	copy(w.payload, src)

	hb := w.header.heartbeatLoad()
	w.header.heartbeatStoreRelease(hb + 1)
	w.header.writeSeqStoreRelease(seq + 2) // now even: committed
}

// Name returns the segment name this writer owns.
func (w *TypedWriter[T]) Name() string { return w.name }

// Close unmaps the segment, releases the exclusive lock, and unlinks the
// backing node (spec.md 4.1's Writer::drop).
func (w *TypedWriter[T]) Close() error {
	if w.mapped != nil {
		munmap(w.mapped)
		w.mapped = nil
	}
	if w.file != nil {
		flockUnlock(w.file)
		w.file.Close()
		w.file = nil
	}
	if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
		return wrapErrno("close", w.name, err)
	}
	return nil
}
