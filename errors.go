package shm

import (
	"errors"
	"fmt"
	"syscall"
)

// Code is a closed taxonomy of transport-layer failures (spec.md 3.1).
type Code string

const (
	CodeInvalidMagic           Code = "invalid magic"
	CodeVersionMismatch        Code = "version mismatch"
	CodeDestinationMismatch    Code = "destination mismatch"
	CodeWriterAlreadyExists    Code = "writer already exists"
	CodeReaderAlreadyConnected Code = "reader already connected"
	CodeReadContention         Code = "read contention"
	CodeSegmentNotFound        Code = "segment not found"
	CodePermissionDenied       Code = "permission denied"
	CodeHeartbeatStale         Code = "heartbeat stale"
)

// Error is a structured transport error with enough context for both logs
// and programmatic handling via errors.Is/errors.As.
type Error struct {
	Op      string // operation that failed, e.g. "attach", "create", "read"
	Segment string // segment name, e.g. "evo_hal_cu"
	Code    Code

	// Populated for CodeVersionMismatch.
	ExpectedVersion uint32
	FoundVersion    uint32

	// Populated for CodeDestinationMismatch.
	ExpectedModule ModuleID
	FoundModule    ModuleID

	Errno syscall.Errno // kernel errno, 0 if not applicable
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Segment != "" {
		return fmt.Sprintf("shm: %s: %s (segment=%s)", e.Op, msg, e.Segment)
	}
	return fmt.Sprintf("shm: %s: %s", e.Op, msg)
}

// Unwrap supports errors.Is/errors.As against Inner.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is supports comparison by Code alone, so callers can write
// errors.Is(err, &shm.Error{Code: shm.CodeHeartbeatStale}).
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	if te.Code == "" {
		return false
	}
	return e.Code == te.Code
}

// newError builds a bare structured error.
func newError(op, segment string, code Code, msg string) *Error {
	return &Error{Op: op, Segment: segment, Code: code, Msg: msg}
}

// newVersionMismatch builds CodeVersionMismatch with both hashes recorded.
func newVersionMismatch(op, segment string, expected, found uint32) *Error {
	return &Error{
		Op: op, Segment: segment, Code: CodeVersionMismatch,
		ExpectedVersion: expected, FoundVersion: found,
		Msg: fmt.Sprintf("expected version_hash=%#x, found %#x", expected, found),
	}
}

// newDestinationMismatch builds CodeDestinationMismatch with both modules recorded.
func newDestinationMismatch(op, segment string, expected, found ModuleID) *Error {
	return &Error{
		Op: op, Segment: segment, Code: CodeDestinationMismatch,
		ExpectedModule: expected, FoundModule: found,
		Msg: fmt.Sprintf("expected dest=%s, found %s", expected, found),
	}
}

// wrapErrno maps a syscall error into the closed taxonomy.
func wrapErrno(op, segment string, err error) *Error {
	if err == nil {
		return nil
	}
	if se, ok := err.(*Error); ok {
		return se
	}
	errno, ok := err.(syscall.Errno)
	if !ok {
		return &Error{Op: op, Segment: segment, Code: CodeSegmentNotFound, Msg: err.Error(), Inner: err}
	}
	code := mapErrnoToCode(errno)
	return &Error{Op: op, Segment: segment, Code: code, Errno: errno, Msg: errno.Error(), Inner: err}
}

func mapErrnoToCode(errno syscall.Errno) Code {
	switch errno {
	case syscall.ENOENT:
		return CodeSegmentNotFound
	case syscall.EWOULDBLOCK: // == EAGAIN on linux; flock contention
		return CodeReaderAlreadyConnected
	case syscall.EACCES, syscall.EPERM:
		return CodePermissionDenied
	default:
		return CodeSegmentNotFound
	}
}

// IsCode reports whether err is a *Error carrying the given code.
func IsCode(err error, code Code) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}
