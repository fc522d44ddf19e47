package shm

import "time"

// Segment size bounds (spec.md 4.1 "Size bounds").
const (
	// HeaderSize is the fixed size of P2PHeader in bytes.
	HeaderSize = 64

	// MinSegmentSize is sizeof(Header); there is no 4 KiB minimum, small
	// placeholder segments are legal.
	MinSegmentSize = HeaderSize

	// MaxSegmentSize is the largest payload+header a segment may carry.
	MaxSegmentSize = 1 << 20 // 1 MiB
)

// DefaultStaleN is the default heartbeat-staleness window. RT segments use
// N=3 (<=4ms detection at a 1ms cycle); non-RT segments configure their own
// (default 1000, see DefaultNonRTStaleN).
const DefaultStaleN = 3

// DefaultNonRTStaleN is the default staleness window for non-RT segments.
const DefaultNonRTStaleN = 1000

// shmDir is where POSIX shared-memory objects are created, mirroring the
// Linux tmpfs mount used by shm_open.
const shmDir = "/dev/shm"

// segmentMagic is the fixed 8-byte magic stamped into every header.
var segmentMagic = [8]byte{'E', 'V', 'O', '_', 'P', '2', 'P', 0}

// segmentFileMode is the mode bits a writer creates the backing node with.
const segmentFileMode = 0o600

// readRetries bounds the torn-read retry loop in TypedReader.Read.
const readRetries = 3

// attachPollInterval is used by callers that poll for a segment's
// appearance (e.g. the supervisor waiting for evo_hal_cu).
const attachPollInterval = 20 * time.Millisecond
