// Package shm implements the point-to-point shared-memory (P2P SHM)
// transport used by the evo-core motion-control platform to move fixed-size,
// versioned payloads between two single-threaded processes with bounded
// worst-case write/read latency and in-band liveness detection.
//
// A segment has exactly one writer (TypedWriter) and one reader
// (TypedReader), named evo_<source>_<dest> after the two module
// abbreviations that own it. All higher-level packages in this module
// (internal/hal, internal/cu, internal/supervisor) cross process
// boundaries exclusively through this package.
package shm
