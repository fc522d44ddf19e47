//go:build !linux

package shm

import (
	"errors"
	"os"
)

// The P2P SHM transport is a Linux-only protocol (it relies on /dev/shm and
// POSIX advisory file locks exactly as the HAL/CU processes it serves do).
// These stubs let the package build elsewhere (e.g. for documentation
// tooling) without pretending to support it, mirroring the teacher's
// internal/uring/iouring_stub.go pattern for platform-gated internals.
var errUnsupportedPlatform = errors.New("shm: unsupported platform")

func mmapFile(f *os.File, size int) ([]byte, error)         { return nil, errUnsupportedPlatform }
func mmapFileReadOnly(f *os.File, size int) ([]byte, error) { return nil, errUnsupportedPlatform }
func munmap(b []byte) error                                 { return errUnsupportedPlatform }
func flockExclusive(f *os.File) error                       { return errUnsupportedPlatform }
func flockShared(f *os.File) error                           { return errUnsupportedPlatform }
func flockProbeExclusive(f *os.File) (bool, error)          { return false, errUnsupportedPlatform }
func flockUnlock(f *os.File) error                           { return errUnsupportedPlatform }
