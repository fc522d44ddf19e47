//go:build linux

package shm

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmapFile maps the first size bytes of f PROT_READ|PROT_WRITE, MAP_SHARED.
func mmapFile(f *os.File, size int) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

// mmapFileReadOnly maps the first size bytes of f PROT_READ, MAP_SHARED.
func mmapFileReadOnly(f *os.File, size int) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
}

func munmap(b []byte) error {
	return unix.Munmap(b)
}

// flockExclusive acquires a non-blocking exclusive advisory lock on f.
// Returns the raw flock error (EWOULDBLOCK if another holder has it);
// callers map it to their own error code.
func flockExclusive(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

// flockShared acquires a non-blocking shared advisory lock on f. A second
// shared lock on top of an existing shared lock is still granted by the OS,
// and a shared lock is refused while a writer holds its exclusive lock on
// the same file, so AttachReader does not use it: the single-reader rule
// is enforced by an exclusive lock on a companion .rlock file (see
// reader.go).
func flockShared(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_SH|unix.LOCK_NB)
}

// flockProbeExclusive attempts (and immediately releases) a non-blocking
// exclusive lock, used by discovery to tell whether a writer is alive
// without disturbing it.
func flockProbeExclusive(f *os.File) (alive bool, err error) {
	err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		if err == unix.EWOULDBLOCK {
			return true, nil
		}
		return false, err
	}
	_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
	return false, nil
}

func flockUnlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
