package shm

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SegmentInfo describes a segment found under /dev/shm without attaching
// to it as either writer or reader.
type SegmentInfo struct {
	Name        string
	Source      ModuleID
	Dest        ModuleID
	WriterAlive bool
}

// Discover enumerates evo_<source>_<dest> segments currently present on
// the host, used by the supervisor to wait for a dependency to come up
// and by diagnostics tooling (spec.md 6.2's segment catalogue).
func Discover() ([]SegmentInfo, error) {
	entries, err := os.ReadDir(shmDir)
	if err != nil {
		return nil, wrapErrno("discover", shmDir, err)
	}

	var out []SegmentInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		source, dest, ok := parseSegmentName(name)
		if !ok {
			continue
		}
		alive, _ := ProbeWriterAlive(name)
		out = append(out, SegmentInfo{Name: name, Source: source, Dest: dest, WriterAlive: alive})
	}
	return out, nil
}

// parseSegmentName splits "evo_<source>_<dest>" back into module IDs.
func parseSegmentName(name string) (source, dest ModuleID, ok bool) {
	const prefix = "evo_"
	if !strings.HasPrefix(name, prefix) {
		return ModuleNone, ModuleNone, false
	}
	rest := strings.TrimPrefix(name, prefix)
	parts := strings.SplitN(rest, "_", 2)
	if len(parts) != 2 {
		return ModuleNone, ModuleNone, false
	}
	source, ok = ParseModuleID(parts[0])
	if !ok {
		return ModuleNone, ModuleNone, false
	}
	dest, ok = ParseModuleID(parts[1])
	if !ok {
		return ModuleNone, ModuleNone, false
	}
	return source, dest, true
}

// ProbeWriterAlive reports whether a live process currently holds the
// segment's exclusive write lock, without disturbing it.
func ProbeWriterAlive(name string) (bool, error) {
	path := filepath.Join(shmDir, name)
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return false, wrapErrno("probe", name, err)
	}
	defer f.Close()
	return flockProbeExclusive(f)
}

// WaitForSegment probes name up to attempts times, attachPollInterval
// apart, until a live writer holds it, and reports whether one was found.
func WaitForSegment(name string, attempts int) (SegmentInfo, bool) {
	for i := 0; i < attempts; i++ {
		if i > 0 {
			time.Sleep(attachPollInterval)
		}
		alive, err := ProbeWriterAlive(name)
		if err == nil && alive {
			source, dest, _ := parseSegmentName(name)
			return SegmentInfo{Name: name, Source: source, Dest: dest, WriterAlive: true}, true
		}
	}
	return SegmentInfo{}, false
}
