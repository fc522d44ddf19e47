package simdrv

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

const stateFormatVersion uint32 = 1

// DefaultStatePath is where PersistState/LoadState read and write by
// default (spec.md 6.4).
const DefaultStatePath = "/etc/evo/hal_state"

// AxisState is one axis's persisted entry: {name, position, referenced}.
type AxisState struct {
	Name       string
	Position   float64
	Referenced bool
}

// SavedState is the decoded contents of a hal_state file.
type SavedState struct {
	FormatVersion uint32
	SavedAtUnix   uint64
	Axes          []AxisState
}

// SaveState writes state to path in the compact binary form spec.md 6.4
// describes, little-endian throughout, in the same explicit-offset style
// the wire header uses rather than a general-purpose encoder.
func SaveState(path string, state SavedState, savedAtUnix uint64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("simdrv: create state file: %w", err)
	}
	defer f.Close()

	var hdr [12]byte
	binary.LittleEndian.PutUint32(hdr[0:4], stateFormatVersion)
	binary.LittleEndian.PutUint64(hdr[4:12], savedAtUnix)
	if _, err := f.Write(hdr[:]); err != nil {
		return fmt.Errorf("simdrv: write state header: %w", err)
	}

	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(state.Axes)))
	if _, err := f.Write(countBuf[:]); err != nil {
		return fmt.Errorf("simdrv: write axis count: %w", err)
	}

	for _, a := range state.Axes {
		if err := writeAxisState(f, a); err != nil {
			return err
		}
	}
	return nil
}

func writeAxisState(w io.Writer, a AxisState) error {
	nameBytes := []byte(a.Name)
	var nameLen [2]byte
	binary.LittleEndian.PutUint16(nameLen[:], uint16(len(nameBytes)))
	if _, err := w.Write(nameLen[:]); err != nil {
		return fmt.Errorf("simdrv: write axis name length: %w", err)
	}
	if _, err := w.Write(nameBytes); err != nil {
		return fmt.Errorf("simdrv: write axis name: %w", err)
	}

	var rest [9]byte
	binary.LittleEndian.PutUint64(rest[0:8], math.Float64bits(a.Position))
	if a.Referenced {
		rest[8] = 1
	}
	if _, err := w.Write(rest[:]); err != nil {
		return fmt.Errorf("simdrv: write axis position/referenced: %w", err)
	}
	return nil
}

// LoadState reads a hal_state file written by SaveState. A missing file
// is not an error: it reports a zero-value SavedState, matching "axes
// absent from file start unreferenced at 0" for every axis.
func LoadState(path string) (SavedState, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return SavedState{}, nil
		}
		return SavedState{}, fmt.Errorf("simdrv: open state file: %w", err)
	}
	defer f.Close()

	var hdr [12]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		return SavedState{}, fmt.Errorf("simdrv: read state header: %w", err)
	}
	state := SavedState{
		FormatVersion: binary.LittleEndian.Uint32(hdr[0:4]),
		SavedAtUnix:   binary.LittleEndian.Uint64(hdr[4:12]),
	}

	var countBuf [4]byte
	if _, err := io.ReadFull(f, countBuf[:]); err != nil {
		return SavedState{}, fmt.Errorf("simdrv: read axis count: %w", err)
	}
	count := binary.LittleEndian.Uint32(countBuf[:])

	state.Axes = make([]AxisState, 0, count)
	for i := uint32(0); i < count; i++ {
		a, err := readAxisState(f)
		if err != nil {
			return SavedState{}, err
		}
		state.Axes = append(state.Axes, a)
	}
	return state, nil
}

func readAxisState(r io.Reader) (AxisState, error) {
	var nameLen [2]byte
	if _, err := io.ReadFull(r, nameLen[:]); err != nil {
		return AxisState{}, fmt.Errorf("simdrv: read axis name length: %w", err)
	}
	nameBytes := make([]byte, binary.LittleEndian.Uint16(nameLen[:]))
	if _, err := io.ReadFull(r, nameBytes); err != nil {
		return AxisState{}, fmt.Errorf("simdrv: read axis name: %w", err)
	}

	var rest [9]byte
	if _, err := io.ReadFull(r, rest[:]); err != nil {
		return AxisState{}, fmt.Errorf("simdrv: read axis position/referenced: %w", err)
	}
	return AxisState{
		Name:       string(nameBytes),
		Position:   math.Float64frombits(binary.LittleEndian.Uint64(rest[0:8])),
		Referenced: rest[8] != 0,
	}, nil
}
