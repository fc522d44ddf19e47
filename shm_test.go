package shm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	A uint64
	B uint32
	_ [4]byte // explicit padding, keeps size stable under field reorder
}

func TestVersionHashOfStable(t *testing.T) {
	h1 := versionHashOf[testPayload]()
	h2 := versionHashOf[testPayload]()
	assert.Equal(t, h1, h2)
}

func TestVersionHashOfDiffersAcrossTypes(t *testing.T) {
	type other struct {
		X [3]uint64
	}
	assert.NotEqual(t, versionHashOf[testPayload](), versionHashOf[other]())
}

func TestWriterSingleOwnership(t *testing.T) {
	name := "evo_hal_cu_test_single_owner"
	w, err := CreateWriter[testPayload](name, ModuleHAL, ModuleCU)
	require.NoError(t, err)
	defer w.Close()

	_, err = CreateWriter[testPayload](name, ModuleHAL, ModuleCU)
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeWriterAlreadyExists))
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	name := "evo_hal_cu_test_roundtrip"
	w, err := CreateWriter[testPayload](name, ModuleHAL, ModuleCU)
	require.NoError(t, err)
	defer w.Close()

	r, err := AttachReader[testPayload](name, ModuleCU, DefaultStaleN)
	require.NoError(t, err)
	defer r.Close()

	w.Write(&testPayload{A: 42, B: 7})
	got, stale, err := r.Read()
	require.NoError(t, err)
	assert.False(t, stale)
	assert.Equal(t, uint64(42), got.A)
	assert.Equal(t, uint32(7), got.B)
}

func TestReaderRejectsWrongDestination(t *testing.T) {
	name := "evo_hal_cu_test_wrong_dest"
	w, err := CreateWriter[testPayload](name, ModuleHAL, ModuleCU)
	require.NoError(t, err)
	defer w.Close()

	_, err = AttachReader[testPayload](name, ModuleRE, DefaultStaleN)
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeDestinationMismatch))
	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, ModuleCU, se.FoundModule)
}

func TestReaderRejectsVersionMismatch(t *testing.T) {
	name := "evo_hal_cu_test_version_mismatch"
	w, err := CreateWriter[testPayload](name, ModuleHAL, ModuleCU)
	require.NoError(t, err)
	defer w.Close()

	type differentShape struct {
		X [9]uint64
	}
	_, err = AttachReader[differentShape](name, ModuleCU, DefaultStaleN)
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeVersionMismatch))
}

func TestSecondReaderRejected(t *testing.T) {
	name := "evo_hal_cu_test_second_reader"
	w, err := CreateWriter[testPayload](name, ModuleHAL, ModuleCU)
	require.NoError(t, err)
	defer w.Close()

	r1, err := AttachReader[testPayload](name, ModuleCU, DefaultStaleN)
	require.NoError(t, err)
	defer r1.Close()

	_, err = AttachReader[testPayload](name, ModuleCU, DefaultStaleN)
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeReaderAlreadyConnected))
}

func TestHeartbeatStalenessDetection(t *testing.T) {
	name := "evo_hal_cu_test_staleness"
	w, err := CreateWriter[testPayload](name, ModuleHAL, ModuleCU)
	require.NoError(t, err)
	defer w.Close()

	r, err := AttachReader[testPayload](name, ModuleCU, 2)
	require.NoError(t, err)
	defer r.Close()

	w.Write(&testPayload{A: 1})
	_, stale, err := r.Read()
	require.NoError(t, err)
	assert.False(t, stale)

	_, stale, err = r.Read() // unchanged heartbeat, count 1
	require.NoError(t, err)
	assert.False(t, stale)

	_, stale, err = r.Read() // unchanged heartbeat, count 2 >= staleN
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestWriterRecreateAfterClose(t *testing.T) {
	name := "evo_hal_cu_test_recreate"
	w1, err := CreateWriter[testPayload](name, ModuleHAL, ModuleCU)
	require.NoError(t, err)
	require.NoError(t, w1.Close())

	w2, err := CreateWriter[testPayload](name, ModuleHAL, ModuleCU)
	require.NoError(t, err)
	defer w2.Close()
}

func TestSegmentNameRoundTrip(t *testing.T) {
	name := SegmentName(ModuleHAL, ModuleCU)
	assert.Equal(t, "evo_hal_cu", name)
	source, dest, ok := parseSegmentName(name)
	require.True(t, ok)
	assert.Equal(t, ModuleHAL, source)
	assert.Equal(t, ModuleCU, dest)
}
