package wire

import "unsafe"

// DriveStatus is the per-axis drive bitfield carried in HalAxisFeedback.
type DriveStatus uint8

const (
	DriveReady DriveStatus = 1 << iota
	DriveFault
	DriveEnabled
	DriveReferenced
	DriveZeroSpeed
)

// FaultCode is a driver-reported fault, opaque to the transport layer.
type FaultCode uint8

const (
	FaultNone FaultCode = iota
	FaultLagError
	FaultRefTimeout
)

// HalAxisFeedback is the per-axis payload HAL reports to CU (spec.md 3.3).
// 24 bytes, explicit trailing padding so any future field reorder that
// preserves size/alignment is still required to be deliberate.
type HalAxisFeedback struct {
	ActualPosition float64     // mm
	ActualVelocity float64     // mm/s
	TorqueEstimate float32     // Nm
	DriveStatus    DriveStatus // bitfield: ready|fault|enabled|referenced|zerospeed
	FaultCode      FaultCode
	_              [2]byte // padding
}

const halAxisFeedbackSize = 24

var _ [halAxisFeedbackSize]byte = [unsafe.Sizeof(HalAxisFeedback{})]byte{}

// ControlOutputVector carries every control signal a driver might select
// on, per operational mode; HAL picks the field relevant to the axis's
// current OperationalMode.
type ControlOutputVector struct {
	CalculatedTorque float64
	TargetVelocity   float64
	TargetPosition   float64
	TorqueOffset     float64
}

// CuAxisCommand is the per-axis payload CU sends to HAL (spec.md 3.3).
// 40 bytes.
type CuAxisCommand struct {
	Output          ControlOutputVector
	Enable          bool
	OperationalMode OperationalMode
	_               [6]byte // padding
}

const cuAxisCommandSize = 40

var _ [cuAxisCommandSize]byte = [unsafe.Sizeof(CuAxisCommand{})]byte{}

// HalToCuPayload is the active evo_hal_cu segment payload (spec.md 6.1 #1).
type HalToCuPayload struct {
	Axes      [MaxAxes]HalAxisFeedback
	DiBank    IoBank
	AiValues  [MaxAI]float64
	AxisCount uint32
	_         [4]byte
}

// CuToHalPayload is the active evo_cu_hal segment payload (spec.md 6.1 #2).
type CuToHalPayload struct {
	Axes      [MaxAxes]CuAxisCommand
	DoBank    IoBank
	AoValues  [MaxAO]float64
	AxisCount uint32
	_         [4]byte
}

// AxisStateSnapshot is one axis's entry in the diagnostic snapshot
// written to evo_cu_mqt (spec.md 6.1 #3). 56 bytes.
type AxisStateSnapshot struct {
	ActualPosition float64
	ActualVelocity float64
	Lag            float64
	Power          PowerState
	Motion         MotionState
	Operational    OperationalMode
	Coupling       CouplingState
	Gearbox        GearboxState
	Loading        LoadingState
	PowerErr       PowerErrorFlag
	MotionErr      MotionErrorFlag
	CommandErr     CommandError
	GearboxErr     GearboxErrorFlag
	CouplingErr    CouplingError
	_              [2]byte
}

const axisStateSnapshotSize = 56

var _ [axisStateSnapshotSize]byte = [unsafe.Sizeof(AxisStateSnapshot{})]byte{}

// CuToMqtPayload is the CU diagnostic snapshot (spec.md 6.1 #3, skeleton
// promoted to a real, populated payload by this implementation — see
// DESIGN.md).
type CuToMqtPayload struct {
	Machine MachineState
	Safety  SafetyState
	_       [6]byte
	Axes    [MaxAxes]AxisStateSnapshot
}

// HalToMqtPayload is the HAL diagnostic snapshot (spec.md 6.1 #4):
// superset of HalToCuPayload plus DO/AO snapshot, cycle time, and
// per-axis driver state.
type HalToMqtPayload struct {
	HalToCu        HalToCuPayload
	DoBank         IoBank
	AoValues       [MaxAO]float64
	CycleTimeNanos uint64
	DriverState    [MaxAxes]uint8
	_              [7]byte
}

// ReAxisTarget is one axis entry in a ReToCuPayload motion command.
type ReAxisTarget struct {
	TargetPosition float64
	TargetVelocity float64
	TargetTorque   float64
}

// ReToCuPayload carries recipe-executor motion commands (spec.md 6.1 #5).
type ReToCuPayload struct {
	AxisMask   IoBank
	Targets    [MaxAxes]ReAxisTarget
	SequenceID uint64
}

// ReToHalPayload carries direct, roleless DO/AO commands from RE
// (spec.md 6.1 #6).
type ReToHalPayload struct {
	DoBank   IoBank
	AoValues [MaxAO]float64
}

// skeleton payloads (spec.md 6.1 #7, #8): header + heartbeat only, with a
// real, valid version_hash, per spec.md 9's open-question guidance to
// ship rather than omit them.
type ReToMqtPayload struct{ _ [8]byte }
type ReToRpcPayload struct{ _ [8]byte }

// RpcCommandKind enumerates the external command verbs evo_rpc_cu carries.
type RpcCommandKind uint8

const (
	RpcCommandNop RpcCommandKind = iota
	RpcCommandJog
	RpcCommandReloadConfig
	RpcCommandReset
	RpcCommandSetMode
)

// RpcToCuPayload carries external commands (jog, reload, reset, ...)
// (spec.md 6.1 #9).
type RpcToCuPayload struct {
	Kind       RpcCommandKind
	_          [7]byte
	AxisMask   IoBank
	JogTargets [MaxAxes]float64
	SequenceID uint64
}

// RpcToHalPayload carries direct actuation commands from RPC
// (spec.md 6.1 #10).
type RpcToHalPayload struct {
	DoBank   IoBank
	AoValues [MaxAO]float64
}

// RpcToRePayload carries RE-control commands from RPC (spec.md 6.1 #10).
type RpcToRePayload struct{ _ [8]byte }

// Placeholder payloads (spec.md 6.1 #12-15): header + heartbeat only.
type CuToRePayload struct{ _ [8]byte }
type CuToRpcPayload struct{ _ [8]byte }
type HalToRpcPayload struct{ _ [8]byte }
type HalToRePayload struct{ _ [8]byte }
