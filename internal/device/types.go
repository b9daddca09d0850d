package device

import (
	"encoding/binary"
	"fmt"

	"github.com/indigolab/indigo-core/internal/protocol"
)

// MsgType is a bus message opcode.
type MsgType = uint8

// Opcodes shared by both boards.
const (
	MsgStatusRequest MsgType = 0x20
	RespAck          MsgType = 0xFF
)

// Lane board opcodes.
const (
	MsgRecover      MsgType = 0x21
	MsgCycle        MsgType = 0x22
	MsgLid          MsgType = 0x30
	MsgArm          MsgType = 0x31
	MsgVacValve     MsgType = 0x32
	MsgSolventValve MsgType = 0x33
	MsgWaterValve   MsgType = 0x34
	MsgN2Valve      MsgType = 0x35
	MsgVent         MsgType = 0x36
	MsgStir         MsgType = 0x40
	MsgPressure     MsgType = 0x50
	MsgThermal      MsgType = 0x60
	MsgRefluxOnly   MsgType = 0x61
	MsgThermalOnly  MsgType = 0x62
	MsgCalParams    MsgType = 0x70

	RespLaneStatus MsgType = 0x80
)

// Utility board opcodes.
const (
	MsgStop             MsgType = 0x24
	MsgInitialize       MsgType = 0x25
	MsgMainSolventValve MsgType = 0x97
	MsgMainN2Valve      MsgType = 0x98
	MsgMainWaterValve   MsgType = 0x99
	MsgWasteValve       MsgType = 0x9A
	MsgMainVacValve     MsgType = 0x9B
	MsgVacuumPump       MsgType = 0x9C
	MsgWastePump        MsgType = 0x9D

	RespUtilityStatus MsgType = 0x83
)

// CycleAction is the single payload byte of a MsgCycle request.
type CycleAction uint8

// Cycle actions.
const (
	CycleStop     CycleAction = 0
	CycleStart    CycleAction = 1
	CycleComplete CycleAction = 2
	CyclePurge    CycleAction = 3
)

// String returns the lower-case action name.
func (a CycleAction) String() string {
	switch a {
	case CycleStop:
		return "stop"
	case CycleStart:
		return "start"
	case CycleComplete:
		return "complete"
	case CyclePurge:
		return "purge"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// IsAck reports whether f is an ACK response.
func IsAck(f protocol.Frame) bool {
	return f.Type == RespAck
}

// flag returns the single-byte on/off payload used by valve and solenoid commands.
func flag(on bool) []byte {
	if on {
		return []byte{1}
	}
	return []byte{0}
}

// bit reports whether bit n of b is set.
func bit(b byte, n uint) bool {
	return b&(1<<n) != 0
}

// ScaledI16 decodes a little-endian two's-complement int16 divided by 100.
//
// (0xF6, 0xFF) decodes to -0.10 and (0xE8, 0x03) to 10.00.
func ScaledI16(lo, hi byte) float64 {
	return float64(int16(binary.LittleEndian.Uint16([]byte{lo, hi}))) / 100 //nolint:mnd // centi-degrees
}
