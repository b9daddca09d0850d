package device

import (
	"encoding/binary"

	"github.com/indigolab/indigo-core/internal/protocol"
)

// laneStatusSize is the minimum RespLaneStatus payload length.
const laneStatusSize = 16

// LaneStatus is one decoded lane board status response.
//
// Payload layout (little-endian):
//
//	Byte 0:      outputs A (cooling, cleaning, vial valves, lid solenoids)
//	Byte 1:      outputs/inputs B (arm solenoids, lid/arm switches, heater)
//	Byte 2-3:    reflux temperature   (int16 / 100, °C)
//	Byte 4-5:    thermal temperature  (int16 / 100, °C)
//	Byte 6-7:    reflux setpoint      (int16 / 100, °C)
//	Byte 8-9:    thermal setpoint     (int16 / 100, °C)
//	Byte 10-11:  commanded stir speed (uint16)
//	Byte 12-13:  raw pressure         (uint16)
//	Byte 14:     bit 0 stir running
//	Byte 15:     error status (0 = OK)
type LaneStatus struct {
	Address     uint8 `json:"addr"`
	Online      bool  `json:"online"`
	ErrorStatus uint8 `json:"error_status"`

	// Byte 0
	CoolingValveThermal  bool `json:"cooling_valve_thermal"`
	CoolingValveReflux   bool `json:"cooling_valve_reflux"`
	CleaningValveWater   bool `json:"cleaning_valve_water"`
	CleaningValveSolvent bool `json:"cleaning_valve_solvent"`
	VialValveN2          bool `json:"vial_valve_n2"`
	VialValveVac         bool `json:"vial_valve_vac"`
	LidSolenoidDown      bool `json:"lid_solenoid_down"`
	LidSolenoidUp        bool `json:"lid_solenoid_up"`

	// Byte 1
	ArmSolenoidExtend  bool `json:"arm_solenoid_extend"`
	ArmSolenoidRetract bool `json:"arm_solenoid_retract"`
	LidSwitchUp        bool `json:"lid_switch_up"`
	LidSwitchMid       bool `json:"lid_switch_mid"`
	LidSwitchDown      bool `json:"lid_switch_down"`
	ArmSwitchRetract   bool `json:"arm_switch_retract"`
	ArmSwitchExtend    bool `json:"arm_switch_extend"`
	HeaterRelayOn      bool `json:"heater_relay_on"`

	RefluxTempC  float64 `json:"reflux_temp_c"`
	ThermalTempC float64 `json:"thermal_temp_c"`
	RefluxSPC    float64 `json:"reflux_sp_c"`
	ThermalSPC   float64 `json:"thermal_sp_c"`
	StirSpeedCmd uint16  `json:"stir_speed_cmd"`
	PressureRaw  uint16  `json:"pressure_raw"`
	StirRunning  bool    `json:"stir_running"`
}

// Lane builds requests for the lane board at Address.
type Lane struct {
	Address uint8
}

func (l Lane) frame(t MsgType, payload []byte) protocol.Frame {
	return protocol.Frame{Address: l.Address, Type: t, Payload: payload}
}

// StatusRequest asks the board for a RespLaneStatus.
func (l Lane) StatusRequest() protocol.Frame { return l.frame(MsgStatusRequest, nil) }

// Recover clears a latched board fault.
func (l Lane) Recover() protocol.Frame { return l.frame(MsgRecover, nil) }

// Cycle starts, stops, completes or purges the lane cycle.
func (l Lane) Cycle(action CycleAction) protocol.Frame {
	return l.frame(MsgCycle, []byte{byte(action)})
}

// Lid drives the lid solenoid: extend=true lowers, false raises.
func (l Lane) Lid(extend bool) protocol.Frame { return l.frame(MsgLid, flag(extend)) }

// Arm drives the arm solenoid.
func (l Lane) Arm(extend bool) protocol.Frame { return l.frame(MsgArm, flag(extend)) }

// VacValve opens or closes the vial vacuum valve.
func (l Lane) VacValve(open bool) protocol.Frame { return l.frame(MsgVacValve, flag(open)) }

// SolventValve opens or closes the cleaning solvent valve.
func (l Lane) SolventValve(open bool) protocol.Frame { return l.frame(MsgSolventValve, flag(open)) }

// WaterValve opens or closes the cleaning water valve.
func (l Lane) WaterValve(open bool) protocol.Frame { return l.frame(MsgWaterValve, flag(open)) }

// N2Valve opens or closes the vial nitrogen valve.
func (l Lane) N2Valve(open bool) protocol.Frame { return l.frame(MsgN2Valve, flag(open)) }

// Vent opens or closes the vent valve.
func (l Lane) Vent(open bool) protocol.Frame { return l.frame(MsgVent, flag(open)) }

// Stir switches the stirrer and sets its speed.
//
// Payload: [on][speed_lo][speed_hi].
func (l Lane) Stir(on bool, speed uint16) protocol.Frame {
	p := flag(on)
	p = binary.LittleEndian.AppendUint16(p, speed)
	return l.frame(MsgStir, p)
}

// ParseLaneStatus decodes a RespLaneStatus frame.
//
// Returns ok=false if f is not a RespLaneStatus or its payload is shorter
// than 16 bytes. Extra payload bytes are ignored.
func ParseLaneStatus(f protocol.Frame) (LaneStatus, bool) {
	if f.Type != RespLaneStatus || len(f.Payload) < laneStatusSize {
		return LaneStatus{}, false
	}

	p := f.Payload
	b0, b1 := p[0], p[1]

	return LaneStatus{
		Address:     f.Address,
		Online:      true,
		ErrorStatus: p[15],

		CoolingValveThermal:  bit(b0, 0),
		CoolingValveReflux:   bit(b0, 1),
		CleaningValveWater:   bit(b0, 2),
		CleaningValveSolvent: bit(b0, 3),
		VialValveN2:          bit(b0, 4),
		VialValveVac:         bit(b0, 5),
		LidSolenoidDown:      bit(b0, 6),
		LidSolenoidUp:        bit(b0, 7),

		ArmSolenoidExtend:  bit(b1, 0),
		ArmSolenoidRetract: bit(b1, 1),
		LidSwitchUp:        bit(b1, 2),
		LidSwitchMid:       bit(b1, 3),
		LidSwitchDown:      bit(b1, 4),
		ArmSwitchRetract:   bit(b1, 5),
		ArmSwitchExtend:    bit(b1, 6),
		HeaterRelayOn:      bit(b1, 7),

		RefluxTempC:  ScaledI16(p[2], p[3]),
		ThermalTempC: ScaledI16(p[4], p[5]),
		RefluxSPC:    ScaledI16(p[6], p[7]),
		ThermalSPC:   ScaledI16(p[8], p[9]),
		StirSpeedCmd: binary.LittleEndian.Uint16(p[10:12]),
		PressureRaw:  binary.LittleEndian.Uint16(p[12:14]),
		StirRunning:  bit(p[14], 0),
	}, true
}
