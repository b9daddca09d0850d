package device

import "github.com/indigolab/indigo-core/internal/protocol"

// utilityStatusSize is the minimum RespUtilityStatus payload length.
const utilityStatusSize = 3

// UtilityStatus is one decoded utility board status response.
//
// Payload layout:
//
//	Byte 0:   main outputs (valves, vacuum pump, aspirator level)
//	Byte 1:   bit 0 safety chain OK, bit 1 waste pump
//	Byte N-1: error status (0 = OK)
//
// Bytes between 1 and N-1 are reserved and ignored.
type UtilityStatus struct {
	Address     uint8 `json:"addr"`
	Online      bool  `json:"online"`
	ErrorStatus uint8 `json:"error_status"`

	// Byte 0
	VacuumValve   bool `json:"vacuum_valve"`
	WasteValve    bool `json:"waste_valve"`
	WaterValve    bool `json:"water_valve"`
	HPN2DumpValve bool `json:"hpn2_dump_valve"`
	SolventValve  bool `json:"solvent_valve"`
	N2SupplyValve bool `json:"n2_supply_valve"`
	VacuumPump    bool `json:"vacuum_pump"`
	AspLevel      bool `json:"asp_level"`

	// Byte 1
	SafeChainOK bool `json:"safe_chain_ok"`
	WastePump   bool `json:"waste_pump"`
}

// Utility builds requests for the utility board at Address.
type Utility struct {
	Address uint8
}

func (u Utility) frame(t MsgType, payload []byte) protocol.Frame {
	return protocol.Frame{Address: u.Address, Type: t, Payload: payload}
}

// StatusRequest asks the board for a RespUtilityStatus.
func (u Utility) StatusRequest() protocol.Frame { return u.frame(MsgStatusRequest, nil) }

// Initialize runs the board's start-up sequence.
func (u Utility) Initialize() protocol.Frame { return u.frame(MsgInitialize, nil) }

// Stop halts all utility outputs.
func (u Utility) Stop() protocol.Frame { return u.frame(MsgStop, nil) }

// MainSolventValve opens or closes the main solvent supply.
func (u Utility) MainSolventValve(open bool) protocol.Frame {
	return u.frame(MsgMainSolventValve, flag(open))
}

// MainN2Valve opens or closes the main nitrogen supply.
func (u Utility) MainN2Valve(open bool) protocol.Frame { return u.frame(MsgMainN2Valve, flag(open)) }

// MainWaterValve opens or closes the main water supply.
func (u Utility) MainWaterValve(open bool) protocol.Frame {
	return u.frame(MsgMainWaterValve, flag(open))
}

// WasteValve opens or closes the waste valve.
func (u Utility) WasteValve(open bool) protocol.Frame { return u.frame(MsgWasteValve, flag(open)) }

// MainVacValve opens or closes the main vacuum valve.
func (u Utility) MainVacValve(open bool) protocol.Frame { return u.frame(MsgMainVacValve, flag(open)) }

// VacuumPump switches the vacuum pump.
func (u Utility) VacuumPump(on bool) protocol.Frame { return u.frame(MsgVacuumPump, flag(on)) }

// WastePump switches the waste pump.
func (u Utility) WastePump(on bool) protocol.Frame { return u.frame(MsgWastePump, flag(on)) }

// ParseUtilityStatus decodes a RespUtilityStatus frame.
//
// Returns ok=false if f is not a RespUtilityStatus or its payload is shorter
// than 3 bytes. The error status is always the last payload byte.
func ParseUtilityStatus(f protocol.Frame) (UtilityStatus, bool) {
	if f.Type != RespUtilityStatus || len(f.Payload) < utilityStatusSize {
		return UtilityStatus{}, false
	}

	b0, b1 := f.Payload[0], f.Payload[1]

	return UtilityStatus{
		Address:     f.Address,
		Online:      true,
		ErrorStatus: f.Payload[len(f.Payload)-1],

		VacuumValve:   bit(b0, 0),
		WasteValve:    bit(b0, 1),
		WaterValve:    bit(b0, 2),
		HPN2DumpValve: bit(b0, 3),
		SolventValve:  bit(b0, 4),
		N2SupplyValve: bit(b0, 5),
		VacuumPump:    bit(b0, 6),
		AspLevel:      bit(b0, 7),

		SafeChainOK: bit(b1, 0),
		WastePump:   bit(b1, 1),
	}, true
}
