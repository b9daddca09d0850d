package control

import (
	"github.com/indigolab/indigo-core/internal/device"
	"github.com/indigolab/indigo-core/internal/protocol"
)

// A builder turns parameters into a frame and reports whether the command
// energises an actuator (and therefore needs the system to be ready).
type (
	laneBuilder    func(l device.Lane, p Params) (frame protocol.Frame, energise bool, err error)
	utilityBuilder func(u device.Utility, p Params) (frame protocol.Frame, energise bool, err error)
)

var laneCommands = map[string]laneBuilder{
	"recover": func(l device.Lane, _ Params) (protocol.Frame, bool, error) {
		return l.Recover(), false, nil
	},
	"cycle": func(l device.Lane, p Params) (protocol.Frame, bool, error) {
		a, err := p.CycleAction()
		if err != nil {
			return protocol.Frame{}, false, err
		}
		return l.Cycle(a), a != device.CycleStop, nil
	},
	"stir": func(l device.Lane, p Params) (protocol.Frame, bool, error) {
		on, err := p.Bool("on")
		if err != nil {
			return protocol.Frame{}, false, err
		}
		speed, err := p.Uint16("speed", 0)
		if err != nil {
			return protocol.Frame{}, false, err
		}
		return l.Stir(on, speed), on, nil
	},
	// Solenoid moves need the system ready in either direction.
	"lid":           laneToggle("extend", device.Lane.Lid, true),
	"arm":           laneToggle("extend", device.Lane.Arm, true),
	"vac_valve":     laneToggle("open", device.Lane.VacValve, false),
	"solvent_valve": laneToggle("open", device.Lane.SolventValve, false),
	"water_valve":   laneToggle("open", device.Lane.WaterValve, false),
	"n2_valve":      laneToggle("open", device.Lane.N2Valve, false),
	"vent":          laneToggle("open", device.Lane.Vent, false),
}

var utilityCommands = map[string]utilityBuilder{
	"initialize": func(u device.Utility, _ Params) (protocol.Frame, bool, error) {
		return u.Initialize(), false, nil
	},
	"stop": func(u device.Utility, _ Params) (protocol.Frame, bool, error) {
		return u.Stop(), false, nil
	},
	"main_solvent_valve": utilityToggle("open", device.Utility.MainSolventValve),
	"main_n2_valve":      utilityToggle("open", device.Utility.MainN2Valve),
	"main_water_valve":   utilityToggle("open", device.Utility.MainWaterValve),
	"waste_valve":        utilityToggle("open", device.Utility.WasteValve),
	"main_vac_valve":     utilityToggle("open", device.Utility.MainVacValve),
	"vacuum_pump":        utilityToggle("on", device.Utility.VacuumPump),
	"waste_pump":         utilityToggle("on", device.Utility.WastePump),
}

func laneToggle(key string, build func(device.Lane, bool) protocol.Frame, alwaysEnergise bool) laneBuilder {
	return func(l device.Lane, p Params) (protocol.Frame, bool, error) {
		v, err := p.Bool(key)
		if err != nil {
			return protocol.Frame{}, false, err
		}
		return build(l, v), v || alwaysEnergise, nil
	}
}

func utilityToggle(key string, build func(device.Utility, bool) protocol.Frame) utilityBuilder {
	return func(u device.Utility, p Params) (protocol.Frame, bool, error) {
		v, err := p.Bool(key)
		if err != nil {
			return protocol.Frame{}, false, err
		}
		return build(u, v), v, nil
	}
}
