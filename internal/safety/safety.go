// Package safety derives the system go/no-go signal from utility board
// telemetry.
//
// The gate is a pure function of the latest utility status. It never talks
// to the bus; callers that need an up-to-date answer read the registry.
package safety

import (
	"fmt"

	"github.com/indigolab/indigo-core/internal/device"
	"github.com/indigolab/indigo-core/internal/registry"
)

// Reasons reported by Evaluate.
const (
	ReasonOK          = "OK"
	ReasonNotDetected = "UtilityBoard not detected"
	ReasonOffline     = "UtilityBoard offline"
	ReasonSafeChain   = "ESTOP / safety chain not OK"
)

// SystemState is the derived readiness of the whole system.
type SystemState struct {
	Ready   bool                  `json:"system_ready"`
	Reason  string                `json:"reason"`
	Utility *device.UtilityStatus `json:"utility"`
}

// Evaluate applies the safety rules to u. The first failing rule wins:
//
//  1. no utility status      -> "UtilityBoard not detected"
//  2. utility offline        -> "UtilityBoard offline"
//  3. error status non-zero  -> "UtilityBoard error_status=<n>"
//  4. safety chain open      -> "ESTOP / safety chain not OK"
//
// Otherwise the system is ready with reason "OK".
func Evaluate(u *device.UtilityStatus) SystemState {
	switch {
	case u == nil:
		return SystemState{Reason: ReasonNotDetected}
	case !u.Online:
		return SystemState{Reason: ReasonOffline, Utility: u}
	case u.ErrorStatus != 0:
		return SystemState{Reason: fmt.Sprintf("UtilityBoard error_status=%d", u.ErrorStatus), Utility: u}
	case !u.SafeChainOK:
		return SystemState{Reason: ReasonSafeChain, Utility: u}
	default:
		return SystemState{Ready: true, Reason: ReasonOK, Utility: u}
	}
}

// Current evaluates the latest utility status held by r.
func Current(r *registry.Registry) SystemState {
	return Evaluate(r.Utility())
}
