package control

import (
	"fmt"
	"math"
	"strings"

	"github.com/indigolab/indigo-core/internal/device"
)

// Params holds command parameters decoded from JSON.
type Params map[string]any

// Bool returns a required boolean parameter. JSON numbers 0 and 1 are
// accepted as false and true.
func (p Params) Bool(key string) (bool, error) {
	v, ok := p[key]
	if !ok {
		return false, fmt.Errorf("%w: %q is required", ErrInvalidParameter, key)
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case float64:
		switch b {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
	}
	return false, fmt.Errorf("%w: %q must be a boolean", ErrInvalidParameter, key)
}

// Uint16 returns an optional integer parameter in [0, 65535], or def when
// the key is absent.
func (p Params) Uint16(key string, def uint16) (uint16, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || f < 0 || f > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %q must be an integer 0-65535", ErrInvalidParameter, key)
	}
	return uint16(f), nil
}

// CycleAction returns the "action" parameter as a cycle action. Both the
// numeric code and the name ("stop", "start", "complete", "purge") are
// accepted.
func (p Params) CycleAction() (device.CycleAction, error) {
	v, ok := p["action"]
	if !ok {
		return 0, fmt.Errorf("%w: \"action\" is required", ErrInvalidParameter)
	}

	switch a := v.(type) {
	case float64:
		if a == math.Trunc(a) && a >= 0 && a <= float64(device.CyclePurge) {
			return device.CycleAction(a), nil
		}
	case string:
		for act := device.CycleStop; act <= device.CyclePurge; act++ {
			if strings.EqualFold(a, act.String()) {
				return act, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: \"action\" must be stop, start, complete or purge", ErrInvalidParameter)
}
