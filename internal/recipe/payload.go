package recipe

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxSteps caps the number of pin-break steps stored for one recipe.
const MaxSteps = 256

// Step array keys, in column order.
const (
	keyStepTime         = "autopinbreaktime"
	keyStepPressure     = "autopinbreakpressure"
	keyStepThermalTemp  = "postpinbreakthermaltemp"
	keyStepPostPressure = "postpinbreakpressure"
	keyStepRefluxTemp   = "postpinbreakrefluxtemp"
	keyStepStirSpeed    = "postpinbreakstirspeed"
)

// ParsePayload maps a legacy recipe payload onto a Recipe.
//
// Each scalar accepts the legacy flat key and the column name (cycletype or
// cycle_type, fixedholdtime or fixed_hold_time, ...); the legacy key wins
// when both are present. Unparseable scalars fall back to their zero value.
//
// The step count is numberofautopinbreaks when positive, otherwise the
// length of the longest step array, capped at MaxSteps. Missing or non-numeric array entries
// become nil fields.
//
// ID, Lane, SHA256, Active and CreatedAt are left for the store to fill in.
func ParsePayload(payload map[string]any) Recipe {
	r := Recipe{
		Name:                getString(payload, "name"),
		CycleType:           "full",
		FixedHoldTime:       getBool(payload, false, "fixedholdtime", "fixed_hold_time"),
		AutopinbreakEnabled: getBool(payload, false, "autopinbreak", "autopinbreak_enabled"),
		AttemptTimeS:        getInt(payload, 0, "attempttime", "attempt_time_s"),
		ThermalTempC:        getFloat(payload, 0, "thermaltemp", "thermal_temp_c"),
		RefluxEnabled:       getBool(payload, false, "refluxenabled", "reflux_enabled"),
		RefluxTempC:         getFloat(payload, 0, "refluxtemp", "reflux_temp_c"),
		PurgeVacSwitchpoint: getFloat(payload, 0, "purgevacswitchpoint", "purge_vac_switchpoint"),
		StirSpeedRPM:        getInt(payload, 0, "stirspeed", "stir_speed_rpm"),
		PurgeSetPressure:    getFloat(payload, 0, "purgesetpressure", "purge_set_pressure"),
	}
	if ct := getString(payload, "cycletype", "cycle_type"); ct != nil {
		r.CycleType = *ct
	}

	times := getList(payload, keyStepTime)
	pressures := getList(payload, keyStepPressure)
	thermal := getList(payload, keyStepThermalTemp)
	postPressures := getList(payload, keyStepPostPressure)
	reflux := getList(payload, keyStepRefluxTemp)
	stir := getList(payload, keyStepStirSpeed)

	n := getInt(payload, 0, "numberofautopinbreaks", "num_autopinbreaks")
	if n <= 0 {
		n = max(len(times), len(pressures), len(thermal), len(postPressures), len(reflux), len(stir))
	}
	n = min(n, MaxSteps)
	r.NumAutopinbreaks = n

	r.Steps = make([]PinbreakStep, n)
	for i := range n {
		r.Steps[i] = PinbreakStep{
			Index:                    i,
			AutopinbreakTimeMS:       intAt(times, i),
			AutopinbreakPressure:     floatAt(pressures, i),
			PostpinbreakThermalTempC: floatAt(thermal, i),
			PostpinbreakPressure:     floatAt(postPressures, i),
			PostpinbreakRefluxTempC:  floatAt(reflux, i),
			PostpinbreakStirSpeedRPM: intAt(stir, i),
		}
	}

	return r
}

// PayloadHash returns the hex SHA-256 of the payload's canonical JSON:
// object keys sorted, no insignificant whitespace, HTML characters unescaped.
func PayloadHash(payload map[string]any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	sum := sha256.Sum256(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return hex.EncodeToString(sum[:]), nil
}

func lookup(payload map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := payload[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func getString(payload map[string]any, keys ...string) *string {
	v, ok := lookup(payload, keys...)
	if !ok {
		return nil
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	default:
		s = fmt.Sprint(t)
	}
	return &s
}

// getBool tries each key in order; the first present key decides, even if its
// value is unparseable (in which case def is returned).
func getBool(payload map[string]any, def bool, keys ...string) bool {
	v, ok := lookup(payload, keys...)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return def
		}
		return b
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}
	return def
}

// getInt tries each key in order and returns the first that parses.
func getInt(payload map[string]any, def int, keys ...string) int {
	for _, k := range keys {
		if v, ok := payload[k]; ok && v != nil {
			if f, ok := toFloat(v); ok {
				return int(f)
			}
		}
	}
	return def
}

// getFloat tries each key in order and returns the first that parses.
func getFloat(payload map[string]any, def float64, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := payload[k]; ok && v != nil {
			if f, ok := toFloat(v); ok {
				return f
			}
		}
	}
	return def
}

// getList returns the array under key. Non-array values yield an empty list.
func getList(payload map[string]any, key string) []any {
	v, ok := payload[key].([]any)
	if !ok {
		return nil
	}
	return v
}

func intAt(list []any, i int) *int {
	if i >= len(list) {
		return nil
	}
	f, ok := toFloat(list[i])
	if !ok {
		return nil
	}
	n := int(f)
	return &n
}

func floatAt(list []any, i int) *float64 {
	if i >= len(list) {
		return nil
	}
	f, ok := toFloat(list[i])
	if !ok {
		return nil
	}
	return &f
}

// toFloat converts JSON-decoded numbers, numeric strings, and Go integer
// types. Booleans and NaN/Inf are rejected.
func toFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
