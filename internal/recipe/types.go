package recipe

import "time"

// Recipe is one stored recipe version for a lane.
//
// JSON keys follow the legacy payload names so bench clients can round-trip
// what they posted.
type Recipe struct {
	ID                  string         `json:"id"`
	Lane                uint8          `json:"lane_addr"`
	Name                *string        `json:"name"`
	CycleType           string         `json:"cycletype"`
	FixedHoldTime       bool           `json:"fixedholdtime"`
	AutopinbreakEnabled bool           `json:"autopinbreak"`
	NumAutopinbreaks    int            `json:"numberofautopinbreaks"`
	AttemptTimeS        int            `json:"attempttime"`
	ThermalTempC        float64        `json:"thermaltemp"`
	RefluxEnabled       bool           `json:"refluxenabled"`
	RefluxTempC         float64        `json:"refluxtemp"`
	PurgeVacSwitchpoint float64        `json:"purgevacswitchpoint"`
	StirSpeedRPM        int            `json:"stirspeed"`
	PurgeSetPressure    float64        `json:"purgesetpressure"`
	SHA256              string         `json:"sha256"`
	Active              bool           `json:"active"`
	CreatedAt           time.Time      `json:"created_ts"`
	Steps               []PinbreakStep `json:"pinbreak_steps"`
}

// PinbreakStep is one auto pin-break step. Nil fields were missing or
// non-numeric in the payload.
type PinbreakStep struct {
	Index                    int      `json:"idx"`
	AutopinbreakTimeMS       *int     `json:"autopinbreaktime"`
	AutopinbreakPressure     *float64 `json:"autopinbreakpressure"`
	PostpinbreakThermalTempC *float64 `json:"postpinbreakthermaltemp"`
	PostpinbreakPressure     *float64 `json:"postpinbreakpressure"`
	PostpinbreakRefluxTempC  *float64 `json:"postpinbreakrefluxtemp"`
	PostpinbreakStirSpeedRPM *int     `json:"postpinbreakstirspeed"`
}

// UpsertResult reports the outcome of Store.Upsert.
type UpsertResult struct {
	Lane     uint8  `json:"lane_addr"`
	RecipeID string `json:"recipe_id"`
	SHA256   string `json:"sha256"`

	// Updated is false when the payload matched the active recipe.
	Updated bool `json:"updated"`
}
