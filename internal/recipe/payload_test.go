package recipe

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decode mirrors what the API handler hands the store.
func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

const benchPayload = `{
	"cycletype": "full",
	"fixedholdtime": true,
	"numberofautopinbreaks": 3,
	"autopinbreak": true,
	"autopinbreaktime": [100, 200, 300],
	"autopinbreakpressure": [1.1, 1.2, 1.3],
	"postpinbreakthermaltemp": [10, 11, 12],
	"postpinbreakpressure": [2.1, 2.2, 2.3],
	"postpinbreakrefluxtemp": [3.1, 3.2, 3.3],
	"postpinbreakstirspeed": [400, 500, 600],
	"attempttime": 52200,
	"thermaltemp": -10,
	"refluxenabled": true,
	"refluxtemp": 1,
	"purgevacswitchpoint": 0,
	"stirspeed": 500,
	"purgesetpressure": 1
}`

func TestParsePayload_LegacyKeys(t *testing.T) {
	r := ParsePayload(decode(t, benchPayload))

	assert.Equal(t, "full", r.CycleType)
	assert.True(t, r.FixedHoldTime)
	assert.True(t, r.AutopinbreakEnabled)
	assert.Equal(t, 3, r.NumAutopinbreaks)
	assert.Equal(t, 52200, r.AttemptTimeS)
	assert.Equal(t, -10.0, r.ThermalTempC)
	assert.True(t, r.RefluxEnabled)
	assert.Equal(t, 1.0, r.RefluxTempC)
	assert.Equal(t, 500, r.StirSpeedRPM)
	assert.Equal(t, 1.0, r.PurgeSetPressure)
	assert.Nil(t, r.Name)

	require.Len(t, r.Steps, 3)
	step := r.Steps[1]
	assert.Equal(t, 1, step.Index)
	require.NotNil(t, step.AutopinbreakTimeMS)
	assert.Equal(t, 200, *step.AutopinbreakTimeMS)
	require.NotNil(t, step.AutopinbreakPressure)
	assert.InDelta(t, 1.2, *step.AutopinbreakPressure, 1e-9)
	require.NotNil(t, step.PostpinbreakStirSpeedRPM)
	assert.Equal(t, 500, *step.PostpinbreakStirSpeedRPM)
}

func TestParsePayload_ColumnKeys(t *testing.T) {
	r := ParsePayload(decode(t, `{
		"name": "Lane 2 default",
		"cycle_type": "short",
		"fixed_hold_time": 1,
		"attempt_time_s": "90",
		"stir_speed_rpm": 250.9
	}`))

	require.NotNil(t, r.Name)
	assert.Equal(t, "Lane 2 default", *r.Name)
	assert.Equal(t, "short", r.CycleType)
	assert.True(t, r.FixedHoldTime)
	assert.Equal(t, 90, r.AttemptTimeS)
	assert.Equal(t, 250, r.StirSpeedRPM, "fractional values truncate")
}

func TestParsePayload_Defaults(t *testing.T) {
	r := ParsePayload(map[string]any{})

	assert.Equal(t, "full", r.CycleType)
	assert.False(t, r.FixedHoldTime)
	assert.Zero(t, r.NumAutopinbreaks)
	assert.Empty(t, r.Steps)
}

func TestParsePayload_UnparseableScalarsFallBack(t *testing.T) {
	r := ParsePayload(decode(t, `{"attempttime": "soon", "attempt_time_s": 30, "thermaltemp": [1], "fixedholdtime": "perhaps"}`))

	assert.Equal(t, 30, r.AttemptTimeS, "second key used when first does not parse")
	assert.Zero(t, r.ThermalTempC)
	assert.False(t, r.FixedHoldTime)
}

func TestParsePayload_StepCountInferred(t *testing.T) {
	r := ParsePayload(decode(t, `{
		"autopinbreaktime": [100],
		"postpinbreakpressure": [1, "x", null, 4]
	}`))

	require.Len(t, r.Steps, 4)
	assert.Equal(t, 4, r.NumAutopinbreaks)

	require.NotNil(t, r.Steps[0].AutopinbreakTimeMS)
	assert.Nil(t, r.Steps[1].AutopinbreakTimeMS, "past end of array")
	assert.Nil(t, r.Steps[1].PostpinbreakPressure, "non-numeric entry")
	assert.Nil(t, r.Steps[2].PostpinbreakPressure, "null entry")
	require.NotNil(t, r.Steps[3].PostpinbreakPressure)
	assert.Equal(t, 4.0, *r.Steps[3].PostpinbreakPressure)
}

func TestParsePayload_ExplicitCountWins(t *testing.T) {
	r := ParsePayload(decode(t, `{"numberofautopinbreaks": 2, "autopinbreaktime": [1, 2, 3, 4]}`))
	assert.Len(t, r.Steps, 2)

	r = ParsePayload(decode(t, `{"numberofautopinbreaks": 3, "autopinbreaktime": [1]}`))
	require.Len(t, r.Steps, 3)
	assert.Nil(t, r.Steps[2].AutopinbreakTimeMS)
}

func TestParsePayload_StepCountCapped(t *testing.T) {
	r := ParsePayload(map[string]any{"numberofautopinbreaks": float64(1 << 30)})
	assert.Len(t, r.Steps, MaxSteps)
}

func TestPayloadHash(t *testing.T) {
	// Values computed from the sorted, compact JSON encoding.
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{
			name:    "keys sorted",
			payload: `{"b": "x", "a": 1}`,
			want:    "ecf9e98ec0641e23113ff3ce8bdc78d0ddd249886517fd4a7f68cc83d4e65667",
		},
		{
			name:    "nested array",
			payload: `{"cycletype":"full","numberofautopinbreaks":2,"autopinbreaktime":[100,200]}`,
			want:    "ed0a04cde87ad97840e412ab4cdd8209d930d2346ed87d28d2e2459d8c2e90bb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PayloadHash(decode(t, tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPayloadHash_OrderIndependent(t *testing.T) {
	a, err := PayloadHash(decode(t, `{"x": 1, "y": [1, 2], "z": {"q": true, "p": null}}`))
	require.NoError(t, err)
	b, err := PayloadHash(decode(t, `{"z": {"p": null, "q": true}, "y": [1, 2], "x": 1}`))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := PayloadHash(decode(t, `{"x": 1, "y": [2, 1], "z": {"q": true, "p": null}}`))
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "array order is significant")
}

func TestPayloadHash_Unencodable(t *testing.T) {
	_, err := PayloadHash(map[string]any{"bad": math.NaN()})
	assert.ErrorIs(t, err, ErrInvalidPayload)
}
