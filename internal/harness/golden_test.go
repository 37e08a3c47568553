package harness

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edmd/internal/model"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"head_on", "wall_bounce"} {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, loadTestScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestMarshalTrace(t *testing.T) {
	result := NewResult()
	result.AddTrace(TraceEvent{
		Seq: 7, Time: 0.1 + 0.2, Dt: math.Copysign(0, -1), Type: "STEP_IN",
		Source: "interaction", Particle1: 3, Particle2: 4, DeltaKE: -1e-15,
	})
	result.AddTrace(TraceEvent{
		Seq: 8, Time: 12345.678901234, Dt: 2, Type: "TICK",
		Source: "system", Particle1: model.NoPartner, Particle2: model.NoPartner,
	})

	data, err := MarshalTrace("rounding", "", result)
	require.NoError(t, err)

	assert.Equal(t,
		`{"scenario_name":"rounding","trace":[`+
			`{"delta_ke":"0","dt":"0","p1":3,"p2":4,"seq":7,"source":"interaction","time":"0.3","type":"STEP_IN"},`+
			`{"delta_ke":"0","dt":"2","p1":-1,"p2":-1,"seq":8,"source":"system","time":"12345.6789","type":"TICK"}]}`,
		string(data))
}

func TestMarshalTrace_Empty(t *testing.T) {
	data, err := MarshalTrace("empty", "run-1", NewResult())
	require.NoError(t, err)
	assert.Equal(t, `{"run_id":"run-1","scenario_name":"empty","trace":[]}`, string(data))
}
