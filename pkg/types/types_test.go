package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScenarioValidate(t *testing.T) {
	valid := ScenarioDefinition{
		Name:            "cpu-medium",
		FaultType:       FaultCPU,
		Intensity:       IntensityMedium,
		DurationSeconds: 30,
	}

	tests := []struct {
		name     string
		mutate   func(s *ScenarioDefinition)
		errorMsg string
	}{
		{
			name:   "valid scenario",
			mutate: func(s *ScenarioDefinition) {},
		},
		{
			name:     "missing name",
			mutate:   func(s *ScenarioDefinition) { s.Name = "" },
			errorMsg: "name is required",
		},
		{
			name:     "unknown fault type",
			mutate:   func(s *ScenarioDefinition) { s.FaultType = "thermal" },
			errorMsg: "unsupported fault_type",
		},
		{
			name:     "unknown intensity",
			mutate:   func(s *ScenarioDefinition) { s.Intensity = "extreme" },
			errorMsg: "unsupported intensity",
		},
		{
			name:     "zero duration",
			mutate:   func(s *ScenarioDefinition) { s.DurationSeconds = 0 },
			errorMsg: "duration_seconds must be positive",
		},
		{
			name:     "negative duration",
			mutate:   func(s *ScenarioDefinition) { s.DurationSeconds = -5 },
			errorMsg: "duration_seconds must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenario := valid
			tt.mutate(&scenario)
			err := scenario.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errorMsg)
		})
	}
}

func TestEveryFaultTypeValidates(t *testing.T) {
	for _, ft := range FaultTypes {
		scenario := ScenarioDefinition{
			Name:            "probe-" + string(ft),
			FaultType:       ft,
			Intensity:       IntensityLight,
			DurationSeconds: 1,
		}
		assert.NoError(t, scenario.Validate())
	}
}

func TestScenarioDuration(t *testing.T) {
	scenario := ScenarioDefinition{DurationSeconds: 90}
	assert.Equal(t, 90*time.Second, scenario.Duration())
}

func TestPhaseSamplesNilMap(t *testing.T) {
	var result ScenarioResult
	assert.Nil(t, result.PhaseSamples(PhaseChaos))

	result.Samples = map[Phase][]ProbeSample{
		PhaseBaseline: {{Success: true}},
	}
	assert.Len(t, result.PhaseSamples(PhaseBaseline), 1)
	assert.Empty(t, result.PhaseSamples(PhaseRecovery))
}
