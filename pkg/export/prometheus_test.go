package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaosproof/chaosproof/pkg/types"
)

func sampleVerdict() types.RunVerdict {
	return types.RunVerdict{
		RunID:       "run-42",
		Environment: "staging",
		Scenarios: []types.ValidationVerdict{
			{
				ScenarioName: "cpu-light",
				Metrics: []types.MetricVerdict{
					{Metric: "error_rate_percent", MeasuredValue: 12.5, Threshold: 50, Direction: "max", Passed: true},
					{Metric: "availability_percent", MeasuredValue: 87.5, Threshold: 70, Direction: "min", Passed: true},
				},
				OverallPassed: true,
			},
		},
		OverallPassed: true,
	}
}

func sampleResults() []types.ScenarioResult {
	return []types.ScenarioResult{
		{ScenarioName: "cpu-light", FaultType: types.FaultCPU, AbortedDueToCriticalFailure: false},
	}
}

func TestExport_RendersExpositionLines(t *testing.T) {
	exporter := NewExporter("")
	lines := exporter.Export(sampleVerdict(), sampleResults())

	require.NotEmpty(t, lines)
	text := strings.Join(lines, "\n")
	assert.Contains(t, text, `chaosproof_run_passed{environment="staging"} 1`)
	assert.Contains(t, text, `chaosproof_metric_value{metric="error_rate_percent",scenario="cpu-light"} 12.5`)
	assert.Contains(t, text, `chaosproof_metric_passed{metric="availability_percent",scenario="cpu-light"} 1`)
	assert.Contains(t, text, `chaosproof_scenario_aborted{scenario="cpu-light"} 0`)
}

func TestExport_UnreachableGatewayIsSwallowed(t *testing.T) {
	// nothing listens here; the push must fail without surfacing an error
	exporter := NewExporter("http://127.0.0.1:1")
	lines := exporter.Export(sampleVerdict(), sampleResults())
	assert.NotEmpty(t, lines, "render output must survive a failed push")
}

func TestExport_FailedVerdictRendersZeroGauges(t *testing.T) {
	verdict := sampleVerdict()
	verdict.OverallPassed = false
	verdict.Scenarios[0].Metrics[0].Passed = false

	exporter := NewExporter("")
	text := strings.Join(exporter.Export(verdict, sampleResults()), "\n")
	assert.Contains(t, text, `chaosproof_run_passed{environment="staging"} 0`)
	assert.Contains(t, text, `chaosproof_metric_passed{metric="error_rate_percent",scenario="cpu-light"} 0`)
}
