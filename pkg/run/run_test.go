package run

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaosproof/chaosproof/pkg/faults"
	"github.com/chaosproof/chaosproof/pkg/types"
)

// speedUp shrinks every window so a full invocation finishes in about a
// second of wall time
func speedUp(t *testing.T) {
	t.Helper()
	t.Setenv("PROBE_INTERVAL", "20ms")
	t.Setenv("PROBE_TIMEOUT", "200ms")
	t.Setenv("BASELINE_WINDOW", "100ms")
	t.Setenv("RECOVERY_WINDOW", "200ms")
	t.Setenv("SCENARIO_COOLDOWN", "10ms")
	t.Setenv("DETECTION_INTERVAL", "20ms")
	t.Setenv("ABORT_RECOVERY_WINDOW", "100ms")
}

// disableAbort raises every degradation threshold out of reach so even a
// fully failing target runs the scenario to completion
func disableAbort(t *testing.T) {
	t.Helper()
	t.Setenv("ABORT_CONSECUTIVE_FAILURES", "100000")
	t.Setenv("ABORT_ERROR_RATE_PERCENT", "101")
	t.Setenv("ABORT_LATENCY_MS", "10000000")
}

func writeScenarios(t *testing.T, scenarios []types.ScenarioDefinition) string {
	t.Helper()
	raw, err := json.Marshal(scenarios)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "scenarios.json")
	require.NoError(t, os.WriteFile(path, raw, 0644))
	return path
}

func baseConfig(t *testing.T, target string) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		ScenariosPath: writeScenarios(t, []types.ScenarioDefinition{
			{Name: "cpu-light", FaultType: types.FaultCPU, Intensity: types.IntensityLight, DurationSeconds: 1},
		}),
		TargetBaseURL: target,
		Environment:   "dev",
		ResultsPath:   filepath.Join(dir, "results.json"),
		VerdictPath:   filepath.Join(dir, "verdict.json"),
	}
}

// noopAdapter confirms instantly and touches nothing, so live-mode paths can
// be exercised without real stress tools
type noopAdapter struct{}

func (noopAdapter) Start(scenario types.ScenarioDefinition, target string) (*faults.Handle, error) {
	return faults.NewHandle(scenario.FaultType, "noop", target, func() bool { return true }, func() error { return nil }), nil
}

func (noopAdapter) Stop(handle *faults.Handle) error {
	if handle == nil {
		return nil
	}
	return handle.Stop()
}

func (noopAdapter) IsRunning(handle *faults.Handle) bool {
	if handle == nil {
		return false
	}
	return handle.IsRunning()
}

func readVerdict(t *testing.T, path string) types.RunVerdict {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var verdict types.RunVerdict
	require.NoError(t, json.Unmarshal(raw, &verdict))
	return verdict
}

func readResults(t *testing.T, path string) []types.ScenarioResult {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var results []types.ScenarioResult
	require.NoError(t, json.Unmarshal(raw, &results))
	return results
}

func TestExecuteDryRunPasses(t *testing.T) {
	speedUp(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := baseConfig(t, server.URL)
	cfg.Mode = "dry-run"
	cfg.Strict = true

	code := NewExecutor(cfg).Execute(context.Background())
	assert.Equal(t, ExitPassed, code)

	verdict := readVerdict(t, cfg.VerdictPath)
	assert.NotEmpty(t, verdict.RunID)
	assert.Equal(t, "dev", verdict.Environment)
	assert.True(t, verdict.OverallPassed)
	require.Len(t, verdict.Scenarios, 1)
	assert.Equal(t, "cpu-light", verdict.Scenarios[0].ScenarioName)

	results := readResults(t, cfg.ResultsPath)
	require.Len(t, results, 1)
	assert.Equal(t, "noop", results[0].FaultMechanism)
	assert.True(t, results[0].StopConfirmed)
}

func TestExecuteStrictViolation(t *testing.T) {
	speedUp(t)
	disableAbort(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := baseConfig(t, server.URL)
	cfg.Strict = true

	executor := NewExecutor(cfg)
	executor.Adapter = noopAdapter{}

	code := executor.Execute(context.Background())
	assert.Equal(t, ExitSLOViolation, code)

	verdict := readVerdict(t, cfg.VerdictPath)
	assert.False(t, verdict.OverallPassed)
	assert.NotEmpty(t, verdict.Violations)
}

func TestExecuteViolationWithoutStrict(t *testing.T) {
	speedUp(t)
	disableAbort(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := baseConfig(t, server.URL)
	cfg.Strict = false

	executor := NewExecutor(cfg)
	executor.Adapter = noopAdapter{}

	code := executor.Execute(context.Background())
	assert.Equal(t, ExitPassed, code)
	assert.False(t, readVerdict(t, cfg.VerdictPath).OverallPassed)
}

func TestExecuteMissingScenariosDocument(t *testing.T) {
	speedUp(t)

	cfg := baseConfig(t, "http://127.0.0.1:1")
	cfg.ScenariosPath = filepath.Join(t.TempDir(), "missing.json")

	code := NewExecutor(cfg).Execute(context.Background())
	assert.Equal(t, ExitSetupError, code)

	// even a broken invocation leaves both artifacts behind
	verdict := readVerdict(t, cfg.VerdictPath)
	assert.False(t, verdict.OverallPassed)
	assert.NotEmpty(t, verdict.Violations)
	assert.Empty(t, readResults(t, cfg.ResultsPath))
}

func TestExecuteUnresolvableTarget(t *testing.T) {
	speedUp(t)

	cfg := baseConfig(t, "http://chaosproof-nonexistent-host.invalid")

	code := NewExecutor(cfg).Execute(context.Background())
	assert.Equal(t, ExitSetupError, code)

	verdict := readVerdict(t, cfg.VerdictPath)
	assert.False(t, verdict.OverallPassed)
	require.NotEmpty(t, verdict.Violations)
	assert.Contains(t, verdict.Violations[0], "not resolvable")
}

func TestExecuteSLOOverridesApplied(t *testing.T) {
	speedUp(t)
	disableAbort(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	// an unreachable availability floor flips an otherwise healthy run
	overrides := []types.SLOTarget{
		{Metric: "availability_percent", Threshold: 101, Direction: "min"},
	}
	raw, err := json.Marshal(overrides)
	require.NoError(t, err)
	sloPath := filepath.Join(t.TempDir(), "slo.json")
	require.NoError(t, os.WriteFile(sloPath, raw, 0644))

	cfg := baseConfig(t, server.URL)
	cfg.SLOPath = sloPath
	cfg.Strict = true

	executor := NewExecutor(cfg)
	executor.Adapter = noopAdapter{}

	code := executor.Execute(context.Background())
	assert.Equal(t, ExitSLOViolation, code)

	verdict := readVerdict(t, cfg.VerdictPath)
	require.Len(t, verdict.Scenarios, 1)
	failed := map[string]bool{}
	for _, metric := range verdict.Scenarios[0].Metrics {
		failed[metric.Metric] = !metric.Passed
	}
	assert.True(t, failed["availability_percent"])
}

func TestExecuteInvalidScenarioDocument(t *testing.T) {
	speedUp(t)

	cfg := baseConfig(t, "http://127.0.0.1:1")
	path := filepath.Join(t.TempDir(), "scenarios.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0644))
	cfg.ScenariosPath = path

	code := NewExecutor(cfg).Execute(context.Background())
	assert.Equal(t, ExitSetupError, code)
	assert.Contains(t, readVerdict(t, cfg.VerdictPath).Violations[0], "empty")
}
