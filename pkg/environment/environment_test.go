package environment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetRunDetails_Defaults(t *testing.T) {
	run := GetRunDetails("http://localhost:8080", "dev", false)

	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, "http://localhost:8080", run.TargetBaseURL)
	assert.Equal(t, "dev", run.Environment)
	assert.Equal(t, 1*time.Second, run.ProbeInterval)
	assert.Equal(t, 5*time.Second, run.ProbeTimeout)
	assert.Equal(t, 10*time.Second, run.BaselineWindow)
	assert.Equal(t, 60*time.Second, run.RecoveryWindow)
	assert.Equal(t, 5*time.Second, run.Cooldown)
	assert.Equal(t, 3, run.SuccessStreak)
	assert.Equal(t, float64(50), run.AbortErrorRatePercent)
	assert.Equal(t, 10, run.AbortConsecutiveFailures)
	assert.Equal(t, float64(5000), run.AbortLatencyMS)
}

func TestGetRunDetails_Overrides(t *testing.T) {
	t.Setenv("PROBE_INTERVAL", "250ms")
	t.Setenv("RECOVERY_WINDOW", "30")
	t.Setenv("RECOVERY_SUCCESS_STREAK", "5")
	t.Setenv("ABORT_ERROR_RATE_PERCENT", "75.5")

	run := GetRunDetails("http://localhost:8080", "staging", true)

	assert.True(t, run.DryRun)
	assert.Equal(t, 250*time.Millisecond, run.ProbeInterval)
	assert.Equal(t, 30*time.Second, run.RecoveryWindow)
	assert.Equal(t, 5, run.SuccessStreak)
	assert.Equal(t, 75.5, run.AbortErrorRatePercent)
}

func TestGetRunDetails_BadOverrideFallsBack(t *testing.T) {
	t.Setenv("BASELINE_WINDOW", "not-a-duration")

	run := GetRunDetails("http://localhost:8080", "dev", false)
	assert.Equal(t, 10*time.Second, run.BaselineWindow)
}
