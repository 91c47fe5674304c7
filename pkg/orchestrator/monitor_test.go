package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chaosproof/chaosproof/pkg/types"
)

func sampleStream(start time.Time, interval time.Duration, outcomes []bool, latency float64) []types.ProbeSample {
	samples := make([]types.ProbeSample, 0, len(outcomes))
	for i, ok := range outcomes {
		samples = append(samples, types.ProbeSample{
			Timestamp: start.Add(time.Duration(i) * interval),
			Success:   ok,
			LatencyMS: latency,
		})
	}
	return samples
}

func monitorRun() types.RunDetails {
	return types.RunDetails{
		AbortErrorRatePercent:    50,
		AbortConsecutiveFailures: 5,
		AbortLatencyMS:           5000,
	}
}

func TestMonitor_NoSamplesIsHealthy(t *testing.T) {
	m := newDegradationMonitor(monitorRun(), func() []types.ProbeSample { return nil }, time.Now())
	_, degraded := m.check()
	assert.False(t, degraded)
}

func TestMonitor_ConsecutiveFailures(t *testing.T) {
	start := time.Now()
	samples := sampleStream(start, time.Second, []bool{true, false, false, false, false, false}, 10)

	m := newDegradationMonitor(monitorRun(), func() []types.ProbeSample { return samples }, start)
	reason, degraded := m.check()
	assert.True(t, degraded)
	assert.Contains(t, reason, "consecutive probe failures")
}

func TestMonitor_RollingErrorRate(t *testing.T) {
	start := time.Now()
	// alternating failures keep the consecutive count low but push the
	// rolling rate over 50%
	samples := sampleStream(start, time.Second, []bool{false, true, false, false, true, false, false, true, false, false}, 10)

	run := monitorRun()
	run.AbortConsecutiveFailures = 10
	m := newDegradationMonitor(run, func() []types.ProbeSample { return samples }, start)
	reason, degraded := m.check()
	assert.True(t, degraded)
	assert.Contains(t, reason, "rolling error rate")
}

func TestMonitor_AverageLatency(t *testing.T) {
	start := time.Now()
	samples := sampleStream(start, time.Second, []bool{true, true, true, true}, 9000)

	m := newDegradationMonitor(monitorRun(), func() []types.ProbeSample { return samples }, start)
	reason, degraded := m.check()
	assert.True(t, degraded)
	assert.Contains(t, reason, "average latency")
}

func TestMonitor_IgnoresSamplesBeforeFaultStart(t *testing.T) {
	start := time.Now()
	old := sampleStream(start.Add(-time.Minute), time.Second, []bool{false, false, false, false, false, false}, 10)

	m := newDegradationMonitor(monitorRun(), func() []types.ProbeSample { return old }, start)
	_, degraded := m.check()
	assert.False(t, degraded)
}

func TestMonitor_HealthyStream(t *testing.T) {
	start := time.Now()
	samples := sampleStream(start, time.Second, []bool{true, true, true, true, true, true, true, true, true, true}, 20)

	m := newDegradationMonitor(monitorRun(), func() []types.ProbeSample { return samples }, start)
	_, degraded := m.check()
	assert.False(t, degraded)
}

func TestHasSuccessStreak(t *testing.T) {
	start := time.Now()

	recovered := sampleStream(start, time.Second, []bool{false, false, true, true, true}, 10)
	assert.True(t, hasSuccessStreak(recovered, start, 3))

	flapping := sampleStream(start, time.Second, []bool{true, true, false, true, true, false}, 10)
	assert.False(t, hasSuccessStreak(flapping, start, 3))

	// streak before the anchor time does not count
	early := sampleStream(start.Add(-time.Minute), time.Second, []bool{true, true, true}, 10)
	assert.False(t, hasSuccessStreak(early, start, 3))
}
