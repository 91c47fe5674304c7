package orchestrator

import (
	"fmt"
	"time"

	"github.com/chaosproof/chaosproof/pkg/types"
)

// degradationMonitor watches the probe stream while a fault is active and
// flags the moment any abort threshold is crossed. It only ever reads
// snapshots, never the live sample list.
type degradationMonitor struct {
	run      types.RunDetails
	snapshot func() []types.ProbeSample
	since    time.Time
}

func newDegradationMonitor(run types.RunDetails, snapshot func() []types.ProbeSample, since time.Time) *degradationMonitor {
	return &degradationMonitor{run: run, snapshot: snapshot, since: since}
}

// check returns a reason and true when the target has degraded past an
// abort threshold
func (m *degradationMonitor) check() (string, bool) {
	samples := samplesAfter(m.snapshot(), m.since)
	if len(samples) == 0 {
		return "", false
	}

	if n := trailingFailures(samples); n >= m.run.AbortConsecutiveFailures {
		return fmt.Sprintf("%d consecutive probe failures", n), true
	}

	window := lastN(samples, m.run.AbortConsecutiveFailures)
	if len(window) >= m.run.AbortConsecutiveFailures {
		if rate := failureRate(window); rate > m.run.AbortErrorRatePercent {
			return fmt.Sprintf("rolling error rate %.1f%% exceeds %.1f%%", rate, m.run.AbortErrorRatePercent), true
		}
	}
	if len(window) >= 3 {
		if avg := averageLatency(window); avg > m.run.AbortLatencyMS {
			return fmt.Sprintf("average latency %.0fms exceeds %.0fms", avg, m.run.AbortLatencyMS), true
		}
	}
	return "", false
}

func samplesAfter(samples []types.ProbeSample, after time.Time) []types.ProbeSample {
	out := make([]types.ProbeSample, 0, len(samples))
	for _, s := range samples {
		if !s.Timestamp.Before(after) {
			out = append(out, s)
		}
	}
	return out
}

func lastN(samples []types.ProbeSample, n int) []types.ProbeSample {
	if len(samples) <= n {
		return samples
	}
	return samples[len(samples)-n:]
}

func trailingFailures(samples []types.ProbeSample) int {
	count := 0
	for i := len(samples) - 1; i >= 0; i-- {
		if samples[i].Success {
			break
		}
		count++
	}
	return count
}

func failureRate(samples []types.ProbeSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	failed := 0
	for _, s := range samples {
		if !s.Success {
			failed++
		}
	}
	return float64(failed) / float64(len(samples)) * 100
}

func averageLatency(samples []types.ProbeSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	total := 0.0
	for _, s := range samples {
		total += s.LatencyMS
	}
	return total / float64(len(samples))
}

// hasSuccessStreak reports whether the samples at or after the given time
// contain a run of at least streak consecutive successes
func hasSuccessStreak(samples []types.ProbeSample, after time.Time, streak int) bool {
	run := 0
	for _, s := range samplesAfter(samples, after) {
		if s.Success {
			run++
			if run >= streak {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}
