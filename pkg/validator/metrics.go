package validator

import (
	"time"

	"github.com/chaosproof/chaosproof/pkg/cerrors"
	"github.com/chaosproof/chaosproof/pkg/types"
)

// derived metric names, listed in the fixed order verdicts are emitted in
const (
	MetricAvailability       = "availability_percent"
	MetricErrorRate          = "error_rate_percent"
	MetricLatencyDegradation = "latency_degradation_ms"
	MetricMTTR               = "mttr_seconds"
	MetricRecoveryTime       = "recovery_time_seconds"
)

// MetricNames lists every derived metric in emission order
var MetricNames = []string{
	MetricAvailability,
	MetricErrorRate,
	MetricLatencyDegradation,
	MetricMTTR,
	MetricRecoveryTime,
}

// successStreak is the run of consecutive successes that marks the target
// as recovered for MTTR and recovery-time purposes
const successStreak = 3

// measurement is one derived value, or the validation gap explaining why it
// could not be derived
type measurement struct {
	value float64
	gap   *cerrors.ValidationGap
}

func derive(metric string, result types.ScenarioResult) measurement {
	switch metric {
	case MetricAvailability:
		return deriveAvailability(result)
	case MetricErrorRate:
		return deriveErrorRate(result)
	case MetricLatencyDegradation:
		return deriveLatencyDegradation(result)
	case MetricMTTR:
		return deriveMTTR(result)
	case MetricRecoveryTime:
		return deriveRecoveryTime(result)
	}
	return measurement{gap: &cerrors.ValidationGap{Metric: metric, Phase: "unknown"}}
}

// deriveErrorRate is failed over total samples across the chaos phase alone
func deriveErrorRate(result types.ScenarioResult) measurement {
	chaos := result.PhaseSamples(types.PhaseChaos)
	if len(chaos) == 0 {
		return measurement{gap: &cerrors.ValidationGap{Metric: MetricErrorRate, Phase: string(types.PhaseChaos)}}
	}
	failed := 0
	for _, s := range chaos {
		if !s.Success {
			failed++
		}
	}
	return measurement{value: float64(failed) / float64(len(chaos)) * 100}
}

// deriveAvailability is successful over total samples across the chaos and
// recovery phases combined
func deriveAvailability(result types.ScenarioResult) measurement {
	combined := append([]types.ProbeSample{}, result.PhaseSamples(types.PhaseChaos)...)
	combined = append(combined, result.PhaseSamples(types.PhaseRecovery)...)
	if len(combined) == 0 {
		return measurement{gap: &cerrors.ValidationGap{Metric: MetricAvailability, Phase: "chaos+recovery"}}
	}
	ok := 0
	for _, s := range combined {
		if s.Success {
			ok++
		}
	}
	return measurement{value: float64(ok) / float64(len(combined)) * 100}
}

// deriveLatencyDegradation is mean chaos latency minus mean baseline
// latency, clamped at zero
func deriveLatencyDegradation(result types.ScenarioResult) measurement {
	baseline := result.PhaseSamples(types.PhaseBaseline)
	if len(baseline) == 0 {
		return measurement{gap: &cerrors.ValidationGap{Metric: MetricLatencyDegradation, Phase: string(types.PhaseBaseline)}}
	}
	chaos := result.PhaseSamples(types.PhaseChaos)
	if len(chaos) == 0 {
		return measurement{gap: &cerrors.ValidationGap{Metric: MetricLatencyDegradation, Phase: string(types.PhaseChaos)}}
	}
	degradation := meanLatency(chaos) - meanLatency(baseline)
	if degradation < 0 {
		degradation = 0
	}
	return measurement{value: degradation}
}

// deriveMTTR measures from the first failed probe after fault start to the
// first sample of a run of successStreak consecutive successes. When the
// streak never completes inside the recovery window the window length is
// the value, a ceiling rather than an unknown.
func deriveMTTR(result types.ScenarioResult) measurement {
	chaos := result.PhaseSamples(types.PhaseChaos)
	if len(chaos) == 0 {
		return measurement{gap: &cerrors.ValidationGap{Metric: MetricMTTR, Phase: string(types.PhaseChaos)}}
	}
	combined := append([]types.ProbeSample{}, chaos...)
	combined = append(combined, result.PhaseSamples(types.PhaseRecovery)...)

	firstFailure, found := firstFailureAt(combined, result.FaultStartedAt)
	if !found {
		// the fault never produced a failed probe, nothing to recover from
		return measurement{value: 0}
	}
	streakStart, recovered := streakStartAfter(combined, firstFailure)
	if !recovered {
		return measurement{value: result.RecoveryWindowSeconds}
	}
	return measurement{value: streakStart.Sub(firstFailure).Seconds()}
}

// deriveRecoveryTime measures from the fault stop to the first sample of
// the consecutive-success run, with the recovery window as ceiling
func deriveRecoveryTime(result types.ScenarioResult) measurement {
	recovery := result.PhaseSamples(types.PhaseRecovery)
	if len(recovery) == 0 {
		return measurement{gap: &cerrors.ValidationGap{Metric: MetricRecoveryTime, Phase: string(types.PhaseRecovery)}}
	}
	streakStart, recovered := streakStartAfter(recovery, result.FaultStoppedAt)
	if !recovered {
		return measurement{value: result.RecoveryWindowSeconds}
	}
	value := streakStart.Sub(result.FaultStoppedAt).Seconds()
	if value < 0 {
		value = 0
	}
	return measurement{value: value}
}

func meanLatency(samples []types.ProbeSample) float64 {
	total := 0.0
	for _, s := range samples {
		total += s.LatencyMS
	}
	return total / float64(len(samples))
}

// firstFailureAt returns the timestamp of the first failed sample at or
// after the given time
func firstFailureAt(samples []types.ProbeSample, after time.Time) (time.Time, bool) {
	for _, s := range samples {
		if !s.Success && !s.Timestamp.Before(after) {
			return s.Timestamp, true
		}
	}
	return time.Time{}, false
}

// streakStartAfter returns the timestamp of the first sample of the first
// run of successStreak consecutive successes at or after the given time
func streakStartAfter(samples []types.ProbeSample, after time.Time) (time.Time, bool) {
	run := 0
	var start time.Time
	for _, s := range samples {
		if s.Timestamp.Before(after) {
			continue
		}
		if !s.Success {
			run = 0
			continue
		}
		if run == 0 {
			start = s.Timestamp
		}
		run++
		if run >= successStreak {
			return start, true
		}
	}
	return time.Time{}, false
}
