package types

import (
	"time"

	"github.com/pkg/errors"
)

// FaultType identifies one of the supported fault primitives. The set is
// closed: every value must have a registered injector implementation.
type FaultType string

const (
	FaultCPU              FaultType = "cpu"
	FaultMemory           FaultType = "memory"
	FaultNetworkDelay     FaultType = "network_delay"
	FaultNetworkLoss      FaultType = "network_loss"
	FaultDiskIO           FaultType = "disk_io"
	FaultContainerRestart FaultType = "container_restart"
	FaultDependencyOutage FaultType = "dependency_outage"
)

// FaultTypes lists every supported fault type, used for scenario validation
// and injector registry checks.
var FaultTypes = []FaultType{
	FaultCPU,
	FaultMemory,
	FaultNetworkDelay,
	FaultNetworkLoss,
	FaultDiskIO,
	FaultContainerRestart,
	FaultDependencyOutage,
}

// Intensity is the coarse knob mapped to tool-specific arguments by each
// fault injector
type Intensity string

const (
	IntensityLight  Intensity = "light"
	IntensityMedium Intensity = "medium"
	IntensityHeavy  Intensity = "heavy"
)

// Phase tags a probe sample set within a scenario run
type Phase string

const (
	// PhaseBaseline covers the no-fault warm-up window
	PhaseBaseline Phase = "baseline"
	// PhaseChaos covers the window while the fault is active
	PhaseChaos Phase = "chaos"
	// PhaseRecovery covers the window after the fault has been stopped
	PhaseRecovery Phase = "recovery"
)

// ScenarioDefinition describes one fault-injection scenario. It is immutable,
// owned by the orchestrator for the scenario's lifetime.
type ScenarioDefinition struct {
	Name            string    `json:"name"`
	FaultType       FaultType `json:"fault_type"`
	Intensity       Intensity `json:"intensity"`
	DurationSeconds int       `json:"duration_seconds"`
	TargetSelector  string    `json:"target_selector"`
	DryRun          bool      `json:"dry_run"`
}

// Validate checks the scenario attributes before any fault is started
func (s ScenarioDefinition) Validate() error {
	if s.Name == "" {
		return errors.Errorf("scenario name is required")
	}
	known := false
	for _, ft := range FaultTypes {
		if s.FaultType == ft {
			known = true
			break
		}
	}
	if !known {
		return errors.Errorf("unsupported fault_type '%s' in scenario '%s'", s.FaultType, s.Name)
	}
	switch s.Intensity {
	case IntensityLight, IntensityMedium, IntensityHeavy:
	default:
		return errors.Errorf("unsupported intensity '%s' in scenario '%s'", s.Intensity, s.Name)
	}
	if s.DurationSeconds <= 0 {
		return errors.Errorf("duration_seconds must be positive in scenario '%s'", s.Name)
	}
	return nil
}

// Duration returns the scenario chaos window as a time.Duration
func (s ScenarioDefinition) Duration() time.Duration {
	return time.Duration(s.DurationSeconds) * time.Second
}

// ProbeSample is one health observation of the target. Samples are
// append-only and written by the prober alone while collection is running.
type ProbeSample struct {
	Timestamp   time.Time `json:"timestamp"`
	Success     bool      `json:"success"`
	LatencyMS   float64   `json:"latency_ms"`
	ErrorDetail string    `json:"error_detail,omitempty"`
}

// ScenarioResult is the hand-off artifact from the orchestrator to the
// validator. It is created once at scenario completion and never mutated
// afterwards.
type ScenarioResult struct {
	ScenarioName string                  `json:"scenario_name"`
	FaultType    FaultType               `json:"fault_type"`
	Samples      map[Phase][]ProbeSample `json:"samples"`

	// fault-process metadata
	FaultStartedAt time.Time `json:"fault_started_at"`
	FaultStoppedAt time.Time `json:"fault_stopped_at"`
	StopConfirmed  bool      `json:"stop_confirmed"`
	FaultMechanism string    `json:"fault_mechanism,omitempty"`

	// RecoveryWindowSeconds records the configured recovery ceiling so the
	// validator can derive MTTR without reaching back into run config
	RecoveryWindowSeconds float64 `json:"recovery_window_seconds"`

	AbortedDueToCriticalFailure bool   `json:"aborted_due_to_critical_failure"`
	AbortReason                 string `json:"abort_reason,omitempty"`
}

// PhaseSamples returns the samples recorded for the given phase
func (r ScenarioResult) PhaseSamples(phase Phase) []ProbeSample {
	if r.Samples == nil {
		return nil
	}
	return r.Samples[phase]
}

// SLOTarget is one reliability target the measured metrics are compared
// against. Read-only for the whole run.
type SLOTarget struct {
	Metric      string  `json:"metric"`
	Threshold   float64 `json:"threshold"`
	Direction   string  `json:"direction"`
	Environment string  `json:"environment,omitempty"`
}

const (
	// DirectionMax means the measured value must stay at or below the threshold
	DirectionMax = "max"
	// DirectionMin means the measured value must stay at or above the threshold
	DirectionMin = "min"
)

// MetricVerdict is the comparison outcome for a single derived metric
type MetricVerdict struct {
	Metric        string  `json:"metric"`
	MeasuredValue float64 `json:"measured_value"`
	Threshold     float64 `json:"threshold"`
	Direction     string  `json:"direction"`
	Passed        bool    `json:"passed"`
	Detail        string  `json:"detail,omitempty"`
}

// ValidationVerdict is the terminal pass/fail determination for one
// scenario. OverallPassed is true iff every per-metric verdict passed.
type ValidationVerdict struct {
	ScenarioName  string          `json:"scenario_name"`
	Metrics       []MetricVerdict `json:"metrics"`
	OverallPassed bool            `json:"overall_passed"`
	Violations    []string        `json:"violations,omitempty"`
}

// RunVerdict is the verdict document for the whole invocation, aggregating
// the per-scenario verdicts
type RunVerdict struct {
	RunID         string              `json:"run_id"`
	Environment   string              `json:"environment"`
	Scenarios     []ValidationVerdict `json:"scenarios"`
	OverallPassed bool                `json:"overall_passed"`
	Violations    []string            `json:"violations,omitempty"`
}

// RunDetails collects all the run-level tunables resolved from the
// environment, playing the role the experiment details struct plays for a
// single chaos experiment
type RunDetails struct {
	RunID             string
	TargetBaseURL     string
	Environment       string
	DryRun            bool
	ProbeInterval     time.Duration
	ProbeTimeout      time.Duration
	BaselineWindow    time.Duration
	RecoveryWindow    time.Duration
	Cooldown          time.Duration
	DetectionInterval time.Duration
	SuccessStreak     int

	// abort thresholds, checked continuously while the fault is active
	AbortErrorRatePercent    float64
	AbortConsecutiveFailures int
	AbortLatencyMS           float64

	// recovery observation ceiling used after an abort or external cancel
	AbortRecoveryWindow time.Duration
}
