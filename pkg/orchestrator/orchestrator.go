package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/chaosproof/chaosproof/pkg/cerrors"
	"github.com/chaosproof/chaosproof/pkg/faults"
	"github.com/chaosproof/chaosproof/pkg/log"
	"github.com/chaosproof/chaosproof/pkg/probe"
	"github.com/chaosproof/chaosproof/pkg/types"
)

// scenario states, strictly ordered except for the abort path
const (
	stateIdle       = "IDLE"
	stateBaseline   = "BASELINE"
	stateInjecting  = "INJECTING"
	stateRecovering = "RECOVERING"
	stateComplete   = "COMPLETE"
	stateAborted    = "ABORTED"
)

// FaultAdapter is the capability the orchestrator needs from the fault
// primitive layer
type FaultAdapter interface {
	Start(scenario types.ScenarioDefinition, target string) (*faults.Handle, error)
	Stop(handle *faults.Handle) error
	IsRunning(handle *faults.Handle) bool
}

// ProbeSession is one running probe collection, snapshot-readable while
// collecting and drained exactly once by Stop
type ProbeSession interface {
	Snapshot() []types.ProbeSample
	Stop() []types.ProbeSample
}

// Prober starts an independent probing session against the target
type Prober interface {
	StartProbing(endpoint string) ProbeSession
}

// HTTPProber adapts the probe package to the Prober capability
type HTTPProber struct {
	*probe.Prober
}

func (p HTTPProber) StartProbing(endpoint string) ProbeSession {
	return p.Prober.StartProbing(endpoint)
}

// Orchestrator drives the baseline→inject→recover state machine for each
// scenario, one scenario at a time, guaranteeing that every started fault is
// stopped before the scenario is finalized.
type Orchestrator struct {
	run     types.RunDetails
	adapter FaultAdapter
	prober  Prober
	tracer  trace.Tracer
}

// New builds an orchestrator for one run
func New(run types.RunDetails, adapter FaultAdapter, prober Prober) *Orchestrator {
	return &Orchestrator{
		run:     run,
		adapter: adapter,
		prober:  prober,
		tracer:  otel.Tracer("chaosproof/orchestrator"),
	}
}

// RunScenarios executes every scenario sequentially, separated by the
// cooldown window. Overlapping faults would make the metrics
// uninterpretable, so there is deliberately no parallel mode.
func (o *Orchestrator) RunScenarios(ctx context.Context, scenarios []types.ScenarioDefinition) ([]types.ScenarioResult, error) {
	for _, scenario := range scenarios {
		if err := scenario.Validate(); err != nil {
			return nil, err
		}
	}

	results := make([]types.ScenarioResult, 0, len(scenarios))
	for i, scenario := range scenarios {
		if o.run.DryRun {
			scenario.DryRun = true
		}
		results = append(results, o.runScenario(ctx, scenario))

		if ctx.Err() != nil {
			log.Warnf("[Abort]: Run cancelled, skipping the remaining %d scenario(s)", len(scenarios)-i-1)
			break
		}
		if i < len(scenarios)-1 {
			log.Infof("[Wait]: Waiting for the %vs cooldown before the next scenario", o.run.Cooldown.Seconds())
			waitOrCancel(ctx, o.run.Cooldown, o.run.DetectionInterval)
		}
	}
	return results, nil
}

// runScenario runs the full state machine for one scenario. It always
// returns a finalized result, even when the scenario aborted.
func (o *Orchestrator) runScenario(ctx context.Context, scenario types.ScenarioDefinition) types.ScenarioResult {
	ctx, span := o.tracer.Start(ctx, "scenario "+scenario.Name)
	defer span.End()

	log.InfoWithValues("[Scenario]: Starting scenario", logrus.Fields{
		"Name":      scenario.Name,
		"FaultType": scenario.FaultType,
		"Intensity": scenario.Intensity,
		"Duration":  scenario.DurationSeconds,
		"DryRun":    scenario.DryRun,
	})

	result := types.ScenarioResult{
		ScenarioName:          scenario.Name,
		FaultType:             scenario.FaultType,
		RecoveryWindowSeconds: o.run.RecoveryWindow.Seconds(),
	}

	probeHandle := o.prober.StartProbing(o.run.TargetBaseURL)

	var (
		handle   *faults.Handle
		stopOnce sync.Once
		stopErr  error
	)
	// stopFault is the single release path for the fault effect. Every exit
	// of this function funnels through it via the deferred call below, and
	// the sync.Once keeps the adapter's Stop at exactly one call per
	// successful Start.
	stopFault := func() {
		stopOnce.Do(func() {
			if handle == nil {
				return
			}
			stopErr = o.adapter.Stop(handle)
			result.FaultStoppedAt = time.Now()
			if stopErr != nil {
				log.Errorf("[Fault]: Failed to stop %v fault, err: %v", scenario.FaultType, stopErr)
			}
		})
	}
	defer stopFault()

	aborted := false
	abortReason := ""
	state := stateIdle

	// BASELINE
	state = o.transition(span, scenario.Name, state, stateBaseline)
	if !waitOrCancel(ctx, o.run.BaselineWindow, o.run.DetectionInterval) {
		aborted = true
		abortReason = "external cancellation received during baseline"
	}

	// INJECTING
	if !aborted {
		state = o.transition(span, scenario.Name, state, stateInjecting)
		started, err := o.adapter.Start(scenario, o.run.TargetBaseURL)
		if err != nil {
			reason, _ := cerrors.GetRootCauseAndErrorCode(err)
			log.Errorf("[Fault]: %v", reason)
			aborted = true
			abortReason = reason
		} else {
			handle = started
			result.FaultStartedAt = handle.StartedAt
			result.FaultMechanism = handle.Mechanism

			monitor := newDegradationMonitor(o.run, probeHandle.Snapshot, handle.StartedAt)
			if reason, ok := o.waitInjecting(ctx, scenario.Duration(), monitor); !ok {
				aborted = true
				abortReason = reason
				log.Errorf("[Abort]: %v", cerrors.CriticalDegradation{Scenario: scenario.Name, Reason: reason}.Error())
			}
		}
	}

	// RECOVERING — entered on every path; shortened after an abort so the
	// result still carries recovery-phase observations
	state = o.transition(span, scenario.Name, state, stateRecovering)
	stopFault()
	recoveryStart := time.Now()

	window := o.run.RecoveryWindow
	if aborted {
		window = o.run.AbortRecoveryWindow
	}
	recovered := o.observeRecovery(ctx, probeHandle, recoveryStart, window)
	if !recovered {
		log.Warnf("[Recovery]: Target did not reach %d consecutive successes within %vs", o.run.SuccessStreak, window.Seconds())
	}

	// COMPLETE
	samples := probeHandle.Stop()
	result.Samples = partitionSamples(samples, result.FaultStartedAt, recoveryStart)
	result.StopConfirmed = stopErr == nil && !o.adapter.IsRunning(handle)
	result.AbortedDueToCriticalFailure = aborted
	result.AbortReason = abortReason

	finalState := stateComplete
	if aborted {
		finalState = stateAborted
	}
	o.transition(span, scenario.Name, state, finalState)
	log.InfoWithValues("[Scenario]: Scenario finalized", logrus.Fields{
		"Name":      scenario.Name,
		"State":     finalState,
		"Baseline":  len(result.Samples[types.PhaseBaseline]),
		"Chaos":     len(result.Samples[types.PhaseChaos]),
		"Recovery":  len(result.Samples[types.PhaseRecovery]),
		"Recovered": recovered,
	})
	return result
}

// waitInjecting blocks for the scenario duration while checking the
// degradation monitor and the cancel signal once per detection interval
func (o *Orchestrator) waitInjecting(ctx context.Context, duration time.Duration, monitor *degradationMonitor) (string, bool) {
	deadline := time.Now().Add(duration)
	for {
		if reason, degraded := monitor.check(); degraded {
			return reason, false
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", true
		}
		step := o.run.DetectionInterval
		if remaining < step {
			step = remaining
		}
		select {
		case <-ctx.Done():
			return "external cancellation received during injection", false
		case <-time.After(step):
		}
	}
}

// observeRecovery keeps reading the probe stream until the success streak is
// seen or the window elapses. An external cancel mid-recovery truncates the
// window to a few probe intervals instead of cutting observation off
// entirely.
func (o *Orchestrator) observeRecovery(ctx context.Context, probeHandle ProbeSession, since time.Time, window time.Duration) bool {
	deadline := time.Now().Add(window)
	cancelShort := time.Duration(o.run.SuccessStreak)*o.run.ProbeInterval + o.run.DetectionInterval
	done := ctx.Done()

	for time.Now().Before(deadline) {
		if hasSuccessStreak(probeHandle.Snapshot(), since, o.run.SuccessStreak) {
			log.Infof("[Recovery]: Target recovered with %d consecutive successful probes", o.run.SuccessStreak)
			return true
		}
		select {
		case <-done:
			done = nil
			if truncated := time.Now().Add(cancelShort); truncated.Before(deadline) {
				deadline = truncated
			}
		default:
		}
		step := o.run.DetectionInterval
		if remaining := time.Until(deadline); remaining < step {
			step = remaining
		}
		if step > 0 {
			time.Sleep(step)
		}
	}
	return hasSuccessStreak(probeHandle.Snapshot(), since, o.run.SuccessStreak)
}

func (o *Orchestrator) transition(span trace.Span, scenario, from, to string) string {
	span.AddEvent(to)
	log.Infof("[State]: Scenario %v: %v -> %v", scenario, from, to)
	return to
}

// partitionSamples splits one continuous probe stream into the three phase
// sets using the fault start/stop timestamps as boundaries. The ranges are
// non-overlapping and ordered by construction.
func partitionSamples(samples []types.ProbeSample, chaosStart, recoveryStart time.Time) map[types.Phase][]types.ProbeSample {
	out := map[types.Phase][]types.ProbeSample{
		types.PhaseBaseline: {},
		types.PhaseChaos:    {},
		types.PhaseRecovery: {},
	}
	for _, s := range samples {
		switch {
		case !recoveryStart.IsZero() && !s.Timestamp.Before(recoveryStart):
			out[types.PhaseRecovery] = append(out[types.PhaseRecovery], s)
		case !chaosStart.IsZero() && !s.Timestamp.Before(chaosStart):
			out[types.PhaseChaos] = append(out[types.PhaseChaos], s)
		default:
			out[types.PhaseBaseline] = append(out[types.PhaseBaseline], s)
		}
	}
	return out
}

// waitOrCancel sleeps for the full duration in steps no longer than the
// polling interval, returning false as soon as the context is cancelled
func waitOrCancel(ctx context.Context, duration, pollInterval time.Duration) bool {
	deadline := time.Now().Add(duration)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		step := pollInterval
		if remaining < step {
			step = remaining
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(step):
		}
	}
}
