package faults

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chaosproof/chaosproof/pkg/cerrors"
	"github.com/chaosproof/chaosproof/pkg/log"
	"github.com/chaosproof/chaosproof/pkg/types"
	"github.com/chaosproof/chaosproof/pkg/utils/retry"
)

// Candidate is one concrete mechanism able to produce a fault effect. Every
// fault type maps to an ordered candidate list; the adapter walks the list
// until one mechanism confirms the effect active, transparently to callers.
type Candidate interface {
	Name() string
	Available() bool
	Start(scenario types.ScenarioDefinition, target string) (*Handle, error)
}

// Adapter produces and removes bounded fault effects. It is the only
// component that starts mechanisms; handles it returns are owned by the
// caller until stopped.
type Adapter struct {
	registry       map[types.FaultType][]Candidate
	confirmRetries uint
	confirmWait    time.Duration
}

// NewAdapter builds the adapter with the full candidate registry. Adding a
// fault type means registering its candidates here and nothing else.
func NewAdapter() *Adapter {
	return &Adapter{
		registry: map[types.FaultType][]Candidate{
			types.FaultCPU:              cpuCandidates(),
			types.FaultMemory:           memoryCandidates(),
			types.FaultNetworkDelay:     networkDelayCandidates(),
			types.FaultNetworkLoss:      networkLossCandidates(),
			types.FaultDiskIO:           diskIOCandidates(),
			types.FaultContainerRestart: containerRestartCandidates(),
			types.FaultDependencyOutage: dependencyOutageCandidates(),
		},
		confirmRetries: 15,
		confirmWait:    200 * time.Millisecond,
	}
}

// Start produces the fault effect described by the scenario. On return
// either the effect is confirmed active and captured in the handle, or no
// fault state remains on the host.
func (a *Adapter) Start(scenario types.ScenarioDefinition, target string) (*Handle, error) {
	if scenario.DryRun {
		return startNoop(scenario, target), nil
	}

	candidates, ok := a.registry[scenario.FaultType]
	if !ok {
		return nil, cerrors.StartupFailure{FaultType: string(scenario.FaultType), Target: target, Reason: "no mechanism registered for this fault type"}
	}

	lastReason := "no mechanism available on this host"
	for _, candidate := range candidates {
		if !candidate.Available() {
			log.Infof("[Fault]: Mechanism %v is not available, trying the next candidate", candidate.Name())
			continue
		}

		handle, err := candidate.Start(scenario, target)
		if err != nil {
			log.Warnf("[Fault]: Mechanism %v failed to start, err: %v", candidate.Name(), err)
			lastReason = err.Error()
			continue
		}

		if err := a.confirmActive(handle); err != nil {
			// roll back whatever the mechanism managed to apply before
			// moving on, so no orphan state survives a failed candidate
			if stopErr := handle.Stop(); stopErr != nil {
				log.Errorf("[Fault]: Failed to roll back unconfirmed %v mechanism, err: %v", candidate.Name(), stopErr)
			}
			lastReason = err.Error()
			continue
		}

		log.InfoWithValues("[Fault]: Fault effect confirmed active", logrus.Fields{
			"FaultType": scenario.FaultType,
			"Mechanism": candidate.Name(),
			"Intensity": scenario.Intensity,
			"Target":    target,
		})
		return handle, nil
	}

	return nil, cerrors.StartupFailure{FaultType: string(scenario.FaultType), Target: target, Reason: lastReason}
}

// Stop releases the fault effect. Safe on nil and already-stopped handles.
func (a *Adapter) Stop(handle *Handle) error {
	if handle == nil {
		return nil
	}
	return handle.Stop()
}

// IsRunning reports whether the handle's effect is still active
func (a *Adapter) IsRunning(handle *Handle) bool {
	if handle == nil {
		return false
	}
	return handle.IsRunning()
}

func (a *Adapter) confirmActive(handle *Handle) error {
	return retry.
		Times(a.confirmRetries).
		Wait(a.confirmWait).
		Try(func(attempt uint) error {
			if !handle.IsRunning() {
				return cerrors.Generic{Phase: "FaultConfirmation", Reason: "fault effect not yet observed active"}
			}
			return nil
		})
}
