package faults

import (
	"time"

	"github.com/chaosproof/chaosproof/pkg/types"
)

// startNoop returns a handle that tracks the full fault lifecycle without
// touching the host. Dry runs exercise every state transition and timing of
// the orchestrator against it.
func startNoop(scenario types.ScenarioDefinition, target string) *Handle {
	return &Handle{
		FaultType: scenario.FaultType,
		Mechanism: "noop",
		Target:    target,
		StartedAt: time.Now(),
	}
}
