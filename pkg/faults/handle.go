package faults

import (
	"sync"
	"time"

	"github.com/chaosproof/chaosproof/pkg/types"
)

// Handle is the scoped owner of one active fault effect. It is created by
// the adapter, owned exclusively by the orchestrator that started it, and
// releases every side effect of the fault exactly once regardless of how
// often Stop is called.
type Handle struct {
	FaultType types.FaultType
	Mechanism string
	Target    string
	StartedAt time.Time

	mu      sync.Mutex
	stopped bool
	release func() error
	running func() bool
}

// NewHandle builds a handle around a custom mechanism. The running check
// and the release function may be nil: a nil check reports active until
// stopped, a nil release makes Stop state-only.
func NewHandle(faultType types.FaultType, mechanism, target string, running func() bool, release func() error) *Handle {
	return &Handle{
		FaultType: faultType,
		Mechanism: mechanism,
		Target:    target,
		StartedAt: time.Now(),
		running:   running,
		release:   release,
	}
}

// Stop releases the fault's side effects. It is idempotent: repeated calls
// and calls on an already-stopped handle return nil.
func (h *Handle) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return nil
	}
	h.stopped = true
	if h.release == nil {
		return nil
	}
	return h.release()
}

// IsRunning reports whether the fault effect is still observed active
func (h *Handle) IsRunning() bool {
	h.mu.Lock()
	stopped := h.stopped
	h.mu.Unlock()
	if stopped {
		return false
	}
	if h.running == nil {
		return true
	}
	return h.running()
}

// Stopped reports whether Stop has already been called on this handle
func (h *Handle) Stopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}
