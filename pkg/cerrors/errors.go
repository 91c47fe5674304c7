package cerrors

import "fmt"

type Generic struct {
	Phase  string
	Reason string
}

func (e Generic) Error() string {
	if e.Phase == "" {
		return e.Reason
	}
	return fmt.Sprintf("[%s]: %s", e.Phase, e.Reason)
}

func (e Generic) UserFriendly() bool {
	return true
}

func (e Generic) ErrorType() ErrorType {
	return ErrorTypeGeneric
}

// StartupFailure means a fault effect could not be confirmed active within
// the confirmation timeout. No partial fault state remains when it is
// returned.
type StartupFailure struct {
	FaultType string
	Target    string
	Reason    string
}

func (e StartupFailure) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("failed to start '%s' fault, %s", e.FaultType, e.Reason)
	}
	return fmt.Sprintf("failed to start '%s' fault on target '%s', %s", e.FaultType, e.Target, e.Reason)
}

func (e StartupFailure) UserFriendly() bool {
	return true
}

func (e StartupFailure) ErrorType() ErrorType {
	return ErrorTypeFaultStartup
}

// CriticalDegradation is raised by the degradation monitor when an abort
// threshold is crossed while the fault is active
type CriticalDegradation struct {
	Scenario string
	Reason   string
}

func (e CriticalDegradation) Error() string {
	return fmt.Sprintf("critical degradation detected in scenario '%s', %s", e.Scenario, e.Reason)
}

func (e CriticalDegradation) UserFriendly() bool {
	return true
}

func (e CriticalDegradation) ErrorType() ErrorType {
	return ErrorTypeCriticalDegradation
}

// ValidationGap marks a metric whose required phase has zero samples
type ValidationGap struct {
	Metric string
	Phase  string
}

func (e ValidationGap) Error() string {
	return fmt.Sprintf("metric '%s' cannot be derived, no samples recorded in %s phase", e.Metric, e.Phase)
}

func (e ValidationGap) UserFriendly() bool {
	return true
}

func (e ValidationGap) ErrorType() ErrorType {
	return ErrorTypeValidationGap
}

// ExportFailure wraps any failure inside the metrics exporter. It is logged
// and swallowed at the boundary, never surfaced to the exit code.
type ExportFailure struct {
	Gateway string
	Reason  string
}

func (e ExportFailure) Error() string {
	if e.Gateway == "" {
		return fmt.Sprintf("metrics export failed, %s", e.Reason)
	}
	return fmt.Sprintf("metrics export to '%s' failed, %s", e.Gateway, e.Reason)
}

func (e ExportFailure) UserFriendly() bool {
	return true
}

func (e ExportFailure) ErrorType() ErrorType {
	return ErrorTypeExport
}

// TargetResolution means the probe target is fully unresolvable. It is the
// only component failure that aborts the whole run before any scenario
// starts.
type TargetResolution struct {
	Target string
	Reason string
}

func (e TargetResolution) Error() string {
	return fmt.Sprintf("target '%s' is not resolvable, %s", e.Target, e.Reason)
}

func (e TargetResolution) UserFriendly() bool {
	return true
}

func (e TargetResolution) ErrorType() ErrorType {
	return ErrorTypeTargetResolution
}
