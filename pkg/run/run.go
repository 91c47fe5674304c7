package run

import (
	"context"
	"encoding/json"
	"net"
	"net/url"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/chaosproof/chaosproof/pkg/cerrors"
	"github.com/chaosproof/chaosproof/pkg/environment"
	"github.com/chaosproof/chaosproof/pkg/export"
	"github.com/chaosproof/chaosproof/pkg/faults"
	"github.com/chaosproof/chaosproof/pkg/log"
	"github.com/chaosproof/chaosproof/pkg/orchestrator"
	"github.com/chaosproof/chaosproof/pkg/probe"
	"github.com/chaosproof/chaosproof/pkg/telemetry"
	"github.com/chaosproof/chaosproof/pkg/types"
	"github.com/chaosproof/chaosproof/pkg/validator"
)

// exit codes, the sole contract with the invoking build system
const (
	// ExitPassed means every SLO target was met, or the run was a dry run
	ExitPassed = 0
	// ExitSetupError means the run could not be executed at all
	ExitSetupError = 1
	// ExitSLOViolation means at least one SLO target was violated under
	// strict enforcement
	ExitSLOViolation = 2
)

// Config is the pre-parsed input of one invocation
type Config struct {
	ScenariosPath string
	SLOPath       string
	TargetBaseURL string
	Mode          string
	Environment   string
	ResultsPath   string
	VerdictPath   string
	PushGateway   string
	Strict        bool
}

// Executor wires the orchestrator, validator and exporter for one
// invocation. The fault adapter and prober are fields so tests can swap in
// synthetic implementations.
type Executor struct {
	Config  Config
	Adapter orchestrator.FaultAdapter
	Prober  orchestrator.Prober
}

// NewExecutor builds the production executor for the given config
func NewExecutor(cfg Config) *Executor {
	return &Executor{Config: cfg}
}

// Execute runs the whole invocation and returns the process exit code.
// Every failed run still writes both artifacts explaining why.
func (e *Executor) Execute(ctx context.Context) int {
	cfg := e.Config
	run := environment.GetRunDetails(cfg.TargetBaseURL, cfg.Environment, cfg.Mode == "dry-run")

	log.InfoWithValues("[Run]: Starting resilience check", logrus.Fields{
		"RunID":       run.RunID,
		"Target":      run.TargetBaseURL,
		"Environment": run.Environment,
		"Mode":        cfg.Mode,
		"Strict":      cfg.Strict,
	})

	scenarios, err := loadScenarios(cfg.ScenariosPath)
	if err != nil {
		return e.failSetup(run, err)
	}
	overrides, err := loadTargets(cfg.SLOPath)
	if err != nil {
		return e.failSetup(run, err)
	}
	targets, err := validator.MergeTargets(run.Environment, overrides)
	if err != nil {
		return e.failSetup(run, err)
	}
	if err := resolveTarget(run.TargetBaseURL); err != nil {
		return e.failSetup(run, err)
	}

	shutdown, err := telemetry.InitOTelSDK(ctx, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if err != nil {
		log.Warnf("[Run]: Tracing disabled, err: %v", err)
	}
	defer shutdown(context.Background())

	adapter := e.Adapter
	if adapter == nil {
		adapter = faults.NewAdapter()
	}
	prober := e.Prober
	if prober == nil {
		prober = orchestrator.HTTPProber{Prober: probe.NewProber(run.ProbeInterval, run.ProbeTimeout)}
	}

	results, err := orchestrator.New(run, adapter, prober).RunScenarios(ctx, scenarios)
	if err != nil {
		e.writeArtifacts(results, failedVerdict(run, err))
		return ExitSetupError
	}

	verdict := validator.ValidateRun(run.RunID, run.Environment, results, targets)
	export.NewExporter(cfg.PushGateway).Export(verdict, results)

	if err := e.writeArtifacts(results, verdict); err != nil {
		log.Errorf("[Run]: Failed to write artifacts, err: %v", err)
		return ExitSetupError
	}

	if run.DryRun {
		return ExitPassed
	}
	if !verdict.OverallPassed && cfg.Strict {
		return ExitSLOViolation
	}
	return ExitPassed
}

// failSetup records the setup failure in both artifacts before exiting, so
// a broken invocation never ends with a bare non-zero code
func (e *Executor) failSetup(run types.RunDetails, cause error) int {
	reason, code := cerrors.GetRootCauseAndErrorCode(cause)
	log.ErrorWithValues("[Run]: Setup failed", logrus.Fields{
		"Reason":    reason,
		"ErrorType": code,
	})
	if err := e.writeArtifacts([]types.ScenarioResult{}, failedVerdict(run, cause)); err != nil {
		log.Errorf("[Run]: Failed to write artifacts, err: %v", err)
	}
	return ExitSetupError
}

func failedVerdict(run types.RunDetails, cause error) types.RunVerdict {
	reason, _ := cerrors.GetRootCauseAndErrorCode(cause)
	return types.RunVerdict{
		RunID:         run.RunID,
		Environment:   run.Environment,
		Scenarios:     []types.ValidationVerdict{},
		OverallPassed: false,
		Violations:    []string{reason},
	}
}

func (e *Executor) writeArtifacts(results []types.ScenarioResult, verdict types.RunVerdict) error {
	if results == nil {
		results = []types.ScenarioResult{}
	}
	if err := writeJSON(e.Config.ResultsPath, results); err != nil {
		return err
	}
	return writeJSON(e.Config.VerdictPath, verdict)
}

func writeJSON(path string, document interface{}) error {
	if path == "" {
		return nil
	}
	raw, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "unable to encode %s", path)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0644); err != nil {
		return errors.Wrapf(err, "unable to write %s", path)
	}
	return nil
}

func loadScenarios(path string) ([]types.ScenarioDefinition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read scenarios document")
	}
	var scenarios []types.ScenarioDefinition
	if err := json.Unmarshal(raw, &scenarios); err != nil {
		return nil, errors.Wrapf(err, "unable to decode scenarios document")
	}
	if len(scenarios) == 0 {
		return nil, errors.Errorf("scenarios document is empty")
	}
	return scenarios, nil
}

func loadTargets(path string) ([]types.SLOTarget, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read SLO overrides document")
	}
	var targets []types.SLOTarget
	if err := json.Unmarshal(raw, &targets); err != nil {
		return nil, errors.Wrapf(err, "unable to decode SLO overrides document")
	}
	return targets, nil
}

// resolveTarget rejects a fully unresolvable target before any scenario
// starts
func resolveTarget(baseURL string) error {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Hostname() == "" {
		return cerrors.TargetResolution{Target: baseURL, Reason: "not a valid URL"}
	}
	if _, err := net.LookupHost(parsed.Hostname()); err != nil {
		return cerrors.TargetResolution{Target: baseURL, Reason: err.Error()}
	}
	return nil
}
