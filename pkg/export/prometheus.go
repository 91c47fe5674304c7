package export

import (
	"bytes"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/prometheus/common/expfmt"

	"github.com/chaosproof/chaosproof/pkg/cerrors"
	"github.com/chaosproof/chaosproof/pkg/log"
	"github.com/chaosproof/chaosproof/pkg/types"
)

// Exporter republishes a run verdict in Prometheus exposition format and,
// when a push gateway is configured, pushes the same registry there. The
// exporter is a best-effort leaf: its failures are logged and swallowed,
// never surfaced to the caller's exit code.
type Exporter struct {
	GatewayURL string
	JobName    string
}

// NewExporter builds an exporter, pushing to gatewayURL when non-empty
func NewExporter(gatewayURL string) *Exporter {
	return &Exporter{GatewayURL: gatewayURL, JobName: "chaosproof"}
}

// Export renders the verdict and scenario results as metric lines. It never
// returns an error: on any failure the lines rendered so far (possibly
// none) are returned and the failure is logged.
func (e *Exporter) Export(verdict types.RunVerdict, results []types.ScenarioResult) []string {
	registry := prometheus.NewRegistry()
	if err := e.collect(registry, verdict, results); err != nil {
		log.Errorf("%v", cerrors.ExportFailure{Reason: err.Error()}.Error())
		return nil
	}

	lines, err := renderText(registry)
	if err != nil {
		log.Errorf("%v", cerrors.ExportFailure{Reason: err.Error()}.Error())
		return nil
	}

	if e.GatewayURL != "" {
		if err := push.New(e.GatewayURL, e.JobName).
			Gatherer(registry).
			Grouping("run_id", verdict.RunID).
			Push(); err != nil {
			log.Errorf("%v", cerrors.ExportFailure{Gateway: e.GatewayURL, Reason: err.Error()}.Error())
		}
	}
	return lines
}

func (e *Exporter) collect(registry *prometheus.Registry, verdict types.RunVerdict, results []types.ScenarioResult) error {
	overall := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chaosproof_run_passed",
		Help: "Whether every scenario met every SLO target (1 = passed).",
	}, []string{"environment"})
	metricValue := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chaosproof_metric_value",
		Help: "Measured value of one derived reliability metric.",
	}, []string{"scenario", "metric"})
	metricPassed := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chaosproof_metric_passed",
		Help: "Whether the metric met its SLO target (1 = passed).",
	}, []string{"scenario", "metric"})
	scenarioAborted := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chaosproof_scenario_aborted",
		Help: "Whether the scenario aborted due to critical degradation.",
	}, []string{"scenario"})

	for _, c := range []prometheus.Collector{overall, metricValue, metricPassed, scenarioAborted} {
		if err := registry.Register(c); err != nil {
			return err
		}
	}

	overall.WithLabelValues(verdict.Environment).Set(boolGauge(verdict.OverallPassed))
	for _, scenario := range verdict.Scenarios {
		for _, mv := range scenario.Metrics {
			metricValue.WithLabelValues(scenario.ScenarioName, mv.Metric).Set(mv.MeasuredValue)
			metricPassed.WithLabelValues(scenario.ScenarioName, mv.Metric).Set(boolGauge(mv.Passed))
		}
	}
	for _, result := range results {
		scenarioAborted.WithLabelValues(result.ScenarioName).Set(boolGauge(result.AbortedDueToCriticalFailure))
	}
	return nil
}

func renderText(registry *prometheus.Registry) ([]string, error) {
	families, err := registry.Gather()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if err := encoder.Encode(family); err != nil {
			return nil, err
		}
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	return lines, nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
