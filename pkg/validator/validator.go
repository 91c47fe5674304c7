package validator

import (
	"github.com/kyokomi/emoji"
	"github.com/sirupsen/logrus"

	"github.com/chaosproof/chaosproof/pkg/log"
	"github.com/chaosproof/chaosproof/pkg/types"
	cmp "github.com/chaosproof/chaosproof/pkg/validator/comparator"
)

// Validate derives every reliability metric from one scenario result and
// compares each against its SLO target. A metric whose required phase has
// zero samples is an automatic violation, never a skip. Identical inputs
// produce identical verdicts.
func Validate(result types.ScenarioResult, targets []types.SLOTarget) types.ValidationVerdict {
	byMetric := make(map[string]types.SLOTarget, len(targets))
	for _, t := range targets {
		byMetric[t.Metric] = t
	}

	verdict := types.ValidationVerdict{
		ScenarioName:  result.ScenarioName,
		Metrics:       make([]types.MetricVerdict, 0, len(MetricNames)),
		OverallPassed: true,
	}

	for _, metric := range MetricNames {
		target, ok := byMetric[metric]
		if !ok {
			// no target means the caller stripped a default, treat the
			// metric as unchecked rather than inventing a threshold
			continue
		}

		mv := types.MetricVerdict{
			Metric:    metric,
			Threshold: target.Threshold,
			Direction: target.Direction,
		}

		m := derive(metric, result)
		switch {
		case m.gap != nil:
			mv.Passed = false
			mv.Detail = m.gap.Error()
		default:
			mv.MeasuredValue = m.value
			if err := cmp.Metric(metric).
				MeasuredValue(m.value).
				Threshold(target.Threshold).
				Direction(target.Direction).
				Compare(); err != nil {
				mv.Passed = false
				mv.Detail = err.Error()
			} else {
				mv.Passed = true
			}
		}

		if mv.Passed {
			log.Infof("[Verdict]: %v", verdictLine(result.ScenarioName, mv)+emoji.Sprint(" :thumbsup:"))
		} else {
			log.Errorf("[Verdict]: %v", verdictLine(result.ScenarioName, mv)+emoji.Sprint(" :thumbsdown:"))
			verdict.OverallPassed = false
			verdict.Violations = append(verdict.Violations, mv.Detail)
		}
		verdict.Metrics = append(verdict.Metrics, mv)
	}
	return verdict
}

// ValidateRun validates every scenario result and aggregates them into the
// run verdict. The run passes iff every scenario passes every metric.
func ValidateRun(runID, environment string, results []types.ScenarioResult, targets []types.SLOTarget) types.RunVerdict {
	run := types.RunVerdict{
		RunID:         runID,
		Environment:   environment,
		Scenarios:     make([]types.ValidationVerdict, 0, len(results)),
		OverallPassed: true,
	}
	for _, result := range results {
		verdict := Validate(result, targets)
		if !verdict.OverallPassed {
			run.OverallPassed = false
			for _, v := range verdict.Violations {
				run.Violations = append(run.Violations, verdict.ScenarioName+": "+v)
			}
		}
		run.Scenarios = append(run.Scenarios, verdict)
	}

	log.InfoWithValues("[Verdict]: Run validation finished", logrus.Fields{
		"RunID":         runID,
		"Environment":   environment,
		"Scenarios":     len(run.Scenarios),
		"OverallPassed": run.OverallPassed,
		"Violations":    len(run.Violations),
	})
	return run
}

func verdictLine(scenario string, mv types.MetricVerdict) string {
	status := "met"
	if !mv.Passed {
		status = "violated"
	}
	return scenario + " " + mv.Metric + " " + status
}
