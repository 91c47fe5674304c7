package validator

import (
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/chaosproof/chaosproof/pkg/types"
)

// per-environment SLO defaults. dev is deliberately forgiving, prod is
// where the real targets live. Every metric has an entry in every
// environment so a missing override can never silently skip a check.
const defaultSLOConfig = `
environments:
  dev:
    - metric: availability_percent
      threshold: 50
      direction: min
    - metric: error_rate_percent
      threshold: 75
      direction: max
    - metric: latency_degradation_ms
      threshold: 3000
      direction: max
    - metric: mttr_seconds
      threshold: 60
      direction: max
    - metric: recovery_time_seconds
      threshold: 30
      direction: max
  staging:
    - metric: availability_percent
      threshold: 70
      direction: min
    - metric: error_rate_percent
      threshold: 50
      direction: max
    - metric: latency_degradation_ms
      threshold: 2000
      direction: max
    - metric: mttr_seconds
      threshold: 30
      direction: max
    - metric: recovery_time_seconds
      threshold: 20
      direction: max
  prod:
    - metric: availability_percent
      threshold: 90
      direction: min
    - metric: error_rate_percent
      threshold: 25
      direction: max
    - metric: latency_degradation_ms
      threshold: 1000
      direction: max
    - metric: mttr_seconds
      threshold: 15
      direction: max
    - metric: recovery_time_seconds
      threshold: 10
      direction: max
`

type sloEntry struct {
	Metric    string  `yaml:"metric"`
	Threshold float64 `yaml:"threshold"`
	Direction string  `yaml:"direction"`
}

type sloConfig struct {
	Environments map[string][]sloEntry `yaml:"environments"`
}

var (
	sloOnce   sync.Once
	sloLoaded sloConfig
	sloErr    error
)

func loadDefaults() (sloConfig, error) {
	sloOnce.Do(func() {
		sloErr = yaml.Unmarshal([]byte(defaultSLOConfig), &sloLoaded)
	})
	return sloLoaded, sloErr
}

// DefaultTargets returns the built-in SLO targets for the environment,
// falling back to the dev defaults for unknown environments
func DefaultTargets(environment string) ([]types.SLOTarget, error) {
	config, err := loadDefaults()
	if err != nil {
		return nil, errors.Wrapf(err, "unable to decode built-in SLO defaults")
	}
	entries, ok := config.Environments[environment]
	if !ok {
		entries = config.Environments["dev"]
	}
	targets := make([]types.SLOTarget, 0, len(entries))
	for _, e := range entries {
		targets = append(targets, types.SLOTarget{
			Metric:      e.Metric,
			Threshold:   e.Threshold,
			Direction:   e.Direction,
			Environment: environment,
		})
	}
	return targets, nil
}

// MergeTargets overlays caller-supplied targets on the environment
// defaults. An override applies when its environment tag is empty or
// matches the run's environment.
func MergeTargets(environment string, overrides []types.SLOTarget) ([]types.SLOTarget, error) {
	targets, err := DefaultTargets(environment)
	if err != nil {
		return nil, err
	}
	byMetric := make(map[string]int, len(targets))
	for i, t := range targets {
		byMetric[t.Metric] = i
	}
	for _, o := range overrides {
		if o.Environment != "" && o.Environment != environment {
			continue
		}
		if i, ok := byMetric[o.Metric]; ok {
			targets[i].Threshold = o.Threshold
			if o.Direction != "" {
				targets[i].Direction = o.Direction
			}
		}
	}
	return targets, nil
}
