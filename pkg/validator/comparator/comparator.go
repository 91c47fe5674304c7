package comparator

import (
	"github.com/pkg/errors"
)

//Model contains the operands and the comparison direction for one SLO check
type Model struct {
	metric    string
	measured  float64
	threshold float64
	direction string
}

//Metric sets the metric name, starting a new comparison
func Metric(name string) *Model {
	model := Model{}
	return model.Metric(name)
}

//Metric sets the metric name
func (model *Model) Metric(name string) *Model {
	model.metric = name
	return model
}

//MeasuredValue sets the measured operand
func (model *Model) MeasuredValue(value float64) *Model {
	model.measured = value
	return model
}

//Threshold sets the target operand
func (model *Model) Threshold(value float64) *Model {
	model.threshold = value
	return model
}

//Direction sets the comparison direction, max or min
func (model *Model) Direction(direction string) *Model {
	model.direction = direction
	return model
}

//Compare checks the measured value against the threshold honoring the
//declared direction. A nil return means the target is met.
func (model Model) Compare() error {
	switch model.direction {
	case "max":
		if model.measured > model.threshold {
			return errors.Errorf("%s is %.2f, above the allowed maximum %.2f", model.metric, model.measured, model.threshold)
		}
	case "min":
		if model.measured < model.threshold {
			return errors.Errorf("%s is %.2f, below the required minimum %.2f", model.metric, model.measured, model.threshold)
		}
	default:
		return errors.Errorf("direction '%s' not supported for metric %s", model.direction, model.metric)
	}
	return nil
}
