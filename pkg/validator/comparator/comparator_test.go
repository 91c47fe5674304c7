package comparator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare_Max(t *testing.T) {
	err := Metric("error_rate_percent").MeasuredValue(30).Threshold(50).Direction("max").Compare()
	assert.NoError(t, err)

	err = Metric("error_rate_percent").MeasuredValue(60).Threshold(50).Direction("max").Compare()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "above the allowed maximum")
}

func TestCompare_Min(t *testing.T) {
	err := Metric("availability_percent").MeasuredValue(99).Threshold(90).Direction("min").Compare()
	assert.NoError(t, err)

	err = Metric("availability_percent").MeasuredValue(80).Threshold(90).Direction("min").Compare()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "below the required minimum")
}

func TestCompare_EqualMeetsEitherDirection(t *testing.T) {
	assert.NoError(t, Metric("m").MeasuredValue(10).Threshold(10).Direction("max").Compare())
	assert.NoError(t, Metric("m").MeasuredValue(10).Threshold(10).Direction("min").Compare())
}

func TestCompare_UnknownDirection(t *testing.T) {
	err := Metric("m").MeasuredValue(1).Threshold(2).Direction("avg").Compare()
	assert.Error(t, err)
}
