package obs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetWidthAndFlatten(t *testing.T) {
	assert := assert.New(t)

	s := &Set{Measurements: []Measurement{
		{Name: "one", Data: []float64{1}, SolverID: "./TestCalibration -fit identity2"},
		{Name: "two", Data: []float64{2, 3}, SolverID: "./TestCalibration -fit identity2"},
	}}

	assert.Equal(3, s.Width())

	y, err := s.Flatten(4)
	assert.NoError(err)
	r, c := y.Dims()
	assert.Equal(4, r)
	assert.Equal(3, c)
	for t := 0; t < 4; t++ {
		assert.Equal(1.0, y.At(t, 0))
		assert.Equal(2.0, y.At(t, 1))
		assert.Equal(3.0, y.At(t, 2))
	}
}

func TestSetOutputTags(t *testing.T) {
	assert := assert.New(t)

	s := &Set{Measurements: []Measurement{
		{Name: "one", Data: []float64{1}, SolverID: "./TestCalibration -fit identity2"},
		{Name: "two", Data: []float64{2, 3}, OutputTag: "custom"},
	}}

	assert.Equal([]string{"TestCalibration", "custom", "custom"}, s.OutputTags())
}

func TestSetWeightsBroadcast(t *testing.T) {
	assert := assert.New(t)

	s := &Set{Measurements: []Measurement{
		{Name: "one", Data: []float64{1}, Weight: []float64{2}},
		{Name: "two", Data: []float64{2, 3}, Weight: []float64{5}},
	}}

	w, err := s.Weights()
	assert.NoError(err)
	assert.Equal([]float64{2, 5, 5}, w)
}

func TestSetWeightsMismatch(t *testing.T) {
	assert := assert.New(t)

	s := &Set{Measurements: []Measurement{
		{Name: "two", Data: []float64{2, 3}, Weight: []float64{1, 2, 3}},
	}}

	_, err := s.Weights()
	assert.Error(err)
}

func TestSetFlattenEmpty(t *testing.T) {
	assert := assert.New(t)

	s := &Set{}
	_, err := s.Flatten(1)
	assert.Error(err)
}
