package bayes

import (
	"testing"

	"github.com/grainlearn/smc-go/simgw"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestUpdateSingleStepUniformProposal(t *testing.T) {
	assert := assert.New(t)

	x := mat.NewDense(3, 1, []float64{1.0, 2.0, 3.0})
	y := mat.NewDense(1, 1, []float64{2.0})
	s := &simgw.Tensor{Steps: []*mat.Dense{
		mat.NewDense(3, 1, []float64{1.0, 2.0, 3.0}),
	}}
	q := []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}
	w := []float64{1.0}

	state, err := Update(x, y, s, w, q, 1.0, MaxScaled)
	assert.NoError(err)

	sum := 0.0
	for i := 0; i < 3; i++ {
		sum += state.Posterior.At(i, 0)
	}
	assert.InDelta(1.0, sum, 1e-9)

	// sample 1 (exact match) should carry the most posterior mass
	assert.Greater(state.Posterior.At(1, 0), state.Posterior.At(0, 0))
	assert.Greater(state.Posterior.At(1, 0), state.Posterior.At(2, 0))

	est := state.Estimate(0)
	assert.InDelta(2.0, est.IPS().AtVec(0), 0.3)
}

func TestUpdateTwoStepsRecursive(t *testing.T) {
	assert := assert.New(t)

	x := mat.NewDense(2, 1, []float64{1.0, 2.0})
	y := mat.NewDense(2, 1, []float64{1.0, 1.0})
	s := &simgw.Tensor{Steps: []*mat.Dense{
		mat.NewDense(2, 1, []float64{1.0, 2.0}),
		mat.NewDense(2, 1, []float64{1.0, 2.0}),
	}}
	q := []float64{0.5, 0.5}
	w := []float64{1.0}

	state, err := Update(x, y, s, w, q, 1.0, PointScaled)
	assert.NoError(err)

	for step := 0; step < 2; step++ {
		sum := state.Posterior.At(0, step) + state.Posterior.At(1, step)
		assert.InDelta(1.0, sum, 1e-9)
	}
	// sample 0 exactly matches the reference at both steps, so its
	// posterior share should grow (not shrink) from step 0 to step 1.
	assert.GreaterOrEqual(state.Posterior.At(0, 1), state.Posterior.At(0, 0))
}

func TestUpdateShapeMismatch(t *testing.T) {
	assert := assert.New(t)

	x := mat.NewDense(1, 1, []float64{1.0})
	y := mat.NewDense(2, 1, []float64{1.0, 1.0})
	s := &simgw.Tensor{Steps: []*mat.Dense{mat.NewDense(1, 1, []float64{1.0})}}

	_, err := Update(x, y, s, []float64{1.0}, []float64{1.0}, 1.0, MaxScaled)
	assert.Error(err)
}
