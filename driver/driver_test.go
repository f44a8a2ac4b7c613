package driver

import (
	"context"
	"testing"

	smc "github.com/grainlearn/smc-go"
	"github.com/grainlearn/smc-go/bayes"
	"github.com/grainlearn/smc-go/gmm"
	"github.com/grainlearn/smc-go/obs"
	"github.com/grainlearn/smc-go/param"
	"github.com/grainlearn/smc-go/simgw"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

// identityGateway is a synthetic simulator: every step's output equals
// the sample's first parameter, matching the scenario where the solver
// is the identity function.
type identityGateway struct{}

func (identityGateway) Populate(ctx context.Context, x *mat.Dense, iteration int, workDir string) (*simgw.Tensor, error) {
	n, _ := x.Dims()
	step := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		step.Set(i, 0, x.At(i, 0))
	}
	return &simgw.Tensor{Steps: []*mat.Dense{step}}, nil
}

func TestDriverRunIdentityConverges(t *testing.T) {
	assert := assert.New(t)

	spec, err := param.New(map[string][2]float64{"param": {0, 1}}, nil)
	assert.NoError(err)

	measurements := &obs.Set{Measurements: []obs.Measurement{
		{Name: "m", Data: []float64{1}, Weight: []float64{1}, SolverID: "solver"},
	}}

	d := &Driver{
		Spec:         spec,
		Measurements: measurements,
		Gateway:      identityGateway{},
		WorkDir:      t.TempDir(),
		NIterations:  3,
		NSamples:     30,
		NGmm:         3,
		NSteps:       1,
		EssTarget:    0.2,
		SigmaMin:     1e-3,
		SigmaMax:     1.0,
		Policy:       bayes.MaxScaled,
		GmmOptions:   gmm.Options{Restarts: 2},
	}

	res, err := d.Run(context.Background())
	assert.NoError(err)
	assert.Equal(PhaseDone, res.Phase)
	assert.NotNil(res.State)

	est := res.State.Estimate(0)
	assert.InDelta(1.0, est.IPS().AtVec(0), 0.2)
}

// TestDriverFinalStatsWithMoreParamsThanSteps pins the scenario where
// the parameter count exceeds the assimilation step count (three
// parameters, one step), so writeFinalStats's terminal index must come
// from the tensor/posterior step count, not IPS's row count.
func TestDriverFinalStatsWithMoreParamsThanSteps(t *testing.T) {
	assert := assert.New(t)

	spec, err := param.New(map[string][2]float64{
		"a": {0, 1}, "b": {0, 1}, "c": {0, 1},
	}, []string{"a", "b", "c"})
	assert.NoError(err)

	measurements := &obs.Set{Measurements: []obs.Measurement{
		{Name: "m", Data: []float64{1}, Weight: []float64{1}, SolverID: "solver"},
	}}

	d := &Driver{
		Spec:         spec,
		Measurements: measurements,
		Gateway:      identityGateway{},
		WorkDir:      t.TempDir(),
		NIterations:  1,
		NSamples:     20,
		NGmm:         2,
		NSteps:       1,
		EssTarget:    0.2,
		SigmaMin:     1e-3,
		SigmaMax:     1.0,
		Policy:       bayes.MaxScaled,
		GmmOptions:   gmm.Options{Restarts: 2},
	}

	res, err := d.Run(context.Background())
	assert.NoError(err)
	assert.Equal(PhaseDone, res.Phase)
	assert.NotNil(res.State)
}

// reversibleGateway reports two assimilation steps, with the second
// step's output equal to the sample's parameter and the first a
// constant offset, so reversing the time axis is observable.
type reversibleGateway struct{}

func (reversibleGateway) Populate(ctx context.Context, x *mat.Dense, iteration int, workDir string) (*simgw.Tensor, error) {
	n, _ := x.Dims()
	step0 := mat.NewDense(n, 1, nil)
	step1 := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		step0.Set(i, 0, x.At(i, 0)+0.5)
		step1.Set(i, 0, x.At(i, 0))
	}
	return &simgw.Tensor{Steps: []*mat.Dense{step0, step1}}, nil
}

func TestDriverAlternateReverseRunsToCompletion(t *testing.T) {
	assert := assert.New(t)

	spec, err := param.New(map[string][2]float64{"param": {0, 1}}, nil)
	assert.NoError(err)

	measurements := &obs.Set{Measurements: []obs.Measurement{
		{Name: "m", Data: []float64{1}, Weight: []float64{1}, SolverID: "solver"},
	}}

	d := &Driver{
		Spec:             spec,
		Measurements:     measurements,
		Gateway:          reversibleGateway{},
		WorkDir:          t.TempDir(),
		NIterations:      2,
		NSamples:         20,
		NGmm:             2,
		NSteps:           2,
		EssTarget:        0.2,
		SigmaMin:         1e-3,
		SigmaMax:         1.0,
		Policy:           bayes.MaxScaled,
		GmmOptions:       gmm.Options{Restarts: 2},
		AlternateReverse: true,
	}

	res, err := d.Run(context.Background())
	assert.NoError(err)
	assert.Equal(PhaseDone, res.Phase)
	assert.NotNil(res.State)
}

func TestDriverResumesAfterMissingSimulation(t *testing.T) {
	assert := assert.New(t)

	spec, err := param.New(map[string][2]float64{"param": {0, 1}}, nil)
	assert.NoError(err)

	measurements := &obs.Set{Measurements: []obs.Measurement{
		{Name: "m", Data: []float64{1}, Weight: []float64{1}, SolverID: "solver"},
	}}

	gw := &flakyGateway{failOn: 0}
	d := &Driver{
		Spec:         spec,
		Measurements: measurements,
		Gateway:      gw,
		WorkDir:      t.TempDir(),
		NIterations:  2,
		NSamples:     10,
		NGmm:         2,
		NSteps:       1,
		EssTarget:    0.3,
		SigmaMin:     1e-3,
		SigmaMax:     1.0,
	}

	res, err := d.Run(context.Background())
	assert.NoError(err)
	assert.Equal(PhaseNeedSim, res.Phase)
	assert.Equal(0, res.Iteration)

	gw.failOn = -1
	res, err = d.Run(context.Background())
	assert.NoError(err)
	assert.Equal(PhaseDone, res.Phase)
}

type flakyGateway struct {
	failOn int
}

func (g *flakyGateway) Populate(ctx context.Context, x *mat.Dense, iteration int, workDir string) (*simgw.Tensor, error) {
	if iteration == g.failOn {
		return nil, smc.ErrMissingSimulation
	}
	n, _ := x.Dims()
	step := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		step.Set(i, 0, x.At(i, 0))
	}
	return &simgw.Tensor{Steps: []*mat.Dense{step}}, nil
}
