// Package sampler implements smc.Generator for both ends of a
// calibration run: the Halton bootstrap at iteration 0, and mixture
// resampling at every iteration after a proposal has been fitted.
package sampler

import (
	"context"

	smc "github.com/grainlearn/smc-go"
	"github.com/grainlearn/smc-go/gmm"
	"github.com/grainlearn/smc-go/halton"
	"github.com/grainlearn/smc-go/param"
	"gonum.org/v1/gonum/mat"
)

var (
	_ smc.Generator = &Bootstrap{}
	_ smc.Generator = &Resampler{}
)

// Bootstrap generates the initial ensemble via the Halton sequence.
type Bootstrap struct {
	Spec *param.Spec
}

// Generate implements smc.Generator.
func (b *Bootstrap) Generate(n int) (*mat.Dense, error) {
	return halton.Bootstrap(context.Background(), b.Spec, n)
}

// Resampler draws the next generation from a fitted Gaussian mixture.
type Resampler struct {
	Mixture *gmm.Mixture
}

// Generate implements smc.Generator. There is no rejection against
// parameter bounds -- the resampled cloud may drift outside the
// original ranges as the mixture assigns nonzero density there.
func (r *Resampler) Generate(n int) (*mat.Dense, error) {
	return gmm.DrawN(r.Mixture, n)
}
