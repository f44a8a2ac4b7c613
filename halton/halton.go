// Package halton generates the low-discrepancy point set used to
// bootstrap the very first sample ensemble, before any posterior
// information exists to build a mixture proposal from.
package halton

import (
	"context"

	smc "github.com/grainlearn/smc-go"
	"github.com/grainlearn/smc-go/param"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// firstPrimes lists enough primes to cover any realistic parameter
// count; Sequence returns InvalidSpec if p exceeds it.
var firstPrimes = []int{
	2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53, 59, 61, 67, 71,
	73, 79, 83, 89, 97, 101, 103, 107, 109, 113, 127, 131, 137, 139, 149, 151,
	157, 163, 167, 173,
}

// Sequence returns an n x p matrix of Halton points in [0,1]^p using
// the first p primes as bases. The all-zero first point is skipped, so
// points are generated starting at index 1. One worker per dimension
// runs concurrently -- the dimensions are independent by construction.
func Sequence(ctx context.Context, n, p int) (*mat.Dense, error) {
	if p <= 0 || p > len(firstPrimes) {
		return nil, &smc.InvalidSpecError{Reason: "parameter count exceeds available Halton bases"}
	}
	if n <= 0 {
		return nil, &smc.InvalidSpecError{Reason: "sample count must be positive"}
	}

	out := mat.NewDense(n, p, nil)

	g, _ := errgroup.WithContext(ctx)
	for j := 0; j < p; j++ {
		j := j
		base := firstPrimes[j]
		g.Go(func() error {
			for i := 0; i < n; i++ {
				out.Set(i, j, vanDerCorput(i+1, base))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// vanDerCorput returns the radical-inverse of i in the given base, the
// scalar building block of the Halton sequence.
func vanDerCorput(i, base int) float64 {
	f := 1.0
	r := 0.0
	for i > 0 {
		f /= float64(base)
		r += f * float64(i%base)
		i /= base
	}
	return r
}

// Bootstrap generates n Halton points over spec's parameter ranges,
// affinely mapping each column from [0,1] into [lo_j, hi_j].
func Bootstrap(ctx context.Context, spec *param.Spec, n int) (*mat.Dense, error) {
	p := spec.Len()
	points, err := Sequence(ctx, n, p)
	if err != nil {
		return nil, err
	}

	for j := 0; j < p; j++ {
		lo, hi := spec.Bounds(j)
		for i := 0; i < n; i++ {
			v := points.At(i, j)
			points.Set(i, j, lo+v*(hi-lo))
		}
	}

	return points, nil
}
