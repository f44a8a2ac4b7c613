// Package simgw is the Simulator Gateway: it turns a parameter table
// into a per-sample measurement tensor by invoking (or, for the
// reference implementation, reading the output of) an external
// simulator that the driver runs between iterations.
package simgw

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

// Tensor is the simulation tensor S_k: one N x M matrix per
// assimilation step, step-major so Steps[t].At(i,j) is sample i's
// value of channel j at step t.
type Tensor struct {
	Steps []*mat.Dense
}

// Dims returns (T, N, M).
func (s *Tensor) Dims() (t, n, m int) {
	if len(s.Steps) == 0 {
		return 0, 0, 0
	}
	n, m = s.Steps[0].Dims()
	return len(s.Steps), n, m
}

// Reverse returns a new Tensor with the time axis flipped, leaving the
// receiver untouched -- the driver reverses once per alternating-parity
// iteration rather than mutating shared state in place.
func (s *Tensor) Reverse() *Tensor {
	out := &Tensor{Steps: make([]*mat.Dense, len(s.Steps))}
	for i, step := range s.Steps {
		out.Steps[len(s.Steps)-1-i] = step
	}
	return out
}

// Gateway populates a SimulationTensor for sample ensemble x at the
// given iteration. Implementations may block on external work; ctx
// cancellation must be honored where the implementation does I/O.
type Gateway interface {
	Populate(ctx context.Context, x *mat.Dense, iteration int, workDir string) (*Tensor, error)
}
