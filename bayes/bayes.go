// Package bayes implements the per-step multivariate-Gaussian
// likelihood and the recursive Bayesian posterior update over a
// SimulationTensor, generalizing the bootstrap filter's single-step
// predict/correct shape to a fixed ensemble evaluated across every
// assimilation step at once.
package bayes

import (
	"fmt"
	"math"

	smc "github.com/grainlearn/smc-go"
	"github.com/grainlearn/smc-go/simgw"
	"gonum.org/v1/gonum/mat"
)

// Policy selects how the diagonal covariance Sigma_t is scaled.
type Policy int

const (
	// MaxScaled uses the per-channel maximum reference value across all
	// steps, identical for every t. This is the default.
	MaxScaled Policy = iota
	// PointScaled uses the reference value at the current step.
	PointScaled
)

// State holds the full per-step bookkeeping of one SMC iteration:
// likelihood and posterior weights per sample and step, and the
// resulting ensemble mean / coefficient of variation per parameter and
// step.
type State struct {
	Likelihood *mat.Dense // N x T
	Posterior  *mat.Dense // N x T
	IPS        *mat.Dense // P x T
	Covs       *mat.Dense // P x T
}

// Update runs the recursive Bayesian filter over every assimilation
// step of tensor s against reference y, using sample ensemble x,
// per-channel weights w and proposal density q (q[i] is the density of
// the proposal that generated sample i; uniform in iteration 0).
func Update(x *mat.Dense, y *mat.Dense, s *simgw.Tensor, w []float64, q []float64, sigma float64, policy Policy) (*State, error) {
	t, n, m := s.Dims()
	yr, yc := y.Dims()
	if yr != t || yc != m {
		return nil, &smc.InvalidSpecError{Reason: fmt.Sprintf("observation shape (%d,%d) does not match tensor (%d,%d)", yr, yc, t, m)}
	}
	if len(w) != m {
		return nil, &smc.InvalidSpecError{Reason: "weight vector length does not match channel count"}
	}
	if len(q) != n {
		return nil, &smc.InvalidSpecError{Reason: "proposal density length does not match sample count"}
	}

	_, p := x.Dims()

	diag := diagEntries(y, w, policy)

	likelihood := mat.NewDense(n, t, nil)
	posterior := mat.NewDense(n, t, nil)
	ips := mat.NewDense(p, t, nil)
	covs := mat.NewDense(p, t, nil)

	for step := 0; step < t; step++ {
		d := diag[step]
		l := make([]float64, n)
		sum := 0.0
		for i := 0; i < n; i++ {
			acc := 0.0
			for j := 0; j < m; j++ {
				r := y.At(step, j) - s.Steps[step].At(i, j)
				acc += r * r / (sigma * d[j])
			}
			l[i] = math.Exp(-0.5 * acc)
			sum += l[i]
		}
		if sum == 0 {
			return nil, &smc.InvalidSpecError{Reason: "likelihood collapsed to zero at step"}
		}
		for i := 0; i < n; i++ {
			l[i] /= sum
			likelihood.Set(i, step, l[i])
		}

		post := make([]float64, n)
		psum := 0.0
		if step == 0 {
			for i := 0; i < n; i++ {
				post[i] = l[i] / q[i]
				psum += post[i]
			}
		} else {
			for i := 0; i < n; i++ {
				post[i] = posterior.At(i, step-1) * l[i]
				psum += post[i]
			}
		}
		if psum == 0 {
			return nil, &smc.InvalidSpecError{Reason: "posterior collapsed to zero at step"}
		}
		for i := 0; i < n; i++ {
			post[i] /= psum
			posterior.Set(i, step, post[i])
		}

		for j := 0; j < p; j++ {
			mean := 0.0
			for i := 0; i < n; i++ {
				mean += post[i] * x.At(i, j)
			}
			ips.Set(j, step, mean)

			variance := 0.0
			for i := 0; i < n; i++ {
				diff := x.At(i, j) - mean
				variance += post[i] * diff * diff
			}
			cov := 0.0
			if mean != 0 {
				cov = math.Sqrt(variance) / mean
			}
			covs.Set(j, step, cov)
		}
	}

	return &State{Likelihood: likelihood, Posterior: posterior, IPS: ips, Covs: covs}, nil
}

// diagEntries returns, for every step t, the M diagonal entries of
// Sigma_t (excluding the scalar sigma factor itself, applied by the
// caller so the ESS controller can re-evaluate many candidate sigmas
// without rebuilding this table).
func diagEntries(y *mat.Dense, w []float64, policy Policy) [][]float64 {
	t, m := y.Dims()
	diag := make([][]float64, t)

	if policy == MaxScaled {
		maxVal := make([]float64, m)
		for j := 0; j < m; j++ {
			mx := math.Inf(-1)
			for step := 0; step < t; step++ {
				if v := y.At(step, j); v > mx {
					mx = v
				}
			}
			maxVal[j] = mx * mx * w[j]
		}
		for step := 0; step < t; step++ {
			diag[step] = maxVal
		}
		return diag
	}

	for step := 0; step < t; step++ {
		row := make([]float64, m)
		for j := 0; j < m; j++ {
			v := y.At(step, j)
			row[j] = v * v * w[j]
		}
		diag[step] = row
	}
	return diag
}
