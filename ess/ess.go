// Package ess implements the Effective Sample Size controller: a 1-D
// search over the likelihood-covariance scale sigma that drives the
// normalized effective sample size to a target ratio.
package ess

import (
	"math"

	smc "github.com/grainlearn/smc-go"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// EffectiveSampleSize returns 1 / sum(p_i^2) for the posterior weights
// of the last assimilation step.
func EffectiveSampleSize(p []float64) float64 {
	ss := floats.Dot(p, p)
	if ss == 0 {
		return 0
	}
	return 1 / ss
}

// EvalFunc re-runs the full update with the given sigma and returns the
// resulting ESS/N ratio. Each call is expensive: it re-derives
// likelihood and posterior over every step and sample.
type EvalFunc func(sigma float64) (essRatio float64, err error)

// Controller searches for the sigma that makes ESS/N equal EssTarget.
type Controller struct {
	SigmaMin  float64
	SigmaMax  float64
	EssTarget float64
	// Tol is the root-finding tolerance on sigma; the driver sets 1e-2.
	// No default is applied when it is left zero.
	Tol float64
}

// Solve runs the five-step algorithm and returns the committed sigma.
// proposalAware should be true from iteration 1 onward, once a GMM
// proposal informs q.
func (c *Controller) Solve(eval EvalFunc, proposalAware bool) (float64, error) {
	f := func(s float64) (float64, error) {
		ratio, err := eval(s)
		if err != nil {
			return 0, err
		}
		return c.EssTarget - ratio, nil
	}

	sigmaMin := c.SigmaMin
	var fMin float64
	for i := 0; i < 50; i++ {
		v, err := f(sigmaMin)
		if err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			fMin = v
			break
		}
		sigmaMin *= 1.1
		if i == 49 {
			return 0, smc.ErrNumericalInfeasible
		}
	}

	fMax, err := f(c.SigmaMax)
	if err != nil {
		return 0, err
	}

	var sigma float64
	if fMin*fMax > 0 {
		sigma = sigmaMin
	} else {
		sigma, err = brentRoot(f, sigmaMin, c.SigmaMax, c.Tol, 100)
		if err != nil {
			return 0, err
		}
	}

	if proposalAware {
		start := 0.5 * (sigmaMin + c.SigmaMax)
		problem := optimize.Problem{
			Func: func(x []float64) float64 {
				v, err := f(x[0])
				if err != nil {
					return math.Inf(1)
				}
				return v
			},
		}
		result, err := optimize.Minimize(problem, []float64{start}, &optimize.Settings{
			FuncEvaluations: 200,
		}, &optimize.Brent{Min: sigmaMin, Max: c.SigmaMax})
		if err == nil && len(result.X) == 1 {
			sigmaStar := result.X[0]
			fStar, ferr := f(sigmaStar)
			if ferr == nil && fStar < 0 {
				sigma, err = brentRoot(f, sigmaMin, sigmaStar, c.Tol, 100)
				if err != nil {
					return 0, err
				}
			} else {
				sigma = sigmaStar
			}
		}
	}

	if _, err := eval(sigma); err != nil {
		return 0, err
	}
	c.SigmaMax = sigma

	return sigma, nil
}

// brentRoot finds a root of f in [lo, hi] to within tol, combining
// bisection, secant and inverse-quadratic interpolation as in Brent's
// 1973 algorithm. f(lo) and f(hi) must have opposite signs.
func brentRoot(f func(float64) (float64, error), lo, hi, tol float64, maxIter int) (float64, error) {
	a, b := lo, hi
	fa, err := f(a)
	if err != nil {
		return 0, err
	}
	fb, err := f(b)
	if err != nil {
		return 0, err
	}
	if fa*fb > 0 {
		return 0, smc.ErrNumericalInfeasible
	}
	if math.Abs(fa) < math.Abs(fb) {
		a, b = b, a
		fa, fb = fb, fa
	}

	c, fc := a, fa
	mflag := true
	var d float64

	for i := 0; i < maxIter; i++ {
		if fb == 0 || math.Abs(b-a) < tol {
			return b, nil
		}

		var s float64
		if fa != fc && fb != fc {
			s = a*fb*fc/((fa-fb)*(fa-fc)) +
				b*fa*fc/((fb-fa)*(fb-fc)) +
				c*fa*fb/((fc-fa)*(fc-fb))
		} else {
			s = b - fb*(b-a)/(fb-fa)
		}

		cond := (s < (3*a+b)/4 || s > b) ||
			(mflag && math.Abs(s-b) >= math.Abs(b-c)/2) ||
			(!mflag && math.Abs(s-b) >= math.Abs(c-d)/2) ||
			(mflag && math.Abs(b-c) < tol) ||
			(!mflag && math.Abs(c-d) < tol)
		if cond {
			s = (a + b) / 2
			mflag = true
		} else {
			mflag = false
		}

		fs, err := f(s)
		if err != nil {
			return 0, err
		}
		d = c
		c, fc = b, fb

		if fa*fs < 0 {
			b, fb = s, fs
		} else {
			a, fa = s, fs
		}
		if math.Abs(fa) < math.Abs(fb) {
			a, b = b, a
			fa, fb = fb, fa
		}
	}

	return b, nil
}
