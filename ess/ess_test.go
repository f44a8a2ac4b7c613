package ess

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveSampleSize(t *testing.T) {
	assert := assert.New(t)

	uniform := []float64{0.25, 0.25, 0.25, 0.25}
	assert.InDelta(4.0, EffectiveSampleSize(uniform), 1e-9)

	degenerate := []float64{1, 0, 0, 0}
	assert.InDelta(1.0, EffectiveSampleSize(degenerate), 1e-9)
}

// essOf models ESS/N as a smooth decreasing function of sigma so the
// controller's bracketing and root-finding logic can be exercised
// without a real likelihood evaluation.
func essOf(sigma float64) (float64, error) {
	return 1 / (1 + sigma), nil
}

func TestControllerSolveBracketed(t *testing.T) {
	assert := assert.New(t)

	c := &Controller{SigmaMin: 0.01, SigmaMax: 10, EssTarget: 0.5, Tol: 1e-3}
	sigma, err := c.Solve(essOf, false)
	assert.NoError(err)
	assert.InDelta(1.0, sigma, 0.05)
}

func TestControllerSameSignFallsBackToSigmaMin(t *testing.T) {
	assert := assert.New(t)

	alwaysHigh := func(sigma float64) (float64, error) { return 0.99, nil }
	c := &Controller{SigmaMin: 0.01, SigmaMax: 10, EssTarget: 0.5, Tol: 1e-3}
	sigma, err := c.Solve(alwaysHigh, false)
	assert.NoError(err)
	assert.InDelta(0.01, sigma, 1e-9)
}

func TestControllerNonFiniteAtSigmaMinRaisesIt(t *testing.T) {
	assert := assert.New(t)

	calls := 0
	f := func(sigma float64) (float64, error) {
		calls++
		if sigma < 0.02 {
			return math.NaN(), nil
		}
		return 1 / (1 + sigma), nil
	}
	c := &Controller{SigmaMin: 0.001, SigmaMax: 10, EssTarget: 0.5, Tol: 1e-3}
	_, err := c.Solve(f, false)
	assert.NoError(err)
	assert.Greater(calls, 1)
}
