// Package smc defines the shared error kinds and small collaborator
// interfaces that bind the calibration pipeline together: the sample
// source, the simulator gateway and the resampler all speak value types
// from lower packages, never each other's internals.
package smc

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Sentinel errors matching the error kinds in the calibration design.
// Callers branch on errors.Is; NumericalInfeasible is never returned as a
// terminal error, it is logged as a warning by whichever package hits it.
var (
	ErrInvalidSpec         = errors.New("smc: invalid specification")
	ErrMissingSimulation   = errors.New("smc: simulation output missing, re-run after external work completes")
	ErrSampleMismatch      = errors.New("smc: simulator output does not match its declared sample")
	ErrNumericalInfeasible = errors.New("smc: ESS controller could not bracket a usable sigma")
	ErrFitFailure          = errors.New("smc: Gaussian mixture fit failed to converge")
)

// InvalidSpecError reports a malformed configuration: bad parameter
// ranges, empty parameter lists, a missing work directory, and the like.
type InvalidSpecError struct {
	Reason string
}

func (e *InvalidSpecError) Error() string { return fmt.Sprintf("smc: invalid spec: %s", e.Reason) }
func (e *InvalidSpecError) Unwrap() error { return ErrInvalidSpec }

// SampleMismatchError names the offending sample key so the operator
// knows which iteration directory to delete.
type SampleMismatchError struct {
	Key    int
	Reason string
}

func (e *SampleMismatchError) Error() string {
	return fmt.Sprintf("smc: sample %d mismatch: %s", e.Key, e.Reason)
}
func (e *SampleMismatchError) Unwrap() error { return ErrSampleMismatch }

// FitFailureError reports a Gaussian mixture fit that never converged.
type FitFailureError struct {
	Iterations int
	Reason     string
}

func (e *FitFailureError) Error() string {
	return fmt.Sprintf("smc: GMM fit failed after %d iterations: %s", e.Iterations, e.Reason)
}
func (e *FitFailureError) Unwrap() error { return ErrFitFailure }

// Generator produces the next generation of parameter samples. It covers
// both the Halton bootstrap (iteration 0) and mixture resampling
// (iteration k>=1) behind one shape: no side effects beyond the RNG.
type Generator interface {
	// Generate returns an N x P sample matrix.
	Generate(n int) (samples *mat.Dense, err error)
}
