package bayes

import "gonum.org/v1/gonum/mat"

// StepEstimate is the (ips, covs) pair for a single assimilation step:
// the ensemble-mean parameter estimate and its coefficient of
// variation, sliced out of a State's column-major history.
type StepEstimate struct {
	ips  mat.Vector
	covs mat.Vector
}

// Estimate extracts the StepEstimate at step t from s.
func (s *State) Estimate(t int) *StepEstimate {
	p, _ := s.IPS.Dims()
	ips := mat.NewVecDense(p, nil)
	covs := mat.NewVecDense(p, nil)
	for j := 0; j < p; j++ {
		ips.SetVec(j, s.IPS.At(j, t))
		covs.SetVec(j, s.Covs.At(j, t))
	}
	return &StepEstimate{ips: ips, covs: covs}
}

// IPS returns the ensemble-mean parameter estimate.
func (e *StepEstimate) IPS() mat.Vector { return e.ips }

// Covs returns the per-parameter coefficient of variation.
func (e *StepEstimate) Covs() mat.Vector { return e.covs }
