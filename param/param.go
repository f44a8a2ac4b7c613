// Package param holds the ParameterSpec data model: the ordered list of
// unknown scalar parameters and their bounds that is immutable for the
// life of a calibration run.
package param

import (
	"fmt"
	"sort"

	smc "github.com/grainlearn/smc-go"
)

// Spec is an ordered list of named parameters with closed bounds
// [Lo[i], Hi[i]]. Order is the canonical column order in every sample
// table, tensor slab and posterior array the run produces.
type Spec struct {
	names []string
	lo    []float64
	hi    []float64
}

// New builds a Spec from a name->range map, ordering columns by Order if
// given, otherwise by sorted name. It fails with InvalidSpecError if
// ranges is empty or any interval has lo >= hi.
func New(ranges map[string][2]float64, order []string) (*Spec, error) {
	if len(ranges) == 0 {
		return nil, &smc.InvalidSpecError{Reason: "no parameters declared"}
	}

	names := order
	if len(names) == 0 {
		names = make([]string, 0, len(ranges))
		for n := range ranges {
			names = append(names, n)
		}
		sort.Strings(names)
	}
	if len(names) != len(ranges) {
		return nil, &smc.InvalidSpecError{Reason: "order does not match parameter set"}
	}

	lo := make([]float64, len(names))
	hi := make([]float64, len(names))
	for i, n := range names {
		r, ok := ranges[n]
		if !ok {
			return nil, &smc.InvalidSpecError{Reason: fmt.Sprintf("order names unknown parameter %q", n)}
		}
		if r[0] >= r[1] {
			return nil, &smc.InvalidSpecError{Reason: fmt.Sprintf("parameter %q has empty range [%g, %g]", n, r[0], r[1])}
		}
		lo[i] = r[0]
		hi[i] = r[1]
	}

	return &Spec{names: names, lo: lo, hi: hi}, nil
}

// Len returns the number of parameters P.
func (s *Spec) Len() int { return len(s.names) }

// Names returns the canonical column order.
func (s *Spec) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Bounds returns the closed interval [lo, hi] of the i-th parameter.
func (s *Spec) Bounds(i int) (lo, hi float64) { return s.lo[i], s.hi[i] }

// InBounds reports whether value v lies in parameter i's declared range.
// Only iteration 0 samples are required to satisfy this; later
// iterations may drift as the mixture proposal assigns nonzero density.
func (s *Spec) InBounds(i int, v float64) bool {
	return v >= s.lo[i] && v <= s.hi[i]
}
