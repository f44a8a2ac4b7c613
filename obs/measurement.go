// Package obs builds the global observation matrix Y from one or more
// named reference measurements, and parses the two on-disk observation
// file formats (keyless and keyed) described in the data model.
package obs

import (
	"path"
	"strings"

	smc "github.com/grainlearn/smc-go"
	"gonum.org/v1/gonum/mat"
)

// Measurement is a named reference channel group: Data and Weight carry
// one scalar reference value (and its weight) per sub-channel, e.g. a
// single measurement named "stress" might bundle two tensor components
// as Data=[2,3]. Every sub-channel is a constant target broadcast across
// all T assimilation steps -- genuine per-step reference series are
// loaded separately through the Observation Loader (LoadKeyless/LoadKeyed).
type Measurement struct {
	Name     string
	Data     []float64
	Weight   []float64
	SolverID string
	// OutputTag names the merged output file for this channel; if empty
	// it defaults from SolverID's first token's final path segment, e.g.
	// "./TestCalibration -fit identity1" -> "TestCalibration".
	OutputTag string
}

func (m Measurement) outputTag() string {
	if m.OutputTag != "" {
		return m.OutputTag
	}
	fields := strings.Fields(m.SolverID)
	if len(fields) == 0 {
		return m.Name
	}
	return path.Base(fields[0])
}

func (m Measurement) width() int { return max(len(m.Data), 1) }

// Set is an ordered collection of measurements; order is the column
// order of the global observation matrix Y.
type Set struct {
	Measurements []Measurement
}

// Width returns the total number of observation channels M.
func (s *Set) Width() int {
	w := 0
	for _, m := range s.Measurements {
		w += m.width()
	}
	return w
}

// OutputTags returns, for every column of Y, the resolved output tag of
// the measurement it came from, in column order.
func (s *Set) OutputTags() []string {
	var tags []string
	for _, m := range s.Measurements {
		tag := m.outputTag()
		for i := 0; i < m.width(); i++ {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Weights returns the per-channel weight vector w (length M).
func (s *Set) Weights() ([]float64, error) {
	var w []float64
	for _, m := range s.Measurements {
		width := m.width()
		switch {
		case len(m.Weight) == 0:
			for i := 0; i < width; i++ {
				w = append(w, 1.0)
			}
		case len(m.Weight) == 1:
			for i := 0; i < width; i++ {
				w = append(w, m.Weight[0])
			}
		case len(m.Weight) == width:
			w = append(w, m.Weight...)
		default:
			return nil, &smc.InvalidSpecError{Reason: "measurement " + m.Name + " weight width does not match data width"}
		}
	}
	return w, nil
}

// Flatten builds the global observation matrix Y (steps x M) by
// concatenating every measurement's scalar reference values in
// declaration order and broadcasting each one identically across all
// `steps` rows, matching calibrate.py's single flattened reference row
// replicated to however many assimilation steps the simulator runs for.
func (s *Set) Flatten(steps int) (*mat.Dense, error) {
	if len(s.Measurements) == 0 {
		return nil, &smc.InvalidSpecError{Reason: "no measurements declared"}
	}
	if steps <= 0 {
		return nil, &smc.InvalidSpecError{Reason: "number of assimilation steps must be positive"}
	}

	y := mat.NewDense(steps, s.Width(), nil)
	col := 0
	for _, m := range s.Measurements {
		width := m.width()
		for j := 0; j < width; j++ {
			v := 0.0
			if len(m.Data) == 1 {
				v = m.Data[0]
			} else if j < len(m.Data) {
				v = m.Data[j]
			}
			for t := 0; t < steps; t++ {
				y.Set(t, col+j, v)
			}
		}
		col += width
	}

	return y, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
