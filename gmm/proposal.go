package gmm

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ProposalOptions configures the next iteration's proposal density q.
type ProposalOptions struct {
	// HistoricalNormalization replays a shim from the source system
	// that normalizes samples per-column by their max before scoring,
	// whenever the fitted mixture's largest component-mean magnitude is
	// below 1. It defaults off and changes results when enabled.
	HistoricalNormalization bool
	// VoronoiWeighting multiplies q by an approximate per-sample
	// Voronoi-cell volume in parameter space.
	VoronoiWeighting bool
}

// Proposal evaluates q[i] = mixture density at sample i, optionally
// applying the historical per-column normalization shim and Voronoi
// volume reweighting described for the GMM resampler.
func Proposal(m *Mixture, x *mat.Dense, opts ProposalOptions) ([]float64, error) {
	scored := x
	if opts.HistoricalNormalization && maxComponentMeanMagnitude(m) < 1 {
		scored = normalizeColumns(x)
	}

	q, err := ScoreSamples(m, scored)
	if err != nil {
		return nil, err
	}

	if opts.VoronoiWeighting {
		vol := approximateCellVolume(x)
		q = reweightByVolume(q, vol)
	}

	sum := floats.Sum(q)
	if sum > 0 {
		floats.Scale(1/sum, q)
	}

	return q, nil
}

func maxComponentMeanMagnitude(m *Mixture) float64 {
	max := 0.0
	for _, c := range m.Components {
		for _, v := range c.Mean {
			if a := math.Abs(v); a > max {
				max = a
			}
		}
	}
	return max
}

func normalizeColumns(x *mat.Dense) *mat.Dense {
	n, p := x.Dims()
	colMax := make([]float64, p)
	for j := 0; j < p; j++ {
		m := 0.0
		for i := 0; i < n; i++ {
			if a := math.Abs(x.At(i, j)); a > m {
				m = a
			}
		}
		if m == 0 {
			m = 1
		}
		colMax[j] = m
	}

	out := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			out.Set(i, j, x.At(i, j)/colMax[j])
		}
	}
	return out
}

// approximateCellVolume proxies each sample's Voronoi-cell volume in
// P-space by its distance to its nearest neighbor raised to the Pth
// power: a tight local neighborhood implies a small cell, a sparse one
// a large cell. Samples on the convex hull of the ensemble have no
// bounded cell and receive the -1 sentinel, approximated here as the
// top 5% of samples by nearest-neighbor distance (no exact Voronoi /
// convex-hull library exists in the pack -- see the grounding ledger).
func approximateCellVolume(x *mat.Dense) []float64 {
	n, p := x.Dims()
	nn := make([]float64, n)
	for i := 0; i < n; i++ {
		best := math.Inf(1)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			d := euclidean(x.RawRowView(i), x.RawRowView(j))
			if d < best {
				best = d
			}
		}
		nn[i] = best
	}

	sorted := append([]float64(nil), nn...)
	floats.Sort(sorted)
	cutIdx := int(0.95 * float64(n))
	if cutIdx >= n {
		cutIdx = n - 1
	}
	threshold := sorted[cutIdx]

	vol := make([]float64, n)
	for i, d := range nn {
		if d >= threshold {
			vol[i] = -1
			continue
		}
		vol[i] = math.Pow(d, float64(p))
	}
	return vol
}

func euclidean(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// reweightByVolume multiplies q by vol, falling back to uniform if
// every volume is negative, otherwise replacing negatives with the
// minimum positive volume.
func reweightByVolume(q, vol []float64) []float64 {
	minPositive := math.Inf(1)
	anyPositive := false
	for _, v := range vol {
		if v > 0 {
			anyPositive = true
			if v < minPositive {
				minPositive = v
			}
		}
	}

	out := make([]float64, len(q))
	if !anyPositive {
		for i := range out {
			out[i] = 1.0 / float64(len(q))
		}
		return out
	}

	for i, v := range vol {
		if v < 0 {
			v = minPositive
		}
		out[i] = q[i] * v
	}
	return out
}
