// Package gmm fits a variational Bayesian Gaussian mixture on a
// weighted sample ensemble and draws the next generation of samples
// from it. Each component samples through the teacher's rand.WithCovN,
// the same SVD square root construction the teacher used for its own
// process noise draws.
package gmm

import (
	"math"

	smc "github.com/grainlearn/smc-go"
	"github.com/grainlearn/smc-go/matrix"
	rnd "github.com/grainlearn/smc-go/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Component is one Gaussian of the mixture: a mean, a covariance and a
// mixture weight.
type Component struct {
	Weight float64
	Mean   []float64
	Cov    *mat.SymDense
}

// Sample draws one point from the component using its SVD square root.
func (c *Component) Sample() ([]float64, error) {
	draw, err := rnd.WithCovN(c.Cov, 1)
	if err != nil {
		return nil, err
	}
	rows, _ := draw.Dims()
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = draw.At(i, 0) + c.Mean[i]
	}
	return out, nil
}

func (c *Component) logProb(x []float64) (float64, error) {
	dist, ok := distmv.NewNormal(c.Mean, c.Cov, nil)
	if !ok {
		return math.Inf(-1), nil
	}
	return dist.LogProb(x), nil
}

// Mixture is a fitted Bayesian Gaussian mixture.
type Mixture struct {
	Components []Component
}

// Options are the variational Bayesian GMM hyperparameters.
type Options struct {
	MaxComponents            int
	WeightConcentrationPrior float64 // default 1/K
	Tol                      float64 // default 1e-5
	MaxIter                  int     // default 1e5 (bounded in practice by Tol convergence)
	Restarts                 int     // default 100
}

func (o Options) withDefaults() Options {
	if o.WeightConcentrationPrior <= 0 {
		o.WeightConcentrationPrior = 1 / float64(o.MaxComponents)
	}
	if o.Tol <= 0 {
		o.Tol = 1e-5
	}
	if o.MaxIter <= 0 {
		o.MaxIter = 100000
	}
	if o.Restarts <= 0 {
		o.Restarts = 100
	}
	return o
}

// Fit fits a weighted Gaussian mixture on x's rows, weighted by w (w
// sums to 1). Weighting is effected directly on the EM sufficient
// statistics rather than by literal multinomial row replication --
// externally indistinguishable, per the spec's own allowance for a
// library's weighted-fit primitive.
//
// The Dirichlet weight-concentration prior is approximated by adding
// a pseudo-count of WeightConcentrationPrior to every component's
// effective occupancy each M-step, which drains the weight of
// components no data supports toward zero over iterations -- the same
// qualitative behavior as a variational Dirichlet process prior,
// without the full variational free-energy bookkeeping.
func Fit(x *mat.Dense, w []float64, opts Options) (*Mixture, error) {
	n, p := x.Dims()
	if n == 0 || p == 0 {
		return nil, &smc.InvalidSpecError{Reason: "empty sample matrix"}
	}
	if opts.MaxComponents <= 0 {
		opts.MaxComponents = max(1, n/10)
	}
	opts = opts.withDefaults()

	var best *Mixture
	bestScore := math.Inf(-1)

	for r := 0; r < opts.Restarts; r++ {
		m, score, err := fitOnce(x, w, opts, r)
		if err != nil {
			continue
		}
		if score > bestScore {
			bestScore = score
			best = m
		}
	}

	if best == nil {
		return nil, &smc.FitFailureError{Iterations: opts.MaxIter, Reason: "no restart converged to a usable mixture"}
	}

	return best, nil
}

func fitOnce(x *mat.Dense, w []float64, opts Options, seed int) (*Mixture, float64, error) {
	n, p := x.Dims()
	k := opts.MaxComponents
	if k > n {
		k = n
	}

	means := initMeans(x, k, seed)
	covs := make([]*mat.SymDense, k)
	global, err := matrix.WeightedCov(x, w, matrix.WeightedRowMean(x, w))
	if err != nil {
		return nil, 0, err
	}
	for c := 0; c < k; c++ {
		covs[c] = cloneSym(global)
	}
	weights := make([]float64, k)
	for c := range weights {
		weights[c] = 1.0 / float64(k)
	}

	resp := mat.NewDense(n, k, nil)
	prevLL := math.Inf(-1)

	for iter := 0; iter < opts.MaxIter; iter++ {
		ll := 0.0
		for i := 0; i < n; i++ {
			row := x.RawRowView(i)
			logs := make([]float64, k)
			maxLog := math.Inf(-1)
			for c := 0; c < k; c++ {
				dist, ok := distmv.NewNormal(means[c], covs[c], nil)
				lp := math.Inf(-1)
				if ok {
					lp = dist.LogProb(row)
				}
				logs[c] = math.Log(weights[c]) + lp
				if logs[c] > maxLog {
					maxLog = logs[c]
				}
			}
			sum := 0.0
			for c := 0; c < k; c++ {
				logs[c] = math.Exp(logs[c] - maxLog)
				sum += logs[c]
			}
			if sum == 0 {
				sum = 1
			}
			for c := 0; c < k; c++ {
				resp.Set(i, c, w[i]*logs[c]/sum)
			}
			ll += w[i] * (maxLog + math.Log(sum))
		}

		nk := make([]float64, k)
		for c := 0; c < k; c++ {
			col := mat.Col(nil, c, resp)
			nk[c] = floats.Sum(col) + opts.WeightConcentrationPrior
		}
		total := floats.Sum(nk)

		for c := 0; c < k; c++ {
			col := mat.Col(nil, c, resp)
			meanC := matrix.WeightedRowMean(x, scaleBy(col, 1/nk[c]))
			covC, err := matrix.WeightedCov(x, scaleBy(col, 1/nk[c]), meanC)
			if err != nil {
				return nil, 0, err
			}
			regularize(covC, p)
			means[c] = meanC
			covs[c] = covC
			weights[c] = nk[c] / total
		}

		if math.Abs(ll-prevLL) < opts.Tol {
			prevLL = ll
			break
		}
		prevLL = ll
	}

	comps := make([]Component, k)
	for c := 0; c < k; c++ {
		comps[c] = Component{Weight: weights[c], Mean: means[c], Cov: covs[c]}
	}

	return &Mixture{Components: comps}, prevLL, nil
}

// initMeans seeds K component means at evenly spaced order-statistics
// of the samples projected onto their first coordinate, a deterministic
// stand-in for k-means++ initialization -- no clustering library is
// available in the pack to seed the EM loop.
func initMeans(x *mat.Dense, k, seed int) [][]float64 {
	n, p := x.Dims()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	col := mat.Col(nil, 0, x)
	sortByKey(order, col)

	means := make([][]float64, k)
	for c := 0; c < k; c++ {
		idx := order[((c*n)/k+seed)%n]
		mean := make([]float64, p)
		mat.Row(mean, idx, x)
		means[c] = mean
	}
	return means
}

func sortByKey(order []int, key []float64) {
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && key[order[j-1]] > key[order[j]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
}

func scaleBy(col []float64, s float64) []float64 {
	out := make([]float64, len(col))
	for i, v := range col {
		out[i] = v * s
	}
	return out
}

func cloneSym(s *mat.SymDense) *mat.SymDense {
	n := s.SymmetricDim()
	out := mat.NewSymDense(n, nil)
	out.CopySym(s)
	return out
}

// regularize adds a small ridge to the diagonal to keep the covariance
// numerically invertible as components starve during EM.
func regularize(s *mat.SymDense, p int) {
	const ridge = 1e-9
	for i := 0; i < p; i++ {
		s.SetSym(i, i, s.At(i, i)+ridge)
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ScoreSamples returns exp(mixture log-density) at each row of x, the
// proposal density q consumed by the next iteration's posterior update.
func ScoreSamples(m *Mixture, x *mat.Dense) ([]float64, error) {
	n, _ := x.Dims()
	q := make([]float64, n)
	for i := 0; i < n; i++ {
		row := x.RawRowView(i)
		density := 0.0
		for _, c := range m.Components {
			lp, err := c.logProb(row)
			if err != nil {
				return nil, err
			}
			density += c.Weight * math.Exp(lp)
		}
		q[i] = density
	}
	return q, nil
}

// DrawN draws n samples from the mixture: pick a component by its
// weight via roulette-wheel selection, then sample that component's
// Gaussian. There is no rejection against parameter bounds.
func DrawN(m *Mixture, n int) (*mat.Dense, error) {
	weights := make([]float64, len(m.Components))
	for i, c := range m.Components {
		weights[i] = c.Weight
	}
	picks, err := rnd.RouletteDrawN(weights, n)
	if err != nil {
		return nil, err
	}

	p := len(m.Components[0].Mean)
	out := mat.NewDense(n, p, nil)
	for i, pick := range picks {
		sample, err := m.Components[pick].Sample()
		if err != nil {
			return nil, err
		}
		for j, v := range sample {
			out.Set(i, j, v)
		}
	}
	return out, nil
}
