// Package driver implements the Iteration Driver: the filesystem-
// mediated state machine that ties the sample source, parameter table
// store, simulator gateway, Bayesian update, ESS controller and GMM
// resampler into one resumable calibration run.
package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	smc "github.com/grainlearn/smc-go"
	"github.com/grainlearn/smc-go/bayes"
	"github.com/grainlearn/smc-go/ess"
	"github.com/grainlearn/smc-go/gmm"
	"github.com/grainlearn/smc-go/halton"
	"github.com/grainlearn/smc-go/logx"
	"github.com/grainlearn/smc-go/metrics"
	"github.com/grainlearn/smc-go/obs"
	"github.com/grainlearn/smc-go/param"
	"github.com/grainlearn/smc-go/sampler"
	"github.com/grainlearn/smc-go/simgw"
	"github.com/grainlearn/smc-go/table"
	"gonum.org/v1/gonum/mat"
)

// Phase names the driver's current state, per the iteration state
// machine: Init, NeedSim, HasSim, Done.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseNeedSim
	PhaseHasSim
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "Init"
	case PhaseNeedSim:
		return "NeedSim"
	case PhaseHasSim:
		return "HasSim"
	case PhaseDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// Driver owns one calibration run's configuration and orchestrates it.
type Driver struct {
	Spec         *param.Spec
	Measurements *obs.Set
	Gateway      simgw.Gateway
	WorkDir      string

	NIterations int
	NSamples    int
	NGmm        int
	NSteps      int
	EssTarget   float64
	SigmaMin    float64
	SigmaMax    float64
	Policy      bayes.Policy

	GmmOptions      gmm.Options
	ProposalOptions gmm.ProposalOptions

	// Analysis re-runs the GMM fit and resampling for the last completed
	// iteration (the one whose next sample table is on disk but whose
	// table after that is not), overwriting that next table -- for
	// re-evaluating a committed iteration without new simulations.
	// Earlier iterations keep their committed tables.
	Analysis bool
	// AlternateReverse flips the time axis of Y and S before the update
	// on every odd iteration, to preserve continuity across iterations
	// of alternating parity.
	AlternateReverse bool

	Logger  *logx.Logger
	Metrics *metrics.Recorder
}

// Result reports where the run ended: PhaseDone with final statistics,
// or PhaseNeedSim if external simulation work is still outstanding.
type Result struct {
	Phase     Phase
	Iteration int
	State     *bayes.State
}

const activeComponentThreshold = 1e-3

// Run advances the state machine from wherever the work directory's
// artifacts leave off, up to NIterations or the first missing
// simulation output, whichever comes first.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	if d.Logger == nil {
		d.Logger = logx.New(logx.Config{})
	}

	names := d.Spec.Names()
	p := d.Spec.Len()

	y, err := d.Measurements.Flatten(d.NSteps)
	if err != nil {
		return nil, err
	}
	w, err := d.Measurements.Weights()
	if err != nil {
		return nil, err
	}
	tags := d.Measurements.OutputTags()

	expDir := filepath.Join(d.WorkDir, "Exp")
	if err := os.MkdirAll(expDir, 0o755); err != nil {
		return nil, err
	}
	if err := table.Write(filepath.Join(expDir, "data.txt"), tags, y); err != nil {
		return nil, err
	}

	var x *mat.Dense
	var lastState *bayes.State
	var lastX *mat.Dense
	var lastTerminal int

	for k := 0; k < d.NIterations; k++ {
		d.Logger.Info("driver phase", "phase", PhaseInit.String(), "k", k)

		if x == nil {
			xk, err := d.loadOrBootstrap(ctx, k, p)
			if err != nil {
				return nil, err
			}
			x = xk
		}
		q, err := d.proposalOrUniform(k)
		if err != nil {
			return nil, err
		}

		d.Logger.Info("driver phase", "phase", PhaseNeedSim.String(), "k", k)
		s, err := d.Gateway.Populate(ctx, x, k, d.WorkDir)
		if err != nil {
			if errors.Is(err, smc.ErrMissingSimulation) {
				d.Logger.Info("awaiting external simulation", "k", k)
				return &Result{Phase: PhaseNeedSim, Iteration: k}, nil
			}
			return nil, err
		}

		d.Logger.Info("driver phase", "phase", PhaseHasSim.String(), "k", k)
		reversed := d.AlternateReverse && k%2 == 1
		yUse, sUse := y, s
		if reversed {
			yUse = reverseRows(y)
			sUse = s.Reverse()
		}

		t, _, _ := sUse.Dims()
		terminal := t - 1
		if reversed {
			terminal = 0
		}

		sigma, err := d.solveSigma(yUse, sUse, x, w, q, terminal, k >= 1)
		if err != nil {
			return nil, err
		}

		state, err := bayes.Update(x, yUse, sUse, w, q, sigma, d.Policy)
		if err != nil {
			return nil, err
		}
		lastState, lastX, lastTerminal = state, x, terminal

		essRatio := ess.EffectiveSampleSize(colAt(state.Posterior, terminal)) / float64(d.NSamples)

		nextPath := d.tablePath(k + 1)
		redo := d.Analysis && !fileExists(d.tablePath(k+2))
		if fileExists(nextPath) && !redo {
			d.Logger.Info("resample already committed, reusing", "k", k+1)
			_, xNext, err := table.Read(nextPath, p)
			if err != nil {
				return nil, err
			}
			x = xNext
			if d.Metrics != nil {
				d.Metrics.Observe(k, essRatio, sigma, 0)
			}
			continue
		}

		postWeights := colAt(state.Posterior, terminal)
		opts := d.GmmOptions
		opts.MaxComponents = d.NGmm
		mixture, err := gmm.Fit(x, postWeights, opts)
		if err != nil {
			return nil, err
		}

		xNext, err := (&sampler.Resampler{Mixture: mixture}).Generate(d.NSamples)
		if err != nil {
			return nil, err
		}
		qNext, err := gmm.Proposal(mixture, xNext, d.ProposalOptions)
		if err != nil {
			return nil, err
		}

		if err := table.Write(nextPath, names, xNext); err != nil {
			return nil, err
		}
		if err := table.Write(d.proposalPath(k+1), []string{"q"}, colVector(qNext)); err != nil {
			return nil, err
		}

		if d.Metrics != nil {
			d.Metrics.Observe(k, essRatio, sigma, activeComponents(mixture))
		}

		x = xNext
	}

	d.Logger.Info("driver phase", "phase", PhaseDone.String(), "k", d.NIterations)
	if lastState != nil {
		if err := d.writeFinalStats(lastState, lastX, names, lastTerminal); err != nil {
			return nil, err
		}
	}

	return &Result{Phase: PhaseDone, Iteration: d.NIterations, State: lastState}, nil
}

func (d *Driver) solveSigma(y *mat.Dense, s *simgw.Tensor, x *mat.Dense, w, q []float64, terminal int, proposalAware bool) (float64, error) {
	controller := &ess.Controller{
		SigmaMin:  d.SigmaMin,
		SigmaMax:  d.SigmaMax,
		EssTarget: d.EssTarget,
		Tol:       1e-2,
	}

	eval := func(sigma float64) (float64, error) {
		state, err := bayes.Update(x, y, s, w, q, sigma, d.Policy)
		if err != nil {
			return 0, err
		}
		ratio := ess.EffectiveSampleSize(colAt(state.Posterior, terminal)) / float64(d.NSamples)
		d.Logger.Debug("ess evaluation", "sigma", sigma, "ess_ratio", ratio)
		return ratio, nil
	}

	sigma, err := controller.Solve(eval, proposalAware)
	if err != nil {
		if errors.Is(err, smc.ErrNumericalInfeasible) {
			d.Logger.Warn("ESS controller could not bracket sigma, falling back to sigma_min", "sigma_min", d.SigmaMin)
			return d.SigmaMin, nil
		}
		return 0, err
	}
	d.SigmaMax = sigma
	return sigma, nil
}

func (d *Driver) loadOrBootstrap(ctx context.Context, k, p int) (*mat.Dense, error) {
	path := d.tablePath(k)
	if fileExists(path) {
		_, x, err := table.Read(path, p)
		return x, err
	}
	if k != 0 {
		return nil, &smc.InvalidSpecError{Reason: fmt.Sprintf("sample table for iteration %d missing and cannot be bootstrapped", k)}
	}

	x, err := halton.Bootstrap(ctx, d.Spec, d.NSamples)
	if err != nil {
		return nil, err
	}
	if err := table.Write(path, d.Spec.Names(), x); err != nil {
		return nil, err
	}
	return x, nil
}

func (d *Driver) proposalOrUniform(k int) ([]float64, error) {
	if k == 0 {
		q := make([]float64, d.NSamples)
		for i := range q {
			q[i] = 1.0 / float64(d.NSamples)
		}
		return q, nil
	}

	path := d.proposalPath(k)
	_, x, err := table.Read(path, 1)
	if err != nil {
		return nil, err
	}
	return mat.Col(nil, 0, x), nil
}

func (d *Driver) writeFinalStats(state *bayes.State, x *mat.Dense, names []string, terminal int) error {
	if err := table.Write(filepath.Join(d.WorkDir, "samples.txt"), names, x); err != nil {
		return err
	}

	p, _ := state.IPS.Dims()
	ipsRow := mat.NewDense(1, p, nil)
	for j := 0; j < p; j++ {
		ipsRow.Set(0, j, state.IPS.At(j, terminal))
	}
	if err := table.Write(filepath.Join(d.WorkDir, "ips.txt"), names, ipsRow); err != nil {
		return err
	}

	n, _ := state.Posterior.Dims()
	weights := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		weights.Set(i, 0, state.Posterior.At(i, terminal))
	}
	return table.Write(filepath.Join(d.WorkDir, "weights.txt"), []string{"weight"}, weights)
}

func (d *Driver) tablePath(k int) string {
	return filepath.Join(d.WorkDir, fmt.Sprintf("smc_table%d.txt", k))
}

func (d *Driver) proposalPath(k int) string {
	return filepath.Join(d.WorkDir, fmt.Sprintf("smc_proposal%d.txt", k))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func colAt(m *mat.Dense, j int) []float64 { return mat.Col(nil, j, m) }

func colVector(v []float64) *mat.Dense { return mat.NewDense(len(v), 1, v) }

func reverseRows(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		out.SetRow(r-1-i, m.RawRowView(i))
	}
	return out
}

func activeComponents(m *gmm.Mixture) int {
	n := 0
	for _, c := range m.Components {
		if c.Weight > activeComponentThreshold {
			n++
		}
	}
	return n
}
