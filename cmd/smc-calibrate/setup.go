package main

import (
	"fmt"
	"sort"

	"github.com/grainlearn/smc-go/bayes"
	"github.com/grainlearn/smc-go/config"
	"github.com/grainlearn/smc-go/driver"
	"github.com/grainlearn/smc-go/gmm"
	"github.com/grainlearn/smc-go/logx"
	"github.com/grainlearn/smc-go/metrics"
	"github.com/grainlearn/smc-go/obs"
	"github.com/grainlearn/smc-go/param"
	"github.com/grainlearn/smc-go/simgw"
)

// buildDriver turns a loaded config into a ready-to-run Driver. analysis
// overrides cfg.Analysis -- the analyze subcommand always forces it on.
func buildDriver(cfg *config.Config, analysis bool) (*driver.Driver, error) {
	spec, err := param.New(cfg.Parameters, cfg.ParameterOrder)
	if err != nil {
		return nil, fmt.Errorf("parameter spec: %w", err)
	}

	names := make([]string, 0, len(cfg.Measurements))
	for name := range cfg.Measurements {
		names = append(names, name)
	}
	sort.Strings(names)

	measurements := &obs.Set{}
	for _, name := range names {
		m := cfg.Measurements[name]
		measurements.Measurements = append(measurements.Measurements, obs.Measurement{
			Name:      name,
			Data:      []float64(m.Data),
			Weight:    []float64(m.Weight),
			SolverID:  m.SolverID,
			OutputTag: m.OutputTag,
		})
	}

	logLevel := logx.Level(cfg.LogLevel)
	if verbose {
		logLevel = logx.LevelDebug
	}
	logger := logx.New(logx.Config{Level: logLevel, Format: logx.Format(cfg.LogFormat)})

	policy := bayes.MaxScaled
	if cfg.CovariancePolicy == "point_scaled" {
		policy = bayes.PointScaled
	}

	gateway := &simgw.PostHocReader{
		SimName:  cfg.SimName,
		Steps:    cfg.NSteps,
		Channels: measurements.Width(),
		Workers:  cfg.Workers,
	}

	return &driver.Driver{
		Spec:         spec,
		Measurements: measurements,
		Gateway:      gateway,
		WorkDir:      cfg.WorkDir,
		NIterations:  cfg.NIterations,
		NSamples:     cfg.NSamples,
		NGmm:         cfg.NGmm,
		NSteps:       cfg.NSteps,
		EssTarget:    cfg.EssTarget,
		SigmaMin:     cfg.SigmaMin,
		SigmaMax:     cfg.SigmaMax,
		Policy:       policy,
		ProposalOptions: gmm.ProposalOptions{
			HistoricalNormalization: cfg.HistoricalNormalization,
			VoronoiWeighting:        cfg.VoronoiWeighting,
		},
		Analysis:         analysis,
		AlternateReverse: cfg.AlternateReverse,
		Logger:           logger,
		Metrics:          metrics.New(),
	}, nil
}
