package main

import (
	"context"
	"fmt"

	"github.com/grainlearn/smc-go/config"
	"github.com/grainlearn/smc-go/driver"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Args:  cobra.NoArgs,
	Short: "Advance a calibration run by one driver pass",
	Long:  `Loads the config file and advances the iteration driver until it finishes or until it needs an external simulation run.`,
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	d, err := buildDriver(cfg, cfg.Analysis)
	if err != nil {
		return err
	}

	return execute(cmd.Context(), d, cfg)
}

func execute(ctx context.Context, d *driver.Driver, cfg *config.Config) error {
	if cfg.MetricsAddr != "" {
		go func() {
			_ = d.Metrics.Serve(ctx, cfg.MetricsAddr)
		}()
	}

	res, err := d.Run(ctx)
	if err != nil {
		return err
	}

	switch res.Phase {
	case driver.PhaseNeedSim:
		fmt.Printf("iteration %d is waiting on external simulation output in %s/Sim_%d -- re-run once it is ready\n", res.Iteration, cfg.WorkDir, res.Iteration)
	case driver.PhaseDone:
		fmt.Printf("calibration complete after %d iterations; results written to %s\n", res.Iteration, cfg.WorkDir)
	}

	return nil
}
