package main

import (
	"github.com/grainlearn/smc-go/config"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Args:  cobra.NoArgs,
	Short: "Re-run resampling for the last completed iteration without new simulations",
	Long:  `Forces analysis mode: the GMM fit and resampling step re-run and overwrite the next iteration's sample table even though it already exists, letting an operator re-evaluate ess_target or n_gmm without re-invoking the simulator.`,
	RunE:  runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	d, err := buildDriver(cfg, true)
	if err != nil {
		return err
	}

	return execute(cmd.Context(), d, cfg)
}
