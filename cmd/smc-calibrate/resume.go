package main

import (
	"github.com/grainlearn/smc-go/config"
	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Args:  cobra.NoArgs,
	Short: "Resume a calibration run from its on-disk state",
	Long:  `Identical to "run" -- the driver is idempotent across restarts and always picks up from whatever artifacts exist in work_dir. Provided as its own subcommand for operator clarity after a crash or a completed external simulation.`,
	RunE:  runResume,
}

func runResume(cmd *cobra.Command, args []string) error {
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
