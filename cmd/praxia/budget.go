package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Chab-algo/praxia/internal/engine/budget"
)

func newBudgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "budget",
		Short: "Print the global budget status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogging(os.Stderr, cfg)

			d, err := newDeps(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer d.Close()

			mon := budget.NewMonitor(d.store, cfg.BudgetLimit, d.alerts)
			st, err := mon.Status(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), st)
		},
	}
}
