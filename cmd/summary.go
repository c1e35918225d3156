package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kilianp07/induction/core/model"
	"github.com/kilianp07/induction/core/report"
	"github.com/kilianp07/induction/pkg/export"
)

func newSummaryCmd(g *globalFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Plan tonight and print the fleet summary with operational alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != formatTable && format != formatJSON {
				return model.Validationf("output", "unknown format %q (table, json)", format)
			}
			cfg, err := g.load()
			if err != nil {
				return err
			}
			s, err := newSession(cfg, false)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			pl, err := s.runner.Plan(ctx)
			if err != nil {
				return err
			}
			sum, alerts := report.Summarize(pl), report.BuildAlerts(pl)
			if format == formatJSON {
				return export.WriteJSON(cmd.OutOrStdout(), struct {
					RunID   string         `json:"run_id"`
					Summary report.Summary `json:"summary"`
					Alerts  report.Alerts  `json:"alerts"`
				}{pl.RunID, sum, alerts})
			}
			return printSummary(cmd.OutOrStdout(), sum, alerts)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format: table or json")
	return cmd
}
