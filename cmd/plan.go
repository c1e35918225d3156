package cmd

import (
	"github.com/spf13/cobra"
)

type outputFlags struct {
	format string
	output string
}

func (o *outputFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "f", formatTable, "output format: table, csv or json")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "write to this file instead of stdout")
}

func newPlanCmd(g *globalFlags) *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Assign every vehicle to service, standby or maintenance for tonight",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(out.format); err != nil {
				return err
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
			w, closeOut, err := openOutput(cmd.OutOrStdout(), out.output)
			if err != nil {
				return err
			}
			if err := writePlan(w, out.format, pl); err != nil {
				_ = closeOut()
				return err
			}
			return closeOut()
		},
	}
	out.bind(cmd)
	return cmd
}
