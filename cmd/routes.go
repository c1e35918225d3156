package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/induction/core/ranking"
)

func newRoutesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the configured routes and whether they count as long",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			mean := ranking.MeanDistance(cfg.Routes)
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ROUTE\tDAILY KM\tPROFILE")
			for _, r := range cfg.Routes {
				profile := "short"
				if r.DailyDistanceKM >= mean {
					profile = "long"
				}
				fmt.Fprintf(tw, "%s\t%g\t%s\n", r.Name, r.DailyDistanceKM, profile)
			}
			fmt.Fprintf(tw, "mean\t%g\t\n", mean)
			return tw.Flush()
		},
	}
}
