package cmd

import (
	"github.com/spf13/cobra"
)

func newRankCmd(g *globalFlags) *cobra.Command {
	var (
		out     outputFlags
		route   string
		publish bool
	)
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Plan tonight and rank the fleet for one route",
		Long: "Runs the planner, then orders the vehicles for the chosen route. " +
			"Low mileage vehicles lead on long routes, high mileage ones on short routes. " +
			"With --publish and a configured broker the ranked plan is sent over MQTT.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(out.format); err != nil {
				return err
			}
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if route == "" {
				route = cfg.Routes[0].Name
			}
			s, err := newSession(cfg, publish)
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
			recs, err := s.runner.Rank(pl, route)
			if err != nil {
				return err
			}
			if err := s.runner.Publish(ctx, pl, route, recs); err != nil {
				// The plan is still printed when the broker is unreachable.
				s.log.Errorf("publish: %v", err)
			}
			w, closeOut, err := openOutput(cmd.OutOrStdout(), out.output)
			if err != nil {
				return err
			}
			if err := writeRecommendations(w, out.format, route, recs); err != nil {
				_ = closeOut()
				return err
			}
			return closeOut()
		},
	}
	out.bind(cmd)
	cmd.Flags().StringVarP(&route, "route", "r", "", "route name (defaults to the first configured route)")
	cmd.Flags().BoolVar(&publish, "publish", true, "publish the ranked plan when an MQTT broker is configured")
	return cmd
}
