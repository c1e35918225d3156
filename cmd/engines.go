package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/induction/core/dataset"
	"github.com/kilianp07/induction/core/metrics"
	"github.com/kilianp07/induction/core/solver"
)

func newEnginesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List the registered engines, dataset providers and metrics sinks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "engines:  %s\n", strings.Join(solver.EngineTypes(), ", "))
			fmt.Fprintf(w, "datasets: %s\n", strings.Join(dataset.Types(), ", "))
			fmt.Fprintf(w, "sinks:    %s\n", strings.Join(metrics.SinkTypes(), ", "))
			return nil
		},
	}
}
