package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/induction/config"
	"github.com/kilianp07/induction/core/model"
	"github.com/kilianp07/induction/infra/kpi"
)

func newHistoryCmd(g *globalFlags) *cobra.Command {
	var (
		db    string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the KPIs of recent planning runs recorded by the sqlite sink",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if db == "" {
				cfg, err := g.load()
				if err != nil {
					return err
				}
				db = historyPath(cfg)
			}
			if db == "" {
				return model.Validationf("history", "no sqlite metrics sink configured, pass --db")
			}
			store, err := kpi.NewSQLiteStore(db)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "STARTED\tRUN\tENGINE\tOUTCOME\tSTATUS\tSVC\tSBY\tMNT\tOBJECTIVE\tDURATION")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
					r.Time.Format("2006-01-02 15:04"), r.RunID, r.Engine, r.Outcome, r.Status,
					r.Service, r.Standby, r.Maintenance, r.Objective, r.Duration)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "run history database (defaults to the configured sqlite sink)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	return cmd
}

func historyPath(cfg *config.Config) string {
	for _, s := range cfg.Metrics.Sinks {
		if s.Type != kpi.SinkType {
			continue
		}
		if p, ok := s.Conf["path"].(string); ok {
			return p
		}
	}
	return ""
}
