// Package cmd implements the induction command line.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kilianp07/induction/config"
	"github.com/kilianp07/induction/core/factory"
	coremon "github.com/kilianp07/induction/core/monitoring"
	"github.com/kilianp07/induction/core/model"
	"github.com/kilianp07/induction/core/solver"
	"github.com/kilianp07/induction/infra/logger"

	// Register the dataset providers, metrics sinks and the HiGHS engine.
	_ "github.com/kilianp07/induction/infra/dataset"
	_ "github.com/kilianp07/induction/infra/kpi"
	_ "github.com/kilianp07/induction/infra/metrics"
	_ "github.com/kilianp07/induction/infra/solver/highs"
)

// Exit codes returned by the binary.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitValidation   = 2
	ExitInfeasible   = 3
	ExitTimeout      = 4
	ExitPrecondition = 5
	ExitEngine       = 6
)

type globalFlags struct {
	cfgPath   string
	envFile   string
	dataDir   string
	reference string
	engine    string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "induction",
		Short:         "Nightly fleet induction planner",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := godotenv.Load(g.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load %s: %w", g.envFile, err)
			}
			return nil
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&g.cfgPath, "config", "c", "", "configuration file (yaml or json)")
	pf.StringVar(&g.envFile, "env-file", ".env", "dotenv file loaded before the configuration")
	pf.StringVarP(&g.dataDir, "data", "d", "", "CSV data directory, overrides the configured dataset")
	pf.StringVar(&g.reference, "reference-date", "", "planning day (YYYY-MM-DD), defaults to today")
	pf.StringVar(&g.engine, "engine", "", "optimisation engine, overrides the configured one")

	root.AddCommand(
		newPlanCmd(g),
		newRankCmd(g),
		newSummaryCmd(g),
		newRoutesCmd(g),
		newEnginesCmd(),
		newHistoryCmd(g),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	cmd, err := root.ExecuteC()
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "error:", err)
		reportFailure(cmd, err)
	}
	_ = logger.CloseFiles()
	return ExitCode(err)
}

// reportFailure sends a failed run to the error tracker.
func reportFailure(cmd *cobra.Command, err error) {
	name := "induction"
	if cmd != nil {
		name = cmd.Name()
	}
	coremon.ReportFailure(name, err)
}

// ExitCode maps an error to the exit status of the binary.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch model.KindOf(err) {
	case model.KindValidation:
		return ExitValidation
	case model.KindInfeasible:
		return ExitInfeasible
	case model.KindTimeout:
		return ExitTimeout
	case model.KindPrecondition:
		return ExitPrecondition
	case model.KindEngine:
		return ExitEngine
	}
	return ExitFailure
}

// load reads the configuration and applies the command line overrides.
func (g *globalFlags) load() (*config.Config, error) {
	cfg, err := config.Load(g.cfgPath)
	if err != nil {
		return nil, err
	}
	if g.dataDir != "" {
		cfg.Dataset = factory.ModuleConfig{Type: "csv", Conf: map[string]any{"dir": g.dataDir}}
	}
	if g.reference != "" {
		cfg.Planner.ReferenceDate = g.reference
	}
	if g.engine != "" {
		if !solver.HasEngine(g.engine) {
			return nil, model.Validationf("engine", "unknown engine %q (known: %s)", g.engine, strings.Join(solver.EngineTypes(), ", "))
		}
		cfg.Engine = factory.ModuleConfig{Type: g.engine}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
