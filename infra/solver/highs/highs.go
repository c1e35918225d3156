// Package highs binds the HiGHS MIP solver, reached through the nextmv SDK,
// to the solver.Engine contract.
package highs

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/nextmv-io/sdk/mip"

	"github.com/kilianp07/induction/core/factory"
	"github.com/kilianp07/induction/core/logger"
	"github.com/kilianp07/induction/core/solver"
)

// Type is the registry name of the engine.
const Type = "highs"

// Config tunes the HiGHS engine.
type Config struct {
	// Provider is the nextmv solver provider name.
	Provider string `json:"provider"`
	// RelativeGap is the accepted MIP gap. Zero asks for proven optimality.
	RelativeGap float64 `json:"relative_gap"`
	Verbose     bool    `json:"verbose"`
}

// SetDefaults selects the highs provider.
func (c *Config) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "highs"
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.RelativeGap < 0 || c.RelativeGap >= 1 {
		return fmt.Errorf("relative_gap must be in [0,1)")
	}
	return nil
}

// Engine solves models with HiGHS. The worker hint is ignored.
type Engine struct {
	cfg Config
	log logger.Logger
}

// New returns a HiGHS engine.
func New(cfg Config, log logger.Logger) (*Engine, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, log: logger.OrNop(log)}, nil
}

func init() {
	_ = solver.RegisterEngine(Type, func(conf map[string]any) (solver.Engine, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		e, err := New(c, nil)
		if err != nil {
			return nil, err
		}
		return e, nil
	})
}

// Name implements solver.Engine.
func (e *Engine) Name() string { return Type }

// Solve implements solver.Engine.
func (e *Engine) Solve(ctx context.Context, m *solver.Model, opts solver.Options) (res solver.Result, err error) {
	start := time.Now()
	res = solver.Result{Engine: Type, Bound: math.Inf(-1)}
	if m == nil {
		return res, fmt.Errorf("highs: nil model")
	}
	if err := ctx.Err(); err != nil {
		res.Status = solver.StatusTimeout
		return res, nil
	}
	budget := opts.TimeBudget
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); budget == 0 || left < budget {
			budget = left
		}
	}

	// The SDK loads the provider lazily and panics when it is missing.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("highs: %v", r)
		}
	}()

	mm, vars := translate(m)
	slv, err := mip.NewSolver(mip.SolverProvider(e.cfg.Provider), mm)
	if err != nil {
		return res, fmt.Errorf("highs: %w", err)
	}
	so := mip.NewSolveOptions()
	if budget > 0 {
		if err := so.SetMaximumDuration(budget); err != nil {
			return res, fmt.Errorf("highs: %w", err)
		}
	}
	if err := so.SetMIPGapRelative(e.cfg.RelativeGap); err != nil {
		return res, fmt.Errorf("highs: %w", err)
	}
	if e.cfg.Verbose {
		so.SetVerbosity(mip.High)
	} else {
		so.SetVerbosity(mip.Off)
	}

	e.log.Debugf("highs: solving %d vars, %d constraints, budget %s", m.NumVars(), len(m.Constraints()), budget)
	sol, err := slv.Solve(so)
	res.Elapsed = time.Since(start)
	if err != nil {
		return res, fmt.Errorf("highs: %w", err)
	}

	has := sol != nil && sol.HasValues()
	res.Status = classify(has, has && sol.IsOptimal(), res.Elapsed, budget)
	if !res.Status.HasSolution() {
		return res, nil
	}
	raw := make([]float64, len(vars))
	for i, v := range vars {
		raw[i] = sol.Value(v)
	}
	res.Values = decode(raw)
	if err := m.Check(res.Values); err != nil {
		return res, fmt.Errorf("highs: solution rejected: %w", err)
	}
	res.Objective = m.Evaluate(res.Values)
	if res.Status == solver.StatusOptimal {
		res.Bound = float64(res.Objective)
	}
	return res, nil
}

// translate copies m into a nextmv model. The objective constant is left
// out and added back by Evaluate.
func translate(m *solver.Model) (mip.Model, []mip.Bool) {
	mm := mip.NewModel()
	vars := make([]mip.Bool, m.NumVars())
	for i := range vars {
		vars[i] = mm.NewBool()
	}
	mm.Objective().SetMinimize()
	for i, v := range vars {
		if c := m.Objective(solver.Var(i)); c != 0 {
			mm.Objective().NewTerm(float64(c), v)
		}
	}
	for _, g := range m.Groups() {
		c := mm.NewConstraint(mip.Equal, 1)
		for _, v := range g {
			c.NewTerm(1, vars[v])
		}
	}
	for _, con := range m.Constraints() {
		c := mm.NewConstraint(sense(con.Sense), float64(con.RHS))
		for _, t := range con.Terms {
			c.NewTerm(float64(t.Coef), vars[t.Var])
		}
	}
	return mm, vars
}

func sense(s solver.Sense) mip.Sense {
	switch s {
	case solver.LessOrEqual:
		return mip.LessThanOrEqual
	case solver.GreaterOrEqual:
		return mip.GreaterThanOrEqual
	default:
		return mip.Equal
	}
}

// classify maps the solver answer onto an engine status. Without values
// the run is a TIMEOUT when the budget was used up and INFEASIBLE otherwise.
func classify(hasValues, optimal bool, elapsed, budget time.Duration) solver.Status {
	switch {
	case hasValues && optimal:
		return solver.StatusOptimal
	case hasValues:
		return solver.StatusFeasible
	case budget > 0 && elapsed >= budget:
		return solver.StatusTimeout
	default:
		return solver.StatusInfeasible
	}
}

func decode(raw []float64) []bool {
	out := make([]bool, len(raw))
	for i, v := range raw {
		out[i] = v > 0.5
	}
	return out
}
