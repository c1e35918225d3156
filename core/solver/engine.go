package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/induction/core/factory"
)

// Status is the outcome reported by an engine.
type Status int

const (
	StatusOptimal Status = iota
	StatusFeasible
	StatusInfeasible
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "OPTIMAL"
	case StatusFeasible:
		return "FEASIBLE"
	case StatusInfeasible:
		return "INFEASIBLE"
	case StatusTimeout:
		return "TIMEOUT"
	default:
		return fmt.Sprintf("STATUS(%d)", int(s))
	}
}

// HasSolution is true for OPTIMAL and FEASIBLE.
func (s Status) HasSolution() bool { return s == StatusOptimal || s == StatusFeasible }

// Options are the per-solve limits handed to an engine.
type Options struct {
	// TimeBudget bounds the solve. Zero means no limit beyond the context.
	TimeBudget time.Duration
	// Workers is a parallelism hint. Engines without parallel search ignore it.
	Workers int
}

// Result is the raw engine answer.
type Result struct {
	Engine    string
	Status    Status
	Values    []bool
	Objective int64
	// Bound is a lower bound on the optimal objective.
	Bound   float64
	Nodes   int64
	Elapsed time.Duration
}

// Engine solves a Model.
type Engine interface {
	Name() string
	// Solve returns a Result for every outcome of the search, including
	// INFEASIBLE and TIMEOUT. The error is reserved for engine failures.
	Solve(ctx context.Context, m *Model, opts Options) (Result, error)
}

var engines = factory.NewRegistry[Engine]()

// RegisterEngine makes an engine type available to NewEngine.
func RegisterEngine(name string, f factory.Factory[Engine]) error {
	return engines.Register(name, f)
}

// NewEngine instantiates the engine described by cfg. An empty type selects
// the branch-and-bound engine.
func NewEngine(cfg factory.ModuleConfig) (Engine, error) {
	if cfg.Type == "" {
		cfg.Type = BranchAndBoundType
	}
	return engines.Create(cfg)
}

// HasEngine reports whether an engine type is registered.
func HasEngine(name string) bool { return engines.Has(name) }

// EngineTypes lists the registered engine types.
func EngineTypes() []string { return engines.Types() }
