// Package solver holds the 0-1 integer model produced by the planner and the
// optimisation engines able to solve it.
//
// A Model is a set of boolean variables, exactly-one groups, linear
// constraints with integer coefficients and a minimised integer objective.
// Engines are registered by type name; the in-process "branch-and-bound"
// engine is always available, other engines register themselves from infra
// packages:
//
//	eng, err := solver.NewEngine(factory.ModuleConfig{Type: "branch-and-bound"})
//	res, err := eng.Solve(ctx, m, solver.Options{TimeBudget: time.Minute, Workers: 8})
//
// A Result carries values only when its status is OPTIMAL or FEASIBLE.
package solver
