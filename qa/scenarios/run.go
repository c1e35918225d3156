package scenarios

import (
	"context"
	"fmt"
	"sort"

	"github.com/kilianp07/induction/core/dataset"
	"github.com/kilianp07/induction/core/eligibility"
	"github.com/kilianp07/induction/core/model"
	"github.com/kilianp07/induction/core/pipeline"
	"github.com/kilianp07/induction/core/plan"
	"github.com/kilianp07/induction/core/planner"
	"github.com/kilianp07/induction/core/ranking"
	"github.com/kilianp07/induction/core/solver"
)

// Result is what one scenario run produced.
type Result struct {
	Plan    *plan.Plan
	Ranking []model.RankedRecommendation
	Err     error
}

// Run plans the scenario with the in-process engine. Configuration
// problems are returned as the error; planning failures land in Result.Err.
func Run(ctx context.Context, sc *Scenario) (*Result, error) {
	pcfg, err := sc.PlannerConfig()
	if err != nil {
		return nil, err
	}
	ecfg, err := sc.EligibilityConfig()
	if err != nil {
		return nil, err
	}
	ds, err := sc.Dataset.ToDataset()
	if err != nil {
		return nil, err
	}
	b, err := planner.NewBuilder(pcfg, nil)
	if err != nil {
		return nil, err
	}
	routes := ranking.DefaultRoutes()
	r, err := pipeline.NewRunner(
		dataset.Static{Dataset: ds},
		eligibility.NewEvaluator(ecfg),
		b,
		solver.NewBranchAndBound(solver.BranchAndBoundConfig{}, nil),
		routes,
	)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	res.Plan, res.Err = r.Plan(ctx)
	if res.Err != nil {
		return res, nil
	}
	route := sc.Route
	if route == "" {
		route = routes[0].Name
	}
	res.Ranking, res.Err = r.Rank(res.Plan, route)
	return res, nil
}

// Check compares a result with the expectation and lists every mismatch.
func Check(exp Expected, res *Result) []string {
	var out []string
	if exp.Error != "" {
		if got := model.KindOf(res.Err); string(got) != exp.Error {
			out = append(out, fmt.Sprintf("error kind: want %s, got %q (%v)", exp.Error, got, res.Err))
		}
		if res.Plan != nil {
			out = append(out, "a plan was returned for a failing scenario")
		}
		return out
	}
	if res.Err != nil {
		return []string{fmt.Sprintf("unexpected error: %v", res.Err)}
	}

	for _, id := range sortedKeys(exp.Statuses) {
		want, err := model.ParseStatus(exp.Statuses[id])
		if err != nil {
			out = append(out, err.Error())
			continue
		}
		got, ok := res.Plan.StatusOf(id)
		if !ok || got != want {
			out = append(out, fmt.Sprintf("%s: want %s, got %s", id, want, got))
		}
	}
	counts := res.Plan.Counts()
	for _, key := range sortedKeys(exp.Counts) {
		s, err := model.ParseStatus(key)
		if err != nil {
			out = append(out, err.Error())
			continue
		}
		if counts[s] != exp.Counts[key] {
			out = append(out, fmt.Sprintf("count %s: want %d, got %d", s, exp.Counts[key], counts[s]))
		}
	}
	for _, id := range sortedKeys(exp.Ineligible) {
		v := res.Plan.Verdicts[id]
		if v.Eligible || v.Reason.String() != exp.Ineligible[id] {
			out = append(out, fmt.Sprintf("%s: want reason %s, got %s", id, exp.Ineligible[id], v.Reason))
		}
	}
	if len(exp.Ranking) > 0 {
		got := make([]string, len(res.Ranking))
		for i, r := range res.Ranking {
			got[i] = r.VehicleID
		}
		if fmt.Sprint(got) != fmt.Sprint(exp.Ranking) {
			out = append(out, fmt.Sprintf("ranking: want %v, got %v", exp.Ranking, got))
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
