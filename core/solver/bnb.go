package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/induction/core/factory"
	"github.com/kilianp07/induction/core/logger"
)

// BranchAndBoundType is the registry name of the in-process engine.
const BranchAndBoundType = "branch-and-bound"

// maxRelaxVars caps the size of models handed to the dense LP relaxation.
const maxRelaxVars = 1500

// maxRelaxTime bounds the root relaxation. With a time budget it gets at
// most a quarter of it.
const maxRelaxTime = 2 * time.Second

// BranchAndBoundConfig tunes the in-process engine.
type BranchAndBoundConfig struct {
	// NodeLimit stops each search after the given number of nodes. Zero
	// disables the limit.
	NodeLimit int64 `json:"node_limit"`
	// DisableRelaxation skips the root LP relaxation.
	DisableRelaxation bool `json:"disable_relaxation"`
}

// Validate checks the engine configuration.
func (c BranchAndBoundConfig) Validate() error {
	if c.NodeLimit < 0 {
		return fmt.Errorf("node_limit must not be negative")
	}
	return nil
}

// BranchAndBound is a deterministic depth-first branch-and-bound engine for
// 0-1 models. With Workers > 1 the subtrees below the first decision are
// explored concurrently and the best plan of the lowest subtree wins ties,
// so the answer does not depend on scheduling.
type BranchAndBound struct {
	cfg BranchAndBoundConfig
	log logger.Logger
}

// NewBranchAndBound returns the in-process engine.
func NewBranchAndBound(cfg BranchAndBoundConfig, log logger.Logger) *BranchAndBound {
	return &BranchAndBound{cfg: cfg, log: logger.OrNop(log)}
}

func init() {
	engines.MustRegister(BranchAndBoundType, func(conf map[string]any) (Engine, error) {
		var c BranchAndBoundConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return NewBranchAndBound(c, nil), nil
	})
}

// Name implements Engine.
func (e *BranchAndBound) Name() string { return BranchAndBoundType }

// Solve implements Engine.
func (e *BranchAndBound) Solve(ctx context.Context, m *Model, opts Options) (Result, error) {
	start := time.Now()
	res := Result{Engine: BranchAndBoundType}
	if m == nil {
		return res, errors.New("branch-and-bound: nil model")
	}
	var deadline time.Time
	if opts.TimeBudget > 0 {
		deadline = start.Add(opts.TimeBudget)
	}

	p, ok := compile(m)
	if !ok {
		res.Status = StatusInfeasible
		res.Elapsed = time.Since(start)
		return res, nil
	}
	res.Bound = float64(newSearch(ctx, p, deadline, 0).bound(0))
	if !e.cfg.DisableRelaxation && m.NumVars() <= maxRelaxVars {
		if lb, ok := e.rootBound(ctx, m, start, deadline); ok {
			if lb = math.Ceil(lb - 1e-6); lb > res.Bound {
				res.Bound = lb
			}
		}
	}
	if ctx.Err() != nil {
		res.Status = StatusTimeout
		res.Elapsed = time.Since(start)
		return res, nil
	}

	var best *search
	var stopped bool
	if split := p.split(); opts.Workers > 1 && split >= 0 {
		best, stopped, res.Nodes = e.parallel(ctx, p, split, deadline, opts.Workers)
	} else {
		s := newSearch(ctx, p, deadline, e.cfg.NodeLimit)
		s.dfs(0)
		stopped, res.Nodes = s.stopped, s.nodes
		if s.found {
			best = s
		}
	}
	res.Elapsed = time.Since(start)

	switch {
	case best != nil && !stopped:
		res.Status = StatusOptimal
	case best != nil:
		res.Status = StatusFeasible
	case stopped:
		res.Status = StatusTimeout
	default:
		res.Status = StatusInfeasible
	}
	if best != nil {
		res.Values = best.values()
		res.Objective = best.best
		if res.Status == StatusOptimal || res.Bound > float64(res.Objective) {
			res.Bound = float64(res.Objective)
		}
	}
	e.log.Debugw("branch-and-bound finished", map[string]any{
		"status":    res.Status.String(),
		"objective": res.Objective,
		"bound":     res.Bound,
		"nodes":     res.Nodes,
		"elapsed":   res.Elapsed.String(),
	})
	return res, nil
}

// rootBound solves the LP relaxation of m in its own goroutine and gives up
// when the relaxation limit, the deadline or ctx expires first. An abandoned
// simplex run is left to finish on its own; its result is discarded.
func (e *BranchAndBound) rootBound(ctx context.Context, m *Model, start, deadline time.Time) (float64, bool) {
	limit := maxRelaxTime
	if !deadline.IsZero() {
		if q := deadline.Sub(start) / 4; q < limit {
			limit = q
		}
	}
	if limit <= 0 {
		return 0, false
	}
	type relaxed struct {
		lb  float64
		err error
	}
	relax := lpRelax
	done := make(chan relaxed, 1)
	go func() {
		lb, err := relax(m)
		done <- relaxed{lb, err}
	}()
	timer := time.NewTimer(limit)
	defer timer.Stop()
	select {
	case r := <-done:
		if r.err != nil {
			e.log.Debugf("branch-and-bound: lp relaxation skipped: %v", r.err)
			return 0, false
		}
		return r.lb, true
	case <-timer.C:
		e.log.Debugf("branch-and-bound: lp relaxation abandoned after %s", limit)
		return 0, false
	case <-ctx.Done():
		return 0, false
	}
}

// parallel explores each choice of the split unit as an independent
// subtree. Workers share the best objective for pruning; the returned search
// is the cheapest one, lowest subtree first on ties.
func (e *BranchAndBound) parallel(ctx context.Context, p *problem, split int, deadline time.Time, workers int) (*search, bool, int64) {
	subtrees := make([]*search, len(p.units[split].choices))
	var global atomic.Int64
	global.Store(math.MaxInt64)

	var g errgroup.Group
	g.SetLimit(workers)
	for k := range subtrees {
		k := k
		g.Go(func() error {
			s := newSearch(ctx, p, deadline, e.cfg.NodeLimit)
			s.global = &global
			ok := true
			for d := 0; d <= split && ok; d++ {
				u := p.units[d]
				s.nodes++
				s.enter(u)
				pick := 0
				if d == split {
					pick = k
				}
				s.pick[d] = pick
				ok = s.apply(u, pick)
			}
			if ok && !s.pruned(s.bound(split+1)) {
				s.dfs(split + 1)
			}
			subtrees[k] = s
			return nil
		})
	}
	_ = g.Wait()

	var best *search
	var stopped bool
	var nodes int64
	for _, s := range subtrees {
		nodes += s.nodes
		stopped = stopped || s.stopped
		if s.found && (best == nil || s.best < best.best) {
			best = s
		}
	}
	return best, stopped, nodes
}
