// Package pipeline runs one nightly planning pass: a snapshot is loaded,
// checked, evaluated, turned into a model, solved and decoded into a plan.
// Every run gets its own id and its own model; nothing is shared between
// runs.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/induction/core/dataset"
	"github.com/kilianp07/induction/core/eligibility"
	"github.com/kilianp07/induction/core/logger"
	"github.com/kilianp07/induction/core/metrics"
	"github.com/kilianp07/induction/core/model"
	"github.com/kilianp07/induction/core/plan"
	"github.com/kilianp07/induction/core/planner"
	"github.com/kilianp07/induction/core/ranking"
	"github.com/kilianp07/induction/core/solver"
)

// Stage names reported in logs and metrics.
const (
	StageLoad        = "load"
	StageValidate    = "validate"
	StageEligibility = "eligibility"
	StageBuild       = "build"
	StageSolve       = "solve"
	StageInterpret   = "interpret"
)

// Runner wires the planning components together.
type Runner struct {
	provider  dataset.Provider
	evaluator *eligibility.Evaluator
	builder   *planner.Builder
	engine    solver.Engine
	routes    []model.RouteProfile
	publisher Publisher
	sink      metrics.Sink
	log       logger.Logger
	now       func() time.Time
	newID     func() string
}

// Option customises a Runner.
type Option func(*Runner)

// WithMetrics records run and stage events on sink.
func WithMetrics(sink metrics.Sink) Option {
	return func(r *Runner) {
		if sink != nil {
			r.sink = sink
		}
	}
}

// WithLogger sets the run logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) { r.log = logger.OrNop(l) }
}

// WithPublisher sets where ranked plans are published.
func WithPublisher(p Publisher) Option {
	return func(r *Runner) { r.publisher = p }
}

// WithClock overrides the wall clock used for the reference day and
// event times.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner returns a Runner. The route table may be empty when only
// plans are produced.
func NewRunner(p dataset.Provider, ev *eligibility.Evaluator, b *planner.Builder, e solver.Engine, routes []model.RouteProfile, opts ...Option) (*Runner, error) {
	if p == nil || ev == nil || b == nil || e == nil {
		return nil, fmt.Errorf("pipeline: provider, evaluator, builder and engine are required")
	}
	r := &Runner{
		provider:  p,
		evaluator: ev,
		builder:   b,
		engine:    e,
		routes:    routes,
		sink:      metrics.NopSink{},
		log:       logger.NopLogger{},
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Routes returns the configured route table.
func (r *Runner) Routes() []model.RouteProfile { return r.routes }

// Engine returns the optimisation engine in use.
func (r *Runner) Engine() solver.Engine { return r.engine }

// Plan performs one run. On INFEASIBLE or TIMEOUT no plan is returned and
// the error wraps model.ErrNoPlan.
func (r *Runner) Plan(ctx context.Context) (*plan.Plan, error) {
	runID := r.newID()
	start := r.now()
	ev := metrics.RunEvent{RunID: runID, Engine: r.engine.Name(), Time: start}
	r.log.Infow("planning run started", map[string]any{"run_id": runID, "engine": r.engine.Name(), "source": r.provider.Name()})

	pl, err := r.plan(ctx, runID, &ev)
	ev.Duration = time.Since(start)
	if err != nil {
		ev.Outcome = outcome(err)
		r.log.Errorf("run %s failed: %v", runID, err)
	} else {
		ev.Outcome = metrics.OutcomeOK
		counts := pl.Counts()
		ev.Service = counts[model.StatusService]
		ev.Standby = counts[model.StatusStandby]
		ev.Maintenance = counts[model.StatusMaintenance]
		r.log.Infow("planning run finished", map[string]any{
			"run_id":      runID,
			"status":      ev.Status,
			"objective":   ev.Objective,
			"service":     ev.Service,
			"standby":     ev.Standby,
			"maintenance": ev.Maintenance,
			"elapsed":     ev.Duration.String(),
		})
	}
	if rerr := r.sink.RecordRun(ev); rerr != nil {
		r.log.Warnf("metrics: record run %s: %v", runID, rerr)
	}
	if f, ok := r.sink.(metrics.Flusher); ok {
		if ferr := f.Flush(); ferr != nil {
			r.log.Warnf("metrics: flush: %v", ferr)
		}
	}
	return pl, err
}

func (r *Runner) plan(ctx context.Context, runID string, ev *metrics.RunEvent) (*plan.Plan, error) {
	cfg := r.builder.Config()
	ref, err := cfg.Reference(r.now())
	if err != nil {
		return nil, err
	}

	var ds *model.Dataset
	err = r.stage(runID, StageLoad, func() error {
		var err error
		ds, err = dataset.Load(ctx, r.provider)
		return err
	})
	if err != nil {
		return nil, err
	}
	ev.Vehicles = len(ds.Vehicles)
	r.log.Debugf("run %s loaded %s", runID, ds)

	if err := r.stage(runID, StageValidate, func() error {
		return ds.Validate(cfg.BayResource, cfg.CleaningResource)
	}); err != nil {
		return nil, err
	}

	var verdicts model.Verdicts
	_ = r.stage(runID, StageEligibility, func() error {
		verdicts = r.evaluator.EvaluateFleet(ds, ref)
		return nil
	})
	for reason, n := range eligibility.Counts(verdicts) {
		if reason != model.ReasonEligible {
			ev.Ineligible += n
		}
	}

	var prog *planner.Program
	if err := r.stage(runID, StageBuild, func() error {
		var err error
		prog, err = r.builder.Build(ds, verdicts, ref)
		return err
	}); err != nil {
		return nil, err
	}

	var res solver.Result
	if err := r.stage(runID, StageSolve, func() error {
		var err error
		res, err = r.engine.Solve(ctx, prog.Model, cfg.SolveOptions())
		if err != nil {
			return model.NewError(model.KindEngine, "solve", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	ev.Status = res.Status.String()
	ev.Objective = res.Objective
	ev.Bound = res.Bound
	ev.Nodes = res.Nodes
	ev.SolveTime = res.Elapsed
	r.log.Infow("solve finished", map[string]any{
		"run_id":  runID,
		"status":  res.Status.String(),
		"nodes":   res.Nodes,
		"elapsed": res.Elapsed.String(),
	})

	var pl *plan.Plan
	if err := r.stage(runID, StageInterpret, func() error {
		var err error
		pl, err = plan.Interpret(prog, res)
		return err
	}); err != nil {
		return nil, err
	}
	pl.RunID = runID
	return pl, nil
}

// stage times fn and reports it to the metrics sink.
func (r *Runner) stage(runID, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)
	r.log.Debugw("stage done", map[string]any{"run_id": runID, "stage": name, "duration": d.String(), "failed": err != nil})
	if rec, ok := r.sink.(metrics.StageRecorder); ok {
		if rerr := rec.RecordStage(metrics.StageEvent{RunID: runID, Stage: name, Duration: d, Failed: err != nil, Time: start}); rerr != nil {
			r.log.Warnf("metrics: record stage %s: %v", name, rerr)
		}
	}
	return err
}

// Rank orders a plan for the named route.
func (r *Runner) Rank(pl *plan.Plan, route string) ([]model.RankedRecommendation, error) {
	return ranking.Rank(pl, route, r.routes)
}

// Publish sends the ranked plan to the configured publisher, if any.
func (r *Runner) Publish(ctx context.Context, pl *plan.Plan, route string, recs []model.RankedRecommendation) error {
	if r.publisher == nil {
		return nil
	}
	if pl == nil {
		return model.NewError(model.KindPrecondition, "publish", model.ErrNoPlan)
	}
	pub := NewPublication(pl, route, recs, r.now())
	if err := r.publisher.Publish(ctx, pub); err != nil {
		return fmt.Errorf("publish run %s: %w", pl.RunID, err)
	}
	r.log.Infof("published run %s (%d vehicles)", pl.RunID, len(recs))
	return nil
}

func outcome(err error) string {
	if k := model.KindOf(err); k != "" {
		return string(k)
	}
	return "error"
}
