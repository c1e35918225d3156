package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/induction/core/dataset"
	"github.com/kilianp07/induction/core/eligibility"
	"github.com/kilianp07/induction/core/metrics"
	"github.com/kilianp07/induction/core/model"
	"github.com/kilianp07/induction/core/planner"
	"github.com/kilianp07/induction/core/ranking"
	"github.com/kilianp07/induction/core/solver"
)

var ref = time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)

type recordingSink struct {
	mu     sync.Mutex
	runs   []metrics.RunEvent
	stages []metrics.StageEvent
}

func (s *recordingSink) RecordRun(ev metrics.RunEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, ev)
	return nil
}

func (s *recordingSink) RecordStage(ev metrics.StageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages = append(s.stages, ev)
	return nil
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, p Publication) error {
	return m.Called(ctx, p).Error(0)
}

// depot returns five vehicles; T3 holds two certificates only and T5 has
// open critical work.
func depot(bays, hours float64) *model.Dataset {
	exp := ref.AddDate(1, 0, 0)
	mileage := map[string]float64{"T1": 100000, "T2": 105000, "T3": 98000, "T4": 110000, "T5": 95000}
	order := []string{"T1", "T2", "T3", "T4", "T5"}
	var vehicles []model.Vehicle
	var certs []model.Certificate
	for _, id := range order {
		vehicles = append(vehicles, model.Vehicle{ID: id, CumulativeMileageKM: mileage[id]})
		types := []string{"RS", "SIG", "TEL"}
		if id == "T3" {
			types = types[:2]
		}
		for _, t := range types {
			certs = append(certs, model.Certificate{VehicleID: id, Type: t, Expiry: exp})
		}
	}
	jobs := []model.JobCard{{ID: "J1", VehicleID: "T5", Status: model.JobOpen, Critical: true, RequiredManHours: 6}}
	res := []model.ResourceCapacity{
		{ResourceID: planner.DefaultBayResource, AvailableCapacity: bays},
		{ResourceID: planner.DefaultCleaningResource, AvailableCapacity: hours},
	}
	layout := []model.ShuntingCostEntry{{From: "Stabling_Track_1", To: "IBL_Bay_1", Cost: 40}}
	return model.NewDataset(vehicles, certs, jobs, nil, res, layout)
}

func newRunner(t *testing.T, ds *model.Dataset, cfg planner.Config, opts ...Option) *Runner {
	t.Helper()
	cfg.ReferenceDate = ref.Format(model.DateLayout)
	cfg.Workers = 1
	b, err := planner.NewBuilder(cfg, nil)
	require.NoError(t, err)
	ids := 0
	r, err := NewRunner(
		dataset.Static{Dataset: ds},
		eligibility.NewEvaluator(eligibility.Config{}),
		b,
		solver.NewBranchAndBound(solver.BranchAndBoundConfig{}, nil),
		ranking.DefaultRoutes(),
		opts...,
	)
	require.NoError(t, err)
	r.newID = func() string {
		ids++
		return "run-" + string(rune('0'+ids))
	}
	return r
}

func TestRunner_Plan(t *testing.T) {
	sink := &recordingSink{}
	r := newRunner(t, depot(2, 40), planner.DefaultConfig(), WithMetrics(sink))

	pl, err := r.Plan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-1", pl.RunID)
	require.Len(t, pl.Assignments, 5)

	st, ok := pl.StatusOf("T3")
	require.True(t, ok)
	assert.NotEqual(t, model.StatusService, st)
	st, _ = pl.StatusOf("T5")
	assert.Equal(t, model.StatusMaintenance, st, "urgent vehicle should be repaired when bays allow")

	require.Len(t, sink.runs, 1)
	ev := sink.runs[0]
	assert.Equal(t, metrics.OutcomeOK, ev.Outcome)
	assert.Equal(t, "OPTIMAL", ev.Status)
	assert.Equal(t, 5, ev.Vehicles)
	assert.Equal(t, 2, ev.Ineligible)
	assert.Equal(t, 5, ev.Service+ev.Standby+ev.Maintenance)

	var stages []string
	for _, s := range sink.stages {
		stages = append(stages, s.Stage)
	}
	assert.Equal(t, []string{StageLoad, StageValidate, StageEligibility, StageBuild, StageSolve, StageInterpret}, stages)
}

func TestRunner_Infeasible(t *testing.T) {
	cfg := planner.DefaultConfig()
	cfg.MandatoryCriticalRepair = true
	ds := depot(2, 4)
	sink := &recordingSink{}
	r := newRunner(t, ds, cfg, WithMetrics(sink))

	pl, err := r.Plan(context.Background())
	assert.Nil(t, pl)
	assert.True(t, errors.Is(err, model.ErrNoPlan))
	assert.Equal(t, model.KindInfeasible, model.KindOf(err))
	require.Len(t, sink.runs, 1)
	assert.Equal(t, "infeasible", sink.runs[0].Outcome)
	assert.Equal(t, "INFEASIBLE", sink.runs[0].Status)
}

func TestRunner_ValidationStopsEarly(t *testing.T) {
	ds := depot(2, 40)
	ds.Resources = ds.Resources[:1]
	sink := &recordingSink{}
	r := newRunner(t, ds, planner.DefaultConfig(), WithMetrics(sink))

	_, err := r.Plan(context.Background())
	assert.Equal(t, model.KindValidation, model.KindOf(err))
	require.Len(t, sink.runs, 1)
	assert.Equal(t, "validation", sink.runs[0].Outcome)
	for _, s := range sink.stages {
		assert.NotEqual(t, StageBuild, s.Stage, "no model may be built from invalid data")
	}
}

func TestRunner_RankAndPublish(t *testing.T) {
	pub := &mockPublisher{}
	var got Publication
	pub.On("Publish", mock.Anything, mock.AnythingOfType("pipeline.Publication")).
		Run(func(args mock.Arguments) { got = args.Get(1).(Publication) }).
		Return(nil).Once()
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()
	r := newRunner(t, depot(2, 40), planner.DefaultConfig(), WithPublisher(pub),
		WithClock(func() time.Time { return ref.Add(20 * time.Hour) }))

	pl, err := r.Plan(context.Background())
	require.NoError(t, err)

	recs, err := r.Rank(pl, "Line E (Long Express: 100km)")
	require.NoError(t, err)
	require.Len(t, recs, 5)
	for _, rec := range recs {
		st, _ := pl.StatusOf(rec.VehicleID)
		assert.Equal(t, st, rec.Status, "ranking must keep statuses")
	}

	require.NoError(t, r.Publish(context.Background(), pl, "Line E (Long Express: 100km)", recs))
	p := got
	assert.Equal(t, pl.RunID, p.RunID)
	assert.Equal(t, "2025-09-10", p.ReferenceDate)
	assert.Equal(t, 5, p.Counts["Revenue Service"]+p.Counts["Standby"]+p.Counts["Maintenance"])
	assert.Len(t, p.Recommendations, 5)

	_, err = r.Rank(pl, "Line Z")
	assert.Equal(t, model.KindValidation, model.KindOf(err))

	assert.Error(t, r.Publish(context.Background(), pl, "", nil))
	assert.Equal(t, model.KindPrecondition, model.KindOf(r.Publish(context.Background(), nil, "", nil)))
	pub.AssertNumberOfCalls(t, "Publish", 2)
}

func TestRunner_EachRunIsIndependent(t *testing.T) {
	r := newRunner(t, depot(1, 40), planner.DefaultConfig())
	a, err := r.Plan(context.Background())
	require.NoError(t, err)
	b, err := r.Plan(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, a.Assignments, b.Assignments)
}

func TestNewRunner_RequiresComponents(t *testing.T) {
	_, err := NewRunner(nil, nil, nil, nil, nil)
	assert.Error(t, err)
}
