package planner

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/induction/core/eligibility"
	"github.com/kilianp07/induction/core/model"
	"github.com/kilianp07/induction/core/solver"
)

var ref = time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)

type fleetOpts struct {
	bays, hours float64
	critical    []string
	twoCerts    []string
	jobs        []model.JobCard
	slas        []model.SLA
}

func fleet(mileage map[string]float64, order []string, o fleetOpts) *model.Dataset {
	var vehicles []model.Vehicle
	var certs []model.Certificate
	jobs := append([]model.JobCard(nil), o.jobs...)
	exp := ref.AddDate(0, 6, 0)
	for _, id := range order {
		vehicles = append(vehicles, model.Vehicle{ID: id, CumulativeMileageKM: mileage[id]})
		types := []string{"RS", "SIG", "TEL"}
		for _, short := range o.twoCerts {
			if short == id {
				types = types[:2]
			}
		}
		for _, t := range types {
			certs = append(certs, model.Certificate{VehicleID: id, Type: t, Expiry: exp})
		}
		for _, c := range o.critical {
			if c == id {
				jobs = append(jobs, model.JobCard{VehicleID: id, Status: model.JobOpen, Critical: true, RequiredManHours: 6})
			}
		}
	}
	res := []model.ResourceCapacity{
		{ResourceID: DefaultBayResource, AvailableCapacity: o.bays},
		{ResourceID: DefaultCleaningResource, AvailableCapacity: o.hours},
	}
	layout := []model.ShuntingCostEntry{
		{From: "Stabling_Track_1", To: "IBL_Bay_1", Cost: 40},
		{From: "Stabling_Track_2", To: "IBL_Bay_2", Cost: 60},
		{From: "IBL_Bay_1", To: "Stabling_Track_1", Cost: 20},
	}
	return model.NewDataset(vehicles, certs, jobs, o.slas, res, layout)
}

func build(t *testing.T, cfg Config, ds *model.Dataset) *Program {
	t.Helper()
	b, err := NewBuilder(cfg, nil)
	require.NoError(t, err)
	verdicts := eligibility.NewEvaluator(eligibility.Config{}).EvaluateFleet(ds, ref)
	p, err := b.Build(ds, verdicts, ref)
	require.NoError(t, err)
	return p
}

func solve(t *testing.T, p *Program) solver.Result {
	t.Helper()
	res, err := solver.NewBranchAndBound(solver.BranchAndBoundConfig{}, nil).
		Solve(context.Background(), p.Model, solver.Options{TimeBudget: 10 * time.Second})
	require.NoError(t, err)
	return res
}

func statusOf(p *Program, values []bool, i int) model.Status {
	for _, s := range model.Statuses {
		if values[p.Vars[i].Of(s)] {
			return s
		}
	}
	return -1
}

var fiveMileage = map[string]float64{"T1": 100000, "T2": 120000, "T3": 80000, "T4": 110000, "T5": 90000}
var fiveOrder = []string{"T1", "T2", "T3", "T4", "T5"}

func TestBuild_ModelShape(t *testing.T) {
	p := build(t, DefaultConfig(), fleet(fiveMileage, fiveOrder, fleetOpts{bays: 2, hours: 40, twoCerts: []string{"T3"}}))
	assert.Equal(t, 15, p.Model.NumVars())
	assert.Len(t, p.Model.Groups(), 5)
	assert.Equal(t, int64(50), p.ShuntToBay)
	assert.Equal(t, int64(20), p.ShuntToStable)
	assert.Equal(t, float64(100000), p.AvgMileage)
	assert.Equal(t, int64(20000), p.Costs[1].MileageDeviation)
	assert.Equal(t, int64(20000), p.Costs[2].MileageDeviation, "below-average vehicles pay too")

	fixed := false
	for _, c := range p.Model.Constraints() {
		if c.Name == "T3/ineligible" {
			fixed = c.Sense == solver.Equal && c.RHS == 0 && c.Terms[0].Var == p.Vars[2].Service
		}
	}
	assert.True(t, fixed, "service of T3 must be forced false")
}

func TestBuild_MissingCertificatesNeverInService(t *testing.T) {
	p := build(t, DefaultConfig(), fleet(fiveMileage, fiveOrder, fleetOpts{bays: 2, hours: 40, twoCerts: []string{"T3"}}))
	assert.Equal(t, model.ReasonMissingCertificates, p.Verdicts["T3"].Reason)
	res := solve(t, p)
	require.Equal(t, solver.StatusOptimal, res.Status)
	assert.NotEqual(t, model.StatusService, statusOf(p, res.Values, 2))
	for i := range p.Vars {
		n := 0
		for _, s := range model.Statuses {
			if res.Values[p.Vars[i].Of(s)] {
				n++
			}
		}
		assert.Equal(t, 1, n, "vehicle %d", i)
	}
}

func TestBuild_ZeroBaysMeansNoMaintenance(t *testing.T) {
	p := build(t, DefaultConfig(), fleet(fiveMileage, fiveOrder, fleetOpts{bays: 0, hours: 100, critical: []string{"T2"}}))
	res := solve(t, p)
	require.True(t, res.Status.HasSolution())
	for i := range p.Vars {
		assert.NotEqual(t, model.StatusMaintenance, statusOf(p, res.Values, i))
	}
}

func TestBuild_UrgencyRoutesCriticalToMaintenance(t *testing.T) {
	p := build(t, DefaultConfig(), fleet(fiveMileage, fiveOrder, fleetOpts{bays: 1, hours: 10, critical: []string{"T4"}}))
	res := solve(t, p)
	require.Equal(t, solver.StatusOptimal, res.Status)
	assert.Equal(t, model.StatusMaintenance, statusOf(p, res.Values, 3))
}

func TestBuild_InsufficientManHoursIsInfeasible(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MandatoryCriticalRepair = true
	p := build(t, cfg, fleet(fiveMileage, fiveOrder, fleetOpts{bays: 5, hours: 8, critical: []string{"T1", "T4"}}))
	res := solve(t, p)
	assert.Equal(t, solver.StatusInfeasible, res.Status)
	assert.Nil(t, res.Values)
}

func TestBuild_BrandingKeepsSLAVehicleInService(t *testing.T) {
	cfg := DefaultConfig()
	ds := fleet(fiveMileage, fiveOrder, fleetOpts{bays: 0, hours: 0,
		slas: []model.SLA{{VehicleID: "T2", CurrentExposureHours: 100, TargetExposureHours: 300, PenaltyPerHour: 50}}})
	p := build(t, cfg, ds)
	assert.Equal(t, int64(50), p.Costs[1].BrandingPenalty)
	res := solve(t, p)
	require.Equal(t, solver.StatusOptimal, res.Status)
	assert.Equal(t, model.StatusService, statusOf(p, res.Values, 1))

	statuses := make([]model.Status, len(p.Vars))
	for i := range statuses {
		statuses[i] = statusOf(p, res.Values, i)
	}
	assert.Equal(t, res.Objective, p.Breakdown(statuses).Total())
}

func TestBuild_ValidationErrors(t *testing.T) {
	b, err := NewBuilder(DefaultConfig(), nil)
	require.NoError(t, err)

	ds := fleet(fiveMileage, fiveOrder, fleetOpts{bays: 1, hours: 1})
	ds.Resources = ds.Resources[:1]
	_, err = b.Build(ds, model.Verdicts{}, ref)
	assert.True(t, model.IsKind(err, model.KindValidation), "missing resource row: %v", err)

	ds = fleet(fiveMileage, fiveOrder, fleetOpts{bays: 1, hours: 1})
	_, err = b.Build(ds, model.Verdicts{}, ref)
	assert.True(t, model.IsKind(err, model.KindPrecondition), "missing verdicts: %v", err)

	cfg := DefaultConfig()
	cfg.BrandingWeight = -1
	_, err = NewBuilder(cfg, nil)
	assert.True(t, model.IsKind(err, model.KindValidation))
}

func TestConfig_PriorityWarnings(t *testing.T) {
	assert.Empty(t, DefaultConfig().PriorityWarnings())
	cfg := DefaultConfig()
	cfg.BrandingWeight = 100
	assert.Len(t, cfg.PriorityWarnings(), 1)
	cfg.UrgencyWeight = 10
	assert.Len(t, cfg.PriorityWarnings(), 2)
}

func TestConfig_Reference(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Date(2025, 9, 10, 22, 15, 0, 0, time.UTC)
	d, err := cfg.Reference(now)
	require.NoError(t, err)
	assert.Equal(t, ref, d)
	cfg.ReferenceDate = "2025-01-31"
	d, err = cfg.Reference(now)
	require.NoError(t, err)
	assert.Equal(t, time.January, d.Month())
	cfg.ReferenceDate = "31/01/2025"
	assert.Error(t, cfg.Validate())
	assert.Equal(t, 60*time.Second, DefaultConfig().SolveOptions().TimeBudget)
}

// Small random fleets used to leave the root relaxation cycling in the
// simplex. Every solve has to come back within its budget.
func TestBuild_RandomFleetsSolveWithinBudget(t *testing.T) {
	if testing.Short() {
		t.Skip("random fleet sweep")
	}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 300; i++ {
		n := 2 + rng.Intn(7)
		mileage := make(map[string]float64, n)
		order := make([]string, n)
		var o fleetOpts
		for k := range order {
			id := fmt.Sprintf("T%d", k+1)
			order[k] = id
			mileage[id] = float64(80000 + rng.Intn(40000))
			switch rng.Intn(5) {
			case 0:
				o.critical = append(o.critical, id)
			case 1:
				o.twoCerts = append(o.twoCerts, id)
			}
			if rng.Intn(3) == 0 {
				o.jobs = append(o.jobs, model.JobCard{VehicleID: id, Status: model.JobOpen, RequiredManHours: float64(1 + rng.Intn(8))})
			}
			if rng.Intn(3) == 0 {
				o.slas = append(o.slas, model.SLA{VehicleID: id, CurrentExposureHours: 10, TargetExposureHours: 40, PenaltyPerHour: float64(1 + rng.Intn(20))})
			}
		}
		o.bays = float64(rng.Intn(3))
		o.hours = float64(rng.Intn(30))
		p := build(t, DefaultConfig(), fleet(mileage, order, o))

		workers := 1
		if i%2 == 1 {
			workers = 8
		}
		start := time.Now()
		res, err := solver.NewBranchAndBound(solver.BranchAndBoundConfig{}, nil).
			Solve(context.Background(), p.Model, solver.Options{TimeBudget: time.Second, Workers: workers})
		require.NoError(t, err)
		elapsed := time.Since(start)
		require.Lessf(t, elapsed, 3*time.Second, "fleet %d (%d vehicles) took %s", i, n, elapsed)
		if res.Status.HasSolution() {
			require.NoError(t, p.Model.Check(res.Values), "fleet %d", i)
		}
	}
}
