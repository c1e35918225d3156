package ranking

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/induction/core/eligibility"
	"github.com/kilianp07/induction/core/model"
	"github.com/kilianp07/induction/core/plan"
	"github.com/kilianp07/induction/core/planner"
	"github.com/kilianp07/induction/core/solver"
)

var ref = time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)

const (
	longRoute  = "Line E (Long Express: 100km)"
	shortRoute = "Line A (Short: 20km)"
)

// T1..T6 with mileage 100k, 130k, 70k, 110k, 90k, 120k; T6 has open
// critical work. Average mileage is 103,333 km.
func program(t *testing.T) *planner.Program {
	t.Helper()
	mileage := []float64{100000, 130000, 70000, 110000, 90000, 120000}
	var vehicles []model.Vehicle
	var certs []model.Certificate
	for i, m := range mileage {
		id := "T" + string(rune('1'+i))
		vehicles = append(vehicles, model.Vehicle{ID: id, CumulativeMileageKM: m})
		certs = append(certs,
			model.Certificate{VehicleID: id, Type: "RS", Expiry: ref.AddDate(0, 0, 5+i)},
			model.Certificate{VehicleID: id, Type: "SIG", Expiry: ref.AddDate(0, 2, 0)},
			model.Certificate{VehicleID: id, Type: "TEL", Expiry: ref.AddDate(0, 3, 0)},
		)
	}
	certs = append(certs, model.Certificate{VehicleID: "T1", Type: "CAB", Expiry: ref.AddDate(0, 0, 1)})
	jobs := []model.JobCard{
		{VehicleID: "T6", Status: model.JobOpen, Critical: true, RequiredManHours: 8},
		{VehicleID: "T4", Status: model.JobOpen, RequiredManHours: 3.5},
	}
	ds := model.NewDataset(vehicles, certs, jobs, nil,
		[]model.ResourceCapacity{{ResourceID: "IBL_Bays", AvailableCapacity: 2}, {ResourceID: "Cleaning_Staff_ManHours", AvailableCapacity: 20}},
		nil)
	b, err := planner.NewBuilder(planner.DefaultConfig(), nil)
	require.NoError(t, err)
	p, err := b.Build(ds, eligibility.NewEvaluator(eligibility.Config{}).EvaluateFleet(ds, ref), ref)
	require.NoError(t, err)
	return p
}

func planFor(t *testing.T, p *planner.Program, statuses ...model.Status) *plan.Plan {
	t.Helper()
	values := make([]bool, p.Model.NumVars())
	for i, s := range statuses {
		values[p.Vars[i].Of(s)] = true
	}
	pl, err := plan.Interpret(p, solver.Result{Status: solver.StatusOptimal, Values: values})
	require.NoError(t, err)
	return pl
}

func ids(recs []model.RankedRecommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.VehicleID
	}
	return out
}

func fixedPlan(t *testing.T) *plan.Plan {
	S, B, M := model.StatusService, model.StatusStandby, model.StatusMaintenance
	return planFor(t, program(t), S, S, S, M, B, M)
}

func TestRank_LongRoutePrefersLowMileage(t *testing.T) {
	recs, err := Rank(fixedPlan(t), longRoute, DefaultRoutes())
	require.NoError(t, err)
	assert.Equal(t, []string{"T3", "T1", "T2", "T5", "T4", "T6"}, ids(recs))
	for i, r := range recs {
		assert.Equal(t, i+1, r.Rank)
	}
}

func TestRank_LargeFleet(t *testing.T) {
	const n = 20000
	vehicles := make([]model.Vehicle, n)
	assignments := make([]model.Assignment, n)
	for i := range vehicles {
		id := fmt.Sprintf("TS-%05d", i)
		// Mileage descends with roster order so the sort has work to do.
		vehicles[i] = model.Vehicle{ID: id, CumulativeMileageKM: float64(n - i)}
		s := model.StatusService
		if i%3 == 0 {
			s = model.StatusStandby
		}
		assignments[i] = model.Assignment{VehicleID: id, Status: s}
	}
	pl := &plan.Plan{
		Reference:   ref,
		Assignments: assignments,
		Dataset:     model.NewDataset(vehicles, nil, nil, nil, nil, nil),
		AvgMileage:  n / 2,
	}

	start := time.Now()
	recs, err := Rank(pl, longRoute, DefaultRoutes())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	require.Len(t, recs, n)

	byID := make(map[string]float64, n)
	for _, v := range vehicles {
		byID[v.ID] = v.CumulativeMileageKM
	}
	for i := 1; i < n; i++ {
		prev, cur := recs[i-1], recs[i]
		if prev.Status != cur.Status {
			assert.Equal(t, model.StatusService, prev.Status)
			assert.Equal(t, model.StatusStandby, cur.Status)
			continue
		}
		assert.LessOrEqual(t, byID[prev.VehicleID], byID[cur.VehicleID], "rank %d", cur.Rank)
	}
}

func TestRank_ShortRouteReversesServiceOrder(t *testing.T) {
	pl := fixedPlan(t)
	long, err := Rank(pl, longRoute, DefaultRoutes())
	require.NoError(t, err)
	short, err := Rank(pl, shortRoute, DefaultRoutes())
	require.NoError(t, err)
	assert.Equal(t, []string{"T2", "T1", "T3", "T5", "T4", "T6"}, ids(short))

	n := pl.Counts()[model.StatusService]
	for i := 0; i < n; i++ {
		assert.Equal(t, long[i].VehicleID, short[n-1-i].VehicleID)
	}
	assert.Equal(t, ids(long)[n:], ids(short)[n:], "standby and maintenance do not depend on the route")
}

func TestRank_Reasoning(t *testing.T) {
	recs, err := Rank(fixedPlan(t), longRoute, DefaultRoutes())
	require.NoError(t, err)
	byID := make(map[string]model.RankedRecommendation)
	for _, r := range recs {
		byID[r.VehicleID] = r
	}
	assert.Equal(t, ReasonGoodLow, byID["T3"].Reasoning)
	assert.Equal(t, ReasonGoodHigh, byID["T2"].Reasoning)
	assert.Equal(t, ReasonSpare, byID["T5"].Reasoning)
	assert.Equal(t, "Scheduled work (3.5 hrs)", byID["T4"].Reasoning)
	assert.Equal(t, "Critical maintenance open", byID["T6"].Reasoning)
	assert.Equal(t, 3.5, byID["T4"].PendingHours)
	assert.Equal(t, model.StatusMaintenance, byID["T6"].Status)

	require.NotNil(t, byID["T1"].NextCertificateExpiry)
	assert.Equal(t, ref.AddDate(0, 0, 1), *byID["T1"].NextCertificateExpiry)
	require.NotNil(t, byID["T3"].NextCertificateExpiry)
	assert.Equal(t, ref.AddDate(0, 0, 7), *byID["T3"].NextCertificateExpiry)
	assert.InDelta(t, -32.258, byID["T3"].MileageVsAvgPct, 1e-3)
}

func TestRank_StandbyHeldForBalancing(t *testing.T) {
	S, B, M := model.StatusService, model.StatusStandby, model.StatusMaintenance
	pl := planFor(t, program(t), S, B, S, B, B, M)
	recs, err := Rank(pl, shortRoute, DefaultRoutes())
	require.NoError(t, err)
	assert.Equal(t, []string{"T1", "T3", "T5", "T4", "T2", "T6"}, ids(recs))
	assert.Equal(t, ReasonBalancing, recs[4].Reasoning)
	assert.Equal(t, ReasonBalancing, recs[3].Reasoning)
	assert.Equal(t, ReasonSpare, recs[2].Reasoning)
}

func TestRank_Errors(t *testing.T) {
	_, err := Rank(nil, longRoute, DefaultRoutes())
	assert.Equal(t, model.KindPrecondition, model.KindOf(err))

	pl := fixedPlan(t)
	_, err = Rank(pl, longRoute, nil)
	assert.Equal(t, model.KindValidation, model.KindOf(err))
	_, err = Rank(pl, "Line Z", DefaultRoutes())
	assert.Equal(t, model.KindValidation, model.KindOf(err))
	dup := append(DefaultRoutes(), model.RouteProfile{Name: shortRoute, DailyDistanceKM: 1})
	_, err = Rank(pl, shortRoute, dup)
	assert.Equal(t, model.KindValidation, model.KindOf(err))
}

func TestLookup_LongThreshold(t *testing.T) {
	routes := DefaultRoutes()
	assert.InDelta(t, 670, MeanDistance(routes), 1e-9)
	_, long, err := Lookup("Line C (Long: 60km)", routes)
	require.NoError(t, err)
	assert.False(t, long)
	_, long, err = Lookup("Line D (Express: 80km)", routes)
	require.NoError(t, err)
	assert.True(t, long)
	_, long, err = Lookup("only", []model.RouteProfile{{Name: "only", DailyDistanceKM: 10}})
	require.NoError(t, err)
	assert.True(t, long, "a route equal to the mean is long")
}

func TestNextExpiry_AllExpired(t *testing.T) {
	certs := []model.Certificate{{Type: "RS", Expiry: ref}, {Type: "SIG", Expiry: ref.AddDate(0, 0, -3)}}
	assert.Nil(t, NextExpiry(certs, ref))
}

func TestRank_RoundTripKeepsSolvedStatuses(t *testing.T) {
	p := program(t)
	res, err := solver.NewBranchAndBound(solver.BranchAndBoundConfig{}, nil).
		Solve(context.Background(), p.Model, solver.Options{TimeBudget: 5 * time.Second, Workers: 2})
	require.NoError(t, err)
	require.Equal(t, solver.StatusOptimal, res.Status)
	pl, err := plan.Interpret(p, res)
	require.NoError(t, err)

	for _, route := range DefaultRoutes() {
		recs, err := Rank(pl, route.Name, DefaultRoutes())
		require.NoError(t, err)
		require.Len(t, recs, len(pl.Assignments))
		for _, r := range recs {
			s, ok := pl.StatusOf(r.VehicleID)
			require.True(t, ok)
			assert.Equal(t, s, r.Status, "vehicle %s on %s", r.VehicleID, route.Name)
		}
	}
	s, _ := pl.StatusOf("T6")
	assert.Equal(t, model.StatusMaintenance, s, "critical work goes to a bay")
}
