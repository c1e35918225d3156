// Package plan turns raw engine answers into per-vehicle assignments with
// audit text.
package plan

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kilianp07/induction/core/model"
	"github.com/kilianp07/induction/core/planner"
	"github.com/kilianp07/induction/core/solver"
)

// SolveSummary describes the engine run behind a plan.
type SolveSummary struct {
	Engine    string        `json:"engine"`
	Status    string        `json:"status"`
	Objective int64         `json:"objective"`
	Bound     float64       `json:"bound"`
	Nodes     int64         `json:"nodes"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Plan is the decoded nightly plan. Assignments follow the roster order.
type Plan struct {
	RunID       string             `json:"run_id,omitempty"`
	Reference   time.Time          `json:"reference_date"`
	Assignments []model.Assignment `json:"assignments"`
	Verdicts    model.Verdicts     `json:"verdicts"`
	Pending     map[string]float64 `json:"pending_hours"`
	AvgMileage  float64            `json:"average_mileage_km"`
	BayCapacity int64              `json:"bay_capacity"`
	Breakdown   planner.Breakdown  `json:"objective_breakdown"`
	Solve       SolveSummary       `json:"solve"`
	Dataset     *model.Dataset     `json:"-"`
	index       map[string]int
}

// StatusOf returns the status assigned to a vehicle.
func (p *Plan) StatusOf(id string) (model.Status, bool) {
	if i, ok := p.index[id]; ok {
		return p.Assignments[i].Status, true
	}
	for _, a := range p.Assignments {
		if a.VehicleID == id {
			return a.Status, true
		}
	}
	return 0, false
}

// Counts tallies assignments per status.
func (p *Plan) Counts() map[model.Status]int {
	out := make(map[model.Status]int, len(model.Statuses))
	for _, a := range p.Assignments {
		out[a.Status]++
	}
	return out
}

// Interpret decodes res against the program that produced it. Only OPTIMAL
// and FEASIBLE results yield a plan; INFEASIBLE and TIMEOUT are returned as
// typed errors and no assignment is produced.
func Interpret(prog *planner.Program, res solver.Result) (*Plan, error) {
	if prog == nil {
		return nil, model.NewError(model.KindPrecondition, "interpret", fmt.Errorf("no program"))
	}
	switch res.Status {
	case solver.StatusOptimal, solver.StatusFeasible:
	case solver.StatusInfeasible:
		return nil, model.Infeasible("interpret")
	case solver.StatusTimeout:
		return nil, model.Timeout("interpret")
	default:
		return nil, model.NewError(model.KindEngine, "interpret", fmt.Errorf("unexpected engine status %s", res.Status))
	}
	if len(res.Values) != prog.Model.NumVars() {
		return nil, model.NewError(model.KindEngine, "interpret",
			fmt.Errorf("engine returned %d values for %d variables", len(res.Values), prog.Model.NumVars()))
	}

	ds := prog.Dataset
	out := &Plan{
		Reference:   prog.Reference,
		Assignments: make([]model.Assignment, len(ds.Vehicles)),
		Verdicts:    prog.Verdicts,
		Pending:     prog.Pending,
		AvgMileage:  prog.AvgMileage,
		BayCapacity: prog.BayCapacity,
		Dataset:     ds,
		index:       make(map[string]int, len(ds.Vehicles)),
		Solve: SolveSummary{
			Engine:    res.Engine,
			Status:    res.Status.String(),
			Objective: res.Objective,
			Bound:     res.Bound,
			Nodes:     res.Nodes,
			Elapsed:   res.Elapsed,
		},
	}
	statuses := make([]model.Status, len(ds.Vehicles))
	for i, v := range ds.Vehicles {
		s, err := decode(prog.Vars[i], res.Values)
		if err != nil {
			return nil, model.NewError(model.KindEngine, "interpret", fmt.Errorf("vehicle %s: %w", v.ID, err))
		}
		statuses[i] = s
		out.index[v.ID] = i
		out.Assignments[i] = model.Assignment{
			VehicleID: v.ID,
			Status:    s,
			Audit:     Audit(v, prog.Verdicts[v.ID], ds.SLAsOf(v.ID), prog.Pending[v.ID], prog.AvgMileage),
		}
	}
	out.Breakdown = prog.Breakdown(statuses)
	return out, nil
}

func decode(vars planner.VehicleVars, values []bool) (model.Status, error) {
	var found []model.Status
	for _, s := range model.Statuses {
		if values[vars.Of(s)] {
			found = append(found, s)
		}
	}
	if len(found) != 1 {
		return 0, fmt.Errorf("%d states set, want exactly one", len(found))
	}
	return found[0], nil
}

var printer = message.NewPrinter(language.English)

// Audit builds the explanation attached to an assignment.
func Audit(v model.Vehicle, verdict model.EligibilityVerdict, slas []model.SLA, pending, avg float64) string {
	parts := make([]string, 0, 4)
	if verdict.Eligible {
		parts = append(parts, "Eligible for service")
	} else {
		parts = append(parts, fmt.Sprintf("INELIGIBLE (%s)", verdict.Reason.Text()))
	}
	parts = append(parts, printer.Sprintf("Mileage: %dkm (%+.1f%%)", int64(math.Round(v.CumulativeMileageKM)), MileageVsAvgPct(v.CumulativeMileageKM, avg)))
	for _, s := range slas {
		if s.Active() {
			parts = append(parts, fmt.Sprintf("Branding SLA: ACTIVE (%s/%s hrs)", num(s.CurrentExposureHours), num(s.TargetExposureHours)))
		}
	}
	if pending > 0 {
		parts = append(parts, fmt.Sprintf("Pending Work: %sh", num(pending)))
	}
	return strings.Join(parts, " | ")
}

// MileageVsAvgPct is the relative deviation from the fleet mean in percent.
func MileageVsAvgPct(mileage, avg float64) float64 {
	if avg == 0 {
		return 0
	}
	return (mileage - avg) / avg * 100
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
