// Package planner encodes one night of the fleet as a 0-1 model: three
// state variables per vehicle, the eligibility and depot capacity
// constraints and the weighted objective.
package planner

import (
	"math"
	"strings"
	"time"

	"github.com/kilianp07/induction/core/logger"
	"github.com/kilianp07/induction/core/model"
	"github.com/kilianp07/induction/core/solver"
)

// VehicleVars are the state variables of one vehicle.
type VehicleVars struct {
	Service     solver.Var
	Standby     solver.Var
	Maintenance solver.Var
}

// Of returns the variable of the given status.
func (v VehicleVars) Of(s model.Status) solver.Var {
	switch s {
	case model.StatusService:
		return v.Service
	case model.StatusStandby:
		return v.Standby
	default:
		return v.Maintenance
	}
}

// VehicleCosts are the unweighted objective inputs of one vehicle.
type VehicleCosts struct {
	MileageDeviation int64 // |rounded mileage - fleet mean|, paid in service
	BrandingPenalty  int64 // paid when not in service
	Urgent           bool  // open critical work, penalised on standby
}

// Program is a built model together with everything needed to read its
// solution back. It is produced fresh for each run.
type Program struct {
	Model     *solver.Model
	Config    Config
	Dataset   *model.Dataset
	Reference time.Time
	Verdicts  model.Verdicts
	Pending   map[string]float64
	// Vars and Costs are aligned with Dataset.Vehicles.
	Vars  []VehicleVars
	Costs []VehicleCosts

	AvgMileage    float64
	BayCapacity   int64
	CleaningHours int64
	ShuntToBay    int64
	ShuntToStable int64
}

// Builder is the ConstraintModelBuilder.
type Builder struct {
	cfg Config
	log logger.Logger
}

// NewBuilder returns a Builder for cfg. Weight orderings that break the
// intended priority are reported as warnings.
func NewBuilder(cfg Config, log logger.Logger) (*Builder, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &Builder{cfg: cfg, log: logger.OrNop(log)}
	for _, w := range cfg.PriorityWarnings() {
		b.log.Warnf("planner: %s", w)
	}
	return b, nil
}

// Config returns the effective configuration.
func (b *Builder) Config() Config { return b.cfg }

// Build encodes the snapshot. Verdicts must cover every vehicle.
func (b *Builder) Build(ds *model.Dataset, verdicts model.Verdicts, ref time.Time) (*Program, error) {
	if err := ds.Validate(b.cfg.BayResource, b.cfg.CleaningResource); err != nil {
		return nil, err
	}
	for _, v := range ds.Vehicles {
		if _, ok := verdicts[v.ID]; !ok {
			return nil, model.NewError(model.KindPrecondition, "build", errMissingVerdict(v.ID))
		}
	}

	bays, _ := ds.Capacity(b.cfg.BayResource)
	hours, _ := ds.Capacity(b.cfg.CleaningResource)
	p := &Program{
		Model:         solver.NewModel(),
		Config:        b.cfg,
		Dataset:       ds,
		Reference:     ref,
		Verdicts:      verdicts,
		Pending:       ds.PendingHours(),
		Vars:          make([]VehicleVars, len(ds.Vehicles)),
		Costs:         make([]VehicleCosts, len(ds.Vehicles)),
		AvgMileage:    ds.AverageMileage(),
		BayCapacity:   int64(math.Floor(bays)),
		CleaningHours: int64(math.Floor(hours)),
		ShuntToBay:    averageCost(ds.Shunting, b.cfg.BayMarker),
		ShuntToStable: averageCost(ds.Shunting, b.cfg.StablingMarker),
	}

	m := p.Model
	var bayTerms, hourTerms []solver.Term
	for i, v := range ds.Vehicles {
		vars := VehicleVars{
			Service:     m.NewBool(v.ID + "/service"),
			Standby:     m.NewBool(v.ID + "/standby"),
			Maintenance: m.NewBool(v.ID + "/maintenance"),
		}
		p.Vars[i] = vars
		if err := m.ExactlyOne(vars.Service, vars.Standby, vars.Maintenance); err != nil {
			return nil, model.NewError(model.KindEngine, "build", err)
		}

		verdict := verdicts[v.ID]
		if !verdict.Eligible {
			if err := m.Fix(v.ID+"/ineligible", vars.Service, false); err != nil {
				return nil, model.NewError(model.KindEngine, "build", err)
			}
		}
		urgent := verdict.Reason == model.ReasonCriticalMaintenanceOpen
		if urgent && b.cfg.MandatoryCriticalRepair {
			if err := m.Fix(v.ID+"/critical-repair", vars.Maintenance, true); err != nil {
				return nil, model.NewError(model.KindEngine, "build", err)
			}
		}

		dev := int64(math.Round(v.CumulativeMileageKM - p.AvgMileage))
		if dev < 0 {
			dev = -dev
		}
		m.AddObjective(vars.Service, b.cfg.MileageWeight*dev)

		var penalty int64
		for _, sla := range ds.SLAsOf(v.ID) {
			penalty += int64(math.Round(sla.PenaltyPerHour))
		}
		// penalty·(1 - service)
		m.AddConstant(b.cfg.BrandingWeight * penalty)
		m.AddObjective(vars.Service, -b.cfg.BrandingWeight*penalty)

		m.AddObjective(vars.Maintenance, b.cfg.ShuntingWeight*p.ShuntToBay)
		m.AddObjective(vars.Service, b.cfg.ShuntingWeight*p.ShuntToStable)
		m.AddObjective(vars.Standby, b.cfg.ShuntingWeight*p.ShuntToStable)

		if urgent {
			m.AddObjective(vars.Standby, b.cfg.UrgencyWeight)
		}
		p.Costs[i] = VehicleCosts{MileageDeviation: dev, BrandingPenalty: penalty, Urgent: urgent}

		bayTerms = append(bayTerms, solver.Term{Var: vars.Maintenance, Coef: 1})
		if h := int64(math.Ceil(p.Pending[v.ID])); h > 0 {
			hourTerms = append(hourTerms, solver.Term{Var: vars.Maintenance, Coef: h})
		}
	}
	if err := m.AddConstraint("maintenance_bays", solver.LessOrEqual, p.BayCapacity, bayTerms...); err != nil {
		return nil, model.NewError(model.KindEngine, "build", err)
	}
	if err := m.AddConstraint("cleaning_man_hours", solver.LessOrEqual, p.CleaningHours, hourTerms...); err != nil {
		return nil, model.NewError(model.KindEngine, "build", err)
	}

	b.log.Debugw("model built", map[string]any{
		"vehicles":        len(ds.Vehicles),
		"variables":       m.NumVars(),
		"constraints":     len(m.Constraints()),
		"bay_capacity":    p.BayCapacity,
		"cleaning_hours":  p.CleaningHours,
		"shunt_to_bay":    p.ShuntToBay,
		"shunt_to_stable": p.ShuntToStable,
	})
	return p, nil
}

// averageCost is the rounded mean cost of the moves whose destination
// contains marker, or zero when there is none.
func averageCost(entries []model.ShuntingCostEntry, marker string) int64 {
	var sum float64
	var n int
	for _, e := range entries {
		if strings.Contains(e.To, marker) {
			sum += e.Cost
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return int64(math.Round(sum / float64(n)))
}

type errMissingVerdict string

func (e errMissingVerdict) Error() string { return "no eligibility verdict for vehicle " + string(e) }
