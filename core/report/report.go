// Package report derives the fleet summary and the operational alerts shown
// next to a plan.
package report

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/induction/core/model"
	"github.com/kilianp07/induction/core/plan"
)

// MileageStats describes the fleet mileage distribution in km.
type MileageStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Summary is the executive view of a plan.
type Summary struct {
	Total              int          `json:"total"`
	Service            int          `json:"service"`
	Standby            int          `json:"standby"`
	Maintenance        int          `json:"maintenance"`
	Ineligible         int          `json:"ineligible"`
	OperationalPct     float64      `json:"operational_pct"`
	BayCapacity        int64        `json:"bay_capacity"`
	BayUtilisationPct  float64      `json:"bay_utilisation_pct"`
	ActiveSLAs         int          `json:"active_slas"`
	Mileage            MileageStats `json:"mileage"`
	PendingHoursInBays float64      `json:"pending_hours_in_bays"`
}

// Summarize computes the summary of pl.
func Summarize(pl *plan.Plan) Summary {
	var s Summary
	if pl == nil {
		return s
	}
	s.Total = len(pl.Assignments)
	for _, a := range pl.Assignments {
		switch a.Status {
		case model.StatusService:
			s.Service++
		case model.StatusStandby:
			s.Standby++
		case model.StatusMaintenance:
			s.Maintenance++
			s.PendingHoursInBays += pl.Pending[a.VehicleID]
		}
		if v, ok := pl.Verdicts[a.VehicleID]; ok && !v.Eligible {
			s.Ineligible++
		}
	}
	if s.Total > 0 {
		s.OperationalPct = float64(s.Service+s.Standby) / float64(s.Total) * 100
	}
	s.BayCapacity = pl.BayCapacity
	if pl.BayCapacity > 0 {
		s.BayUtilisationPct = float64(s.Maintenance) / float64(pl.BayCapacity) * 100
	}
	if pl.Dataset == nil {
		return s
	}
	for _, sla := range pl.Dataset.SLAs {
		if sla.Active() {
			s.ActiveSLAs++
		}
	}
	mileage := make([]float64, 0, len(pl.Dataset.Vehicles))
	for _, v := range pl.Dataset.Vehicles {
		mileage = append(mileage, v.CumulativeMileageKM)
	}
	if len(mileage) > 0 {
		s.Mileage.Min = floats.Min(mileage)
		s.Mileage.Max = floats.Max(mileage)
		s.Mileage.Mean = stat.Mean(mileage, nil)
	}
	if len(mileage) > 1 {
		s.Mileage.StdDev = stat.StdDev(mileage, nil)
	}
	return s
}

// ExpiredCertificate is a certificate no longer valid on the reference day.
type ExpiredCertificate struct {
	VehicleID string    `json:"vehicle_id"`
	Type      string    `json:"certificate_type"`
	Expiry    time.Time `json:"expiry_date"`
}

// CriticalWork counts the open critical job cards of a vehicle.
type CriticalWork struct {
	VehicleID string `json:"vehicle_id"`
	OpenJobs  int    `json:"open_jobs"`
}

// QueueEntry is a vehicle scheduled into a maintenance bay.
type QueueEntry struct {
	VehicleID    string  `json:"vehicle_id"`
	MileageKM    float64 `json:"mileage_km"`
	PendingHours float64 `json:"pending_hours"`
}

// Alerts lists the operational issues of a plan.
type Alerts struct {
	ExpiredCertificates []ExpiredCertificate `json:"expired_certificates"`
	CriticalWork        []CriticalWork       `json:"critical_work"`
	MaintenanceQueue    []QueueEntry         `json:"maintenance_queue"`
}

// Empty reports whether there is nothing to raise.
func (a Alerts) Empty() bool {
	return len(a.ExpiredCertificates) == 0 && len(a.CriticalWork) == 0 && len(a.MaintenanceQueue) == 0
}

// BuildAlerts collects expired certificates and open critical work in roster
// order, and the maintenance queue by ascending mileage.
func BuildAlerts(pl *plan.Plan) Alerts {
	var a Alerts
	if pl == nil || pl.Dataset == nil {
		return a
	}
	ds := pl.Dataset
	for _, v := range ds.Vehicles {
		for _, c := range ds.CertificatesOf(v.ID) {
			if c.ExpiredAt(pl.Reference) {
				a.ExpiredCertificates = append(a.ExpiredCertificates, ExpiredCertificate{VehicleID: v.ID, Type: c.Type, Expiry: c.Expiry})
			}
		}
		n := 0
		for _, j := range ds.JobCardsOf(v.ID) {
			if j.BlocksService() {
				n++
			}
		}
		if n > 0 {
			a.CriticalWork = append(a.CriticalWork, CriticalWork{VehicleID: v.ID, OpenJobs: n})
		}
	}
	for _, as := range pl.Assignments {
		if as.Status != model.StatusMaintenance {
			continue
		}
		v, _ := ds.Vehicle(as.VehicleID)
		a.MaintenanceQueue = append(a.MaintenanceQueue, QueueEntry{
			VehicleID:    as.VehicleID,
			MileageKM:    v.CumulativeMileageKM,
			PendingHours: pl.Pending[as.VehicleID],
		})
	}
	sort.SliceStable(a.MaintenanceQueue, func(i, j int) bool {
		return a.MaintenanceQueue[i].MileageKM < a.MaintenanceQueue[j].MileageKM
	})
	return a
}
