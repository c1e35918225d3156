package model

import (
	"fmt"
)

// Dataset is the immutable input snapshot of one scheduling run.
type Dataset struct {
	Vehicles     []Vehicle           `json:"trainsets" yaml:"trainsets"`
	Certificates []Certificate       `json:"certificates" yaml:"certificates"`
	JobCards     []JobCard           `json:"job_cards" yaml:"job_cards"`
	SLAs         []SLA               `json:"slas" yaml:"slas"`
	Resources    []ResourceCapacity  `json:"resources" yaml:"resources"`
	Shunting     []ShuntingCostEntry `json:"layout_costs" yaml:"layout_costs"`

	certs map[string][]Certificate
	jobs  map[string][]JobCard
	slas  map[string][]SLA
}

// NewDataset builds a snapshot and its per-vehicle indexes. The slices are
// owned by the snapshot afterwards and must not be modified by the caller.
func NewDataset(vehicles []Vehicle, certs []Certificate, jobs []JobCard, slas []SLA, res []ResourceCapacity, shunting []ShuntingCostEntry) *Dataset {
	ds := &Dataset{
		Vehicles:     vehicles,
		Certificates: certs,
		JobCards:     jobs,
		SLAs:         slas,
		Resources:    res,
		Shunting:     shunting,
	}
	ds.Index()
	return ds
}

// Index (re)builds the per-vehicle lookups. Providers that decode straight
// into a Dataset call it once after decoding.
func (d *Dataset) Index() {
	d.certs = make(map[string][]Certificate, len(d.Vehicles))
	for _, c := range d.Certificates {
		d.certs[c.VehicleID] = append(d.certs[c.VehicleID], c)
	}
	d.jobs = make(map[string][]JobCard, len(d.Vehicles))
	for _, j := range d.JobCards {
		d.jobs[j.VehicleID] = append(d.jobs[j.VehicleID], j)
	}
	d.slas = make(map[string][]SLA)
	for _, s := range d.SLAs {
		d.slas[s.VehicleID] = append(d.slas[s.VehicleID], s)
	}
}

// CertificatesOf returns the certificates held by the vehicle.
func (d *Dataset) CertificatesOf(id string) []Certificate { return d.certs[id] }

// JobCardsOf returns the job cards raised against the vehicle.
func (d *Dataset) JobCardsOf(id string) []JobCard { return d.jobs[id] }

// SLAsOf returns the branding contracts attached to the vehicle.
func (d *Dataset) SLAsOf(id string) []SLA { return d.slas[id] }

// Capacity returns the available capacity of a depot resource.
func (d *Dataset) Capacity(resourceID string) (float64, bool) {
	for _, r := range d.Resources {
		if r.ResourceID == resourceID {
			return r.AvailableCapacity, true
		}
	}
	return 0, false
}

// Vehicle looks up a roster entry by id.
func (d *Dataset) Vehicle(id string) (Vehicle, bool) {
	for _, v := range d.Vehicles {
		if v.ID == id {
			return v, true
		}
	}
	return Vehicle{}, false
}

// PendingHours sums the man-hours of open job cards per vehicle. Vehicles
// without open work are omitted.
func (d *Dataset) PendingHours() map[string]float64 {
	out := make(map[string]float64)
	for _, j := range d.JobCards {
		if j.IsOpen() {
			out[j.VehicleID] += j.RequiredManHours
		}
	}
	return out
}

// AverageMileage returns the fleet mean of cumulative mileage.
func (d *Dataset) AverageMileage() float64 {
	if len(d.Vehicles) == 0 {
		return 0
	}
	var sum float64
	for _, v := range d.Vehicles {
		sum += v.CumulativeMileageKM
	}
	return sum / float64(len(d.Vehicles))
}

// Validate checks the snapshot for structural problems. The required
// resource ids must be present in the resource table.
func (d *Dataset) Validate(requiredResources ...string) error {
	if d == nil {
		return Validationf("dataset", "no dataset loaded")
	}
	if len(d.Vehicles) == 0 {
		return Validationf("dataset", "vehicle roster is empty")
	}
	seen := make(map[string]struct{}, len(d.Vehicles))
	for _, v := range d.Vehicles {
		if err := v.Validate(); err != nil {
			return Validationf("dataset", "%v", err)
		}
		if _, dup := seen[v.ID]; dup {
			return Validationf("dataset", "duplicate vehicle id %s", v.ID)
		}
		seen[v.ID] = struct{}{}
	}
	for i, c := range d.Certificates {
		if c.Expiry.IsZero() {
			return Validationf("dataset", "certificate row %d (%s): missing expiry date", i+1, c.VehicleID)
		}
	}
	for i, j := range d.JobCards {
		if j.Status != JobOpen && j.Status != JobClosed {
			return Validationf("dataset", "job card row %d (%s): unknown status %q", i+1, j.VehicleID, j.Status)
		}
		if j.RequiredManHours < 0 {
			return Validationf("dataset", "job card row %d (%s): negative man-hours", i+1, j.VehicleID)
		}
	}
	for _, s := range d.SLAs {
		if s.PenaltyPerHour < 0 {
			return Validationf("dataset", "sla %s: negative penalty", s.VehicleID)
		}
	}
	for _, id := range requiredResources {
		c, ok := d.Capacity(id)
		if !ok {
			return Validationf("dataset", "missing resource row %s", id)
		}
		if c < 0 {
			return Validationf("dataset", "resource %s: negative capacity", id)
		}
	}
	return nil
}

// String summarises the snapshot size for logs.
func (d *Dataset) String() string {
	return fmt.Sprintf("vehicles=%d certificates=%d job_cards=%d slas=%d resources=%d layout_costs=%d",
		len(d.Vehicles), len(d.Certificates), len(d.JobCards), len(d.SLAs), len(d.Resources), len(d.Shunting))
}
