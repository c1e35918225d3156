package planner

import (
	"fmt"
	"time"

	"github.com/kilianp07/induction/core/model"
	"github.com/kilianp07/induction/core/solver"
)

// Default values of the model configuration.
const (
	DefaultMileageWeight   int64 = 1
	DefaultShuntingWeight  int64 = 10
	DefaultBrandingWeight  int64 = 10000
	DefaultUrgencyWeight   int64 = 1000000
	DefaultTimeBudget            = 60
	DefaultWorkers               = 8
	DefaultBayResource           = "IBL_Bays"
	DefaultCleaningResource      = "Cleaning_Staff_ManHours"
	DefaultBayMarker             = "IBL_Bay"
	DefaultStablingMarker        = "Stabling_Track"
)

// Config is the configuration surface of the constraint model.
type Config struct {
	MileageWeight  int64 `json:"mileage_weight"`
	BrandingWeight int64 `json:"branding_weight"`
	ShuntingWeight int64 `json:"shunting_weight"`
	UrgencyWeight  int64 `json:"urgency_weight"`

	TimeBudgetSeconds int `json:"solver_time_budget_seconds"`
	Workers           int `json:"workers"`
	// ReferenceDate is the YYYY-MM-DD day certificates are checked
	// against. Empty means the day of the run.
	ReferenceDate string `json:"reference_date"`

	// MandatoryCriticalRepair forces vehicles with open critical work into
	// maintenance instead of penalising standby.
	MandatoryCriticalRepair bool `json:"mandatory_critical_repair"`

	BayResource      string `json:"bay_resource"`
	CleaningResource string `json:"cleaning_resource"`
	BayMarker        string `json:"bay_location_marker"`
	StablingMarker   string `json:"stabling_location_marker"`
}

// DefaultConfig returns the production weighting.
func DefaultConfig() Config {
	c := Config{
		MileageWeight:  DefaultMileageWeight,
		BrandingWeight: DefaultBrandingWeight,
		ShuntingWeight: DefaultShuntingWeight,
		UrgencyWeight:  DefaultUrgencyWeight,
	}
	c.SetDefaults()
	return c
}

// SetDefaults fills the fields whose zero value is meaningless. Weights are
// left alone since zero disables a term.
func (c *Config) SetDefaults() {
	if c.TimeBudgetSeconds == 0 {
		c.TimeBudgetSeconds = DefaultTimeBudget
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.BayResource == "" {
		c.BayResource = DefaultBayResource
	}
	if c.CleaningResource == "" {
		c.CleaningResource = DefaultCleaningResource
	}
	if c.BayMarker == "" {
		c.BayMarker = DefaultBayMarker
	}
	if c.StablingMarker == "" {
		c.StablingMarker = DefaultStablingMarker
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	weights := []struct {
		name string
		w    int64
	}{
		{"mileage_weight", c.MileageWeight},
		{"branding_weight", c.BrandingWeight},
		{"shunting_weight", c.ShuntingWeight},
		{"urgency_weight", c.UrgencyWeight},
	}
	for _, w := range weights {
		if w.w < 0 {
			return model.Validationf("config", "%s must not be negative", w.name)
		}
	}
	if c.TimeBudgetSeconds < 0 {
		return model.Validationf("config", "solver_time_budget_seconds must not be negative")
	}
	if c.Workers < 0 {
		return model.Validationf("config", "workers must not be negative")
	}
	if c.ReferenceDate != "" {
		if _, err := model.ParseDate(c.ReferenceDate); err != nil {
			return model.Validationf("config", "reference_date: %v", err)
		}
	}
	return nil
}

// PriorityWarnings lists the ways the weights break the intended order:
// urgency over branding over mileage over shunting.
func (c Config) PriorityWarnings() []string {
	var out []string
	if c.BrandingWeight < 1000*c.MileageWeight {
		out = append(out, fmt.Sprintf("branding_weight %d is below 1000x mileage_weight %d", c.BrandingWeight, c.MileageWeight))
	}
	if c.UrgencyWeight < 100*c.BrandingWeight {
		out = append(out, fmt.Sprintf("urgency_weight %d is below 100x branding_weight %d", c.UrgencyWeight, c.BrandingWeight))
	}
	return out
}

// Reference resolves the reference day of a run started at now.
func (c Config) Reference(now time.Time) (time.Time, error) {
	if c.ReferenceDate == "" {
		return model.Day(now), nil
	}
	d, err := model.ParseDate(c.ReferenceDate)
	if err != nil {
		return time.Time{}, model.Validationf("config", "reference_date: %v", err)
	}
	return d, nil
}

// SolveOptions returns the engine limits for this configuration.
func (c Config) SolveOptions() solver.Options {
	return solver.Options{
		TimeBudget: time.Duration(c.TimeBudgetSeconds) * time.Second,
		Workers:    c.Workers,
	}
}
