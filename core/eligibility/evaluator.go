// Package eligibility decides whether each vehicle may enter revenue service
// tonight.
package eligibility

import (
	"fmt"
	"time"

	"github.com/kilianp07/induction/core/model"
)

// DefaultMinCertificates is the number of distinct certificate types a
// vehicle must hold.
const DefaultMinCertificates = 3

// Config holds the eligibility rules.
type Config struct {
	MinCertificates int `json:"min_certificates"`
	// RequiredTypes restricts the counted certificate types. Empty counts
	// every distinct type.
	RequiredTypes []string `json:"required_certificate_types"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.MinCertificates == 0 {
		c.MinCertificates = DefaultMinCertificates
	}
}

// Validate checks the rule configuration.
func (c Config) Validate() error {
	if c.MinCertificates < 0 {
		return fmt.Errorf("min_certificates must not be negative")
	}
	if n := len(c.RequiredTypes); n > 0 && c.MinCertificates > n {
		return fmt.Errorf("min_certificates (%d) exceeds the %d required certificate types", c.MinCertificates, n)
	}
	return nil
}

// Evaluator applies the eligibility rules. It holds no state besides its
// configuration and is safe for concurrent use.
type Evaluator struct {
	min      int
	required map[string]struct{}
}

// NewEvaluator returns an Evaluator for cfg.
func NewEvaluator(cfg Config) *Evaluator {
	cfg.SetDefaults()
	e := &Evaluator{min: cfg.MinCertificates}
	if len(cfg.RequiredTypes) > 0 {
		e.required = make(map[string]struct{}, len(cfg.RequiredTypes))
		for _, t := range cfg.RequiredTypes {
			e.required[t] = struct{}{}
		}
	}
	return e
}

// Evaluate returns the verdict for one vehicle. Rules are checked in
// priority order and the first failing rule gives the reason:
// missing certificates, then expired certificates, then open critical work.
func (e *Evaluator) Evaluate(v model.Vehicle, certs []model.Certificate, jobs []model.JobCard, ref time.Time) model.EligibilityVerdict {
	verdict := model.EligibilityVerdict{VehicleID: v.ID}
	switch {
	case e.held(certs) < e.min:
		verdict.Reason = model.ReasonMissingCertificates
	case anyExpired(certs, ref):
		verdict.Reason = model.ReasonCertificateExpired
	case anyCritical(jobs):
		verdict.Reason = model.ReasonCriticalMaintenanceOpen
	default:
		verdict.Eligible = true
		verdict.Reason = model.ReasonEligible
	}
	return verdict
}

// EvaluateFleet evaluates every vehicle of the snapshot.
func (e *Evaluator) EvaluateFleet(ds *model.Dataset, ref time.Time) model.Verdicts {
	out := make(model.Verdicts, len(ds.Vehicles))
	for _, v := range ds.Vehicles {
		out[v.ID] = e.Evaluate(v, ds.CertificatesOf(v.ID), ds.JobCardsOf(v.ID), ref)
	}
	return out
}

func (e *Evaluator) held(certs []model.Certificate) int {
	seen := make(map[string]struct{}, len(certs))
	for _, c := range certs {
		if e.required != nil {
			if _, ok := e.required[c.Type]; !ok {
				continue
			}
		}
		seen[c.Type] = struct{}{}
	}
	return len(seen)
}

func anyExpired(certs []model.Certificate, ref time.Time) bool {
	for _, c := range certs {
		if c.ExpiredAt(ref) {
			return true
		}
	}
	return false
}

func anyCritical(jobs []model.JobCard) bool {
	for _, j := range jobs {
		if j.BlocksService() {
			return true
		}
	}
	return false
}

// Counts tallies verdicts per reason.
func Counts(v model.Verdicts) map[model.EligibilityReason]int {
	out := make(map[model.EligibilityReason]int)
	for _, vd := range v {
		out[vd.Reason]++
	}
	return out
}
