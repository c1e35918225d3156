package model

import "fmt"

// EligibilityReason explains why a vehicle may or may not enter revenue
// service. The zero value is ReasonEligible.
type EligibilityReason int

const (
	ReasonEligible EligibilityReason = iota
	ReasonMissingCertificates
	ReasonCertificateExpired
	ReasonCriticalMaintenanceOpen
)

var reasonCodes = [...]string{
	ReasonEligible:                "eligible",
	ReasonMissingCertificates:     "missing_certificates",
	ReasonCertificateExpired:      "certificate_expired",
	ReasonCriticalMaintenanceOpen: "critical_maintenance_open",
}

var reasonTexts = [...]string{
	ReasonEligible:                "Eligible for service",
	ReasonMissingCertificates:     "Missing required certificates",
	ReasonCertificateExpired:      "Certificate expired",
	ReasonCriticalMaintenanceOpen: "Critical maintenance open",
}

// String returns the machine code of the reason.
func (r EligibilityReason) String() string {
	if r < 0 || int(r) >= len(reasonCodes) {
		return fmt.Sprintf("reason(%d)", int(r))
	}
	return reasonCodes[r]
}

// Text returns the human readable form of the reason.
func (r EligibilityReason) Text() string {
	if r < 0 || int(r) >= len(reasonTexts) {
		return r.String()
	}
	return reasonTexts[r]
}

// MarshalText encodes the reason as its code.
func (r EligibilityReason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText decodes a reason code.
func (r *EligibilityReason) UnmarshalText(b []byte) error {
	p, err := ParseEligibilityReason(string(b))
	if err != nil {
		return err
	}
	*r = p
	return nil
}

// ParseEligibilityReason parses a reason code.
func ParseEligibilityReason(s string) (EligibilityReason, error) {
	for i, c := range reasonCodes {
		if c == s {
			return EligibilityReason(i), nil
		}
	}
	return 0, fmt.Errorf("unknown eligibility reason %q", s)
}

// EligibilityVerdict is the outcome of the eligibility rules for one vehicle.
type EligibilityVerdict struct {
	VehicleID string            `json:"vehicle_id"`
	Eligible  bool              `json:"is_eligible"`
	Reason    EligibilityReason `json:"reason"`
}

// Verdicts indexes eligibility verdicts by vehicle id.
type Verdicts map[string]EligibilityVerdict
