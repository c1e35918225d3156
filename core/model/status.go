package model

import (
	"fmt"
	"strings"
	"time"
)

// Status is the nightly state assigned to a vehicle.
type Status int

const (
	StatusService Status = iota
	StatusStandby
	StatusMaintenance
)

// Statuses lists every state in bucket order.
var Statuses = []Status{StatusService, StatusStandby, StatusMaintenance}

func (s Status) String() string {
	switch s {
	case StatusService:
		return "Revenue Service"
	case StatusStandby:
		return "Standby"
	case StatusMaintenance:
		return "Maintenance"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText encodes the status with its display name.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText accepts the display name or the short key of a status.
func (s *Status) UnmarshalText(b []byte) error {
	p, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = p
	return nil
}

// ParseStatus parses a display name or a short key such as "service".
func ParseStatus(v string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "revenue service", "service":
		return StatusService, nil
	case "standby":
		return StatusStandby, nil
	case "maintenance":
		return StatusMaintenance, nil
	}
	return 0, fmt.Errorf("unknown status %q", v)
}

// Assignment is the decoded nightly state of one vehicle.
type Assignment struct {
	VehicleID string `json:"vehicle_id"`
	Status    Status `json:"status"`
	Audit     string `json:"audit"`
}

// RouteProfile is a named route with its daily travel distance.
type RouteProfile struct {
	Name            string  `json:"name" yaml:"name"`
	DailyDistanceKM float64 `json:"daily_distance_km" yaml:"daily_distance_km"`
}

// RankedRecommendation is one row of the route recommendation table.
type RankedRecommendation struct {
	Rank                  int        `json:"rank"`
	VehicleID             string     `json:"vehicle_id"`
	Status                Status     `json:"status"`
	MileageVsAvgPct       float64    `json:"mileage_vs_avg_pct"`
	NextCertificateExpiry *time.Time `json:"next_certificate_expiry,omitempty"`
	PendingHours          float64    `json:"pending_hours"`
	Reasoning             string     `json:"reasoning"`
}
