package model

import (
	"fmt"
	"strings"
	"time"
)

// Vehicle represents a trainset of the depot roster.
type Vehicle struct {
	ID                  string  `json:"trainset_id" yaml:"trainset_id"`
	CumulativeMileageKM float64 `json:"cumulative_mileage_km" yaml:"cumulative_mileage_km"`
}

// Validate checks that the roster entry is usable.
func (v Vehicle) Validate() error {
	if strings.TrimSpace(v.ID) == "" {
		return fmt.Errorf("vehicle id is required")
	}
	if v.CumulativeMileageKM < 0 {
		return fmt.Errorf("vehicle %s: mileage must not be negative", v.ID)
	}
	return nil
}

// Certificate is a fitness certificate held by a vehicle.
type Certificate struct {
	VehicleID string    `json:"trainset_id" yaml:"trainset_id"`
	Type      string    `json:"certificate_type" yaml:"certificate_type"`
	Expiry    time.Time `json:"expiry_date" yaml:"expiry_date"`
}

// ExpiredAt reports whether the certificate is no longer valid on the given
// day. A certificate expiring on the reference day counts as expired.
func (c Certificate) ExpiredAt(ref time.Time) bool {
	return !Day(c.Expiry).After(Day(ref))
}

// JobStatus is the state of a maintenance job card.
type JobStatus string

const (
	JobOpen   JobStatus = "OPEN"
	JobClosed JobStatus = "CLOSED"
)

// ParseJobStatus normalises the textual status of a job card.
func ParseJobStatus(s string) (JobStatus, error) {
	switch JobStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case JobOpen:
		return JobOpen, nil
	case JobClosed:
		return JobClosed, nil
	default:
		return "", fmt.Errorf("unknown job card status %q", s)
	}
}

// JobCard is a work order raised against a vehicle.
type JobCard struct {
	ID               string    `json:"job_card_id" yaml:"job_card_id"`
	VehicleID        string    `json:"trainset_id" yaml:"trainset_id"`
	Status           JobStatus `json:"status" yaml:"status"`
	Critical         bool      `json:"is_critical" yaml:"is_critical"`
	RequiredManHours float64   `json:"required_man_hours" yaml:"required_man_hours"`
}

// IsOpen returns true when work is still pending on the card.
func (j JobCard) IsOpen() bool { return j.Status == JobOpen }

// BlocksService returns true for open critical work.
func (j JobCard) BlocksService() bool { return j.IsOpen() && j.Critical }

// SLA is a branding exposure contract attached to a vehicle.
type SLA struct {
	VehicleID            string  `json:"trainset_id" yaml:"trainset_id"`
	CurrentExposureHours float64 `json:"current_exposure_hours" yaml:"current_exposure_hours"`
	TargetExposureHours  float64 `json:"target_exposure_hours" yaml:"target_exposure_hours"`
	PenaltyPerHour       float64 `json:"penalty_per_hour" yaml:"penalty_per_hour"`
}

// Active returns true while the exposure target has not been reached.
func (s SLA) Active() bool { return s.CurrentExposureHours < s.TargetExposureHours }

// ResourceCapacity is a depot resource ceiling for the night.
type ResourceCapacity struct {
	ResourceID        string  `json:"resource_id" yaml:"resource_id"`
	AvailableCapacity float64 `json:"available_capacity" yaml:"available_capacity"`
}

// ShuntingCostEntry is the cost of moving a vehicle between two depot
// locations.
type ShuntingCostEntry struct {
	From string  `json:"from_location" yaml:"from_location"`
	To   string  `json:"to_location" yaml:"to_location"`
	Cost float64 `json:"shunting_cost" yaml:"shunting_cost"`
}

// DateLayout is the calendar date format used by every dataset.
const DateLayout = "2006-01-02"

// ParseDate parses a dataset date. Timestamps carrying a time of day are
// accepted and truncated to their day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006/01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed date %q", s)
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
