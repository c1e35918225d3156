// Package export writes plans and route recommendations in the formats the
// depot office consumes.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/kilianp07/induction/core/model"
)

// RecommendationHeader is the column order of WriteRecommendationsCSV.
var RecommendationHeader = []string{
	"rank", "vehicle_id", "status", "mileage_vs_avg_pct",
	"next_certificate_expiry", "pending_hours", "reasoning",
}

// AssignmentHeader is the column order of WriteAssignmentsCSV.
var AssignmentHeader = []string{"vehicle_id", "status", "audit"}

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteRecommendationsCSV writes a ranked recommendation table. A missing
// certificate expiry is written as an empty cell.
func WriteRecommendationsCSV(w io.Writer, recs []model.RankedRecommendation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RecommendationHeader); err != nil {
		return err
	}
	for _, r := range recs {
		expiry := ""
		if r.NextCertificateExpiry != nil {
			expiry = r.NextCertificateExpiry.Format("2006-01-02")
		}
		rec := []string{
			strconv.Itoa(r.Rank),
			r.VehicleID,
			r.Status.String(),
			strconv.FormatFloat(r.MileageVsAvgPct, 'f', 1, 64),
			expiry,
			strconv.FormatFloat(r.PendingHours, 'f', -1, 64),
			r.Reasoning,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteAssignmentsCSV writes one row per vehicle of a plan.
func WriteAssignmentsCSV(w io.Writer, assignments []model.Assignment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(AssignmentHeader); err != nil {
		return err
	}
	for _, a := range assignments {
		if err := cw.Write([]string{a.VehicleID, a.Status.String(), a.Audit}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
