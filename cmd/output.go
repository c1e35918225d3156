package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kilianp07/induction/core/model"
	"github.com/kilianp07/induction/core/plan"
	"github.com/kilianp07/induction/core/report"
	"github.com/kilianp07/induction/pkg/export"
)

const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
)

func checkFormat(f string) error {
	switch f {
	case formatTable, formatCSV, formatJSON:
		return nil
	}
	return model.Validationf("output", "unknown format %q (table, csv, json)", f)
}

// openOutput returns stdout when path is empty.
func openOutput(def io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" {
		return def, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, f.Close, nil
}

var printer = message.NewPrinter(language.English)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printPlan(w io.Writer, pl *plan.Plan) error {
	printer.Fprintf(w, "Run %s  reference %s  engine %s  status %s  objective %d\n\n",
		pl.RunID, pl.Reference.Format("2006-01-02"), pl.Solve.Engine, pl.Solve.Status, pl.Solve.Objective)
	tw := newTable(w)
	fmt.Fprintln(tw, "VEHICLE\tSTATUS\tELIGIBILITY\tAUDIT")
	for _, a := range pl.Assignments {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.VehicleID, a.Status, pl.Verdicts[a.VehicleID].Reason.Text(), a.Audit)
	}
	return tw.Flush()
}

func printRecommendations(w io.Writer, route string, recs []model.RankedRecommendation) error {
	fmt.Fprintf(w, "Recommendations for %s\n\n", route)
	tw := newTable(w)
	fmt.Fprintln(tw, "RANK\tVEHICLE\tSTATUS\tMILEAGE VS AVG\tNEXT EXPIRY\tPENDING H\tREASONING")
	for _, r := range recs {
		expiry := "-"
		if r.NextCertificateExpiry != nil {
			expiry = r.NextCertificateExpiry.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%+.1f%%\t%s\t%g\t%s\n",
			r.Rank, r.VehicleID, r.Status, r.MileageVsAvgPct, expiry, r.PendingHours, r.Reasoning)
	}
	return tw.Flush()
}

func printSummary(w io.Writer, s report.Summary, a report.Alerts) error {
	tw := newTable(w)
	printer.Fprintf(tw, "Vehicles\t%d\n", s.Total)
	printer.Fprintf(tw, "Revenue service\t%d\n", s.Service)
	printer.Fprintf(tw, "Standby\t%d\n", s.Standby)
	printer.Fprintf(tw, "Maintenance\t%d\n", s.Maintenance)
	printer.Fprintf(tw, "Ineligible\t%d\n", s.Ineligible)
	printer.Fprintf(tw, "Operational\t%.1f%%\n", s.OperationalPct)
	printer.Fprintf(tw, "Bay utilisation\t%.1f%% of %d\n", s.BayUtilisationPct, s.BayCapacity)
	printer.Fprintf(tw, "Active branding SLAs\t%d\n", s.ActiveSLAs)
	printer.Fprintf(tw, "Mileage km\tmin %.0f  mean %.0f  max %.0f  sd %.0f\n", s.Mileage.Min, s.Mileage.Mean, s.Mileage.Max, s.Mileage.StdDev)
	printer.Fprintf(tw, "Pending hours in bays\t%g\n", s.PendingHoursInBays)
	if err := tw.Flush(); err != nil {
		return err
	}
	if a.Empty() {
		_, err := fmt.Fprintln(w, "\nNo alerts.")
		return err
	}
	fmt.Fprintln(w, "\nAlerts")
	tw = newTable(w)
	for _, c := range a.ExpiredCertificates {
		fmt.Fprintf(tw, "expired certificate\t%s\t%s expired %s\n", c.VehicleID, c.Type, c.Expiry.Format("2006-01-02"))
	}
	for _, c := range a.CriticalWork {
		fmt.Fprintf(tw, "critical work open\t%s\t%d job card(s)\n", c.VehicleID, c.OpenJobs)
	}
	for _, q := range a.MaintenanceQueue {
		printer.Fprintf(tw, "maintenance queue\t%s\t%.0f km, %g h pending\n", q.VehicleID, q.MileageKM, q.PendingHours)
	}
	return tw.Flush()
}

func writePlan(w io.Writer, format string, pl *plan.Plan) error {
	switch format {
	case formatJSON:
		return export.WriteJSON(w, pl)
	case formatCSV:
		return export.WriteAssignmentsCSV(w, pl.Assignments)
	}
	return printPlan(w, pl)
}

func writeRecommendations(w io.Writer, format, route string, recs []model.RankedRecommendation) error {
	switch format {
	case formatJSON:
		return export.WriteJSON(w, recs)
	case formatCSV:
		return export.WriteRecommendationsCSV(w, recs)
	}
	return printRecommendations(w, route, recs)
}
