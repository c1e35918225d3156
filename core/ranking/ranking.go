// Package ranking orders a nightly plan for one route profile.
package ranking

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/kilianp07/induction/core/model"
	"github.com/kilianp07/induction/core/plan"
)

// Reasoning texts attached to recommendations.
const (
	ReasonGoodLow    = "Good for this route (Low Mileage)"
	ReasonGoodHigh   = "Good for this route (High Mileage)"
	ReasonBalancing  = "Eligible, but high mileage (held for balancing)"
	ReasonSpare      = "Eligible, held as operational spare"
	scheduledWorkFmt = "Scheduled work (%s hrs)"
)

// MeanDistance returns the mean daily distance of the route table.
func MeanDistance(routes []model.RouteProfile) float64 {
	if len(routes) == 0 {
		return 0
	}
	var sum float64
	for _, r := range routes {
		sum += r.DailyDistanceKM
	}
	return sum / float64(len(routes))
}

// Lookup finds a route by name and reports whether it is a long route,
// i.e. at least as long as the mean of the table.
func Lookup(name string, routes []model.RouteProfile) (model.RouteProfile, bool, error) {
	if len(routes) == 0 {
		return model.RouteProfile{}, false, model.Validationf("rank", "route table is empty")
	}
	seen := make(map[string]struct{}, len(routes))
	for _, r := range routes {
		if _, dup := seen[r.Name]; dup {
			return model.RouteProfile{}, false, model.Validationf("rank", "duplicate route %q", r.Name)
		}
		if r.DailyDistanceKM < 0 {
			return model.RouteProfile{}, false, model.Validationf("rank", "route %q: negative distance", r.Name)
		}
		seen[r.Name] = struct{}{}
	}
	for _, r := range routes {
		if r.Name == name {
			return r, r.DailyDistanceKM >= MeanDistance(routes), nil
		}
	}
	return model.RouteProfile{}, false, model.Validationf("rank", "unknown route %q", name)
}

type entry struct {
	a       model.Assignment
	mileage float64
}

// Rank orders the plan for the named route. Service vehicles come first,
// lowest mileage first on long routes and highest first on short ones, then
// standby and maintenance vehicles by ascending mileage. Ties keep roster
// order. Ranking never changes a status.
func Rank(pl *plan.Plan, route string, routes []model.RouteProfile) ([]model.RankedRecommendation, error) {
	if pl == nil || pl.Dataset == nil {
		return nil, model.NewError(model.KindPrecondition, "rank", fmt.Errorf("%w: ranking requires a plan", model.ErrNoPlan))
	}
	_, long, err := Lookup(route, routes)
	if err != nil {
		return nil, err
	}

	mileage := make(map[string]float64, len(pl.Dataset.Vehicles))
	for _, v := range pl.Dataset.Vehicles {
		mileage[v.ID] = v.CumulativeMileageKM
	}
	buckets := make(map[model.Status][]entry, len(model.Statuses))
	for _, a := range pl.Assignments {
		buckets[a.Status] = append(buckets[a.Status], entry{a: a, mileage: mileage[a.VehicleID]})
	}
	ascending := func(es []entry) {
		sort.SliceStable(es, func(i, j int) bool { return es[i].mileage < es[j].mileage })
	}
	if long {
		ascending(buckets[model.StatusService])
	} else {
		svc := buckets[model.StatusService]
		sort.SliceStable(svc, func(i, j int) bool { return svc[i].mileage > svc[j].mileage })
	}
	ascending(buckets[model.StatusStandby])
	ascending(buckets[model.StatusMaintenance])

	out := make([]model.RankedRecommendation, 0, len(pl.Assignments))
	for _, s := range model.Statuses {
		for _, e := range buckets[s] {
			out = append(out, model.RankedRecommendation{
				Rank:                  len(out) + 1,
				VehicleID:             e.a.VehicleID,
				Status:                e.a.Status,
				MileageVsAvgPct:       plan.MileageVsAvgPct(e.mileage, pl.AvgMileage),
				NextCertificateExpiry: NextExpiry(pl.Dataset.CertificatesOf(e.a.VehicleID), pl.Reference),
				PendingHours:          pl.Pending[e.a.VehicleID],
				Reasoning:             reasoning(pl, e),
			})
		}
	}
	return out, nil
}

func reasoning(pl *plan.Plan, e entry) string {
	verdict, ok := pl.Verdicts[e.a.VehicleID]
	if ok && !verdict.Eligible {
		return verdict.Reason.Text()
	}
	switch e.a.Status {
	case model.StatusService:
		if e.mileage < pl.AvgMileage {
			return ReasonGoodLow
		}
		return ReasonGoodHigh
	case model.StatusMaintenance:
		return fmt.Sprintf(scheduledWorkFmt, formatHours(pl.Pending[e.a.VehicleID]))
	default:
		if e.mileage > pl.AvgMileage {
			return ReasonBalancing
		}
		return ReasonSpare
	}
}

// NextExpiry returns the earliest certificate expiry after the reference
// day, or nil when every certificate has expired.
func NextExpiry(certs []model.Certificate, ref time.Time) *time.Time {
	var next *time.Time
	for _, c := range certs {
		if c.ExpiredAt(ref) {
			continue
		}
		if next == nil || c.Expiry.Before(*next) {
			exp := c.Expiry
			next = &exp
		}
	}
	return next
}

func formatHours(h float64) string { return strconv.FormatFloat(h, 'f', -1, 64) }
