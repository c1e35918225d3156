package ranking

import "github.com/kilianp07/induction/core/model"

// DefaultRoutes is the sample route table used when none is configured.
func DefaultRoutes() []model.RouteProfile {
	return []model.RouteProfile{
		{Name: "Line A (Short: 20km)", DailyDistanceKM: 250},
		{Name: "Line B (Medium: 40km)", DailyDistanceKM: 450},
		{Name: "Line C (Long: 60km)", DailyDistanceKM: 650},
		{Name: "Line D (Express: 80km)", DailyDistanceKM: 900},
		{Name: "Line E (Long Express: 100km)", DailyDistanceKM: 1100},
	}
}
