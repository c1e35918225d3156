package planner

import "github.com/kilianp07/induction/core/model"

// Breakdown splits a plan's objective into its weighted terms.
type Breakdown struct {
	Mileage  int64 `json:"mileage"`
	Branding int64 `json:"branding"`
	Shunting int64 `json:"shunting"`
	Urgency  int64 `json:"urgency"`
}

// Total is the objective value.
func (b Breakdown) Total() int64 { return b.Mileage + b.Branding + b.Shunting + b.Urgency }

// Breakdown recomputes the objective terms for statuses aligned with the
// roster.
func (p *Program) Breakdown(statuses []model.Status) Breakdown {
	var out Breakdown
	cfg := p.Config
	for i, s := range statuses {
		c := p.Costs[i]
		switch s {
		case model.StatusService:
			out.Mileage += cfg.MileageWeight * c.MileageDeviation
			out.Shunting += cfg.ShuntingWeight * p.ShuntToStable
		case model.StatusStandby:
			out.Branding += cfg.BrandingWeight * c.BrandingPenalty
			out.Shunting += cfg.ShuntingWeight * p.ShuntToStable
			if c.Urgent {
				out.Urgency += cfg.UrgencyWeight
			}
		case model.StatusMaintenance:
			out.Branding += cfg.BrandingWeight * c.BrandingPenalty
			out.Shunting += cfg.ShuntingWeight * p.ShuntToBay
		}
	}
	return out
}
