package pipeline

import (
	"context"
	"time"

	"github.com/kilianp07/induction/core/model"
	"github.com/kilianp07/induction/core/plan"
)

// Publication is the ranked plan as sent to downstream depot systems.
type Publication struct {
	RunID           string                       `json:"run_id"`
	ReferenceDate   string                       `json:"reference_date"`
	Route           string                       `json:"route,omitempty"`
	Engine          string                       `json:"engine"`
	SolverStatus    string                       `json:"solver_status"`
	Objective       int64                        `json:"objective"`
	Counts          map[string]int               `json:"counts"`
	Assignments     []model.Assignment           `json:"assignments"`
	Recommendations []model.RankedRecommendation `json:"recommendations,omitempty"`
	GeneratedAt     time.Time                    `json:"generated_at"`
}

// Publisher delivers publications.
type Publisher interface {
	Publish(ctx context.Context, pub Publication) error
}

// NewPublication assembles the message for a plan and its ranking.
func NewPublication(pl *plan.Plan, route string, recs []model.RankedRecommendation, at time.Time) Publication {
	counts := make(map[string]int, len(model.Statuses))
	for s, n := range pl.Counts() {
		counts[s.String()] = n
	}
	return Publication{
		RunID:           pl.RunID,
		ReferenceDate:   pl.Reference.Format(model.DateLayout),
		Route:           route,
		Engine:          pl.Solve.Engine,
		SolverStatus:    pl.Solve.Status,
		Objective:       pl.Solve.Objective,
		Counts:          counts,
		Assignments:     pl.Assignments,
		Recommendations: recs,
		GeneratedAt:     at.UTC(),
	}
}
