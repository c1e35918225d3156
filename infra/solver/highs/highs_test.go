package highs

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/induction/core/factory"
	"github.com/kilianp07/induction/core/solver"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name     string
		has, opt bool
		elapsed  time.Duration
		budget   time.Duration
		want     solver.Status
	}{
		{"optimal", true, true, time.Second, time.Minute, solver.StatusOptimal},
		{"incumbent", true, false, time.Minute, time.Minute, solver.StatusFeasible},
		{"budget used", false, false, time.Minute, time.Minute, solver.StatusTimeout},
		{"proved infeasible", false, false, time.Second, time.Minute, solver.StatusInfeasible},
		{"no budget", false, false, time.Hour, 0, solver.StatusInfeasible},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classify(tc.has, tc.opt, tc.elapsed, tc.budget))
		})
	}
}

func TestDecode(t *testing.T) {
	assert.Equal(t, []bool{false, true, true, false}, decode([]float64{0, 1, 0.9999999, 1e-9}))
}

func TestConfig(t *testing.T) {
	e, err := New(Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "highs", e.cfg.Provider)
	_, err = New(Config{RelativeGap: 1.5}, nil)
	assert.Error(t, err)
}

func TestRegistered(t *testing.T) {
	assert.Contains(t, solver.EngineTypes(), Type)
	e, err := solver.NewEngine(factory.ModuleConfig{Type: Type, Conf: map[string]any{"relative_gap": "0.01"}})
	require.NoError(t, err)
	assert.Equal(t, Type, e.Name())
}

func TestSolve_CancelledContext(t *testing.T) {
	e, err := New(Config{}, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := e.Solve(ctx, solver.NewModel(), solver.Options{})
	require.NoError(t, err)
	assert.Equal(t, solver.StatusTimeout, res.Status)
}

// TestSolve_HiGHS needs the HiGHS provider of the nextmv SDK.
func TestSolve_HiGHS(t *testing.T) {
	if os.Getenv("HIGHS_AVAILABLE") != "true" && os.Getenv("HIGHS_AVAILABLE") != "1" {
		t.Skip("highs provider not available")
	}
	m := solver.NewModel()
	a, b := m.NewBool("a"), m.NewBool("b")
	require.NoError(t, m.ExactlyOne(a, b))
	m.AddObjective(a, 5)
	m.AddObjective(b, 3)
	m.AddConstant(10)

	e, err := New(Config{}, nil)
	require.NoError(t, err)
	res, err := e.Solve(context.Background(), m, solver.Options{TimeBudget: 10 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, solver.StatusOptimal, res.Status)
	assert.Equal(t, []bool{false, true}, res.Values)
	assert.Equal(t, int64(13), res.Objective)
}
