package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/induction/core/model"
	"github.com/kilianp07/induction/core/planner"
	"github.com/kilianp07/induction/core/solver"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	path := writeConfig(t, "config.yaml", `log:
  level: debug
  format: json
dataset:
  type: yaml
  conf:
    path: night.yaml
engine:
  type: highs
  conf:
    relative_gap: 0.01
planner:
  reference_date: "2025-09-10"
  mileage_weight: 0
  solver_time_budget_seconds: 15
  mandatory_critical_repair: true
eligibility:
  min_certificates: 2
routes:
  - name: Airport
    daily_distance_km: 300
metrics:
  sinks:
    - type: "nop"
mqtt:
  broker: "tcp://localhost:1883"
  topic_prefix: "depot/muttom/"
  qos: 1
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"log.level", cfg.Log.Level, "debug"},
		{"log.output", cfg.Log.Output, "stderr"},
		{"dataset.type", cfg.Dataset.Type, "yaml"},
		{"dataset.conf", cfg.Dataset.Conf["path"], "night.yaml"},
		{"engine.type", cfg.Engine.Type, "highs"},
		{"reference_date", cfg.Planner.ReferenceDate, "2025-09-10"},
		{"explicit zero weight", cfg.Planner.MileageWeight, int64(0)},
		{"default branding weight", cfg.Planner.BrandingWeight, int64(planner.DefaultBrandingWeight)},
		{"budget", cfg.Planner.TimeBudgetSeconds, 15},
		{"workers", cfg.Planner.Workers, planner.DefaultWorkers},
		{"mandatory repair", cfg.Planner.MandatoryCriticalRepair, true},
		{"min_certificates", cfg.Eligibility.MinCertificates, 2},
		{"routes", cfg.Routes, []model.RouteProfile{{Name: "Airport", DailyDistanceKM: 300}}},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"qos", cfg.MQTT.QoS, byte(1)},
		{"publish", cfg.PublishEnabled(), true},
	}
	for _, c := range checks {
		assert.Equal(t, c.want, c.got, c.name)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultDatasetType, cfg.Dataset.Type)
	assert.Equal(t, DefaultDataDir, cfg.Dataset.Conf["dir"])
	assert.Equal(t, solver.BranchAndBoundType, cfg.Engine.Type)
	assert.Equal(t, planner.DefaultConfig(), cfg.Planner)
	assert.Len(t, cfg.Routes, 5)
	assert.False(t, cfg.PublishEnabled())
	assert.Equal(t, Default(), *cfg)
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{"dataset":{"type":"csv","conf":{"dir":"depot"}},"planner":{"urgency_weight":5000000}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "depot", cfg.Dataset.Conf["dir"])
	assert.Equal(t, int64(5000000), cfg.Planner.UrgencyWeight)
	assert.Equal(t, int64(planner.DefaultMileageWeight), cfg.Planner.MileageWeight)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("K_PLANNER__SHUNTING_WEIGHT", "42")
	t.Setenv("K_LOG__LEVEL", "warn")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Planner.ShuntingWeight)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "induction.yaml")
	require.NoError(t, os.WriteFile(path, []byte("planner:\n  shunting_weight: 5\n  mileage_weight: 2\neligibility:\n  min_certificates: 2\n"), 0o644))
	t.Setenv("K_PLANNER__SHUNTING_WEIGHT", "42")
	t.Setenv("K_ELIGIBILITY__MIN_CERTIFICATES", "4")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Planner.ShuntingWeight)
	assert.Equal(t, int64(2), cfg.Planner.MileageWeight)
	assert.Equal(t, 4, cfg.Eligibility.MinCertificates)
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]struct {
		name string
		data string
	}{
		"format":          {"config.toml", "a = 1"},
		"negative weight": {"c.yaml", "planner:\n  branding_weight: -1\n"},
		"bad date":        {"c.yaml", "planner:\n  reference_date: tomorrow\n"},
		"log level":       {"c.yaml", "log:\n  level: loud\n"},
		"duplicate route": {"c.yaml", "routes:\n  - name: A\n  - name: A\n"},
		"empty routes":    {"c.yaml", "routes: []\n"},
		"negative route":  {"c.yaml", "routes:\n  - name: A\n    daily_distance_km: -3\n"},
		"mqtt qos":        {"c.yaml", "mqtt:\n  broker: tcp://b:1883\n  qos: 3\n"},
		"min certs":       {"c.yaml", "eligibility:\n  min_certificates: -1\n"},
		"sentry rate":     {"c.yaml", "sentry:\n  traces_sample_rate: 3\n"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.name, tc.data))
			require.Error(t, err)
			assert.True(t, model.IsKind(err, model.KindValidation), "got %v", err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, model.IsKind(err, model.KindValidation))
}

func TestValidateRoutes(t *testing.T) {
	require.NoError(t, ValidateRoutes([]model.RouteProfile{{Name: "Line A", DailyDistanceKM: 250}}))
	assert.True(t, model.IsKind(ValidateRoutes(nil), model.KindValidation))
	require.Error(t, ValidateRoutes([]model.RouteProfile{{Name: " "}}))
}

func TestLoadSampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "configs", "induction.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "csv", cfg.Dataset.Type)
	assert.Equal(t, solver.BranchAndBoundType, cfg.Engine.Type)
	assert.Equal(t, planner.DefaultConfig(), cfg.Planner)
	assert.Len(t, cfg.Routes, 5)
	require.Len(t, cfg.Metrics.Sinks, 1)
	assert.Equal(t, "prometheus", cfg.Metrics.Sinks[0].Type)
	assert.False(t, cfg.PublishEnabled())
}
