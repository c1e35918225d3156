// Package config loads the planner configuration from a YAML or JSON file
// with K_ environment overrides. Every section starts from its defaults,
// so a key left out keeps its default while an explicit value, including
// zero, replaces it.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/induction/core/eligibility"
	"github.com/kilianp07/induction/core/factory"
	"github.com/kilianp07/induction/core/metrics"
	"github.com/kilianp07/induction/core/model"
	"github.com/kilianp07/induction/core/planner"
	"github.com/kilianp07/induction/core/ranking"
	"github.com/kilianp07/induction/core/solver"
	"github.com/kilianp07/induction/infra/logger"
	"github.com/kilianp07/induction/infra/monitoring"
	"github.com/kilianp07/induction/infra/mqtt"
)

// EnvPrefix marks environment overrides: K_PLANNER__MILEAGE_WEIGHT=5 sets
// planner.mileage_weight.
const EnvPrefix = "K_"

type Config struct {
	Log         logger.Config        `json:"log"`
	Dataset     factory.ModuleConfig `json:"dataset"`
	Engine      factory.ModuleConfig `json:"engine"`
	Planner     planner.Config       `json:"planner"`
	Eligibility eligibility.Config   `json:"eligibility"`
	Routes      []model.RouteProfile `json:"routes"`
	Metrics     metrics.Config       `json:"metrics"`
	// MQTT publication is enabled when a broker is set.
	MQTT mqtt.Config `json:"mqtt"`
	// Sentry reporting of failed runs is enabled when a DSN is set.
	Sentry monitoring.SentryConfig `json:"sentry"`
}

const (
	DefaultDatasetType = "csv"
	DefaultDataDir     = "data"
)

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg := base()
	cfg.SetDefaults()
	return cfg
}

// base presets the scalar defaults only. Slices and module conf maps stay
// nil so decoding replaces them instead of merging into them.
func base() Config {
	cfg := Config{Planner: planner.DefaultConfig()}
	cfg.Log.SetDefaults()
	cfg.Eligibility.SetDefaults()
	return cfg
}

// Load reads path on top of the defaults and applies K_ environment
// overrides. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, model.Validationf("config", "unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, model.NewError(model.KindValidation, "config", err)
		}
	}
	// K_PLANNER__SHUNTING_WEIGHT overrides planner.shunting_weight. The
	// callback already yields dotted paths, so the delimiter is koanf's.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, model.NewError(model.KindValidation, "config", err)
	}

	cfg := base()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, model.NewError(model.KindValidation, "config", err)
	}
	// Default routes only stand in for a missing table, not an empty one.
	if k.Exists("routes") && len(cfg.Routes) == 0 {
		return nil, model.Validationf("config", "routes: route profile table is empty")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills the sections that cannot be preset before decoding.
func (c *Config) SetDefaults() {
	c.Log.SetDefaults()
	c.Planner.SetDefaults()
	c.Eligibility.SetDefaults()
	if c.Dataset.Type == "" {
		c.Dataset = factory.ModuleConfig{Type: DefaultDatasetType, Conf: map[string]any{"dir": DefaultDataDir}}
	}
	if c.Engine.Type == "" {
		c.Engine.Type = solver.BranchAndBoundType
	}
	if len(c.Routes) == 0 {
		c.Routes = ranking.DefaultRoutes()
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return model.NewError(model.KindValidation, "config", err)
	}
	if err := c.Planner.Validate(); err != nil {
		return err
	}
	if err := c.Eligibility.Validate(); err != nil {
		return model.NewError(model.KindValidation, "config", err)
	}
	if err := ValidateRoutes(c.Routes); err != nil {
		return err
	}
	if err := c.Sentry.Validate(); err != nil {
		return model.NewError(model.KindValidation, "config", err)
	}
	if c.MQTT.Broker != "" {
		if err := c.MQTT.Validate(); err != nil {
			return model.NewError(model.KindValidation, "config", err)
		}
	}
	return nil
}

// ValidateRoutes rejects an empty table and unnamed, duplicate or negative
// route entries.
func ValidateRoutes(routes []model.RouteProfile) error {
	if len(routes) == 0 {
		return model.Validationf("config", "route profile table is empty")
	}
	seen := make(map[string]struct{}, len(routes))
	for i, r := range routes {
		if strings.TrimSpace(r.Name) == "" {
			return model.Validationf("config", "routes[%d]: name is required", i)
		}
		if r.DailyDistanceKM < 0 {
			return model.Validationf("config", "route %q: negative distance", r.Name)
		}
		if _, dup := seen[r.Name]; dup {
			return model.Validationf("config", "route %q defined twice", r.Name)
		}
		seen[r.Name] = struct{}{}
	}
	return nil
}

// PublishEnabled reports whether plans are published over MQTT.
func (c Config) PublishEnabled() bool { return c.MQTT.Broker != "" }

// String gives a one-line description for logs.
func (c Config) String() string {
	return fmt.Sprintf("dataset=%s engine=%s routes=%d sinks=%d publish=%t",
		c.Dataset.Type, c.Engine.Type, len(c.Routes), len(c.Metrics.Sinks), c.PublishEnabled())
}
