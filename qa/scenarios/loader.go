// Package scenarios runs end-to-end planning scenarios described in YAML
// and checks the plan against the expected outcome.
package scenarios

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/induction/core/eligibility"
	"github.com/kilianp07/induction/core/factory"
	"github.com/kilianp07/induction/core/planner"
	"github.com/kilianp07/induction/infra/dataset"
)

// Expected is the outcome a scenario asserts. Empty fields are not checked.
type Expected struct {
	// Error is the failure kind, e.g. "infeasible". Empty expects a plan.
	Error    string            `yaml:"error,omitempty"`
	Statuses map[string]string `yaml:"statuses,omitempty"`
	Counts   map[string]int    `yaml:"counts,omitempty"`
	// Ineligible maps a vehicle to its reason code.
	Ineligible map[string]string `yaml:"ineligible,omitempty"`
	// Ranking is the vehicle order for the scenario route.
	Ranking []string `yaml:"ranking,omitempty"`
}

type Scenario struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description,omitempty"`
	Route       string           `yaml:"route,omitempty"`
	Planner     map[string]any   `yaml:"planner,omitempty"`
	Eligibility map[string]any   `yaml:"eligibility,omitempty"`
	Dataset     dataset.Document `yaml:"dataset"`
	Expected    Expected         `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = sc.Dataset.Name
	}
	return &sc, nil
}

// PlannerConfig applies the scenario overrides to the default weights. The
// dataset reference date is used unless the overrides set one.
func (sc *Scenario) PlannerConfig() (planner.Config, error) {
	cfg := planner.DefaultConfig()
	if err := factory.Decode(sc.Planner, &cfg); err != nil {
		return cfg, fmt.Errorf("planner: %w", err)
	}
	if cfg.ReferenceDate == "" {
		cfg.ReferenceDate = sc.Dataset.ReferenceDate
	}
	cfg.SetDefaults()
	return cfg, cfg.Validate()
}

func (sc *Scenario) EligibilityConfig() (eligibility.Config, error) {
	var cfg eligibility.Config
	if err := factory.Decode(sc.Eligibility, &cfg); err != nil {
		return cfg, fmt.Errorf("eligibility: %w", err)
	}
	cfg.SetDefaults()
	return cfg, cfg.Validate()
}
