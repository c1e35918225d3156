// Package dataset defines where the nightly input snapshot comes from.
// Implementations live in infra/dataset and register themselves by type.
package dataset

import (
	"context"
	"fmt"

	"github.com/kilianp07/induction/core/factory"
	"github.com/kilianp07/induction/core/model"
)

// Provider supplies the six input tables of one scheduling run.
type Provider interface {
	Name() string
	Load(ctx context.Context) (*model.Dataset, error)
}

var providers = factory.NewRegistry[Provider]()

// RegisterProvider makes a provider type available to New.
func RegisterProvider(name string, f factory.Factory[Provider]) error {
	return providers.Register(name, f)
}

// New instantiates the provider described by cfg.
func New(cfg factory.ModuleConfig) (Provider, error) {
	p, err := providers.Create(cfg)
	if err != nil {
		return nil, model.NewError(model.KindValidation, "dataset", err)
	}
	return p, nil
}

// Types lists the registered provider types.
func Types() []string { return providers.Types() }

// Load reads a snapshot from p. Any failure is reported as a validation
// error so that the run stops before a model is built.
func Load(ctx context.Context, p Provider) (*model.Dataset, error) {
	if p == nil {
		return nil, model.Validationf("dataset", "no dataset provider configured")
	}
	ds, err := p.Load(ctx)
	if err != nil {
		if model.KindOf(err) != "" {
			return nil, err
		}
		return nil, model.NewError(model.KindValidation, "dataset", fmt.Errorf("%s: %w", p.Name(), err))
	}
	if ds == nil {
		return nil, model.Validationf("dataset", "%s returned no data", p.Name())
	}
	return ds, nil
}

// Static serves a snapshot held in memory.
type Static struct {
	Dataset *model.Dataset
}

// Name implements Provider.
func (Static) Name() string { return "static" }

// Load implements Provider.
func (s Static) Load(context.Context) (*model.Dataset, error) { return s.Dataset, nil }
