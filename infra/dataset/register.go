// Package dataset provides the dataset sources selectable from the
// configuration: a directory of CSV files, a YAML scenario and Postgres.
package dataset

import (
	core "github.com/kilianp07/induction/core/dataset"
	"github.com/kilianp07/induction/core/factory"
)

func init() {
	mustRegister("csv", newCSVFromConf)
	mustRegister("yaml", newYAMLFromConf)
	mustRegister("postgres", newPostgresFromConf)
}

func mustRegister[P core.Provider](name string, f func(map[string]any) (P, error)) {
	err := core.RegisterProvider(name, factory.Factory[core.Provider](func(c map[string]any) (core.Provider, error) {
		p, err := f(c)
		if err != nil {
			return nil, err
		}
		return p, nil
	}))
	if err != nil {
		panic(err)
	}
}
