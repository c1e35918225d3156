// Package factory is the generic module registry behind every pluggable
// component of the planner: dataset providers, optimisation engines and run
// metric sinks. A module is selected by a type string and configured from a
// raw map that the factory decodes into its own typed Config.
//
//	reg := factory.NewRegistry[dataset.Provider]()
//	reg.Register("csv", func(conf map[string]any) (dataset.Provider, error) {
//	    var c csvConfig
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return newCSVProvider(c), nil
//	})
//	p, err := reg.Create(factory.ModuleConfig{Type: "csv", Conf: map[string]any{"dir": "data"}})
package factory
