// Package factory is a generic registry that builds named modules from
// configuration. A module is selected by its type string; its settings arrive
// as a raw map and are decoded into a typed struct by the factory.
//
//	reg := factory.NewRegistry[solver.Solver]()
//	reg.Register("value_iteration", func(conf map[string]any) (solver.Solver, error) {
//	    var c struct{ Sweeps int `json:"sweeps"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return solver.NewValueIteration(), nil
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "value_iteration"})
package factory
