// Package dependencies orders plugins by their declared relationships.
//
// # Overview
//
// Each plugin names hard dependencies (must be present and loaded first),
// soft dependencies (loaded first when present) and plugins it must load
// before. The graph turns these into a deterministic load order, reports
// missing hard dependencies and cycles, and answers which plugins are
// affected when one is unloaded.
//
// # Usage Example
//
//	g := dependencies.NewGraph()
//	g.AddNode("Economy", nil, nil, nil)
//	g.AddNode("Shops", []string{"Economy"}, []string{"Vault"}, nil)
//
//	order, err := g.LoadOrder()
//	// order == []string{"Economy", "Shops"}
//
// Plugins caught in a cycle are left out of the order and reported through
// a *CycleError.
//
// # Related Packages
//
//   - pkg/plugins: builds the graph from plugin descriptors
//   - pkg/host: serves the graph on the admin endpoint
package dependencies
