package dependencies

import (
	"fmt"
	"sort"
	"strings"
)

// Dependency is one edge as seen from a plugin
type Dependency struct {
	Plugin string `json:"plugin"`
	Type   string `json:"type"` // "hard", "soft", "load-before", "transitive"
}

// Edge types
const (
	EdgeHard       = "hard"
	EdgeSoft       = "soft"
	EdgeLoadBefore = "load-before"
	EdgeTransitive = "transitive"
)

// Node is one plugin in the graph
type Node struct {
	Name         string
	Depends      []string
	SoftDepends  []string
	LoadBefore   []string
	insertionIdx int
}

// Graph holds plugins and their ordering constraints
type Graph struct {
	nodes map[string]*Node
	names []string
}

// CycleError reports plugins that could not be ordered
type CycleError struct {
	Plugins []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency between plugins: %s", strings.Join(e.Plugins, ", "))
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
	}
}

// AddNode adds or replaces a plugin. Insertion order breaks ties in LoadOrder.
func (g *Graph) AddNode(name string, depends, softDepends, loadBefore []string) {
	idx := len(g.names)
	if existing, ok := g.nodes[name]; ok {
		idx = existing.insertionIdx
	} else {
		g.names = append(g.names, name)
	}
	g.nodes[name] = &Node{
		Name:         name,
		Depends:      depends,
		SoftDepends:  softDepends,
		LoadBefore:   loadBefore,
		insertionIdx: idx,
	}
}

// RemoveNode drops a plugin
func (g *Graph) RemoveNode(name string) {
	if _, ok := g.nodes[name]; !ok {
		return
	}
	delete(g.nodes, name)
	for i, n := range g.names {
		if n == name {
			g.names = append(g.names[:i], g.names[i+1:]...)
			break
		}
	}
	for i, n := range g.names {
		g.nodes[n].insertionIdx = i
	}
}

// GetNode returns a plugin node, or nil
func (g *Graph) GetNode(name string) *Node {
	return g.nodes[name]
}

// Names returns plugin names in insertion order
func (g *Graph) Names() []string {
	return append([]string(nil), g.names...)
}

// MissingDependencies returns hard dependencies of name that are not in the
// graph
func (g *Graph) MissingDependencies(name string) []string {
	node := g.nodes[name]
	if node == nil {
		return nil
	}
	var missing []string
	for _, dep := range node.Depends {
		if _, ok := g.nodes[dep]; !ok {
			missing = append(missing, dep)
		}
	}
	return missing
}

// before returns, for every plugin, the plugins that must load before it
func (g *Graph) before() map[string][]string {
	edges := make(map[string][]string, len(g.nodes))
	add := func(from, to string) {
		if _, ok := g.nodes[from]; !ok {
			return
		}
		if _, ok := g.nodes[to]; !ok || from == to {
			return
		}
		for _, existing := range edges[to] {
			if existing == from {
				return
			}
		}
		edges[to] = append(edges[to], from)
	}
	for _, name := range g.names {
		node := g.nodes[name]
		for _, dep := range node.Depends {
			add(dep, name)
		}
		for _, dep := range node.SoftDepends {
			add(dep, name)
		}
		for _, later := range node.LoadBefore {
			add(name, later)
		}
	}
	return edges
}

// LoadOrder returns every plugin ordered so that its dependencies come first.
// Among plugins with no constraint between them insertion order is kept.
// Plugins in a cycle, and everything that depends on them, are left out and
// reported in a *CycleError.
func (g *Graph) LoadOrder() ([]string, error) {
	before := g.before()
	pending := make(map[string]int, len(g.nodes))
	after := make(map[string][]string, len(g.nodes))
	for _, name := range g.names {
		pending[name] = len(before[name])
		for _, dep := range before[name] {
			after[dep] = append(after[dep], name)
		}
	}

	var ready []string
	for _, name := range g.names {
		if pending[name] == 0 {
			ready = append(ready, name)
		}
	}

	order := make([]string, 0, len(g.names))
	for len(ready) > 0 {
		sort.SliceStable(ready, func(i, j int) bool {
			return g.nodes[ready[i]].insertionIdx < g.nodes[ready[j]].insertionIdx
		})
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)
		for _, next := range after[name] {
			pending[next]--
			if pending[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(order) == len(g.names) {
		return order, nil
	}

	var stuck []string
	for _, name := range g.names {
		if pending[name] > 0 {
			stuck = append(stuck, name)
		}
	}
	return order, &CycleError{Plugins: stuck}
}

// DetectCircularDependencies returns one cycle through name, if any
func (g *Graph) DetectCircularDependencies(name string) ([]string, error) {
	before := g.before()
	path := make([]string, 0)
	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	var hasCycle func(string) bool
	hasCycle = func(key string) bool {
		visited[key] = true
		recStack[key] = true
		path = append(path, key)

		for _, dep := range before[key] {
			if !visited[dep] {
				if hasCycle(dep) {
					return true
				}
			} else if recStack[dep] {
				path = append(path, dep)
				return true
			}
		}

		recStack[key] = false
		path = path[:len(path)-1]
		return false
	}

	if hasCycle(name) {
		return path, fmt.Errorf("circular dependency detected")
	}
	return nil, nil
}

// GetDependencies returns the direct relationships declared by name
func (g *Graph) GetDependencies(name string) []Dependency {
	node := g.nodes[name]
	if node == nil {
		return nil
	}
	var deps []Dependency
	for _, d := range node.Depends {
		deps = append(deps, Dependency{Plugin: d, Type: EdgeHard})
	}
	for _, d := range node.SoftDepends {
		deps = append(deps, Dependency{Plugin: d, Type: EdgeSoft})
	}
	for _, d := range node.LoadBefore {
		deps = append(deps, Dependency{Plugin: d, Type: EdgeLoadBefore})
	}
	return deps
}

// GetDependents returns plugins that hard-depend on name, in insertion order
func (g *Graph) GetDependents(name string) []string {
	var dependents []string
	for _, n := range g.names {
		for _, dep := range g.nodes[n].Depends {
			if dep == name {
				dependents = append(dependents, n)
				break
			}
		}
	}
	return dependents
}

// GetImpactAnalysis returns every plugin that stops working if name goes away
func (g *Graph) GetImpactAnalysis(name string) *ImpactAnalysis {
	direct := g.GetDependents(name)

	visited := map[string]bool{name: true}
	var transitive []string
	var traverse func(string)
	traverse = func(n string) {
		for _, dep := range g.GetDependents(n) {
			if visited[dep] {
				continue
			}
			visited[dep] = true
			transitive = append(transitive, dep)
			traverse(dep)
		}
	}
	traverse(name)

	return &ImpactAnalysis{
		Plugin:           name,
		DirectDependents: direct,
		AllDependents:    transitive,
		TotalImpact:      len(transitive),
	}
}

// ImpactAnalysis represents the plugins affected by removing one
type ImpactAnalysis struct {
	Plugin           string   `json:"plugin"`
	DirectDependents []string `json:"direct_dependents"`
	AllDependents    []string `json:"all_dependents"`
	TotalImpact      int      `json:"total_impact"`
}
