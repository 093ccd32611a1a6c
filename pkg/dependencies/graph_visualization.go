package dependencies

// CytoscapeNode represents a node in Cytoscape.js format
type CytoscapeNode struct {
	Data CytoscapeNodeData `json:"data"`
}

// CytoscapeNodeData contains node data for Cytoscape.js
type CytoscapeNodeData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"` // "plugin" or "missing"
}

// CytoscapeEdge represents an edge in Cytoscape.js format
type CytoscapeEdge struct {
	Data CytoscapeEdgeData `json:"data"`
}

// CytoscapeEdgeData contains edge data for Cytoscape.js. Source loads
// before Target.
type CytoscapeEdgeData struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// CytoscapeGraph represents the complete graph in Cytoscape.js format
type CytoscapeGraph struct {
	Nodes []CytoscapeNode `json:"nodes"`
	Edges []CytoscapeEdge `json:"edges"`
}

// ToCytoscape renders the graph. Hard dependencies that are not installed
// appear as "missing" nodes; absent soft dependencies are omitted.
func (g *Graph) ToCytoscape() *CytoscapeGraph {
	out := &CytoscapeGraph{
		Nodes: make([]CytoscapeNode, 0, len(g.names)),
		Edges: make([]CytoscapeEdge, 0),
	}
	missing := make(map[string]bool)

	for _, name := range g.names {
		out.Nodes = append(out.Nodes, CytoscapeNode{Data: CytoscapeNodeData{ID: name, Name: name, Type: "plugin"}})
	}

	addEdge := func(source, target, typ string) {
		out.Edges = append(out.Edges, CytoscapeEdge{Data: CytoscapeEdgeData{
			ID:     source + "->" + target,
			Source: source,
			Target: target,
			Type:   typ,
		}})
	}

	for _, name := range g.names {
		node := g.nodes[name]
		for _, dep := range node.Depends {
			if _, ok := g.nodes[dep]; !ok && !missing[dep] {
				missing[dep] = true
				out.Nodes = append(out.Nodes, CytoscapeNode{Data: CytoscapeNodeData{ID: dep, Name: dep, Type: "missing"}})
			}
			addEdge(dep, name, EdgeHard)
		}
		for _, dep := range node.SoftDepends {
			if _, ok := g.nodes[dep]; ok {
				addEdge(dep, name, EdgeSoft)
			}
		}
		for _, later := range node.LoadBefore {
			if _, ok := g.nodes[later]; ok {
				addEdge(name, later, EdgeLoadBefore)
			}
		}
	}
	return out
}
