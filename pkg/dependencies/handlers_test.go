package dependencies

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
)

type staticSource struct {
	graph *Graph
}

func (s staticSource) DependencyGraph() *Graph {
	return s.graph
}

func newTestRouter() *mux.Router {
	graph := NewGraph()
	graph.AddNode("Economy", nil, nil, nil)
	graph.AddNode("Shops", []string{"Economy"}, nil, nil)
	graph.AddNode("Loop1", []string{"Loop2"}, nil, nil)
	graph.AddNode("Loop2", []string{"Loop1"}, nil, nil)

	router := mux.NewRouter()
	NewDependencyHandlers(staticSource{graph: graph}).RegisterRoutes(router)
	return router
}

func TestDependencyHandlers_LoadOrder(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/plugins/order", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		Order  []string `json:"order"`
		Count  int      `json:"count"`
		Cyclic []string `json:"cyclic"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Count != 2 || response.Order[0] != "Economy" || response.Order[1] != "Shops" {
		t.Errorf("Unexpected order: %v", response.Order)
	}
	if len(response.Cyclic) != 2 {
		t.Errorf("Expected two cyclic plugins, got %v", response.Cyclic)
	}
}

func TestDependencyHandlers_Dependents(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/plugins/Economy/dependents", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["count"].(float64) != 1 {
		t.Errorf("Expected 1 dependent, got %v", response["count"])
	}
}

func TestDependencyHandlers_Impact(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/plugins/Economy/impact", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var impact ImpactAnalysis
	if err := json.NewDecoder(w.Body).Decode(&impact); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if impact.TotalImpact != 1 || impact.AllDependents[0] != "Shops" {
		t.Errorf("Unexpected impact: %+v", impact)
	}
}

func TestDependencyHandlers_NotFound(t *testing.T) {
	router := newTestRouter()

	for _, path := range []string{"/plugins/Nope/dependencies", "/plugins/Nope/dependents", "/plugins/Nope/impact"} {
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected status 404, got %d", path, w.Code)
		}
	}
}

func TestDependencyHandlers_Graph(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/plugins/graph", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var graph CytoscapeGraph
	if err := json.NewDecoder(w.Body).Decode(&graph); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(graph.Nodes) != 4 {
		t.Errorf("Expected 4 nodes, got %d", len(graph.Nodes))
	}
	if len(graph.Edges) != 3 {
		t.Errorf("Expected 3 edges, got %d", len(graph.Edges))
	}
}
