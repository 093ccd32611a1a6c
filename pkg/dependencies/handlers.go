package dependencies

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
)

// GraphSource supplies a snapshot of the current plugin graph
type GraphSource interface {
	DependencyGraph() *Graph
}

// DependencyHandlers provides HTTP handlers for the plugin graph
type DependencyHandlers struct {
	source GraphSource
}

// NewDependencyHandlers creates new dependency handlers
func NewDependencyHandlers(source GraphSource) *DependencyHandlers {
	return &DependencyHandlers{source: source}
}

// RegisterRoutes registers dependency routes
func (h *DependencyHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/plugins/order", h.getLoadOrder).Methods("GET")
	router.HandleFunc("/plugins/graph", h.getGraph).Methods("GET")
	router.HandleFunc("/plugins/{name}/dependencies", h.getDependencies).Methods("GET")
	router.HandleFunc("/plugins/{name}/dependents", h.getDependents).Methods("GET")
	router.HandleFunc("/plugins/{name}/impact", h.getImpact).Methods("GET")
}

// getLoadOrder handles GET /plugins/order
func (h *DependencyHandlers) getLoadOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.source.DependencyGraph().LoadOrder()
	resp := map[string]interface{}{
		"order": order,
		"count": len(order),
	}
	var cycle *CycleError
	if errors.As(err, &cycle) {
		resp["cyclic"] = cycle.Plugins
	}
	writeJSON(w, http.StatusOK, resp)
}

// getGraph handles GET /plugins/graph
func (h *DependencyHandlers) getGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.source.DependencyGraph().ToCytoscape())
}

// getDependencies handles GET /plugins/{name}/dependencies
func (h *DependencyHandlers) getDependencies(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	g := h.source.DependencyGraph()
	if g.GetNode(name) == nil {
		http.Error(w, "plugin not found", http.StatusNotFound)
		return
	}
	deps := g.GetDependencies(name)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"plugin":       name,
		"dependencies": deps,
		"missing":      g.MissingDependencies(name),
		"count":        len(deps),
	})
}

// getDependents handles GET /plugins/{name}/dependents
func (h *DependencyHandlers) getDependents(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	g := h.source.DependencyGraph()
	if g.GetNode(name) == nil {
		http.Error(w, "plugin not found", http.StatusNotFound)
		return
	}
	dependents := g.GetDependents(name)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"plugin":     name,
		"dependents": dependents,
		"count":      len(dependents),
	})
}

// getImpact handles GET /plugins/{name}/impact
func (h *DependencyHandlers) getImpact(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	g := h.source.DependencyGraph()
	if g.GetNode(name) == nil {
		http.Error(w, "plugin not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, g.GetImpactAnalysis(name))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
