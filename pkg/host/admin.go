package host

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/patchbridge/pkg/bridge"
	"github.com/platinummonkey/patchbridge/pkg/dependencies"
	"github.com/platinummonkey/patchbridge/pkg/httputil"
	"github.com/platinummonkey/patchbridge/pkg/observability"
	"github.com/platinummonkey/patchbridge/pkg/plugins"
)

type listenerView struct {
	Plugin          string `json:"plugin"`
	Priority        string `json:"priority"`
	IgnoreCancelled bool   `json:"ignore_cancelled"`
}

// Handler builds the admin HTTP handler
func (r *Runtime) Handler() http.Handler {
	router := mux.NewRouter()
	if r.metrics != nil {
		router.Use(observability.HTTPMetricsMiddleware(r.metrics))
	}

	// graph routes first so /plugins/order is not taken as a plugin name
	dependencies.NewDependencyHandlers(r.manager).RegisterRoutes(router)

	router.HandleFunc("/plugins", r.listPlugins).Methods("GET")
	router.HandleFunc("/plugins/{name}", r.getPlugin).Methods("GET")
	router.HandleFunc("/plugins/{name}/enable", r.enablePlugin).Methods("POST")
	router.HandleFunc("/plugins/{name}/disable", r.disablePlugin).Methods("POST")
	router.HandleFunc("/events/{type}/listeners", r.listListeners).Methods("GET")
	router.HandleFunc("/registries/{name}", r.getRegistry).Methods("GET")

	observability.RegisterHealthRoutes(router, r.health)
	if r.metrics != nil {
		observability.RegisterMetricsEndpoint(router, r.metrics)
	}

	handler := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.RecoveryMiddleware(r.log),
		httputil.LoggingMiddleware(r.log),
	)(router)
	return otelhttp.NewHandler(handler, "patchbridge-admin")
}

// listPlugins handles GET /plugins
func (r *Runtime) listPlugins(w http.ResponseWriter, req *http.Request) {
	list := r.manager.List()
	httputil.WriteSuccess(w, map[string]interface{}{
		"plugins": list,
		"count":   len(list),
	})
}

// getPlugin handles GET /plugins/{name}
func (r *Runtime) getPlugin(w http.ResponseWriter, req *http.Request) {
	name := mux.Vars(req)["name"]
	info, ok := r.manager.Get(name)
	if !ok {
		httputil.WriteNotFoundError(w, fmt.Sprintf("plugin not found: %s", name))
		return
	}
	httputil.WriteSuccess(w, info)
}

// enablePlugin handles POST /plugins/{name}/enable
func (r *Runtime) enablePlugin(w http.ResponseWriter, req *http.Request) {
	r.changeState(w, mux.Vars(req)["name"], r.manager.Enable)
}

// disablePlugin handles POST /plugins/{name}/disable
func (r *Runtime) disablePlugin(w http.ResponseWriter, req *http.Request) {
	r.changeState(w, mux.Vars(req)["name"], r.manager.Disable)
}

func (r *Runtime) changeState(w http.ResponseWriter, name string, fn func(string) error) {
	err := fn(name)
	r.recordStates()
	switch {
	case errors.Is(err, plugins.ErrPluginNotFound):
		httputil.WriteNotFoundError(w, err.Error())
		return
	case err != nil:
		httputil.WriteConflict(w, err.Error())
		return
	}
	info, _ := r.manager.Get(name)
	httputil.WriteSuccess(w, info)
}

// listListeners handles GET /events/{type}/listeners
func (r *Runtime) listListeners(w http.ResponseWriter, req *http.Request) {
	eventType := mux.Vars(req)["type"]
	if !r.dispatcher.Supports(eventType) {
		httputil.WriteNotFoundError(w, fmt.Sprintf("unknown event type: %s", eventType))
		return
	}
	listeners := r.dispatcher.Listeners(eventType)
	out := make([]listenerView, 0, len(listeners))
	for _, l := range listeners {
		out = append(out, listenerView{
			Plugin:          l.Plugin,
			Priority:        l.Priority.String(),
			IgnoreCancelled: l.IgnoreCancelled,
		})
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"event_type": eventType,
		"listeners":  out,
	})
}

// getRegistry handles GET /registries/{name}
func (r *Runtime) getRegistry(w http.ResponseWriter, req *http.Request) {
	reg, err := r.server.Registry(mux.Vars(req)["name"])
	switch {
	case errors.Is(err, bridge.ErrRegistryNotFound):
		httputil.WriteNotFoundError(w, err.Error())
		return
	case errors.Is(err, bridge.ErrUnregistered):
		httputil.WriteServiceUnavailable(w, err.Error())
		return
	case err != nil:
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, reg)
}
