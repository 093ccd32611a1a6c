package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	return NewMetrics(registry), registry
}

func TestMetrics_Observers(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.ObserveCall("sendMessage", "ok", time.Millisecond)
	m.ObserveCall("sendMessage", "ok", time.Millisecond)
	m.ObserveCall("getWorld", "absent", time.Millisecond)
	m.ObserveLoad("archive", "loaded", time.Second)
	m.ObserveLoad("factory", "failed", time.Millisecond)
	m.ObserveFetch("central", 2048)
	m.ObserveFetch("cache", 0)
	m.ObserveResolve("ok", 3*time.Second)
	m.ObserveFire("org.bukkit.event.player.PlayerJoinEvent", "delivered", 3, time.Millisecond)

	tests := []struct {
		name      string
		collector prometheus.Collector
		want      float64
	}{
		{"calls ok", m.BridgeCallsTotal.WithLabelValues("sendMessage", "ok"), 2},
		{"calls absent", m.BridgeCallsTotal.WithLabelValues("getWorld", "absent"), 1},
		{"loads archive", m.PluginLoadsTotal.WithLabelValues("archive", "loaded"), 1},
		{"loads factory", m.PluginLoadsTotal.WithLabelValues("factory", "failed"), 1},
		{"fetch central", m.ResolverFetchesTotal.WithLabelValues("central"), 1},
		{"fetch cache", m.ResolverFetchesTotal.WithLabelValues("cache"), 1},
		{"bytes central", m.ResolverFetchedBytes.WithLabelValues("central"), 2048},
		{"resolves", m.ResolveTotal.WithLabelValues("ok"), 1},
		{"events", m.EventsFiredTotal.WithLabelValues("org.bukkit.event.player.PlayerJoinEvent", "delivered"), 1},
		{"listeners", m.EventListenersTotal.WithLabelValues("org.bukkit.event.player.PlayerJoinEvent"), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.collector); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if got := testutil.CollectAndCount(m.ResolverFetchedBytes); got != 1 {
		t.Errorf("expected no byte series for cache hits, got %d series", got)
	}
}

func TestMetrics_SetPluginStates(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.SetPluginStates(map[string]int{"enabled": 3, "errored": 1})
	if got := testutil.ToFloat64(m.PluginsByState.WithLabelValues("enabled")); got != 3 {
		t.Errorf("enabled = %v", got)
	}

	m.SetPluginStates(map[string]int{"disabled": 4})
	if got := testutil.CollectAndCount(m.PluginsByState); got != 1 {
		t.Errorf("expected stale states to be dropped, got %d series", got)
	}
}

func TestMetrics_RegisterCacheStats(t *testing.T) {
	m, registry := newTestMetrics(t)

	hits, misses := int64(7), int64(2)
	if err := m.RegisterCacheStats("registry", func() (int64, int64) { return hits, misses }); err != nil {
		t.Fatalf("RegisterCacheStats() error = %v", err)
	}

	expected := `
# HELP patchbridge_cache_hits_total Total number of cache hits
# TYPE patchbridge_cache_hits_total counter
patchbridge_cache_hits_total{cache="registry"} 7
# HELP patchbridge_cache_misses_total Total number of cache misses
# TYPE patchbridge_cache_misses_total counter
patchbridge_cache_misses_total{cache="registry"} 2
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"patchbridge_cache_hits_total", "patchbridge_cache_misses_total"); err != nil {
		t.Error(err)
	}

	if err := m.RegisterCacheStats("registry", func() (int64, int64) { return 0, 0 }); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	m, _ := newTestMetrics(t)

	router := mux.NewRouter()
	router.Use(HTTPMetricsMiddleware(m))
	router.HandleFunc("/plugins/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	RegisterMetricsEndpoint(router, m)

	for _, name := range []string{"A", "B"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plugins/"+name, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d", rec.Code)
		}
	}

	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/plugins/{name}", "404")); got != 2 {
		t.Errorf("requests = %v, want 2", got)
	}

	m.ObserveCall("sendMessage", "ok", time.Millisecond)

	server := httptest.NewServer(router)
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `patchbridge_bridge_calls_total{op="sendMessage",outcome="ok"} 1`) {
		t.Errorf("metrics output missing bridge counter:\n%s", body)
	}
}

func TestMultiRecorder(t *testing.T) {
	a, _ := newTestMetrics(t)
	b, _ := newTestMetrics(t)
	rec := MultiRecorder{a, b}

	rec.ObserveCall("getLocation", "ok", time.Millisecond)
	rec.ObserveLoad("archive", "loaded", time.Millisecond)
	rec.ObserveFetch("papermc", 10)
	rec.ObserveResolve("failed", time.Millisecond)
	rec.ObserveFire("x", "noop", 0, time.Millisecond)

	for _, m := range []*Metrics{a, b} {
		if got := testutil.ToFloat64(m.BridgeCallsTotal.WithLabelValues("getLocation", "ok")); got != 1 {
			t.Errorf("calls = %v", got)
		}
		if got := testutil.ToFloat64(m.ResolveTotal.WithLabelValues("failed")); got != 1 {
			t.Errorf("resolves = %v", got)
		}
		if got := testutil.ToFloat64(m.EventsFiredTotal.WithLabelValues("x", "noop")); got != 1 {
			t.Errorf("events = %v", got)
		}
	}
}
