package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives every measurement the host produces. It satisfies the
// observer interfaces of the bridge, loader, resolver and event dispatcher.
type Recorder interface {
	ObserveCall(op, outcome string, elapsed time.Duration)
	ObserveLoad(source, outcome string, elapsed time.Duration)
	ObserveFetch(source string, bytes int64)
	ObserveResolve(outcome string, elapsed time.Duration)
	ObserveFire(eventType, outcome string, listeners int, elapsed time.Duration)
}

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Bridge metrics
	BridgeCallsTotal   *prometheus.CounterVec
	BridgeCallDuration *prometheus.HistogramVec

	// Plugin metrics
	PluginLoadsTotal   *prometheus.CounterVec
	PluginLoadDuration *prometheus.HistogramVec
	PluginsByState     *prometheus.GaugeVec

	// Resolver metrics
	ResolverFetchesTotal *prometheus.CounterVec
	ResolverFetchedBytes *prometheus.CounterVec
	ResolveTotal         *prometheus.CounterVec
	ResolveDuration      *prometheus.HistogramVec

	// Event metrics
	EventsFiredTotal    *prometheus.CounterVec
	EventDispatchLength *prometheus.HistogramVec
	EventListenersTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patchbridge_http_requests_total",
				Help: "Total number of admin HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "patchbridge_http_request_duration_seconds",
				Help:    "Admin HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		BridgeCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patchbridge_bridge_calls_total",
				Help: "Total number of calls into the native core",
			},
			[]string{"op", "outcome"},
		),
		BridgeCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "patchbridge_bridge_call_duration_seconds",
				Help:    "Duration of calls into the native core in seconds",
				Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
			},
			[]string{"op"},
		),

		PluginLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patchbridge_plugin_loads_total",
				Help: "Total number of plugin instantiations",
			},
			[]string{"source", "outcome"},
		),
		PluginLoadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "patchbridge_plugin_load_duration_seconds",
				Help:    "Plugin instantiation duration in seconds",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
			},
			[]string{"source"},
		),
		PluginsByState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "patchbridge_plugins",
				Help: "Number of managed plugins by state",
			},
			[]string{"state"},
		),

		ResolverFetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patchbridge_resolver_fetches_total",
				Help: "Total number of library files fetched, by repository or cache",
			},
			[]string{"source"},
		),
		ResolverFetchedBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patchbridge_resolver_fetched_bytes_total",
				Help: "Total bytes downloaded from repositories",
			},
			[]string{"source"},
		),
		ResolveTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patchbridge_resolver_coordinates_total",
				Help: "Total number of coordinates resolved",
			},
			[]string{"outcome"},
		),
		ResolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "patchbridge_resolver_duration_seconds",
				Help:    "Coordinate resolution duration in seconds",
				Buckets: []float64{.01, .1, .5, 1, 5, 10, 30, 60, 120},
			},
			[]string{"outcome"},
		),

		EventsFiredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patchbridge_events_fired_total",
				Help: "Total number of events fired by the native core",
			},
			[]string{"event_type", "outcome"},
		),
		EventDispatchLength: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "patchbridge_event_dispatch_duration_seconds",
				Help:    "Time spent running listeners for one event in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
			},
			[]string{"event_type"},
		),
		EventListenersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patchbridge_event_listener_invocations_total",
				Help: "Total number of listener invocations",
			},
			[]string{"event_type"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BridgeCallsTotal,
		m.BridgeCallDuration,
		m.PluginLoadsTotal,
		m.PluginLoadDuration,
		m.PluginsByState,
		m.ResolverFetchesTotal,
		m.ResolverFetchedBytes,
		m.ResolveTotal,
		m.ResolveDuration,
		m.EventsFiredTotal,
		m.EventDispatchLength,
		m.EventListenersTotal,
	)

	return m
}

// ObserveCall records one downcall
func (m *Metrics) ObserveCall(op, outcome string, elapsed time.Duration) {
	m.BridgeCallsTotal.WithLabelValues(op, outcome).Inc()
	m.BridgeCallDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveLoad records one plugin instantiation
func (m *Metrics) ObserveLoad(source, outcome string, elapsed time.Duration) {
	m.PluginLoadsTotal.WithLabelValues(source, outcome).Inc()
	m.PluginLoadDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// ObserveFetch records one library file served from source
func (m *Metrics) ObserveFetch(source string, bytes int64) {
	m.ResolverFetchesTotal.WithLabelValues(source).Inc()
	if bytes > 0 {
		m.ResolverFetchedBytes.WithLabelValues(source).Add(float64(bytes))
	}
}

// ObserveResolve records one coordinate resolution
func (m *Metrics) ObserveResolve(outcome string, elapsed time.Duration) {
	m.ResolveTotal.WithLabelValues(outcome).Inc()
	m.ResolveDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveFire records one fired event
func (m *Metrics) ObserveFire(eventType, outcome string, listeners int, elapsed time.Duration) {
	m.EventsFiredTotal.WithLabelValues(eventType, outcome).Inc()
	m.EventDispatchLength.WithLabelValues(eventType).Observe(elapsed.Seconds())
	if listeners > 0 {
		m.EventListenersTotal.WithLabelValues(eventType).Add(float64(listeners))
	}
}

// SetPluginStates replaces the per-state plugin gauge
func (m *Metrics) SetPluginStates(counts map[string]int) {
	m.PluginsByState.Reset()
	for state, n := range counts {
		m.PluginsByState.WithLabelValues(state).Set(float64(n))
	}
}

// RegisterCacheStats exports hit and miss counters read from stats
func (m *Metrics) RegisterCacheStats(cache string, stats func() (hits, misses int64)) error {
	hits := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name:        "patchbridge_cache_hits_total",
		Help:        "Total number of cache hits",
		ConstLabels: prometheus.Labels{"cache": cache},
	}, func() float64 {
		h, _ := stats()
		return float64(h)
	})
	misses := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name:        "patchbridge_cache_misses_total",
		Help:        "Total number of cache misses",
		ConstLabels: prometheus.Labels{"cache": cache},
	}, func() float64 {
		_, mi := stats()
		return float64(mi)
	})
	if err := m.registry.Register(hits); err != nil {
		return err
	}
	return m.registry.Register(misses)
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// Requests are labelled with the matched route template.
func HTTPMetricsMiddleware(metrics *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(router *mux.Router, metrics *Metrics) {
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
}

// MultiRecorder fans every measurement out to each recorder
type MultiRecorder []Recorder

func (m MultiRecorder) ObserveCall(op, outcome string, elapsed time.Duration) {
	for _, r := range m {
		r.ObserveCall(op, outcome, elapsed)
	}
}

func (m MultiRecorder) ObserveLoad(source, outcome string, elapsed time.Duration) {
	for _, r := range m {
		r.ObserveLoad(source, outcome, elapsed)
	}
}

func (m MultiRecorder) ObserveFetch(source string, bytes int64) {
	for _, r := range m {
		r.ObserveFetch(source, bytes)
	}
}

func (m MultiRecorder) ObserveResolve(outcome string, elapsed time.Duration) {
	for _, r := range m {
		r.ObserveResolve(outcome, elapsed)
	}
}

func (m MultiRecorder) ObserveFire(eventType, outcome string, listeners int, elapsed time.Duration) {
	for _, r := range m {
		r.ObserveFire(eventType, outcome, listeners, elapsed)
	}
}
