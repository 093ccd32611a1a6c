package host

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/platinummonkey/patchbridge/pkg/async"
	"github.com/platinummonkey/patchbridge/pkg/bridge"
	"github.com/platinummonkey/patchbridge/pkg/config"
	"github.com/platinummonkey/patchbridge/pkg/events"
	"github.com/platinummonkey/patchbridge/pkg/observability"
	"github.com/platinummonkey/patchbridge/pkg/pluginapi"
	"github.com/platinummonkey/patchbridge/pkg/plugins"
	"github.com/platinummonkey/patchbridge/pkg/resolver"
)

const instrumentationName = "github.com/platinummonkey/patchbridge"

var (
	// ErrAlreadyStarted is returned by a second Start
	ErrAlreadyStarted = errors.New("runtime already started")
	// ErrUnknownHandle is returned for plugin handles the runtime never issued
	ErrUnknownHandle = errors.New("unknown plugin handle")
)

// Runtime owns every long-lived component of the host process
type Runtime struct {
	cfg     *config.Config
	log     *logrus.Logger
	version string

	registry   *prometheus.Registry
	metrics    *observability.Metrics
	bridge     *bridge.Bridge
	registries *bridge.RegistryCache
	dispatcher *events.Dispatcher
	resolver   *resolver.Resolver
	loader     *plugins.Loader
	manager    *plugins.Manager
	server     *Server
	handles    *Handles
	health     *observability.HealthChecker

	mu       sync.Mutex
	started  bool
	cancel   context.CancelFunc
	otel     *observability.OTelProviders
	pruner   *cron.Cron
	admin    *http.Server
	listener net.Listener
}

// Option configures a Runtime
type Option func(*Runtime)

// WithLogger replaces the logger built from configuration
func WithLogger(log *logrus.Logger) Option {
	return func(r *Runtime) {
		if log != nil {
			r.log = log
		}
	}
}

// WithVersion sets the version reported by health checks and OpenTelemetry
func WithVersion(version string) Option {
	return func(r *Runtime) {
		if version != "" {
			r.version = version
		}
	}
}

// WithRegistry sets the Prometheus registry metrics are registered in
func WithRegistry(registry *prometheus.Registry) Option {
	return func(r *Runtime) {
		if registry != nil {
			r.registry = registry
		}
	}
}

// New wires a Runtime from cfg. Nothing runs until Start.
func New(cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	r := &Runtime{
		cfg:     cfg,
		version: cfg.Observability.OTelServiceVersion,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat, os.Stderr)
	}
	if r.registry == nil {
		r.registry = prometheus.NewRegistry()
	}

	var recorders observability.MultiRecorder
	if cfg.Observability.MetricsEnabled {
		r.metrics = observability.NewMetrics(r.registry)
		recorders = append(recorders, r.metrics)
	}
	if cfg.Observability.OTelEnabled {
		om, err := observability.NewOTelMetrics()
		if err != nil {
			return nil, fmt.Errorf("creating OpenTelemetry instruments: %w", err)
		}
		recorders = append(recorders, om)
	}
	tracer := otel.Tracer(instrumentationName)

	r.bridge = bridge.New(bridge.WithLogger(r.log), bridge.WithObserver(recorders))
	r.registries = bridge.NewRegistryCache(r.bridge, cfg.Bridge.RegistryCacheSize, cfg.Bridge.RegistryCacheTTL)
	if r.metrics != nil {
		if err := r.metrics.RegisterCacheStats("registry", r.registries.Stats); err != nil {
			return nil, err
		}
	}
	r.dispatcher = events.NewDispatcher(events.WithLogger(r.log), events.WithObserver(recorders))
	r.server = NewServer(r.bridge, r.dispatcher, r.registries, r.log)

	r.resolver = resolver.New(
		resolver.WithRepositories(cfg.Resolver.Repositories),
		resolver.WithHTTPClient(&http.Client{Timeout: cfg.Resolver.HTTPTimeout}),
		resolver.WithLogger(r.log),
		resolver.WithWorkers(cfg.Resolver.Workers),
		resolver.WithObserver(recorders),
		resolver.WithTracer(tracer),
	)
	r.loader = plugins.NewLoader(
		plugins.WithResolver(r.resolver),
		plugins.WithLibsDirName(cfg.Plugins.LibsDirName),
		plugins.WithLogger(r.log),
		plugins.WithTracer(tracer),
		plugins.WithObserver(recorders),
	)
	r.manager = plugins.NewManager(cfg.Plugins.Dir, r.loader, r.log)
	r.manager.OnDisable(func(name string) {
		if n := r.dispatcher.UnregisterPlugin(name); n > 0 {
			r.log.WithFields(logrus.Fields{"plugin": name, "listeners": n}).Debug("Dropped event listeners")
		}
	})
	r.handles = NewHandles()
	r.health = r.newHealthChecker()
	return r, nil
}

func (r *Runtime) newHealthChecker() *observability.HealthChecker {
	checker := observability.NewHealthChecker(r.version)
	checker.AddCheck("bridge", false, func(context.Context) observability.DependencyStatus {
		if !r.bridge.Registered() {
			return observability.DependencyStatus{
				Status:  observability.StatusUnhealthy,
				Message: "native function table not registered",
			}
		}
		return observability.DependencyStatus{Status: observability.StatusHealthy}
	})
	checker.AddCheck("plugins", false, func(context.Context) observability.DependencyStatus {
		counts := r.manager.StateCounts()
		if n := counts[plugins.StateErrored.String()]; n > 0 {
			return observability.DependencyStatus{
				Status:  observability.StatusDegraded,
				Message: fmt.Sprintf("%d plugin(s) errored", n),
			}
		}
		return observability.DependencyStatus{
			Status:  observability.StatusHealthy,
			Message: fmt.Sprintf("%d plugin(s) known", r.manager.Count()),
		}
	})
	return checker
}

// Bridge returns the bridge
func (r *Runtime) Bridge() *bridge.Bridge { return r.bridge }

// Manager returns the plugin manager
func (r *Runtime) Manager() *plugins.Manager { return r.manager }

// Dispatcher returns the event dispatcher
func (r *Runtime) Dispatcher() *events.Dispatcher { return r.dispatcher }

// Server returns the pluginapi.Server implementation
func (r *Runtime) Server() *Server { return r.server }

// Logger returns the runtime logger
func (r *Runtime) Logger() *logrus.Logger { return r.log }

// AdminAddr returns the address the admin server listens on, or "" when
// it is not running
func (r *Runtime) AdminAddr() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return ""
	}
	return r.listener.Addr().String()
}

// RegisterNatives binds the native function table. addrs are in native
// registration order.
func (r *Runtime) RegisterNatives(addrs []uintptr) error {
	if err := r.bridge.Register(bridge.AddressesFromSlice(addrs)); err != nil {
		return err
	}
	// registry data belongs to the core that owned the previous table
	r.registries.Purge()
	return nil
}

// Start installs the plugin-facing server, starts the admin server and
// the cache pruner, then discovers and loads every plugin archive in the
// plugins directory. Plugins are not enabled.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return ErrAlreadyStarted
	}

	obs := r.cfg.Observability
	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        obs.OTelEnabled,
		Endpoint:       obs.OTelEndpoint,
		ServiceName:    obs.OTelServiceName,
		ServiceVersion: r.version,
		Insecure:       obs.OTelInsecure,
	}, r.log)
	if err != nil {
		return fmt.Errorf("initializing OpenTelemetry: %w", err)
	}
	r.otel = providers

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	pluginapi.SetServer(r.server)

	if r.cfg.Admin.Addr != "" {
		if err := r.startAdmin(runCtx); err != nil {
			cancel()
			return err
		}
	}
	if r.cfg.Resolver.PruneSchedule != "" {
		if err := r.startPruner(); err != nil {
			cancel()
			return err
		}
	}

	n, err := r.manager.Discover()
	if err != nil {
		r.log.WithError(err).Warn("Plugin discovery failed")
	}
	if err := r.manager.LoadAll(runCtx); err != nil {
		r.log.WithError(err).Warn("Some plugins could not be loaded")
	}
	r.recordStates()

	if r.cfg.Plugins.Watch {
		watcher := plugins.NewWatcher(r.manager, r.log, r.cfg.Plugins.SettleDelay)
		async.SafeGo(runCtx, r.log, 0, "plugin-watcher", watcher.Run)
	}

	r.started = true
	r.log.WithFields(logrus.Fields{
		"plugins_dir": r.manager.Dir(),
		"discovered":  n,
	}).Info("Plugin host started")
	return nil
}

func (r *Runtime) startAdmin(ctx context.Context) error {
	ln, err := net.Listen("tcp", r.cfg.Admin.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", r.cfg.Admin.Addr, err)
	}
	r.listener = ln
	r.admin = &http.Server{
		Handler:      r.Handler(),
		ReadTimeout:  r.cfg.Admin.ReadTimeout,
		WriteTimeout: r.cfg.Admin.WriteTimeout,
	}
	srv := r.admin
	async.SafeGo(ctx, r.log, 0, "admin-server", func(context.Context) error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	r.log.WithField("addr", ln.Addr().String()).Info("Admin server listening")
	return nil
}

func (r *Runtime) startPruner() error {
	cache := resolver.NewCache(filepath.Join(r.manager.Dir(), r.cfg.Plugins.LibsDirName))
	maxAge := r.cfg.Resolver.MaxAge
	r.pruner = cron.New()
	_, err := r.pruner.AddFunc(r.cfg.Resolver.PruneSchedule, func() {
		defer observability.RecoverPanic(r.log, "library cache prune")
		removed, err := cache.PruneOldEntries(maxAge)
		if err != nil {
			r.log.WithError(err).Warn("Library cache prune failed")
			return
		}
		r.log.WithField("removed", removed).Info("Pruned library cache")
	})
	if err != nil {
		r.pruner = nil
		return fmt.Errorf("scheduling library cache prune: %w", err)
	}
	r.pruner.Start()
	return nil
}

// CreatePlugin loads one plugin on behalf of the native core and returns
// its handle, or 0 when the plugin could not be created. An empty archive
// path selects a compiled-in plugin registered with plugins.RegisterFactory.
func (r *Runtime) CreatePlugin(ctx context.Context, archivePath, mainClass, extraClasspath, libraryCoordinates string) int64 {
	if archivePath == "" && plugins.HasFactory(mainClass) {
		return r.handles.Put(r.loader.LoadClass(mainClass))
	}
	inst := r.loader.CreatePluginContext(ctx, archivePath, mainClass, extraClasspath, libraryCoordinates)
	return r.handles.Put(inst)
}

// EnablePlugin runs OnEnable for a plugin created through CreatePlugin
func (r *Runtime) EnablePlugin(handle int64) error {
	inst := r.handles.Get(handle)
	if inst == nil {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, handle)
	}
	return r.loader.Enable(inst)
}

// DisablePlugin runs OnDisable for a plugin created through CreatePlugin.
// The handle stays valid.
func (r *Runtime) DisablePlugin(handle int64) error {
	inst := r.handles.Get(handle)
	if inst == nil {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, handle)
	}
	return r.loader.Disable(inst)
}

// EnableAll enables every discovered plugin in dependency order
func (r *Runtime) EnableAll() {
	r.manager.EnableAll()
	r.recordStates()
}

// DisableAll disables every discovered plugin in reverse dependency order
func (r *Runtime) DisableAll() {
	r.manager.DisableAll()
	r.recordStates()
}

// FireEvent delivers a native event to the listeners registered for it.
// It reports whether the event ended up cancelled.
func (r *Runtime) FireEvent(eventType string, payload []byte, plugin string) (bool, error) {
	return r.dispatcher.Fire(eventType, payload, plugin)
}

func (r *Runtime) recordStates() {
	if r.metrics != nil {
		r.metrics.SetPluginStates(r.manager.StateCounts())
	}
}

// Shutdown disables and unloads every plugin, releases handle-owned
// environments and stops the background services. It is safe to call on
// a runtime that never started.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.manager.DisableAll()
	r.manager.UnloadAll()
	for _, inst := range r.handles.Drain() {
		if err := inst.Close(); err != nil {
			r.log.WithField("main", inst.MainClass).WithError(err).Warn("Closing plugin environment failed")
		}
	}
	r.recordStates()

	if r.pruner != nil {
		<-r.pruner.Stop().Done()
		r.pruner = nil
	}

	sm := observability.NewShutdownManager(r.log, r.admin, r.cfg.Admin.ShutdownTimeout)
	providers := r.otel
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, r.log)
	})
	err := sm.Shutdown(ctx)

	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	if r.started {
		pluginapi.SetServer(nil)
	}
	r.admin = nil
	r.listener = nil
	r.otel = nil
	r.started = false
	r.log.Info("Plugin host stopped")
	return err
}
