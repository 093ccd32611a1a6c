package plugins

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/patchbridge/pkg/pluginapi"
)

const (
	// DefaultLibsDirName is the directory next to the archive that receives
	// resolved libraries
	DefaultLibsDirName = "patchbridge-libs"

	SourceArchive = "archive"
	SourceFactory = "factory"

	OutcomeLoaded = "loaded"
	OutcomeFailed = "failed"
)

// LibraryResolver turns newline separated coordinates into local files
// under cacheDir
type LibraryResolver interface {
	Resolve(ctx context.Context, coordinates string, cacheDir string) []string
}

// Observer receives loader metrics
type Observer interface {
	ObserveLoad(source, outcome string, elapsed time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveLoad(string, string, time.Duration) {}

// Instance is an instantiated plugin together with the environment it runs
// in. Factory plugins have no environment.
type Instance struct {
	pluginapi.Plugin

	MainClass string
	Env       *Environment
}

// Close releases the plugin's environment
func (i *Instance) Close() error {
	if i == nil || i.Env == nil {
		return nil
	}
	return i.Env.Close()
}

// Loader instantiates plugins. Every failure is logged and turned into a
// nil result; nothing panics out of it.
type Loader struct {
	resolver    LibraryResolver
	libsDirName string
	log         *logrus.Logger
	tracer      trace.Tracer
	observer    Observer
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

// WithResolver sets the library resolver. Without one, declared libraries
// are ignored.
func WithResolver(r LibraryResolver) LoaderOption {
	return func(l *Loader) {
		l.resolver = r
	}
}

// WithLibsDirName sets the per-archive library directory name
func WithLibsDirName(name string) LoaderOption {
	return func(l *Loader) {
		if name != "" {
			l.libsDirName = name
		}
	}
}

// WithLogger sets the logger
func WithLogger(log *logrus.Logger) LoaderOption {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

// WithTracer sets the tracer used for load spans
func WithTracer(t trace.Tracer) LoaderOption {
	return func(l *Loader) {
		if t != nil {
			l.tracer = t
		}
	}
}

// WithObserver sets the metrics observer
func WithObserver(o Observer) LoaderOption {
	return func(l *Loader) {
		if o != nil {
			l.observer = o
		}
	}
}

// NewLoader creates a new plugin loader
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		libsDirName: DefaultLibsDirName,
		log:         logrus.New(),
		tracer:      otel.Tracer("github.com/platinummonkey/patchbridge/pkg/plugins"),
		observer:    noopObserver{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreatePlugin loads the plugin archive in a fresh environment and
// instantiates mainClass. extraClasspath is joined with
// os.PathListSeparator; libraryCoordinates is newline separated. It returns
// nil on any failure.
func (l *Loader) CreatePlugin(archivePath, mainClass, extraClasspath, libraryCoordinates string) *Instance {
	return l.CreatePluginContext(context.Background(), archivePath, mainClass, extraClasspath, libraryCoordinates)
}

// CreatePluginContext is CreatePlugin with a context for library resolution
func (l *Loader) CreatePluginContext(ctx context.Context, archivePath, mainClass, extraClasspath, libraryCoordinates string) (inst *Instance) {
	start := time.Now()
	ctx, span := l.tracer.Start(ctx, "plugins.CreatePlugin", trace.WithAttributes(
		attribute.String("plugin.archive", archivePath),
		attribute.String("plugin.main", mainClass),
	))
	defer span.End()

	fields := logrus.Fields{"archive": archivePath, "main": mainClass}

	defer func() {
		if r := recover(); r != nil {
			l.log.WithFields(fields).WithField("stack", string(debug.Stack())).
				Errorf("Panic while creating plugin: %v", r)
			span.SetStatus(codes.Error, fmt.Sprint(r))
			inst = nil
		}
		outcome := OutcomeLoaded
		if inst == nil {
			outcome = OutcomeFailed
		}
		l.observer.ObserveLoad(SourceArchive, outcome, time.Since(start))
	}()

	inst, err := l.createPlugin(ctx, archivePath, mainClass, extraClasspath, libraryCoordinates)
	if err != nil {
		l.log.WithFields(fields).WithError(err).Error("Failed to create plugin")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil
	}

	l.log.WithFields(fields).WithField("classpath", len(inst.Env.Classpath)).Info("Created plugin")
	return inst
}

func (l *Loader) createPlugin(ctx context.Context, archivePath, mainClass, extraClasspath, libraryCoordinates string) (*Instance, error) {
	info, err := os.Stat(archivePath)
	if err != nil {
		return nil, fmt.Errorf("plugin archive not accessible: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("plugin archive is a directory: %s", archivePath)
	}

	classpath := l.classpath(ctx, archivePath, extraClasspath, libraryCoordinates)

	env, err := NewEnvironment(archivePath, classpath)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare environment: %w", err)
	}

	plugin, err := instantiate(env, mainClass)
	if err != nil {
		env.Close()
		return nil, err
	}

	return &Instance{Plugin: plugin, MainClass: mainClass, Env: env}, nil
}

// instantiate runs plugin code, so panics from init functions and
// constructors are converted to errors here
func instantiate(env *Environment, mainClass string) (plugin pluginapi.Plugin, err error) {
	defer func() {
		if r := recover(); r != nil {
			plugin = nil
			err = fmt.Errorf("panic while instantiating %s: %v", mainClass, r)
		}
	}()
	return env.Instantiate(mainClass)
}

// classpath assembles the extra entries followed by resolved libraries
func (l *Loader) classpath(ctx context.Context, archivePath, extraClasspath, libraryCoordinates string) []string {
	extra := SplitClasspath(extraClasspath)

	var libs []string
	if l.resolver != nil && strings.TrimSpace(libraryCoordinates) != "" {
		libsDir := filepath.Join(filepath.Dir(archivePath), l.libsDirName)
		libs = l.resolver.Resolve(ctx, libraryCoordinates, libsDir)
	}

	return mergeClasspath(extra, libs)
}

// LoadClass instantiates a compiled-in plugin registered with
// RegisterFactory. It returns nil when no factory matches or the factory
// fails.
func (l *Loader) LoadClass(mainClass string) (inst *Instance) {
	start := time.Now()
	log := l.log.WithField("main", mainClass)

	defer func() {
		if r := recover(); r != nil {
			log.WithField("stack", string(debug.Stack())).Errorf("Panic while creating plugin: %v", r)
			inst = nil
		}
		outcome := OutcomeLoaded
		if inst == nil {
			outcome = OutcomeFailed
		}
		l.observer.ObserveLoad(SourceFactory, outcome, time.Since(start))
	}()

	factory, err := LookupFactory(mainClass)
	if err != nil {
		log.WithError(err).Error("Failed to load plugin type")
		return nil
	}

	plugin := factory()
	if plugin == nil {
		log.Error("Plugin factory returned nil")
		return nil
	}

	log.Info("Created plugin")
	return &Instance{Plugin: plugin, MainClass: mainClass}
}

// ErrNilInstance is returned when enabling or disabling a missing plugin
var ErrNilInstance = errors.New("plugin instance is nil")

// Enable calls the plugin's OnEnable
func (l *Loader) Enable(inst *Instance) error {
	return l.call(inst, "OnEnable", func() error { return inst.OnEnable() })
}

// Disable calls the plugin's OnDisable
func (l *Loader) Disable(inst *Instance) error {
	return l.call(inst, "OnDisable", func() error { return inst.OnDisable() })
}

func (l *Loader) call(inst *Instance, method string, fn func() error) (err error) {
	if inst == nil || inst.Plugin == nil {
		return ErrNilInstance
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s.%s: %v", inst.MainClass, method, r)
		}
	}()
	if err := fn(); err != nil {
		return fmt.Errorf("%s.%s: %w", inst.MainClass, method, err)
	}
	return nil
}
