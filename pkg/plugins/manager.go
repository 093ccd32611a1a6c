package plugins

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/patchbridge/pkg/dependencies"
)

var (
	// ErrPluginNotFound is returned for names the manager does not know
	ErrPluginNotFound = errors.New("plugin not found")
	// ErrDuplicatePlugin is returned when two archives declare the same name
	ErrDuplicatePlugin = errors.New("plugin already registered")
)

type managedPlugin struct {
	desc     *Descriptor
	archive  string
	state    PluginState
	err      error
	inst     *Instance
	loadedAt time.Time
}

func (p *managedPlugin) fail(err error) {
	p.state = StateErrored
	p.err = err
}

func (p *managedPlugin) info() PluginInfo {
	info := PluginInfo{
		Name:       p.desc.Name,
		Version:    p.desc.Version,
		Main:       p.desc.Main,
		Archive:    p.archive,
		State:      p.state,
		LoadedAt:   p.loadedAt,
		Descriptor: p.desc,
	}
	if p.err != nil {
		info.Error = p.err.Error()
	}
	return info
}

// Manager owns the plugins found in one directory and drives them through
// their lifecycle in dependency order.
type Manager struct {
	dir    string
	loader *Loader
	log    *logrus.Logger

	mu      sync.RWMutex
	plugins map[string]*managedPlugin
	names   []string // registration order
	order   []string // load order of instantiated plugins

	disableHooks []func(name string)
}

// NewManager creates a manager for the archives in dir
func NewManager(dir string, loader *Loader, log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.New()
	}
	if loader == nil {
		loader = NewLoader(WithLogger(log))
	}
	return &Manager{
		dir:     dir,
		loader:  loader,
		log:     log,
		plugins: make(map[string]*managedPlugin),
	}
}

// OnDisable registers fn to run after a plugin is disabled, whether or not
// its OnDisable succeeded, and after an OnEnable that failed. Hooks run
// with the manager lock held and must not call back into the manager.
func (m *Manager) OnDisable(fn func(name string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disableHooks = append(m.disableHooks, fn)
}

// Dir returns the plugins directory
func (m *Manager) Dir() string {
	return m.dir
}

// IsPluginArchive reports whether path looks like a plugin archive
func IsPluginArchive(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".zip" || ext == ".jar"
}

// Discover registers every archive in the plugins directory. Archives that
// cannot be read are logged and skipped.
func (m *Manager) Discover() (int, error) {
	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		m.log.Debugf("Plugin directory does not exist: %s", m.dir)
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read plugin directory: %w", err)
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() || !IsPluginArchive(entry.Name()) {
			continue
		}
		path := filepath.Join(m.dir, entry.Name())
		if _, err := m.Register(path); err != nil {
			m.log.WithField("archive", path).WithError(err).Warn("Skipping plugin archive")
			continue
		}
		count++
	}
	return count, nil
}

// Register reads and validates an archive's descriptor and records the
// plugin as Registered
func (m *Manager) Register(archivePath string) (*Descriptor, error) {
	desc, err := ReadDescriptor(archivePath)
	if err != nil {
		return nil, err
	}
	if errs := ValidateDescriptor(desc); len(errs) > 0 {
		return nil, fmt.Errorf("descriptor validation failed: %w", errors.Join(validationErrors(errs)...))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.plugins[desc.Name]; ok {
		return nil, fmt.Errorf("%w: %s (from %s)", ErrDuplicatePlugin, desc.Name, existing.archive)
	}
	m.plugins[desc.Name] = &managedPlugin{desc: desc, archive: archivePath, state: StateRegistered}
	m.names = append(m.names, desc.Name)

	m.log.WithFields(logrus.Fields{"plugin": desc.Name, "version": desc.Version}).Info("Registered plugin")
	return desc, nil
}

func validationErrors(errs []ValidationError) []error {
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return out
}

// DependencyGraph builds a graph snapshot of every known plugin
func (m *Manager) DependencyGraph() *dependencies.Graph {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.graphLocked()
}

func (m *Manager) graphLocked() *dependencies.Graph {
	g := dependencies.NewGraph()
	for _, name := range m.names {
		depends, soft, before := m.plugins[name].desc.Relations()
		g.AddNode(name, depends, soft, before)
	}
	return g
}

// LoadAll instantiates every Registered plugin in dependency order.
// Plugins with a missing required dependency, a failed dependency or a
// dependency cycle become Errored.
func (m *Manager) LoadAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, err := m.graphLocked().LoadOrder()
	var cycle *dependencies.CycleError
	if errors.As(err, &cycle) {
		for _, name := range cycle.Plugins {
			m.plugins[name].fail(cycle)
			m.log.WithField("plugin", name).WithError(cycle).Error("Cannot load plugin")
		}
	} else if err != nil {
		return err
	}

	for _, name := range order {
		p := m.plugins[name]
		if p.state != StateRegistered {
			continue
		}
		m.loadLocked(ctx, p)
	}
	return nil
}

// Load instantiates one Registered plugin. Its dependencies must already
// be loaded.
func (m *Manager) Load(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.plugins[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	if p.state != StateRegistered {
		return fmt.Errorf("plugin %s is %s", name, p.state)
	}
	m.loadLocked(ctx, p)
	return p.err
}

func (m *Manager) loadLocked(ctx context.Context, p *managedPlugin) {
	log := m.log.WithField("plugin", p.desc.Name)

	for _, dep := range p.desc.RequiredPlugins() {
		d, ok := m.plugins[dep]
		switch {
		case !ok:
			p.fail(fmt.Errorf("missing required dependency %s", dep))
		case d.state == StateErrored || d.state == StateRegistered:
			p.fail(fmt.Errorf("required dependency %s is %s", dep, d.state))
		}
		if p.state == StateErrored {
			log.WithError(p.err).Error("Cannot load plugin")
			return
		}
	}

	var joins []string
	for _, dep := range p.desc.ClasspathJoins() {
		if d, ok := m.plugins[dep]; ok && d.inst != nil {
			joins = append(joins, d.archive)
		}
	}

	inst := m.loader.CreatePluginContext(ctx, p.archive, p.desc.Main, JoinClasspath(joins), p.desc.LibraryCoordinates())
	if inst == nil {
		p.fail(fmt.Errorf("failed to instantiate %s", p.desc.Main))
		return
	}

	p.inst = inst
	p.state = StateLoaded
	p.err = nil
	p.loadedAt = time.Now()
	m.order = append(m.order, p.desc.Name)
	log.Info("Loaded plugin")
}

// EnableAll enables every Loaded or Disabled plugin in load order
func (m *Manager) EnableAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, name := range m.order {
		p := m.plugins[name]
		if p.state == StateLoaded || p.state == StateDisabled {
			m.enableLocked(p)
		}
	}
}

// DisableAll disables every Enabled plugin in reverse load order
func (m *Manager) DisableAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.order) - 1; i >= 0; i-- {
		p := m.plugins[m.order[i]]
		if p.state == StateEnabled {
			m.disableLocked(p)
		}
	}
}

// Enable enables one plugin
func (m *Manager) Enable(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.plugins[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	switch p.state {
	case StateEnabled:
		return nil
	case StateLoaded, StateDisabled:
		m.enableLocked(p)
		return p.err
	default:
		return fmt.Errorf("plugin %s is %s", name, p.state)
	}
}

// Disable disables one plugin after disabling every plugin that depends
// on it
func (m *Manager) Disable(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.plugins[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	m.disableDependentsLocked(name)
	if p.state == StateEnabled {
		m.disableLocked(p)
	}
	return nil
}

func (m *Manager) enableLocked(p *managedPlugin) {
	log := m.log.WithField("plugin", p.desc.Name)
	for _, dep := range p.desc.RequiredPlugins() {
		if d, ok := m.plugins[dep]; !ok || d.state != StateEnabled {
			p.fail(fmt.Errorf("required dependency %s is not enabled", dep))
			log.WithError(p.err).Error("Failed to enable plugin")
			return
		}
	}
	if err := m.loader.Enable(p.inst); err != nil {
		p.fail(err)
		log.WithError(err).Error("Failed to enable plugin")
		m.runDisableHooks(p.desc.Name)
		return
	}
	p.state = StateEnabled
	log.Info("Enabled plugin")
}

// disableLocked always leaves the plugin Disabled, even when OnDisable fails
func (m *Manager) disableLocked(p *managedPlugin) {
	log := m.log.WithField("plugin", p.desc.Name)
	p.state = StateDisabled
	defer m.runDisableHooks(p.desc.Name)
	if err := m.loader.Disable(p.inst); err != nil {
		log.WithError(err).Error("Failed to disable plugin")
		return
	}
	log.Info("Disabled plugin")
}

func (m *Manager) runDisableHooks(name string) {
	for _, hook := range m.disableHooks {
		hook(name)
	}
}

func (m *Manager) disableDependentsLocked(name string) {
	impact := m.graphLocked().GetImpactAnalysis(name)
	// deepest dependents first
	for i := len(impact.AllDependents) - 1; i >= 0; i-- {
		if d := m.plugins[impact.AllDependents[i]]; d.state == StateEnabled {
			m.disableLocked(d)
		}
	}
}

// Unload disables the plugin and its dependents, closes its environment
// and forgets it
func (m *Manager) Unload(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.plugins[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	m.disableDependentsLocked(name)
	if p.state == StateEnabled {
		m.disableLocked(p)
	}
	err := p.inst.Close()

	delete(m.plugins, name)
	m.names = remove(m.names, name)
	m.order = remove(m.order, name)
	m.log.WithField("plugin", name).Info("Unloaded plugin")
	return err
}

// UnloadAll disables everything and closes every environment
func (m *Manager) UnloadAll() {
	m.DisableAll()

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, name := range m.names {
		if err := m.plugins[name].inst.Close(); err != nil {
			m.log.WithField("plugin", name).WithError(err).Warn("Failed to close plugin environment")
		}
	}
	m.plugins = make(map[string]*managedPlugin)
	m.names = nil
	m.order = nil
}

// Get returns a snapshot of one plugin
func (m *Manager) Get(name string) (PluginInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plugins[name]
	if !ok {
		return PluginInfo{}, false
	}
	return p.info(), true
}

// Instance returns the live plugin instance, or nil before it is loaded
func (m *Manager) Instance(name string) *Instance {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if p, ok := m.plugins[name]; ok {
		return p.inst
	}
	return nil
}

// List returns every plugin: loaded ones in load order, then the rest in
// registration order
func (m *Manager) List() []PluginInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rank := make(map[string]int, len(m.order))
	for i, name := range m.order {
		rank[name] = i
	}
	names := append([]string(nil), m.names...)
	sort.SliceStable(names, func(i, j int) bool {
		ri, iok := rank[names[i]]
		rj, jok := rank[names[j]]
		if iok != jok {
			return iok
		}
		return iok && ri < rj
	})

	out := make([]PluginInfo, 0, len(names))
	for _, name := range names {
		out = append(out, m.plugins[name].info())
	}
	return out
}

// StateCounts returns how many plugins are in each state
func (m *Manager) StateCounts() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int)
	for _, p := range m.plugins {
		counts[p.state.String()]++
	}
	return counts
}

// Count returns the number of known plugins
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.plugins)
}

func remove(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
