package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/platinummonkey/patchbridge/pkg/async"
)

const (
	userAgent       = "patchbridge-resolver"
	maxParentDepth  = 16
	defaultWorkers  = 4
	defaultTimeout  = 2 * time.Minute
	OutcomeResolved = "resolved"
	OutcomeFailed   = "failed"
)

// Observer receives resolver metrics
type Observer interface {
	ObserveFetch(source string, bytes int64)
	ObserveResolve(outcome string, elapsed time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveFetch(string, int64)           {}
func (noopObserver) ObserveResolve(string, time.Duration) {}

// Resolver resolves Maven coordinates to local files
type Resolver struct {
	repos    []Repository
	client   *http.Client
	logger   *logrus.Logger
	workers  int
	tracer   trace.Tracer
	observer Observer
	group    singleflight.Group
}

// Option configures a Resolver
type Option func(*Resolver)

// WithRepositories replaces the default repository list
func WithRepositories(repos []Repository) Option {
	return func(r *Resolver) {
		if len(repos) > 0 {
			r.repos = repos
		}
	}
}

// WithHTTPClient sets the client used for downloads
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		if client != nil {
			r.client = client
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithWorkers sets how many coordinates resolve concurrently
func WithWorkers(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithObserver sets the metrics observer
func WithObserver(o Observer) Option {
	return func(r *Resolver) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithTracer sets the tracer used for resolution spans
func WithTracer(t trace.Tracer) Option {
	return func(r *Resolver) {
		if t != nil {
			r.tracer = t
		}
	}
}

// New creates a resolver using DefaultRepositories
func New(opts ...Option) *Resolver {
	r := &Resolver{
		repos:    DefaultRepositories,
		client:   &http.Client{Timeout: defaultTimeout},
		logger:   logrus.New(),
		workers:  defaultWorkers,
		tracer:   otel.Tracer("github.com/platinummonkey/patchbridge/pkg/resolver"),
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Repositories returns the repositories in lookup order
func (r *Resolver) Repositories() []Repository {
	return append([]Repository(nil), r.repos...)
}

// Resolve resolves newline separated coordinates into cacheDir and returns
// the local files, deduplicated in first-resolved order. Blank input returns
// an empty slice without touching the filesystem. Coordinates that fail are
// logged and skipped.
func (r *Resolver) Resolve(ctx context.Context, coordinates string, cacheDir string) []string {
	coords := NormalizeCoordinates(coordinates)
	if len(coords) == 0 {
		return []string{}
	}

	ctx, span := r.tracer.Start(ctx, "resolver.Resolve", trace.WithAttributes(
		attribute.Int("coordinates", len(coords)),
		attribute.String("cache_dir", cacheDir),
	))
	defer span.End()

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		r.logger.WithError(err).WithField("dir", cacheDir).Error("Failed to create library directory")
		span.SetStatus(codes.Error, err.Error())
		return []string{}
	}

	results := async.Map(ctx, coords, r.workers, func(ctx context.Context, coord string) ([]string, error) {
		start := time.Now()
		files, err := r.ResolveCoordinate(ctx, coord, cacheDir)
		if err != nil {
			r.observer.ObserveResolve(OutcomeFailed, time.Since(start))
		} else {
			r.observer.ObserveResolve(OutcomeResolved, time.Since(start))
		}
		return files, err
	})

	seen := make(map[string]bool)
	files := []string{}
	failed := 0
	for i, res := range results {
		if res.Err != nil {
			failed++
			r.logger.WithFields(logrus.Fields{
				"coordinate": coords[i],
				"error":      res.Err.Error(),
			}).Warn("Failed to resolve library")
			continue
		}
		for _, f := range res.Value {
			if seen[f] {
				continue
			}
			seen[f] = true
			files = append(files, f)
		}
	}

	span.SetAttributes(attribute.Int("files", len(files)), attribute.Int("failed", failed))
	return files
}

type pending struct {
	coord      Coordinate
	exclusions []exclusion
	root       bool
}

// ResolveCoordinate resolves one coordinate and its runtime dependencies
func (r *Resolver) ResolveCoordinate(ctx context.Context, coordinate string, cacheDir string) ([]string, error) {
	root, err := ParseCoordinate(coordinate)
	if err != nil {
		return nil, err
	}

	ctx, span := r.tracer.Start(ctx, "resolver.ResolveCoordinate", trace.WithAttributes(
		attribute.String("coordinate", root.String()),
	))
	defer span.End()

	cache := NewCache(cacheDir)
	artifacts, err := r.collect(ctx, cache, root)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	files := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		path, err := r.fetch(ctx, cache, a)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("resolving %s: %w", a, err)
		}
		files = append(files, path)
	}
	span.SetAttributes(attribute.Int("artifacts", len(files)))
	return files, nil
}

// collect walks the dependency graph breadth first. The first version of a
// group:artifact reached wins.
func (r *Resolver) collect(ctx context.Context, cache *Cache, root Coordinate) ([]Coordinate, error) {
	queue := []pending{{coord: root, root: true}}
	seen := make(map[string]bool)
	var artifacts []Coordinate
	var rootManaged map[string]dependencySpec

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if seen[n.coord.Key()] {
			continue
		}
		seen[n.coord.Key()] = true

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		m, err := r.loadModel(ctx, cache, n.coord.POM(), 0)
		if err != nil {
			if errors.Is(err, ErrArtifactNotFound) {
				// artifacts without a POM have no dependencies
				r.logger.WithField("coordinate", n.coord.String()).Debug("No POM found")
				artifacts = append(artifacts, n.coord)
				continue
			}
			return nil, err
		}

		if m.packaging == "pom" && n.coord.Extension == "jar" && n.coord.Classifier == "" {
			artifacts = append(artifacts, n.coord.POM())
		} else {
			artifacts = append(artifacts, n.coord)
		}
		if n.root {
			rootManaged = m.managed
		}

		for _, d := range m.dependencies() {
			if !d.followed() || excluded(n.exclusions, d) {
				continue
			}
			if !n.root {
				if mg, ok := rootManaged[managedKey(d)]; ok && mg.Version != "" {
					d.Version = mg.Version
				}
			}
			c, err := d.coordinate()
			if err != nil {
				r.logger.WithError(err).WithField("parent", n.coord.String()).Warn("Skipping dependency")
				continue
			}
			excl := make([]exclusion, 0, len(n.exclusions)+len(d.Exclusions))
			excl = append(excl, n.exclusions...)
			excl = append(excl, d.Exclusions...)
			queue = append(queue, pending{coord: c, exclusions: excl})
		}
	}
	return artifacts, nil
}

// loadModel fetches a POM and folds in its parents and imported BOMs
func (r *Resolver) loadModel(ctx context.Context, cache *Cache, pom Coordinate, depth int) (*model, error) {
	if depth > maxParentDepth {
		return nil, fmt.Errorf("parent chain too deep at %s", pom)
	}

	path, err := r.fetch(ctx, cache, pom)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	p, err := parsePOM(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pom, err)
	}

	var parent *model
	if p.Parent != nil {
		pc := Coordinate{GroupID: p.Parent.GroupID, ArtifactID: p.Parent.ArtifactID, Extension: "pom", Version: p.Parent.Version}
		parent, err = r.loadModel(ctx, cache, pc, depth+1)
		if err != nil {
			return nil, fmt.Errorf("loading parent of %s: %w", pom, err)
		}
	}

	m := newModel(p, parent)
	if err := r.importBOMs(ctx, cache, m, depth); err != nil {
		return nil, err
	}
	return m, nil
}

// importBOMs replaces import-scoped managed entries with the managed
// dependencies of the referenced POM. Entries already declared win.
func (r *Resolver) importBOMs(ctx context.Context, cache *Cache, m *model, depth int) error {
	var keys []string
	for k, d := range m.managed {
		if d.Scope == "import" && d.Type == "pom" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		d := m.managed[k]
		delete(m.managed, k)
		bom := Coordinate{GroupID: d.GroupID, ArtifactID: d.ArtifactID, Extension: "pom", Version: d.Version}
		imported, err := r.loadModel(ctx, cache, bom, depth+1)
		if err != nil {
			return fmt.Errorf("importing %s: %w", bom, err)
		}
		for ik, iv := range imported.managed {
			if _, ok := m.managed[ik]; !ok {
				m.managed[ik] = iv
			}
		}
	}
	return nil
}

func excluded(exclusions []exclusion, d dependencySpec) bool {
	for _, e := range exclusions {
		if (e.GroupID == "*" || e.GroupID == d.GroupID) && (e.ArtifactID == "*" || e.ArtifactID == d.ArtifactID) {
			return true
		}
	}
	return false
}
