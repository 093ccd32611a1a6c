package plugins

import (
	"archive/zip"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/platinummonkey/patchbridge/pkg/pluginapi"
)

// sourceRoot is where Go packages live inside every layer, as
// src/<import path>/*.go
const sourceRoot = "src"

// Environment is the private execution context of one plugin: its archive,
// its ordered classpath and an interpreter that only sees the standard
// library, pluginapi and the sources on that classpath.
type Environment struct {
	ArchivePath string
	Classpath   []string

	fsys    *layeredFS
	closers []io.Closer
	interp  *interp.Interpreter
	imports map[string]string
	seq     int
	mu      sync.Mutex
	closed  bool
}

// NewEnvironment opens the archive and each classpath entry as source
// layers, in that order, and prepares the interpreter
func NewEnvironment(archivePath string, classpath []string) (*Environment, error) {
	env := &Environment{
		ArchivePath: archivePath,
		Classpath:   append([]string(nil), classpath...),
		fsys:        &layeredFS{},
	}

	for _, entry := range append([]string{archivePath}, classpath...) {
		layer, closer, err := openLayer(entry)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("failed to open classpath entry %s: %w", entry, err)
		}
		env.fsys.layers = append(env.fsys.layers, layer)
		if closer != nil {
			env.closers = append(env.closers, closer)
		}
	}

	i := interp.New(interp.Options{
		GoPath:               ".",
		SourcecodeFilesystem: env.fsys,
	})
	if err := i.Use(stdlib.Symbols); err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to expose standard library: %w", err)
	}
	if err := i.Use(pluginapi.Symbols); err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to expose plugin API: %w", err)
	}
	if _, err := i.Eval(fmt.Sprintf("import %q", pluginapi.ImportPath)); err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to import plugin API: %w", err)
	}
	env.interp = i

	return env, nil
}

// Instantiate imports the package named by mainClass and creates its main
// type. A type is instantiated with new; a constructor function is called.
func (e *Environment) Instantiate(mainClass string) (pluginapi.Plugin, error) {
	importPath, symbol, err := SplitMainClass(mainClass)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, errors.New("environment is closed")
	}

	kind, err := e.lookupSymbol(importPath, symbol)
	if err != nil {
		return nil, err
	}

	alias, err := e.importPackage(importPath)
	if err != nil {
		return nil, err
	}

	body := fmt.Sprintf("new(%s.%s)", alias, symbol)
	if kind == symbolFunc {
		body = fmt.Sprintf("%s.%s()", alias, symbol)
	}
	factory, err := e.factory(body)
	if err != nil {
		return nil, fmt.Errorf("%s is not a plugin %s: %w", mainClass, kind, err)
	}

	plugin := factory()
	if plugin == nil {
		return nil, fmt.Errorf("%s produced a nil plugin", mainClass)
	}
	return plugin, nil
}

type symbolKind string

const (
	symbolType symbolKind = "type"
	symbolFunc symbolKind = "constructor"
)

// importPackage imports importPath into the interpreter once and returns
// the name it is bound to
func (e *Environment) importPackage(importPath string) (string, error) {
	if alias, ok := e.imports[importPath]; ok {
		return alias, nil
	}
	alias := fmt.Sprintf("plugmain%d", len(e.imports))
	if _, err := e.interp.Eval(fmt.Sprintf("import %s %q", alias, importPath)); err != nil {
		return "", fmt.Errorf("failed to import %s: %w", importPath, err)
	}
	if e.imports == nil {
		e.imports = make(map[string]string)
	}
	e.imports[importPath] = alias
	return alias, nil
}

// lookupSymbol reports whether symbol is declared as a type or a function
// in the package sources at importPath
func (e *Environment) lookupSymbol(importPath, symbol string) (symbolKind, error) {
	dir := sourcePath(importPath)
	entries, err := e.fsys.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("package %s not found: %w", importPath, err)
	}

	fset := token.NewFileSet()
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		src, err := e.fsys.ReadFile(path.Join(dir, name))
		if err != nil {
			return "", err
		}
		file, err := parser.ParseFile(fset, name, src, parser.SkipObjectResolution)
		if err != nil {
			return "", fmt.Errorf("failed to parse %s: %w", path.Join(importPath, name), err)
		}
		for _, decl := range file.Decls {
			switch d := decl.(type) {
			case *ast.FuncDecl:
				if d.Recv == nil && d.Name.Name == symbol {
					return symbolFunc, nil
				}
			case *ast.GenDecl:
				if d.Tok != token.TYPE {
					continue
				}
				for _, spec := range d.Specs {
					if ts, ok := spec.(*ast.TypeSpec); ok && ts.Name.Name == symbol {
						return symbolType, nil
					}
				}
			}
		}
	}
	return "", fmt.Errorf("%s declares no type or function %s", importPath, symbol)
}

// factory declares a named factory returning body and reads it back out of
// the interpreter
func (e *Environment) factory(body string) (func() pluginapi.Plugin, error) {
	e.seq++
	name := fmt.Sprintf("patchbridgeFactory%d", e.seq)

	decl := fmt.Sprintf("var %s func() pluginapi.Plugin = func() pluginapi.Plugin { return %s }", name, body)
	if _, err := e.interp.Eval(decl); err != nil {
		return nil, err
	}
	v, err := e.interp.Eval(name)
	if err != nil {
		return nil, err
	}

	v = unwrapValue(v)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return nil, fmt.Errorf("factory evaluated to %v", v.Kind())
	}
	if fn, ok := v.Interface().(func() pluginapi.Plugin); ok {
		return fn, nil
	}
	if v.Type().NumIn() != 0 || v.Type().NumOut() != 1 {
		return nil, fmt.Errorf("unexpected factory type %s", v.Type())
	}
	return func() pluginapi.Plugin {
		out := unwrapValue(v.Call(nil)[0])
		if !out.IsValid() || !out.CanInterface() {
			return nil
		}
		plugin, _ := out.Interface().(pluginapi.Plugin)
		return plugin
	}, nil
}

// unwrapValue strips the interface boxes the interpreter puts around values
func unwrapValue(v reflect.Value) reflect.Value {
	for v.IsValid() {
		switch {
		case v.Kind() == reflect.Interface:
			if v.IsNil() {
				return reflect.Value{}
			}
			v = v.Elem()
		case v.Kind() == reflect.Ptr && v.Type().Elem().Kind() == reflect.Interface:
			if v.IsNil() {
				return reflect.Value{}
			}
			v = v.Elem()
		default:
			return v
		}
	}
	return v
}

// Close drops the interpreter and closes every opened archive. It is safe
// to call more than once.
func (e *Environment) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.interp = nil

	var errs []error
	for _, c := range e.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

// openLayer exposes a directory or a zip/jar archive as a filesystem
func openLayer(entry string) (fs.FS, io.Closer, error) {
	info, err := os.Stat(entry)
	if err != nil {
		return nil, nil, err
	}
	if info.IsDir() {
		return os.DirFS(entry), nil, nil
	}
	r, err := zip.OpenReader(entry)
	if err != nil {
		return nil, nil, fmt.Errorf("not a directory or zip archive: %w", err)
	}
	return r, r, nil
}

// layeredFS resolves each path against its layers in order; the first
// layer that has the path wins, directories included.
type layeredFS struct {
	layers []fs.FS
}

func (l *layeredFS) Open(name string) (fs.File, error) {
	name = cleanPath(name)
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	for _, layer := range l.layers {
		f, err := layer.Open(name)
		if err == nil {
			return f, nil
		}
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

func (l *layeredFS) Stat(name string) (fs.FileInfo, error) {
	name = cleanPath(name)
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	for _, layer := range l.layers {
		info, err := fs.Stat(layer, name)
		if err == nil {
			return info, nil
		}
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

func (l *layeredFS) ReadDir(name string) ([]fs.DirEntry, error) {
	name = cleanPath(name)
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	for _, layer := range l.layers {
		entries, err := fs.ReadDir(layer, name)
		if err == nil {
			sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
			return entries, nil
		}
	}
	return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
}

func (l *layeredFS) ReadFile(name string) ([]byte, error) {
	name = cleanPath(name)
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}
	for _, layer := range l.layers {
		data, err := fs.ReadFile(layer, name)
		if err == nil {
			return data, nil
		}
	}
	return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrNotExist}
}

// cleanPath accepts the rooted and dot-prefixed forms the interpreter
// builds from its GoPath
func cleanPath(name string) string {
	name = strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(name)), "/")
	if name == "" {
		return "."
	}
	return name
}

// sourcePath is the layer-relative directory of an import path
func sourcePath(importPath string) string {
	return path.Join(sourceRoot, importPath)
}
