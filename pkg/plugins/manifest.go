package plugins

import (
	"archive/zip"
	"errors"
	"fmt"
	"go/token"
	"io"
	"io/fs"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/patchbridge/pkg/resolver"
)

const (
	// DescriptorFile is the plugin.yml entry at the archive root
	DescriptorFile = "plugin.yml"
	// PaperDescriptorFile is the optional paper-plugin.yml entry
	PaperDescriptorFile = "paper-plugin.yml"
)

// ErrNoDescriptor is returned when an archive carries neither descriptor
var ErrNoDescriptor = errors.New("archive has no plugin.yml or paper-plugin.yml")

var pluginNameRegex = regexp.MustCompile(`^[A-Za-z0-9 _.-]+$`)

// ParseDescriptor parses plugin.yml content
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", DescriptorFile, err)
	}
	return &d, nil
}

// ParsePaperDescriptor parses paper-plugin.yml content
func ParsePaperDescriptor(data []byte) (*PaperDescriptor, error) {
	var d PaperDescriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", PaperDescriptorFile, err)
	}
	for name, dep := range d.Dependencies.Server {
		switch dep.Load {
		case "":
			dep.Load = LoadOmit
			d.Dependencies.Server[name] = dep
		case LoadBefore, LoadAfter, LoadOmit:
		default:
			return nil, fmt.Errorf("failed to parse %s: dependency %q has invalid load %q", PaperDescriptorFile, name, dep.Load)
		}
	}
	return &d, nil
}

// ReadDescriptor reads the descriptors from a plugin archive
func ReadDescriptor(archivePath string) (*Descriptor, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	return ReadDescriptorFS(r)
}

// ReadDescriptorFS reads the descriptors from the root of fsys
func ReadDescriptorFS(fsys fs.FS) (*Descriptor, error) {
	spigot, err := readOptional(fsys, DescriptorFile)
	if err != nil {
		return nil, err
	}
	paper, err := readOptional(fsys, PaperDescriptorFile)
	if err != nil {
		return nil, err
	}
	if spigot == nil && paper == nil {
		return nil, ErrNoDescriptor
	}

	desc := &Descriptor{}
	if spigot != nil {
		if desc, err = ParseDescriptor(spigot); err != nil {
			return nil, err
		}
	}
	if paper != nil {
		p, err := ParsePaperDescriptor(paper)
		if err != nil {
			return nil, err
		}
		desc.Paper = p
		desc.Name = p.Name
		desc.Version = p.Version
		desc.Main = p.Main
		if p.APIVersion != "" {
			desc.APIVersion = p.APIVersion
		}
		if p.Description != "" {
			desc.Description = p.Description
		}
		if p.Author != "" {
			desc.Author = p.Author
		}
		if len(p.Authors) > 0 {
			desc.Authors = p.Authors
		}
		if p.Website != "" {
			desc.Website = p.Website
		}
	}
	return desc, nil
}

func readOptional(fsys fs.FS, name string) ([]byte, error) {
	f, err := fsys.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// ValidateDescriptor performs basic validation on a plugin descriptor
func ValidateDescriptor(d *Descriptor) []ValidationError {
	var errs []ValidationError

	if d.Name == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "Plugin name is required"})
	} else if !pluginNameRegex.MatchString(d.Name) {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("Invalid plugin name: %s (letters, digits, space, '_', '.' and '-' only)", d.Name),
		})
	}

	if d.Version == "" {
		errs = append(errs, ValidationError{Field: "version", Message: "Version is required"})
	}

	if d.Main == "" {
		errs = append(errs, ValidationError{Field: "main", Message: "Main type is required"})
	} else if _, _, err := SplitMainClass(d.Main); err != nil {
		errs = append(errs, ValidationError{Field: "main", Message: err.Error()})
	}

	for _, lib := range d.Libraries {
		if _, err := resolver.ParseCoordinate(lib); err != nil {
			errs = append(errs, ValidationError{Field: "libraries", Message: err.Error()})
		}
	}

	for _, dep := range d.Depend {
		if dep == d.Name {
			errs = append(errs, ValidationError{Field: "depend", Message: "Plugin cannot depend on itself"})
		}
	}

	return errs
}

// SplitMainClass splits "<import path>.<Symbol>" into its parts
func SplitMainClass(mainClass string) (importPath, symbol string, err error) {
	i := strings.LastIndex(mainClass, ".")
	if i <= 0 || i == len(mainClass)-1 {
		return "", "", fmt.Errorf("invalid main type %q (expected <import path>.<Symbol>)", mainClass)
	}
	importPath, symbol = mainClass[:i], mainClass[i+1:]
	if !token.IsIdentifier(symbol) || !token.IsExported(symbol) {
		return "", "", fmt.Errorf("invalid main type %q: %q is not an exported identifier", mainClass, symbol)
	}
	if strings.ContainsAny(importPath, " \\") || strings.HasPrefix(importPath, "/") {
		return "", "", fmt.Errorf("invalid main type %q: bad import path %q", mainClass, importPath)
	}
	return importPath, symbol, nil
}

// AllAuthors combines author and authors
func (d *Descriptor) AllAuthors() []string {
	var out []string
	if d.Author != "" {
		out = append(out, d.Author)
	}
	return append(out, d.Authors...)
}

// LibraryCoordinates renders libraries in the resolver's newline form
func (d *Descriptor) LibraryCoordinates() string {
	return strings.Join(d.Libraries, "\n")
}

// Relations folds plugin.yml and paper-plugin.yml ordering into hard
// dependencies, soft dependencies and plugins to load before.
func (d *Descriptor) Relations() (depends, softDepends, loadBefore []string) {
	depends = append(depends, d.Depend...)
	softDepends = append(softDepends, d.SoftDepend...)
	loadBefore = append(loadBefore, d.LoadBefore...)

	if d.Paper == nil {
		return depends, softDepends, loadBefore
	}
	for _, name := range sortedKeys(d.Paper.Dependencies.Server) {
		dep := d.Paper.Dependencies.Server[name]
		switch dep.Load {
		case LoadBefore:
			if dep.IsRequired() {
				depends = append(depends, name)
			} else {
				softDepends = append(softDepends, name)
			}
		case LoadAfter:
			loadBefore = append(loadBefore, name)
		}
	}
	return depends, softDepends, loadBefore
}

// RequiredPlugins lists every plugin that must be present, whatever its
// load order
func (d *Descriptor) RequiredPlugins() []string {
	out := append([]string(nil), d.Depend...)
	if d.Paper != nil {
		for _, name := range sortedKeys(d.Paper.Dependencies.Server) {
			if d.Paper.Dependencies.Server[name].IsRequired() {
				out = appendUnique(out, name)
			}
		}
	}
	return out
}

// ClasspathJoins lists the plugins whose archives join this plugin's
// classpath
func (d *Descriptor) ClasspathJoins() []string {
	if d.Paper == nil {
		return nil
	}
	var out []string
	for _, name := range sortedKeys(d.Paper.Dependencies.Server) {
		if d.Paper.Dependencies.Server[name].JoinsClasspath() {
			out = append(out, name)
		}
	}
	return out
}
