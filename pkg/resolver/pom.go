package resolver

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// project is the subset of a POM the resolver needs
type project struct {
	GroupID              string           `xml:"groupId"`
	ArtifactID           string           `xml:"artifactId"`
	Version              string           `xml:"version"`
	Packaging            string           `xml:"packaging"`
	Parent               *parentRef       `xml:"parent"`
	Properties           properties       `xml:"properties"`
	DependencyManagement dependencyGroup  `xml:"dependencyManagement"`
	Dependencies         []dependencySpec `xml:"dependencies>dependency"`
}

type parentRef struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
}

type dependencyGroup struct {
	Dependencies []dependencySpec `xml:"dependencies>dependency"`
}

type dependencySpec struct {
	GroupID    string      `xml:"groupId"`
	ArtifactID string      `xml:"artifactId"`
	Version    string      `xml:"version"`
	Type       string      `xml:"type"`
	Classifier string      `xml:"classifier"`
	Scope      string      `xml:"scope"`
	Optional   string      `xml:"optional"`
	Exclusions []exclusion `xml:"exclusions>exclusion"`
}

type exclusion struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
}

// properties collects arbitrary <name>value</name> children
type properties map[string]string

func (p *properties) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	*p = properties{}
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var v string
			if err := d.DecodeElement(&v, &t); err != nil {
				return err
			}
			(*p)[t.Name.Local] = strings.TrimSpace(v)
		case xml.EndElement:
			return nil
		}
	}
}

func parsePOM(r io.Reader) (*project, error) {
	var p project
	dec := xml.NewDecoder(r)
	dec.Strict = false
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parsing pom: %w", err)
	}
	return &p, nil
}

// model is a POM with its parent chain folded in
type model struct {
	groupID    string
	artifactID string
	version    string
	packaging  string
	props      map[string]string
	managed    map[string]dependencySpec
	deps       []dependencySpec
}

// newModel folds child over parent. parent may be nil.
func newModel(p *project, parent *model) *model {
	m := &model{
		groupID:    p.GroupID,
		artifactID: p.ArtifactID,
		version:    p.Version,
		packaging:  p.Packaging,
		props:      map[string]string{},
		managed:    map[string]dependencySpec{},
	}
	if parent != nil {
		for k, v := range parent.props {
			m.props[k] = v
		}
		for k, v := range parent.managed {
			m.managed[k] = v
		}
		m.deps = append(m.deps, parent.deps...)
		if m.groupID == "" {
			m.groupID = parent.groupID
		}
		if m.version == "" {
			m.version = parent.version
		}
		m.props["project.parent.version"] = parent.version
		m.props["project.parent.groupId"] = parent.groupID
	} else if p.Parent != nil {
		if m.groupID == "" {
			m.groupID = p.Parent.GroupID
		}
		if m.version == "" {
			m.version = p.Parent.Version
		}
	}
	if m.packaging == "" {
		m.packaging = "jar"
	}
	for k, v := range p.Properties {
		m.props[k] = v
	}
	m.props["project.groupId"] = m.groupID
	m.props["project.artifactId"] = m.artifactID
	m.props["project.version"] = m.version
	m.props["pom.groupId"] = m.groupID
	m.props["pom.version"] = m.version
	m.props["version"] = m.version

	for _, d := range p.DependencyManagement.Dependencies {
		d = m.interpolateDep(d)
		m.managed[managedKey(d)] = d
	}
	m.deps = append(m.deps, p.Dependencies...)
	return m
}

// interpolate expands ${name} references; unknown names are left in place
func (m *model) interpolate(s string) string {
	for i := 0; i < 10 && strings.Contains(s, "${"); i++ {
		var b strings.Builder
		rest := s
		changed := false
		for {
			start := strings.Index(rest, "${")
			if start < 0 {
				b.WriteString(rest)
				break
			}
			end := strings.Index(rest[start:], "}")
			if end < 0 {
				b.WriteString(rest)
				break
			}
			name := rest[start+2 : start+end]
			b.WriteString(rest[:start])
			if v, ok := m.props[name]; ok {
				b.WriteString(v)
				changed = true
			} else {
				b.WriteString(rest[start : start+end+1])
			}
			rest = rest[start+end+1:]
		}
		s = b.String()
		if !changed {
			break
		}
	}
	return s
}

func (m *model) interpolateDep(d dependencySpec) dependencySpec {
	d.GroupID = m.interpolate(strings.TrimSpace(d.GroupID))
	d.ArtifactID = m.interpolate(strings.TrimSpace(d.ArtifactID))
	d.Version = m.interpolate(strings.TrimSpace(d.Version))
	d.Type = m.interpolate(strings.TrimSpace(d.Type))
	d.Classifier = m.interpolate(strings.TrimSpace(d.Classifier))
	d.Scope = strings.TrimSpace(d.Scope)
	d.Optional = m.interpolate(strings.TrimSpace(d.Optional))
	return d
}

// dependencies returns the declared dependencies with versions and scopes
// filled from dependencyManagement
func (m *model) dependencies() []dependencySpec {
	out := make([]dependencySpec, 0, len(m.deps))
	for _, d := range m.deps {
		d = m.interpolateDep(d)
		if mg, ok := m.managed[managedKey(d)]; ok {
			if d.Version == "" {
				d.Version = mg.Version
			}
			if d.Scope == "" {
				d.Scope = mg.Scope
			}
			if len(d.Exclusions) == 0 {
				d.Exclusions = mg.Exclusions
			}
		}
		out = append(out, d)
	}
	return out
}

func managedKey(d dependencySpec) string {
	t := d.Type
	if t == "" {
		t = "jar"
	}
	return d.GroupID + ":" + d.ArtifactID + ":" + t + ":" + d.Classifier
}

// followed reports whether a dependency is part of the runtime classpath
func (d dependencySpec) followed() bool {
	if strings.EqualFold(d.Optional, "true") {
		return false
	}
	switch d.Scope {
	case "", "compile", "runtime":
		return true
	default:
		return false
	}
}

// coordinate maps a dependency to the artifact file it refers to
func (d dependencySpec) coordinate() (Coordinate, error) {
	ext := "jar"
	classifier := d.Classifier
	switch d.Type {
	case "", "jar", "bundle", "maven-plugin", "ejb":
	case "test-jar":
		classifier = "tests"
	default:
		ext = d.Type
	}
	c := Coordinate{
		GroupID:    d.GroupID,
		ArtifactID: d.ArtifactID,
		Extension:  ext,
		Classifier: classifier,
		Version:    d.Version,
	}
	if c.GroupID == "" || c.ArtifactID == "" || c.Version == "" || strings.Contains(c.Version, "${") || strings.ContainsAny(c.Version[:1], "[(") {
		return Coordinate{}, fmt.Errorf("unresolvable dependency %s:%s:%s", d.GroupID, d.ArtifactID, d.Version)
	}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}
