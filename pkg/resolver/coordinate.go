package resolver

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Coordinate identifies one artifact in a Maven repository
type Coordinate struct {
	GroupID    string
	ArtifactID string
	Extension  string
	Classifier string
	Version    string
}

// ParseCoordinate parses group:artifact[:extension[:classifier]]:version.
// The extension defaults to jar.
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	var c Coordinate
	switch len(parts) {
	case 3:
		c = Coordinate{GroupID: parts[0], ArtifactID: parts[1], Version: parts[2]}
	case 4:
		c = Coordinate{GroupID: parts[0], ArtifactID: parts[1], Extension: parts[2], Version: parts[3]}
	case 5:
		c = Coordinate{GroupID: parts[0], ArtifactID: parts[1], Extension: parts[2], Classifier: parts[3], Version: parts[4]}
	default:
		return Coordinate{}, fmt.Errorf("invalid coordinate %q: expected group:artifact[:extension[:classifier]]:version", s)
	}
	if c.Extension == "" {
		c.Extension = "jar"
	}
	if err := c.Validate(); err != nil {
		return Coordinate{}, fmt.Errorf("invalid coordinate %q: %w", s, err)
	}
	return c, nil
}

// ErrInvalidCoordinate is returned for coordinates that cannot name a file
// inside a repository layout
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Validate checks that every part of c is a single, non-empty path segment.
// Group IDs are split on dots first.
func (c Coordinate) Validate() error {
	for _, segment := range strings.Split(c.GroupID, ".") {
		if !validSegment(segment) {
			return fmt.Errorf("%w: group %q", ErrInvalidCoordinate, c.GroupID)
		}
	}
	ext := c.Extension
	if ext == "" {
		ext = "jar"
	}
	parts := []struct{ name, value string }{
		{"artifact", c.ArtifactID},
		{"version", c.Version},
		{"extension", ext},
	}
	if c.Classifier != "" {
		parts = append(parts, struct{ name, value string }{"classifier", c.Classifier})
	}
	for _, p := range parts {
		if !validSegment(p.value) {
			return fmt.Errorf("%w: %s %q", ErrInvalidCoordinate, p.name, p.value)
		}
	}
	return nil
}

func validSegment(s string) bool {
	return s != "" && s != "." && !strings.Contains(s, "..") && !strings.ContainsAny(s, "/\\: \t\r\n\x00")
}

// String returns the coordinate in the same form ParseCoordinate accepts
func (c Coordinate) String() string {
	switch {
	case c.Classifier != "":
		return fmt.Sprintf("%s:%s:%s:%s:%s", c.GroupID, c.ArtifactID, c.Extension, c.Classifier, c.Version)
	case c.Extension != "" && c.Extension != "jar":
		return fmt.Sprintf("%s:%s:%s:%s", c.GroupID, c.ArtifactID, c.Extension, c.Version)
	default:
		return fmt.Sprintf("%s:%s:%s", c.GroupID, c.ArtifactID, c.Version)
	}
}

// Key identifies the artifact regardless of version, for conflict resolution
func (c Coordinate) Key() string {
	key := c.GroupID + ":" + c.ArtifactID
	if c.Classifier != "" {
		key += ":" + c.Classifier
	}
	if c.Extension != "" && c.Extension != "jar" {
		key += ":" + c.Extension
	}
	return key
}

// Path is the slash separated location of the artifact in a repository
func (c Coordinate) Path() string {
	name := c.ArtifactID + "-" + c.Version
	if c.Classifier != "" {
		name += "-" + c.Classifier
	}
	ext := c.Extension
	if ext == "" {
		ext = "jar"
	}
	return path.Join(strings.ReplaceAll(c.GroupID, ".", "/"), c.ArtifactID, c.Version, name+"."+ext)
}

// POM returns the coordinate of the artifact's project descriptor
func (c Coordinate) POM() Coordinate {
	return Coordinate{GroupID: c.GroupID, ArtifactID: c.ArtifactID, Extension: "pom", Version: c.Version}
}

// NormalizeCoordinates splits text on newlines, trims each line, drops blank
// lines and removes duplicates keeping first-seen order
func NormalizeCoordinates(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		out = append(out, line)
	}
	return out
}
