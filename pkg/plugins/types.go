package plugins

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// PluginState tracks where a plugin is in its lifecycle
type PluginState int

const (
	// StateRegistered means the descriptor was read but nothing was instantiated
	StateRegistered PluginState = iota
	// StateLoaded means the main type was instantiated
	StateLoaded
	// StateEnabled means OnEnable returned without error
	StateEnabled
	// StateDisabled means OnDisable ran
	StateDisabled
	// StateErrored means loading or enabling failed
	StateErrored
)

func (s PluginState) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateLoaded:
		return "loaded"
	case StateEnabled:
		return "enabled"
	case StateDisabled:
		return "disabled"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON and YAML output
func (s PluginState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Descriptor describes a plugin archive. It is read from plugin.yml and,
// when present, paper-plugin.yml; the latter's identity fields win.
type Descriptor struct {
	Name        string             `yaml:"name" json:"name"`
	Version     string             `yaml:"version" json:"version"`
	Main        string             `yaml:"main" json:"main"`
	APIVersion  string             `yaml:"api-version" json:"api_version,omitempty"`
	Description string             `yaml:"description" json:"description,omitempty"`
	Author      string             `yaml:"author" json:"author,omitempty"`
	Authors     []string           `yaml:"authors" json:"authors,omitempty"`
	Website     string             `yaml:"website" json:"website,omitempty"`
	Depend      []string           `yaml:"depend" json:"depend,omitempty"`
	SoftDepend  []string           `yaml:"softdepend" json:"softdepend,omitempty"`
	LoadBefore  []string           `yaml:"loadbefore" json:"loadbefore,omitempty"`
	Libraries   []string           `yaml:"libraries" json:"libraries,omitempty"`
	Commands    map[string]Command `yaml:"commands" json:"commands,omitempty"`

	// Paper is set when the archive also carries paper-plugin.yml
	Paper *PaperDescriptor `yaml:"-" json:"paper,omitempty"`
}

// Command is a command declared in plugin.yml
type Command struct {
	Description string     `yaml:"description" json:"description,omitempty"`
	Usage       string     `yaml:"usage" json:"usage,omitempty"`
	Permission  string     `yaml:"permission" json:"permission,omitempty"`
	Aliases     stringList `yaml:"aliases" json:"aliases,omitempty"`
}

// stringList accepts either a single scalar or a sequence
type stringList []string

func (l *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*l = stringList{value.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	default:
		return fmt.Errorf("line %d: expected string or list", value.Line)
	}
}

// PaperDescriptor is the paper-plugin.yml form
type PaperDescriptor struct {
	Name         string            `yaml:"name" json:"name"`
	Version      string            `yaml:"version" json:"version"`
	Main         string            `yaml:"main" json:"main"`
	APIVersion   string            `yaml:"api-version" json:"api_version,omitempty"`
	Description  string            `yaml:"description" json:"description,omitempty"`
	Author       string            `yaml:"author" json:"author,omitempty"`
	Authors      []string          `yaml:"authors" json:"authors,omitempty"`
	Website      string            `yaml:"website" json:"website,omitempty"`
	Dependencies PaperDependencies `yaml:"dependencies" json:"dependencies"`
}

// PaperDependencies splits dependencies by loading phase. Only the server
// phase affects load order here.
type PaperDependencies struct {
	Bootstrap map[string]PaperDependency `yaml:"bootstrap" json:"bootstrap,omitempty"`
	Server    map[string]PaperDependency `yaml:"server" json:"server,omitempty"`
}

// LoadOrder says whether a paper dependency loads before or after the
// declaring plugin
type LoadOrder string

const (
	LoadBefore LoadOrder = "BEFORE"
	LoadAfter  LoadOrder = "AFTER"
	LoadOmit   LoadOrder = "OMIT"
)

// PaperDependency is one entry of dependencies.server
type PaperDependency struct {
	Load          LoadOrder `yaml:"load" json:"load,omitempty"`
	Required      *bool     `yaml:"required" json:"required,omitempty"`
	JoinClasspath *bool     `yaml:"join-classpath" json:"join_classpath,omitempty"`
}

// IsRequired defaults to true
func (d PaperDependency) IsRequired() bool {
	return d.Required == nil || *d.Required
}

// JoinsClasspath defaults to true
func (d PaperDependency) JoinsClasspath() bool {
	return d.JoinClasspath == nil || *d.JoinClasspath
}

// ValidationError represents a descriptor validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// PluginInfo is a snapshot of a managed plugin
type PluginInfo struct {
	Name       string      `json:"name"`
	Version    string      `json:"version"`
	Main       string      `json:"main"`
	Archive    string      `json:"archive"`
	State      PluginState `json:"state"`
	Error      string      `json:"error,omitempty"`
	LoadedAt   time.Time   `json:"loaded_at,omitempty"`
	Descriptor *Descriptor `json:"descriptor"`
}
