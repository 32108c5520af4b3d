// Package manifest describes the services a node runs: their kinds,
// dependencies, groups and restart policy. Manifests are YAML or TOML files.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/leefowlercu/servicecontainer/internal/servicecontainer"
)

// RestartPolicy controls whether a failed service is installed again.
type RestartPolicy string

const (
	RestartNever     RestartPolicy = "never"
	RestartOnFailure RestartPolicy = "on_failure"
)

// Format is a manifest encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Manifest is the full set of services declared for a node.
type Manifest struct {
	Services []Entry `yaml:"services" toml:"services"`
}

// Entry declares one service.
type Entry struct {
	Name          string         `yaml:"name" toml:"name"`
	Type          string         `yaml:"type,omitempty" toml:"type,omitempty"`
	Kind          string         `yaml:"kind" toml:"kind"`
	Dependencies  []string       `yaml:"dependencies,omitempty" toml:"dependencies,omitempty"`
	Group         string         `yaml:"group,omitempty" toml:"group,omitempty"`
	References    []string       `yaml:"references,omitempty" toml:"references,omitempty"`
	Interruptible bool           `yaml:"interruptible,omitempty" toml:"interruptible,omitempty"`
	Restart       RestartPolicy  `yaml:"restart,omitempty" toml:"restart,omitempty"`
	Options       map[string]any `yaml:"options,omitempty" toml:"options,omitempty"`
}

// Identity returns the container name of the entry.
func (e Entry) Identity() servicecontainer.ServiceName {
	if e.Type == "" {
		return servicecontainer.NewServiceName(e.Name)
	}
	return servicecontainer.TypedServiceName(e.Type, e.Name)
}

// DependencyNames parses the declared dependencies.
func (e Entry) DependencyNames() ([]servicecontainer.ServiceName, error) {
	return parseNames(e.Dependencies)
}

// GroupName parses the group the entry joins once started.
func (e Entry) GroupName() (servicecontainer.ServiceName, bool, error) {
	if e.Group == "" {
		return servicecontainer.ServiceName{}, false, nil
	}
	n, err := servicecontainer.ParseServiceName(e.Group)
	if err != nil {
		return servicecontainer.ServiceName{}, false, err
	}
	return n, true, nil
}

// ReferenceNames parses the groups the entry observes.
func (e Entry) ReferenceNames() ([]servicecontainer.ServiceName, error) {
	return parseNames(e.References)
}

// RestartPolicy returns the effective policy, defaulting to never.
func (e Entry) RestartPolicy() RestartPolicy {
	if e.Restart == "" {
		return RestartNever
	}
	return e.Restart
}

// Equal reports whether two entries declare the same service the same way.
func (e Entry) Equal(o Entry) bool {
	return reflect.DeepEqual(e.normalized(), o.normalized())
}

func (e Entry) normalized() Entry {
	e.Restart = e.RestartPolicy()
	if len(e.Dependencies) == 0 {
		e.Dependencies = nil
	}
	if len(e.References) == 0 {
		e.References = nil
	}
	if len(e.Options) == 0 {
		e.Options = nil
	}
	return e
}

// Option returns a string option or def when absent.
func (e Entry) Option(key, def string) string {
	v, ok := e.Options[key]
	if !ok {
		return def
	}
	return fmt.Sprint(v)
}

// Lookup returns the entry with the given identity.
func (m *Manifest) Lookup(name servicecontainer.ServiceName) (Entry, bool) {
	for _, e := range m.Services {
		if e.Identity() == name {
			return e, true
		}
	}
	return Entry{}, false
}

func parseNames(raw []string) ([]servicecontainer.ServiceName, error) {
	names := make([]servicecontainer.ServiceName, 0, len(raw))
	for _, r := range raw {
		n, err := servicecontainer.ParseServiceName(r)
		if err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, nil
}

// FormatFromPath picks the encoding from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported manifest extension %q", filepath.Ext(path))
	}
}

// Parse decodes a manifest without validating it.
func Parse(data []byte, format Format) (*Manifest, error) {
	var m Manifest
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to decode yaml manifest; %w", err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to decode toml manifest; %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", format)
	}
	return &m, nil
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s; %w", path, err)
	}

	return Parse(data, format)
}

// LoadAndValidate loads the manifest at path and validates it.
func LoadAndValidate(path string, kinds KindChecker) (*Manifest, error) {
	m, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(kinds); err != nil {
		return nil, err
	}
	return m, nil
}
