package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// IgnoreEntry locates one node to ignore by (path, line, type, index), per
// spec.md §6.
type IgnoreEntry struct {
	Path  string `yaml:"path"`
	Line  int    `yaml:"line"`
	Type  string `yaml:"type"`
	Index int    `yaml:"index"`
}

// MarkAsync locates the seed function by (path, line, functionIndex).
type MarkAsync struct {
	Path          string `yaml:"path"`
	Line          int    `yaml:"line"`
	FunctionIndex int    `yaml:"functionIndex"`
}

// DriverConfig mirrors internal/config/project.go's .qtest.yaml loader in
// shape — a struct with yaml tags, Load/Save, validated eagerly — applied
// to the configuration document of spec.md §6.
type DriverConfig struct {
	Driver struct {
		Type       string        `yaml:"type"`
		Root       string        `yaml:"root"`
		Scripts    []string      `yaml:"scripts,omitempty"`
		PathToHTML string        `yaml:"pathToHTML,omitempty"`
		Ignore     []IgnoreEntry `yaml:"ignore,omitempty"`
		MarkAsync  MarkAsync     `yaml:"markAsync"`
	} `yaml:"driver"`
	Serializer struct {
		Type    string                 `yaml:"type"`
		Options map[string]interface{} `yaml:"options,omitempty"`
	} `yaml:"serializer"`
}

// LoadDriverConfig reads and validates a DriverConfig document from path.
func LoadDriverConfig(path string) (*DriverConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading driver config %s: %w", path, err)
	}
	var cfg DriverConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing driver config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating driver config %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes cfg to path as YAML.
func (c *DriverConfig) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling driver config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing driver config %s: %w", path, err)
	}
	return nil
}

// Validate checks the document's required fields, matching
// project.go's eager validation on load.
func (c *DriverConfig) Validate() error {
	switch c.Driver.Type {
	case "javascript":
		if len(c.Driver.Scripts) == 0 {
			return fmt.Errorf("driver.scripts must be non-empty for type javascript")
		}
	case "html":
		if c.Driver.PathToHTML == "" {
			return fmt.Errorf("driver.pathToHTML is required for type html")
		}
	default:
		return fmt.Errorf("unrecognized driver.type %q", c.Driver.Type)
	}
	if c.Driver.Root == "" {
		return fmt.Errorf("driver.root is required")
	}
	if c.Driver.MarkAsync.Path == "" {
		return fmt.Errorf("driver.markAsync.path is required")
	}
	return nil
}
