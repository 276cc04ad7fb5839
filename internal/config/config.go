// Package config loads the YAML program manifest: rule files, imports,
// exports and run limits.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Import describes one input file in the manifest.
type Import struct {
	Predicate string   `yaml:"predicate"`
	File      string   `yaml:"file"`
	Format    string   `yaml:"format,omitempty"`
	Delimiter string   `yaml:"delimiter,omitempty"`
	Columns   []string `yaml:"columns,omitempty"`
}

// Export describes one output file in the manifest.
type Export struct {
	Predicate string `yaml:"predicate"`
	File      string `yaml:"file"`
	Format    string `yaml:"format,omitempty"`
	Delimiter string `yaml:"delimiter,omitempty"`
}

// Limits bounds a materialization run.
type Limits struct {
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Manifest is the root of the program manifest.
type Manifest struct {
	Rules   []string `yaml:"rules"`
	Imports []Import `yaml:"imports,omitempty"`
	Exports []Export `yaml:"exports,omitempty"`
	Limits  Limits   `yaml:"limits,omitempty"`
	Strict  bool     `yaml:"strict,omitempty"`

	// Dir is the manifest's directory; relative paths resolve against
	// it.
	Dir string `yaml:"-"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	manifest.Dir = filepath.Dir(path)
	if err := manifest.validate(); err != nil {
		return nil, err
	}
	return &manifest, nil
}

func (m *Manifest) validate() error {
	if len(m.Rules) == 0 {
		return fmt.Errorf("manifest lists no rule files")
	}
	for _, imp := range m.Imports {
		if imp.Predicate == "" || imp.File == "" {
			return fmt.Errorf("import entries need predicate and file")
		}
		if len(imp.Delimiter) > 1 {
			return fmt.Errorf("import delimiter must be one character, got %q", imp.Delimiter)
		}
	}
	for _, exp := range m.Exports {
		if exp.Predicate == "" || exp.File == "" {
			return fmt.Errorf("export entries need predicate and file")
		}
	}
	return nil
}

// Resolve joins a manifest-relative path.
func (m *Manifest) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.Dir, path)
}

// RuleSource concatenates all rule files.
func (m *Manifest) RuleSource() (string, error) {
	var source []byte
	for _, file := range m.Rules {
		data, err := os.ReadFile(m.Resolve(file))
		if err != nil {
			return "", fmt.Errorf("read rules: %w", err)
		}
		source = append(source, data...)
		source = append(source, '\n')
	}
	return string(source), nil
}
