package convfs

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"

	"github.com/absfs/convfs/transform"
)

// DefaultFormat is the source format of mappings that don't name one
const DefaultFormat = "yaml"

// Config is the on-disk description of a set of mappings:
//
//	mappings:
//	  - target: package.json
//	    source: package.yaml
//	    format: yaml
type Config struct {
	Mappings []MappingConfig `yaml:"mappings"`
}

// MappingConfig is a single entry of a Config
type MappingConfig struct {
	Target string `yaml:"target"`
	Source string `yaml:"source"`
	Format string `yaml:"format,omitempty"`
}

// LoadConfig decodes a YAML mapping configuration. Unknown fields are
// rejected.
func LoadConfig(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("decode config: %w", err)
	}

	for i, m := range cfg.Mappings {
		if m.Target == "" || m.Source == "" {
			return nil, fmt.Errorf("mapping %d: %w: target and source must be set", i, ErrInvalidMapping)
		}
	}
	return &cfg, nil
}

// LoadConfigFile reads a configuration file from fsys. Relative paths in
// the file are taken relative to the directory holding it.
func LoadConfigFile(fsys afero.Fs, path string) (*Config, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, err := LoadConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i := range cfg.Mappings {
		cfg.Mappings[i].Target = joinRelative(dir, cfg.Mappings[i].Target)
		cfg.Mappings[i].Source = joinRelative(dir, cfg.Mappings[i].Source)
	}
	return cfg, nil
}

// Options turns the configuration into options for New
func (c *Config) Options() ([]Option, error) {
	mappings := make([]Mapping, 0, len(c.Mappings))
	for _, m := range c.Mappings {
		format := m.Format
		if format == "" {
			format = DefaultFormat
		}
		fn, err := transform.Lookup(format)
		if err != nil {
			return nil, fmt.Errorf("mapping %s: %w", m.Target, err)
		}
		mappings = append(mappings, Mapping{Target: m.Target, Source: m.Source, Transform: fn})
	}
	return []Option{WithMappings(mappings...)}, nil
}

func joinRelative(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}
