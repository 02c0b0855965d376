package convfs

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/absfs/convfs/transform"
)

// TestLoadConfig tests decoding of a mapping file
func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(`
mappings:
  - target: /app/package.json
    source: /app/package.yaml
  - target: /app/tsconfig.json
    source: /app/tsconfig.src.json
    format: json
`))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if len(cfg.Mappings) != 2 {
		t.Fatalf("expected 2 mappings, got %d", len(cfg.Mappings))
	}
	if cfg.Mappings[1].Format != "json" {
		t.Errorf("expected json format, got %q", cfg.Mappings[1].Format)
	}
}

// TestLoadConfigErrors tests rejected configurations
func TestLoadConfigErrors(t *testing.T) {
	tests := map[string]string{
		"unknown field":  "mappings:\n  - target: a\n    source: b\n    extra: c\n",
		"missing source": "mappings:\n  - target: a\n",
		"not a list":     "mappings: a\n",
	}

	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(strings.NewReader(src)); err == nil {
				t.Error("expected an error")
			}
		})
	}

	cfg, err := LoadConfig(strings.NewReader(""))
	if err != nil {
		t.Fatalf("empty config should load: %v", err)
	}
	if len(cfg.Mappings) != 0 {
		t.Errorf("expected no mappings, got %d", len(cfg.Mappings))
	}
}

// TestLoadConfigFile tests that relative paths follow the config file
func TestLoadConfigFile(t *testing.T) {
	base := afero.NewMemMapFs()
	writeFile(t, base, "/etc/convfs/mappings.yaml", `
mappings:
  - target: package.json
    source: package.yaml
  - target: /abs/package.json
    source: /abs/package.yaml
    format: YML
`)

	cfg, err := LoadConfigFile(base, "/etc/convfs/mappings.yaml")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Mappings[0].Target != "/etc/convfs/package.json" || cfg.Mappings[0].Source != "/etc/convfs/package.yaml" {
		t.Errorf("relative paths not resolved: %+v", cfg.Mappings[0])
	}
	if cfg.Mappings[1].Target != "/abs/package.json" {
		t.Errorf("absolute path changed: %+v", cfg.Mappings[1])
	}

	if _, err := LoadConfigFile(base, "/missing.yaml"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

// TestConfigOptions tests that a config wires transforms into New
func TestConfigOptions(t *testing.T) {
	base := afero.NewMemMapFs()
	writeFile(t, base, source, "a: 1\n")
	writeFile(t, base, "/app/tsconfig.src.json", "{\n  \"strict\": true\n}\n")

	cfg := &Config{Mappings: []MappingConfig{
		{Target: target, Source: source},
		{Target: "/app/tsconfig.json", Source: "/app/tsconfig.src.json", Format: "json"},
	}}

	opts, err := cfg.Options()
	if err != nil {
		t.Fatalf("failed to build options: %v", err)
	}
	ofs, err := New(base, opts...)
	if err != nil {
		t.Fatalf("failed to create overlay: %v", err)
	}

	if data, _ := ofs.ReadFile(target); string(data) != derived {
		t.Errorf("expected '%s', got '%s'", derived, data)
	}
	if data, _ := ofs.ReadFile("/app/tsconfig.json"); string(data) != `{"strict":true}` {
		t.Errorf(`expected '{"strict":true}', got '%s'`, data)
	}

	bad := &Config{Mappings: []MappingConfig{{Target: "a", Source: "b", Format: "toml"}}}
	if _, err := bad.Options(); !errors.Is(err, transform.ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}
