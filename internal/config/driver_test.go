package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDriverConfigJavaScript(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "asyncify.yaml")
	doc := `
driver:
  type: javascript
  root: .
  scripts:
    - a.js
    - b.js
  markAsync:
    path: b.js
    line: 1
    functionIndex: 0
serializer:
  type: markdown
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadDriverConfig(path)
	if err != nil {
		t.Fatalf("LoadDriverConfig: %v", err)
	}
	if cfg.Driver.Type != "javascript" {
		t.Errorf("expected type javascript, got %q", cfg.Driver.Type)
	}
	if len(cfg.Driver.Scripts) != 2 {
		t.Errorf("expected 2 scripts, got %d", len(cfg.Driver.Scripts))
	}
}

func TestDriverConfigValidateRejectsUnknownType(t *testing.T) {
	cfg := &DriverConfig{}
	cfg.Driver.Type = "bogus"
	cfg.Driver.Root = "."
	cfg.Driver.MarkAsync.Path = "a.js"

	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for unrecognized driver.type")
	}
}

func TestDriverConfigValidateRequiresScriptsForJavaScript(t *testing.T) {
	cfg := &DriverConfig{}
	cfg.Driver.Type = "javascript"
	cfg.Driver.Root = "."
	cfg.Driver.MarkAsync.Path = "a.js"

	if err := cfg.Validate(); err == nil {
		t.Error("expected an error when driver.scripts is empty")
	}
}

func TestConfigLoadDefaults(t *testing.T) {
	os.Unsetenv("ASYNCIFY_HTTP_PORT")
	os.Unsetenv("ASYNCIFY_NATS_URL")

	cfg := Load()
	if cfg.HTTPPort != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.HTTPPort)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}
