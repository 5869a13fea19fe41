package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/metaschema-go/metaschema/internal/constraint"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(oldWd) })
	return tmpDir
}

func TestLoad(t *testing.T) {
	// Test loading with no config file (should use defaults)
	chdirTemp(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error loading defaults, got %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.LogLevel)
	}
	if cfg.Output != OutputText {
		t.Errorf("expected default output 'text', got %s", cfg.Output)
	}
	if cfg.MinimumLevel() != constraint.LevelInformational {
		t.Errorf("expected default minimum level informational, got %s", cfg.MinimumLevel())
	}
	if cfg.NoColor {
		t.Error("expected color to be enabled by default")
	}
	if cfg.ReportDB != "" {
		t.Errorf("expected no report database by default, got %s", cfg.ReportDB)
	}
	if cfg.StaticBaseURI() != nil {
		t.Errorf("expected no base URI by default, got %v", cfg.StaticBaseURI())
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	chdirTemp(t)

	configContent := `
log_level: debug
output: json
min_level: warning
no_color: true
report_db: runs.db
base_uri: https://example.com/catalogs/
constraints:
  - policy.yaml
`
	os.WriteFile("metaschema.yaml", []byte(configContent), 0644)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.LogLevel)
	}
	if cfg.Output != OutputJSON {
		t.Errorf("expected output 'json', got %s", cfg.Output)
	}
	if cfg.MinimumLevel() != constraint.LevelWarning {
		t.Errorf("expected minimum level warning, got %s", cfg.MinimumLevel())
	}
	if !cfg.NoColor {
		t.Error("expected no_color to be set")
	}
	if cfg.ReportDB != "runs.db" {
		t.Errorf("expected report db 'runs.db', got %s", cfg.ReportDB)
	}
	if got := cfg.StaticBaseURI(); got == nil || got.Host != "example.com" {
		t.Errorf("expected base URI on example.com, got %v", got)
	}
	if len(cfg.Constraints) != 1 || cfg.Constraints[0] != "policy.yaml" {
		t.Errorf("expected one constraint file, got %v", cfg.Constraints)
	}
}

func TestLoadExplicitFile(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "custom.toml")
	os.WriteFile(path, []byte("output = \"json\"\n"), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Output != OutputJSON {
		t.Errorf("expected output 'json', got %s", cfg.Output)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected an error for a missing explicit config file")
	}
}

func TestLoadEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("METASCHEMA_OUTPUT", "json")
	os.WriteFile(".env", []byte("METASCHEMA_MIN_LEVEL=error\n"), 0644)
	t.Cleanup(func() { os.Unsetenv("METASCHEMA_MIN_LEVEL") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Output != OutputJSON {
		t.Errorf("expected output from environment, got %s", cfg.Output)
	}
	if cfg.MinimumLevel() != constraint.LevelError {
		t.Errorf("expected minimum level from .env, got %s", cfg.MinimumLevel())
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"unknown output", func(c *Config) { c.Output = "xml" }, true},
		{"unknown log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"unknown min level", func(c *Config) { c.MinLevel = "fatal" }, true},
		{"info alias", func(c *Config) { c.MinLevel = "info" }, false},
		{"relative base uri", func(c *Config) { c.BaseURI = "catalogs/" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{LogLevel: "info", Output: OutputText, MinLevel: "informational"}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
