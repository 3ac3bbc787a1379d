package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("expected no error for missing config, got %v", err)
	}
	if cfg.Cipher.Family != nil || cfg.Model.Name != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[cipher]
family = "running-key"

[model]
name = "english"

[logging]
verbose = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Cipher.Family == nil || *cfg.Cipher.Family != "running-key" {
		t.Fatalf("unexpected cipher family: %v", cfg.Cipher.Family)
	}
	if cfg.Model.Name == nil || *cfg.Model.Name != "english" {
		t.Fatalf("unexpected model name: %v", cfg.Model.Name)
	}
	if cfg.Model.File != nil {
		t.Fatalf("expected model file to stay unset")
	}
	if cfg.Logging.Verbose == nil || !*cfg.Logging.Verbose {
		t.Fatalf("expected verbose logging")
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[cipher]\nshift = 3\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestDefaultPathsFollowXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("XDG_DATA_HOME", "/tmp/data")
	if got := DefaultConfigPath(); got != filepath.Join("/tmp/cfg", "encryptor", "config.toml") {
		t.Fatalf("unexpected config path %q", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/tmp/data", "encryptor", "models.db") {
		t.Fatalf("unexpected db path %q", got)
	}
}
