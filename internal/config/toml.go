// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Cipher  CipherConfig  `toml:"cipher"`
	Model   ModelConfig   `toml:"model"`
	Logging LoggingConfig `toml:"logging"`
}

// CipherConfig maps cipher-related settings.
type CipherConfig struct {
	Family *string `toml:"family"`
}

// ModelConfig selects the default reference model.
type ModelConfig struct {
	Name *string `toml:"name"`
	File *string `toml:"file"`
}

// LoggingConfig maps console logging settings.
type LoggingConfig struct {
	Verbose *bool `toml:"verbose"`
	JSON    *bool `toml:"json"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
