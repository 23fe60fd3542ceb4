package server

import "fmt"

// MetadataServerConfig holds metadata store configuration
type MetadataServerConfig struct {
	Type   string               `mapstructure:"type"   yaml:"type"`
	SQLite MetadataSQLiteConfig `mapstructure:"sqlite" yaml:"sqlite"`
}

// MetadataSQLiteConfig holds SQLite-specific configuration
type MetadataSQLiteConfig struct {
	Path     string `mapstructure:"path"      yaml:"path"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

func (cfg MetadataServerConfig) Validate() error {
	if cfg.Type != "sqlite" {
		return fmt.Errorf("unsupported metadata store type '%s'", cfg.Type)
	}
	if cfg.SQLite.Path == "" {
		return fmt.Errorf("metadata.sqlite.path is required")
	}
	return nil
}
