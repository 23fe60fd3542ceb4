package server

import (
	"fmt"
	"strings"
)

type LogServerConfig struct {
	Level      string                  `mapstructure:"level"       yaml:"level"`
	TimeFormat string                  `mapstructure:"time_format" yaml:"time_format"`
	File       string                  `mapstructure:"file"        yaml:"file"`
	NoColor    bool                    `mapstructure:"no_color"    yaml:"no_color"`
	JSON       bool                    `mapstructure:"json"        yaml:"json"`
	NoTerminal bool                    `mapstructure:"no_terminal" yaml:"no_terminal"`
	Rotation   LogServerRotationConfig `mapstructure:"rotation"    yaml:"rotation"`
}

type LogServerRotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"     yaml:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"  yaml:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"      yaml:"max_age"`
	Compress   bool `mapstructure:"compress"     yaml:"compress"`
}

func (cfg LogServerConfig) Validate() error {
	switch strings.ToLower(strings.TrimSpace(cfg.Level)) {
	case "", "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return fmt.Errorf("unknown log level '%s'", cfg.Level)
	}
	if cfg.NoTerminal && cfg.File == "" {
		return fmt.Errorf("log.no_terminal requires log.file to be set")
	}
	return nil
}
