package server

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type BaseServerConfig struct {
	ShutdownTimeout string `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	Log       LogServerConfig       `mapstructure:"log"       yaml:"log"`
	Metadata  MetadataServerConfig  `mapstructure:"metadata"  yaml:"metadata"`
	Storage   StorageServerConfig   `mapstructure:"storage"   yaml:"storage"`
	Ingest    IngestServerConfig    `mapstructure:"ingest"    yaml:"ingest"`
	Retention RetentionServerConfig `mapstructure:"retention" yaml:"retention"`
	Report    ReportServerConfig    `mapstructure:"report"    yaml:"report"`
	Agent     AgentServerConfig     `mapstructure:"agent"     yaml:"agent"`
}

func LoadServerConfig() (*BaseServerConfig, error) {
	cfg := &BaseServerConfig{}

	setDefaults()

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the values that would otherwise fail deep inside a component.
func (cfg *BaseServerConfig) Validate() error {
	if err := cfg.Log.Validate(); err != nil {
		return err
	}
	if err := cfg.Metadata.Validate(); err != nil {
		return err
	}
	if cfg.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if err := cfg.Ingest.Validate(); err != nil {
		return err
	}
	if cfg.Retention.Keep < 1 {
		return fmt.Errorf("retention.keep must be at least 1, got %d", cfg.Retention.Keep)
	}
	if cfg.Report.HistogramBins < 1 {
		return fmt.Errorf("report.histogram_bins must be at least 1, got %d", cfg.Report.HistogramBins)
	}
	return nil
}

// ShutdownDuration parses the shutdown timeout, falling back to 60 seconds.
func (cfg *BaseServerConfig) ShutdownDuration() time.Duration {
	timeout, err := time.ParseDuration(cfg.ShutdownTimeout)
	if err != nil || timeout <= 0 {
		return 60 * time.Second
	}
	return timeout
}
