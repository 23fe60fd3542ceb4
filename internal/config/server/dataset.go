package server

import (
	"fmt"
	"time"
)

// StorageServerConfig points at the directory holding raw uploaded files.
type StorageServerConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// IngestServerConfig holds the limits applied at the ingestion boundary.
type IngestServerConfig struct {
	MaxFileSize      int64    `mapstructure:"max_file_size"      yaml:"max_file_size"`
	MaxRows          int      `mapstructure:"max_rows"           yaml:"max_rows"`
	MaxRowErrors     int      `mapstructure:"max_row_errors"     yaml:"max_row_errors"`
	AllowedMimeTypes []string `mapstructure:"allowed_mime_types" yaml:"allowed_mime_types"`
}

func (cfg IngestServerConfig) Validate() error {
	if cfg.MaxFileSize <= 0 {
		return fmt.Errorf("ingest.max_file_size must be positive")
	}
	if cfg.MaxRows <= 0 {
		return fmt.Errorf("ingest.max_rows must be positive")
	}
	if cfg.MaxRowErrors < 0 {
		return fmt.Errorf("ingest.max_row_errors must not be negative")
	}
	return nil
}

// RetentionServerConfig controls how many uploads survive per owner.
type RetentionServerConfig struct {
	Keep          int    `mapstructure:"keep"           yaml:"keep"`
	QueueSize     int    `mapstructure:"queue_size"     yaml:"queue_size"`
	SweepSchedule string `mapstructure:"sweep_schedule" yaml:"sweep_schedule"`
}

type ReportServerConfig struct {
	CacheSize     int    `mapstructure:"cache_size"     yaml:"cache_size"`
	CacheTTL      string `mapstructure:"cache_ttl"      yaml:"cache_ttl"`
	SnapshotRows  int    `mapstructure:"snapshot_rows"  yaml:"snapshot_rows"`
	HistogramBins int    `mapstructure:"histogram_bins" yaml:"histogram_bins"`
}

// CacheDuration parses the cache TTL. Zero means entries never expire.
func (cfg ReportServerConfig) CacheDuration() time.Duration {
	ttl, err := time.ParseDuration(cfg.CacheTTL)
	if err != nil || ttl < 0 {
		return 0
	}
	return ttl
}

// AgentServerConfig configures the long running agent.
// An empty Inbox disables watch-folder ingestion, an empty MetricsAddress
// disables the metrics listener.
type AgentServerConfig struct {
	Inbox          string `mapstructure:"inbox"           yaml:"inbox"`
	Owner          string `mapstructure:"owner"           yaml:"owner"`
	MetricsAddress string `mapstructure:"metrics_address" yaml:"metrics_address"`
}
