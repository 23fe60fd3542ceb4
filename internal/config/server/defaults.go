package server

import "github.com/spf13/viper"

func GetServerDefault() BaseServerConfig {
	return BaseServerConfig{
		ShutdownTimeout: "10s",

		Log: LogServerConfig{
			Level:      "INFO",
			TimeFormat: "2006-01-02 15:04:05",
			File:       "",
			NoColor:    false,
			JSON:       false,
			NoTerminal: false,
			Rotation: LogServerRotationConfig{
				MaxSize:    128,
				MaxBackups: 5,
				MaxAge:     16,
				Compress:   false,
			},
		},

		Metadata: MetadataServerConfig{
			Type: "sqlite",
			SQLite: MetadataSQLiteConfig{
				Path:     "./data/chemviz.db",
				LogLevel: "silent",
			},
		},

		Storage: StorageServerConfig{
			Path: "./data/media",
		},

		Ingest: IngestServerConfig{
			MaxFileSize:  5 * 1024 * 1024,
			MaxRows:      10000,
			MaxRowErrors: 50,
			AllowedMimeTypes: []string{
				"text/csv",
				"application/csv",
				"application/vnd.ms-excel",
				"text/plain",
			},
		},

		Retention: RetentionServerConfig{
			Keep:          5,
			QueueSize:     64,
			SweepSchedule: "",
		},

		Report: ReportServerConfig{
			CacheSize:     16,
			CacheTTL:      "10m",
			SnapshotRows:  10,
			HistogramBins: 6,
		},

		Agent: AgentServerConfig{
			Inbox:          "",
			Owner:          "",
			MetricsAddress: "",
		},
	}
}

func setDefaults() {
	defaults := GetServerDefault()

	viper.SetDefault("shutdown_timeout", defaults.ShutdownTimeout)

	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("log.time_format", defaults.Log.TimeFormat)
	viper.SetDefault("log.file", defaults.Log.File)
	viper.SetDefault("log.no_color", defaults.Log.NoColor)
	viper.SetDefault("log.json", defaults.Log.JSON)
	viper.SetDefault("log.no_terminal", defaults.Log.NoTerminal)
	viper.SetDefault("log.rotation.max_size", defaults.Log.Rotation.MaxSize)
	viper.SetDefault("log.rotation.max_backups", defaults.Log.Rotation.MaxBackups)
	viper.SetDefault("log.rotation.max_age", defaults.Log.Rotation.MaxAge)
	viper.SetDefault("log.rotation.compress", defaults.Log.Rotation.Compress)

	viper.SetDefault("metadata.type", defaults.Metadata.Type)
	viper.SetDefault("metadata.sqlite.path", defaults.Metadata.SQLite.Path)
	viper.SetDefault("metadata.sqlite.log_level", defaults.Metadata.SQLite.LogLevel)

	viper.SetDefault("storage.path", defaults.Storage.Path)

	viper.SetDefault("ingest.max_file_size", defaults.Ingest.MaxFileSize)
	viper.SetDefault("ingest.max_rows", defaults.Ingest.MaxRows)
	viper.SetDefault("ingest.max_row_errors", defaults.Ingest.MaxRowErrors)
	viper.SetDefault("ingest.allowed_mime_types", defaults.Ingest.AllowedMimeTypes)

	viper.SetDefault("retention.keep", defaults.Retention.Keep)
	viper.SetDefault("retention.queue_size", defaults.Retention.QueueSize)
	viper.SetDefault("retention.sweep_schedule", defaults.Retention.SweepSchedule)

	viper.SetDefault("report.cache_size", defaults.Report.CacheSize)
	viper.SetDefault("report.cache_ttl", defaults.Report.CacheTTL)
	viper.SetDefault("report.snapshot_rows", defaults.Report.SnapshotRows)
	viper.SetDefault("report.histogram_bins", defaults.Report.HistogramBins)

	viper.SetDefault("agent.inbox", defaults.Agent.Inbox)
	viper.SetDefault("agent.owner", defaults.Agent.Owner)
	viper.SetDefault("agent.metrics_address", defaults.Agent.MetricsAddress)
}
