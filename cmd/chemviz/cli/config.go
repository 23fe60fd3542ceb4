package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var configPaths = []string{".", "./config", "/etc/chemviz", "$HOME/.chemviz"}

func initConfig(path string) error {
	envFiles := []string{".env", ".env.local"}
	for _, envFile := range envFiles {
		// Missing .env files are fine
		_ = godotenv.Load(envFile)
	}

	if path != "" {
		viper.SetConfigFile(path)
		configDir := filepath.Dir(path)
		for _, envFile := range envFiles {
			_ = godotenv.Load(filepath.Join(configDir, envFile))
		}
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		for _, configPath := range configPaths {
			viper.AddConfigPath(configPath)
			for _, envFile := range envFiles {
				_ = godotenv.Load(filepath.Join(configPath, envFile))
			}
		}
	}

	// CHEMVIZ_INGEST_MAX_ROWS overrides ingest.max_rows
	viper.SetEnvPrefix("CHEMVIZ")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}
