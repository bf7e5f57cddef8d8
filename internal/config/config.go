package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved application configuration. Precedence:
// flags bound to viper, then CHOUBO_ environment variables, then the
// config file, then the defaults below.
type Config struct {
	StoragePath       string
	LogLevel          string
	LogFormat         string
	SaveRetryAttempts int
	SaveRetryUnit     time.Duration
	BackupRetain      int
	BackupFraction    float64
}

// Load resolves the configuration from viper.
func Load() (*Config, error) {
	viper.SetDefault("storage.path", defaultStoragePath())
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
	viper.SetDefault("save.retry_attempts", 3)
	viper.SetDefault("save.retry_unit", "1s")
	viper.SetDefault("backup.retain_per_kind", 10)
	viper.SetDefault("backup.auto_fraction", 0.1)

	unit, err := time.ParseDuration(viper.GetString("save.retry_unit"))
	if err != nil {
		return nil, fmt.Errorf("invalid save.retry_unit: %w", err)
	}

	cfg := &Config{
		StoragePath:       ExpandPath(viper.GetString("storage.path")),
		LogLevel:          viper.GetString("logging.level"),
		LogFormat:         viper.GetString("logging.format"),
		SaveRetryAttempts: viper.GetInt("save.retry_attempts"),
		SaveRetryUnit:     unit,
		BackupRetain:      viper.GetInt("backup.retain_per_kind"),
		BackupFraction:    viper.GetFloat64("backup.auto_fraction"),
	}
	return cfg, nil
}

func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "choubo.db"
	}
	return filepath.Join(home, ".local", "share", "choubo", "choubo.db")
}
