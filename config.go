package main

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the server settings.
type Config struct {
	ListenAddr   string
	ClientDir    string
	PublicURL    string
	DatabasePath string
	LogLevel     string
	TickPeriod   time.Duration
}

// LoadConfig reads configuration from defaults, an optional arena.yaml in
// configDir, and ARENA_* environment overrides.
func LoadConfig(configDir string) (Config, error) {
	viper.SetDefault("listenAddr", ":8080")
	viper.SetDefault("clientDir", "./client")
	viper.SetDefault("publicUrl", "http://localhost:8080")
	viper.SetDefault("databasePath", "./arena.db")
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("tickMs", 10)

	viper.SetConfigName("arena")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)

	viper.SetEnvPrefix("arena")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env carry the day.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	cfg := Config{
		ListenAddr:   viper.GetString("listenAddr"),
		ClientDir:    viper.GetString("clientDir"),
		PublicURL:    strings.TrimRight(viper.GetString("publicUrl"), "/"),
		DatabasePath: viper.GetString("databasePath"),
		LogLevel:     viper.GetString("logLevel"),
		TickPeriod:   time.Duration(viper.GetInt("tickMs")) * time.Millisecond,
	}
	if cfg.TickPeriod <= 0 {
		cfg.TickPeriod = 10 * time.Millisecond
	}
	return cfg, nil
}
