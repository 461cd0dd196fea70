package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".blametally"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for blametally settings.
const envPrefix = "BLAMETALLY"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Default configuration values.
const (
	DefaultWorkers         = 0 // 0 means runtime.NumCPU()
	DefaultMode            = ModeConcurrent
	DefaultQueueSize       = 64
	DefaultResultQueueSize = 64
	DefaultRetryAttempts   = 10
	DefaultRetryInterval   = "50ms"
	DefaultFormat          = FormatTable
	DefaultTop             = 0 // 0 means no truncation
)

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("pipeline.workers", DefaultWorkers)
	viperCfg.SetDefault("pipeline.mode", DefaultMode)
	viperCfg.SetDefault("pipeline.queue_size", DefaultQueueSize)
	viperCfg.SetDefault("pipeline.result_queue_size", DefaultResultQueueSize)
	viperCfg.SetDefault("pipeline.retry_attempts", DefaultRetryAttempts)
	viperCfg.SetDefault("pipeline.retry_interval", DefaultRetryInterval)

	viperCfg.SetDefault("output.format", DefaultFormat)
	viperCfg.SetDefault("output.top", DefaultTop)
	viperCfg.SetDefault("output.no_color", false)

	viperCfg.SetDefault("metrics.listen", "")
}
