// Package config loads zarrdump settings from file, environment and flags
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nainya/zarrdump/internal/logger"
)

// EnvPrefix prefixes environment overrides, e.g. ZARRDUMP_LOG_LEVEL.
const EnvPrefix = "ZARRDUMP"

// Config represents the zarrdump configuration
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Check   CheckConfig   `mapstructure:"check"`
	Server  ServerConfig  `mapstructure:"server"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Storage StorageConfig `mapstructure:"storage"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// CheckConfig tunes the sampled CF checks
type CheckConfig struct {
	SampleLimit uint64  `mapstructure:"sample_limit"`
	Tolerance   float64 `mapstructure:"tolerance"`
}

// ServerConfig represents gRPC server configuration
type ServerConfig struct {
	GrpcPort    int    `mapstructure:"grpc_port"`
	MetricsPort int    `mapstructure:"metrics_port"`
	Root        string `mapstructure:"root"`
}

// MetricsConfig controls one-shot metrics export
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// StorageConfig represents bucket access configuration
type StorageConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"log-level":        "log.level",
	"log-pretty":       "log.pretty",
	"sample-limit":     "check.sample_limit",
	"tolerance":        "check.tolerance",
	"port":             "server.grpc_port",
	"metrics-port":     "server.metrics_port",
	"root":             "server.root",
	"metrics-textfile": "metrics.textfile",
	"credentials":      "storage.credentials_file",
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Pretty: true},
		Check:  CheckConfig{SampleLimit: 10000, Tolerance: 1e-6},
		Server: ServerConfig{GrpcPort: 50051, MetricsPort: 9090},
	}
}

// Load reads zarrdump.yaml (or file, when set), then ZARRDUMP_* environment
// variables, then any flags in flags that were set explicitly.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	d := Defaults()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)
	v.SetDefault("check.sample_limit", d.Check.SampleLimit)
	v.SetDefault("check.tolerance", d.Check.Tolerance)
	v.SetDefault("server.grpc_port", d.Server.GrpcPort)
	v.SetDefault("server.metrics_port", d.Server.MetricsPort)
	v.SetDefault("server.root", d.Server.Root)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
	v.SetDefault("storage.credentials_file", d.Storage.CredentialsFile)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("zarrdump")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no command can run with
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Check.SampleLimit == 0 {
		return errors.New("check.sample_limit must be positive")
	}
	if c.Check.Tolerance < 0 {
		return fmt.Errorf("check.tolerance must not be negative, got: %g", c.Check.Tolerance)
	}
	if err := validPort("server.grpc_port", c.Server.GrpcPort); err != nil {
		return err
	}
	if err := validPort("server.metrics_port", c.Server.MetricsPort); err != nil {
		return err
	}
	if c.Server.GrpcPort == c.Server.MetricsPort {
		return fmt.Errorf("server.grpc_port and server.metrics_port must differ, both are %d", c.Server.GrpcPort)
	}
	return nil
}

func validPort(key string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got: %d", key, port)
	}
	return nil
}
