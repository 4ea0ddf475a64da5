// Package config holds build-time identity and the runtime settings of the
// document store, loaded with viper from defaults, an optional config file
// and DOCSTORE_* environment variables (in increasing priority).
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// injected configurations
var (
	APP_NAME    string = "brewery-docstore"
	APP_VERSION string = "0.1.0"
)

// EnvPrefix is prepended to every environment variable viper consults.
const EnvPrefix = "DOCSTORE"

// Defaults used when nothing else sets a value.
const (
	DefaultConnectionTarget = "memory://"
	DefaultCollectionName   = "default"
	DefaultNamespace        = "default"
	DefaultIDLength         = 15
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
)

// ErrInvalidConfig is returned by Validate and Load.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the runtime configuration of a collection adapter.
type Config struct {
	// ConnectionTarget is the store address, e.g. "redis://localhost:6379/0"
	// or "pebble:///var/lib/docstore".
	ConnectionTarget string `mapstructure:"connection_target"`

	// CollectionName is the key-space prefix documents are stored under.
	CollectionName string `mapstructure:"collection_name"`

	// Namespace isolates keys inside backends that share one physical
	// database (pebble, sqlite).
	Namespace string `mapstructure:"namespace"`

	// IDLength is the length of generated document ids.
	IDLength int `mapstructure:"id_length"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Default returns a Config populated with the package defaults.
func Default() *Config {
	return &Config{
		ConnectionTarget: DefaultConnectionTarget,
		CollectionName:   DefaultCollectionName,
		Namespace:        DefaultNamespace,
		IDLength:         DefaultIDLength,
		LogLevel:         DefaultLogLevel,
		LogFormat:        DefaultLogFormat,
	}
}

// Load reads the configuration. When path is empty an optional ".env"
// file in the working directory is used; a missing file is not an error.
// When path is set the file must exist and its type is taken from its
// extension.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName(".env")
		v.SetConfigType("env")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read .env: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("connection_target", d.ConnectionTarget)
	v.SetDefault("collection_name", d.CollectionName)
	v.SetDefault("namespace", d.Namespace)
	v.SetDefault("id_length", d.IDLength)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
}

// Validate checks that all fields contain sane values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ConnectionTarget) == "" {
		return fmt.Errorf("%w: connection target must not be empty", ErrInvalidConfig)
	}
	if c.CollectionName == "" {
		return fmt.Errorf("%w: collection name must not be empty", ErrInvalidConfig)
	}
	if strings.Contains(c.CollectionName, ":") {
		return fmt.Errorf("%w: collection name %q must not contain ':'", ErrInvalidConfig, c.CollectionName)
	}
	if c.IDLength <= 0 {
		return fmt.Errorf("%w: id length must be positive, got %d", ErrInvalidConfig, c.IDLength)
	}
	return nil
}
