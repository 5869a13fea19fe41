package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/metaschema-go/metaschema/internal/constraint"
	"github.com/metaschema-go/metaschema/internal/logging"
)

// Output formats
const (
	OutputText = "text"
	OutputJSON = "json"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "METASCHEMA"

// Config represents the metaschema tool configuration
type Config struct {
	LogLevel string `mapstructure:"log_level"`
	Output   string `mapstructure:"output"`
	// MinLevel hides findings below this level from the output.
	MinLevel string `mapstructure:"min_level"`
	NoColor  bool   `mapstructure:"no_color"`
	// ReportDB is the SQLite file runs are recorded in. Empty disables
	// recording.
	ReportDB string `mapstructure:"report_db"`
	BaseURI  string `mapstructure:"base_uri"`
	// Constraints lists external constraint files applied to every schema.
	Constraints []string `mapstructure:"constraints"`
}

// Load reads metaschema.yaml (or .toml / .json) from the working directory,
// or configFile when it is not empty. A .env file in the working directory is
// loaded into the environment first; METASCHEMA_* variables override file
// values.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("output", OutputText)
	v.SetDefault("min_level", "informational")
	v.SetDefault("no_color", false)
	v.SetDefault("report_db", "")
	v.SetDefault("base_uri", "")
	v.SetDefault("constraints", []string{})

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("metaschema")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks every enumerated value
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	switch c.Output {
	case OutputText, OutputJSON:
	default:
		return fmt.Errorf("output must be %q or %q, got: %s", OutputText, OutputJSON, c.Output)
	}
	if _, err := constraint.ParseLevel(c.MinLevel); err != nil {
		return fmt.Errorf("min_level: %w", err)
	}
	if c.BaseURI != "" {
		u, err := url.Parse(c.BaseURI)
		if err != nil || !u.IsAbs() {
			return fmt.Errorf("base_uri must be an absolute URI, got: %s", c.BaseURI)
		}
	}
	return nil
}

// MinimumLevel returns the parsed MinLevel
func (c *Config) MinimumLevel() constraint.Level {
	level, err := constraint.ParseLevel(c.MinLevel)
	if err != nil {
		return constraint.LevelInformational
	}
	return level
}

// StaticBaseURI returns the parsed BaseURI, or nil when unset
func (c *Config) StaticBaseURI() *url.URL {
	if c.BaseURI == "" {
		return nil
	}
	u, err := url.Parse(c.BaseURI)
	if err != nil {
		return nil
	}
	return u
}
