// Package config loads process configuration and per-session settings.
//
// Process configuration comes from, in increasing priority: built-in
// defaults, an optional YAML file, a .env file in the working directory and
// EXIF_MCP_* environment variables. Nested keys map to environment names with
// dots replaced by underscores, so defaults.timeout is EXIF_MCP_DEFAULTS_TIMEOUT.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "EXIF_MCP"

// Config holds all process-level configuration.
type Config struct {
	LogLevel string      `mapstructure:"log_level"`
	HTTP     HTTPConfig  `mapstructure:"http"`
	Fetch    FetchConfig `mapstructure:"fetch"`

	// Defaults seeds every new session. Stdio runs use it unchanged.
	Defaults Session `mapstructure:"defaults"`
}

// HTTPConfig configures the Streamable HTTP transport.
type HTTPConfig struct {
	// Addr is the listen address; empty selects the stdio transport.
	Addr string `mapstructure:"addr"`
}

// FetchConfig configures outbound image downloads.
type FetchConfig struct {
	UserAgent string `mapstructure:"user_agent"`
}

// LoadOptions controls Load.
type LoadOptions struct {
	// Path is an explicit config file. When empty, ./exif-mcp.yaml is read if
	// present.
	Path string

	// DotEnv loads ./.env into the environment before reading variables.
	DotEnv bool

	// UserAgent is the default fetch.user_agent.
	UserAgent string
}

// Load reads configuration from defaults, file and environment.
func Load(opts LoadOptions) (*Config, error) {
	if opts.DotEnv {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("http.addr", "")
	v.SetDefault("fetch.user_agent", opts.UserAgent)

	d := DefaultSession()
	v.SetDefault("defaults.timeout", d.Timeout)
	v.SetDefault("defaults.max_file_size", d.MaxFileSize)
	v.SetDefault("defaults.include_technical", d.IncludeTechnical)
	v.SetDefault("defaults.include_location", d.IncludeLocation)

	if opts.Path != "" {
		v.SetConfigFile(opts.Path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("exif-mcp")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.Path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := ValidateSession(cfg.Defaults); err != nil {
		return nil, fmt.Errorf("defaults: %w", err)
	}
	return &cfg, nil
}
