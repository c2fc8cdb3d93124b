// Package config loads client settings from defaults, an optional YAML file
// and EVENTFLOW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix prefixes every environment override, e.g. EVENTFLOW_BACKEND_URL.
const EnvPrefix = "EVENTFLOW"

// Polling bounds for list screens.
const (
	MinPollInterval = 5 * time.Second
	MaxPollInterval = 10 * time.Second
)

// Config holds all client configuration.
type Config struct {
	BackendURL string         `mapstructure:"backend_url"`
	Timeout    time.Duration  `mapstructure:"timeout"`
	Poll       PollConfig     `mapstructure:"poll"`
	Fetch      FetchConfig    `mapstructure:"fetch"`
	List       ListConfig     `mapstructure:"list"`
	Log        LogConfig      `mapstructure:"log"`
	Geocoder   GeocoderConfig `mapstructure:"geocoder"`

	// Dir holds the session files; it is not read from the config file.
	Dir string `mapstructure:"-"`
}

// PollConfig holds screen refresh intervals.
type PollConfig struct {
	EventsInterval time.Duration `mapstructure:"events_interval"`
	MapInterval    time.Duration `mapstructure:"map_interval"`
}

// FetchConfig bounds the per-fetch location lookups.
type FetchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// ListConfig sets the page size of full list fetches.
type ListConfig struct {
	Batch int `mapstructure:"batch"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	Dev   bool   `mapstructure:"dev"`
}

// GeocoderConfig points at a Nominatim instance.
type GeocoderConfig struct {
	URL       string        `mapstructure:"url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Dir returns the per-user config directory.
func Dir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "eventflow")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "eventflow")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend_url", "http://127.0.0.1:8090")
	v.SetDefault("timeout", "30s")

	v.SetDefault("poll.events_interval", "5s")
	v.SetDefault("poll.map_interval", "10s")

	v.SetDefault("fetch.concurrency", 8)
	v.SetDefault("list.batch", 500)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.dev", false)

	v.SetDefault("geocoder.url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user_agent", "eventflow-cli")
	v.SetDefault("geocoder.timeout", "10s")
}

// Load reads configuration. With an empty path config.yaml in dir is used if
// present; an explicit path must exist.
func Load(path, dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Dir = dir
	cfg.BackendURL = strings.TrimRight(strings.TrimSpace(cfg.BackendURL), "/")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges and formats.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend_url: want http(s)://host, got %q", c.BackendURL)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	for name, d := range map[string]time.Duration{
		"poll.events_interval": c.Poll.EventsInterval,
		"poll.map_interval":    c.Poll.MapInterval,
	} {
		if d < MinPollInterval || d > MaxPollInterval {
			return fmt.Errorf("%s must be between %s and %s, got %s", name, MinPollInterval, MaxPollInterval, d)
		}
	}
	if c.Fetch.Concurrency < 1 {
		return errors.New("fetch.concurrency must be at least 1")
	}
	if c.List.Batch < 1 || c.List.Batch > 1000 {
		return fmt.Errorf("list.batch must be between 1 and 1000, got %d", c.List.Batch)
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
