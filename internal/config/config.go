// Package config loads engine settings from a YAML file, TRIPLEHELIX_*
// environment variables, and defaults, in that priority order.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full engine configuration.
type Config struct {
	// DBPath is the sqlite file. Empty means the default XDG location.
	DBPath string `mapstructure:"db_path"`

	// CataloguePath is the content catalogue the session schedules over.
	CataloguePath string `mapstructure:"catalogue_path"`

	Backend  Backend  `mapstructure:"backend"`
	Sync     Sync     `mapstructure:"sync"`
	Server   Server   `mapstructure:"server"`
	Snapshot Snapshot `mapstructure:"snapshot"`
}

// Backend points the sync layer at a record server. With an empty URL the
// scheduler syncs straight into the local sqlite store.
type Backend struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Sync holds the flush timings.
type Sync struct {
	ImmediateDelay  time.Duration `mapstructure:"immediate_delay"`
	MinImmediateGap time.Duration `mapstructure:"min_immediate_gap"`
	FlushInterval   time.Duration `mapstructure:"flush_interval"`
	DeliveryTimeout time.Duration `mapstructure:"delivery_timeout"`
}

// Server configures the record server.
type Server struct {
	Addr string `mapstructure:"addr"`
}

// Snapshot configures periodic state captures.
type Snapshot struct {
	Interval time.Duration `mapstructure:"interval"`
	Keep     int           `mapstructure:"keep"`
}

// Load reads configuration. path may be empty, in which case the standard
// locations are searched; a missing config file is fine, env vars and
// defaults still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$XDG_CONFIG_HOME/triplehelix")
		v.AddConfigPath("$HOME/.config/triplehelix")
	}

	v.SetEnvPrefix("TRIPLEHELIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "")
	v.SetDefault("catalogue_path", "catalogue.json")
	v.SetDefault("backend.url", "")
	v.SetDefault("backend.timeout", 5*time.Second)
	v.SetDefault("sync.immediate_delay", 100*time.Millisecond)
	v.SetDefault("sync.min_immediate_gap", time.Second)
	v.SetDefault("sync.flush_interval", 10*time.Second)
	v.SetDefault("sync.delivery_timeout", 5*time.Second)
	v.SetDefault("server.addr", ":8787")
	v.SetDefault("snapshot.interval", time.Minute)
	v.SetDefault("snapshot.keep", 5)
}
