package config

import (
	"fmt"
	"os"
	"time"

	"github.com/resdex/resdex/internal/configx"
	"github.com/resdex/resdex/internal/flagx"
)

const EnvPrefix = "RESDEX"

const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Config holds runtime settings for the ResDex CLI.
type Config struct {
	ServerEndpointAddr  string        `mapstructure:"server_endpoint_addr"`
	OnlineCheckInterval time.Duration `mapstructure:"online_check_interval"`
	CacheBackend        string        `mapstructure:"cache_backend"`
	CachePath           string        `mapstructure:"cache_path"`
	CacheTTL            time.Duration `mapstructure:"cache_ttl"`
	SearchDebounce      time.Duration `mapstructure:"search_debounce"`
	ProbeTimeout        time.Duration `mapstructure:"probe_timeout"`
	ProbeSafeMode       bool          `mapstructure:"probe_safe_mode"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.CacheBackend = BackendSQLite
	c.CachePath = "resdex_cache.db"
	c.CacheTTL = 5 * time.Minute
	c.SearchDebounce = 300 * time.Millisecond
	c.ProbeTimeout = 5 * time.Second
	c.ProbeSafeMode = false
}

func (c *Config) validate() error {
	if c.CacheBackend != BackendSQLite && c.CacheBackend != BackendBadger {
		return fmt.Errorf("unknown cache backend %q", c.CacheBackend)
	}
	if c.CacheTTL <= 0 || c.SearchDebounce < 0 || c.ProbeTimeout <= 0 {
		return fmt.Errorf("durations must be positive")
	}
	return nil
}

// LoadConfig constructs a Config from defaults, the config file and environment,
// then command-line flags. Later sources take precedence. Invalid input panics.
func LoadConfig() *Config {
	return load(os.Args[1:])
}

func load(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := configx.LoadDotEnv(); err != nil {
		panic(err)
	}
	if err := configx.Overlay(cfg, EnvPrefix, flagx.ConfigFileFlag(args)); err != nil {
		panic(err)
	}
	parseFlags(cfg, args)

	if err := cfg.validate(); err != nil {
		panic(err)
	}
	return cfg
}
