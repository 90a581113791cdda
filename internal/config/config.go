package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fleetops/herd/internal/cluster"
	"github.com/fleetops/herd/internal/logger"
)

// Environment modes. Clustering defaults to on only in production; an
// explicit cluster.enabled always wins.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the top-level TOML structure, resolved once at startup.
// Every key can be overridden from the environment with a HERD_ prefix
// (HERD_CLUSTER_WORKER_COUNT, HERD_SERVER_LISTEN, ...).
type Config struct {
	Environment string        `toml:"environment" mapstructure:"environment"`
	Cluster     ClusterConfig `toml:"cluster" mapstructure:"cluster"`
	Server      ServerConfig  `toml:"server" mapstructure:"server"`
	Log         logger.Config `toml:"log" mapstructure:"log"`
	History     HistoryConfig `toml:"history" mapstructure:"history"`
	Env         []string      `toml:"env" mapstructure:"env"`
}

type ClusterConfig struct {
	Enabled      *bool         `toml:"enabled" mapstructure:"enabled"`
	WorkerCount  int           `toml:"worker_count" mapstructure:"worker_count"`
	RestartDelay time.Duration `toml:"restart_delay" mapstructure:"restart_delay"`
	MaxRespawns  int           `toml:"max_respawns" mapstructure:"max_respawns"`
}

type ServerConfig struct {
	Listen        string        `toml:"listen" mapstructure:"listen"`
	AdminListen   string        `toml:"admin_listen" mapstructure:"admin_listen"`
	DrainTimeout  time.Duration `toml:"drain_timeout" mapstructure:"drain_timeout"`
	ShutdownGrace time.Duration `toml:"shutdown_grace" mapstructure:"shutdown_grace"`
}

type HistoryConfig struct {
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

// Load reads the TOML file at path (optional) and applies HERD_* environment
// overrides on top.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("environment", EnvDevelopment)
	v.SetDefault("cluster.worker_count", 0)
	v.SetDefault("cluster.restart_delay", time.Duration(0))
	v.SetDefault("cluster.max_respawns", 0)
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.admin_listen", "127.0.0.1:9090")
	v.SetDefault("server.drain_timeout", 5*time.Second)
	v.SetDefault("server.shutdown_grace", 10*time.Second)
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("HERD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only resolves keys viper already knows about; keys without
	// a default (cluster.enabled keeps nil-means-unset semantics, so it cannot
	// have one) need an explicit binding to be overridable.
	for _, key := range []string{
		"cluster.enabled",
		"history.dsn",
		"env",
		"log.dir", "log.stdout_path", "log.stderr_path",
		"log.max_size_mb", "log.max_backups", "log.max_age_days",
		"log.compress", "log.color",
	} {
		_ = v.BindEnv(key)
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return nil, fmt.Errorf("unknown environment %q", c.Environment)
	}
	if c.Cluster.MaxRespawns < 0 {
		return nil, fmt.Errorf("cluster.max_respawns must be >= 0")
	}
	return &c, nil
}

// ClusterEnabled resolves the clustering switch: explicit cluster.enabled if
// set, otherwise on in production only.
func (c *Config) ClusterEnabled() bool {
	if c.Cluster.Enabled != nil {
		return *c.Cluster.Enabled
	}
	return c.Environment == EnvProduction
}

// SupervisorConfig maps the file configuration onto the supervisor's
// immutable config.
func (c *Config) SupervisorConfig() cluster.Config {
	return cluster.Config{
		Enabled:      c.ClusterEnabled(),
		WorkerCount:  c.Cluster.WorkerCount,
		RestartDelay: c.Cluster.RestartDelay,
		MaxRespawns:  c.Cluster.MaxRespawns,
	}
}
