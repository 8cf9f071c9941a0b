// Package config loads gofastd's configuration via viper, covering the
// full set of server, persistence, and eviction knobs this
// implementation needs.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable the server reads at startup.
type Config struct {
	// Server settings
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Databases  int    `mapstructure:"databases"`
	MaxClients int    `mapstructure:"max_clients"`

	// Performance settings
	MaxMemory       string `mapstructure:"max_memory"`
	MaxMemoryPolicy string `mapstructure:"max_memory_policy"`
	TickHz          int    `mapstructure:"tick_hz"`
	ExpireSampleSize int   `mapstructure:"expire_sample_size"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// Persistence
	DataDir        string `mapstructure:"data_dir"`
	SnapshotFile   string `mapstructure:"snapshot_file"`
	SaveInterval   time.Duration `mapstructure:"save_interval"`
	AutoSaveRules  string `mapstructure:"auto_save_rules"` // "900 1 300 10" style
	AppendOnly     bool   `mapstructure:"append_only"`
	AppendFilename string `mapstructure:"append_filename"`
	AppendFsync    string `mapstructure:"append_fsync"` // always|everysec|no

	// Security
	RequireAuth bool   `mapstructure:"require_auth"`
	Password    string `mapstructure:"password"`

	// Networking
	TCPKeepAlive bool          `mapstructure:"tcp_keepalive"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`

	// Observability
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// DefaultConfig returns a Config with the values gofastd ships with.
func DefaultConfig() *Config {
	return &Config{
		Host:             "127.0.0.1",
		Port:             6379,
		Databases:        16,
		MaxClients:       10000,
		MaxMemory:        "0", // 0 means unlimited
		MaxMemoryPolicy:  "noeviction",
		TickHz:           10,
		ExpireSampleSize: 20,
		LogLevel:         "info",
		LogFormat:        "text",
		DataDir:          "./data",
		SnapshotFile:     "dump.gfs",
		SaveInterval:     300 * time.Second,
		AutoSaveRules:    "900 1 300 10 60 10000",
		AppendOnly:       false,
		AppendFilename:   "appendonly",
		AppendFsync:      "everysec",
		RequireAuth:      false,
		Password:         "",
		TCPKeepAlive:     true,
		ReadTimeout:      30 * time.Second,
		WriteTimeout:     30 * time.Second,
		IdleTimeout:      0,
		MetricsAddr:      "",
	}
}

// Load reads configuration from a config file, environment variables
// (GOFASTD_ prefixed), and the values already set on v, in viper's
// usual override order.
func Load(v *viper.Viper) (*Config, error) {
	config := DefaultConfig()

	v.SetConfigName("gofastd")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/gofastd/")
	v.AddConfigPath("$HOME/.gofastd")

	v.SetEnvPrefix("GOFASTD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v, config)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("host", c.Host)
	v.SetDefault("port", c.Port)
	v.SetDefault("databases", c.Databases)
	v.SetDefault("max_clients", c.MaxClients)
	v.SetDefault("max_memory", c.MaxMemory)
	v.SetDefault("max_memory_policy", c.MaxMemoryPolicy)
	v.SetDefault("tick_hz", c.TickHz)
	v.SetDefault("expire_sample_size", c.ExpireSampleSize)
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("log_format", c.LogFormat)
	v.SetDefault("data_dir", c.DataDir)
	v.SetDefault("snapshot_file", c.SnapshotFile)
	v.SetDefault("save_interval", c.SaveInterval)
	v.SetDefault("auto_save_rules", c.AutoSaveRules)
	v.SetDefault("append_only", c.AppendOnly)
	v.SetDefault("append_filename", c.AppendFilename)
	v.SetDefault("append_fsync", c.AppendFsync)
	v.SetDefault("require_auth", c.RequireAuth)
	v.SetDefault("password", c.Password)
	v.SetDefault("tcp_keepalive", c.TCPKeepAlive)
	v.SetDefault("read_timeout", c.ReadTimeout)
	v.SetDefault("write_timeout", c.WriteTimeout)
	v.SetDefault("idle_timeout", c.IdleTimeout)
	v.SetDefault("metrics_addr", c.MetricsAddr)
}

// Validate checks the configuration for obviously invalid values.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Port)
	}
	if c.Databases < 1 {
		return fmt.Errorf("databases must be at least 1")
	}
	if c.MaxClients < 1 {
		return fmt.Errorf("max_clients must be at least 1")
	}

	validLogLevels := []string{"trace", "debug", "info", "warn", "error", "fatal"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log_level: %s (must be one of: %s)",
			c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validPolicies := []string{"noeviction", "allkeys-random", "volatile-random", "volatile-ttl"}
	if !contains(validPolicies, c.MaxMemoryPolicy) {
		return fmt.Errorf("invalid max_memory_policy: %s (must be one of: %s)",
			c.MaxMemoryPolicy, strings.Join(validPolicies, ", "))
	}

	validFsync := []string{"always", "everysec", "no"}
	if !contains(validFsync, c.AppendFsync) {
		return fmt.Errorf("invalid append_fsync: %s (must be one of: %s)",
			c.AppendFsync, strings.Join(validFsync, ", "))
	}

	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// ParseMemorySize converts a human-readable size ("256MB", "1GB") to
// bytes; "0" or "" means unlimited.
func (c *Config) ParseMemorySize() (int64, error) {
	size := strings.ToUpper(strings.TrimSpace(c.MaxMemory))
	if size == "" || size == "0" {
		return 0, nil
	}

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(size, "KB"):
		multiplier = 1024
		size = strings.TrimSuffix(size, "KB")
	case strings.HasSuffix(size, "MB"):
		multiplier = 1024 * 1024
		size = strings.TrimSuffix(size, "MB")
	case strings.HasSuffix(size, "GB"):
		multiplier = 1024 * 1024 * 1024
		size = strings.TrimSuffix(size, "GB")
	}

	value, err := strconv.ParseInt(size, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid memory size: %s", c.MaxMemory)
	}
	return value * multiplier, nil
}

func (c *Config) String() string {
	return fmt.Sprintf("gofastd: %s:%d, databases=%d, maxmemory=%s(%s), logLevel=%s",
		c.Host, c.Port, c.Databases, c.MaxMemory, c.MaxMemoryPolicy, c.LogLevel)
}
