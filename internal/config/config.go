// Package config loads project and daemon settings layered from
// built-in defaults, a project-level ".mu/config.yaml", and environment
// variables (optionally from a ".env" file).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ProjectConfig is the user-editable project configuration read from
// ".mu/config.yaml".
type ProjectConfig struct {
	Ignore []string `yaml:"ignore"`
	Watch  struct {
		Debounce time.Duration `yaml:"debounce"`
	} `yaml:"watch"`
}

// DefaultProjectConfig returns the built-in project defaults.
func DefaultProjectConfig() *ProjectConfig {
	return &ProjectConfig{}
}

// LoadProjectConfig reads ".mu/config.yaml" from root, returning
// defaults if the file does not exist or fails to parse.
func LoadProjectConfig(root string) *ProjectConfig {
	cfg := DefaultProjectConfig()
	data, err := os.ReadFile(filepath.Join(root, ".mu", "config.yaml"))
	if err != nil {
		return cfg
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return DefaultProjectConfig()
	}
	return cfg
}

// Config is the daemon's process-level configuration.
type Config struct {
	ListenAddr   string        `mapstructure:"listen_addr"`
	IdleShutdown time.Duration `mapstructure:"idle_shutdown"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	Debounce     time.Duration `mapstructure:"debounce"`
	LockDir      string        `mapstructure:"lock_dir"`
}

// Default returns the daemon's built-in defaults.
func Default() *Config {
	return &Config{
		ListenAddr:   "127.0.0.1:7777",
		IdleShutdown: 30 * time.Minute,
		CacheTTL:     5 * time.Minute,
		Debounce:     200 * time.Millisecond,
		LockDir:      ".mu",
	}
}

// Load layers built-in defaults, ".mu/config.yaml", and MU_*
// environment variables (including any ".env" overlay) into a Config.
func Load(root string) (*Config, error) {
	loadDotEnv(root)

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(filepath.Join(root, ".mu", "config.yaml"))

	cfg := Default()
	v.SetDefault("listen_addr", cfg.ListenAddr)
	v.SetDefault("idle_shutdown", cfg.IdleShutdown)
	v.SetDefault("cache_ttl", cfg.CacheTTL)
	v.SetDefault("debounce", cfg.Debounce)
	v.SetDefault("lock_dir", cfg.LockDir)

	v.SetEnvPrefix("MU")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

func loadDotEnv(root string) {
	path := filepath.Join(root, ".env")
	if _, err := os.Stat(path); err == nil {
		_ = godotenv.Load(path)
	}
}
