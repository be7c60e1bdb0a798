package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Backend   BackendConfig   `yaml:"backend"`
	Server    ServerConfig    `yaml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	State     StateConfig     `yaml:"state"`
	Identity  IdentityConfig  `yaml:"identity"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port for net.Listen.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type StateConfig struct {
	Dir string `yaml:"dir"`
}

type IdentityConfig struct {
	UsernamePrefix string `yaml:"username_prefix"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	stateDir := ".coach"
	if dir, err := os.UserConfigDir(); err == nil {
		stateDir = filepath.Join(dir, "futurecoach")
	}
	return &Config{
		Backend: BackendConfig{
			BaseURL: "http://127.0.0.1:8000",
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8090,
		},
		Tailscale: TailscaleConfig{
			Hostname: "coach",
			StateDir: filepath.Join(stateDir, "tsnet"),
		},
		State:    StateConfig{Dir: stateDir},
		Identity: IdentityConfig{UsernamePrefix: "guest"},
		Log:      LogConfig{Level: "info"},
	}
}

// Load starts from Default, overlays the YAML file at path (skipped when path
// is empty), loads envFile into the environment without overriding variables
// that are already set, then applies environment variable overrides.
// Env vars use the prefix COACH_ and underscore-separated paths:
//
//	COACH_BACKEND_URL, COACH_BACKEND_TIMEOUT,
//	COACH_SERVER_HOST, COACH_SERVER_PORT,
//	COACH_TAILSCALE_ENABLED, COACH_TAILSCALE_HOSTNAME, COACH_TAILSCALE_STATE_DIR,
//	COACH_STATE_DIR, COACH_USERNAME_PREFIX,
//	COACH_LOG_LEVEL, COACH_LOG_FILE, COACH_METRICS_ENABLED
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading env file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("COACH_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("COACH_BACKEND_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("COACH_BACKEND_TIMEOUT: %w", err)
		}
		cfg.Backend.Timeout = d
	}
	if v := os.Getenv("COACH_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("COACH_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("COACH_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	if v := os.Getenv("COACH_TAILSCALE_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("COACH_TAILSCALE_STATE_DIR"); v != "" {
		cfg.Tailscale.StateDir = v
	}
	if v := os.Getenv("COACH_STATE_DIR"); v != "" {
		cfg.State.Dir = v
	}
	if v := os.Getenv("COACH_USERNAME_PREFIX"); v != "" {
		cfg.Identity.UsernamePrefix = v
	}
	if v := os.Getenv("COACH_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("COACH_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv("COACH_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	return nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend.base_url must be an http(s) URL, got %q", c.Backend.BaseURL)
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout must not be negative")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.State.Dir == "" {
		return fmt.Errorf("state.dir is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	if c.Identity.UsernamePrefix == "" {
		return fmt.Errorf("identity.username_prefix is required")
	}
	return nil
}
