// Package config loads service configuration with Viper from an optional
// config file, environment variables prefixed ANEMIA_, and defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Model     ModelConfig     `mapstructure:"model"`
	History   HistoryConfig   `mapstructure:"history"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig holds the HTTP listener settings and the CORS allow-list.
type ServerConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	ReadTimeout    string `mapstructure:"read_timeout"`
	WriteTimeout   string `mapstructure:"write_timeout"`
	IdleTimeout    string `mapstructure:"idle_timeout"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

// ModelConfig locates the classifier artifact. The path is resolved relative
// to the service's working directory; an absent file selects the fallback.
type ModelConfig struct {
	Path string `mapstructure:"path"`
}

// HistoryConfig locates the append-only decision log.
type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig controls the logrus logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RateLimitConfig bounds request throughput on the API.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// Manager loads and validates the configuration.
type Manager struct {
	v      *viper.Viper
	config *Config
}

// NewManager builds a manager and loads configuration from all sources.
func NewManager() (*Manager, error) {
	m := &Manager{v: viper.New()}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

func (m *Manager) loadConfig() error {
	m.v.SetConfigName("config")
	m.v.SetConfigType("yaml")
	m.v.AddConfigPath(".")
	m.v.AddConfigPath("./config")
	m.v.AddConfigPath("/etc/anemia-triage/")

	m.v.SetEnvPrefix("ANEMIA")
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.v.AutomaticEnv()

	// Existing deployments configure CORS through plain ALLOWED_ORIGINS.
	if err := m.v.BindEnv("server.allowed_origins", "ANEMIA_SERVER_ALLOWED_ORIGINS", "ALLOWED_ORIGINS"); err != nil {
		return fmt.Errorf("error binding environment: %w", err)
	}

	m.setDefaults()

	if err := m.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; defaults and environment variables apply.
	}

	config := &Config{}
	if err := m.v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

func (m *Manager) setDefaults() {
	m.v.SetDefault("server.host", "0.0.0.0")
	m.v.SetDefault("server.port", 8000)
	m.v.SetDefault("server.read_timeout", "30s")
	m.v.SetDefault("server.write_timeout", "30s")
	m.v.SetDefault("server.idle_timeout", "120s")
	m.v.SetDefault("server.allowed_origins", "*")

	m.v.SetDefault("model.path", "data/pipeline.json")
	m.v.SetDefault("history.path", "data/history.csv")

	m.v.SetDefault("logging.level", "info")
	m.v.SetDefault("logging.format", "json")

	m.v.SetDefault("rate_limit.requests_per_second", 50.0)
	m.v.SetDefault("rate_limit.burst", 100)
}

// GetConfig returns the loaded configuration.
func (m *Manager) GetConfig() *Config {
	return m.config
}

// Reload re-reads all configuration sources.
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate checks the configuration for values the service cannot run with.
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Model.Path == "" {
		return fmt.Errorf("model artifact path is required")
	}
	if config.History.Path == "" {
		return fmt.Errorf("history log path is required")
	}
	if config.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("invalid rate limit: %f requests per second", config.RateLimit.RequestsPerSecond)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// OriginAllowList splits the configured comma-separated CORS allow-list.
func (c *ServerConfig) OriginAllowList() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
