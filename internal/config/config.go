// Package config loads the server configuration from YAML with environment overrides.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported database drivers.
const (
	DriverSQLite3  = "sqlite3"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Supported chat providers.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Chat      ChatConfig      `yaml:"chat"`
	Registry  RegistryConfig  `yaml:"registry"`
	Executors ExecutorsConfig `yaml:"executors"`
	Security  SecurityConfig  `yaml:"security"`
}

type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	PathPrefix string `yaml:"path_prefix"`
	// APIToken enables bearer authentication on /api when set.
	APIToken     string `yaml:"api_token"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
}

// DatabaseConfig selects the storage backend. Path is used by the sqlite
// drivers, URL by postgres.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	URL    string `yaml:"url"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ChatConfig struct {
	Provider    string  `yaml:"provider"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Timeout     string  `yaml:"timeout"`
}

type RegistryConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

type ExecutorsConfig struct {
	GitHubAction GitHubActionConfig `yaml:"github_action"`
	Script       ScriptConfig       `yaml:"script"`
	Webhook      WebhookConfig      `yaml:"webhook"`
}

type GitHubActionConfig struct {
	Token      string `yaml:"token"`
	APIBaseURL string `yaml:"api_base_url"`
	DefaultRef string `yaml:"default_ref"`
	Timeout    string `yaml:"timeout"`
}

type ScriptConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Shell          string `yaml:"shell"`
	DefaultTimeout int    `yaml:"default_timeout"`
	MaxTimeout     int    `yaml:"max_timeout"`
	MaxOutputSize  int    `yaml:"max_output_size"`
}

type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	Timeout string `yaml:"timeout"`
}

type SecurityConfig struct {
	// EncryptionKey is any secret string; a 256-bit key is derived from it.
	EncryptionKey string `yaml:"encryption_key"`
}

func (c *ChatConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 60*time.Second)
}

func (c *RegistryConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 15*time.Second)
}

func (c *GitHubActionConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

func (c *WebhookConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Load reads the YAML file at path, applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// Default returns a configuration built only from environment and defaults.
func Default() *Config {
	var cfg Config
	applyEnv(&cfg)
	setDefaults(&cfg)
	return &cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ROUTINEKIT_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("ROUTINEKIT_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("ROUTINEKIT_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("ROUTINEKIT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ROUTINEKIT_API_TOKEN"); v != "" {
		cfg.Server.APIToken = v
	}
	if v := os.Getenv("ROUTINEKIT_ENCRYPTION_KEY"); v != "" {
		cfg.Security.EncryptionKey = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" && cfg.Executors.GitHubAction.Token == "" {
		cfg.Executors.GitHubAction.Token = v
	}
	if cfg.Chat.APIKey == "" {
		switch cfg.Chat.Provider {
		case ProviderAnthropic:
			cfg.Chat.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		default:
			cfg.Chat.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverSQLite3
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/routines.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Chat.Provider == "" {
		cfg.Chat.Provider = ProviderGemini
	}
	if cfg.Chat.Model == "" {
		switch cfg.Chat.Provider {
		case ProviderAnthropic:
			cfg.Chat.Model = "claude-sonnet-4-5"
		default:
			cfg.Chat.Model = "gemini-2.5-flash"
		}
	}
	if cfg.Chat.Provider == ProviderAnthropic && cfg.Chat.BaseURL == "" {
		cfg.Chat.BaseURL = "https://api.anthropic.com/v1"
	}
	if cfg.Chat.Temperature == 0 {
		cfg.Chat.Temperature = 0.7
	}
	if cfg.Chat.MaxTokens == 0 {
		cfg.Chat.MaxTokens = 2048
	}
	if cfg.Registry.BaseURL == "" {
		cfg.Registry.BaseURL = "https://registry.modelcontextprotocol.io"
	}
	if cfg.Executors.GitHubAction.APIBaseURL == "" {
		cfg.Executors.GitHubAction.APIBaseURL = "https://api.github.com"
	}
	if cfg.Executors.GitHubAction.DefaultRef == "" {
		cfg.Executors.GitHubAction.DefaultRef = "main"
	}
	if cfg.Executors.Script.Shell == "" {
		cfg.Executors.Script.Shell = "/bin/sh"
	}
	if cfg.Executors.Script.DefaultTimeout == 0 {
		cfg.Executors.Script.DefaultTimeout = 300
	}
	if cfg.Executors.Script.MaxTimeout == 0 {
		cfg.Executors.Script.MaxTimeout = 3600
	}
	if cfg.Executors.Script.MaxOutputSize == 0 {
		cfg.Executors.Script.MaxOutputSize = 1 << 20
	}
}
