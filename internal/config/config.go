// Package config handles configuration loading for taskforge.
// It supports XDG config paths, project-level overrides, environment
// variables, and a dotenv loader that never overwrites the process
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for taskforge.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Server    ServerConfig    `mapstructure:"server"`
	Output    OutputConfig    `mapstructure:"output"`
	Demo      DemoConfig      `mapstructure:"demo"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Batch     BatchConfig     `mapstructure:"batch"`
	State     StateConfig     `mapstructure:"state"`
	Verbose   bool            `mapstructure:"verbose"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
	// UseBedrock routes requests through AWS Bedrock instead of the direct API.
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// OutputConfig holds artifact directory and retention settings.
type OutputConfig struct {
	// Root is the artifact root directory; task trees live under Root/tasks.
	Root string `mapstructure:"root"`
	// RetentionDays deletes task directories older than this; 0 disables.
	RetentionDays int `mapstructure:"retention_days"`
	// MaxDiskMB caps total task directory size; 0 disables.
	MaxDiskMB int `mapstructure:"max_disk_mb"`
}

// DemoConfig holds demo-mode settings. Demo mode only activates when
// enabled and no API key is present.
type DemoConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// RelayURL is an optional completion relay; without it demo calls
	// return a synthetic reply.
	RelayURL string `mapstructure:"relay_url"`
	// RelaySecret is sent in the X-Taskforge-Demo header when set.
	RelaySecret string `mapstructure:"relay_secret"`
}

// GeneratorConfig holds code generation settings.
type GeneratorConfig struct {
	// TemplateDir points at a directory of YAML template packs that
	// extend the built-in fallback templates.
	TemplateDir string `mapstructure:"template_dir"`
	MaxTokens   int    `mapstructure:"max_tokens"`
	// DefaultLanguage is used when a request names no language.
	DefaultLanguage string `mapstructure:"default_language"`
}

// BatchConfig holds batch runner settings.
type BatchConfig struct {
	// Root is the batch exchange directory (input/plain, input/json, output/final).
	Root string `mapstructure:"root"`
	// Workers bounds concurrent file processing.
	Workers int `mapstructure:"workers"`
}

// StateConfig holds durable history settings.
type StateConfig struct {
	// DBPath is the SQLite history database path; empty uses the
	// default under the output root.
	DBPath string `mapstructure:"db_path"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables. Precedence (highest to lowest):
// 1. Environment variables (TASKFORGE_*, ANTHROPIC_API_KEY)
// 2. Project config (.taskforge.yaml in current directory or parent)
// 3. User config (~/.config/taskforge/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	LoadDotenv()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("TASKFORGE")
	v.AutomaticEnv()

	bindEnvVars(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// bindEnvVars maps individual environment variables onto config keys.
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("anthropic.model", "TASKFORGE_MODEL")
	v.BindEnv("anthropic.use_bedrock", "TASKFORGE_USE_BEDROCK")
	v.BindEnv("anthropic.aws_region", "AWS_REGION")
	v.BindEnv("demo.enabled", "TASKFORGE_DEMO_ENABLED")
	v.BindEnv("demo.relay_url", "TASKFORGE_DEMO_RELAY_URL")
	v.BindEnv("demo.relay_secret", "TASKFORGE_DEMO_RELAY_AUTH")
	v.BindEnv("output.root", "TASKFORGE_OUTPUT_ROOT")
	v.BindEnv("server.port", "TASKFORGE_PORT")
	v.BindEnv("verbose", "TASKFORGE_VERBOSE")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_bedrock", false)

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8000)

	v.SetDefault("output.root", "output")
	v.SetDefault("output.retention_days", 0)
	v.SetDefault("output.max_disk_mb", 0)

	v.SetDefault("demo.enabled", false)
	v.SetDefault("demo.relay_url", "")
	v.SetDefault("demo.relay_secret", "")

	v.SetDefault("generator.template_dir", "")
	v.SetDefault("generator.max_tokens", 4096)
	v.SetDefault("generator.default_language", "python")

	v.SetDefault("batch.root", "io")
	v.SetDefault("batch.workers", 4)

	v.SetDefault("state.db_path", "")

	v.SetDefault("verbose", false)
}

// getUserConfigDir returns the XDG config directory for taskforge.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "taskforge")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "taskforge")
	}
	return filepath.Join(home, ".config", "taskforge")
}

// findProjectConfig searches for .taskforge.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".taskforge.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// HistoryDBPath returns the SQLite history database path, defaulting
// to <output root>/global/history.db.
func (c *Config) HistoryDBPath() string {
	if c.State.DBPath != "" {
		return c.State.DBPath
	}
	return filepath.Join(c.Output.Root, "global", "history.db")
}

// DemoActive reports whether demo mode should handle generation.
// Demo only activates when enabled and no API key is configured; a
// configured key always wins.
func (c *Config) DemoActive() bool {
	return c.Demo.Enabled && c.Anthropic.APIKey == ""
}
