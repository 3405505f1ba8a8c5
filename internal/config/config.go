package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the commcoach configuration
type Config struct {
	ChatDBPath      string       `yaml:"chat_db,omitempty"`
	AddressBookPath string       `yaml:"address_book,omitempty"`
	Language        string       `yaml:"language,omitempty"`
	ContextLevel    string       `yaml:"context_level,omitempty"`
	Conversations   PoolConfig   `yaml:"conversations"`
	Ollama          OllamaConfig `yaml:"ollama"`
}

// PoolConfig controls conversation listing. The pool is how many recent chats
// are examined; the cap is how many valid ones are returned.
type PoolConfig struct {
	Pool int `yaml:"pool,omitempty"`
	Cap  int `yaml:"cap,omitempty"`
}

// OllamaConfig represents the local model endpoint configuration
type OllamaConfig struct {
	Endpoint       string `yaml:"endpoint,omitempty"`
	Model          string `yaml:"model,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`
}

// Timeout bounds each model call. A hung model call otherwise leaves the
// session loading forever.
func (o OllamaConfig) Timeout() time.Duration {
	if o.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(o.TimeoutSeconds) * time.Second
}

const (
	DefaultModel    = "gemma3:1b"
	DefaultEndpoint = "http://localhost:11434"
	DefaultTimeout  = 120 * time.Second
	DefaultPool     = 10
	DefaultCap      = 5
)

// GetConfigDir returns the XDG-compliant config directory
func GetConfigDir() (string, error) {
	// Explicit override (useful for tests and portable installs)
	if override := os.Getenv("COMMCOACH_CONFIG_DIR"); override != "" {
		return override, nil
	}

	var base string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		base = xdg
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "commcoach"), nil
}

// GetDataDir returns the platform-specific data directory
func GetDataDir() (string, error) {
	// Explicit override (useful for tests and portable installs)
	if override := os.Getenv("COMMCOACH_DATA_DIR"); override != "" {
		return override, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "Commcoach"), nil
	}

	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "commcoach"), nil
	}

	return filepath.Join(home, ".local", "share", "commcoach"), nil
}

// ChatDB returns the configured chat.db path, falling back to the standard
// Messages location. COMMCOACH_CHAT_DB overrides both.
func (c *Config) ChatDB() string {
	if override := os.Getenv("COMMCOACH_CHAT_DB"); override != "" {
		return os.ExpandEnv(override)
	}
	if c != nil && c.ChatDBPath != "" {
		return os.ExpandEnv(c.ChatDBPath)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Library", "Messages", "chat.db")
}

// AddressBook returns the configured AddressBook store path, falling back to
// the standard Contacts location.
func (c *Config) AddressBook() string {
	if override := os.Getenv("COMMCOACH_ADDRESS_BOOK"); override != "" {
		return os.ExpandEnv(override)
	}
	if c != nil && c.AddressBookPath != "" {
		return os.ExpandEnv(c.AddressBookPath)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Library", "Application Support", "AddressBook", "AddressBook-v22.abcddb")
}

func (c *Config) withDefaults() *Config {
	if c.Conversations.Pool <= 0 {
		c.Conversations.Pool = DefaultPool
	}
	if c.Conversations.Cap <= 0 {
		c.Conversations.Cap = DefaultCap
	}
	if c.Ollama.Endpoint == "" {
		c.Ollama.Endpoint = DefaultEndpoint
	}
	if c.Ollama.Model == "" {
		c.Ollama.Model = DefaultModel
	}
	return c
}

// Load loads config from the config file
func Load() (*Config, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(configDir, "config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return default config
			return (&Config{}).withDefaults(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg.withDefaults(), nil
}

// Save saves the config to the config file
func (c *Config) Save() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
