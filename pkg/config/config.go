/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/paulista5/SABER/pkg/codec"
	"github.com/paulista5/SABER/pkg/logging"
	"github.com/paulista5/SABER/pkg/store"
)

// Config represents the SABER configuration
type Config struct {
	Root    string  `yaml:"root"`
	Store   Store   `yaml:"store"`
	Builder Builder `yaml:"builder"`
	Reader  Reader  `yaml:"reader"`
	Filter  Filter  `yaml:"filter"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

// Store contains record store configuration
type Store struct {
	Engine  string `yaml:"engine"`
	MaxSize int64  `yaml:"max_size"`
}

// Builder contains store build configuration
type Builder struct {
	Workers     int    `yaml:"workers"` // 0 = one per CPU
	WindowSize  int    `yaml:"window_size"`
	Compression string `yaml:"compression"`
}

// Reader contains dataset reader configuration
type Reader struct {
	MaxRetries int    `yaml:"max_retries"`
	Seed       uint64 `yaml:"seed"` // 0 = random
}

// Filter contains the duration and label length exclusion rule applied at build time
type Filter struct {
	Enabled        bool    `yaml:"enabled"`
	SampleRate     int     `yaml:"sample_rate"`
	MinSeconds     float64 `yaml:"min_seconds"`
	MaxSeconds     float64 `yaml:"max_seconds"`
	MaxLabelLength int     `yaml:"max_label_length"`
}

// Server contains HTTP API configuration
type Server struct {
	Bind   string `yaml:"bind"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"` // empty = no authentication
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Root: "./data",
		Store: Store{
			Engine:  string(store.EngineBolt),
			MaxSize: store.DefaultMaxSize,
		},
		Builder: Builder{
			WindowSize:  100,
			Compression: codec.CompressionNone.String(),
		},
		Reader: Reader{
			MaxRetries: 128,
		},
		Filter: Filter{
			SampleRate:     16000,
			MinSeconds:     1,
			MaxSeconds:     16,
			MaxLabelLength: 256,
		},
		Server: Server{
			Bind: "127.0.0.1",
			Port: 9200,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// SplitPath returns the store directory of one split, e.g. {root}/train-labelled-en.
func (c *Config) SplitPath(split, lang string) string {
	return filepath.Join(c.Root, fmt.Sprintf("%s-labelled-%s", split, lang))
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Root == "" {
		errs = append(errs, errors.New("root must be set"))
	}
	if _, err := store.ParseEngine(c.Store.Engine); err != nil {
		errs = append(errs, fmt.Errorf("store.engine: %w", err))
	}
	if c.Store.MaxSize < 0 {
		errs = append(errs, fmt.Errorf("store.max_size must not be negative, got %d", c.Store.MaxSize))
	}
	if c.Builder.Workers < 0 {
		errs = append(errs, fmt.Errorf("builder.workers must not be negative, got %d", c.Builder.Workers))
	}
	if c.Builder.WindowSize < 1 {
		errs = append(errs, fmt.Errorf("builder.window_size must be positive, got %d", c.Builder.WindowSize))
	}
	if _, err := codec.ParseCompression(c.Builder.Compression); err != nil {
		errs = append(errs, fmt.Errorf("builder.compression: %w", err))
	}
	if c.Reader.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("reader.max_retries must be positive, got %d", c.Reader.MaxRetries))
	}
	if c.Filter.Enabled {
		if c.Filter.SampleRate < 1 {
			errs = append(errs, fmt.Errorf("filter.sample_rate must be positive, got %d", c.Filter.SampleRate))
		}
		if c.Filter.MaxSeconds > 0 && c.Filter.MinSeconds > c.Filter.MaxSeconds {
			errs = append(errs, fmt.Errorf("filter.min_seconds %v exceeds max_seconds %v", c.Filter.MinSeconds, c.Filter.MaxSeconds))
		}
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}

	return errors.Join(errs...)
}

// LoadConfig loads configuration from the specified path. Keys missing from
// the file keep their default values.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// the API key is a secret
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig writes a default configuration rooted at root with a
// generated API key.
func BootstrapConfig(configPath string, root string) (*Config, error) {
	config := DefaultConfig()
	if root != "" {
		config.Root = root
	}

	apiKey, err := GenerateSecureKey(32) // 256 bits
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Server.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./saber.yaml"
	}

	// ~/.config/saber/config.yaml
	return filepath.Join(homeDir, ".config", "saber", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
