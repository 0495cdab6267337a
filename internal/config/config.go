package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend variant identifiers.
const (
	VariantInference = "inference"
	VariantHosted    = "hosted"
)

// BackendConfig selects and parameterizes the active inference backend.
// A TimeoutSeconds of zero means the call waits indefinitely.
type BackendConfig struct {
	Variant        string `yaml:"variant"`
	URL            string `yaml:"url"`
	TimeoutSeconds int64  `yaml:"timeout_seconds"`
	APIKey         string `yaml:"api_key"`
	ModelVersion   string `yaml:"model_version"`
}

// Timeout returns the configured timeout as a duration (0 = unbounded).
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// Config holds the application's configuration.
type Config struct {
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Backend BackendConfig `yaml:"backend"`
	Auth    struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Notifications struct {
		Enabled          bool   `yaml:"enabled"`
		TelegramBotToken string `yaml:"telegram_bot_token"`
		ChatID           int64  `yaml:"chat_id"`
	} `yaml:"notifications"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return config, nil
}
