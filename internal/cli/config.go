package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Environment variables overriding the selected profile.
const (
	EnvBaseURL = "GOPTIMIZE_BASE_URL"
	EnvAPIKey  = "GOPTIMIZE_API_KEY"
)

// Config represents the CLI configuration
type Config struct {
	DefaultProfile string             `yaml:"default_profile"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

// Profile is one server the CLI can talk to. The API key is only needed for
// admin commands.
type Profile struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key,omitempty"`
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".goptimize", "config.yaml"), nil
}

// LoadConfig loads the configuration from file. A missing file yields a config
// with a single local profile.
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]Profile)
	}

	return &cfg, nil
}

// SaveConfig saves the configuration to file
func SaveConfig(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ResolveProfile returns the profile to use and its name.
// Priority: command flags > environment variables > config file.
func ResolveProfile(name, baseURLFlag, apiKeyFlag string) (*Profile, string, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, "", err
	}

	if name == "" {
		name = cfg.DefaultProfile
	}

	profile, ok := cfg.Profiles[name]
	if !ok && baseURLFlag == "" && os.Getenv(EnvBaseURL) == "" {
		return nil, "", fmt.Errorf("profile '%s' not found in config", name)
	}

	switch {
	case baseURLFlag != "":
		profile.BaseURL = baseURLFlag
	case os.Getenv(EnvBaseURL) != "":
		profile.BaseURL = os.Getenv(EnvBaseURL)
	}
	switch {
	case apiKeyFlag != "":
		profile.APIKey = apiKeyFlag
	case os.Getenv(EnvAPIKey) != "":
		profile.APIKey = os.Getenv(EnvAPIKey)
	}

	if profile.BaseURL == "" {
		return nil, "", fmt.Errorf("base_url must be configured for profile '%s'", name)
	}

	return &profile, name, nil
}

// InitConfig writes the default config file. It refuses to overwrite an
// existing one unless force is set.
func InitConfig(force bool) (string, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(configPath); err == nil && !force {
		return "", fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
	}
	return configPath, SaveConfig(defaultConfig())
}

func defaultConfig() *Config {
	return &Config{
		DefaultProfile: "local",
		Profiles: map[string]Profile{
			"local": {
				BaseURL: "http://localhost:8080",
				APIKey:  "admin-123",
			},
		},
	}
}
