package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const configBaseName = "cascade_config"

// Default tab names in the input spreadsheet
const (
	DefaultCapacitiesTab  = "capacities"
	DefaultRosterTab      = "roster"
	DefaultPreferencesTab = "preferences"
)

// ServerConfig configures the HTTP boundary started by serve
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
	// RateLimit is requests per minute per client IP; 0 disables limiting
	RateLimit    int   `yaml:"rateLimit" validate:"gte=0"`
	MaxBodyBytes int64 `yaml:"maxBodyBytes" validate:"gte=0"`
}

// Config represents the application configuration
type Config struct {
	Mode        string `yaml:"mode" validate:"omitempty,oneof=upgrades open"`
	InputSource string `yaml:"inputSource" validate:"required,oneof=files sheets"`

	DataDir string `yaml:"dataDir" validate:"required_if=InputSource files"`

	InputSheetID   string `yaml:"inputSheetID" validate:"required_if=InputSource sheets"`
	CapacitiesTab  string `yaml:"capacitiesTab"`
	RosterTab      string `yaml:"rosterTab"`
	PreferencesTab string `yaml:"preferencesTab"`

	AwardsSheetID string `yaml:"awardsSheetID"`
	DatabaseURL   string `yaml:"databaseURL" validate:"omitempty,url"`
	ExportPath    string `yaml:"exportPath"`

	Server ServerConfig `yaml:"server"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates cascade_config.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func Load() (*Config, error) {
	return LoadWithEnv("")
}

// LoadWithEnv loads the configuration for an environment
// For example, env="test" will look for "cascade_config.test.yaml"
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Validate validates the configuration struct
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "upgrades"
	}
	if c.CapacitiesTab == "" {
		c.CapacitiesTab = DefaultCapacitiesTab
	}
	if c.RosterTab == "" {
		c.RosterTab = DefaultRosterTab
	}
	if c.PreferencesTab == "" {
		c.PreferencesTab = DefaultPreferencesTab
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "localhost:8080"
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 10 << 20
	}
}

func findConfigFile(env string) (string, error) {
	return findInSearchPath(envFileName(configBaseName, env, ".yaml"))
}

// envFileName builds base[.env]ext
func envFileName(base, env, ext string) string {
	if env == "" {
		return base + ext
	}
	return base + "." + env + ext
}

// findInSearchPath looks for name in the current directory, then the home directory
func findInSearchPath(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homePath := filepath.Join(homeDir, name)
	if _, err := os.Stat(homePath); err == nil {
		return homePath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", name)
}
