package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// CurrentVersion is the config schema version written by this build.
const CurrentVersion = 1

// Config represents the complete routemap configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Scan    ScanConfig    `json:"scan" mapstructure:"scan"`
	Deploy  DeployConfig  `json:"deploy" mapstructure:"deploy"`
	Modules ModulesConfig `json:"modules" mapstructure:"modules"`
	Watch   WatchConfig   `json:"watch" mapstructure:"watch"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ScanConfig controls which files the indexer parses
type ScanConfig struct {
	Languages        []string `json:"languages" mapstructure:"languages"`
	ExcludeDirs      []string `json:"excludeDirs" mapstructure:"excludeDirs"`
	MaxFileSizeBytes int64    `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
	Workers          int      `json:"workers" mapstructure:"workers"`
}

// DeployConfig holds the fallbacks used when a module's deploy settings cannot be resolved
type DeployConfig struct {
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	// ActiveProfiles overrides spring.profiles.active when set
	ActiveProfiles []string `json:"activeProfiles" mapstructure:"activeProfiles"`
	// LookupConcurrency bounds parallel module config lookups
	LookupConcurrency int `json:"lookupConcurrency" mapstructure:"lookupConcurrency"`
}

// ModulesConfig contains module detection configuration
type ModulesConfig struct {
	DeclarationFile string   `json:"declarationFile" mapstructure:"declarationFile"`
	Ignore          []string `json:"ignore" mapstructure:"ignore"`
}

// WatchConfig contains watch-mode settings
type WatchConfig struct {
	DebounceMs     int `json:"debounceMs" mapstructure:"debounceMs"`
	PollIntervalMs int `json:"pollIntervalMs" mapstructure:"pollIntervalMs"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format     string `json:"format" mapstructure:"format"`
	Level      string `json:"level" mapstructure:"level"`
	File       bool   `json:"file" mapstructure:"file"`
	MaxSize    string `json:"maxSize" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Scan: ScanConfig{
			Languages: []string{"java", "kotlin"},
			ExcludeDirs: []string{
				"node_modules",
				"vendor",
				"build",
				"target",
				"out",
				"bin",
			},
			MaxFileSizeBytes: 1 << 20,
			Workers:          4,
		},
		Deploy: DeployConfig{
			Protocol:          "http",
			Host:              "localhost",
			Port:              8080,
			LookupConcurrency: 4,
		},
		Modules: ModulesConfig{
			DeclarationFile: "MODULES.toml",
			Ignore:          []string{"node_modules", "vendor", "build", "target"},
		},
		Watch: WatchConfig{
			DebounceMs:     1500,
			PollIntervalMs: 2000,
		},
		Logging: LoggingConfig{
			Format:     "human",
			Level:      "info",
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads .routemap/config.json on top of the defaults.
// ROUTEMAP_* environment variables override file values (e.g. ROUTEMAP_DEPLOY_PORT).
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, ".routemap"))

	v.SetEnvPrefix("ROUTEMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every leaf of def with viper so env overrides and
// partial files resolve against the defaults.
func setDefaults(v *viper.Viper, def *Config) {
	v.SetDefault("version", def.Version)

	v.SetDefault("scan.languages", def.Scan.Languages)
	v.SetDefault("scan.excludeDirs", def.Scan.ExcludeDirs)
	v.SetDefault("scan.maxFileSizeBytes", def.Scan.MaxFileSizeBytes)
	v.SetDefault("scan.workers", def.Scan.Workers)

	v.SetDefault("deploy.protocol", def.Deploy.Protocol)
	v.SetDefault("deploy.host", def.Deploy.Host)
	v.SetDefault("deploy.port", def.Deploy.Port)
	v.SetDefault("deploy.activeProfiles", def.Deploy.ActiveProfiles)
	v.SetDefault("deploy.lookupConcurrency", def.Deploy.LookupConcurrency)

	v.SetDefault("modules.declarationFile", def.Modules.DeclarationFile)
	v.SetDefault("modules.ignore", def.Modules.Ignore)

	v.SetDefault("watch.debounceMs", def.Watch.DebounceMs)
	v.SetDefault("watch.pollIntervalMs", def.Watch.PollIntervalMs)

	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.file", def.Logging.File)
	v.SetDefault("logging.maxSize", def.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", def.Logging.MaxBackups)
}

// Save writes the configuration to .routemap/config.json
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, ".routemap")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating .routemap directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	switch strings.ToLower(c.Deploy.Protocol) {
	case "", "http", "https":
	default:
		return &ConfigError{Field: "deploy.protocol", Message: "must be http or https"}
	}
	if c.Deploy.Port < 0 || c.Deploy.Port > 65535 {
		return &ConfigError{Field: "deploy.port", Message: "must be between 0 and 65535"}
	}
	if c.Scan.Workers < 0 {
		return &ConfigError{Field: "scan.workers", Message: "must not be negative"}
	}
	switch c.Logging.Format {
	case "", "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
