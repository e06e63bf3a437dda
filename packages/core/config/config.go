package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/hitscript/packages/core/session"
	"github.com/abdul-hamid-achik/hitscript/packages/logging"
)

// Config represents the hitscript configuration
type Config struct {
	DefaultEnvironment string                    `json:"defaultEnvironment,omitempty" yaml:"defaultEnvironment,omitempty"`
	Environments       map[string]map[string]any `json:"environments,omitempty" yaml:"environments,omitempty"`
	Timeout            int                       `json:"timeout,omitempty" yaml:"timeout,omitempty"` // script timeout, milliseconds
	EnvGuard           string                    `json:"envGuard,omitempty" yaml:"envGuard,omitempty"`
	MirrorEnv          *bool                     `json:"mirrorEnv,omitempty" yaml:"mirrorEnv,omitempty"`
	Reporters          []string                  `json:"reporters,omitempty" yaml:"reporters,omitempty"` // Output reporters
	Bail               *bool                     `json:"bail,omitempty" yaml:"bail,omitempty"`
	Verbose            *bool                     `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	NoColor            *bool                     `json:"noColor,omitempty" yaml:"noColor,omitempty"`
	LogFile            string                    `json:"logFile,omitempty" yaml:"logFile,omitempty"`
	LogLevel           string                    `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	LogMaxSizeMB       int                       `json:"logMaxSizeMB,omitempty" yaml:"logMaxSizeMB,omitempty"`
}

// BoolPtr is exported for callers building configs in code.
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetMirrorEnv returns whether globals are copied into the process
// environment, defaulting to true
func (c *Config) GetMirrorEnv() bool {
	return getBool(c.MirrorEnv, true)
}

// GetBail returns the bail setting, defaulting to false
func (c *Config) GetBail() bool {
	return getBool(c.Bail, false)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// GetTimeout returns the script timeout.
func (c *Config) GetTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// GetEnvGuard parses the envGuard setting.
func (c *Config) GetEnvGuard() (session.EnvGuard, error) {
	g, ok := session.ParseEnvGuard(c.EnvGuard)
	if !ok {
		return g, fmt.Errorf("invalid envGuard %q (use strict, legacy or off)", c.EnvGuard)
	}
	return g, nil
}

var knownReporters = map[string]bool{"console": true, "json": true, "junit": true, "tap": true}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	if _, err := c.GetEnvGuard(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return fmt.Errorf("invalid timeout %d: must not be negative", c.Timeout)
	}
	for _, r := range c.Reporters {
		if !knownReporters[strings.ToLower(r)] {
			return fmt.Errorf("unknown reporter %q", r)
		}
	}
	return nil
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".hitscript.json",
	"hitscript.json",
	".hitscript.yaml",
	"hitscript.yaml",
	".hitscript.yml",
	"hitscript.yml",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	// Search for config file in current directory
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.DefaultEnvironment != "" {
		result.DefaultEnvironment = other.DefaultEnvironment
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.EnvGuard != "" {
		result.EnvGuard = other.EnvGuard
	}
	if other.LogFile != "" {
		result.LogFile = other.LogFile
	}
	if other.LogLevel != "" {
		result.LogLevel = other.LogLevel
	}
	if other.LogMaxSizeMB > 0 {
		result.LogMaxSizeMB = other.LogMaxSizeMB
	}

	// Boolean flags - only override if explicitly set in other config
	if other.MirrorEnv != nil {
		result.MirrorEnv = other.MirrorEnv
	}
	if other.Bail != nil {
		result.Bail = other.Bail
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	// Merge environments variable by variable
	if len(other.Environments) > 0 {
		merged := make(map[string]map[string]any, len(result.Environments)+len(other.Environments))
		for name, vars := range result.Environments {
			merged[name] = copyVars(vars)
		}
		for name, vars := range other.Environments {
			if merged[name] == nil {
				merged[name] = make(map[string]any, len(vars))
			}
			for k, v := range vars {
				merged[name][k] = v
			}
		}
		result.Environments = merged
	}

	// Merge reporters
	if len(other.Reporters) > 0 {
		result.Reporters = other.Reporters
	}

	return &result
}

func copyVars(vars map[string]any) map[string]any {
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}

// SaveConfig saves the configuration to a file, as YAML when the path ends
// in .yaml or .yml
func (c *Config) SaveConfig(path string) error {
	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
