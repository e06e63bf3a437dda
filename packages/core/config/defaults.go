package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		DefaultEnvironment: "dev",
		Timeout:            30000, // 30 seconds
		EnvGuard:           "strict",
		Reporters:          []string{"console"},
		LogLevel:           "warn",
		LogMaxSizeMB:       10,
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.DefaultEnvironment == defaults.DefaultEnvironment &&
		c.Timeout == defaults.Timeout &&
		c.EnvGuard == defaults.EnvGuard &&
		len(c.Environments) == 0 &&
		c.MirrorEnv == nil &&
		c.Bail == nil &&
		c.Verbose == nil &&
		c.NoColor == nil &&
		c.LogFile == defaults.LogFile &&
		c.LogLevel == defaults.LogLevel &&
		c.LogMaxSizeMB == defaults.LogMaxSizeMB &&
		len(c.Reporters) == 1 && c.Reporters[0] == defaults.Reporters[0]
}
