package config

import (
	"fmt"

	"github.com/skillsenselab/taskflow/logger"
	"github.com/skillsenselab/taskflow/server"
)

// StorageConfig configures workflow persistence and definition lookup.
type StorageConfig struct {
	// Dir is where saved workflow versions live.
	Dir string `yaml:"dir" mapstructure:"dir"`
	// DefinitionDirs are searched for named workflow YAML definitions.
	DefinitionDirs []string `yaml:"definition_dirs" mapstructure:"definition_dirs"`
}

// ApplyDefaults sets sensible defaults for unset fields.
func (c *StorageConfig) ApplyDefaults() {
	if c.Dir == "" {
		c.Dir = "workflows"
	}
	if len(c.DefinitionDirs) == 0 {
		c.DefinitionDirs = []string{"./definitions"}
	}
}

// Validate checks the configuration for invalid values.
func (c *StorageConfig) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("storage.dir is required")
	}
	return nil
}

// RunnerConfig configures workflow execution.
type RunnerConfig struct {
	MaxParallel int `yaml:"max_parallel" mapstructure:"max_parallel"`
	// TaskTimeout bounds a single task execution, in seconds. Zero
	// means no limit.
	TaskTimeout int `yaml:"task_timeout" mapstructure:"task_timeout"`
	// TaskRetries is the total attempts per task. Values below 2
	// disable retries.
	TaskRetries int `yaml:"task_retries" mapstructure:"task_retries"`
}

// ApplyDefaults sets sensible defaults for unset fields.
func (c *RunnerConfig) ApplyDefaults() {
	if c.MaxParallel == 0 {
		c.MaxParallel = 4
	}
}

// Validate checks the configuration for invalid values.
func (c *RunnerConfig) Validate() error {
	if c.MaxParallel < 1 {
		return fmt.Errorf("runner.max_parallel must be at least 1 (got: %d)", c.MaxParallel)
	}
	if c.TaskTimeout < 0 {
		return fmt.Errorf("runner.task_timeout must be non-negative (got: %d)", c.TaskTimeout)
	}
	if c.TaskRetries < 0 {
		return fmt.Errorf("runner.task_retries must be non-negative (got: %d)", c.TaskRetries)
	}
	return nil
}

// ObservabilityConfig configures OTLP export.
type ObservabilityConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure   bool    `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
	// MetricsInterval is the export interval in seconds.
	MetricsInterval int `yaml:"metrics_interval" mapstructure:"metrics_interval"`
}

// ApplyDefaults sets sensible defaults for unset fields.
func (c *ObservabilityConfig) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.MetricsInterval == 0 {
		c.MetricsInterval = 15
	}
}

// Validate checks the configuration for invalid values.
func (c *ObservabilityConfig) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("observability.sample_rate must be between 0 and 1 (got: %v)", c.SampleRate)
	}
	return nil
}

// AuthConfig configures API authentication.
type AuthConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Secret  string `yaml:"secret" mapstructure:"secret"`
}

// Validate checks the configuration for invalid values.
func (c *AuthConfig) Validate() error {
	if c.Enabled && c.Secret == "" {
		return fmt.Errorf("auth.secret is required when auth is enabled")
	}
	return nil
}

// Config is the full service configuration.
type Config struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment"`
	Version     string `yaml:"version" mapstructure:"version"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`

	Logging       logger.Config       `yaml:"logging" mapstructure:"logging"`
	Server        server.Config       `yaml:"server" mapstructure:"server"`
	Storage       StorageConfig       `yaml:"storage" mapstructure:"storage"`
	Runner        RunnerConfig        `yaml:"runner" mapstructure:"runner"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Auth          AuthConfig          `yaml:"auth" mapstructure:"auth"`
}

// ApplyDefaults applies default values to every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "taskflow"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	c.Logging.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Runner.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate validates every section.
func (c *Config) Validate() error {
	validEnvs := []string{"development", "staging", "production"}
	found := false
	for _, v := range validEnvs {
		if c.Environment == v {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("environment must be one of [development, staging, production] (got: %s)", c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Runner.Validate(); err != nil {
		return err
	}
	if err := c.Observability.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return nil
}

// Load reads, defaults, and validates the configuration for the named
// service.
func Load(serviceName string, opts ...LoaderOption) (*Config, error) {
	cfg := &Config{}
	if err := LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
