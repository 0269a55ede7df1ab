package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML can carry values like "250ms" or
// "1m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler. Strings go through
// time.ParseDuration; bare integers are taken as nanoseconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("config: invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("config: invalid duration value %q", value.Value)
	}
	*d = Duration(n)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root configuration document.
type Config struct {
	Executor ExecutorConfig `yaml:"executor"`
	Retry    RetryConfig    `yaml:"retry"`
	Breaker  BreakerConfig  `yaml:"breaker"`
	Agent    AgentConfig    `yaml:"agent"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ExecutorConfig tunes the scheduler.
type ExecutorConfig struct {
	// Workers is the worker pool size.
	Workers int `yaml:"workers"`
}

// RetryConfig tunes the reliability layer's retry policy.
type RetryConfig struct {
	MaxAttempts int      `yaml:"max_attempts"`
	BaseDelay   Duration `yaml:"base_delay"`
	MaxDelay    Duration `yaml:"max_delay"`
	Multiplier  float64  `yaml:"multiplier"`
	Jitter      float64  `yaml:"jitter"`
	Timeout     Duration `yaml:"timeout"`
}

// BreakerConfig tunes the per-dependency circuit breakers.
type BreakerConfig struct {
	Threshold int      `yaml:"threshold"`
	Cooldown  Duration `yaml:"cooldown"`
}

// AgentConfig tunes the agent runtime.
type AgentConfig struct {
	// MaxIterations caps the model/tool loop per node.
	MaxIterations int `yaml:"max_iterations"`
}

// PipelineConfig tunes batch pipelines.
type PipelineConfig struct {
	ChunkSize            int `yaml:"chunk_size"`
	ChunkOverlap         int `yaml:"chunk_overlap"`
	EmbedBatchSize       int `yaml:"embed_batch_size"`
	MaxConcurrentBatches int `yaml:"max_concurrent_batches"`
	TopN                 int `yaml:"top_n"`
}

// LoggingConfig tunes log output.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	cfg := Config{}
	cfg.Normalize()
	return cfg
}

// Normalize fills zero fields with defaults.
func (c *Config) Normalize() {
	if c.Executor.Workers < 1 {
		c.Executor.Workers = 4
	}
	if c.Retry.MaxAttempts < 1 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.BaseDelay <= 0 {
		c.Retry.BaseDelay = Duration(100 * time.Millisecond)
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = Duration(30 * time.Second)
	}
	if c.Retry.Multiplier < 1 {
		c.Retry.Multiplier = 2.0
	}
	if c.Retry.Jitter <= 0 {
		c.Retry.Jitter = 0.25
	}
	if c.Retry.Timeout <= 0 {
		c.Retry.Timeout = Duration(30 * time.Second)
	}
	if c.Breaker.Threshold < 1 {
		c.Breaker.Threshold = 5
	}
	if c.Breaker.Cooldown <= 0 {
		c.Breaker.Cooldown = Duration(30 * time.Second)
	}
	if c.Agent.MaxIterations < 1 {
		c.Agent.MaxIterations = 8
	}
	if c.Pipeline.ChunkSize < 1 {
		c.Pipeline.ChunkSize = 512
	}
	if c.Pipeline.ChunkOverlap < 0 || c.Pipeline.ChunkOverlap >= c.Pipeline.ChunkSize {
		c.Pipeline.ChunkOverlap = 64
	}
	if c.Pipeline.EmbedBatchSize < 1 {
		c.Pipeline.EmbedBatchSize = 16
	}
	if c.Pipeline.MaxConcurrentBatches < 1 {
		c.Pipeline.MaxConcurrentBatches = 4
	}
	if c.Pipeline.TopN < 1 {
		c.Pipeline.TopN = 4
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate rejects values Normalize cannot repair.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Logging.Format)
	}
	if c.Retry.Jitter > 1 {
		return fmt.Errorf("config: retry jitter %v must be at most 1", c.Retry.Jitter)
	}
	return nil
}

// Parse decodes, normalizes and validates a YAML document.
func Parse(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses a YAML file.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return Parse(raw)
}
