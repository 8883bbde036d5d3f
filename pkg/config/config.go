package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML configs can say "500ms" or "1m30s".
type Duration time.Duration

// UnmarshalYAML accepts Go duration strings and bare integers (nanoseconds).
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		n, intErr := strconv.ParseInt(node.Value, 10, 64)
		if intErr != nil {
			return fmt.Errorf("invalid duration %q: %w", node.Value, err)
		}
		parsed = time.Duration(n)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration as its Go string form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds all archiver settings.
type Config struct {
	VK        VKConfig        `yaml:"vk" json:"vk"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Download  DownloadConfig  `yaml:"download" json:"download"`
	Output    OutputConfig    `yaml:"output" json:"output"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// VKConfig holds API credentials.
type VKConfig struct {
	AccessToken string `yaml:"access_token" json:"access_token"`
}

// RateLimitConfig holds the API call budget and retry policy.
type RateLimitConfig struct {
	RequestsPerSecond int      `yaml:"requests_per_second" json:"requests_per_second"`
	MaxRetries        int      `yaml:"max_retries" json:"max_retries"`
	BackoffBase       Duration `yaml:"backoff_base" json:"backoff_base"`
	BackoffJitter     Duration `yaml:"backoff_jitter" json:"backoff_jitter"`
	CallTimeout       Duration `yaml:"call_timeout" json:"call_timeout"`
}

// DownloadConfig holds the binary download pipeline settings.
type DownloadConfig struct {
	Concurrency     int      `yaml:"concurrency" json:"concurrency"`
	DownloadTimeout Duration `yaml:"download_timeout" json:"download_timeout"`
	MaxItems        int      `yaml:"max_items" json:"max_items"`
	PageSize        int      `yaml:"page_size" json:"page_size"`
}

// OutputConfig holds filesystem layout settings.
type OutputConfig struct {
	BaseDirectory   string `yaml:"base_directory" json:"base_directory"`
	ConsistencyFile string `yaml:"consistency_file" json:"consistency_file"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 3,
			MaxRetries:        5,
			BackoffBase:       Duration(500 * time.Millisecond),
			BackoffJitter:     Duration(200 * time.Millisecond),
			CallTimeout:       Duration(30 * time.Second),
		},
		Download: DownloadConfig{
			Concurrency:     8,
			DownloadTimeout: Duration(60 * time.Second),
			PageSize:        100,
		},
		Output: OutputConfig{
			BaseDirectory:   "./archive",
			ConsistencyFile: "./archive/downloaded.json",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the effective configuration: defaults, then the YAML file (the
// given path or the first standard location found), then environment
// variables. A .env file in the working directory is honored.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(path); err != nil {
		return nil, err
	}
	cfg.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile merges a YAML config file into c. An empty path searches the
// standard locations; finding none is not an error.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func findConfigFile() string {
	locations := []string{
		".vkarchiver.yaml",
		".vkarchiver.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "vkarchiver", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".vkarchiver.yaml"),
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// LoadFromEnv overrides settings from VKARCHIVER_* environment variables.
func (c *Config) LoadFromEnv() {
	if token := os.Getenv("VKARCHIVER_ACCESS_TOKEN"); token != "" {
		c.VK.AccessToken = token
	}
	if rps := os.Getenv("VKARCHIVER_REQUESTS_PER_SECOND"); rps != "" {
		if val, err := strconv.Atoi(rps); err == nil && val > 0 {
			c.RateLimit.RequestsPerSecond = val
		}
	}
	if retries := os.Getenv("VKARCHIVER_MAX_RETRIES"); retries != "" {
		if val, err := strconv.Atoi(retries); err == nil && val >= 0 {
			c.RateLimit.MaxRetries = val
		}
	}
	if conc := os.Getenv("VKARCHIVER_CONCURRENCY"); conc != "" {
		if val, err := strconv.Atoi(conc); err == nil && val > 0 {
			c.Download.Concurrency = val
		}
	}
	if dir := os.Getenv("VKARCHIVER_OUTPUT_DIR"); dir != "" {
		c.Output.BaseDirectory = dir
	}
	if level := os.Getenv("VKARCHIVER_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Validate checks the configuration for misuse. Fails fast at startup.
func (c *Config) Validate() error {
	var errs []error

	if c.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("requests per second must be positive"))
	}
	if c.RateLimit.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	if c.RateLimit.CallTimeout <= 0 {
		errs = append(errs, errors.New("call timeout must be positive"))
	}
	if c.Download.Concurrency <= 0 {
		errs = append(errs, errors.New("download concurrency must be positive"))
	}
	if c.Download.PageSize <= 0 || c.Download.PageSize > 200 {
		errs = append(errs, errors.New("page size must be between 1 and 200"))
	}
	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output base directory is required"))
	}

	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
