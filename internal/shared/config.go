package shared

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/tmacdonald/prefsweep/internal/models"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
// It is built once at startup and treated as an immutable snapshot; nothing
// re-reads configuration mid-run.
type Config struct {
	API      APIConfig      `toml:"api"`
	Sweep    SweepConfig    `toml:"sweep"`
	Executor ExecutorConfig `toml:"executor"`
	Logging  LoggingConfig  `toml:"logging"`
	Notify   NotifyConfig   `toml:"notify"`
}

// APIConfig contains the remote platform endpoint and credential settings.
type APIConfig struct {
	BaseURL        string            `toml:"base_url"`
	Token          string            `toml:"token"`
	AccountID      int64             `toml:"account_id"`
	ActAs          int64             `toml:"act_as"`
	TimeoutSeconds int               `toml:"timeout_seconds"`
	RateLimit      float64           `toml:"rate_limit"`
	Headers        map[string]string `toml:"headers"`
}

// SweepConfig contains the sweep population and target settings.
type SweepConfig struct {
	Terms       []string `toml:"terms"`
	Roles       []string `toml:"roles"`
	Frequency   string   `toml:"frequency"`
	Excluded    []string `toml:"excluded"`
	SkipCurrent bool     `toml:"skip_current"`
}

// ExecutorConfig contains worker pool and retry settings.
type ExecutorConfig struct {
	Workers        int `toml:"workers"`
	MaxAttempts    int `toml:"max_attempts"`
	BackoffSeconds int `toml:"backoff_seconds"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// NotifyConfig contains run-summary notification settings.
type NotifyConfig struct {
	TelegramToken  string `toml:"telegram_token"`
	TelegramChatID int64  `toml:"telegram_chat_id"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// SaveConfig writes the configuration to the specified path as TOML.
func SaveConfig(path string, config *Config) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv loads a .env file from the working directory if one exists.
// Missing files are ignored so shell-exported variables alone work too.
func LoadEnv() {
	_ = godotenv.Load()
}

// ApplyEnv overlays environment variables onto the configuration. Environment
// values win over file values so credentials can stay out of config files.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("CANVAS_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("CANVAS_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("CANVAS_ACCOUNT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.API.AccountID = id
		}
	}
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		c.Notify.TelegramToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Notify.TelegramChatID = id
		}
	}
}

// Validate checks the configuration snapshot, rejecting unknown enum values
// and unusable settings before any traversal starts.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url is required", ErrMissingEndpoint)
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: api.base_url %q is not an absolute URL", ErrInvalidConfig, c.API.BaseURL)
	}
	if c.API.Token == "" {
		return fmt.Errorf("%w: set api.token or the CANVAS_TOKEN environment variable", ErrMissingCredentials)
	}
	if c.API.AccountID <= 0 {
		return fmt.Errorf("%w: api.account_id must be positive", ErrInvalidConfig)
	}
	if c.API.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: api.timeout_seconds must be positive", ErrInvalidConfig)
	}
	if c.API.RateLimit <= 0 {
		return fmt.Errorf("%w: api.rate_limit must be positive", ErrInvalidConfig)
	}

	if _, err := c.Frequency(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFrequency, err)
	}
	if _, err := c.Roles(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRole, err)
	}

	if c.Executor.Workers < 1 {
		return fmt.Errorf("%w: executor.workers must be at least 1", ErrInvalidConfig)
	}
	if c.Executor.MaxAttempts < 1 {
		return fmt.Errorf("%w: executor.max_attempts must be at least 1", ErrInvalidConfig)
	}
	if c.Executor.BackoffSeconds < 0 {
		return fmt.Errorf("%w: executor.backoff_seconds cannot be negative", ErrInvalidConfig)
	}

	if _, err := ParseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLogLevel, err)
	}

	return nil
}

// Frequency parses the configured target frequency.
func (c *Config) Frequency() (models.Frequency, error) {
	return models.ParseFrequency(c.Sweep.Frequency)
}

// Roles parses the configured target role set.
func (c *Config) Roles() ([]models.Role, error) {
	if len(c.Sweep.Roles) == 0 {
		return []models.Role{models.RoleObserver}, nil
	}
	roles := make([]models.Role, 0, len(c.Sweep.Roles))
	for _, raw := range c.Sweep.Roles {
		role, err := models.ParseRole(raw)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}

// Timeout returns the per-call timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// Backoff returns the base retry backoff as a duration.
func (c *Config) Backoff() time.Duration {
	return time.Duration(c.Executor.BackoffSeconds) * time.Second
}
