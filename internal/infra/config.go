package infra

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Credentials holds the vendor OpenAPI access tokens. They are never put
// in the YAML file; envconfig maps them from the environment (a local
// .env file is honored when present).
type Credentials struct {
	AppKey      string `envconfig:"LONGBRIDGE_APP_KEY"`
	AppSecret   string `envconfig:"LONGBRIDGE_APP_SECRET"`
	AccessToken string `envconfig:"LONGBRIDGE_ACCESS_TOKEN"`
}

// Config holds all application settings
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	API struct {
		QuoteWSURL  string   `yaml:"quote_ws_url"`
		RestURL     string   `yaml:"rest_url"`
		Instruments []string `yaml:"instruments"`
	} `yaml:"api"`

	RateLimit struct {
		TokensPerSecond float64 `yaml:"tokens_per_second"`
		Burst           int     `yaml:"burst"`
	} `yaml:"rate_limit"`

	Render struct {
		MinIntervalMS int `yaml:"min_interval_ms"`
	} `yaml:"render"`

	Alerts struct {
		CooldownSeconds int64  `yaml:"cooldown_seconds"`
		RulesFile       string `yaml:"rules_file"` // optional override, defaults under user config dir
	} `yaml:"alerts"`

	Workspace struct {
		File          string `yaml:"file"` // optional override
		SaveTimeoutMS int    `yaml:"save_timeout_ms"`
	} `yaml:"workspace"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"` // where rotated log files live
	} `yaml:"logging"`

	Credentials Credentials `yaml:"-"`
}

// LoadConfig reads and parses the configuration file, then fills
// credentials from the environment.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	// .env is optional; absence is not an error
	_ = godotenv.Load()
	if err := envconfig.Process("", &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.RateLimit.TokensPerSecond == 0 {
		c.RateLimit.TokensPerSecond = 10
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 20
	}
	if c.Render.MinIntervalMS == 0 {
		c.Render.MinIntervalMS = 16
	}
	if c.Alerts.CooldownSeconds == 0 {
		c.Alerts.CooldownSeconds = 30
	}
	if c.Workspace.SaveTimeoutMS == 0 {
		c.Workspace.SaveTimeoutMS = 2000
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.API.QuoteWSURL == "" || (!strings.HasPrefix(c.API.QuoteWSURL, "ws://") && !strings.HasPrefix(c.API.QuoteWSURL, "wss://")) {
		return fmt.Errorf("invalid quote WS URL: %s", c.API.QuoteWSURL)
	}
	if c.API.RestURL == "" {
		return fmt.Errorf("rest URL is required")
	}
	if len(c.API.Instruments) == 0 {
		return fmt.Errorf("at least one instrument is required")
	}
	if c.RateLimit.TokensPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit settings must be positive")
	}
	if c.Render.MinIntervalMS <= 0 {
		return fmt.Errorf("render interval must be positive")
	}
	return nil
}
