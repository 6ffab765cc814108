// Package config provides YAML-based configuration loading, validation, and
// defaults for the ServiceNow client and the snowctl CLI.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	ServiceNow    ServiceNowConfig    `yaml:"servicenow"`
	Observability ObservabilityConfig `yaml:"observability"`
	LogLevel      string              `yaml:"log_level"`
}

// ServiceNowConfig holds ServiceNow instance connection settings.
type ServiceNowConfig struct {
	BaseURL        string     `yaml:"base_url"`
	TableAPIPath   string     `yaml:"table_api_path"`
	Auth           AuthConfig `yaml:"auth"`
	TimeoutSeconds int        `yaml:"timeout_seconds"`
	MaxRetries     int        `yaml:"max_retries"`
	RateLimitRPS   float64    `yaml:"rate_limit_rps"`
}

// AuthConfig determines which authentication method is used.
type AuthConfig struct {
	Type  string      `yaml:"type"` // "basic" or "oauth"
	OAuth OAuthConfig `yaml:"oauth"`
	Basic BasicConfig `yaml:"basic"`
}

// OAuthConfig holds OAuth password-grant credentials.
type OAuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	TokenPath    string `yaml:"token_path"`
}

// BasicConfig holds HTTP Basic Auth credentials.
type BasicConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ObservabilityConfig controls the optional metrics/health HTTP server.
type ObservabilityConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads a YAML config file, expands environment variables, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand ${VAR} and $VAR references in the YAML. Credentials are
	// typically supplied this way rather than committed to the file.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// applyDefaults sets default values for unset fields.
func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	sn := &cfg.ServiceNow
	if sn.TableAPIPath == "" {
		sn.TableAPIPath = "/api/now/table"
	}
	if sn.Auth.Type == "" {
		sn.Auth.Type = "basic"
	}
	if sn.Auth.OAuth.TokenPath == "" {
		sn.Auth.OAuth.TokenPath = "/oauth_token.do"
	}
	if sn.TimeoutSeconds == 0 {
		sn.TimeoutSeconds = 30
	}
	if sn.MaxRetries == 0 {
		sn.MaxRetries = 3
	}
}

// validate checks that all required fields are present and valid.
func validate(cfg *Config) error {
	var errs []error

	if cfg.ServiceNow.BaseURL == "" {
		errs = append(errs, errors.New("servicenow.base_url is required"))
	} else if u, err := url.Parse(cfg.ServiceNow.BaseURL); err != nil || u.Scheme == "" {
		errs = append(errs, fmt.Errorf("servicenow.base_url is not a valid URL: %s", cfg.ServiceNow.BaseURL))
	}

	switch cfg.ServiceNow.Auth.Type {
	case "oauth":
		o := cfg.ServiceNow.Auth.OAuth
		if o.ClientID == "" {
			errs = append(errs, errors.New("servicenow.auth.oauth.client_id is required for oauth auth"))
		}
		if o.ClientSecret == "" {
			errs = append(errs, errors.New("servicenow.auth.oauth.client_secret is required for oauth auth"))
		}
		if o.Username == "" {
			errs = append(errs, errors.New("servicenow.auth.oauth.username is required for oauth auth"))
		}
		if o.Password == "" {
			errs = append(errs, errors.New("servicenow.auth.oauth.password is required for oauth auth"))
		}
	case "basic":
		b := cfg.ServiceNow.Auth.Basic
		if b.Username == "" {
			errs = append(errs, errors.New("servicenow.auth.basic.username is required for basic auth"))
		}
		if b.Password == "" {
			errs = append(errs, errors.New("servicenow.auth.basic.password is required for basic auth"))
		}
	default:
		errs = append(errs, fmt.Errorf("servicenow.auth.type must be 'basic' or 'oauth', got %q", cfg.ServiceNow.Auth.Type))
	}

	if cfg.ServiceNow.RateLimitRPS < 0 {
		errs = append(errs, fmt.Errorf("servicenow.rate_limit_rps must not be negative, got %v", cfg.ServiceNow.RateLimitRPS))
	}

	return errors.Join(errs...)
}
