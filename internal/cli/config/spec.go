package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// CLIConfig is the configuration for the prodadmin client.
type CLIConfig struct {
	// Server is the backend base URL.
	Server string `koanf:"server" yaml:"server" json:"server"`

	// Output is the default output format: table, json or yaml.
	Output string `koanf:"output" yaml:"output" json:"output"`

	Log     LogConfig     `koanf:"log" yaml:"log" json:"log"`
	Auth    AuthConfig    `koanf:"auth" yaml:"auth" json:"auth"`
	Gateway GatewayConfig `koanf:"gateway" yaml:"gateway" json:"gateway"`
	Storage StorageConfig `koanf:"storage" yaml:"storage" json:"storage"`
	Shell   ShellConfig   `koanf:"shell" yaml:"shell" json:"shell"`
}

// LogConfig controls diagnostic logging on stderr.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level" json:"level"`
	Format string `koanf:"format" yaml:"format" json:"format"`
}

// AuthConfig bounds the session transitions.
type AuthConfig struct {
	// LoginTimeout caps the credential exchange.
	LoginTimeout time.Duration `koanf:"login_timeout" yaml:"login_timeout" json:"login_timeout"`

	// LogoutTimeout caps the best-effort backend logout notification.
	LogoutTimeout time.Duration `koanf:"logout_timeout" yaml:"logout_timeout" json:"logout_timeout"`
}

// GatewayConfig controls authorized backend requests.
type GatewayConfig struct {
	RequestTimeout time.Duration `koanf:"request_timeout" yaml:"request_timeout" json:"request_timeout"`

	// RateLimit is the maximum requests per second; 0 disables pacing.
	RateLimit float64 `koanf:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
	RateBurst int     `koanf:"rate_burst" yaml:"rate_burst" json:"rate_burst"`
}

// StorageConfig controls where the session credential lives between
// single-command invocations.
type StorageConfig struct {
	Dir        string        `koanf:"dir" yaml:"dir" json:"dir"`
	InMemory   bool          `koanf:"in_memory" yaml:"in_memory" json:"in_memory"`
	SessionTTL time.Duration `koanf:"session_ttl" yaml:"session_ttl" json:"session_ttl"`
}

// ShellConfig controls the interactive shell.
type ShellConfig struct {
	HistoryFile string `koanf:"history_file" yaml:"history_file" json:"history_file"`
	MetricsAddr string `koanf:"metrics_addr" yaml:"metrics_addr" json:"metrics_addr"`
}

// Defaults returns the default values keyed by configuration path.
func Defaults() map[string]any {
	return map[string]any{
		"server":                  "http://localhost:8080",
		"output":                  "table",
		"log.level":               "warn",
		"log.format":              "text",
		"auth.login_timeout":      "10s",
		"auth.logout_timeout":     "5s",
		"gateway.request_timeout": "30s",
		"gateway.rate_limit":      0,
		"gateway.rate_burst":      1,
		"storage.dir":             "",
		"storage.in_memory":       false,
		"storage.session_ttl":     "12h",
		"shell.history_file":      "",
		"shell.metrics_addr":      "",
	}
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server: "http://localhost:8080",
		Output: "table",
		Log:    LogConfig{Level: "warn", Format: "text"},
		Auth: AuthConfig{
			LoginTimeout:  10 * time.Second,
			LogoutTimeout: 5 * time.Second,
		},
		Gateway: GatewayConfig{
			RequestTimeout: 30 * time.Second,
			RateBurst:      1,
		},
		Storage: StorageConfig{SessionTTL: 12 * time.Hour},
	}
}

// Validate checks the configuration for values the client cannot use.
func (c *CLIConfig) Validate() error {
	var problems []string

	u, err := url.Parse(c.Server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		problems = append(problems, fmt.Sprintf("server %q must be an http(s) URL", c.Server))
	}

	switch c.Output {
	case "table", "json", "yaml":
	default:
		problems = append(problems, fmt.Sprintf("output %q must be table, json or yaml", c.Output))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("log.level %q is not a level", c.Log.Level))
	}

	if c.Auth.LoginTimeout <= 0 {
		problems = append(problems, "auth.login_timeout must be positive")
	}
	if c.Auth.LogoutTimeout <= 0 {
		problems = append(problems, "auth.logout_timeout must be positive")
	}
	if c.Gateway.RequestTimeout <= 0 {
		problems = append(problems, "gateway.request_timeout must be positive")
	}
	if c.Gateway.RateLimit < 0 {
		problems = append(problems, "gateway.rate_limit must not be negative")
	}
	if c.Gateway.RateLimit > 0 && c.Gateway.RateBurst < 1 {
		problems = append(problems, "gateway.rate_burst must be at least 1")
	}
	if c.Storage.SessionTTL <= 0 {
		problems = append(problems, "storage.session_ttl must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
