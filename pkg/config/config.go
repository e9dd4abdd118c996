package config

import (
	"fmt"
	"os"
	"time"

	"github.com/adhocore/gronx"
	"gopkg.in/yaml.v3"
)

// Defaults applied by ValidateConfig when a value is left unset.
const (
	defaultAddress            = "127.0.0.1"
	defaultPort               = 8080
	defaultWorkers            = 4
	defaultReadTimeout        = 10 * time.Second
	defaultWriteTimeout       = 10 * time.Second
	defaultIdleTimeout        = 30 * time.Second
	defaultMaxRequestBodySize = 4 * 1024 * 1024
	defaultAppName            = "webdemo"
	defaultWWWHost            = "www.example.org"
	defaultUsersHost          = "users.example.org"
	defaultJSONLimit          = 2 * 1024 * 1024
	defaultJSONResourceLimit  = 4 * 1024
	defaultFormLimit          = 16 * 1024
	defaultRateRPS            = 1000
	defaultRateBurst          = 1000
	defaultReporterCron       = "*/5 * * * *"

	// MaxWorkers is the largest accepted server.workers value.
	MaxWorkers = 256
)

// Addr returns the HTTP server address as host:port.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = defaultAddress
	}
	port := c.Server.Port
	if port == 0 {
		port = defaultPort
	}
	return fmt.Sprintf("%s:%d", addr, port)
}

// LoadConfigFile reads and parses a config file.
func LoadConfigFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// ValidateConfig applies defaults and validates values in the config. It
// mutates the receiver to fill in missing defaults and returns an error if
// any configuration value is invalid.
func (c *Config) ValidateConfig() error {
	// server defaults
	if c.Server.Address == "" {
		c.Server.Address = defaultAddress
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}
	if c.Server.Workers < 0 {
		return fmt.Errorf("invalid server.workers: %d", c.Server.Workers)
	}
	if c.Server.Workers == 0 {
		c.Server.Workers = defaultWorkers
	}
	if c.Server.Workers > MaxWorkers {
		return fmt.Errorf("invalid server.workers: %d exceeds limit of %d", c.Server.Workers, MaxWorkers)
	}
	if c.Server.ReadTimeout.Duration() == 0 {
		c.Server.ReadTimeout = Duration(defaultReadTimeout)
	}
	if c.Server.WriteTimeout.Duration() == 0 {
		c.Server.WriteTimeout = Duration(defaultWriteTimeout)
	}
	if c.Server.IdleTimeout.Duration() == 0 {
		c.Server.IdleTimeout = Duration(defaultIdleTimeout)
	}
	if c.Server.MaxRequestBodySize <= 0 {
		c.Server.MaxRequestBodySize = SizeBytes(defaultMaxRequestBodySize)
	}

	// app data
	if c.App.Name == "" {
		c.App.Name = defaultAppName
	}
	if c.Hosts.WWW == "" {
		c.Hosts.WWW = defaultWWWHost
	}
	if c.Hosts.Users == "" {
		c.Hosts.Users = defaultUsersHost
	}
	if c.Hosts.WWW == c.Hosts.Users {
		return fmt.Errorf("hosts.www and hosts.users must differ, both are %q", c.Hosts.WWW)
	}

	// payload limits
	if c.Limits.JSON <= 0 {
		c.Limits.JSON = SizeBytes(defaultJSONLimit)
	}
	if c.Limits.JSONResource <= 0 {
		c.Limits.JSONResource = SizeBytes(defaultJSONResourceLimit)
	}
	if c.Limits.Form <= 0 {
		c.Limits.Form = SizeBytes(defaultFormLimit)
	}
	for name, v := range map[string]SizeBytes{
		"limits.json":          c.Limits.JSON,
		"limits.json_resource": c.Limits.JSONResource,
		"limits.form":          c.Limits.Form,
	} {
		if v > c.Server.MaxRequestBodySize {
			return fmt.Errorf("%s (%s) exceeds server.max_request_body_size (%s)", name, v, c.Server.MaxRequestBodySize)
		}
	}

	// rate limiting; a negative rps disables it
	if c.Security.RateLimit.RPS == 0 {
		c.Security.RateLimit.RPS = defaultRateRPS
	}
	if c.Security.RateLimit.RPS > 0 && c.Security.RateLimit.Burst <= 0 {
		c.Security.RateLimit.Burst = defaultRateBurst
	}

	// reporter
	if c.Reporter.Cron == "" {
		c.Reporter.Cron = defaultReporterCron
	}
	if !gronx.IsValid(c.Reporter.Cron) {
		return fmt.Errorf("invalid reporter.cron expression: %s", c.Reporter.Cron)
	}

	return nil
}

// ResolveConfigPath returns the config file path, preferring flag, then env.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("WEBDEMO_CONFIG"); p != "" {
		return p
	}
	return flagPath
}
