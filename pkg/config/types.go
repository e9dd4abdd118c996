package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	App      AppConfig      `yaml:"app"`
	Hosts    HostsConfig    `yaml:"hosts"`
	Limits   LimitsConfig   `yaml:"limits"`
	Security SecurityConfig `yaml:"security"`
	Logging  LoggingConfig  `yaml:"logging"`
	Reporter ReporterConfig `yaml:"reporter"`
}

// ServerConfig holds listener and fasthttp server settings.
type ServerConfig struct {
	Address            string    `yaml:"address"`
	Port               int       `yaml:"port"`
	Workers            int       `yaml:"workers"`
	ReadTimeout        Duration  `yaml:"read_timeout"`
	WriteTimeout       Duration  `yaml:"write_timeout"`
	IdleTimeout        Duration  `yaml:"idle_timeout"`
	MaxRequestBodySize SizeBytes `yaml:"max_request_body_size"`
}

// AppConfig is the immutable application data shared by every worker.
type AppConfig struct {
	Name string `yaml:"name"`
}

// HostsConfig names the virtual hosts served by the host-guarded scopes.
type HostsConfig struct {
	WWW   string `yaml:"www"`
	Users string `yaml:"users"`
}

// LimitsConfig bounds request payloads per extractor.
type LimitsConfig struct {
	JSON         SizeBytes `yaml:"json"`
	JSONResource SizeBytes `yaml:"json_resource"`
	Form         SizeBytes `yaml:"form"`
}

// SecurityConfig holds request gating settings.
type SecurityConfig struct {
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	IPWhitelist []string `yaml:"ip_whitelist"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ReporterConfig controls the periodic counter snapshot job.
type ReporterConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// SizeBytes represents a number of bytes, unmarshaled from human-friendly strings like "4KiB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	v, err := ParseSizeBytes(node.Value)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSizeBytes accepts "4KiB", "2MB", "4096" and the empty string (zero).
func ParseSizeBytes(raw string) (SizeBytes, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return SizeBytes(i), nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		return SizeBytes(v), nil
	}
	return 0, fmt.Errorf("invalid size value: %q", raw)
}

func (s SizeBytes) Int64() int64 { return int64(s) }

func (s SizeBytes) String() string { return humanize.IBytes(uint64(s)) }

// Duration is a wrapper around time.Duration that supports YAML parsing from strings like "100ms" or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	v, err := ParseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// ParseDuration accepts Go duration strings and numeric seconds.
func ParseDuration(raw string) (Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		return Duration(td), nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return Duration(time.Duration(f * float64(time.Second))), nil
	}
	return 0, fmt.Errorf("invalid duration value: %q", raw)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
