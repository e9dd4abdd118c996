package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidateConfig applies defaults to the effective config and fails fast on
// values the server cannot run with.
func ValidateConfig(eff *EffectiveConfigResult) error {
	cfg := eff.Config
	if cfg == nil {
		return fmt.Errorf("effective config is nil")
	}
	if err := cfg.ValidateConfig(); err != nil {
		return err
	}
	eff.Addr = cfg.Addr()

	for _, entry := range cfg.Security.IPWhitelist {
		if strings.Contains(entry, "/") {
			if _, _, err := net.ParseCIDR(entry); err != nil {
				return fmt.Errorf("invalid security.ip_whitelist entry %q: %w", entry, err)
			}
			continue
		}
		if net.ParseIP(entry) == nil {
			return fmt.Errorf("invalid security.ip_whitelist entry %q", entry)
		}
	}

	for _, origin := range cfg.Security.CORS.AllowedOrigins {
		if origin == "*" {
			continue
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid security.cors.allowed_origins entry %q", origin)
		}
	}

	return nil
}
