package app

import (
	"fmt"

	"webdemo/pkg/config"
)

// validateConfig fills defaults and rejects settings the server cannot run
// with.
func validateConfig(eff *config.EffectiveConfigResult) error {
	if eff.Config == nil {
		return fmt.Errorf("no configuration provided")
	}
	if err := config.ValidateConfig(eff); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if eff.Config.Server.Workers < 1 {
		return fmt.Errorf("invalid configuration: server.workers must be at least 1")
	}
	return nil
}
