package main

import (
	"context"
	"runtime"
	"time"

	"github.com/joho/godotenv"

	"webdemo/internal/app"
	"webdemo/pkg/config"
	"webdemo/pkg/logger"
	"webdemo/pkg/shutdown"
)

// set build metadata
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// load .env file if present
	_ = godotenv.Load(".env")

	// parse config flags
	flags := config.ParseConfigFlags()

	// parse config file
	fileCfg, fileExists, err := config.ParseConfigFile(flags)
	if err != nil {
		shutdown.Abort("failed to load config file", err)
	}

	// parse config env variables
	envCfg, envRes := config.ParseConfigEnvs()

	// load effective config
	eff, err := config.LoadEffectiveConfig(flags, fileCfg, fileExists, envCfg, envRes)
	if err != nil {
		shutdown.Abort("failed to build effective config", err)
	}

	// initialize logger before validation so capped values are reported
	logger.Init(eff.Config.Logging.Level)
	defer logger.Sync()

	// validate config
	if err := config.ValidateConfig(&eff); err != nil {
		shutdown.Abort("invalid configuration", err)
	}

	logger.Info("effective_config_loaded", "source", eff.Source, "addr", eff.Addr, "workers", eff.Config.Server.Workers)
	logger.Info("config_validation_passed")
	logger.Info("system_logical_cores", "logical_cores", runtime.NumCPU())

	// initialize app: counters first, then one router replica per worker
	a, err := app.New(eff, buildVersion())
	if err != nil {
		shutdown.Abort("failed to initialize app", err)
	}
	a.PrintBanner()

	// set up context and signal handling for graceful shutdown
	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	// run the app
	if err := a.Run(ctx); err != nil {
		shutdown.Abort("app run failed", err)
	}

	// shutdown the app with a bounded timeout so teardown cannot hang forever
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer shutdownCancel()
	_ = a.Shutdown(shutdownCtx)
}

func buildVersion() string {
	v := version
	if commit != "none" {
		v += " (" + commit + ")"
	}
	if buildDate != "unknown" {
		v += " @ " + buildDate
	}
	return v
}
