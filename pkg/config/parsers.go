package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
)

// Flags holds parsed command-line flag values and which were set.
type Flags struct {
	Addr    string
	Workers int
	Config  string
	Set     map[string]bool
}

// EnvResult reports which environment variables contributed to a Config.
type EnvResult struct {
	EnvUsed bool
	Invalid []string
}

// EffectiveConfigResult is the outcome of LoadEffectiveConfig.
type EffectiveConfigResult struct {
	Config *Config
	Addr   string
	Source string // "flags", "config", or "env"
}

// ParseConfigFlags parses os.Args with the default flag set.
func ParseConfigFlags() Flags {
	return parseFlags(flag.CommandLine, os.Args[1:])
}

func parseFlags(fset *flag.FlagSet, args []string) Flags {
	addrPtr := fset.String("addr", "127.0.0.1:8080", "HTTP listen address")
	workersPtr := fset.Int("workers", 4, "number of request workers")
	cfgPtr := fset.String("config", "./config.yaml", "Path to config file")
	_ = fset.Parse(args)

	setFlags := make(map[string]bool)
	fset.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	return Flags{Addr: *addrPtr, Workers: *workersPtr, Config: *cfgPtr, Set: setFlags}
}

// ParseConfigFile loads the config file named by flags or WEBDEMO_CONFIG.
// A missing file is not an error; found reports whether it existed.
func ParseConfigFile(flags Flags) (*Config, bool, error) {
	cfgPath := ResolveConfigPath(flags.Config, flags.Set["config"])
	cfg, err := LoadConfigFile(cfgPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, false, nil
		}
		return nil, false, err
	}
	return cfg, true, nil
}

// ParseConfigEnvs loads WEBDEMO_* environment variables into a new Config.
func ParseConfigEnvs() (*Config, EnvResult) {
	return parseEnvs(os.Getenv)
}

func parseEnvs(getenv func(string) string) (*Config, EnvResult) {
	envs := map[string]string{
		"SERVER_ADDR":                  getenv("WEBDEMO_SERVER_ADDR"),
		"SERVER_ADDRESS":               getenv("WEBDEMO_SERVER_ADDRESS"),
		"SERVER_PORT":                  getenv("WEBDEMO_SERVER_PORT"),
		"SERVER_WORKERS":               getenv("WEBDEMO_SERVER_WORKERS"),
		"SERVER_READ_TIMEOUT":          getenv("WEBDEMO_SERVER_READ_TIMEOUT"),
		"SERVER_WRITE_TIMEOUT":         getenv("WEBDEMO_SERVER_WRITE_TIMEOUT"),
		"SERVER_IDLE_TIMEOUT":          getenv("WEBDEMO_SERVER_IDLE_TIMEOUT"),
		"SERVER_MAX_REQUEST_BODY_SIZE": getenv("WEBDEMO_SERVER_MAX_REQUEST_BODY_SIZE"),
		"APP_NAME":                     getenv("WEBDEMO_APP_NAME"),
		"HOSTS_WWW":                    getenv("WEBDEMO_HOSTS_WWW"),
		"HOSTS_USERS":                  getenv("WEBDEMO_HOSTS_USERS"),
		"LIMITS_JSON":                  getenv("WEBDEMO_LIMITS_JSON"),
		"LIMITS_JSON_RESOURCE":         getenv("WEBDEMO_LIMITS_JSON_RESOURCE"),
		"LIMITS_FORM":                  getenv("WEBDEMO_LIMITS_FORM"),
		"CORS_ORIGINS":                 getenv("WEBDEMO_CORS_ORIGINS"),
		"RATE_RPS":                     getenv("WEBDEMO_RATE_RPS"),
		"RATE_BURST":                   getenv("WEBDEMO_RATE_BURST"),
		"IP_WHITELIST":                 getenv("WEBDEMO_IP_WHITELIST"),
		"LOG_LEVEL":                    getenv("WEBDEMO_LOG_LEVEL"),
		"REPORTER_ENABLED":             getenv("WEBDEMO_REPORTER_ENABLED"),
		"REPORTER_CRON":                getenv("WEBDEMO_REPORTER_CRON"),
	}

	var res EnvResult
	for _, v := range envs {
		if v != "" {
			res.EnvUsed = true
			break
		}
	}
	envCfg := &Config{}

	invalid := func(name string) { res.Invalid = append(res.Invalid, "WEBDEMO_"+name) }

	parseList := func(v string) []string {
		parts := []string{}
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				parts = append(parts, s)
			}
		}
		return parts
	}

	parseInt := func(name string) (int, bool) {
		v := envs[name]
		if v == "" {
			return 0, false
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			invalid(name)
			return 0, false
		}
		return n, true
	}

	parseSize := func(name string, dst *SizeBytes) {
		if v := envs[name]; v != "" {
			s, err := ParseSizeBytes(v)
			if err != nil {
				invalid(name)
				return
			}
			*dst = s
		}
	}

	parseDur := func(name string, dst *Duration) {
		if v := envs[name]; v != "" {
			d, err := ParseDuration(v)
			if err != nil {
				invalid(name)
				return
			}
			*dst = d
		}
	}

	// SERVER_ADDR wins over the split address/port pair
	if v := envs["SERVER_ADDR"]; v != "" {
		if h, p, err := net.SplitHostPort(v); err == nil {
			envCfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				envCfg.Server.Port = pi
			} else {
				invalid("SERVER_ADDR")
			}
		} else {
			envCfg.Server.Address = v
		}
	} else {
		if host := envs["SERVER_ADDRESS"]; host != "" {
			envCfg.Server.Address = host
		}
		if n, ok := parseInt("SERVER_PORT"); ok {
			envCfg.Server.Port = n
		}
	}
	if n, ok := parseInt("SERVER_WORKERS"); ok {
		envCfg.Server.Workers = n
	}
	parseDur("SERVER_READ_TIMEOUT", &envCfg.Server.ReadTimeout)
	parseDur("SERVER_WRITE_TIMEOUT", &envCfg.Server.WriteTimeout)
	parseDur("SERVER_IDLE_TIMEOUT", &envCfg.Server.IdleTimeout)
	parseSize("SERVER_MAX_REQUEST_BODY_SIZE", &envCfg.Server.MaxRequestBodySize)

	if v := envs["APP_NAME"]; v != "" {
		envCfg.App.Name = v
	}
	if v := envs["HOSTS_WWW"]; v != "" {
		envCfg.Hosts.WWW = strings.TrimSpace(v)
	}
	if v := envs["HOSTS_USERS"]; v != "" {
		envCfg.Hosts.Users = strings.TrimSpace(v)
	}

	parseSize("LIMITS_JSON", &envCfg.Limits.JSON)
	parseSize("LIMITS_JSON_RESOURCE", &envCfg.Limits.JSONResource)
	parseSize("LIMITS_FORM", &envCfg.Limits.Form)

	if v := envs["CORS_ORIGINS"]; v != "" {
		envCfg.Security.CORS.AllowedOrigins = parseList(v)
	}
	if v := envs["RATE_RPS"]; v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			envCfg.Security.RateLimit.RPS = f
		} else {
			invalid("RATE_RPS")
		}
	}
	if n, ok := parseInt("RATE_BURST"); ok {
		envCfg.Security.RateLimit.Burst = n
	}
	if v := envs["IP_WHITELIST"]; v != "" {
		envCfg.Security.IPWhitelist = parseList(v)
	}

	if v := envs["LOG_LEVEL"]; v != "" {
		envCfg.Logging.Level = strings.TrimSpace(v)
	}

	if v := envs["REPORTER_ENABLED"]; v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes":
			envCfg.Reporter.Enabled = true
		default:
			envCfg.Reporter.Enabled = false
		}
	}
	if v := envs["REPORTER_CRON"]; v != "" {
		envCfg.Reporter.Cron = v
	}

	return envCfg, res
}

// LoadEffectiveConfig decides which single source to use and returns the
// effective config. If --config is set only the config file is used;
// otherwise flags if set (filling the rest from env, then file); else the
// config file if present; else env.
func LoadEffectiveConfig(flags Flags, fileCfg *Config, fileExists bool, envCfg *Config, envRes EnvResult) (EffectiveConfigResult, error) {
	var res EffectiveConfigResult

	if len(envRes.Invalid) > 0 {
		return res, fmt.Errorf("invalid environment values: %s", strings.Join(envRes.Invalid, ", "))
	}

	if flags.Set["config"] {
		if !fileExists {
			return res, fmt.Errorf("config file %s not found", flags.Config)
		}
		res.Config = fileCfg
		res.Addr = fileCfg.Addr()
		res.Source = "config"
		return res, nil
	}

	if flags.Set["addr"] || flags.Set["workers"] {
		var out Config
		if envRes.EnvUsed {
			out = *envCfg
		} else if fileExists {
			out = *fileCfg
		}
		if flags.Set["addr"] {
			host, port, err := net.SplitHostPort(flags.Addr)
			if err != nil {
				return res, fmt.Errorf("invalid --addr %q: %w", flags.Addr, err)
			}
			pi, err := parsePort(port)
			if err != nil {
				return res, fmt.Errorf("invalid --addr %q: %w", flags.Addr, err)
			}
			out.Server.Address = host
			out.Server.Port = pi
		}
		if flags.Set["workers"] {
			out.Server.Workers = flags.Workers
		}
		res.Config = &out
		res.Addr = out.Addr()
		res.Source = "flags"
		return res, nil
	}

	if fileExists {
		res.Config = fileCfg
		res.Addr = fileCfg.Addr()
		res.Source = "config"
		return res, nil
	}
	res.Config = envCfg
	res.Addr = envCfg.Addr()
	res.Source = "env"
	return res, nil
}

func parsePort(p string) (int, error) {
	pi, err := strconv.Atoi(p)
	if err != nil {
		return 0, fmt.Errorf("port %q is not a number", p)
	}
	if pi < 1 || pi > 65535 {
		return 0, fmt.Errorf("port %d out of range", pi)
	}
	return pi, nil
}
