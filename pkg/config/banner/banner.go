package banner

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"webdemo/pkg/config"
)

const banner = `
 __      __   _     ___
 \ \    / /__| |__ |   \ ___ _ __  ___
  \ \/\/ / -_) '_ \| |) / -_) '  \/ _ \
   \_/\_/\___|_.__/|___/\___|_|_|_\___/
`

// Print writes the startup banner and a short production checklist.
func Print(w io.Writer, eff config.EffectiveConfigResult, version string) {
	cfg := eff.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	addr := eff.Addr
	if addr == "" {
		addr = cfg.Addr()
	}
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Fprint(w, banner)
	fmt.Fprintln(w, "== Config =====================================================")
	fmt.Fprintf(w, "Listen:   %s\n", addr)
	fmt.Fprintf(w, "Workers:  %s\n", humanize.Comma(int64(cfg.Server.Workers)))
	fmt.Fprintf(w, "App:      %s\n", cfg.App.Name)
	if version != "" {
		fmt.Fprintf(w, "Version:  %s\n", version)
	}
	fmt.Fprintf(w, "Config:   %s\n", src)

	fmt.Fprintln(w, "\n== Limits =====================================================")
	fmt.Fprintf(w, "- Request body: %s\n", humanize.IBytes(uint64(cfg.Server.MaxRequestBodySize)))
	fmt.Fprintf(w, "- JSON:         %s (resource %s)\n", humanize.IBytes(uint64(cfg.Limits.JSON)), humanize.IBytes(uint64(cfg.Limits.JSONResource)))
	fmt.Fprintf(w, "- Form:         %s\n", humanize.IBytes(uint64(cfg.Limits.Form)))

	fmt.Fprintln(w, "\n== Production? =================================================")
	if len(cfg.Security.IPWhitelist) > 0 {
		fmt.Fprintf(w, "- IP whitelist: %s\n", strings.Join(cfg.Security.IPWhitelist, ", "))
	} else {
		fmt.Fprintln(w, "- IP whitelist: open (all clients accepted)")
	}
	if len(cfg.Security.CORS.AllowedOrigins) > 0 {
		fmt.Fprintf(w, "- CORS: %d origin(s)\n", len(cfg.Security.CORS.AllowedOrigins))
	} else {
		fmt.Fprintln(w, "- CORS: disabled")
	}
	fmt.Fprintf(w, "- Rate limit: %.0f rps, burst %d\n", cfg.Security.RateLimit.RPS, cfg.Security.RateLimit.Burst)
	if cfg.Reporter.Enabled {
		fmt.Fprintf(w, "- Reporter: enabled (cron=%s)\n", cfg.Reporter.Cron)
	} else {
		fmt.Fprintln(w, "- Reporter: disabled")
	}
	fmt.Fprintln(w)
}
