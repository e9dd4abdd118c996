// Package middleware wraps worker handlers with request gating: logging,
// CORS, IP whitelisting, rate limiting, panic recovery and metrics.
package middleware

import (
	"net"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"webdemo/pkg/api/respond"
	"webdemo/pkg/api/utils"
	"webdemo/pkg/config"
	"webdemo/pkg/logger"
	"webdemo/pkg/metrics"
	"webdemo/pkg/router"
)

// Middleware decorates a handler.
type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

// Chain applies mws so that the first one is the outermost.
func Chain(h fasthttp.RequestHandler, mws ...Middleware) fasthttp.RequestHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Gateway logs the request, answers CORS preflights, enforces the IP
// whitelist and applies per-client rate limiting.
func Gateway(sec config.SecurityConfig, limiters *LimiterPool) Middleware {
	whitelist := parseWhitelist(sec.IPWhitelist)
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			logger.LogRequestFast(ctx)

			// cors headers and preflight shortcut
			origin := utils.GetHeader(ctx, "Origin")
			if origin != "" && originAllowed(origin, sec.CORS.AllowedOrigins) {
				ctx.Response.Header.Set("Access-Control-Allow-Origin", origin)
				ctx.Response.Header.Set("Vary", "Origin")
				ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,PATCH,HEAD,OPTIONS")
				ctx.Response.Header.Set("Access-Control-Max-Age", "600")
				ctx.Response.Header.Set("Access-Control-Allow-Headers", "Content-Type")
				if ctx.IsOptions() && utils.GetHeader(ctx, "Access-Control-Request-Method") != "" {
					ctx.SetStatusCode(fasthttp.StatusNoContent)
					return
				}
			}

			ip := utils.ClientIP(ctx)
			if len(whitelist) > 0 && !ipWhitelisted(ip, whitelist) {
				respond.WriteJSONError(ctx, fasthttp.StatusForbidden, "forbidden")
				logger.Warn("request_blocked", "reason", "ip_not_whitelisted", "ip", ip, "path", utils.GetPath(ctx))
				return
			}

			if !publicPath(ctx) && !limiters.Allow(ip) {
				respond.WriteJSONError(ctx, fasthttp.StatusTooManyRequests, "rate limit exceeded")
				logger.Warn("rate_limited", "ip", ip, "path", utils.GetPath(ctx))
				return
			}

			next(ctx)
		}
	}
}

// Recover turns a handler panic into a 500 response.
func Recover() Middleware {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("handler_panic", "path", utils.GetPath(ctx), "method", string(ctx.Method()), "panic", rec)
					ctx.Response.Reset()
					respond.TextStatus(ctx, fasthttp.StatusInternalServerError, "internal server error")
				}
			}()
			next(ctx)
		}
	}
}

// Metrics records request count and latency per matched route.
func Metrics(m *metrics.Metrics) Middleware {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			start := time.Now()
			next(ctx)
			route, _ := ctx.UserValue(router.RouteKey).(string)
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequest(route, ctx.Response.StatusCode(), time.Since(start))
		}
	}
}

func publicPath(ctx *fasthttp.RequestCtx) bool {
	path := utils.GetPath(ctx)
	return (path == "/healthz" || path == "/readyz") && ctx.IsGet()
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

func parseWhitelist(entries []string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(entries))
	for _, e := range entries {
		if _, n, err := net.ParseCIDR(e); err == nil {
			out = append(out, n)
			continue
		}
		ip := net.ParseIP(e)
		if ip == nil {
			logger.Warn("ip_whitelist_entry_ignored", "entry", e)
			continue
		}
		bits := 8 * net.IPv6len
		if v4 := ip.To4(); v4 != nil {
			ip, bits = v4, 8*net.IPv4len
		}
		out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return out
}

func ipWhitelisted(ip string, list []*net.IPNet) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, n := range list {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}
