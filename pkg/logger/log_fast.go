package logger

import (
	"strings"

	"github.com/valyala/fasthttp"
)

// SafeHeadersFast renders request headers with credentials masked.
func SafeHeadersFast(ctx *fasthttp.RequestCtx) string {
	parts := make([]string, 0)
	ctx.Request.Header.VisitAll(func(k, v []byte) {
		key := string(k)
		parts = append(parts, key+"="+redactHeaderValue(key, string(v)))
	})
	return strings.Join(parts, "; ")
}

// LogRequestFast logs a concise summary of an incoming request at debug level.
func LogRequestFast(ctx *fasthttp.RequestCtx) {
	if Log == nil {
		return
	}
	Debug("incoming_request",
		"method", string(ctx.Method()),
		"path", string(ctx.Path()),
		"host", string(ctx.Host()),
		"remote", ctx.RemoteAddr().String(),
		"conn_id", ctx.ConnID(),
		"headers", SafeHeadersFast(ctx))
}
