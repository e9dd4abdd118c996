package utils

import (
	"strings"

	"github.com/valyala/fasthttp"
)

// Header utilities

// GetHeader returns header value with trimming
func GetHeader(ctx *fasthttp.RequestCtx, key string) string {
	return strings.TrimSpace(string(ctx.Request.Header.Peek(key)))
}

// Query parameter utilities

// GetQuery returns query parameter value with trimming
func GetQuery(ctx *fasthttp.RequestCtx, key string) string {
	return strings.TrimSpace(string(ctx.QueryArgs().Peek(key)))
}

// Path parameter utilities

// GetPathParam returns path parameter value
func GetPathParam(ctx *fasthttp.RequestCtx, param string) string {
	if v := ctx.UserValue(param); v != nil {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// GetPath returns the request path.
func GetPath(ctx *fasthttp.RequestCtx) string {
	return string(ctx.Path())
}

// ClientIP returns the remote peer address without port.
func ClientIP(ctx *fasthttp.RequestCtx) string {
	return ctx.RemoteIP().String()
}
