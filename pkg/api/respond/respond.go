package respond

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/valyala/fasthttp"

	"webdemo/pkg/counters"
	"webdemo/pkg/logger"
)

// WriteJSON writes a JSON response.
func WriteJSON(ctx *fasthttp.RequestCtx, data interface{}) error {
	ctx.Response.Header.Set("Content-Type", "application/json")
	return json.NewEncoder(ctx).Encode(data)
}

// WriteJSONError writes a JSON error response.
func WriteJSONError(ctx *fasthttp.RequestCtx, status int, message string) {
	ctx.SetStatusCode(status)
	ctx.Response.Header.Set("Content-Type", "application/json")
	_ = json.NewEncoder(ctx).Encode(map[string]string{"error": message})
}

// WriteJSONOk writes a simple OK JSON response.
func WriteJSONOk(ctx *fasthttp.RequestCtx, data map[string]interface{}) {
	ctx.Response.Header.Set("Content-Type", "application/json")
	_ = json.NewEncoder(ctx).Encode(data)
}

// Text writes a plain-text 200 response.
func Text(ctx *fasthttp.RequestCtx, body string) {
	TextStatus(ctx, fasthttp.StatusOK, body)
}

// Textf formats a plain-text 200 response.
func Textf(ctx *fasthttp.RequestCtx, format string, args ...any) {
	Text(ctx, fmt.Sprintf(format, args...))
}

// TextStatus writes a plain-text response with the given status.
func TextStatus(ctx *fasthttp.RequestCtx, status int, body string) {
	ctx.SetContentType("text/plain; charset=utf-8")
	ctx.SetStatusCode(status)
	ctx.SetBodyString(body)
}

// CounterError maps a counter failure onto a 500 response.
func CounterError(ctx *fasthttp.RequestCtx, err error) {
	if errors.Is(err, counters.ErrPoisoned) {
		logger.Error("counter_poisoned", "path", string(ctx.Path()), "error", err)
		TextStatus(ctx, fasthttp.StatusInternalServerError, "counter unavailable: lock poisoned")
		return
	}
	logger.Error("counter_failed", "path", string(ctx.Path()), "error", err)
	TextStatus(ctx, fasthttp.StatusInternalServerError, "counter unavailable")
}
