package demo

import (
	"bufio"

	"github.com/valyala/fasthttp"

	"webdemo/pkg/api/respond"
	"webdemo/pkg/logger"
)

// Index answers "Hello world!".
func Index(ctx *fasthttp.RequestCtx) {
	respond.Text(ctx, "Hello world!")
}

// Echo returns the request body unchanged.
func Echo(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("text/plain; charset=utf-8")
	ctx.SetBody(ctx.PostBody())
}

// Hey answers "Hey there!".
func Hey(ctx *fasthttp.RequestCtx) {
	respond.Text(ctx, "Hey there!")
}

// Object serializes a fixed value as JSON.
func Object(ctx *fasthttp.RequestCtx) {
	obj := struct {
		Name string `json:"name"`
	}{Name: "user"}
	if err := respond.WriteJSON(ctx, obj); err != nil {
		logger.Error("encode_object_failed", "error", err)
	}
}

// Either picks one of two response shapes. The bad-data branch is always
// taken.
func Either(ctx *fasthttp.RequestCtx) {
	if isBadData() {
		respond.TextStatus(ctx, fasthttp.StatusBadRequest, "Bad data")
		return
	}
	respond.Text(ctx, "Hello!")
}

func isBadData() bool { return true }

// OK answers 200 with an empty body.
func OK(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusOK)
}

// Stream sends a single "test" chunk through a streamed body.
func Stream(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("application/json")
	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		if _, err := w.WriteString("test"); err != nil {
			logger.Warn("stream_write_failed", "error", err)
			return
		}
		if err := w.Flush(); err != nil {
			logger.Warn("stream_flush_failed", "error", err)
		}
	})
}

// Text returns a handler answering body with 200.
func Text(body string) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		respond.Text(ctx, body)
	}
}

// MethodNotAllowed answers 405 with no body.
func MethodNotAllowed(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
}
