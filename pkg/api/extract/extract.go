// Package extract turns request parts (path parameters, query string, JSON
// and urlencoded bodies) into typed values. Failures come back as *Error,
// which carries the HTTP status the default handlers answer with.
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"strconv"

	"github.com/valyala/fasthttp"

	"webdemo/pkg/api/respond"
)

var (
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrContentType     = errors.New("unsupported content type")
	ErrMissingField    = errors.New("missing field")
)

// Error is an extraction failure with the status it should produce.
type Error struct {
	Status int
	Err    error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

func badRequest(err error) *Error {
	return &Error{Status: fasthttp.StatusBadRequest, Err: err}
}

// Fail writes err as a plain-text response. Non-extraction errors map to 400.
func Fail(ctx *fasthttp.RequestCtx, err error) {
	var xe *Error
	if errors.As(err, &xe) {
		respond.TextStatus(ctx, xe.Status, xe.Error())
		return
	}
	respond.TextStatus(ctx, fasthttp.StatusBadRequest, err.Error())
}

// PathUint32 parses the named path parameter as an unsigned 32-bit integer.
// A parameter that does not parse means the route does not exist for this
// path, so the error status is 404.
func PathUint32(ctx *fasthttp.RequestCtx, name string) (uint32, error) {
	raw, _ := ctx.UserValue(name).(string)
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, &Error{Status: fasthttp.StatusNotFound, Err: fmt.Errorf("path %s: %w", name, err)}
	}
	return uint32(n), nil
}

// Path decodes the named path parameters into dst. Fields are matched by
// json tag; numeric fields need the ",string" tag option. A decode failure
// is reported as 404.
func Path(ctx *fasthttp.RequestCtx, dst any, names ...string) error {
	vals := make(map[string]string, len(names))
	for _, n := range names {
		if s, ok := ctx.UserValue(n).(string); ok {
			vals[n] = s
		}
	}
	if err := decodeStrings(vals, dst, names); err != nil {
		return &Error{Status: fasthttp.StatusNotFound, Err: fmt.Errorf("path: %w", err.Err)}
	}
	return nil
}

// Query decodes the query string into dst. Every name in required must be
// present.
func Query(ctx *fasthttp.RequestCtx, dst any, required ...string) error {
	vals := argsMap(ctx.QueryArgs())
	if err := decodeStrings(vals, dst, required); err != nil {
		return &Error{Status: err.Status, Err: fmt.Errorf("query: %w", err.Err)}
	}
	return nil
}

// FormConfig limits urlencoded body extraction.
type FormConfig struct {
	Limit int64
}

// Form decodes an application/x-www-form-urlencoded body into dst.
func Form(ctx *fasthttp.RequestCtx, cfg FormConfig, dst any, required ...string) error {
	if !hasMediaType(ctx, "application/x-www-form-urlencoded") {
		return badRequest(fmt.Errorf("form: %w", ErrContentType))
	}
	if cfg.Limit > 0 && int64(len(ctx.PostBody())) > cfg.Limit {
		return &Error{Status: fasthttp.StatusRequestEntityTooLarge, Err: fmt.Errorf("form: %w (limit %d bytes)", ErrPayloadTooLarge, cfg.Limit)}
	}
	var args fasthttp.Args
	args.ParseBytes(ctx.PostBody())
	if err := decodeStrings(argsMap(&args), dst, required); err != nil {
		return &Error{Status: err.Status, Err: fmt.Errorf("form: %w", err.Err)}
	}
	return nil
}

// JSONConfig controls JSON body extraction for one route.
type JSONConfig struct {
	// Limit caps the body size in bytes. Zero means no limit.
	Limit int64
	// ContentType accepts a media type. Nil accepts only application/json.
	ContentType func(mediaType string) bool
	// ErrorHandler, when set, replaces the default error response.
	ErrorHandler func(ctx *fasthttp.RequestCtx, err error)
}

// JSON decodes the request body into dst. Every name in required must be a
// top-level key of the body object.
func JSON(ctx *fasthttp.RequestCtx, cfg JSONConfig, dst any, required ...string) error {
	mt, _, _ := mime.ParseMediaType(string(ctx.Request.Header.ContentType()))
	accept := cfg.ContentType
	if accept == nil {
		accept = func(m string) bool { return m == "application/json" }
	}
	if !accept(mt) {
		return badRequest(fmt.Errorf("json: %w %q", ErrContentType, mt))
	}
	body := ctx.PostBody()
	if cfg.Limit > 0 && int64(len(body)) > cfg.Limit {
		return &Error{Status: fasthttp.StatusRequestEntityTooLarge, Err: fmt.Errorf("json: %w (limit %d bytes)", ErrPayloadTooLarge, cfg.Limit)}
	}
	if len(required) > 0 {
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(body, &keys); err != nil {
			return badRequest(fmt.Errorf("json: %w", err))
		}
		for _, k := range required {
			if _, ok := keys[k]; !ok {
				return badRequest(fmt.Errorf("json: %w %q", ErrMissingField, k))
			}
		}
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(dst); err != nil {
		return badRequest(fmt.Errorf("json: %w", err))
	}
	return nil
}

// HandleJSON runs JSON and, on failure, answers through cfg.ErrorHandler or
// Fail. It reports whether the handler should continue.
func HandleJSON(ctx *fasthttp.RequestCtx, cfg JSONConfig, dst any, required ...string) bool {
	err := JSON(ctx, cfg, dst, required...)
	if err == nil {
		return true
	}
	if cfg.ErrorHandler != nil {
		cfg.ErrorHandler(ctx, err)
	} else {
		Fail(ctx, err)
	}
	return false
}

func hasMediaType(ctx *fasthttp.RequestCtx, want string) bool {
	mt, _, err := mime.ParseMediaType(string(ctx.Request.Header.ContentType()))
	return err == nil && mt == want
}

func argsMap(args *fasthttp.Args) map[string]string {
	vals := make(map[string]string, args.Len())
	args.VisitAll(func(k, v []byte) {
		vals[string(k)] = string(v)
	})
	return vals
}

// decodeStrings routes a flat string map through encoding/json so that struct
// tags (including ",string" on numeric fields) drive the conversion.
func decodeStrings(vals map[string]string, dst any, required []string) *Error {
	for _, k := range required {
		if _, ok := vals[k]; !ok {
			return badRequest(fmt.Errorf("%w %q", ErrMissingField, k))
		}
	}
	raw, err := json.Marshal(vals)
	if err != nil {
		return badRequest(err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return badRequest(err)
	}
	return nil
}
