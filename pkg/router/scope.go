package router

import (
	"net"
	"strings"

	"github.com/valyala/fasthttp"
)

// Guard decides whether a route applies to a request before its handler
// runs. A route whose guards reject the request is skipped as if its path
// did not match.
type Guard func(ctx *fasthttp.RequestCtx) bool

// Host matches the request Host header, ignoring case and any port.
func Host(host string) Guard {
	want := strings.ToLower(host)
	return func(ctx *fasthttp.RequestCtx) bool {
		h := strings.ToLower(string(ctx.Host()))
		if hh, _, err := net.SplitHostPort(h); err == nil {
			h = hh
		}
		return h == want
	}
}

// Header matches when the named request header equals value exactly.
func Header(name, value string) Guard {
	return func(ctx *fasthttp.RequestCtx) bool {
		return string(ctx.Request.Header.Peek(name)) == value
	}
}

// Scope registers routes under a shared path prefix and guard set.
type Scope struct {
	r      *Router
	prefix string
	guards []Guard
}

// Scope returns a root-level scope for prefix.
func (r *Router) Scope(prefix string, guards ...Guard) *Scope {
	return &Scope{r: r, prefix: cleanPrefix(prefix), guards: guards}
}

// Configure hands a root scope to fn so route tables can live in other
// packages.
func (r *Router) Configure(fn func(s *Scope)) {
	fn(r.Scope(""))
}

// Scope nests a scope under s.
func (s *Scope) Scope(prefix string, guards ...Guard) *Scope {
	all := append(append([]Guard{}, s.guards...), guards...)
	return &Scope{r: s.r, prefix: s.prefix + cleanPrefix(prefix), guards: all}
}

// Configure hands s to fn.
func (s *Scope) Configure(fn func(s *Scope)) *Scope {
	fn(s)
	return s
}

// GET registers a GET handler.
func (s *Scope) GET(path string, h fasthttp.RequestHandler) *Scope {
	return s.handle(fasthttp.MethodGet, path, h)
}

// POST registers a POST handler.
func (s *Scope) POST(path string, h fasthttp.RequestHandler) *Scope {
	return s.handle(fasthttp.MethodPost, path, h)
}

// HEAD registers a HEAD handler.
func (s *Scope) HEAD(path string, h fasthttp.RequestHandler) *Scope {
	return s.handle(fasthttp.MethodHead, path, h)
}

// Any registers a handler for every method.
func (s *Scope) Any(path string, h fasthttp.RequestHandler) *Scope {
	return s.handle("", path, h)
}

func (s *Scope) handle(method, path string, h fasthttp.RequestHandler) *Scope {
	s.r.add(method, joinPath(s.prefix, path), s.guards, h)
	return s
}

// cleanPrefix turns "/", "" and "/users/" into "", "" and "/users".
func cleanPrefix(p string) string {
	p = strings.TrimRight(p, "/")
	if p != "" && p[0] != '/' {
		p = "/" + p
	}
	return p
}

func joinPath(prefix, path string) string {
	if path == "" || path == "/" {
		if prefix == "" {
			return "/"
		}
		return prefix
	}
	if path[0] != '/' {
		path = "/" + path
	}
	return prefix + path
}
