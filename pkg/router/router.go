package router

import (
	"sort"
	"strings"

	"github.com/valyala/fasthttp"
)

// RouteKey is the user value key holding the matched route pattern.
const RouteKey = "route"

// Router is a minimal HTTP router over fasthttp. It supports parameterised
// paths using {name}, per-route guards, and method-agnostic routes. Routes
// are tried in registration order; the first route whose path, method and
// guards all match wins.
type Router struct {
	routes   []route
	notFound fasthttp.RequestHandler
}

type route struct {
	method   string // empty matches any method
	pattern  string
	segments []segment
	guards   []Guard
	handler  fasthttp.RequestHandler
}

type segment struct {
	name    string
	isParam bool
}

// New constructs a new Router.
func New() *Router {
	return &Router{}
}

// Handler satisfies the fasthttp.Server handler interface.
func (r *Router) Handler(ctx *fasthttp.RequestCtx) {
	method := string(ctx.Method())
	path := string(ctx.Path())

	var allowed []string
	for i := range r.routes {
		rt := &r.routes[i]
		values, ok := match(path, rt.segments)
		if !ok || !guardsPass(ctx, rt.guards) {
			continue
		}
		if rt.method != "" && rt.method != method {
			allowed = append(allowed, rt.method)
			continue
		}
		for k, v := range values {
			ctx.SetUserValue(k, v)
		}
		ctx.SetUserValue(RouteKey, rt.pattern)
		rt.handler(ctx)
		return
	}

	if len(allowed) > 0 {
		ctx.Response.Header.Set("Allow", joinMethods(allowed))
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		return
	}
	if r.notFound != nil {
		r.notFound(ctx)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNotFound)
}

// GET registers a GET handler.
func (r *Router) GET(path string, h fasthttp.RequestHandler) {
	r.add(fasthttp.MethodGet, path, nil, h)
}

// POST registers a POST handler.
func (r *Router) POST(path string, h fasthttp.RequestHandler) {
	r.add(fasthttp.MethodPost, path, nil, h)
}

// PUT registers a PUT handler.
func (r *Router) PUT(path string, h fasthttp.RequestHandler) {
	r.add(fasthttp.MethodPut, path, nil, h)
}

// DELETE registers a DELETE handler.
func (r *Router) DELETE(path string, h fasthttp.RequestHandler) {
	r.add(fasthttp.MethodDelete, path, nil, h)
}

// HEAD registers a HEAD handler.
func (r *Router) HEAD(path string, h fasthttp.RequestHandler) {
	r.add(fasthttp.MethodHead, path, nil, h)
}

// Any registers a handler for every method.
func (r *Router) Any(path string, h fasthttp.RequestHandler) {
	r.add("", path, nil, h)
}

// Handle registers a handler for an arbitrary method.
func (r *Router) Handle(method, path string, h fasthttp.RequestHandler) {
	r.add(method, path, nil, h)
}

// NotFound registers a handler for unmatched routes.
func (r *Router) NotFound(h fasthttp.RequestHandler) {
	r.notFound = h
}

// Routes lists registered routes as "METHOD pattern", in match order.
func (r *Router) Routes() []string {
	out := make([]string, 0, len(r.routes))
	for _, rt := range r.routes {
		m := rt.method
		if m == "" {
			m = "*"
		}
		out = append(out, m+" "+rt.pattern)
	}
	return out
}

func (r *Router) add(method, path string, guards []Guard, h fasthttp.RequestHandler) {
	r.routes = append(r.routes, route{
		method:   method,
		pattern:  path,
		segments: parse(path),
		guards:   guards,
		handler:  h,
	})
}

func guardsPass(ctx *fasthttp.RequestCtx, guards []Guard) bool {
	for _, g := range guards {
		if !g(ctx) {
			return false
		}
	}
	return true
}

func joinMethods(methods []string) string {
	seen := make(map[string]struct{}, len(methods))
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	sort.Strings(out)
	return strings.Join(out, ", ")
}

func parse(path string) []segment {
	if path == "" {
		return nil
	}
	if path[0] == '/' {
		path = path[1:]
	}
	if path == "" {
		return []segment{{name: "", isParam: false}}
	}
	parts := strings.Split(path, "/")
	segs := make([]segment, len(parts))
	for i, part := range parts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") && len(part) > 2 {
			segs[i] = segment{name: part[1 : len(part)-1], isParam: true}
		} else {
			segs[i] = segment{name: part, isParam: false}
		}
	}
	return segs
}

func match(path string, segs []segment) (map[string]string, bool) {
	if len(segs) == 1 && !segs[0].isParam && segs[0].name == "" {
		if path == "/" || path == "" {
			return map[string]string{}, true
		}
		return nil, false
	}
	if path == "" {
		path = "/"
	}
	if path[0] == '/' {
		path = path[1:]
	}
	parts := []string{}
	if path != "" {
		parts = strings.Split(path, "/")
	}
	if len(parts) != len(segs) {
		return nil, false
	}
	values := make(map[string]string)
	for i, seg := range segs {
		if seg.isParam {
			if parts[i] == "" {
				return nil, false
			}
			values[seg.name] = parts[i]
			continue
		}
		if seg.name != parts[i] {
			return nil, false
		}
	}
	return values, true
}
