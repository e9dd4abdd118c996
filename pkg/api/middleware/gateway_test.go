package middleware

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"

	"webdemo/pkg/config"
	"webdemo/pkg/metrics"
	"webdemo/pkg/router"
)

func okHandler(ctx *fasthttp.RequestCtx) {
	ctx.SetBodyString("ok")
}

func newCtx(method, path, remoteIP string) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(path)
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, &net.TCPAddr{IP: net.ParseIP(remoteIP), Port: 40000}, nil)
	return ctx
}

func TestChain_Order(t *testing.T) {
	var seen []string
	mw := func(name string) Middleware {
		return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
			return func(ctx *fasthttp.RequestCtx) {
				seen = append(seen, name)
				next(ctx)
			}
		}
	}
	h := Chain(okHandler, mw("outer"), mw("inner"))
	h(newCtx("GET", "/", "127.0.0.1"))
	assert.Equal(t, []string{"outer", "inner"}, seen)
}

func TestGateway_IPWhitelist(t *testing.T) {
	var sec config.SecurityConfig
	sec.IPWhitelist = []string{"10.0.0.0/8", "192.168.1.5"}
	h := Gateway(sec, NewLimiterPool(0, 0))(okHandler)

	tests := []struct {
		ip   string
		code int
	}{
		{"10.1.2.3", 200},
		{"192.168.1.5", 200},
		{"192.168.1.6", 403},
		{"127.0.0.1", 403},
	}
	for _, tt := range tests {
		ctx := newCtx("GET", "/", tt.ip)
		h(ctx)
		if ctx.Response.StatusCode() != tt.code {
			t.Fatalf("ip %s: expected %d got %d", tt.ip, tt.code, ctx.Response.StatusCode())
		}
	}
}

func TestGateway_CORS(t *testing.T) {
	var sec config.SecurityConfig
	sec.CORS.AllowedOrigins = []string{"https://app.example.org"}
	h := Gateway(sec, NewLimiterPool(0, 0))(okHandler)

	ctx := newCtx("GET", "/", "127.0.0.1")
	ctx.Request.Header.Set("Origin", "https://app.example.org")
	h(ctx)
	assert.Equal(t, "https://app.example.org", string(ctx.Response.Header.Peek("Access-Control-Allow-Origin")))
	assert.Equal(t, "ok", string(ctx.Response.Body()))

	pre := newCtx("OPTIONS", "/submit", "127.0.0.1")
	pre.Request.Header.Set("Origin", "https://app.example.org")
	pre.Request.Header.Set("Access-Control-Request-Method", "POST")
	h(pre)
	assert.Equal(t, fasthttp.StatusNoContent, pre.Response.StatusCode())

	other := newCtx("GET", "/", "127.0.0.1")
	other.Request.Header.Set("Origin", "https://evil.example.com")
	h(other)
	assert.Empty(t, other.Response.Header.Peek("Access-Control-Allow-Origin"))
	assert.Equal(t, "ok", string(other.Response.Body()))
}

func TestGateway_RateLimit(t *testing.T) {
	limiters := NewLimiterPool(1, 1)
	defer limiters.Shutdown()
	h := Gateway(config.SecurityConfig{}, limiters)(okHandler)

	first := newCtx("GET", "/", "10.0.0.1")
	h(first)
	assert.Equal(t, 200, first.Response.StatusCode())

	second := newCtx("GET", "/", "10.0.0.1")
	h(second)
	assert.Equal(t, fasthttp.StatusTooManyRequests, second.Response.StatusCode())

	other := newCtx("GET", "/", "10.0.0.2")
	h(other)
	assert.Equal(t, 200, other.Response.StatusCode(), "budgets are per client")

	health := newCtx("GET", "/healthz", "10.0.0.1")
	h(health)
	assert.Equal(t, 200, health.Response.StatusCode(), "health checks bypass the limiter")
}

func TestLimiterPool_Evict(t *testing.T) {
	now := time.Now()
	p := NewLimiterPool(10, 10)
	defer p.Shutdown()
	p.now = func() time.Time { return now }
	p.ttl = time.Minute

	p.Allow("a")
	p.Allow("b")
	assert.Equal(t, 2, p.Len())

	now = now.Add(30 * time.Second)
	p.Allow("b")
	now = now.Add(45 * time.Second)
	p.evict()
	assert.Equal(t, 1, p.Len())
}

func TestLimiterPool_Disabled(t *testing.T) {
	p := NewLimiterPool(0, 0)
	for i := 0; i < 100; i++ {
		if !p.Allow("x") {
			t.Fatalf("disabled pool rejected request %d", i)
		}
	}
	assert.Equal(t, 0, p.Len())
}

func TestRecover(t *testing.T) {
	h := Recover()(func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString("partial")
		panic("boom")
	})
	ctx := newCtx("GET", "/", "127.0.0.1")
	h(ctx)
	assert.Equal(t, fasthttp.StatusInternalServerError, ctx.Response.StatusCode())
	assert.Equal(t, "internal server error", string(ctx.Response.Body()))
}

func TestMetrics_RouteLabel(t *testing.T) {
	m := metrics.New()
	r := router.New()
	r.GET("/users/{id}", okHandler)
	h := Metrics(m)(r.Handler)

	h(newCtx("GET", "/users/1", "127.0.0.1"))
	h(newCtx("GET", "/users/2", "127.0.0.1"))
	h(newCtx("GET", "/missing", "127.0.0.1"))

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	got := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "webdemo_http_requests_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			var labels []string
			for _, l := range metric.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			got[strings.Join(labels, ",")] = metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{
		"code=200,route=/users/{id}": 2,
		"code=404,route=unmatched":   1,
	}, got)
}
