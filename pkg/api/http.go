package api

import (
	"net/http"
	"net/http/pprof"

	"github.com/gorilla/mux"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"webdemo/pkg/api/middleware"
	"webdemo/pkg/api/routes/admin"
	"webdemo/pkg/api/routes/demo"
	"webdemo/pkg/api/routes/state"
	"webdemo/pkg/config"
	"webdemo/pkg/metrics"
	"webdemo/pkg/router"
)

// Deps is the state shared by every worker's routes. Build it once before
// the worker pool starts.
type Deps struct {
	Config   *config.Config
	Shared   *state.Shared
	Admin    *admin.Handlers
	Metrics  *metrics.Metrics
	Limiters *middleware.LimiterPool
}

// debugRouter serves Prometheus and pprof through net/http handlers.
func debugRouter(m *metrics.Metrics) http.Handler {
	r := mux.NewRouter()
	sub := r.PathPrefix("/admin/debug").Subrouter()
	sub.Handle("/prometheus", m.Handler()).Methods(http.MethodGet)
	sub.HandleFunc("/pprof/", pprof.Index).Methods(http.MethodGet)
	sub.HandleFunc("/pprof/cmdline", pprof.Cmdline).Methods(http.MethodGet)
	sub.HandleFunc("/pprof/profile", pprof.Profile).Methods(http.MethodGet)
	sub.HandleFunc("/pprof/symbol", pprof.Symbol).Methods(http.MethodGet)
	sub.HandleFunc("/pprof/trace", pprof.Trace).Methods(http.MethodGet)
	sub.HandleFunc("/pprof/{profile}", func(w http.ResponseWriter, req *http.Request) {
		pprof.Handler(mux.Vars(req)["profile"]).ServeHTTP(w, req)
	}).Methods(http.MethodGet)
	return r
}

// RegisterRoutes wires all demo routes onto r. w is the calling worker's own
// state and must not be shared with another router.
func RegisterRoutes(r *router.Router, d Deps, w *state.Worker) {
	cfg := d.Config
	ex := demo.Extractors{Limits: cfg.Limits}

	// query extraction under a scope
	r.Scope("/users").GET("/query", ex.Query)

	r.GET("/stream", demo.Stream)

	// per-worker state
	r.GET("/clone", w.ShowCombined)
	r.GET("/clone/add", w.AddCombined)
	r.Any("/count", w.ShowCount)
	r.Any("/count/add", w.AddOne)

	// responders
	r.Any("/obj", demo.Object)
	r.Any("/either", demo.Either)

	// extractors
	r.POST("/json", ex.JSONResource)
	r.GET("/users/{user_id}/{friend}", ex.PathTuple)
	r.GET("/users/serde/{user_id}/{friend}", ex.PathStruct)
	r.GET("/users/match/{user_id}/{friend}", ex.PathMatch)
	r.GET("/query", ex.Query)
	r.Scope("/app").GET("/index.html", demo.Index)

	// Host scopes go before GET / so www and users hosts never reach the
	// plain index.
	r.Scope("/", router.Host(cfg.Hosts.WWW)).Any("", demo.Text("www"))
	r.Scope("/", router.Host(cfg.Hosts.Users)).Any("", demo.Text("user"))

	r.GET("/", demo.Index)
	r.POST("/echo", demo.Echo)
	r.GET("/state", d.Shared.Greeting)
	r.POST("/submit", ex.Submit)
	r.POST("/form", ex.Form)
	r.GET("/hey", demo.Hey)
	r.GET("/extraction/{first}/{second}", ex.Combined)

	// process-wide exclusive state
	r.GET("/mutableState", d.Shared.IncrementExclusive)
	r.GET("/mutableState/current", d.Shared.CurrentExclusive)

	r.Any("/ok", demo.OK)

	// modular configuration
	r.Configure(appConfig)
	r.Scope("/api").Configure(apiConfig)
	r.GET("/config", demo.Text("/"))

	registerAdmin(r, d)
}

func appConfig(s *router.Scope) {
	s.GET("/app", demo.Text("app")).HEAD("/app", demo.MethodNotAllowed)
}

func apiConfig(s *router.Scope) {
	s.GET("/test", demo.Text("test")).HEAD("/test", demo.MethodNotAllowed)
}

func registerAdmin(r *router.Router, d Deps) {
	r.GET("/healthz", d.Admin.Health)
	r.GET("/readyz", d.Admin.Ready)
	r.GET("/admin/stats", d.Admin.Stats)
	r.POST("/admin/counters/recover", d.Admin.RecoverCounter)
	r.POST("/admin/jobs/report", d.Admin.RunReport)

	debug := fasthttpadaptor.NewFastHTTPHandler(debugRouter(d.Metrics))
	r.GET("/admin/debug/prometheus", debug)
	r.GET("/admin/debug/pprof/", debug)
	r.GET("/admin/debug/pprof/{profile}", debug)
}

// WorkerHandler builds the full handler chain for one worker: its own router
// and counter state behind the shared middleware.
func WorkerHandler(d Deps) fasthttp.RequestHandler {
	w := state.NewWorker(d.Shared.Global)
	r := router.New()
	RegisterRoutes(r, d, w)
	h := middleware.Chain(r.Handler,
		middleware.Metrics(d.Metrics),
		middleware.Recover(),
		middleware.Gateway(d.Config.Security, d.Limiters),
	)
	return h
}
