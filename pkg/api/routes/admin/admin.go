package admin

import (
	"time"

	"github.com/valyala/fasthttp"

	"webdemo/pkg/api/respond"
	"webdemo/pkg/api/utils"
	"webdemo/pkg/counters"
	"webdemo/pkg/logger"
)

// Handlers serves health, readiness and counter administration.
type Handlers struct {
	Exclusive *counters.Exclusive
	Global    *counters.Global
	Started   time.Time
	// WorkerStats reports per-worker served counts; nil until the pool runs.
	WorkerStats func() []uint64
	// IsReady reports whether the server accepts traffic.
	IsReady func() bool
	// Report takes a counter snapshot on demand.
	Report func() interface{}
}

func (h *Handlers) Health(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.Set("Content-Type", "application/json")
	_, _ = ctx.WriteString(`{"status":"ok","service":"webdemo"}`)
}

func (h *Handlers) Ready(ctx *fasthttp.RequestCtx) {
	if h.IsReady != nil && !h.IsReady() {
		respond.WriteJSONError(ctx, fasthttp.StatusServiceUnavailable, "not ready")
		return
	}
	ctx.Response.Header.Set("Content-Type", "application/json")
	_, _ = ctx.WriteString(`{"status":"ready"}`)
}

// statsResponse is the /admin/stats body.
type statsResponse struct {
	Workers         int      `json:"workers"`
	Served          []uint64 `json:"served"`
	Exclusive       *int64   `json:"exclusive"`
	ExclusiveStatus string   `json:"exclusive_status"`
	Global          uint64   `json:"global"`
	UptimeSeconds   float64  `json:"uptime_seconds"`
}

func (h *Handlers) Stats(ctx *fasthttp.RequestCtx) {
	out := statsResponse{
		Global:          h.Global.Load(),
		ExclusiveStatus: "ok",
		UptimeSeconds:   time.Since(h.Started).Seconds(),
	}
	if h.WorkerStats != nil {
		out.Served = h.WorkerStats()
		out.Workers = len(out.Served)
	}
	if v, err := h.Exclusive.Value(); err != nil {
		out.ExclusiveStatus = "poisoned"
	} else {
		out.Exclusive = &v
	}
	_ = respond.WriteJSON(ctx, out)
}

// RecoverCounter clears a poisoned exclusive counter. With reset=true the
// value restarts at zero.
func (h *Handlers) RecoverCounter(ctx *fasthttp.RequestCtx) {
	reset := utils.GetQuery(ctx, "reset") == "true"
	cleared := h.Exclusive.Recover(reset)
	if cleared == nil {
		respond.WriteJSONOk(ctx, map[string]interface{}{"recovered": false, "reset": false})
		return
	}
	logger.Warn("counter_recovered", "reset", reset, "cause", cleared.Error())
	respond.WriteJSONOk(ctx, map[string]interface{}{"recovered": true, "reset": reset, "cause": cleared.Error()})
}

// RunReport takes a counter snapshot outside the cron schedule.
func (h *Handlers) RunReport(ctx *fasthttp.RequestCtx) {
	if h.Report == nil {
		respond.WriteJSONError(ctx, fasthttp.StatusServiceUnavailable, "reporter not initialized")
		return
	}
	_ = respond.WriteJSON(ctx, h.Report())
}
