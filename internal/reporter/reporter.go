// Package reporter logs periodic counter snapshots on a cron schedule.
package reporter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"webdemo/pkg/config"
	"webdemo/pkg/counters"
	"webdemo/pkg/logger"
)

// Snapshot is one reading of the shared counters.
type Snapshot struct {
	At        time.Time `json:"at"`
	Exclusive int64     `json:"exclusive"`
	Poisoned  bool      `json:"poisoned"`
	Global    uint64    `json:"global"`
	Served    []uint64  `json:"served,omitempty"`
}

// Reporter owns the schedule loop.
type Reporter struct {
	cfg       config.ReporterConfig
	exclusive *counters.Exclusive
	global    *counters.Global
	served    func() []uint64
	now       func() time.Time

	mu      sync.Mutex
	running bool
	last    *Snapshot
	cancel  context.CancelFunc
	done    chan struct{}
}

// New builds a reporter over the shared counters. served may be nil.
func New(cfg config.ReporterConfig, ex *counters.Exclusive, g *counters.Global, served func() []uint64) *Reporter {
	return &Reporter{cfg: cfg, exclusive: ex, global: g, served: served, now: time.Now}
}

// Start launches the schedule loop unless reporting is disabled. The loop
// stops when ctx ends or Stop is called.
func (r *Reporter) Start(ctx context.Context) error {
	if !r.cfg.Enabled {
		logger.Info("reporter_disabled")
		return nil
	}
	if !gronx.IsValid(r.cfg.Cron) {
		return fmt.Errorf("reporter: invalid cron expression %q", r.cfg.Cron)
	}
	ctx2, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.done = make(chan struct{})
	done := r.done
	r.mu.Unlock()

	logger.Info("reporter_enabled", "cron", r.cfg.Cron)
	go func() {
		defer close(done)
		r.scheduleLoop(ctx2)
	}()
	return nil
}

// Stop cancels the loop and waits for it to exit.
func (r *Reporter) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (r *Reporter) scheduleLoop(ctx context.Context) {
	for {
		next, err := gronx.NextTickAfter(r.cfg.Cron, r.now(), false)
		if err != nil {
			logger.Error("reporter_nexttick_failed", "cron", r.cfg.Cron, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		wait := time.Until(next)
		if wait <= 0 {
			r.runJob()
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(wait):
			r.runJob()
		case <-ctx.Done():
			return
		}
	}
}

func (r *Reporter) runJob() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	r.Report()
}

// Report takes a snapshot, logs it and remembers it as the latest one.
func (r *Reporter) Report() Snapshot {
	s := Snapshot{At: r.now(), Global: r.global.Load()}
	if v, err := r.exclusive.Value(); err != nil {
		s.Poisoned = true
	} else {
		s.Exclusive = v
	}
	if r.served != nil {
		s.Served = r.served()
	}
	logger.Info("counter_report",
		"exclusive", s.Exclusive,
		"poisoned", s.Poisoned,
		"global", s.Global,
		"served", fmt.Sprint(s.Served))

	r.mu.Lock()
	r.last = &s
	r.mu.Unlock()
	return s
}

// Last returns the most recent snapshot, if any.
func (r *Reporter) Last() (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return Snapshot{}, false
	}
	return *r.last, true
}
