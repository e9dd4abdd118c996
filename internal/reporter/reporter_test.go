package reporter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webdemo/pkg/config"
	"webdemo/pkg/counters"
)

func TestReport_Snapshot(t *testing.T) {
	ex := counters.NewExclusive()
	g := counters.NewGlobal()
	_, _ = ex.Increment()
	_, _ = ex.Increment()
	g.Increment()

	r := New(config.ReporterConfig{}, ex, g, func() []uint64 { return []uint64{3, 4} })
	_, ok := r.Last()
	assert.False(t, ok)

	s := r.Report()
	assert.Equal(t, int64(2), s.Exclusive)
	assert.Equal(t, uint64(1), s.Global)
	assert.False(t, s.Poisoned)
	assert.Equal(t, []uint64{3, 4}, s.Served)

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, s, last)
}

func TestReport_Poisoned(t *testing.T) {
	ex := counters.NewExclusive()
	func() {
		defer func() { _ = recover() }()
		_ = ex.Update(func(v *int64) { panic("boom") })
	}()

	s := New(config.ReporterConfig{}, ex, counters.NewGlobal(), nil).Report()
	assert.True(t, s.Poisoned)
	assert.Nil(t, s.Served)
}

func TestStart_Disabled(t *testing.T) {
	r := New(config.ReporterConfig{Enabled: false}, counters.NewExclusive(), counters.NewGlobal(), nil)
	require.NoError(t, r.Start(context.Background()))
	r.Stop()
}

func TestStart_InvalidCron(t *testing.T) {
	r := New(config.ReporterConfig{Enabled: true, Cron: "whenever"}, counters.NewExclusive(), counters.NewGlobal(), nil)
	assert.Error(t, r.Start(context.Background()))
}

func TestStart_StopsOnCancel(t *testing.T) {
	r := New(config.ReporterConfig{Enabled: true, Cron: "0 0 1 1 *"}, counters.NewExclusive(), counters.NewGlobal(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Start(ctx))
	cancel()

	stopped := make(chan struct{})
	go func() {
		r.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("reporter loop did not stop")
	}
}
