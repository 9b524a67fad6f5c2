package framework

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	lock  sync.Mutex
	calls []string
}

func (r *recorder) ctl(name string) Controller {
	return ControlFunc(func(cc ControlContext) error {
		r.lock.Lock()
		r.calls = append(r.calls, name)
		r.lock.Unlock()
		return nil
	})
}

func (r *recorder) snapshot() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.calls...)
}

func TestStepRunsByPriority(t *testing.T) {
	var rec recorder
	l := NewLoop()
	l.AddController(PrLvPostProc, rec.ctl("post"))
	l.AddController(PrLvControl, rec.ctl("control"))
	l.AddController(PrLvTop, rec.ctl("top"))

	l.Step(context.Background())
	l.Step(context.Background())
	require.Equal(t, []string{"top", "control", "post", "top", "control", "post"}, rec.snapshot())
	require.Equal(t, uint64(2), l.Ticks())
}

func TestStepContext(t *testing.T) {
	l := NewLoop()
	var levels []int
	var ticks []uint64
	ctl := ControlFunc(func(cc ControlContext) error {
		levels = append(levels, cc.PriorityLevel())
		ticks = append(ticks, cc.Tick())
		require.NotNil(t, cc.Context())
		require.False(t, cc.Time().IsZero())
		return errors.New("logged and ignored")
	})
	l.AddController(PrLvHigh, ctl)
	l.AddController(PrLvLow, ctl)
	l.Step(context.Background())
	require.Equal(t, []int{PrLvHigh, PrLvLow}, levels)
	require.Equal(t, []uint64{1, 1}, ticks)
}

type blockingRunnable struct {
	started chan struct{}
}

func (r *blockingRunnable) Run(ctx context.Context) error {
	LoopCtlFrom(ctx).TriggerNext()
	close(r.started)
	<-ctx.Done()
	return ctx.Err()
}

func TestRunTicksAndStops(t *testing.T) {
	var rec recorder
	l := &Loop{Interval: 5 * time.Millisecond}
	run := &blockingRunnable{started: make(chan struct{})}
	l.AddController(PrLvControl, rec.ctl("tick")).AddRunnable(run)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	select {
	case <-run.started:
	case <-time.After(time.Second):
		t.Fatal("runnable not started")
	}
	require.Eventually(t, func() bool { return len(rec.snapshot()) >= 3 }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		require.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}
