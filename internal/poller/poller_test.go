package poller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestPollerFiresImmediatelyOnStart(t *testing.T) {
	var ticks atomic.Int64
	p := New(time.Hour, zerolog.Nop())
	p.Register(func(ctx context.Context) { ticks.Add(1) })

	p.Start(context.Background())
	defer p.Stop()

	waitFor(t, func() bool { return ticks.Load() == 1 }, "启动后应立即触发一次检查")
}

func TestPollerStopIsIdempotent(t *testing.T) {
	p := New(time.Hour, zerolog.Nop())
	p.Register(func(ctx context.Context) {})

	p.Stop()

	p.Start(context.Background())
	waitFor(t, func() bool { return p.Active() }, "Start 后应处于运行态")

	p.Stop()
	p.Stop()

	if p.Active() {
		t.Fatal("Stop 后不应继续运行")
	}
}

func TestPollerNoTickAfterStop(t *testing.T) {
	var ticks atomic.Int64
	p := New(10*time.Millisecond, zerolog.Nop())
	p.Register(func(ctx context.Context) { ticks.Add(1) })

	p.Start(context.Background())
	waitFor(t, func() bool { return ticks.Load() >= 2 }, "应按周期重复触发")

	p.Stop()
	after := ticks.Load()
	time.Sleep(50 * time.Millisecond)

	if got := ticks.Load(); got != after {
		t.Fatalf("Stop 返回后不应再触发: %d -> %d", after, got)
	}
}

func TestPollerRestartBeginsFreshCycle(t *testing.T) {
	var ticks atomic.Int64
	p := New(time.Hour, zerolog.Nop())
	p.Register(func(ctx context.Context) { ticks.Add(1) })

	p.Start(context.Background())
	waitFor(t, func() bool { return ticks.Load() == 1 }, "首个周期应触发")
	p.Stop()

	p.Start(context.Background())
	defer p.Stop()

	waitFor(t, func() bool { return ticks.Load() == 2 }, "重启应重新执行立即检查")
}

func TestPollerStartWhileRunningIsNoop(t *testing.T) {
	var ticks atomic.Int64
	p := New(time.Hour, zerolog.Nop())
	p.Register(func(ctx context.Context) { ticks.Add(1) })

	p.Start(context.Background())
	defer p.Stop()
	p.Start(context.Background())

	waitFor(t, func() bool { return ticks.Load() == 1 }, "应只存在一个轮询循环")
	time.Sleep(20 * time.Millisecond)
	if ticks.Load() != 1 {
		t.Fatal("重复 Start 不应再次触发立即检查")
	}
}

func TestPollerRejectsNonPositiveInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("非正周期应 panic")
		}
	}()
	New(0, zerolog.Nop())
}
