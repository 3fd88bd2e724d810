package eventloop

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoopRunsPostedWorkInOrder(t *testing.T) {
	l := New(100)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got := make(chan int, 3)
	for i := 1; i <= 3; i++ {
		i := i
		l.Post(func() { got <- i })
	}
	l.Post(func() { l.Close() })

	if err := l.Run(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	for want := 1; want <= 3; want++ {
		if v := <-got; v != want {
			t.Errorf("got %d, want %d", v, want)
		}
	}
	if l.Post(func() {}) {
		t.Error("Post should fail after Close")
	}
}

func TestLoopFrames(t *testing.T) {
	l := New(200)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	frames := 0
	var frame func(time.Time)
	frame = func(time.Time) {
		frames++
		if frames == 3 {
			l.Close()
			return
		}
		l.RequestFrame(frame)
	}
	l.RequestFrame(frame)
	cancelled := l.RequestFrame(func(time.Time) { t.Error("cancelled frame ran") })
	l.CancelFrame(cancelled)

	l.Run(ctx)
	if frames != 3 {
		t.Errorf("expected 3 frames, got %d", frames)
	}
}

func TestLoopRecoversPanics(t *testing.T) {
	l := New(100)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ran := false
	l.Post(func() { panic("boom") })
	l.Post(func() { ran = true; l.Close() })
	l.Run(ctx)
	if !ran {
		t.Error("callback after panic did not run")
	}
}

func TestManualScheduler(t *testing.T) {
	m := NewManual()

	t.Run("FrameRequestedDuringFrameRunsNextTick", func(t *testing.T) {
		count := 0
		var frame func(time.Time)
		frame = func(time.Time) {
			count++
			m.RequestFrame(frame)
		}
		m.RequestFrame(frame)
		m.Tick(5)
		if count != 5 {
			t.Errorf("expected 5, got %d", count)
		}
		if m.Pending() != 1 {
			t.Errorf("expected 1 pending frame, got %d", m.Pending())
		}
	})

	t.Run("AfterFunc", func(t *testing.T) {
		var order []string
		m.AfterFunc(200*time.Millisecond, func() { order = append(order, "b") })
		m.AfterFunc(100*time.Millisecond, func() { order = append(order, "a") })
		stopped := m.AfterFunc(50*time.Millisecond, func() { order = append(order, "x") })
		if !stopped.Stop() {
			t.Fatal("expected Stop to report true")
		}

		m.Advance(150 * time.Millisecond)
		if len(order) != 1 || order[0] != "a" {
			t.Fatalf("unexpected order %v", order)
		}
		m.Advance(100 * time.Millisecond)
		if len(order) != 2 || order[1] != "b" {
			t.Errorf("unexpected order %v", order)
		}
	})
}
