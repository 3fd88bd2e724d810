// Package eventloop runs every widget callback on one goroutine.
//
// Media notifications, timers and animation frames are all posted to the
// loop, so widget state never needs locking.
package eventloop

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var logger = log.With().Str("component", "eventloop").Logger()

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("event loop closed")

// FrameID identifies a requested animation frame. Zero is never issued.
type FrameID uint64

// Timer is a pending AfterFunc call.
type Timer interface {
	Stop() bool
}

// Dispatcher posts work onto the loop goroutine.
type Dispatcher interface {
	Post(fn func()) bool
	AfterFunc(d time.Duration, fn func()) Timer
}

// FrameScheduler issues animation frames.
type FrameScheduler interface {
	RequestFrame(cb func(time.Time)) FrameID
	CancelFrame(id FrameID)
}

// Scheduler is everything a widget needs from its loop.
type Scheduler interface {
	Dispatcher
	FrameScheduler
}

// Loop 单线程事件循环 + 动画帧调度
type Loop struct {
	interval time.Duration

	mu     sync.Mutex
	queue  []func()
	frames map[FrameID]func(time.Time)
	nextID FrameID
	closed bool

	wake chan struct{}
	done chan struct{}
	once sync.Once
}

// New creates a loop dispatching frames at frameRate per second (60 if <= 0).
func New(frameRate int) *Loop {
	if frameRate <= 0 {
		frameRate = 60
	}
	return &Loop{
		interval: time.Second / time.Duration(frameRate),
		frames:   make(map[FrameID]func(time.Time)),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Post queues fn. It returns false once the loop is closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// AfterFunc runs fn on the loop after d.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, func() { l.Post(fn) })
}

// RequestFrame schedules cb for the next frame tick.
func (l *Loop) RequestFrame(cb func(time.Time)) FrameID {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	l.frames[l.nextID] = cb
	return l.nextID
}

// CancelFrame drops a pending frame; unknown ids are ignored.
func (l *Loop) CancelFrame(id FrameID) {
	l.mu.Lock()
	delete(l.frames, id)
	l.mu.Unlock()
}

// Run dispatches callbacks until ctx is done or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	logger.Debug().Dur("frame_interval", l.interval).Msg("Event loop started")
	for {
		select {
		case <-ctx.Done():
			l.Close()
			return ctx.Err()
		case <-l.done:
			return ErrClosed
		case <-l.wake:
			l.drain()
		case now := <-ticker.C:
			l.drain()
			l.dispatchFrames(now)
		}
	}
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		queue := l.queue
		l.queue = nil
		l.mu.Unlock()

		if len(queue) == 0 {
			return
		}
		for _, fn := range queue {
			l.call(fn)
		}
	}
}

// dispatchFrames 取出当前所有待执行帧；执行中新请求的帧留到下一拍
func (l *Loop) dispatchFrames(now time.Time) {
	l.mu.Lock()
	pending := l.frames
	l.frames = make(map[FrameID]func(time.Time))
	l.mu.Unlock()

	for _, id := range sortedIDs(pending) {
		cb := pending[id]
		l.call(func() { cb(now) })
	}
}

func (l *Loop) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Recovered panic in event loop callback")
		}
	}()
	fn()
}

// Close stops the loop; queued work is discarded.
func (l *Loop) Close() {
	l.once.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.queue = nil
		l.frames = make(map[FrameID]func(time.Time))
		l.mu.Unlock()
		close(l.done)
	})
}

func sortedIDs(m map[FrameID]func(time.Time)) []FrameID {
	ids := make([]FrameID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
