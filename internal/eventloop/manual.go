package eventloop

import (
	"sort"
	"sync"
	"time"
)

// Manual is a deterministic Scheduler driven by hand, for tests.
// Nothing runs until Tick, RunPending or Advance is called.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	frames map[FrameID]func(time.Time)
	nextID FrameID
	queue  []func()
	timers []*manualTimer
}

type manualTimer struct {
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func NewManual() *Manual {
	return &Manual{
		now:    time.Unix(0, 0),
		frames: make(map[FrameID]func(time.Time)),
	}
}

func (m *Manual) Post(fn func()) bool {
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()
	return true
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{at: m.now.Add(d), fn: fn}
	m.timers = append(m.timers, t)
	return t
}

func (m *Manual) RequestFrame(cb func(time.Time)) FrameID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.frames[m.nextID] = cb
	return m.nextID
}

func (m *Manual) CancelFrame(id FrameID) {
	m.mu.Lock()
	delete(m.frames, id)
	m.mu.Unlock()
}

// Pending returns the number of frames waiting for the next tick.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

// RunPending runs posted callbacks, including ones posted while running.
func (m *Manual) RunPending() {
	for {
		m.mu.Lock()
		queue := m.queue
		m.queue = nil
		m.mu.Unlock()
		if len(queue) == 0 {
			return
		}
		for _, fn := range queue {
			fn()
		}
	}
}

// Tick runs n frame ticks, 16ms apart, draining posted work before each.
func (m *Manual) Tick(n int) {
	for i := 0; i < n; i++ {
		m.RunPending()

		m.mu.Lock()
		m.now = m.now.Add(16 * time.Millisecond)
		now := m.now
		pending := m.frames
		m.frames = make(map[FrameID]func(time.Time))
		m.mu.Unlock()

		for _, id := range sortedIDs(pending) {
			pending[id](now)
		}
	}
	m.RunPending()
}

// Advance moves the virtual clock forward and fires due timers in order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	now := m.now
	var due []*manualTimer
	for _, t := range m.timers {
		if !t.stopped && !t.fired && !t.at.After(now) {
			t.fired = true
			due = append(due, t)
		}
	}
	m.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	m.RunPending()
	for _, t := range due {
		t.fn()
		m.RunPending()
	}
}

// Now returns the virtual clock.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}
