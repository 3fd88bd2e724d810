// Package events carries the widget's structured notifications.
// Core packages publish here instead of logging directly.
package events

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Type 事件类型
type Type string

const (
	LoadStarted          Type = "load-started"
	LoadFailed           Type = "load-failed"
	LoadReady            Type = "load-ready"
	PlaybackStateChanged Type = "playback-state-changed"
	PlaybackError        Type = "playback-error"
	ParseFallbackUsed    Type = "parse-fallback-used"
	LyricsLoaded         Type = "lyrics-loaded"
	HighlightChanged     Type = "highlight-changed"
	VisualizerDisabled   Type = "visualizer-disabled"
)

// Event 一条结构化事件
type Event struct {
	Type     Type
	WidgetID string
	Time     time.Time
	Fields   map[string]any
}

// Bus 同步事件总线，回调在发布者的 goroutine 上执行
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]func(Event)
	nextID int
	now    func() time.Time
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Event)), now: time.Now}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers e to every subscriber in subscription order.
// A nil bus drops the event.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = b.now()
	}

	b.mu.RLock()
	ids := make([]int, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	fns := make([]func(Event), 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, b.subs[id])
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}

// Emit is Publish with the fields given as key/value pairs.
func (b *Bus) Emit(widgetID string, t Type, kv ...any) {
	if b == nil {
		return
	}
	var fields map[string]any
	if len(kv) > 0 {
		fields = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			if k, ok := kv[i].(string); ok {
				fields[k] = kv[i+1]
			}
		}
	}
	b.Publish(Event{Type: t, WidgetID: widgetID, Fields: fields})
}

// LogSubscriber writes every event as one zerolog line.
// Failures log at warn level, highlight changes at debug.
func LogSubscriber(l zerolog.Logger) func(Event) {
	return func(e Event) {
		var ev *zerolog.Event
		switch e.Type {
		case LoadFailed, PlaybackError, VisualizerDisabled:
			ev = l.Warn()
		case HighlightChanged:
			ev = l.Debug()
		default:
			ev = l.Info()
		}
		ev.Str("event", string(e.Type)).Str("widget", e.WidgetID).Fields(e.Fields).Msg("Widget event")
	}
}

// Recorder collects events; handy in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Record(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]Type, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

// Count returns how many events of type t were recorded.
func (r *Recorder) Count(t Type) int {
	n := 0
	for _, got := range r.Types() {
		if got == t {
			n++
		}
	}
	return n
}

// Last returns the most recent event of type t.
func (r *Recorder) Last(t Type) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == t {
			return r.events[i], true
		}
	}
	return Event{}, false
}
