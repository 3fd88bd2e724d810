package media

import "sync"

// ListenerID identifies a registered listener. Zero is never issued.
type ListenerID uint64

type listener struct {
	id   ListenerID
	typ  EventType
	fn   func(Event)
	once bool
}

// Emitter keeps listeners in registration order.
type Emitter struct {
	mu        sync.Mutex
	next      ListenerID
	listeners []listener
}

func (e *Emitter) On(t EventType, fn func(Event)) ListenerID {
	return e.add(t, fn, false)
}

// Once registers fn to run for the next t event only.
func (e *Emitter) Once(t EventType, fn func(Event)) ListenerID {
	return e.add(t, fn, true)
}

func (e *Emitter) add(t EventType, fn func(Event), once bool) ListenerID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	e.listeners = append(e.listeners, listener{id: e.next, typ: t, fn: fn, once: once})
	return e.next
}

// Off removes a listener; unknown ids are ignored.
func (e *Emitter) Off(id ListenerID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, l := range e.listeners {
		if l.id == id {
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			return
		}
	}
}

// ListenerCount returns the number of listeners for t.
func (e *Emitter) ListenerCount(t EventType) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, l := range e.listeners {
		if l.typ == t {
			n++
		}
	}
	return n
}

// Emit calls every listener for ev.Type; once listeners are removed first.
func (e *Emitter) Emit(ev Event) {
	e.mu.Lock()
	var fns []func(Event)
	kept := e.listeners[:0]
	for _, l := range e.listeners {
		if l.typ == ev.Type {
			fns = append(fns, l.fn)
			if l.once {
				continue
			}
		}
		kept = append(kept, l)
	}
	e.listeners = kept
	e.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// RemoveAll drops every listener.
func (e *Emitter) RemoveAll() {
	e.mu.Lock()
	e.listeners = nil
	e.mu.Unlock()
}
