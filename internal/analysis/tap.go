package analysis

import (
	"sync"

	"github.com/gopxl/beep/v2"
)

// Tap is a pass-through streamer that copies a mono mix of everything it
// streams into a ring buffer for analysis.
type Tap struct {
	mu   sync.Mutex
	s    beep.Streamer
	buf  []float64
	pos  int
	size int
}

// NewTap creates an unbound tap holding the last bufSize samples.
func NewTap(bufSize int) *Tap {
	if bufSize <= 0 {
		bufSize = DefaultFFTSize
	}
	return &Tap{buf: make([]float64, bufSize), size: bufSize}
}

// Bind sets the upstream streamer. The ring buffer is kept.
func (t *Tap) Bind(s beep.Streamer) {
	t.mu.Lock()
	t.s = s
	t.mu.Unlock()
}

// Stream passes audio through while capturing it.
func (t *Tap) Stream(samples [][2]float64) (int, bool) {
	t.mu.Lock()
	s := t.s
	t.mu.Unlock()
	if s == nil {
		return 0, false
	}

	n, ok := s.Stream(samples)
	t.mu.Lock()
	for i := 0; i < n; i++ {
		t.buf[t.pos] = (samples[i][0] + samples[i][1]) / 2
		t.pos = (t.pos + 1) % t.size
	}
	t.mu.Unlock()
	return n, ok
}

func (t *Tap) Err() error {
	t.mu.Lock()
	s := t.s
	t.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Err()
}

// Push appends mono samples without an upstream streamer.
func (t *Tap) Push(samples ...float64) {
	t.mu.Lock()
	for _, v := range samples {
		t.buf[t.pos] = v
		t.pos = (t.pos + 1) % t.size
	}
	t.mu.Unlock()
}

// Samples copies the most recent len(dst) samples into dst in chronological
// order and returns how many were copied.
func (t *Tap) Samples(dst []float64) int {
	n := len(dst)
	if n > t.size {
		n = t.size
	}
	t.mu.Lock()
	start := (t.pos - n + t.size) % t.size
	for i := 0; i < n; i++ {
		dst[i] = t.buf[(start+i)%t.size]
	}
	t.mu.Unlock()
	return n
}
