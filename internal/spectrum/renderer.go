package spectrum

import (
	"image/color"
	"time"

	"github.com/rs/zerolog/log"

	"lyricwidget/internal/eventloop"
)

var logger = log.With().Str("component", "spectrum").Logger()

// Surface is a drawing target.
type Surface interface {
	Size() (w, h int)
	// Clear replaces every pixel with c.
	Clear(c color.Color)
	Fill(x, y, w, h float64, c color.Color)
	// Text draws s centered.
	Text(s string, c color.Color)
	Flush() error
}

// FrameSource supplies the latest frequency snapshot.
type FrameSource interface {
	BinCount() int
	ByteFrequencyData(dst []byte)
}

// Policy is the variant-specific part of drawing.
type Policy interface {
	BarCount() int
	BarColor(i, n int, v byte) color.Color
}

// PlaceholderColor is the status text color.
var PlaceholderColor = color.NRGBA{R: 255, G: 255, B: 255, A: 128}

// Renderer 自调度的频谱渲染循环，同一时间最多一个待执行帧
type Renderer struct {
	surface Surface
	sched   eventloop.FrameScheduler
	policy  Policy
	source  FrameSource

	frame   eventloop.FrameID
	running bool
	active  func() bool
	buf     []byte
	frames  int

	flushErr error
}

func NewRenderer(surface Surface, sched eventloop.FrameScheduler, policy Policy) *Renderer {
	return &Renderer{surface: surface, sched: sched, policy: policy}
}

// SetSource sets the analyser feeding the next Start.
func (r *Renderer) SetSource(src FrameSource) {
	r.source = src
}

// Start begins the loop. active is checked every frame; the loop stops and
// clears the surface once it reports false. Any pending frame is cancelled
// first, so calling Start twice never runs two loops.
func (r *Renderer) Start(active func() bool) {
	r.cancel()
	if r.source == nil {
		return
	}
	r.active = active
	r.buf = make([]byte, r.source.BinCount())
	r.running = true
	r.frame = r.sched.RequestFrame(r.tick)
}

// Stop cancels the pending frame and clears the surface.
func (r *Renderer) Stop() {
	r.cancel()
	r.running = false
	r.surface.Clear(Background)
	r.flush()
}

// Placeholder shows status text on the neutral background.
func (r *Renderer) Placeholder(text string) {
	r.surface.Clear(Background)
	r.surface.Text(text, PlaceholderColor)
	r.flush()
}

func (r *Renderer) Running() bool { return r.running }

// FlushErr returns the error of the most recent failed flush, nil once a
// flush succeeds again.
func (r *Renderer) FlushErr() error { return r.flushErr }

// flush 失败不会中断循环；连续失败只记一次日志
func (r *Renderer) flush() {
	err := r.surface.Flush()
	if err != nil && r.flushErr == nil {
		logger.Warn().Err(err).Msg("Failed to flush surface")
	}
	r.flushErr = err
}

// Frames is the number of bar frames drawn so far.
func (r *Renderer) Frames() int { return r.frames }

func (r *Renderer) cancel() {
	if r.frame != 0 {
		r.sched.CancelFrame(r.frame)
		r.frame = 0
	}
}

func (r *Renderer) tick(time.Time) {
	r.frame = 0
	if !r.running {
		return
	}
	if r.active != nil && !r.active() {
		r.Stop()
		return
	}

	r.source.ByteFrequencyData(r.buf)
	r.draw(r.buf)
	r.frame = r.sched.RequestFrame(r.tick)
}

func (r *Renderer) draw(data []byte) {
	w, h := r.surface.Size()
	n := r.policy.BarCount()
	r.surface.Clear(Background)
	for _, b := range Bars(data, len(data), n, float64(w), float64(h)) {
		if b.H <= 0 {
			continue
		}
		r.surface.Fill(b.X, b.Y, b.W, b.H, r.policy.BarColor(b.Index, n, b.Value))
	}
	r.flush()
	r.frames++
}
