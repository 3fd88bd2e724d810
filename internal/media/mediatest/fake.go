// Package mediatest provides a scriptable media.Element for tests.
package mediatest

import (
	"context"
	"math"

	"github.com/google/uuid"

	"lyricwidget/internal/analysis"
	"lyricwidget/internal/media"
)

// FakeElement is driven by the test: Load, Fail, Advance and End stand in
// for the decoder and the clock.
type FakeElement struct {
	media.Emitter

	id       string
	src      string
	ready    media.ReadyState
	paused   bool
	time     float64
	duration float64
	volume   float64
	rate     float64
	tap      *analysis.Tap
	closed   bool

	// PlayErr, when set, is returned by Play (e.g. an autoplay rejection).
	PlayErr error
	// AttachErr, when set, is returned by AttachTap.
	AttachErr error

	PlayCalls  int
	PauseCalls int
	Sources    []string
}

func New() *FakeElement {
	return &FakeElement{
		id:       uuid.NewString(),
		paused:   true,
		duration: math.NaN(),
		volume:   1,
		rate:     1,
	}
}

func (f *FakeElement) ID() string         { return f.id }
func (f *FakeElement) Tap() *analysis.Tap { return f.tap }

func (f *FakeElement) AttachTap(t *analysis.Tap) error {
	if f.AttachErr != nil {
		return f.AttachErr
	}
	if f.tap != nil {
		return analysis.ErrDuplicateSource
	}
	f.tap = t
	return nil
}

func (f *FakeElement) SetSource(url string) {
	f.src = url
	f.Sources = append(f.Sources, url)
	f.ready = media.HaveNothing
	f.paused = true
	f.time = 0
	f.duration = math.NaN()
}

func (f *FakeElement) Source() string { return f.src }

func (f *FakeElement) Play(ctx context.Context) error {
	f.PlayCalls++
	if f.PlayErr != nil {
		return f.PlayErr
	}
	if f.src == "" {
		return media.ErrNoSource
	}
	if f.paused {
		f.paused = false
		f.Emit(media.Event{Type: media.EventPlay, Time: f.time})
	}
	return nil
}

func (f *FakeElement) Pause() {
	f.PauseCalls++
	if f.paused {
		return
	}
	f.paused = true
	f.Emit(media.Event{Type: media.EventPause, Time: f.time})
}

func (f *FakeElement) Paused() bool                 { return f.paused }
func (f *FakeElement) CurrentTime() float64         { return f.time }
func (f *FakeElement) Duration() float64            { return f.duration }
func (f *FakeElement) Volume() float64              { return f.volume }
func (f *FakeElement) SetVolume(v float64)          { f.volume = v }
func (f *FakeElement) PlaybackRate() float64        { return f.rate }
func (f *FakeElement) SetPlaybackRate(r float64)    { f.rate = r }
func (f *FakeElement) ReadyState() media.ReadyState { return f.ready }

func (f *FakeElement) SetCurrentTime(t float64) {
	f.time = t
	f.Emit(media.Event{Type: media.EventTimeUpdate, Time: t})
}

func (f *FakeElement) Close() error {
	f.closed = true
	f.RemoveAll()
	return nil
}

// Closed reports whether Close was called.
func (f *FakeElement) Closed() bool { return f.closed }

// Load finishes loading with the given duration.
func (f *FakeElement) Load(duration float64) {
	f.duration = duration
	f.ready = media.HaveMetadata
	f.Emit(media.Event{Type: media.EventLoadedMetadata})
	f.ready = media.HaveEnoughData
	f.Emit(media.Event{Type: media.EventLoadedData})
}

// Fail reports a load error.
func (f *FakeElement) Fail(err error) {
	f.Emit(media.Event{Type: media.EventError, Err: err})
}

// Advance moves playback to t and fires timeupdate.
func (f *FakeElement) Advance(t float64) {
	f.time = t
	f.Emit(media.Event{Type: media.EventTimeUpdate, Time: t})
}

// End plays to the end of the media.
func (f *FakeElement) End() {
	if !math.IsNaN(f.duration) {
		f.time = f.duration
	}
	f.paused = true
	f.Emit(media.Event{Type: media.EventPause, Time: f.time})
	f.Emit(media.Event{Type: media.EventEnded, Time: f.time})
}

var _ media.Element = (*FakeElement)(nil)
