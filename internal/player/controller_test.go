package player

import (
	"context"
	"errors"
	"image/color"
	"testing"

	"lyricwidget/internal/analysis"
	"lyricwidget/internal/eventloop"
	"lyricwidget/internal/events"
	"lyricwidget/internal/media"
	"lyricwidget/internal/media/mediatest"
	"lyricwidget/internal/spectrum"
)

// spySurface counts drawing calls
type spySurface struct {
	clears    int
	fills     int
	texts     []string
	lastClear color.Color
}

func (s *spySurface) Size() (int, int) { return 500, 120 }
func (s *spySurface) Clear(c color.Color) {
	s.clears++
	s.lastClear = c
}
func (s *spySurface) Fill(x, y, w, h float64, c color.Color) { s.fills++ }
func (s *spySurface) Text(t string, c color.Color)           { s.texts = append(s.texts, t) }
func (s *spySurface) Flush() error                           { return nil }

type spyView struct {
	title   string
	failed  bool
	playing bool
}

func (v *spyView) SetTitle(title string, failed bool) { v.title, v.failed = title, failed }
func (v *spyView) SetProgress(float64, float64)       {}
func (v *spyView) SetPlaying(p bool)                  { v.playing = p }
func (v *spyView) SetMode(bool, bool)                 {}

type spyVolume struct{ v float64 }

func (s *spyVolume) SetVolume(v float64) { s.v = v }

type harness struct {
	c       *Controller
	el      *mediatest.FakeElement
	sched   *eventloop.Manual
	surface *spySurface
	view    *spyView
	rec     *events.Recorder
	reg     *analysis.Registry
}

func newHarness(t *testing.T, el *mediatest.FakeElement, reg *analysis.Registry) *harness {
	t.Helper()
	if el == nil {
		el = mediatest.New()
	}
	if reg == nil {
		reg = &analysis.Registry{}
	}
	h := &harness{
		el:      el,
		sched:   eventloop.NewManual(),
		surface: &spySurface{},
		view:    &spyView{},
		rec:     &events.Recorder{},
		reg:     reg,
	}
	bus := events.NewBus()
	bus.Subscribe(h.rec.Record)
	h.c = New(Deps{
		Element:   el,
		Scheduler: h.sched,
		Surface:   h.surface,
		View:      h.view,
		Bus:       bus,
		Registry:  reg,
	}, DefaultConfig())
	return h
}

func on() *bool  { b := true; return &b }
func off() *bool { b := false; return &b }

func TestPlaybackStateMachine(t *testing.T) {
	h := newHarness(t, nil, nil)
	if h.c.State() != StateIdle {
		t.Fatalf("expected idle, got %v", h.c.State())
	}

	h.c.LoadAudio("file:///tmp/song.mp3", "song.mp3")
	if h.c.State() != StateLoading {
		t.Fatalf("expected loading, got %v", h.c.State())
	}
	if h.view.title != "song.mp3" {
		t.Errorf("title not shown immediately: %q", h.view.title)
	}

	h.el.Load(120)
	if h.c.State() != StateReady {
		t.Fatalf("expected ready, got %v", h.c.State())
	}
	if h.c.AnalysisState() != analysis.StateSuspended {
		t.Errorf("context should start suspended, got %v", h.c.AnalysisState())
	}

	h.c.ToggleVisualizer(on())
	if n := len(h.surface.texts); n == 0 || h.surface.texts[n-1] != PlaceholderReady {
		t.Errorf("expected ready placeholder, got %v", h.surface.texts)
	}

	if err := h.c.Play(context.Background()); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if h.c.State() != StatePlaying {
		t.Fatalf("expected playing, got %v", h.c.State())
	}
	if h.c.AnalysisState() != analysis.StateRunning {
		t.Errorf("context not resumed before visualization: %v", h.c.AnalysisState())
	}
	h.sched.Tick(5)
	if got := h.c.Renderer().Frames(); got != 5 {
		t.Errorf("expected 5 frames, got %d", got)
	}

	h.c.Pause()
	if h.c.State() != StatePaused {
		t.Fatalf("expected paused, got %v", h.c.State())
	}
	if h.sched.Pending() != 0 {
		t.Errorf("pause left %d frames pending", h.sched.Pending())
	}
	if h.surface.lastClear != spectrum.Background {
		t.Errorf("surface not cleared to background: %v", h.surface.lastClear)
	}

	if err := h.c.TogglePlay(context.Background()); err != nil {
		t.Fatalf("TogglePlay: %v", err)
	}
	h.el.End()
	if h.c.State() != StateEnded {
		t.Fatalf("expected ended, got %v", h.c.State())
	}
	if h.sched.Pending() != 0 || h.c.Renderer().Running() {
		t.Error("visualization still scheduled after end")
	}
	if h.c.Snapshot().IsPlaying {
		t.Error("snapshot reports playing after end")
	}

	if h.rec.Count(events.PlaybackStateChanged) < 5 {
		t.Errorf("expected state change events, got %v", h.rec.Types())
	}
}

func TestPlayWithoutSource(t *testing.T) {
	h := newHarness(t, nil, nil)
	err := h.c.Play(context.Background())
	if !errors.Is(err, media.ErrNoSource) {
		t.Fatalf("expected ErrNoSource, got %v", err)
	}
	if h.el.PlayCalls != 0 {
		t.Error("element should not be asked to play")
	}
	ev, ok := h.rec.Last(events.PlaybackError)
	if !ok || ev.Fields["warning"] != true {
		t.Errorf("expected warning event, got %+v", ev)
	}
}

func TestAutoplayRejected(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.c.LoadAudio("a.mp3", "a")
	h.el.Load(30)

	rejected := errors.New("play() not allowed")
	h.el.PlayErr = rejected
	err := h.c.Play(context.Background())
	if !errors.Is(err, rejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if h.c.State() == StatePlaying || h.c.Snapshot().IsPlaying {
		t.Error("rejected play must leave the widget paused")
	}
	if h.view.playing {
		t.Error("view shows playing after rejection")
	}
	if h.rec.Count(events.PlaybackError) != 1 {
		t.Errorf("expected one playback-error event, got %v", h.rec.Types())
	}

	h.el.PlayErr = nil
	if err := h.c.Play(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if h.c.State() != StatePlaying {
		t.Errorf("retry did not play: %v", h.c.State())
	}
}

func TestSetVolumeSyncsSurfaces(t *testing.T) {
	h := newHarness(t, nil, nil)
	main, popup := &spyVolume{}, &spyVolume{}
	h.c.AddVolumeSurface(main)
	remove := h.c.AddVolumeSurface(popup)
	if main.v != 1 || popup.v != 1 {
		t.Fatalf("surfaces not initialized: %v %v", main.v, popup.v)
	}

	cases := []struct{ in, want float64 }{{0.4, 0.4}, {1.5, 1}, {-2, 0}, {0.75, 0.75}}
	for _, c := range cases {
		h.c.SetVolume(c.in)
		if main.v != c.want || popup.v != c.want || h.el.Volume() != c.want || h.c.Snapshot().Volume != c.want {
			t.Errorf("SetVolume(%v): main=%v popup=%v element=%v", c.in, main.v, popup.v, h.el.Volume())
		}
	}

	remove()
	h.c.SetVolume(0.1)
	if popup.v != 0.75 {
		t.Errorf("removed surface still updated: %v", popup.v)
	}
	if main.v != 0.1 {
		t.Errorf("main surface = %v", main.v)
	}
}

func TestSeekRequiresDuration(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.c.LoadAudio("a.mp3", "a")
	if err := h.c.Seek(50); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady before metadata, got %v", err)
	}
	if h.el.CurrentTime() != 0 {
		t.Errorf("time changed before metadata: %v", h.el.CurrentTime())
	}

	h.el.Load(200)
	if err := h.c.Seek(25); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if h.el.CurrentTime() != 50 {
		t.Errorf("expected 50s, got %v", h.el.CurrentTime())
	}
	h.c.Seek(150)
	if h.el.CurrentTime() != 200 {
		t.Errorf("expected clamp to 200s, got %v", h.el.CurrentTime())
	}
}

func TestPlaybackRateClamp(t *testing.T) {
	h := newHarness(t, nil, nil)
	for _, c := range []struct{ in, want float64 }{{1.5, 1.5}, {0.1, 0.25}, {10, 4}} {
		h.c.SetPlaybackRate(c.in)
		if h.el.PlaybackRate() != c.want {
			t.Errorf("SetPlaybackRate(%v) = %v, want %v", c.in, h.el.PlaybackRate(), c.want)
		}
	}
}

func TestLoadLyricsResetsActiveIndex(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.c.LoadAudio("a.mp3", "a")
	h.el.Load(60)

	h.c.LoadLyrics("[00:00.00]a\n[00:05.00]b")
	h.el.Advance(6)
	if got := h.c.Snapshot().ActiveCueIndex; got != 1 {
		t.Fatalf("expected active 1, got %d", got)
	}
	if h.rec.Count(events.HighlightChanged) != 1 {
		t.Errorf("expected one highlight event, got %v", h.rec.Types())
	}

	// 时间点相同，仍然要重置
	h.c.LoadLyrics("[00:00.00]x\n[00:05.00]y")
	if got := h.c.Snapshot().ActiveCueIndex; got != -1 {
		t.Errorf("expected reset to -1, got %d", got)
	}
	h.el.Advance(1)
	if got := h.c.Snapshot().ActiveCueIndex; got != 0 {
		t.Errorf("expected 0 after next update, got %d", got)
	}

	h.el.Advance(0.5)
	if h.rec.Count(events.HighlightChanged) != 2 {
		t.Errorf("highlight should only fire on change, got %d", h.rec.Count(events.HighlightChanged))
	}
}

func TestLoadLyricsFallbackEvent(t *testing.T) {
	h := newHarness(t, nil, nil)
	cues := h.c.LoadLyrics([]string{"line one", "line two"})
	if len(cues) != 2 || cues[1].Time != 3 {
		t.Fatalf("unexpected cues %+v", cues)
	}
	ev, ok := h.rec.Last(events.ParseFallbackUsed)
	if !ok || ev.Fields["format"] != "plain" {
		t.Errorf("expected fallback event, got %+v", h.rec.Events())
	}
	if h.rec.Count(events.LyricsLoaded) != 1 {
		t.Error("expected lyrics-loaded event")
	}
}

func TestRepeatedLoadsDoNotStackHandlers(t *testing.T) {
	h := newHarness(t, nil, nil)
	for i := 0; i < 3; i++ {
		h.c.LoadAudio("a.mp3", "a")
	}
	if n := h.el.ListenerCount(media.EventError); n != 1 {
		t.Errorf("expected 1 error handler, got %d", n)
	}
	if n := h.el.ListenerCount(media.EventLoadedData); n != 1 {
		t.Errorf("expected 1 loadeddata handler, got %d", n)
	}

	h.el.Fail(errors.New("decode failed"))
	if h.c.State() != StateError {
		t.Fatalf("expected error state, got %v", h.c.State())
	}
	if !h.view.failed || h.view.title != ErrorTitle {
		t.Errorf("error title not shown: %+v", h.view)
	}
	if h.rec.Count(events.LoadFailed) != 1 {
		t.Errorf("expected one load-failed, got %v", h.rec.Types())
	}
	if err := h.c.Play(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Errorf("play after failed load: %v", err)
	}

	h.c.LoadAudio("b.mp3", "b")
	h.el.Load(10)
	if h.c.State() != StateReady {
		t.Errorf("reload after error: %v", h.c.State())
	}
	if h.view.failed {
		t.Error("error title not cleared on reload")
	}
}

func TestVisualizerLyricsExclusive(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.c.ToggleVisualizer(nil)
	s := h.c.Snapshot()
	if !s.ShowVisualizer || s.ShowLyrics {
		t.Fatalf("unexpected %+v", s)
	}
	if h.surface.texts[len(h.surface.texts)-1] != PlaceholderWaiting {
		t.Errorf("expected waiting placeholder, got %v", h.surface.texts)
	}

	h.c.ToggleLyrics(nil)
	s = h.c.Snapshot()
	if s.ShowVisualizer || !s.ShowLyrics {
		t.Fatalf("unexpected %+v", s)
	}

	h.c.ToggleVisualizer(on())
	if s := h.c.Snapshot(); !s.ShowVisualizer || s.ShowLyrics {
		t.Fatalf("unexpected %+v", s)
	}
	h.c.ToggleLyrics(off())
	if s := h.c.Snapshot(); s.ShowVisualizer || s.ShowLyrics {
		t.Fatalf("unexpected %+v", s)
	}
}

func TestStartingTwiceRunsOneLoop(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.c.LoadAudio("a.mp3", "a")
	h.el.Load(30)
	h.c.ToggleVisualizer(on())
	h.c.Play(context.Background())

	h.c.ToggleVisualizer(on())
	h.c.ToggleVisualizer(on())
	if h.sched.Pending() != 1 {
		t.Fatalf("expected one pending frame, got %d", h.sched.Pending())
	}
	h.sched.Tick(10)
	if got := h.c.Renderer().Frames(); got != 10 {
		t.Errorf("expected 10 frames, got %d", got)
	}
}

func TestDestroyTearsDownEverything(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.c.LoadAudio("a.mp3", "a")
	h.el.Load(30)
	h.c.ToggleVisualizer(on())
	h.c.Play(context.Background())
	h.sched.Tick(2)
	if h.reg.Len() != 1 {
		t.Fatalf("expected cached source, got %d", h.reg.Len())
	}

	h.c.Destroy()
	if h.sched.Pending() != 0 {
		t.Errorf("destroy left %d frames pending", h.sched.Pending())
	}
	if h.reg.Len() != 0 {
		t.Error("cached source reference not released")
	}
	if h.c.AnalysisState() != analysis.StateClosed {
		t.Errorf("context not closed: %v", h.c.AnalysisState())
	}
	if h.el.Source() != "" || !h.el.Paused() {
		t.Error("element not paused and cleared")
	}
	for _, typ := range []media.EventType{media.EventTimeUpdate, media.EventPlay, media.EventPause, media.EventEnded, media.EventError, media.EventLoadedData} {
		if n := h.el.ListenerCount(typ); n != 0 {
			t.Errorf("%s: %d listeners left", typ, n)
		}
	}

	frames := h.c.Renderer().Frames()
	h.sched.Tick(3)
	if h.c.Renderer().Frames() != frames {
		t.Error("frames drawn after destroy")
	}
	if err := h.c.Play(context.Background()); !errors.Is(err, ErrDestroyed) {
		t.Errorf("expected ErrDestroyed, got %v", err)
	}
	h.c.Destroy()
}

func TestRecreatedWidgetReusesSource(t *testing.T) {
	el := mediatest.New()
	reg := &analysis.Registry{}

	first := newHarness(t, el, reg)
	first.c.LoadAudio("a.mp3", "a")
	el.Load(30)
	tap := el.Tap()
	if tap == nil {
		t.Fatal("expected a tap on the element")
	}
	first.c.Destroy()

	second := newHarness(t, el, reg)
	second.c.LoadAudio("a.mp3", "a")
	el.Load(30)
	if !second.c.VisualizerAvailable() {
		t.Fatal("visualizer disabled on recreation")
	}
	if second.rec.Count(events.VisualizerDisabled) != 0 {
		t.Errorf("unexpected events %v", second.rec.Types())
	}
	if el.Tap() != tap {
		t.Error("a second tap was installed")
	}
	node, ok := reg.Lookup(el.ID())
	if !ok || node.Connected() == nil {
		t.Error("source not connected to the new analyser")
	}
}

func TestDestroyingOlderWidgetKeepsNewerSpectrum(t *testing.T) {
	el := mediatest.New()
	reg := &analysis.Registry{}

	a := newHarness(t, el, reg)
	a.c.LoadAudio("a.mp3", "a")
	el.Load(30)
	b := newHarness(t, el, reg)
	b.c.LoadAudio("a.mp3", "a")
	el.Load(30)

	a.c.Destroy()
	node, ok := reg.Lookup(el.ID())
	if !ok || node.Connected() == nil {
		t.Fatalf("newer widget's source dropped: cached=%v", ok)
	}

	// a 的拆除清空了元素，b 重新加载后继续画
	b.c.LoadAudio("a.mp3", "a")
	el.Load(30)
	b.c.ToggleVisualizer(on())
	if err := b.c.Play(context.Background()); err != nil {
		t.Fatalf("Play: %v", err)
	}
	dc := make([]float64, analysis.DefaultFFTSize)
	for i := range dc {
		dc[i] = 1
	}
	el.Tap().Push(dc...)
	b.sched.Tick(3)
	if b.c.Renderer().Frames() != 3 {
		t.Fatalf("expected 3 frames, got %d", b.c.Renderer().Frames())
	}
	if b.surface.fills == 0 {
		t.Error("newer widget draws an all-zero spectrum")
	}
}

func TestAnalysisFailureDisablesVisualizer(t *testing.T) {
	el := mediatest.New()
	el.AttachErr = errors.New("platform rejected source")
	h := newHarness(t, el, nil)

	h.c.LoadAudio("a.mp3", "a")
	el.Load(30)
	if h.c.VisualizerAvailable() {
		t.Fatal("expected visualizer disabled")
	}
	if h.rec.Count(events.VisualizerDisabled) != 1 {
		t.Errorf("expected visualizer-disabled event, got %v", h.rec.Types())
	}

	h.c.ToggleVisualizer(on())
	if err := h.c.Play(context.Background()); err != nil {
		t.Fatalf("playback should still work: %v", err)
	}
	h.sched.Tick(3)
	if h.c.Renderer().Frames() != 0 {
		t.Error("frames drawn without an analysis graph")
	}
}

func TestPlayDuringLoad(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.c.ToggleVisualizer(on())
	h.c.LoadAudio("a.mp3", "a")
	if err := h.c.Play(context.Background()); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if h.c.State() != StateLoading {
		t.Fatalf("expected loading until data arrives, got %v", h.c.State())
	}

	h.el.Load(30)
	if h.c.State() != StatePlaying {
		t.Fatalf("expected playing, got %v", h.c.State())
	}
	if h.c.AnalysisState() != analysis.StateRunning {
		t.Errorf("context not resumed: %v", h.c.AnalysisState())
	}
	h.sched.Tick(2)
	if h.c.Renderer().Frames() != 2 {
		t.Errorf("expected 2 frames, got %d", h.c.Renderer().Frames())
	}
}
