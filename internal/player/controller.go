// Package player is the widget's playback controller: it owns one media
// element, the analysis graph built on it, the spectrum loop and the lyric
// sync engine, and keeps them consistent through the widget's lifetime.
package player

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"lyricwidget/internal/analysis"
	"lyricwidget/internal/eventloop"
	"lyricwidget/internal/events"
	"lyricwidget/internal/lyrics"
	"lyricwidget/internal/lyricsync"
	"lyricwidget/internal/media"
	"lyricwidget/internal/spectrum"
)

var logger = log.With().Str("component", "player").Logger()

var (
	ErrNotReady  = errors.New("media duration not known yet")
	ErrDestroyed = errors.New("player destroyed")
)

const (
	DefaultTitle = "Unknown track"
	ErrorTitle   = "Failed to load audio"

	PlaceholderWaiting = "Waiting for audio..."
	PlaceholderReady   = "Press play to start"

	MinPlaybackRate = 0.25
	MaxPlaybackRate = 4.0
)

// View is the non-canvas part of the widget.
type View interface {
	SetTitle(title string, failed bool)
	SetProgress(current, duration float64)
	SetPlaying(playing bool)
	SetMode(showVisualizer, showLyrics bool)
}

// VolumeSurface 任何显示音量的控件（主控件、弹出面板）
type VolumeSurface interface {
	SetVolume(v float64)
}

type nopView struct{}

func (nopView) SetTitle(string, bool)        {}
func (nopView) SetProgress(float64, float64) {}
func (nopView) SetPlaying(bool)              {}
func (nopView) SetMode(bool, bool)           {}

// Config 分析参数
type Config struct {
	FFTSize   int
	Smoothing float64
}

func DefaultConfig() Config {
	return Config{FFTSize: analysis.DefaultFFTSize, Smoothing: analysis.DefaultSmoothing}
}

// Deps are the collaborators of a Controller. Element, Scheduler and
// Surface are required.
type Deps struct {
	Element     media.Element
	Scheduler   eventloop.Scheduler
	Surface     spectrum.Surface
	Variant     Variant
	Highlighter lyricsync.Highlighter
	View        View
	Bus         *events.Bus
	Registry    *analysis.Registry
	Converter   lyrics.TextConverter
}

// Controller 播放状态机。所有方法只能在事件循环上调用
type Controller struct {
	id       string
	cfg      Config
	el       media.Element
	sched    eventloop.Scheduler
	renderer *spectrum.Renderer
	engine   *lyricsync.Engine
	lyricOut lyricsync.Highlighter
	view     View
	bus      *events.Bus
	registry *analysis.Registry
	conv     lyrics.TextConverter
	volumes  []VolumeSurface

	state          State
	title          string
	volume         float64
	showVisualizer bool
	showLyrics     bool
	visDisabled    bool
	destroyed      bool

	actx     *analysis.Context
	analyser *analysis.Analyser
	source   *analysis.SourceNode

	loadHandlers []media.ListenerID
	listeners    []media.ListenerID
}

func New(deps Deps, cfg Config) *Controller {
	if cfg.FFTSize == 0 {
		cfg.FFTSize = analysis.DefaultFFTSize
	}
	if deps.Variant == nil {
		deps.Variant = Full{}
	}
	if deps.View == nil {
		deps.View = nopView{}
	}
	if deps.Registry == nil {
		deps.Registry = analysis.DefaultRegistry
	}

	c := &Controller{
		id:       uuid.NewString(),
		cfg:      cfg,
		el:       deps.Element,
		sched:    deps.Scheduler,
		renderer: spectrum.NewRenderer(deps.Surface, deps.Scheduler, deps.Variant),
		engine:   lyricsync.New(deps.Highlighter),
		lyricOut: deps.Highlighter,
		view:     deps.View,
		bus:      deps.Bus,
		registry: deps.Registry,
		conv:     deps.Converter,
		volume:   deps.Element.Volume(),
		title:    DefaultTitle,
	}

	c.listeners = []media.ListenerID{
		c.el.On(media.EventLoadedMetadata, c.onLoadedMetadata),
		c.el.On(media.EventTimeUpdate, c.onTimeUpdate),
		c.el.On(media.EventPlay, c.onPlay),
		c.el.On(media.EventPause, c.onPause),
		c.el.On(media.EventEnded, c.onEnded),
	}
	return c
}

// ID identifies this widget instance in events.
func (c *Controller) ID() string { return c.id }

func (c *Controller) State() State { return c.state }

func (c *Controller) Title() string { return c.title }

// Snapshot 当前播放状态
func (c *Controller) Snapshot() PlaybackState {
	return PlaybackState{
		IsPlaying:      c.state == StatePlaying,
		CurrentTime:    c.el.CurrentTime(),
		Duration:       c.el.Duration(),
		Volume:         c.volume,
		ShowVisualizer: c.showVisualizer,
		ShowLyrics:     c.showLyrics,
		ActiveCueIndex: c.engine.Active(),
	}
}

// Renderer exposes the spectrum loop driven by this controller.
func (c *Controller) Renderer() *spectrum.Renderer { return c.renderer }

// Lyrics returns the loaded cues.
func (c *Controller) Lyrics() []lyrics.Cue { return c.engine.Cues() }

// AnalysisState reports the analysis context state; suspended before the graph exists.
func (c *Controller) AnalysisState() analysis.State {
	if c.actx == nil {
		return analysis.StateSuspended
	}
	return c.actx.State()
}

// VisualizerAvailable is false once the analysis graph could not be built.
func (c *Controller) VisualizerAvailable() bool { return !c.visDisabled }

// LoadAudio 切换音源。上一次加载留下的一次性监听先移除，避免重复叠加
func (c *Controller) LoadAudio(url, title string) {
	if c.destroyed {
		return
	}
	if title == "" {
		title = DefaultTitle
	}
	c.detachLoadHandlers()
	c.renderer.Stop()

	c.title = title
	c.view.SetTitle(title, false)
	c.setState(StateLoading)
	c.emit(events.LoadStarted, "url", url, "title", title)

	c.el.SetSource(url)
	if c.el.ReadyState() >= media.HaveEnoughData {
		c.onLoadedData(media.Event{Type: media.EventLoadedData})
		return
	}
	c.loadHandlers = []media.ListenerID{
		c.el.Once(media.EventError, c.onLoadError),
		c.el.Once(media.EventLoadedData, c.onLoadedData),
	}
}

func (c *Controller) detachLoadHandlers() {
	for _, id := range c.loadHandlers {
		c.el.Off(id)
	}
	c.loadHandlers = nil
}

func (c *Controller) onLoadError(ev media.Event) {
	c.detachLoadHandlers()
	c.renderer.Stop()
	c.view.SetTitle(ErrorTitle, true)
	c.view.SetPlaying(false)
	c.setState(StateError)

	reason := "unknown error"
	if ev.Err != nil {
		reason = ev.Err.Error()
	}
	c.emit(events.LoadFailed, "url", c.el.Source(), "error", reason)
}

func (c *Controller) onLoadedData(media.Event) {
	c.detachLoadHandlers()
	c.ensureGraph()
	c.view.SetProgress(c.el.CurrentTime(), c.el.Duration())
	c.emit(events.LoadReady, "url", c.el.Source(), "duration", c.el.Duration())

	// 加载期间已经请求了播放
	if !c.el.Paused() {
		c.setState(StatePlaying)
		if err := c.resumeAnalysis(context.Background()); err != nil {
			logger.Warn().Err(err).Str("widget", c.id).Msg("Failed to resume analysis")
		}
		c.startVisualization()
		return
	}
	c.setState(StateReady)
	if c.showVisualizer && !c.visDisabled {
		c.renderer.Placeholder(PlaceholderReady)
	}
}

// ensureGraph 第一次有数据时构建分析图；同一元素的 source 节点只会创建一次
func (c *Controller) ensureGraph() {
	if c.analyser != nil || c.visDisabled {
		return
	}

	actx := analysis.NewContext()
	an, err := actx.NewAnalyser(c.cfg.FFTSize, c.cfg.Smoothing)
	if err != nil {
		actx.Close()
		c.disableVisualizer(err)
		return
	}
	src, err := c.registry.SourceFor(c.el, c.cfg.FFTSize)
	if err != nil {
		actx.Close()
		c.disableVisualizer(err)
		return
	}

	src.Disconnect()
	src.Connect(an)
	c.actx, c.analyser, c.source = actx, an, src
	c.renderer.SetSource(an)
	logger.Debug().Str("widget", c.id).Str("element", c.el.ID()).Msg("Analysis graph ready")
}

func (c *Controller) disableVisualizer(err error) {
	c.visDisabled = true
	c.renderer.Stop()
	c.emit(events.VisualizerDisabled, "error", err.Error())
}

// Play 请求播放；分析上下文挂起时先恢复，再开始可视化
func (c *Controller) Play(ctx context.Context) error {
	if c.destroyed {
		return ErrDestroyed
	}
	if c.el.Source() == "" {
		c.emit(events.PlaybackError, "error", media.ErrNoSource.Error(), "warning", true)
		return media.ErrNoSource
	}
	if c.state == StateError {
		return ErrNotReady
	}
	if err := c.resumeAnalysis(ctx); err != nil {
		return err
	}
	if err := c.el.Play(ctx); err != nil {
		c.view.SetPlaying(false)
		c.emit(events.PlaybackError, "error", err.Error())
		return fmt.Errorf("failed to start playback: %w", err)
	}
	return nil
}

func (c *Controller) resumeAnalysis(ctx context.Context) error {
	if c.actx == nil || c.actx.State() != analysis.StateSuspended {
		return nil
	}
	if err := c.actx.Resume(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		c.disableVisualizer(err)
	}
	return nil
}

// Pause stops playback and the visualization loop.
func (c *Controller) Pause() {
	if c.destroyed {
		return
	}
	c.el.Pause()
	c.renderer.Stop()
}

// TogglePlay is the play button.
func (c *Controller) TogglePlay(ctx context.Context) error {
	if c.state == StatePlaying {
		c.Pause()
		return nil
	}
	return c.Play(ctx)
}

// SetVolume clamps v to [0,1] and updates the element and every volume surface.
func (c *Controller) SetVolume(v float64) {
	if math.IsNaN(v) {
		return
	}
	v = clamp(v, 0, 1)
	c.volume = v
	c.el.SetVolume(v)
	for _, s := range c.volumes {
		s.SetVolume(v)
	}
}

// AddVolumeSurface registers s and brings it to the current volume.
// The returned function removes it.
func (c *Controller) AddVolumeSurface(s VolumeSurface) (remove func()) {
	c.volumes = append(c.volumes, s)
	s.SetVolume(c.volume)
	return func() {
		for i, v := range c.volumes {
			if v == s {
				c.volumes = append(c.volumes[:i], c.volumes[i+1:]...)
				return
			}
		}
	}
}

// Seek 进度条位置 [0,100] 映射到播放时间；时长未知时拒绝
func (c *Controller) Seek(fraction float64) error {
	d := c.el.Duration()
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 || math.IsNaN(fraction) {
		return ErrNotReady
	}
	c.el.SetCurrentTime(clamp(fraction, 0, 100) / 100 * d)
	return nil
}

// SetPlaybackRate clamps r to [MinPlaybackRate, MaxPlaybackRate].
func (c *Controller) SetPlaybackRate(r float64) {
	if math.IsNaN(r) {
		return
	}
	c.el.SetPlaybackRate(clamp(r, MinPlaybackRate, MaxPlaybackRate))
}

type downloader interface {
	Download(dst string) error
}

// Download copies the current audio file to dst.
func (c *Controller) Download(dst string) error {
	d, ok := c.el.(downloader)
	if !ok {
		return media.ErrUnsupported
	}
	return d.Download(dst)
}

// ToggleVisualizer flips the visualizer, or sets it when on is non-nil.
// Lyrics are always hidden.
func (c *Controller) ToggleVisualizer(on *bool) {
	show := !c.showVisualizer
	if on != nil {
		show = *on
	}
	c.showVisualizer = show
	c.showLyrics = false
	c.view.SetMode(c.showVisualizer, c.showLyrics)

	if !show {
		c.renderer.Stop()
		return
	}
	if c.state == StatePlaying {
		c.startVisualization()
		return
	}
	if c.el.ReadyState() >= media.HaveEnoughData {
		c.renderer.Placeholder(PlaceholderReady)
	} else {
		c.renderer.Placeholder(PlaceholderWaiting)
	}
}

// ToggleLyrics flips the lyric pane, or sets it when on is non-nil.
// The visualizer is always hidden.
func (c *Controller) ToggleLyrics(on *bool) {
	show := !c.showLyrics
	if on != nil {
		show = *on
	}
	c.showLyrics = show
	c.showVisualizer = false
	c.renderer.Stop()
	c.view.SetMode(c.showVisualizer, c.showLyrics)

	if show && c.lyricOut != nil && len(c.engine.Cues()) > 0 {
		c.lyricOut.Render(c.engine.Cues())
		if a := c.engine.Active(); a >= 0 {
			c.lyricOut.Highlight(a, c.engine.Cues())
		}
	}
}

// LoadLyrics 解析并替换歌词；当前行重置为 -1，下一次时间更新时重新计算
func (c *Controller) LoadLyrics(input any) []lyrics.Cue {
	if c.conv != nil {
		input = lyrics.ConvertText(c.conv, lyrics.Normalize(input))
	}
	res := lyrics.ParseDetailed(input)
	if res.Fallback {
		c.emit(events.ParseFallbackUsed, "format", res.Format.String(), "cues", len(res.Cues))
	}
	c.engine.Reset(res.Cues)
	c.emit(events.LyricsLoaded, "format", res.Format.String(), "cues", len(res.Cues))
	return res.Cues
}

// Destroy 完整拆除：监听、播放、动画帧、分析上下文、缓存的 source 引用
func (c *Controller) Destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true

	c.detachLoadHandlers()
	for _, id := range c.listeners {
		c.el.Off(id)
	}
	c.listeners = nil

	c.el.Pause()
	c.el.SetSource("")
	c.renderer.Stop()

	if c.actx != nil {
		c.actx.Close()
	}
	c.registry.Release(c.el.ID(), c.analyser)
	c.analyser, c.source = nil, nil
	c.renderer.SetSource(nil)

	c.setState(StateIdle)
	logger.Debug().Str("widget", c.id).Msg("Player destroyed")
}

func (c *Controller) onLoadedMetadata(media.Event) {
	c.view.SetProgress(c.el.CurrentTime(), c.el.Duration())
}

func (c *Controller) onTimeUpdate(ev media.Event) {
	c.view.SetProgress(ev.Time, c.el.Duration())
	prev := c.engine.Active()
	if idx := c.engine.OnTimeUpdate(ev.Time); idx != prev {
		c.emit(events.HighlightChanged, "index", idx, "text", c.engine.Line(idx), "time", ev.Time)
	}
}

func (c *Controller) onPlay(media.Event) {
	c.view.SetPlaying(true)
	if c.state == StateLoading {
		// 数据就绪后再切到 Playing
		return
	}
	c.setState(StatePlaying)
	if err := c.resumeAnalysis(context.Background()); err != nil {
		logger.Warn().Err(err).Str("widget", c.id).Msg("Failed to resume analysis")
	}
	c.startVisualization()
}

func (c *Controller) onPause(media.Event) {
	c.view.SetPlaying(false)
	c.renderer.Stop()
	if c.state == StatePlaying {
		c.setState(StatePaused)
	}
}

func (c *Controller) onEnded(media.Event) {
	c.view.SetPlaying(false)
	c.renderer.Stop()
	c.setState(StateEnded)
}

func (c *Controller) startVisualization() {
	if !c.showVisualizer || c.analyser == nil || c.visDisabled {
		return
	}
	c.renderer.Start(func() bool {
		return c.showVisualizer && c.state == StatePlaying
	})
}

func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	from := c.state
	c.state = s
	c.emit(events.PlaybackStateChanged, "from", from.String(), "to", s.String())
}

func (c *Controller) emit(t events.Type, kv ...any) {
	c.bus.Emit(c.id, t, kv...)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
