package media

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/google/uuid"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
	"github.com/rs/zerolog/log"

	"lyricwidget/internal/analysis"
	"lyricwidget/internal/eventloop"
	"lyricwidget/pkg/fileutil"
)

var logger = log.With().Str("component", "media").Logger()

// DefaultTimeUpdateInterval matches the cadence browsers use.
const DefaultTimeUpdateInterval = 250 * time.Millisecond

// Resolver maps a source URL to a local file path.
type Resolver interface {
	Resolve(url string) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(string) (string, error)

func (f ResolverFunc) Resolve(url string) (string, error) { return f(url) }

// BeepElement 基于 beep 的音频元素
// 管线：decoder -> tap -> ctrl -> resampler -> volume -> output
type BeepElement struct {
	Emitter

	id       string
	loop     eventloop.Dispatcher
	out      Output
	resolver Resolver
	interval time.Duration

	// 以下字段只在事件循环上访问
	src     string
	path    string
	gen     int
	ready   ReadyState
	paused  bool
	pending bool // Play 在加载完成前调用
	queued  bool // 管线已交给 output
	volume  float64
	rate    float64
	meta    Metadata
	tap     *analysis.Tap
	ticker  eventloop.Timer
	closed  bool

	// 以下字段在 output 锁内访问
	stream    beep.StreamSeekCloser
	file      io.Closer
	format    beep.Format
	ctrl      *beep.Ctrl
	resampler *beep.Resampler
	vol       *effects.Volume
}

// BeepOption configures a BeepElement.
type BeepOption func(*BeepElement)

// WithTimeUpdateInterval sets how often timeupdate fires while playing.
func WithTimeUpdateInterval(d time.Duration) BeepOption {
	return func(e *BeepElement) {
		if d > 0 {
			e.interval = d
		}
	}
}

// NewBeepElement creates an element playing to out. resolver may be nil,
// in which case sources are treated as file paths.
func NewBeepElement(loop eventloop.Dispatcher, out Output, resolver Resolver, opts ...BeepOption) *BeepElement {
	if resolver == nil {
		resolver = ResolverFunc(func(s string) (string, error) { return s, nil })
	}
	e := &BeepElement{
		id:       uuid.NewString(),
		loop:     loop,
		out:      out,
		resolver: resolver,
		interval: DefaultTimeUpdateInterval,
		paused:   true,
		volume:   1,
		rate:     1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *BeepElement) ID() string { return e.id }

func (e *BeepElement) Tap() *analysis.Tap { return e.tap }

// AttachTap inserts t between the decoder and the controls.
func (e *BeepElement) AttachTap(t *analysis.Tap) error {
	if e.tap != nil {
		return analysis.ErrDuplicateSource
	}
	e.tap = t
	e.out.Lock()
	if e.queued && e.ctrl != nil && e.stream != nil {
		t.Bind(e.stream)
		e.ctrl.Streamer = t
	}
	e.out.Unlock()
	return nil
}

func (e *BeepElement) Source() string { return e.src }

// Metadata returns the tags of the loaded file.
func (e *BeepElement) Metadata() Metadata { return e.meta }

// Path returns the resolved local file of the current source.
func (e *BeepElement) Path() string { return e.path }

// SetSource 切换音源；旧音源立即停止，加载在后台进行
func (e *BeepElement) SetSource(url string) {
	if e.closed {
		return
	}
	e.gen++
	e.teardown()
	e.src = url
	e.path = ""
	e.ready = HaveNothing
	e.paused = true
	e.pending = false
	e.meta = Metadata{}
	if url == "" {
		return
	}

	gen := e.gen
	go func() {
		res := e.load(url)
		if !e.loop.Post(func() { e.onLoaded(gen, res) }) {
			res.close()
		}
	}()
}

type loadResult struct {
	path   string
	stream beep.StreamSeekCloser
	file   io.Closer
	format beep.Format
	meta   Metadata
	err    error
}

func (r loadResult) close() {
	if r.stream != nil {
		r.stream.Close()
	}
	if r.file != nil {
		r.file.Close()
	}
}

func (e *BeepElement) load(url string) loadResult {
	path, err := e.resolver.Resolve(url)
	if err != nil {
		return loadResult{err: fmt.Errorf("failed to resolve %q: %w", url, err)}
	}

	f, err := os.Open(path)
	if err != nil {
		return loadResult{err: fmt.Errorf("failed to open audio: %w", err)}
	}

	meta := readMetadata(f)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return loadResult{err: fmt.Errorf("failed to rewind audio: %w", err)}
	}

	stream, format, err := decode(path, f)
	if err != nil {
		f.Close()
		return loadResult{err: err}
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return loadResult{path: path, stream: stream, file: f, format: format, meta: meta}
}

func decode(path string, f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
	var (
		s      beep.StreamSeekCloser
		format beep.Format
		err    error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		s, format, err = mp3.Decode(f)
	case ".wav":
		s, format, err = wav.Decode(f)
	case ".flac":
		s, format, err = flac.Decode(f)
	default:
		return nil, beep.Format{}, fmt.Errorf("%s: %w", filepath.Ext(path), ErrUnsupported)
	}
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return s, format, nil
}

func readMetadata(r io.ReadSeeker) Metadata {
	m, err := tag.ReadFrom(r)
	if err != nil {
		return Metadata{}
	}
	return Metadata{Title: m.Title(), Artist: m.Artist(), Album: m.Album()}
}

func (e *BeepElement) onLoaded(gen int, res loadResult) {
	if gen != e.gen || e.closed {
		res.close()
		return
	}
	if res.err != nil {
		logger.Warn().Err(res.err).Str("src", e.src).Msg("Failed to load audio")
		e.Emit(Event{Type: EventError, Err: res.err})
		return
	}

	e.path = res.path
	e.meta = res.meta

	e.out.Lock()
	e.stream = res.stream
	e.file = res.file
	e.format = res.format
	e.out.Unlock()

	e.ready = HaveMetadata
	e.Emit(Event{Type: EventLoadedMetadata})
	e.ready = HaveEnoughData
	e.Emit(Event{Type: EventLoadedData})

	if e.pending && gen == e.gen {
		e.pending = false
		e.resume()
	}
}

// ratio 解码采样率到输出采样率的换算，再乘以播放速度
func (e *BeepElement) ratio() float64 {
	return float64(e.format.SampleRate) / float64(e.out.SampleRate()) * e.rate
}

func applyVolume(v *effects.Volume, level float64) {
	v.Silent = level <= 0
	if !v.Silent {
		v.Volume = math.Log2(level)
	}
}

// Play starts or resumes playback. Before loading completes the request is
// remembered and honored once data is available.
func (e *BeepElement) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.closed {
		return ErrClosed
	}
	if e.src == "" {
		return ErrNoSource
	}
	if e.ready < HaveEnoughData {
		e.pending = true
		if e.paused {
			e.paused = false
			e.Emit(Event{Type: EventPlay, Time: 0})
		}
		return nil
	}
	if !e.paused {
		return nil
	}
	e.resume()
	return nil
}

// buildPipeline 每次交给 output 前重建；结束过的 resampler 不能复用
// 调用方持有 output 锁
func (e *BeepElement) buildPipeline() {
	if e.stream.Position() >= e.stream.Len() {
		e.stream.Seek(0)
	}
	var head beep.Streamer = e.stream
	if e.tap != nil {
		e.tap.Bind(e.stream)
		head = e.tap
	}
	e.ctrl = &beep.Ctrl{Streamer: head}
	e.resampler = beep.ResampleRatio(4, e.ratio(), e.ctrl)
	e.vol = &effects.Volume{Streamer: e.resampler, Base: 2}
	applyVolume(e.vol, e.volume)
}

func (e *BeepElement) resume() {
	e.out.Lock()
	if !e.queued {
		e.buildPipeline()
	}
	e.ctrl.Paused = false
	e.out.Unlock()

	if !e.queued {
		gen := e.gen
		e.queued = true
		e.out.Play(beep.Seq(e.vol, beep.Callback(func() {
			e.loop.Post(func() { e.onEnded(gen) })
		})))
	}

	wasPaused := e.paused
	e.paused = false
	if wasPaused {
		e.Emit(Event{Type: EventPlay, Time: e.CurrentTime()})
	}
	e.scheduleTimeUpdate()
}

func (e *BeepElement) Pause() {
	e.pending = false
	if e.paused {
		return
	}
	e.paused = true
	e.stopTicker()
	if e.ctrl != nil {
		e.out.Lock()
		e.ctrl.Paused = true
		e.out.Unlock()
	}
	e.Emit(Event{Type: EventPause, Time: e.CurrentTime()})
}

func (e *BeepElement) onEnded(gen int) {
	if gen != e.gen || e.closed {
		return
	}
	e.queued = false
	e.stopTicker()
	if e.ctrl != nil {
		e.out.Lock()
		e.ctrl.Paused = true
		e.out.Unlock()
	}
	now := e.CurrentTime()
	e.Emit(Event{Type: EventTimeUpdate, Time: now})
	if !e.paused {
		e.paused = true
		e.Emit(Event{Type: EventPause, Time: now})
	}
	e.Emit(Event{Type: EventEnded, Time: now})
}

func (e *BeepElement) Paused() bool { return e.paused }

func (e *BeepElement) CurrentTime() float64 {
	e.out.Lock()
	defer e.out.Unlock()
	if e.stream == nil {
		return 0
	}
	return e.format.SampleRate.D(e.stream.Position()).Seconds()
}

// SetCurrentTime seeks, clamped to [0, duration].
func (e *BeepElement) SetCurrentTime(t float64) {
	if e.ready < HaveMetadata || math.IsNaN(t) {
		return
	}
	t = math.Max(0, math.Min(t, e.Duration()))

	e.out.Lock()
	if e.stream == nil {
		e.out.Unlock()
		return
	}
	pos := e.format.SampleRate.N(time.Duration(t * float64(time.Second)))
	if pos >= e.stream.Len() {
		pos = e.stream.Len() - 1
	}
	if pos < 0 {
		pos = 0
	}
	err := e.stream.Seek(pos)
	e.out.Unlock()

	if err != nil {
		logger.Warn().Err(err).Float64("time", t).Msg("Seek failed")
		return
	}
	e.Emit(Event{Type: EventTimeUpdate, Time: e.CurrentTime()})
}

func (e *BeepElement) Duration() float64 {
	if e.ready < HaveMetadata {
		return math.NaN()
	}
	e.out.Lock()
	defer e.out.Unlock()
	if e.stream == nil {
		return math.NaN()
	}
	return e.format.SampleRate.D(e.stream.Len()).Seconds()
}

func (e *BeepElement) SetVolume(v float64) {
	e.volume = math.Max(0, math.Min(1, v))
	if e.vol != nil {
		e.out.Lock()
		applyVolume(e.vol, e.volume)
		e.out.Unlock()
	}
}

func (e *BeepElement) Volume() float64 { return e.volume }

func (e *BeepElement) SetPlaybackRate(r float64) {
	if r <= 0 || math.IsNaN(r) {
		return
	}
	e.rate = r
	if e.resampler != nil {
		e.out.Lock()
		e.resampler.SetRatio(e.ratio())
		e.out.Unlock()
	}
}

func (e *BeepElement) PlaybackRate() float64 { return e.rate }

func (e *BeepElement) ReadyState() ReadyState { return e.ready }

// Download copies the loaded file to dst.
func (e *BeepElement) Download(dst string) error {
	if e.path == "" {
		return ErrNoSource
	}
	return fileutil.CopyFile(e.path, dst)
}

func (e *BeepElement) scheduleTimeUpdate() {
	e.stopTicker()
	gen := e.gen
	e.ticker = e.loop.AfterFunc(e.interval, func() {
		if gen != e.gen || e.paused || e.closed {
			return
		}
		e.Emit(Event{Type: EventTimeUpdate, Time: e.CurrentTime()})
		e.scheduleTimeUpdate()
	})
}

func (e *BeepElement) stopTicker() {
	if e.ticker != nil {
		e.ticker.Stop()
		e.ticker = nil
	}
}

// teardown 停止并释放当前音源
func (e *BeepElement) teardown() {
	e.stopTicker()
	e.queued = false

	e.out.Lock()
	if e.ctrl != nil {
		e.ctrl.Streamer = nil
	}
	stream, file := e.stream, e.file
	e.stream, e.file, e.ctrl, e.resampler, e.vol = nil, nil, nil, nil, nil
	e.out.Unlock()

	if e.tap != nil {
		e.tap.Bind(nil)
	}
	if stream != nil {
		stream.Close()
	}
	if file != nil {
		file.Close()
	}
}

// Close stops playback and drops every listener.
func (e *BeepElement) Close() error {
	if e.closed {
		return nil
	}
	e.gen++
	e.teardown()
	e.closed = true
	e.paused = true
	e.RemoveAll()
	return nil
}
