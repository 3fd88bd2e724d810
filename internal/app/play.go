package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gopxl/beep/v2"

	"lyricwidget/internal/eventloop"
	"lyricwidget/internal/events"
	"lyricwidget/internal/host"
	"lyricwidget/internal/lyrics"
	"lyricwidget/internal/lyricsync"
	"lyricwidget/internal/media"
	"lyricwidget/internal/player"
	"lyricwidget/internal/spectrum"
	"lyricwidget/internal/tui"
)

const (
	sampleRate      = beep.SampleRate(44100)
	teardownTimeout = 2 * time.Second
	lookupTimeout   = 30 * time.Second
)

// PlayOptions 一次播放会话。Source 和 Payload 二选一
type PlayOptions struct {
	Source     string // 本地路径、file:// 或宿主 view 地址
	Payload    []byte // 宿主 executed 消息（JSON）
	LyricsFile string
	Variant    string
	Autoplay   bool
	Visualizer bool
	Watch      bool // 歌词文件变化时重新加载
	TUI        bool
	Snapshot   string // 退出时把最后一帧频谱写成 PNG
}

// Executed builds the host message for opts along with the resolver that
// maps its view URL back to a local file. A local Source is served as the
// output directory.
func (a *App) Executed(opts PlayOptions) (host.Executed, host.Resolver, error) {
	resolver := host.Resolver{
		InputDir:  a.cfg.Host.InputDir,
		OutputDir: a.cfg.Host.OutputDir,
		TempDir:   a.cfg.Host.TempDir,
	}

	var msg host.Executed
	switch {
	case len(opts.Payload) > 0:
		m, err := host.DecodeExecuted(opts.Payload)
		if err != nil {
			return msg, resolver, err
		}
		msg = m
	case opts.Source != "":
		ref, ok, err := host.ParseViewURL(opts.Source)
		if err != nil {
			return msg, resolver, err
		}
		if !ok {
			path, err := resolver.Resolve(opts.Source)
			if err != nil {
				return msg, resolver, err
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				return msg, resolver, err
			}
			ref = host.FileRef{Filename: filepath.Base(abs), Type: "output"}
			resolver.OutputDir = filepath.Dir(abs)
		}
		msg.Audio = []host.FileRef{ref}
	default:
		return msg, resolver, errors.New("no audio source given")
	}

	if opts.LyricsFile != "" {
		text, err := lyrics.LoadFile(opts.LyricsFile)
		if err != nil {
			return msg, resolver, fmt.Errorf("failed to read lyrics: %w", err)
		}
		msg.Lyrics = text
	}
	return msg, resolver, nil
}

// Play runs one widget until ctx is done, the track ends or, with a TUI,
// the user quits.
func (a *App) Play(ctx context.Context, opts PlayOptions) error {
	msg, resolver, err := a.Executed(opts)
	if err != nil {
		return err
	}

	if err := a.startOutputs(); err != nil {
		return err
	}
	defer a.stopOutputs()

	out, err := media.Speaker(sampleRate)
	if err != nil {
		return err
	}

	loop := eventloop.New(a.cfg.App.FrameRate)
	el := media.NewBeepElement(loop, out, resolver,
		media.WithTimeUpdateInterval(a.cfg.Audio.TimeUpdateInterval))

	variant := player.VariantByName(opts.Variant)
	shell := variant.RenderShell()
	img := spectrum.NewImageSurface(shell.CanvasWidth, shell.CanvasHeight)
	surfaces := spectrum.Multi{img}
	highlighters := lyricsync.Highlighters{a.ipcServer}
	if a.notifier != nil {
		highlighters = append(highlighters, a.notifier)
	}

	var (
		prog     *tea.Program
		bridge   *tui.Bridge
		view     player.View
		controls = &loopControls{loop: loop}
	)
	if opts.TUI {
		prog = tea.NewProgram(tui.NewModel(controls, variant.Name()), tea.WithAltScreen(), tea.WithContext(ctx))
		bridge = tui.NewBridge(prog.Send)
		cells := tui.NewCellSurface(shell.CanvasWidth, shell.CanvasHeight, variant.BarCount(), cellRows(shell))
		cells.OnFlush(bridge.Frame)
		surfaces = append(surfaces, cells)
		highlighters = append(highlighters, bridge)
		view = bridge
	}

	w := player.NewWidget(player.Deps{
		Element:     el,
		Scheduler:   loop,
		Surface:     surfaces,
		Highlighter: highlighters,
		View:        view,
		Bus:         a.bus,
		Converter:   a.converter,
	}, player.Config{
		FFTSize:   a.cfg.Audio.FFTSize,
		Smoothing: a.cfg.Audio.Smoothing,
	}, player.Options{
		Autoplay:       opts.Autoplay,
		ShowVisualizer: opts.Visualizer,
		Variant:        variant,
	})
	controls.w = w

	finished := make(chan error, 1)
	var finishOnce sync.Once
	finish := func(err error) {
		finishOnce.Do(func() { finished <- err })
	}
	unsubscribe := a.bus.Subscribe(func(e events.Event) {
		if e.Type == events.LoadFailed && e.WidgetID == w.ID() {
			finish(fmt.Errorf("failed to load %s: %v", el.Source(), e.Fields["error"]))
		}
	})
	defer unsubscribe()

	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go loop.Run(loopCtx)

	node := host.NewMapNode("lyricwidget", map[string]any{
		"autoplay":        opts.Autoplay,
		"show_visualizer": opts.Visualizer,
	})
	loop.Post(func() {
		if err := w.Attach(node); err != nil {
			logger.Warn().Err(err).Msg("Failed to attach widget")
		}
		if bridge != nil {
			w.AddVolumeSurface(bridge)
		}
		el.On(media.EventEnded, func(media.Event) { finish(nil) })
		if !msg.HasLyrics() {
			el.Once(media.EventLoadedMetadata, func(media.Event) {
				a.fetchLyricsFor(ctx, loop, w, el, msg)
			})
		}
		w.OnExecuted(msg, a.cfg.Host.BaseURL)
	})

	if opts.Watch && opts.LyricsFile != "" {
		go func() {
			err := watchLyrics(ctx, opts.LyricsFile, func(text string) {
				loop.Post(func() { w.LoadLyrics(text) })
			})
			if err != nil {
				logger.Warn().Err(err).Str("path", opts.LyricsFile).Msg("Lyrics watch stopped")
			}
		}()
	}

	if prog != nil {
		_, err = prog.Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			err = nil
		}
	} else {
		select {
		case <-ctx.Done():
		case err = <-finished:
		}
	}

	teardown(loop, func() {
		if opts.Snapshot != "" {
			if err := img.SavePNG(opts.Snapshot); err != nil {
				logger.Error().Err(err).Str("path", opts.Snapshot).Msg("Failed to save snapshot")
			} else {
				logger.Info().Str("path", opts.Snapshot).Msg("Spectrum snapshot saved")
			}
		}
		w.Detach()
		el.Close()
	})
	return err
}

// fetchLyricsFor 元数据就绪后在后台查找歌词，结果回到事件循环上加载
func (a *App) fetchLyricsFor(ctx context.Context, loop eventloop.Dispatcher, w *player.Widget, el *media.BeepElement, msg host.Executed) {
	meta := el.Metadata()
	track := lyrics.Track{
		AudioPath: el.Path(),
		Title:     meta.Title,
		Artist:    meta.Artist,
		Album:     meta.Album,
		Duration:  el.Duration(),
	}
	if track.Title == "" && len(msg.Audio) > 0 {
		track.Title = trimExt(msg.Audio[0].Title())
	}
	source := el.Source()

	go func() {
		ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
		defer cancel()
		text, ok := a.lookupLyrics(ctx, track)
		if !ok {
			return
		}
		loop.Post(func() {
			// 曲目已经换了
			if el.Source() != source {
				return
			}
			w.LoadLyrics(text)
			on := true
			w.ToggleLyrics(&on)
		})
	}()
}

// teardown runs fn on the loop and waits for it, then stops the loop.
func teardown(loop *eventloop.Loop, fn func()) {
	done := make(chan struct{})
	if loop.Post(func() {
		defer close(done)
		fn()
	}) {
		select {
		case <-done:
		case <-time.After(teardownTimeout):
			logger.Warn().Msg("Widget teardown timed out")
		}
	}
	loop.Close()
}

func cellRows(s player.Shell) int {
	rows := s.CanvasHeight / 15
	if rows < 2 {
		rows = 2
	}
	return rows
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
