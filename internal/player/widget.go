package player

import (
	"context"
	"errors"
	"time"

	"lyricwidget/internal/eventloop"
	"lyricwidget/internal/host"
	"lyricwidget/internal/media"
)

const (
	// LayoutDelay 挂载后延迟布局，宿主可能还没准备好
	LayoutDelay   = 100 * time.Millisecond
	AutoplayDelay = 100 * time.Millisecond
	LyricsDelay   = 200 * time.Millisecond
)

var ErrNilNode = errors.New("no host node to attach to")

// Options 节点上的选项
type Options struct {
	Autoplay       bool
	ShowVisualizer bool
	Variant        Variant
}

func DefaultOptions() Options {
	return Options{Autoplay: true, ShowVisualizer: true, Variant: Full{}}
}

// OptionsFromNode overlays the node's autoplay, show_visualizer and
// variant options on def.
func OptionsFromNode(n host.Node, def Options) Options {
	opts := def
	opts.Autoplay = host.BoolOption(n, "autoplay", def.Autoplay)
	opts.ShowVisualizer = host.BoolOption(n, "show_visualizer", def.ShowVisualizer)
	if n != nil {
		if v, ok := n.Option("variant"); ok {
			if name, ok := v.(string); ok {
				opts.Variant = VariantByName(name)
			}
		}
	}
	return opts
}

// Widget is a Controller with a presentation variant, mountable on a host node.
type Widget struct {
	*Controller

	variant Variant
	sched   eventloop.Scheduler
	opts    Options
	node    host.Node
	mounted bool

	layout eventloop.Timer
	// 上一次执行留下的延迟动作
	pending []eventloop.Timer
}

// NewWidget builds a widget. opts.Variant overrides deps.Variant.
func NewWidget(deps Deps, cfg Config, opts Options) *Widget {
	EnsureStyles()
	if opts.Variant != nil {
		deps.Variant = opts.Variant
	}
	if deps.Variant == nil {
		deps.Variant = Full{}
	}
	opts.Variant = deps.Variant
	return &Widget{
		Controller: New(deps, cfg),
		variant:    deps.Variant,
		sched:      deps.Scheduler,
		opts:       opts,
	}
}

func (w *Widget) Variant() Variant { return w.variant }

func (w *Widget) Options() Options { return w.opts }

// Mounted reports whether the host accepted the view.
func (w *Widget) Mounted() bool { return w.mounted }

// ComputeSize answers the host's sizing query.
func (w *Widget) ComputeSize(width int) (int, int) {
	return width, w.variant.PreferredHeight(width)
}

// Attach mounts the widget on n. A failed mount is retried once after
// LayoutDelay; the first placeholder frame is drawn at the same time.
func (w *Widget) Attach(n host.Node) error {
	if n == nil {
		return ErrNilNode
	}
	if w.node != nil && w.mounted {
		w.node.Unmount(w)
		w.mounted = false
	}
	w.node = n
	opts := OptionsFromNode(n, w.opts)
	opts.Variant = w.variant
	w.opts = opts

	_, h := w.ComputeSize(0)
	if err := n.Mount(w, h); err != nil {
		logger.Debug().Err(err).Str("node", n.ID()).Msg("Mount deferred")
	} else {
		w.mounted = true
	}

	if w.layout != nil {
		w.layout.Stop()
	}
	w.layout = w.after(LayoutDelay, func() {
		if w.node != n {
			return
		}
		if !w.mounted {
			if err := n.Mount(w, h); err != nil {
				logger.Warn().Err(err).Str("node", n.ID()).Msg("Failed to mount widget")
				return
			}
			w.mounted = true
		}
		if w.el.ReadyState() == media.HaveNothing && w.state == StateIdle {
			w.renderer.Placeholder(PlaceholderWaiting)
		}
	})
	return nil
}

// Detach unmounts the widget and tears down the controller.
func (w *Widget) Detach() {
	if w.layout != nil {
		w.layout.Stop()
		w.layout = nil
	}
	w.stopPending()
	if w.node != nil && w.mounted {
		w.node.Unmount(w)
	}
	w.node = nil
	w.mounted = false
	w.Destroy()
}

// OnExecuted 节点执行完成：加载第一个音频，有歌词时切到歌词页，按选项自动播放
func (w *Widget) OnExecuted(msg host.Executed, baseURL string) {
	if len(msg.Audio) == 0 || msg.Audio[0].Filename == "" {
		return
	}
	w.stopPending()
	ref := msg.Audio[0]
	w.LoadAudio(host.ViewURL(baseURL, ref), ref.Title())

	hasLyrics := msg.HasLyrics()
	if hasLyrics {
		w.LoadLyrics(msg.Lyrics)
		w.pending = append(w.pending, w.after(LyricsDelay, func() {
			on := true
			w.ToggleLyrics(&on)
		}))
	}

	if w.opts.Autoplay {
		w.pending = append(w.pending, w.after(AutoplayDelay, func() {
			if err := w.Play(context.Background()); err != nil {
				logger.Warn().Err(err).Str("widget", w.ID()).Msg("Autoplay failed")
			}
		}))
	}

	// 只有没有歌词时才默认显示可视化
	if w.opts.ShowVisualizer && !hasLyrics {
		on := true
		w.ToggleVisualizer(&on)
	}
}

func (w *Widget) after(d time.Duration, fn func()) eventloop.Timer {
	return w.sched.AfterFunc(d, func() {
		if w.destroyed {
			return
		}
		fn()
	})
}

func (w *Widget) stopPending() {
	for _, t := range w.pending {
		t.Stop()
	}
	w.pending = w.pending[:0]
}
