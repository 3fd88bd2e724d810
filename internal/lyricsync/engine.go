// Package lyricsync keeps the active lyric line in step with playback time.
package lyricsync

import (
	"math"
	"sort"

	"lyricwidget/internal/lyrics"
)

// Tier is the visual weight of a line relative to the active one.
type Tier int

const (
	TierPast Tier = iota
	TierActive
	TierFuture
)

// TierOf 计算第 i 行相对当前行的层级
func TierOf(i, active int) Tier {
	switch {
	case i == active:
		return TierActive
	case i < active:
		return TierPast
	default:
		return TierFuture
	}
}

// Highlighter is the presentation side of the engine.
type Highlighter interface {
	// Render 歌词整体替换时调用，当前行为 -1
	Render(cues []lyrics.Cue)
	// Highlight 当前行变化时调用
	Highlight(active int, cues []lyrics.Cue)
}

// Highlighters fans every call out to each member.
type Highlighters []Highlighter

func (hs Highlighters) Render(cues []lyrics.Cue) {
	for _, h := range hs {
		h.Render(cues)
	}
}

func (hs Highlighters) Highlight(active int, cues []lyrics.Cue) {
	for _, h := range hs {
		h.Highlight(active, cues)
	}
}

// Engine 歌词同步引擎，不是并发安全的，只在事件循环上调用
type Engine struct {
	cues   []lyrics.Cue
	active int
	out    Highlighter
}

// New creates an engine with no lyrics. h may be nil.
func New(h Highlighter) *Engine {
	return &Engine{active: -1, out: h}
}

// Reset 替换歌词并把当前行重置为 -1
func (e *Engine) Reset(cues []lyrics.Cue) {
	e.cues = cues
	e.active = -1
	if e.out != nil {
		e.out.Render(cues)
	}
}

// OnTimeUpdate 重新计算当前行；每次都从头计算，后退 seek 也正确
func (e *Engine) OnTimeUpdate(t float64) int {
	idx := IndexAt(e.cues, t)
	if idx != e.active {
		e.active = idx
		if e.out != nil {
			e.out.Highlight(idx, e.cues)
		}
	}
	return idx
}

// IndexAt returns the index of the last cue with Time <= t, or -1.
// cues must be sorted by time.
func IndexAt(cues []lyrics.Cue, t float64) int {
	if math.IsNaN(t) {
		return -1
	}
	// 第一个 Time > t 的位置，前一个就是最后一个 <= t 的
	return sort.Search(len(cues), func(i int) bool { return cues[i].Time > t }) - 1
}

func (e *Engine) Active() int {
	return e.active
}

func (e *Engine) Cues() []lyrics.Cue {
	return e.cues
}

// Line 返回第 i 行文本，越界返回空串
func (e *Engine) Line(i int) string {
	if i < 0 || i >= len(e.cues) {
		return ""
	}
	return e.cues[i].Text
}
