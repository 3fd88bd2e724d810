package lyricsync

import (
	"math"
	"testing"

	"lyricwidget/internal/lyrics"
)

type spyHighlighter struct {
	renders    int
	highlights []int
}

func (s *spyHighlighter) Render(cues []lyrics.Cue) { s.renders++ }

func (s *spyHighlighter) Highlight(active int, cues []lyrics.Cue) {
	s.highlights = append(s.highlights, active)
}

func cuesAt(times ...float64) []lyrics.Cue {
	cues := make([]lyrics.Cue, len(times))
	for i, t := range times {
		cues[i] = lyrics.Cue{Time: t, Text: "line"}
	}
	return cues
}

func TestOnTimeUpdate(t *testing.T) {
	spy := &spyHighlighter{}
	e := New(spy)
	e.Reset(cuesAt(0, 5, 10))

	steps := []struct {
		t    float64
		want int
	}{
		{4.9, 0},
		{5.0, 1},
		{2.0, 0}, // 后退 seek
		{2.5, 0},
		{100, 2},
		{-1, -1},
		{math.NaN(), -1},
	}
	for _, s := range steps {
		if got := e.OnTimeUpdate(s.t); got != s.want {
			t.Errorf("OnTimeUpdate(%v) = %d, want %d", s.t, got, s.want)
		}
	}

	// 只在变化时通知
	want := []int{0, 1, 0, 2, -1}
	if len(spy.highlights) != len(want) {
		t.Fatalf("highlights %v, want %v", spy.highlights, want)
	}
	for i := range want {
		if spy.highlights[i] != want[i] {
			t.Errorf("highlights %v, want %v", spy.highlights, want)
			break
		}
	}
}

func TestOnTimeUpdateDuplicateTimes(t *testing.T) {
	e := New(nil)
	e.Reset(cuesAt(0, 5, 5, 9))
	if got := e.OnTimeUpdate(5); got != 2 {
		t.Errorf("expected later cue at equal time, got %d", got)
	}
}

func TestResetClearsActive(t *testing.T) {
	spy := &spyHighlighter{}
	e := New(spy)
	e.Reset(cuesAt(0, 5, 10))
	e.OnTimeUpdate(6)
	if e.Active() != 1 {
		t.Fatalf("expected 1, got %d", e.Active())
	}

	// 新旧歌词时间相同也要重置
	e.Reset(cuesAt(0, 5, 10))
	if e.Active() != -1 {
		t.Errorf("expected -1 after reset, got %d", e.Active())
	}
	if spy.renders != 2 {
		t.Errorf("expected 2 renders, got %d", spy.renders)
	}
	if got := e.OnTimeUpdate(6); got != 1 {
		t.Errorf("expected 1 after reset, got %d", got)
	}
	if spy.highlights[len(spy.highlights)-1] != 1 {
		t.Error("expected highlight after reset even for the same index")
	}
}

func TestEmptyCues(t *testing.T) {
	e := New(nil)
	if got := e.OnTimeUpdate(3); got != -1 {
		t.Errorf("expected -1, got %d", got)
	}
	if e.Line(0) != "" {
		t.Error("expected empty line")
	}
}

func TestTierOf(t *testing.T) {
	if TierOf(0, 1) != TierPast || TierOf(1, 1) != TierActive || TierOf(2, 1) != TierFuture {
		t.Error("unexpected tiers")
	}
	if TierOf(0, -1) != TierFuture {
		t.Error("all lines are future before the first cue")
	}
}

func TestHighlightersFanOut(t *testing.T) {
	a, b := &spyHighlighter{}, &spyHighlighter{}
	e := New(Highlighters{a, b})
	e.Reset(cuesAt(0))
	e.OnTimeUpdate(1)
	if a.renders != 1 || b.renders != 1 || len(a.highlights) != 1 || len(b.highlights) != 1 {
		t.Error("expected both highlighters notified")
	}
}
