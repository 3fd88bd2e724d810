package tui

import (
	"image/color"
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"lyricwidget/internal/lyrics"
	"lyricwidget/internal/player"
)

type fakeControls struct {
	toggles int
	volume  float64
	seek    float64
	rates   []float64
	vis     int
	lyr     int
}

func (f *fakeControls) TogglePlay()               { f.toggles++ }
func (f *fakeControls) ToggleVisualizer()         { f.vis++ }
func (f *fakeControls) ToggleLyrics()             { f.lyr++ }
func (f *fakeControls) SetVolume(v float64)       { f.volume = v }
func (f *fakeControls) Seek(p float64)            { f.seek = p }
func (f *fakeControls) SetPlaybackRate(r float64) { f.rates = append(f.rates, r) }

func TestWindow(t *testing.T) {
	cases := []struct {
		n, active, height int
		start, end        int
	}{
		{5, 2, 10, 0, 5},
		{20, -1, 5, 0, 5},
		{20, 10, 5, 8, 13},
		{20, 19, 5, 15, 20},
		{20, 1, 5, 0, 5},
		{0, 0, 5, 0, 0},
	}
	for _, c := range cases {
		s, e := Window(c.n, c.active, c.height)
		if s != c.start || e != c.end {
			t.Errorf("Window(%d,%d,%d) = %d,%d want %d,%d", c.n, c.active, c.height, s, e, c.start, c.end)
		}
	}
}

func TestCellSurfaceRasterizes(t *testing.T) {
	s := NewCellSurface(100, 80, 4, 2)
	var got Frame
	s.OnFlush(func(f Frame) { got = f })

	red := color.NRGBA{R: 255, A: 255}
	s.Clear(color.Black)
	s.Fill(0, 0, 20, 80, red)  // full column 0
	s.Fill(50, 60, 20, 20, red) // quarter column 2
	s.Flush()

	if len(got.Lines) != 2 {
		t.Fatalf("expected 2 rows, got %v", got.Lines)
	}
	top, bottom := []rune(got.Lines[0]), []rune(got.Lines[1])
	if top[0] != '█' || bottom[0] != '█' {
		t.Errorf("full bar not filled: %q", got.Lines)
	}
	if top[2] != ' ' || bottom[2] != '▄' {
		t.Errorf("quarter bar wrong: %q", got.Lines)
	}
	if top[1] != ' ' || bottom[1] != ' ' {
		t.Errorf("empty column drawn: %q", got.Lines)
	}
	if got.Colors[0] != "#ff0000" || got.Colors[1] != "" {
		t.Errorf("colors = %v", got.Colors)
	}

	s.Clear(color.Black)
	s.Text("Press play", color.White)
	s.Flush()
	if got.Text != "Press play" || strings.TrimSpace(got.Lines[1]) != "" {
		t.Errorf("placeholder frame = %+v", got)
	}
}

func TestModelFollowsBridge(t *testing.T) {
	var msgs []tea.Msg
	b := NewBridge(func(m tea.Msg) { msgs = append(msgs, m) })
	b.SetTitle("song.mp3", false)
	b.SetProgress(30, 120)
	b.SetPlaying(true)
	b.SetMode(false, true)
	b.SetVolume(0.5)
	cues := []lyrics.Cue{{Time: 0, Text: "first"}, {Time: 5, Text: "second"}}
	b.Render(cues)
	b.Highlight(1, cues)

	var m tea.Model = NewModel(&fakeControls{}, "full")
	for _, msg := range msgs {
		m, _ = m.Update(msg)
	}
	model := m.(Model)
	if model.title != "song.mp3" || !model.playing || !model.showLyr || model.active != 1 || model.volume != 0.5 {
		t.Errorf("unexpected model %+v", model)
	}
	view := model.View()
	for _, want := range []string{"song.mp3", "00:30 / 02:00", "first", "second", "50%"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	m, _ = m.Update(lyricsMsg(cues))
	if m.(Model).active != -1 {
		t.Error("new lyrics should reset the active line")
	}
}

func TestModelKeys(t *testing.T) {
	c := &fakeControls{}
	var m tea.Model = NewModel(c, "compact")
	m, _ = m.Update(progressMsg{current: 50, duration: 100})
	m, _ = m.Update(volumeMsg(0.5))

	press := func(s string) {
		var k tea.KeyMsg
		switch s {
		case "right":
			k = tea.KeyMsg{Type: tea.KeyRight}
		case "space":
			k = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		default:
			k = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
		}
		m, _ = m.Update(k)
	}

	press("space")
	press("v")
	press("l")
	press("+")
	press("right")
	press("]")
	press("[")
	press("[")

	if c.toggles != 1 || c.vis != 1 || c.lyr != 1 {
		t.Errorf("toggles: %+v", c)
	}
	if math.Abs(c.volume-0.55) > 1e-9 {
		t.Errorf("volume = %v", c.volume)
	}
	if c.seek != 55 {
		t.Errorf("seek = %v", c.seek)
	}
	want := []float64{1.25, 1, 0.75}
	if len(c.rates) != len(want) {
		t.Fatalf("rates = %v", c.rates)
	}
	for i := range want {
		if c.rates[i] != want[i] {
			t.Errorf("rates = %v, want %v", c.rates, want)
		}
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Error("q should quit")
	}
}

func TestSpectrumPanePlaceholder(t *testing.T) {
	m := NewModel(&fakeControls{}, "full")
	m.showVis = true
	if !strings.Contains(m.View(), player.PlaceholderWaiting) {
		t.Error("expected waiting placeholder before the first frame")
	}
	m.frame = Frame{Lines: []string{"█ "}, Colors: []string{"#ff0000", ""}}
	if !strings.Contains(m.View(), "█") {
		t.Error("expected bars in view")
	}
}
