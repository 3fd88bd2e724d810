// Package tui is a terminal front end for one widget: title and progress,
// the lyric pane and the spectrum pane.
package tui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lyricwidget/internal/lyrics"
	"lyricwidget/internal/lyricsync"
	"lyricwidget/internal/player"
	"lyricwidget/internal/timecodec"
)

// Controls are the widget actions bound to keys. Implementations must hop
// onto the widget's event loop.
type Controls interface {
	TogglePlay()
	ToggleVisualizer()
	ToggleLyrics()
	SetVolume(v float64)
	Seek(fraction float64)
	SetPlaybackRate(r float64)
}

const (
	volumeStep = 0.05
	seekStep   = 5.0 // percent
)

// Model 终端界面状态，全部由 Bridge 发来的消息驱动
type Model struct {
	controls Controls
	styles   *player.Styles
	variant  string

	title    string
	failed   bool
	current  float64
	duration float64
	playing  bool
	showVis  bool
	showLyr  bool
	volume   float64
	rate     int // index into player.PlaybackRates

	cues   []lyrics.Cue
	active int
	frame  Frame

	width, height int
}

func NewModel(c Controls, variant string) Model {
	return Model{
		controls: c,
		styles:   player.EnsureStyles(),
		variant:  variant,
		title:    player.DefaultTitle,
		volume:   1,
		rate:     2,
		active:   -1,
		width:    80,
		height:   24,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		return m.handleKey(msg)
	case titleMsg:
		m.title, m.failed = msg.title, msg.failed
	case progressMsg:
		m.current, m.duration = msg.current, msg.duration
	case playingMsg:
		m.playing = bool(msg)
	case modeMsg:
		m.showVis, m.showLyr = msg.visualizer, msg.lyrics
	case volumeMsg:
		m.volume = float64(msg)
	case lyricsMsg:
		m.cues = msg
		m.active = -1
	case highlightMsg:
		m.active = int(msg)
	case FrameMsg:
		m.frame = Frame(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case " ", "space", "p":
		m.controls.TogglePlay()
	case "v":
		m.controls.ToggleVisualizer()
	case "l":
		m.controls.ToggleLyrics()
	case "+", "=", "up":
		m.controls.SetVolume(math.Min(1, m.volume+volumeStep))
	case "-", "down":
		m.controls.SetVolume(math.Max(0, m.volume-volumeStep))
	case "right":
		m.controls.Seek(m.percent() + seekStep)
	case "left":
		m.controls.Seek(math.Max(0, m.percent()-seekStep))
	case "]":
		if m.rate < len(player.PlaybackRates)-1 {
			m.rate++
			m.controls.SetPlaybackRate(player.PlaybackRates[m.rate])
		}
	case "[":
		if m.rate > 0 {
			m.rate--
			m.controls.SetPlaybackRate(player.PlaybackRates[m.rate])
		}
	}
	return m, nil
}

func (m Model) percent() float64 {
	if m.duration <= 0 || math.IsNaN(m.duration) {
		return 0
	}
	return m.current / m.duration * 100
}

func (m Model) View() string {
	var sections []string

	title := m.styles.Title.Render(m.title)
	if m.failed {
		title = m.styles.ErrorTitle.Render(m.title)
	}
	state := "▶"
	if m.playing {
		state = "⏸"
	}
	sections = append(sections, fmt.Sprintf("%s %s", state, title))

	clock := fmt.Sprintf("%s / %s", timecodec.FormatSeconds(m.current), timecodec.FormatSeconds(m.duration))
	sections = append(sections, m.styles.Time.Render(clock)+"  "+m.progressBar(m.width-len(clock)-12)+
		m.styles.Time.Render(fmt.Sprintf(" %3d%%", int(math.Round(m.volume*100)))))

	if m.variant == "full" {
		sections = append(sections, m.tabs())
	}

	paneHeight := m.height - len(sections) - 2
	if paneHeight < 1 {
		paneHeight = 1
	}
	switch {
	case m.showLyr:
		sections = append(sections, m.lyricPane(paneHeight))
	case m.showVis:
		sections = append(sections, m.spectrumPane())
	}

	sections = append(sections, m.styles.Time.Render("space play · v visualizer · l lyrics · ←/→ seek · +/- volume · [/] speed · q quit"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) progressBar(width int) string {
	if width < 10 {
		width = 10
	}
	filled := int(m.percent() / 100 * float64(width))
	if filled > width {
		filled = width
	}
	return strings.Repeat("━", filled) + m.styles.Time.Render(strings.Repeat("─", width-filled))
}

func (m Model) tabs() string {
	vis, lyr := m.styles.Tab, m.styles.Tab
	if m.showVis {
		vis = m.styles.ActiveTab
	}
	if m.showLyr {
		lyr = m.styles.ActiveTab
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, vis.Render("Visualizer"), lyr.Render("Lyrics"))
}

func (m Model) lyricPane(height int) string {
	if len(m.cues) == 0 {
		return m.styles.NoLyrics.Render("No lyrics")
	}
	start, end := Window(len(m.cues), m.active, height)
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		text := m.cues[i].Text
		if text == "" {
			text = "♪"
		}
		lines = append(lines, m.styles.Lyric(lyricsync.TierOf(i, m.active)).Render(text))
	}
	return lipgloss.NewStyle().Width(m.width).Align(lipgloss.Center).Render(strings.Join(lines, "\n"))
}

func (m Model) spectrumPane() string {
	if m.frame.Text != "" || len(m.frame.Lines) == 0 {
		text := m.frame.Text
		if text == "" {
			text = player.PlaceholderWaiting
		}
		return m.styles.Placeholder.Render(text)
	}
	rows := make([]string, len(m.frame.Lines))
	for r, line := range m.frame.Lines {
		var b strings.Builder
		for col, ch := range []rune(line) {
			if col < len(m.frame.Colors) && m.frame.Colors[col] != "" {
				b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(m.frame.Colors[col])).Render(string(ch)))
			} else {
				b.WriteRune(ch)
			}
		}
		rows[r] = b.String()
	}
	return strings.Join(rows, "\n")
}

// Window returns the [start, end) slice of n lines that fits height and
// keeps active as close to the middle as possible.
func Window(n, active, height int) (int, int) {
	if height <= 0 || n <= 0 {
		return 0, 0
	}
	if n <= height {
		return 0, n
	}
	if active < 0 {
		active = 0
	}
	start := active - height/2
	if start < 0 {
		start = 0
	}
	if start > n-height {
		start = n - height
	}
	return start, start + height
}
