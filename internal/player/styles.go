package player

import (
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"

	"lyricwidget/internal/lyricsync"
)

// Styles 进程级共享样式表
type Styles struct {
	Title       lipgloss.Style
	ErrorTitle  lipgloss.Style
	Time        lipgloss.Style
	Placeholder lipgloss.Style
	NoLyrics    lipgloss.Style
	Tab         lipgloss.Style
	ActiveTab   lipgloss.Style

	LyricPast   lipgloss.Style
	LyricActive lipgloss.Style
	LyricFuture lipgloss.Style
}

// Lyric returns the style of a line in tier t.
func (s *Styles) Lyric(t lyricsync.Tier) lipgloss.Style {
	switch t {
	case lyricsync.TierActive:
		return s.LyricActive
	case lyricsync.TierPast:
		return s.LyricPast
	default:
		return s.LyricFuture
	}
}

var (
	stylesOnce    sync.Once
	styles        *Styles
	registrations atomic.Int32
)

// EnsureStyles 只在第一次调用时构建样式，之后返回同一份
func EnsureStyles() *Styles {
	stylesOnce.Do(func() {
		registrations.Add(1)
		styles = &Styles{
			Title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")),
			ErrorTitle:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff6b6b")),
			Time:        lipgloss.NewStyle().Foreground(lipgloss.Color("#aaaaaa")),
			Placeholder: lipgloss.NewStyle().Faint(true).Foreground(lipgloss.Color("#ffffff")),
			NoLyrics:    lipgloss.NewStyle().Faint(true).Padding(1, 2),
			Tab:         lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#888888")),
			ActiveTab:   lipgloss.NewStyle().Padding(0, 1).Bold(true).Underline(true),

			LyricPast:   lipgloss.NewStyle().Foreground(lipgloss.Color("#cccccc")).Faint(true),
			LyricActive: lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true).Background(lipgloss.Color("#2a2a2a")).Padding(0, 1),
			LyricFuture: lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")),
		}
	})
	return styles
}

// styleRegistrations is the number of times the style sheet was built.
func styleRegistrations() int {
	return int(registrations.Load())
}
