package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"lyricwidget/internal/lyrics"
)

type titleMsg struct {
	title  string
	failed bool
}

type progressMsg struct{ current, duration float64 }

type playingMsg bool

type modeMsg struct{ visualizer, lyrics bool }

type volumeMsg float64

type lyricsMsg []lyrics.Cue

type highlightMsg int

// FrameMsg carries a rasterized spectrum frame.
type FrameMsg Frame

// Bridge forwards widget updates from the event loop into the bubbletea
// program. It implements player.View, player.VolumeSurface and
// lyricsync.Highlighter.
type Bridge struct {
	send func(tea.Msg)
}

// NewBridge sends through send, usually (*tea.Program).Send.
func NewBridge(send func(tea.Msg)) *Bridge {
	return &Bridge{send: send}
}

func (b *Bridge) SetTitle(title string, failed bool) {
	b.send(titleMsg{title: title, failed: failed})
}

func (b *Bridge) SetProgress(current, duration float64) {
	b.send(progressMsg{current: current, duration: duration})
}

func (b *Bridge) SetPlaying(playing bool) { b.send(playingMsg(playing)) }

func (b *Bridge) SetMode(visualizer, lyrics bool) {
	b.send(modeMsg{visualizer: visualizer, lyrics: lyrics})
}

func (b *Bridge) SetVolume(v float64) { b.send(volumeMsg(v)) }

func (b *Bridge) Render(cues []lyrics.Cue) {
	b.send(lyricsMsg(append([]lyrics.Cue(nil), cues...)))
}

func (b *Bridge) Highlight(active int, _ []lyrics.Cue) {
	b.send(highlightMsg(active))
}

// Frame forwards a spectrum frame; pass it to CellSurface.OnFlush.
func (b *Bridge) Frame(f Frame) { b.send(FrameMsg(f)) }
