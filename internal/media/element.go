// Package media plays one audio source and reports progress as events,
// in the shape of a browser media element.
package media

import (
	"context"
	"errors"

	"lyricwidget/internal/analysis"
)

var (
	ErrNoSource    = errors.New("no media source set")
	ErrUnsupported = errors.New("unsupported audio format")
	ErrClosed      = errors.New("media element closed")
)

// EventType 媒体事件类型
type EventType string

const (
	EventLoadedMetadata EventType = "loadedmetadata"
	EventLoadedData     EventType = "loadeddata"
	EventTimeUpdate     EventType = "timeupdate"
	EventPlay           EventType = "play"
	EventPause          EventType = "pause"
	EventEnded          EventType = "ended"
	EventError          EventType = "error"
)

// Event is delivered to listeners on the event loop.
type Event struct {
	Type EventType
	Time float64 // current time, seconds
	Err  error   // EventError only
}

// ReadyState 加载进度
type ReadyState int

const (
	HaveNothing ReadyState = iota
	HaveMetadata
	HaveEnoughData
)

// Element is a single playable audio source.
// All methods must be called from the event loop.
type Element interface {
	analysis.TapHost

	SetSource(url string)
	Source() string
	Play(ctx context.Context) error
	Pause()
	Paused() bool
	CurrentTime() float64
	SetCurrentTime(t float64)
	// Duration is NaN until metadata has loaded.
	Duration() float64
	SetVolume(v float64)
	Volume() float64
	SetPlaybackRate(r float64)
	PlaybackRate() float64
	ReadyState() ReadyState

	On(t EventType, fn func(Event)) ListenerID
	Once(t EventType, fn func(Event)) ListenerID
	Off(id ListenerID)

	Close() error
}

// Metadata 音频文件标签
type Metadata struct {
	Title  string
	Artist string
	Album  string
}
