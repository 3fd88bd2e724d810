package player

// State 播放控制器状态
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StatePlaying
	StatePaused
	StateEnded
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// PlaybackState is a snapshot of what the widget shows.
// ShowVisualizer and ShowLyrics are never both true.
type PlaybackState struct {
	IsPlaying      bool
	CurrentTime    float64
	Duration       float64
	Volume         float64
	ShowVisualizer bool
	ShowLyrics     bool
	ActiveCueIndex int
}
