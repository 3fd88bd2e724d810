package media

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// Output mixes streamers onto an audio device.
type Output interface {
	SampleRate() beep.SampleRate
	Play(s beep.Streamer)
	Lock()
	Unlock()
}

// SpeakerOutput is the system speaker. The speaker is process-wide, so
// every element shares one.
type SpeakerOutput struct {
	rate beep.SampleRate
}

var (
	speakerOnce sync.Once
	speakerOut  *SpeakerOutput
	speakerErr  error
)

// Speaker initializes the speaker at rate on first use.
func Speaker(rate beep.SampleRate) (*SpeakerOutput, error) {
	speakerOnce.Do(func() {
		if err := speaker.Init(rate, rate.N(time.Second/30)); err != nil {
			speakerErr = fmt.Errorf("failed to initialize speaker: %w", err)
			return
		}
		speakerOut = &SpeakerOutput{rate: rate}
	})
	return speakerOut, speakerErr
}

func (s *SpeakerOutput) SampleRate() beep.SampleRate { return s.rate }
func (s *SpeakerOutput) Play(st beep.Streamer)        { speaker.Play(st) }
func (s *SpeakerOutput) Lock()                        { speaker.Lock() }
func (s *SpeakerOutput) Unlock()                      { speaker.Unlock() }

// ManualOutput is an in-memory output pulled by hand, for tests and
// headless rendering.
type ManualOutput struct {
	mu    sync.Mutex
	rate  beep.SampleRate
	mixer beep.Mixer
}

func NewManualOutput(rate beep.SampleRate) *ManualOutput {
	return &ManualOutput{rate: rate}
}

func (m *ManualOutput) SampleRate() beep.SampleRate { return m.rate }

func (m *ManualOutput) Play(s beep.Streamer) {
	m.mu.Lock()
	m.mixer.Add(s)
	m.mu.Unlock()
}

func (m *ManualOutput) Lock()   { m.mu.Lock() }
func (m *ManualOutput) Unlock() { m.mu.Unlock() }

// Pull streams n samples through everything playing and returns them.
func (m *ManualOutput) Pull(n int) [][2]float64 {
	buf := make([][2]float64, n)
	m.mu.Lock()
	m.mixer.Stream(buf)
	m.mu.Unlock()
	return buf
}

// Active returns the number of streamers still playing.
func (m *ManualOutput) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mixer.Len()
}
