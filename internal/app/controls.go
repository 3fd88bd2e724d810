package app

import (
	"context"

	"lyricwidget/internal/eventloop"
	"lyricwidget/internal/player"
)

// loopControls hops key presses from the terminal goroutine onto the loop.
type loopControls struct {
	loop eventloop.Dispatcher
	w    *player.Widget
}

func (c *loopControls) TogglePlay() {
	c.loop.Post(func() {
		if err := c.w.TogglePlay(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("Play failed")
		}
	})
}

func (c *loopControls) ToggleVisualizer() {
	c.loop.Post(func() { c.w.ToggleVisualizer(nil) })
}

func (c *loopControls) ToggleLyrics() {
	c.loop.Post(func() { c.w.ToggleLyrics(nil) })
}

func (c *loopControls) SetVolume(v float64) {
	c.loop.Post(func() { c.w.SetVolume(v) })
}

func (c *loopControls) Seek(percent float64) {
	c.loop.Post(func() {
		if err := c.w.Seek(percent); err != nil {
			logger.Debug().Err(err).Msg("Seek ignored")
		}
	})
}

func (c *loopControls) SetPlaybackRate(r float64) {
	c.loop.Post(func() { c.w.SetPlaybackRate(r) })
}
