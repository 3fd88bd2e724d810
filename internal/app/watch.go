package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"lyricwidget/internal/lyrics"
)

const watchDebounce = 150 * time.Millisecond

// watchLyrics calls reload with the new file contents every time path
// changes, until ctx is done. The directory is watched so editors that
// save by rename are still seen.
func watchLyrics(ctx context.Context, path string, reload func(text string)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to initialize watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Info().Str("path", abs).Msg("Watching lyrics file")

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// 编辑器保存时往往连续触发多次
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			text, err := lyrics.LoadFile(abs)
			if err != nil {
				logger.Warn().Err(err).Str("path", abs).Msg("Failed to reload lyrics")
				continue
			}
			logger.Info().Str("path", abs).Msg("Lyrics file changed, reloading")
			reload(text)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("Watcher error")
		}
	}
}
