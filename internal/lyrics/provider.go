package lyrics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"lyricwidget/pkg/cache"
)

var logger = log.With().Str("component", "lyrics-provider").Logger()

// ErrNotFound is returned when no source has lyrics for a track.
var ErrNotFound = errors.New("no lyrics found")

// Source 歌词来源
type Source string

const (
	SourceSidecar Source = "sidecar"
	SourceCache   Source = "cache"
	SourceOnline  Source = "online"
)

// Track 查找歌词所需的曲目信息
type Track struct {
	AudioPath string
	Title     string
	Artist    string
	Album     string
	Duration  float64 // 秒，未知为 0
}

// Fetcher looks lyrics up by song information; *music.Manager implements it.
type Fetcher interface {
	GetLyricsByInfo(ctx context.Context, title, artist string, duration float64) (string, error)
}

// Provider 在宿主没有提供歌词时为曲目查找歌词
// 顺序：同名歌词文件 -> 缓存 -> 在线
type Provider struct {
	cache   cache.Cache
	fetcher Fetcher
	timeout time.Duration
}

// NewProvider creates a provider; either argument may be nil.
func NewProvider(c cache.Cache, f Fetcher) *Provider {
	return &Provider{
		cache:   c,
		fetcher: f,
		timeout: 20 * time.Second,
	}
}

// Resolve returns lyric text for the track and where it came from.
func (p *Provider) Resolve(ctx context.Context, t Track) (string, Source, error) {
	if text, ok := p.sidecar(t.AudioPath); ok {
		return text, SourceSidecar, nil
	}

	if t.Title == "" {
		return "", "", fmt.Errorf("%w: track has no title", ErrNotFound)
	}

	key := CacheKey(t)
	if p.cache != nil {
		text, ok, err := p.cache.Get(ctx, key)
		if err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Lyrics cache lookup failed")
		} else if ok {
			logger.Info().Str("key", key).Msg("Cache HIT")
			return text, SourceCache, nil
		}
	}

	if p.fetcher == nil {
		return "", "", ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	logger.Info().Str("title", t.Title).Str("artist", t.Artist).Float64("duration", t.Duration).Msg("Cache MISS, fetching lyrics online")
	text, err := p.fetcher.GetLyricsByInfo(ctx, t.Title, t.Artist, t.Duration)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", "", ErrNotFound
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, text); err != nil {
			logger.Error().Err(err).Str("key", key).Msg("Failed to store lyrics in cache")
		}
	}
	return text, SourceOnline, nil
}

// sidecar 查找与音频同名的 .lrc/.srt/.txt
func (p *Provider) sidecar(audioPath string) (string, bool) {
	if audioPath == "" {
		return "", false
	}
	base := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	for _, ext := range Extensions {
		candidate := base + ext
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		text, err := LoadFile(candidate)
		if err != nil {
			logger.Warn().Err(err).Str("path", candidate).Msg("Failed to read sidecar lyrics")
			continue
		}
		logger.Info().Str("path", candidate).Msg("Using sidecar lyrics")
		return text, true
	}
	return "", false
}

// CacheKey 生成缓存键：标题-歌手.lrc
func CacheKey(t Track) string {
	name := t.Title
	if t.Artist != "" {
		name += "-" + t.Artist
	}
	return unsafeChars.ReplaceAllString(name, "-") + ".lrc"
}
