package music

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

var logger = log.With().Str("component", "music-manager").Logger()

// ErrNoProviders is returned by a manager without providers.
var ErrNoProviders = errors.New("no lyrics providers available")

// Manager 歌词API管理器，按顺序回退
type Manager struct {
	providers []LyricsAPI
	primary   LyricsAPI
}

// NewManager 创建新的歌词API管理器
func NewManager(providers []LyricsAPI) *Manager {
	if len(providers) == 0 {
		logger.Warn().Msg("No lyrics providers configured")
		return &Manager{}
	}

	primary := providers[0]
	logger.Info().
		Int("provider_count", len(providers)).
		Str("primary_provider", primary.GetProviderName()).
		Msg("Lyrics API manager initialized")

	return &Manager{
		providers: providers,
		primary:   primary,
	}
}

// SearchSong 搜索歌曲，支持多提供商回退
func (m *Manager) SearchSong(ctx context.Context, title, artist string) (string, error) {
	return firstSuccess(m, "search", func(p LyricsAPI) (string, error) {
		return p.SearchSong(ctx, title, artist)
	})
}

// GetLyrics 获取歌词，支持多提供商回退
func (m *Manager) GetLyrics(ctx context.Context, songID string) (string, error) {
	return firstSuccess(m, "lyrics", func(p LyricsAPI) (string, error) {
		return p.GetLyrics(ctx, songID)
	})
}

// GetLyricsByInfo 根据歌曲信息直接获取歌词（封装搜索+获取歌词）
func (m *Manager) GetLyricsByInfo(ctx context.Context, title, artist string, duration float64) (string, error) {
	text, err := firstSuccess(m, "lookup", func(p LyricsAPI) (string, error) {
		// 支持按时长挑选结果的提供商直接查询
		if l, ok := p.(InfoLookup); ok && duration > 0 {
			return l.GetLyricsByInfo(ctx, title, artist, duration)
		}

		songID, err := p.SearchSong(ctx, title, artist)
		if err != nil {
			return "", fmt.Errorf("search failed: %w", err)
		}
		return p.GetLyrics(ctx, songID)
	})
	if err != nil {
		return "", fmt.Errorf("'%s - %s': %w", title, artist, err)
	}
	return text, nil
}

func firstSuccess(m *Manager, op string, fn func(LyricsAPI) (string, error)) (string, error) {
	if len(m.providers) == 0 {
		return "", ErrNoProviders
	}

	var lastErr error
	for i, provider := range m.providers {
		logger.Info().
			Str("op", op).
			Str("provider", provider.GetProviderName()).
			Int("attempt", i+1).
			Int("total_providers", len(m.providers)).
			Msg("Trying provider")

		result, err := fn(provider)
		if err == nil && result != "" {
			logger.Info().Str("op", op).Str("provider", provider.GetProviderName()).Msg("Provider succeeded")
			return result, nil
		}
		if err == nil {
			err = fmt.Errorf("%s returned an empty result", provider.GetProviderName())
		}

		logger.Warn().Str("op", op).Str("provider", provider.GetProviderName()).Err(err).Msg("Provider failed")
		lastErr = err
	}

	return "", fmt.Errorf("all providers failed, last error: %w", lastErr)
}

// GetProviderName 获取管理器名称
func (m *Manager) GetProviderName() string {
	if m.primary != nil {
		return fmt.Sprintf("Manager[Primary: %s]", m.primary.GetProviderName())
	}
	return "Manager[No Providers]"
}

// GetProviderNames 获取所有提供商名称
func (m *Manager) GetProviderNames() []string {
	names := make([]string, len(m.providers))
	for i, provider := range m.providers {
		names[i] = provider.GetProviderName()
	}
	return names
}
