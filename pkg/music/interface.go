package music

import (
	"context"
)

// LyricsAPI 歌词提供商通用接口
type LyricsAPI interface {
	// SearchSong 搜索歌曲，返回歌曲ID
	SearchSong(ctx context.Context, title, artist string) (string, error)

	// GetLyrics 根据歌曲ID获取歌词
	GetLyrics(ctx context.Context, songID string) (string, error)

	// GetProviderName 获取提供商名称
	GetProviderName() string
}

// InfoLookup is implemented by providers that can look lyrics up directly
// from song information, using the duration to pick between candidates.
type InfoLookup interface {
	GetLyricsByInfo(ctx context.Context, title, artist string, duration float64) (string, error)
}

// LyricsManager 组合接口：带回退的提供商集合
type LyricsManager interface {
	LyricsAPI
	InfoLookup
}
