package music

import (
	"fmt"
	"strings"

	"lyricwidget/pkg/lrclib"
	"lyricwidget/pkg/netease"
)

// Provider 歌词提供商类型
type Provider string

const (
	// ProviderLRCLib LRCLib歌词库
	ProviderLRCLib Provider = "lrclib"
	// ProviderNetEase 网易云音乐
	ProviderNetEase Provider = "netease"
)

// Options 创建提供商时的可选参数
type Options struct {
	LRCLibURL          string
	NetEaseURL         string
	NetEaseTranslation bool
}

// CreateProvider 创建歌词提供商客户端
func CreateProvider(provider Provider, opts Options) (LyricsAPI, error) {
	switch provider {
	case ProviderLRCLib:
		var o []lrclib.Option
		if opts.LRCLibURL != "" {
			o = append(o, lrclib.WithBaseURL(opts.LRCLibURL))
		}
		return lrclib.NewClient(o...), nil
	case ProviderNetEase:
		return netease.NewClient(opts.NetEaseURL, opts.NetEaseTranslation), nil
	default:
		return nil, fmt.Errorf("unknown lyrics provider: %s", provider)
	}
}

// CreateManager 按名称顺序创建管理器，未知名称跳过
func CreateManager(names []string, opts Options) (*Manager, error) {
	var providers []LyricsAPI
	for _, name := range names {
		p, err := GetProviderByName(name)
		if err != nil {
			logger.Warn().Err(err).Msg("Skipping provider")
			continue
		}
		client, err := CreateProvider(p, opts)
		if err != nil {
			logger.Warn().Err(err).Str("provider", string(p)).Msg("Failed to create provider")
			continue
		}
		providers = append(providers, client)
	}

	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	return NewManager(providers), nil
}

// GetProviderByName 根据名称获取提供商
func GetProviderByName(name string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "lrclib":
		return ProviderLRCLib, nil
	case "netease", "网易云", "163":
		return ProviderNetEase, nil
	default:
		return "", fmt.Errorf("unknown provider name: %s", name)
	}
}
