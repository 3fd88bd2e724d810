package netease

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultBaseURL = "https://music.163.com"

var logger = log.With().Str("component", "netease").Logger()

// SearchResponse 网易云搜索API响应
type SearchResponse struct {
	Result struct {
		Songs []struct {
			ID       int    `json:"id"`
			Name     string `json:"name"`
			Duration int    `json:"duration"` // 毫秒
			Artists  []struct {
				Name string `json:"name"`
			} `json:"artists"`
		} `json:"songs"`
	} `json:"result"`
}

// LyricResponse 网易云歌词API响应
type LyricResponse struct {
	Lrc struct {
		Lyric string `json:"lyric"`
	} `json:"lrc"`
	Tlyric struct {
		Lyric string `json:"lyric"`
	} `json:"tlyric"`
}

// Client 网易云音乐客户端
type Client struct {
	httpClient     *http.Client
	baseURL        string
	cookie         string
	maxRetries     int
	requestTimeout time.Duration
	translation    bool
}

// NewClient 创建新的网易云音乐客户端
// translation 为 true 时在原文后附加翻译歌词
func NewClient(baseURL string, translation bool) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient:     &http.Client{Timeout: 5 * time.Second},
		baseURL:        strings.TrimRight(baseURL, "/"),
		cookie:         os.Getenv("NETEASE_COOKIE"),
		maxRetries:     3,
		requestTimeout: 5 * time.Second,
		translation:    translation,
	}
}

// GetProviderName 获取提供商名称
func (c *Client) GetProviderName() string {
	return "NetEase Cloud Music"
}

// SearchSong 搜索歌曲
func (c *Client) SearchSong(ctx context.Context, title, artist string) (string, error) {
	searchURL := fmt.Sprintf("%s/api/search/get/web?s=%s&type=1&limit=100", c.baseURL, url.QueryEscape(title))
	logger.Debug().Str("url", searchURL).Msg("Searching song")

	var searchResp SearchResponse
	if err := c.getJSON(ctx, searchURL, &searchResp); err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}

	if len(searchResp.Result.Songs) == 0 {
		return "", fmt.Errorf("no songs found for '%s'", title)
	}

	songID := findBestMatch(searchResp, artist, title)
	if songID == 0 {
		return "", fmt.Errorf("no matching song found for '%s' by '%s'", title, artist)
	}

	return strconv.Itoa(songID), nil
}

// GetLyrics 获取歌词
func (c *Client) GetLyrics(ctx context.Context, songID string) (string, error) {
	lyricURL := fmt.Sprintf("%s/api/song/lyric?os=pc&id=%s&lv=-1&kv=-1&tv=-1", c.baseURL, url.QueryEscape(songID))
	logger.Debug().Str("url", lyricURL).Msg("Fetching lyrics")

	var lyricResp LyricResponse
	if err := c.getJSON(ctx, lyricURL, &lyricResp); err != nil {
		return "", fmt.Errorf("lyric request failed: %w", err)
	}
	if strings.TrimSpace(lyricResp.Lrc.Lyric) == "" {
		return "", fmt.Errorf("song %s has no lyrics", songID)
	}

	if c.translation && lyricResp.Tlyric.Lyric != "" {
		return combineLyrics(lyricResp.Lrc.Lyric, lyricResp.Tlyric.Lyric), nil
	}
	return lyricResp.Lrc.Lyric, nil
}

func (c *Client) getJSON(ctx context.Context, u string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout*time.Duration(c.maxRetries+1))
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// doRequestWithRetry 对网络错误和非 200 响应进行重试
func (c *Client) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
			}
			logger.Info().Int("attempt", attempt+1).Int("max_retries", c.maxRetries).Msg("Retrying request")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}
		resp.Body.Close()
		lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries, lastErr)
}

// findBestMatch 找到最佳匹配的歌曲
func findBestMatch(resp SearchResponse, targetArtist, targetTitle string) int {
	for _, song := range resp.Result.Songs {
		if !containsIgnoreCase(song.Name, targetTitle) {
			continue
		}

		// artists 可能有多个，只要一个满足就算
		for _, artist := range song.Artists {
			if containsIgnoreCase(artist.Name, targetArtist) {
				logger.Info().Str("song", song.Name).Str("artist", artist.Name).Int("id", song.ID).Msg("Found matching song")
				return song.ID
			}
		}
	}

	// 没有完全匹配时，返回第一个匹配标题的
	first := resp.Result.Songs[0]
	if containsIgnoreCase(first.Name, targetTitle) {
		logger.Info().Str("song", first.Name).Int("id", first.ID).Msg("Using first title match")
		return first.ID
	}

	return 0
}

// combineLyrics 合并原文和翻译歌词，翻译行紧跟原文行
func combineLyrics(originalLyrics, translatedLyrics string) string {
	originalLines := timedLines(originalLyrics)
	translatedLines := timedLines(translatedLyrics)

	timestamps := make([]string, 0, len(originalLines))
	for t := range originalLines {
		timestamps = append(timestamps, t)
	}
	sort.Strings(timestamps)

	var b strings.Builder
	for _, t := range timestamps {
		fmt.Fprintf(&b, "[%s]%s\n", t, originalLines[t])
		if translated, ok := translatedLines[t]; ok {
			fmt.Fprintf(&b, "[%s]%s\n", t, translated)
		}
	}
	return strings.TrimSpace(b.String())
}

var timedLine = regexp.MustCompile(`\[(\d{2}:\d{2}\.\d{2,3})\](.*)`)

func timedLines(lyricText string) map[string]string {
	lines := make(map[string]string)
	for _, match := range timedLine.FindAllStringSubmatch(lyricText, -1) {
		if text := strings.TrimSpace(match[2]); text != "" {
			lines[match[1]] = text
		}
	}
	return lines
}

// containsIgnoreCase 忽略大小写和空格的双向包含检查
func containsIgnoreCase(s1, s2 string) bool {
	norm := func(s string) string { return strings.ReplaceAll(strings.ToLower(s), " ", "") }
	a, b := norm(s1), norm(s2)
	return strings.Contains(a, b) || strings.Contains(b, a)
}
