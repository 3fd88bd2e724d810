package lrclib

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultBaseURL = "https://lrclib.net/api"

var logger = log.With().Str("component", "lrclib").Logger()

// Client LRCLib客户端
type Client struct {
	httpClient     *http.Client
	baseURL        string
	userAgent      string
	requestTimeout time.Duration
	maxRetries     int
	retryBackoff   time.Duration
}

// Record LRCLib API 的一条结果
type Record struct {
	ID           int    `json:"id"`
	TrackName    string `json:"trackName"`
	ArtistName   string `json:"artistName"`
	AlbumName    string `json:"albumName"`
	Duration     int    `json:"duration"`
	Instrumental bool   `json:"instrumental"`
	PlainLyrics  string `json:"plainLyrics"`
	SyncedLyrics string `json:"syncedLyrics"`
}

// Option configures a Client.
type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = n
		c.retryBackoff = backoff
	}
}

// NewClient 创建新的LRCLib客户端
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:     &http.Client{Timeout: 5 * time.Second},
		baseURL:        DefaultBaseURL,
		userAgent:      "lyricwidget/1.0",
		requestTimeout: 5 * time.Second,
		maxRetries:     3,
		retryBackoff:   500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetProviderName 返回提供商名称
func (c *Client) GetProviderName() string {
	return "LRCLib"
}

// SearchSong LRCLib 不需要单独搜索，直接把查询参数编码为 ID
func (c *Client) SearchSong(ctx context.Context, title, artist string) (string, error) {
	return title + "|" + artist, nil
}

// GetLyrics 根据 SearchSong 返回的 ID 获取歌词
func (c *Client) GetLyrics(ctx context.Context, songID string) (string, error) {
	title, artist, ok := strings.Cut(songID, "|")
	if !ok {
		return "", fmt.Errorf("invalid song ID format: %s", songID)
	}
	return c.GetLyricsByInfo(ctx, title, artist, 0)
}

// GetLyricsByInfo 按标题/歌手搜索，按时长挑选最接近的结果；优先同步歌词
func (c *Client) GetLyricsByInfo(ctx context.Context, title, artist string, duration float64) (string, error) {
	records, err := c.search(ctx, title, artist)
	if err != nil {
		return "", err
	}
	logger.Info().Int("results", len(records)).Str("title", title).Str("artist", artist).Msg("Search finished")
	if len(records) == 0 {
		return "", fmt.Errorf("no lyrics found for '%s - %s'", title, artist)
	}

	best := BestMatch(records, title, artist, int(duration))
	switch {
	case best.SyncedLyrics != "":
		return best.SyncedLyrics, nil
	case best.PlainLyrics != "":
		return best.PlainLyrics, nil
	default:
		return "", fmt.Errorf("selected result has no lyrics for '%s - %s'", title, artist)
	}
}

func (c *Client) search(ctx context.Context, title, artist string) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout*time.Duration(c.maxRetries+1))
	defer cancel()

	params := url.Values{}
	params.Set("track_name", title)
	if artist != "" {
		params.Set("artist_name", artist)
	}
	searchURL := c.baseURL + "/search?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			logger.Info().Int("attempt", attempt).Int("max_retries", c.maxRetries).Msg("Retrying request")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.retryBackoff):
			}
		}

		records, err := c.do(ctx, searchURL)
		if err == nil {
			return records, nil
		}
		logger.Warn().Err(err).Int("attempt", attempt+1).Msg("Request failed")
		lastErr = err
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *Client) do(ctx context.Context, u string) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var records []Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return records, nil
}

// BestMatch 挑选最佳结果：标题+歌手匹配 > 仅标题匹配 > 全部；
// 有目标时长时取时长最接近的，误差 3 秒内直接返回
func BestMatch(records []Record, title, artist string, duration int) *Record {
	var exact, titleOnly []*Record
	for i := range records {
		r := &records[i]
		if !containsFold(r.TrackName, title) {
			continue
		}
		if containsFold(r.ArtistName, artist) {
			exact = append(exact, r)
		} else {
			titleOnly = append(titleOnly, r)
		}
	}

	pool := exact
	if len(pool) == 0 {
		pool = titleOnly
	}
	if len(pool) == 0 {
		for i := range records {
			pool = append(pool, &records[i])
		}
	}

	if duration <= 0 {
		return pool[0]
	}

	const maxDurationDiff = 3
	best := pool[0]
	bestDiff := abs(best.Duration - duration)
	for _, r := range pool {
		diff := abs(r.Duration - duration)
		if diff <= maxDurationDiff {
			return r
		}
		if diff < bestDiff {
			best, bestDiff = r, diff
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
