package netease

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestClientRetry 测试重试机制
func TestClientRetry(t *testing.T) {
	requestCount := 0

	// 前两次请求失败，第三次成功
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		if requestCount <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"result":{"songs":[{"id":123,"name":"Test Song","artists":[{"name":"Test Artist"}]}]}}`))
	}))
	defer server.Close()

	client := &Client{
		httpClient:     &http.Client{Timeout: 1 * time.Second},
		maxRetries:     3,
		requestTimeout: 2 * time.Second,
	}

	req, err := http.NewRequest("GET", server.URL, nil)
	if err != nil {
		t.Fatalf("创建请求失败: %v", err)
	}

	resp, err := client.doRequestWithRetry(req)
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	defer resp.Body.Close()

	if requestCount != 3 {
		t.Errorf("预期请求次数为3，实际为%d", requestCount)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("预期状态码200，实际为%d", resp.StatusCode)
	}
}

// TestTimeout 测试超时机制
func TestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := &Client{
		httpClient:     &http.Client{Timeout: 1 * time.Second},
		maxRetries:     1,
		requestTimeout: 1 * time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", server.URL, nil)
	if err != nil {
		t.Fatalf("创建请求失败: %v", err)
	}

	if _, err := client.doRequestWithRetry(req); err == nil {
		t.Error("预期请求超时失败，但请求成功了")
	}
}

func TestSearchAndLyrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/search/get/web":
			w.Write([]byte(`{"result":{"songs":[
				{"id":1,"name":"Song","artists":[{"name":"Someone"}]},
				{"id":2,"name":"Song","artists":[{"name":"Feat"},{"name":"Artist"}]}
			]}}`))
		case "/api/song/lyric":
			if r.URL.Query().Get("id") != "2" {
				t.Errorf("unexpected id %q", r.URL.Query().Get("id"))
			}
			w.Write([]byte(`{"lrc":{"lyric":"[00:01.00]hello\n[00:02.00]world"},"tlyric":{"lyric":"[00:01.00]你好"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, true)
	id, err := client.SearchSong(context.Background(), "Song", "Artist")
	if err != nil {
		t.Fatal(err)
	}
	if id != "2" {
		t.Fatalf("expected artist match id 2, got %s", id)
	}

	text, err := client.GetLyrics(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	want := "[00:01.00]hello\n[00:01.00]你好\n[00:02.00]world"
	if text != want {
		t.Errorf("got %q, want %q", text, want)
	}
}

func TestFindBestMatchFallsBackToTitle(t *testing.T) {
	var resp SearchResponse
	resp.Result.Songs = append(resp.Result.Songs, struct {
		ID       int    `json:"id"`
		Name     string `json:"name"`
		Duration int    `json:"duration"`
		Artists  []struct {
			Name string `json:"name"`
		} `json:"artists"`
	}{ID: 7, Name: "My Song"})

	if got := findBestMatch(resp, "Nobody", "my song"); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
	if got := findBestMatch(resp, "", "unrelated"); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if !strings.Contains(combineLyrics("[00:01.00]a", ""), "a") {
		t.Error("combineLyrics dropped original line")
	}
}
