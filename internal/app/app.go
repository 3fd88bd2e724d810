package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lyricwidget/internal/config"
	"lyricwidget/internal/events"
	"lyricwidget/internal/ipc"
	"lyricwidget/internal/lyrics"
	"lyricwidget/internal/statusbar"
	"lyricwidget/pkg/cache"
	"lyricwidget/pkg/music"
	"lyricwidget/pkg/redis"
)

var logger = log.With().Str("component", "app").Logger()

const redisCacheTTL = 30 * 24 * time.Hour

// App 进程级的共享部件：配置、事件总线、歌词提供者、IPC 与状态栏输出
type App struct {
	cfg       *config.Config
	bus       *events.Bus
	ipcServer *ipc.Server
	notifier  *statusbar.Notifier
	provider  *lyrics.Provider
	converter lyrics.TextConverter

	closers []func() error
}

// SetupLogging configures the global zerolog logger.
func SetupLogging(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func New(cfg *config.Config) (*App, error) {
	SetupLogging(cfg.App.LogLevel)

	a := &App{
		cfg: cfg,
		bus: events.NewBus(),
		ipcServer: ipc.NewServer(cfg.App.SocketPath,
			ipc.WithStatusFile(cfg.IPC.StatusFile)),
	}
	a.bus.Subscribe(events.LogSubscriber(log.With().Str("component", "widget").Logger()))

	if cfg.StatusBar.Enabled {
		a.notifier = statusbar.NewNotifier(cfg.StatusBar.Process, syscall.Signal(cfg.StatusBar.Signal))
	}

	if cfg.Lyrics.Convert != "" {
		conv, err := lyrics.NewOpenCC(cfg.Lyrics.Convert)
		if err != nil {
			logger.Warn().Err(err).Msg("Lyrics conversion disabled")
		} else {
			a.converter = conv
		}
	}

	c, err := a.buildCache()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.provider = lyrics.NewProvider(c, a.buildFetcher())
	return a, nil
}

// buildCache 文件缓存总是启用；Redis 和 SQLite 按配置叠加在前面
func (a *App) buildCache() (cache.Cache, error) {
	if err := os.MkdirAll(a.cfg.App.CacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", a.cfg.App.CacheDir, err)
	}
	logger.Info().Str("cache_dir", a.cfg.App.CacheDir).Msg("Lyrics cache directory")

	var chain cache.Chain

	if a.cfg.Redis.Enabled {
		client, err := redis.NewClient(a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, continuing without it")
		} else {
			chain = append(chain, cache.NewRedis(client, "lyricwidget:", redisCacheTTL))
			a.closers = append(a.closers, client.Close)
		}
	}

	if a.cfg.Cache.SQLitePath != "" {
		db, err := cache.NewSQLite(a.cfg.Cache.SQLitePath)
		if err != nil {
			logger.Warn().Err(err).Str("path", a.cfg.Cache.SQLitePath).Msg("SQLite cache unavailable")
		} else {
			chain = append(chain, db)
			a.closers = append(a.closers, db.Close)
		}
	}

	files, err := cache.NewFile(filepath.Join(a.cfg.App.CacheDir, "lyrics"))
	if err != nil {
		return nil, err
	}
	chain = append(chain, files)
	return chain, nil
}

func (a *App) buildFetcher() lyrics.Fetcher {
	if !a.cfg.Lyrics.FetchOnline {
		return nil
	}
	m, err := music.CreateManager(a.cfg.Lyrics.Providers, music.Options{
		NetEaseURL: a.cfg.Lyrics.NetEaseURL,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Online lyrics disabled")
		return nil
	}
	logger.Info().Strs("providers", m.GetProviderNames()).Msg("Online lyrics enabled")
	return m
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Bus is the event bus every widget publishes on.
func (a *App) Bus() *events.Bus { return a.bus }

// Provider resolves lyrics for tracks that arrive without any.
func (a *App) Provider() *lyrics.Provider { return a.provider }

// startOutputs 启动 IPC 服务和状态栏通知；状态栏失败不致命
func (a *App) startOutputs() error {
	if err := a.ipcServer.Start(); err != nil {
		return fmt.Errorf("failed to start IPC server: %w", err)
	}
	if a.notifier != nil {
		if err := a.notifier.Start(); err != nil {
			logger.Warn().Err(err).Msg("Status bar notifications disabled")
			a.notifier = nil
		}
	}
	return nil
}

func (a *App) stopOutputs() {
	if a.notifier != nil {
		a.notifier.Stop()
	}
	a.ipcServer.Close()
}

// Close releases cache connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// lookupLyrics 宿主没给歌词时按曲目信息查找
func (a *App) lookupLyrics(ctx context.Context, t lyrics.Track) (string, bool) {
	text, src, err := a.provider.Resolve(ctx, t)
	if err != nil {
		if errors.Is(err, lyrics.ErrNotFound) {
			logger.Info().Str("title", t.Title).Msg("No lyrics for track")
		} else {
			logger.Error().Err(err).Str("title", t.Title).Msg("Failed to get lyrics")
		}
		return "", false
	}
	logger.Info().Str("title", t.Title).Str("source", string(src)).Msg("Lyrics resolved")
	return text, true
}
