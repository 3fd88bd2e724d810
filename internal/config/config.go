package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSocketPath         = "/tmp/lyricwidget.sock"
	DefaultFrameRate          = 60
	DefaultBaseURL            = "http://127.0.0.1:8188"
	DefaultFFTSize            = 256
	DefaultSmoothing          = 0.8
	DefaultTimeUpdateInterval = 250 * time.Millisecond
	DefaultWidth              = 500

	// EnvPrefix 环境变量覆盖前缀，如 LYRICWIDGET_SOCKET_PATH
	EnvPrefix = "LYRICWIDGET_"
)

var logger = log.With().Str("component", "config").Logger()

func getDefaultCacheDir() string {
	// 优先使用 XDG_CACHE_HOME 环境变量
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, "lyricwidget")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "lyricwidget_cache"
	}

	return filepath.Join(homeDir, ".cache", "lyricwidget")
}

// TomlConfig TOML配置文件结构
// 布尔值用指针区分“未设置”和 false
type TomlConfig struct {
	App struct {
		SocketPath string `toml:"socket_path"`
		LogLevel   string `toml:"log_level"`
		CacheDir   string `toml:"cache_dir"`
		FrameRate  int    `toml:"frame_rate"`
	} `toml:"app"`

	Widget struct {
		Variant        string `toml:"variant"`
		Autoplay       *bool  `toml:"autoplay"`
		ShowVisualizer *bool  `toml:"show_visualizer"`
		Width          int    `toml:"width"`
	} `toml:"widget"`

	Audio struct {
		FFTSize            int     `toml:"fft_size"`
		Smoothing          float64 `toml:"smoothing"`
		TimeUpdateInterval string  `toml:"timeupdate_interval"`
	} `toml:"audio"`

	Host struct {
		BaseURL   string `toml:"base_url"`
		InputDir  string `toml:"input_dir"`
		OutputDir string `toml:"output_dir"`
		TempDir   string `toml:"temp_dir"`
	} `toml:"host"`

	Lyrics struct {
		FetchOnline *bool    `toml:"fetch_online"`
		Providers   []string `toml:"providers"`
		Convert     string   `toml:"convert"`
		NetEaseURL  string   `toml:"netease_url"`
	} `toml:"lyrics"`

	Redis struct {
		Enabled  bool   `toml:"enabled"`
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
	} `toml:"redis"`

	Cache struct {
		SQLitePath string `toml:"sqlite_path"`
	} `toml:"cache"`

	StatusBar struct {
		Enabled bool   `toml:"enabled"`
		Process string `toml:"process"`
		Signal  int    `toml:"signal"`
	} `toml:"statusbar"`

	IPC struct {
		StatusFile string `toml:"status_file"`
	} `toml:"ipc"`
}

// AppConfig 应用配置
type AppConfig struct {
	SocketPath string
	LogLevel   string
	CacheDir   string
	FrameRate  int
}

// WidgetConfig 控件默认选项，宿主节点上的选项优先
type WidgetConfig struct {
	Variant        string
	Autoplay       bool
	ShowVisualizer bool
	Width          int
}

// AudioConfig 分析器与元素参数
type AudioConfig struct {
	FFTSize            int
	Smoothing          float64
	TimeUpdateInterval time.Duration
}

// HostConfig 宿主 view 地址以及它映射到的本地目录
type HostConfig struct {
	BaseURL   string
	InputDir  string
	OutputDir string
	TempDir   string
}

// LyricsConfig 在线歌词查找
type LyricsConfig struct {
	FetchOnline bool
	Providers   []string
	Convert     string // OpenCC 配置名，如 t2s，空表示不转换
	NetEaseURL  string
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type CacheConfig struct {
	SQLitePath string
}

// StatusBarConfig i3blocks/waybar 之类的状态栏刷新
type StatusBarConfig struct {
	Enabled bool
	Process string
	Signal  int
}

type IPCConfig struct {
	StatusFile string
}

// Config 主配置结构
type Config struct {
	App       AppConfig
	Widget    WidgetConfig
	Audio     AudioConfig
	Host      HostConfig
	Lyrics    LyricsConfig
	Redis     RedisConfig
	Cache     CacheConfig
	StatusBar StatusBarConfig
	IPC       IPCConfig
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		App: AppConfig{
			SocketPath: DefaultSocketPath,
			LogLevel:   "info",
			CacheDir:   getDefaultCacheDir(),
			FrameRate:  DefaultFrameRate,
		},
		Widget: WidgetConfig{
			Variant:        "full",
			Autoplay:       true,
			ShowVisualizer: true,
			Width:          DefaultWidth,
		},
		Audio: AudioConfig{
			FFTSize:            DefaultFFTSize,
			Smoothing:          DefaultSmoothing,
			TimeUpdateInterval: DefaultTimeUpdateInterval,
		},
		Host: HostConfig{
			BaseURL: DefaultBaseURL,
		},
		Lyrics: LyricsConfig{
			FetchOnline: true,
			Providers:   []string{"lrclib", "netease"},
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		StatusBar: StatusBarConfig{
			Process: "i3blocks",
			Signal:  55,
		},
	}
}

// GetConfigPath 获取配置文件路径
func GetConfigPath() string {
	// 优先使用 XDG_CONFIG_HOME 环境变量
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "lyricwidget", "config.toml")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		logger.Warn().Err(err).Msg("Cannot get user home directory")
		return "config.toml"
	}

	return filepath.Join(homeDir, ".config", "lyricwidget", "config.toml")
}

// loadTomlConfig 加载TOML配置文件，文件不存在时返回空配置
func loadTomlConfig(path string) (*TomlConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info().Str("path", path).Msg("Config file not found, using defaults")
		return &TomlConfig{}, nil
	}

	var tc TomlConfig
	if _, err := toml.DecodeFile(path, &tc); err != nil {
		return nil, err
	}

	logger.Info().Str("path", path).Msg("Loaded config")
	return &tc, nil
}

// Load reads the default config path. A broken file is logged and ignored.
func Load() *Config {
	cfg, err := LoadFrom(GetConfigPath())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load config file, using default configuration")
		cfg = Default()
		applyEnv(cfg)
	}
	return cfg
}

// LoadFrom builds the configuration from defaults, the TOML file at path,
// a .env file in the working directory and LYRICWIDGET_* variables, in
// that order.
func LoadFrom(path string) (*Config, error) {
	tc, err := loadTomlConfig(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	apply(cfg, tc)

	// .env 不存在不是错误
	_ = godotenv.Load()
	applyEnv(cfg)
	return cfg, nil
}

func apply(cfg *Config, tc *TomlConfig) {
	// App
	if tc.App.SocketPath != "" {
		cfg.App.SocketPath = tc.App.SocketPath
	}
	if tc.App.LogLevel != "" {
		cfg.App.LogLevel = tc.App.LogLevel
	}
	if tc.App.CacheDir != "" {
		cfg.App.CacheDir = tc.App.CacheDir
	}
	if tc.App.FrameRate > 0 {
		cfg.App.FrameRate = tc.App.FrameRate
	}

	// Widget
	if tc.Widget.Variant != "" {
		cfg.Widget.Variant = tc.Widget.Variant
	}
	if tc.Widget.Autoplay != nil {
		cfg.Widget.Autoplay = *tc.Widget.Autoplay
	}
	if tc.Widget.ShowVisualizer != nil {
		cfg.Widget.ShowVisualizer = *tc.Widget.ShowVisualizer
	}
	if tc.Widget.Width > 0 {
		cfg.Widget.Width = tc.Widget.Width
	}

	// Audio
	if tc.Audio.FFTSize > 0 {
		cfg.Audio.FFTSize = tc.Audio.FFTSize
	}
	if tc.Audio.Smoothing > 0 {
		cfg.Audio.Smoothing = tc.Audio.Smoothing
	}
	cfg.Audio.TimeUpdateInterval = parseDurationOrDefault(tc.Audio.TimeUpdateInterval, cfg.Audio.TimeUpdateInterval)

	// Host
	if tc.Host.BaseURL != "" {
		cfg.Host.BaseURL = tc.Host.BaseURL
	}
	if tc.Host.InputDir != "" {
		cfg.Host.InputDir = tc.Host.InputDir
	}
	if tc.Host.OutputDir != "" {
		cfg.Host.OutputDir = tc.Host.OutputDir
	}
	if tc.Host.TempDir != "" {
		cfg.Host.TempDir = tc.Host.TempDir
	}

	// Lyrics
	if tc.Lyrics.FetchOnline != nil {
		cfg.Lyrics.FetchOnline = *tc.Lyrics.FetchOnline
	}
	if len(tc.Lyrics.Providers) > 0 {
		cfg.Lyrics.Providers = tc.Lyrics.Providers
	}
	if tc.Lyrics.Convert != "" {
		cfg.Lyrics.Convert = tc.Lyrics.Convert
	}
	if tc.Lyrics.NetEaseURL != "" {
		cfg.Lyrics.NetEaseURL = tc.Lyrics.NetEaseURL
	}

	// Redis
	cfg.Redis.Enabled = tc.Redis.Enabled
	if tc.Redis.Addr != "" {
		cfg.Redis.Addr = tc.Redis.Addr
	}
	if tc.Redis.Password != "" {
		cfg.Redis.Password = tc.Redis.Password
	}
	if tc.Redis.DB != 0 {
		cfg.Redis.DB = tc.Redis.DB
	}

	if tc.Cache.SQLitePath != "" {
		cfg.Cache.SQLitePath = tc.Cache.SQLitePath
	}

	// StatusBar
	cfg.StatusBar.Enabled = tc.StatusBar.Enabled
	if tc.StatusBar.Process != "" {
		cfg.StatusBar.Process = tc.StatusBar.Process
	}
	if tc.StatusBar.Signal > 0 {
		cfg.StatusBar.Signal = tc.StatusBar.Signal
	}

	if tc.IPC.StatusFile != "" {
		cfg.IPC.StatusFile = tc.IPC.StatusFile
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.App.SocketPath, "SOCKET_PATH")
	setString(&cfg.App.LogLevel, "LOG_LEVEL")
	setString(&cfg.App.CacheDir, "CACHE_DIR")
	setInt(&cfg.App.FrameRate, "FRAME_RATE")

	setString(&cfg.Widget.Variant, "VARIANT")
	setBool(&cfg.Widget.Autoplay, "AUTOPLAY")
	setBool(&cfg.Widget.ShowVisualizer, "SHOW_VISUALIZER")

	setString(&cfg.Host.BaseURL, "BASE_URL")
	setString(&cfg.Host.InputDir, "INPUT_DIR")
	setString(&cfg.Host.OutputDir, "OUTPUT_DIR")
	setString(&cfg.Host.TempDir, "TEMP_DIR")

	setBool(&cfg.Lyrics.FetchOnline, "FETCH_ONLINE")
	if v := os.Getenv(EnvPrefix + "PROVIDERS"); v != "" {
		cfg.Lyrics.Providers = strings.Split(v, ",")
	}
	setString(&cfg.Lyrics.Convert, "CONVERT")

	setBool(&cfg.Redis.Enabled, "REDIS_ENABLED")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")

	setString(&cfg.Cache.SQLitePath, "SQLITE_PATH")
	setString(&cfg.IPC.StatusFile, "STATUS_FILE")
}

func setString(dst *string, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn().Str("key", EnvPrefix+key).Str("value", v).Msg("Invalid integer, ignoring")
		return
	}
	*dst = n
}

func setBool(dst *bool, key string) {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logger.Warn().Str("key", EnvPrefix+key).Str("value", v).Msg("Invalid boolean, ignoring")
		return
	}
	*dst = b
}

func parseDurationOrDefault(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		logger.Warn().Str("value", s).Dur("default", def).Msg("Invalid duration format, using default")
		return def
	}
	return d
}
