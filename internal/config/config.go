package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"

	"lyrics-collector/pkg/kugou"
	"lyrics-collector/pkg/lrclib"
	"lyrics-collector/pkg/music"
	"lyrics-collector/pkg/netease"
	"lyrics-collector/pkg/qqmusic"
	"lyrics-collector/pkg/source"
	"lyrics-collector/pkg/transport"
)

const appName = "lyrics-collector"

var logger = log.With().Str("component", "config").Logger()

type providerToml struct {
	Cookie      string   `toml:"cookie"`
	SearchLimit int      `toml:"search_limit"`
	Penalties   []string `toml:"penalties"`
	SearchURL   string   `toml:"search_url"`
	LyricURL    string   `toml:"lyric_url"`
}

// TomlConfig TOML配置文件结构
type TomlConfig struct {
	App struct {
		Providers       []string `toml:"providers"`
		ProviderDelay   string   `toml:"provider_delay"`
		ProviderTimeout string   `toml:"provider_timeout"`
		Concurrent      bool     `toml:"concurrent"`
		LogLevel        string   `toml:"log_level"`
		OutputDir       string   `toml:"output_dir"`
	} `toml:"app"`

	HTTP struct {
		Timeout     string `toml:"timeout"`
		Retries     *int   `toml:"retries"`
		RetryDelay  string `toml:"retry_delay"`
		MinInterval string `toml:"min_interval"`
		UserAgent   string `toml:"user_agent"`
	} `toml:"http"`

	Match struct {
		MinScore     *int `toml:"min_score"`
		MaxFetch     int  `toml:"max_fetch"`
		PreviewLines int  `toml:"preview_lines"`
	} `toml:"match"`

	NetEase struct {
		providerToml
		MergeTranslation bool `toml:"merge_translation"`
	} `toml:"netease"`

	QQMusic providerToml `toml:"qqmusic"`
	Kugou   providerToml `toml:"kugou"`

	LRCLib struct {
		BaseURL   string   `toml:"base_url"`
		Penalties []string `toml:"penalties"`
	} `toml:"lrclib"`

	AI struct {
		ModuleName string `toml:"module_name"`
		APIKey     string `toml:"api_key"`
		BaseURL    string `toml:"base_url"` // for OpenAI
		Model      string `toml:"model"`
	} `toml:"ai"`
}

// AppConfig 应用配置
type AppConfig struct {
	Providers       []string
	ProviderDelay   time.Duration
	ProviderTimeout time.Duration
	Concurrent      bool
	LogLevel        string
	OutputDir       string
}

// ProviderConfig 单个提供商的可配置项
type ProviderConfig struct {
	Cookie      string
	SearchLimit int
	Penalties   []string
	SearchURL   string
	LyricURL    string
}

// AIConfig AI配置
type AIConfig struct {
	ModuleName string
	APIKey     string
	BaseURL    string
	Model      string
}

// Config 主配置结构
type Config struct {
	App     AppConfig
	HTTP    transport.Config
	Match   source.Options
	NetEase ProviderConfig
	// MergeTranslation 网易云歌词附带翻译
	MergeTranslation bool
	QQMusic          ProviderConfig
	Kugou            ProviderConfig
	LRCLib           ProviderConfig
	AI               AIConfig
}

// Default 默认配置
func Default() *Config {
	// 未配置 user_agent 时各提供商使用自己的默认值
	httpCfg := transport.DefaultConfig()
	httpCfg.UserAgent = ""

	providers := music.GetAvailableProviders()
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = string(p)
	}

	return &Config{
		App: AppConfig{
			Providers:       names,
			ProviderDelay:   music.DefaultProviderDelay,
			ProviderTimeout: music.DefaultProviderTimeout,
			LogLevel:        "info",
			OutputDir:       ".",
		},
		HTTP:    httpCfg,
		Match:   source.DefaultOptions(),
		NetEase: ProviderConfig{Cookie: os.Getenv("NETEASE_COOKIE")},
		QQMusic: ProviderConfig{Cookie: os.Getenv("QQMUSIC_COOKIE")},
		AI: AIConfig{
			ModuleName: "gemini",
			APIKey:     os.Getenv("LYRICS_AI_API_KEY"),
		},
	}
}

// DefaultPath 获取配置文件路径
func DefaultPath() string {
	// 优先使用 XDG_CONFIG_HOME 环境变量
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		logger.Warn().Err(err).Msg("Cannot get user home directory")
		return "config.toml"
	}

	return filepath.Join(homeDir, ".config", appName, "config.toml")
}

// loadTomlConfig 加载TOML配置文件，文件不存在时返回空配置
func loadTomlConfig(path string) (*TomlConfig, error) {
	var tc TomlConfig
	md, err := toml.DecodeFile(path, &tc)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info().Str("path", path).Msg("Config file not found, using defaults")
		return &TomlConfig{}, nil
	}
	if err != nil {
		return nil, err
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		for _, key := range undecoded {
			logger.Warn().Str("key", key.String()).Msg("Unknown config key")
		}
	}

	logger.Info().Str("path", path).Msg("Loaded config")
	return &tc, nil
}

// Load 读取配置，path 为空时使用默认路径。文件解析失败时回退到默认配置
func Load(path string) *Config {
	if path == "" {
		path = DefaultPath()
	}

	tc, err := loadTomlConfig(path)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("Failed to load config file, using defaults")
		tc = &TomlConfig{}
	}

	cfg := Default()
	cfg.apply(tc)

	// 环境变量优先于配置文件
	if v := os.Getenv("NETEASE_COOKIE"); v != "" {
		cfg.NetEase.Cookie = v
	}
	if v := os.Getenv("QQMUSIC_COOKIE"); v != "" {
		cfg.QQMusic.Cookie = v
	}
	if v := os.Getenv("LYRICS_AI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}

	return cfg
}

func (c *Config) apply(tc *TomlConfig) {
	if len(tc.App.Providers) > 0 {
		c.App.Providers = tc.App.Providers
	}
	setDuration(&c.App.ProviderDelay, tc.App.ProviderDelay, "app.provider_delay")
	setDuration(&c.App.ProviderTimeout, tc.App.ProviderTimeout, "app.provider_timeout")
	c.App.Concurrent = tc.App.Concurrent
	setString(&c.App.LogLevel, tc.App.LogLevel)
	setString(&c.App.OutputDir, tc.App.OutputDir)

	setDuration(&c.HTTP.Timeout, tc.HTTP.Timeout, "http.timeout")
	setDuration(&c.HTTP.RetryDelay, tc.HTTP.RetryDelay, "http.retry_delay")
	setDuration(&c.HTTP.MinInterval, tc.HTTP.MinInterval, "http.min_interval")
	if tc.HTTP.Retries != nil && *tc.HTTP.Retries >= 0 {
		c.HTTP.Retries = *tc.HTTP.Retries
	}
	setString(&c.HTTP.UserAgent, tc.HTTP.UserAgent)

	if tc.Match.MinScore != nil {
		c.Match.MinScore = *tc.Match.MinScore
	}
	if tc.Match.MaxFetch > 0 {
		c.Match.MaxFetch = tc.Match.MaxFetch
	}
	if tc.Match.PreviewLines > 0 {
		c.Match.PreviewLines = tc.Match.PreviewLines
	}

	c.NetEase.apply(tc.NetEase.providerToml)
	c.MergeTranslation = tc.NetEase.MergeTranslation
	c.QQMusic.apply(tc.QQMusic)
	c.Kugou.apply(tc.Kugou)
	setString(&c.LRCLib.SearchURL, tc.LRCLib.BaseURL)
	if tc.LRCLib.Penalties != nil {
		c.LRCLib.Penalties = tc.LRCLib.Penalties
	}

	setString(&c.AI.ModuleName, tc.AI.ModuleName)
	setString(&c.AI.APIKey, tc.AI.APIKey)
	setString(&c.AI.BaseURL, tc.AI.BaseURL)
	setString(&c.AI.Model, tc.AI.Model)
}

func (p *ProviderConfig) apply(t providerToml) {
	setString(&p.Cookie, t.Cookie)
	setString(&p.SearchURL, t.SearchURL)
	setString(&p.LyricURL, t.LyricURL)
	if t.SearchLimit > 0 {
		p.SearchLimit = t.SearchLimit
	}
	if t.Penalties != nil {
		p.Penalties = t.Penalties
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v, key string) {
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		logger.Warn().Str("key", key).Str("value", v).Msg("Invalid duration, using default")
		return
	}
	*dst = d
}

// MusicConfig 转换成管理器和各提供商的配置
func (c *Config) MusicConfig() music.Config {
	mc := music.DefaultConfig()
	mc.Providers = c.App.Providers
	mc.Options = music.Options{
		ProviderDelay:   c.App.ProviderDelay,
		ProviderTimeout: c.App.ProviderTimeout,
		Concurrent:      c.App.Concurrent,
	}

	mc.NetEase = netease.Config{
		SearchURL:        c.NetEase.SearchURL,
		LyricURL:         c.NetEase.LyricURL,
		SearchLimit:      c.NetEase.SearchLimit,
		Cookie:           c.NetEase.Cookie,
		MergeTranslation: c.MergeTranslation,
		Penalties:        c.NetEase.Penalties,
		HTTP:             c.HTTP,
		Gather:           c.Match,
	}
	mc.QQMusic = qqmusic.Config{
		SearchURL:   c.QQMusic.SearchURL,
		LyricURL:    c.QQMusic.LyricURL,
		SearchLimit: c.QQMusic.SearchLimit,
		Cookie:      c.QQMusic.Cookie,
		Penalties:   c.QQMusic.Penalties,
		HTTP:        c.HTTP,
		Gather:      c.Match,
	}
	mc.Kugou = kugou.Config{
		SearchURL:   c.Kugou.SearchURL,
		LyricURL:    c.Kugou.LyricURL,
		SearchLimit: c.Kugou.SearchLimit,
		Penalties:   c.Kugou.Penalties,
		HTTP:        c.HTTP,
		Gather:      c.Match,
	}
	lrclibHTTP := c.HTTP
	if lrclibHTTP.UserAgent == "" {
		lrclibHTTP.UserAgent = lrclib.DefaultUserAgent
	}
	mc.LRCLib = lrclib.Config{
		BaseURL:   c.LRCLib.SearchURL,
		Penalties: c.LRCLib.Penalties,
		HTTP:      lrclibHTTP,
		Gather:    c.Match,
	}
	return mc
}
