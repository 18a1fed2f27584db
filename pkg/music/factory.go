package music

import (
	"fmt"
	"strings"

	"lyrics-collector/pkg/kugou"
	"lyrics-collector/pkg/lrclib"
	"lyrics-collector/pkg/netease"
	"lyrics-collector/pkg/qqmusic"
	"lyrics-collector/pkg/source"
)

// Config 管理器及各提供商配置
type Config struct {
	// Providers 提供商名称，顺序即优先级，支持别名
	Providers []string
	Options   Options
	NetEase   netease.Config
	QQMusic   qqmusic.Config
	Kugou     kugou.Config
	LRCLib    lrclib.Config
}

// DefaultConfig 默认配置，优先级 QQ音乐 > 酷狗 > 网易云 > LRCLib
func DefaultConfig() Config {
	providers := GetAvailableProviders()
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = string(p)
	}
	return Config{
		Providers: names,
		Options:   DefaultOptions(),
		NetEase:   netease.DefaultConfig(),
		QQMusic:   qqmusic.DefaultConfig(),
		Kugou:     kugou.DefaultConfig(),
		LRCLib:    lrclib.DefaultConfig(),
	}
}

// CreateProvider 创建音乐提供商客户端
func CreateProvider(provider Provider, cfg Config) (source.Source, error) {
	switch provider {
	case ProviderQQMusic:
		logger.Info().Msg("Creating QQ Music client")
		return qqmusic.NewClient(cfg.QQMusic), nil
	case ProviderKugou:
		logger.Info().Msg("Creating Kugou music client")
		return kugou.NewClient(cfg.Kugou), nil
	case ProviderNetEase:
		logger.Info().Msg("Creating NetEase music client")
		return netease.NewClient(cfg.NetEase), nil
	case ProviderLRCLib:
		logger.Info().Msg("Creating LRCLib client")
		return lrclib.NewClient(cfg.LRCLib), nil
	default:
		return nil, fmt.Errorf("unknown music provider: %s", provider)
	}
}

// CreateManager 按配置顺序创建管理器，无法识别的名称跳过，重复的只保留第一次
func CreateManager(cfg Config) (*Manager, error) {
	var providers []source.Source
	seen := make(map[Provider]bool)

	for _, name := range cfg.Providers {
		providerType, err := GetProviderByName(name)
		if err != nil {
			logger.Warn().Err(err).Msg("Skipping provider")
			continue
		}
		if seen[providerType] {
			continue
		}
		seen[providerType] = true

		provider, err := CreateProvider(providerType, cfg)
		if err != nil {
			logger.Warn().Err(err).Str("provider", string(providerType)).Msg("Failed to create provider")
			continue
		}
		providers = append(providers, provider)
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no music providers available")
	}

	return NewManager(providers, cfg.Options), nil
}

// GetAvailableProviders 获取所有可用的提供商（按默认优先级）
func GetAvailableProviders() []Provider {
	return []Provider{
		ProviderQQMusic,
		ProviderKugou,
		ProviderNetEase,
		ProviderLRCLib,
	}
}

// GetProviderByName 根据名称获取提供商
func GetProviderByName(name string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "netease", "网易云", "163":
		return ProviderNetEase, nil
	case "qqmusic", "qq", "腾讯":
		return ProviderQQMusic, nil
	case "kugou", "酷狗":
		return ProviderKugou, nil
	case "lrclib", "lrc":
		return ProviderLRCLib, nil
	default:
		return "", fmt.Errorf("unknown provider name: %s", name)
	}
}
