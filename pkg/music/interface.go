package music

import (
	"context"

	"lyrics-collector/pkg/source"
)

// Provider 音乐提供商类型
type Provider = source.Name

const (
	// ProviderQQMusic QQ音乐
	ProviderQQMusic Provider = source.QQMusic
	// ProviderKugou 酷狗音乐
	ProviderKugou Provider = source.Kugou
	// ProviderNetEase 网易云音乐
	ProviderNetEase Provider = source.NetEase
	// ProviderLRCLib LRCLib歌词库
	ProviderLRCLib Provider = source.LRCLib
)

// Collector 多提供商候选收集接口
type Collector interface {
	// Collect 查询所有提供商，返回按分数从高到低排列的候选
	Collect(ctx context.Context, artist, title string) []source.Candidate

	// FirstMatch 按提供商优先级返回第一条拿到歌词的候选
	FirstMatch(ctx context.Context, artist, title string) (source.Candidate, bool)
}
