package match

import (
	"strings"

	"lyrics-collector/pkg/textnorm"
)

// 评分常量，经验值，保持不变
const (
	TitleExact     = 20
	TitleContains  = 10
	TitleAnywhere  = 5
	ArtistExact    = 30
	ArtistContains = 15
	ArtistAnywhere = 8
	ArtistMissing  = -10
	OriginalOther  = -5
	OriginalSame   = 3
	KeywordPenalty = -8

	// DefaultMinScore 低于该分数的结果不会去拉取歌词
	DefaultMinScore = 5
)

// DefaultPenalties 翻唱、混音、现场、伴奏等版本关键词
var DefaultPenalties = []string{
	"cover", "remix", "live", "instrumental", "karaoke", "inst.", "off vocal",
	"piano ver", "guitar ver",
	"翻唱", "翻自", "混音", "现场", "演唱会", "伴奏", "纯音乐", "卡拉ok",
	"钢琴版", "吉他版", "钢琴曲", "吉他曲", "dj版",
}

// DefaultOriginalMarkers 标题里暗示"原唱/原版"的标记
var DefaultOriginalMarkers = []string{"原唱", "原版", "original"}

// Result 候选歌曲中参与评分的字段
type Result struct {
	Title  string
	Artist string
}

// Scorer 匹配评分器，惩罚关键词可按提供商调整
type Scorer struct {
	penalties []string
	markers   []string
}

// NewScorer 创建评分器，penalties 为空时使用默认列表
func NewScorer(penalties []string) *Scorer {
	if len(penalties) == 0 {
		penalties = DefaultPenalties
	}
	return &Scorer{
		penalties: foldAll(penalties),
		markers:   foldAll(DefaultOriginalMarkers),
	}
}

// Score 计算查询与候选结果的匹配分数。各规则依次累加，不提前退出。
func (s *Scorer) Score(title, artist string, r Result) int {
	qTitle, qArtist := textnorm.Fold(title), textnorm.Fold(artist)
	rTitle, rArtist := textnorm.Fold(r.Title), textnorm.Fold(r.Artist)
	combined := rTitle + " " + rArtist

	score := 0

	switch {
	case qTitle != "" && qTitle == rTitle:
		score += TitleExact
	case containsEither(rTitle, qTitle):
		score += TitleContains
	case qTitle != "" && strings.Contains(combined, qTitle):
		score += TitleAnywhere
	}

	// 歌手权重高于歌名：同名翻唱比同歌手的别名版本更糟
	switch {
	case qArtist != "" && qArtist == rArtist:
		score += ArtistExact
	case containsEither(rArtist, qArtist):
		score += ArtistContains
	case qArtist != "" && strings.Contains(combined, qArtist):
		score += ArtistAnywhere
	default:
		score += ArtistMissing
	}

	if containsAny(rTitle, s.markers) {
		if qArtist != "" && strings.Contains(rArtist, qArtist) {
			score += OriginalSame
		} else {
			score += OriginalOther
		}
	}

	for _, kw := range s.penalties {
		if kw != "" && strings.Contains(rTitle, kw) {
			score += KeywordPenalty
		}
	}

	return score
}

func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func foldAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if f := textnorm.Fold(s); f != "" {
			out = append(out, f)
		}
	}
	return out
}
