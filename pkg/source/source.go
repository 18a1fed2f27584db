package source

import (
	"context"
	"strings"

	"lyrics-collector/pkg/textnorm"
)

// Name 提供商标识
type Name string

const (
	// QQMusic QQ音乐
	QQMusic Name = "qqmusic"
	// Kugou 酷狗音乐
	Kugou Name = "kugou"
	// NetEase 网易云音乐
	NetEase Name = "netease"
	// LRCLib LRCLib歌词库
	LRCLib Name = "lrclib"
)

// Query 查询条件
type Query struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
}

// Normalize 返回规范化后的查询
func (q Query) Normalize() Query {
	return Query{
		Artist: textnorm.Normalize(q.Artist),
		Title:  textnorm.Normalize(q.Title),
	}
}

// Valid 歌手和歌名去掉空白后都不为空
func (q Query) Valid() bool {
	return strings.TrimSpace(q.Artist) != "" && strings.TrimSpace(q.Title) != ""
}

func (q Query) String() string {
	return q.Artist + " - " + q.Title
}

// Candidate 一条完整的候选歌词
type Candidate struct {
	Source     Name   `json:"source"`
	Artist     string `json:"artist"`
	Title      string `json:"title"`
	Score      int    `json:"score"`
	Preview    string `json:"preview"`
	FullLyrics string `json:"full_lyrics"`
}

// Source 歌词来源的统一能力接口
type Source interface {
	// Name 提供商标识
	Name() Name

	// SearchCandidates 搜索并返回带歌词的候选，找不到时返回空列表而不是错误
	SearchCandidates(ctx context.Context, artist, title string) ([]Candidate, error)
}
