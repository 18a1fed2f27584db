package source

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lyrics-collector/pkg/lrc"
	"lyrics-collector/pkg/match"
)

const (
	DefaultMaxFetch     = 10
	DefaultPreviewLines = 3
)

// Song 搜索结果中的一首歌（提供商原始结果的最小投影）
type Song struct {
	// Ref 拉取歌词所需的标识（id、hash、songmid 等）
	Ref    string
	Title  string
	Artist string
	// Duration 时长（秒），未知为 0
	Duration int
	// Lyrics 搜索结果里已经带了歌词时填写（如 LRCLib）
	Lyrics string
}

// FetchFunc 拉取单首歌的歌词，返回空字符串表示没有可用歌词
type FetchFunc func(ctx context.Context, song Song) (string, error)

// Options 候选收集参数。零值等同于 DefaultOptions；
// 其他字段有值时 MinScore 按原值使用，可以显式设为 0
type Options struct {
	MinScore     int
	MaxFetch     int
	PreviewLines int
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{
		MinScore:     match.DefaultMinScore,
		MaxFetch:     DefaultMaxFetch,
		PreviewLines: DefaultPreviewLines,
	}
}

// Gatherer 对搜索结果评分、按分数拉取歌词并构造候选，各提供商共用
type Gatherer struct {
	name   Name
	opts   Options
	scorer *match.Scorer
	logger zerolog.Logger
}

// NewGatherer 创建候选收集器
func NewGatherer(name Name, opts Options, scorer *match.Scorer) *Gatherer {
	if opts == (Options{}) {
		opts = DefaultOptions()
	}
	if opts.MaxFetch <= 0 {
		opts.MaxFetch = DefaultMaxFetch
	}
	if opts.PreviewLines <= 0 {
		opts.PreviewLines = DefaultPreviewLines
	}
	if scorer == nil {
		scorer = match.NewScorer(nil)
	}
	return &Gatherer{
		name:   name,
		opts:   opts,
		scorer: scorer,
		logger: log.With().Str("component", "gather").Str("provider", string(name)).Logger(),
	}
}

type scoredSong struct {
	Song
	score int
}

// Gather 按分数从高到低尝试拉取歌词，达到阈值的结果最多尝试 MaxFetch 次。
// 单首歌的任何失败只会跳过这首歌。
func (g *Gatherer) Gather(ctx context.Context, q Query, songs []Song, fetch FetchFunc) []Candidate {
	scored := make([]scoredSong, 0, len(songs))
	for _, song := range songs {
		score := g.scorer.Score(q.Title, q.Artist, match.Result{Title: song.Title, Artist: song.Artist})
		g.logger.Debug().
			Str("title", song.Title).
			Str("artist", song.Artist).
			Int("score", score).
			Msg("candidate scored")
		scored = append(scored, scoredSong{Song: song, score: score})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	var candidates []Candidate
	attempts := 0
	for _, s := range scored {
		if s.score < g.opts.MinScore || attempts >= g.opts.MaxFetch {
			break
		}
		if ctx.Err() != nil {
			g.logger.Warn().Err(ctx.Err()).Msg("Stopping lyric fetches")
			break
		}
		attempts++

		text, err := g.fetchOne(ctx, s.Song, fetch)
		if err != nil {
			g.logger.Warn().Err(err).Str("title", s.Title).Str("ref", s.Ref).Msg("Lyric fetch failed, skipping song")
			continue
		}
		if strings.TrimSpace(text) == "" {
			g.logger.Debug().Str("title", s.Title).Str("ref", s.Ref).Msg("No usable lyrics")
			continue
		}

		candidates = append(candidates, Candidate{
			Source:     g.name,
			Artist:     s.Artist,
			Title:      s.Title,
			Score:      s.score,
			Preview:    lrc.Preview(text, g.opts.PreviewLines),
			FullLyrics: text,
		})
		g.logger.Info().
			Str("title", s.Title).
			Str("artist", s.Artist).
			Int("score", s.score).
			Int("lines", lrc.LineCount(text)).
			Msg("candidate fetched")
	}

	return candidates
}

func (g *Gatherer) fetchOne(ctx context.Context, song Song, fetch FetchFunc) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while fetching lyrics: %v", r)
		}
	}()
	return fetch(ctx, song)
}
