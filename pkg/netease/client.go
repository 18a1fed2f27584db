package netease

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lyrics-collector/pkg/lrc"
	"lyrics-collector/pkg/match"
	"lyrics-collector/pkg/source"
	"lyrics-collector/pkg/transport"
)

const (
	DefaultSearchURL   = "https://music.163.com/api/search/get/web"
	DefaultLyricURL    = "https://music.163.com/api/song/lyric"
	DefaultSearchLimit = 10
)

// SearchResponse 网易云搜索API响应
type SearchResponse struct {
	Result struct {
		Songs []struct {
			ID      int64  `json:"id"`
			Name    string `json:"name"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
		} `json:"songs"`
	} `json:"result"`
}

// LyricResponse 网易云歌词API响应
type LyricResponse struct {
	Lrc struct {
		Lyric string `json:"lyric"`
	} `json:"lrc"`
	Tlyric struct {
		Lyric string `json:"lyric"`
	} `json:"tlyric"`
}

// Config 网易云客户端配置
type Config struct {
	SearchURL   string
	LyricURL    string
	SearchLimit int
	Cookie      string
	// MergeTranslation 把翻译歌词按时间戳插到原文后面
	MergeTranslation bool
	Penalties        []string
	HTTP             transport.Config
	Gather           source.Options
}

// DefaultConfig 默认配置，Cookie 取自 NETEASE_COOKIE
func DefaultConfig() Config {
	return Config{
		SearchURL:   DefaultSearchURL,
		LyricURL:    DefaultLyricURL,
		SearchLimit: DefaultSearchLimit,
		Cookie:      os.Getenv("NETEASE_COOKIE"),
		HTTP:        transport.DefaultConfig(),
		Gather:      source.DefaultOptions(),
	}
}

// Client 网易云音乐客户端
type Client struct {
	http     *transport.Client
	cfg      Config
	gatherer *source.Gatherer
	logger   zerolog.Logger
}

var _ source.Source = (*Client)(nil)

// NewClient 创建新的网易云音乐客户端
func NewClient(cfg Config) *Client {
	if cfg.SearchURL == "" {
		cfg.SearchURL = DefaultSearchURL
	}
	if cfg.LyricURL == "" {
		cfg.LyricURL = DefaultLyricURL
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = DefaultSearchLimit
	}
	if cfg.Cookie != "" {
		headers := map[string]string{"Cookie": cfg.Cookie}
		for k, v := range cfg.HTTP.Headers {
			headers[k] = v
		}
		cfg.HTTP.Headers = headers
	}

	return &Client{
		http:     transport.NewClient(string(source.NetEase), cfg.HTTP),
		cfg:      cfg,
		gatherer: source.NewGatherer(source.NetEase, cfg.Gather, match.NewScorer(cfg.Penalties)),
		logger:   log.With().Str("component", "netease").Logger(),
	}
}

// Name 提供商标识
func (c *Client) Name() source.Name {
	return source.NetEase
}

// SearchCandidates 搜索歌曲、评分并拉取歌词
func (c *Client) SearchCandidates(ctx context.Context, artist, title string) ([]source.Candidate, error) {
	q := source.Query{Artist: artist, Title: title}.Normalize()

	songs, err := c.Search(ctx, q)
	if err != nil {
		c.logger.Warn().Err(err).Str("query", q.String()).Msg("Search failed")
		return nil, ctx.Err()
	}

	return c.gatherer.Gather(ctx, q, songs, func(ctx context.Context, song source.Song) (string, error) {
		return c.GetLyrics(ctx, song.Ref)
	}), nil
}

// Search 搜索歌曲
func (c *Client) Search(ctx context.Context, q source.Query) ([]source.Song, error) {
	params := url.Values{}
	params.Set("s", strings.TrimSpace(q.Artist+" "+q.Title))
	params.Set("type", "1")
	params.Set("limit", strconv.Itoa(c.cfg.SearchLimit))

	c.logger.Info().Str("query", params.Get("s")).Msg("Searching songs")

	body, err := c.http.Get(ctx, c.cfg.SearchURL, params)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}

	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	songs := make([]source.Song, 0, len(resp.Result.Songs))
	for _, s := range resp.Result.Songs {
		if s.ID == 0 {
			continue
		}
		names := make([]string, 0, len(s.Artists))
		for _, a := range s.Artists {
			if a.Name != "" {
				names = append(names, a.Name)
			}
		}
		songs = append(songs, source.Song{
			Ref:    strconv.FormatInt(s.ID, 10),
			Title:  s.Name,
			Artist: strings.Join(names, " / "),
		})
	}

	c.logger.Info().Int("songs", len(songs)).Msg("Search finished")
	return songs, nil
}

// GetLyrics 获取歌词，返回空字符串表示这首歌没有可用歌词
func (c *Client) GetLyrics(ctx context.Context, songID string) (string, error) {
	params := url.Values{}
	params.Set("id", songID)
	params.Set("lv", "1")

	body, err := c.http.Get(ctx, c.cfg.LyricURL, params)
	if err != nil {
		return "", fmt.Errorf("lyric request failed: %w", err)
	}

	var resp LyricResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode lyric response: %w", err)
	}

	if !lrc.LooksTimestamped(resp.Lrc.Lyric) {
		return "", nil
	}
	if c.cfg.MergeTranslation && lrc.LooksTimestamped(resp.Tlyric.Lyric) {
		return combineLyrics(resp.Lrc.Lyric, resp.Tlyric.Lyric), nil
	}
	return resp.Lrc.Lyric, nil
}

// combineLyrics 合并原文和翻译歌词
func combineLyrics(original, translated string) string {
	originalLines := parseLyrics(original)
	translatedLines := parseLyrics(translated)

	timestamps := make([]string, 0, len(originalLines))
	for t := range originalLines {
		timestamps = append(timestamps, t)
	}
	sort.Strings(timestamps)

	var b strings.Builder
	for _, t := range timestamps {
		fmt.Fprintf(&b, "[%s]%s\n", t, originalLines[t])
		if tr, ok := translatedLines[t]; ok {
			fmt.Fprintf(&b, "[%s]%s\n", t, tr)
		}
	}
	return strings.TrimSpace(b.String())
}

var lyricLineRe = regexp.MustCompile(`\[(\d{2}:\d{2}\.\d{2,3})\](.*)`)

// parseLyrics 提取时间戳和歌词内容
func parseLyrics(text string) map[string]string {
	lines := make(map[string]string)
	for _, m := range lyricLineRe.FindAllStringSubmatch(text, -1) {
		if content := strings.TrimSpace(m[2]); content != "" {
			lines[m[1]] = content
		}
	}
	return lines
}
