package kugou

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
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
	DefaultSearchURL   = "https://mobilecdn.kugou.com/api/v3/search/song"
	DefaultLyricURL    = "https://m.kugou.com/app/i/krc.php"
	DefaultSearchLimit = 10
)

// SearchResponse 酷狗搜索API响应。新旧接口字段名不同，两套都接受。
type SearchResponse struct {
	Status int `json:"status"`
	Data   struct {
		Info  []searchSong `json:"info"`
		Lists []searchSong `json:"lists"`
	} `json:"data"`
}

type searchSong struct {
	SongName      string  `json:"songname"`
	SongNameAlt   string  `json:"SongName"`
	SingerName    string  `json:"singername"`
	SingerNameAlt string  `json:"SingerName"`
	Hash          string  `json:"hash"`
	FileHash      string  `json:"FileHash"`
	Duration      flexInt `json:"duration"`
	DurationAlt   flexInt `json:"Duration"`
}

// flexInt 兼容数字和字符串两种写法
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(v)
	return nil
}

// Config 酷狗客户端配置
type Config struct {
	SearchURL   string
	LyricURL    string
	SearchLimit int
	Penalties   []string
	HTTP        transport.Config
	Gather      source.Options
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		SearchURL:   DefaultSearchURL,
		LyricURL:    DefaultLyricURL,
		SearchLimit: DefaultSearchLimit,
		HTTP:        transport.DefaultConfig(),
		Gather:      source.DefaultOptions(),
	}
}

// Client 酷狗音乐客户端
type Client struct {
	http     *transport.Client
	cfg      Config
	gatherer *source.Gatherer
	logger   zerolog.Logger
}

var _ source.Source = (*Client)(nil)

// NewClient 创建新的酷狗音乐客户端
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

	return &Client{
		http:     transport.NewClient(string(source.Kugou), cfg.HTTP),
		cfg:      cfg,
		gatherer: source.NewGatherer(source.Kugou, cfg.Gather, match.NewScorer(cfg.Penalties)),
		logger:   log.With().Str("component", "kugou").Logger(),
	}
}

// Name 提供商标识
func (c *Client) Name() source.Name {
	return source.Kugou
}

// SearchCandidates 搜索歌曲、评分并拉取歌词
func (c *Client) SearchCandidates(ctx context.Context, artist, title string) ([]source.Candidate, error) {
	q := source.Query{Artist: artist, Title: title}.Normalize()

	songs, err := c.Search(ctx, q)
	if err != nil {
		c.logger.Warn().Err(err).Str("query", q.String()).Msg("Search failed")
		return nil, ctx.Err()
	}

	return c.gatherer.Gather(ctx, q, songs, c.GetLyrics), nil
}

// Search 搜索歌曲
func (c *Client) Search(ctx context.Context, q source.Query) ([]source.Song, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("keyword", strings.TrimSpace(q.Artist+" "+q.Title))
	params.Set("page", "1")
	params.Set("pagesize", strconv.Itoa(c.cfg.SearchLimit))
	params.Set("showtype", "1")

	c.logger.Info().Str("keyword", params.Get("keyword")).Msg("Searching songs")

	body, err := c.http.Get(ctx, c.cfg.SearchURL, params)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}

	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	raw := resp.Data.Info
	if len(raw) == 0 {
		raw = resp.Data.Lists
	}

	songs := make([]source.Song, 0, len(raw))
	for _, s := range raw {
		hash := firstNonEmpty(s.Hash, s.FileHash)
		if hash == "" {
			continue
		}
		duration := int(s.Duration)
		if duration == 0 {
			duration = int(s.DurationAlt)
		}
		songs = append(songs, source.Song{
			Ref:      hash,
			Title:    stripHighlight(firstNonEmpty(s.SongName, s.SongNameAlt)),
			Artist:   strings.TrimSpace(stripHighlight(firstNonEmpty(s.SingerName, s.SingerNameAlt))),
			Duration: duration,
		})
	}

	c.logger.Info().Int("songs", len(songs)).Msg("Search finished")
	return songs, nil
}

// GetLyrics 通过 hash 获取歌词，内容必须以 "[" 开头才算有效
func (c *Client) GetLyrics(ctx context.Context, song source.Song) (string, error) {
	params := url.Values{}
	params.Set("cmd", "100")
	params.Set("hash", song.Ref)
	params.Set("keyword", strings.TrimSpace(song.Artist+" - "+song.Title))
	if song.Duration > 0 {
		params.Set("timelength", strconv.Itoa(song.Duration*1000))
	}

	body, err := c.http.Get(ctx, c.cfg.LyricURL, params)
	if err != nil {
		return "", fmt.Errorf("lyric request failed: %w", err)
	}

	text := strings.TrimPrefix(string(body), "\ufeff")
	if !lrc.LooksTimestamped(text) {
		return "", nil
	}
	return strings.TrimSpace(text), nil
}

// stripHighlight 去掉搜索结果里的 <em> 高亮标签
func stripHighlight(s string) string {
	r := strings.NewReplacer("<em>", "", "</em>", "")
	return r.Replace(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
