package qqmusic

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lyrics-collector/pkg/match"
	"lyrics-collector/pkg/source"
	"lyrics-collector/pkg/transport"
)

const (
	DefaultSearchURL   = "https://c.y.qq.com/soso/fcgi-bin/client_search_cp"
	DefaultLyricURL    = "https://c.y.qq.com/lyric/fcgi-bin/fcg_query_lyric_new.fcg"
	DefaultSearchLimit = 10
	DefaultReferer     = "https://y.qq.com/portal/player.html"

	gTK = "5381"
)

// ErrBadPayload 响应既不是 JSON 也不是回调包裹的 JSON
var ErrBadPayload = errors.New("unrecognized qq music payload")

// callbackRe 贪婪匹配到最后一个右括号，歌词 JSON 里本身可能带括号
var callbackRe = regexp.MustCompile(`(?s)^\s*[A-Za-z_$][\w$.]*\s*\((.*)\)\s*;?\s*$`)

// SearchResponse QQ音乐搜索API响应
type SearchResponse struct {
	Code int `json:"code"`
	Data struct {
		Song struct {
			List []searchSong `json:"list"`
		} `json:"song"`
	} `json:"data"`
}

type searchSong struct {
	SongMID  string `json:"songmid"`
	MID      string `json:"mid"`
	SongName string `json:"songname"`
	Name     string `json:"name"`
	Singer   []struct {
		Name string `json:"name"`
	} `json:"singer"`
}

// LyricResponse QQ音乐歌词API响应
type LyricResponse struct {
	Code  int    `json:"code"`
	Lyric string `json:"lyric"`
	Trans string `json:"trans"`
}

// Config QQ音乐客户端配置
type Config struct {
	SearchURL   string
	LyricURL    string
	SearchLimit int
	Cookie      string
	Penalties   []string
	HTTP        transport.Config
	Gather      source.Options
}

// DefaultConfig 默认配置，Cookie 取自 QQMUSIC_COOKIE
func DefaultConfig() Config {
	return Config{
		SearchURL:   DefaultSearchURL,
		LyricURL:    DefaultLyricURL,
		SearchLimit: DefaultSearchLimit,
		Cookie:      os.Getenv("QQMUSIC_COOKIE"),
		HTTP:        transport.DefaultConfig(),
		Gather:      source.DefaultOptions(),
	}
}

// Client QQ音乐客户端
type Client struct {
	http     *transport.Client
	cfg      Config
	gatherer *source.Gatherer
	logger   zerolog.Logger
}

var _ source.Source = (*Client)(nil)

// NewClient 创建新的QQ音乐客户端
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

	headers := map[string]string{"Referer": DefaultReferer}
	if cfg.Cookie != "" {
		headers["Cookie"] = cfg.Cookie
	}
	for k, v := range cfg.HTTP.Headers {
		headers[k] = v
	}
	cfg.HTTP.Headers = headers

	return &Client{
		http:     transport.NewClient(string(source.QQMusic), cfg.HTTP),
		cfg:      cfg,
		gatherer: source.NewGatherer(source.QQMusic, cfg.Gather, match.NewScorer(cfg.Penalties)),
		logger:   log.With().Str("component", "qqmusic").Logger(),
	}
}

// Name 提供商标识
func (c *Client) Name() source.Name {
	return source.QQMusic
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
	params.Set("aggr", "1")
	params.Set("cr", "1")
	params.Set("flag_qc", "0")
	params.Set("p", "1")
	params.Set("n", strconv.Itoa(c.cfg.SearchLimit))
	params.Set("w", strings.TrimSpace(q.Artist+" "+q.Title))
	params.Set("g_tk", gTK)

	c.logger.Info().Str("query", params.Get("w")).Msg("Searching songs")

	body, err := c.http.Get(ctx, c.cfg.SearchURL, params)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}

	var resp SearchResponse
	if err := decodeJSONP(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	songs := make([]source.Song, 0, len(resp.Data.Song.List))
	for _, s := range resp.Data.Song.List {
		mid := firstNonEmpty(s.SongMID, s.MID)
		if mid == "" {
			continue
		}
		names := make([]string, 0, len(s.Singer))
		for _, singer := range s.Singer {
			if singer.Name != "" {
				names = append(names, singer.Name)
			}
		}
		songs = append(songs, source.Song{
			Ref:    mid,
			Title:  firstNonEmpty(s.SongName, s.Name),
			Artist: strings.Join(names, " / "),
		})
	}

	c.logger.Info().Int("songs", len(songs)).Msg("Search finished")
	return songs, nil
}

// GetLyrics 获取歌词，歌词字段是 base64，解码失败时按原文处理
func (c *Client) GetLyrics(ctx context.Context, songMID string) (string, error) {
	params := url.Values{}
	params.Set("songmid", songMID)
	params.Set("g_tk", gTK)
	params.Set("format", "json")

	body, err := c.http.Get(ctx, c.cfg.LyricURL, params)
	if err != nil {
		return "", fmt.Errorf("lyric request failed: %w", err)
	}

	var resp LyricResponse
	if err := decodeJSONP(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode lyric response: %w", err)
	}
	if resp.Lyric == "" {
		return "", nil
	}

	return html.UnescapeString(decodeLyric(resp.Lyric)), nil
}

// decodeJSONP 解析纯 JSON 或 name(...) 包裹的 JSON
func decodeJSONP(body []byte, v any) error {
	text := strings.TrimSpace(string(body))
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		return json.Unmarshal([]byte(text), v)
	}

	m := callbackRe.FindStringSubmatch(text)
	if m == nil {
		return ErrBadPayload
	}
	return json.Unmarshal([]byte(m[1]), v)
}

func decodeLyric(raw string) string {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil || !utf8.Valid(decoded) {
		return raw
	}
	return string(decoded)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
