package lrclib

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lyrics-collector/pkg/lrc"
	"lyrics-collector/pkg/match"
	"lyrics-collector/pkg/source"
	"lyrics-collector/pkg/transport"
)

const (
	DefaultBaseURL = "https://lrclib.net/api"
	// DefaultUserAgent LRCLib 要求客户端标明自己的身份
	DefaultUserAgent = "lyrics-collector/1.0"
)

// LRCLibResponse LRCLib API响应结构
type LRCLibResponse struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// LRCLibSearchResponse LRCLib API搜索响应（列表）
type LRCLibSearchResponse []LRCLibResponse

// Config LRCLib客户端配置
type Config struct {
	BaseURL   string
	Penalties []string
	HTTP      transport.Config
	Gather    source.Options
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	cfg := Config{
		BaseURL: DefaultBaseURL,
		HTTP:    transport.DefaultConfig(),
		Gather:  source.DefaultOptions(),
	}
	cfg.HTTP.UserAgent = DefaultUserAgent
	return cfg
}

// Client LRCLib客户端
type Client struct {
	http     *transport.Client
	cfg      Config
	gatherer *source.Gatherer
	logger   zerolog.Logger
}

var _ source.Source = (*Client)(nil)

// NewClient 创建新的LRCLib客户端
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.HTTP.UserAgent == "" {
		cfg.HTTP.UserAgent = DefaultUserAgent
	}

	return &Client{
		http:     transport.NewClient(string(source.LRCLib), cfg.HTTP),
		cfg:      cfg,
		gatherer: source.NewGatherer(source.LRCLib, cfg.Gather, match.NewScorer(cfg.Penalties)),
		logger:   log.With().Str("component", "lrclib").Logger(),
	}
}

// Name 提供商标识
func (c *Client) Name() source.Name {
	return source.LRCLib
}

// SearchCandidates 搜索并评分。LRCLib 的搜索结果自带歌词，不需要单独的拉取请求
func (c *Client) SearchCandidates(ctx context.Context, artist, title string) ([]source.Candidate, error) {
	q := source.Query{Artist: artist, Title: title}.Normalize()

	songs, err := c.Search(ctx, q)
	if err != nil {
		c.logger.Warn().Err(err).Str("query", q.String()).Msg("Search failed")
		return nil, ctx.Err()
	}

	return c.gatherer.Gather(ctx, q, songs, rowLyrics), nil
}

// Search 按标题和歌手搜索，同步歌词直接放进 Song.Lyrics
func (c *Client) Search(ctx context.Context, q source.Query) ([]source.Song, error) {
	params := url.Values{}
	params.Set("track_name", q.Title)
	if q.Artist != "" {
		params.Set("artist_name", q.Artist)
	}

	body, err := c.http.Get(ctx, c.cfg.BaseURL+"/search", params)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}

	var rows LRCLibSearchResponse
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Info().Int("results", len(rows)).Str("query", q.String()).Msg("Search finished")

	songs := make([]source.Song, 0, len(rows))
	for _, row := range rows {
		song := source.Song{
			Ref:      fmt.Sprintf("%d", row.ID),
			Title:    row.TrackName,
			Artist:   row.ArtistName,
			Duration: int(row.Duration),
		}
		if !row.Instrumental && lrc.LooksTimestamped(row.SyncedLyrics) {
			song.Lyrics = strings.TrimSpace(row.SyncedLyrics)
		}
		songs = append(songs, song)
	}
	return songs, nil
}

func rowLyrics(_ context.Context, song source.Song) (string, error) {
	return song.Lyrics, nil
}
