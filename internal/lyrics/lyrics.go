package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"lyrics-collector/internal/config"
	"lyrics-collector/pkg/ai"
	"lyrics-collector/pkg/ai/gemini"
	"lyrics-collector/pkg/ai/openai"
	"lyrics-collector/pkg/source"
	"lyrics-collector/pkg/textnorm"
)

var (
	// ErrUnresolved 无法从标题中得到歌手和歌名
	ErrUnresolved = errors.New("cannot resolve artist and title")
	// ErrNotSong 模型判断标题不是歌曲
	ErrNotSong = errors.New("media title is not a song")
)

var (
	separators  = []string{" - ", " – ", " | "}
	noiseRe     = regexp.MustCompile(`(?i)\s*[(\[（【][^)\]）】]*(official|mv|m/v|lyrics?|audio|video|hd|4k|官方|歌词|高音质)[^)\]）】]*[)\]）】]`)
	filenameRe  = regexp.MustCompile(`[\\/:*?"<>|]`)
	jsonFenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
)

var logger = log.With().Str("component", "resolver").Logger()

// SongInfo 模型返回的歌曲信息
type SongInfo struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	IsSong bool   `json:"is_song"`
}

func formatQuerySong(title string) string {
	return fmt.Sprintf(`请精确地按照以下JSON格式提取歌曲信息: {"is_song": true, "title": "歌曲标题", "artist": "演唱者"}。  输入是一个媒体标题，如果标题中包含歌曲信息，请返回符合格式的JSON；否则，返回{"is_song": false}。 请注意，"title" 和 "artist" 必须准确，否则将被视为错误，切记不要任何markdown格式，并将繁体中文转换为简体。 媒体标题是：%s`, title)
}

// NewAIClient 按配置创建模型客户端，没有配置 API key 时返回 nil
func NewAIClient(ctx context.Context, cfg config.AIConfig) (ai.AiInterface, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}
	if cfg.ModuleName == "gemini" {
		client, err := gemini.NewGemini(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	model := cfg.Model
	if model == "" && cfg.ModuleName != "openai" {
		model = cfg.ModuleName
	}
	return openai.NewOpenAi(cfg.APIKey, model, cfg.BaseURL), nil
}

// Resolver 把播放器给出的媒体标题解析成查询条件
type Resolver struct {
	aiClient   ai.AiInterface
	maxRetries int
	retryDelay time.Duration
}

// NewResolver 创建解析器，aiClient 可以为 nil，此时只按分隔符拆分
func NewResolver(aiClient ai.AiInterface) *Resolver {
	return &Resolver{
		aiClient:   aiClient,
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// Resolve 先尝试按 "歌手 - 歌名" 拆分，失败再交给模型
func (r *Resolver) Resolve(ctx context.Context, identifier string) (source.Query, error) {
	if q, ok := SplitIdentifier(identifier); ok {
		logger.Debug().Str("identifier", identifier).Str("query", q.String()).Msg("Split identifier")
		return q, nil
	}
	if r.aiClient == nil {
		return source.Query{}, fmt.Errorf("%w: %q", ErrUnresolved, identifier)
	}

	var raw string
	var err error
	for i := range r.maxRetries {
		raw, err = r.aiClient.HandleText(ctx, formatQuerySong(identifier))
		if err == nil {
			break
		}
		logger.Warn().Err(err).Int("attempt", i+1).Str("model", r.aiClient.Name()).Msg("Failed to query model")
		if i == r.maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return source.Query{}, ctx.Err()
		case <-time.After(r.retryDelay):
		}
	}
	if err != nil {
		return source.Query{}, fmt.Errorf("failed to query %s after %d attempts: %w", r.aiClient.Name(), r.maxRetries, err)
	}

	info, err := parseSongInfo(raw)
	if err != nil {
		return source.Query{}, err
	}
	if !info.IsSong {
		return source.Query{}, fmt.Errorf("%w: %q", ErrNotSong, identifier)
	}

	q := source.Query{Artist: info.Artist, Title: info.Title}.Normalize()
	if !q.Valid() {
		return source.Query{}, fmt.Errorf("%w: %q", ErrUnresolved, identifier)
	}
	logger.Info().Str("identifier", identifier).Str("query", q.String()).Msg("Model resolved identifier")
	return q, nil
}

func parseSongInfo(raw string) (SongInfo, error) {
	text := strings.TrimSpace(raw)
	if m := jsonFenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	var info SongInfo
	if err := json.Unmarshal([]byte(text), &info); err != nil {
		return SongInfo{}, fmt.Errorf("failed to parse model response: %w", err)
	}
	return info, nil
}

// SplitIdentifier 按 "歌手 - 歌名" 拆分，并去掉 (Official Video) 之类的后缀
func SplitIdentifier(identifier string) (source.Query, bool) {
	for _, sep := range separators {
		artist, title, ok := strings.Cut(identifier, sep)
		if !ok {
			continue
		}
		q := source.Query{
			Artist: artist,
			Title:  noiseRe.ReplaceAllString(title, ""),
		}.Normalize()
		if q.Valid() {
			return q, true
		}
	}
	return source.Query{}, false
}

// SanitizeFilename 替换文件名中不允许的字符
func SanitizeFilename(name string) string {
	return filenameRe.ReplaceAllString(name, "-")
}

// OutputName 歌词文件名 "歌手 - 歌名.lrc"，使用 NFC 组合形式
func OutputName(q source.Query) string {
	name := textnorm.Compose(q.Artist) + " - " + textnorm.Compose(q.Title)
	return SanitizeFilename(name) + ".lrc"
}
