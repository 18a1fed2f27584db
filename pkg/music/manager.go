package music

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"lyrics-collector/pkg/source"
)

const (
	DefaultProviderDelay   = time.Second
	DefaultProviderTimeout = 60 * time.Second
)

var logger = log.With().Str("component", "music-manager").Logger()

// Options 管理器参数
type Options struct {
	// ProviderDelay 上一个提供商结束到下一个提供商开始之间的等待时间，只在顺序模式下使用
	ProviderDelay time.Duration
	// ProviderTimeout 单个提供商（搜索加全部歌词请求）的总时限，0 表示不限
	ProviderTimeout time.Duration
	// Concurrent 同时查询所有提供商
	Concurrent bool
}

// DefaultOptions 默认参数：顺序查询，间隔 1 秒
func DefaultOptions() Options {
	return Options{
		ProviderDelay:   DefaultProviderDelay,
		ProviderTimeout: DefaultProviderTimeout,
	}
}

// Manager 音乐API管理器，按优先级驱动各提供商并汇总候选
type Manager struct {
	providers []source.Source
	opts      Options
}

var _ Collector = (*Manager)(nil)

// NewManager 创建新的音乐API管理器，providers 的顺序就是优先级
func NewManager(providers []source.Source, opts Options) *Manager {
	if len(providers) == 0 {
		logger.Warn().Msg("No music providers configured")
		return &Manager{opts: opts}
	}

	logger.Info().
		Int("provider_count", len(providers)).
		Str("primary_provider", string(providers[0].Name())).
		Bool("concurrent", opts.Concurrent).
		Msg("Music API Manager initialized")

	return &Manager{
		providers: providers,
		opts:      opts,
	}
}

// Collect 查询全部提供商，合并结果后按分数全局稳定排序。
// 同分时保持提供商优先级顺序，不做跨提供商去重。歌手或歌名为空时直接返回空列表。
func (m *Manager) Collect(ctx context.Context, artist, title string) []source.Candidate {
	candidates := make([]source.Candidate, 0)

	q := source.Query{Artist: artist, Title: title}.Normalize()
	if !q.Valid() {
		logger.Warn().Str("artist", artist).Str("title", title).Msg("Rejecting query with empty artist or title")
		return candidates
	}

	l := logger.With().Str("collect_id", uuid.NewString()).Logger()
	l.Info().
		Str("artist", q.Artist).
		Str("title", q.Title).
		Int("providers", len(m.providers)).
		Bool("concurrent", m.opts.Concurrent).
		Msg("query received")

	start := time.Now()
	var perProvider [][]source.Candidate
	if m.opts.Concurrent {
		perProvider = m.collectConcurrent(ctx, q, l)
	} else {
		perProvider = m.collectSequential(ctx, q, l)
	}

	for _, list := range perProvider {
		candidates = append(candidates, list...)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	l.Info().
		Int("candidates", len(candidates)).
		Dur("elapsed", time.Since(start)).
		Msg("Collect finished")
	return candidates
}

// FirstMatch 按优先级逐个查询，第一个给出候选的提供商返回它的最高分候选，其余提供商不再查询
func (m *Manager) FirstMatch(ctx context.Context, artist, title string) (source.Candidate, bool) {
	q := source.Query{Artist: artist, Title: title}.Normalize()
	if !q.Valid() {
		logger.Warn().Str("artist", artist).Str("title", title).Msg("Rejecting query with empty artist or title")
		return source.Candidate{}, false
	}

	l := logger.With().Str("collect_id", uuid.NewString()).Logger()
	l.Info().Str("artist", q.Artist).Str("title", q.Title).Bool("first_match", true).Msg("query received")

	for i, p := range m.providers {
		if err := m.pause(ctx, i); err != nil {
			l.Warn().Err(err).Msg("Stopping before remaining providers")
			break
		}
		cands := m.runProvider(ctx, p, q, i, l)
		if len(cands) > 0 {
			return cands[0], true
		}
	}

	l.Info().Msg("No provider returned lyrics")
	return source.Candidate{}, false
}

func (m *Manager) collectSequential(ctx context.Context, q source.Query, l zerolog.Logger) [][]source.Candidate {
	results := make([][]source.Candidate, len(m.providers))
	for i, p := range m.providers {
		if err := m.pause(ctx, i); err != nil {
			l.Warn().Err(err).Msg("Stopping before remaining providers")
			break
		}
		results[i] = m.runProvider(ctx, p, q, i, l)
	}
	return results
}

// collectConcurrent 每个提供商一个任务，各自持有自己的 HTTP 客户端，等全部结束（或超时）后再合并
func (m *Manager) collectConcurrent(ctx context.Context, q source.Query, l zerolog.Logger) [][]source.Candidate {
	results := make([][]source.Candidate, len(m.providers))
	var g errgroup.Group
	for i, p := range m.providers {
		g.Go(func() error {
			results[i] = m.runProvider(ctx, p, q, i, l)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// runProvider 执行单个提供商，任何错误或 panic 都只记录日志并当作没有候选
func (m *Manager) runProvider(ctx context.Context, p source.Source, q source.Query, index int, l zerolog.Logger) (cands []source.Candidate) {
	name := string(p.Name())
	defer func() {
		if r := recover(); r != nil {
			l.Error().
				Str("provider", name).
				Err(fmt.Errorf("panic: %v", r)).
				Msg("provider failed")
			cands = nil
		}
	}()

	if m.opts.ProviderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.ProviderTimeout)
		defer cancel()
	}

	l.Info().
		Str("provider", name).
		Int("attempt", index+1).
		Int("total", len(m.providers)).
		Msg("provider attempted")

	start := time.Now()
	found, err := p.SearchCandidates(ctx, q.Artist, q.Title)
	if err != nil {
		l.Warn().Str("provider", name).Err(err).Dur("elapsed", time.Since(start)).Msg("provider failed")
		return nil
	}

	cands = make([]source.Candidate, 0, len(found))
	for _, c := range found {
		if strings.TrimSpace(c.FullLyrics) == "" {
			l.Debug().Str("provider", name).Str("title", c.Title).Msg("Dropping candidate without lyrics")
			continue
		}
		cands = append(cands, c)
	}

	l.Info().
		Str("provider", name).
		Int("candidates", len(cands)).
		Dur("elapsed", time.Since(start)).
		Msg("Provider finished")
	return cands
}

// pause 第一个提供商之前不等待，之后每个提供商开始前都完整等待 ProviderDelay
func (m *Manager) pause(ctx context.Context, index int) error {
	if index == 0 || m.opts.ProviderDelay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(m.opts.ProviderDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// GetProviderNames 获取所有提供商名称
func (m *Manager) GetProviderNames() []string {
	names := make([]string, len(m.providers))
	for i, provider := range m.providers {
		names[i] = string(provider.Name())
	}
	return names
}
