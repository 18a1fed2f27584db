package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lyrics-collector/internal/config"
	"lyrics-collector/internal/lyrics"
	"lyrics-collector/internal/player"
	"lyrics-collector/pkg/fileutil"
	"lyrics-collector/pkg/lrc"
	"lyrics-collector/pkg/music"
	"lyrics-collector/pkg/source"
)

// ErrNotFound 所有提供商都没有给出歌词
var ErrNotFound = errors.New("no lyrics found")

// ErrSkipped 用户没有选择任何候选
var ErrSkipped = errors.New("no candidate selected")

// Options 创建 App 所需的依赖
type Options struct {
	Config    *config.Config
	Collector music.Collector
	Resolver  *lyrics.Resolver
	Selector  Selector
	Output    io.Writer
	// CurrentTrack 读取正在播放的曲目，默认 player.CurrentTrack
	CurrentTrack func(ctx context.Context) (player.Track, error)
}

// App 命令行各子命令的实现
type App struct {
	cfg          *config.Config
	collector    music.Collector
	resolver     *lyrics.Resolver
	selector     Selector
	out          io.Writer
	currentTrack func(ctx context.Context) (player.Track, error)
	logger       zerolog.Logger
}

// New 创建 App
func New(opts Options) *App {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Resolver == nil {
		opts.Resolver = lyrics.NewResolver(nil)
	}
	if opts.Selector == nil {
		opts.Selector = AutoSelector{}
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.CurrentTrack == nil {
		opts.CurrentTrack = player.CurrentTrack
	}

	return &App{
		cfg:          opts.Config,
		collector:    opts.Collector,
		resolver:     opts.Resolver,
		selector:     opts.Selector,
		out:          opts.Output,
		currentTrack: opts.CurrentTrack,
		logger:       log.With().Str("component", "app").Logger(),
	}
}

// GetOptions get 和 now-playing 的参数
type GetOptions struct {
	// Output 输出路径，"-" 表示写到标准输出，为空时使用 "歌手 - 歌名.lrc"
	Output string
	// First 只要第一个有结果的提供商的最高分候选
	First bool
}

// Search 打印所有候选
func (a *App) Search(ctx context.Context, artist, title string) error {
	if !(source.Query{Artist: artist, Title: title}).Valid() {
		return fmt.Errorf("artist and title are required")
	}
	cands := a.collector.Collect(ctx, artist, title)
	if len(cands) == 0 {
		return fmt.Errorf("%w for %s - %s", ErrNotFound, artist, title)
	}
	a.printCandidates(cands)
	return nil
}

// Get 获取歌词并写入文件，返回写入的路径
func (a *App) Get(ctx context.Context, artist, title string, opts GetOptions) (string, error) {
	q := source.Query{Artist: artist, Title: title}.Normalize()
	if !q.Valid() {
		return "", fmt.Errorf("artist and title are required")
	}

	c, err := a.choose(ctx, q, opts.First)
	if err != nil {
		return "", err
	}

	if opts.Output == "-" {
		_, err := fmt.Fprintln(a.out, c.FullLyrics)
		return "-", err
	}

	path := opts.Output
	if path == "" {
		path = filepath.Join(a.cfg.App.OutputDir, lyrics.OutputName(q))
	}
	if err := a.write(path, c); err != nil {
		return "", err
	}
	return path, nil
}

// NowPlaying 获取当前播放曲目的歌词
func (a *App) NowPlaying(ctx context.Context, opts GetOptions) (string, error) {
	track, err := a.currentTrack(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read current track: %w", err)
	}

	q := source.Query{Artist: track.Artist, Title: track.Title}.Normalize()
	if !q.Valid() {
		q, err = a.resolver.Resolve(ctx, track.Identifier())
		if err != nil {
			return "", err
		}
	}

	a.logger.Info().Str("query", q.String()).Float64("duration", track.Duration).Msg("Now playing")
	return a.Get(ctx, q.Artist, q.Title, opts)
}

// choose 收集候选并挑选一条
func (a *App) choose(ctx context.Context, q source.Query, first bool) (source.Candidate, error) {
	if first {
		c, ok := a.collector.FirstMatch(ctx, q.Artist, q.Title)
		if !ok {
			return source.Candidate{}, fmt.Errorf("%w for %s", ErrNotFound, q)
		}
		return c, nil
	}

	cands := a.collector.Collect(ctx, q.Artist, q.Title)
	if len(cands) == 0 {
		return source.Candidate{}, fmt.Errorf("%w for %s", ErrNotFound, q)
	}

	c, ok, err := a.selector.Select(ctx, q, cands)
	if err != nil {
		return source.Candidate{}, err
	}
	if !ok {
		return source.Candidate{}, ErrSkipped
	}
	return c, nil
}

func (a *App) write(path string, c source.Candidate) error {
	text := strings.TrimRight(c.FullLyrics, "\n") + "\n"
	if err := fileutil.WriteFileAtomic(path, []byte(text), 0644); err != nil {
		return err
	}
	a.logger.Info().
		Str("path", path).
		Str("provider", string(c.Source)).
		Int("score", c.Score).
		Int("lines", lrc.LineCount(c.FullLyrics)).
		Msg("Lyrics saved")
	return nil
}

func (a *App) printCandidates(cands []source.Candidate) {
	for i, c := range cands {
		fmt.Fprintf(a.out, "%2d. [%s] score=%d  %s - %s  (%d lines, ends %s)\n",
			i+1, c.Source, c.Score, c.Artist, c.Title, lrc.LineCount(c.FullLyrics), formatClock(lrc.Span(c.FullLyrics)))
		for _, line := range strings.Split(c.Preview, "\n") {
			if line != "" {
				fmt.Fprintf(a.out, "      %s\n", line)
			}
		}
	}
}

// formatClock 格式化为 m:ss
func formatClock(d time.Duration) string {
	sec := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}
