package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"lyrics-collector/pkg/fileutil"
	"lyrics-collector/pkg/source"
	"lyrics-collector/pkg/tagreader"
)

// FileOptions file 子命令参数
type FileOptions struct {
	SkipExisting bool
	Recursive    bool
}

// BatchSummary 批量处理结果
type BatchSummary struct {
	Written  int
	Skipped  int
	NotFound int
	Failed   int
}

func (s BatchSummary) String() string {
	return fmt.Sprintf("written=%d skipped=%d not_found=%d failed=%d", s.Written, s.Skipped, s.NotFound, s.Failed)
}

// selectionRequest 工作协程请求调用方挑选候选
type selectionRequest struct {
	query      source.Query
	path       string
	candidates []source.Candidate
	reply      chan selectionResult
}

type selectionResult struct {
	candidate source.Candidate
	ok        bool
	err       error
}

// Files 为音频文件批量获取歌词，.lrc 写在音频旁边。
// 查询在工作协程里进行，挑选由当前协程通过请求/响应通道完成，
// 这样终端提示始终在同一个协程里。
func (a *App) Files(ctx context.Context, paths []string, opts FileOptions) (BatchSummary, error) {
	files, err := expandPaths(paths, opts.Recursive)
	if err != nil {
		return BatchSummary{}, err
	}
	a.logger.Info().Int("files", len(files)).Msg("Processing audio files")

	requests := make(chan selectionRequest)
	done := make(chan BatchSummary, 1)

	go func() {
		defer close(requests)
		done <- a.processFiles(ctx, files, opts, requests)
	}()

	for req := range requests {
		a.logger.Debug().Str("file", req.path).Int("candidates", len(req.candidates)).Msg("Selection requested")
		c, ok, err := a.selector.Select(ctx, req.query, req.candidates)
		req.reply <- selectionResult{candidate: c, ok: ok, err: err}
	}

	summary := <-done
	a.logger.Info().Stringer("summary", summary).Msg("Batch finished")
	if ctx.Err() != nil {
		return summary, ctx.Err()
	}
	return summary, nil
}

func (a *App) processFiles(ctx context.Context, files []string, opts FileOptions, requests chan<- selectionRequest) BatchSummary {
	var summary BatchSummary

	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		l := a.logger.With().Str("file", path).Logger()

		out := tagreader.LRCPath(path)
		if opts.SkipExisting && fileutil.Exists(out) {
			l.Info().Msg("Lyrics file exists, skipping")
			summary.Skipped++
			continue
		}

		q, err := tagreader.Read(path)
		if err != nil {
			l.Warn().Err(err).Msg("Cannot read artist and title")
			summary.Failed++
			continue
		}

		cands := a.collector.Collect(ctx, q.Artist, q.Title)
		if len(cands) == 0 {
			l.Warn().Str("query", q.String()).Msg("No lyrics found")
			summary.NotFound++
			continue
		}

		reply := make(chan selectionResult, 1)
		select {
		case requests <- selectionRequest{query: q, path: path, candidates: cands, reply: reply}:
		case <-ctx.Done():
			return summary
		}
		res := <-reply

		switch {
		case errors.Is(res.err, ErrAborted):
			l.Warn().Msg("Selection aborted, stopping")
			return summary
		case res.err != nil:
			l.Error().Err(res.err).Msg("Selection failed")
			summary.Failed++
		case !res.ok:
			summary.Skipped++
		default:
			if err := a.write(out, res.candidate); err != nil {
				l.Error().Err(err).Msg("Failed to write lyrics")
				summary.Failed++
				continue
			}
			summary.Written++
		}
	}

	return summary
}

// expandPaths 展开目录，保留文件参数的顺序
func expandPaths(paths []string, recursive bool) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := tagreader.Scan(p, recursive)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}
