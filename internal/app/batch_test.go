package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"lyrics-collector/pkg/source"
)

func touch(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func batchCollector() *fakeCollector {
	return &fakeCollector{results: map[string][]source.Candidate{
		"周杰伦 - 青花瓷":     {lyricCand(source.QQMusic, 50, "[00:01.00]素胚勾勒出青花笔意")},
		"Adele - Hello": {lyricCand(source.LRCLib, 50, "[00:01.00]Hello, it's me")},
		"Sub - Song":    {lyricCand(source.Kugou, 38, "[00:01.00]nested")},
	}}
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "周杰伦 - 青花瓷.mp3"), "no tags")
	touch(t, filepath.Join(dir, "Adele - Hello.mp3"), "no tags")
	touch(t, filepath.Join(dir, "Adele - Hello.lrc"), "[00:00.00]existing")
	touch(t, filepath.Join(dir, "Nobody - Nothing.flac"), "no tags")
	touch(t, filepath.Join(dir, "track.mp3"), "no tags")
	touch(t, filepath.Join(dir, "sub", "Sub - Song.ogg"), "no tags")

	collector := batchCollector()
	selector := &scriptedSelector{picks: []int{0, 0, 0}}
	a, _ := newTestApp(t, collector, selector)

	summary, err := a.Files(context.Background(), []string{dir}, FileOptions{SkipExisting: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := BatchSummary{Written: 1, Skipped: 1, NotFound: 1, Failed: 1}
	if summary != want {
		t.Errorf("summary = %v, want %v", summary, want)
	}

	data, err := os.ReadFile(filepath.Join(dir, "周杰伦 - 青花瓷.lrc"))
	if err != nil || string(data) != "[00:01.00]素胚勾勒出青花笔意\n" {
		t.Errorf("unexpected lyrics file %q %v", data, err)
	}
	existing, _ := os.ReadFile(filepath.Join(dir, "Adele - Hello.lrc"))
	if string(existing) != "[00:00.00]existing" {
		t.Errorf("existing lyrics overwritten: %q", existing)
	}
	if _, err := os.Stat(filepath.Join(dir, "sub", "Sub - Song.lrc")); err == nil {
		t.Error("subdirectory should not be scanned without recursive")
	}
	if selector.calls != 1 {
		t.Errorf("expected 1 selection, got %d", selector.calls)
	}
}

func TestFilesRecursiveOverwrite(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "Adele - Hello.mp3"), "no tags")
	touch(t, filepath.Join(dir, "Adele - Hello.lrc"), "[00:00.00]existing")
	touch(t, filepath.Join(dir, "sub", "Sub - Song.ogg"), "no tags")

	a, _ := newTestApp(t, batchCollector(), AutoSelector{})
	summary, err := a.Files(context.Background(), []string{dir}, FileOptions{Recursive: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Written != 2 {
		t.Errorf("expected 2 files written, got %v", summary)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "Adele - Hello.lrc"))
	if string(data) != "[00:01.00]Hello, it's me\n" {
		t.Errorf("expected overwrite, got %q", data)
	}
}

func TestFilesAbort(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "Adele - Hello.mp3"), "no tags")
	touch(t, filepath.Join(dir, "周杰伦 - 青花瓷.mp3"), "no tags")

	selector := &scriptedSelector{err: ErrAborted}
	a, _ := newTestApp(t, batchCollector(), selector)

	summary, err := a.Files(context.Background(), []string{dir}, FileOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if selector.calls != 1 || summary.Written != 0 {
		t.Errorf("expected batch to stop after abort, calls=%d summary=%v", selector.calls, summary)
	}
}

func TestFilesMissingPath(t *testing.T) {
	a, _ := newTestApp(t, batchCollector(), nil)
	if _, err := a.Files(context.Background(), []string{filepath.Join(t.TempDir(), "missing.mp3")}, FileOptions{}); err == nil {
		t.Error("expected error for missing path")
	}
}
