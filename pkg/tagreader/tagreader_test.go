package tagreader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// id3v1 在文件末尾写一个 ID3v1 标签
func id3v1(title, artist string) []byte {
	pad := func(s string, n int) []byte {
		b := make([]byte, n)
		copy(b, s)
		return b
	}
	data := []byte("not really audio data, just padding")
	data = append(data, []byte("TAG")...)
	data = append(data, pad(title, 30)...)
	data = append(data, pad(artist, 30)...)
	data = append(data, pad("", 30)...) // album
	data = append(data, pad("", 4)...)  // year
	data = append(data, pad("", 30)...) // comment
	data = append(data, 0)              // genre
	return data
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestReadTags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track01.mp3")
	writeFile(t, path, id3v1("Hello", "Adele"))

	q, err := Read(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Artist != "Adele" || q.Title != "Hello" {
		t.Errorf("unexpected query %+v", q)
	}
}

func TestReadFallsBackToFilename(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "周杰伦 - 青花瓷.flac")
	writeFile(t, path, []byte("no tags here at all"))
	q, err := Read(path)
	if err != nil || q.Artist != "周杰伦" || q.Title != "青花瓷" {
		t.Errorf("unexpected result %+v %v", q, err)
	}

	// 标签只有歌名时用文件名补歌手
	partial := filepath.Join(dir, "Adele - Hello.mp3")
	writeFile(t, partial, id3v1("Hello (Live)", ""))
	q, err = Read(partial)
	if err != nil || q.Artist != "Adele" || q.Title != "Hello (Live)" {
		t.Errorf("unexpected result %+v %v", q, err)
	}

	unknown := filepath.Join(dir, "track02.mp3")
	writeFile(t, unknown, []byte("nothing useful"))
	if _, err := Read(unknown); !errors.Is(err, ErrNoTags) {
		t.Errorf("expected ErrNoTags, got %v", err)
	}

	if _, err := Read(filepath.Join(dir, "missing.mp3")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFromFilename(t *testing.T) {
	tests := []struct {
		path, artist, title string
		ok                  bool
	}{
		{"/music/Adele - Hello.mp3", "Adele", "Hello", true},
		{"Artist - Title - Remastered.flac", "Artist", "Title - Remastered", true},
		{"Hello.mp3", "", "", false},
		{" - Hello.mp3", "", "", false},
	}
	for _, tt := range tests {
		q, ok := FromFilename(tt.path)
		if ok != tt.ok || (ok && (q.Artist != tt.artist || q.Title != tt.title)) {
			t.Errorf("FromFilename(%q) = %+v, %v", tt.path, q, ok)
		}
	}
}

func TestLRCPath(t *testing.T) {
	if got := LRCPath("/music/Adele - Hello.flac"); got != "/music/Adele - Hello.lrc" {
		t.Errorf("LRCPath() = %s", got)
	}
	if got := LRCPath("song"); got != "song.lrc" {
		t.Errorf("LRCPath() = %s", got)
	}
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.mp3", "a.FLAC", "cover.jpg", "a.lrc", "sub/c.ogg", "sub/deeper/d.m4a"} {
		writeFile(t, filepath.Join(dir, name), []byte("x"))
	}

	flat, err := Scan(dir, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(flat) != 2 || filepath.Base(flat[0]) != "a.FLAC" || filepath.Base(flat[1]) != "b.mp3" {
		t.Errorf("unexpected flat scan %v", flat)
	}

	all, err := Scan(dir, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("expected 4 files, got %v", all)
	}

	if _, err := Scan(filepath.Join(dir, "missing"), true); err == nil {
		t.Error("expected error for missing directory")
	}
}
