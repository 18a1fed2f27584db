package tagreader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dhowden/tag"

	"lyrics-collector/pkg/source"
)

// ErrNoTags 标签和文件名里都找不到歌手和歌名
var ErrNoTags = errors.New("no artist and title in tags or file name")

var audioExts = map[string]bool{
	".mp3":  true,
	".flac": true,
	".wav":  true,
	".m4a":  true,
	".ogg":  true,
}

// IsAudio 按扩展名判断是否是支持的音频文件
func IsAudio(path string) bool {
	return audioExts[strings.ToLower(filepath.Ext(path))]
}

// Read 读取音频文件的歌手和歌名，标签不完整时用 "歌手 - 歌名.ext" 形式的文件名补全
func Read(path string) (source.Query, error) {
	var q source.Query

	file, err := os.Open(path)
	if err != nil {
		return q, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if m, err := tag.ReadFrom(file); err == nil {
		artist := m.Artist()
		if artist == "" {
			artist = m.AlbumArtist()
		}
		q = source.Query{Artist: artist, Title: m.Title()}.Normalize()
	}
	if q.Valid() {
		return q, nil
	}

	fromName, ok := FromFilename(path)
	if !ok {
		return source.Query{}, fmt.Errorf("%w: %s", ErrNoTags, filepath.Base(path))
	}
	if q.Artist == "" {
		q.Artist = fromName.Artist
	}
	if q.Title == "" {
		q.Title = fromName.Title
	}
	return q, nil
}

// FromFilename 从 "歌手 - 歌名.ext" 解析查询
func FromFilename(path string) (source.Query, bool) {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	artist, title, ok := strings.Cut(base, " - ")
	if !ok {
		return source.Query{}, false
	}
	q := source.Query{Artist: artist, Title: title}.Normalize()
	return q, q.Valid()
}

// LRCPath 同目录同名的 .lrc 文件路径
func LRCPath(audioPath string) string {
	return strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".lrc"
}

// Scan 列出目录下的音频文件，结果按路径排序
func Scan(dir string, recursive bool) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if IsAudio(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	sort.Strings(files)
	return files, nil
}
