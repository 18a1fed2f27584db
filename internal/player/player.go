package player

import (
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"
)

// ErrNoPlayer 没有正在播放的播放器
var ErrNoPlayer = errors.New("no active player")

// runCommand 执行外部命令并返回标准输出，测试中会被替换
var runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Track 当前播放的曲目
type Track struct {
	Artist string
	Title  string
	// Duration 时长（秒），播放器不提供时为 0
	Duration float64
}

// Identifier 返回 "歌手 - 歌名"，歌手为空时只返回歌名
func (t Track) Identifier() string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " - " + t.Title
}

// CurrentTrack 通过 playerctl 读取当前播放的曲目
func CurrentTrack(ctx context.Context) (Track, error) {
	out, err := runCommand(ctx, "playerctl", "metadata", "--format", "{{artist}}\t{{title}}\t{{mpris:length}}")
	if err != nil {
		return Track{}, errors.Join(ErrNoPlayer, err)
	}

	fields := strings.Split(strings.TrimRight(string(out), "\r\n"), "\t")
	for len(fields) < 3 {
		fields = append(fields, "")
	}

	track := Track{
		Artist: strings.TrimSpace(fields[0]),
		Title:  strings.TrimSpace(fields[1]),
	}
	// mpris:length 单位是微秒
	if us, err := strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 64); err == nil && us > 0 {
		track.Duration = float64(us) / 1e6
	}

	if track.Title == "" {
		return Track{}, ErrNoPlayer
	}
	return track, nil
}
